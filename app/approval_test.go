package app

import (
	"context"
	"fmt"
	"testing"
	"time"

	"rubik/internal/errors"
	"rubik/internal/testkit"
	"rubik/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func usernames(accounts []*models.Account) []string {
	out := make([]string, len(accounts))
	for i, a := range accounts {
		out[i] = a.Username
	}
	return out
}

func queueFixture(t *testing.T) (*testkit.MemoryIdentityStore, *ApprovalService, map[string]*models.Account) {
	t.Helper()
	store := testkit.NewMemoryIdentityStore()
	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	accts := map[string]*models.Account{
		"alice": seedAccount(t, store, "alice", false, base),
		"bob":   seedAccount(t, store, "bob", false, base.Add(time.Hour)),
		"carol": seedAccount(t, store, "carol", true, base.Add(2*time.Hour)),
	}
	svc := NewApprovalService(store, testLogger)
	svc.now = func() time.Time { return base.Add(5 * time.Hour) }
	return store, svc, accts
}

func TestListFilters(t *testing.T) {
	_, svc, _ := queueFixture(t)
	ctx := context.Background()

	res, err := svc.List(ctx, PendingListRequest{Query: "ali"})
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, usernames(res.Page.Items))
	assert.Equal(t, "ali", res.Query)

	res, err = svc.List(ctx, PendingListRequest{Query: "  "})
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, usernames(res.Page.Items))
	assert.Equal(t, "", res.Query)

	res, err = svc.List(ctx, PendingListRequest{Query: "EXAMPLE.COM"})
	require.NoError(t, err)
	assert.Len(t, res.Page.Items, 2)
}

func TestListSorts(t *testing.T) {
	_, svc, _ := queueFixture(t)
	ctx := context.Background()

	res, err := svc.List(ctx, PendingListRequest{Sort: "username", Order: "desc"})
	require.NoError(t, err)
	assert.Equal(t, []string{"bob", "alice"}, usernames(res.Page.Items))
	assert.Equal(t, "username", res.Sort)
	assert.Equal(t, "desc", res.Order)

	res, err = svc.List(ctx, PendingListRequest{Sort: "bogus", Order: "sideways"})
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, usernames(res.Page.Items))
	assert.Equal(t, "date_joined", res.Sort)
	assert.Equal(t, "asc", res.Order)

	res, err = svc.List(ctx, PendingListRequest{Sort: "join_time", Order: "desc"})
	require.NoError(t, err)
	assert.Equal(t, []string{"bob", "alice"}, usernames(res.Page.Items))
}

func TestListPaginationClamps(t *testing.T) {
	store := testkit.NewMemoryIdentityStore()
	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 20; i++ {
		seedAccount(t, store, fmt.Sprintf("user%02d", i), false, base.Add(time.Duration(i)*time.Minute))
	}
	svc := NewApprovalService(store, testLogger)
	ctx := context.Background()

	tests := []struct {
		raw      string
		number   int
		items    int
		firstKey string
	}{
		{"1", 1, 15, "user00"},
		{"2", 2, 5, "user15"},
		{"99", 2, 5, "user15"},
		{"abc", 1, 15, "user00"},
		{"", 1, 15, "user00"},
		{"0", 1, 15, "user00"},
	}
	for _, tt := range tests {
		t.Run("page="+tt.raw, func(t *testing.T) {
			res, err := svc.List(ctx, PendingListRequest{Page: tt.raw})
			require.NoError(t, err)
			assert.Equal(t, tt.number, res.Page.Number)
			assert.Equal(t, 2, res.Page.NumPages)
			require.Len(t, res.Page.Items, tt.items)
			assert.Equal(t, tt.firstKey, res.Page.Items[0].Username)
		})
	}
}

func TestListStats(t *testing.T) {
	_, svc, _ := queueFixture(t)

	res, err := svc.List(context.Background(), PendingListRequest{})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Stats.Pending)
	assert.Equal(t, 5.0, res.Stats.OldestHours)
	assert.Equal(t, 4.5, res.Stats.MedianHours)
	assert.Equal(t, 4.5, res.Stats.MeanHours)
}

func TestStatsEmptyQueue(t *testing.T) {
	svc := NewApprovalService(testkit.NewMemoryIdentityStore(), testLogger)
	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, QueueStats{}, stats)
}

func TestApproveFlipsOnlyTarget(t *testing.T) {
	store, svc, accts := queueFixture(t)
	ctx := context.Background()

	approved, err := svc.Approve(ctx, accts["alice"].ID)
	require.NoError(t, err)
	assert.True(t, approved.IsActive)

	bob, err := store.Accounts().GetByID(ctx, accts["bob"].ID)
	require.NoError(t, err)
	assert.False(t, bob.IsActive)
	assert.Equal(t, 1, store.ProfileCount(accts["alice"].ID))

	_, err = svc.Approve(ctx, accts["alice"].ID)
	assert.NoError(t, err)
}

func TestRejectRemovesAccountAndProfile(t *testing.T) {
	store, svc, accts := queueFixture(t)
	ctx := context.Background()
	id := accts["bob"].ID

	require.NoError(t, svc.Reject(ctx, id))
	_, err := store.Accounts().GetByID(ctx, id)
	assert.True(t, errors.IsNotFound(err))
	assert.Equal(t, 0, store.ProfileCount(id))

	assert.True(t, errors.IsNotFound(svc.Reject(ctx, id)))
	_, err = svc.Approve(ctx, id)
	assert.True(t, errors.IsNotFound(err))
}

func TestListAllIgnoresPaging(t *testing.T) {
	_, svc, _ := queueFixture(t)

	accounts, err := svc.ListAll(context.Background(), PendingListRequest{Sort: "email", Order: "desc", Page: "7"})
	require.NoError(t, err)
	assert.Equal(t, []string{"bob", "alice"}, usernames(accounts))
}
