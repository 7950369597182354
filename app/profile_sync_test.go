package app

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"rubik/internal/testkit"
	"rubik/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveAccountCreatesProfile(t *testing.T) {
	store := testkit.NewMemoryIdentityStore()
	acct := seedAccount(t, store, "alice", false, time.Now())

	assert.NotZero(t, acct.ID)
	assert.Equal(t, 1, store.ProfileCount(acct.ID))
}

func TestSaveAccountHealsMissingProfile(t *testing.T) {
	ctx := context.Background()
	store := testkit.NewMemoryIdentityStore()
	acct := seedAccount(t, store, "alice", false, time.Now())

	store.DropProfile(acct.ID)
	require.Equal(t, 0, store.ProfileCount(acct.ID))

	acct.FirstName = "Alice"
	require.NoError(t, SaveAccount(ctx, store, acct))
	assert.Equal(t, 1, store.ProfileCount(acct.ID))

	require.NoError(t, SaveAccount(ctx, store, acct))
	assert.Equal(t, 1, store.ProfileCount(acct.ID))
}

func TestSaveAccountRollsBackWhenProfileFails(t *testing.T) {
	store := testkit.NewMemoryIdentityStore()
	boom := stderrors.New("disk full")
	store.FailProfileWrites(boom)

	acct := &models.Account{Username: "ghost", Email: "ghost@example.com"}
	err := SaveAccount(context.Background(), store, acct)

	assert.ErrorIs(t, err, boom)
	assert.Zero(t, acct.ID)
	assert.Equal(t, 0, store.AccountCount())
}
