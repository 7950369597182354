package app

import (
	"context"
	"testing"
	"time"

	"rubik/internal/testkit"
	"rubik/models"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testLogger = zap.NewNop()

func seedAccount(t *testing.T, store *testkit.MemoryIdentityStore, username string, active bool, joined time.Time) *models.Account {
	t.Helper()
	hash, err := HashPassword("s3cret-pass!")
	require.NoError(t, err)
	acct := &models.Account{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: hash,
		IsActive:     active,
		DateJoined:   joined,
	}
	require.NoError(t, SaveAccount(context.Background(), store, acct))
	return acct
}
