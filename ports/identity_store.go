package ports

import (
	"context"
	"time"

	"rubik/models"
)

// AccountRepository defines account persistence. Writes go through app.SaveAccount so
// the profile invariant holds; callers should not use Create/Update directly.
type AccountRepository interface {
	// Create inserts the account and fills in ID and DateJoined
	Create(ctx context.Context, account *models.Account) error

	// Update writes every mutable column of an existing account
	Update(ctx context.Context, account *models.Account) error

	// Delete removes the account (its profile cascades); NotFound if no row matched
	Delete(ctx context.Context, id int64) error

	GetByID(ctx context.Context, id int64) (*models.Account, error)
	GetByUsername(ctx context.Context, username string) (*models.Account, error)

	// UsernameTaken and EmailTaken ignore the account with excludeID (0 to check all)
	UsernameTaken(ctx context.Context, username string, excludeID int64) (bool, error)
	EmailTaken(ctx context.Context, email string, excludeID int64) (bool, error)

	// ListPending returns inactive accounts matching the query plus the unpaged total
	ListPending(ctx context.Context, query models.PendingQuery) ([]*models.Account, int, error)

	// PendingJoinTimes returns the join time of every inactive account
	PendingJoinTimes(ctx context.Context) ([]time.Time, error)
}

// ProfileRepository defines profile persistence
type ProfileRepository interface {
	Create(ctx context.Context, accountID int64) (*models.Profile, error)

	// Ensure returns the account's profile, creating it if it is missing
	Ensure(ctx context.Context, accountID int64) (*models.Profile, error)

	GetByAccountID(ctx context.Context, accountID int64) (*models.Profile, error)
	Update(ctx context.Context, profile *models.Profile) error
}

// IdentityStore groups the account and profile repositories behind one unit of work
type IdentityStore interface {
	Accounts() AccountRepository
	Profiles() ProfileRepository

	// InTx runs fn against a store bound to a single transaction. The transaction
	// commits when fn returns nil and rolls back otherwise.
	InTx(ctx context.Context, fn func(tx IdentityStore) error) error
}
