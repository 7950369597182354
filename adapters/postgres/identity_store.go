package postgres

import (
	"context"
	"fmt"

	"rubik/internal/errors"
	"rubik/ports"

	"github.com/jmoiron/sqlx"
)

// IdentityStore implements ports.IdentityStore over PostgreSQL. A store returned to an
// InTx callback is bound to that transaction; nested InTx calls reuse it.
type IdentityStore struct {
	db *sqlx.DB
	q  sqlx.ExtContext
}

// NewIdentityStore creates a PostgreSQL identity store
func NewIdentityStore(db *sqlx.DB) *IdentityStore {
	return &IdentityStore{db: db, q: db}
}

func (s *IdentityStore) Accounts() ports.AccountRepository {
	return &accountRepository{q: s.q}
}

func (s *IdentityStore) Profiles() ports.ProfileRepository {
	return &profileRepository{q: s.q}
}

// InTx runs fn inside a single database transaction
func (s *IdentityStore) InTx(ctx context.Context, fn func(tx ports.IdentityStore) error) error {
	if s.db == nil {
		return fn(s)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.DatabaseError("failed to begin transaction", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(&IdentityStore{q: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return errors.DatabaseError("failed to commit transaction", err)
	}
	return nil
}
