package app

import (
	"context"

	"rubik/internal/errors"
	"rubik/models"
	"rubik/ports"
)

// SaveAccount is the single write path for accounts. It persists the account and, in
// the same transaction, makes sure exactly one profile exists for it: a first save
// creates the profile, later saves heal a missing one and touch it. If any step fails
// the whole save is rolled back.
func SaveAccount(ctx context.Context, store ports.IdentityStore, account *models.Account) error {
	created := account.IsNew()

	err := store.InTx(ctx, func(tx ports.IdentityStore) error {
		if created {
			if err := tx.Accounts().Create(ctx, account); err != nil {
				return err
			}
			if _, err := tx.Profiles().Create(ctx, account.ID); err != nil {
				return errors.Wrap(err, "failed to create profile")
			}
			return nil
		}

		if err := tx.Accounts().Update(ctx, account); err != nil {
			return err
		}
		profile, err := tx.Profiles().Ensure(ctx, account.ID)
		if err != nil {
			return errors.Wrap(err, "failed to ensure profile")
		}
		if err := tx.Profiles().Update(ctx, profile); err != nil {
			return errors.Wrap(err, "failed to touch profile")
		}
		return nil
	})

	if err != nil && created {
		account.ID = 0
	}
	return err
}
