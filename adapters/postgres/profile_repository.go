package postgres

import (
	"context"

	"rubik/models"

	"github.com/jmoiron/sqlx"
)

const profileColumns = `id, account_id, bio, picture, updated_at`

type profileRepository struct {
	q sqlx.ExtContext
}

func (r *profileRepository) Create(ctx context.Context, accountID int64) (*models.Profile, error) {
	var profile models.Profile
	err := sqlx.GetContext(ctx, r.q, &profile, `
		INSERT INTO profiles (account_id) VALUES ($1)
		RETURNING `+profileColumns, accountID)
	if err != nil {
		return nil, mapWriteError(err, "failed to create profile")
	}
	return &profile, nil
}

// Ensure is get-or-create; concurrent callers settle on the same row
func (r *profileRepository) Ensure(ctx context.Context, accountID int64) (*models.Profile, error) {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO profiles (account_id) VALUES ($1) ON CONFLICT (account_id) DO NOTHING`, accountID)
	if err != nil {
		return nil, mapWriteError(err, "failed to ensure profile")
	}
	return r.GetByAccountID(ctx, accountID)
}

func (r *profileRepository) GetByAccountID(ctx context.Context, accountID int64) (*models.Profile, error) {
	var profile models.Profile
	err := sqlx.GetContext(ctx, r.q, &profile,
		`SELECT `+profileColumns+` FROM profiles WHERE account_id = $1`, accountID)
	if err != nil {
		return nil, mapReadError(err, "profile")
	}
	return &profile, nil
}

// Update writes bio and picture and touches updated_at
func (r *profileRepository) Update(ctx context.Context, profile *models.Profile) error {
	err := r.q.QueryRowxContext(ctx, `
		UPDATE profiles SET bio = $2, picture = $3, updated_at = NOW()
		WHERE account_id = $1
		RETURNING id, updated_at
	`, profile.AccountID, profile.Bio, profile.Picture).Scan(&profile.ID, &profile.UpdatedAt)
	if err != nil {
		return mapReadError(err, "profile")
	}
	return nil
}
