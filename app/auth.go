package app

import (
	"context"
	"strconv"

	"rubik/internal/errors"
	"rubik/models"
	"rubik/ports"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// MsgInvalidLogin is shown for unknown users, wrong passwords and inactive accounts alike
const MsgInvalidLogin = "Please enter a correct username and password. Note that both fields may be case-sensitive."

// dummyHash keeps the unknown-user path as slow as a real password check
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("rubik-timing-equalizer"), bcrypt.DefaultCost)

// HashPassword hashes a plaintext password with bcrypt
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", errors.Wrap(err, "failed to hash password")
	}
	return string(hash), nil
}

// AuthService verifies credentials and resolves the account behind a session
type AuthService struct {
	store  ports.IdentityStore
	logger *zap.Logger
}

// NewAuthService creates an auth service
func NewAuthService(store ports.IdentityStore, logger *zap.Logger) *AuthService {
	return &AuthService{store: store, logger: logger}
}

// Authenticate returns the active account matching the credentials. Any mismatch,
// including an inactive account, is an Unauthorized error carrying MsgInvalidLogin.
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (*models.Account, error) {
	account, err := s.store.Accounts().GetByUsername(ctx, username)
	if err != nil {
		if !errors.IsNotFound(err) {
			return nil, err
		}
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return nil, errors.Unauthorized(MsgInvalidLogin)
	}

	if bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)) != nil {
		return nil, errors.Unauthorized(MsgInvalidLogin)
	}
	if !account.IsActive {
		s.logger.Info("login refused for inactive account", zap.Int64("account_id", account.ID))
		return nil, errors.Unauthorized(MsgInvalidLogin)
	}
	return account, nil
}

// CurrentAccount resolves the account id stored in a session. A missing, malformed or
// stale id, or an account that has since been deactivated, yields nil without error.
func (s *AuthService) CurrentAccount(ctx context.Context, rawID string) (*models.Account, error) {
	if rawID == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return nil, nil
	}
	account, err := s.store.Accounts().GetByID(ctx, id)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	if !account.IsActive {
		return nil, nil
	}
	return account, nil
}
