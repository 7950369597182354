package app

import (
	"context"
	"strings"

	"rubik/internal/errors"
	"rubik/internal/forms"
	"rubik/internal/metrics"
	"rubik/models"
	"rubik/ports"

	"go.uber.org/zap"
)

// RegistrationForm is a self-registration submission
type RegistrationForm struct {
	Username  string `form:"username" binding:"required,max=150,username"`
	Email     string `form:"email" binding:"required,max=254,mailaddr"`
	Password1 string `form:"password1" binding:"required"`
	Password2 string `form:"password2" binding:"required"`
}

// RegistrationService creates inactive accounts awaiting staff approval
type RegistrationService struct {
	store  ports.IdentityStore
	logger *zap.Logger
}

// NewRegistrationService creates a registration service
func NewRegistrationService(store ports.IdentityStore, logger *zap.Logger) *RegistrationService {
	return &RegistrationService{store: store, logger: logger}
}

// Register validates the form and, when it is clean, stores a new inactive account with
// its profile. Field problems come back as FieldErrors with a nil account; nothing is
// written in that case.
func (s *RegistrationService) Register(ctx context.Context, form RegistrationForm) (*models.Account, forms.FieldErrors, error) {
	form.Username = strings.TrimSpace(form.Username)
	form.Email = strings.TrimSpace(form.Email)

	fieldErrs := forms.Validate(&form)
	if err := checkUnique(ctx, s.store, form.Username, form.Email, 0, fieldErrs); err != nil {
		return nil, nil, err
	}

	if form.Password1 != "" && form.Password2 != "" {
		if form.Password1 != form.Password2 {
			fieldErrs.Add("password2", forms.MsgPasswordMismatch)
		} else {
			for _, problem := range forms.ValidatePassword(form.Password2, form.Username, form.Email) {
				fieldErrs.Add("password2", problem)
			}
		}
	}

	if fieldErrs.Any() {
		return nil, fieldErrs, nil
	}

	hash, err := HashPassword(form.Password1)
	if err != nil {
		return nil, nil, err
	}

	account := &models.Account{
		Username:     form.Username,
		Email:        form.Email,
		PasswordHash: hash,
		IsActive:     false,
	}
	if err := SaveAccount(ctx, s.store, account); err != nil {
		if conflictErrs := conflictFieldErrors(err); conflictErrs != nil {
			return nil, conflictErrs, nil
		}
		return nil, nil, errors.Wrap(err, "failed to register account")
	}

	metrics.Registrations.Inc()
	s.logger.Info("account registered",
		zap.Int64("account_id", account.ID),
		zap.String("username", account.Username))
	return account, nil, nil
}

// checkUnique adds "already exists" annotations for fields that passed syntax checks
func checkUnique(ctx context.Context, store ports.IdentityStore, username, email string, excludeID int64, fieldErrs forms.FieldErrors) error {
	if !fieldErrs.Has("username") {
		taken, err := store.Accounts().UsernameTaken(ctx, username, excludeID)
		if err != nil {
			return err
		}
		if taken {
			fieldErrs.Add("username", forms.MsgUsernameTaken)
		}
	}
	if !fieldErrs.Has("email") {
		taken, err := store.Accounts().EmailTaken(ctx, email, excludeID)
		if err != nil {
			return err
		}
		if taken {
			fieldErrs.Add("email", forms.MsgEmailTaken)
		}
	}
	return nil
}

// conflictFieldErrors turns a unique violation that slipped past checkUnique (a
// concurrent duplicate) into the matching field annotation
func conflictFieldErrors(err error) forms.FieldErrors {
	if !errors.IsConflict(err) {
		return nil
	}
	fieldErrs := forms.FieldErrors{}
	switch errors.GetField(err) {
	case "username":
		fieldErrs.Add("username", forms.MsgUsernameTaken)
	case "email":
		fieldErrs.Add("email", forms.MsgEmailTaken)
	default:
		return nil
	}
	return fieldErrs
}
