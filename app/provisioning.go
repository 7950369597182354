package app

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"rubik/internal/errors"
	"rubik/internal/forms"
	"rubik/models"
	"rubik/ports"

	"go.uber.org/zap"
)

// NewAccount describes an account created by an administrator; it is active at once
type NewAccount struct {
	Username  string `binding:"required,max=150,username"`
	Email     string `binding:"required,max=254,mailaddr"`
	FirstName string `binding:"max=150"`
	LastName  string `binding:"max=150"`
	Password  string `binding:"required"`
	IsStaff   bool
}

// ProvisioningService creates accounts outside the self-registration flow
type ProvisioningService struct {
	store  ports.IdentityStore
	logger *zap.Logger
}

// NewProvisioningService creates a provisioning service
func NewProvisioningService(store ports.IdentityStore, logger *zap.Logger) *ProvisioningService {
	return &ProvisioningService{store: store, logger: logger}
}

// Create validates and stores an active account with its profile. Validation problems
// are returned as a single InvalidInput error listing every field.
func (s *ProvisioningService) Create(ctx context.Context, in NewAccount) (*models.Account, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)

	fieldErrs := forms.Validate(&in)
	if err := checkUnique(ctx, s.store, in.Username, in.Email, 0, fieldErrs); err != nil {
		return nil, err
	}
	if in.Password != "" {
		for _, problem := range forms.ValidatePassword(in.Password, in.Username, in.Email) {
			fieldErrs.Add("password", problem)
		}
	}
	if fieldErrs.Any() {
		return nil, errors.InvalidInput(describe(fieldErrs))
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	account := &models.Account{
		Username:     in.Username,
		Email:        in.Email,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		PasswordHash: hash,
		IsActive:     true,
		IsStaff:      in.IsStaff,
	}
	if err := SaveAccount(ctx, s.store, account); err != nil {
		return nil, errors.Wrap(err, "failed to create account")
	}

	s.logger.Info("account provisioned",
		zap.Int64("account_id", account.ID),
		zap.String("username", account.Username),
		zap.Bool("staff", account.IsStaff))
	return account, nil
}

// describe flattens field errors as "field: message; ..." in field order
func describe(fieldErrs forms.FieldErrors) string {
	fields := make([]string, 0, len(fieldErrs))
	for f := range fieldErrs {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		for _, msg := range fieldErrs[f] {
			parts = append(parts, fmt.Sprintf("%s: %s", strings.ToLower(f), msg))
		}
	}
	return strings.Join(parts, "; ")
}
