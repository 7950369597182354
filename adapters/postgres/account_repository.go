package postgres

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"rubik/internal/errors"
	"rubik/models"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const accountColumns = `id, username, email, first_name, last_name, password_hash, is_active, is_staff, date_joined`

// Unique constraint name → form field
var uniqueFields = map[string]string{
	"accounts_username_key": "username",
	"accounts_email_key":    "email",
	"profiles_account_key":  "account_id",
}

type accountRepository struct {
	q sqlx.ExtContext
}

// Create inserts a new account and fills in its id
func (r *accountRepository) Create(ctx context.Context, account *models.Account) error {
	if account.DateJoined.IsZero() {
		account.DateJoined = time.Now().UTC()
	}

	err := r.q.QueryRowxContext(ctx, `
		INSERT INTO accounts (username, email, first_name, last_name, password_hash, is_active, is_staff, date_joined)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`, account.Username, account.Email, account.FirstName, account.LastName,
		account.PasswordHash, account.IsActive, account.IsStaff, account.DateJoined).Scan(&account.ID)
	if err != nil {
		return mapWriteError(err, "failed to create account")
	}
	return nil
}

// Update writes all mutable columns
func (r *accountRepository) Update(ctx context.Context, account *models.Account) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE accounts
		SET username = $2, email = $3, first_name = $4, last_name = $5,
			password_hash = $6, is_active = $7, is_staff = $8
		WHERE id = $1
	`, account.ID, account.Username, account.Email, account.FirstName, account.LastName,
		account.PasswordHash, account.IsActive, account.IsStaff)
	if err != nil {
		return mapWriteError(err, "failed to update account")
	}
	return expectRow(res, "account")
}

// Delete removes the account; the profile goes with it via ON DELETE CASCADE
func (r *accountRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return errors.DatabaseError("failed to delete account", err)
	}
	return expectRow(res, "account")
}

func (r *accountRepository) GetByID(ctx context.Context, id int64) (*models.Account, error) {
	var account models.Account
	err := sqlx.GetContext(ctx, r.q, &account,
		`SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
	if err != nil {
		return nil, mapReadError(err, "account")
	}
	return &account, nil
}

func (r *accountRepository) GetByUsername(ctx context.Context, username string) (*models.Account, error) {
	var account models.Account
	err := sqlx.GetContext(ctx, r.q, &account,
		`SELECT `+accountColumns+` FROM accounts WHERE username = $1`, username)
	if err != nil {
		return nil, mapReadError(err, "account")
	}
	return &account, nil
}

func (r *accountRepository) UsernameTaken(ctx context.Context, username string, excludeID int64) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS(SELECT 1 FROM accounts WHERE username = $1 AND id <> $2)`, username, excludeID)
}

// EmailTaken compares addresses case-insensitively
func (r *accountRepository) EmailTaken(ctx context.Context, email string, excludeID int64) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS(SELECT 1 FROM accounts WHERE lower(email) = lower($1) AND id <> $2)`, email, excludeID)
}

func (r *accountRepository) exists(ctx context.Context, query string, args ...interface{}) (bool, error) {
	var found bool
	if err := sqlx.GetContext(ctx, r.q, &found, query, args...); err != nil {
		return false, errors.DatabaseError("failed to check uniqueness", err)
	}
	return found, nil
}

// ListPending returns one page of inactive accounts and the total matching count
func (r *accountRepository) ListPending(ctx context.Context, query models.PendingQuery) ([]*models.Account, int, error) {
	where, args := pendingWhere(query.Filter)

	var total int
	if err := sqlx.GetContext(ctx, r.q, &total, `SELECT COUNT(*) FROM accounts `+where, args...); err != nil {
		return nil, 0, errors.DatabaseError("failed to count pending accounts", err)
	}

	stmt := `SELECT ` + accountColumns + ` FROM accounts ` + where + ` ` + pendingOrderBy(query)
	if query.Limit > 0 {
		args = append(args, query.Limit, query.Offset)
		stmt += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}

	accounts := []*models.Account{}
	if err := sqlx.SelectContext(ctx, r.q, &accounts, stmt, args...); err != nil {
		return nil, 0, errors.DatabaseError("failed to list pending accounts", err)
	}
	return accounts, total, nil
}

func (r *accountRepository) PendingJoinTimes(ctx context.Context) ([]time.Time, error) {
	times := []time.Time{}
	err := sqlx.SelectContext(ctx, r.q, &times,
		`SELECT date_joined FROM accounts WHERE is_active = false ORDER BY date_joined`)
	if err != nil {
		return nil, errors.DatabaseError("failed to load pending join times", err)
	}
	return times, nil
}

func pendingWhere(filter string) (string, []interface{}) {
	filter = strings.TrimSpace(filter)
	if filter == "" {
		return "WHERE is_active = false", nil
	}
	pattern := "%" + escapeLike(filter) + "%"
	return `WHERE is_active = false AND (username ILIKE $1 ESCAPE '\' OR email ILIKE $1 ESCAPE '\')`,
		[]interface{}{pattern}
}

func pendingOrderBy(query models.PendingQuery) string {
	column := string(models.ParsePendingSort(string(query.Sort)))
	direction := "ASC"
	if query.Descending {
		direction = "DESC"
	}
	return fmt.Sprintf("ORDER BY %s %s, id %s", column, direction, direction)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func expectRow(res sql.Result, resource string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.DatabaseError("failed to read affected rows", err)
	}
	if n == 0 {
		return errors.NotFound(resource)
	}
	return nil
}

func mapReadError(err error, resource string) error {
	if stderrors.Is(err, sql.ErrNoRows) {
		return errors.NotFound(resource)
	}
	return errors.DatabaseError("failed to load "+resource, err)
}

func mapWriteError(err error, message string) error {
	var pqErr *pq.Error
	if stderrors.As(err, &pqErr) && pqErr.Code == "23505" { // unique_violation
		field := uniqueFields[pqErr.Constraint]
		if field == "" {
			field = pqErr.Constraint
		}
		return errors.Conflict(field, err)
	}
	return errors.DatabaseError(message, err)
}
