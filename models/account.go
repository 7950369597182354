package models

import (
	"time"
)

// Account is a registered identity. Accounts created through self-registration start
// inactive and cannot log in until a staff member approves them.
type Account struct {
	ID           int64     `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	Email        string    `json:"email" db:"email"`
	FirstName    string    `json:"first_name" db:"first_name"`
	LastName     string    `json:"last_name" db:"last_name"`
	PasswordHash string    `json:"-" db:"password_hash"`
	IsActive     bool      `json:"is_active" db:"is_active"`
	IsStaff      bool      `json:"is_staff" db:"is_staff"`
	DateJoined   time.Time `json:"date_joined" db:"date_joined"`
}

// IsNew reports whether the account has never been persisted
func (a *Account) IsNew() bool {
	return a.ID == 0
}

// FullName returns "first last" trimmed of missing parts
func (a *Account) FullName() string {
	switch {
	case a.FirstName == "":
		return a.LastName
	case a.LastName == "":
		return a.FirstName
	default:
		return a.FirstName + " " + a.LastName
	}
}

// PendingSort is a whitelisted ordering column for the approval queue
type PendingSort string

const (
	SortUsername   PendingSort = "username"
	SortEmail      PendingSort = "email"
	SortDateJoined PendingSort = "date_joined"
)

// ParsePendingSort maps a query value onto a known column, falling back to join time.
// "join_time" is accepted as an alias of date_joined.
func ParsePendingSort(v string) PendingSort {
	switch v {
	case string(SortUsername):
		return SortUsername
	case string(SortEmail):
		return SortEmail
	case string(SortDateJoined), "join_time":
		return SortDateJoined
	default:
		return SortDateJoined
	}
}

// PendingQuery describes one slice of the approval queue
type PendingQuery struct {
	Filter     string
	Sort       PendingSort
	Descending bool
	Limit      int // 0 means no limit
	Offset     int
}
