package models

import "time"

// Profile is owned one-to-one by an Account and shares its lifetime
type Profile struct {
	ID        int64     `json:"id" db:"id"`
	AccountID int64     `json:"account_id" db:"account_id"`
	Bio       string    `json:"bio" db:"bio"`
	Picture   string    `json:"picture,omitempty" db:"picture"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// HasPicture reports whether a picture has been uploaded
func (p *Profile) HasPicture() bool {
	return p != nil && p.Picture != ""
}
