package forms

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		username string
		email    string
		want     []string
	}{
		{
			name:     "strong password",
			password: "correct-horse-battery",
			username: "newuser",
			email:    "newuser@example.com",
		},
		{
			name:     "too short",
			password: "x9!kq",
			username: "newuser",
			want:     []string{"This password is too short. It must contain at least 8 characters."},
		},
		{
			name:     "entirely numeric",
			password: "90817263",
			username: "newuser",
			want:     []string{"This password is entirely numeric."},
		},
		{
			name:     "common",
			password: "Password123",
			username: "newuser",
			want:     []string{"This password is too common."},
		},
		{
			name:     "similar to username",
			password: "newuser2024",
			username: "newuser",
			want:     []string{"The password is too similar to the username."},
		},
		{
			name:     "similar to email local part",
			password: "xx-mailbox-xx",
			username: "someone",
			email:    "mailbox@example.com",
			want:     []string{"The password is too similar to the username."},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidatePassword(tt.password, tt.username, tt.email))
		})
	}
}
