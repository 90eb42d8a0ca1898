// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"strings"
	"time"

	"github.com/samber/oops"
)

// User represents a registered principal.
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	FirstName    *string
	LastName     *string
	IsActive     bool
	CreatedAt    time.Time
	LastLoginAt  *time.Time
}

// Profile is the public view of a User. It never carries the password hash.
type Profile struct {
	ID          int64      `json:"id"`
	Username    string     `json:"username"`
	Email       string     `json:"email"`
	FirstName   *string    `json:"firstName,omitempty"`
	LastName    *string    `json:"lastName,omitempty"`
	IsActive    bool       `json:"isActive"`
	CreatedAt   time.Time  `json:"createdAt"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`
}

// Profile returns the public view of the user.
func (u *User) Profile() *Profile {
	return &Profile{
		ID:          u.ID,
		Username:    u.Username,
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		IsActive:    u.IsActive,
		CreatedAt:   u.CreatedAt,
		LastLoginAt: u.LastLoginAt,
	}
}

// NewUser creates an active User ready to be stored.
// ID and CreatedAt are assigned by the repository.
func NewUser(username, email, passwordHash string) (*User, error) {
	if strings.TrimSpace(username) == "" {
		return nil, oops.Code(CodeValidation).Errorf("username cannot be empty")
	}
	if strings.TrimSpace(email) == "" {
		return nil, oops.Code(CodeValidation).Errorf("email cannot be empty")
	}
	if passwordHash == "" {
		return nil, oops.Code(CodeValidation).Errorf("password hash cannot be empty")
	}
	return &User{
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		IsActive:     true,
	}, nil
}

// FoldIdentity normalizes a username or email for case-insensitive comparison.
func FoldIdentity(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// UserRepository manages user persistence.
type UserRepository interface {
	// Create stores a new user. The repository assigns ID and CreatedAt and
	// writes them back into user. Returns ErrConflict if the username or
	// email is already taken.
	Create(ctx context.Context, user *User) error

	// GetByID retrieves a user by ID.
	GetByID(ctx context.Context, id int64) (*User, error)

	// GetByUsername retrieves a user by username (case-insensitive).
	GetByUsername(ctx context.Context, username string) (*User, error)

	// GetByEmail retrieves a user by email (case-insensitive).
	GetByEmail(ctx context.Context, email string) (*User, error)

	// Update replaces the mutable fields of an existing user.
	// Returns ErrNotFound if the ID is absent and ErrConflict on a uniqueness violation.
	Update(ctx context.Context, user *User) error

	// RecordLogin sets only the last login time of a user, leaving every
	// other column untouched. Returns ErrNotFound if the ID is absent.
	RecordLogin(ctx context.Context, id int64, at time.Time) error

	// Delete removes a user and, through the schema, their refresh tokens.
	Delete(ctx context.Context, id int64) error
}
