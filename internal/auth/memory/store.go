// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package memory provides in-memory auth repositories for tests and
// single-process use.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/samber/oops"

	"github.com/holomush/holoauth/internal/auth"
)

// Store holds users and refresh tokens behind a single mutex, so every
// repository operation is atomic with respect to all others.
type Store struct {
	mu          sync.Mutex
	users       map[int64]*auth.User
	tokens      map[int64]*auth.RefreshToken
	tokenByHash map[string]int64
	nextUserID  int64
	nextTokenID int64
	now         func() time.Time
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		users:       make(map[int64]*auth.User),
		tokens:      make(map[int64]*auth.RefreshToken),
		tokenByHash: make(map[string]int64),
		now:         time.Now,
	}
}

// Users returns the user repository backed by s.
func (s *Store) Users() *UserRepository {
	return &UserRepository{s: s}
}

// Tokens returns the refresh token repository backed by s.
func (s *Store) Tokens() *RefreshTokenRepository {
	return &RefreshTokenRepository{s: s}
}

// UserRepository implements auth.UserRepository in memory.
type UserRepository struct {
	s *Store
}

// Create stores a new user.
func (r *UserRepository) Create(_ context.Context, user *auth.User) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkUniqueLocked(user, 0); err != nil {
		return err
	}
	s.nextUserID++
	user.ID = s.nextUserID
	user.CreatedAt = s.now().UTC()

	stored := *user
	s.users[user.ID] = &stored
	return nil
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(_ context.Context, id int64) (*auth.User, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, oops.Code("USER_NOT_FOUND").With("id", id).Wrap(auth.ErrNotFound)
	}
	cp := *u
	return &cp, nil
}

// GetByUsername retrieves a user by username (case-insensitive).
func (r *UserRepository) GetByUsername(_ context.Context, username string) (*auth.User, error) {
	return r.find("username", username, func(u *auth.User) string { return u.Username })
}

// GetByEmail retrieves a user by email (case-insensitive).
func (r *UserRepository) GetByEmail(_ context.Context, email string) (*auth.User, error) {
	return r.find("email", email, func(u *auth.User) string { return u.Email })
}

// find compares with LOWER() semantics only, matching the unique indexes.
func (r *UserRepository) find(field, value string, get func(*auth.User) string) (*auth.User, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	want := strings.ToLower(value)
	for _, u := range s.users {
		if strings.ToLower(get(u)) == want {
			cp := *u
			return &cp, nil
		}
	}
	return nil, oops.Code("USER_NOT_FOUND").With(field, value).Wrap(auth.ErrNotFound)
}

// Update replaces the mutable fields of an existing user.
func (r *UserRepository) Update(_ context.Context, user *auth.User) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.users[user.ID]
	if !ok {
		return oops.Code("USER_NOT_FOUND").With("id", user.ID).Wrap(auth.ErrNotFound)
	}
	if err := s.checkUniqueLocked(user, user.ID); err != nil {
		return err
	}

	stored := *user
	stored.CreatedAt = existing.CreatedAt
	s.users[user.ID] = &stored
	return nil
}

// RecordLogin sets only the last login time of a user.
func (r *UserRepository) RecordLogin(_ context.Context, id int64, at time.Time) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return oops.Code("USER_NOT_FOUND").With("id", id).Wrap(auth.ErrNotFound)
	}
	at = at.UTC()
	u.LastLoginAt = &at
	return nil
}

// Delete removes a user and their refresh tokens.
func (r *UserRepository) Delete(_ context.Context, id int64) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		return oops.Code("USER_NOT_FOUND").With("id", id).Wrap(auth.ErrNotFound)
	}
	delete(s.users, id)
	for tid, t := range s.tokens {
		if t.UserID == id {
			delete(s.tokenByHash, t.TokenHash)
			delete(s.tokens, tid)
		}
	}
	return nil
}

func (s *Store) checkUniqueLocked(user *auth.User, selfID int64) error {
	name := strings.ToLower(user.Username)
	email := strings.ToLower(user.Email)
	for id, u := range s.users {
		if id == selfID {
			continue
		}
		if strings.ToLower(u.Username) == name {
			return oops.Code("USER_CONFLICT").With("field", "username").Wrap(&auth.ConflictError{Field: "username"})
		}
		if strings.ToLower(u.Email) == email {
			return oops.Code("USER_CONFLICT").With("field", "email").Wrap(&auth.ConflictError{Field: "email"})
		}
	}
	return nil
}

// RefreshTokenRepository implements auth.RefreshTokenRepository in memory.
type RefreshTokenRepository struct {
	s *Store
}

// Create stores a new refresh token.
func (r *RefreshTokenRepository) Create(_ context.Context, token *auth.RefreshToken) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[token.UserID]; !ok {
		return oops.Code("REFRESH_TOKEN_CREATE_FAILED").
			With("user_id", token.UserID).
			Errorf("user does not exist")
	}
	if _, ok := s.tokenByHash[token.TokenHash]; ok {
		return oops.Code("REFRESH_TOKEN_CONFLICT").Wrap(&auth.ConflictError{Field: "token_hash"})
	}

	s.nextTokenID++
	token.ID = s.nextTokenID
	token.CreatedAt = s.now().UTC()
	token.Used = false
	token.Revoked = false

	stored := *token
	s.tokens[token.ID] = &stored
	s.tokenByHash[token.TokenHash] = token.ID
	return nil
}

// GetByTokenHash retrieves a token by the hash of its value.
func (r *RefreshTokenRepository) GetByTokenHash(_ context.Context, tokenHash string) (*auth.RefreshToken, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.tokenByHash[tokenHash]
	if !ok {
		return nil, oops.Code("REFRESH_TOKEN_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	cp := *s.tokens[id]
	return &cp, nil
}

// Update applies the Used and Revoked flags to a token that is still
// neither used nor revoked.
func (r *RefreshTokenRepository) Update(_ context.Context, token *auth.RefreshToken) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.tokens[token.ID]
	if !ok {
		return oops.Code("REFRESH_TOKEN_NOT_FOUND").With("id", token.ID).Wrap(auth.ErrNotFound)
	}
	if stored.Used || stored.Revoked {
		return oops.Code("REFRESH_TOKEN_SPENT").With("id", token.ID).Wrap(auth.ErrTokenSpent)
	}
	stored.Used = token.Used
	stored.Revoked = token.Revoked
	return nil
}

// RevokeAllValidForUser revokes every token of the user that is neither used nor revoked.
func (r *RefreshTokenRepository) RevokeAllValidForUser(_ context.Context, userID int64) (int64, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int64
	for _, t := range s.tokens {
		if t.UserID == userID && !t.Used && !t.Revoked {
			t.Revoked = true
			count++
		}
	}
	return count, nil
}

// ListValidForUser returns the tokens of the user still redeemable at now, newest first.
func (r *RefreshTokenRepository) ListValidForUser(_ context.Context, userID int64, now time.Time) ([]*auth.RefreshToken, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []*auth.RefreshToken
	for _, t := range s.tokens {
		if t.UserID == userID && t.IsValidAt(now) {
			cp := *t
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID > result[j].ID })
	return result, nil
}

// DeleteExpired removes tokens that expired before the given time.
func (r *RefreshTokenRepository) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int64
	for id, t := range s.tokens {
		if t.ExpiresAt.Before(before) {
			delete(s.tokenByHash, t.TokenHash)
			delete(s.tokens, id)
			count++
		}
	}
	return count, nil
}

// Compile-time interface checks.
var (
	_ auth.UserRepository         = (*UserRepository)(nil)
	_ auth.RefreshTokenRepository = (*RefreshTokenRepository)(nil)
)
