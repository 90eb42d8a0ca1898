// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/samber/oops"
)

// Refresh token configuration.
const (
	RefreshTokenBytes      = 32                 // 32 bytes = 64 hex chars
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour // 7 days
)

// RefreshToken is a single-use credential redeemable for a new token pair.
// Used and Revoked only ever move from false to true.
type RefreshToken struct {
	ID        int64
	UserID    int64
	TokenHash string
	CreatedAt time.Time
	ExpiresAt time.Time
	Used      bool
	Revoked   bool
}

// NewRefreshToken creates a RefreshToken record for userID.
func NewRefreshToken(userID int64, tokenHash string, expiresAt time.Time) (*RefreshToken, error) {
	if userID <= 0 {
		return nil, oops.Code("REFRESH_TOKEN_INVALID_USER").Errorf("user ID must be positive")
	}
	if tokenHash == "" {
		return nil, oops.Code("REFRESH_TOKEN_INVALID_HASH").Errorf("token hash cannot be empty")
	}
	if expiresAt.IsZero() {
		return nil, oops.Code("REFRESH_TOKEN_INVALID_EXPIRY").Errorf("expiry time cannot be zero")
	}
	return &RefreshToken{
		UserID:    userID,
		TokenHash: tokenHash,
		ExpiresAt: expiresAt,
	}, nil
}

// IsExpiredAt returns true if the token has expired at now.
func (t *RefreshToken) IsExpiredAt(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// IsValidAt reports whether the token may be redeemed at now.
func (t *RefreshToken) IsValidAt(now time.Time) bool {
	return !t.IsExpiredAt(now) && !t.Used && !t.Revoked
}

// GenerateRefreshToken creates a random opaque token and its hash.
// Returns (plaintext_token, sha256_hash, error). Only the hash is stored.
func GenerateRefreshToken() (token, hash string, err error) {
	tokenBytes := make([]byte, RefreshTokenBytes)
	if _, err = rand.Read(tokenBytes); err != nil {
		return "", "", oops.Code("REFRESH_TOKEN_GENERATE_FAILED").
			With("operation", "crypto/rand.Read").
			With("requested_bytes", RefreshTokenBytes).
			Wrap(err)
	}

	token = hex.EncodeToString(tokenBytes)
	return token, HashRefreshToken(token), nil
}

// HashRefreshToken computes the SHA256 hash used to look a token up.
func HashRefreshToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// RefreshTokenRepository manages refresh token persistence.
type RefreshTokenRepository interface {
	// Create stores a new token. The repository assigns ID and CreatedAt and
	// always stores Used=false and Revoked=false.
	Create(ctx context.Context, token *RefreshToken) error

	// GetByTokenHash retrieves a token by the hash of its value.
	GetByTokenHash(ctx context.Context, tokenHash string) (*RefreshToken, error)

	// Update persists the Used and Revoked flags of a token that is still
	// neither used nor revoked. Returns ErrNotFound if the ID is absent and
	// ErrTokenSpent if the row was already terminal.
	Update(ctx context.Context, token *RefreshToken) error

	// RevokeAllValidForUser revokes every token of the user that is neither
	// used nor revoked and returns how many were revoked.
	RevokeAllValidForUser(ctx context.Context, userID int64) (int64, error)

	// ListValidForUser returns the tokens of the user still redeemable at now,
	// newest first.
	ListValidForUser(ctx context.Context, userID int64, now time.Time) ([]*RefreshToken, error)

	// DeleteExpired removes tokens that expired before the given time and
	// returns the count of deleted records.
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}
