// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/samber/oops"

	"github.com/holomush/holoauth/internal/auth"
)

const tokenColumns = `id, user_id, token_hash, created_at, expires_at, used, revoked`

// RefreshTokenRepository implements auth.RefreshTokenRepository using PostgreSQL.
type RefreshTokenRepository struct {
	pool poolIface
}

// NewRefreshTokenRepository creates a new RefreshTokenRepository.
func NewRefreshTokenRepository(pool poolIface) *RefreshTokenRepository {
	return &RefreshTokenRepository{pool: pool}
}

// Create stores a new, unused and unrevoked token.
func (r *RefreshTokenRepository) Create(ctx context.Context, token *auth.RefreshToken) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO refresh_tokens (user_id, token_hash, expires_at)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, token.UserID, token.TokenHash, token.ExpiresAt).Scan(&token.ID, &token.CreatedAt)
	if err != nil {
		if _, ok := uniqueViolation(err); ok {
			return oops.Code("REFRESH_TOKEN_CONFLICT").
				With("user_id", token.UserID).
				Wrap(&auth.ConflictError{Field: "token_hash"})
		}
		return oops.Code("REFRESH_TOKEN_CREATE_FAILED").
			With("operation", "insert refresh token").
			With("user_id", token.UserID).
			Wrap(err)
	}
	token.Used = false
	token.Revoked = false
	return nil
}

// GetByTokenHash retrieves a token by the hash of its value.
func (r *RefreshTokenRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*auth.RefreshToken, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+tokenColumns+` FROM refresh_tokens WHERE token_hash = $1`, tokenHash)

	token, err := scanToken(row)
	if errors.Is(err, pgx.ErrNoRows) {
		// The hash is deliberately left out of the error context.
		return nil, oops.Code("REFRESH_TOKEN_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("REFRESH_TOKEN_GET_FAILED").
			With("operation", "get refresh token by hash").
			Wrap(err)
	}
	return token, nil
}

// Update applies the Used and Revoked flags to a token that is still neither
// used nor revoked. The WHERE clause makes concurrent redemptions of one
// token serialize on the row: only the first update matches.
func (r *RefreshTokenRepository) Update(ctx context.Context, token *auth.RefreshToken) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE refresh_tokens SET
			used = used OR $2,
			revoked = revoked OR $3
		WHERE id = $1 AND NOT used AND NOT revoked
	`, token.ID, token.Used, token.Revoked)
	if err != nil {
		return oops.Code("REFRESH_TOKEN_UPDATE_FAILED").
			With("operation", "update refresh token").
			With("id", token.ID).
			Wrap(err)
	}
	if result.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	if err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM refresh_tokens WHERE id = $1)`, token.ID,
	).Scan(&exists); err != nil {
		return oops.Code("REFRESH_TOKEN_UPDATE_FAILED").
			With("operation", "check refresh token exists").
			With("id", token.ID).
			Wrap(err)
	}
	if !exists {
		return oops.Code("REFRESH_TOKEN_NOT_FOUND").With("id", token.ID).Wrap(auth.ErrNotFound)
	}
	return oops.Code("REFRESH_TOKEN_SPENT").With("id", token.ID).Wrap(auth.ErrTokenSpent)
}

// RevokeAllValidForUser revokes every token of the user that is neither used
// nor revoked in a single statement.
func (r *RefreshTokenRepository) RevokeAllValidForUser(ctx context.Context, userID int64) (int64, error) {
	result, err := r.pool.Exec(ctx, `
		UPDATE refresh_tokens SET revoked = TRUE
		WHERE user_id = $1 AND NOT used AND NOT revoked
	`, userID)
	if err != nil {
		return 0, oops.Code("REFRESH_TOKEN_REVOKE_FAILED").
			With("operation", "revoke refresh tokens").
			With("user_id", userID).
			Wrap(err)
	}
	return result.RowsAffected(), nil
}

// ListValidForUser returns the tokens of the user still redeemable at now, newest first.
func (r *RefreshTokenRepository) ListValidForUser(ctx context.Context, userID int64, now time.Time) ([]*auth.RefreshToken, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+tokenColumns+`
		FROM refresh_tokens
		WHERE user_id = $1 AND NOT used AND NOT revoked AND expires_at > $2
		ORDER BY id DESC
	`, userID, now)
	if err != nil {
		return nil, oops.Code("REFRESH_TOKEN_LIST_FAILED").
			With("operation", "list valid refresh tokens").
			With("user_id", userID).
			Wrap(err)
	}
	defer rows.Close()

	var tokens []*auth.RefreshToken
	for rows.Next() {
		token, err := scanToken(rows)
		if err != nil {
			return nil, oops.With("operation", "list valid refresh tokens").Wrap(err)
		}
		tokens = append(tokens, token)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("REFRESH_TOKEN_LIST_FAILED").
			With("operation", "iterate refresh tokens").
			With("user_id", userID).
			Wrap(err)
	}
	return tokens, nil
}

// DeleteExpired removes tokens that expired before the given time.
func (r *RefreshTokenRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.pool.Exec(ctx, `DELETE FROM refresh_tokens WHERE expires_at < $1`, before)
	if err != nil {
		return 0, oops.Code("REFRESH_TOKEN_DELETE_EXPIRED_FAILED").
			With("operation", "delete expired refresh tokens").
			Wrap(err)
	}
	return result.RowsAffected(), nil
}

// scanToken scans a single row into a RefreshToken.
// Callers are responsible for handling pgx.ErrNoRows.
func scanToken(row pgx.Row) (*auth.RefreshToken, error) {
	var t auth.RefreshToken
	err := row.Scan(&t.ID, &t.UserID, &t.TokenHash, &t.CreatedAt, &t.ExpiresAt, &t.Used, &t.Revoked)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err //nolint:wrapcheck // Callers wrap with context-specific info
		}
		return nil, oops.Code("REFRESH_TOKEN_SCAN_FAILED").With("operation", "scan refresh token").Wrap(err)
	}
	return &t, nil
}

// Compile-time interface check.
var _ auth.RefreshTokenRepository = (*RefreshTokenRepository)(nil)
