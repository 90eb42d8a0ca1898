// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/holoauth/internal/auth"
	"github.com/holomush/holoauth/pkg/errutil"
)

var userRowColumns = []string{
	"id", "username", "email", "password_hash", "first_name", "last_name",
	"is_active", "created_at", "last_login_at",
}

func newMockPool(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err, "failed to create mock")
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
		mock.Close()
	})
	return mock
}

func TestUserRepository_Create(t *testing.T) {
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	tests := []struct {
		name      string
		setupMock func(mock pgxmock.PgxPoolIface)
		wantErr   error
		wantField string
		wantID    int64
	}{
		{
			name: "assigns id and created_at",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`INSERT INTO users`).
					WithArgs("alice", "alice@example.com", "hash", (*string)(nil), (*string)(nil), true).
					WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(int64(7), created))
			},
			wantID: 7,
		},
		{
			name: "username unique violation",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`INSERT INTO users`).
					WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
					WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "users_username_lower_key"})
			},
			wantErr:   auth.ErrConflict,
			wantField: "username",
		},
		{
			name: "email unique violation",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`INSERT INTO users`).
					WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
					WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "users_email_lower_key"})
			},
			wantErr:   auth.ErrConflict,
			wantField: "email",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := newMockPool(t)
			tt.setupMock(mock)

			user, err := auth.NewUser("alice", "alice@example.com", "hash")
			require.NoError(t, err)

			err = NewUserRepository(mock).Create(context.Background(), user)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				var ce *auth.ConflictError
				require.True(t, errors.As(err, &ce))
				assert.Equal(t, tt.wantField, ce.Field)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, user.ID)
			assert.Equal(t, created, user.CreatedAt)
		})
	}

	t.Run("other database error", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectQuery(`INSERT INTO users`).
			WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnError(errors.New("connection refused"))

		user := &auth.User{Username: "alice", Email: "alice@example.com", PasswordHash: "hash", IsActive: true}
		err := NewUserRepository(mock).Create(context.Background(), user)
		require.Error(t, err)
		assert.NotErrorIs(t, err, auth.ErrConflict)
		errutil.AssertErrorCode(t, err, "USER_CREATE_FAILED")
	})
}

func TestUserRepository_GetByUsername(t *testing.T) {
	ctx := context.Background()
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	first := "Alice"

	t.Run("case-insensitive lookup", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectQuery(`FROM users WHERE LOWER\(username\) = LOWER\(\$1\)`).
			WithArgs("ALICE").
			WillReturnRows(pgxmock.NewRows(userRowColumns).
				AddRow(int64(1), "alice", "alice@example.com", "hash", &first, (*string)(nil), true, created, (*time.Time)(nil)))

		user, err := NewUserRepository(mock).GetByUsername(ctx, "ALICE")
		require.NoError(t, err)
		assert.Equal(t, int64(1), user.ID)
		assert.Equal(t, "alice", user.Username)
		require.NotNil(t, user.FirstName)
		assert.Equal(t, "Alice", *user.FirstName)
		assert.Nil(t, user.LastName)
		assert.Nil(t, user.LastLoginAt)
		assert.True(t, user.IsActive)
	})

	t.Run("not found", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectQuery(`FROM users WHERE LOWER\(username\)`).
			WithArgs("ghost").
			WillReturnRows(pgxmock.NewRows(userRowColumns))

		_, err := NewUserRepository(mock).GetByUsername(ctx, "ghost")
		assert.ErrorIs(t, err, auth.ErrNotFound)
	})
}

func TestUserRepository_GetByEmailAndID(t *testing.T) {
	ctx := context.Background()
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	lastLogin := created.Add(time.Hour)

	mock := newMockPool(t)
	mock.ExpectQuery(`FROM users WHERE LOWER\(email\) = LOWER\(\$1\)`).
		WithArgs("Alice@Example.com").
		WillReturnRows(pgxmock.NewRows(userRowColumns).
			AddRow(int64(1), "alice", "alice@example.com", "hash", (*string)(nil), (*string)(nil), true, created, &lastLogin))
	mock.ExpectQuery(`FROM users WHERE id = \$1`).
		WithArgs(int64(2)).
		WillReturnError(errors.New("connection reset"))

	repo := NewUserRepository(mock)
	user, err := repo.GetByEmail(ctx, "Alice@Example.com")
	require.NoError(t, err)
	require.NotNil(t, user.LastLoginAt)
	assert.Equal(t, lastLogin, *user.LastLoginAt)

	_, err = repo.GetByID(ctx, 2)
	require.Error(t, err)
	assert.NotErrorIs(t, err, auth.ErrNotFound)
}

func TestUserRepository_Update(t *testing.T) {
	ctx := context.Background()
	user := &auth.User{ID: 1, Username: "alice", Email: "alice@example.com", PasswordHash: "hash", IsActive: true}
	anyArgs := []any{
		pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
		pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
	}

	t.Run("updates row", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectExec(`UPDATE users SET`).WithArgs(anyArgs...).WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		require.NoError(t, NewUserRepository(mock).Update(ctx, user))
	})

	t.Run("missing row", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectExec(`UPDATE users SET`).WithArgs(anyArgs...).WillReturnResult(pgxmock.NewResult("UPDATE", 0))
		assert.ErrorIs(t, NewUserRepository(mock).Update(ctx, user), auth.ErrNotFound)
	})

	t.Run("unique violation", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectExec(`UPDATE users SET`).WithArgs(anyArgs...).
			WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "users_email_lower_key"})
		err := NewUserRepository(mock).Update(ctx, user)
		assert.ErrorIs(t, err, auth.ErrConflict)
		errutil.AssertErrorContext(t, err, "field", "email")
	})
}

func TestUserRepository_RecordLogin(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	query := `UPDATE users SET last_login_at = \$2 WHERE id = \$1`

	t.Run("sets only last_login_at", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectExec(query).WithArgs(int64(1), at).WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		require.NoError(t, NewUserRepository(mock).RecordLogin(ctx, 1, at))
	})

	t.Run("missing row", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectExec(query).WithArgs(int64(2), at).WillReturnResult(pgxmock.NewResult("UPDATE", 0))
		assert.ErrorIs(t, NewUserRepository(mock).RecordLogin(ctx, 2, at), auth.ErrNotFound)
	})

	t.Run("database error", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectExec(query).WithArgs(int64(1), at).WillReturnError(errors.New("connection reset"))
		err := NewUserRepository(mock).RecordLogin(ctx, 1, at)
		errutil.AssertErrorCode(t, err, "USER_RECORD_LOGIN_FAILED")
	})
}

func TestUserRepository_Delete(t *testing.T) {
	ctx := context.Background()

	mock := newMockPool(t)
	mock.ExpectExec(`DELETE FROM users WHERE id = \$1`).WithArgs(int64(1)).WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec(`DELETE FROM users WHERE id = \$1`).WithArgs(int64(2)).WillReturnResult(pgxmock.NewResult("DELETE", 0))

	repo := NewUserRepository(mock)
	require.NoError(t, repo.Delete(ctx, 1))
	assert.ErrorIs(t, repo.Delete(ctx, 2), auth.ErrNotFound)
}
