// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/holoauth/internal/auth"
	"github.com/holomush/holoauth/pkg/errutil"
)

func TestNewUser(t *testing.T) {
	t.Run("creates active user", func(t *testing.T) {
		u, err := auth.NewUser("alice", "alice@example.com", "hash")
		require.NoError(t, err)
		assert.True(t, u.IsActive)
		assert.Zero(t, u.ID)
	})

	for name, args := range map[string][3]string{
		"empty username":     {"  ", "a@example.com", "hash"},
		"empty email":        {"alice", "", "hash"},
		"empty passwordhash": {"alice", "a@example.com", ""},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := auth.NewUser(args[0], args[1], args[2])
			require.Error(t, err)
			errutil.AssertErrorCode(t, err, auth.CodeValidation)
		})
	}
}

func TestUser_Profile(t *testing.T) {
	first := "Alice"
	u := &auth.User{ID: 7, Username: "alice", Email: "alice@example.com", PasswordHash: "secret", FirstName: &first, IsActive: true}

	p := u.Profile()
	assert.Equal(t, int64(7), p.ID)
	assert.Equal(t, "alice", p.Username)
	assert.Equal(t, &first, p.FirstName)
	assert.Nil(t, p.LastName)
}

func TestFoldIdentity(t *testing.T) {
	assert.Equal(t, "alice@example.com", auth.FoldIdentity("  Alice@Example.COM "))
}
