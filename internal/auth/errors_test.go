// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"

	"github.com/holomush/holoauth/internal/auth"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want auth.Kind
	}{
		{"not found", oops.Code(auth.CodeNotFound).Errorf("x"), auth.KindNotFound},
		{"duplicate", oops.Code(auth.CodeDuplicate).Errorf("x"), auth.KindDuplicate},
		{"invalid credentials", oops.Code(auth.CodeInvalidCredentials).Errorf("x"), auth.KindAuthenticationFailed},
		{"validation", oops.Code(auth.CodeValidation).Errorf("x"), auth.KindValidation},
		{"store unavailable", oops.Code(auth.CodeStoreUnavailable).Wrap(errors.New("boom")), auth.KindInternal},
		{"unknown code", oops.Code("SOMETHING_ELSE").Errorf("x"), auth.KindInternal},
		{"plain error", errors.New("plain"), auth.KindInternal},
		{"nil", nil, auth.KindInternal},
		{"wrapped by fmt", fmt.Errorf("ctx: %w", oops.Code(auth.CodeValidation).Errorf("x")), auth.KindValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, auth.KindOf(tt.err))
		})
	}
}

func TestKind_PublicMessage(t *testing.T) {
	assert.Equal(t, "invalid credentials", auth.KindAuthenticationFailed.PublicMessage())
	assert.Equal(t, "internal error", auth.KindInternal.PublicMessage())
	assert.Equal(t, "authentication_failed", auth.KindAuthenticationFailed.String())
	assert.Equal(t, "internal", auth.Kind(99).String())
}

func TestConflictError(t *testing.T) {
	err := oops.Code("USER_CONFLICT").Wrap(&auth.ConflictError{Field: "email"})

	assert.ErrorIs(t, err, auth.ErrConflict)
	assert.NotErrorIs(t, err, auth.ErrNotFound)

	var ce *auth.ConflictError
	assert.ErrorAs(t, err, &ce)
	assert.Equal(t, "email", ce.Field)
	assert.Equal(t, "email already in use", ce.Error())
}

func TestCodeOf(t *testing.T) {
	t.Run("nil", func(t *testing.T) {
		assert.Empty(t, auth.CodeOf(nil))
	})

	t.Run("plain error has no code", func(t *testing.T) {
		assert.Empty(t, auth.CodeOf(errors.New("plain")))
	})

	t.Run("domain code is returned as is", func(t *testing.T) {
		err := oops.Code(auth.CodeDuplicate).Errorf("x")
		assert.Equal(t, auth.CodeDuplicate, auth.CodeOf(err))
	})
}
