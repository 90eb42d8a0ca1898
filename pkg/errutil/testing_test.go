// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package errutil_test

import (
	"testing"

	"github.com/samber/oops"

	"github.com/holomush/holoauth/pkg/errutil"
)

func TestAssertErrorCode_MatchingCode(t *testing.T) {
	err := oops.Code("AUTH_INVALID_CREDENTIALS").Errorf("invalid credentials")
	errutil.AssertErrorCode(t, err, "AUTH_INVALID_CREDENTIALS")
}

func TestAssertErrorContext_MatchingKeyValue(t *testing.T) {
	err := oops.With("field", "email").Errorf("email already in use")
	errutil.AssertErrorContext(t, err, "field", "email")
}

func TestAssertNoErrorContext_MissingKey(t *testing.T) {
	err := oops.With("user_id", int64(1)).Errorf("refresh token not found")
	errutil.AssertNoErrorContext(t, err, "token_hash")
}
