// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"errors"

	"github.com/samber/oops"

	"github.com/holomush/holoauth/pkg/errutil"
)

// Sentinel errors. Callers match them with errors.Is.
var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a write violates a uniqueness constraint.
	ErrConflict = errors.New("conflict")

	// ErrTokenSpent is returned when a conditional refresh token update finds
	// the row already used or revoked.
	ErrTokenSpent = errors.New("refresh token already used or revoked")

	// ErrStoreUnavailable matches every Service failure caused by a
	// repository error.
	ErrStoreUnavailable = errors.New("credential store unavailable")
)

// storeError marks a repository failure. The cause stays reachable
// through errors.Is and errors.As.
type storeError struct {
	err error
}

func (e *storeError) Error() string {
	return ErrStoreUnavailable.Error() + ": " + e.err.Error()
}

func (e *storeError) Unwrap() error { return e.err }

// Is reports whether target is ErrStoreUnavailable.
func (e *storeError) Is(target error) bool {
	return target == ErrStoreUnavailable
}

// ConflictError reports which unique field a write collided on.
// It matches ErrConflict.
type ConflictError struct {
	Field string
}

func (e *ConflictError) Error() string {
	return e.Field + " already in use"
}

// Is reports whether target is ErrConflict.
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// conflictField returns the colliding field carried by err, if any.
func conflictField(err error) string {
	var ce *ConflictError
	if errors.As(err, &ce) {
		return ce.Field
	}
	return ""
}

// Error codes surfaced by Service. Each maps to exactly one Kind.
const (
	CodeNotFound           = "AUTH_NOT_FOUND"
	CodeDuplicate          = "AUTH_DUPLICATE"
	CodeInvalidCredentials = "AUTH_INVALID_CREDENTIALS"
	CodeValidation         = "AUTH_VALIDATION"
	CodeStoreUnavailable   = "AUTH_STORE_UNAVAILABLE"
)

// Kind classifies a Service failure for the boundary that reports it.
type Kind int

// Failure kinds.
const (
	KindInternal Kind = iota
	KindNotFound
	KindDuplicate
	KindAuthenticationFailed
	KindValidation
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindDuplicate:
		return "duplicate"
	case KindAuthenticationFailed:
		return "authentication_failed"
	case KindValidation:
		return "validation"
	default:
		return "internal"
	}
}

// PublicMessage is the stable, generic message shown to callers for the kind.
func (k Kind) PublicMessage() string {
	switch k {
	case KindNotFound:
		return "resource not found"
	case KindDuplicate:
		return "username or email already in use"
	case KindAuthenticationFailed:
		return "invalid credentials"
	case KindValidation:
		return "request could not be validated"
	default:
		return "internal error"
	}
}

// CodeOf returns the Service code of err. Repository failures report
// CodeStoreUnavailable even when the repository attached its own code
// further down the chain.
func CodeOf(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrStoreUnavailable) {
		return CodeStoreUnavailable
	}
	return errutil.Code(err)
}

// KindOf reports the Kind of err based on its Service code.
// Errors without a recognized code are KindInternal.
func KindOf(err error) Kind {
	switch CodeOf(err) {
	case CodeNotFound:
		return KindNotFound
	case CodeDuplicate:
		return KindDuplicate
	case CodeInvalidCredentials:
		return KindAuthenticationFailed
	case CodeValidation:
		return KindValidation
	default:
		return KindInternal
	}
}

// errInvalidCredentials builds the single failure shape used for every
// credential and refresh token rejection.
func errInvalidCredentials() error {
	return oops.Code(CodeInvalidCredentials).Errorf("invalid credentials")
}

func errDuplicate(field string) error {
	return oops.Code(CodeDuplicate).With("field", field).Errorf("%s already in use", field)
}

func errNotFound(entity string, id int64) error {
	return oops.Code(CodeNotFound).With("entity", entity).With("id", id).Errorf("%s not found", entity)
}

// storeUnavailable wraps a repository failure exactly once at the service boundary.
func storeUnavailable(operation string, err error) error {
	return oops.Code(CodeStoreUnavailable).
		With("operation", operation).
		Wrap(&storeError{err: err})
}
