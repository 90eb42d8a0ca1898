// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

// Operation names reported to a Recorder.
const (
	OpRegister       = "register"
	OpLogin          = "login"
	OpRefresh        = "refresh"
	OpLogout         = "logout"
	OpChangePassword = "change_password"
)

// Outcomes reported to a Recorder.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeError   = "error"
)

// Recorder receives authentication outcomes, typically to feed metrics.
type Recorder interface {
	// RecordOperation records the outcome of an operation.
	RecordOperation(op, outcome string)

	// RecordReplay records a presented refresh token that was already used.
	RecordReplay()

	// RecordRevoked records how many refresh tokens an operation revoked.
	RecordRevoked(count int64)
}

type nopRecorder struct{}

func (nopRecorder) RecordOperation(string, string) {}
func (nopRecorder) RecordReplay()                  {}
func (nopRecorder) RecordRevoked(int64)            {}
