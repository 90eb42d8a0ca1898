// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/samber/oops"

	"github.com/holomush/holoauth/pkg/errutil"
)

// dummyPasswordHash is verified against when a user doesn't exist so that
// response time does not reveal whether a username is registered.
// It never matches any password.
//
//nolint:gosec // G101: This is an intentionally fake hash for timing attack prevention, not a credential.
const dummyPasswordHash = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// TokenPair is the result of a successful login or refresh.
type TokenPair struct {
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	ExpiresAt    time.Time `json:"expiresAt"`
	User         *Profile  `json:"user"`
}

// RegisterInput carries the fields for a new account.
type RegisterInput struct {
	Username  string
	Email     string
	Password  string
	FirstName *string
	LastName  *string
}

// ProfileUpdate lists the profile fields to change. Nil fields are left as is.
type ProfileUpdate struct {
	Username  *string
	Email     *string
	FirstName *string
	LastName  *string
	IsActive  *bool
}

// Service implements registration, login, refresh token rotation and logout.
// It holds no mutable state of its own; the repositories are the only
// synchronization point, so a Service is safe for concurrent use.
type Service struct {
	users    UserRepository
	tokens   RefreshTokenRepository
	hasher   PasswordHasher
	issuer   TokenIssuer
	logger   *slog.Logger
	recorder Recorder
	now      func() time.Time

	refreshTTL             time.Duration
	revokeOnPasswordChange bool
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger used for security events.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithRecorder sets the Recorder that receives operation outcomes.
func WithRecorder(r Recorder) Option {
	return func(s *Service) { s.recorder = r }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithRefreshTTL sets the refresh token lifetime. Non-positive values keep the default.
func WithRefreshTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.refreshTTL = ttl
		}
	}
}

// WithRevokeOnPasswordChange makes ChangePassword revoke every outstanding
// refresh token of the user.
func WithRevokeOnPasswordChange(revoke bool) Option {
	return func(s *Service) { s.revokeOnPasswordChange = revoke }
}

// NewService creates a Service.
func NewService(users UserRepository, tokens RefreshTokenRepository, hasher PasswordHasher, issuer TokenIssuer, opts ...Option) (*Service, error) {
	if users == nil {
		return nil, oops.Code("AUTH_INVALID_DEPENDENCY").Errorf("user repository is required")
	}
	if tokens == nil {
		return nil, oops.Code("AUTH_INVALID_DEPENDENCY").Errorf("refresh token repository is required")
	}
	if hasher == nil {
		return nil, oops.Code("AUTH_INVALID_DEPENDENCY").Errorf("password hasher is required")
	}
	if issuer == nil {
		return nil, oops.Code("AUTH_INVALID_DEPENDENCY").Errorf("token issuer is required")
	}

	s := &Service{
		users:      users,
		tokens:     tokens,
		hasher:     hasher,
		issuer:     issuer,
		logger:     slog.Default(),
		recorder:   nopRecorder{},
		now:        time.Now,
		refreshTTL: DefaultRefreshTokenTTL,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		return nil, oops.Code("AUTH_INVALID_DEPENDENCY").Errorf("logger is required")
	}
	if s.recorder == nil {
		s.recorder = nopRecorder{}
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s, nil
}

// Register creates an active account and returns its profile.
func (s *Service) Register(ctx context.Context, in RegisterInput) (profile *Profile, err error) {
	defer func() { s.record(ctx, OpRegister, err) }()

	if in.Password == "" {
		return nil, oops.Code(CodeValidation).With("field", "password").Errorf("password cannot be empty")
	}

	unique, err := s.IsUsernameUnique(ctx, in.Username, nil)
	if err != nil {
		return nil, err
	}
	if !unique {
		return nil, errDuplicate("username")
	}
	unique, err = s.IsEmailUnique(ctx, in.Email, nil)
	if err != nil {
		return nil, err
	}
	if !unique {
		return nil, errDuplicate("email")
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, oops.Code("AUTH_HASH_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	user, err := NewUser(strings.TrimSpace(in.Username), strings.TrimSpace(in.Email), hash)
	if err != nil {
		return nil, err
	}
	user.FirstName = in.FirstName
	user.LastName = in.LastName

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, ErrConflict) {
			// Lost a race with a concurrent registration after the pre-check.
			return nil, errDuplicate(conflictField(err))
		}
		return nil, storeUnavailable("create user", err)
	}

	s.logger.InfoContext(ctx, "user registered", "user_id", user.ID)
	return user.Profile(), nil
}

// Login verifies credentials and issues a new token pair. Unknown users,
// wrong passwords and inactive accounts fail identically.
func (s *Service) Login(ctx context.Context, username, password string) (pair *TokenPair, err error) {
	defer func() { s.record(ctx, OpLogin, err) }()

	user, lookupErr := s.users.GetByUsername(ctx, username)

	var targetHash string
	var userExists bool
	switch {
	case lookupErr == nil:
		targetHash = user.PasswordHash
		userExists = true
	case errors.Is(lookupErr, ErrNotFound):
		targetHash = dummyPasswordHash
	default:
		return nil, storeUnavailable("get user by username", lookupErr)
	}

	// Always verify, even for unknown users.
	valid, verifyErr := s.hasher.Verify(password, targetHash)
	if verifyErr != nil && userExists {
		s.logger.WarnContext(ctx, "stored password hash could not be verified",
			"user_id", user.ID,
			"error", verifyErr,
		)
	}

	if !userExists || verifyErr != nil || !valid || !user.IsActive {
		return nil, errInvalidCredentials()
	}

	now := s.now()
	if err := s.users.RecordLogin(ctx, user.ID, now); err != nil {
		return nil, storeUnavailable("record last login", err)
	}
	user.LastLoginAt = &now

	return s.issuePair(ctx, user, now)
}

// Refresh redeems a refresh token for a new token pair. The presented token
// is marked used before the new pair is issued; if anything fails after that
// point the caller must log in again.
func (s *Service) Refresh(ctx context.Context, value string) (pair *TokenPair, err error) {
	defer func() { s.record(ctx, OpRefresh, err) }()

	if value == "" {
		return nil, errInvalidCredentials()
	}

	token, err := s.tokens.GetByTokenHash(ctx, HashRefreshToken(value))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, errInvalidCredentials()
		}
		return nil, storeUnavailable("get refresh token", err)
	}

	now := s.now()
	if !token.IsValidAt(now) {
		if token.Used {
			s.replayDetected(ctx, token)
		}
		return nil, errInvalidCredentials()
	}

	token.Used = true
	if err := s.tokens.Update(ctx, token); err != nil {
		switch {
		case errors.Is(err, ErrTokenSpent):
			// Another redemption of the same value won the conditional update.
			s.replayDetected(ctx, token)
			return nil, errInvalidCredentials()
		case errors.Is(err, ErrNotFound):
			return nil, errInvalidCredentials()
		default:
			return nil, storeUnavailable("mark refresh token used", err)
		}
	}

	user, err := s.users.GetByID(ctx, token.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, errInvalidCredentials()
		}
		return nil, storeUnavailable("get user by id", err)
	}
	if !user.IsActive {
		return nil, errInvalidCredentials()
	}

	return s.issuePair(ctx, user, now)
}

// Logout revokes every outstanding refresh token of the user.
// It is idempotent; access tokens already issued stay valid until they expire.
func (s *Service) Logout(ctx context.Context, userID int64) (err error) {
	defer func() { s.record(ctx, OpLogout, err) }()

	count, err := s.tokens.RevokeAllValidForUser(ctx, userID)
	if err != nil {
		return storeUnavailable("revoke refresh tokens", err)
	}
	s.recorder.RecordRevoked(count)
	s.logger.InfoContext(ctx, "user logged out", "user_id", userID, "revoked", count)
	return nil
}

// ChangePassword replaces the password after verifying the current one.
func (s *Service) ChangePassword(ctx context.Context, userID int64, current, next string) (err error) {
	defer func() { s.record(ctx, OpChangePassword, err) }()

	if next == "" {
		return oops.Code(CodeValidation).With("field", "new_password").Errorf("new password cannot be empty")
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return errNotFound("user", userID)
		}
		return storeUnavailable("get user by id", err)
	}

	valid, verifyErr := s.hasher.Verify(current, user.PasswordHash)
	if verifyErr != nil {
		s.logger.WarnContext(ctx, "stored password hash could not be verified",
			"user_id", user.ID,
			"error", verifyErr,
		)
	}
	if verifyErr != nil || !valid {
		return oops.Code(CodeValidation).With("field", "current_password").Errorf("current password is incorrect")
	}

	hash, err := s.hasher.Hash(next)
	if err != nil {
		return oops.Code("AUTH_HASH_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}
	user.PasswordHash = hash

	if err := s.users.Update(ctx, user); err != nil {
		if errors.Is(err, ErrNotFound) {
			return errNotFound("user", userID)
		}
		return storeUnavailable("update password", err)
	}

	if s.revokeOnPasswordChange {
		count, err := s.tokens.RevokeAllValidForUser(ctx, userID)
		if err != nil {
			return storeUnavailable("revoke refresh tokens", err)
		}
		s.recorder.RecordRevoked(count)
	}

	s.logger.InfoContext(ctx, "password changed", "user_id", userID)
	return nil
}

// IsUsernameUnique reports whether username is free. The account with
// excludeID, if given, does not count as a collision.
func (s *Service) IsUsernameUnique(ctx context.Context, username string, excludeID *int64) (bool, error) {
	if strings.TrimSpace(username) == "" {
		return false, oops.Code(CodeValidation).With("field", "username").Errorf("username cannot be empty")
	}
	user, err := s.users.GetByUsername(ctx, username)
	return s.uniqueResult(user, err, excludeID, "get user by username")
}

// IsEmailUnique reports whether email is free. The account with excludeID,
// if given, does not count as a collision.
func (s *Service) IsEmailUnique(ctx context.Context, email string, excludeID *int64) (bool, error) {
	if strings.TrimSpace(email) == "" {
		return false, oops.Code(CodeValidation).With("field", "email").Errorf("email cannot be empty")
	}
	user, err := s.users.GetByEmail(ctx, email)
	return s.uniqueResult(user, err, excludeID, "get user by email")
}

func (s *Service) uniqueResult(user *User, err error, excludeID *int64, operation string) (bool, error) {
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return true, nil
		}
		return false, storeUnavailable(operation, err)
	}
	if excludeID != nil && user.ID == *excludeID {
		return true, nil
	}
	return false, nil
}

// GetUser returns the profile of the user with id.
func (s *Service) GetUser(ctx context.Context, id int64) (*Profile, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, errNotFound("user", id)
		}
		return nil, storeUnavailable("get user by id", err)
	}
	return user.Profile(), nil
}

// GetUserByUsername returns the profile of the named user.
func (s *Service) GetUserByUsername(ctx context.Context, username string) (*Profile, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, oops.Code(CodeNotFound).With("entity", "user").With("username", username).Errorf("user not found")
		}
		return nil, storeUnavailable("get user by username", err)
	}
	return user.Profile(), nil
}

// UpdateProfile applies the non-nil fields of upd to the user.
func (s *Service) UpdateProfile(ctx context.Context, id int64, upd ProfileUpdate) (*Profile, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, errNotFound("user", id)
		}
		return nil, storeUnavailable("get user by id", err)
	}

	if upd.Username != nil && FoldIdentity(*upd.Username) != FoldIdentity(user.Username) {
		unique, err := s.IsUsernameUnique(ctx, *upd.Username, &id)
		if err != nil {
			return nil, err
		}
		if !unique {
			return nil, errDuplicate("username")
		}
	}
	if upd.Email != nil && FoldIdentity(*upd.Email) != FoldIdentity(user.Email) {
		unique, err := s.IsEmailUnique(ctx, *upd.Email, &id)
		if err != nil {
			return nil, err
		}
		if !unique {
			return nil, errDuplicate("email")
		}
	}

	if upd.Username != nil {
		if strings.TrimSpace(*upd.Username) == "" {
			return nil, oops.Code(CodeValidation).With("field", "username").Errorf("username cannot be empty")
		}
		user.Username = strings.TrimSpace(*upd.Username)
	}
	if upd.Email != nil {
		if strings.TrimSpace(*upd.Email) == "" {
			return nil, oops.Code(CodeValidation).With("field", "email").Errorf("email cannot be empty")
		}
		user.Email = strings.TrimSpace(*upd.Email)
	}
	if upd.FirstName != nil {
		user.FirstName = upd.FirstName
	}
	if upd.LastName != nil {
		user.LastName = upd.LastName
	}
	if upd.IsActive != nil {
		user.IsActive = *upd.IsActive
	}

	if err := s.users.Update(ctx, user); err != nil {
		switch {
		case errors.Is(err, ErrConflict):
			return nil, errDuplicate(conflictField(err))
		case errors.Is(err, ErrNotFound):
			return nil, errNotFound("user", id)
		default:
			return nil, storeUnavailable("update user", err)
		}
	}
	return user.Profile(), nil
}

// DeleteUser removes the user and their refresh tokens.
func (s *Service) DeleteUser(ctx context.Context, id int64) error {
	if err := s.users.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return errNotFound("user", id)
		}
		return storeUnavailable("delete user", err)
	}
	s.logger.InfoContext(ctx, "user deleted", "user_id", id)
	return nil
}

// ActiveSessions returns how many refresh tokens of the user are still redeemable.
func (s *Service) ActiveSessions(ctx context.Context, userID int64) (int, error) {
	tokens, err := s.tokens.ListValidForUser(ctx, userID, s.now())
	if err != nil {
		return 0, storeUnavailable("list valid refresh tokens", err)
	}
	return len(tokens), nil
}

// PurgeExpiredTokens deletes refresh tokens that expired more than olderThan ago.
func (s *Service) PurgeExpiredTokens(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan < 0 {
		return 0, oops.Code(CodeValidation).With("older_than", olderThan.String()).Errorf("retention cannot be negative")
	}
	count, err := s.tokens.DeleteExpired(ctx, s.now().Add(-olderThan))
	if err != nil {
		return 0, storeUnavailable("delete expired refresh tokens", err)
	}
	if count > 0 {
		s.logger.InfoContext(ctx, "purged expired refresh tokens", "count", count)
	}
	return count, nil
}

func (s *Service) issuePair(ctx context.Context, user *User, now time.Time) (*TokenPair, error) {
	access, err := s.issuer.IssueAccessToken(user, now)
	if err != nil {
		return nil, oops.Code("AUTH_TOKEN_ISSUE_FAILED").
			With("operation", "issue access token").
			With("user_id", user.ID).
			Wrap(err)
	}

	value, hash, err := s.issuer.IssueRefreshToken()
	if err != nil {
		return nil, oops.Code("AUTH_TOKEN_ISSUE_FAILED").
			With("operation", "issue refresh token").
			With("user_id", user.ID).
			Wrap(err)
	}

	record, err := NewRefreshToken(user.ID, hash, now.Add(s.refreshTTL))
	if err != nil {
		return nil, oops.Code("AUTH_TOKEN_ISSUE_FAILED").
			With("operation", "build refresh token").
			With("user_id", user.ID).
			Wrap(err)
	}
	if err := s.tokens.Create(ctx, record); err != nil {
		return nil, storeUnavailable("persist refresh token", err)
	}

	return &TokenPair{
		AccessToken:  access.Token,
		RefreshToken: value,
		ExpiresAt:    access.ExpiresAt,
		User:         user.Profile(),
	}, nil
}

func (s *Service) replayDetected(ctx context.Context, token *RefreshToken) {
	s.recorder.RecordReplay()
	s.logger.WarnContext(ctx, "refresh token replay detected",
		"user_id", token.UserID,
		"token_id", token.ID,
	)
}

func (s *Service) record(ctx context.Context, op string, err error) {
	switch {
	case err == nil:
		s.recorder.RecordOperation(op, OutcomeSuccess)
	case KindOf(err) == KindInternal:
		errutil.LogErrorContext(ctx, s.logger, op+" failed", err, "auth_code", CodeOf(err))
		s.recorder.RecordOperation(op, OutcomeError)
	default:
		s.recorder.RecordOperation(op, OutcomeFailure)
	}
}
