// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/holomush/holoauth/internal/auth"
	"github.com/holomush/holoauth/internal/auth/memory"
	"github.com/holomush/holoauth/pkg/errutil"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type harness struct {
	store  *memory.Store
	issuer *auth.JWTIssuer
	clock  *clock
	svc    *auth.Service
}

func newHarness(t *testing.T, opts ...auth.Option) *harness {
	t.Helper()
	h := &harness{
		store:  memory.NewStore(),
		issuer: newTestIssuer(t),
		clock:  &clock{now: time.Now().UTC().Truncate(time.Second)},
	}
	hasher := auth.NewArgon2idHasherWithParams(auth.Argon2Params{Time: 1, Memory: 8 * 1024, Threads: 1})
	opts = append([]auth.Option{auth.WithClock(h.clock.Now)}, opts...)
	svc, err := auth.NewService(h.store.Users(), h.store.Tokens(), hasher, h.issuer, opts...)
	require.NoError(t, err)
	h.svc = svc
	return h
}

func (h *harness) register(t *testing.T, username, email, password string) *auth.Profile {
	t.Helper()
	p, err := h.svc.Register(context.Background(), auth.RegisterInput{Username: username, Email: email, Password: password})
	require.NoError(t, err)
	return p
}

func TestRotation_AliceScenario(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	alice := h.register(t, "alice", "alice@example.com", "correct horse")

	pair, err := h.svc.Login(ctx, "alice", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, pair.User.ID)

	claims, err := h.issuer.VerifyAccessToken(pair.AccessToken)
	require.NoError(t, err)
	id, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, alice.ID, id)

	rotated, err := h.svc.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, pair.RefreshToken, rotated.RefreshToken)

	_, err = h.svc.Refresh(ctx, pair.RefreshToken)
	errutil.AssertErrorCode(t, err, auth.CodeInvalidCredentials)

	again, err := h.svc.Refresh(ctx, rotated.RefreshToken)
	require.NoError(t, err)

	require.NoError(t, h.svc.Logout(ctx, alice.ID))
	_, err = h.svc.Refresh(ctx, again.RefreshToken)
	errutil.AssertErrorCode(t, err, auth.CodeInvalidCredentials)

	require.NoError(t, h.svc.Logout(ctx, alice.ID), "logout is idempotent")
}

func TestRotation_ConcurrentRefreshHasOneWinner(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx := context.Background()
	h := newHarness(t)
	alice := h.register(t, "alice", "alice@example.com", "pw")
	pair, err := h.svc.Login(ctx, "alice", "pw")
	require.NoError(t, err)

	before, err := h.store.Tokens().ListValidForUser(ctx, alice.ID, h.clock.Now())
	require.NoError(t, err)
	require.Len(t, before, 1)

	const callers = 16
	var (
		wg      sync.WaitGroup
		start   = make(chan struct{})
		results = make([]*auth.TokenPair, callers)
		errs    = make([]error, callers)
	)
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			results[i], errs[i] = h.svc.Refresh(ctx, pair.RefreshToken)
		}()
	}
	close(start)
	wg.Wait()

	var winners int
	for i := range callers {
		if errs[i] == nil {
			winners++
			require.NotNil(t, results[i])
			continue
		}
		errutil.AssertErrorCode(t, errs[i], auth.CodeInvalidCredentials)
	}
	assert.Equal(t, 1, winners)

	after, err := h.store.Tokens().ListValidForUser(ctx, alice.ID, h.clock.Now())
	require.NoError(t, err)
	assert.Len(t, after, 1, "exactly one replacement token")
	assert.NotEqual(t, before[0].ID, after[0].ID)
}

func TestRotation_ExpiryBoundary(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, auth.WithRefreshTTL(time.Hour))
	h.register(t, "alice", "alice@example.com", "pw")

	pair, err := h.svc.Login(ctx, "alice", "pw")
	require.NoError(t, err)

	h.clock.Advance(time.Hour)
	_, err = h.svc.Refresh(ctx, pair.RefreshToken)
	errutil.AssertErrorCode(t, err, auth.CodeInvalidCredentials)
}

func TestRotation_LogoutIsolatesUsers(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	alice := h.register(t, "alice", "alice@example.com", "pw")
	h.register(t, "bob", "bob@example.com", "pw")

	alicePair, err := h.svc.Login(ctx, "alice", "pw")
	require.NoError(t, err)
	bobPair, err := h.svc.Login(ctx, "bob", "pw")
	require.NoError(t, err)

	require.NoError(t, h.svc.Logout(ctx, alice.ID))

	_, err = h.svc.Refresh(ctx, alicePair.RefreshToken)
	errutil.AssertErrorCode(t, err, auth.CodeInvalidCredentials)
	_, err = h.svc.Refresh(ctx, bobPair.RefreshToken)
	assert.NoError(t, err)
}

func TestRotation_MultipleDevices(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	alice := h.register(t, "alice", "alice@example.com", "pw")

	phone, err := h.svc.Login(ctx, "alice", "pw")
	require.NoError(t, err)
	laptop, err := h.svc.Login(ctx, "alice", "pw")
	require.NoError(t, err)

	n, err := h.svc.ActiveSessions(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = h.svc.Refresh(ctx, phone.RefreshToken)
	require.NoError(t, err)
	_, err = h.svc.Refresh(ctx, laptop.RefreshToken)
	require.NoError(t, err)
}

func TestRegister_CaseInsensitiveDuplicates(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.register(t, "alice", "alice@example.com", "pw")

	_, err := h.svc.Register(ctx, auth.RegisterInput{Username: "ALICE", Email: "other@example.com", Password: "pw"})
	errutil.AssertErrorCode(t, err, auth.CodeDuplicate)

	_, err = h.svc.Register(ctx, auth.RegisterInput{Username: "alice2", Email: "Alice@Example.COM", Password: "pw"})
	errutil.AssertErrorCode(t, err, auth.CodeDuplicate)
}

func TestLogin_FailuresAreIndistinguishable(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	p := h.register(t, "alice", "alice@example.com", "pw")
	h.register(t, "carol", "carol@example.com", "pw")
	inactive := false
	_, err := h.svc.UpdateProfile(ctx, p.ID+1, auth.ProfileUpdate{IsActive: &inactive})
	require.NoError(t, err)

	var messages []string
	for _, attempt := range [][2]string{{"nobody", "pw"}, {"alice", "wrong"}, {"carol", "pw"}} {
		_, err := h.svc.Login(ctx, attempt[0], attempt[1])
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, auth.CodeInvalidCredentials)
		messages = append(messages, err.Error())
	}
	assert.Equal(t, messages[0], messages[1])
	assert.Equal(t, messages[1], messages[2])
}

func TestChangePassword_WithRevocation(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, auth.WithRevokeOnPasswordChange(true))
	alice := h.register(t, "alice", "alice@example.com", "old")
	pair, err := h.svc.Login(ctx, "alice", "old")
	require.NoError(t, err)

	require.NoError(t, h.svc.ChangePassword(ctx, alice.ID, "old", "new"))

	_, err = h.svc.Refresh(ctx, pair.RefreshToken)
	errutil.AssertErrorCode(t, err, auth.CodeInvalidCredentials)
	_, err = h.svc.Login(ctx, "alice", "old")
	errutil.AssertErrorCode(t, err, auth.CodeInvalidCredentials)
	_, err = h.svc.Login(ctx, "alice", "new")
	assert.NoError(t, err)
}

// interceptingHasher runs onVerify once, inside the first Verify call.
type interceptingHasher struct {
	auth.PasswordHasher
	once     sync.Once
	onVerify func()
}

func (h *interceptingHasher) Verify(password, hash string) (bool, error) {
	h.once.Do(func() {
		if h.onVerify != nil {
			h.onVerify()
		}
	})
	return h.PasswordHasher.Verify(password, hash)
}

func TestLogin_DoesNotOverwriteConcurrentUserChanges(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	alice := h.register(t, "alice", "alice@example.com", "secret1")

	hasher := &interceptingHasher{
		PasswordHasher: auth.NewArgon2idHasherWithParams(auth.Argon2Params{Time: 1, Memory: 8 * 1024, Threads: 1}),
	}
	svc, err := auth.NewService(h.store.Users(), h.store.Tokens(), hasher, h.issuer, auth.WithClock(h.clock.Now))
	require.NoError(t, err)

	// The password change and a rename commit after Login read the row
	// but before it records the login.
	hasher.onVerify = func() {
		require.NoError(t, h.svc.ChangePassword(ctx, alice.ID, "secret1", "newsecret"))
		first := "Alice"
		_, err := h.svc.UpdateProfile(ctx, alice.ID, auth.ProfileUpdate{FirstName: &first})
		require.NoError(t, err)
	}
	_, err = svc.Login(ctx, "alice", "secret1")
	require.NoError(t, err)

	_, err = h.svc.Login(ctx, "alice", "newsecret")
	require.NoError(t, err, "password change must survive the concurrent login")
	_, err = h.svc.Login(ctx, "alice", "secret1")
	errutil.AssertErrorCode(t, err, auth.CodeInvalidCredentials)

	profile, err := h.svc.GetUser(ctx, alice.ID)
	require.NoError(t, err)
	require.NotNil(t, profile.FirstName)
	assert.Equal(t, "Alice", *profile.FirstName)
	assert.NotNil(t, profile.LastLoginAt)
}

func TestRefresh_ReplayIsLogged(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))
	h := newHarness(t, auth.WithLogger(logger))
	alice := h.register(t, "alice", "alice@example.com", "pw")

	pair, err := h.svc.Login(ctx, "alice", "pw")
	require.NoError(t, err)
	_, err = h.svc.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	require.Zero(t, buf.Len(), "successful rotation logs nothing at warn")

	_, err = h.svc.Refresh(ctx, pair.RefreshToken)
	require.Error(t, err)

	line := strings.TrimSpace(buf.String())
	require.NotEmpty(t, line)
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &entry))
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "refresh token replay detected", entry["msg"])
	assert.InDelta(t, float64(alice.ID), entry["user_id"], 0)
	assert.NotContains(t, line, pair.RefreshToken, "token values are never logged")
}

func TestPurgeExpiredTokens(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, auth.WithRefreshTTL(time.Hour))
	alice := h.register(t, "alice", "alice@example.com", "pw")
	_, err := h.svc.Login(ctx, "alice", "pw")
	require.NoError(t, err)

	h.clock.Advance(2 * time.Hour)
	n, err := h.svc.PurgeExpiredTokens(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	sessions, err := h.svc.ActiveSessions(ctx, alice.ID)
	require.NoError(t, err)
	assert.Zero(t, sessions)
}
