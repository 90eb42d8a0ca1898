// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package httpapi exposes the authentication service over JSON/HTTP.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/holomush/holoauth/internal/auth"
)

// AuthService is the subset of *auth.Service the API calls.
type AuthService interface {
	Register(ctx context.Context, in auth.RegisterInput) (*auth.Profile, error)
	Login(ctx context.Context, username, password string) (*auth.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*auth.TokenPair, error)
	Logout(ctx context.Context, userID int64) error
	ChangePassword(ctx context.Context, userID int64, current, next string) error
	GetUser(ctx context.Context, id int64) (*auth.Profile, error)
}

// AccessVerifier validates bearer access tokens.
type AccessVerifier interface {
	VerifyAccessToken(token string) (*auth.AccessClaims, error)
}

// RequestRecorder counts served requests.
type RequestRecorder interface {
	RecordRequest(route, status string)
}

// Handler serves the authentication API.
type Handler struct {
	svc      AuthService
	verifier AccessVerifier
	logger   *slog.Logger
	requests RequestRecorder
	debug    bool
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithRequestRecorder sets where request counts are reported.
func WithRequestRecorder(r RequestRecorder) Option {
	return func(h *Handler) { h.requests = r }
}

// WithDebug includes error details and stack traces in error responses.
func WithDebug(debug bool) Option {
	return func(h *Handler) { h.debug = debug }
}

// New creates a Handler.
func New(svc AuthService, verifier AccessVerifier, opts ...Option) *Handler {
	h := &Handler{svc: svc, verifier: verifier, logger: slog.Default()}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Routes returns the API routes.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	h.handle(mux, "POST /api/auth/register", h.register)
	h.handle(mux, "POST /api/auth/login", h.login)
	h.handle(mux, "POST /api/auth/refresh", h.refresh)
	h.handle(mux, "POST /api/auth/logout", h.authenticated(h.logout))
	h.handle(mux, "PUT /api/auth/password", h.authenticated(h.changePassword))
	h.handle(mux, "GET /api/users/me", h.authenticated(h.me))
	return mux
}

func (h *Handler) handle(mux *http.ServeMux, pattern string, fn http.HandlerFunc) {
	mux.Handle(pattern, h.instrument(pattern, fn))
}
