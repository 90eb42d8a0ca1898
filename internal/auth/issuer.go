// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// DefaultAccessTokenTTL is the access token lifetime when none is configured.
const DefaultAccessTokenTTL = 15 * time.Minute

// minSigningKeyLen is the shortest HS256 key accepted.
const minSigningKeyLen = 32

// AccessToken is a signed access credential and its expiry.
type AccessToken struct {
	Token     string
	ID        string
	ExpiresAt time.Time
}

// TokenIssuer mints access and refresh credentials.
type TokenIssuer interface {
	// IssueAccessToken signs a short-lived access token for user.
	IssueAccessToken(user *User, now time.Time) (AccessToken, error)

	// IssueRefreshToken returns a new opaque refresh token value and its hash.
	IssueRefreshToken() (token, hash string, err error)
}

// AccessClaims are the claims carried by an access token.
type AccessClaims struct {
	jwt.RegisteredClaims
	Email      string `json:"email"`
	Username   string `json:"name"`
	GivenName  string `json:"given_name,omitempty"`
	FamilyName string `json:"family_name,omitempty"`
}

// UserID parses the subject claim.
func (c *AccessClaims) UserID() (int64, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || id <= 0 {
		return 0, oops.Code(CodeInvalidCredentials).With("subject", c.Subject).Errorf("invalid subject claim")
	}
	return id, nil
}

// IssuerConfig configures a JWTIssuer.
type IssuerConfig struct {
	SigningKey []byte
	Issuer     string
	Audience   string
	AccessTTL  time.Duration
}

// JWTIssuer implements TokenIssuer with HS256-signed JWTs.
type JWTIssuer struct {
	key       []byte
	issuer    string
	audience  string
	accessTTL time.Duration
	parser    *jwt.Parser
}

// NewJWTIssuer creates a JWTIssuer.
func NewJWTIssuer(cfg IssuerConfig) (*JWTIssuer, error) {
	if len(cfg.SigningKey) < minSigningKeyLen {
		return nil, oops.Code("AUTH_INVALID_SIGNING_KEY").
			With("min_length", minSigningKeyLen).
			Errorf("signing key must be at least %d bytes", minSigningKeyLen)
	}
	if cfg.Issuer == "" || cfg.Audience == "" {
		return nil, oops.Code("AUTH_INVALID_ISSUER_CONFIG").Errorf("issuer and audience are required")
	}
	ttl := cfg.AccessTTL
	if ttl <= 0 {
		ttl = DefaultAccessTokenTTL
	}

	key := make([]byte, len(cfg.SigningKey))
	copy(key, cfg.SigningKey)

	return &JWTIssuer{
		key:       key,
		issuer:    cfg.Issuer,
		audience:  cfg.Audience,
		accessTTL: ttl,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(cfg.Issuer),
			jwt.WithAudience(cfg.Audience),
			jwt.WithExpirationRequired(),
			jwt.WithIssuedAt(),
			jwt.WithLeeway(0),
		),
	}, nil
}

// AccessTTL returns the configured access token lifetime.
func (i *JWTIssuer) AccessTTL() time.Duration {
	return i.accessTTL
}

// IssueAccessToken signs an access token for user valid from now.
func (i *JWTIssuer) IssueAccessToken(user *User, now time.Time) (AccessToken, error) {
	if user == nil || user.ID <= 0 {
		return AccessToken{}, oops.Code("AUTH_TOKEN_ISSUE_FAILED").Errorf("user with a stored ID is required")
	}

	jti := ulid.Make().String()
	expiresAt := now.Add(i.accessTTL)
	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.issuer,
			Subject:   strconv.FormatInt(user.ID, 10),
			Audience:  jwt.ClaimStrings{i.audience},
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        jti,
		},
		Email:    user.Email,
		Username: user.Username,
	}
	if user.FirstName != nil {
		claims.GivenName = *user.FirstName
	}
	if user.LastName != nil {
		claims.FamilyName = *user.LastName
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.key)
	if err != nil {
		return AccessToken{}, oops.Code("AUTH_TOKEN_ISSUE_FAILED").
			With("operation", "sign access token").
			With("user_id", user.ID).
			Wrap(err)
	}

	// NumericDate has second precision; report what the token actually says.
	return AccessToken{Token: signed, ID: jti, ExpiresAt: claims.ExpiresAt.Time}, nil
}

// IssueRefreshToken returns a new opaque refresh token and its hash.
func (i *JWTIssuer) IssueRefreshToken() (token, hash string, err error) {
	return GenerateRefreshToken()
}

// VerifyAccessToken validates signature, algorithm, issuer, audience and
// expiry with zero clock skew, and returns the claims.
func (i *JWTIssuer) VerifyAccessToken(tokenString string) (*AccessClaims, error) {
	if tokenString == "" {
		return nil, oops.Code(CodeInvalidCredentials).Errorf("access token cannot be empty")
	}

	claims := &AccessClaims{}
	token, err := i.parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return i.key, nil
	})
	if err != nil {
		return nil, oops.Code(CodeInvalidCredentials).
			With("operation", "parse access token").
			Wrap(err)
	}
	if !token.Valid {
		return nil, oops.Code(CodeInvalidCredentials).Errorf("invalid access token")
	}
	return claims, nil
}
