// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package auth provides account authentication and refresh token rotation.
//
// # Domain Types
//
// Domain types should be created using their constructors:
//   - NewUser - creates an active User with a username, email and password hash
//   - NewRefreshToken - creates a RefreshToken record for a user and expiry
//
// Repository implementations assign IDs and creation times.
//
// # Credentials
//
// Access tokens are HS256 JWTs minted by a TokenIssuer and verified with
// zero clock skew. Refresh tokens are opaque random values; only their
// SHA-256 hash is stored. A refresh token is redeemable once: Service.Refresh
// marks it used through a conditional repository update before issuing the
// replacement pair, so concurrent redemptions of one value yield exactly one
// success.
//
// # Errors
//
// Service failures carry an oops code. KindOf maps the code to a Kind, which
// boundaries translate to a status and a generic public message.
package auth
