// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

//go:build integration

package auth_test

import (
	"context"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/holomush/holoauth/internal/auth"
	"github.com/holomush/holoauth/pkg/errutil"
)

var _ = Describe("Refresh token rotation", func() {
	var (
		ctx   context.Context
		svc   *auth.Service
		alice *auth.Profile
	)

	BeforeEach(func() {
		ctx = context.Background()
		truncate(ctx)
		svc = newService()

		var err error
		alice, err = svc.Register(ctx, auth.RegisterInput{
			Username: "alice",
			Email:    "alice@example.com",
			Password: "correct horse",
		})
		Expect(err).NotTo(HaveOccurred())
	})

	It("rotates a refresh token exactly once", func() {
		pair, err := svc.Login(ctx, "alice", "correct horse")
		Expect(err).NotTo(HaveOccurred())

		rotated, err := svc.Refresh(ctx, pair.RefreshToken)
		Expect(err).NotTo(HaveOccurred())
		Expect(rotated.RefreshToken).NotTo(Equal(pair.RefreshToken))
		Expect(rotated.User.ID).To(Equal(alice.ID))

		_, err = svc.Refresh(ctx, pair.RefreshToken)
		Expect(errutil.Code(err)).To(Equal(auth.CodeInvalidCredentials))

		_, err = svc.Refresh(ctx, rotated.RefreshToken)
		Expect(err).NotTo(HaveOccurred())
	})

	It("stores only the hash of a refresh token", func() {
		pair, err := svc.Login(ctx, "alice", "correct horse")
		Expect(err).NotTo(HaveOccurred())

		var matches int
		err = env.pool.QueryRow(ctx,
			"SELECT COUNT(*) FROM refresh_tokens WHERE token_hash = $1", pair.RefreshToken).Scan(&matches)
		Expect(err).NotTo(HaveOccurred())
		Expect(matches).To(BeZero())

		err = env.pool.QueryRow(ctx,
			"SELECT COUNT(*) FROM refresh_tokens WHERE token_hash = $1",
			auth.HashRefreshToken(pair.RefreshToken)).Scan(&matches)
		Expect(err).NotTo(HaveOccurred())
		Expect(matches).To(Equal(1))
	})

	It("lets exactly one concurrent refresh win", func() {
		pair, err := svc.Login(ctx, "alice", "correct horse")
		Expect(err).NotTo(HaveOccurred())

		const callers = 10
		var (
			wg    sync.WaitGroup
			start = make(chan struct{})
			errs  = make([]error, callers)
		)
		for i := range callers {
			wg.Add(1)
			go func() {
				defer GinkgoRecover()
				defer wg.Done()
				<-start
				_, errs[i] = svc.Refresh(ctx, pair.RefreshToken)
			}()
		}
		close(start)
		wg.Wait()

		winners := 0
		for _, err := range errs {
			if err == nil {
				winners++
				continue
			}
			Expect(errutil.Code(err)).To(Equal(auth.CodeInvalidCredentials))
		}
		Expect(winners).To(Equal(1))

		sessions, err := svc.ActiveSessions(ctx, alice.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(sessions).To(Equal(1))
	})

	It("revokes every session on logout", func() {
		phone, err := svc.Login(ctx, "alice", "correct horse")
		Expect(err).NotTo(HaveOccurred())
		laptop, err := svc.Login(ctx, "alice", "correct horse")
		Expect(err).NotTo(HaveOccurred())

		Expect(svc.Logout(ctx, alice.ID)).To(Succeed())

		for _, value := range []string{phone.RefreshToken, laptop.RefreshToken} {
			_, err := svc.Refresh(ctx, value)
			Expect(errutil.Code(err)).To(Equal(auth.CodeInvalidCredentials))
		}
		Expect(svc.Logout(ctx, alice.ID)).To(Succeed())
	})

	It("rejects tokens of a deactivated user", func() {
		pair, err := svc.Login(ctx, "alice", "correct horse")
		Expect(err).NotTo(HaveOccurred())

		inactive := false
		_, err = svc.UpdateProfile(ctx, alice.ID, auth.ProfileUpdate{IsActive: &inactive})
		Expect(err).NotTo(HaveOccurred())

		_, err = svc.Refresh(ctx, pair.RefreshToken)
		Expect(errutil.Code(err)).To(Equal(auth.CodeInvalidCredentials))
	})

	It("revokes sessions on password change when configured", func() {
		svc = newService(auth.WithRevokeOnPasswordChange(true))
		pair, err := svc.Login(ctx, "alice", "correct horse")
		Expect(err).NotTo(HaveOccurred())

		Expect(svc.ChangePassword(ctx, alice.ID, "correct horse", "battery staple")).To(Succeed())

		_, err = svc.Refresh(ctx, pair.RefreshToken)
		Expect(errutil.Code(err)).To(Equal(auth.CodeInvalidCredentials))
		_, err = svc.Login(ctx, "alice", "battery staple")
		Expect(err).NotTo(HaveOccurred())
	})

	It("purges expired tokens", func() {
		now := time.Now()
		svc = newService(auth.WithClock(func() time.Time { return now }), auth.WithRefreshTTL(time.Minute))
		_, err := svc.Login(ctx, "alice", "correct horse")
		Expect(err).NotTo(HaveOccurred())

		now = now.Add(2 * time.Minute)
		n, err := svc.PurgeExpiredTokens(ctx, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(int64(1)))
	})
})

var _ = Describe("Account registration", func() {
	var (
		ctx context.Context
		svc *auth.Service
	)

	BeforeEach(func() {
		ctx = context.Background()
		truncate(ctx)
		svc = newService()
	})

	It("enforces case-insensitive uniqueness", func() {
		_, err := svc.Register(ctx, auth.RegisterInput{Username: "Alice", Email: "alice@example.com", Password: "pw"})
		Expect(err).NotTo(HaveOccurred())

		_, err = svc.Register(ctx, auth.RegisterInput{Username: "ALICE", Email: "other@example.com", Password: "pw"})
		Expect(errutil.Code(err)).To(Equal(auth.CodeDuplicate))

		_, err = svc.Register(ctx, auth.RegisterInput{Username: "bob", Email: "ALICE@EXAMPLE.COM", Password: "pw"})
		Expect(errutil.Code(err)).To(Equal(auth.CodeDuplicate))
	})

	It("logs in case-insensitively and records the login time", func() {
		created, err := svc.Register(ctx, auth.RegisterInput{Username: "Alice", Email: "alice@example.com", Password: "pw"})
		Expect(err).NotTo(HaveOccurred())
		Expect(created.LastLoginAt).To(BeNil())

		pair, err := svc.Login(ctx, "alice", "pw")
		Expect(err).NotTo(HaveOccurred())
		Expect(pair.User.LastLoginAt).NotTo(BeNil())

		claims, err := env.Issuer.VerifyAccessToken(pair.AccessToken)
		Expect(err).NotTo(HaveOccurred())
		id, err := claims.UserID()
		Expect(err).NotTo(HaveOccurred())
		Expect(id).To(Equal(created.ID))
	})
})
