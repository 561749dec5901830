// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 IronLog Contributors

//go:build integration

package postgres_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/ironlog/ironlog/internal/auth"
	"github.com/ironlog/ironlog/internal/auth/postgres"
)

var _ = Describe("auth repositories", func() {
	var (
		users    *postgres.UserRepository
		sessions *postgres.SessionRepository
		invites  *postgres.InviteRepository
		admin    *auth.User
		now      time.Time
	)

	BeforeEach(func() {
		truncate()
		users = postgres.NewUserRepository(pool)
		sessions = postgres.NewSessionRepository(pool)
		invites = postgres.NewInviteRepository(pool)
		now = time.Now().UTC().Truncate(time.Microsecond)

		var err error
		admin, err = auth.NewUser("admin@example.com", "pbkdf2$sha256$1000$c2FsdA$a2V5", auth.RoleAdmin)
		Expect(err).NotTo(HaveOccurred())
		Expect(users.Create(suiteCtx, admin)).To(Succeed())
	})

	Describe("UserRepository", func() {
		It("looks users up by email", func() {
			got, err := users.GetByEmail(suiteCtx, "admin@example.com")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.ID).To(Equal(admin.ID))
			Expect(got.Role).To(Equal(auth.RoleAdmin))
			Expect(got.PasswordHash).To(Equal(admin.PasswordHash))
		})

		It("returns ErrNotFound for unknown emails", func() {
			_, err := users.GetByEmail(suiteCtx, "nobody@example.com")
			Expect(err).To(MatchError(auth.ErrNotFound))
		})

		It("rejects duplicate emails", func() {
			dup, err := auth.NewUser("admin@example.com", "", auth.RoleUser)
			Expect(err).NotTo(HaveOccurred())
			Expect(users.Create(suiteCtx, dup)).To(MatchError(auth.ErrEmailTaken))
		})

		It("stores users without a password as NULL", func() {
			u, err := auth.NewUser("nopass@example.com", "", auth.RoleUser)
			Expect(err).NotTo(HaveOccurred())
			Expect(users.Create(suiteCtx, u)).To(Succeed())

			got, err := users.GetByEmail(suiteCtx, "nopass@example.com")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.PasswordHash).To(BeEmpty())
		})

		It("counts and updates", func() {
			n, err := users.Count(suiteCtx)
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(1))

			Expect(users.UpdatePasswordHash(suiteCtx, admin.ID, "new-hash")).To(Succeed())
			got, err := users.GetByEmail(suiteCtx, admin.Email)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.PasswordHash).To(Equal("new-hash"))

			Expect(users.UpdatePasswordHash(suiteCtx, "missing", "x")).To(MatchError(auth.ErrNotFound))
		})
	})

	Describe("SessionRepository", func() {
		It("joins the owning user", func() {
			s, err := auth.NewSession(admin.ID, "hash-1", now.Add(time.Hour))
			Expect(err).NotTo(HaveOccurred())
			Expect(sessions.Create(suiteCtx, s)).To(Succeed())

			rec, err := sessions.GetWithUser(suiteCtx, "hash-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(rec.ID).To(Equal(s.ID))
			Expect(rec.User.Email).To(Equal(admin.Email))
			Expect(rec.User.Role).To(Equal(auth.RoleAdmin))
			Expect(rec.ExpiresAt).To(BeTemporally("==", s.ExpiresAt))
		})

		It("deletes by token hash and ignores unknown hashes", func() {
			s, err := auth.NewSession(admin.ID, "hash-2", now.Add(time.Hour))
			Expect(err).NotTo(HaveOccurred())
			Expect(sessions.Create(suiteCtx, s)).To(Succeed())

			Expect(sessions.DeleteByTokenHash(suiteCtx, "hash-2")).To(Succeed())
			Expect(sessions.DeleteByTokenHash(suiteCtx, "hash-2")).To(Succeed())

			_, err = sessions.GetWithUser(suiteCtx, "hash-2")
			Expect(err).To(MatchError(auth.ErrNotFound))
		})

		It("sweeps sessions expiring at or before now", func() {
			for i, exp := range []time.Time{now.Add(-time.Minute), now, now.Add(time.Minute)} {
				s, err := auth.NewSession(admin.ID, "sweep-"+string(rune('a'+i)), exp)
				Expect(err).NotTo(HaveOccurred())
				Expect(sessions.Create(suiteCtx, s)).To(Succeed())
			}

			n, err := sessions.DeleteExpired(suiteCtx, now)
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(int64(2)))

			_, err = sessions.GetWithUser(suiteCtx, "sweep-c")
			Expect(err).NotTo(HaveOccurred())
		})
	})

	Describe("InviteRepository", func() {
		var invite *auth.Invite

		BeforeEach(func() {
			invite = &auth.Invite{
				ID:        "inv-1",
				Email:     "new@example.com",
				CodeHash:  "code-hash-1",
				CreatedBy: admin.ID,
				CreatedAt: now,
				ExpiresAt: now.Add(auth.InviteTTL),
			}
			Expect(invites.Create(suiteCtx, invite)).To(Succeed())
		})

		It("finds pending invites by code hash", func() {
			got, err := invites.GetPendingByCodeHash(suiteCtx, "code-hash-1", now)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Email).To(Equal("new@example.com"))
			Expect(got.UsedAt).To(BeNil())

			_, err = invites.GetPendingByCodeHash(suiteCtx, "code-hash-1", invite.ExpiresAt)
			Expect(err).To(MatchError(auth.ErrNotFound))
		})

		It("lists only pending invites", func() {
			expired := &auth.Invite{
				ID: "inv-2", Email: "old@example.com", CodeHash: "code-hash-2",
				CreatedBy: admin.ID, CreatedAt: now.Add(-8 * 24 * time.Hour), ExpiresAt: now.Add(-time.Hour),
			}
			Expect(invites.Create(suiteCtx, expired)).To(Succeed())

			list, err := invites.ListPending(suiteCtx, now)
			Expect(err).NotTo(HaveOccurred())
			Expect(list).To(HaveLen(1))
			Expect(list[0].ID).To(Equal("inv-1"))
		})

		It("marks an invite used only once", func() {
			Expect(invites.MarkUsed(suiteCtx, "inv-1", now)).To(Succeed())
			Expect(invites.MarkUsed(suiteCtx, "inv-1", now)).To(MatchError(auth.ErrNotFound))
		})

		It("redeems atomically", func() {
			user, err := auth.NewUser("new@example.com", "hash", auth.RoleUser)
			Expect(err).NotTo(HaveOccurred())
			Expect(invites.RedeemInvite(suiteCtx, invite, user, now)).To(Succeed())

			got, err := users.GetByEmail(suiteCtx, "new@example.com")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Role).To(Equal(auth.RoleUser))

			_, err = invites.GetPendingByCodeHash(suiteCtx, "code-hash-1", now)
			Expect(err).To(MatchError(auth.ErrNotFound))
		})

		It("rolls back the invite when the email is taken", func() {
			taken := &auth.Invite{
				ID: "inv-3", Email: "admin@example.com", CodeHash: "code-hash-3",
				CreatedBy: admin.ID, CreatedAt: now, ExpiresAt: now.Add(time.Hour),
			}
			Expect(invites.Create(suiteCtx, taken)).To(Succeed())

			dup, err := auth.NewUser("admin@example.com", "hash", auth.RoleUser)
			Expect(err).NotTo(HaveOccurred())
			Expect(invites.RedeemInvite(suiteCtx, taken, dup, now)).To(MatchError(auth.ErrEmailTaken))

			got, err := invites.GetPendingByCodeHash(suiteCtx, "code-hash-3", now)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.UsedAt).To(BeNil())
		})

		It("deletes invites", func() {
			Expect(invites.Delete(suiteCtx, "inv-1")).To(Succeed())
			list, err := invites.ListPending(suiteCtx, now)
			Expect(err).NotTo(HaveOccurred())
			Expect(list).To(BeEmpty())
		})
	})
})
