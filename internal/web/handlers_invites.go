// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 IronLog Contributors

package web

import (
	"net/http"
	"time"

	"github.com/ironlog/ironlog/internal/access"
	"github.com/ironlog/ironlog/internal/auth"
	"github.com/ironlog/ironlog/internal/observability"
	"github.com/ironlog/ironlog/pkg/errutil"
)

type inviteView struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedBy string    `json:"createdBy"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (s *Server) handleCreateInvite(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	fields, err := formOrJSON(w, r, "email")
	if err != nil || fields["email"] == "" {
		writeError(w, http.StatusBadRequest, auth.MsgEmailRequired)
		return
	}

	caller := access.CallerFrom(ctx)
	issued, err := s.invites.Create(ctx, fields["email"], caller.ID)
	if err != nil {
		if errutil.HasCode(err, auth.CodeValidation) {
			writeError(w, http.StatusBadRequest, clientMessage(err, auth.MsgEmailRequired))
			return
		}
		s.metrics.RecordStorageError("create invite")
		errutil.LogErrorContext(ctx, s.logger, "create invite failed", err)
		writeError(w, http.StatusInternalServerError, "Failed to create invite")
		return
	}

	s.metrics.RecordInvite(observability.InviteCreated)
	writeJSON(w, http.StatusCreated, map[string]any{"invite": issued})
}

func (s *Server) handleListInvites(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	invites, err := s.invites.ListActive(ctx)
	if err != nil {
		s.metrics.RecordStorageError("list invites")
		errutil.LogErrorContext(ctx, s.logger, "list invites failed", err)
		writeError(w, http.StatusInternalServerError, "Failed to list invites")
		return
	}

	views := make([]inviteView, 0, len(invites))
	for _, inv := range invites {
		views = append(views, inviteView{
			ID:        inv.ID,
			Email:     inv.Email,
			CreatedBy: inv.CreatedBy,
			CreatedAt: inv.CreatedAt,
			ExpiresAt: inv.ExpiresAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"invites": views})
}

func (s *Server) handleRevokeInvite(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := s.invites.Revoke(ctx, r.PathValue("id")); err != nil {
		s.metrics.RecordStorageError("revoke invite")
		errutil.LogErrorContext(ctx, s.logger, "revoke invite failed", err)
		writeError(w, http.StatusInternalServerError, "Failed to revoke invite")
		return
	}
	s.metrics.RecordInvite(observability.InviteRevoked)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// handleCheckInvite never fails visibly; errors read as an invalid code.
func (s *Server) handleCheckInvite(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	fields, err := formOrJSON(w, r, "code")
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]bool{"isValid": false})
		return
	}
	ok, err := s.invites.Check(ctx, fields["code"])
	if err != nil {
		errutil.LogErrorContext(ctx, s.logger, "check invite failed", err)
	}
	writeJSON(w, http.StatusOK, map[string]bool{"isValid": ok && err == nil})
}

// handleRedeemInvite registers the invited user, sets the session cookie and
// redirects home.
func (s *Server) handleRedeemInvite(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	fields, err := formOrJSON(w, r, "code", "password", "confirmPassword")
	if err != nil {
		s.metrics.RecordInvite(observability.InviteRejected)
		writeError(w, http.StatusBadRequest, auth.MsgInvalidCode)
		return
	}

	res, err := s.auth.RedeemInvite(ctx, auth.RedeemRequest{
		Code:            fields["code"],
		Password:        fields["password"],
		ConfirmPassword: fields["confirmPassword"],
	})
	if err != nil {
		s.metrics.RecordInvite(observability.InviteRejected)
		if statusFor(err) != http.StatusBadRequest {
			s.metrics.RecordStorageError("redeem invite")
			errutil.LogErrorContext(ctx, s.logger, "redeem invite failed", err)
		}
		writeError(w, http.StatusBadRequest, clientMessage(err, auth.MsgInvalidOrExpired))
		return
	}

	s.metrics.RecordInvite(observability.InviteRedeemed)
	s.cookies.set(w, res.Token)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
