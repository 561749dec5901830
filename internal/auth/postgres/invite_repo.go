// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 IronLog Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/samber/oops"

	"github.com/ironlog/ironlog/internal/auth"
)

const inviteColumns = `id, email, code_hash, created_by_user_id, created_at, expires_at, used_at`

// InviteRepository implements auth.InviteRepository and auth.InviteRedeemer
// using PostgreSQL.
type InviteRepository struct {
	db DBTX
}

// NewInviteRepository creates a new InviteRepository.
func NewInviteRepository(db DBTX) *InviteRepository {
	return &InviteRepository{db: db}
}

// Create stores a new invite.
func (r *InviteRepository) Create(ctx context.Context, invite *auth.Invite) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO invites (id, email, code_hash, created_by_user_id, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, invite.ID, invite.Email, invite.CodeHash, invite.CreatedBy, invite.CreatedAt, invite.ExpiresAt)
	if err != nil {
		return oops.With("operation", "insert invite").With("invite_id", invite.ID).Wrap(err)
	}
	return nil
}

// ListPending returns unused invites expiring after now, newest first.
func (r *InviteRepository) ListPending(ctx context.Context, now time.Time) ([]*auth.Invite, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+inviteColumns+`
		FROM invites
		WHERE used_at IS NULL AND expires_at > $1
		ORDER BY created_at DESC
	`, now)
	if err != nil {
		return nil, oops.With("operation", "list pending invites").Wrap(err)
	}
	defer rows.Close()

	var invites []*auth.Invite
	for rows.Next() {
		inv, err := scanInvite(rows)
		if err != nil {
			return nil, oops.With("operation", "scan invite row").Wrap(err)
		}
		invites = append(invites, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.With("operation", "iterate invites").Wrap(err)
	}
	return invites, nil
}

// Delete removes an invite if present.
func (r *InviteRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM invites WHERE id = $1`, id); err != nil {
		return oops.With("operation", "delete invite").With("invite_id", id).Wrap(err)
	}
	return nil
}

// GetPendingByCodeHash returns the pending invite with the code hash.
func (r *InviteRepository) GetPendingByCodeHash(ctx context.Context, codeHash string, now time.Time) (*auth.Invite, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+inviteColumns+`
		FROM invites
		WHERE code_hash = $1 AND used_at IS NULL AND expires_at > $2
	`, codeHash, now)

	inv, err := scanInvite(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, auth.ErrNotFound
	}
	if err != nil {
		return nil, oops.With("operation", "get pending invite").Wrap(err)
	}
	return inv, nil
}

// MarkUsed sets used_at if it is still null.
func (r *InviteRepository) MarkUsed(ctx context.Context, id string, usedAt time.Time) error {
	return markInviteUsed(ctx, r.db, id, usedAt)
}

// RedeemInvite inserts the user and consumes the invite in one transaction.
func (r *InviteRepository) RedeemInvite(ctx context.Context, invite *auth.Invite, user *auth.User, usedAt time.Time) error {
	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		if err := markInviteUsed(ctx, tx, invite.ID, usedAt); err != nil {
			return err
		}
		return insertUser(ctx, tx, user)
	})
}

func markInviteUsed(ctx context.Context, db execer, id string, usedAt time.Time) error {
	tag, err := db.Exec(ctx, `UPDATE invites SET used_at = $2 WHERE id = $1 AND used_at IS NULL`, id, usedAt)
	if err != nil {
		return oops.With("operation", "mark invite used").With("invite_id", id).Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return auth.ErrNotFound
	}
	return nil
}

func scanInvite(row pgx.Row) (*auth.Invite, error) {
	var inv auth.Invite
	if err := row.Scan(&inv.ID, &inv.Email, &inv.CodeHash, &inv.CreatedBy, &inv.CreatedAt, &inv.ExpiresAt, &inv.UsedAt); err != nil {
		return nil, err
	}
	return &inv, nil
}

var (
	_ auth.UserRepository    = (*UserRepository)(nil)
	_ auth.SessionRepository = (*SessionRepository)(nil)
	_ auth.InviteRepository  = (*InviteRepository)(nil)
	_ auth.InviteRedeemer    = (*InviteRepository)(nil)
)
