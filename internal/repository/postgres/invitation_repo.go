package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/mvaz/chathub/internal/errs"
	"github.com/mvaz/chathub/internal/model"
	"github.com/mvaz/chathub/internal/repository"
)

// InvitationRepo implements InvitationRepository using PostgreSQL.
type InvitationRepo struct{ q Querier }

var _ repository.InvitationRepository = (*InvitationRepo)(nil)

// NewInvitationRepo constructs an invitation repository over the querier.
func NewInvitationRepo(q Querier) *InvitationRepo { return &InvitationRepo{q: q} }

// CreateInvitation inserts the invitation. A zero InviteeID is stored as
// NULL: the invitation is open until redeemed.
func (r *InvitationRepo) CreateInvitation(ctx context.Context, inv model.Invitation) (*model.Invitation, error) {
	const q = `
INSERT INTO invitations (code, inviter_id, invitee_id, channel_id, used, permission)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id`
	var invitee *int64
	if inv.InviteeID != 0 {
		invitee = &inv.InviteeID
	}
	var id int64
	err := r.q.QueryRow(ctx, q, inv.Code, inv.InviterID, invitee, inv.ChannelID, inv.Used, string(inv.Permission)).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, errs.ErrAlreadyExists
		}
		return nil, err
	}
	inv.ID = id
	return &inv, nil
}

// FindByID selects an invitation by id.
func (r *InvitationRepo) FindByID(ctx context.Context, id int64) (*model.Invitation, error) {
	const q = `
SELECT id, code, inviter_id, invitee_id, channel_id, used, permission
FROM invitations WHERE id = $1`
	return r.scanOne(r.q.QueryRow(ctx, q, id))
}

// FindByCode selects an invitation by its opaque code.
func (r *InvitationRepo) FindByCode(ctx context.Context, code string) (*model.Invitation, error) {
	const q = `
SELECT id, code, inviter_id, invitee_id, channel_id, used, permission
FROM invitations WHERE code = $1`
	return r.scanOne(r.q.QueryRow(ctx, q, code))
}

func (r *InvitationRepo) scanOne(row pgx.Row) (*model.Invitation, error) {
	var inv model.Invitation
	var invitee *int64
	var perm string
	if err := row.Scan(&inv.ID, &inv.Code, &inv.InviterID, &invitee, &inv.ChannelID, &inv.Used, &perm); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	if invitee != nil {
		inv.InviteeID = *invitee
	}
	inv.Permission = model.Permission(perm)
	return &inv, nil
}

// FindAll selects every invitation.
func (r *InvitationRepo) FindAll(ctx context.Context) ([]model.Invitation, error) {
	const q = `
SELECT id, code, inviter_id, invitee_id, channel_id, used, permission
FROM invitations ORDER BY id`
	return r.list(ctx, q)
}

// FindAllByUser selects invitations where the user is inviter or invitee.
func (r *InvitationRepo) FindAllByUser(ctx context.Context, userID int64) ([]model.Invitation, error) {
	const q = `
SELECT id, code, inviter_id, invitee_id, channel_id, used, permission
FROM invitations
WHERE inviter_id = $1 OR invitee_id = $1
ORDER BY id`
	return r.list(ctx, q, userID)
}

func (r *InvitationRepo) list(ctx context.Context, q string, args ...any) ([]model.Invitation, error) {
	rows, err := r.q.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Invitation
	for rows.Next() {
		var inv model.Invitation
		var invitee *int64
		var perm string
		if err := rows.Scan(&inv.ID, &inv.Code, &inv.InviterID, &invitee, &inv.ChannelID, &inv.Used, &perm); err != nil {
			return nil, err
		}
		if invitee != nil {
			inv.InviteeID = *invitee
		}
		inv.Permission = model.Permission(perm)
		out = append(out, inv)
	}
	return out, rows.Err()
}

// MarkUsed flips the used flag and binds the invitee, only when the
// invitation is still pending. Reports whether a row changed. A zero
// inviteeID stays NULL: the invitation remains unbound to a user.
func (r *InvitationRepo) MarkUsed(ctx context.Context, id, inviteeID int64) (bool, error) {
	const q = `
UPDATE invitations SET used = TRUE, invitee_id = $2
WHERE id = $1 AND used = FALSE`
	var invitee *int64
	if inviteeID != 0 {
		invitee = &inviteeID
	}
	tag, err := r.q.Exec(ctx, q, id, invitee)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// DeleteByID removes an invitation.
func (r *InvitationRepo) DeleteByID(ctx context.Context, id int64) error {
	const q = `DELETE FROM invitations WHERE id = $1`
	_, err := r.q.Exec(ctx, q, id)
	return err
}

// Clear removes all invitations.
func (r *InvitationRepo) Clear(ctx context.Context) error {
	_, err := r.q.Exec(ctx, `DELETE FROM invitations`)
	return err
}
