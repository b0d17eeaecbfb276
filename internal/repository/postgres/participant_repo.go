package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/mvaz/chathub/internal/errs"
	"github.com/mvaz/chathub/internal/model"
	"github.com/mvaz/chathub/internal/repository"
)

// ParticipantRepo implements ParticipantRepository using PostgreSQL.
type ParticipantRepo struct{ q Querier }

var _ repository.ParticipantRepository = (*ParticipantRepo)(nil)

// NewParticipantRepo constructs a participant repository over the querier.
func NewParticipantRepo(q Querier) *ParticipantRepo { return &ParticipantRepo{q: q} }

// CreateParticipant inserts a membership row. The (channel_id, user_id)
// unique index enforces the one-row-per-pair invariant.
func (r *ParticipantRepo) CreateParticipant(ctx context.Context, channelID, userID int64, permission model.Permission) (*model.Participant, error) {
	const q = `
INSERT INTO participants (channel_id, user_id, permission)
VALUES ($1, $2, $3)
RETURNING id, (SELECT username FROM users WHERE id = $2)`
	var p model.Participant
	if err := r.q.QueryRow(ctx, q, channelID, userID, string(permission)).Scan(&p.ID, &p.Username); err != nil {
		if isUniqueViolation(err) {
			return nil, errs.ErrAlreadyExists
		}
		return nil, err
	}
	p.ChannelID = channelID
	p.UserID = userID
	p.Permission = permission
	return &p, nil
}

// FindByUser selects the membership of userID in channelID.
func (r *ParticipantRepo) FindByUser(ctx context.Context, channelID, userID int64) (*model.Participant, error) {
	const q = `
SELECT p.id, p.channel_id, p.user_id, u.username, p.permission
FROM participants p
INNER JOIN users u ON u.id = p.user_id
WHERE p.channel_id = $1 AND p.user_id = $2`
	var p model.Participant
	var perm string
	err := r.q.QueryRow(ctx, q, channelID, userID).Scan(&p.ID, &p.ChannelID, &p.UserID, &p.Username, &perm)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	p.Permission = model.Permission(perm)
	return &p, nil
}

// FindAllByChannel selects memberships in creation order; the owner's row
// was created with the channel, so it comes first.
func (r *ParticipantRepo) FindAllByChannel(ctx context.Context, channelID int64) ([]model.Participant, error) {
	const q = `
SELECT p.id, p.channel_id, p.user_id, u.username, p.permission
FROM participants p
INNER JOIN users u ON u.id = p.user_id
WHERE p.channel_id = $1
ORDER BY p.id`
	rows, err := r.q.Query(ctx, q, channelID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Participant
	for rows.Next() {
		var p model.Participant
		var perm string
		if err := rows.Scan(&p.ID, &p.ChannelID, &p.UserID, &p.Username, &perm); err != nil {
			return nil, err
		}
		p.Permission = model.Permission(perm)
		out = append(out, p)
	}
	return out, rows.Err()
}

// DeleteParticipant removes a membership row.
func (r *ParticipantRepo) DeleteParticipant(ctx context.Context, channelID, userID int64) error {
	const q = `DELETE FROM participants WHERE channel_id = $1 AND user_id = $2`
	_, err := r.q.Exec(ctx, q, channelID, userID)
	return err
}

// UpdatePermission changes a member's access level.
func (r *ParticipantRepo) UpdatePermission(ctx context.Context, channelID, userID int64, permission model.Permission) error {
	const q = `UPDATE participants SET permission = $3 WHERE channel_id = $1 AND user_id = $2`
	tag, err := r.q.Exec(ctx, q, channelID, userID, string(permission))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// Clear removes all participants.
func (r *ParticipantRepo) Clear(ctx context.Context) error {
	_, err := r.q.Exec(ctx, `DELETE FROM participants`)
	return err
}
