package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/mvaz/chathub/internal/errs"
	"github.com/mvaz/chathub/internal/model"
	"github.com/mvaz/chathub/internal/repository"
)

// ChannelRepo implements ChannelRepository using PostgreSQL.
type ChannelRepo struct{ q Querier }

var _ repository.ChannelRepository = (*ChannelRepo)(nil)

// NewChannelRepo constructs a channel repository over the querier.
func NewChannelRepo(q Querier) *ChannelRepo { return &ChannelRepo{q: q} }

// CreateChannel inserts a channel row.
func (r *ChannelRepo) CreateChannel(ctx context.Context, name string, ownerID int64, kind model.ChannelKind) (*model.Channel, error) {
	const q = `
INSERT INTO channels (name, owner_id, kind)
VALUES ($1, $2, $3)
RETURNING id`
	var id int64
	if err := r.q.QueryRow(ctx, q, name, ownerID, string(kind)).Scan(&id); err != nil {
		return nil, err
	}
	return &model.Channel{ID: id, Name: name, OwnerID: ownerID, Kind: kind}, nil
}

// FindByID selects a channel by id.
func (r *ChannelRepo) FindByID(ctx context.Context, id int64) (*model.Channel, error) {
	const q = `SELECT id, name, owner_id, kind FROM channels WHERE id = $1`
	var ch model.Channel
	var kind string
	if err := r.q.QueryRow(ctx, q, id).Scan(&ch.ID, &ch.Name, &ch.OwnerID, &kind); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	ch.Kind = model.ChannelKind(kind)
	return &ch, nil
}

// FindAll selects every channel.
func (r *ChannelRepo) FindAll(ctx context.Context) ([]model.Channel, error) {
	const q = `SELECT id, name, owner_id, kind FROM channels ORDER BY id`
	return r.list(ctx, q)
}

// FindAllByUser selects channels the user participates in.
func (r *ChannelRepo) FindAllByUser(ctx context.Context, userID int64) ([]model.Channel, error) {
	const q = `
SELECT c.id, c.name, c.owner_id, c.kind
FROM channels c
INNER JOIN participants p ON p.channel_id = c.id
WHERE p.user_id = $1
ORDER BY c.id`
	return r.list(ctx, q, userID)
}

// FindAllByOwner selects channels owned by the user.
func (r *ChannelRepo) FindAllByOwner(ctx context.Context, ownerID int64) ([]model.Channel, error) {
	const q = `SELECT id, name, owner_id, kind FROM channels WHERE owner_id = $1 ORDER BY id`
	return r.list(ctx, q, ownerID)
}

// FindAllPublic selects publicly listed channels.
func (r *ChannelRepo) FindAllPublic(ctx context.Context) ([]model.Channel, error) {
	const q = `SELECT id, name, owner_id, kind FROM channels WHERE kind = 'PUBLIC' ORDER BY id`
	return r.list(ctx, q)
}

func (r *ChannelRepo) list(ctx context.Context, q string, args ...any) ([]model.Channel, error) {
	rows, err := r.q.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Channel
	for rows.Next() {
		var ch model.Channel
		var kind string
		if err := rows.Scan(&ch.ID, &ch.Name, &ch.OwnerID, &kind); err != nil {
			return nil, err
		}
		ch.Kind = model.ChannelKind(kind)
		out = append(out, ch)
	}
	return out, rows.Err()
}

// DeleteByID removes a channel; participants, invitations and messages
// cascade via FK.
func (r *ChannelRepo) DeleteByID(ctx context.Context, id int64) error {
	const q = `DELETE FROM channels WHERE id = $1`
	_, err := r.q.Exec(ctx, q, id)
	return err
}

// Clear removes all channels.
func (r *ChannelRepo) Clear(ctx context.Context) error {
	_, err := r.q.Exec(ctx, `DELETE FROM channels`)
	return err
}
