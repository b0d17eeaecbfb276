package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/mvaz/chathub/internal/errs"
	"github.com/mvaz/chathub/internal/model"
	"github.com/mvaz/chathub/internal/repository"
)

// MessageRepo implements MessageRepository using PostgreSQL.
type MessageRepo struct{ q Querier }

var _ repository.MessageRepository = (*MessageRepo)(nil)

// NewMessageRepo constructs a message repository over the querier.
func NewMessageRepo(q Querier) *MessageRepo { return &MessageRepo{q: q} }

// CreateMessage inserts a message row.
func (r *MessageRepo) CreateMessage(ctx context.Context, senderID, channelID int64, content string, at time.Time) (*model.Message, error) {
	const q = `
INSERT INTO messages (user_id, channel_id, content, created_at)
VALUES ($1, $2, $3, $4)
RETURNING id, (SELECT username FROM users WHERE id = $1)`
	var m model.Message
	if err := r.q.QueryRow(ctx, q, senderID, channelID, content, at).Scan(&m.ID, &m.Username); err != nil {
		return nil, err
	}
	m.UserID = senderID
	m.ChannelID = channelID
	m.Content = content
	m.Time = at
	return &m, nil
}

// FindByID selects a message by id.
func (r *MessageRepo) FindByID(ctx context.Context, id int64) (*model.Message, error) {
	const q = `
SELECT m.id, m.user_id, u.username, m.channel_id, m.content, m.created_at
FROM messages m
INNER JOIN users u ON u.id = m.user_id
WHERE m.id = $1`
	var m model.Message
	if err := r.q.QueryRow(ctx, q, id).Scan(&m.ID, &m.UserID, &m.Username, &m.ChannelID, &m.Content, &m.Time); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

// FindAllByChannel selects the channel's messages in chronological order.
func (r *MessageRepo) FindAllByChannel(ctx context.Context, channelID int64) ([]model.Message, error) {
	const q = `
SELECT m.id, m.user_id, u.username, m.channel_id, m.content, m.created_at
FROM messages m
INNER JOIN users u ON u.id = m.user_id
WHERE m.channel_id = $1
ORDER BY m.created_at, m.id`
	return r.list(ctx, q, channelID)
}

// FindLatestByChannel selects up to limit most recent messages, newest first.
func (r *MessageRepo) FindLatestByChannel(ctx context.Context, channelID int64, limit int) ([]model.Message, error) {
	const q = `
SELECT m.id, m.user_id, u.username, m.channel_id, m.content, m.created_at
FROM messages m
INNER JOIN users u ON u.id = m.user_id
WHERE m.channel_id = $1
ORDER BY m.created_at DESC, m.id DESC
LIMIT $2`
	return r.list(ctx, q, channelID, limit)
}

// FindAllByUserInChannel selects one user's messages in a channel.
func (r *MessageRepo) FindAllByUserInChannel(ctx context.Context, userID, channelID int64) ([]model.Message, error) {
	const q = `
SELECT m.id, m.user_id, u.username, m.channel_id, m.content, m.created_at
FROM messages m
INNER JOIN users u ON u.id = m.user_id
WHERE m.user_id = $1 AND m.channel_id = $2
ORDER BY m.created_at, m.id`
	return r.list(ctx, q, userID, channelID)
}

func (r *MessageRepo) list(ctx context.Context, q string, args ...any) ([]model.Message, error) {
	rows, err := r.q.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Message
	for rows.Next() {
		var m model.Message
		if err := rows.Scan(&m.ID, &m.UserID, &m.Username, &m.ChannelID, &m.Content, &m.Time); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// DeleteByID removes a message.
func (r *MessageRepo) DeleteByID(ctx context.Context, id int64) error {
	const q = `DELETE FROM messages WHERE id = $1`
	_, err := r.q.Exec(ctx, q, id)
	return err
}

// Clear removes all messages.
func (r *MessageRepo) Clear(ctx context.Context) error {
	_, err := r.q.Exec(ctx, `DELETE FROM messages`)
	return err
}
