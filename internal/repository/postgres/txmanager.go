package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mvaz/chathub/internal/repository"
)

// TxManager runs each unit of work inside one pgx transaction. The
// repositories handed to the unit are bound to that transaction, so all
// reads share a snapshot and all writes commit or roll back together.
type TxManager struct {
	db *DB
}

var _ repository.TransactionManager = (*TxManager)(nil)

// NewTxManager constructs a transaction manager over the pool.
func NewTxManager(db *DB) *TxManager { return &TxManager{db: db} }

// Run begins a transaction, binds a fresh repository set to it and commits
// when fn returns nil. Any error rolls the transaction back and is returned
// unchanged so domain tags survive.
func (m *TxManager) Run(ctx context.Context, fn func(ctx context.Context, r *repository.Repos) error) error {
	tx, err := m.db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	repos := NewRepos(tx)
	if err := fn(ctx, repos); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// NewRepos binds a repository set to the given querier. Exposed for
// repository tests that drive a mock pool directly.
func NewRepos(q Querier) *repository.Repos {
	return &repository.Repos{
		Users:        &UserRepo{q: q},
		Channels:     &ChannelRepo{q: q},
		Participants: &ParticipantRepo{q: q},
		Invitations:  &InvitationRepo{q: q},
		Messages:     &MessageRepo{q: q},
	}
}
