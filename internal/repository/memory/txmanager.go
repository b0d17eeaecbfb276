package memory

import (
	"context"
	"sync"

	"github.com/mvaz/chathub/internal/repository"
)

// TxManager serializes units of work over the in-process store. Each Run
// sees a consistent snapshot because the store mutex is held for the whole
// unit of work; on error the pre-run state is restored, so partial writes
// never become visible.
type TxManager struct {
	mu sync.Mutex
	s  *state
}

var _ repository.TransactionManager = (*TxManager)(nil)

// NewTxManager creates a transaction manager over a fresh, empty store.
// Tests construct one per test instance; there is no shared global state.
func NewTxManager() *TxManager {
	return &TxManager{s: &state{}}
}

// Run executes fn inside one atomic unit of work.
func (m *TxManager) Run(ctx context.Context, fn func(ctx context.Context, r *repository.Repos) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.s.clone()
	repos := &repository.Repos{
		Users:        &userRepo{s: m.s},
		Channels:     &channelRepo{s: m.s},
		Participants: &participantRepo{s: m.s},
		Invitations:  &invitationRepo{s: m.s},
		Messages:     &messageRepo{s: m.s},
	}
	if err := fn(ctx, repos); err != nil {
		*m.s = *snapshot
		return err
	}
	return nil
}
