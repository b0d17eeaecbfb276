package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mvaz/chathub/internal/domain"
	"github.com/mvaz/chathub/internal/limiter"
	"github.com/mvaz/chathub/internal/model"
	"github.com/mvaz/chathub/internal/repository/memory"
)

type fakeLimiter struct {
	allowOK  bool
	allowErr error

	failBlocked bool
	failErr     error

	allowCalls   int
	failureCalls int
	successCalls int
}

var _ limiter.Limiter = (*fakeLimiter)(nil)

func (l *fakeLimiter) Allow(context.Context, string, []byte) (bool, time.Duration, error) {
	l.allowCalls++
	return l.allowOK, 0, l.allowErr
}
func (l *fakeLimiter) Success(context.Context, string, []byte) error {
	l.successCalls++
	return nil
}
func (l *fakeLimiter) Failure(context.Context, string, []byte) (bool, time.Duration, error) {
	l.failureCalls++
	return l.failBlocked, 0, l.failErr
}

type fakePublisher struct {
	mu        sync.Mutex
	published []model.Message
}

var _ MessagePublisher = (*fakePublisher)(nil)

func (p *fakePublisher) PublishMessage(_ int64, msg model.Message) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, msg)
}

func (p *fakePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.published)
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type env struct {
	trx         *memory.TxManager
	dom         *domain.UsersDomain
	lim         *fakeLimiter
	clk         *fakeClock
	pub         *fakePublisher
	users       *UserService
	channels    *ChannelService
	invitations *InvitationService
	messages    *MessageService
}

func newEnv() *env {
	trx := memory.NewTxManager()
	dom := domain.NewUsersDomain(domain.BcryptHasher{Cost: 4}, domain.UsersConfig{
		TokenSizeInBytes: 32,
		TokenTTL:         24 * time.Hour,
		TokenRollingTTL:  time.Hour,
		MaxTokensPerUser: 3,
	})
	lim := &fakeLimiter{allowOK: true}
	clk := &fakeClock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	pub := &fakePublisher{}
	logger := zap.NewNop()

	return &env{
		trx:         trx,
		dom:         dom,
		lim:         lim,
		clk:         clk,
		pub:         pub,
		users:       NewUserService(trx, dom, lim, clk.Now, logger),
		channels:    NewChannelService(trx, dom, logger),
		invitations: NewInvitationService(trx, logger),
		messages:    NewMessageService(trx, dom, pub, clk.Now, logger),
	}
}

// signup registers a user and logs in, returning the raw token value.
func (e *env) signup(ctx context.Context, username string) (*model.User, string, error) {
	u, err := e.users.CreateUser(ctx, username, "Secret123#")
	if err != nil {
		return nil, "", err
	}
	info, err := e.users.CreateToken(ctx, username, "Secret123#", "127.0.0.1")
	if err != nil {
		return nil, "", err
	}
	return u, info.Value, nil
}
