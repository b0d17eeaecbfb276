package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/mvaz/chathub/internal/domain"
	"github.com/mvaz/chathub/internal/errs"
	"github.com/mvaz/chathub/internal/model"
	"github.com/mvaz/chathub/internal/repository"
)

// MessagePublisher is the notification boundary: created messages are
// pushed to per-channel subscribers outside the synchronous result path.
// Implementations must never block.
type MessagePublisher interface {
	PublishMessage(channelID int64, msg model.Message)
}

// MessageService orchestrates message creation, retrieval and deletion
// with permission checks.
type MessageService struct {
	trx    repository.TransactionManager
	users  *domain.UsersDomain
	pub    MessagePublisher
	clock  func() time.Time
	logger *zap.Logger
}

// NewMessageService constructs a message service. pub may be nil when no
// delivery stream is wired (e.g. in tests).
func NewMessageService(trx repository.TransactionManager, users *domain.UsersDomain, pub MessagePublisher, clock func() time.Time, logger *zap.Logger) *MessageService {
	return &MessageService{trx: trx, users: users, pub: pub, clock: clock, logger: logger}
}

// CreateMessage posts a message to a channel. Checks run in a fixed order,
// short-circuiting on the first failure: token structure, user, channel,
// participant, permission. On success the message is published to channel
// subscribers; publishing never blocks or fails the creation.
func (s *MessageService) CreateMessage(ctx context.Context, authToken, username string, channelID int64, content string) (*model.Message, error) {
	if !s.users.CanBeToken(authToken) {
		return nil, errs.ErrUserNotFound
	}

	var created *model.Message
	err := s.trx.Run(ctx, func(ctx context.Context, r *repository.Repos) error {
		user, err := r.Users.FindByUsername(ctx, username)
		if err != nil {
			if errors.Is(err, errs.ErrNotFound) {
				return errs.ErrUserNotFound
			}
			return err
		}
		ch, err := r.Channels.FindByID(ctx, channelID)
		if err != nil {
			if errors.Is(err, errs.ErrNotFound) {
				return errs.ErrChannelNotFound
			}
			return err
		}
		participant, err := r.Participants.FindByUser(ctx, ch.ID, user.ID)
		if err != nil {
			if errors.Is(err, errs.ErrNotFound) {
				return errs.ErrUserNotParticipant
			}
			return err
		}
		if !participant.Permission.CanWrite() {
			return errs.ErrNoWritePermission
		}
		msg, err := r.Messages.CreateMessage(ctx, user.ID, ch.ID, content, s.clock())
		if err != nil {
			return err
		}
		created = msg
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.pub != nil {
		s.pub.PublishMessage(created.ChannelID, *created)
	}
	s.logger.Info("message created",
		zap.Int64("channel", created.ChannelID),
		zap.String("username", username),
		zap.Int64("id", created.ID),
	)
	return created, nil
}

// DeleteMessage removes a message by id.
func (s *MessageService) DeleteMessage(ctx context.Context, id int64) error {
	return s.trx.Run(ctx, func(ctx context.Context, r *repository.Repos) error {
		if _, err := r.Messages.FindByID(ctx, id); err != nil {
			if errors.Is(err, errs.ErrNotFound) {
				return errs.ErrMessageNotFound
			}
			return err
		}
		return r.Messages.DeleteByID(ctx, id)
	})
}

// GetMessagesByChannelID lists a channel's messages chronologically. The
// channel's existence is validated so "channel not found" stays
// distinguishable from "channel exists with zero messages".
func (s *MessageService) GetMessagesByChannelID(ctx context.Context, channelID int64) ([]model.Message, error) {
	var out []model.Message
	err := s.trx.Run(ctx, func(ctx context.Context, r *repository.Repos) error {
		if _, err := r.Channels.FindByID(ctx, channelID); err != nil {
			if errors.Is(err, errs.ErrNotFound) {
				return errs.ErrChannelNotFound
			}
			return err
		}
		msgs, err := r.Messages.FindAllByChannel(ctx, channelID)
		out = msgs
		return err
	})
	return out, err
}

// GetLatestMessages lists up to limit most recent channel messages, newest
// first. Used by the delivery stream for catch-up on subscribe.
func (s *MessageService) GetLatestMessages(ctx context.Context, channelID int64, limit int) ([]model.Message, error) {
	var out []model.Message
	err := s.trx.Run(ctx, func(ctx context.Context, r *repository.Repos) error {
		if _, err := r.Channels.FindByID(ctx, channelID); err != nil {
			if errors.Is(err, errs.ErrNotFound) {
				return errs.ErrChannelNotFound
			}
			return err
		}
		msgs, err := r.Messages.FindLatestByChannel(ctx, channelID, limit)
		out = msgs
		return err
	})
	return out, err
}

// GetMessagesOfUserInChannel lists one participant's messages in a channel.
func (s *MessageService) GetMessagesOfUserInChannel(ctx context.Context, username string, channelID int64) ([]model.Message, error) {
	var out []model.Message
	err := s.trx.Run(ctx, func(ctx context.Context, r *repository.Repos) error {
		user, err := r.Users.FindByUsername(ctx, username)
		if err != nil {
			if errors.Is(err, errs.ErrNotFound) {
				return errs.ErrUserNotFound
			}
			return err
		}
		if _, err := r.Channels.FindByID(ctx, channelID); err != nil {
			if errors.Is(err, errs.ErrNotFound) {
				return errs.ErrChannelNotFound
			}
			return err
		}
		msgs, err := r.Messages.FindAllByUserInChannel(ctx, user.ID, channelID)
		out = msgs
		return err
	})
	return out, err
}
