package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/mvaz/chathub/internal/domain"
	"github.com/mvaz/chathub/internal/errs"
	"github.com/mvaz/chathub/internal/model"
	"github.com/mvaz/chathub/internal/repository"
)

// ChannelService orchestrates channel and participant lifecycle, enforcing
// ownership and membership invariants.
type ChannelService struct {
	trx    repository.TransactionManager
	users  *domain.UsersDomain
	logger *zap.Logger
}

// NewChannelService constructs a channel service.
func NewChannelService(trx repository.TransactionManager, users *domain.UsersDomain, logger *zap.Logger) *ChannelService {
	return &ChannelService{trx: trx, users: users, logger: logger}
}

// CreateChannel creates a channel and the owner's READ_WRITE participant
// row in one unit of work: both happen or neither does.
func (s *ChannelService) CreateChannel(ctx context.Context, authToken, name, ownerUsername string, kind model.ChannelKind) (*model.Channel, error) {
	if !s.users.CanBeToken(authToken) {
		return nil, errs.ErrUserNotFound
	}

	var created *model.Channel
	err := s.trx.Run(ctx, func(ctx context.Context, r *repository.Repos) error {
		owner, err := r.Users.FindByUsername(ctx, ownerUsername)
		if err != nil {
			if errors.Is(err, errs.ErrNotFound) {
				return errs.ErrUserNotFound
			}
			return err
		}
		ch, err := r.Channels.CreateChannel(ctx, name, owner.ID, kind)
		if err != nil {
			return err
		}
		if _, err := r.Participants.CreateParticipant(ctx, ch.ID, owner.ID, model.ReadWrite); err != nil {
			return err
		}
		created = ch
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("channel created",
		zap.String("name", name),
		zap.String("owner", ownerUsername),
		zap.String("kind", string(kind)),
	)
	return created, nil
}

// DeleteChannel removes a channel. Only the recorded owner may delete it.
func (s *ChannelService) DeleteChannel(ctx context.Context, authToken string, channelID int64, ownerUsername string) (bool, error) {
	if !s.users.CanBeToken(authToken) {
		return false, errs.ErrUserNotFound
	}

	err := s.trx.Run(ctx, func(ctx context.Context, r *repository.Repos) error {
		owner, err := r.Users.FindByUsername(ctx, ownerUsername)
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
		if ch.OwnerID != owner.ID {
			return errs.ErrUserNotOwner
		}
		return r.Channels.DeleteByID(ctx, channelID)
	})
	if err != nil {
		return false, err
	}
	s.logger.Info("channel deleted", zap.Int64("channel", channelID), zap.String("owner", ownerUsername))
	return true, nil
}

// AddParticipantToChannel adds a user to a channel. At most one participant
// row exists per (channel, user) pair.
func (s *ChannelService) AddParticipantToChannel(ctx context.Context, username string, channelID int64, permission model.Permission) (*model.Channel, error) {
	var out *model.Channel
	err := s.trx.Run(ctx, func(ctx context.Context, r *repository.Repos) error {
		ch, err := r.Channels.FindByID(ctx, channelID)
		if err != nil {
			if errors.Is(err, errs.ErrNotFound) {
				return errs.ErrChannelNotFound
			}
			return err
		}
		user, err := r.Users.FindByUsername(ctx, username)
		if err != nil {
			if errors.Is(err, errs.ErrNotFound) {
				return errs.ErrUserNotFound
			}
			return err
		}
		if _, err := r.Participants.FindByUser(ctx, channelID, user.ID); err == nil {
			return errs.ErrUserAlreadyOnChannel
		} else if !errors.Is(err, errs.ErrNotFound) {
			return err
		}
		if _, err := r.Participants.CreateParticipant(ctx, channelID, user.ID, permission); err != nil {
			if errors.Is(err, errs.ErrAlreadyExists) {
				return errs.ErrUserAlreadyOnChannel
			}
			return err
		}
		out = ch
		return nil
	})
	return out, err
}

// RemoveParticipantFromChannel removes a user's membership.
func (s *ChannelService) RemoveParticipantFromChannel(ctx context.Context, username string, channelID int64) (bool, error) {
	err := s.trx.Run(ctx, func(ctx context.Context, r *repository.Repos) error {
		if _, err := r.Channels.FindByID(ctx, channelID); err != nil {
			if errors.Is(err, errs.ErrNotFound) {
				return errs.ErrChannelNotFound
			}
			return err
		}
		user, err := r.Users.FindByUsername(ctx, username)
		if err != nil {
			if errors.Is(err, errs.ErrNotFound) {
				return errs.ErrUserNotFound
			}
			return err
		}
		if _, err := r.Participants.FindByUser(ctx, channelID, user.ID); err != nil {
			if errors.Is(err, errs.ErrNotFound) {
				return errs.ErrUserNotOnChannel
			}
			return err
		}
		return r.Participants.DeleteParticipant(ctx, channelID, user.ID)
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// UpdateMemberPermission changes a member's access level. Only the channel
// owner may change permissions; the owner's own row is not restricted here
// because ownership, not permission, gates owner operations.
func (s *ChannelService) UpdateMemberPermission(ctx context.Context, ownerUsername string, channelID, userID int64, permission model.Permission) error {
	err := s.trx.Run(ctx, func(ctx context.Context, r *repository.Repos) error {
		ch, err := r.Channels.FindByID(ctx, channelID)
		if err != nil {
			if errors.Is(err, errs.ErrNotFound) {
				return errs.ErrChannelNotFound
			}
			return err
		}
		owner, err := r.Users.FindByUsername(ctx, ownerUsername)
		if err != nil {
			if errors.Is(err, errs.ErrNotFound) {
				return errs.ErrUserNotFound
			}
			return err
		}
		if ch.OwnerID != owner.ID {
			return errs.ErrUserNotOwner
		}
		if _, err := r.Participants.FindByUser(ctx, channelID, userID); err != nil {
			if errors.Is(err, errs.ErrNotFound) {
				return errs.ErrUserNotOnChannel
			}
			return err
		}
		return r.Participants.UpdatePermission(ctx, channelID, userID, permission)
	})
	if err != nil {
		return err
	}
	s.logger.Info("member permission updated",
		zap.Int64("channel", channelID),
		zap.Int64("user", userID),
		zap.String("permission", string(permission)),
	)
	return nil
}

// GetChannelsByOwner lists channels owned by the named user, including
// ones the owner no longer participates in. An unknown username is an
// error, distinct from a user who owns no channels.
func (s *ChannelService) GetChannelsByOwner(ctx context.Context, username string) ([]model.Channel, error) {
	var out []model.Channel
	err := s.trx.Run(ctx, func(ctx context.Context, r *repository.Repos) error {
		user, err := r.Users.FindByUsername(ctx, username)
		if err != nil {
			if errors.Is(err, errs.ErrNotFound) {
				return errs.ErrUserNotFound
			}
			return err
		}
		channels, err := r.Channels.FindAllByOwner(ctx, user.ID)
		out = channels
		return err
	})
	return out, err
}

// GetChannelsOfUser lists channels the user participates in.
func (s *ChannelService) GetChannelsOfUser(ctx context.Context, userID int64) ([]model.Channel, error) {
	var out []model.Channel
	err := s.trx.Run(ctx, func(ctx context.Context, r *repository.Repos) error {
		if _, err := r.Users.FindByID(ctx, userID); err != nil {
			if errors.Is(err, errs.ErrNotFound) {
				return errs.ErrUserNotFound
			}
			return err
		}
		channels, err := r.Channels.FindAllByUser(ctx, userID)
		out = channels
		return err
	})
	return out, err
}

// GetPublicChannels lists channels anyone may browse.
func (s *ChannelService) GetPublicChannels(ctx context.Context) ([]model.Channel, error) {
	var out []model.Channel
	err := s.trx.Run(ctx, func(ctx context.Context, r *repository.Repos) error {
		channels, err := r.Channels.FindAllPublic(ctx)
		out = channels
		return err
	})
	return out, err
}

// GetAllChannels lists every channel.
func (s *ChannelService) GetAllChannels(ctx context.Context) ([]model.Channel, error) {
	var out []model.Channel
	err := s.trx.Run(ctx, func(ctx context.Context, r *repository.Repos) error {
		channels, err := r.Channels.FindAll(ctx)
		out = channels
		return err
	})
	return out, err
}

// GetChannelByID loads a channel, or errs.ErrChannelNotFound.
func (s *ChannelService) GetChannelByID(ctx context.Context, id int64) (*model.Channel, error) {
	var out *model.Channel
	err := s.trx.Run(ctx, func(ctx context.Context, r *repository.Repos) error {
		ch, err := r.Channels.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, errs.ErrNotFound) {
				return errs.ErrChannelNotFound
			}
			return err
		}
		out = ch
		return nil
	})
	return out, err
}

// GetUsersOfChannel lists the channel's participants in creation order;
// the owner comes first since its row is created with the channel.
func (s *ChannelService) GetUsersOfChannel(ctx context.Context, channelID int64) ([]model.Participant, error) {
	var out []model.Participant
	err := s.trx.Run(ctx, func(ctx context.Context, r *repository.Repos) error {
		if _, err := r.Channels.FindByID(ctx, channelID); err != nil {
			if errors.Is(err, errs.ErrNotFound) {
				return errs.ErrChannelNotFound
			}
			return err
		}
		parts, err := r.Participants.FindAllByChannel(ctx, channelID)
		out = parts
		return err
	})
	return out, err
}
