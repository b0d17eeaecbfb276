package service

import (
	"context"
	"errors"
	"strings"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/mvaz/chathub/internal/errs"
	"github.com/mvaz/chathub/internal/model"
	"github.com/mvaz/chathub/internal/repository"
)

// invitationCodeLength is the number of characters kept from the random
// UUID. The real requirement is an opaque unguessable code; 12 hex chars
// carry 48 bits of entropy.
const invitationCodeLength = 12

// InvitationService orchestrates invitation issuance and its single-use
// accept/reject state machine. A used invitation is terminal and reported
// exactly like a missing one.
type InvitationService struct {
	trx    repository.TransactionManager
	logger *zap.Logger
}

// NewInvitationService constructs an invitation service.
func NewInvitationService(trx repository.TransactionManager, logger *zap.Logger) *InvitationService {
	return &InvitationService{trx: trx, logger: logger}
}

// CreateInvitation issues an invitation for a channel. An empty
// inviteeName creates an open invitation redeemable by code; a non-empty
// unknown username fails lookup instead.
func (s *InvitationService) CreateInvitation(ctx context.Context, inviterName, inviteeName string, channelID int64, permission model.Permission) (*model.Invitation, error) {
	code, err := generateInvitationCode()
	if err != nil {
		return nil, err
	}

	var created *model.Invitation
	err = s.trx.Run(ctx, func(ctx context.Context, r *repository.Repos) error {
		inviter, err := r.Users.FindByUsername(ctx, inviterName)
		if err != nil {
			if errors.Is(err, errs.ErrNotFound) {
				return errs.ErrInviterNotFound
			}
			return err
		}

		var inviteeID int64
		if inviteeName != "" {
			invitee, err := r.Users.FindByUsername(ctx, inviteeName)
			if err != nil {
				if errors.Is(err, errs.ErrNotFound) {
					return errs.ErrInviteeNotFound
				}
				return err
			}
			inviteeID = invitee.ID
		}

		inv, err := r.Invitations.CreateInvitation(ctx, model.Invitation{
			Code:       code,
			InviterID:  inviter.ID,
			InviteeID:  inviteeID,
			ChannelID:  channelID,
			Used:       false,
			Permission: permission,
		})
		if err != nil {
			return err
		}
		created = inv
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("invitation created",
		zap.String("inviter", inviterName),
		zap.Int64("channel", channelID),
		zap.Bool("open", created.Open()),
	)
	return created, nil
}

// GetInvitationByCode resolves an invitation from its opaque code.
func (s *InvitationService) GetInvitationByCode(ctx context.Context, code string) (*model.Invitation, error) {
	var out *model.Invitation
	err := s.trx.Run(ctx, func(ctx context.Context, r *repository.Repos) error {
		inv, err := r.Invitations.FindByCode(ctx, code)
		if err != nil {
			if errors.Is(err, errs.ErrNotFound) {
				return errs.ErrInvitationNotFound
			}
			return err
		}
		out = inv
		return nil
	})
	return out, err
}

// AcceptInvitation consumes a pending invitation: the resolved user joins
// the channel with the given permission and the invitation record is
// deleted, all in one unit of work. A used invitation fails exactly like a
// missing one.
func (s *InvitationService) AcceptInvitation(ctx context.Context, username string, invitationID, channelID int64, permission model.Permission) error {
	err := s.trx.Run(ctx, func(ctx context.Context, r *repository.Repos) error {
		inv, err := r.Invitations.FindByID(ctx, invitationID)
		if err != nil {
			if errors.Is(err, errs.ErrNotFound) {
				return errs.ErrInvitationNotFound
			}
			return err
		}
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
		if inv.Used {
			return errs.ErrInvitationNotFound
		}
		updated, err := r.Invitations.MarkUsed(ctx, invitationID, user.ID)
		if err != nil {
			return err
		}
		if !updated {
			return errs.ErrInvitationNotFound
		}
		if _, err := r.Participants.CreateParticipant(ctx, channelID, user.ID, permission); err != nil {
			if errors.Is(err, errs.ErrAlreadyExists) {
				return errs.ErrUserAlreadyOnChannel
			}
			return err
		}
		return r.Invitations.DeleteByID(ctx, invitationID)
	})
	if err != nil {
		return err
	}
	s.logger.Info("invitation accepted",
		zap.String("username", username),
		zap.Int64("invitation", invitationID),
		zap.Int64("channel", channelID),
	)
	return nil
}

// RejectInvitation consumes a pending invitation without creating a
// participant. Terminal like acceptance: the record is deleted.
func (s *InvitationService) RejectInvitation(ctx context.Context, username string, invitationID int64) error {
	err := s.trx.Run(ctx, func(ctx context.Context, r *repository.Repos) error {
		inv, err := r.Invitations.FindByID(ctx, invitationID)
		if err != nil {
			if errors.Is(err, errs.ErrNotFound) {
				return errs.ErrInvitationNotFound
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
		if inv.Used {
			return errs.ErrInvitationNotFound
		}
		updated, err := r.Invitations.MarkUsed(ctx, invitationID, user.ID)
		if err != nil {
			return err
		}
		if !updated {
			return errs.ErrInvitationNotFound
		}
		return r.Invitations.DeleteByID(ctx, invitationID)
	})
	if err != nil {
		return err
	}
	s.logger.Info("invitation rejected", zap.String("username", username), zap.Int64("invitation", invitationID))
	return nil
}

// MarkInvitationAsUsed is a maintenance operation flipping the used flag
// without touching participants.
func (s *InvitationService) MarkInvitationAsUsed(ctx context.Context, id int64) error {
	return s.trx.Run(ctx, func(ctx context.Context, r *repository.Repos) error {
		inv, err := r.Invitations.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, errs.ErrNotFound) {
				return errs.ErrInvitationNotFound
			}
			return err
		}
		updated, err := r.Invitations.MarkUsed(ctx, id, inv.InviteeID)
		if err != nil {
			return err
		}
		if !updated {
			return errs.ErrInvitationNotFound
		}
		return nil
	})
}

// GetAllInvitationsByUser lists invitations where the named user is
// inviter or invitee.
func (s *InvitationService) GetAllInvitationsByUser(ctx context.Context, username string) ([]model.Invitation, error) {
	var out []model.Invitation
	err := s.trx.Run(ctx, func(ctx context.Context, r *repository.Repos) error {
		user, err := r.Users.FindByUsername(ctx, username)
		if err != nil {
			if errors.Is(err, errs.ErrNotFound) {
				return errs.ErrInviteeNotFound
			}
			return err
		}
		invs, err := r.Invitations.FindAllByUser(ctx, user.ID)
		out = invs
		return err
	})
	return out, err
}

// GetAllInvitations lists every invitation.
func (s *InvitationService) GetAllInvitations(ctx context.Context) ([]model.Invitation, error) {
	var out []model.Invitation
	err := s.trx.Run(ctx, func(ctx context.Context, r *repository.Repos) error {
		invs, err := r.Invitations.FindAll(ctx)
		out = invs
		return err
	})
	return out, err
}

// GetInvitationByID loads an invitation, or errs.ErrInvitationNotFound.
func (s *InvitationService) GetInvitationByID(ctx context.Context, id int64) (*model.Invitation, error) {
	var out *model.Invitation
	err := s.trx.Run(ctx, func(ctx context.Context, r *repository.Repos) error {
		inv, err := r.Invitations.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, errs.ErrNotFound) {
				return errs.ErrInvitationNotFound
			}
			return err
		}
		out = inv
		return nil
	})
	return out, err
}

// generateInvitationCode returns an opaque unguessable code.
func generateInvitationCode() (string, error) {
	u, err := uuid.NewV4()
	if err != nil {
		return "", err
	}
	hex := strings.ReplaceAll(u.String(), "-", "")
	return hex[:invitationCodeLength], nil
}
