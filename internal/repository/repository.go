// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"
	"time"

	"github.com/mvaz/chathub/internal/model"
)

// UserRepository provides access to users and their bearer tokens. Token
// writes belong here because token eviction must share the user row's unit
// of work.
type UserRepository interface {
	// CreateUser inserts a new user with its hashed credential.
	CreateUser(ctx context.Context, username, passwordValidation string) (*model.User, error)
	// FindByID loads a user by id.
	FindByID(ctx context.Context, id int64) (*model.User, error)
	// FindByUsername loads a user by its unique username.
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	// FindAll returns every user.
	FindAll(ctx context.Context) ([]model.User, error)
	// DeleteByID removes a user and all of its tokens. Returns the number
	// of user rows removed.
	DeleteByID(ctx context.Context, id int64) (int64, error)

	// CreateToken persists a token, evicting the user's least recently
	// used tokens so that at most maxTokens remain, inside the same unit
	// of work.
	CreateToken(ctx context.Context, token model.Token, maxTokens int) error
	// FindUserByTokenValidation resolves a user and its token row by the
	// token's validation hash.
	FindUserByTokenValidation(ctx context.Context, validationInfo string) (*model.User, *model.Token, error)
	// UpdateTokenLastUsed refreshes a token's last-used timestamp.
	UpdateTokenLastUsed(ctx context.Context, validationInfo string, now time.Time) error
	// DeleteTokenByValidation removes a token; returns rows removed.
	DeleteTokenByValidation(ctx context.Context, validationInfo string) (int64, error)
	// Clear removes all users and tokens.
	Clear(ctx context.Context) error
}

// ChannelRepository provides access to channels.
type ChannelRepository interface {
	// CreateChannel inserts a channel owned by ownerID.
	CreateChannel(ctx context.Context, name string, ownerID int64, kind model.ChannelKind) (*model.Channel, error)
	// FindByID loads a channel by id.
	FindByID(ctx context.Context, id int64) (*model.Channel, error)
	// FindAll returns every channel.
	FindAll(ctx context.Context) ([]model.Channel, error)
	// FindAllByUser returns channels the user participates in.
	FindAllByUser(ctx context.Context, userID int64) ([]model.Channel, error)
	// FindAllByOwner returns channels owned by the user, whether or not
	// the owner still participates.
	FindAllByOwner(ctx context.Context, ownerID int64) ([]model.Channel, error)
	// FindAllPublic returns channels with PUBLIC kind.
	FindAllPublic(ctx context.Context) ([]model.Channel, error)
	// DeleteByID removes a channel with its participants, invitations and
	// messages.
	DeleteByID(ctx context.Context, id int64) error
	// Clear removes all channels.
	Clear(ctx context.Context) error
}

// ParticipantRepository manages (channel, user) membership rows.
type ParticipantRepository interface {
	// CreateParticipant adds a membership row. The (channel, user) pair is
	// unique.
	CreateParticipant(ctx context.Context, channelID, userID int64, permission model.Permission) (*model.Participant, error)
	// FindByUser returns the membership of userID in channelID, or
	// errs.ErrNotFound.
	FindByUser(ctx context.Context, channelID, userID int64) (*model.Participant, error)
	// FindAllByChannel returns memberships in creation order; the owner's
	// row comes first since it is created with the channel.
	FindAllByChannel(ctx context.Context, channelID int64) ([]model.Participant, error)
	// DeleteParticipant removes a membership row.
	DeleteParticipant(ctx context.Context, channelID, userID int64) error
	// UpdatePermission changes a member's access level.
	UpdatePermission(ctx context.Context, channelID, userID int64, permission model.Permission) error
	// Clear removes all participants.
	Clear(ctx context.Context) error
}

// InvitationRepository manages channel invitations.
type InvitationRepository interface {
	// CreateInvitation persists the invitation and returns it with its id.
	CreateInvitation(ctx context.Context, inv model.Invitation) (*model.Invitation, error)
	// FindByID loads an invitation by id.
	FindByID(ctx context.Context, id int64) (*model.Invitation, error)
	// FindByCode loads an invitation by its opaque code.
	FindByCode(ctx context.Context, code string) (*model.Invitation, error)
	// FindAll returns every invitation.
	FindAll(ctx context.Context) ([]model.Invitation, error)
	// FindAllByUser returns invitations where the user is inviter or invitee.
	FindAllByUser(ctx context.Context, userID int64) ([]model.Invitation, error)
	// MarkUsed flips the used flag and binds the invitee. Reports whether
	// a row was updated.
	MarkUsed(ctx context.Context, id, inviteeID int64) (bool, error)
	// DeleteByID removes an invitation.
	DeleteByID(ctx context.Context, id int64) error
	// Clear removes all invitations.
	Clear(ctx context.Context) error
}

// MessageRepository manages channel messages.
type MessageRepository interface {
	// CreateMessage persists a message at the given time.
	CreateMessage(ctx context.Context, senderID, channelID int64, content string, at time.Time) (*model.Message, error)
	// FindByID loads a message by id.
	FindByID(ctx context.Context, id int64) (*model.Message, error)
	// FindAllByChannel returns the channel's messages in chronological order.
	FindAllByChannel(ctx context.Context, channelID int64) ([]model.Message, error)
	// FindLatestByChannel returns up to limit most recent messages,
	// newest first.
	FindLatestByChannel(ctx context.Context, channelID int64, limit int) ([]model.Message, error)
	// FindAllByUserInChannel returns one user's messages in a channel.
	FindAllByUserInChannel(ctx context.Context, userID, channelID int64) ([]model.Message, error)
	// DeleteByID removes a message.
	DeleteByID(ctx context.Context, id int64) error
	// Clear removes all messages.
	Clear(ctx context.Context) error
}

// Repos is the set of repositories bound to one unit of work. Every
// repository call made through a Repos instance sees the same snapshot and
// commits or rolls back atomically.
type Repos struct {
	Users        UserRepository
	Channels     ChannelRepository
	Participants ParticipantRepository
	Invitations  InvitationRepository
	Messages     MessageRepository
}

// TransactionManager executes a unit of work against one consistent set of
// repositories. Run commits when fn returns nil and rolls back otherwise.
// Repositories must not be retained beyond the call.
type TransactionManager interface {
	Run(ctx context.Context, fn func(ctx context.Context, r *Repos) error) error
}
