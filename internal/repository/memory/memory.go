// Package memory implements the repository interfaces on an in-process
// store. It backs service tests and local development; behavior matches the
// PostgreSQL implementation.
package memory

import (
	"context"
	"sort"
	"time"

	"github.com/mvaz/chathub/internal/errs"
	"github.com/mvaz/chathub/internal/model"
	"github.com/mvaz/chathub/internal/repository"
)

// state is the whole store content. Kept as one value so a unit of work can
// snapshot and restore it on rollback.
type state struct {
	users        []model.User
	tokens       []model.Token
	channels     []model.Channel
	participants []model.Participant
	invitations  []model.Invitation
	messages     []model.Message

	userID        int64
	channelID     int64
	participantID int64
	invitationID  int64
	messageID     int64
}

func (s *state) clone() *state {
	c := &state{
		userID:        s.userID,
		channelID:     s.channelID,
		participantID: s.participantID,
		invitationID:  s.invitationID,
		messageID:     s.messageID,
	}
	c.users = append([]model.User(nil), s.users...)
	c.tokens = append([]model.Token(nil), s.tokens...)
	c.channels = append([]model.Channel(nil), s.channels...)
	c.participants = append([]model.Participant(nil), s.participants...)
	c.invitations = append([]model.Invitation(nil), s.invitations...)
	c.messages = append([]model.Message(nil), s.messages...)
	return c
}

// --- users and tokens ---

type userRepo struct{ s *state }

var _ repository.UserRepository = (*userRepo)(nil)

func (r *userRepo) CreateUser(_ context.Context, username, passwordValidation string) (*model.User, error) {
	for _, u := range r.s.users {
		if u.Username == username {
			return nil, errs.ErrAlreadyExists
		}
	}
	r.s.userID++
	u := model.User{ID: r.s.userID, Username: username, PasswordValidation: passwordValidation}
	r.s.users = append(r.s.users, u)
	return &u, nil
}

func (r *userRepo) FindByID(_ context.Context, id int64) (*model.User, error) {
	for _, u := range r.s.users {
		if u.ID == id {
			c := u
			return &c, nil
		}
	}
	return nil, errs.ErrNotFound
}

func (r *userRepo) FindByUsername(_ context.Context, username string) (*model.User, error) {
	for _, u := range r.s.users {
		if u.Username == username {
			c := u
			return &c, nil
		}
	}
	return nil, errs.ErrNotFound
}

func (r *userRepo) FindAll(_ context.Context) ([]model.User, error) {
	return append([]model.User(nil), r.s.users...), nil
}

func (r *userRepo) DeleteByID(_ context.Context, id int64) (int64, error) {
	var removed int64
	kept := r.s.users[:0]
	for _, u := range r.s.users {
		if u.ID == id {
			removed++
			continue
		}
		kept = append(kept, u)
	}
	r.s.users = kept
	if removed > 0 {
		tokens := r.s.tokens[:0]
		for _, t := range r.s.tokens {
			if t.UserID != id {
				tokens = append(tokens, t)
			}
		}
		r.s.tokens = tokens
	}
	return removed, nil
}

func (r *userRepo) CreateToken(_ context.Context, token model.Token, maxTokens int) error {
	var owned []model.Token
	for _, t := range r.s.tokens {
		if t.UserID == token.UserID {
			owned = append(owned, t)
		}
	}
	if len(owned) >= maxTokens {
		// Evict least recently used tokens so maxTokens-1 remain.
		sort.Slice(owned, func(i, j int) bool { return owned[i].LastUsedAt.Before(owned[j].LastUsedAt) })
		evict := make(map[string]struct{})
		for _, t := range owned[:len(owned)-(maxTokens-1)] {
			evict[t.ValidationInfo] = struct{}{}
		}
		kept := r.s.tokens[:0]
		for _, t := range r.s.tokens {
			if _, ok := evict[t.ValidationInfo]; !ok {
				kept = append(kept, t)
			}
		}
		r.s.tokens = kept
	}
	r.s.tokens = append(r.s.tokens, token)
	return nil
}

func (r *userRepo) FindUserByTokenValidation(ctx context.Context, validationInfo string) (*model.User, *model.Token, error) {
	for _, t := range r.s.tokens {
		if t.ValidationInfo == validationInfo {
			u, err := r.FindByID(ctx, t.UserID)
			if err != nil {
				return nil, nil, err
			}
			c := t
			return u, &c, nil
		}
	}
	return nil, nil, errs.ErrNotFound
}

func (r *userRepo) UpdateTokenLastUsed(_ context.Context, validationInfo string, now time.Time) error {
	for i := range r.s.tokens {
		if r.s.tokens[i].ValidationInfo == validationInfo {
			r.s.tokens[i].LastUsedAt = now
			return nil
		}
	}
	return errs.ErrNotFound
}

func (r *userRepo) DeleteTokenByValidation(_ context.Context, validationInfo string) (int64, error) {
	var removed int64
	kept := r.s.tokens[:0]
	for _, t := range r.s.tokens {
		if t.ValidationInfo == validationInfo {
			removed++
			continue
		}
		kept = append(kept, t)
	}
	r.s.tokens = kept
	return removed, nil
}

func (r *userRepo) Clear(_ context.Context) error {
	r.s.users = nil
	r.s.tokens = nil
	return nil
}

// --- channels ---

type channelRepo struct{ s *state }

var _ repository.ChannelRepository = (*channelRepo)(nil)

func (r *channelRepo) CreateChannel(_ context.Context, name string, ownerID int64, kind model.ChannelKind) (*model.Channel, error) {
	r.s.channelID++
	ch := model.Channel{ID: r.s.channelID, Name: name, OwnerID: ownerID, Kind: kind}
	r.s.channels = append(r.s.channels, ch)
	return &ch, nil
}

func (r *channelRepo) FindByID(_ context.Context, id int64) (*model.Channel, error) {
	for _, ch := range r.s.channels {
		if ch.ID == id {
			c := ch
			return &c, nil
		}
	}
	return nil, errs.ErrNotFound
}

func (r *channelRepo) FindAll(_ context.Context) ([]model.Channel, error) {
	return append([]model.Channel(nil), r.s.channels...), nil
}

func (r *channelRepo) FindAllByUser(_ context.Context, userID int64) ([]model.Channel, error) {
	member := make(map[int64]struct{})
	for _, p := range r.s.participants {
		if p.UserID == userID {
			member[p.ChannelID] = struct{}{}
		}
	}
	var out []model.Channel
	for _, ch := range r.s.channels {
		if _, ok := member[ch.ID]; ok {
			out = append(out, ch)
		}
	}
	return out, nil
}

func (r *channelRepo) FindAllByOwner(_ context.Context, ownerID int64) ([]model.Channel, error) {
	var out []model.Channel
	for _, ch := range r.s.channels {
		if ch.OwnerID == ownerID {
			out = append(out, ch)
		}
	}
	return out, nil
}

func (r *channelRepo) FindAllPublic(_ context.Context) ([]model.Channel, error) {
	var out []model.Channel
	for _, ch := range r.s.channels {
		if ch.Kind == model.ChannelPublic {
			out = append(out, ch)
		}
	}
	return out, nil
}

func (r *channelRepo) DeleteByID(_ context.Context, id int64) error {
	kept := r.s.channels[:0]
	for _, ch := range r.s.channels {
		if ch.ID != id {
			kept = append(kept, ch)
		}
	}
	r.s.channels = kept

	parts := r.s.participants[:0]
	for _, p := range r.s.participants {
		if p.ChannelID != id {
			parts = append(parts, p)
		}
	}
	r.s.participants = parts

	invs := r.s.invitations[:0]
	for _, inv := range r.s.invitations {
		if inv.ChannelID != id {
			invs = append(invs, inv)
		}
	}
	r.s.invitations = invs

	msgs := r.s.messages[:0]
	for _, m := range r.s.messages {
		if m.ChannelID != id {
			msgs = append(msgs, m)
		}
	}
	r.s.messages = msgs
	return nil
}

func (r *channelRepo) Clear(_ context.Context) error {
	r.s.channels = nil
	return nil
}

// --- participants ---

type participantRepo struct{ s *state }

var _ repository.ParticipantRepository = (*participantRepo)(nil)

func (r *participantRepo) username(userID int64) string {
	for _, u := range r.s.users {
		if u.ID == userID {
			return u.Username
		}
	}
	return ""
}

func (r *participantRepo) CreateParticipant(_ context.Context, channelID, userID int64, permission model.Permission) (*model.Participant, error) {
	for _, p := range r.s.participants {
		if p.ChannelID == channelID && p.UserID == userID {
			return nil, errs.ErrAlreadyExists
		}
	}
	r.s.participantID++
	p := model.Participant{
		ID:         r.s.participantID,
		ChannelID:  channelID,
		UserID:     userID,
		Username:   r.username(userID),
		Permission: permission,
	}
	r.s.participants = append(r.s.participants, p)
	return &p, nil
}

func (r *participantRepo) FindByUser(_ context.Context, channelID, userID int64) (*model.Participant, error) {
	for _, p := range r.s.participants {
		if p.ChannelID == channelID && p.UserID == userID {
			c := p
			return &c, nil
		}
	}
	return nil, errs.ErrNotFound
}

func (r *participantRepo) FindAllByChannel(_ context.Context, channelID int64) ([]model.Participant, error) {
	var out []model.Participant
	for _, p := range r.s.participants {
		if p.ChannelID == channelID {
			out = append(out, p)
		}
	}
	// Insertion order is creation order; the owner row is first.
	return out, nil
}

func (r *participantRepo) DeleteParticipant(_ context.Context, channelID, userID int64) error {
	kept := r.s.participants[:0]
	for _, p := range r.s.participants {
		if p.ChannelID == channelID && p.UserID == userID {
			continue
		}
		kept = append(kept, p)
	}
	r.s.participants = kept
	return nil
}

func (r *participantRepo) UpdatePermission(_ context.Context, channelID, userID int64, permission model.Permission) error {
	for i := range r.s.participants {
		if r.s.participants[i].ChannelID == channelID && r.s.participants[i].UserID == userID {
			r.s.participants[i].Permission = permission
			return nil
		}
	}
	return errs.ErrNotFound
}

func (r *participantRepo) Clear(_ context.Context) error {
	r.s.participants = nil
	return nil
}

// --- invitations ---

type invitationRepo struct{ s *state }

var _ repository.InvitationRepository = (*invitationRepo)(nil)

func (r *invitationRepo) CreateInvitation(_ context.Context, inv model.Invitation) (*model.Invitation, error) {
	for _, existing := range r.s.invitations {
		if existing.Code == inv.Code {
			return nil, errs.ErrAlreadyExists
		}
	}
	r.s.invitationID++
	inv.ID = r.s.invitationID
	r.s.invitations = append(r.s.invitations, inv)
	c := inv
	return &c, nil
}

func (r *invitationRepo) FindByID(_ context.Context, id int64) (*model.Invitation, error) {
	for _, inv := range r.s.invitations {
		if inv.ID == id {
			c := inv
			return &c, nil
		}
	}
	return nil, errs.ErrNotFound
}

func (r *invitationRepo) FindByCode(_ context.Context, code string) (*model.Invitation, error) {
	for _, inv := range r.s.invitations {
		if inv.Code == code {
			c := inv
			return &c, nil
		}
	}
	return nil, errs.ErrNotFound
}

func (r *invitationRepo) FindAll(_ context.Context) ([]model.Invitation, error) {
	return append([]model.Invitation(nil), r.s.invitations...), nil
}

func (r *invitationRepo) FindAllByUser(_ context.Context, userID int64) ([]model.Invitation, error) {
	var out []model.Invitation
	for _, inv := range r.s.invitations {
		if inv.InviterID == userID || inv.InviteeID == userID {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (r *invitationRepo) MarkUsed(_ context.Context, id, inviteeID int64) (bool, error) {
	for i := range r.s.invitations {
		if r.s.invitations[i].ID == id && !r.s.invitations[i].Used {
			r.s.invitations[i].Used = true
			r.s.invitations[i].InviteeID = inviteeID
			return true, nil
		}
	}
	return false, nil
}

func (r *invitationRepo) DeleteByID(_ context.Context, id int64) error {
	kept := r.s.invitations[:0]
	for _, inv := range r.s.invitations {
		if inv.ID != id {
			kept = append(kept, inv)
		}
	}
	r.s.invitations = kept
	return nil
}

func (r *invitationRepo) Clear(_ context.Context) error {
	r.s.invitations = nil
	return nil
}

// --- messages ---

type messageRepo struct{ s *state }

var _ repository.MessageRepository = (*messageRepo)(nil)

func (r *messageRepo) username(userID int64) string {
	for _, u := range r.s.users {
		if u.ID == userID {
			return u.Username
		}
	}
	return ""
}

func (r *messageRepo) CreateMessage(_ context.Context, senderID, channelID int64, content string, at time.Time) (*model.Message, error) {
	r.s.messageID++
	m := model.Message{
		ID:        r.s.messageID,
		UserID:    senderID,
		Username:  r.username(senderID),
		ChannelID: channelID,
		Content:   content,
		Time:      at,
	}
	r.s.messages = append(r.s.messages, m)
	return &m, nil
}

func (r *messageRepo) FindByID(_ context.Context, id int64) (*model.Message, error) {
	for _, m := range r.s.messages {
		if m.ID == id {
			c := m
			return &c, nil
		}
	}
	return nil, errs.ErrNotFound
}

func (r *messageRepo) FindAllByChannel(_ context.Context, channelID int64) ([]model.Message, error) {
	var out []model.Message
	for _, m := range r.s.messages {
		if m.ChannelID == channelID {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	return out, nil
}

func (r *messageRepo) FindLatestByChannel(ctx context.Context, channelID int64, limit int) ([]model.Message, error) {
	all, err := r.FindAllByChannel(ctx, channelID)
	if err != nil {
		return nil, err
	}
	// Newest first.
	for i, j := 0, len(all)-1; i < j; i, j = i+1, j-1 {
		all[i], all[j] = all[j], all[i]
	}
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (r *messageRepo) FindAllByUserInChannel(ctx context.Context, userID, channelID int64) ([]model.Message, error) {
	all, err := r.FindAllByChannel(ctx, channelID)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, m := range all {
		if m.UserID == userID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *messageRepo) DeleteByID(_ context.Context, id int64) error {
	kept := r.s.messages[:0]
	for _, m := range r.s.messages {
		if m.ID != id {
			kept = append(kept, m)
		}
	}
	r.s.messages = kept
	return nil
}

func (r *messageRepo) Clear(_ context.Context) error {
	r.s.messages = nil
	return nil
}
