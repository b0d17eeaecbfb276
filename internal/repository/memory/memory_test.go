package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mvaz/chathub/internal/errs"
	"github.com/mvaz/chathub/internal/model"
	"github.com/mvaz/chathub/internal/repository"
)

func run(t *testing.T, m *TxManager, fn func(ctx context.Context, r *repository.Repos) error) {
	t.Helper()
	if err := m.Run(context.Background(), fn); err != nil {
		t.Fatalf("run: %v", err)
	}
}

func TestMemory_TokenCapEvictsLeastRecentlyUsed(t *testing.T) {
	t.Parallel()
	m := NewTxManager()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	var userID int64
	run(t, m, func(ctx context.Context, r *repository.Repos) error {
		u, err := r.Users.CreateUser(ctx, "alice", "hash")
		if err != nil {
			return err
		}
		userID = u.ID
		for i, v := range []string{"t1", "t2", "t3"} {
			at := base.Add(time.Duration(i) * time.Minute)
			if err := r.Users.CreateToken(ctx, model.Token{
				ValidationInfo: v, UserID: u.ID, CreatedAt: at, LastUsedAt: at,
			}, 3); err != nil {
				return err
			}
		}
		return nil
	})

	// t1 is the least recently used; a fourth token pushes it out.
	run(t, m, func(ctx context.Context, r *repository.Repos) error {
		at := base.Add(10 * time.Minute)
		return r.Users.CreateToken(ctx, model.Token{
			ValidationInfo: "t4", UserID: userID, CreatedAt: at, LastUsedAt: at,
		}, 3)
	})

	run(t, m, func(ctx context.Context, r *repository.Repos) error {
		if _, _, err := r.Users.FindUserByTokenValidation(ctx, "t1"); !errors.Is(err, errs.ErrNotFound) {
			t.Errorf("t1 survived eviction, err = %v", err)
		}
		for _, v := range []string{"t2", "t3", "t4"} {
			if _, _, err := r.Users.FindUserByTokenValidation(ctx, v); err != nil {
				t.Errorf("%s evicted, err = %v", v, err)
			}
		}
		return nil
	})
}

func TestMemory_ChannelDeleteCascades(t *testing.T) {
	t.Parallel()
	m := NewTxManager()

	var chID, userID int64
	run(t, m, func(ctx context.Context, r *repository.Repos) error {
		u, err := r.Users.CreateUser(ctx, "alice", "hash")
		if err != nil {
			return err
		}
		userID = u.ID
		ch, err := r.Channels.CreateChannel(ctx, "general", u.ID, model.ChannelPublic)
		if err != nil {
			return err
		}
		chID = ch.ID
		if _, err := r.Participants.CreateParticipant(ctx, ch.ID, u.ID, model.ReadWrite); err != nil {
			return err
		}
		if _, err := r.Invitations.CreateInvitation(ctx, model.Invitation{
			Code: "cccccccccccc", InviterID: u.ID, ChannelID: ch.ID, Permission: model.ReadOnly,
		}); err != nil {
			return err
		}
		_, err = r.Messages.CreateMessage(ctx, u.ID, ch.ID, "hi", time.Now())
		return err
	})

	run(t, m, func(ctx context.Context, r *repository.Repos) error {
		return r.Channels.DeleteByID(ctx, chID)
	})

	run(t, m, func(ctx context.Context, r *repository.Repos) error {
		if _, err := r.Participants.FindByUser(ctx, chID, userID); !errors.Is(err, errs.ErrNotFound) {
			t.Errorf("participant survived cascade, err = %v", err)
		}
		if _, err := r.Invitations.FindByCode(ctx, "cccccccccccc"); !errors.Is(err, errs.ErrNotFound) {
			t.Errorf("invitation survived cascade, err = %v", err)
		}
		msgs, err := r.Messages.FindAllByChannel(ctx, chID)
		if err != nil {
			return err
		}
		if len(msgs) != 0 {
			t.Errorf("messages survived cascade: %+v", msgs)
		}
		return nil
	})
}

func TestMemory_MessageOrdering(t *testing.T) {
	t.Parallel()
	m := NewTxManager()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	var chID int64
	run(t, m, func(ctx context.Context, r *repository.Repos) error {
		u, err := r.Users.CreateUser(ctx, "alice", "hash")
		if err != nil {
			return err
		}
		ch, err := r.Channels.CreateChannel(ctx, "general", u.ID, model.ChannelPublic)
		if err != nil {
			return err
		}
		chID = ch.ID
		for i, content := range []string{"one", "two", "three"} {
			if _, err := r.Messages.CreateMessage(ctx, u.ID, ch.ID, content, base.Add(time.Duration(i)*time.Minute)); err != nil {
				return err
			}
		}
		return nil
	})

	run(t, m, func(ctx context.Context, r *repository.Repos) error {
		all, err := r.Messages.FindAllByChannel(ctx, chID)
		if err != nil {
			return err
		}
		if len(all) != 3 || all[0].Content != "one" || all[2].Content != "three" {
			t.Errorf("chronological order broken: %+v", all)
		}

		latest, err := r.Messages.FindLatestByChannel(ctx, chID, 2)
		if err != nil {
			return err
		}
		if len(latest) != 2 || latest[0].Content != "three" || latest[1].Content != "two" {
			t.Errorf("latest order broken: %+v", latest)
		}
		return nil
	})
}

func TestMemory_RollbackRestoresState(t *testing.T) {
	t.Parallel()
	m := NewTxManager()

	run(t, m, func(ctx context.Context, r *repository.Repos) error {
		_, err := r.Users.CreateUser(ctx, "alice", "hash")
		return err
	})

	boom := errors.New("boom")
	err := m.Run(context.Background(), func(ctx context.Context, r *repository.Repos) error {
		if _, err := r.Users.CreateUser(ctx, "bob", "hash"); err != nil {
			return err
		}
		if _, err := r.Channels.CreateChannel(ctx, "general", 1, model.ChannelPublic); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("want boom, got %v", err)
	}

	run(t, m, func(ctx context.Context, r *repository.Repos) error {
		if _, err := r.Users.FindByUsername(ctx, "bob"); !errors.Is(err, errs.ErrNotFound) {
			t.Errorf("rollback leaked user, err = %v", err)
		}
		chs, err := r.Channels.FindAll(ctx)
		if err != nil {
			return err
		}
		if len(chs) != 0 {
			t.Errorf("rollback leaked channels: %+v", chs)
		}
		return nil
	})
}

func TestMemory_DuplicateUsernameAndParticipant(t *testing.T) {
	t.Parallel()
	m := NewTxManager()

	run(t, m, func(ctx context.Context, r *repository.Repos) error {
		u, err := r.Users.CreateUser(ctx, "alice", "hash")
		if err != nil {
			return err
		}
		if _, err := r.Users.CreateUser(ctx, "alice", "other"); !errors.Is(err, errs.ErrAlreadyExists) {
			t.Errorf("duplicate username err = %v", err)
		}

		ch, err := r.Channels.CreateChannel(ctx, "general", u.ID, model.ChannelPublic)
		if err != nil {
			return err
		}
		if _, err := r.Participants.CreateParticipant(ctx, ch.ID, u.ID, model.ReadWrite); err != nil {
			return err
		}
		if _, err := r.Participants.CreateParticipant(ctx, ch.ID, u.ID, model.ReadOnly); !errors.Is(err, errs.ErrAlreadyExists) {
			t.Errorf("duplicate participant err = %v", err)
		}
		return nil
	})
}
