package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mvaz/chathub/internal/errs"
	"github.com/mvaz/chathub/internal/repository"
)

func TestUserService_CreateUser_PasswordPolicyAndDuplicates(t *testing.T) {
	t.Parallel()
	e := newEnv()
	ctx := context.Background()

	if _, err := e.users.CreateUser(ctx, "", ""); !errors.Is(err, errs.ErrInsecurePassword) {
		t.Fatalf("want ErrInsecurePassword on empty input, got %v", err)
	}
	if _, err := e.users.CreateUser(ctx, "alice", "weak"); !errors.Is(err, errs.ErrInsecurePassword) {
		t.Fatalf("want ErrInsecurePassword on weak password, got %v", err)
	}

	u, err := e.users.CreateUser(ctx, "alice", "Secret123#")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if u.ID == 0 || u.Username != "alice" {
		t.Fatalf("bad user: %+v", u)
	}
	if u.PasswordValidation == "Secret123#" {
		t.Fatalf("plaintext password stored")
	}

	if _, err := e.users.CreateUser(ctx, "alice", "Other456#x"); !errors.Is(err, errs.ErrUsernameAlreadyUsed) {
		t.Fatalf("want ErrUsernameAlreadyUsed, got %v", err)
	}
}

func TestUserService_CreateToken_AuthAndRateLimit(t *testing.T) {
	t.Parallel()
	e := newEnv()
	ctx := context.Background()

	if _, err := e.users.CreateUser(ctx, "alice", "Secret123#"); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	// Unknown user and wrong password are indistinguishable.
	if _, err := e.users.CreateToken(ctx, "ghost", "Secret123#", "1.2.3.4"); !errors.Is(err, errs.ErrUserOrPasswordInvalid) {
		t.Fatalf("want ErrUserOrPasswordInvalid for unknown user, got %v", err)
	}
	if _, err := e.users.CreateToken(ctx, "alice", "Wrong456#x", "1.2.3.4"); !errors.Is(err, errs.ErrUserOrPasswordInvalid) {
		t.Fatalf("want ErrUserOrPasswordInvalid for wrong password, got %v", err)
	}
	if e.lim.failureCalls != 2 {
		t.Fatalf("failureCalls = %d, want 2", e.lim.failureCalls)
	}

	e.lim.allowOK = false
	if _, err := e.users.CreateToken(ctx, "alice", "Secret123#", "1.2.3.4"); !errors.Is(err, errs.ErrRateLimited) {
		t.Fatalf("want ErrRateLimited when limiter denies, got %v", err)
	}
	e.lim.allowOK = true

	e.lim.failBlocked = true
	if _, err := e.users.CreateToken(ctx, "alice", "Wrong456#x", "1.2.3.4"); !errors.Is(err, errs.ErrRateLimited) {
		t.Fatalf("want ErrRateLimited when failure blocks, got %v", err)
	}
	e.lim.failBlocked = false

	info, err := e.users.CreateToken(ctx, "alice", "Secret123#", "1.2.3.4")
	if err != nil {
		t.Fatalf("CreateToken: %v", err)
	}
	if info.Value == "" {
		t.Fatalf("empty token value")
	}
	if want := e.clk.Now().Add(time.Hour); !info.ExpiresAt.Equal(want) {
		t.Fatalf("ExpiresAt = %v, want rolling limit %v", info.ExpiresAt, want)
	}
	if e.lim.successCalls == 0 {
		t.Fatalf("expected Success() after valid login")
	}
}

func TestUserService_GetUserByToken_RoundTripAndExpiry(t *testing.T) {
	t.Parallel()
	e := newEnv()
	ctx := context.Background()

	_, token, err := e.signup(ctx, "alice")
	if err != nil {
		t.Fatalf("signup: %v", err)
	}

	u, err := e.users.GetUserByToken(ctx, token)
	if err != nil {
		t.Fatalf("GetUserByToken: %v", err)
	}
	if u.Username != "alice" {
		t.Fatalf("resolved wrong user: %+v", u)
	}

	if _, err := e.users.GetUserByToken(ctx, "malformed"); !errors.Is(err, errs.ErrUserOrPasswordInvalid) {
		t.Fatalf("want ErrUserOrPasswordInvalid for malformed token, got %v", err)
	}

	// Each use refreshes the rolling window.
	for i := 0; i < 3; i++ {
		e.clk.Advance(45 * time.Minute)
		if _, err := e.users.GetUserByToken(ctx, token); err != nil {
			t.Fatalf("use %d inside rolling window: %v", i, err)
		}
	}

	// Left idle past the rolling TTL the token dies.
	e.clk.Advance(61 * time.Minute)
	if _, err := e.users.GetUserByToken(ctx, token); !errors.Is(err, errs.ErrUserOrPasswordInvalid) {
		t.Fatalf("want ErrUserOrPasswordInvalid after idle expiry, got %v", err)
	}
}

func TestUserService_GetUserByToken_AbsoluteTTLCapsRefresh(t *testing.T) {
	t.Parallel()
	e := newEnv()
	ctx := context.Background()

	_, token, err := e.signup(ctx, "alice")
	if err != nil {
		t.Fatalf("signup: %v", err)
	}

	// Keep the token alive with use every 30 minutes; the absolute limit
	// still kills it after 24 hours.
	for i := 0; i < 48; i++ {
		e.clk.Advance(30 * time.Minute)
		if _, err := e.users.GetUserByToken(ctx, token); err != nil {
			t.Fatalf("use %d before absolute limit: %v", i, err)
		}
	}
	e.clk.Advance(30 * time.Minute)
	if _, err := e.users.GetUserByToken(ctx, token); !errors.Is(err, errs.ErrUserOrPasswordInvalid) {
		t.Fatalf("want ErrUserOrPasswordInvalid past absolute TTL, got %v", err)
	}
}

func TestUserService_TokenCapEvictsLeastRecentlyUsed(t *testing.T) {
	t.Parallel()
	e := newEnv()
	ctx := context.Background()

	if _, err := e.users.CreateUser(ctx, "alice", "Secret123#"); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	var tokens []string
	for i := 0; i < 3; i++ {
		info, err := e.users.CreateToken(ctx, "alice", "Secret123#", "1.2.3.4")
		if err != nil {
			t.Fatalf("CreateToken %d: %v", i, err)
		}
		tokens = append(tokens, info.Value)
		e.clk.Advance(time.Minute)
	}

	// A fourth login evicts the least recently used token, the first one.
	info, err := e.users.CreateToken(ctx, "alice", "Secret123#", "1.2.3.4")
	if err != nil {
		t.Fatalf("CreateToken over cap: %v", err)
	}

	if _, err := e.users.GetUserByToken(ctx, tokens[0]); !errors.Is(err, errs.ErrUserOrPasswordInvalid) {
		t.Fatalf("want oldest token evicted, got %v", err)
	}
	for _, tok := range []string{tokens[1], tokens[2], info.Value} {
		if _, err := e.users.GetUserByToken(ctx, tok); err != nil {
			t.Fatalf("surviving token rejected: %v", err)
		}
	}
}

func TestUserService_RevokeToken_Idempotent(t *testing.T) {
	t.Parallel()
	e := newEnv()
	ctx := context.Background()

	_, token, err := e.signup(ctx, "alice")
	if err != nil {
		t.Fatalf("signup: %v", err)
	}

	if err := e.users.RevokeToken(ctx, token); err != nil {
		t.Fatalf("RevokeToken: %v", err)
	}
	if _, err := e.users.GetUserByToken(ctx, token); !errors.Is(err, errs.ErrUserOrPasswordInvalid) {
		t.Fatalf("revoked token still resolves, err = %v", err)
	}
	if err := e.users.RevokeToken(ctx, token); err != nil {
		t.Fatalf("second revoke should succeed, got %v", err)
	}
}

func TestUserService_RemoveUserByID_DropsTokens(t *testing.T) {
	t.Parallel()
	e := newEnv()
	ctx := context.Background()

	u, token, err := e.signup(ctx, "alice")
	if err != nil {
		t.Fatalf("signup: %v", err)
	}

	removed, err := e.users.RemoveUserByID(ctx, u.ID)
	if err != nil || !removed {
		t.Fatalf("RemoveUserByID = (%v, %v)", removed, err)
	}
	if _, err := e.users.GetUserByToken(ctx, token); !errors.Is(err, errs.ErrUserOrPasswordInvalid) {
		t.Fatalf("token survived user removal, err = %v", err)
	}

	removed, err = e.users.RemoveUserByID(ctx, u.ID)
	if err != nil || removed {
		t.Fatalf("second remove = (%v, %v), want (false, nil)", removed, err)
	}
}

func TestUserService_TransactionRollsBackOnError(t *testing.T) {
	t.Parallel()
	e := newEnv()
	ctx := context.Background()

	if _, _, err := e.signup(ctx, "alice"); err != nil {
		t.Fatalf("signup: %v", err)
	}

	boom := errors.New("boom")
	err := e.trx.Run(ctx, func(ctx context.Context, r *repository.Repos) error {
		if _, err := r.Users.CreateUser(ctx, "bob", "hash"); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("want boom, got %v", err)
	}

	users, err := e.users.GetAllUsers(ctx)
	if err != nil {
		t.Fatalf("GetAllUsers: %v", err)
	}
	if len(users) != 1 || users[0].Username != "alice" {
		t.Fatalf("rollback leaked state: %+v", users)
	}
}
