// Package service contains the application services orchestrating users,
// channels, invitations and messages over transactional repositories.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mvaz/chathub/internal/domain"
	"github.com/mvaz/chathub/internal/errs"
	"github.com/mvaz/chathub/internal/limiter"
	"github.com/mvaz/chathub/internal/model"
	"github.com/mvaz/chathub/internal/repository"
)

// UserService orchestrates signup, login, logout, token authentication and
// user removal. All authentication failures surface as
// errs.ErrUserOrPasswordInvalid so callers cannot enumerate usernames.
type UserService struct {
	trx    repository.TransactionManager
	users  *domain.UsersDomain
	lim    limiter.Limiter
	clock  func() time.Time
	logger *zap.Logger
}

// NewUserService constructs a user service. clock is the time source; pass
// time.Now outside of tests.
func NewUserService(trx repository.TransactionManager, users *domain.UsersDomain, lim limiter.Limiter, clock func() time.Time, logger *zap.Logger) *UserService {
	return &UserService{trx: trx, users: users, lim: lim, clock: clock, logger: logger}
}

// CreateUser registers a new account. Blank or weak passwords are rejected
// before any repository access.
func (s *UserService) CreateUser(ctx context.Context, username, password string) (*model.User, error) {
	if username == "" || password == "" {
		s.logger.Warn("signup with empty username or password")
		return nil, errs.ErrInsecurePassword
	}
	if !s.users.IsSafePassword(password) {
		s.logger.Warn("signup with insecure password", zap.String("username", username))
		return nil, errs.ErrInsecurePassword
	}

	validation, err := s.users.CreatePasswordValidationInformation(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	var created *model.User
	err = s.trx.Run(ctx, func(ctx context.Context, r *repository.Repos) error {
		if _, err := r.Users.FindByUsername(ctx, username); err == nil {
			return errs.ErrUsernameAlreadyUsed
		} else if !errors.Is(err, errs.ErrNotFound) {
			return err
		}
		u, err := r.Users.CreateUser(ctx, username, validation)
		if err != nil {
			if errors.Is(err, errs.ErrAlreadyExists) {
				return errs.ErrUsernameAlreadyUsed
			}
			return err
		}
		created = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("user created", zap.String("username", username), zap.Int64("id", created.ID))
	return created, nil
}

// CreateToken authenticates the user and issues a new bearer token. The
// raw token value is returned exactly once and never persisted; only its
// validation hash is stored. Creating a token beyond the per-user cap
// evicts the least recently used one inside the same unit of work.
func (s *UserService) CreateToken(ctx context.Context, username, password, ip string) (*model.TokenExternalInfo, error) {
	if username == "" || password == "" {
		return nil, errs.ErrUserOrPasswordInvalid
	}

	ipHash := limiter.HashIP(ip)
	allowed, _, err := s.lim.Allow(ctx, username, ipHash)
	if err != nil {
		return nil, fmt.Errorf("limiter: %w", err)
	}
	if !allowed {
		return nil, errs.ErrRateLimited
	}

	var info *model.TokenExternalInfo
	err = s.trx.Run(ctx, func(ctx context.Context, r *repository.Repos) error {
		user, err := r.Users.FindByUsername(ctx, username)
		if err != nil {
			if errors.Is(err, errs.ErrNotFound) {
				return errs.ErrUserOrPasswordInvalid
			}
			return err
		}
		if !s.users.ValidatePassword(password, user.PasswordValidation) {
			return errs.ErrUserOrPasswordInvalid
		}

		value, err := s.users.GenerateTokenValue()
		if err != nil {
			return fmt.Errorf("generate token: %w", err)
		}
		now := s.clock()
		token := model.Token{
			ValidationInfo: s.users.CreateTokenValidationInformation(value),
			UserID:         user.ID,
			CreatedAt:      now,
			LastUsedAt:     now,
		}
		if err := r.Users.CreateToken(ctx, token, s.users.MaxTokensPerUser()); err != nil {
			return err
		}
		info = &model.TokenExternalInfo{Value: value, ExpiresAt: s.users.GetTokenExpiration(token)}
		return nil
	})
	if err != nil {
		if errors.Is(err, errs.ErrUserOrPasswordInvalid) {
			s.logger.Warn("login with invalid credentials", zap.String("username", username))
			if blocked, _, ferr := s.lim.Failure(ctx, username, ipHash); ferr == nil && blocked {
				return nil, errs.ErrRateLimited
			}
		}
		return nil, err
	}

	_ = s.lim.Success(ctx, username, ipHash)
	s.logger.Info("token created", zap.String("username", username))
	return info, nil
}

// GetUserByToken resolves the user owning a valid token and refreshes its
// last-used time. An unknown, malformed or expired token yields
// errs.ErrUserOrPasswordInvalid; expired tokens are not deleted here.
func (s *UserService) GetUserByToken(ctx context.Context, token string) (*model.User, error) {
	if !s.users.CanBeToken(token) {
		return nil, errs.ErrUserOrPasswordInvalid
	}

	var user *model.User
	err := s.trx.Run(ctx, func(ctx context.Context, r *repository.Repos) error {
		validation := s.users.CreateTokenValidationInformation(token)
		u, tok, err := r.Users.FindUserByTokenValidation(ctx, validation)
		if err != nil {
			if errors.Is(err, errs.ErrNotFound) {
				return errs.ErrUserOrPasswordInvalid
			}
			return err
		}
		now := s.clock()
		if !s.users.IsTokenTimeValid(now, *tok) {
			return errs.ErrUserOrPasswordInvalid
		}
		if err := r.Users.UpdateTokenLastUsed(ctx, validation, now); err != nil {
			return err
		}
		user = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// RevokeToken removes a token. Idempotent: revoking an unknown token
// succeeds.
func (s *UserService) RevokeToken(ctx context.Context, token string) error {
	validation := s.users.CreateTokenValidationInformation(token)
	return s.trx.Run(ctx, func(ctx context.Context, r *repository.Repos) error {
		_, err := r.Users.DeleteTokenByValidation(ctx, validation)
		return err
	})
}

// RemoveUserByID deletes the user and all of its tokens. Reports whether a
// user row was removed.
func (s *UserService) RemoveUserByID(ctx context.Context, id int64) (bool, error) {
	var removed bool
	err := s.trx.Run(ctx, func(ctx context.Context, r *repository.Repos) error {
		n, err := r.Users.DeleteByID(ctx, id)
		removed = n > 0
		return err
	})
	return removed, err
}

// GetAllUsers lists every registered user.
func (s *UserService) GetAllUsers(ctx context.Context) ([]model.User, error) {
	var out []model.User
	err := s.trx.Run(ctx, func(ctx context.Context, r *repository.Repos) error {
		users, err := r.Users.FindAll(ctx)
		out = users
		return err
	})
	return out, err
}

// GetUserByID loads a user by id, or errs.ErrUserNotFound.
func (s *UserService) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	var out *model.User
	err := s.trx.Run(ctx, func(ctx context.Context, r *repository.Repos) error {
		u, err := r.Users.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, errs.ErrNotFound) {
				return errs.ErrUserNotFound
			}
			return err
		}
		out = u
		return nil
	})
	return out, err
}
