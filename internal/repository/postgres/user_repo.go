package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/mvaz/chathub/internal/errs"
	"github.com/mvaz/chathub/internal/model"
	"github.com/mvaz/chathub/internal/repository"
)

// UserRepo implements UserRepository using PostgreSQL.
type UserRepo struct{ q Querier }

var _ repository.UserRepository = (*UserRepo)(nil)

// NewUserRepo constructs a user repository over the querier.
func NewUserRepo(q Querier) *UserRepo { return &UserRepo{q: q} }

// CreateUser inserts a new user row.
func (r *UserRepo) CreateUser(ctx context.Context, username, passwordValidation string) (*model.User, error) {
	const q = `
INSERT INTO users (username, password_validation)
VALUES ($1, $2)
RETURNING id`
	var id int64
	if err := r.q.QueryRow(ctx, q, username, passwordValidation).Scan(&id); err != nil {
		if isUniqueViolation(err) {
			return nil, errs.ErrAlreadyExists
		}
		return nil, err
	}
	return &model.User{ID: id, Username: username, PasswordValidation: passwordValidation}, nil
}

// FindByID selects a user by id.
func (r *UserRepo) FindByID(ctx context.Context, id int64) (*model.User, error) {
	const q = `SELECT id, username, password_validation FROM users WHERE id = $1`
	return r.scanUser(r.q.QueryRow(ctx, q, id))
}

// FindByUsername selects a user by username.
func (r *UserRepo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	const q = `SELECT id, username, password_validation FROM users WHERE username = $1`
	return r.scanUser(r.q.QueryRow(ctx, q, username))
}

func (r *UserRepo) scanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordValidation); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// FindAll selects every user.
func (r *UserRepo) FindAll(ctx context.Context) ([]model.User, error) {
	const q = `SELECT id, username, password_validation FROM users ORDER BY id`
	rows, err := r.q.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.User
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Username, &u.PasswordValidation); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// DeleteByID removes a user; token rows cascade via FK.
func (r *UserRepo) DeleteByID(ctx context.Context, id int64) (int64, error) {
	const q = `DELETE FROM users WHERE id = $1`
	tag, err := r.q.Exec(ctx, q, id)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// CreateToken evicts the user's least recently used tokens down to
// maxTokens-1 rows, then inserts the new token. Both statements run inside
// the caller's unit of work so the cap holds under concurrent logins.
func (r *UserRepo) CreateToken(ctx context.Context, token model.Token, maxTokens int) error {
	const del = `
DELETE FROM tokens
WHERE user_id = $1
  AND token_validation IN (
    SELECT token_validation FROM tokens WHERE user_id = $1
    ORDER BY last_used_at DESC OFFSET $2
  )`
	if _, err := r.q.Exec(ctx, del, token.UserID, maxTokens-1); err != nil {
		return err
	}

	const ins = `
INSERT INTO tokens (token_validation, user_id, created_at, last_used_at)
VALUES ($1, $2, $3, $4)`
	_, err := r.q.Exec(ctx, ins, token.ValidationInfo, token.UserID, token.CreatedAt, token.LastUsedAt)
	return err
}

// FindUserByTokenValidation joins users and tokens on the validation hash.
func (r *UserRepo) FindUserByTokenValidation(ctx context.Context, validationInfo string) (*model.User, *model.Token, error) {
	const q = `
SELECT u.id, u.username, u.password_validation,
       t.token_validation, t.user_id, t.created_at, t.last_used_at
FROM users u
INNER JOIN tokens t ON u.id = t.user_id
WHERE t.token_validation = $1`
	var u model.User
	var t model.Token
	err := r.q.QueryRow(ctx, q, validationInfo).Scan(
		&u.ID, &u.Username, &u.PasswordValidation,
		&t.ValidationInfo, &t.UserID, &t.CreatedAt, &t.LastUsedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, errs.ErrNotFound
		}
		return nil, nil, err
	}
	return &u, &t, nil
}

// UpdateTokenLastUsed refreshes the rolling-TTL anchor.
func (r *UserRepo) UpdateTokenLastUsed(ctx context.Context, validationInfo string, now time.Time) error {
	const q = `UPDATE tokens SET last_used_at = $2 WHERE token_validation = $1`
	tag, err := r.q.Exec(ctx, q, validationInfo, now)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// DeleteTokenByValidation removes a token row; zero rows is not an error.
func (r *UserRepo) DeleteTokenByValidation(ctx context.Context, validationInfo string) (int64, error) {
	const q = `DELETE FROM tokens WHERE token_validation = $1`
	tag, err := r.q.Exec(ctx, q, validationInfo)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// Clear removes all tokens and users.
func (r *UserRepo) Clear(ctx context.Context) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM tokens`); err != nil {
		return err
	}
	_, err := r.q.Exec(ctx, `DELETE FROM users`)
	return err
}
