// Package domain holds the users policy object: token generation and
// validation rules, password strength policy and credential hashing.
package domain

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"time"
	"unicode"

	"golang.org/x/crypto/bcrypt"

	"github.com/mvaz/chathub/internal/model"
)

// PasswordHasher is the one-way credential hashing capability. Abstract so
// the cost or algorithm can change without touching the services.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(hash, password string) bool
}

// BcryptHasher implements PasswordHasher with bcrypt.
type BcryptHasher struct{ Cost int }

// Hash returns the bcrypt hash of the password.
func (b BcryptHasher) Hash(password string) (string, error) {
	cost := b.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// Verify reports whether password matches the stored hash.
func (b BcryptHasher) Verify(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// UsersConfig carries the token policy. All fields are required; there are
// no assumed defaults.
type UsersConfig struct {
	TokenSizeInBytes int
	TokenTTL         time.Duration // absolute: measured from creation
	TokenRollingTTL  time.Duration // rolling: measured from last use
	MaxTokensPerUser int
}

// UsersDomain implements the pure policy rules over users and tokens.
type UsersDomain struct {
	hasher PasswordHasher
	cfg    UsersConfig
}

// NewUsersDomain constructs the policy object.
func NewUsersDomain(hasher PasswordHasher, cfg UsersConfig) *UsersDomain {
	return &UsersDomain{hasher: hasher, cfg: cfg}
}

// MaxTokensPerUser returns the per-user token cap.
func (d *UsersDomain) MaxTokensPerUser() int { return d.cfg.MaxTokensPerUser }

// GenerateTokenValue returns a new raw token value: TokenSizeInBytes of
// CSPRNG output, base64url encoded.
func (d *UsersDomain) GenerateTokenValue() (string, error) {
	b := make([]byte, d.cfg.TokenSizeInBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// CanBeToken is a structural check only: the value decodes to the expected
// byte length. It says nothing about the token being known or valid.
func (d *UsersDomain) CanBeToken(token string) bool {
	b, err := base64.URLEncoding.DecodeString(token)
	return err == nil && len(b) == d.cfg.TokenSizeInBytes
}

// CreatePasswordValidationInformation hashes a password for storage.
func (d *UsersDomain) CreatePasswordValidationInformation(password string) (string, error) {
	return d.hasher.Hash(password)
}

// ValidatePassword verifies a password against its stored hash. Plaintext
// is never compared directly.
func (d *UsersDomain) ValidatePassword(password, validationInfo string) bool {
	return d.hasher.Verify(validationInfo, password)
}

// IsSafePassword reports whether the password satisfies the strength
// policy: length in [8,12] with at least one uppercase, one lowercase,
// one digit and one non-alphanumeric rune.
func (d *UsersDomain) IsSafePassword(password string) bool {
	runes := []rune(password)
	if len(runes) < 8 || len(runes) > 12 {
		return false
	}
	var upper, lower, digit, special bool
	for _, r := range runes {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		default:
			special = true
		}
	}
	return upper && lower && digit && special
}

// CreateTokenValidationInformation returns the one-way transform of a raw
// token value used both to store and to look up tokens. Raw token bytes
// are never persisted or compared.
func (d *UsersDomain) CreateTokenValidationInformation(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base64.URLEncoding.EncodeToString(sum[:])
}

// GetTokenExpiration returns the earlier of the absolute and rolling
// limits: the token dies at whichever is hit first.
func (d *UsersDomain) GetTokenExpiration(token model.Token) time.Time {
	absolute := token.CreatedAt.Add(d.cfg.TokenTTL)
	rolling := token.LastUsedAt.Add(d.cfg.TokenRollingTTL)
	if absolute.Before(rolling) {
		return absolute
	}
	return rolling
}

// IsTokenTimeValid reports whether the token is inside both TTL windows at
// the given instant.
func (d *UsersDomain) IsTokenTimeValid(now time.Time, token model.Token) bool {
	return !token.CreatedAt.After(now) &&
		now.Sub(token.CreatedAt) <= d.cfg.TokenTTL &&
		now.Sub(token.LastUsedAt) <= d.cfg.TokenRollingTTL
}
