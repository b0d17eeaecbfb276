// Package model defines domain entities used by services and repositories.
package model

import "time"

// ChannelKind distinguishes publicly listed channels from invite-only ones.
type ChannelKind string

const (
	ChannelPublic  ChannelKind = "PUBLIC"
	ChannelPrivate ChannelKind = "PRIVATE"
)

// Permission is the access level a participant holds in a channel.
type Permission string

const (
	ReadOnly  Permission = "READ_ONLY"
	ReadWrite Permission = "READ_WRITE"
)

// CanWrite reports whether the permission allows posting messages.
func (p Permission) CanWrite() bool { return p == ReadWrite }

// User is an account. PasswordValidation holds the one-way credential hash;
// the plaintext password is never stored.
type User struct {
	ID                 int64
	Username           string
	PasswordValidation string
}

// Token is a persisted bearer-token record. Only the one-way validation
// hash of the raw token value is stored; the raw value is handed to the
// caller exactly once, at creation.
type Token struct {
	ValidationInfo string
	UserID         int64
	CreatedAt      time.Time
	LastUsedAt     time.Time
}

// TokenExternalInfo is returned to the caller on login: the raw token value
// plus its computed expiration.
type TokenExternalInfo struct {
	Value     string
	ExpiresAt time.Time
}

// Channel is a messaging channel. The owner is fixed at creation.
type Channel struct {
	ID      int64
	Name    string
	OwnerID int64
	Kind    ChannelKind
}

// Participant is a (channel, user) membership record with an access level.
// At most one participant exists per (channel, user) pair.
type Participant struct {
	ID         int64
	ChannelID  int64
	UserID     int64
	Username   string
	Permission Permission
}

// Invitation grants channel access. InviteeID is zero for an open
// invitation, redeemable by whoever presents the code; it is bound on
// acceptance. A used invitation is terminal.
type Invitation struct {
	ID         int64
	Code       string
	InviterID  int64
	InviteeID  int64
	ChannelID  int64
	Used       bool
	Permission Permission
}

// Open reports whether the invitation is redeemable by code rather than
// targeted at a specific user.
func (i Invitation) Open() bool { return i.InviteeID == 0 }

// Message is immutable once created; there is no edit operation.
type Message struct {
	ID        int64
	UserID    int64
	Username  string
	ChannelID int64
	Content   string
	Time      time.Time
}
