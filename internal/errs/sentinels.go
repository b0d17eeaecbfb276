// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Infrastructure sentinels shared by repositories.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates a unique constraint violation (e.g., username taken).
	ErrAlreadyExists = errors.New("already exists")

	// ErrRateLimited indicates temporary login lock due to rate limiting.
	ErrRateLimited = errors.New("rate limited")
)

// User and token errors.
var (
	// ErrUsernameAlreadyUsed indicates the username is taken.
	ErrUsernameAlreadyUsed = errors.New("username already used")

	// ErrInsecurePassword indicates the password fails the strength policy.
	ErrInsecurePassword = errors.New("insecure password")

	// ErrUserOrPasswordInvalid covers unknown user, wrong password and
	// bad or expired tokens. Deliberately coarse so callers cannot tell
	// which part failed.
	ErrUserOrPasswordInvalid = errors.New("user or password are invalid")
)

// Channel errors.
var (
	ErrChannelNotFound      = errors.New("channel not found")
	ErrUserNotFound         = errors.New("user not found")
	ErrUserNotOwner         = errors.New("user is not the channel owner")
	ErrUserAlreadyOnChannel = errors.New("user is already on channel")
	ErrUserNotOnChannel     = errors.New("user is not on channel")
)

// Invitation errors.
var (
	ErrInviterNotFound = errors.New("inviter not found")
	ErrInviteeNotFound = errors.New("invitee not found")

	// ErrInvitationNotFound is returned both for missing and for already
	// used invitations so the caller cannot probe which it was.
	ErrInvitationNotFound = errors.New("invitation not found")
)

// Message errors.
var (
	ErrMessageNotFound    = errors.New("message not found")
	ErrUserNotParticipant = errors.New("user is not a participant")
	ErrNoWritePermission  = errors.New("user does not have write permission")
)
