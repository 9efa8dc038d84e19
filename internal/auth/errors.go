package auth

import "errors"

var (
	// ErrUserNotFound is returned when no account matches the username.
	ErrUserNotFound = errors.New("user not found")

	// ErrInvalidPassword is returned when the password does not match.
	ErrInvalidPassword = errors.New("invalid password")

	// ErrUserAccountDisabled is returned for inactive accounts.
	ErrUserAccountDisabled = errors.New("user account is disabled")

	// ErrUserAccountLocked is returned for administratively locked
	// accounts, including accounts locked by repeated login failures.
	ErrUserAccountLocked = errors.New("user account is locked")

	// ErrSessionNotFound is returned for unknown or expired sessions.
	ErrSessionNotFound = errors.New("session not found")
)
