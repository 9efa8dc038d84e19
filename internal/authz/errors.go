package authz

import "errors"

var (
	// ErrStoreUnavailable is returned when the backing store cannot be reached.
	// Permission checks treat it as a denial (fail-closed).
	ErrStoreUnavailable = errors.New("permission store unavailable")

	// ErrAlreadyGranted is returned when granting a permission the user
	// already holds an active grant for.
	ErrAlreadyGranted = errors.New("permission already granted")

	// ErrPermissionNotFound is returned when revoking or approving a
	// permission with no matching record.
	ErrPermissionNotFound = errors.New("permission record not found")

	// ErrValidationFailed is returned when a context switch is rejected by
	// the pluggable context validator. The wrapped error carries the reason.
	ErrValidationFailed = errors.New("context validation failed")

	// ErrContextNotFound is returned when switching to a context that does
	// not exist or belongs to another user.
	ErrContextNotFound = errors.New("permission context not found")

	// ErrContextExpired is returned when switching to a context past its expiry.
	ErrContextExpired = errors.New("permission context expired")

	// ErrUserNotFound is returned when the identity source has no record
	// for the requested user.
	ErrUserNotFound = errors.New("user not found")

	// ErrExpiryRequired is returned when creating a temporary context
	// without an expiry.
	ErrExpiryRequired = errors.New("temporary context requires an expiry")
)
