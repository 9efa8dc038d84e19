package audit

import "errors"

var (
	// ErrChainIntegrityViolation is returned when chain verification
	// detects a tampered or missing entry. Compliance reporting halts on
	// it rather than silently continuing.
	ErrChainIntegrityViolation = errors.New("audit chain integrity violation")

	// ErrUnknownFramework is returned for a compliance framework the
	// recorder has no requirement catalog for.
	ErrUnknownFramework = errors.New("unknown compliance framework")

	// ErrRecordFailed is returned when an audit entry could not be
	// persisted. Originating operations must fail when they see it; a
	// permission decision without its audit record is not allowed to
	// succeed.
	ErrRecordFailed = errors.New("audit record write failed")
)
