// Package auth provides local credential verification and session
// issuance. Sessions produced here are the session identifiers the
// context switcher keys its per-session active context on.
//
// Repeated password failures lock the account; a locked account fails
// every permission check until an administrator clears the flag.
package auth
