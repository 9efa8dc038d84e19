// Package authz implements the dynamic permission resolution and
// context-switching engine. It merges a user's effective permission set
// from four sources (system role, department grants, individual
// overrides, and conditional grants), expands permission implication
// edges, caches resolved sets, and manages the permission contexts a
// session can switch between. Every decision is written through the
// audit recorder. All check paths fail closed: errors, missing data, and
// unverifiable conditions resolve to denial.
package authz
