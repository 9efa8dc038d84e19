package authz

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// Request carries the per-request context a caller supplies with a
// permission check. All fields are optional; predicates that reference an
// absent field do not match. Extra holds fields the engine does not
// interpret but which participate in the cache signature.
type Request struct {
	// Amount is the monetary amount of the operation, if any.
	Amount *float64 `json:"amount,omitempty"`
	// Location is the caller's location identifier, if known.
	Location string `json:"location,omitempty"`
	// DepartmentID is the department the operation is scoped to, if any.
	DepartmentID *uint `json:"departmentId,omitempty"`
	// Timestamp overrides the evaluation time for time-restricted grants;
	// when nil the server clock is used.
	Timestamp *time.Time `json:"timestamp,omitempty"`
	// Extra carries uninterpreted context fields for forward compatibility.
	Extra map[string]string `json:"extra,omitempty"`
}

// Signature returns a stable digest of the request content, used as the
// context part of effective-set cache keys. Two requests with the same
// recognized fields and extra map produce the same signature.
func (r *Request) Signature() string {
	if r == nil {
		r = &Request{}
	}

	// json.Marshal emits struct fields in declaration order and map keys
	// sorted, so the digest is deterministic.
	raw, err := json.Marshal(r)
	if err != nil {
		// Request contains only marshalable types; keep a distinct
		// signature anyway rather than colliding with the empty request.
		return "unmarshalable"
	}

	sum := sha256.Sum256(raw)

	return hex.EncodeToString(sum[:8])
}

// ContextScope derives the override scope string matched against
// UserPermission.Context records (e.g. "department:3"). An empty scope
// matches only unscoped overrides.
func (r *Request) ContextScope() string {
	if r == nil || r.DepartmentID == nil {
		return ""
	}

	return fmt.Sprintf("department:%d", *r.DepartmentID)
}
