package models

import "time"

// AuditResult represents the outcome recorded in an audit entry.
type AuditResult string

const (
	// AuditResultSuccess indicates the audited operation completed.
	AuditResultSuccess AuditResult = "SUCCESS"
	// AuditResultFailure indicates the audited operation failed.
	AuditResultFailure AuditResult = "FAILURE"
	// AuditResultDenied indicates an authorization decision denied the operation.
	AuditResultDenied AuditResult = "DENIED"
)

// AuditEntry represents one record in the per-user hash-chained audit log.
// Each entry embeds the hash of its predecessor for the same user, so any
// retroactive modification is detectable by recomputing the chain. Entries
// are append-only and never deleted; the retention policy moves old entries
// to the archive table.
type AuditEntry struct {
	// ID is the unique identifier for the entry.
	ID string `gorm:"primaryKey;size:40"`
	// UserID is the ID of the user the decision concerns.
	UserID uint64 `gorm:"not null;index;column:user_id"`
	// Sequence is the position of the entry in the user's chain, starting at 1.
	Sequence uint64 `gorm:"not null;column:sequence"`
	// SessionID identifies the session the decision was made in, if any.
	SessionID string `gorm:"size:40"`
	// Action is the audited operation (e.g., "permission.grant", "context.switch").
	Action string `gorm:"size:100;not null"`
	// Resource is the permission code or context the action targeted.
	Resource string `gorm:"size:100"`
	// PerformedBy is the ID of the user who performed the action.
	PerformedBy uint64 `gorm:"column:performed_by"`
	// Result is the recorded outcome.
	Result AuditResult `gorm:"type:varchar(10);not null"`
	// Timestamp is when the decision was made.
	Timestamp time.Time `gorm:"not null;index"`
	// PreviousHash is the hash of the user's preceding entry, empty for the first.
	PreviousHash string `gorm:"size:64;column:previous_hash"`
	// Hash is the digest of this entry's canonical content plus PreviousHash.
	Hash string `gorm:"size:64;not null"`
	// EncryptedFields holds a JSON-encoded list of metadata field names
	// stored encrypted.
	EncryptedFields string `gorm:"type:text;column:encrypted_fields"`
	// Metadata holds JSON-encoded contextual detail for the decision.
	Metadata string `gorm:"type:text"`
}

// TableName specifies the database table name for the AuditEntry model.
// This overrides GORM's default pluralized table naming.
func (AuditEntry) TableName() string {
	return "audit_entries"
}

// ArchivedAuditEntry mirrors AuditEntry in the archive table. The retention
// policy moves entries here once they age past the compliance window; they
// remain queryable and are never deleted.
type ArchivedAuditEntry struct {
	AuditEntry
	// ArchivedAt is when the retention policy moved the entry.
	ArchivedAt time.Time `gorm:"not null"`
}

// TableName specifies the database table name for the ArchivedAuditEntry model.
// This overrides GORM's default pluralized table naming.
func (ArchivedAuditEntry) TableName() string {
	return "audit_entries_archive"
}
