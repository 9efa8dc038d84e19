package models

import "time"

// PermissionStatus represents the lifecycle state of a UserPermission record.
// Records move pending -> active on approval and active -> revoked on
// revocation; expired records are filtered by query, not deleted.
type PermissionStatus string

const (
	// PermissionStatusPending indicates the grant awaits approval and is
	// excluded from resolution.
	PermissionStatusPending PermissionStatus = "pending"
	// PermissionStatusActive indicates the record participates in resolution.
	PermissionStatusActive PermissionStatus = "active"
	// PermissionStatusRevoked indicates the record was explicitly revoked.
	PermissionStatusRevoked PermissionStatus = "revoked"
)

// PermissionSource represents how a UserPermission record came to exist.
type PermissionSource string

const (
	// PermissionSourceManual indicates an administrator created the record directly.
	PermissionSourceManual PermissionSource = "manual"
	// PermissionSourceTemplate indicates the record was applied from a role template.
	PermissionSourceTemplate PermissionSource = "template"
	// PermissionSourceDelegation indicates another user delegated the permission.
	PermissionSourceDelegation PermissionSource = "delegation"
)

// UserPermission represents an individual permission override for a user.
// Granted=true adds the code to the user's effective set; Granted=false is
// an explicit denial that always wins over role and department grants.
type UserPermission struct {
	// ID is the unique identifier for the record.
	ID uint64 `gorm:"primaryKey"`
	// UserID is the ID of the user the override applies to.
	UserID uint64 `gorm:"not null;index;column:user_id"`
	// PermissionCode is the code being granted or denied.
	PermissionCode string `gorm:"size:100;not null;column:permission_code"`
	// Granted selects between an explicit grant (true) and an explicit denial (false).
	Granted bool `gorm:"not null"`
	// Context optionally scopes the record to a named context (e.g., "department:3").
	// An empty context applies everywhere.
	Context string `gorm:"size:100"`
	// Conditions holds a JSON-encoded condition document evaluated against
	// the request context; empty means unconditional.
	Conditions string `gorm:"type:text"`
	// ExpiresAt is the optional expiry; expired records are ignored by
	// resolution but kept for audit.
	ExpiresAt *time.Time
	// Status is the lifecycle state of the record.
	Status PermissionStatus `gorm:"type:varchar(20);not null;default:'active'"`
	// Source records how the override was created.
	Source PermissionSource `gorm:"type:varchar(20);not null;default:'manual'"`
	// GrantedBy is the ID of the user who created the record.
	GrantedBy uint64 `gorm:"column:granted_by"`
	// CreatedAt is the timestamp when the record was created (managed by GORM).
	CreatedAt time.Time
	// UpdatedAt is the timestamp when the record was last updated (managed by GORM).
	UpdatedAt time.Time
}

// TableName specifies the database table name for the UserPermission model.
// This overrides GORM's default pluralized table naming.
func (UserPermission) TableName() string {
	return "user_permissions"
}
