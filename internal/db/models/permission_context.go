package models

import (
	"encoding/json"
	"time"
)

// ContextType represents the kind of permission context.
type ContextType string

const (
	// ContextTypeDepartment scopes a session to a department membership.
	ContextTypeDepartment ContextType = "department"
	// ContextTypeProject scopes a session to a project membership.
	ContextTypeProject ContextType = "project"
	// ContextTypeTemporary is a self-expiring elevation context.
	ContextTypeTemporary ContextType = "temporary"
)

// PermissionContext represents a named working scope a session can switch
// into. While a context is active only the permission codes it lists are
// usable, even if the user is granted more globally. Temporary contexts are
// created by elevation workflows and must carry an expiry.
type PermissionContext struct {
	// ID is the unique identifier for the context.
	ID string `gorm:"primaryKey;size:40"`
	// UserID is the ID of the user owning the context.
	UserID uint64 `gorm:"not null;index;column:user_id"`
	// Type is the kind of context (department, project, or temporary).
	Type ContextType `gorm:"type:varchar(20);not null"`
	// Name is the display name of the context.
	Name string `gorm:"size:100;not null"`
	// Permissions holds the JSON-encoded list of permission codes usable
	// while this context is active. Codes may be wildcards.
	Permissions string `gorm:"type:text"`
	// IsDefault marks the context a session starts in.
	IsDefault bool `gorm:"default:false"`
	// RequiresValidation forces the pluggable context validator to run on
	// every switch into this context.
	RequiresValidation bool `gorm:"default:false"`
	// ExpiresAt is the expiry of the context; required for temporary contexts.
	ExpiresAt *time.Time
	// Metadata holds a JSON-encoded opaque key/value bag available to
	// authorization decisions.
	Metadata string `gorm:"type:text"`
	// CreatedAt is the timestamp when the context was created (managed by GORM).
	CreatedAt time.Time
	// UpdatedAt is the timestamp when the context was last updated (managed by GORM).
	UpdatedAt time.Time
}

// TableName specifies the database table name for the PermissionContext model.
// This overrides GORM's default pluralized table naming.
func (PermissionContext) TableName() string {
	return "permission_contexts"
}

// Expired reports whether the context has passed its expiry at the given time.
func (c *PermissionContext) Expired(now time.Time) bool {
	return c.ExpiresAt != nil && !c.ExpiresAt.After(now)
}

// PermissionCodes decodes the Permissions column. An empty or malformed
// column yields an empty slice, never an error; a context that lists
// nothing permits nothing.
func (c *PermissionContext) PermissionCodes() []string {
	if c.Permissions == "" {
		return nil
	}

	var codes []string
	if err := json.Unmarshal([]byte(c.Permissions), &codes); err != nil {
		return nil
	}

	return codes
}

// SetPermissionCodes encodes the given codes into the Permissions column.
func (c *PermissionContext) SetPermissionCodes(codes []string) error {
	raw, err := json.Marshal(codes)
	if err != nil {
		return err
	}

	c.Permissions = string(raw)

	return nil
}
