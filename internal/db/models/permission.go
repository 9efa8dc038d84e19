package models

import "time"

// Permission represents a catalog entry in the authorization system.
// Permissions define granular access rights to resources and actions.
// They are assigned to roles, granted per department, or granted/denied
// per user, and may imply further permissions via PermissionImplication.
type Permission struct {
	// ID is the unique identifier for the permission.
	ID uint `gorm:"primaryKey"`
	// Code is the unique permission identifier in resource.action format (e.g., "invoice.create").
	// A code ending in "*" acts as a wildcard prefix (e.g., "invoice.*").
	Code string `gorm:"unique;size:100;not null"`
	// Category groups related permissions for administration UIs (e.g., "billing").
	Category string `gorm:"size:100"`
	// Resource is the resource this permission applies to (e.g., "invoice", "vehicle").
	Resource string `gorm:"size:100;not null"`
	// Action is the action allowed on the resource (e.g., "create", "read", "approve").
	Action string `gorm:"size:50;not null"`
	// Description provides a human-readable explanation of what this permission grants.
	Description string `gorm:"size:255"`
	// IsActive indicates whether the permission participates in resolution.
	// Catalog entries are never deleted, only deactivated.
	IsActive bool `gorm:"default:true"`
	// CreatedAt is the timestamp when the permission was created (managed by GORM).
	CreatedAt time.Time
	// UpdatedAt is the timestamp when the permission was last updated (managed by GORM).
	UpdatedAt time.Time
}

// TableName specifies the database table name for the Permission model.
// This overrides GORM's default pluralized table naming.
func (Permission) TableName() string {
	return "permissions"
}

// PermissionImplication represents a directed "implies" edge between two
// permission codes. Holding the source permission implicitly grants the
// implied permission; the dependency resolver expands these edges to a
// fixed point during resolution.
type PermissionImplication struct {
	// PermissionCode is the code of the permission holding the edge.
	PermissionCode string `gorm:"primaryKey;size:100;column:permission_code"`
	// ImpliesCode is the code of the permission granted by implication.
	ImpliesCode string `gorm:"primaryKey;size:100;column:implies_code"`
}

// TableName specifies the database table name for the PermissionImplication model.
// This overrides GORM's default pluralized table naming.
func (PermissionImplication) TableName() string {
	return "permission_implications"
}
