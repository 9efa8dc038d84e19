package models

import "time"

// Role represents a role in the role-based access control (RBAC) system.
// Roles are collections of permissions that can be assigned to users and
// may inherit the permissions of other roles through RoleInheritance.
// Examples include "employee", "manager", and "admin" roles.
type Role struct {
	// ID is the unique identifier for the role.
	ID uint `gorm:"primaryKey"`
	// Code is the unique name of the role (e.g., "admin", "employee").
	Code string `gorm:"unique;size:100;not null"`
	// Description provides a human-readable description of the role's purpose.
	Description string `gorm:"size:255"`
	// Level is the numeric rank of the role for hierarchy comparisons;
	// higher values outrank lower ones.
	Level int `gorm:"default:0"`
	// IsUniversal indicates that holders of this role pass every permission
	// check unconditionally. Checked explicitly at the top of HasPermission
	// so the bypass is auditable and independent of role naming.
	IsUniversal bool `gorm:"default:false"`
	// IsSystem indicates if this is a system role that cannot be deleted.
	IsSystem bool `gorm:"default:false"`
	// IsActive indicates whether the role participates in resolution.
	IsActive bool `gorm:"default:true"`
	// CreatedAt is the timestamp when the role was created (managed by GORM).
	CreatedAt time.Time
	// UpdatedAt is the timestamp when the role was last updated (managed by GORM).
	UpdatedAt time.Time
}

// TableName specifies the database table name for the Role model.
// This overrides GORM's default pluralized table naming.
func (Role) TableName() string {
	return "roles"
}

// RoleInheritance represents the ordered parent roles of a role. The
// permissions of each parent are unioned into the child during resolution,
// in Position order.
type RoleInheritance struct {
	// RoleCode is the code of the inheriting (child) role.
	RoleCode string `gorm:"primaryKey;size:100;column:role_code"`
	// ParentCode is the code of the role whose permissions are inherited.
	ParentCode string `gorm:"primaryKey;size:100;column:parent_code"`
	// Position orders parents for deterministic resolution.
	Position int `gorm:"not null;default:0"`
}

// TableName specifies the database table name for the RoleInheritance model.
// This overrides GORM's default pluralized table naming.
func (RoleInheritance) TableName() string {
	return "role_inheritances"
}
