package models

import "time"

// Department represents an organizational unit that users belong to.
// Department membership drives a tier of permission grants via
// DepartmentGrant and provides the default permission context for
// its members.
type Department struct {
	// ID is the unique identifier for the department.
	ID uint `gorm:"primaryKey"`
	// Name is the display name of the department.
	Name string `gorm:"unique;size:100;not null"`
	// Description provides a human-readable explanation of the department's purpose.
	Description string `gorm:"size:255"`
	// CreatedAt is the timestamp when the department was created (managed by GORM).
	CreatedAt time.Time
	// UpdatedAt is the timestamp when the department was last updated (managed by GORM).
	UpdatedAt time.Time
}

// TableName specifies the database table name for the Department model.
// This overrides GORM's default pluralized table naming.
func (Department) TableName() string {
	return "departments"
}

// DepartmentGrant represents a permission granted to members of a department.
// The AppliesTo flags select which membership tier receives the grant;
// which employee tiers count as "manager" is a configuration point.
type DepartmentGrant struct {
	// ID is the unique identifier for the grant.
	ID uint `gorm:"primaryKey"`
	// DepartmentID is the ID of the department receiving the grant.
	DepartmentID uint `gorm:"not null;index;column:department_id"`
	// PermissionCode is the code of the granted permission.
	PermissionCode string `gorm:"size:100;not null;column:permission_code"`
	// AppliesToEmployees grants the permission to the employee tier.
	AppliesToEmployees bool `gorm:"default:true"`
	// AppliesToManagers grants the permission to the manager tiers.
	AppliesToManagers bool `gorm:"default:true"`
	// Granted indicates the grant is in force; revoked grants are flipped
	// to false rather than deleted.
	Granted bool `gorm:"default:true"`
	// Department is the associated department (loaded via foreign key).
	Department Department `gorm:"foreignKey:DepartmentID;constraint:OnDelete:CASCADE"`
	// CreatedAt is the timestamp when the grant was created (managed by GORM).
	CreatedAt time.Time
	// UpdatedAt is the timestamp when the grant was last updated (managed by GORM).
	UpdatedAt time.Time
}

// TableName specifies the database table name for the DepartmentGrant model.
// This overrides GORM's default pluralized table naming.
func (DepartmentGrant) TableName() string {
	return "department_grants"
}
