package models

// RolePermission represents the many-to-many relationship between roles and
// permissions. This junction table maps which permission codes are assigned
// to which roles; codes are used directly so resolution needs no extra join
// against the catalog.
type RolePermission struct {
	// RoleCode is the code of the role in this mapping.
	RoleCode string `gorm:"primaryKey;size:100;column:role_code"`
	// PermissionCode is the code of the permission in this mapping.
	PermissionCode string `gorm:"primaryKey;size:100;column:permission_code"`
}

// TableName specifies the database table name for the RolePermission model.
// This overrides GORM's default pluralized table naming.
func (RolePermission) TableName() string {
	return "role_permissions"
}
