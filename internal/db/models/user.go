// Package models contains database model definitions.
package models

import (
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/rs/zerolog/log"
)

// EmployeeTier represents a user's membership tier within their department.
// Department grants carry AppliesToEmployees/AppliesToManagers flags; which
// tiers count as "manager" is configured, not hard-coded, so additional
// tiers can be introduced without code changes.
type EmployeeTier string

const (
	// TierEmployee is the base membership tier.
	TierEmployee EmployeeTier = "employee"
	// TierManager is a managing membership tier.
	TierManager EmployeeTier = "manager"
	// TierDirector is a directing membership tier.
	TierDirector EmployeeTier = "director"
)

// User represents a user account in the system. Users carry exactly one
// role reference plus a department membership; both feed permission
// resolution alongside any individual overrides.
type User struct {
	// ID is the unique identifier for the user.
	ID uint64 `gorm:"primaryKey"`
	// Active indicates whether the user account is active and can log in.
	Active bool
	// Locked indicates the account is administratively locked; locked
	// accounts fail every permission check.
	Locked bool
	// Username is the unique username for login.
	Username string `gorm:"unique;size:100;not null"`
	// Email is the user's email address.
	Email string `gorm:"size:255;not null"`
	// Password is the Argon2id hashed password.
	Password string `gorm:"size:255"`
	// FirstName is the user's first or given name.
	FirstName string `gorm:"size:100"`
	// LastName is the user's last or family name.
	LastName string `gorm:"size:100"`
	// RoleCode is the code of the role assigned to this user.
	RoleCode string `gorm:"size:100;not null;column:role_code"`
	// DepartmentID is the ID of the department the user belongs to, zero if none.
	DepartmentID uint `gorm:"column:department_id"`
	// EmployeeTier is the user's membership tier within their department.
	EmployeeTier EmployeeTier `gorm:"type:varchar(20);not null;default:'employee'"`
	// CreatedAt is the timestamp when the user was created (managed by GORM).
	CreatedAt time.Time
	// UpdatedAt is the timestamp when the user was last updated (managed by GORM).
	UpdatedAt time.Time
	// DeletedAt is the soft delete timestamp (nil if not deleted, managed by GORM).
	DeletedAt *time.Time
}

// TableName specifies the database table name for the User model.
// This overrides GORM's default pluralized table naming.
func (User) TableName() string {
	return "users"
}

// HashPassword hashes a plaintext password using the Argon2id algorithm.
// This function should be used when creating or updating user passwords.
// It uses the default Argon2id parameters for secure password hashing.
func HashPassword(password string) string {
	hashedPassword, err := argon2id.CreateHash(password, argon2id.DefaultParams)
	if err != nil {
		log.Fatal().Msgf("failed to hash password: %v", err)
	}

	return hashedPassword
}

// VerifyPassword verifies a plaintext password against the user's stored hashed password.
// It uses constant-time comparison to prevent timing attacks.
// Returns true if the password matches, false otherwise.
func (u *User) VerifyPassword(password string) bool {
	match, err := argon2id.ComparePasswordAndHash(password, u.Password)
	if err != nil {
		log.Error().Msgf("failed to verify password: %v", err)
		return false
	}

	return match
}
