package authz

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/fleetgrid/fleetgrid/internal/db/models"
)

// Store is the read-only accessor over the persisted permission
// collections. Lookups that match nothing return empty results, never
// errors; transport failures surface as ErrStoreUnavailable so the
// resolver can fail closed.
type Store struct {
	db  *gorm.DB
	now func() time.Time
}

// NewStore creates a new store over the given database handle.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// User returns the identity record for a user, or ErrUserNotFound.
func (s *Store) User(userID uint64) (*models.User, error) {
	var user models.User

	err := s.db.First(&user, userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}

		return nil, fmt.Errorf("%w: load user %d: %v", ErrStoreUnavailable, userID, err)
	}

	return &user, nil
}

// RoleByCode returns the role with the given code, or nil when no such
// role exists.
func (s *Store) RoleByCode(code string) (*models.Role, error) {
	var role models.Role

	err := s.db.Where("code = ?", code).First(&role).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil //nolint:nilnil
		}

		return nil, fmt.Errorf("%w: load role %q: %v", ErrStoreUnavailable, code, err)
	}

	return &role, nil
}

// RolePermissions returns the permission codes directly assigned to a role.
func (s *Store) RolePermissions(roleCode string) ([]string, error) {
	var codes []string

	err := s.db.Model(&models.RolePermission{}).
		Where("role_code = ?", roleCode).
		Pluck("permission_code", &codes).Error
	if err != nil {
		return nil, fmt.Errorf("%w: load role permissions for %q: %v", ErrStoreUnavailable, roleCode, err)
	}

	return codes, nil
}

// RoleParents returns the codes of the roles a role inherits from, in
// declared order.
func (s *Store) RoleParents(roleCode string) ([]string, error) {
	var parents []string

	err := s.db.Model(&models.RoleInheritance{}).
		Where("role_code = ?", roleCode).
		Order("position").
		Pluck("parent_code", &parents).Error
	if err != nil {
		return nil, fmt.Errorf("%w: load role parents for %q: %v", ErrStoreUnavailable, roleCode, err)
	}

	return parents, nil
}

// DepartmentGrants returns the grants in force for a department.
func (s *Store) DepartmentGrants(departmentID uint) ([]models.DepartmentGrant, error) {
	var grants []models.DepartmentGrant

	err := s.db.Where("department_id = ? AND granted = ?", departmentID, true).
		Find(&grants).Error
	if err != nil {
		return nil, fmt.Errorf("%w: load department grants for %d: %v", ErrStoreUnavailable, departmentID, err)
	}

	return grants, nil
}

// UserPermissions returns the active, unexpired individual overrides for a
// user. Records scoped to a context are included only when the given scope
// matches; unscoped records always apply.
func (s *Store) UserPermissions(userID uint64, scope string) ([]models.UserPermission, error) {
	var perms []models.UserPermission

	query := s.db.Where("user_id = ? AND status = ?", userID, models.PermissionStatusActive).
		Where("expires_at IS NULL OR expires_at > ?", s.now())

	if scope == "" {
		query = query.Where("context = ''")
	} else {
		query = query.Where("context = '' OR context = ?", scope)
	}

	err := query.Find(&perms).Error
	if err != nil {
		return nil, fmt.Errorf("%w: load user permissions for %d: %v", ErrStoreUnavailable, userID, err)
	}

	return perms, nil
}

// Definitions returns the active catalog entries for the given codes.
// Unknown codes are simply absent from the result.
func (s *Store) Definitions(codes []string) ([]models.Permission, error) {
	if len(codes) == 0 {
		return nil, nil
	}

	var defs []models.Permission

	err := s.db.Where("code IN ? AND is_active = ?", codes, true).Find(&defs).Error
	if err != nil {
		return nil, fmt.Errorf("%w: load permission definitions: %v", ErrStoreUnavailable, err)
	}

	return defs, nil
}

// Implications returns the outgoing "implies" edges for the given codes.
func (s *Store) Implications(codes []string) ([]models.PermissionImplication, error) {
	if len(codes) == 0 {
		return nil, nil
	}

	var edges []models.PermissionImplication

	err := s.db.Where("permission_code IN ?", codes).Find(&edges).Error
	if err != nil {
		return nil, fmt.Errorf("%w: load permission implications: %v", ErrStoreUnavailable, err)
	}

	return edges, nil
}
