package authz

import (
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/fleetgrid/fleetgrid/internal/audit"
	"github.com/fleetgrid/fleetgrid/internal/db/models"
)

// setupTestDB creates an in-memory SQLite database for testing.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err, "failed to create test database")

	err = db.AutoMigrate(
		&models.User{},
		&models.Role{},
		&models.RolePermission{},
		&models.RoleInheritance{},
		&models.Permission{},
		&models.PermissionImplication{},
		&models.Department{},
		&models.DepartmentGrant{},
		&models.UserPermission{},
		&models.PermissionContext{},
		&models.AuditEntry{},
		&models.ArchivedAuditEntry{},
	)
	require.NoError(t, err, "failed to migrate test database")

	return db
}

// newTestResolver builds a resolver over a fresh database.
func newTestResolver(t *testing.T) (*gorm.DB, *Resolver) {
	t.Helper()

	db := setupTestDB(t)
	resolver := NewResolver(db, NewStore(db), NewMemoryCache(), audit.NewRecorder(db), Options{})

	return db, resolver
}

// seedRole creates a role with direct permissions and optional parents.
func seedRole(t *testing.T, db *gorm.DB, role models.Role, permissions []string, parents ...string) {
	t.Helper()

	role.IsActive = true
	require.NoError(t, db.Create(&role).Error)

	for _, code := range permissions {
		require.NoError(t, db.Create(&models.RolePermission{
			RoleCode:       role.Code,
			PermissionCode: code,
		}).Error)
	}

	for i, parent := range parents {
		require.NoError(t, db.Create(&models.RoleInheritance{
			RoleCode:   role.Code,
			ParentCode: parent,
			Position:   i,
		}).Error)
	}
}

// seedUser creates an active user.
func seedUser(t *testing.T, db *gorm.DB, id uint64, roleCode string, departmentID uint, tier models.EmployeeTier) {
	t.Helper()

	require.NoError(t, db.Create(&models.User{
		ID:           id,
		Active:       true,
		Username:     "user",
		Email:        "user@example.com",
		RoleCode:     roleCode,
		DepartmentID: departmentID,
		EmployeeTier: tier,
	}).Error)
}

func TestResolveEffectiveMergeOrder(t *testing.T) {
	db, resolver := newTestResolver(t)

	// role employee grants quote.read and quote.create
	seedRole(t, db, models.Role{Code: "employee"}, []string{"quote.read", "quote.create"})

	// department grant adds client.read for the employee tier
	require.NoError(t, db.Create(&models.Department{ID: 1, Name: "Service"}).Error)
	require.NoError(t, db.Create(&models.DepartmentGrant{
		DepartmentID:       1,
		PermissionCode:     "client.read",
		AppliesToEmployees: true,
		Granted:            true,
	}).Error)

	seedUser(t, db, 1, "employee", 1, models.TierEmployee)

	// user override denies quote.create and grants report.read
	require.NoError(t, db.Create(&models.UserPermission{
		UserID: 1, PermissionCode: "quote.create", Granted: false,
		Status: models.PermissionStatusActive,
	}).Error)
	require.NoError(t, db.Create(&models.UserPermission{
		UserID: 1, PermissionCode: "report.read", Granted: true,
		Status: models.PermissionStatusActive,
	}).Error)

	effective, err := resolver.ResolveEffective(1, nil)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"quote.read", "client.read", "report.read"}, effective,
		"denied quote.create must be absent despite the role grant")
}

func TestResolveEffectiveDenialWinsOverExpansion(t *testing.T) {
	db, resolver := newTestResolver(t)

	seedRole(t, db, models.Role{Code: "employee"}, []string{"invoice.void"})
	seedUser(t, db, 1, "employee", 0, models.TierEmployee)

	// invoice.void implies invoice.read, but the user is explicitly denied it
	require.NoError(t, db.Create(&models.PermissionImplication{
		PermissionCode: "invoice.void",
		ImpliesCode:    "invoice.read",
	}).Error)
	require.NoError(t, db.Create(&models.UserPermission{
		UserID: 1, PermissionCode: "invoice.read", Granted: false,
		Status: models.PermissionStatusActive,
	}).Error)

	effective, err := resolver.ResolveEffective(1, nil)
	require.NoError(t, err)

	assert.Contains(t, effective, "invoice.void")
	assert.NotContains(t, effective, "invoice.read",
		"an explicit denial must survive dependency expansion")
}

func TestResolveEffectiveRoleInheritance(t *testing.T) {
	db, resolver := newTestResolver(t)

	seedRole(t, db, models.Role{Code: "employee"}, []string{"quote.read"})
	seedRole(t, db, models.Role{Code: "manager"}, []string{"quote.approve"}, "employee")
	seedUser(t, db, 1, "manager", 0, models.TierManager)

	effective, err := resolver.ResolveEffective(1, nil)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"quote.approve", "quote.read"}, effective)
}

func TestResolveEffectiveInheritanceCycleTerminates(t *testing.T) {
	db, resolver := newTestResolver(t)

	seedRole(t, db, models.Role{Code: "a"}, []string{"x.read"}, "b")
	seedRole(t, db, models.Role{Code: "b"}, []string{"y.read"}, "a")
	seedUser(t, db, 1, "a", 0, models.TierEmployee)

	effective, err := resolver.ResolveEffective(1, nil)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"x.read", "y.read"}, effective)
}

func TestResolveEffectiveDepartmentTiers(t *testing.T) {
	db, resolver := newTestResolver(t)

	seedRole(t, db, models.Role{Code: "employee"}, nil)

	require.NoError(t, db.Create(&models.Department{ID: 1, Name: "Service"}).Error)
	require.NoError(t, db.Create(&models.DepartmentGrant{
		DepartmentID: 1, PermissionCode: "report.read",
		AppliesToEmployees: false, AppliesToManagers: true, Granted: true,
	}).Error)
	require.NoError(t, db.Create(&models.DepartmentGrant{
		DepartmentID: 1, PermissionCode: "quote.create",
		AppliesToEmployees: true, AppliesToManagers: false, Granted: true,
	}).Error)

	seedUser(t, db, 1, "employee", 1, models.TierEmployee)

	require.NoError(t, db.Create(&models.User{
		ID: 2, Active: true, Username: "director", Email: "d@example.com",
		RoleCode: "employee", DepartmentID: 1, EmployeeTier: models.TierDirector,
	}).Error)

	employeeSet, err := resolver.ResolveEffective(1, nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"quote.create"}, employeeSet)

	directorSet, err := resolver.ResolveEffective(2, nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"report.read"}, directorSet,
		"director tier counts as manager by default")
}

func TestResolveEffectiveSkipsInactiveAndLockedUsers(t *testing.T) {
	db, resolver := newTestResolver(t)

	seedRole(t, db, models.Role{Code: "employee"}, []string{"quote.read"})

	require.NoError(t, db.Create(&models.User{
		ID: 1, Active: false, Username: "inactive", Email: "i@example.com", RoleCode: "employee",
	}).Error)
	require.NoError(t, db.Create(&models.User{
		ID: 2, Active: true, Locked: true, Username: "locked", Email: "l@example.com", RoleCode: "employee",
	}).Error)

	for _, userID := range []uint64{1, 2} {
		effective, err := resolver.ResolveEffective(userID, nil)
		require.NoError(t, err)
		assert.Empty(t, effective)
	}
}

func TestResolveEffectiveIgnoresExpiredAndPendingOverrides(t *testing.T) {
	db, resolver := newTestResolver(t)

	seedRole(t, db, models.Role{Code: "employee"}, nil)
	seedUser(t, db, 1, "employee", 0, models.TierEmployee)

	past := time.Now().Add(-time.Hour)

	require.NoError(t, db.Create(&models.UserPermission{
		UserID: 1, PermissionCode: "expired.grant", Granted: true,
		Status: models.PermissionStatusActive, ExpiresAt: &past,
	}).Error)
	require.NoError(t, db.Create(&models.UserPermission{
		UserID: 1, PermissionCode: "pending.grant", Granted: true,
		Status: models.PermissionStatusPending,
	}).Error)
	require.NoError(t, db.Create(&models.UserPermission{
		UserID: 1, PermissionCode: "revoked.grant", Granted: true,
		Status: models.PermissionStatusRevoked,
	}).Error)

	effective, err := resolver.ResolveEffective(1, nil)
	require.NoError(t, err)
	assert.Empty(t, effective)
}

func TestHasPermissionWildcard(t *testing.T) {
	db, resolver := newTestResolver(t)

	seedRole(t, db, models.Role{Code: "employee"}, []string{"invoice.*"})
	seedUser(t, db, 1, "employee", 0, models.TierEmployee)

	assert.True(t, resolver.HasPermission(1, "invoice.create", nil))
	assert.True(t, resolver.HasPermission(1, "invoice.read", nil))
	assert.False(t, resolver.HasPermission(1, "payment.process", nil))
}

func TestHasPermissionUniversalRole(t *testing.T) {
	db, resolver := newTestResolver(t)

	seedRole(t, db, models.Role{Code: "admin", IsUniversal: true}, nil)
	seedUser(t, db, 1, "admin", 0, models.TierEmployee)

	assert.True(t, resolver.HasPermission(1, "anything.at.all", nil))
}

func TestHasPermissionUnknownUserFailsClosed(t *testing.T) {
	_, resolver := newTestResolver(t)

	assert.False(t, resolver.HasPermission(99, "quote.read", nil))
}

func TestHasPermissionConditionalGrant(t *testing.T) {
	db, resolver := newTestResolver(t)

	seedRole(t, db, models.Role{Code: "employee"}, nil)
	seedUser(t, db, 1, "employee", 0, models.TierEmployee)

	conditions := &Conditions{MaxAmount: floatPtr(500)}
	raw, err := conditions.Encode()
	require.NoError(t, err)

	require.NoError(t, db.Create(&models.UserPermission{
		UserID: 1, PermissionCode: "payment.process", Granted: true,
		Conditions: raw, Status: models.PermissionStatusActive,
	}).Error)

	assert.True(t, resolver.HasPermission(1, "payment.process", &Request{Amount: floatPtr(100)}))
	assert.False(t, resolver.HasPermission(1, "payment.process", &Request{Amount: floatPtr(900)}))
	assert.False(t, resolver.HasPermission(1, "payment.process", &Request{}),
		"a conditional grant must not apply when the amount is unverifiable")
}

func TestGrantPermissionLifecycle(t *testing.T) {
	db, resolver := newTestResolver(t)

	seedRole(t, db, models.Role{Code: "employee"}, nil)
	seedUser(t, db, 1, "employee", 0, models.TierEmployee)

	record, err := resolver.GrantPermission(1, "report.read", GrantOptions{GrantedBy: 42})
	require.NoError(t, err)
	assert.Equal(t, models.PermissionStatusActive, record.Status)

	// duplicate grant conflicts
	_, err = resolver.GrantPermission(1, "report.read", GrantOptions{GrantedBy: 42})
	require.ErrorIs(t, err, ErrAlreadyGranted)

	effective, err := resolver.ResolveEffective(1, nil)
	require.NoError(t, err)
	assert.Contains(t, effective, "report.read")

	require.NoError(t, resolver.RevokePermission(1, "report.read", 42))

	// revoking again is a conflict
	err = resolver.RevokePermission(1, "report.read", 42)
	require.ErrorIs(t, err, ErrPermissionNotFound)

	effective, err = resolver.ResolveEffective(1, nil)
	require.NoError(t, err)
	assert.NotContains(t, effective, "report.read",
		"the cache must not serve the pre-revocation set")
}

func TestGrantPermissionApprovalFlow(t *testing.T) {
	db, resolver := newTestResolver(t)

	seedRole(t, db, models.Role{Code: "employee"}, nil)
	seedUser(t, db, 1, "employee", 0, models.TierEmployee)

	record, err := resolver.GrantPermission(1, "payment.refund", GrantOptions{
		GrantedBy:        42,
		RequiresApproval: true,
	})
	require.NoError(t, err)
	assert.Equal(t, models.PermissionStatusPending, record.Status)

	effective, err := resolver.ResolveEffective(1, nil)
	require.NoError(t, err)
	assert.NotContains(t, effective, "payment.refund",
		"pending grants bypass resolution until approved")

	require.NoError(t, resolver.ApprovePermission(1, "payment.refund", 42))

	effective, err = resolver.ResolveEffective(1, nil)
	require.NoError(t, err)
	assert.Contains(t, effective, "payment.refund")
}

func TestGrantPermissionRejectsInvalidConditions(t *testing.T) {
	db, resolver := newTestResolver(t)

	seedRole(t, db, models.Role{Code: "employee"}, nil)
	seedUser(t, db, 1, "employee", 0, models.TierEmployee)

	_, err := resolver.GrantPermission(1, "payment.process", GrantOptions{
		Conditions: &Conditions{TimeRestrictions: &TimeRestrictions{StartHour: intPtr(25)}},
	})
	require.Error(t, err)
}

func TestGrantAndRevokeAreAudited(t *testing.T) {
	db, resolver := newTestResolver(t)

	seedRole(t, db, models.Role{Code: "employee"}, nil)
	seedUser(t, db, 1, "employee", 0, models.TierEmployee)

	_, err := resolver.GrantPermission(1, "report.read", GrantOptions{GrantedBy: 42})
	require.NoError(t, err)
	require.NoError(t, resolver.RevokePermission(1, "report.read", 42))

	var entries []models.AuditEntry
	require.NoError(t, db.Where("user_id = ?", 1).Order("sequence ASC").Find(&entries).Error)

	require.Len(t, entries, 2)
	assert.Equal(t, ActionPermissionGrant, entries[0].Action)
	assert.Equal(t, ActionPermissionRevoke, entries[1].Action)
	assert.Equal(t, entries[0].Hash, entries[1].PreviousHash)
}

func TestCacheInvalidationOnMutation(t *testing.T) {
	db, resolver := newTestResolver(t)

	seedRole(t, db, models.Role{Code: "employee"}, []string{"quote.read"})
	seedUser(t, db, 1, "employee", 0, models.TierEmployee)

	// populate the cache
	first, err := resolver.ResolveEffective(1, nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"quote.read"}, first)

	_, err = resolver.GrantPermission(1, "report.read", GrantOptions{})
	require.NoError(t, err)

	second, err := resolver.ResolveEffective(1, nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"quote.read", "report.read"}, second,
		"the mutation must be visible immediately after the grant")
}

// revokeBeforeWriteCache runs a mutation right before the first cache
// write lands, modelling a revocation committing while a resolution is
// still in flight.
type revokeBeforeWriteCache struct {
	Cache
	once   sync.Once
	revoke func()
}

func (c *revokeBeforeWriteCache) Set(key string, codes []string, ttl time.Duration, generation uint64) {
	c.once.Do(c.revoke)
	c.Cache.Set(key, codes, ttl, generation)
}

func TestResolveEffectiveRevocationDuringResolution(t *testing.T) {
	db := setupTestDB(t)

	var resolver *Resolver

	cache := &revokeBeforeWriteCache{Cache: NewMemoryCache()}
	cache.revoke = func() {
		require.NoError(t, resolver.RevokePermission(1, "payment.refund", 2))
	}

	resolver = NewResolver(db, NewStore(db), cache, audit.NewRecorder(db), Options{})

	seedRole(t, db, models.Role{Code: "employee"}, nil)
	seedUser(t, db, 1, "employee", 0, models.TierEmployee)

	_, err := resolver.GrantPermission(1, "payment.refund", GrantOptions{GrantedBy: 2})
	require.NoError(t, err)

	// reads the grant before the revocation commits; the cache write
	// happens after the revocation's invalidation and must be discarded
	stale, err := resolver.ResolveEffective(1, nil)
	require.NoError(t, err)
	assert.Contains(t, stale, "payment.refund")

	fresh, err := resolver.ResolveEffective(1, nil)
	require.NoError(t, err)
	assert.NotContains(t, fresh, "payment.refund",
		"a revoked grant must not be served from a stale cache write")
}

func TestWildcardMatch(t *testing.T) {
	testCases := []struct {
		held      string
		requested string
		expected  bool
	}{
		{"invoice.*", "invoice.create", true},
		{"invoice.*", "invoice.read", true},
		{"invoice.*", "payment.process", false},
		{"invoice.read", "invoice.read", true},
		{"invoice.read", "invoice.create", false},
		{"*", "anything", true},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.expected, WildcardMatch(tc.held, tc.requested),
			"WildcardMatch(%q, %q)", tc.held, tc.requested)
	}
}

func TestRequestSignatureStable(t *testing.T) {
	a := &Request{Amount: floatPtr(10), Location: "north", Extra: map[string]string{"k": "v"}}
	b := &Request{Amount: floatPtr(10), Location: "north", Extra: map[string]string{"k": "v"}}

	assert.Equal(t, a.Signature(), b.Signature())

	var nilReq *Request
	assert.Equal(t, nilReq.Signature(), (&Request{}).Signature())

	c := &Request{Amount: floatPtr(11)}
	assert.NotEqual(t, a.Signature(), c.Signature())
}
