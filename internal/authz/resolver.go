package authz

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/fleetgrid/fleetgrid/internal/audit"
	"github.com/fleetgrid/fleetgrid/internal/db/models"
)

// Audit action names written by the engine. The compliance requirement
// catalog references these.
const (
	ActionPermissionCheck   = "permission.check"
	ActionPermissionGrant   = "permission.grant"
	ActionPermissionRevoke  = "permission.revoke"
	ActionPermissionApprove = "permission.approve"
	ActionContextSwitch     = "context.switch"
)

// Options tunes the resolver.
type Options struct {
	// CacheTTL is how long resolved effective sets stay cached.
	CacheTTL time.Duration
	// ManagerTiers lists the employee tiers that receive manager-scoped
	// department grants.
	ManagerTiers []string
}

// Resolver computes effective permission sets by merging role
// permissions, department grants, and individual overrides, then
// expanding implication edges. Resolved sets are cached per
// (user, request signature); every mutation path invalidates the user's
// entries before returning.
type Resolver struct {
	db           *gorm.DB
	store        *Store
	deps         *DependencyResolver
	cache        Cache
	recorder     *audit.Recorder
	ttl          time.Duration
	managerTiers map[string]bool
	now          func() time.Time
}

// NewResolver creates a resolver. The db handle is used for grant/revoke
// writes; reads go through the store.
func NewResolver(db *gorm.DB, store *Store, cache Cache, recorder *audit.Recorder, opts Options) *Resolver {
	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	tiers := opts.ManagerTiers
	if len(tiers) == 0 {
		tiers = []string{string(models.TierManager), string(models.TierDirector)}
	}

	managerTiers := make(map[string]bool, len(tiers))
	for _, tier := range tiers {
		managerTiers[tier] = true
	}

	return &Resolver{
		db:           db,
		store:        store,
		deps:         NewDependencyResolver(store),
		cache:        cache,
		recorder:     recorder,
		ttl:          ttl,
		managerTiers: managerTiers,
		now:          time.Now,
	}
}

// cacheKey builds the cache key for a (user, request) pair. Keys start
// with the user prefix so InvalidateCache can remove all of a user's
// entries.
func cacheKey(userID uint64, req *Request) string {
	return fmt.Sprintf("%d:%s", userID, req.Signature())
}

// userPrefix is the invalidation prefix covering every context signature.
func userPrefix(userID uint64) string {
	return fmt.Sprintf("%d:", userID)
}

// ResolveEffective returns the sorted effective permission set for a user
// under the given request context. Inactive or locked users resolve to an
// empty set.
func (r *Resolver) ResolveEffective(userID uint64, req *Request) ([]string, error) {
	key := cacheKey(userID, req)

	if codes, ok := r.cache.Get(key); ok {
		cacheCounter.WithLabelValues("hit").Inc()
		return codes, nil
	}

	cacheCounter.WithLabelValues("miss").Inc()

	// capture before the store reads; a mutation committing mid-resolution
	// bumps the generation and the stale write below is discarded
	generation := r.cache.Generation(userPrefix(userID))

	set, err := r.resolve(userID, req)
	if err != nil {
		return nil, err
	}

	codes := make([]string, 0, len(set))
	for code := range set {
		codes = append(codes, code)
	}

	sort.Strings(codes)

	r.cache.Set(key, codes, r.ttl, generation)

	return codes, nil
}

// resolve performs the uncached four-source merge.
func (r *Resolver) resolve(userID uint64, req *Request) (map[string]struct{}, error) {
	user, err := r.store.User(userID)
	if err != nil {
		return nil, err
	}

	if !user.Active || user.Locked {
		return map[string]struct{}{}, nil
	}

	// 1. role permissions, inherited roles included
	set := make(map[string]struct{})

	if err := r.collectRolePermissions(user.RoleCode, set, make(map[string]bool)); err != nil {
		return nil, err
	}

	// 2. department grants for the user's membership tier
	if user.DepartmentID != 0 {
		grants, err := r.store.DepartmentGrants(user.DepartmentID)
		if err != nil {
			return nil, err
		}

		isManager := r.managerTiers[string(user.EmployeeTier)]

		for _, grant := range grants {
			if (isManager && grant.AppliesToManagers) || (!isManager && grant.AppliesToEmployees) {
				set[grant.PermissionCode] = struct{}{}
			}
		}
	}

	// 3. individual overrides in a single pass; denials win over any
	// prior source and are re-applied after expansion
	overrides, err := r.store.UserPermissions(userID, req.ContextScope())
	if err != nil {
		return nil, err
	}

	denied := make(map[string]struct{})

	for i := range overrides {
		override := &overrides[i]

		if !override.Granted {
			delete(set, override.PermissionCode)
			denied[override.PermissionCode] = struct{}{}

			continue
		}

		conditions, err := ParseConditions(override.Conditions)
		if err != nil {
			log.Warn().Uint64("user_id", userID).Str("code", override.PermissionCode).
				Msg("skipping grant with malformed conditions")

			continue
		}

		if conditions.Matches(req, r.now()) {
			set[override.PermissionCode] = struct{}{}
		}
	}

	// 4. implication expansion over the merged set
	expanded, err := r.deps.Expand(set)
	if err != nil {
		return nil, err
	}

	for code := range denied {
		delete(expanded, code)
	}

	return expanded, nil
}

// collectRolePermissions unions a role's permissions plus those of its
// inherited roles, depth first. The visited map guards against
// inheritance cycles.
func (r *Resolver) collectRolePermissions(roleCode string, set map[string]struct{}, visited map[string]bool) error {
	if roleCode == "" || visited[roleCode] {
		return nil
	}

	visited[roleCode] = true

	role, err := r.store.RoleByCode(roleCode)
	if err != nil {
		return err
	}

	if role == nil || !role.IsActive {
		return nil
	}

	codes, err := r.store.RolePermissions(roleCode)
	if err != nil {
		return err
	}

	for _, code := range codes {
		set[code] = struct{}{}
	}

	parents, err := r.store.RoleParents(roleCode)
	if err != nil {
		return err
	}

	for _, parent := range parents {
		if err := r.collectRolePermissions(parent, set, visited); err != nil {
			return err
		}
	}

	return nil
}

// HasPermission reports whether a user holds a permission under the given
// request context. Universal roles pass every check; otherwise the
// effective set is consulted exactly, then by wildcard, then conditional
// grants are evaluated directly. Every outcome is audited, and any
// internal error resolves to false.
func (r *Resolver) HasPermission(userID uint64, code string, req *Request) bool {
	granted, reason := r.check(userID, code, req)

	result := models.AuditResultDenied
	if granted {
		result = models.AuditResultSuccess
	}

	_, err := r.recorder.Record(audit.Entry{
		UserID:      userID,
		Action:      ActionPermissionCheck,
		Resource:    code,
		PerformedBy: userID,
		Result:      result,
		Metadata:    map[string]string{"reason": reason, "context": req.Signature()},
	})
	if err != nil {
		// a decision that cannot be recorded is not allowed to pass
		log.Error().Err(err).Uint64("user_id", userID).Str("code", code).
			Msg("audit write failed for permission check")

		granted = false
	}

	if granted {
		checkCounter.WithLabelValues("granted").Inc()
	} else {
		checkCounter.WithLabelValues("denied").Inc()
	}

	return granted
}

// check runs the decision logic and names the reason for the audit trail.
func (r *Resolver) check(userID uint64, code string, req *Request) (bool, string) {
	user, err := r.store.User(userID)
	if err != nil {
		r.logCheckError(err, userID, code, req)
		return false, "identity unavailable"
	}

	if !user.Active || user.Locked {
		return false, "account inactive or locked"
	}

	role, err := r.store.RoleByCode(user.RoleCode)
	if err != nil {
		r.logCheckError(err, userID, code, req)
		return false, "role unavailable"
	}

	if role != nil && role.IsActive && role.IsUniversal {
		return true, "universal role"
	}

	effective, err := r.ResolveEffective(userID, req)
	if err != nil {
		r.logCheckError(err, userID, code, req)
		return false, "resolution failed"
	}

	for _, held := range effective {
		if held == code {
			return true, "exact match"
		}
	}

	for _, held := range effective {
		if WildcardMatch(held, code) {
			return true, "wildcard match"
		}
	}

	if r.checkContextual(userID, code, req) {
		return true, "conditional grant"
	}

	return false, "no matching grant"
}

// checkContextual evaluates the user's conditional grants directly,
// for callers whose effective set was resolved under a different request
// context.
func (r *Resolver) checkContextual(userID uint64, code string, req *Request) bool {
	overrides, err := r.store.UserPermissions(userID, req.ContextScope())
	if err != nil {
		r.logCheckError(err, userID, code, req)
		return false
	}

	for i := range overrides {
		override := &overrides[i]

		if !override.Granted || override.Conditions == "" {
			continue
		}

		if override.PermissionCode != code && !WildcardMatch(override.PermissionCode, code) {
			continue
		}

		conditions, err := ParseConditions(override.Conditions)
		if err != nil {
			continue
		}

		if conditions.Matches(req, r.now()) {
			return true
		}
	}

	return false
}

func (r *Resolver) logCheckError(err error, userID uint64, code string, req *Request) {
	log.Error().Err(err).
		Uint64("user_id", userID).
		Str("code", code).
		Str("context_signature", req.Signature()).
		Msg("permission check failed closed")
}

// WildcardMatch reports whether a held wildcard code (e.g. "invoice.*")
// satisfies a requested code (e.g. "invoice.create"). Non-wildcard codes
// match only themselves.
func WildcardMatch(held, requested string) bool {
	if !strings.HasSuffix(held, "*") {
		return held == requested
	}

	prefix := strings.TrimSuffix(held, "*")

	return strings.HasPrefix(requested, prefix)
}

// GrantOptions carries the optional attributes of a permission grant.
type GrantOptions struct {
	// Context scopes the grant to a named context (e.g. "department:3").
	Context string
	// Conditions restricts the grant to matching request contexts.
	Conditions *Conditions
	// ExpiresAt lets the grant lapse passively.
	ExpiresAt *time.Time
	// Source records how the grant came to exist.
	Source models.PermissionSource
	// GrantedBy is the administrator creating the grant.
	GrantedBy uint64
	// RequiresApproval parks the grant in pending until approved.
	RequiresApproval bool
}

// GrantPermission creates an individual grant for a user. Granting a code
// the user already actively holds fails with ErrAlreadyGranted. The grant
// and its audit record commit together; the user's cache entries are
// invalidated before returning.
func (r *Resolver) GrantPermission(userID uint64, code string, opts GrantOptions) (*models.UserPermission, error) {
	conditionsRaw := ""

	if opts.Conditions != nil {
		if err := opts.Conditions.Validate(); err != nil {
			return nil, fmt.Errorf("invalid conditions: %w", err)
		}

		encoded, err := opts.Conditions.Encode()
		if err != nil {
			return nil, fmt.Errorf("encode conditions: %w", err)
		}

		conditionsRaw = encoded
	}

	source := opts.Source
	if source == "" {
		source = models.PermissionSourceManual
	}

	status := models.PermissionStatusActive
	if opts.RequiresApproval {
		status = models.PermissionStatusPending
	}

	record := &models.UserPermission{
		UserID:         userID,
		PermissionCode: code,
		Granted:        true,
		Context:        opts.Context,
		Conditions:     conditionsRaw,
		ExpiresAt:      opts.ExpiresAt,
		Status:         status,
		Source:         source,
		GrantedBy:      opts.GrantedBy,
	}

	err := r.db.Transaction(func(tx *gorm.DB) error {
		var count int64

		err := tx.Model(&models.UserPermission{}).
			Where("user_id = ? AND permission_code = ? AND granted = ? AND status = ?",
				userID, code, true, models.PermissionStatusActive).
			Where("expires_at IS NULL OR expires_at > ?", r.now()).
			Count(&count).Error
		if err != nil {
			return fmt.Errorf("%w: check existing grant: %v", ErrStoreUnavailable, err)
		}

		if count > 0 {
			return ErrAlreadyGranted
		}

		if err := tx.Create(record).Error; err != nil {
			return fmt.Errorf("%w: create grant: %v", ErrStoreUnavailable, err)
		}

		_, err = r.recorder.RecordIn(tx, audit.Entry{
			UserID:      userID,
			Action:      ActionPermissionGrant,
			Resource:    code,
			PerformedBy: opts.GrantedBy,
			Result:      models.AuditResultSuccess,
			Metadata:    map[string]string{"status": string(status), "source": string(source)},
		})

		return err
	})
	if err != nil {
		return nil, err
	}

	r.InvalidateCache(userID)

	return record, nil
}

// RevokePermission revokes a user's active grant for a code. Revoking a
// code with no active record fails with ErrPermissionNotFound.
func (r *Resolver) RevokePermission(userID uint64, code string, performedBy uint64) error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.UserPermission{}).
			Where("user_id = ? AND permission_code = ? AND granted = ? AND status = ?",
				userID, code, true, models.PermissionStatusActive).
			Update("status", models.PermissionStatusRevoked)
		if result.Error != nil {
			return fmt.Errorf("%w: revoke grant: %v", ErrStoreUnavailable, result.Error)
		}

		if result.RowsAffected == 0 {
			return ErrPermissionNotFound
		}

		_, err := r.recorder.RecordIn(tx, audit.Entry{
			UserID:      userID,
			Action:      ActionPermissionRevoke,
			Resource:    code,
			PerformedBy: performedBy,
			Result:      models.AuditResultSuccess,
		})

		return err
	})
	if err != nil {
		return err
	}

	r.InvalidateCache(userID)

	return nil
}

// ApprovePermission activates a pending grant.
func (r *Resolver) ApprovePermission(userID uint64, code string, performedBy uint64) error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.UserPermission{}).
			Where("user_id = ? AND permission_code = ? AND status = ?",
				userID, code, models.PermissionStatusPending).
			Update("status", models.PermissionStatusActive)
		if result.Error != nil {
			return fmt.Errorf("%w: approve grant: %v", ErrStoreUnavailable, result.Error)
		}

		if result.RowsAffected == 0 {
			return ErrPermissionNotFound
		}

		_, err := r.recorder.RecordIn(tx, audit.Entry{
			UserID:      userID,
			Action:      ActionPermissionApprove,
			Resource:    code,
			PerformedBy: performedBy,
			Result:      models.AuditResultSuccess,
		})

		return err
	})
	if err != nil {
		return err
	}

	r.InvalidateCache(userID)

	return nil
}

// InvalidateCache removes every cached effective set for a user. Called
// by every mutation path; callers that mutate role or department grants
// outside this package must call it for each affected user.
func (r *Resolver) InvalidateCache(userID uint64) {
	r.cache.InvalidatePrefix(userPrefix(userID))
}

// IsStoreUnavailable reports whether an error is the fail-closed store error.
func IsStoreUnavailable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable)
}
