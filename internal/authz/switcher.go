package authz

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/fleetgrid/fleetgrid/internal/audit"
	"github.com/fleetgrid/fleetgrid/internal/db/models"
	"github.com/fleetgrid/fleetgrid/internal/uniuri"
)

// ContextValidator is the pluggable check run before switching into a
// context that requires validation (e.g. "is the user still a member of
// this department"). Returning an error rejects the switch; the error
// text is the reason reported to the caller.
type ContextValidator func(user *models.User, pc *models.PermissionContext) error

// SwitchResult is the outcome of a successful context switch.
type SwitchResult struct {
	// Context is the newly active context.
	Context *models.PermissionContext
	// PreviousContextID is the context the session was on before, empty
	// for the first switch.
	PreviousContextID string
	// EffectivePermissions is the context's permission list unioned with
	// the user's resolved effective set.
	EffectivePermissions []string
}

// Switcher manages the permission contexts available to a user and the
// currently active context per session. Two sessions of the same user
// are keyed independently and may be on different contexts at once.
type Switcher struct {
	db        *gorm.DB
	resolver  *Resolver
	recorder  *audit.Recorder
	validator ContextValidator
	now       func() time.Time

	mu     sync.RWMutex
	active map[string]string // "userID:sessionID" -> contextID
}

// NewSwitcher creates a switcher. The validator may be nil, in which case
// contexts requiring validation are switched into without the extra check.
func NewSwitcher(db *gorm.DB, resolver *Resolver, recorder *audit.Recorder, validator ContextValidator) *Switcher {
	return &Switcher{
		db:        db,
		resolver:  resolver,
		recorder:  recorder,
		validator: validator,
		now:       time.Now,
		active:    make(map[string]string),
	}
}

func sessionKey(userID uint64, sessionID string) string {
	return fmt.Sprintf("%d:%s", userID, sessionID)
}

// AvailableContexts returns the user's non-expired contexts, default
// context first. Expired temporary contexts are filtered out lazily; no
// caller ever observes one as available.
func (s *Switcher) AvailableContexts(userID uint64) ([]models.PermissionContext, error) {
	var contexts []models.PermissionContext

	err := s.db.Where("user_id = ?", userID).
		Order("is_default DESC, created_at ASC").
		Find(&contexts).Error
	if err != nil {
		return nil, fmt.Errorf("%w: load contexts for %d: %v", ErrStoreUnavailable, userID, err)
	}

	now := s.now()
	available := contexts[:0]

	for i := range contexts {
		if !contexts[i].Expired(now) {
			available = append(available, contexts[i])
		}
	}

	return available, nil
}

// CreateTemporaryContext creates a self-expiring elevation context for a
// user. The expiry is mandatory.
func (s *Switcher) CreateTemporaryContext(userID uint64, name string, permissions []string, expiresAt time.Time, metadata string) (*models.PermissionContext, error) {
	if expiresAt.IsZero() {
		return nil, ErrExpiryRequired
	}

	pc := &models.PermissionContext{
		ID:        uniuri.New(),
		UserID:    userID,
		Type:      models.ContextTypeTemporary,
		Name:      name,
		ExpiresAt: &expiresAt,
		Metadata:  metadata,
	}

	if err := pc.SetPermissionCodes(permissions); err != nil {
		return nil, fmt.Errorf("encode context permissions: %w", err)
	}

	if err := s.db.Create(pc).Error; err != nil {
		return nil, fmt.Errorf("%w: create temporary context: %v", ErrStoreUnavailable, err)
	}

	return pc, nil
}

// SwitchTo activates a context for a (user, session) pair. The switch is
// audited with the previous and new context; a failed audit write fails
// the switch and leaves the previous context active.
func (s *Switcher) SwitchTo(userID uint64, sessionID, contextID string) (*SwitchResult, error) {
	result, err := s.switchTo(userID, sessionID, contextID)
	if err != nil {
		switchCounter.WithLabelValues("rejected").Inc()
		return nil, err
	}

	switchCounter.WithLabelValues("switched").Inc()

	return result, nil
}

func (s *Switcher) switchTo(userID uint64, sessionID, contextID string) (*SwitchResult, error) {
	pc, err := s.loadContext(userID, contextID)
	if err != nil {
		return nil, err
	}

	if pc.Expired(s.now()) {
		return nil, ErrContextExpired
	}

	user, err := s.resolver.store.User(userID)
	if err != nil {
		return nil, err
	}

	if pc.RequiresValidation && s.validator != nil {
		if err := s.validator(user, pc); err != nil {
			_, auditErr := s.recorder.Record(audit.Entry{
				UserID:      userID,
				SessionID:   sessionID,
				Action:      ActionContextSwitch,
				Resource:    pc.ID,
				PerformedBy: userID,
				Result:      models.AuditResultDenied,
				Metadata:    map[string]string{"reason": err.Error()},
			})
			if auditErr != nil {
				log.Error().Err(auditErr).Uint64("user_id", userID).
					Msg("audit write failed for rejected context switch")
			}

			return nil, fmt.Errorf("%w: %s", ErrValidationFailed, err.Error())
		}
	}

	key := sessionKey(userID, sessionID)

	s.mu.RLock()
	previous := s.active[key]
	s.mu.RUnlock()

	effective, err := s.resolver.ResolveEffective(userID, &Request{})
	if err != nil {
		return nil, err
	}

	union := unionCodes(effective, pc.PermissionCodes())

	_, err = s.recorder.Record(audit.Entry{
		UserID:      userID,
		SessionID:   sessionID,
		Action:      ActionContextSwitch,
		Resource:    pc.ID,
		PerformedBy: userID,
		Result:      models.AuditResultSuccess,
		Metadata:    map[string]string{"previous_context": previous, "new_context": pc.ID},
	})
	if err != nil {
		// the switch did not happen if it cannot be recorded
		return nil, err
	}

	s.mu.Lock()
	s.active[key] = pc.ID
	s.mu.Unlock()

	return &SwitchResult{
		Context:              pc,
		PreviousContextID:    previous,
		EffectivePermissions: union,
	}, nil
}

// ActiveContext returns the session's active context, falling back to the
// user's default context when the session has not switched yet. Returns
// nil when neither exists.
func (s *Switcher) ActiveContext(userID uint64, sessionID string) (*models.PermissionContext, error) {
	s.mu.RLock()
	contextID := s.active[sessionKey(userID, sessionID)]
	s.mu.RUnlock()

	if contextID != "" {
		pc, err := s.loadContext(userID, contextID)
		if err == nil && !pc.Expired(s.now()) {
			return pc, nil
		}

		if err != nil && !errors.Is(err, ErrContextNotFound) {
			return nil, err
		}
		// fall through to the default when the active context vanished
		// or expired under the session
	}

	var pc models.PermissionContext

	err := s.db.Where("user_id = ? AND is_default = ?", userID, true).
		First(&pc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil //nolint:nilnil
		}

		return nil, fmt.Errorf("%w: load default context for %d: %v", ErrStoreUnavailable, userID, err)
	}

	if pc.Expired(s.now()) {
		return nil, nil //nolint:nilnil
	}

	return &pc, nil
}

// HasPermissionInContext reports whether a permission is usable in the
// session's active working context. The code must be both globally held
// (per the resolver) and listed by the active context; a permission not
// listed by the context is denied even if globally granted.
func (s *Switcher) HasPermissionInContext(userID uint64, sessionID, code string) bool {
	pc, err := s.ActiveContext(userID, sessionID)
	if err != nil {
		log.Error().Err(err).Uint64("user_id", userID).Str("session_id", sessionID).
			Msg("active context lookup failed closed")

		return false
	}

	if pc == nil {
		return false
	}

	listed := false

	for _, held := range pc.PermissionCodes() {
		if held == code || WildcardMatch(held, code) {
			listed = true
			break
		}
	}

	if !listed {
		return false
	}

	return s.resolver.HasPermission(userID, code, &Request{})
}

// SweepExpired removes expired temporary contexts and drops any session
// pointers at them. Department and project contexts are kept; they only
// expire if explicitly given an expiry, and remain for audit.
func (s *Switcher) SweepExpired() (int64, error) {
	result := s.db.Where("type = ? AND expires_at IS NOT NULL AND expires_at <= ?",
		models.ContextTypeTemporary, s.now()).
		Delete(&models.PermissionContext{})
	if result.Error != nil {
		return 0, fmt.Errorf("%w: sweep expired contexts: %v", ErrStoreUnavailable, result.Error)
	}

	return result.RowsAffected, nil
}

func (s *Switcher) loadContext(userID uint64, contextID string) (*models.PermissionContext, error) {
	var pc models.PermissionContext

	err := s.db.Where("id = ? AND user_id = ?", contextID, userID).
		First(&pc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrContextNotFound
		}

		return nil, fmt.Errorf("%w: load context %s: %v", ErrStoreUnavailable, contextID, err)
	}

	return &pc, nil
}

func unionCodes(a, b []string) []string {
	set := make(map[string]struct{}, len(a)+len(b))

	for _, code := range a {
		set[code] = struct{}{}
	}

	for _, code := range b {
		set[code] = struct{}{}
	}

	out := make([]string, 0, len(set))
	for code := range set {
		out = append(out, code)
	}

	sort.Strings(out)

	return out
}
