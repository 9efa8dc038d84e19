package auth

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/fleetgrid/fleetgrid/internal/audit"
	"github.com/fleetgrid/fleetgrid/internal/db/models"
	"github.com/fleetgrid/fleetgrid/internal/uniuri"
)

const (
	// ActionLogin is the audit action written for login attempts.
	ActionLogin = "auth.login"
	// ActionLogout is the audit action written for logouts.
	ActionLogout = "auth.logout"
)

const (
	defaultSessionTTL  = 12 * time.Hour
	defaultMaxFailures = 5
)

// Session is an authenticated session. Its ID is the session identifier
// the context switcher scopes active contexts by.
type Session struct {
	ID        string
	UserID    uint64
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Options tunes the auth service.
type Options struct {
	// SessionTTL is the session lifetime, default 12h.
	SessionTTL time.Duration
	// MaxFailures is the number of consecutive password failures before
	// the account is locked, default 5. Zero means the default; a
	// negative value disables automatic locking.
	MaxFailures int
}

// Service verifies local credentials and tracks sessions in memory.
type Service struct {
	db          *gorm.DB
	recorder    *audit.Recorder
	ttl         time.Duration
	maxFailures int
	now         func() time.Time

	mu       sync.Mutex
	sessions map[string]Session
	failures map[uint64]int
}

// NewService creates an auth service.
func NewService(db *gorm.DB, recorder *audit.Recorder, opts Options) *Service {
	ttl := opts.SessionTTL
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}

	maxFailures := opts.MaxFailures
	if maxFailures == 0 {
		maxFailures = defaultMaxFailures
	}

	return &Service{
		db:          db,
		recorder:    recorder,
		ttl:         ttl,
		maxFailures: maxFailures,
		now:         time.Now,
		sessions:    make(map[string]Session),
		failures:    make(map[uint64]int),
	}
}

// Login verifies a username and password and issues a session. Every
// attempt against an existing account is audited; a login whose audit
// record cannot be written does not succeed.
func (s *Service) Login(username, password string) (*Session, error) {
	var user models.User

	err := s.db.Where("username = ?", username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("query user %q: %w", username, err)
	}

	if !user.Active {
		s.auditAttempt(&user, "", models.AuditResultDenied, "account disabled")
		return nil, ErrUserAccountDisabled
	}

	if user.Locked {
		s.auditAttempt(&user, "", models.AuditResultDenied, "account locked")
		return nil, ErrUserAccountLocked
	}

	if !user.VerifyPassword(password) {
		s.registerFailure(&user)
		s.auditAttempt(&user, "", models.AuditResultDenied, "invalid password")

		return nil, ErrInvalidPassword
	}

	now := s.now()
	session := Session{
		ID:        uniuri.New(),
		UserID:    user.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}

	_, err = s.recorder.Record(audit.Entry{
		UserID:      user.ID,
		SessionID:   session.ID,
		Action:      ActionLogin,
		PerformedBy: user.ID,
		Result:      models.AuditResultSuccess,
	})
	if err != nil {
		return nil, fmt.Errorf("record login: %w", err)
	}

	s.mu.Lock()
	delete(s.failures, user.ID)
	s.sessions[session.ID] = session
	s.mu.Unlock()

	return &session, nil
}

// Logout ends a session.
func (s *Service) Logout(sessionID string) error {
	s.mu.Lock()
	session, ok := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	s.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}

	_, err := s.recorder.Record(audit.Entry{
		UserID:      session.UserID,
		SessionID:   session.ID,
		Action:      ActionLogout,
		PerformedBy: session.UserID,
		Result:      models.AuditResultSuccess,
	})
	if err != nil {
		log.Error().Err(err).Str("session_id", sessionID).Msg("audit write failed for logout")
	}

	return nil
}

// SessionUser resolves a session ID to its user, dropping the session if
// it has expired.
func (s *Service) SessionUser(sessionID string) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return 0, ErrSessionNotFound
	}

	if !session.ExpiresAt.After(s.now()) {
		delete(s.sessions, sessionID)
		return 0, ErrSessionNotFound
	}

	return session.UserID, nil
}

// SweepSessions drops expired sessions and returns how many were removed.
func (s *Service) SweepSessions() int {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0

	for id, session := range s.sessions {
		if !session.ExpiresAt.After(now) {
			delete(s.sessions, id)
			removed++
		}
	}

	return removed
}

// registerFailure counts a password failure and locks the account once
// the threshold is reached.
func (s *Service) registerFailure(user *models.User) {
	if s.maxFailures < 0 {
		return
	}

	s.mu.Lock()
	s.failures[user.ID]++
	count := s.failures[user.ID]
	s.mu.Unlock()

	if count < s.maxFailures {
		return
	}

	err := s.db.Model(&models.User{}).
		Where("id = ?", user.ID).
		Update("locked", true).Error
	if err != nil {
		log.Error().Err(err).Uint64("user_id", user.ID).Msg("failed to lock account")
		return
	}

	log.Warn().Uint64("user_id", user.ID).Int("failures", count).
		Msg("account locked after repeated login failures")
}

func (s *Service) auditAttempt(user *models.User, sessionID string, result models.AuditResult, reason string) {
	_, err := s.recorder.Record(audit.Entry{
		UserID:      user.ID,
		SessionID:   sessionID,
		Action:      ActionLogin,
		PerformedBy: user.ID,
		Result:      result,
		Metadata:    map[string]string{"reason": reason},
	})
	if err != nil {
		log.Error().Err(err).Uint64("user_id", user.ID).
			Msg("audit write failed for login attempt")
	}
}
