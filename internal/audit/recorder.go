package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fleetgrid/fleetgrid/internal/db/models"
)

// HashFunc digests a canonical entry payload. The default is SHA-256 in
// hex; it is pluggable so deployments can swap in an HSM-backed digest.
type HashFunc func([]byte) string

// DefaultHash is the standard SHA-256 hex digest.
func DefaultHash(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// Entry is the caller-supplied content of an audit record. The recorder
// assigns the ID, sequence number, timestamp, and chain hashes.
type Entry struct {
	UserID          uint64
	SessionID       string
	Action          string
	Resource        string
	PerformedBy     uint64
	Result          models.AuditResult
	EncryptedFields []string
	Metadata        map[string]string
}

// Recorder appends entries to the per-user hash chain. Writes for the
// same user are serialized so each entry has exactly one predecessor;
// writes for different users proceed independently.
type Recorder struct {
	db   *gorm.DB
	hash HashFunc
	now  func() time.Time

	// minRetentionDays raises the retention window above the framework
	// minimum when configured; see SetMinRetentionDays.
	minRetentionDays int

	mu        sync.Mutex
	userLocks map[uint64]*sync.Mutex
}

// NewRecorder creates a recorder over the given database handle using the
// default hash function.
func NewRecorder(db *gorm.DB) *Recorder {
	return &Recorder{
		db:        db,
		hash:      DefaultHash,
		now:       time.Now,
		userLocks: make(map[uint64]*sync.Mutex),
	}
}

// SetHashFunc replaces the digest used for new entries and verification.
// Must be called before any entries are written; mixing digests breaks
// verification.
func (r *Recorder) SetHashFunc(h HashFunc) {
	r.hash = h
}

// userLock returns the mutex serializing one user's chain.
func (r *Recorder) userLock(userID uint64) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()

	lock, ok := r.userLocks[userID]
	if !ok {
		lock = &sync.Mutex{}
		r.userLocks[userID] = lock
	}

	return lock
}

// Record appends an entry to the user's chain and returns the stored
// record including its hash.
func (r *Recorder) Record(e Entry) (*models.AuditEntry, error) {
	return r.RecordIn(r.db, e)
}

// RecordIn appends an entry using the given handle, which may be a
// transaction so the audit write commits or rolls back together with the
// operation it records.
func (r *Recorder) RecordIn(tx *gorm.DB, e Entry) (*models.AuditEntry, error) {
	lock := r.userLock(e.UserID)
	lock.Lock()
	defer lock.Unlock()

	prevHash, prevSeq, err := r.chainHead(tx, e.UserID)
	if err != nil {
		return nil, err
	}

	metadata, err := encodeMetadata(e.Metadata)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRecordFailed, err)
	}

	encrypted, err := encodeFieldNames(e.EncryptedFields)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRecordFailed, err)
	}

	entry := models.AuditEntry{
		ID:              uuid.NewString(),
		UserID:          e.UserID,
		Sequence:        prevSeq + 1,
		SessionID:       e.SessionID,
		Action:          e.Action,
		Resource:        e.Resource,
		PerformedBy:     e.PerformedBy,
		Result:          e.Result,
		Timestamp:       r.now().UTC().Truncate(time.Microsecond),
		PreviousHash:    prevHash,
		EncryptedFields: encrypted,
		Metadata:        metadata,
	}
	entry.Hash = r.hashEntry(&entry)

	if err := tx.Create(&entry).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRecordFailed, err)
	}

	return &entry, nil
}

// chainHead returns the hash and sequence of the user's newest entry,
// checking the live table first and falling back to the archive in case
// retention has moved the whole chain.
func (r *Recorder) chainHead(tx *gorm.DB, userID uint64) (string, uint64, error) {
	var last models.AuditEntry

	err := tx.Where("user_id = ?", userID).
		Order("sequence DESC").
		First(&last).Error
	if err == nil {
		return last.Hash, last.Sequence, nil
	}

	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", 0, fmt.Errorf("%w: %v", ErrRecordFailed, err)
	}

	var archived models.ArchivedAuditEntry

	err = tx.Where("user_id = ?", userID).
		Order("sequence DESC").
		First(&archived).Error
	if err == nil {
		return archived.Hash, archived.Sequence, nil
	}

	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", 0, fmt.Errorf("%w: %v", ErrRecordFailed, err)
	}

	return "", 0, nil
}

// hashPayload is the canonical content covered by an entry's hash. Field
// order is fixed by the struct so json.Marshal is deterministic; the
// previous hash is part of the payload, forming the chain.
type hashPayload struct {
	ID              string `json:"id"`
	UserID          uint64 `json:"userId"`
	Sequence        uint64 `json:"sequence"`
	SessionID       string `json:"sessionId"`
	Action          string `json:"action"`
	Resource        string `json:"resource"`
	PerformedBy     uint64 `json:"performedBy"`
	Result          string `json:"result"`
	Timestamp       string `json:"timestamp"`
	EncryptedFields string `json:"encryptedFields"`
	Metadata        string `json:"metadata"`
	PreviousHash    string `json:"previousHash"`
}

func (r *Recorder) hashEntry(entry *models.AuditEntry) string {
	payload := hashPayload{
		ID:              entry.ID,
		UserID:          entry.UserID,
		Sequence:        entry.Sequence,
		SessionID:       entry.SessionID,
		Action:          entry.Action,
		Resource:        entry.Resource,
		PerformedBy:     entry.PerformedBy,
		Result:          string(entry.Result),
		Timestamp:       entry.Timestamp.UTC().Format(time.RFC3339Nano),
		EncryptedFields: entry.EncryptedFields,
		Metadata:        entry.Metadata,
		PreviousHash:    entry.PreviousHash,
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		// hashPayload contains only strings and integers; this cannot
		// happen with a well-formed entry
		return ""
	}

	return r.hash(raw)
}

func encodeMetadata(metadata map[string]string) (string, error) {
	if len(metadata) == 0 {
		return "", nil
	}

	raw, err := json.Marshal(metadata)
	if err != nil {
		return "", err //nolint:wrapcheck
	}

	return string(raw), nil
}

func encodeFieldNames(fields []string) (string, error) {
	if len(fields) == 0 {
		return "", nil
	}

	raw, err := json.Marshal(fields)
	if err != nil {
		return "", err //nolint:wrapcheck
	}

	return string(raw), nil
}
