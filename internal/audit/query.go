package audit

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/fleetgrid/fleetgrid/internal/db/models"
)

// Filter narrows audit trail queries. Zero-valued fields are ignored.
type Filter struct {
	From   *time.Time
	To     *time.Time
	Action string
	Result models.AuditResult
	// IncludeArchived merges entries the retention policy has moved to
	// the archive table.
	IncludeArchived bool
	Limit           int
	Offset          int
}

// Trail returns a user's audit entries in chain order.
func (r *Recorder) Trail(userID uint64, f Filter) ([]models.AuditEntry, error) {
	var entries []models.AuditEntry

	if f.IncludeArchived {
		var archived []models.ArchivedAuditEntry

		err := applyFilter(r.db.Where("user_id = ?", userID), f).
			Order("sequence ASC").
			Find(&archived).Error
		if err != nil {
			return nil, fmt.Errorf("%w: query archived trail: %v", ErrRecordFailed, err)
		}

		for i := range archived {
			entries = append(entries, archived[i].AuditEntry)
		}
	}

	var live []models.AuditEntry

	query := applyFilter(r.db.Where("user_id = ?", userID), f).Order("sequence ASC")

	if f.Limit > 0 {
		query = query.Limit(f.Limit).Offset(f.Offset)
	}

	if err := query.Find(&live).Error; err != nil {
		return nil, fmt.Errorf("%w: query trail: %v", ErrRecordFailed, err)
	}

	return append(entries, live...), nil
}

// Statistics summarizes a user's audit activity.
type Statistics struct {
	Total    int64
	ByAction map[string]int64
	ByResult map[string]int64
	First    *time.Time
	Last     *time.Time
}

// GetStatistics aggregates a user's entries by action and result.
func (r *Recorder) GetStatistics(userID uint64, f Filter) (*Statistics, error) {
	entries, err := r.Trail(userID, f)
	if err != nil {
		return nil, err
	}

	stats := &Statistics{
		ByAction: make(map[string]int64),
		ByResult: make(map[string]int64),
	}

	for i := range entries {
		entry := &entries[i]
		stats.Total++
		stats.ByAction[entry.Action]++
		stats.ByResult[string(entry.Result)]++

		ts := entry.Timestamp
		if stats.First == nil || ts.Before(*stats.First) {
			first := ts
			stats.First = &first
		}

		if stats.Last == nil || ts.After(*stats.Last) {
			last := ts
			stats.Last = &last
		}
	}

	return stats, nil
}

func applyFilter(query *gorm.DB, f Filter) *gorm.DB {
	if f.From != nil {
		query = query.Where("timestamp >= ?", *f.From)
	}

	if f.To != nil {
		query = query.Where("timestamp < ?", *f.To)
	}

	if f.Action != "" {
		query = query.Where("action = ?", f.Action)
	}

	if f.Result != "" {
		query = query.Where("result = ?", f.Result)
	}

	return query
}
