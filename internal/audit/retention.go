package audit

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/fleetgrid/fleetgrid/internal/db/models"
)

// Framework identifies a compliance framework with its own retention
// window and requirement catalog.
type Framework string

const (
	// FrameworkPCIDSS is the payment-card industry framework.
	FrameworkPCIDSS Framework = "PCI_DSS"
	// FrameworkSOC2 is the SOC 2 trust-services framework.
	FrameworkSOC2 Framework = "SOC2"
	// FrameworkGDPR is the EU data-protection framework.
	FrameworkGDPR Framework = "GDPR"
)

// retentionDays is the per-framework retention window. The compliance
// floor is 365 days; frameworks may require more.
var retentionDays = map[Framework]int{ //nolint:gochecknoglobals
	FrameworkPCIDSS: 365,
	FrameworkSOC2:   365,
	FrameworkGDPR:   1095,
}

const retentionBatchSize = 500

// RetentionWindow returns the retention period for a framework.
func RetentionWindow(framework Framework) (time.Duration, error) {
	days, ok := retentionDays[framework]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownFramework, framework)
	}

	return time.Duration(days) * 24 * time.Hour, nil
}

// SetMinRetentionDays raises the window ApplyRetentionPolicy uses above
// the per-framework minimum. A value at or below a framework's own
// window has no effect; retention never shrinks below what the
// framework requires.
func (r *Recorder) SetMinRetentionDays(days int) {
	r.minRetentionDays = days
}

// ApplyRetentionPolicy moves entries older than the framework's retention
// window to the archive table. Entries are never deleted outright; the
// archive remains queryable and part of the hash chain. Returns the
// number of entries moved.
func (r *Recorder) ApplyRetentionPolicy(framework Framework) (int64, error) {
	window, err := RetentionWindow(framework)
	if err != nil {
		return 0, err
	}

	if configured := time.Duration(r.minRetentionDays) * 24 * time.Hour; configured > window {
		window = configured
	}

	cutoff := r.now().UTC().Add(-window)

	var moved int64

	for {
		var batch []models.AuditEntry

		err := r.db.Where("timestamp < ?", cutoff).
			Order("user_id ASC, sequence ASC").
			Limit(retentionBatchSize).
			Find(&batch).Error
		if err != nil {
			return moved, fmt.Errorf("%w: load retention batch: %v", ErrRecordFailed, err)
		}

		if len(batch) == 0 {
			return moved, nil
		}

		err = r.db.Transaction(func(tx *gorm.DB) error {
			archivedAt := r.now().UTC()

			for i := range batch {
				archived := models.ArchivedAuditEntry{
					AuditEntry: batch[i],
					ArchivedAt: archivedAt,
				}
				if err := tx.Create(&archived).Error; err != nil {
					return fmt.Errorf("archive entry %s: %w", batch[i].ID, err)
				}

				if err := tx.Delete(&models.AuditEntry{}, "id = ?", batch[i].ID).Error; err != nil {
					return fmt.Errorf("remove archived entry %s: %w", batch[i].ID, err)
				}
			}

			return nil
		})
		if err != nil {
			return moved, fmt.Errorf("%w: %v", ErrRecordFailed, err)
		}

		moved += int64(len(batch))
	}
}
