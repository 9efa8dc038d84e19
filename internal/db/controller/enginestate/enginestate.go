// Package enginestate persists the engine's operational state between
// daemon runs: when maintenance last ran and what it did.
package enginestate

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"

	"github.com/fleetgrid/fleetgrid/internal/db/controller/setting"
)

const (
	// SettingKeyRetention is the key the last retention run is stored under.
	SettingKeyRetention = "engine_retention_state"
	// SettingKeySweep is the key the last context sweep is stored under.
	SettingKeySweep = "engine_sweep_state"
)

type (
	// RetentionState records the outcome of the last retention run.
	RetentionState struct {
		Framework string    `json:"framework"`
		LastRun   time.Time `json:"lastRun"`
		Moved     int64     `json:"moved"`
	}

	// SweepState records the outcome of the last expired-context sweep.
	SweepState struct {
		LastRun time.Time `json:"lastRun"`
		Removed int64     `json:"removed"`
	}
)

// Load loads the retention state from the database.
func (r *RetentionState) Load(db *gorm.DB) error {
	s, err := setting.Get(db, SettingKeyRetention)
	if err != nil {
		return err
	}

	return json.Unmarshal(s.Value, r)
}

// Save saves the retention state to the database.
func (r *RetentionState) Save(db *gorm.DB) error {
	data, err := json.Marshal(r)
	if err != nil {
		return err
	}

	_, err = setting.Set(db, SettingKeyRetention, data)

	return err
}

// Load loads the sweep state from the database.
func (s *SweepState) Load(db *gorm.DB) error {
	record, err := setting.Get(db, SettingKeySweep)
	if err != nil {
		return err
	}

	return json.Unmarshal(record.Value, s)
}

// Save saves the sweep state to the database.
func (s *SweepState) Save(db *gorm.DB) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}

	_, err = setting.Set(db, SettingKeySweep, data)

	return err
}
