package enginestate

import (
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/fleetgrid/fleetgrid/internal/db/controller/setting"
	"github.com/fleetgrid/fleetgrid/internal/db/models"
)

// setupTestDB creates an in-memory SQLite database for testing.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err, "failed to create test database")

	err = db.AutoMigrate(&models.Setting{})
	require.NoError(t, err, "failed to migrate test database")

	return db
}

func TestRetentionStateRoundTrip(t *testing.T) {
	db := setupTestDB(t)

	var missing RetentionState
	require.ErrorIs(t, missing.Load(db), setting.ErrSettingNotFound)

	state := RetentionState{
		Framework: "PCI_DSS",
		LastRun:   time.Date(2026, 8, 1, 3, 0, 0, 0, time.UTC),
		Moved:     128,
	}
	require.NoError(t, state.Save(db))

	var loaded RetentionState
	require.NoError(t, loaded.Load(db))
	assert.Equal(t, state, loaded)

	// a later run overwrites the record
	state.Moved = 0
	state.LastRun = state.LastRun.Add(24 * time.Hour)
	require.NoError(t, state.Save(db))

	require.NoError(t, loaded.Load(db))
	assert.Equal(t, state, loaded)
}

func TestSweepStateRoundTrip(t *testing.T) {
	db := setupTestDB(t)

	state := SweepState{
		LastRun: time.Date(2026, 8, 1, 3, 0, 0, 0, time.UTC),
		Removed: 4,
	}
	require.NoError(t, state.Save(db))

	var loaded SweepState
	require.NoError(t, loaded.Load(db))
	assert.Equal(t, state, loaded)
}
