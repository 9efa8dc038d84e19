package audit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetgrid/fleetgrid/internal/db/models"
)

func seedMixedTrail(t *testing.T, recorder *Recorder) {
	t.Helper()

	entries := []Entry{
		{UserID: 1, Action: "permission.check", Result: models.AuditResultSuccess},
		{UserID: 1, Action: "permission.check", Result: models.AuditResultDenied},
		{UserID: 1, Action: "permission.grant", Result: models.AuditResultSuccess},
		{UserID: 1, Action: "context.switch", Result: models.AuditResultSuccess},
		{UserID: 2, Action: "permission.check", Result: models.AuditResultSuccess},
	}

	for _, e := range entries {
		_, err := recorder.Record(e)
		require.NoError(t, err)
	}
}

func TestTrailFilters(t *testing.T) {
	db := setupTestDB(t)
	recorder := NewRecorder(db)
	seedMixedTrail(t, recorder)

	all, err := recorder.Trail(1, Filter{})
	require.NoError(t, err)
	assert.Len(t, all, 4)

	checks, err := recorder.Trail(1, Filter{Action: "permission.check"})
	require.NoError(t, err)
	assert.Len(t, checks, 2)

	denied, err := recorder.Trail(1, Filter{Result: models.AuditResultDenied})
	require.NoError(t, err)
	require.Len(t, denied, 1)
	assert.Equal(t, "permission.check", denied[0].Action)

	limited, err := recorder.Trail(1, Filter{Limit: 2, Offset: 1})
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.EqualValues(t, 2, limited[0].Sequence)
}

func TestTrailTimeWindow(t *testing.T) {
	db := setupTestDB(t)
	recorder := NewRecorder(db)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		offset := time.Duration(i) * time.Hour
		recorder.now = func() time.Time { return base.Add(offset) }

		_, err := recorder.Record(Entry{
			UserID: 1, Action: "permission.check", Result: models.AuditResultSuccess,
		})
		require.NoError(t, err)
	}

	from := base.Add(30 * time.Minute)
	to := base.Add(90 * time.Minute)

	window, err := recorder.Trail(1, Filter{From: &from, To: &to})
	require.NoError(t, err)
	require.Len(t, window, 1)
	assert.EqualValues(t, 2, window[0].Sequence)
}

func TestTrailIncludesArchived(t *testing.T) {
	db := setupTestDB(t)
	recorder := NewRecorder(db)

	recorder.now = func() time.Time { return time.Now().Add(-400 * 24 * time.Hour) }
	recordN(t, recorder, 1, 2)
	recorder.now = time.Now
	recordN(t, recorder, 1, 1)

	_, err := recorder.ApplyRetentionPolicy(FrameworkPCIDSS)
	require.NoError(t, err)

	liveOnly, err := recorder.Trail(1, Filter{})
	require.NoError(t, err)
	assert.Len(t, liveOnly, 1)

	full, err := recorder.Trail(1, Filter{IncludeArchived: true})
	require.NoError(t, err)
	require.Len(t, full, 3)
	assert.EqualValues(t, 1, full[0].Sequence)
	assert.EqualValues(t, 3, full[2].Sequence)
}

func TestGetStatistics(t *testing.T) {
	db := setupTestDB(t)
	recorder := NewRecorder(db)
	seedMixedTrail(t, recorder)

	stats, err := recorder.GetStatistics(1, Filter{})
	require.NoError(t, err)

	assert.EqualValues(t, 4, stats.Total)
	assert.EqualValues(t, 2, stats.ByAction["permission.check"])
	assert.EqualValues(t, 1, stats.ByAction["permission.grant"])
	assert.EqualValues(t, 1, stats.ByAction["context.switch"])
	assert.EqualValues(t, 3, stats.ByResult[string(models.AuditResultSuccess)])
	assert.EqualValues(t, 1, stats.ByResult[string(models.AuditResultDenied)])
	require.NotNil(t, stats.First)
	require.NotNil(t, stats.Last)
	assert.False(t, stats.Last.Before(*stats.First))
}

func TestGetStatisticsEmpty(t *testing.T) {
	db := setupTestDB(t)
	recorder := NewRecorder(db)

	stats, err := recorder.GetStatistics(9, Filter{})
	require.NoError(t, err)

	assert.Zero(t, stats.Total)
	assert.Nil(t, stats.First)
	assert.Nil(t, stats.Last)
}
