package storage

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/qviuqh/calendar-api/internal/models"
)

func TestBuildSnapshot(t *testing.T) {
	cal := &models.Calendar{
		ID:       "cal-1",
		UserID:   "user-1",
		Name:     "Work",
		Timezone: "UTC",
	}
	events := []*models.Event{
		{
			ID:         "evt-1",
			CalendarID: "cal-1",
			Title:      "Standup",
			StartAt:    time.Date(2025, time.March, 10, 10, 0, 0, 0, time.UTC),
			EndAt:      time.Date(2025, time.March, 10, 10, 30, 0, 0, time.UTC),
			Status:     models.EventStatusConfirmed,
		},
	}

	snap := BuildSnapshot(cal, events)
	assert.Equal(t, cal, snap.Calendar)
	assert.Len(t, snap.Events, 1)
	assert.False(t, snap.ExportedAt.IsZero())
}

func TestBuildSnapshotEmptyCalendar(t *testing.T) {
	cal := &models.Calendar{ID: "cal-1", UserID: "user-1", Name: "Empty"}

	snap := BuildSnapshot(cal, nil)

	// An empty calendar exports as an empty array, not null
	data, err := json.Marshal(snap)
	assert.NoError(t, err)
	assert.Contains(t, string(data), `"events":[]`)
}

func TestNewS3ClientRequiresBucket(t *testing.T) {
	_, err := NewS3Client("http://localhost:9000", "us-east-1", "", "key", "secret")
	assert.Error(t, err)
}
