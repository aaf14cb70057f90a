package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/qviuqh/calendar-api/internal/models"
)

// Snapshot is the exported form of a calendar: the calendar itself and all
// of its events at the moment of export.
type Snapshot struct {
	Calendar   *models.Calendar `json:"calendar"`
	Events     []*models.Event  `json:"events"`
	ExportedAt time.Time        `json:"exported_at"`
}

// Exporter writes calendar snapshots to object storage
type Exporter struct {
	s3 *S3Client
}

// NewExporter creates an exporter over the given client
func NewExporter(client *S3Client) *Exporter {
	return &Exporter{s3: client}
}

// BuildSnapshot assembles the export document
func BuildSnapshot(cal *models.Calendar, events []*models.Event) *Snapshot {
	if events == nil {
		events = []*models.Event{}
	}
	return &Snapshot{
		Calendar:   cal,
		Events:     events,
		ExportedAt: time.Now().UTC(),
	}
}

// Export uploads a JSON snapshot of the calendar and returns the stored
// object's location.
func (e *Exporter) Export(ctx context.Context, cal *models.Calendar, events []*models.Event) (*UploadResult, error) {
	snapshot := BuildSnapshot(cal, events)

	data, err := json.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("encoding snapshot: %w", err)
	}

	key := fmt.Sprintf("calendars/%s/%s/%s.json",
		cal.UserID, cal.ID, snapshot.ExportedAt.Format("20060102T150405Z"))

	return e.s3.Upload(ctx, key, data, "application/json")
}
