package repo

import (
	"context"
	"errors"

	"github.com/hamed0406/moisturealert/internal/domain"
)

var ErrNotFound = errors.New("record not found")

// RecordStore is the external data store holding one monitoring record per
// plant. The notifier only reads; Put exists for the emulator and for
// tooling that plays the sensor.
type RecordStore interface {
	Get(ctx context.Context, id domain.PlantID) (*domain.MonitoringRecord, error)
	Put(ctx context.Context, id domain.PlantID, rec domain.MonitoringRecord) error
}
