package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/hamed0406/moisturealert/internal/domain"
	"github.com/hamed0406/moisturealert/internal/repo"
)

// UpdateFunc receives the before/after pair of an overwritten record.
type UpdateFunc func(ctx context.Context, ch domain.Change)

// Store is an in-process stand-in for the realtime database. Overwriting an
// existing record fires OnUpdate; creating one does not.
type Store struct {
	mu       sync.RWMutex
	records  map[domain.PlantID]domain.MonitoringRecord
	onUpdate UpdateFunc
}

func New(onUpdate UpdateFunc) *Store {
	return &Store{
		records:  make(map[domain.PlantID]domain.MonitoringRecord),
		onUpdate: onUpdate,
	}
}

func (m *Store) Get(ctx context.Context, id domain.PlantID) (*domain.MonitoringRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.records[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return &r, nil
}

func (m *Store) Put(ctx context.Context, id domain.PlantID, rec domain.MonitoringRecord) error {
	m.mu.Lock()
	prev, existed := m.records[id]
	m.records[id] = rec
	m.mu.Unlock()

	// hook runs outside the lock; it may block on the push provider
	if existed && m.onUpdate != nil {
		before, after := prev, rec
		m.onUpdate(ctx, domain.Change{
			EventID: uuid.NewString(),
			PlantID: id,
			Before:  &before,
			After:   &after,
		})
	}
	return nil
}
