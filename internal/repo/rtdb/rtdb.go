package rtdb

import (
	"context"
	"fmt"
	"strings"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/db"

	"github.com/hamed0406/moisturealert/internal/domain"
	"github.com/hamed0406/moisturealert/internal/repo"
)

var _ repo.RecordStore = (*Store)(nil)

type ref interface {
	Get(ctx context.Context, v interface{}) error
	Set(ctx context.Context, v interface{}) error
}

// Store reads and writes records in the Firebase Realtime Database under
// /<path>/<plantId>.
type Store struct {
	path  string
	refOf func(path string) ref
}

func New(ctx context.Context, app *firebase.App, path string) (*Store, error) {
	c, err := app.Database(ctx)
	if err != nil {
		return nil, fmt.Errorf("database client: %w", err)
	}
	return &Store{
		path:  strings.Trim(path, "/"),
		refOf: func(p string) ref { return c.NewRef(p) },
	}, nil
}

func (s *Store) recordPath(id domain.PlantID) string {
	return s.path + "/" + string(id)
}

func (s *Store) Get(ctx context.Context, id domain.PlantID) (*domain.MonitoringRecord, error) {
	var rec *domain.MonitoringRecord
	if err := s.refOf(s.recordPath(id)).Get(ctx, &rec); err != nil {
		return nil, fmt.Errorf("get %s: %w", s.recordPath(id), err)
	}
	if rec == nil {
		return nil, repo.ErrNotFound
	}
	return rec, nil
}

func (s *Store) Put(ctx context.Context, id domain.PlantID, rec domain.MonitoringRecord) error {
	if err := s.refOf(s.recordPath(id)).Set(ctx, rec); err != nil {
		return fmt.Errorf("set %s: %w", s.recordPath(id), err)
	}
	return nil
}

var _ ref = (*db.Ref)(nil)
