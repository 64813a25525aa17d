package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/hamed0406/moisturealert/internal/domain"
	"github.com/hamed0406/moisturealert/internal/repo"
)

var _ repo.RecordStore = (*Store)(nil)

// Store keeps monitoring records as JSONB rows keyed by plant id.
type Store struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

func New(ctx context.Context, dsn string, log *zap.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	ctxPing, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctxPing); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return &Store{pool: pool, log: log}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *Store) Get(ctx context.Context, id domain.PlantID) (*domain.MonitoringRecord, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx,
		`SELECT record FROM moisture_monitoring WHERE plant_id = $1`,
		string(id),
	).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repo.ErrNotFound
		}
		return nil, fmt.Errorf("get record: %w", err)
	}
	rec, err := domain.DecodeRecord(raw)
	if err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	if rec == nil {
		return nil, repo.ErrNotFound
	}
	return rec, nil
}

// Put upserts the record. Updates fire the notify trigger installed by
// InstallTrigger; inserts do not.
func (s *Store) Put(ctx context.Context, id domain.PlantID, rec domain.MonitoringRecord) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO moisture_monitoring (plant_id, record, updated_at)
		 VALUES ($1, $2, now())
		 ON CONFLICT (plant_id)
		 DO UPDATE SET record = EXCLUDED.record, updated_at = EXCLUDED.updated_at`,
		string(id), raw,
	)
	if err != nil {
		return fmt.Errorf("put record: %w", err)
	}
	return nil
}
