package trigger

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/hamed0406/moisturealert/internal/domain"
)

// pgEvent is the pg_notify payload published by the moisture_monitoring
// update trigger.
type pgEvent struct {
	PlantID string          `json:"plant_id"`
	Before  json.RawMessage `json:"before"`
	After   json.RawMessage `json:"after"`
}

// PGListener turns Postgres NOTIFY messages into record changes. It holds a
// dedicated connection, not one from a pool.
type PGListener struct {
	DSN     string
	Channel string
	Handler Handler
	Logger  *zap.Logger

	// MaxBackoff caps the reconnect delay. Zero means 30s.
	MaxBackoff time.Duration
}

// Run listens until ctx is cancelled, reconnecting with exponential backoff
// when the connection drops. Intended to be called with `go`.
func (l *PGListener) Run(ctx context.Context) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = time.Second
	bo.MaxInterval = l.MaxBackoff
	if bo.MaxInterval <= 0 {
		bo.MaxInterval = 30 * time.Second
	}
	bo.MaxElapsedTime = 0 // never give up

	for {
		err := l.listen(ctx, bo.Reset)
		if ctx.Err() != nil {
			l.Logger.Info("pg_listener_stopped")
			return
		}

		wait := bo.NextBackOff()
		l.Logger.Error("pg_listener_disconnected",
			zap.Error(err),
			zap.Duration("backoff", wait),
		)

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			l.Logger.Info("pg_listener_stopped")
			return
		}
	}
}

// listen runs one session; connected is called once LISTEN succeeds.
func (l *PGListener) listen(ctx context.Context, connected func()) error {
	conn, err := pgx.Connect(ctx, l.DSN)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer conn.Close(context.Background())

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{l.Channel}.Sanitize()); err != nil {
		return fmt.Errorf("LISTEN %s: %w", l.Channel, err)
	}
	connected()
	l.Logger.Info("pg_listener_connected", zap.String("channel", l.Channel))

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			return fmt.Errorf("wait for notification: %w", err)
		}
		// invocations are independent; do not block the connection on a send
		go l.dispatch(ctx, n.Payload)
	}
}

func (l *PGListener) dispatch(ctx context.Context, payload string) {
	ch, err := decodePGEvent(payload)
	if err != nil {
		l.Logger.Error("pg_event_decode_error",
			zap.String("payload", payload),
			zap.Error(err),
		)
		if ch.PlantID == "" {
			return
		}
	}
	l.Handler.Handle(ctx, ch)
}

// decodePGEvent parses a notification payload. When only the snapshots are
// malformed the returned Change still carries its plant id, with nil
// Before/After, so the notifier can log it as an invalid event.
func decodePGEvent(payload string) (domain.Change, error) {
	var ev pgEvent
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return domain.Change{}, err
	}
	ch := domain.Change{EventID: uuid.NewString(), PlantID: domain.PlantID(ev.PlantID)}
	if ev.PlantID == "" {
		return ch, fmt.Errorf("payload has no plant_id")
	}

	before, err := domain.DecodeRecord(ev.Before)
	if err != nil {
		return ch, fmt.Errorf("before: %w", err)
	}
	after, err := domain.DecodeRecord(ev.After)
	if err != nil {
		return ch, fmt.Errorf("after: %w", err)
	}
	ch.Before, ch.After = before, after
	return ch, nil
}
