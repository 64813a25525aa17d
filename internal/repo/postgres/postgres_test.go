package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/hamed0406/moisturealert/internal/domain"
	"github.com/hamed0406/moisturealert/internal/repo"
)

func TestPostgresStore_Put_Get_Notify(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set; skipping Postgres integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store, err := New(ctx, dsn, zap.NewNop())
	if err != nil {
		t.Fatalf("New store: %v", err)
	}
	defer store.Close()

	channel := "moisture_test_updated"
	if err := store.InstallTrigger(ctx, channel); err != nil {
		t.Fatalf("InstallTrigger: %v", err)
	}

	// Unique id per run so reruns start from "not found".
	id := domain.PlantID(fmt.Sprintf("test-%d", time.Now().UTC().UnixNano()))
	if _, err := store.Get(ctx, id); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}

	listener, err := pgx.Connect(ctx, dsn)
	if err != nil {
		t.Fatalf("connect listener: %v", err)
	}
	defer listener.Close(context.Background())
	if _, err := listener.Exec(ctx, "LISTEN "+channel); err != nil {
		t.Fatalf("LISTEN: %v", err)
	}

	if err := store.Put(ctx, id, domain.MonitoringRecord{MoistureValue: domain.NewReading(25), FCMToken: "T1", PlantName: "Fern"}); err != nil {
		t.Fatalf("Put insert: %v", err)
	}
	if err := store.Put(ctx, id, domain.MonitoringRecord{MoistureValue: domain.NewReading(15), FCMToken: "T1", PlantName: "Fern"}); err != nil {
		t.Fatalf("Put update: %v", err)
	}

	got, err := store.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.MoistureValue.Value != 15 || got.PlantName != "Fern" {
		t.Fatalf("unexpected record: %+v", got)
	}

	// Only the update notifies; skip notifications left by other tests.
	for {
		n, err := listener.WaitForNotification(ctx)
		if err != nil {
			t.Fatalf("wait for notification: %v", err)
		}
		if n.Channel == channel && strings.Contains(n.Payload, `"`+string(id)+`"`) {
			break
		}
	}
}
