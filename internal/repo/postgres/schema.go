package postgres

import (
	"context"
	"fmt"
	"regexp"
)

var channelName = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,62}$`)

// TriggerSQL creates the records table and a trigger that publishes every
// row update on channel as {"plant_id", "before", "after"}.
func TriggerSQL(channel string) (string, error) {
	if !channelName.MatchString(channel) {
		return "", fmt.Errorf("invalid channel name %q", channel)
	}
	return fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS moisture_monitoring (
  plant_id   TEXT PRIMARY KEY,
  record     JSONB NOT NULL,
  updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE OR REPLACE FUNCTION notify_moisture_monitoring_update() RETURNS trigger AS $$
BEGIN
  PERFORM pg_notify('%[1]s', json_build_object(
    'plant_id', NEW.plant_id,
    'before',   OLD.record,
    'after',    NEW.record
  )::text);
  RETURN NEW;
END;
$$ LANGUAGE plpgsql;

DROP TRIGGER IF EXISTS moisture_monitoring_updated ON moisture_monitoring;
CREATE TRIGGER moisture_monitoring_updated
  AFTER UPDATE ON moisture_monitoring
  FOR EACH ROW EXECUTE FUNCTION notify_moisture_monitoring_update();
`, channel), nil
}

// InstallTrigger applies TriggerSQL. Safe to run repeatedly.
func (s *Store) InstallTrigger(ctx context.Context, channel string) error {
	q, err := TriggerSQL(channel)
	if err != nil {
		return err
	}
	if _, err := s.pool.Exec(ctx, q); err != nil {
		return fmt.Errorf("install trigger: %w", err)
	}
	return nil
}
