package trigger

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloudevents/sdk-go/v2/event"
	"go.uber.org/zap"

	"github.com/hamed0406/moisturealert/internal/domain"
)

// UpdatedEventType is the CloudEvent type Firebase emits for RTDB updates.
const UpdatedEventType = "google.firebase.database.ref.v1.updated"

// rtdbEventData is the payload of RTDB CloudEvents: the value before the
// write and the written delta.
type rtdbEventData struct {
	Data  json.RawMessage `json:"data"`
	Delta json.RawMessage `json:"delta"`
}

// RTDB handles Realtime Database update events for /<Path>/{plantId}.
type RTDB struct {
	Path    string
	Handler Handler
	Logger  *zap.Logger
}

// Handle always returns nil so the platform never retries an invocation.
func (t *RTDB) Handle(ctx context.Context, e event.Event) error {
	log := t.Logger.With(zap.String("event_id", e.ID()), zap.String("subject", e.Subject()))

	if e.Type() != "" && e.Type() != UpdatedEventType {
		log.Debug("rtdb_event_ignored", zap.String("type", e.Type()))
		return nil
	}

	plantID, ok := plantFromSubject(e.Subject(), t.Path)
	if !ok {
		log.Debug("rtdb_event_other_path")
		return nil
	}

	ch := domain.Change{EventID: e.ID(), PlantID: plantID}

	var payload rtdbEventData
	if err := e.DataAs(&payload); err != nil {
		log.Error("rtdb_event_decode_error", zap.Error(err))
		t.Handler.Handle(ctx, ch)
		return nil
	}

	before, after, err := snapshots(payload)
	if err != nil {
		log.Error("rtdb_snapshot_decode_error", zap.Error(err))
	} else {
		ch.Before, ch.After = before, after
	}

	res := t.Handler.Handle(ctx, ch)
	log.Debug("rtdb_event_handled", zap.Stringer("outcome", res.Outcome))
	return nil
}

// plantFromSubject extracts {plantId} from "refs/<path>/<plantId>".
func plantFromSubject(subject, path string) (domain.PlantID, bool) {
	rest := strings.TrimPrefix(strings.Trim(subject, "/"), "refs/")
	prefix := strings.Trim(path, "/") + "/"
	if !strings.HasPrefix(rest, prefix) {
		return "", false
	}
	id := strings.TrimPrefix(rest, prefix)
	if id == "" || strings.Contains(id, "/") {
		return "", false
	}
	return domain.PlantID(id), true
}

func snapshots(p rtdbEventData) (*domain.MonitoringRecord, *domain.MonitoringRecord, error) {
	before, err := domain.DecodeRecord(p.Data)
	if err != nil {
		return nil, nil, fmt.Errorf("before: %w", err)
	}
	merged, err := applyDelta(p.Data, p.Delta)
	if err != nil {
		return nil, nil, fmt.Errorf("delta: %w", err)
	}
	after, err := domain.DecodeRecord(merged)
	if err != nil {
		return nil, nil, fmt.Errorf("after: %w", err)
	}
	return before, after, nil
}

// applyDelta computes the post-write value: objects merge key by key, a
// null in the delta deletes the key, anything else replaces the value.
func applyDelta(data, delta json.RawMessage) (json.RawMessage, error) {
	var base, change interface{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &base); err != nil {
			return nil, err
		}
	}
	if len(delta) > 0 {
		if err := json.Unmarshal(delta, &change); err != nil {
			return nil, err
		}
	}
	return json.Marshal(merge(base, change))
}

func merge(base, change interface{}) interface{} {
	cm, ok := change.(map[string]interface{})
	if !ok {
		return change
	}
	bm, ok := base.(map[string]interface{})
	if !ok {
		bm = map[string]interface{}{}
	}
	out := make(map[string]interface{}, len(bm)+len(cm))
	for k, v := range bm {
		out[k] = v
	}
	for k, v := range cm {
		if v == nil {
			delete(out, k)
			continue
		}
		out[k] = merge(out[k], v)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
