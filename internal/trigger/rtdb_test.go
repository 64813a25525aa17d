package trigger

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/cloudevents/sdk-go/v2/event"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/hamed0406/moisturealert/internal/alert"
	"github.com/hamed0406/moisturealert/internal/domain"
)

type recordingHandler struct {
	mu      sync.Mutex
	changes []domain.Change
	out     alert.Result
}

func (h *recordingHandler) Handle(_ context.Context, ch domain.Change) alert.Result {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.changes = append(h.changes, ch)
	return h.out
}

func newEvent(t *testing.T, subject, typ string, data interface{}) event.Event {
	t.Helper()
	e := event.New()
	e.SetID("evt-1")
	e.SetSource("//firebasedatabase.googleapis.com/projects/_/locations/us-central1/instances/demo")
	e.SetType(typ)
	e.SetSubject(subject)
	if data != nil {
		if err := e.SetData(event.ApplicationJSON, data); err != nil {
			t.Fatalf("SetData: %v", err)
		}
	}
	return e
}

func TestRTDB_Handle_BuildsBeforeAndAfter(t *testing.T) {
	h := &recordingHandler{}
	tr := &RTDB{Path: "Moisture_Monitoring", Handler: h, Logger: zap.NewNop()}

	e := newEvent(t, "refs/Moisture_Monitoring/plant-1", UpdatedEventType, json.RawMessage(`{
		"data":  {"moisture_value": 25, "fcm_token": "T1", "plant_name": "Fern"},
		"delta": {"moisture_value": 15}
	}`))

	if err := tr.Handle(context.Background(), e); err != nil {
		t.Fatalf("Handle must not return errors, got %v", err)
	}
	if len(h.changes) != 1 {
		t.Fatalf("want one change, got %d", len(h.changes))
	}
	ch := h.changes[0]
	if ch.PlantID != "plant-1" || ch.EventID != "evt-1" {
		t.Fatalf("meta wrong: %+v", ch)
	}
	if ch.Before.MoistureValue.Value != 25 || ch.After.MoistureValue.Value != 15 {
		t.Fatalf("moisture wrong: before=%+v after=%+v", ch.Before, ch.After)
	}
	if ch.After.FCMToken != "T1" || ch.After.PlantName != "Fern" {
		t.Fatalf("unchanged fields must carry over: %+v", ch.After)
	}
}

func TestRTDB_Handle_NullBeforeIsPassedThrough(t *testing.T) {
	h := &recordingHandler{}
	tr := &RTDB{Path: "Moisture_Monitoring", Handler: h, Logger: zap.NewNop()}

	e := newEvent(t, "refs/Moisture_Monitoring/p", UpdatedEventType, json.RawMessage(`{"data": null, "delta": {"moisture_value": 5, "fcm_token": "T1"}}`))
	_ = tr.Handle(context.Background(), e)

	if len(h.changes) != 1 || h.changes[0].Before != nil || h.changes[0].After == nil {
		t.Fatalf("want nil before and non-nil after, got %+v", h.changes)
	}
}

func TestRTDB_Handle_IgnoresOtherPathsAndTypes(t *testing.T) {
	h := &recordingHandler{}
	tr := &RTDB{Path: "Moisture_Monitoring", Handler: h, Logger: zap.NewNop()}
	body := json.RawMessage(`{"data": {}, "delta": {}}`)

	_ = tr.Handle(context.Background(), newEvent(t, "refs/Other/p", UpdatedEventType, body))
	_ = tr.Handle(context.Background(), newEvent(t, "refs/Moisture_Monitoring/p/moisture_value", UpdatedEventType, body))
	_ = tr.Handle(context.Background(), newEvent(t, "refs/Moisture_Monitoring/p", "google.firebase.database.ref.v1.created", body))

	if len(h.changes) != 0 {
		t.Fatalf("nothing should be handled, got %+v", h.changes)
	}
}

func TestRTDB_Handle_BadSnapshotIsInvalidNotError(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	h := &recordingHandler{}
	tr := &RTDB{Path: "Moisture_Monitoring", Handler: h, Logger: zap.New(core)}

	e := newEvent(t, "refs/Moisture_Monitoring/p", UpdatedEventType, json.RawMessage(`{"data": 42, "delta": {"moisture_value": 5}}`))
	if err := tr.Handle(context.Background(), e); err != nil {
		t.Fatalf("Handle must not return errors, got %v", err)
	}
	if len(h.changes) != 1 || h.changes[0].Before != nil || h.changes[0].After != nil {
		t.Fatalf("want a change with no snapshots, got %+v", h.changes)
	}
	if logs.FilterMessage("rtdb_snapshot_decode_error").Len() != 1 {
		t.Fatalf("decode error not logged")
	}
}

func TestPlantFromSubject(t *testing.T) {
	cases := []struct {
		subject string
		want    domain.PlantID
		ok      bool
	}{
		{"refs/Moisture_Monitoring/abc", "abc", true},
		{"/refs/Moisture_Monitoring/abc/", "abc", true},
		{"refs/Moisture_Monitoring", "", false},
		{"refs/Moisture_Monitoring/", "", false},
		{"refs/Moisture_Monitoring/abc/fcm_token", "", false},
		{"refs/Moisture_MonitoringX/abc", "", false},
	}
	for _, c := range cases {
		got, ok := plantFromSubject(c.subject, "Moisture_Monitoring")
		if got != c.want || ok != c.ok {
			t.Fatalf("plantFromSubject(%q) = %q,%v want %q,%v", c.subject, got, ok, c.want, c.ok)
		}
	}
}

func TestApplyDelta(t *testing.T) {
	cases := []struct {
		data, delta, want string
	}{
		{`{"a":1,"b":2}`, `{"b":3}`, `{"a":1,"b":3}`},
		{`{"a":1,"b":2}`, `{"b":null}`, `{"a":1}`},
		{`{"a":{"x":1,"y":2}}`, `{"a":{"y":null,"z":3}}`, `{"a":{"x":1,"z":3}}`},
		{`null`, `{"a":1}`, `{"a":1}`},
		{`{"a":1}`, `5`, `5`},
		{`{"a":1}`, `{"a":null}`, `null`},
	}
	for _, c := range cases {
		got, err := applyDelta(json.RawMessage(c.data), json.RawMessage(c.delta))
		if err != nil {
			t.Fatalf("applyDelta(%s,%s): %v", c.data, c.delta, err)
		}
		if string(got) != c.want {
			t.Fatalf("applyDelta(%s,%s) = %s want %s", c.data, c.delta, got, c.want)
		}
	}
}
