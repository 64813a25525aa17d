package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/hamed0406/moisturealert/internal/alert"
	"github.com/hamed0406/moisturealert/internal/domain"
	apimw "github.com/hamed0406/moisturealert/internal/httpapi/middleware"
	"github.com/hamed0406/moisturealert/internal/metrics"
	"github.com/hamed0406/moisturealert/internal/repo"
	"github.com/hamed0406/moisturealert/internal/trigger"
)

type Server struct {
	Logger   *zap.Logger
	Notifier trigger.Handler
	Records  repo.RecordStore   // nil disables /api/records
	Writable bool               // mount PUT /api/records (emulator only)
	Metrics  *metrics.Collector // nil disables /metrics
}

func NewServer(l *zap.Logger, n trigger.Handler, records repo.RecordStore, writable bool, m *metrics.Collector) *Server {
	return &Server{Logger: l, Notifier: n, Records: records, Writable: writable, Metrics: m}
}

func (s *Server) Router(keys apimw.Keys, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	if s.Metrics != nil {
		r.Use(s.Metrics.InstrumentHandler)
	}
	if len(allowedOrigins) == 0 {
		r.Use(cors.AllowAll().Handler)
	} else {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: allowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
			AllowedHeaders: []string{"Authorization", "Content-Type", "X-API-Key"},
			MaxAge:         300,
		}))
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if s.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.Metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.With(apimw.RequireAdmin(keys)).Post("/events/{plantId}", s.handleEvent)

		if s.Records != nil {
			r.With(apimw.RequireAny(keys)).Get("/records/{plantId}", s.handleGetRecord)
			if s.Writable {
				r.With(apimw.RequireAdmin(keys)).Put("/records/{plantId}", s.handlePutRecord)
			}
		}
	})

	return r
}

type eventPayload struct {
	Before json.RawMessage `json:"before"`
	After  json.RawMessage `json:"after"`
}

type eventResponse struct {
	EventID string `json:"event_id"`
	alert.Result
	Error string `json:"error,omitempty"`
}

// handleEvent runs one update through the notifier, as if the database had
// fired it. Snapshots that are not records reach the notifier as missing,
// which reports them as invalid; only unparseable bodies are rejected here.
func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := plantParam(w, r)
	if !ok {
		return
	}
	var p eventPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "bad payload")
		return
	}

	ch := domain.Change{EventID: uuid.NewString(), PlantID: id}
	before, errB := domain.DecodeRecord(p.Before)
	after, errA := domain.DecodeRecord(p.After)
	if err := multierr.Combine(errB, errA); err != nil {
		s.Logger.Warn("api_event_snapshot_invalid",
			zap.String("plant_id", string(id)),
			zap.Error(err),
		)
	} else {
		ch.Before, ch.After = before, after
	}

	res := s.Notifier.Handle(r.Context(), ch)
	out := eventResponse{EventID: ch.EventID, Result: res}
	if res.Err != nil {
		out.Error = res.Err.Error()
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	id, ok := plantParam(w, r)
	if !ok {
		return
	}
	rec, err := s.Records.Get(r.Context(), id)
	if errors.Is(err, repo.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if err != nil {
		s.Logger.Error("record_get_error", zap.String("plant_id", string(id)), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "read error")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handlePutRecord(w http.ResponseWriter, r *http.Request) {
	id, ok := plantParam(w, r)
	if !ok {
		return
	}
	var rec domain.MonitoringRecord
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		writeError(w, http.StatusBadRequest, "bad payload")
		return
	}
	if err := s.Records.Put(r.Context(), id, rec); err != nil {
		s.Logger.Error("record_put_error", zap.String("plant_id", string(id)), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "write error")
		return
	}
	s.Logger.Info("record_written",
		zap.String("plant_id", string(id)),
		zap.Bool("moisture_valid", rec.MoistureValue.Valid),
		zap.Float64("moisture_value", rec.MoistureValue.Value),
	)
	w.WriteHeader(http.StatusNoContent)
}

func plantParam(w http.ResponseWriter, r *http.Request) (domain.PlantID, bool) {
	raw := chi.URLParam(r, "plantId")
	if !isValidPlantID(raw) {
		writeError(w, http.StatusBadRequest, "invalid plant id")
		return "", false
	}
	return domain.PlantID(raw), true
}

// isValidPlantID accepts what the realtime database accepts as a key.
func isValidPlantID(id string) bool {
	if id == "" || len(id) > 768 {
		return false
	}
	return !strings.ContainsAny(id, ".#$[]/") && !strings.ContainsFunc(id, func(r rune) bool {
		return r < 0x20 || r == 0x7f
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
