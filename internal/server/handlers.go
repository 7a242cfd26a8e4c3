package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"drainwatch.sh/internal/derrors"
	"drainwatch.sh/internal/ledger"
	"drainwatch.sh/internal/metrics"
	"drainwatch.sh/internal/models"
	"drainwatch.sh/internal/query"
	"drainwatch.sh/viewmodel"
)

// handleHealth returns liveness status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().Unix(),
		"service":   "drainwatch",
		"version":   s.vm.Version(),
	})
}

// handleSnapshot returns the full consistent snapshot the dashboard polls.
func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.vm.Snapshot())
}

func (s *Server) handleZones(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.vm.Zones())
}

// handleSensors answers the monitoring table/grid: filtered, sorted sensors.
func (s *Server) handleSensors(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	spec := query.Spec{
		Status:     models.Status(q.Get("status")),
		Zone:       q.Get("zone"),
		SearchText: q.Get("search"),
		SortBy:     query.SortKey(q.Get("sort")),
	}
	result := s.vm.Query(spec)
	writeJSON(w, http.StatusOK, map[string]any{
		"sensors": result.Sensors,
		"total":   len(result.Sensors),
	})
}

// handleSensor answers the sensor detail page: latest reading plus history.
func (s *Server) handleSensor(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	latest, history, err := s.vm.Sensor(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"sensor":  latest,
		"history": history,
	})
}

func (s *Server) handleRemoveSensor(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.vm.RemoveSensor(id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleAlerts answers the alerts page with the ledger's filter set.
func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	alerts := s.vm.ListAlerts(ledger.Filter{
		State:      models.LifecycleState(q.Get("tab")),
		Severity:   models.Severity(q.Get("severity")),
		Priority:   models.Priority(q.Get("priority")),
		SensorID:   q.Get("sensor"),
		SearchText: q.Get("search"),
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"alerts": alerts,
		"total":  len(alerts),
	})
}

type actorRequest struct {
	Actor string `json:"actor"`
}

func (s *Server) handleAcknowledge(w http.ResponseWriter, r *http.Request) {
	s.handleTransition(w, r, s.vm.Acknowledge)
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	s.handleTransition(w, r, s.vm.Resolve)
}

func (s *Server) handleTransition(w http.ResponseWriter, r *http.Request,
	apply func(alertID, actor string) (models.Alert, error),
) {
	id := mux.Vars(r)["id"]
	var req actorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Actor == "" {
		http.Error(w, "actor is required", http.StatusBadRequest)
		return
	}

	alert, err := apply(id, req.Actor)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, alert)
}

type bulkRequest struct {
	IDs   []string `json:"ids"`
	Actor string   `json:"actor"`
}

type bulkItemResult struct {
	AlertID string `json:"alert_id"`
	OK      bool   `json:"ok"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
}

func (s *Server) handleBulkAcknowledge(w http.ResponseWriter, r *http.Request) {
	s.handleBulk(w, r, s.vm.AcknowledgeMany)
}

func (s *Server) handleBulkResolve(w http.ResponseWriter, r *http.Request) {
	s.handleBulk(w, r, s.vm.ResolveMany)
}

// handleBulk applies a transition per id; one failure never blocks the rest.
func (s *Server) handleBulk(w http.ResponseWriter, r *http.Request,
	apply func(ids []string, actor string) []ledger.OpResult,
) {
	var req bulkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Actor == "" {
		http.Error(w, "actor is required", http.StatusBadRequest)
		return
	}

	results := apply(req.IDs, req.Actor)
	items := make([]bulkItemResult, 0, len(results))
	for _, res := range results {
		item := bulkItemResult{AlertID: res.AlertID, OK: res.Err == nil}
		if res.Err != nil {
			item.Error = res.Err.Error()
			item.Code = string(derrors.GetCode(res.Err))
		}
		items = append(items, item)
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": items})
}

type ingestRequest struct {
	Readings []models.SensorReading `json:"readings"`
	Alerts   []models.Alert         `json:"alerts"`
}

type ingestError struct {
	Kind    string `json:"kind"`
	ID      string `json:"id,omitempty"`
	Message string `json:"message"`
}

// handleIngest is the feed entry point: partial failure, never
// all-or-nothing. The response reports the new version and every rejected
// record.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	result := s.vm.Ingest(req.Readings, req.Alerts)
	metrics.ObserveIngest(len(req.Readings)-countKind(result.Errors, "reading"),
		len(req.Alerts)-countKind(result.Errors, "alert"),
		len(result.Errors))

	snap := s.vm.Snapshot()
	metrics.ObserveState(snap.Aggregates, snap.Version)

	errs := make([]ingestError, 0, len(result.Errors))
	for _, e := range result.Errors {
		errs = append(errs, ingestError{Kind: e.Kind, ID: e.ID, Message: e.Message()})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"version":  result.Version,
		"accepted": result.Accepted,
		"errors":   errs,
	})
}

func countKind(errs []viewmodel.IngestError, kind string) int {
	n := 0
	for _, e := range errs {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// writeError maps error codes to HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch derrors.GetCode(err) {
	case derrors.CodeNotFound:
		status = http.StatusNotFound
	case derrors.CodeAlreadyExists, derrors.CodeFailedPrecondition:
		status = http.StatusConflict
	case derrors.CodeInvalidArgument:
		status = http.StatusBadRequest
	}
	writeJSON(w, status, map[string]any{
		"error": err.Error(),
		"code":  string(derrors.GetCode(err)),
	})
}
