package http

import (
	"errors"
	"net/http"
	"strconv"

	json "github.com/goccy/go-json"

	"github.com/seawatch/trackwatch/internal/alerts"
	"github.com/seawatch/trackwatch/internal/domain"
	"github.com/seawatch/trackwatch/internal/errs"
	"github.com/seawatch/trackwatch/internal/logging"
	"github.com/seawatch/trackwatch/internal/replay"
)

// Handlers implements the control-surface operations from spec §6.
// subscribe_events is served separately by internal/transport/ws since
// it is a streaming, not request/response, operation.
type Handlers struct {
	driver *replay.Driver
	alerts *alerts.Repository
}

func NewHandlers(driver *replay.Driver, alertRepo *alerts.Repository) *Handlers {
	return &Handlers{driver: driver, alerts: alertRepo}
}

type startReplayRequest struct {
	Path         string  `json:"path"`
	Speedup      float64 `json:"speedup"`
	UseStreaming bool    `json:"use_streaming"`
	BatchSize    int     `json:"batch_size"`
}

// StartReplay handles POST /replay/start.
func (h *Handlers) StartReplay(w http.ResponseWriter, r *http.Request) {
	var req startReplayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if req.Speedup == 0 {
		req.Speedup = 1
	}
	if req.BatchSize == 0 {
		req.BatchSize = 100
	}

	if err := h.driver.Start(req.Path, req.Speedup, req.UseStreaming, req.BatchSize); err != nil {
		writeJSONError(w, statusForError(err), err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, h.driver.Status())
}

// StopReplay handles POST /replay/stop. Idempotent per spec §6.
func (h *Handlers) StopReplay(w http.ResponseWriter, r *http.Request) {
	h.driver.Stop()
	writeJSON(w, http.StatusOK, h.driver.Status())
}

// ReplayStatus handles GET /replay/status.
func (h *Handlers) ReplayStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.driver.Status())
}

type updateAlertStatusRequest struct {
	Status domain.AlertStatus `json:"status"`
	Notes  string              `json:"notes"`
}

// UpdateAlertStatus handles PATCH /alerts/{id}/status.
func (h *Handlers) UpdateAlertStatus(w http.ResponseWriter, r *http.Request) {
	idStr := r.PathValue("id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "alert id must be numeric")
		return
	}

	var req updateAlertStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	if err := h.alerts.UpdateStatus(r.Context(), id, req.Status, req.Notes); err != nil {
		writeJSONError(w, statusForError(err), err.Error())
		return
	}

	alert, err := h.alerts.Get(r.Context(), id)
	if err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Int64("alert_id", id).Msg("alert updated but reload failed")
		writeJSON(w, http.StatusOK, map[string]any{"id": id, "status": req.Status})
		return
	}
	writeJSON(w, http.StatusOK, alert)
}

func statusForError(err error) int {
	switch errs.ClassOf(err) {
	case errs.KindConfig, errs.KindRecord:
		return http.StatusBadRequest
	case errs.KindSource:
		return http.StatusNotFound
	case errs.KindState:
		return http.StatusConflict
	default:
		if errors.Is(err, errs.SubscriberOverflowErr) {
			return http.StatusServiceUnavailable
		}
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
