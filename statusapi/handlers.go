package statusapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/warp/replica-sync/ringlog"
	"github.com/warp/replica-sync/sync"
)

// Handler holds everything the operator-facing routes read from; it
// never writes to the source or target directly, only through the
// Scheduler it wraps.
type Handler struct {
	Scheduler *sync.Scheduler
	Ring      *ringlog.Ring
}

// ErrorResponse is the uniform error body every handler returns on
// failure.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// EntityStatus is one row of the /status response.
type EntityStatus struct {
	Entity         string `json:"entity"`
	LastRunID      string `json:"lastRunId,omitempty"`
	Success        bool   `json:"success"`
	RecordsSynced  int    `json:"recordsSynced"`
	RecordsDeleted int    `json:"recordsDeleted"`
	PoisonRows     int    `json:"poisonRows"`
	ErrorMessage   string `json:"errorMessage,omitempty"`
	LastSyncTime   string `json:"lastSyncTime,omitempty"`
	ElapsedMs      int64  `json:"elapsedMs"`
}

// StatusResponse is the /status payload.
type StatusResponse struct {
	State    sync.State     `json:"state"`
	Entities []EntityStatus `json:"entities"`
}

// Status reports the scheduler's lifecycle state plus the most recent
// pass outcome for every entity that has run at least once.
// GET /status
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	records := h.Scheduler.LastResults()

	entities := make([]EntityStatus, 0, len(records))
	for entity, rec := range records {
		entities = append(entities, EntityStatus{
			Entity:         entity,
			LastRunID:      rec.Result.RunID,
			Success:        rec.Result.Success,
			RecordsSynced:  rec.Result.RecordsSynced,
			RecordsDeleted: rec.Result.RecordsDeleted,
			PoisonRows:     rec.Result.PoisonRows,
			ErrorMessage:   rec.Result.ErrorMessage,
			LastSyncTime:   rec.Result.LastSyncTime.Format("2006-01-02T15:04:05Z07:00"),
			ElapsedMs:      rec.Result.Elapsed.Milliseconds(),
		})
	}

	writeJSON(w, http.StatusOK, StatusResponse{State: h.Scheduler.State(), Entities: entities})
}

// Logs returns the current contents of the bounded in-memory log
// stream.
// GET /logs
func (h *Handler) Logs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Ring.Snapshot())
}

// Trigger runs one immediate pass for {entity}, outside the scheduled
// interval. Responds 409 if a pass for that entity is already running.
// POST /sync/{entity}/trigger
func (h *Handler) Trigger(w http.ResponseWriter, r *http.Request) {
	entity := chi.URLParam(r, "entity")
	result, started := h.Scheduler.TriggerNow(entity)
	if !started {
		writeError(w, http.StatusConflict, "a pass for this entity is already running", nil)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
