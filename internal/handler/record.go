package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/sakif/glucolog/internal/auth"
	"github.com/sakif/glucolog/internal/service"
)

// RecordHandler manages CRUD operations for blood-glucose records.
//
// Every route it serves sits behind auth.RequireAuth, so the userID in the
// request context is always the verified caller. The handler's only jobs
// are JSON parsing and status mapping — ownership checks and value
// invariants live in service.RecordService.
type RecordHandler struct {
	records *service.RecordService
	logger  *slog.Logger
}

// NewRecordHandler creates a RecordHandler.
func NewRecordHandler(records *service.RecordService, logger *slog.Logger) *RecordHandler {
	return &RecordHandler{records: records, logger: logger}
}

// recordRequest is the request body for create and update.
//
// Level is a pointer so "level": 0 and a missing level are distinguishable:
// a missing field should read as "field required", not as an out-of-range
// zero. MeasuredAt accepts RFC 3339 in any timezone; the service normalizes
// to UTC.
type recordRequest struct {
	Level      *float64  `json:"level"`
	MeasuredAt time.Time `json:"measuredAt"`
	Note       string    `json:"note"`
}

// HandleList returns all of the caller's records, newest first.
//
// HTTP: GET /api/records
func (h *RecordHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "valid authentication required"})
		return
	}

	records, err := h.records.List(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, records)
}

// HandleCreate stores a new measurement for the caller.
//
// HTTP: POST /api/records
// BODY: {"level": 5.4, "measuredAt": "2025-08-30T07:30:00Z", "note": "after breakfast"}
func (h *RecordHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "valid authentication required"})
		return
	}

	req, ok := h.decodeRecord(w, r)
	if !ok {
		return
	}

	record, err := h.records.Create(r.Context(), userID, *req.Level, req.MeasuredAt, req.Note)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, record)
}

// HandleGet returns a single record by id.
//
// HTTP: GET /api/records/{id}
// Another user's record id answers 404, exactly like a nonexistent one.
func (h *RecordHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "valid authentication required"})
		return
	}

	record, err := h.records.Get(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, record)
}

// HandleUpdate replaces level, measurement time, and note of a record.
//
// HTTP: PUT /api/records/{id}
func (h *RecordHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "valid authentication required"})
		return
	}

	req, ok := h.decodeRecord(w, r)
	if !ok {
		return
	}

	record, err := h.records.Update(r.Context(), userID, r.PathValue("id"), *req.Level, req.MeasuredAt, req.Note)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, record)
}

// HandleDelete removes a record.
//
// HTTP: DELETE /api/records/{id}
// 204 on success; a second delete of the same id answers 404.
func (h *RecordHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "valid authentication required"})
		return
	}

	if err := h.records.Delete(r.Context(), userID, r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleStats returns the dashboard summary for the caller's records.
//
// HTTP: GET /api/records/stats
func (h *RecordHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "valid authentication required"})
		return
	}

	stats, err := h.records.Stats(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// decodeRecord parses and minimally checks the shared create/update body.
// Returns ok=false after writing the 400 itself.
func (h *RecordHandler) decodeRecord(w http.ResponseWriter, r *http.Request) (*recordRequest, bool) {
	var req recordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid record JSON", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: "invalid JSON body"})
		return nil, false
	}
	if req.Level == nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: "level is required"})
		return nil, false
	}
	return &req, true
}
