package api

import (
	"encoding/json"
	"net/http"

	service "github.com/okian/defend100/internal/app"
	"github.com/okian/defend100/internal/domain/goals"
)

// ProgressHandler serves recorded values.
type ProgressHandler struct {
	deps Dependencies
}

// NewProgressHandler creates a new progress handler.
func NewProgressHandler(deps Dependencies) *ProgressHandler {
	return &ProgressHandler{deps: deps}
}

// setValueRequest mirrors the OpenAPI schema for POST /progress.
type setValueRequest struct {
	WriteID string   `json:"write_id" validate:"omitempty,max=128"`
	Date    string   `json:"date"     validate:"omitempty,datetime=2006-01-02|eq=today"`
	Key     string   `json:"key"      validate:"required"`
	Value   *float64 `json:"value"    validate:"required"`
}

// HandleGetProgress handles GET /progress/{date}; "today" is accepted.
func (h *ProgressHandler) HandleGetProgress(w http.ResponseWriter, r *http.Request) {
	date, err := h.deps.ResolveDate(r.PathValue("date"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.deps.Progress(date))
}

// HandlePostProgress handles POST /progress requests.
func (h *ProgressHandler) HandlePostProgress(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_progress"
	var req setValueRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	key, err := goals.ParseKey(req.Key)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unknown_goal", WrapKind(op, ErrBadRequest, err))
		return
	}

	res, err := h.deps.SetValue(r.Context(), service.SetRequest{
		WriteID: req.WriteID,
		Date:    req.Date,
		Key:     key,
		Value:   *req.Value,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	status := http.StatusOK
	if !res.Duplicate {
		status = http.StatusCreated
	}
	writeJSON(w, status, res)
}
