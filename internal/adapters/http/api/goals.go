package api

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/okian/defend100/internal/domain/goals"
)

// maxBodyBytes caps request bodies; the largest document is the six-goal
// overrides payload.
const maxBodyBytes = 64 << 10

// GoalsHandler serves the effective goal table and its edits.
type GoalsHandler struct {
	deps Dependencies
}

// NewGoalsHandler creates a new goals handler.
func NewGoalsHandler(deps Dependencies) *GoalsHandler {
	return &GoalsHandler{deps: deps}
}

type saveGoalsResponse struct {
	Goals      goals.Table `json:"goals"`
	Violations []string    `json:"violations"`
}

// patchGoalRequest is a single-goal edit. Target and limit are aliases for
// the threshold; target wins when both are sent.
type patchGoalRequest struct {
	Weight   *int     `json:"weight"   validate:"omitempty,gt=0"`
	Target   *float64 `json:"target"   validate:"omitempty,gt=0"`
	Limit    *float64 `json:"limit"    validate:"omitempty,gt=0"`
	Unit     *string  `json:"unit"     validate:"omitempty,max=32"`
	IsActive *bool    `json:"isActive"`
}

func (p patchGoalRequest) override() goals.Override {
	o := goals.Override{Weight: p.Weight, Unit: p.Unit, Active: p.IsActive}
	switch {
	case p.Target != nil:
		o.Threshold = p.Target
	case p.Limit != nil:
		o.Threshold = p.Limit
	}
	return o
}

// HandleGetGoals handles GET /goals requests.
func (h *GoalsHandler) HandleGetGoals(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.Goals())
}

// HandleGetActiveGoals handles GET /goals/active requests.
func (h *GoalsHandler) HandleGetActiveGoals(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.ActiveGoals())
}

// HandlePutGoals handles PUT /goals. The body is a full overrides document
// in the stored shape; fields that fail validation are dropped and listed.
func (h *GoalsHandler) HandlePutGoals(w http.ResponseWriter, r *http.Request) {
	const op = "api.put_goals"
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	overrides, err := goals.DecodeOverrides(body)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	table, violations, err := h.deps.SaveGoals(r.Context(), overrides)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	resp := saveGoalsResponse{Goals: table, Violations: make([]string, 0, len(violations))}
	for _, v := range violations {
		resp.Violations = append(resp.Violations, v.String())
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandlePatchGoal handles PATCH /goals/{key}.
func (h *GoalsHandler) HandlePatchGoal(w http.ResponseWriter, r *http.Request) {
	const op = "api.patch_goal"
	key, err := goals.ParseKey(r.PathValue("key"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	var req patchGoalRequest
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
	cfg, err := h.deps.UpdateGoal(r.Context(), key, req.override())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}
