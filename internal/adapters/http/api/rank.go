// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"
)

// RankHandler handles rank and profile requests.
type RankHandler struct {
	deps Dependencies
}

// NewRankHandler creates a new rank handler.
func NewRankHandler(deps Dependencies) *RankHandler {
	return &RankHandler{deps: deps}
}

// HandleGetRank handles GET /rank requests.
func (h *RankHandler) HandleGetRank(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.RankInfo())
}

// HandleGetProfile handles GET /profile requests.
func (h *RankHandler) HandleGetProfile(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.Profile())
}
