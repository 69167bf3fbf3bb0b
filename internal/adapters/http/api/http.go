// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"golang.org/x/time/rate"

	service "github.com/okian/defend100/internal/app"
	"github.com/okian/defend100/internal/domain/goals"
	"github.com/okian/defend100/internal/domain/leveling"
	"github.com/okian/defend100/internal/domain/progress"
	"github.com/okian/defend100/internal/domain/scoring"
	"github.com/okian/defend100/internal/domain/types"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to the service implementation.
type Dependencies interface {
	StatsProvider

	ResolveDate(raw string) (progress.DateKey, error)

	Goals() goals.Table
	ActiveGoals() []goals.Config
	SaveGoals(ctx context.Context, overrides goals.Overrides) (goals.Table, []goals.Violation, error)
	UpdateGoal(ctx context.Context, key goals.Key, o goals.Override) (goals.Config, error)

	Progress(date progress.DateKey) types.ProgressView
	SetValue(ctx context.Context, req service.SetRequest) (types.SetResult, error)

	HistoryDays(limit int) []types.DayScore
	Audit(date progress.DateKey) scoring.Audit
	RankInfo() leveling.RankInfo
	Profile() types.Profile
}

// Server wires HTTP routes for the integrity API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	goalsHandler    *GoalsHandler
	progressHandler *ProgressHandler
	scoreHandler    *ScoreHandler
	rankHandler     *RankHandler

	limiter    *rate.Limiter
	maxHistory int
}

// Option configures a Server.
type Option func(*Server)

// WithRateLimit bounds write requests to rps with the given burst. rps <= 0
// disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(s *Server) {
		if rps <= 0 {
			s.limiter = nil
			s.statsHandler.rateLimit, s.statsHandler.burst = 0, 0
			return
		}
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(rps), burst)
		s.statsHandler.rateLimit, s.statsHandler.burst = rps, burst
	}
}

// WithMaxHistory caps the number of days GET /history returns.
func WithMaxHistory(days int) Option {
	return func(s *Server) {
		if days > 0 {
			s.maxHistory = days
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...Option) *Server {
	s := &Server{
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(deps),
		goalsHandler:    NewGoalsHandler(deps),
		progressHandler: NewProgressHandler(deps),
		scoreHandler:    NewScoreHandler(deps),
		rankHandler:     NewRankHandler(deps),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.scoreHandler.maxHistory = s.maxHistory
	s.statsHandler.maxHistory = s.maxHistory
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /metrics", s.healthHandler.HandleMetrics)
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	mux.HandleFunc("GET /goals", MetricsMiddleware(s.goalsHandler.HandleGetGoals, "goals"))
	mux.HandleFunc("GET /goals/active", MetricsMiddleware(s.goalsHandler.HandleGetActiveGoals, "goals_active"))
	mux.HandleFunc("PUT /goals", MetricsMiddleware(s.limit(s.goalsHandler.HandlePutGoals, "goals"), "goals"))
	mux.HandleFunc("PATCH /goals/{key}", MetricsMiddleware(s.limit(s.goalsHandler.HandlePatchGoal, "goal"), "goal"))

	mux.HandleFunc("GET /progress/{date}", MetricsMiddleware(s.progressHandler.HandleGetProgress, "progress"))
	mux.HandleFunc("POST /progress", MetricsMiddleware(s.limit(s.progressHandler.HandlePostProgress, "progress"), "progress"))

	mux.HandleFunc("GET /score/{date}", MetricsMiddleware(s.scoreHandler.HandleGetScore, "score"))
	mux.HandleFunc("GET /history", MetricsMiddleware(s.scoreHandler.HandleGetHistory, "history"))
	mux.HandleFunc("GET /audit/{date}", MetricsMiddleware(s.scoreHandler.HandleGetAudit, "audit"))

	mux.HandleFunc("GET /rank", MetricsMiddleware(s.rankHandler.HandleGetRank, "rank"))
	mux.HandleFunc("GET /profile", MetricsMiddleware(s.rankHandler.HandleGetProfile, "profile"))
}

func (s *Server) limit(next http.HandlerFunc, endpoint string) http.HandlerFunc {
	if s.limiter == nil {
		return next
	}
	return RateLimitMiddleware(next, s.limiter, endpoint)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

var validate = validator.New()

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeDomainError translates domain errors into the error envelope.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, goals.ErrUnknownKey):
		writeError(w, http.StatusNotFound, "unknown_goal", err)
	case errors.Is(err, progress.ErrInvalidDate):
		writeError(w, http.StatusBadRequest, "invalid_date", err)
	case errors.Is(err, progress.ErrInvalidValue):
		writeError(w, http.StatusBadRequest, "invalid_value", err)
	case errors.Is(err, goals.ErrInvalidOverride), errors.Is(err, goals.ErrMalformed):
		writeError(w, http.StatusBadRequest, "invalid_goal", err)
	case errors.Is(err, ErrBadRequest):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, service.ErrNotStarted):
		writeError(w, http.StatusServiceUnavailable, "unavailable", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}

// queryInt reads a non-negative integer query parameter.
func queryInt(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, WrapKind("api.query", ErrBadRequest, errors.New("invalid "+name))
	}
	return v, nil
}
