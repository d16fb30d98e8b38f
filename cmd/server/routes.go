package main

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	switchboard "github.com/switchboard-ai/switchboard"
	"github.com/switchboard-ai/switchboard/internal/attemptlog"
	"github.com/switchboard-ai/switchboard/internal/chain"
	"github.com/switchboard-ai/switchboard/internal/config"
	"github.com/switchboard-ai/switchboard/internal/httputil"
	"github.com/switchboard-ai/switchboard/pkg/policy"
	"github.com/switchboard-ai/switchboard/pkg/types"
)

const maxRequestBody = 10 << 20 // 10 MiB

// server holds the HTTP-facing dependencies.
type server struct {
	router     *switchboard.Router
	cfgManager *config.Manager
	logger     loggerIface
}

// loggerIface is the slice of observability.Logger the handlers need.
type loggerIface interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// buildHandler assembles the mux and wraps it in the middleware stack.
func buildHandler(srv *server, cfg *config.Config) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /v1/route", srv.handleRoute)
	mux.HandleFunc("GET /v1/status", srv.handleStatus)
	mux.HandleFunc("GET /v1/attempts", srv.handleAttempts)
	mux.HandleFunc("GET /v1/attempts/stats", srv.handleAttemptStats)
	mux.HandleFunc("GET /healthz", srv.handleHealthz)

	if cfg.Metrics.Enabled {
		path := cfg.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		mux.Handle("GET "+path, promhttp.Handler())
	}

	if cfg.Admin.JWTSecret != "" {
		mux.Handle("POST /admin/reload",
			jwtAuth(cfg.Admin.JWTSecret, http.HandlerFunc(srv.handleReload)))
	}

	return middlewareStack(mux)
}

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// handleRoute runs one routing operation. Configuration errors come back
// as client errors; an exhausted chain answers with the terminal failure's
// status and the full attempt trail in the body.
func (s *server) handleRoute(w http.ResponseWriter, r *http.Request) {
	body, err := httputil.ReadLimitedBody(r.Body, maxRequestBody)
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, err.Error())
		return
	}

	var req types.Request
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body: "+err.Error())
		return
	}

	res, err := s.router.Route(r.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, policy.ErrUnknownIntent):
			writeError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, chain.ErrAllProvidersMissing):
			writeError(w, http.StatusServiceUnavailable, err.Error())
		default:
			writeError(w, http.StatusBadRequest, err.Error())
		}
		return
	}

	status := http.StatusOK
	if res.Error != nil {
		status = res.Error.HTTPStatusCode()
	}
	writeJSON(w, status, res)
}

// statusReport joins the router view with config load metadata.
type statusReport struct {
	*switchboard.Status
	Config config.Status `json:"config"`
}

func (s *server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statusReport{
		Status: s.router.Status(),
		Config: s.cfgManager.Status(),
	})
}

func (s *server) handleAttempts(w http.ResponseWriter, r *http.Request) {
	store := s.router.AttemptStore()
	if store == nil {
		writeError(w, http.StatusNotFound, "attempt log is not enabled")
		return
	}

	filter := attemptlog.Filter{
		Intent:      r.URL.Query().Get("intent"),
		Disposition: types.Disposition(r.URL.Query().Get("disposition")),
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		filter.Limit = limit
	}
	if raw := r.URL.Query().Get("since"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "since must be RFC 3339")
			return
		}
		filter.Since = since
	}

	entries, err := store.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("attempt log list failed", "error", err.Error())
		writeError(w, http.StatusInternalServerError, "attempt log unavailable")
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *server) handleAttemptStats(w http.ResponseWriter, r *http.Request) {
	store := s.router.AttemptStore()
	if store == nil {
		writeError(w, http.StatusNotFound, "attempt log is not enabled")
		return
	}

	stats, err := store.Stats(r.Context())
	if err != nil {
		s.logger.Error("attempt log stats failed", "error", err.Error())
		writeError(w, http.StatusInternalServerError, "attempt log unavailable")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReload re-reads the config file; the manager's OnChange hooks swap
// the policy into the router.
func (s *server) handleReload(w http.ResponseWriter, r *http.Request) {
	if err := s.cfgManager.Reload(); err != nil {
		s.logger.Error("config reload failed", "error", err.Error())
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	s.logger.Info("configuration reloaded")
	writeJSON(w, http.StatusOK, s.cfgManager.Status())
}
