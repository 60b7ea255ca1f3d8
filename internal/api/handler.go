package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/terramon/terramon/internal/alerting"
)

// Handler is the HTTP handler for all /api/v1/* endpoints.
type Handler struct {
	manager *alerting.Manager
	mux     *http.ServeMux
}

// New creates a Handler wired to the given alert manager and registers all
// routes.
func New(m *alerting.Manager) http.Handler {
	h := &Handler{manager: m, mux: http.NewServeMux()}

	h.mux.HandleFunc("/api/v1/health", h.health)
	h.mux.HandleFunc("/api/v1/alerts/active", h.activeAlerts)
	h.mux.HandleFunc("/api/v1/alerts/history", h.alertHistory)
	h.mux.HandleFunc("/api/v1/alerts/summary", h.alertSummary)
	h.mux.HandleFunc("/api/v1/alerts/", h.resolveAlert) // subtree — extracts {id}/resolve
	h.mux.HandleFunc("/api/v1/metrics/check", h.checkMetric)

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// --- route handlers ---------------------------------------------------------

// health returns GET /api/v1/health — liveness plus headline counts.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	sum := h.manager.GetAlertSummary()
	jsonResp(w, http.StatusOK, HealthResponse{
		Status:       "ok",
		ActiveAlerts: sum.ActiveCount,
		TotalRules:   sum.TotalRules,
	})
}

// activeAlerts returns GET /api/v1/alerts/active — all unresolved
// high/critical alerts.
func (h *Handler) activeAlerts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	jsonResp(w, http.StatusOK, h.manager.GetActiveAlerts())
}

// alertHistory returns GET /api/v1/alerts/history?limit=N — the most recent
// alerts, oldest first.
func (h *Handler) alertHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	limit := 0 // manager applies its default
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			jsonErr(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	jsonResp(w, http.StatusOK, h.manager.GetAlertHistory(limit))
}

// alertSummary returns GET /api/v1/alerts/summary — the aggregate dashboard
// view.
func (h *Handler) alertSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	jsonResp(w, http.StatusOK, h.manager.GetAlertSummary())
}

// resolveAlert handles POST /api/v1/alerts/{id}/resolve.
func (h *Handler) resolveAlert(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/alerts/")
	id, ok := strings.CutSuffix(rest, "/resolve")
	if !ok || id == "" || strings.Contains(id, "/") {
		jsonErr(w, http.StatusNotFound, "not found")
		return
	}
	if r.Method != http.MethodPost {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	if !h.manager.ResolveAlert(id) {
		jsonErr(w, http.StatusNotFound, "alert not found or not active")
		return
	}
	jsonResp(w, http.StatusOK, ResolveResponse{ID: id, Resolved: true})
}

// checkMetric handles POST /api/v1/metrics/check — manual sample injection,
// mainly for smoke-testing rules.
func (h *Handler) checkMetric(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req CheckMetricRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonErr(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if req.MetricName == "" {
		jsonErr(w, http.StatusBadRequest, "metric_name is required")
		return
	}

	triggered := h.manager.CheckMetric(req.MetricName, req.Value)
	if triggered == nil {
		triggered = []*alerting.Alert{}
	}
	jsonResp(w, http.StatusOK, CheckMetricResponse{Triggered: triggered})
}

// --- helpers ----------------------------------------------------------------

func jsonResp(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("api: encode response failed", "err", err)
	}
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}
