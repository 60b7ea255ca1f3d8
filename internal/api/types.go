package api

import "github.com/terramon/terramon/internal/alerting"

// CheckMetricRequest is the payload for POST /api/v1/metrics/check.
type CheckMetricRequest struct {
	MetricName string  `json:"metric_name"`
	Value      float64 `json:"value"`
}

// CheckMetricResponse lists the alerts the injected sample triggered.
type CheckMetricResponse struct {
	Triggered []*alerting.Alert `json:"triggered"`
}

// ResolveResponse is the payload for POST /api/v1/alerts/{id}/resolve.
type ResolveResponse struct {
	ID       string `json:"id"`
	Resolved bool   `json:"resolved"`
}

// HealthResponse is the payload for GET /api/v1/health.
type HealthResponse struct {
	Status       string `json:"status"`
	ActiveAlerts int    `json:"active_alerts"`
	TotalRules   int    `json:"total_rules"`
}

type errorResponse struct {
	Error string `json:"error"`
}
