package alerting

import (
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"
)

// Alert is one triggered condition. The Manager owns the canonical copy:
// both the history ring and the active index reference the same object, so
// resolving an active alert is visible through the history as well. All
// mutation happens under the Manager's lock; everything handed to callers
// and notifiers is a copy.
type Alert struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Message     string     `json:"message"`
	Severity    Severity   `json:"severity"`
	Component   string     `json:"component,omitempty"`
	MetricName  string     `json:"metric_name"`
	MetricValue float64    `json:"metric_value"`
	Threshold   float64    `json:"threshold"`
	Channels    []Channel  `json:"channels"`
	Timestamp   time.Time  `json:"timestamp"`
	Resolved    bool       `json:"resolved"`
	ResolvedAt  *time.Time `json:"resolved_at"`
}

// Status derives the lifecycle state from the resolution flag.
// It is never stored.
func (a *Alert) Status() string {
	if a.Resolved {
		return "resolved"
	}
	return "active"
}

// MarshalJSON adds the derived status field to the wire form consumed by
// dashboards.
func (a *Alert) MarshalJSON() ([]byte, error) {
	type alias Alert
	return json.Marshal(struct {
		*alias
		Status string `json:"status"`
	}{(*alias)(a), a.Status()})
}

func (a *Alert) resolve(now time.Time) {
	a.Resolved = true
	t := now
	a.ResolvedAt = &t
}

func (a *Alert) clone() *Alert {
	cp := *a
	return &cp
}

// alertSeq disambiguates IDs created within the same nanosecond.
var alertSeq atomic.Uint64

// newAlertID builds a time-based identifier. The sequence suffix keeps IDs
// unique when multiple rules fire on the same clock reading.
func newAlertID(now time.Time) string {
	return fmt.Sprintf("alert_%d_%d", now.UnixNano(), alertSeq.Add(1))
}
