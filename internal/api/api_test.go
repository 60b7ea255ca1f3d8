package api_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/terramon/terramon/internal/alerting"
	"github.com/terramon/terramon/internal/api"
)

func newServer(t *testing.T) (*httptest.Server, *alerting.Manager) {
	t.Helper()
	rule := &alerting.ThresholdRule{
		MetricName: "system.disk.percent",
		Operator:   ">",
		Threshold:  90,
		Severity:   alerting.SeverityCritical,
		Component:  "system",
	}
	m := alerting.New([]*alerting.ThresholdRule{rule}, nil)
	srv := httptest.NewServer(api.New(m))
	t.Cleanup(srv.Close)
	return srv, m
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

func postJSON(t *testing.T, url, body string, out any) int {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

func TestHealth(t *testing.T) {
	srv, _ := newServer(t)

	var got api.HealthResponse
	if code := getJSON(t, srv.URL+"/api/v1/health", &got); code != http.StatusOK {
		t.Fatalf("status: got %d", code)
	}
	if got.Status != "ok" || got.TotalRules != 1 || got.ActiveAlerts != 0 {
		t.Errorf("health: got %+v", got)
	}
}

func TestCheckMetricAndActiveAlerts(t *testing.T) {
	srv, _ := newServer(t)

	var created api.CheckMetricResponse
	code := postJSON(t, srv.URL+"/api/v1/metrics/check",
		`{"metric_name":"system.disk.percent","value":95}`, &created)
	if code != http.StatusOK {
		t.Fatalf("check status: got %d", code)
	}
	if len(created.Triggered) != 1 {
		t.Fatalf("triggered: got %d alerts", len(created.Triggered))
	}

	var active []map[string]any
	if code := getJSON(t, srv.URL+"/api/v1/alerts/active", &active); code != http.StatusOK {
		t.Fatalf("active status: got %d", code)
	}
	if len(active) != 1 {
		t.Fatalf("active: got %d entries", len(active))
	}
	if active[0]["severity"] != "critical" || active[0]["status"] != "active" {
		t.Errorf("active entry: %v", active[0])
	}

	// A value that triggers no rule returns an empty (not null) list.
	var none api.CheckMetricResponse
	postJSON(t, srv.URL+"/api/v1/metrics/check",
		`{"metric_name":"unknown.metric","value":1}`, &none)
	if none.Triggered == nil || len(none.Triggered) != 0 {
		t.Errorf("no-rule check: got %v", none.Triggered)
	}
}

func TestCheckMetric_BadRequests(t *testing.T) {
	srv, _ := newServer(t)

	if code := postJSON(t, srv.URL+"/api/v1/metrics/check", `{`, nil); code != http.StatusBadRequest {
		t.Errorf("invalid json: got %d", code)
	}
	if code := postJSON(t, srv.URL+"/api/v1/metrics/check", `{"value":5}`, nil); code != http.StatusBadRequest {
		t.Errorf("missing metric_name: got %d", code)
	}
	if code := getJSON(t, srv.URL+"/api/v1/metrics/check", nil); code != http.StatusMethodNotAllowed {
		t.Errorf("GET on check: got %d", code)
	}
}

func TestResolveAlert(t *testing.T) {
	srv, m := newServer(t)

	created := m.CheckMetric("system.disk.percent", 95)
	if len(created) != 1 {
		t.Fatalf("setup: got %d alerts", len(created))
	}
	id := created[0].ID

	var got api.ResolveResponse
	code := postJSON(t, srv.URL+"/api/v1/alerts/"+id+"/resolve", "", &got)
	if code != http.StatusOK || !got.Resolved || got.ID != id {
		t.Fatalf("resolve: code=%d resp=%+v", code, got)
	}

	// Second resolve and unknown ids are 404.
	if code := postJSON(t, srv.URL+"/api/v1/alerts/"+id+"/resolve", "", nil); code != http.StatusNotFound {
		t.Errorf("re-resolve: got %d", code)
	}
	if code := postJSON(t, srv.URL+"/api/v1/alerts/nope/resolve", "", nil); code != http.StatusNotFound {
		t.Errorf("unknown id: got %d", code)
	}
	// Malformed subtree paths are 404 as well.
	if code := postJSON(t, srv.URL+"/api/v1/alerts/"+id, "", nil); code != http.StatusNotFound {
		t.Errorf("missing /resolve: got %d", code)
	}
	// GET on a resolve path is method-not-allowed.
	if code := getJSON(t, srv.URL+"/api/v1/alerts/"+id+"/resolve", nil); code != http.StatusMethodNotAllowed {
		t.Errorf("GET resolve: got %d", code)
	}
}

func TestHistoryAndSummary(t *testing.T) {
	srv, m := newServer(t)
	m.CheckMetric("system.disk.percent", 95)

	var hist []map[string]any
	if code := getJSON(t, srv.URL+"/api/v1/alerts/history?limit=10", &hist); code != http.StatusOK {
		t.Fatalf("history status: got %d", code)
	}
	if len(hist) != 1 {
		t.Fatalf("history: got %d entries", len(hist))
	}

	if code := getJSON(t, srv.URL+"/api/v1/alerts/history?limit=-1", nil); code != http.StatusBadRequest {
		t.Errorf("negative limit: got %d", code)
	}
	if code := getJSON(t, srv.URL+"/api/v1/alerts/history?limit=abc", nil); code != http.StatusBadRequest {
		t.Errorf("non-numeric limit: got %d", code)
	}

	var sum struct {
		ActiveAlerts int            `json:"active_alerts"`
		Breakdown    map[string]int `json:"severity_breakdown"`
		TotalRules   int            `json:"total_rules"`
	}
	if code := getJSON(t, srv.URL+"/api/v1/alerts/summary", &sum); code != http.StatusOK {
		t.Fatalf("summary status: got %d", code)
	}
	if sum.ActiveAlerts != 1 || sum.Breakdown["critical"] != 1 || sum.TotalRules != 1 {
		t.Errorf("summary: got %+v", sum)
	}
}
