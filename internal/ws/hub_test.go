package ws_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/terramon/terramon/internal/alerting"
	wsHub "github.com/terramon/terramon/internal/ws"
)

const testInterval = 20 * time.Millisecond

// startHub starts a test HTTP server with the hub as its handler and the
// broadcast loop running under a cancellable context.
func startHub(t *testing.T, m *alerting.Manager) (wsURL string, hub *wsHub.Hub) {
	t.Helper()

	hub = wsHub.New(m, testInterval)
	ctx, cancel := context.WithCancel(context.Background())

	srv := httptest.NewServer(http.HandlerFunc(hub.ServeHTTP))
	go hub.Run(ctx)

	t.Cleanup(func() {
		cancel()
		srv.Close()
	})

	return "ws" + strings.TrimPrefix(srv.URL, "http"), hub
}

func dial(t *testing.T, wsURL string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", wsURL, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) wsHub.Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second)) //nolint:errcheck
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var msg wsHub.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return msg
}

func testManager() *alerting.Manager {
	rule := &alerting.ThresholdRule{
		MetricName: "system.disk.percent",
		Operator:   ">",
		Threshold:  90,
		Severity:   alerting.SeverityCritical,
	}
	return alerting.New([]*alerting.ThresholdRule{rule}, nil)
}

func TestHub_SendsSummaryOnConnect(t *testing.T) {
	m := testManager()
	m.CheckMetric("system.disk.percent", 95)

	wsURL, _ := startHub(t, m)
	conn := dial(t, wsURL)

	msg := readMessage(t, conn)
	if msg.Event != "alert_summary" {
		t.Errorf("event: got %q", msg.Event)
	}
	if msg.Data.ActiveCount != 1 || msg.Data.TotalRules != 1 {
		t.Errorf("summary: got %+v", msg.Data)
	}
}

func TestHub_BroadcastReflectsNewAlerts(t *testing.T) {
	m := testManager()
	wsURL, _ := startHub(t, m)
	conn := dial(t, wsURL)

	// Initial summary is empty.
	if msg := readMessage(t, conn); msg.Data.ActiveCount != 0 {
		t.Fatalf("initial summary: got %+v", msg.Data)
	}

	m.CheckMetric("system.disk.percent", 95)

	// A following broadcast carries the new active alert.
	deadline := time.Now().Add(2 * time.Second)
	for {
		msg := readMessage(t, conn)
		if msg.Data.ActiveCount == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("never saw the new alert in a broadcast")
		}
	}
}

func TestHub_CountTracksClients(t *testing.T) {
	wsURL, hub := startHub(t, testManager())

	conn := dial(t, wsURL)
	waitCount(t, hub, 1)

	conn.Close()
	waitCount(t, hub, 0)
}

func waitCount(t *testing.T, hub *wsHub.Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.Count() != want {
		if time.Now().After(deadline) {
			t.Fatalf("Count: got %d, want %d", hub.Count(), want)
		}
		time.Sleep(10 * time.Millisecond)
	}
}
