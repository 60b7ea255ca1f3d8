package notify

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/terramon/terramon/internal/alerting"
)

func testEmailAlert() *alerting.Alert {
	return &alerting.Alert{
		ID:          "alert_1",
		Title:       "Threshold Alert: system.disk.percent",
		Message:     "Disk space critical: 95% (threshold: 90%)",
		Severity:    alerting.SeverityCritical,
		Component:   "system",
		MetricName:  "system.disk.percent",
		MetricValue: 95,
		Threshold:   90,
		Timestamp:   time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestEmailNotifier_IncompleteConfig(t *testing.T) {
	tests := []struct {
		name     string
		settings EmailSettings
	}{
		{"empty", EmailSettings{}},
		{"no server", EmailSettings{Username: "u", Password: "p", From: "a@b", To: []string{"x@y"}}},
		{"no password", EmailSettings{Server: "smtp.example.com", Username: "u", From: "a@b", To: []string{"x@y"}}},
		{"no recipients", EmailSettings{Server: "smtp.example.com", Username: "u", Password: "p", From: "a@b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := NewEmailNotifier(tt.settings)
			if n.SendAlert(context.Background(), testEmailAlert()) {
				t.Error("incomplete config: expected SendAlert to return false")
			}
		})
	}
}

func TestEmailNotifier_TransportFailure(t *testing.T) {
	// Nothing listens on this port; the dial must fail fast and be converted
	// to an unsuccessful send rather than an error or panic.
	n := NewEmailNotifier(EmailSettings{
		Server:   "127.0.0.1",
		Port:     1,
		Username: "u",
		Password: "p",
		From:     "alerts@example.com",
		To:       []string{"ops@example.com"},
	})
	n.timeout = 500 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if n.SendAlert(ctx, testEmailAlert()) {
		t.Error("unreachable server: expected SendAlert to return false")
	}
}

func TestEmailNotifier_UpdateSettings(t *testing.T) {
	n := NewEmailNotifier(EmailSettings{})
	if n.current().Port != defaultSMTPPort {
		t.Errorf("default port: got %d, want %d", n.current().Port, defaultSMTPPort)
	}

	n.UpdateSettings(EmailSettings{Server: "smtp.example.com", Port: 2525})
	if got := n.current(); got.Server != "smtp.example.com" || got.Port != 2525 {
		t.Errorf("after update: got %+v", got)
	}

	// Zero port on update falls back to the default.
	n.UpdateSettings(EmailSettings{Server: "smtp.example.com"})
	if got := n.current().Port; got != defaultSMTPPort {
		t.Errorf("port fallback: got %d, want %d", got, defaultSMTPPort)
	}
}

func TestEmailSettingsFromEnv(t *testing.T) {
	t.Setenv("SMTP_SERVER", "smtp.example.com")
	t.Setenv("SMTP_PORT", "2525")
	t.Setenv("SMTP_USERNAME", "alerts")
	t.Setenv("SMTP_PASSWORD", "secret")
	t.Setenv("ALERT_FROM_EMAIL", "alerts@example.com")
	t.Setenv("ALERT_TO_EMAILS", "ops@example.com, oncall@example.com,")

	s := EmailSettingsFromEnv()
	if s.Server != "smtp.example.com" || s.Port != 2525 {
		t.Errorf("server/port: got %s:%d", s.Server, s.Port)
	}
	if s.Username != "alerts" || s.Password != "secret" || s.From != "alerts@example.com" {
		t.Errorf("credentials: got %+v", s)
	}
	if len(s.To) != 2 || s.To[0] != "ops@example.com" || s.To[1] != "oncall@example.com" {
		t.Errorf("To: got %v", s.To)
	}
	if !s.complete() {
		t.Error("complete: got false")
	}
}

func TestEmailSettingsFromEnv_Defaults(t *testing.T) {
	t.Setenv("SMTP_SERVER", "")
	t.Setenv("SMTP_PORT", "not-a-port")
	t.Setenv("ALERT_TO_EMAILS", "")

	s := EmailSettingsFromEnv()
	if s.Port != defaultSMTPPort {
		t.Errorf("invalid SMTP_PORT: got %d, want default %d", s.Port, defaultSMTPPort)
	}
	if len(s.To) != 0 {
		t.Errorf("To: got %v, want empty", s.To)
	}
	if s.complete() {
		t.Error("complete with empty env: got true")
	}
}

func TestComposeMessage(t *testing.T) {
	s := EmailSettings{
		From: "alerts@example.com",
		To:   []string{"ops@example.com"},
	}
	msg := composeMessage(s, testEmailAlert())

	for _, want := range []string{
		"Subject: [terramon - CRITICAL] Threshold Alert: system.disk.percent",
		"To: ops@example.com",
		"Severity: CRITICAL",
		"Component: system",
		"Timestamp: 2025-06-01 12:00:00 UTC",
		"Disk space critical: 95% (threshold: 90%)",
		"- Metric: system.disk.percent",
		"- Value: 95",
		"- Threshold: 90",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q\n%s", want, msg)
		}
	}
}
