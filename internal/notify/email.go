package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/terramon/terramon/internal/alerting"
)

const (
	defaultSMTPPort    = 587
	defaultSendTimeout = 10 * time.Second
)

// EmailSettings holds the SMTP connection and addressing parameters.
type EmailSettings struct {
	Server   string
	Port     int
	Username string
	Password string
	From     string
	To       []string
}

// complete reports whether every field required to send is present.
func (s EmailSettings) complete() bool {
	return s.Server != "" && s.Username != "" && s.Password != "" &&
		s.From != "" && len(s.To) > 0
}

// EmailSettingsFromEnv reads the SMTP configuration from the environment:
// SMTP_SERVER, SMTP_PORT (default 587), SMTP_USERNAME, SMTP_PASSWORD,
// ALERT_FROM_EMAIL and ALERT_TO_EMAILS (comma-separated).
func EmailSettingsFromEnv() EmailSettings {
	s := EmailSettings{
		Server:   os.Getenv("SMTP_SERVER"),
		Port:     defaultSMTPPort,
		Username: os.Getenv("SMTP_USERNAME"),
		Password: os.Getenv("SMTP_PASSWORD"),
		From:     os.Getenv("ALERT_FROM_EMAIL"),
	}
	if raw := os.Getenv("SMTP_PORT"); raw != "" {
		if p, err := strconv.Atoi(raw); err == nil && p > 0 {
			s.Port = p
		} else {
			slog.Warn("notify: invalid SMTP_PORT — using default",
				"value", raw, "default", defaultSMTPPort)
		}
	}
	for _, addr := range strings.Split(os.Getenv("ALERT_TO_EMAILS"), ",") {
		if addr = strings.TrimSpace(addr); addr != "" {
			s.To = append(s.To, addr)
		}
	}
	return s
}

// EmailNotifier delivers alerts over SMTP with STARTTLS. Incomplete
// configuration is a soft skip, not an error: the send is logged as skipped
// and reported unsuccessful. Settings can be swapped at runtime when the
// credential file changes.
type EmailNotifier struct {
	mu       sync.RWMutex
	settings EmailSettings

	timeout time.Duration
}

// NewEmailNotifier creates an EmailNotifier with the given settings.
func NewEmailNotifier(settings EmailSettings) *EmailNotifier {
	if settings.Port <= 0 {
		settings.Port = defaultSMTPPort
	}
	return &EmailNotifier{settings: settings, timeout: defaultSendTimeout}
}

// UpdateSettings replaces the SMTP settings. In-flight sends keep the
// settings they started with.
func (n *EmailNotifier) UpdateSettings(settings EmailSettings) {
	if settings.Port <= 0 {
		settings.Port = defaultSMTPPort
	}
	n.mu.Lock()
	n.settings = settings
	n.mu.Unlock()
	slog.Info("notify: email settings updated", "server", settings.Server)
}

func (n *EmailNotifier) current() EmailSettings {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.settings
}

func (n *EmailNotifier) SendAlert(ctx context.Context, a *alerting.Alert) bool {
	s := n.current()
	if !s.complete() {
		slog.Warn("notify: email configuration incomplete — skipping email alert",
			"alert_id", a.ID)
		return false
	}

	if err := n.send(ctx, s, a); err != nil {
		slog.Error("notify: email delivery failed", "alert_id", a.ID, "err", err)
		return false
	}
	slog.Info("notify: email alert sent", "alert_id", a.ID, "recipients", len(s.To))
	return true
}

// send runs one complete SMTP conversation: dial, STARTTLS, auth, message,
// quit. The connection deadline bounds the whole exchange.
func (n *EmailNotifier) send(ctx context.Context, s EmailSettings, a *alerting.Alert) error {
	addr := net.JoinHostPort(s.Server, strconv.Itoa(s.Port))

	d := net.Dialer{Timeout: n.timeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}

	deadline := time.Now().Add(n.timeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(deadline) {
		deadline = dl
	}
	if err := conn.SetDeadline(deadline); err != nil {
		conn.Close()
		return fmt.Errorf("set deadline: %w", err)
	}

	c, err := smtp.NewClient(conn, s.Server)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer c.Close()

	if err := c.StartTLS(&tls.Config{ServerName: s.Server}); err != nil {
		return fmt.Errorf("starttls: %w", err)
	}
	if err := c.Auth(smtp.PlainAuth("", s.Username, s.Password, s.Server)); err != nil {
		return fmt.Errorf("auth: %w", err)
	}

	if err := c.Mail(s.From); err != nil {
		return fmt.Errorf("mail from: %w", err)
	}
	for _, rcpt := range s.To {
		if err := c.Rcpt(rcpt); err != nil {
			return fmt.Errorf("rcpt %s: %w", rcpt, err)
		}
	}

	wc, err := c.Data()
	if err != nil {
		return fmt.Errorf("data: %w", err)
	}
	if _, err := wc.Write([]byte(composeMessage(s, a))); err != nil {
		wc.Close()
		return fmt.Errorf("write body: %w", err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("close body: %w", err)
	}

	return c.Quit()
}

// composeMessage renders the plaintext alert email, headers included.
func composeMessage(s EmailSettings, a *alerting.Alert) string {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", s.From)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(s.To, ", "))
	fmt.Fprintf(&b, "Subject: [terramon - %s] %s\r\n",
		strings.ToUpper(a.Severity.String()), a.Title)
	b.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")

	fmt.Fprintf(&b, "Monitoring alert\r\n\r\n")
	fmt.Fprintf(&b, "Title: %s\r\n", a.Title)
	fmt.Fprintf(&b, "Severity: %s\r\n", strings.ToUpper(a.Severity.String()))
	fmt.Fprintf(&b, "Component: %s\r\n", orNA(a.Component))
	fmt.Fprintf(&b, "Timestamp: %s\r\n\r\n", a.Timestamp.UTC().Format("2006-01-02 15:04:05 UTC"))
	fmt.Fprintf(&b, "Message:\r\n%s\r\n\r\n", a.Message)
	fmt.Fprintf(&b, "Details:\r\n")
	fmt.Fprintf(&b, "- Metric: %s\r\n", orNA(a.MetricName))
	fmt.Fprintf(&b, "- Value: %g\r\n", a.MetricValue)
	fmt.Fprintf(&b, "- Threshold: %g\r\n", a.Threshold)
	return b.String()
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
