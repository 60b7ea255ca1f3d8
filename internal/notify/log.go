package notify

import (
	"context"
	"log/slog"

	"github.com/terramon/terramon/internal/alerting"
)

// LogNotifier writes one structured log record per alert, at a level derived
// from the alert's severity. Logging is not expected to fail, so SendAlert
// always reports success.
type LogNotifier struct {
	log *slog.Logger
}

// NewLogNotifier creates a LogNotifier writing through logger. A nil logger
// means the process default.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{log: logger}
}

func (n *LogNotifier) SendAlert(ctx context.Context, a *alerting.Alert) bool {
	n.log.Log(ctx, a.Severity.LogLevel(), "ALERT: "+a.Title,
		"alert_id", a.ID,
		"severity", a.Severity.String(),
		"alert_component", a.Component,
		"metric_name", a.MetricName,
		"metric_value", a.MetricValue,
		"threshold", a.Threshold,
		"message", a.Message,
	)
	return true
}
