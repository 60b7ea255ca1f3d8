package alerting

import (
	"fmt"
	"log/slog"
)

// Severity classifies how urgent an alert is. The order matters: only High
// and Critical alerts are tracked in the active index.
type Severity int

const (
	SeverityLow Severity = iota
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

// LevelCritical is the slog level used for critical alerts. slog ships no
// critical level of its own; levels above Error are the documented way to
// express one.
const LevelCritical = slog.LevelError + 4

func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// ParseSeverity converts the text form ("low" | "medium" | "high" |
// "critical") back into a Severity.
func ParseSeverity(text string) (Severity, error) {
	switch text {
	case "low":
		return SeverityLow, nil
	case "medium":
		return SeverityMedium, nil
	case "high":
		return SeverityHigh, nil
	case "critical":
		return SeverityCritical, nil
	default:
		return 0, fmt.Errorf("unknown severity %q: want low|medium|high|critical", text)
	}
}

// Active reports whether alerts of this severity belong in the active index.
func (s Severity) Active() bool {
	return s >= SeverityHigh
}

// LogLevel maps the severity to the slog level used by the log notifier.
func (s Severity) LogLevel() slog.Level {
	switch s {
	case SeverityLow:
		return slog.LevelInfo
	case SeverityMedium:
		return slog.LevelWarn
	case SeverityHigh:
		return slog.LevelError
	case SeverityCritical:
		return LevelCritical
	default:
		return slog.LevelWarn
	}
}

// MarshalText lets Severity serve as a JSON value and as a JSON map key.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Severity) UnmarshalText(text []byte) error {
	v, err := ParseSeverity(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Channel names a delivery mechanism for alerts.
type Channel string

const (
	ChannelLog   Channel = "log"
	ChannelEmail Channel = "email"

	// ChannelWebhook is reserved. Rules may reference it, but no notifier
	// registers for it yet and dispatch skips it.
	ChannelWebhook Channel = "webhook"
)

// ParseChannel validates the text form of a delivery channel.
func ParseChannel(text string) (Channel, error) {
	switch Channel(text) {
	case ChannelLog, ChannelEmail, ChannelWebhook:
		return Channel(text), nil
	default:
		return "", fmt.Errorf("unknown channel %q: want log|email|webhook", text)
	}
}
