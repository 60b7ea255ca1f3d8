package alerting

import (
	"strconv"
	"strings"
	"time"
)

const defaultMessageTemplate = "Metric {metric_name} {operator} {threshold}"

// ThresholdRule binds one metric to a comparison operator, a threshold, and
// a cooldown. Rules are evaluated by the Manager under its lock; the
// lastTriggered clock is the per-rule dedup state.
type ThresholdRule struct {
	// MetricName is matched exactly against CheckMetric calls.
	MetricName string

	// Operator is one of > < >= <= == !=. Anything else never triggers.
	Operator string

	Threshold float64
	Severity  Severity
	Component string
	Channels  []Channel

	// MessageTemplate may reference {metric_name}, {value}, {threshold} and
	// {operator}. Unknown placeholders are rendered literally.
	MessageTemplate string

	// Cooldown is the minimum time between two alerts from this rule.
	Cooldown time.Duration

	lastTriggered time.Time
}

// KnownOperator reports whether op is one of the supported comparison
// operators. Evaluation of an unknown operator silently never triggers, so
// the Manager warns at registration time instead.
func KnownOperator(op string) bool {
	switch op {
	case ">", "<", ">=", "<=", "==", "!=":
		return true
	default:
		return false
	}
}

// ShouldTrigger evaluates value against the rule's threshold.
//
// == and != compare floats exactly. That is fragile for continuous metrics
// but correct for integer-valued counters, and it is what callers depend on;
// no epsilon is applied.
func (r *ThresholdRule) ShouldTrigger(value float64) bool {
	switch r.Operator {
	case ">":
		return value > r.Threshold
	case "<":
		return value < r.Threshold
	case ">=":
		return value >= r.Threshold
	case "<=":
		return value <= r.Threshold
	case "==":
		return value == r.Threshold
	case "!=":
		return value != r.Threshold
	default:
		return false
	}
}

// CanTrigger reports whether the cooldown window has fully elapsed since the
// rule last fired. A rule that never fired can always trigger.
func (r *ThresholdRule) CanTrigger(now time.Time) bool {
	if r.lastTriggered.IsZero() {
		return true
	}
	return now.Sub(r.lastTriggered) > r.Cooldown
}

// CreateAlert stamps the rule's cooldown clock and builds the alert for the
// given metric value. Message formatting never fails: placeholders the
// template does not use are simply left alone.
func (r *ThresholdRule) CreateAlert(value float64, now time.Time) *Alert {
	r.lastTriggered = now

	tmpl := r.MessageTemplate
	if tmpl == "" {
		tmpl = defaultMessageTemplate
	}

	channels := r.Channels
	if len(channels) == 0 {
		channels = []Channel{ChannelLog}
	}

	return &Alert{
		ID:          newAlertID(now),
		Title:       "Threshold Alert: " + r.MetricName,
		Message:     r.expand(tmpl, value),
		Severity:    r.Severity,
		Component:   r.Component,
		MetricName:  r.MetricName,
		MetricValue: value,
		Threshold:   r.Threshold,
		Channels:    append([]Channel(nil), channels...),
		Timestamp:   now,
	}
}

func (r *ThresholdRule) expand(tmpl string, value float64) string {
	return strings.NewReplacer(
		"{metric_name}", r.MetricName,
		"{value}", formatValue(value),
		"{threshold}", formatValue(r.Threshold),
		"{operator}", r.Operator,
	).Replace(tmpl)
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// DefaultRules returns the rule set installed when no rules are configured:
// host resource pressure, HTTP latency, and database health check failures.
func DefaultRules() []*ThresholdRule {
	return []*ThresholdRule{
		{
			MetricName:      "system.cpu.percent",
			Operator:        ">",
			Threshold:       80,
			Severity:        SeverityHigh,
			Component:       "system",
			MessageTemplate: "CPU usage high: {value}% (threshold: {threshold}%)",
			Channels:        []Channel{ChannelLog, ChannelEmail},
			Cooldown:        15 * time.Minute,
		},
		{
			MetricName:      "system.memory.percent",
			Operator:        ">",
			Threshold:       85,
			Severity:        SeverityHigh,
			Component:       "system",
			MessageTemplate: "Memory usage high: {value}% (threshold: {threshold}%)",
			Channels:        []Channel{ChannelLog, ChannelEmail},
			Cooldown:        15 * time.Minute,
		},
		{
			MetricName:      "system.disk.percent",
			Operator:        ">",
			Threshold:       90,
			Severity:        SeverityCritical,
			Component:       "system",
			MessageTemplate: "Disk space critical: {value}% (threshold: {threshold}%)",
			Channels:        []Channel{ChannelLog, ChannelEmail},
			Cooldown:        30 * time.Minute,
		},
		{
			MetricName:      "http.request.duration.p95",
			Operator:        ">",
			Threshold:       2.0,
			Severity:        SeverityMedium,
			Component:       "http",
			MessageTemplate: "HTTP response time high: {value}s P95 (threshold: {threshold}s)",
			Channels:        []Channel{ChannelLog},
			Cooldown:        10 * time.Minute,
		},
		{
			MetricName:      "health_check.database.errors",
			Operator:        ">",
			Threshold:       0,
			Severity:        SeverityCritical,
			Component:       "database",
			MessageTemplate: "Database health check failing",
			Channels:        []Channel{ChannelLog, ChannelEmail},
			Cooldown:        5 * time.Minute,
		},
	}
}
