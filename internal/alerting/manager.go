package alerting

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const (
	defaultHistoryLimit = 100
	recentAlertCount    = 10
	defaultSendTimeout  = 10 * time.Second
)

// Notifier delivers one alert through one channel. Implementations report
// delivery success and must never panic: configuration and transport
// failures are logged by the implementation and surface here only as false.
type Notifier interface {
	SendAlert(ctx context.Context, a *Alert) bool
}

// Summary is the aggregate view served to dashboards.
type Summary struct {
	ActiveCount       int              `json:"active_alerts"`
	SeverityBreakdown map[Severity]int `json:"severity_breakdown"`
	RecentAlerts      []*Alert         `json:"recent_alerts"`
	TotalRules        int              `json:"total_rules"`
}

// Manager owns the rule set, the alert store, and the notifier registry.
// It is safe for concurrent use: one coarse lock guards rules, cooldown
// clocks, and the store. Notifier I/O never runs under that lock.
//
// Construct one Manager per process and inject it into metric producers;
// all alert state lives in memory and is gone on restart.
type Manager struct {
	mu    sync.Mutex
	rules []*ThresholdRule
	store *store

	notifiers   map[Channel]Notifier
	sendTimeout time.Duration

	now func() time.Time // injectable for deterministic tests
}

// New creates a Manager with the given notifier registry. When rules is
// empty the default rule set is installed.
func New(rules []*ThresholdRule, notifiers map[Channel]Notifier) *Manager {
	m := &Manager{
		store:       newStore(historyCapacity),
		notifiers:   notifiers,
		sendTimeout: defaultSendTimeout,
		now:         time.Now,
	}
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	for _, r := range rules {
		m.AddRule(r)
	}
	return m
}

// AddRule registers a rule. Duplicates are allowed and evaluated
// independently. A rule with an unrecognized operator is accepted — it will
// simply never trigger — but that is almost always a mistake, so it is
// flagged here where the config author can see it.
func (m *Manager) AddRule(rule *ThresholdRule) {
	m.mu.Lock()
	m.rules = append(m.rules, rule)
	m.mu.Unlock()

	if !KnownOperator(rule.Operator) {
		slog.Warn("alerting: rule has unrecognized operator and will never trigger",
			"metric_name", rule.MetricName,
			"operator", rule.Operator,
		)
	}
	slog.Info("alerting: rule added",
		"metric_name", rule.MetricName,
		"threshold", rule.Threshold,
		"severity", rule.Severity.String(),
	)
}

// CheckMetric evaluates every rule matching metricName against value.
// Each rule that fires and is out of cooldown produces one alert, which is
// recorded and then dispatched to its channels. The returned alerts are
// copies owned by the caller; they are returned regardless of whether any
// notifier managed to deliver them.
func (m *Manager) CheckMetric(metricName string, value float64) []*Alert {
	var triggered []*Alert

	m.mu.Lock()
	now := m.now().UTC()
	for _, r := range m.rules {
		if r.MetricName != metricName {
			continue
		}
		if !r.ShouldTrigger(value) || !r.CanTrigger(now) {
			continue
		}
		a := r.CreateAlert(value, now)
		m.store.add(a)
		triggered = append(triggered, a.clone())
	}
	m.mu.Unlock()

	for _, a := range triggered {
		m.dispatch(a)
	}
	return triggered
}

// dispatch fans a out to every notifier configured for its channels, one
// goroutine per send so a slow channel never delays its siblings. Failures
// are logged and isolated per channel.
func (m *Manager) dispatch(a *Alert) {
	for _, ch := range a.Channels {
		n, ok := m.notifiers[ch]
		if !ok {
			slog.Debug("alerting: no notifier for channel — skipping",
				"channel", string(ch), "alert_id", a.ID)
			continue
		}
		go func(ch Channel, n Notifier) {
			ctx, cancel := context.WithTimeout(context.Background(), m.sendTimeout)
			defer cancel()
			if !n.SendAlert(ctx, a) {
				slog.Error("alerting: alert delivery failed",
					"channel", string(ch), "alert_id", a.ID)
			}
		}(ch, n)
	}
}

// ResolveAlert marks the active alert with the given id resolved. It reports
// false for unknown ids and for alerts that are not active (low/medium
// severity or already resolved).
func (m *Manager) ResolveAlert(id string) bool {
	m.mu.Lock()
	ok := m.store.resolve(id, m.now().UTC())
	m.mu.Unlock()

	if ok {
		slog.Info("alerting: alert resolved", "alert_id", id)
	}
	return ok
}

// GetActiveAlerts returns a snapshot of all unresolved high/critical alerts.
// Ordering is unspecified.
func (m *Manager) GetActiveAlerts() []*Alert {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store.activeAlerts()
}

// GetAlertHistory returns the last limit alerts ever created, oldest first.
// A non-positive limit means the default of 100.
func (m *Manager) GetAlertHistory(limit int) []*Alert {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store.tail(limit)
}

// GetAlertSummary aggregates the current alert state: active count, active
// severity breakdown, the ten most recent history entries, and the rule
// count.
func (m *Manager) GetAlertSummary() Summary {
	m.mu.Lock()
	defer m.mu.Unlock()

	breakdown := make(map[Severity]int)
	for _, a := range m.store.active {
		breakdown[a.Severity]++
	}

	return Summary{
		ActiveCount:       len(m.store.active),
		SeverityBreakdown: breakdown,
		RecentAlerts:      m.store.tail(recentAlertCount),
		TotalRules:        len(m.rules),
	}
}
