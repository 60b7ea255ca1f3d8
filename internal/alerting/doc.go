// Package alerting implements the threshold alert engine: rule evaluation
// with per-rule cooldowns, a bounded alert history with an active-alert
// index, and fan-out dispatch to notification channels. The Manager is the
// single entry point; metric producers feed it (name, value) pairs via
// CheckMetric and it takes care of everything downstream.
package alerting
