// Package api exposes the alert engine over REST for dashboards and
// operators: active alerts, history, summary, manual resolution, and a
// manual metric-injection endpoint.
package api
