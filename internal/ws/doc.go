// Package ws pushes the live alert summary to WebSocket clients. Dashboards
// subscribe once and receive the aggregate view on a fixed interval instead
// of polling the REST API.
package ws
