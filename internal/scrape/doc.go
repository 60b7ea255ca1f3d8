// Package scrape polls Prometheus text-exposition endpoints and feeds
// selected metric families into the alert engine under configured metric
// names. Scrape failures are logged and skipped; a broken endpoint never
// affects the engine or other sources.
package scrape
