// Package collector produces local system metrics — CPU, memory, and disk
// utilization percentages — and feeds them to the alert engine on a fixed
// interval. It is the in-process counterpart of the default system rules.
package collector
