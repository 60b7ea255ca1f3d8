package collector

import (
	"context"
	"log/slog"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/mem"

	"github.com/terramon/terramon/internal/alerting"
)

// Engine metric names reported by the system collector. They line up with
// the engine's default rule set.
const (
	MetricCPUPercent    = "system.cpu.percent"
	MetricMemoryPercent = "system.memory.percent"
	MetricDiskPercent   = "system.disk.percent"
)

// Checker is the slice of the alert manager the collector needs.
type Checker interface {
	CheckMetric(metricName string, value float64) []*alerting.Alert
}

// System polls host CPU, memory, and disk usage and reports each reading to
// the alert engine. CPU usage is delta-based, so the first cycle after
// startup only primes the baseline.
type System struct {
	checker  Checker
	interval time.Duration
	diskPath string

	prev *cpu.TimesStat
}

// NewSystem creates a collector reporting to checker every interval.
// diskPath is the mount point measured for disk usage.
func NewSystem(checker Checker, interval time.Duration, diskPath string) *System {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if diskPath == "" {
		diskPath = "/"
	}
	return &System{checker: checker, interval: interval, diskPath: diskPath}
}

// Run starts the collection loop. The first cycle runs immediately to prime
// the CPU baseline. Run blocks until ctx is cancelled.
func (s *System) Run(ctx context.Context) {
	slog.Info("collector: starting system collection",
		"interval", s.interval, "disk_path", s.diskPath)

	t := time.NewTicker(s.interval)
	defer t.Stop()

	s.collect(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.collect(ctx)
		}
	}
}

// collect gathers one round of samples. A failed reading is logged and
// skipped; the remaining metrics still report.
func (s *System) collect(ctx context.Context) {
	if pct, ok := s.cpuPercent(ctx); ok {
		s.checker.CheckMetric(MetricCPUPercent, pct)
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err != nil {
		slog.Warn("collector: memory read failed", "err", err)
	} else {
		s.checker.CheckMetric(MetricMemoryPercent, vm.UsedPercent)
	}

	if du, err := disk.UsageWithContext(ctx, s.diskPath); err != nil {
		slog.Warn("collector: disk read failed", "path", s.diskPath, "err", err)
	} else {
		s.checker.CheckMetric(MetricDiskPercent, du.UsedPercent)
	}
}

// cpuPercent computes total CPU busy percentage from the delta against the
// previous reading. The first call only stores the baseline.
func (s *System) cpuPercent(ctx context.Context) (float64, bool) {
	times, err := cpu.TimesWithContext(ctx, false)
	if err != nil || len(times) == 0 {
		slog.Warn("collector: cpu read failed", "err", err)
		return 0, false
	}

	cur := times[0]
	prev := s.prev
	s.prev = &cur

	if prev == nil {
		return 0, false
	}
	return busyDelta(*prev, cur)
}

// busyDelta returns the busy percentage over the interval between two CPU
// time readings. ok is false when no time elapsed between them.
func busyDelta(prev, cur cpu.TimesStat) (pct float64, ok bool) {
	dUser := cur.User - prev.User
	dSystem := cur.System - prev.System
	dIdle := cur.Idle - prev.Idle
	dIowait := cur.Iowait - prev.Iowait
	dSteal := cur.Steal - prev.Steal
	dNice := cur.Nice - prev.Nice
	dIrq := cur.Irq - prev.Irq
	dSoftirq := cur.Softirq - prev.Softirq

	dTotal := dUser + dSystem + dIdle + dIowait + dSteal + dNice + dIrq + dSoftirq
	if dTotal <= 0 {
		return 0, false
	}
	return (dTotal - dIdle - dIowait) / dTotal * 100, true
}
