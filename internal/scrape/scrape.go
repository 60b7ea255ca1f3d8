package scrape

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"

	"github.com/terramon/terramon/internal/alerting"
	"github.com/terramon/terramon/internal/config"
)

const defaultScrapeTimeout = 10 * time.Second

// Checker is the slice of the alert manager the scraper needs.
type Checker interface {
	CheckMetric(metricName string, value float64) []*alerting.Alert
}

// Scraper polls one Prometheus endpoint and reports mapped values to the
// alert engine.
type Scraper struct {
	src     config.ScrapeSource
	checker Checker
	client  *http.Client
}

// New creates a Scraper for the given source. The HTTP client is built once
// and reused across scrape cycles.
func New(src config.ScrapeSource, checker Checker) *Scraper {
	return &Scraper{
		src:     src,
		checker: checker,
		client:  &http.Client{Timeout: defaultScrapeTimeout},
	}
}

// Run starts the scrape loop. Blocks until ctx is cancelled.
func (s *Scraper) Run(ctx context.Context) {
	slog.Info("scrape: starting source",
		"source", s.src.ID, "endpoint", s.src.Endpoint, "interval", s.src.Interval.Std())

	t := time.NewTicker(s.src.Interval.Std())
	defer t.Stop()

	s.scrape(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.scrape(ctx)
		}
	}
}

// scrape fetches the endpoint once and feeds every mapped value it finds.
func (s *Scraper) scrape(ctx context.Context) {
	mfs, err := fetchMetrics(ctx, s.client, s.src.Endpoint)
	if err != nil {
		slog.Warn("scrape: fetch failed", "source", s.src.ID, "err", err)
		return
	}

	for _, mm := range s.src.Metrics {
		v, ok := extract(mfs[mm.Family], mm.Quantile)
		if !ok {
			slog.Debug("scrape: family not found in exposition",
				"source", s.src.ID, "family", mm.Family)
			continue
		}
		s.checker.CheckMetric(mm.Name, v)
	}
}

// fetchMetrics performs an HTTP GET to url and returns parsed metric families.
func fetchMetrics(ctx context.Context, client *http.Client, url string) (map[string]*dto.MetricFamily, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", string(expfmt.NewFormat(expfmt.TypeTextPlain)))

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return parseMetrics(resp.Body)
}

// parseMetrics decodes a Prometheus text exposition from r into metric
// families. A partial result with a non-fatal parse warning still succeeds.
func parseMetrics(r io.Reader) (map[string]*dto.MetricFamily, error) {
	var parser expfmt.TextParser
	mfs, err := parser.TextToMetricFamilies(r)
	if err != nil && len(mfs) == 0 {
		return nil, fmt.Errorf("parse prometheus text: %w", err)
	}
	return mfs, nil
}

// extract pulls one value out of a metric family. With a non-zero quantile
// it looks for that quantile in a summary; otherwise it sums all counter,
// gauge, and untyped series. ok is false when mf is nil or holds nothing
// usable.
func extract(mf *dto.MetricFamily, quantile float64) (value float64, ok bool) {
	if mf == nil {
		return 0, false
	}

	if quantile > 0 {
		for _, m := range mf.GetMetric() {
			if m.Summary == nil {
				continue
			}
			for _, q := range m.Summary.GetQuantile() {
				if q.GetQuantile() == quantile {
					return q.GetValue(), true
				}
			}
		}
		return 0, false
	}

	var total float64
	for _, m := range mf.GetMetric() {
		switch {
		case m.Counter != nil:
			total += m.Counter.GetValue()
		case m.Gauge != nil:
			total += m.Gauge.GetValue()
		case m.Untyped != nil:
			total += m.Untyped.GetValue()
		default:
			continue
		}
		ok = true
	}
	return total, ok
}
