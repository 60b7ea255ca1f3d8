package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/terramon/terramon/internal/alerting"
)

// Default values for the service configuration.
const (
	DefaultHTTPPort          = 8080
	DefaultCollectInterval   = 30 * time.Second
	DefaultScrapeInterval    = 30 * time.Second
	DefaultBroadcastInterval = 5 * time.Second
	DefaultRuleCooldown      = 10 * time.Minute
	DefaultDiskPath          = "/"
)

// Duration decodes YAML scalars like "30s" or "15m". yaml.v3 has no native
// time.Duration support, so every interval field in this package uses this
// wrapper.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(v)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the root of the YAML configuration file.
type Config struct {
	Service ServiceConfig `yaml:"service"`
}

// ServiceConfig holds all service settings.
type ServiceConfig struct {
	// HTTPPort is the port the REST API and WebSocket feed listen on.
	HTTPPort int `yaml:"http_port"`

	// BroadcastInterval controls how often the WebSocket feed pushes the
	// alert summary to connected clients.
	BroadcastInterval Duration `yaml:"broadcast_interval"`

	// Alerts configures the rule set. With no rules the engine installs its
	// built-in defaults.
	Alerts AlertsConfig `yaml:"alerts"`

	// Collector configures the local system metric producer.
	Collector CollectorConfig `yaml:"collector"`

	// Scrape lists Prometheus endpoints whose metrics feed the engine.
	Scrape []ScrapeSource `yaml:"scrape"`
}

// AlertsConfig holds the threshold rule definitions.
type AlertsConfig struct {
	Rules []RuleConfig `yaml:"rules"`
}

// RuleConfig defines one threshold rule in the config file.
type RuleConfig struct {
	// Metric is the exact metric name the rule matches.
	Metric string `yaml:"metric"`

	// Operator is one of > < >= <= == !=.
	Operator string `yaml:"operator"`

	Threshold float64 `yaml:"threshold"`

	// Severity is one of: low | medium | high | critical.
	Severity string `yaml:"severity"`

	Component string `yaml:"component"`

	// Message may reference {metric_name}, {value}, {threshold}, {operator}.
	Message string `yaml:"message"`

	// Channels is any subset of: log | email | webhook. Defaults to log.
	Channels []string `yaml:"channels"`

	// Cooldown suppresses re-fires for this duration. Defaults to 10 minutes.
	Cooldown Duration `yaml:"cooldown"`
}

// Rule converts the config entry into an engine rule.
func (r RuleConfig) Rule() (*alerting.ThresholdRule, error) {
	sev, err := alerting.ParseSeverity(r.Severity)
	if err != nil {
		return nil, fmt.Errorf("rule %q: %w", r.Metric, err)
	}

	channels := make([]alerting.Channel, 0, len(r.Channels))
	for _, c := range r.Channels {
		ch, err := alerting.ParseChannel(c)
		if err != nil {
			return nil, fmt.Errorf("rule %q: %w", r.Metric, err)
		}
		channels = append(channels, ch)
	}

	cooldown := r.Cooldown.Std()
	if cooldown == 0 {
		cooldown = DefaultRuleCooldown
	}

	return &alerting.ThresholdRule{
		MetricName:      r.Metric,
		Operator:        r.Operator,
		Threshold:       r.Threshold,
		Severity:        sev,
		Component:       r.Component,
		Channels:        channels,
		MessageTemplate: r.Message,
		Cooldown:        cooldown,
	}, nil
}

// Build converts every configured rule. An empty result means the engine
// should install its defaults.
func (a AlertsConfig) Build() ([]*alerting.ThresholdRule, error) {
	rules := make([]*alerting.ThresholdRule, 0, len(a.Rules))
	for _, rc := range a.Rules {
		r, err := rc.Rule()
		if err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	return rules, nil
}

// CollectorConfig controls the gopsutil-backed system metric producer.
type CollectorConfig struct {
	// Disabled turns local system collection off entirely.
	Disabled bool `yaml:"disabled"`

	// Interval between collection cycles. Default: 30s.
	Interval Duration `yaml:"interval"`

	// DiskPath is the mount point whose usage feeds system.disk.percent.
	// Default: "/".
	DiskPath string `yaml:"disk_path"`
}

// ScrapeSource is one Prometheus exposition endpoint to poll.
type ScrapeSource struct {
	// ID labels the source in logs.
	ID string `yaml:"id"`

	// Endpoint is the full /metrics URL.
	Endpoint string `yaml:"endpoint"`

	// Interval between scrapes. Default: 30s.
	Interval Duration `yaml:"interval"`

	// Metrics maps exposition metric families to engine metric names.
	Metrics []MetricMap `yaml:"metrics"`
}

// MetricMap selects one value out of a scraped metric family.
type MetricMap struct {
	// Family is the Prometheus metric family name.
	Family string `yaml:"family"`

	// Quantile, when non-zero, extracts that quantile from a summary family
	// instead of summing the series (e.g. 0.95).
	Quantile float64 `yaml:"quantile"`

	// Name is the engine metric name the value is reported under.
	Name string `yaml:"name"`
}

// Load reads and parses the config file at path. Missing fields are filled
// with defaults before validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %q: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}
	applyDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// Default returns a Config pre-populated with default values.
func Default() *Config {
	return &Config{
		Service: ServiceConfig{
			HTTPPort:          DefaultHTTPPort,
			BroadcastInterval: Duration(DefaultBroadcastInterval),
			Collector: CollectorConfig{
				Interval: Duration(DefaultCollectInterval),
				DiskPath: DefaultDiskPath,
			},
		},
	}
}

// applyDefaults fills zero values YAML decoding may have left behind in
// nested and list entries.
func applyDefaults(cfg *Config) {
	if cfg.Service.Collector.Interval == 0 {
		cfg.Service.Collector.Interval = Duration(DefaultCollectInterval)
	}
	if cfg.Service.Collector.DiskPath == "" {
		cfg.Service.Collector.DiskPath = DefaultDiskPath
	}
	for i := range cfg.Service.Scrape {
		if cfg.Service.Scrape[i].Interval == 0 {
			cfg.Service.Scrape[i].Interval = Duration(DefaultScrapeInterval)
		}
	}
}

// validate checks structural constraints on the parsed configuration.
func validate(cfg *Config) error {
	if cfg.Service.HTTPPort <= 0 || cfg.Service.HTTPPort > 65535 {
		return fmt.Errorf("service.http_port %d is out of range [1, 65535]", cfg.Service.HTTPPort)
	}
	if cfg.Service.BroadcastInterval <= 0 {
		return fmt.Errorf("service.broadcast_interval must be positive")
	}
	if cfg.Service.Collector.Interval <= 0 {
		return fmt.Errorf("service.collector.interval must be positive")
	}

	for _, rc := range cfg.Service.Alerts.Rules {
		if rc.Metric == "" {
			return fmt.Errorf("alert rule with empty metric name")
		}
		if rc.Cooldown < 0 {
			return fmt.Errorf("rule %q: cooldown must not be negative", rc.Metric)
		}
		if _, err := rc.Rule(); err != nil {
			return err
		}
	}

	for _, src := range cfg.Service.Scrape {
		if src.Endpoint == "" {
			return fmt.Errorf("scrape source %q: endpoint is required", src.ID)
		}
		for _, mm := range src.Metrics {
			if mm.Family == "" || mm.Name == "" {
				return fmt.Errorf("scrape source %q: metric mapping needs family and name", src.ID)
			}
			if mm.Quantile < 0 || mm.Quantile >= 1 {
				return fmt.Errorf("scrape source %q: quantile %v out of range [0, 1)", src.ID, mm.Quantile)
			}
		}
	}
	return nil
}
