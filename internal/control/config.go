// Package control implements the outer mining loop: TOML configuration,
// the autotune/donation timer, an epsilon-greedy thread-count bandit, and
// the login/mine/restart cycle that wires the worker pool to a Stratum
// client (spec.md §4.7).
package control

import (
	"fmt"
	"os"
	"strings"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/opd-ai/go-randomx"
	"github.com/opd-ai/go-randomx/internal/stratum"
	"github.com/opd-ai/go-randomx/internal/worker"
)

// MetricConfig controls how often and where hashrate samples are reported.
type MetricConfig struct {
	Enabled    bool   `toml:"enabled"`
	Resolution uint64 `toml:"resolution"`
	Interval   uint64 `toml:"report_interval_seconds"`
	ReportFile string `toml:"report_file"`
}

// DonationConfig is the `donation` TOML key: `0` disables donation mining,
// `false` is an alias for `0`, and `true` is an alias for the 2.5% default.
type DonationConfig struct {
	Percentage float64
}

// UnmarshalTOML accepts a bare number, `true`/`false`, or `{percentage = N}`.
func (d *DonationConfig) UnmarshalTOML(value interface{}) error {
	switch v := value.(type) {
	case bool:
		if v {
			d.Percentage = 2.5
		} else {
			d.Percentage = 0
		}
		return nil
	case float64:
		return d.setPercentage(v)
	case int64:
		return d.setPercentage(float64(v))
	case map[string]interface{}:
		p, ok := v["percentage"]
		if !ok {
			return fmt.Errorf("control: donation table missing `percentage`")
		}
		switch pv := p.(type) {
		case float64:
			return d.setPercentage(pv)
		case int64:
			return d.setPercentage(float64(pv))
		case bool:
			return d.UnmarshalTOML(pv)
		default:
			return fmt.Errorf("control: donation.percentage has unsupported type %T", p)
		}
	default:
		return fmt.Errorf("control: donation must be a number, boolean, or table, got %T", value)
	}
}

func (d *DonationConfig) setPercentage(p float64) error {
	if p < 0 || p > 100 {
		return fmt.Errorf("control: donation percentage %v out of range [0, 100]", p)
	}
	d.Percentage = p
	return nil
}

// DefaultDonationConfig matches the upstream default of 2.5%.
func DefaultDonationConfig() DonationConfig {
	return DonationConfig{Percentage: 2.5}
}

// Config is the full `mithril.toml`-equivalent TOML document.
type Config struct {
	Pool     stratum.PoolConfig `toml:"pool"`
	Worker   worker.Config      `toml:"worker"`
	Metric   MetricConfig       `toml:"metric"`
	Donation DonationConfig     `toml:"donation"`
	// Mode selects the RandomX memory/speed tradeoff: "fast" (default, full
	// dataset) or "light" (recompute dataset items on demand).
	Mode string `toml:"mode"`
}

// RandomXMode resolves the configured Mode string, defaulting to FastMode.
func (c Config) RandomXMode() randomx.Mode {
	if strings.EqualFold(c.Mode, "light") {
		return randomx.LightMode
	}
	return randomx.FastMode
}

// LoadConfig reads and parses a TOML config file at path.
func LoadConfig(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("control: reading config file %q: %w", path, err)
	}

	var cfg Config
	if err := toml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("control: parsing config file %q: %w", path, err)
	}
	if cfg.Worker.Threads == 0 {
		cfg.Worker.Threads = worker.DefaultConfig().Threads
	}
	return cfg, nil
}
