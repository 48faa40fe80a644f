package sched

import (
	"os"
	"time"

	yaml "github.com/goccy/go-yaml"
)

// Config mirrors config.yml
type Config struct {
	TickMS           int `yaml:"tick_ms"`            // 1 (by default)
	TargetLatencyMS  int `yaml:"target_latency_ms"`  // 6 (by default)
	MinGranularityMS int `yaml:"min_granularity_ms"` // 1 (by default)
	WakeupCreditMS   int `yaml:"wakeup_credit_ms"`   // 0 = one target latency
	EventBuffer      int `yaml:"event_buffer"`       // 256 (by default)
}

// If the config file is not found, we use default values
func defaultConfig() Config {
	return Config{
		TickMS:           1,
		TargetLatencyMS:  6,
		MinGranularityMS: 1,
		WakeupCreditMS:   0,
		EventBuffer:      256,
	}
}

// Load reads YAML and overrides defaults; empty path = defaults only
func Load(path string) Config {
	cfg := defaultConfig()

	if path == "" {
		return cfg
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg
	}

	_ = yaml.Unmarshal(data, &cfg)

	// sanity clamps
	if cfg.TickMS <= 0 {
		cfg.TickMS = 1
	}
	if cfg.TargetLatencyMS <= 0 {
		cfg.TargetLatencyMS = 6
	}
	if cfg.MinGranularityMS <= 0 {
		cfg.MinGranularityMS = 1
	}
	if cfg.MinGranularityMS > cfg.TargetLatencyMS {
		cfg.MinGranularityMS = cfg.TargetLatencyMS
	}
	if cfg.WakeupCreditMS < 0 {
		cfg.WakeupCreditMS = 0
	}
	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = 256
	}

	return cfg
}

// TickInterval is the accounting period.
func (c Config) TickInterval() time.Duration {
	return time.Duration(c.TickMS) * time.Millisecond
}

// TargetLatency is the window every runnable task should get a turn within.
func (c Config) TargetLatency() time.Duration {
	return time.Duration(c.TargetLatencyMS) * time.Millisecond
}

// MinGranularity is the floor on any single slice.
func (c Config) MinGranularity() time.Duration {
	return time.Duration(c.MinGranularityMS) * time.Millisecond
}

// WakeupCredit bounds how much lag a sleeper may carry back; zero means one
// target latency window.
func (c Config) WakeupCredit() time.Duration {
	if c.WakeupCreditMS <= 0 {
		return c.TargetLatency()
	}
	return time.Duration(c.WakeupCreditMS) * time.Millisecond
}
