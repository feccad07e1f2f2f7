// Package config loads nanokern's boot-time settings from an optional TOML
// file layered over built-in defaults. It registers no command-line flags
// of its own.
package config

import (
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the full set of boot-time knobs the kernel reads once at
// startup; nothing here is mutated once the kernel starts running.
type Config struct {
	// TaskTableCapacity is the number of task slots, must be a power of
	// two (NENV in the source, fixed at compile time there; a runtime
	// knob here since nothing about this port depends on a fixed layout).
	TaskTableCapacity int `toml:"task_table_capacity"`

	// TickInterval is how often the boot loop's timer interrupt fires,
	// standing in for the source's periodic IRQ_TIMER.
	TickInterval time.Duration `toml:"tick_interval"`

	// LogLevel is a logrus level name: debug, info, warn, error.
	LogLevel string `toml:"log_level"`

	// LogFormat is either "text" or "json".
	LogFormat string `toml:"log_format"`

	// MetricsAddr, if non-empty, serves Prometheus metrics on this
	// address (e.g. ":9090").
	MetricsAddr string `toml:"metrics_addr"`

	// Interactive attaches the host terminal as the kernel console;
	// when false, sys_cputs/sys_cgetc are no-ops.
	Interactive bool `toml:"interactive"`
}

// Default returns the configuration nanokern boots with if no file is
// given.
func Default() *Config {
	return &Config{
		TaskTableCapacity: 64,
		TickInterval:      10 * time.Millisecond,
		LogLevel:          "info",
		LogFormat:         "text",
		Interactive:       true,
	}
}

// Load reads a TOML file at path over top of Default(); an empty path
// returns Default() unchanged. No flag values are applied to the result.
func Load(path string) (*Config, error) {
	c := Default()
	if path == "" {
		return c, nil
	}
	if _, err := os.Stat(path); err != nil {
		return c, err
	}
	if _, err := toml.DecodeFile(path, c); err != nil {
		return nil, err
	}
	return c, nil
}
