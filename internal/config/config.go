// Package config manages the taskprobe configuration file.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config holds all taskprobe configuration.
type Config struct {
	Target    TargetConfig    `toml:"target"`
	Submit    SubmitConfig    `toml:"submit"`
	Simulator SimulatorConfig `toml:"simulator"`
	Telemetry TelemetryConfig `toml:"telemetry"`
}

// TargetConfig identifies the task service under test.
type TargetConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// Addr returns the host:port pair of the target service.
func (t TargetConfig) Addr() string {
	return fmt.Sprintf("%s:%d", t.Host, t.Port)
}

// SubmitConfig controls the load generator.
type SubmitConfig struct {
	Count int `toml:"count"`
}

// SimulatorConfig controls the local stand-in task service.
type SimulatorConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
	// Workers is the number of concurrent task executors.
	Workers int `toml:"workers"`
	// PollInterval is how often (seconds) the store is searched for due tasks.
	PollInterval int `toml:"poll_interval"`
	// MaxSleep is the furthest (seconds) a claimed task may still be in the
	// future; the worker sleeps out the remainder before executing.
	MaxSleep int `toml:"max_sleep"`
	// TimeURL is fetched by "bar" tasks.
	TimeURL string `toml:"time_url"`
}

// TelemetryConfig controls observability endpoints.
type TelemetryConfig struct {
	Prometheus bool `toml:"prometheus"`
}

// Default returns the stock configuration. The target and count defaults
// match the constants the harness has always used.
func Default() Config {
	return Config{
		Target: TargetConfig{
			Host: "localhost",
			Port: 3000,
		},
		Submit: SubmitConfig{
			Count: 10000,
		},
		Simulator: SimulatorConfig{
			Host:         "127.0.0.1",
			Port:         3000,
			Workers:      5,
			PollInterval: 5,
			MaxSleep:     30,
			TimeURL:      "https://www.whattimeisitrightnow.com/",
		},
		Telemetry: TelemetryConfig{
			Prometheus: true,
		},
	}
}

// Load reads config from $TASKPROBE_HOME/config.toml, falling back to defaults.
func Load() (Config, error) {
	cfg := Default()
	path := filepath.Join(Home(), "config.toml")

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil // No config file yet — use defaults
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}

	return cfg, nil
}

// Save writes the config to $TASKPROBE_HOME/config.toml.
func Save(cfg Config) error {
	path := filepath.Join(Home(), "config.toml")
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	return encoder.Encode(cfg)
}

// Home returns the taskprobe data directory.
func Home() string {
	if env := os.Getenv("TASKPROBE_HOME"); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".taskprobe")
}
