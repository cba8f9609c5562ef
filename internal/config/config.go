package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"

	"github.com/gridlight/stationd/internal/station"
)

// Config is the full stationd configuration.
type Config struct {
	Station StationConfig `toml:"station"`
	Timing  TimingConfig  `toml:"timing"`
	Diag    DiagConfig    `toml:"diag"`
	Display DisplayConfig `toml:"display"`
	LogDir  string        `toml:"log_dir"`
}

// StationConfig carries the credentials used for the boot-time connect.
// SSID may be empty on an unprovisioned device; ConnectSta rejects it.
type StationConfig struct {
	SSID             string `toml:"ssid"`
	Password         string `toml:"password"`
	ConnectTimeoutMs int    `toml:"connect_timeout_ms" validate:"min=0"`
}

// ConnectTimeout returns the boot-time connect budget.
func (s StationConfig) ConnectTimeout() time.Duration {
	return time.Duration(s.ConnectTimeoutMs) * time.Millisecond
}

// TimingConfig bounds the manager's lock acquisitions and signal waits.
// All values are milliseconds in TOML.
type TimingConfig struct {
	LockTimeoutMs      int `toml:"lock_timeout_ms" validate:"min=1"`
	ReadLockTimeoutMs  int `toml:"read_lock_timeout_ms" validate:"min=1"`
	ScanWaitMs         int `toml:"scan_wait_ms" validate:"min=1"`
	ScanDrainMs        int `toml:"scan_drain_ms" validate:"min=1"`
	ConnectWaitFloorMs int `toml:"connect_wait_floor_ms" validate:"min=1"`
	MaxConnectAttempts int `toml:"max_connect_attempts" validate:"min=1,max=10"`
}

// Timings converts the TOML milliseconds into the manager's bounds.
func (t TimingConfig) Timings() station.Timings {
	return station.Timings{
		LockTimeout:        time.Duration(t.LockTimeoutMs) * time.Millisecond,
		ReadLockTimeout:    time.Duration(t.ReadLockTimeoutMs) * time.Millisecond,
		ScanWait:           time.Duration(t.ScanWaitMs) * time.Millisecond,
		ScanDrain:          time.Duration(t.ScanDrainMs) * time.Millisecond,
		ConnectWaitFloor:   time.Duration(t.ConnectWaitFloorMs) * time.Millisecond,
		MaxConnectAttempts: t.MaxConnectAttempts,
	}
}

// DiagConfig configures the diagnostics HTTP listener. An empty
// AuthSecret disables bearer-token auth (LAN-only bring-up).
type DiagConfig struct {
	Addr            string `toml:"addr" validate:"required"`
	AuthSecret      string `toml:"auth_secret"`
	EventBufferSize int    `toml:"event_buffer_size" validate:"min=1"`
}

// DisplayConfig configures the LED-matrix chain.
type DisplayConfig struct {
	Cascade   int `toml:"cascade" validate:"min=1,max=16"`
	Intensity int `toml:"intensity" validate:"min=0,max=15"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Station: StationConfig{
			ConnectTimeoutMs: 10000,
		},
		Timing: TimingConfig{
			LockTimeoutMs:      5000,
			ReadLockTimeoutMs:  1000,
			ScanWaitMs:         15000,
			ScanDrainMs:        1000,
			ConnectWaitFloorMs: 1000,
			MaxConnectAttempts: 3,
		},
		Diag: DiagConfig{
			Addr:            ":8080",
			EventBufferSize: 50,
		},
		Display: DisplayConfig{
			Cascade:   4,
			Intensity: 7,
		},
		LogDir: "logs",
	}
}

// Load merges defaults, the optional TOML file at path, and STATIOND_*
// environment overrides, then validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config %s: %w", path, err)
			}
		} else if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("STATIOND_SSID"); v != "" {
		cfg.Station.SSID = v
	}
	if v := os.Getenv("STATIOND_PASSWORD"); v != "" {
		cfg.Station.Password = v
	}
	if v := os.Getenv("STATIOND_DIAG_ADDR"); v != "" {
		cfg.Diag.Addr = v
	}
	if v := os.Getenv("STATIOND_DIAG_SECRET"); v != "" {
		cfg.Diag.AuthSecret = v
	}
	if v := os.Getenv("STATIOND_LOG_DIR"); v != "" {
		cfg.LogDir = v
	}
	if v := os.Getenv("STATIOND_CONNECT_TIMEOUT_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Station.ConnectTimeoutMs = n
		}
	}
	if v := os.Getenv("STATIOND_MAX_CONNECT_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Timing.MaxConnectAttempts = n
		}
	}
}
