// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package config loads worldflow configuration from defaults, a YAML file and
// WORLDFLOW_* environment variables, and reloads it when the file changes.
package config

import "time"

// EnvPrefix prefixes every environment override.
const EnvPrefix = "WORLDFLOW_"

const (
	ModeStrict  = "strict"
	ModeRelease = "release"

	EmptyScopeRunAll  = "run_all"
	EmptyScopeRunNone = "run_none"

	BusMemory = "memory"
	BusRedis  = "redis"

	ExporterGRPC = "grpc"
	ExporterHTTP = "http"
)

// AppConfig is the complete runtime configuration.
type AppConfig struct {
	Runtime    RuntimeConfig    `yaml:"runtime" json:"runtime" envPrefix:"RUNTIME_"`
	Reset      ResetConfig      `yaml:"reset" json:"reset" envPrefix:"RESET_"`
	Transition TransitionConfig `yaml:"transition" json:"transition" envPrefix:"TRANSITION_"`
	Degraded   DegradedConfig   `yaml:"degraded" json:"degraded" envPrefix:"DEGRADED_"`
	Log        LogConfig        `yaml:"log" json:"log" envPrefix:"LOG_"`
	QA         QAConfig         `yaml:"qa" json:"qa" envPrefix:"QA_"`
	Bus        BusConfig        `yaml:"bus" json:"bus" envPrefix:"BUS_"`
	Telemetry  TelemetryConfig  `yaml:"telemetry" json:"telemetry" envPrefix:"TELEMETRY_"`
}

type RuntimeConfig struct {
	// Mode is "strict" (development diagnostics) or "release".
	Mode string `yaml:"mode" json:"mode" env:"MODE"`
	// TickRate is the driver loop period; each tick opens a new degraded
	// report dedupe frame.
	TickRate time.Duration `yaml:"tickRate" json:"tickRate" env:"TICK_RATE"`
}

type ResetConfig struct {
	// EmptyScopePolicy decides what a reset without scopes runs.
	EmptyScopePolicy string `yaml:"emptyScopePolicy" json:"emptyScopePolicy" env:"EMPTY_SCOPE_POLICY"`
}

type TransitionConfig struct {
	PreRevealTimeout time.Duration `yaml:"preRevealTimeout" json:"preRevealTimeout" env:"PRE_REVEAL_TIMEOUT"`
	// GateTimeout bounds the completion gate await; 0 waits indefinitely.
	GateTimeout time.Duration `yaml:"gateTimeout" json:"gateTimeout" env:"GATE_TIMEOUT"`
	// ResetOnReady runs a scene-flow world reset for every ScenesReady
	// notification. Disable it when the host engine triggers resets itself.
	ResetOnReady bool `yaml:"resetOnReady" json:"resetOnReady" env:"RESET_ON_READY"`
}

type DegradedConfig struct {
	RatePerSecond float64 `yaml:"ratePerSecond" json:"ratePerSecond" env:"RATE_PER_SECOND"`
	Burst         int     `yaml:"burst" json:"burst" env:"BURST"`
}

type LogConfig struct {
	Level string `yaml:"level" json:"level" env:"LEVEL"`
	// Categories maps a component name to its own level,
	// e.g. WORLDFLOW_LOG_CATEGORIES="transition:debug,bus.redis:warn".
	Categories map[string]string `yaml:"categories" json:"categories,omitempty" env:"CATEGORIES"`
}

type QAConfig struct {
	Enabled    bool   `yaml:"enabled" json:"enabled" env:"ENABLED"`
	ListenAddr string `yaml:"listenAddr" json:"listenAddr" env:"LISTEN_ADDR"`
	// RequestLimit requests per Window per client IP.
	RequestLimit int           `yaml:"requestLimit" json:"requestLimit" env:"REQUEST_LIMIT"`
	Window       time.Duration `yaml:"window" json:"window" env:"WINDOW"`
}

type BusConfig struct {
	Backend       string `yaml:"backend" json:"backend" env:"BACKEND"`
	RedisAddr     string `yaml:"redisAddr" json:"redisAddr,omitempty" env:"REDIS_ADDR"`
	ChannelPrefix string `yaml:"channelPrefix" json:"channelPrefix" env:"CHANNEL_PREFIX"`
}

type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled" json:"enabled" env:"ENABLED"`
	Exporter     string  `yaml:"exporter" json:"exporter" env:"EXPORTER"`
	Endpoint     string  `yaml:"endpoint" json:"endpoint,omitempty" env:"ENDPOINT"`
	SamplingRate float64 `yaml:"samplingRate" json:"samplingRate" env:"SAMPLING_RATE"`
}

// Defaults returns the built-in configuration.
func Defaults() AppConfig {
	return AppConfig{
		Runtime: RuntimeConfig{
			Mode:     ModeStrict,
			TickRate: 50 * time.Millisecond,
		},
		Reset: ResetConfig{
			EmptyScopePolicy: EmptyScopeRunAll,
		},
		Transition: TransitionConfig{
			PreRevealTimeout: 5 * time.Second,
			ResetOnReady:     true,
		},
		Degraded: DegradedConfig{
			RatePerSecond: 20,
			Burst:         40,
		},
		Log: LogConfig{
			Level: "info",
		},
		QA: QAConfig{
			Enabled:      false,
			ListenAddr:   "127.0.0.1:8089",
			RequestLimit: 60,
			Window:       time.Minute,
		},
		Bus: BusConfig{
			Backend:       BusMemory,
			ChannelPrefix: "worldflow:",
		},
		Telemetry: TelemetryConfig{
			Exporter:     ExporterGRPC,
			Endpoint:     "localhost:4317",
			SamplingRate: 1.0,
		},
	}
}
