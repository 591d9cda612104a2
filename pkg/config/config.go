// Package config defines the structured configuration surface the
// fabric's runtime reads: network limits, thread pool sizing, the
// database backing a persistent queue (external), logging, and
// monitoring. Loading from disk, file watching, and reload are left to
// the caller — this package only decodes bytes into the struct.
package config

import "gopkg.in/yaml.v3"

// Config is the complete structured configuration the runtime consumes.
type Config struct {
	Network     NetworkConfig    `yaml:"network"`
	ThreadPools ThreadPoolConfig `yaml:"thread_pools"`
	Database    DatabaseConfig   `yaml:"database"`
	Logging     LoggingConfig    `yaml:"logging"`
	Monitoring  MonitoringConfig `yaml:"monitoring"`
}

// NetworkConfig bounds the optional NATS-backed egress/ingress bridge.
type NetworkConfig struct {
	Port           int `yaml:"port"`
	MaxConnections int `yaml:"max_connections"`
	TimeoutMs      int `yaml:"timeout_ms"`
	RetryAttempts  int `yaml:"retry_attempts"`
}

// ThreadPoolConfig sizes the I/O and worker executor pools.
type ThreadPoolConfig struct {
	IOWorkers   int  `yaml:"io_workers"`
	WorkWorkers int  `yaml:"work_workers"`
	QueueSize   int  `yaml:"queue_size"`
	LockFree    bool `yaml:"lockfree"`
}

// DatabasePoolConfig bounds a connection pool to an external database.
type DatabasePoolConfig struct {
	MinConnections int `yaml:"min_connections"`
	MaxConnections int `yaml:"max_connections"`
	IdleTimeoutS   int `yaml:"idle_timeout_s"`
}

// DatabaseConfig describes an external, durable-queue-backing database.
// Connecting to it is out of scope here — this struct only carries the
// parameters a caller's own driver would need.
type DatabaseConfig struct {
	Type             string             `yaml:"type"`
	ConnectionString string             `yaml:"connection_string"`
	Pool             DatabasePoolConfig `yaml:"pool"`
}

// LoggingConfig controls the shared logr facade's verbosity and sinks.
type LoggingConfig struct {
	Level   string   `yaml:"level"`
	Async   bool     `yaml:"async"`
	Writers []string `yaml:"writers"`
}

// MonitoringConfig controls the multi-process monitor's collection
// cadence.
type MonitoringConfig struct {
	Enabled    bool `yaml:"enabled"`
	IntervalMs int  `yaml:"interval_ms"`
}

// Default returns a Config populated with conservative defaults.
func Default() Config {
	return Config{
		Network: NetworkConfig{
			Port:           4488,
			MaxConnections: 256,
			TimeoutMs:      5000,
			RetryAttempts:  3,
		},
		ThreadPools: ThreadPoolConfig{
			IOWorkers:   2,
			WorkWorkers: 4,
			QueueSize:   1024,
			LockFree:    true,
		},
		Database: DatabaseConfig{
			Pool: DatabasePoolConfig{
				MinConnections: 1,
				MaxConnections: 10,
				IdleTimeoutS:   300,
			},
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Monitoring: MonitoringConfig{
			Enabled:    true,
			IntervalMs: 5000,
		},
	}
}

// Decode parses YAML bytes into a Config, starting from Default() so
// unset fields keep sane values. This is the minimal parse primitive the
// package exposes — file discovery, watching, and reload live in the
// caller, per the runtime's non-goals around config-file plumbing.
func Decode(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
