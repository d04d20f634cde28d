// Package config holds the tunables spec.md §6 names (miniature size,
// thresholds, connection table sizing, buffer size, timeouts, progress
// interval) plus the DAO and network settings a runnable server needs.
// Defaults match the spec; an optional YAML file (loaded the way the
// rest of the retrieval pack wires gopkg.in/yaml.v3 configuration)
// can override them, with flags taking final precedence in cmd/.
package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pixeldup/dids/internal/diderr"
)

// Config holds every tunable named in spec.md §6.
type Config struct {
	// MiniatureSize is S, the fixed side length of every miniature.
	MiniatureSize int `yaml:"miniature_size"`
	// MaxErrBase is the base SSD threshold used directly by fullcompare
	// and widened by QuickMultiplier for quickcompare.
	MaxErrBase uint32 `yaml:"maxerr_base"`
	// QuickMultiplier widens MaxErrBase for quickcompare.
	QuickMultiplier uint32 `yaml:"quick_multiplier"`
	// FullWorkerMultiplier sets the fullcompare worker pool size as a
	// multiple of runtime.NumCPU().
	FullWorkerMultiplier int `yaml:"full_worker_multiplier"`
	// MaxConnections is C, the size of the connection table.
	MaxConnections int `yaml:"max_connections"`
	// BufferSize is B, the per-connection command buffer capacity.
	BufferSize int `yaml:"buffer_size"`
	// ListenTimeout is T. The server loop sets it as each connection's
	// deadline once at accept (see SPEC_FULL.md §9), and debug_sleep
	// sleeps for twice this value.
	ListenTimeout time.Duration `yaml:"listen_timeout"`
	// ProgressInterval is K, the work-pull interval between fullcompare
	// progress lines.
	ProgressInterval int `yaml:"progress_interval"`

	// DSN is the DAO connection string. A postgres:// URL selects the
	// Postgres-backed DAO; anything else is treated as a filesystem base
	// directory for the FSDAO.
	DSN string `yaml:"dsn"`
	// Addr is the bind address for the TCP listener.
	Addr string `yaml:"addr"`
	// Port is the TCP port for the server loop.
	Port int `yaml:"port"`
}

// Default returns the spec's default tunables with no DAO or network
// settings populated; callers fill Addr/Port/DSN from flags.
func Default() Config {
	return Config{
		MiniatureSize:        16,
		MaxErrBase:           35000,
		QuickMultiplier:      10,
		FullWorkerMultiplier: 2,
		MaxConnections:       100,
		BufferSize:           2048,
		ListenTimeout:        60 * time.Second,
		ProgressInterval:     5000,
	}
}

// LoadFile reads a YAML config file and overlays it onto Default(),
// following the teacher/pack's gopkg.in/yaml.v3-based configuration
// loading convention.
func LoadFile(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, diderr.Wrap(diderr.IoFailure, err, "config: failed to read %s", path)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, diderr.Wrap(diderr.DecodeFailure, err, "config: failed to parse %s", path)
	}
	return cfg, nil
}
