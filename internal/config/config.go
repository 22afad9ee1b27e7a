package config

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"go.uber.org/multierr"

	"github.com/AnatoleLucet/reactive/internal"
	"github.com/AnatoleLucet/reactive/internal/logging"
	"github.com/AnatoleLucet/reactive/internal/observability"
)

type Config struct {
	Scheduler SchedulerConfig `toml:"scheduler"`
	Log       LogConfig       `toml:"log"`
	Metrics   MetricsConfig   `toml:"metrics"`
	Tracing   TracingConfig   `toml:"tracing"`
}

type SchedulerConfig struct {
	MaxUpdateCount int  `toml:"max_update_count"`
	Async          bool `toml:"async"`
}

type LogConfig struct {
	Level     string `toml:"level"`
	Silent    bool   `toml:"silent"`
	NoColor   bool   `toml:"no_color"`
	Timestamp bool   `toml:"timestamp"`
}

type MetricsConfig struct {
	Enabled   bool   `toml:"enabled"`
	Namespace string `toml:"namespace"`
	Subsystem string `toml:"subsystem"`
}

type TracingConfig struct {
	Enabled    bool   `toml:"enabled"`
	TracerName string `toml:"tracer_name"`
}

func Default() Config {
	return Config{
		Scheduler: SchedulerConfig{
			MaxUpdateCount: internal.MaxUpdateCount,
			Async:          true,
		},
		Log: LogConfig{
			Level: "warn",
		},
		Metrics: MetricsConfig{
			Namespace: "reactive",
			Subsystem: "scheduler",
		},
		Tracing: TracingConfig{
			Enabled:    true,
			TracerName: observability.DefaultTracerName,
		},
	}
}

// Load reads a TOML file on top of the defaults. Keys missing from the file
// keep their default value.
func Load(path string) (Config, error) {
	cfg := Default()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Parse is Load for in-memory TOML.
func Parse(data string) (Config, error) {
	cfg := Default()

	if _, err := toml.Decode(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var err error

	if c.Scheduler.MaxUpdateCount <= 0 {
		err = multierr.Append(err, fmt.Errorf("scheduler.max_update_count must be positive, got %d", c.Scheduler.MaxUpdateCount))
	}
	if _, perr := zerolog.ParseLevel(strings.ToLower(c.Log.Level)); perr != nil {
		err = multierr.Append(err, fmt.Errorf("log.level: %w", perr))
	}
	if c.Metrics.Enabled && c.Metrics.Namespace == "" {
		err = multierr.Append(err, fmt.Errorf("metrics.namespace must be set when metrics are enabled"))
	}
	if c.Tracing.Enabled && c.Tracing.TracerName == "" {
		err = multierr.Append(err, fmt.Errorf("tracing.tracer_name must be set when tracing is enabled"))
	}

	return err
}

// Options translates the config into runtime options. Metrics are registered
// on reg when enabled; a nil reg uses the default registerer.
func (c Config) Options(reg prometheus.Registerer) ([]internal.Option, error) {
	logger, err := logging.FromEnv(logging.Options{
		Level:     c.Log.Level,
		Console:   true,
		NoColor:   c.Log.NoColor,
		Timestamp: c.Log.Timestamp,
	})
	if err != nil {
		return nil, err
	}

	opts := []internal.Option{
		internal.WithAsync(c.Scheduler.Async),
		internal.WithMaxUpdateCount(c.Scheduler.MaxUpdateCount),
		internal.WithLogger(logger),
		internal.WithSilent(c.Log.Silent),
	}

	if c.Metrics.Enabled {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		opts = append(opts, internal.WithMetrics(observability.NewMetrics(
			observability.WithNamespace(c.Metrics.Namespace),
			observability.WithSubsystem(c.Metrics.Subsystem),
			observability.WithRegistry(reg),
		)))
	}

	if c.Tracing.Enabled {
		opts = append(opts, internal.WithTracer(observability.NewTracer(c.Tracing.TracerName)))
	} else {
		opts = append(opts, internal.WithTracer(nil))
	}

	return opts, nil
}
