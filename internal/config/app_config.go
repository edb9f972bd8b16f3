// Package config manages application configuration loading and validation.
package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/coachpo/spawnpool/errs"
)

// PoolSpec prewarms one named template.
type PoolSpec struct {
	Template    string `yaml:"template"`
	InitialSize int    `yaml:"initialSize"`
}

// ChurnConfig drives the built-in workload used when no script is configured.
type ChurnConfig struct {
	SpawnPerFrame int     `yaml:"spawnPerFrame"`
	RecycleChance float64 `yaml:"recycleChance"`
	Seed          int64   `yaml:"seed"`
}

// SimulationConfig controls the frame loop.
type SimulationConfig struct {
	Scenes int         `yaml:"scenes"`
	Frames int         `yaml:"frames"`
	FPS    float64     `yaml:"fps"`
	Script string      `yaml:"script"`
	Churn  ChurnConfig `yaml:"churn"`
}

// TelemetryConfig configures OTLP exporters (metrics only).
type TelemetryConfig struct {
	OTLPEndpoint  string `yaml:"otlpEndpoint"`
	ServiceName   string `yaml:"serviceName"`
	OTLPInsecure  bool   `yaml:"otlpInsecure"`
	EnableMetrics bool   `yaml:"enableMetrics"`
}

// LoggingConfig configures the zap backend.
type LoggingConfig struct {
	Level       string `yaml:"level"`
	Encoding    string `yaml:"encoding"`
	Development bool   `yaml:"development"`
}

// AppConfig is the unified spawnpool configuration sourced from YAML.
type AppConfig struct {
	Environment Environment      `yaml:"environment"`
	HoldingArea string           `yaml:"holdingArea"`
	Pools       []PoolSpec       `yaml:"pools"`
	Simulation  SimulationConfig `yaml:"simulation"`
	Telemetry   TelemetryConfig  `yaml:"telemetry"`
	Logging     LoggingConfig    `yaml:"logging"`
}

// Default returns the configuration used when no file is present.
func Default() AppConfig {
	return AppConfig{
		Environment: EnvDev,
		HoldingArea: "pool-holding",
		Pools: []PoolSpec{
			{Template: "crate", InitialSize: 8},
			{Template: "spark", InitialSize: 32},
		},
		Simulation: SimulationConfig{
			Scenes: 1,
			Frames: 120,
			FPS:    60,
			Script: "",
			Churn: ChurnConfig{
				SpawnPerFrame: 4,
				RecycleChance: 0.25,
				Seed:          1,
			},
		},
		Telemetry: TelemetryConfig{
			OTLPEndpoint:  "",
			ServiceName:   "spawnpool",
			OTLPInsecure:  false,
			EnableMetrics: true,
		},
		Logging: LoggingConfig{
			Level:       "info",
			Encoding:    "json",
			Development: false,
		},
	}
}

// Load reads, overrides from the environment, and validates an AppConfig from a YAML file.
// Keys missing from the file keep their Default values.
func Load(ctx context.Context, configPath string) (AppConfig, error) {
	_ = ctx

	reader, closer, err := openConfigFile(configPath)
	if err != nil {
		return AppConfig{}, err
	}
	defer closer()

	bytes, err := io.ReadAll(reader)
	if err != nil {
		return AppConfig{}, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(bytes, &cfg); err != nil {
		return AppConfig{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return finish(cfg)
}

// LoadOrDefault behaves like Load but falls back to Default when the file does not exist.
func LoadOrDefault(ctx context.Context, configPath string) (AppConfig, error) {
	cfg, err := Load(ctx, configPath)
	if err == nil {
		return cfg, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return AppConfig{}, err
	}
	return finish(Default())
}

func finish(cfg AppConfig) (AppConfig, error) {
	cfg.ApplyEnv()
	cfg.normalise()
	if err := cfg.Validate(); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}

// ApplyEnv loads environment variable overrides.
func (c *AppConfig) ApplyEnv() {
	if env := strings.TrimSpace(os.Getenv("SPAWNPOOL_ENV")); env != "" {
		c.Environment = Environment(env)
	}
	if level := strings.TrimSpace(os.Getenv("SPAWNPOOL_LOG_LEVEL")); level != "" {
		c.Logging.Level = level
	}
	if v := strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")); v != "" {
		c.Telemetry.OTLPEndpoint = v
	}
	if v := strings.TrimSpace(os.Getenv("OTEL_SERVICE_NAME")); v != "" {
		c.Telemetry.ServiceName = v
	}
}

func (c *AppConfig) normalise() {
	c.Environment = Environment(normalizeName(string(c.Environment)))
	c.HoldingArea = strings.TrimSpace(c.HoldingArea)
	for i := range c.Pools {
		c.Pools[i].Template = strings.TrimSpace(c.Pools[i].Template)
		if c.Pools[i].InitialSize < 0 {
			c.Pools[i].InitialSize = 0
		}
	}
	c.Simulation.Script = strings.TrimSpace(c.Simulation.Script)
	c.Telemetry.OTLPEndpoint = strings.TrimSpace(c.Telemetry.OTLPEndpoint)
	c.Telemetry.ServiceName = strings.TrimSpace(c.Telemetry.ServiceName)
	c.Logging.Level = normalizeName(c.Logging.Level)
	c.Logging.Encoding = normalizeName(c.Logging.Encoding)
	if c.Logging.Encoding == "" {
		c.Logging.Encoding = "json"
	}
}

// Validate performs semantic validation on the configuration.
func (c AppConfig) Validate() error {
	switch c.Environment {
	case EnvDev, EnvStaging, EnvProd:
	default:
		return fmt.Errorf("environment must be one of dev, staging, prod")
	}

	if c.HoldingArea == "" {
		return fmt.Errorf("holdingArea required")
	}

	seen := make(map[string]struct{}, len(c.Pools))
	for i, spec := range c.Pools {
		if spec.Template == "" {
			return fmt.Errorf("pools[%d] template required", i)
		}
		if _, dup := seen[spec.Template]; dup {
			return fmt.Errorf("pools[%d] template %q declared twice", i, spec.Template)
		}
		if spec.Template == c.HoldingArea {
			return errs.New("config", errs.CodeConflict,
				errs.WithMessage(fmt.Sprintf("pools[%d] template shares its name with holdingArea", i)),
				errs.WithField("name", spec.Template),
				errs.WithRemediation("rename the holding area or the template"))
		}
		seen[spec.Template] = struct{}{}
	}

	if c.Simulation.Scenes <= 0 {
		return fmt.Errorf("simulation scenes must be >0")
	}
	if c.Simulation.Frames < 0 {
		return fmt.Errorf("simulation frames must be >=0")
	}
	if c.Simulation.FPS < 0 {
		return fmt.Errorf("simulation fps must be >=0")
	}
	if c.Simulation.Churn.SpawnPerFrame < 0 {
		return fmt.Errorf("simulation churn spawnPerFrame must be >=0")
	}
	if c.Simulation.Churn.RecycleChance < 0 || c.Simulation.Churn.RecycleChance > 1 {
		return fmt.Errorf("simulation churn recycleChance must be within [0,1]")
	}

	if c.Telemetry.ServiceName == "" {
		return fmt.Errorf("telemetry serviceName required")
	}

	switch c.Logging.Encoding {
	case "json", "console":
	default:
		return fmt.Errorf("logging encoding must be json or console")
	}

	return nil
}

// TemplateNames lists every configured template in declaration order.
func (c AppConfig) TemplateNames() []string {
	names := make([]string, 0, len(c.Pools))
	for _, spec := range c.Pools {
		names = append(names, spec.Template)
	}
	return names
}

func openConfigFile(path string) (io.Reader, func(), error) {
	candidate := filepath.Clean(strings.TrimSpace(path))

	file, err := os.Open(candidate) // #nosec G304 -- path is operator controlled.
	if err != nil {
		return nil, nil, fmt.Errorf("open app config: %w", err)
	}
	return file, func() { _ = file.Close() }, nil
}
