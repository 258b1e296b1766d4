// Package config loads deqcore settings from TOML files and the environment.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
)

// Config is the full deqcore configuration.
type Config struct {
	Logging    LoggingConfig    `toml:"logging"`
	Simulation SimulationConfig `toml:"simulation"`
	Mitigation MitigationConfig `toml:"mitigation"`
	Optimizer  OptimizerConfig  `toml:"optimizer"`
	Storage    StorageConfig    `toml:"storage"`
}

type LoggingConfig struct {
	Level    string   `toml:"level" validate:"oneof=debug info warn error"`
	Encoding string   `toml:"encoding" validate:"oneof=console json"`
	Output   []string `toml:"output" validate:"min=1,dive,required"`
}

type SimulationConfig struct {
	MaxQubits    int    `toml:"max_qubits" validate:"gte=1,lte=12"`
	Trajectories int    `toml:"trajectories" validate:"gte=1"`
	Seed         uint64 `toml:"seed"`
}

type MitigationConfig struct {
	Regression       RegressionConfig       `toml:"regression"`
	QuasiProbability QuasiProbabilityConfig `toml:"quasi_probability"`
	Extrapolation    ExtrapolationConfig    `toml:"extrapolation"`
}

type RegressionConfig struct {
	TrainingCircuits int     `toml:"training_circuits" validate:"gte=2"`
	ReplaceFraction  float64 `toml:"replace_fraction" validate:"gte=0,lte=1"`
}

type QuasiProbabilityConfig struct {
	Samples int `toml:"samples" validate:"gte=1"`
	Workers int `toml:"workers" validate:"gte=1"`
}

type ExtrapolationConfig struct {
	Method       string    `toml:"method" validate:"oneof=linear richardson"`
	ScaleFactors []float64 `toml:"scale_factors" validate:"min=2,dive,gt=0"`
}

type OptimizerConfig struct {
	SizeThreshold int `toml:"size_threshold" validate:"gte=0"`
}

type StorageConfig struct {
	Path      string `toml:"path" validate:"required"`
	CacheSize int    `toml:"cache_size" validate:"gte=1"`
}

// NewDefault returns the built-in defaults.
func NewDefault() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:    "info",
			Encoding: "console",
			Output:   []string{"stderr"},
		},
		Simulation: SimulationConfig{
			MaxQubits:    10,
			Trajectories: 400,
			Seed:         7,
		},
		Mitigation: MitigationConfig{
			Regression: RegressionConfig{
				TrainingCircuits: 10,
				ReplaceFraction:  0.5,
			},
			QuasiProbability: QuasiProbabilityConfig{
				Samples: 100,
				Workers: 4,
			},
			Extrapolation: ExtrapolationConfig{
				Method:       "linear",
				ScaleFactors: []float64{1, 2, 3},
			},
		},
		Optimizer: OptimizerConfig{
			SizeThreshold: 50,
		},
		Storage: StorageConfig{
			Path:      "./data/deqcore",
			CacheSize: 128,
		},
	}
}

// Load merges the given files over the defaults in order, applies DEQCORE_*
// environment overrides and validates the result. Empty paths are skipped.
func Load(paths ...string) (*Config, error) {
	cfg := NewDefault()
	for _, path := range paths {
		if path == "" {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "read config %s", path)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrapf(err, "parse config %s", path)
		}
	}
	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse reads a single TOML document over the defaults without consulting
// the environment.
func Parse(data []byte) (*Config, error) {
	cfg := NewDefault()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, "parse config")
	}
	return cfg, cfg.Validate()
}

var validate = validator.New()

// Validate checks every section against its constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "invalid config")
	}
	return nil
}

// Marshal renders the configuration as TOML.
func (c *Config) Marshal() ([]byte, error) {
	return toml.Marshal(c)
}

func applyEnvOverrides(cfg *Config) error {
	if level := os.Getenv("DEQCORE_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = strings.ToLower(level)
	}
	if encoding := os.Getenv("DEQCORE_LOG_ENCODING"); encoding != "" {
		cfg.Logging.Encoding = strings.ToLower(encoding)
	}
	if path := os.Getenv("DEQCORE_STORAGE_PATH"); path != "" {
		cfg.Storage.Path = path
	}
	if v := os.Getenv("DEQCORE_SIZE_THRESHOLD"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrap(err, "DEQCORE_SIZE_THRESHOLD")
		}
		cfg.Optimizer.SizeThreshold = n
	}
	if v := os.Getenv("DEQCORE_MAX_QUBITS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrap(err, "DEQCORE_MAX_QUBITS")
		}
		cfg.Simulation.MaxQubits = n
	}
	if v := os.Getenv("DEQCORE_EXTRAPOLATION_METHOD"); v != "" {
		cfg.Mitigation.Extrapolation.Method = strings.ToLower(v)
	}
	return nil
}
