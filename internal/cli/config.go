package cli

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/bomgraph/bomgraph/internal/engine"
)

// Config is the optional YAML configuration file. Flags always win over
// config values; config values win over built-in defaults.
type Config struct {
	DB     string       `yaml:"db"`
	Format string       `yaml:"format"`
	Weight WeightConfig `yaml:"weight"`
}

// WeightConfig carries default parameters for the weight rollup command.
type WeightConfig struct {
	UnitWeightKey         string  `yaml:"unit_weight_key"`
	MaturityFactorKey     string  `yaml:"maturity_factor_key"`
	DefaultMaturityFactor float64 `yaml:"default_maturity_factor"`
	TopN                  int     `yaml:"top_n"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		DB:     "bomgraph.db",
		Format: "text",
		Weight: WeightConfig{
			UnitWeightKey:         engine.DefaultUnitWeightKey,
			MaturityFactorKey:     engine.DefaultMaturityFactorKey,
			DefaultMaturityFactor: 1.0,
			TopN:                  engine.DefaultWeightTopN,
		},
	}
}

// LoadConfig reads a YAML config file over the defaults. An empty path
// returns the defaults; a missing explicit path is an error.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if cfg.Weight.UnitWeightKey == "" {
		cfg.Weight.UnitWeightKey = engine.DefaultUnitWeightKey
	}
	if cfg.Weight.MaturityFactorKey == "" {
		cfg.Weight.MaturityFactorKey = engine.DefaultMaturityFactorKey
	}
	if cfg.Weight.DefaultMaturityFactor == 0 {
		cfg.Weight.DefaultMaturityFactor = 1.0
	}
	if cfg.Weight.TopN == 0 {
		cfg.Weight.TopN = engine.DefaultWeightTopN
	}
	return cfg, nil
}
