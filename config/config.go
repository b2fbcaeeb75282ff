// Package config holds the run configuration, loadable from a YAML file
// and overridable by command line flags.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config mirrors the CLI flags of the training binary.
type Config struct {
	Dataset      string  `yaml:"dataset"`
	DataDir      string  `yaml:"data_dir"`
	MetaDir      string  `yaml:"meta_dir"`
	NumWorkers   int     `yaml:"num_workers"`
	BatchSize    int     `yaml:"batch_size"`
	LearningRate float32 `yaml:"learning_rate"`
	WeightDecay  float32 `yaml:"weight_decay"`
	WarmupEpochs int     `yaml:"warmup_epochs"`
	MaxEpochs    int     `yaml:"max_epochs"`
	OnlineFT     bool    `yaml:"online_ft"`
	Seed         int64   `yaml:"seed"`
}

// Default returns the baseline configuration.
func Default() Config {
	return Config{
		Dataset:      "cifar10",
		DataDir:      "./data",
		NumWorkers:   0,
		BatchSize:    32,
		LearningRate: 0.2,
		WeightDecay:  1.5e-6,
		WarmupEpochs: 10,
		MaxEpochs:    1000,
		Seed:         1234,
	}
}

// Load reads a YAML config file on top of the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate checks the configuration for obvious misuse.
func (c Config) Validate() error {
	switch c.Dataset {
	case "cifar10", "stl10", "imagenet2012":
	default:
		return fmt.Errorf("unknown dataset %q (want cifar10, stl10 or imagenet2012)", c.Dataset)
	}
	if c.BatchSize < 2 {
		return fmt.Errorf("batch_size must be at least 2, got %d", c.BatchSize)
	}
	if c.LearningRate <= 0 {
		return fmt.Errorf("learning_rate must be positive, got %g", c.LearningRate)
	}
	if c.WeightDecay < 0 {
		return fmt.Errorf("weight_decay must not be negative, got %g", c.WeightDecay)
	}
	if c.WarmupEpochs < 0 || c.MaxEpochs <= 0 || c.WarmupEpochs > c.MaxEpochs {
		return fmt.Errorf("invalid epoch bounds: warmup=%d max=%d", c.WarmupEpochs, c.MaxEpochs)
	}
	if c.NumWorkers < 0 {
		return fmt.Errorf("num_workers must not be negative, got %d", c.NumWorkers)
	}
	return nil
}
