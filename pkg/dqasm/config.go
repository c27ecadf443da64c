package dqasm

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"dqasmgo/internal/core"
	"dqasmgo/internal/util"
)

// Config is the file configuration for conversions.
type Config struct {
	Parse  core.ParseConfig `yaml:"parse"`
	Log    util.LogConfig   `yaml:"log"`
	Output string           `yaml:"output"` // Default output path
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		Parse:  core.DefaultParseConfig(),
		Log:    util.DefaultLogConfig(),
		Output: core.DefaultOutputPath,
	}
}

// LoadConfig reads a YAML configuration file. Fields missing from the file
// keep their default values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg := DefaultConfig()
	if err := yaml.UnmarshalStrict(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "load config %s", path)
	}
	cfg.Parse.Normalize()
	if cfg.Output == "" {
		cfg.Output = core.DefaultOutputPath
	}
	return cfg, nil
}
