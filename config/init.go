package config

import (
	"fmt"
	"os"

	"github.com/kelseyhightower/envconfig"
	yaml "gopkg.in/yaml.v2"
)

func readFile(path string, cfg *Configuration) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(cfg); err != nil {
		return fmt.Errorf("cannot decode %s: %w", path, err)
	}
	return nil
}

func readEnv(cfg *Configuration) error {
	return envconfig.Process(EnvPrefix, cfg)
}

// Load reads the yaml file at path over the defaults, applies environment
// overrides and validates the result.
func Load(path string) (*Configuration, error) {
	cfg := defaults()

	if err := readFile(path, cfg); err != nil {
		return nil, err
	}
	if err := readEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
