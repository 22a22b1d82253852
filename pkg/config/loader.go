package config

import (
	"fmt"
	"os"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// Load reads the YAML file at path, expands environment variables, and
// merges it over the built-in defaults (file values win). A missing file
// is not an error — the defaults alone are a valid configuration.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &cfg, nil
		}
		return nil, &LoadError{File: path, Err: err}
	}

	data = ExpandEnv(data)

	var fromFile Config
	if err := yaml.Unmarshal(data, &fromFile); err != nil {
		return nil, &LoadError{File: path, Err: fmt.Errorf("%w: %v", ErrInvalidYAML, err)}
	}

	if err := mergo.Merge(&cfg, fromFile, mergo.WithOverride); err != nil {
		return nil, fmt.Errorf("config: merge %s over defaults: %w", path, err)
	}
	return &cfg, nil
}

func defaultConfig() Config {
	return Config{
		Database:  DefaultDatabaseConfig(),
		Retention: DefaultRetentionConfig(),
		Reflexion: DefaultReflexionConfig(),
		LLM:       DefaultLLMConfig(),
	}
}
