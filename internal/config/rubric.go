package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

func LoadRubricConfig() (*RubricConfig, error) {
	path := os.Getenv("RUBRIC_CONFIG_PATH")
	if path == "" {
		path = "configs/rubric.yaml"
	}

	return LoadRubricConfigFromFile(path)
}

func LoadRubricConfigFromFile(path string) (*RubricConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg RubricConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func applyDefaults(cfg *RubricConfig) {
	if cfg.RawExcerptLimit == 0 {
		cfg.RawExcerptLimit = 2000
	}
}

func (c *RubricConfig) Validate() error {
	if err := c.MultiTurn.validate("multi_turn"); err != nil {
		return err
	}
	return c.OneStep.validate("one_step")
}

func (s RubricSpec) validate(name string) error {
	if len(s.Dimensions) == 0 {
		return fmt.Errorf("rubric %s has no dimensions", name)
	}
	seen := make(map[string]bool, len(s.Dimensions))
	for _, d := range s.Dimensions {
		if d.Key == "" {
			return fmt.Errorf("rubric %s has a dimension without a key", name)
		}
		if seen[d.Key] {
			return fmt.Errorf("rubric %s has duplicate dimension %q", name, d.Key)
		}
		seen[d.Key] = true
	}
	return nil
}
