// Package config loads the planner configuration from a YAML or JSON file
// with optional environment overrides.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"evroute/core/routing"
	"evroute/infra/mqtt"
)

type Config struct {
	Scenario string        `json:"scenario"`
	Logging  LoggingConfig `json:"logging"`
	Solver   SolverConfig  `json:"solver"`
	Metrics  MetricsConfig `json:"metrics"`
	Store    StoreConfig   `json:"store"`
	Pricing  PricingConfig `json:"pricing"`
	MQTT     mqtt.Config   `json:"mqtt"`
}

// Load reads the file at path, applies EV_ environment overrides
// (EV_SOLVER__WORKERS=4 sets solver.workers) and validates the result.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	if err := k.Load(env.Provider("EV_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "ev_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.Logging.SetDefaults()
	cfg.Solver.SetDefaults()
	cfg.Metrics.SetDefaults()
	cfg.Store.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks all sections.
func (c Config) Validate() error {
	if c.Scenario == "" {
		return fmt.Errorf("scenario file is required")
	}
	if err := c.Logging.Validate(); err != nil {
		return err
	}
	if err := c.Solver.Validate(); err != nil {
		return err
	}
	if err := c.Metrics.Validate(); err != nil {
		return err
	}
	if err := c.Store.Validate(); err != nil {
		return err
	}
	if c.Pricing.PublishEnabled {
		if c.MQTT.Broker == "" {
			return fmt.Errorf("mqtt broker is required when pricing publishing is enabled")
		}
		if c.MQTT.Topic == "" {
			return fmt.Errorf("mqtt topic is required when pricing publishing is enabled")
		}
	}
	return nil
}

// RoutingOptions maps the solver section onto builder options.
func (c SolverConfig) RoutingOptions() routing.Options {
	return routing.Options{
		Linearize:           c.Linearize,
		SequenceConstraints: c.SequenceConstraints,
	}
}
