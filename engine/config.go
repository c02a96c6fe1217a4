package engine

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/syssam/derive/dialect"
	"github.com/syssam/derive/dialect/document"
	"github.com/syssam/derive/dialect/dynamodb"
	"github.com/syssam/derive/dialect/sql"
	"github.com/syssam/derive/naming"
)

// TargetConfig configures one rendering target.
type TargetConfig struct {
	Name    string `yaml:"name"`
	Dialect string `yaml:"dialect"`
	// Naming is the name of a built-in naming strategy. Empty selects the
	// dialect's default.
	Naming      string `yaml:"naming,omitempty"`
	AlwaysQuote bool   `yaml:"always_quote,omitempty"`
}

// Config is the engine configuration. Values read from YAML are
// overridden by the DERIVE_* environment variables.
type Config struct {
	Targets       []TargetConfig `yaml:"targets"`
	DefaultTarget string         `yaml:"default_target,omitempty" env:"DERIVE_TARGET"`
	LogLevel      string         `yaml:"log_level,omitempty" env:"DERIVE_LOG_LEVEL"`
	// AlwaysQuote forces identifier quoting on every relational target.
	AlwaysQuote bool `yaml:"always_quote,omitempty" env:"DERIVE_ALWAYS_QUOTE"`
}

// ParseConfig parses a YAML configuration and applies environment
// overrides.
func ParseConfig(data []byte) (*Config, error) {
	return parseConfig(data, env.Options{})
}

func parseConfig(data []byte, opts env.Options) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("engine: parse config: %w", err)
	}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("engine: environment: %w", err)
	}
	return cfg, cfg.validate()
}

// LoadConfig reads the configuration file at path. An empty path yields a
// configuration built from the environment alone.
func LoadConfig(path string) (*Config, error) {
	var data []byte
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("engine: read config: %w", err)
		}
		data = b
	}
	return ParseConfig(data)
}

func (c *Config) validate() error {
	seen := make(map[string]bool, len(c.Targets))
	for i, t := range c.Targets {
		switch {
		case t.Name == "":
			return fmt.Errorf("engine: target %d has no name", i)
		case seen[t.Name]:
			return fmt.Errorf("engine: duplicate target %q", t.Name)
		case t.Dialect == "":
			return fmt.Errorf("engine: target %q has no dialect", t.Name)
		}
		seen[t.Name] = true
	}
	if c.DefaultTarget != "" && len(c.Targets) > 0 && !seen[c.DefaultTarget] {
		return fmt.Errorf("engine: default target %q is not configured", c.DefaultTarget)
	}
	return nil
}

// Level returns the configured log level, Info when unset.
func (c *Config) Level() (slog.Level, error) {
	var l slog.Level
	if c.LogLevel == "" {
		return slog.LevelInfo, nil
	}
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("engine: log level: %w", err)
	}
	return l, nil
}

// Options returns the engine options of the configured targets.
func (c *Config) Options() ([]Option, error) {
	var opts []Option
	for _, t := range c.Targets {
		r, err := NewRenderer(t.Dialect, t.Naming, t.AlwaysQuote || c.AlwaysQuote)
		if err != nil {
			return nil, fmt.Errorf("engine: target %q: %w", t.Name, err)
		}
		opts = append(opts, WithTarget(t.Name, r))
	}
	if c.DefaultTarget != "" {
		opts = append(opts, WithDefaultTarget(c.DefaultTarget))
	}
	return opts, nil
}

// NewRenderer returns the renderer of a dialect. strategy names a built-in
// naming strategy; empty selects the dialect's default. alwaysQuote only
// affects relational dialects.
func NewRenderer(name, strategy string, alwaysQuote bool) (dialect.Renderer, error) {
	var (
		s   naming.Strategy
		err error
	)
	if strategy != "" {
		if s, err = naming.ByName(strategy); err != nil {
			return nil, err
		}
	}
	switch name = strings.ToLower(name); {
	case dialect.Relational(name):
		var opts []sql.Option
		if s != nil {
			opts = append(opts, sql.WithNaming(s))
		}
		if alwaysQuote {
			opts = append(opts, sql.WithAlwaysQuote())
		}
		return sql.NewRenderer(name, opts...)
	case name == dialect.Cosmos:
		var opts []document.Option
		if s != nil {
			opts = append(opts, document.WithNaming(s))
		}
		return document.NewRenderer(opts...), nil
	case name == dialect.DynamoDB:
		var opts []dynamodb.Option
		if s != nil {
			opts = append(opts, dynamodb.WithNaming(s))
		}
		return dynamodb.NewRenderer(opts...), nil
	default:
		return nil, fmt.Errorf("engine: unsupported dialect %q", name)
	}
}
