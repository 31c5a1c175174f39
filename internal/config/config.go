// Package config loads engine configuration in layers: built-in defaults,
// then an optional TOML file, then SPANRULE_* environment variables.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/roach88/spanrule/internal/rule"
	"github.com/roach88/spanrule/internal/stream"
)

// DefaultFile is read from the working directory when no file is given.
const DefaultFile = "spanrule.toml"

// EnvPrefix prefixes environment overrides. The first underscore after the
// prefix separates section from key: SPANRULE_ENGINE_SIMPLE_GREEDY sets
// engine.simple_greedy.
const EnvPrefix = "SPANRULE_"

// Config is the full configuration.
type Config struct {
	Engine EngineConfig `koanf:"engine"`
	Log    LogConfig    `koanf:"log"`
	Store  StoreConfig  `koanf:"store"`
}

// EngineConfig controls matching.
type EngineConfig struct {
	SimpleGreedy   bool     `koanf:"simple_greedy"`
	CheapestAnchor bool     `koanf:"cheapest_anchor"`
	FilteredTypes  []string `koanf:"filtered_types"`
	MaxSteps       int      `koanf:"max_steps"`
}

// LogConfig controls the CLI logger.
type LogConfig struct {
	Level  slog.Level `koanf:"level"`
	Format string     `koanf:"format"`
}

// StoreConfig controls result persistence. An empty Path disables it.
type StoreConfig struct {
	Path string `koanf:"path"`
}

func defaults() map[string]any {
	return map[string]any{
		"engine.simple_greedy":   false,
		"engine.cheapest_anchor": false,
		"engine.filtered_types":  append([]string(nil), stream.DefaultFilteredTypes...),
		"engine.max_steps":       rule.DefaultMaxSteps,
		"log.level":              "info",
		"log.format":             "text",
		"store.path":             "",
	}
}

// Default returns the built-in configuration.
func Default() *Config {
	k := koanf.New(".")
	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		panic(fmt.Sprintf("config: invalid defaults: %v", err))
	}
	cfg, err := unmarshal(k)
	if err != nil {
		panic(fmt.Sprintf("config: invalid defaults: %v", err))
	}
	return cfg
}

// Load reads path over the defaults, then applies environment overrides.
// An empty path means DefaultFile if it exists.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path == "" {
		if _, err := os.Stat(DefaultFile); err == nil {
			path = DefaultFile
		}
	}
	if path != "" {
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
		}
	}

	err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "_", ".", 1)
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}
	return unmarshal(k)
}

func unmarshal(k *koanf.Koanf) (*Config, error) {
	var cfg Config
	unmarshalConf := koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           &cfg,
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.TextUnmarshallerHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
			),
		},
	}
	if err := k.UnmarshalWithConf("", &cfg, unmarshalConf); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values the decoder cannot.
func (c *Config) Validate() error {
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format: want text or json, got %q", c.Log.Format)
	}
	if c.Engine.MaxSteps < 0 {
		return fmt.Errorf("engine.max_steps: must not be negative")
	}
	return nil
}

// StreamOptions turns engine settings into stream options.
func (c *Config) StreamOptions() []stream.Option {
	return []stream.Option{
		stream.WithFilteredTypes(c.Engine.FilteredTypes...),
		stream.WithSimpleGreedy(c.Engine.SimpleGreedy),
		stream.WithCheapestAnchor(c.Engine.CheapestAnchor),
	}
}

// RuleOptions turns engine settings into rule application options.
func (c *Config) RuleOptions() []rule.Option {
	return []rule.Option{rule.WithMaxSteps(c.Engine.MaxSteps)}
}

// Logger builds a slog logger writing to w in the configured format.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.Log.Level}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
