// SPDX-License-Identifier: MIT

// Package appconfig loads cmd/transcodectl's own small settings surface
// (which ffmpeg/ffprobe binaries to invoke, where to serve health
// checks, log verbosity) from a layered YAML file + environment
// overlay. Task control-plane configuration (what to transcode) is
// supplied per-request through the API the core exposes, never read
// from disk here.
package appconfig

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the environment-variable prefix used to override any
// YAML setting, e.g. TRANSCODECTL_HEALTH_ADDR.
const EnvPrefix = "TRANSCODECTL"

// Config is cmd/transcodectl's complete settings surface.
type Config struct {
	// FFmpegPath is the ffmpeg binary every task spawns.
	FFmpegPath string `yaml:"ffmpeg_path" koanf:"ffmpeg_path"`
	// FFprobePath is the ffprobe binary used to resolve offset-based
	// progress bases.
	FFprobePath string `yaml:"ffprobe_path" koanf:"ffprobe_path"`
	// HealthAddr is the listen address for internal/health's endpoints.
	HealthAddr string `yaml:"health_addr" koanf:"health_addr"`
	// DiagnosticLogDir, when non-empty, enables diagnostic stream
	// persistence for every task. Empty
	// disables it.
	DiagnosticLogDir string `yaml:"diagnostic_log_dir" koanf:"diagnostic_log_dir"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" koanf:"log_level"`
	// LogFormat is either text or json, selecting between
	// slog.NewTextHandler and slog.NewJSONHandler.
	LogFormat string `yaml:"log_format" koanf:"log_format"`
}

// defaults is the lowest-precedence layer: the values a fresh install
// gets before any YAML file or environment variable is applied.
func defaults() Config {
	return Config{
		FFmpegPath:  "ffmpeg",
		FFprobePath: "ffprobe",
		HealthAddr:  "127.0.0.1:9880",
		LogLevel:    "info",
		LogFormat:   "text",
	}
}

// Validate checks for values that would make the binary impossible to
// start correctly.
func (c *Config) Validate() error {
	if c.FFmpegPath == "" {
		return fmt.Errorf("ffmpeg_path cannot be empty")
	}
	if c.FFprobePath == "" {
		return fmt.Errorf("ffprobe_path cannot be empty")
	}
	if c.HealthAddr == "" {
		return fmt.Errorf("health_addr cannot be empty")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be one of debug, info, warn, error (got %q)", c.LogLevel)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("log_format must be one of text, json (got %q)", c.LogFormat)
	}
	return nil
}

// Load builds a Config from, in increasing precedence: built-in
// defaults, the YAML file at yamlPath (skipped if empty; a path that
// cannot be read is an error), and TRANSCODECTL_-prefixed environment
// variables.
func Load(yamlPath string) (*Config, error) {
	k := koanf.New(".")

	if yamlPath != "" {
		if err := k.Load(file.Provider(yamlPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load YAML file %q: %w", yamlPath, err)
		}
	}

	envProvider := env.Provider(".", env.Opt{
		Prefix: EnvPrefix + "_",
		TransformFunc: func(k, v string) (string, any) {
			k = strings.TrimPrefix(k, EnvPrefix+"_")
			return strings.ToLower(k), v
		},
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// Unmarshal onto a defaults-populated struct: koanf/mapstructure only
	// overwrites keys actually present in the merged file+env map, so
	// unset keys keep the built-in default already in cfg.
	cfg := defaults()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}
