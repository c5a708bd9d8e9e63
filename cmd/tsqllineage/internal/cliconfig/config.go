// Package cliconfig loads tsqllineage's CLI configuration from layered
// sources: built-in defaults, an optional config file, environment
// variables, and command-line flags, in that order of increasing priority.
package cliconfig

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// Default configuration values.
const (
	DefaultOutput         = "text"
	DefaultCompatLevel    = "2022"
	DefaultMaxNestedDepth = 32
	DefaultConcurrency    = 0
	envPrefix             = "TSQLLINEAGE_"
)

// Config holds every option tsqllineage's subcommands read from layered
// configuration.
type Config struct {
	Input  string `koanf:"input"`
	Output string `koanf:"output"`

	ExtractTableReferences  bool `koanf:"extract_table_references"`
	ExtractColumnReferences bool `koanf:"extract_column_references"`
	UseQuotedIdentifiers    bool `koanf:"use_quoted_identifiers"`

	CompatLevel         string `koanf:"compat_level"`
	MaxNestedQueryDepth int    `koanf:"max_nested_query_depth"`
	Concurrency         int    `koanf:"concurrency"`
	Async               bool   `koanf:"async"`
	Verbose             bool   `koanf:"verbose"`
}

var configFileUsed string

// GetConfigFileUsed returns the path of the config file the last Load call
// read, or "" if none was found.
func GetConfigFileUsed() string {
	return configFileUsed
}

// findConfigFile returns explicit if non-empty, otherwise the first of the
// well-known file names that exists in the current directory.
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range []string{"tsqllineage.yaml", "tsqllineage.yml", ".tsqllineage.yaml"} {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

// Load builds a Config from, in increasing order of priority: built-in
// defaults, a config file (explicit via cfgFile, or discovered in the
// working directory), TSQLLINEAGE_-prefixed environment variables, and any
// flags the caller explicitly set on flags.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(map[string]any{
		"output":                    DefaultOutput,
		"extract_table_references":  true,
		"extract_column_references": true,
		"use_quoted_identifiers":    false,
		"compat_level":              DefaultCompatLevel,
		"max_nested_query_depth":    DefaultMaxNestedDepth,
		"concurrency":               DefaultConcurrency,
		"async":                     false,
		"verbose":                   false,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	configFileUsed = findConfigFile(cfgFile)
	if configFileUsed != "" {
		if err := k.Load(file.Provider(configFileUsed), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configFileUsed, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			if !f.Changed {
				return "", nil
			}
			return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	return &cfg, nil
}
