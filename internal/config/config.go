// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Archigraph Contributors

// Package config loads and validates the archigraph configuration from file,
// environment, and defaults, in that order of increasing precedence reversed:
// explicit flags beat environment beats file beats defaults.
package config

import (
	"errors"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	"github.com/archigraph/archigraph/internal/store"
	agerr "github.com/archigraph/archigraph/pkg/errors"
)

// Config is the top-level archigraph configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Graph   store.Config  `mapstructure:"graph"`
	Journal JournalConfig `mapstructure:"journal"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig controls how the HTTP API listens.
type ServerConfig struct {
	Listen      string   `mapstructure:"listen"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

// JournalConfig locates the SQLite ingestion journal.
type JournalConfig struct {
	Path string `mapstructure:"path"`
}

// LoggingConfig controls slog output.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SetDefaults writes every default into the viper instance. Defaults target a
// local neo4j with the journal beside the binary.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.listen", "127.0.0.1:8184")
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("graph.backend", "neo4j")
	v.SetDefault("graph.uri", "bolt://localhost:7687")
	v.SetDefault("graph.username", "neo4j")
	// The empty default keeps the key known to viper; without it
	// AutomaticEnv never consults ARCHIGRAPH_GRAPH_PASSWORD on Unmarshal.
	v.SetDefault("graph.password", "")
	v.SetDefault("graph.database", "neo4j")
	v.SetDefault("journal.path", "archigraph.db")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// Load reads configuration from the given path, or discovers archigraph.yaml
// in ., $HOME/.config/archigraph, and /etc/archigraph when the path is empty,
// with environment overrides (prefix ARCHIGRAPH_).
func Load(path string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix("ARCHIGRAPH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, agerr.Errorf(agerr.CodeConfigLoadReadFailure, "reading config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("archigraph")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "archigraph"))
		}
		v.AddConfigPath("/etc/archigraph")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, agerr.Errorf(agerr.CodeConfigLoadReadFailure, "reading config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, agerr.Errorf(agerr.CodeConfigParseInvalidFormat, "unmarshalling config: %w", err)
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, agerr.Errorf(agerr.CodeConfigValidateInvalidValue, "validating config: %w", errors.Join(errs...))
	}

	return &cfg, nil
}

// Validate checks the configuration for logical errors. It returns a slice
// of all validation errors found, collecting all issues rather than stopping
// at the first one.
func (c *Config) Validate() []error {
	var errs []error

	errs = append(errs, c.validateServer()...)
	errs = append(errs, c.validateGraph()...)
	errs = append(errs, c.validateJournal()...)
	errs = append(errs, c.validateLogging()...)

	return errs
}

func (c *Config) validateServer() []error {
	var errs []error

	if c.Server.Listen == "" {
		errs = append(errs, agerr.Errorf(agerr.CodeConfigValidateInvalidValue,
			"config: server.listen must not be empty"))
		return errs
	}
	host, portStr, err := net.SplitHostPort(c.Server.Listen)
	if err != nil {
		errs = append(errs, agerr.Errorf(agerr.CodeConfigValidateInvalidValue,
			"config: server.listen must be a valid host:port address, got %q: %w",
			c.Server.Listen, err,
		))
		return errs
	}
	_ = host // host can be empty (e.g., ":8184"), which is valid
	port, err := strconv.Atoi(portStr)
	if err != nil {
		errs = append(errs, agerr.Errorf(agerr.CodeConfigValidateInvalidValue,
			"config: server.listen port must be a number, got %q", portStr))
	} else if port < 1 || port > 65535 {
		errs = append(errs, agerr.Errorf(agerr.CodeConfigValidateInvalidValue,
			"config: server.listen port must be between 1 and 65535, got %d", port))
	}

	return errs
}

func (c *Config) validateGraph() []error {
	var errs []error

	validBackends := map[string]bool{"neo4j": true, "memory": true}
	if !validBackends[c.Graph.Backend] {
		errs = append(errs, agerr.Errorf(agerr.CodeConfigValidateInvalidValue,
			"config: graph.backend must be one of [neo4j, memory], got %q",
			c.Graph.Backend,
		))
	}

	if c.Graph.Backend == "neo4j" {
		if c.Graph.URI == "" {
			errs = append(errs, agerr.Errorf(agerr.CodeConfigValidateInvalidValue,
				"config: graph.uri must not be empty for the neo4j backend"))
		}
		if c.Graph.Database == "" {
			errs = append(errs, agerr.Errorf(agerr.CodeConfigValidateInvalidValue,
				"config: graph.database must not be empty for the neo4j backend"))
		}
	}

	return errs
}

func (c *Config) validateJournal() []error {
	var errs []error

	if c.Journal.Path == "" {
		errs = append(errs, agerr.Errorf(agerr.CodeConfigValidateInvalidValue,
			"config: journal.path must not be empty"))
	}

	return errs
}

func (c *Config) validateLogging() []error {
	var errs []error

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		errs = append(errs, agerr.Errorf(agerr.CodeConfigValidateInvalidValue,
			"config: logging.level must be one of [debug, info, warn, error], got %q",
			c.Logging.Level,
		))
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[c.Logging.Format] {
		errs = append(errs, agerr.Errorf(agerr.CodeConfigValidateInvalidValue,
			"config: logging.format must be one of [text, json], got %q",
			c.Logging.Format,
		))
	}

	return errs
}
