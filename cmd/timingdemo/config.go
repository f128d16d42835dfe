// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-yaml"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// demoConfig configures the demo server. All fields are optional.
type demoConfig struct {
	// Host and Port form the TCP listen address.
	Host string `yaml:"host"`
	Port string `yaml:"port"`

	// Precision is the number of digits rendered after the decimal point of
	// header durations. Negative means full precision.
	Precision int `yaml:"precision"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

func defaultConfig() demoConfig {
	cfg := demoConfig{
		Host:      "localhost",
		Port:      "8282",
		Precision: -1,
	}
	cfg.Log.Level = "info"

	return cfg
}

// loadConfig reads the YAML configuration file if one exists at path.
func loadConfig(path string) (demoConfig, error) {
	cfg := defaultConfig()

	if path == "" {
		return cfg, nil
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		log.Info().
			Str("path", path).
			Msg("No YAML configuration file found, skipping")

		return cfg, nil
	}

	yamlCfg, err := os.ReadFile(path) // #nosec G304 -- Only loading a config file
	if err != nil {
		return cfg, fmt.Errorf("failed to read configuration file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(yamlCfg, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse YAML from %s: %w", path, err)
	}

	log.Info().
		Str("path", path).
		Msg("Successfully loaded configuration")

	return cfg, nil
}

// setupLogging applies the configured level and picks a human-readable
// console format when writing to a terminal.
func (cfg demoConfig) setupLogging() {
	switch cfg.Log.Level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
	}

	log.Logger = log.Output(consoleWriter(os.Stderr))
}

// consoleWriter returns a colorized console writer when w is a terminal, and
// plain output otherwise.
func consoleWriter(w *os.File) io.Writer {
	return zerolog.ConsoleWriter{
		Out:     w,
		NoColor: !isatty.IsTerminal(w.Fd()),
	}
}
