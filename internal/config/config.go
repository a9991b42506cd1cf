// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

// Package config loads the YAML configuration of the analysis tools.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/OpenPSG/mea/internal/logging"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Input selects the recording to analyse.
type Input struct {
	Path          string   `yaml:"path" validate:"required"`
	DigitalPrefix string   `yaml:"digital_prefix" default:"Digital"`
	Channels      []string `yaml:"channels"` // empty selects every electrode
}

// Detection configures threshold estimation and spike detection.
type Detection struct {
	Multiplier   float64 `yaml:"multiplier" default:"6" validate:"gt=0"`
	PeakDuration float64 `yaml:"peak_duration" default:"0.002" validate:"gt=0"`     // seconds
	Refractory   float64 `yaml:"refractory_time" default:"0.002" validate:"gte=0"` // seconds
}

// PSTH configures stimulus-locked histograms.
type PSTH struct {
	Enabled bool    `yaml:"enabled" default:"true"`
	Digital int     `yaml:"digital" validate:"gte=0"`             // digital channel index
	BinSize float64 `yaml:"bin_size" default:"0.01" validate:"gt=0"` // seconds
}

// Bursts configures LogISI burst detection.
type Bursts struct {
	Enabled         bool    `yaml:"enabled" default:"true"`
	Cutoff          float64 `yaml:"cutoff" default:"0.1" validate:"gt=0"` // seconds
	SamplesFraction float64 `yaml:"samples_fraction" default:"0.05" validate:"gt=0,lte=1"`
	VoidThreshold   float64 `yaml:"void_threshold" default:"0.7" validate:"gt=0,lte=1"`
}

// Metrics configures the Prometheus endpoint.
type Metrics struct {
	Addr string `yaml:"addr"` // empty disables the endpoint
}

// Config collects every configuration leaf.
type Config struct {
	Log       logging.Config `yaml:"log"`
	Input     Input          `yaml:"input"`
	Workers   int            `yaml:"workers" default:"4" validate:"gte=1"`
	Detection Detection      `yaml:"detection"`
	PSTH      PSTH           `yaml:"psth"`
	Bursts    Bursts         `yaml:"bursts"`
	Metrics   Metrics        `yaml:"metrics"`
}

var validate = validator.New()

// Load reads a YAML file, fills unset fields with defaults and validates the result.
func Load(path string) (*Config, error) {
	c, err := decode(path)
	if err != nil {
		return nil, err
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// LoadWithEnv loads config from YAML and overrides it with environment
// variables, reading a .env file in the working directory if present.
func LoadWithEnv(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	c, err := decode(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("MEA_INPUT"); v != "" {
		c.Input.Path = v
	}
	if v := os.Getenv("MEA_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("MEA_METRICS_ADDR"); v != "" {
		c.Metrics.Addr = v
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func decode(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Defaults first so explicit zero values in the file survive.
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("set defaults: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &c, nil
}

// Validate checks the configuration against its struct tags.
func (c *Config) Validate() error {
	var verrs validator.ValidationErrors
	if err := validate.Struct(c); errors.As(err, &verrs) {
		fe := verrs[0]
		return fmt.Errorf("%s failed %s=%s", fe.Namespace(), fe.Tag(), fe.Param())
	} else if err != nil {
		return err
	}
	return nil
}
