// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	cfg, err := Load(filepath.Join("testdata", "config.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "stderr", cfg.Log.Output)
	assert.Equal(t, "recordings/culture7.edf", cfg.Input.Path)
	assert.Equal(t, "Digital", cfg.Input.DigitalPrefix)
	assert.Equal(t, []string{"E12", "E13"}, cfg.Input.Channels)
	assert.Equal(t, 8, cfg.Workers)

	assert.Equal(t, 8.0, cfg.Detection.Multiplier)
	assert.Equal(t, 0.0015, cfg.Detection.PeakDuration)
	assert.Equal(t, 0.002, cfg.Detection.Refractory)

	assert.False(t, cfg.PSTH.Enabled)
	assert.Equal(t, 1, cfg.PSTH.Digital)
	assert.Equal(t, 0.01, cfg.PSTH.BinSize)

	assert.True(t, cfg.Bursts.Enabled)
	assert.Equal(t, 0.05, cfg.Bursts.Cutoff)
	assert.Equal(t, 0.05, cfg.Bursts.SamplesFraction)
	assert.Equal(t, 0.7, cfg.Bursts.VoidThreshold)

	assert.Equal(t, ":9109", cfg.Metrics.Addr)
}

func TestLoadInvalid(t *testing.T) {
	_, err := Load(filepath.Join("testdata", "invalid.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Multiplier")
}

func TestLoadMissingInput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.yaml")
	require.NoError(t, os.WriteFile(path, []byte("workers: 2\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Path")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadWithEnv(t *testing.T) {
	t.Setenv("MEA_INPUT", "override.edf")
	t.Setenv("MEA_LOG_LEVEL", "warn")
	t.Setenv("MEA_METRICS_ADDR", "")

	cfg, err := LoadWithEnv(filepath.Join("testdata", "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "override.edf", cfg.Input.Path)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, ":9109", cfg.Metrics.Addr)

	t.Setenv("MEA_LOG_LEVEL", "loud")
	_, err = LoadWithEnv(filepath.Join("testdata", "config.yaml"))
	assert.Error(t, err)
}
