// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

// Package logging builds the zerolog loggers used by the command line tools.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Config selects the level, format and destination of log output.
type Config struct {
	Level  string `yaml:"level" default:"info" validate:"oneof=trace debug info warn error"`
	Format string `yaml:"format" default:"console" validate:"oneof=json console"` // json or console
	Output string `yaml:"output" default:"stderr"`                                 // stdout, stderr, or file path
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New creates a logger from cfg. An unknown level falls back to info.
// The returned closer releases the log file when Output is a path and is a
// no-op for stdout and stderr.
func New(cfg Config) (zerolog.Logger, io.Closer, error) {
	switch cfg.Output {
	case "", "stderr":
		return NewWithWriter(os.Stderr, cfg.Level, cfg.Format), nopCloser{}, nil
	case "stdout":
		return NewWithWriter(os.Stdout, cfg.Level, cfg.Format), nopCloser{}, nil
	}

	f, err := os.OpenFile(cfg.Output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("could not open log file: %w", err)
	}
	return NewWithWriter(f, cfg.Level, cfg.Format), f, nil
}

// NewWithWriter creates a logger writing to w.
func NewWithWriter(w io.Writer, level, format string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	if format == "console" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).With().Timestamp().Logger().Level(lvl)
}
