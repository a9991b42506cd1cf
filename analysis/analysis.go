// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

// Package analysis runs the spike and burst pipeline over every channel of a
// recording in parallel.
package analysis

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Pipeline stage names, used as metric labels.
const (
	StageDetect = "detect"
	StagePSTH   = "psth"
	StageBursts = "bursts"
)

// DefaultWorkers bounds the number of channels processed concurrently.
const DefaultWorkers = 4

// Metrics receives pipeline measurements.
type Metrics interface {
	RecordSpikes(channel string, n int)
	RecordBursts(channel string, n int)
	RecordError(stage string)
	RecordDuration(stage string, d time.Duration)
}

type nopMetrics struct{}

func (nopMetrics) RecordSpikes(string, int) {}
func (nopMetrics) RecordBursts(string, int) {}
func (nopMetrics) RecordError(string) {}
func (nopMetrics) RecordDuration(string, time.Duration) {}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger. The default discards output.
func WithLogger(logger zerolog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m Metrics) Option {
	return func(p *Pipeline) {
		if m != nil {
			p.metrics = m
		}
	}
}

// WithWorkers sets the number of channels processed concurrently.
func WithWorkers(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.workers = n
		}
	}
}

// Pipeline processes the channels of a recording.
type Pipeline struct {
	logger  zerolog.Logger
	metrics Metrics
	workers int
}

// New creates a pipeline.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		logger:  zerolog.Nop(),
		metrics: nopMetrics{},
		workers: DefaultWorkers,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// forEachChannel calls fn for every label, running at most p.workers calls
// at once. Each call owns slot i of whatever results the caller collects.
// Cancellation is checked before each channel starts.
func (p *Pipeline) forEachChannel(ctx context.Context, labels []string, fn func(i int, label string) error) error {
	var (
		wg   sync.WaitGroup
		sem  = make(chan struct{}, p.workers)
		errs = make([]error, len(labels))
	)

	var ctxErr error
	for i, label := range labels {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
		}
		if ctxErr = ctx.Err(); ctxErr != nil {
			break
		}

		wg.Add(1)
		go func() {
			defer func() {
				<-sem
				wg.Done()
			}()
			errs[i] = fn(i, label)
		}()
	}
	wg.Wait()

	if ctxErr != nil {
		return ctxErr
	}
	return errors.Join(errs...)
}
