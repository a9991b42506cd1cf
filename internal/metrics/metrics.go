// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

// Package metrics exports analysis counters and timings to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder implements analysis.Metrics using Prometheus.
type Recorder struct {
	spikes   *prometheus.CounterVec
	bursts   *prometheus.CounterVec
	errors   *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// New creates a recorder registered with reg.
func New(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		spikes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mea_spikes_detected_total",
				Help: "Total number of spikes detected per channel",
			},
			[]string{"channel"},
		),
		bursts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mea_bursts_detected_total",
				Help: "Total number of bursts detected per channel",
			},
			[]string{"channel"},
		),
		errors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mea_channel_errors_total",
				Help: "Total number of per-channel analysis failures",
			},
			[]string{"stage"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mea_stage_duration_seconds",
				Help:    "Duration of analysis stages in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"stage"},
		),
	}
}

// RecordSpikes adds n detected spikes for a channel.
func (r *Recorder) RecordSpikes(channel string, n int) {
	r.spikes.WithLabelValues(channel).Add(float64(n))
}

// RecordBursts adds n detected bursts for a channel.
func (r *Recorder) RecordBursts(channel string, n int) {
	r.bursts.WithLabelValues(channel).Add(float64(n))
}

// RecordError counts a failure in an analysis stage.
func (r *Recorder) RecordError(stage string) {
	r.errors.WithLabelValues(stage).Inc()
}

// RecordDuration observes how long an analysis stage took.
func (r *Recorder) RecordDuration(stage string, d time.Duration) {
	r.duration.WithLabelValues(stage).Observe(d.Seconds())
}

// Serve exposes the gatherer's metrics on /metrics at addr.
func Serve(addr string, g prometheus.Gatherer) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
