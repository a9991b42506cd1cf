// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

// Command measpikes detects spikes and bursts in an EDF recording of a
// multi-electrode array.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/OpenPSG/mea/analysis"
	"github.com/OpenPSG/mea/internal/config"
	"github.com/OpenPSG/mea/internal/logging"
	"github.com/OpenPSG/mea/internal/metrics"
	"github.com/OpenPSG/mea/phase"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

func main() {
	configPath := flag.String("config", "config.yaml", "config file path")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	logger, logCloser, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, cfg, logger)
	stop()
	if err != nil {
		logger.Error().Err(err).Msg("Analysis failed")
	}
	_ = logCloser.Close()
	if err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	reg := prometheus.NewRegistry()
	recorder := metrics.New(reg)

	if cfg.Metrics.Addr != "" {
		srv := metrics.Serve(cfg.Metrics.Addr, reg)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		logger.Info().Str("addr", cfg.Metrics.Addr).Msg("Serving metrics")
	}

	f, err := os.Open(cfg.Input.Path)
	if err != nil {
		return fmt.Errorf("could not open recording: %w", err)
	}
	defer f.Close()

	opts := []phase.LoadOption{phase.WithDigitalPrefix(cfg.Input.DigitalPrefix)}
	if len(cfg.Input.Channels) > 0 {
		opts = append(opts, phase.WithChannels(cfg.Input.Channels...))
	}
	rec, err := phase.FromEDF(f, opts...)
	if err != nil {
		return fmt.Errorf("could not load recording: %w", err)
	}

	logger.Info().
		Str("path", cfg.Input.Path).
		Int("channels", len(rec.Labels())).
		Int("digitals", rec.NDigitals()).
		Float64("sampling_frequency", rec.SamplingFrequency()).
		Int("samples", rec.DataLen()).
		Msg("Loaded recording")

	pipeline := analysis.New(
		analysis.WithLogger(logger),
		analysis.WithMetrics(recorder),
		analysis.WithWorkers(cfg.Workers),
	)

	trains, err := pipeline.DetectAll(ctx, rec, analysis.DetectParams{
		Multiplier:     cfg.Detection.Multiplier,
		PeakDuration:   cfg.Detection.PeakDuration,
		RefractoryTime: cfg.Detection.Refractory,
	})
	if err != nil {
		return fmt.Errorf("spike detection: %w", err)
	}
	for _, label := range rec.Labels() {
		logger.Info().Str("channel", label).Int("spikes", trains[label].Len()).Msg("Spikes")
	}

	if cfg.PSTH.Enabled {
		if rec.NDigitals() <= cfg.PSTH.Digital {
			logger.Warn().Int("digital", cfg.PSTH.Digital).Msg("No digital channel, skipping PSTH")
		} else {
			res, err := pipeline.PSTH(ctx, rec, cfg.PSTH.Digital, cfg.PSTH.BinSize)
			if err != nil {
				return fmt.Errorf("psth: %w", err)
			}
			for i, b := range res.Simple {
				logger.Info().
					Int("stimulus", i).
					Ints("pre", b.Pre).
					Ints("stim", b.Stim).
					Ints("post", b.Post).
					Msg("PSTH")
			}
		}
	}

	if cfg.Bursts.Enabled {
		res, err := pipeline.Bursts(ctx, rec, analysis.BurstParams{
			Cutoff:          cfg.Bursts.Cutoff,
			SamplesFraction: cfg.Bursts.SamplesFraction,
			VoidThreshold:   cfg.Bursts.VoidThreshold,
		})
		if err != nil {
			return fmt.Errorf("burst detection: %w", err)
		}
		for _, label := range rec.Labels() {
			cb, ok := res[label]
			if !ok {
				continue
			}
			logger.Info().
				Str("channel", label).
				Int("bursts", cb.Stats.Count).
				Float64("mean_duration", cb.Stats.MeanDuration).
				Float64("median_duration", cb.Stats.MedianDuration).
				Float64("mean_spikes", cb.Stats.MeanSpikes).
				Float64("mean_ibi", cb.Stats.MeanIBI).
				Float64("rate", cb.Stats.Rate).
				Msg("Bursts")
		}
	}

	return nil
}
