// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/OpenPSG/mea/phase"
	"github.com/OpenPSG/mea/spike"
)

// BurstParams configures LogISI burst detection. Zero fields use the
// defaults of the spike package.
type BurstParams struct {
	Cutoff          float64 // Maximum intra-burst ISI (seconds)
	SamplesFraction float64
	VoidThreshold   float64
}

// ChannelBursts holds the bursts of one channel.
type ChannelBursts struct {
	Bursts []spike.Burst
	Stats  spike.BurstStats
}

// Bursts runs LogISI burst detection on the stored spike train of every
// channel. Channels on which the method fails, for instance because they
// spike too rarely, are logged and left out of the result.
func (p *Pipeline) Bursts(ctx context.Context, rec phase.Recording, params BurstParams) (map[string]ChannelBursts, error) {
	start := time.Now()
	fs := rec.SamplingFrequency()

	cutoff := params.Cutoff
	if cutoff <= 0 {
		cutoff = spike.DefaultBurstCutoff
	}
	var opts []spike.Option
	if params.SamplesFraction > 0 {
		opts = append(opts, spike.WithSamplesFraction(params.SamplesFraction))
	}
	if params.VoidThreshold > 0 {
		opts = append(opts, spike.WithVoidThreshold(params.VoidThreshold))
	}

	labels := rec.Labels()
	results := make([]*ChannelBursts, len(labels))
	err := p.forEachChannel(ctx, labels, func(i int, label string) error {
		train, err := rec.PeakTrain(label, phase.All)
		if err != nil {
			return fmt.Errorf("channel %s: %w", label, err)
		}

		bursts, err := spike.LogISI(train.Times, fs, cutoff, opts...)
		if err != nil {
			p.logger.Warn().Err(err).Str("channel", label).Int("spikes", train.Len()).Msg("Skipping burst detection")
			p.metrics.RecordError(StageBursts)
			return nil
		}

		results[i] = &ChannelBursts{
			Bursts: bursts,
			Stats:  spike.Summarize(bursts, train.Times, fs),
		}
		p.logger.Debug().Str("channel", label).Int("bursts", len(bursts)).Msg("Detected bursts")
		return nil
	})
	if err != nil {
		p.metrics.RecordError(StageBursts)
		return nil, err
	}

	out := make(map[string]ChannelBursts, len(labels))
	for i, label := range labels {
		if results[i] == nil {
			continue
		}
		out[label] = *results[i]
		p.metrics.RecordBursts(label, len(results[i].Bursts))
	}

	p.metrics.RecordDuration(StageBursts, time.Since(start))
	return out, nil
}
