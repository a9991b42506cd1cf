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

// DetectParams configures threshold estimation and spike detection.
type DetectParams struct {
	Multiplier     float64 // Noise multiplier
	PeakDuration   float64 // Longest spike waveform (seconds)
	RefractoryTime float64 // Dead time after a spike (seconds)
}

// DetectAll estimates a threshold and detects spikes on every channel of
// rec. The trains are stored back into rec, replacing any previous ones, and
// returned by label. Nothing is stored unless every channel succeeds.
func (p *Pipeline) DetectAll(ctx context.Context, rec phase.Recording, params DetectParams) (map[string]spike.PeakTrain, error) {
	start := time.Now()
	labels := rec.Labels()
	fs := rec.SamplingFrequency()

	trains := make([]spike.PeakTrain, len(labels))
	err := p.forEachChannel(ctx, labels, func(i int, label string) error {
		data, err := rec.RawData(label, phase.All)
		if err != nil {
			return fmt.Errorf("channel %s: %w", label, err)
		}

		threshold, err := spike.ComputeThreshold(data, fs, params.Multiplier)
		if err != nil {
			return fmt.Errorf("channel %s: could not compute threshold: %w", label, err)
		}

		train, err := spike.DetectPeaks(data, fs, threshold, params.PeakDuration, params.RefractoryTime)
		if err != nil {
			return fmt.Errorf("channel %s: could not detect spikes: %w", label, err)
		}
		trains[i] = train

		p.logger.Debug().
			Str("channel", label).
			Float64("threshold", threshold).
			Int("spikes", train.Len()).
			Msg("Detected spikes")
		return nil
	})
	if err != nil {
		p.metrics.RecordError(StageDetect)
		return nil, err
	}

	out := make(map[string]spike.PeakTrain, len(labels))
	for i, label := range labels {
		if err := rec.SetPeakTrain(label, phase.All, trains[i]); err != nil {
			p.metrics.RecordError(StageDetect)
			return nil, fmt.Errorf("channel %s: could not store spikes: %w", label, err)
		}
		out[label] = trains[i]
		p.metrics.RecordSpikes(label, trains[i].Len())
	}

	p.metrics.RecordDuration(StageDetect, time.Since(start))
	return out, nil
}
