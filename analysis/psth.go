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
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/OpenPSG/mea/phase"
	"github.com/OpenPSG/mea/spike"
)

// ErrBinSize is returned when a PSTH bin is shorter than one sample.
var ErrBinSize = errors.New("bin size shorter than one sample")

// PSTHResult holds the stimulus-locked histograms of a recording.
type PSTHResult struct {
	Intervals []spike.Interval
	BinSize   int // samples
	Channels  map[string][]spike.Bins
	Simple    []spike.Bins // summed over channels
}

// PSTH bins the stored spike trains of every channel around the stimulus
// intervals of digital channel index, using bins of binSize seconds.
func (p *Pipeline) PSTH(ctx context.Context, rec phase.Recording, index int, binSize float64) (*PSTHResult, error) {
	start := time.Now()

	samples := int(math.Round(binSize * rec.SamplingFrequency()))
	if samples < 1 {
		p.metrics.RecordError(StagePSTH)
		return nil, fmt.Errorf("%gs at %g Hz: %w", binSize, rec.SamplingFrequency(), ErrBinSize)
	}

	digital, err := rec.Digital(index, phase.All)
	if err != nil {
		p.metrics.RecordError(StagePSTH)
		return nil, fmt.Errorf("digital channel %d: %w", index, err)
	}
	intervals := spike.StimulusIntervals(digital)

	labels := rec.Labels()
	bins := make([][]spike.Bins, len(labels))
	err = p.forEachChannel(ctx, labels, func(i int, label string) error {
		train, err := rec.PeakTrain(label, phase.All)
		if err != nil {
			return fmt.Errorf("channel %s: %w", label, err)
		}
		bins[i], err = spike.ChannelPSTH(train, intervals, samples, rec.DataLen())
		if err != nil {
			return fmt.Errorf("channel %s: %w", label, err)
		}
		return nil
	})
	if err != nil {
		p.metrics.RecordError(StagePSTH)
		return nil, err
	}

	res := &PSTHResult{
		Intervals: intervals,
		BinSize:   samples,
		Channels:  make(map[string][]spike.Bins, len(labels)),
	}
	for i, label := range labels {
		res.Channels[label] = bins[i]
	}
	res.Simple = spike.SimplePSTH(res.Channels)

	p.logger.Debug().
		Int("stimuli", len(intervals)).
		Int("bin_samples", samples).
		Msg("Computed PSTH")
	p.metrics.RecordDuration(StagePSTH, time.Since(start))
	return res, nil
}
