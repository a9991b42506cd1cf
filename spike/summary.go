// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package spike

import (
	"github.com/montanaflynn/stats"
)

// BurstStats summarizes the bursts found in one spike train.
type BurstStats struct {
	Count          int     // Number of bursts
	MeanDuration   float64 // Mean burst duration (seconds)
	MedianDuration float64 // Median burst duration (seconds)
	MeanSpikes     float64 // Mean number of spikes per burst
	MeanIBI        float64 // Mean inter-burst interval (seconds), excluding the first burst
	Rate           float64 // Bursts per second over the span of the train
}

// Summarize computes burst statistics for bursts found in times.
func Summarize(bursts []Burst, times []int64, samplingFrequency float64) BurstStats {
	s := BurstStats{Count: len(bursts)}
	if len(bursts) == 0 || len(times) == 0 {
		return s
	}

	durations := make(stats.Float64Data, len(bursts))
	spikes := make(stats.Float64Data, len(bursts))
	var ibis stats.Float64Data
	for i, b := range bursts {
		durations[i] = float64(times[b.End]-times[b.Start]) / samplingFrequency
		spikes[i] = float64(b.Spikes())
		if i > 0 {
			ibis = append(ibis, float64(b.InterBurstInterval)/samplingFrequency)
		}
	}

	// Errors are only returned for empty input, which is excluded above.
	s.MeanDuration, _ = durations.Mean()
	s.MedianDuration, _ = durations.Median()
	s.MeanSpikes, _ = spikes.Mean()
	if len(ibis) > 0 {
		s.MeanIBI, _ = ibis.Mean()
	}
	if span := float64(times[len(times)-1]-times[0]) / samplingFrequency; span > 0 {
		s.Rate = float64(len(bursts)) / span
	}
	return s
}
