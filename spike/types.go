// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

// Package spike extracts spike trains from extracellular voltage traces and
// organizes them into stimulus-locked histograms and bursts.
package spike

// PeakTrain is a detected spike train. Times are ascending sample indices and
// Amplitudes holds the signed sample value reported at each time.
type PeakTrain struct {
	Times      []int64
	Amplitudes []float32
}

// Len returns the number of spikes in the train.
func (p PeakTrain) Len() int { return len(p.Times) }

// Interval is a stimulus-active span of samples, [Start, End).
type Interval struct {
	Start int
	End   int
}

// Len returns the number of samples covered by the interval.
func (iv Interval) Len() int { return iv.End - iv.Start }

// Bins holds the spike counts around one stimulus interval.
type Bins struct {
	Pre  []int // Bins preceding the stimulus onset, oldest first
	Stim []int // Bins covering the stimulus
	Post []int // Bins following the stimulus offset
}

// Total returns the number of spikes counted across all three windows.
func (b Bins) Total() int {
	var n int
	for _, w := range [][]int{b.Pre, b.Stim, b.Post} {
		for _, c := range w {
			n += c
		}
	}
	return n
}

// Burst describes a run of closely spaced spikes. Start and End index into
// the spike train; InterBurstInterval is the number of samples between the
// end of the previous burst and the start of this one (0 for the first).
type Burst struct {
	Start              int
	End                int
	InterBurstInterval int64
}

// Spikes returns the number of spikes in the burst.
func (b Burst) Spikes() int { return b.End - b.Start + 1 }
