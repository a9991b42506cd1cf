// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package spike_test

import (
	"math"
	"math/rand/v2"
)

// sineWave returns seconds of a unit-amplitude sine at freq Hz.
func sineWave(freq, seconds, samplingFrequency float64) []float32 {
	data := make([]float32, int(seconds*samplingFrequency))
	for i := range data {
		data[i] = float32(math.Sin(2 * math.Pi * freq * float64(i) / samplingFrequency))
	}
	return data
}

// noise returns n samples of uniform noise in [-amplitude, amplitude).
func noise(n int, amplitude float64, seed uint64) []float32 {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	data := make([]float32, n)
	for i := range data {
		data[i] = float32((rng.Float64()*2 - 1) * amplitude)
	}
	return data
}

// burstTrain returns spike times (samples at 1 kHz) of bursts of spikes
// separated by intra ms, with gap ms between bursts.
func burstTrain(bursts, spikesPerBurst int, intra, gap int64) []int64 {
	var (
		times []int64
		t     int64
	)
	for b := 0; b < bursts; b++ {
		for s := 0; s < spikesPerBurst; s++ {
			times = append(times, t)
			if s < spikesPerBurst-1 {
				t += intra
			}
		}
		t += gap
	}
	return times
}
