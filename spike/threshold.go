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
	"math"

	"github.com/OpenPSG/mea/numeric"
)

const (
	// NoiseWindow is the duration of each window used to estimate the noise floor.
	NoiseWindow = 0.2 // seconds
	// NoiseCeiling caps the noise estimate (volts).
	NoiseCeiling = 100e-6
)

// ComputeThreshold estimates a detection threshold from the quietest 200 ms
// window of the signal: multiplier times the smallest per-window sample
// standard deviation, capped at 100 µV before scaling.
func ComputeThreshold(signal []float32, samplingFrequency, multiplier float64) (float64, error) {
	windowLen := max(int(math.Round(NoiseWindow*samplingFrequency)), 2)
	numWindows := len(signal) / windowLen
	if numWindows == 0 {
		return 0, &InsufficientSamplesError{Required: windowLen, Available: len(signal)}
	}

	noise := NoiseCeiling
	window := make([]float64, windowLen)
	for w := 0; w < numWindows; w++ {
		for i, v := range signal[w*windowLen : (w+1)*windowLen] {
			window[i] = float64(v)
		}
		if sd := numeric.StdDev(window); sd < noise {
			noise = sd
		}
	}

	return multiplier * noise, nil
}
