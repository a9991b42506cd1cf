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
	"testing"

	"github.com/OpenPSG/mea/numeric"
	"github.com/OpenPSG/mea/spike"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeThresholdInsufficientSamples(t *testing.T) {
	_, err := spike.ComputeThreshold(make([]float32, 199), 1000, 8)

	var insufficient *spike.InsufficientSamplesError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, 200, insufficient.Required)
	assert.Equal(t, 199, insufficient.Available)
}

func TestComputeThresholdBoundedByWindowNoise(t *testing.T) {
	const (
		fs         = 10000.0
		multiplier = 5.0
		windowLen  = 2000
	)

	signal := noise(5*windowLen+123, 40e-6, 1)
	// Louder second window, as if it held spikes.
	for i := windowLen; i < 2*windowLen; i++ {
		signal[i] *= 2
	}

	threshold, err := spike.ComputeThreshold(signal, fs, multiplier)
	require.NoError(t, err)

	lo, hi := 1.0, 0.0
	for w := 0; w < len(signal)/windowLen; w++ {
		sd := numeric.StdDev(numeric.ToFloat64(signal[w*windowLen : (w+1)*windowLen]))
		lo, hi = min(lo, sd), max(hi, sd)
	}
	assert.InDelta(t, multiplier*lo, threshold, 1e-12)
	assert.LessOrEqual(t, threshold, multiplier*hi)
}

func TestComputeThresholdCeiling(t *testing.T) {
	signal := sineWave(10, 1, 1000)

	threshold, err := spike.ComputeThreshold(signal, 1000, 8)
	require.NoError(t, err)
	assert.InDelta(t, 8*spike.NoiseCeiling, threshold, 1e-15)
}
