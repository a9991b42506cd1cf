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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBurstParams(t *testing.T) {
	minIBI, isiLow := burstParams(2, 0.1)
	assert.Zero(t, minIBI)
	assert.Equal(t, 0.1, isiLow)

	minIBI, isiLow = burstParams(0.3, 0.1)
	assert.Equal(t, 0.3, minIBI)
	assert.Equal(t, 0.1, isiLow)

	minIBI, isiLow = burstParams(0.02, 0.1)
	assert.Zero(t, minIBI)
	assert.Equal(t, 0.02, isiLow)
}

func TestBurstParamsMonotonicInCutoff(t *testing.T) {
	for _, threshold := range []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 1.5, 10} {
		prev := -1.0
		for cutoff := 0.0; cutoff <= 2; cutoff += 0.01 {
			_, isiLow := burstParams(threshold, cutoff)
			assert.GreaterOrEqual(t, isiLow, prev, "threshold %v cutoff %v", threshold, cutoff)
			prev = isiLow
		}
	}
}

func TestFindPeaks(t *testing.T) {
	y := []float64{0, 1, 3, 1, 0, 0, 2, 2, 0, 0, 0, 0, 5}
	assert.Equal(t, []int{2, 6, 12}, findPeaks(y, 2, 0))

	assert.Empty(t, findPeaks([]float64{0, 0, 0}, 2, 0))
}
