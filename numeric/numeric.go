// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

// Package numeric holds the small numerical helpers shared by the spike
// detection and burst classification code.
package numeric

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Mean returns the arithmetic mean of x, or NaN if x is empty.
func Mean(x []float64) float64 {
	if len(x) == 0 {
		return math.NaN()
	}
	return stat.Mean(x, nil)
}

// StdDev returns the sample (n-1) standard deviation of x.
// It returns NaN for fewer than two samples.
func StdDev(x []float64) float64 {
	if len(x) < 2 {
		return math.NaN()
	}
	return stat.StdDev(x, nil)
}

// LogSpace returns n points spaced evenly on a log scale from 10^start to
// 10^stop inclusive.
func LogSpace(start, stop float64, n int) []float64 {
	switch {
	case n <= 0:
		return nil
	case n == 1:
		return []float64{math.Pow(10, start)}
	}
	return floats.LogSpan(make([]float64, n), math.Pow(10, start), math.Pow(10, stop))
}

// Tricube is the (1-|d|^3)^3 kernel, zero outside (-1, 1).
func Tricube(d float64) float64 {
	d = math.Abs(d)
	if d >= 1 {
		return 0
	}
	t := 1 - d*d*d
	return t * t * t
}

// Lowess smooths y, sampled at x = 0, 1, ..., len(y)-1, with a locally
// weighted linear regression. Each point is fitted against the neighbours
// within ceil(frac*(N-1)) indices (at least one), weighted by a tricube
// kernel whose bandwidth reaches one index past the outermost neighbour.
func Lowess(y []float64, frac float64) []float64 {
	n := len(y)
	out := make([]float64, n)
	if n < 2 {
		copy(out, y)
		return out
	}

	half := int(math.Ceil(frac * float64(n-1)))
	if half < 1 {
		half = 1
	}
	bandwidth := float64(half + 1)

	xs := make([]float64, 0, 2*half+1)
	ys := make([]float64, 0, 2*half+1)
	ws := make([]float64, 0, 2*half+1)
	for i := range y {
		xs, ys, ws = xs[:0], ys[:0], ws[:0]
		for j := max(0, i-half); j <= min(n-1, i+half); j++ {
			xs = append(xs, float64(j))
			ys = append(ys, y[j])
			ws = append(ws, Tricube(float64(j-i)/bandwidth))
		}
		alpha, beta := stat.LinearRegression(xs, ys, ws, false)
		out[i] = alpha + beta*float64(i)
	}
	return out
}

// Histogram counts values into the bins delimited by the ascending edges.
// Bins are half-open [edges[k], edges[k+1]) except the last, which also
// includes its right edge. Values outside the edges (and NaNs) are ignored.
func Histogram(values, edges []float64) []int {
	if len(edges) < 2 {
		return nil
	}
	counts := make([]int, len(edges)-1)
	lo, hi := edges[0], edges[len(edges)-1]
	for _, v := range values {
		if math.IsNaN(v) || v < lo || v > hi {
			continue
		}
		k := sort.Search(len(edges), func(k int) bool { return edges[k] > v }) - 1
		if k >= len(counts) {
			k = len(counts) - 1
		}
		counts[k]++
	}
	return counts
}

// Diff returns the first difference x[i+1]-x[i].
func Diff(x []int64) []int64 {
	if len(x) < 2 {
		return nil
	}
	d := make([]int64, len(x)-1)
	for i := range d {
		d[i] = x[i+1] - x[i]
	}
	return d
}

// ToFloat64 widens a float32 slice.
func ToFloat64(x []float32) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = float64(v)
	}
	return out
}
