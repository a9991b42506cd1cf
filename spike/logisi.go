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
	// DefaultSamplesFraction is the LOWESS span as a fraction of the histogram bins.
	DefaultSamplesFraction = 0.05
	// DefaultVoidThreshold is the void parameter a minimum must exceed to split two peaks.
	DefaultVoidThreshold = 0.7
	// DefaultIntraCutoff bounds the ISI (ms) of the intra-burst peak.
	DefaultIntraCutoff = 100.0
	// DefaultPeakWindow is the half-window, in bins, of the histogram peak search.
	DefaultPeakWindow = 2
	// DefaultBurstCutoff is the maximum intra-burst ISI (seconds) used to build bursts.
	DefaultBurstCutoff = 0.1

	binsPerDecade = 10
)

// Option tunes the LogISI analysis.
type Option func(*logISIConfig)

type logISIConfig struct {
	samplesFraction float64
	voidThreshold   float64
	intraCutoff     float64
	peakWindow      int
}

// WithSamplesFraction sets the LOWESS span as a fraction of the histogram length.
func WithSamplesFraction(f float64) Option {
	return func(c *logISIConfig) {
		c.samplesFraction = f
	}
}

// WithVoidThreshold sets the void parameter a minimum must exceed.
func WithVoidThreshold(v float64) Option {
	return func(c *logISIConfig) {
		c.voidThreshold = v
	}
}

// WithIntraCutoff sets the largest ISI (ms) accepted for the intra-burst peak.
func WithIntraCutoff(ms float64) Option {
	return func(c *logISIConfig) {
		c.intraCutoff = ms
	}
}

// WithPeakWindow sets the half-window, in bins, of the histogram peak search.
func WithPeakWindow(bins int) Option {
	return func(c *logISIConfig) {
		c.peakWindow = bins
	}
}

// ISIHistogram is the log-scale ISI density a LogISI threshold is read from.
type ISIHistogram struct {
	Edges     []float64 // Bin edges (ms), log spaced from 1 ms
	Density   []float64 // Smoothed, non-negative density per bin
	Peaks     []int     // Bin indices of the density peaks
	IntraPeak int       // Bin index of the intra-burst peak
	Minimum   int       // Bin index of the minimum separating the intra-burst peak
	Void      float64   // Void parameter of that minimum
	Threshold float64   // ISI threshold (seconds), the left edge of Minimum
}

// AnalyzeISI builds the smoothed log-ISI density of a spike train and finds
// the ISI threshold separating intra-burst from inter-burst intervals.
func AnalyzeISI(times []int64, samplingFrequency float64, opts ...Option) (*ISIHistogram, error) {
	cfg := logISIConfig{
		samplesFraction: DefaultSamplesFraction,
		voidThreshold:   DefaultVoidThreshold,
		intraCutoff:     DefaultIntraCutoff,
		peakWindow:      DefaultPeakWindow,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	if len(times) <= 3 {
		return nil, ErrTooFewSpikes
	}

	diffs := numeric.Diff(times)
	isi := make([]float64, len(diffs))
	maxISI := 0.0
	for i, d := range diffs {
		isi[i] = float64(d) * 1000 / samplingFrequency
		maxISI = math.Max(maxISI, isi[i])
	}

	// Ten bins per decade, from 1 ms up to the longest interval.
	exponent := math.Log10(maxISI)
	if exponent <= 0 {
		exponent = 1
	}
	edges := numeric.LogSpace(0, exponent, binsPerDecade*int(math.Ceil(exponent)))
	// Keep the longest interval inside the closed last bin despite rounding.
	edges[len(edges)-1] = math.Max(edges[len(edges)-1], maxISI)

	counts := numeric.Histogram(isi, edges)
	density := make([]float64, len(counts))
	for i, c := range counts {
		density[i] = float64(c) / float64(len(isi))
	}
	density = numeric.Lowess(density, cfg.samplesFraction)
	for i := range density {
		density[i] = math.Max(density[i], 0)
	}

	h := &ISIHistogram{
		Edges:     edges,
		Density:   density,
		Peaks:     findPeaks(density, cfg.peakWindow, 0),
		IntraPeak: -1,
	}

	intra := -1
	for k, p := range h.Peaks {
		if edges[p] >= cfg.intraCutoff {
			continue
		}
		if intra < 0 || density[p] > density[h.Peaks[intra]] {
			intra = k
		}
	}
	if intra < 0 {
		return h, ErrNoIntraBurstPeak
	}
	h.IntraPeak = h.Peaks[intra]
	if intra == len(h.Peaks)-1 {
		return h, ErrIntraAtEndOfPeaks
	}

	intraDensity := density[h.IntraPeak]
	minIdx, minDensity := h.IntraPeak, intraDensity
	next := intra + 1
	for j := h.IntraPeak + 1; next < len(h.Peaks); j++ {
		if density[j] < minDensity {
			minIdx, minDensity = j, density[j]
		}
		if j != h.Peaks[next] {
			continue
		}
		next++

		void := 1 - minDensity/math.Sqrt(intraDensity*density[j])
		if void > cfg.voidThreshold {
			h.Minimum = minIdx
			h.Void = void
			h.Threshold = edges[minIdx] / 1000
			return h, nil
		}
	}

	return h, ErrNoMinWithRequiredVoid
}

// LogISI classifies a spike train into bursts using the LogISI method. The
// ISI threshold read from the log-ISI histogram is compared to cutoff (in
// seconds) to choose the maximum intra-burst ISI and the minimum
// inter-burst interval passed to FindBursts.
func LogISI(times []int64, samplingFrequency, cutoff float64, opts ...Option) ([]Burst, error) {
	h, err := AnalyzeISI(times, samplingFrequency, opts...)
	if err != nil {
		return nil, err
	}
	minIBI, isiLow := burstParams(h.Threshold, cutoff)
	return FindBursts(times, samplingFrequency, isiLow, minIBI)
}

// burstParams derives the minimum inter-burst interval and the maximum
// intra-burst ISI (both seconds) from the histogram threshold and cutoff.
func burstParams(threshold, cutoff float64) (minIBI, isiLow float64) {
	switch {
	case threshold > 1:
		return 0, cutoff
	case threshold >= cutoff:
		return threshold, cutoff
	default:
		return 0, threshold
	}
}

// FindBursts groups consecutive spikes separated by at most isiLow seconds
// into bursts. Bursts whose inter-burst interval does not exceed minIBI
// seconds are merged into the preceding burst.
func FindBursts(times []int64, samplingFrequency, isiLow, minIBI float64) ([]Burst, error) {
	const eps = 1e-9

	maxISI := isiLow*samplingFrequency + eps
	mergeIBI := minIBI * samplingFrequency

	var (
		bursts  []Burst
		start   int
		inBurst bool
	)
	closeBurst := func(end int) error {
		var ibi int64
		if len(bursts) > 0 {
			ibi = times[start] - times[bursts[len(bursts)-1].End]
			if mergeIBI > 0 && float64(ibi) <= mergeIBI {
				bursts[len(bursts)-1].End = end
				return nil
			}
		}
		bursts = append(bursts, Burst{Start: start, End: end, InterBurstInterval: ibi})
		if len(bursts) > len(times)/2 {
			return ErrTooManyBursts
		}
		return nil
	}

	for k := 1; k < len(times); k++ {
		isi := float64(times[k] - times[k-1])
		switch {
		case !inBurst && isi <= maxISI:
			start, inBurst = k-1, true
		case inBurst && isi > maxISI:
			if err := closeBurst(k - 1); err != nil {
				return nil, err
			}
			inBurst = false
		}
	}
	if inBurst {
		if err := closeBurst(len(times) - 1); err != nil {
			return nil, err
		}
	}

	return bursts, nil
}

// findPeaks returns the indices holding the maximum of their surrounding
// ±window bins and exceeding threshold. The scan resumes window+1 bins past
// each accepted peak.
func findPeaks(y []float64, window int, threshold float64) []int {
	var peaks []int
	for j := 0; j < len(y); {
		if y[j] > threshold && isWindowMax(y, j, window) {
			peaks = append(peaks, j)
			j += 1 + window
			continue
		}
		j++
	}
	return peaks
}

func isWindowMax(y []float64, j, window int) bool {
	for k := max(0, j-window); k <= min(len(y)-1, j+window); k++ {
		if y[k] > y[j] {
			return false
		}
	}
	return true
}
