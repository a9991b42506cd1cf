// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package spike

import "math"

// overlap is how far past the search window the end of a waveform may be
// followed when the window's last sample is still descending into it.
const overlap = 5

// DetectPeaks scans signal once from left to right and reports the spikes
// whose peak-to-peak excursion reaches threshold.
//
// Each local maximum of |signal| opens a candidate waveform. The opposite
// extreme inside the following peakDuration seconds marks its end and the
// same-polarity extreme before that end marks its start. The larger of the
// two in magnitude is reported, and no further spike is searched for until
// refractoryTime seconds after it, or past the end of the waveform,
// whichever is later.
func DetectPeaks(signal []float32, samplingFrequency, threshold, peakDuration, refractoryTime float64) (PeakTrain, error) {
	n := len(signal)
	peakSamples := int(math.Floor(peakDuration * samplingFrequency))
	refractorySamples := int(math.Floor(refractoryTime * samplingFrequency))
	if n < 2 || n < peakSamples {
		return PeakTrain{}, ErrTooFewSamples
	}

	var train PeakTrain
	i := 1
	for i < n-1 {
		cur := abs32(signal[i])
		if cur <= abs32(signal[i-1]) || cur < abs32(signal[i+1]) {
			i++
			continue
		}

		w := findWaveform(signal, i, min(peakSamples, n-i-1))

		if math.Abs(float64(w.startValue)-float64(w.endValue)) < threshold {
			i++
			continue
		}

		t, amp := w.start, w.startValue
		if abs32(w.endValue) > abs32(w.startValue) {
			t, amp = w.end, w.endValue
		}
		train.Times = append(train.Times, int64(t))
		train.Amplitudes = append(train.Amplitudes, amp)

		if next := t + refractorySamples; next < n && next > w.end {
			i = next
		} else {
			i = w.end + 1
		}
	}

	return train, nil
}

type waveform struct {
	start      int
	startValue float32
	end        int
	endValue   float32
}

// findWaveform locates the start and end extremes of the candidate
// waveform opened at i, searching the interval samples from i onwards.
func findWaveform(signal []float32, i, interval int) waveform {
	positive := signal[i] > 0
	w := waveform{start: i, startValue: signal[i], end: i, endValue: signal[i]}

	// The end is the opposite-polarity extreme of the window.
	last := i + interval
	for j := i; j < last; j++ {
		if (positive && signal[j] < w.endValue) || (!positive && signal[j] > w.endValue) {
			w.end, w.endValue = j, signal[j]
		}
	}

	// The true start may sit after i once the end is known.
	for j := i; j < w.end; j++ {
		if (positive && signal[j] > w.startValue) || (!positive && signal[j] < w.startValue) {
			w.start, w.startValue = j, signal[j]
		}
	}

	// An end found on the window's last sample may continue past it.
	if interval > 0 && w.end == last-1 {
		for j := last; j < min(last+overlap, len(signal)); j++ {
			if (positive && signal[j] < w.endValue) || (!positive && signal[j] > w.endValue) {
				w.end, w.endValue = j, signal[j]
			}
		}
	}

	return w
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
