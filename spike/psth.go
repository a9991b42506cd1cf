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
	"fmt"
	"sort"
)

// ChannelPSTH bins one channel's spike train around every stimulus interval.
//
// The pre-stimulus window reaches back to the end of the previous interval
// (or sample 0) and the post-stimulus window forward to the start of the
// next interval (or datalen). Each window holds floor(length/binSize) bins;
// any remainder is dropped at the end furthest from the stimulus.
//
// Times must be sorted. An empty train yields an empty result.
func ChannelPSTH(train PeakTrain, intervals []Interval, binSize, datalen int) ([]Bins, error) {
	if binSize <= 0 {
		panic("spike: non-positive PSTH bin size")
	}
	if err := validateIntervals(intervals, datalen); err != nil {
		return nil, err
	}
	if train.Len() == 0 {
		return nil, nil
	}

	out := make([]Bins, len(intervals))
	for i, iv := range intervals {
		prevEnd := 0
		if i > 0 {
			prevEnd = intervals[i-1].End
		}
		nextStart := datalen
		if i < len(intervals)-1 {
			nextStart = intervals[i+1].Start
		}

		nPre := (iv.Start - prevEnd) / binSize
		out[i] = Bins{
			Pre:  countBins(train.Times, iv.Start-nPre*binSize, nPre, binSize),
			Stim: countBins(train.Times, iv.Start, iv.Len()/binSize, binSize),
			Post: countBins(train.Times, iv.End, (nextStart-iv.End)/binSize, binSize),
		}
	}
	return out, nil
}

// PSTH runs ChannelPSTH for every channel.
func PSTH(trains map[string]PeakTrain, intervals []Interval, binSize, datalen int) (map[string][]Bins, error) {
	out := make(map[string][]Bins, len(trains))
	for label, train := range trains {
		bins, err := ChannelPSTH(train, intervals, binSize, datalen)
		if err != nil {
			return nil, fmt.Errorf("channel %s: %w", label, err)
		}
		out[label] = bins
	}
	return out, nil
}

// SimplePSTH sums the per-channel histograms into one histogram per
// stimulus interval. Shorter vectors are zero-padded to the longest one
// seen for that interval before summing.
func SimplePSTH(perChannel map[string][]Bins) []Bins {
	var n int
	for _, bins := range perChannel {
		n = max(n, len(bins))
	}
	if n == 0 {
		return nil
	}

	out := make([]Bins, n)
	for _, bins := range perChannel {
		for i, b := range bins {
			out[i].Pre = addPadded(out[i].Pre, b.Pre)
			out[i].Stim = addPadded(out[i].Stim, b.Stim)
			out[i].Post = addPadded(out[i].Post, b.Post)
		}
	}
	return out
}

func addPadded(acc, v []int) []int {
	for len(acc) < len(v) {
		acc = append(acc, 0)
	}
	for i, c := range v {
		acc[i] += c
	}
	return acc
}

// countBins counts the sorted times falling in n consecutive bins of
// binSize samples starting at start.
func countBins(times []int64, start, n, binSize int) []int {
	counts := make([]int, n)
	if n == 0 {
		return counts
	}
	lo, hi := int64(start), int64(start+n*binSize)
	j := sort.Search(len(times), func(j int) bool { return times[j] >= lo })
	for ; j < len(times) && times[j] < hi; j++ {
		counts[(times[j]-lo)/int64(binSize)]++
	}
	return counts
}

func validateIntervals(intervals []Interval, datalen int) error {
	prevEnd := 0
	for i, iv := range intervals {
		if iv.Start < prevEnd || iv.Start >= iv.End || iv.End > datalen {
			return fmt.Errorf("interval %d [%d, %d) of %d samples: %w", i, iv.Start, iv.End, datalen, ErrIndexOutOfRange)
		}
		prevEnd = iv.End
	}
	return nil
}
