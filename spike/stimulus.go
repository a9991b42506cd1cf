// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package spike

// StimulusIntervals returns the spans over which a digital trigger trace is
// non-zero. An interval still open at the end of the trace closes at
// len(digital).
func StimulusIntervals(digital []float32) []Interval {
	var (
		intervals []Interval
		start     int
		active    bool
	)
	for i, v := range digital {
		switch {
		case v != 0 && !active:
			start, active = i, true
		case v == 0 && active:
			intervals = append(intervals, Interval{Start: start, End: i})
			active = false
		}
	}
	if active {
		intervals = append(intervals, Interval{Start: start, End: len(digital)})
	}
	return intervals
}
