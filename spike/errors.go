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
	"errors"
	"fmt"
)

var (
	// ErrTooFewSamples is returned when a signal is too short to search for peaks.
	ErrTooFewSamples = errors.New("too few samples for peak detection")
	// ErrIndexOutOfRange is returned when an index or interval falls outside the data.
	ErrIndexOutOfRange = errors.New("index out of range")
	// ErrTooFewSpikes is returned when a train has three spikes or fewer.
	ErrTooFewSpikes = errors.New("too few spikes for burst detection")
	// ErrNoIntraBurstPeak is returned when the ISI density has no peak below the intra-burst cutoff.
	ErrNoIntraBurstPeak = errors.New("no intra-burst peak in ISI histogram")
	// ErrIntraAtEndOfPeaks is returned when the intra-burst peak is the last peak found.
	ErrIntraAtEndOfPeaks = errors.New("intra-burst peak is the last ISI histogram peak")
	// ErrNoMinWithRequiredVoid is returned when no minimum separates the peaks deeply enough.
	ErrNoMinWithRequiredVoid = errors.New("no minimum satisfies the void parameter threshold")
	// ErrTooManyBursts is returned when more bursts are found than half the number of spikes.
	ErrTooManyBursts = errors.New("too many bursts detected")
)

// InsufficientSamplesError reports a signal shorter than a single noise window.
type InsufficientSamplesError struct {
	Required  int
	Available int
}

func (e *InsufficientSamplesError) Error() string {
	return fmt.Sprintf("insufficient samples: required %d, available %d", e.Required, e.Available)
}
