// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

// Package phase holds one recording phase in memory: raw electrode channels,
// digital trigger channels, event lists and the spike trains detected on
// each channel.
package phase

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/OpenPSG/mea/spike"
)

var (
	// ErrLabelNotFound is returned for an unknown channel label.
	ErrLabelNotFound = errors.New("label not found")
	// ErrReplaceRange is returned when replacement data has mismatched lengths.
	ErrReplaceRange = errors.New("replacement data shape mismatch")
)

// Range selects the samples [Start, End). A zero End selects through the
// end of the data.
type Range struct {
	Start int
	End   int
}

// All selects the full range.
var All = Range{}

func (r Range) resolve(length int) (int, int, error) {
	end := r.End
	if end == 0 {
		end = length
	}
	if r.Start < 0 || r.Start > end || end > length {
		return 0, 0, fmt.Errorf("range [%d, %d) of %d: %w", r.Start, end, length, spike.ErrIndexOutOfRange)
	}
	return r.Start, end, nil
}

// Recording is the capability set the analysis pipeline needs from a loaded
// recording.
type Recording interface {
	SamplingFrequency() float64
	DataLen() int
	Labels() []string
	RawData(label string, r Range) ([]float32, error)
	SetRawData(label string, start int, data []float32) error
	NDigitals() int
	Digital(index int, r Range) ([]float32, error)
	SetDigital(index int, start int, data []float32) error
	NEvents() int
	Events(index int) ([]int64, error)
	PeakTrain(label string, r Range) (spike.PeakTrain, error)
	SetPeakTrain(label string, r Range, train spike.PeakTrain) error
}

var _ Recording = (*Phase)(nil)

// Phase is an in-memory Recording. Slices returned by RawData and Digital
// share storage with the phase and must not be modified.
type Phase struct {
	samplingFrequency float64
	datalen           int
	labels            []string
	raw               map[string][]float32
	digitals          [][]float32
	events            [][]int64

	mu         sync.RWMutex
	peakTrains map[string]spike.PeakTrain
}

// New creates an empty phase of datalen samples per channel.
func New(samplingFrequency float64, datalen int) *Phase {
	return &Phase{
		samplingFrequency: samplingFrequency,
		datalen:           datalen,
		raw:               make(map[string][]float32),
		peakTrains:        make(map[string]spike.PeakTrain),
	}
}

// AddChannel adds a raw electrode channel.
func (p *Phase) AddChannel(label string, data []float32) error {
	if len(data) != p.datalen {
		return fmt.Errorf("channel %s has %d samples, want %d: %w", label, len(data), p.datalen, spike.ErrIndexOutOfRange)
	}
	if _, ok := p.raw[label]; ok {
		return fmt.Errorf("duplicate channel %s", label)
	}
	p.labels = append(p.labels, label)
	p.raw[label] = data
	return nil
}

// AddDigital adds a digital trigger channel.
func (p *Phase) AddDigital(data []float32) error {
	if len(data) != p.datalen {
		return fmt.Errorf("digital channel has %d samples, want %d: %w", len(data), p.datalen, spike.ErrIndexOutOfRange)
	}
	p.digitals = append(p.digitals, data)
	return nil
}

// AddEvents adds an event list of sample indices.
func (p *Phase) AddEvents(times []int64) {
	p.events = append(p.events, times)
}

// SamplingFrequency returns the sampling frequency in Hz.
func (p *Phase) SamplingFrequency() float64 { return p.samplingFrequency }

// DataLen returns the number of samples per channel.
func (p *Phase) DataLen() int { return p.datalen }

// Labels returns the channel labels in insertion order.
func (p *Phase) Labels() []string { return slices.Clone(p.labels) }

// RawData returns the samples of a channel within r.
func (p *Phase) RawData(label string, r Range) ([]float32, error) {
	data, ok := p.raw[label]
	if !ok {
		return nil, fmt.Errorf("channel %s: %w", label, ErrLabelNotFound)
	}
	start, end, err := r.resolve(len(data))
	if err != nil {
		return nil, err
	}
	return data[start:end], nil
}

// SetRawData overwrites the samples of a channel from start.
func (p *Phase) SetRawData(label string, start int, data []float32) error {
	raw, ok := p.raw[label]
	if !ok {
		return fmt.Errorf("channel %s: %w", label, ErrLabelNotFound)
	}
	return overwrite(raw, start, data)
}

// NDigitals returns the number of digital channels.
func (p *Phase) NDigitals() int { return len(p.digitals) }

// Digital returns the samples of a digital channel within r.
func (p *Phase) Digital(index int, r Range) ([]float32, error) {
	if index < 0 || index >= len(p.digitals) {
		return nil, fmt.Errorf("digital %d: %w", index, spike.ErrIndexOutOfRange)
	}
	start, end, err := r.resolve(len(p.digitals[index]))
	if err != nil {
		return nil, err
	}
	return p.digitals[index][start:end], nil
}

// SetDigital overwrites the samples of a digital channel from start.
func (p *Phase) SetDigital(index int, start int, data []float32) error {
	if index < 0 || index >= len(p.digitals) {
		return fmt.Errorf("digital %d: %w", index, spike.ErrIndexOutOfRange)
	}
	return overwrite(p.digitals[index], start, data)
}

// NEvents returns the number of event lists.
func (p *Phase) NEvents() int { return len(p.events) }

// Events returns a copy of an event list of sample indices.
func (p *Phase) Events(index int) ([]int64, error) {
	if index < 0 || index >= len(p.events) {
		return nil, fmt.Errorf("events %d: %w", index, spike.ErrIndexOutOfRange)
	}
	return slices.Clone(p.events[index]), nil
}

// PeakTrain returns the spikes of a channel whose times fall in r. A
// channel without detected spikes yields an empty train.
func (p *Phase) PeakTrain(label string, r Range) (spike.PeakTrain, error) {
	if _, ok := p.raw[label]; !ok {
		return spike.PeakTrain{}, fmt.Errorf("channel %s: %w", label, ErrLabelNotFound)
	}
	start, end, err := r.resolve(p.datalen)
	if err != nil {
		return spike.PeakTrain{}, err
	}

	p.mu.RLock()
	train := p.peakTrains[label]
	p.mu.RUnlock()

	lo, hi := searchRange(train.Times, start, end)
	return spike.PeakTrain{
		Times:      slices.Clone(train.Times[lo:hi]),
		Amplitudes: slices.Clone(train.Amplitudes[lo:hi]),
	}, nil
}

// SetPeakTrain replaces the spikes of a channel whose times fall in r with
// train. The replacement is not validated: its times must be sorted and lie
// within r.
func (p *Phase) SetPeakTrain(label string, r Range, train spike.PeakTrain) error {
	if _, ok := p.raw[label]; !ok {
		return fmt.Errorf("channel %s: %w", label, ErrLabelNotFound)
	}
	if len(train.Times) != len(train.Amplitudes) {
		return fmt.Errorf("%d times, %d amplitudes: %w", len(train.Times), len(train.Amplitudes), ErrReplaceRange)
	}
	start, end, err := r.resolve(p.datalen)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	// Build the spliced train before swapping it in.
	old := p.peakTrains[label]
	lo, hi := searchRange(old.Times, start, end)
	n := lo + train.Len() + len(old.Times) - hi
	next := spike.PeakTrain{
		Times:      make([]int64, 0, n),
		Amplitudes: make([]float32, 0, n),
	}
	next.Times = append(append(append(next.Times, old.Times[:lo]...), train.Times...), old.Times[hi:]...)
	next.Amplitudes = append(append(append(next.Amplitudes, old.Amplitudes[:lo]...), train.Amplitudes...), old.Amplitudes[hi:]...)
	p.peakTrains[label] = next
	return nil
}

// PeakTrains returns every channel's full spike train.
func (p *Phase) PeakTrains() map[string]spike.PeakTrain {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make(map[string]spike.PeakTrain, len(p.peakTrains))
	for label, train := range p.peakTrains {
		out[label] = train
	}
	return out
}

func overwrite(dst []float32, start int, data []float32) error {
	if start < 0 || start+len(data) > len(dst) {
		return fmt.Errorf("write [%d, %d) of %d: %w", start, start+len(data), len(dst), spike.ErrIndexOutOfRange)
	}
	copy(dst[start:], data)
	return nil
}

// searchRange returns the bounds of the sorted times falling in [start, end).
func searchRange(times []int64, start, end int) (int, int) {
	lo := sort.Search(len(times), func(i int) bool { return times[i] >= int64(start) })
	hi := sort.Search(len(times), func(i int) bool { return times[i] >= int64(end) })
	return lo, hi
}
