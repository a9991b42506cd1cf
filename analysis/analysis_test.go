// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package analysis_test

import (
	"bytes"
	"context"
	"math"
	"testing"

	"github.com/OpenPSG/mea/analysis"
	"github.com/OpenPSG/mea/internal/logging"
	"github.com/OpenPSG/mea/internal/metrics"
	"github.com/OpenPSG/mea/phase"
	"github.com/OpenPSG/mea/spike"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sineWave(freq, amplitude, seconds, samplingFrequency float64) []float32 {
	data := make([]float32, int(seconds*samplingFrequency))
	for i := range data {
		data[i] = float32(amplitude * math.Sin(2*math.Pi*freq*float64(i)/samplingFrequency))
	}
	return data
}

// burstTrain returns bursts of spikes intra samples apart, with gap samples
// between the last spike of a burst and the first of the next.
func burstTrain(bursts, spikesPerBurst int, intra, gap int64) spike.PeakTrain {
	var (
		train spike.PeakTrain
		t     int64
	)
	for b := 0; b < bursts; b++ {
		for s := 0; s < spikesPerBurst; s++ {
			train.Times = append(train.Times, t)
			train.Amplitudes = append(train.Amplitudes, 1)
			if s < spikesPerBurst-1 {
				t += intra
			}
		}
		t += gap
	}
	return train
}

func TestDetectAll(t *testing.T) {
	p := phase.New(1000, 1000)
	require.NoError(t, p.AddChannel("E12", sineWave(10, 1, 1, 1000)))
	require.NoError(t, p.AddChannel("E13", sineWave(10, 0.5, 1, 1000)))

	reg := prometheus.NewRegistry()
	pipeline := analysis.New(analysis.WithWorkers(2), analysis.WithMetrics(metrics.New(reg)))

	trains, err := pipeline.DetectAll(context.Background(), p, analysis.DetectParams{
		Multiplier:     8,
		PeakDuration:   0.06,
		RefractoryTime: 0.001,
	})
	require.NoError(t, err)
	require.Len(t, trains, 2)

	for label, amplitude := range map[string]float32{"E12": 1, "E13": 0.5} {
		train := trains[label]
		require.Len(t, train.Times, 10, label)
		for k, tm := range train.Times {
			assert.InDelta(t, 25+100*k, tm, 1)
			assert.InDelta(t, amplitude, train.Amplitudes[k], 1e-3)
		}

		stored, err := p.PeakTrain(label, phase.All)
		require.NoError(t, err)
		assert.Equal(t, train, stored)
	}

	n, err := testutil.GatherAndCount(reg, "mea_spikes_detected_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestDetectAllTooFewSamples(t *testing.T) {
	p := phase.New(1000, 100)
	require.NoError(t, p.AddChannel("E12", make([]float32, 100)))

	_, err := analysis.New().DetectAll(context.Background(), p, analysis.DetectParams{Multiplier: 6, PeakDuration: 0.002})

	var insufficient *spike.InsufficientSamplesError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, 200, insufficient.Required)
	assert.Equal(t, 100, insufficient.Available)

	// Nothing is stored on failure.
	train, err := p.PeakTrain("E12", phase.All)
	require.NoError(t, err)
	assert.Zero(t, train.Len())
}

func TestDetectAllCancelled(t *testing.T) {
	p := phase.New(1000, 1000)
	require.NoError(t, p.AddChannel("E12", sineWave(10, 1, 1, 1000)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := analysis.New().DetectAll(ctx, p, analysis.DetectParams{Multiplier: 6, PeakDuration: 0.002})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPSTH(t *testing.T) {
	p := phase.New(1000, 100)
	require.NoError(t, p.AddChannel("E12", make([]float32, 100)))
	require.NoError(t, p.AddChannel("E13", make([]float32, 100)))

	digital := make([]float32, 100)
	for i := 40; i < 60; i++ {
		digital[i] = 1
	}
	require.NoError(t, p.AddDigital(digital))

	require.NoError(t, p.SetPeakTrain("E12", phase.All, spike.PeakTrain{
		Times:      []int64{5, 45, 55, 70, 95},
		Amplitudes: []float32{1, 1, 1, 1, 1},
	}))
	require.NoError(t, p.SetPeakTrain("E13", phase.All, spike.PeakTrain{
		Times:      []int64{45},
		Amplitudes: []float32{1},
	}))

	res, err := analysis.New().PSTH(context.Background(), p, 0, 0.01)
	require.NoError(t, err)

	assert.Equal(t, []spike.Interval{{Start: 40, End: 60}}, res.Intervals)
	assert.Equal(t, 10, res.BinSize)

	assert.Equal(t, []spike.Bins{{
		Pre:  []int{1, 0, 0, 0},
		Stim: []int{1, 1},
		Post: []int{0, 1, 0, 1},
	}}, res.Channels["E12"])
	assert.Equal(t, []spike.Bins{{
		Pre:  []int{1, 0, 0, 0},
		Stim: []int{2, 1},
		Post: []int{0, 1, 0, 1},
	}}, res.Simple)
}

func TestPSTHErrors(t *testing.T) {
	p := phase.New(1000, 100)
	require.NoError(t, p.AddChannel("E12", make([]float32, 100)))

	_, err := analysis.New().PSTH(context.Background(), p, 0, 0.0001)
	assert.ErrorIs(t, err, analysis.ErrBinSize)

	_, err = analysis.New().PSTH(context.Background(), p, 0, 0.01)
	assert.ErrorIs(t, err, spike.ErrIndexOutOfRange)
}

func TestBursts(t *testing.T) {
	p := phase.New(1000, 2000)
	require.NoError(t, p.AddChannel("E12", make([]float32, 2000)))
	require.NoError(t, p.AddChannel("E13", make([]float32, 2000)))

	require.NoError(t, p.SetPeakTrain("E12", phase.All, burstTrain(10, 4, 5, 200)))
	require.NoError(t, p.SetPeakTrain("E13", phase.All, spike.PeakTrain{
		Times:      []int64{100, 900},
		Amplitudes: []float32{1, 1},
	}))

	var buf bytes.Buffer
	logger := logging.NewWithWriter(zerolog.SyncWriter(&buf), "debug", "json")
	reg := prometheus.NewRegistry()
	rec := metrics.New(reg)

	res, err := analysis.New(analysis.WithLogger(logger), analysis.WithMetrics(rec)).
		Bursts(context.Background(), p, analysis.BurstParams{Cutoff: spike.DefaultBurstCutoff})
	require.NoError(t, err)

	require.Contains(t, res, "E12")
	assert.NotContains(t, res, "E13")

	e12 := res["E12"]
	require.Len(t, e12.Bursts, 10)
	assert.Equal(t, 10, e12.Stats.Count)
	assert.InDelta(t, 4.0, e12.Stats.MeanSpikes, 1e-9)
	assert.InDelta(t, 0.015, e12.Stats.MeanDuration, 1e-9)

	assert.Contains(t, buf.String(), `"channel":"E13"`)
	assert.Contains(t, buf.String(), spike.ErrTooFewSpikes.Error())

	n, err := testutil.GatherAndCount(reg, "mea_channel_errors_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
