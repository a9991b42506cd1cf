// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package phase_test

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/OpenPSG/mea/edf"
	"github.com/OpenPSG/mea/phase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeRecording(t *testing.T, signals []edf.Signal, records int, sample func(sig, i int) float32) *os.File {
	t.Helper()

	f, err := os.OpenFile(filepath.Join(t.TempDir(), "phase.edf"), os.O_RDWR|os.O_CREATE, 0o644)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, f.Close())
	})

	ew, err := edf.Create(f, edf.Header{
		Version:            edf.Version0,
		PatientID:          "Culture 3",
		RecordingID:        "Stimulation",
		StartTime:          time.Date(2024, 5, 2, 11, 0, 0, 0, time.UTC),
		DataRecordDuration: time.Second,
		Signals:            signals,
	})
	require.NoError(t, err)

	for r := 0; r < records; r++ {
		record := make([][]float32, len(signals))
		for s := range signals {
			record[s] = make([]float32, signals[s].SamplesPerRecord)
			for i := range record[s] {
				record[s][i] = sample(s, r*signals[s].SamplesPerRecord+i)
			}
		}
		require.NoError(t, ew.WriteRecord(record))
	}
	require.NoError(t, ew.Close())

	_, err = f.Seek(0, io.SeekStart)
	require.NoError(t, err)
	return f
}

func electrode(label string) edf.Signal {
	return edf.Signal{
		Label:             label,
		PhysicalDimension: "uV",
		PhysicalMin:       -1000,
		PhysicalMax:       1000,
		DigitalMin:        -32768,
		DigitalMax:        32767,
		SamplesPerRecord:  500,
	}
}

func trigger() edf.Signal {
	return edf.Signal{
		Label:            "Digital 1",
		PhysicalMin:      0,
		PhysicalMax:      1,
		DigitalMin:       0,
		DigitalMax:       1,
		SamplesPerRecord: 500,
	}
}

func TestFromEDF(t *testing.T) {
	f := writeRecording(t, []edf.Signal{electrode("E12"), electrode("E13"), trigger()}, 2, func(sig, i int) float32 {
		switch sig {
		case 0:
			return 100
		case 1:
			return -250
		default:
			if i >= 100 && i < 200 {
				return 1
			}
			return 0
		}
	})

	p, err := phase.FromEDF(f)
	require.NoError(t, err)

	assert.Equal(t, 500.0, p.SamplingFrequency())
	assert.Equal(t, 1000, p.DataLen())
	assert.Equal(t, []string{"E12", "E13"}, p.Labels())
	require.Equal(t, 1, p.NDigitals())

	data, err := p.RawData("E13", phase.Range{End: 3})
	require.NoError(t, err)
	for _, v := range data {
		assert.InDelta(t, -250e-6, v, 1e-7)
	}

	digital, err := p.Digital(0, phase.Range{Start: 99, End: 101})
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 1}, digital)
}

func TestFromEDFSelectedChannels(t *testing.T) {
	f := writeRecording(t, []edf.Signal{electrode("E12"), electrode("E13"), trigger()}, 1, func(int, int) float32 { return 0 })

	p, err := phase.FromEDF(f, phase.WithChannels("E13"), phase.WithDigitalPrefix("Digital"))
	require.NoError(t, err)
	assert.Equal(t, []string{"E13"}, p.Labels())
	assert.Equal(t, 1, p.NDigitals())
}

func TestFromEDFMixedSamplingFrequency(t *testing.T) {
	slow := electrode("E13")
	slow.SamplesPerRecord = 250
	f := writeRecording(t, []edf.Signal{electrode("E12"), slow}, 1, func(int, int) float32 { return 0 })

	_, err := phase.FromEDF(f)
	assert.Error(t, err)
}

func TestFromEDFUnsupportedDimension(t *testing.T) {
	odd := electrode("E12")
	odd.PhysicalDimension = "degC"
	f := writeRecording(t, []edf.Signal{odd}, 1, func(int, int) float32 { return 0 })

	_, err := phase.FromEDF(f)
	assert.Error(t, err)
}
