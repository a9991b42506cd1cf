// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package edf

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// ErrSignalIndex is returned for a signal index outside the header.
var ErrSignalIndex = errors.New("signal index out of range")

// Reader reads EDF/EDF+ files.
type Reader struct {
	r   io.ReadSeeker
	hdr *Header
}

// fieldReader reads the fixed-width ASCII fields of an EDF header, keeping
// the first error.
type fieldReader struct {
	r   io.Reader
	err error
}

func (fr *fieldReader) next(width int) string {
	if fr.err != nil {
		return ""
	}
	b := make([]byte, width)
	if _, err := io.ReadFull(fr.r, b); err != nil {
		fr.err = err
		return ""
	}
	return strings.TrimSpace(string(b))
}

// signalFields lists the per-signal header fields in file order.
var signalFields = []struct {
	width int
	set   func(s *Signal, v string)
}{
	{16, func(s *Signal, v string) { s.Label = v }},
	{80, func(s *Signal, v string) { s.TransducerType = v }},
	{8, func(s *Signal, v string) { s.PhysicalDimension = v }},
	{8, func(s *Signal, v string) { s.PhysicalMin = parseFloat(v) }},
	{8, func(s *Signal, v string) { s.PhysicalMax = parseFloat(v) }},
	{8, func(s *Signal, v string) { s.DigitalMin = parseInt(v) }},
	{8, func(s *Signal, v string) { s.DigitalMax = parseInt(v) }},
	{80, func(s *Signal, v string) { s.Prefiltering = v }},
	{8, func(s *Signal, v string) { s.SamplesPerRecord = parseInt(v) }},
	{32, func(s *Signal, v string) { s.Reserved = v }},
}

// Open opens an EDF/EDF+ file for reading.
func Open(r io.ReadSeeker) (*Reader, error) {
	fr := &fieldReader{r: bufio.NewReader(r)}

	hdr := &Header{}
	hdr.Version = Version(fr.next(8))
	hdr.PatientID = fr.next(80)
	hdr.RecordingID = fr.next(80)
	dateStr := fr.next(8)
	timeStr := fr.next(8)
	headerBytes := fr.next(8)
	_ = fr.next(44) // reserved
	dataRecords := fr.next(8)
	recordDuration := fr.next(8)
	signalCount := fr.next(4)
	if fr.err != nil {
		return nil, fmt.Errorf("error reading header: %w", fr.err)
	}

	startDate, err := time.Parse("02.01.06", dateStr)
	if err != nil {
		return nil, fmt.Errorf("error parsing start date: %w", err)
	}
	startTime, err := time.Parse("15.04.05", timeStr)
	if err != nil {
		return nil, fmt.Errorf("error parsing start time: %w", err)
	}
	hdr.StartTime = time.Date(startDate.Year(), startDate.Month(), startDate.Day(),
		startTime.Hour(), startTime.Minute(), startTime.Second(), 0, time.UTC)

	if hdr.HeaderBytes, err = strconv.Atoi(headerBytes); err != nil {
		return nil, fmt.Errorf("error parsing header bytes: %w", err)
	}
	if hdr.DataRecords, err = strconv.Atoi(dataRecords); err != nil {
		return nil, fmt.Errorf("error parsing number of data records: %w", err)
	}
	if hdr.DataRecordDuration, err = time.ParseDuration(recordDuration + "s"); err != nil {
		return nil, fmt.Errorf("error parsing data record duration: %w", err)
	}
	if hdr.SignalCount, err = strconv.Atoi(signalCount); err != nil {
		return nil, fmt.Errorf("error parsing signal count: %w", err)
	}

	// Signal headers are stored field by field across all signals.
	hdr.Signals = make([]Signal, hdr.SignalCount)
	for _, field := range signalFields {
		for i := range hdr.Signals {
			field.set(&hdr.Signals[i], fr.next(field.width))
		}
	}
	if fr.err != nil {
		return nil, fmt.Errorf("error reading signal headers: %w", fr.err)
	}

	return &Reader{r: r, hdr: hdr}, nil
}

// Header returns the parsed file header.
func (er *Reader) Header() *Header {
	return er.hdr
}

// SignalReader reads continuous signal data from an EDF/EDF+ file.
type SignalReader struct {
	r             io.ReadSeeker
	hdr           *Header
	signal        Signal
	currentRecord int    // Current record being processed
	record        []byte // Raw samples of the current record for this signal
	sample        int    // Next sample in record
	recordSize    int    // Total size of one data record
	signalOffset  int    // Byte offset of the signal in a record
}

// Signal creates a new SignalReader for a specified signal index.
func (er *Reader) Signal(signalIndex int) (*SignalReader, error) {
	if signalIndex < 0 || signalIndex >= len(er.hdr.Signals) {
		return nil, fmt.Errorf("signal %d: %w", signalIndex, ErrSignalIndex)
	}

	signalOffset := 0
	for _, sig := range er.hdr.Signals[:signalIndex] {
		signalOffset += sig.SamplesPerRecord * 2
	}

	return &SignalReader{
		r:            er.r,
		hdr:          er.hdr,
		signal:       er.hdr.Signals[signalIndex],
		recordSize:   er.hdr.recordSize(),
		signalOffset: signalOffset,
	}, nil
}

// ReadAll reads every sample of a signal as physical values.
func (er *Reader) ReadAll(signalIndex int) ([]float32, error) {
	sr, err := er.Signal(signalIndex)
	if err != nil {
		return nil, err
	}

	data := make([]float32, er.hdr.Samples(signalIndex))
	n, err := sr.Read(data)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return data[:n], nil
}

// Read fills the provided slice with the physical values from the signal.
// Each data record's block for the signal is read with a single seek.
func (sr *SignalReader) Read(data []float32) (int, error) {
	gain := sr.signal.gain()

	n := 0
	for n < len(data) {
		if sr.sample >= len(sr.record)/2 {
			if err := sr.nextRecord(); err != nil {
				return n, err
			}
		}

		for ; sr.sample < len(sr.record)/2 && n < len(data); sr.sample++ {
			digital := int16(binary.LittleEndian.Uint16(sr.record[2*sr.sample:]))
			data[n] = float32(sr.signal.PhysicalMin + (float64(digital)-float64(sr.signal.DigitalMin))*gain)
			n++
		}
	}

	return n, nil
}

func (sr *SignalReader) nextRecord() error {
	if sr.currentRecord >= sr.hdr.DataRecords {
		return io.EOF // End of data records
	}

	pos := int64(sr.hdr.HeaderBytes) + int64(sr.currentRecord)*int64(sr.recordSize) + int64(sr.signalOffset)
	if _, err := sr.r.Seek(pos, io.SeekStart); err != nil {
		return fmt.Errorf("error seeking to position: %w", err)
	}

	if sr.record == nil {
		sr.record = make([]byte, sr.signal.SamplesPerRecord*2)
	}
	if _, err := io.ReadFull(sr.r, sr.record); err != nil {
		return fmt.Errorf("error reading sample data: %w", err)
	}

	sr.currentRecord++
	sr.sample = 0
	return nil
}

func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0.0
	}
	return f
}

func parseInt(s string) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return i
}
