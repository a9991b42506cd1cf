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
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// maxRecordBytes is the data record size recommended by the EDF standard.
const maxRecordBytes = 61440

// Writer writes EDF files.
type Writer struct {
	w           io.WriteSeeker
	hdr         *Header
	dataRecords int // Number of data records written so far.
}

// Create creates a new EDF writer that writes to the given writer.
func Create(w io.WriteSeeker, hdr Header) (*Writer, error) {
	hdr.DataRecords = -1 // Unknown number of data records (at this time).
	hdr.SignalCount = len(hdr.Signals)

	ew := &Writer{w: w, hdr: &hdr}

	if err := ew.writeHeader(); err != nil {
		return nil, fmt.Errorf("error writing header: %w", err)
	}

	return ew, nil
}

// Close finalizes the EDF file by updating the header with the total number of data records.
func (ew *Writer) Close() error {
	ew.hdr.DataRecords = ew.dataRecords
	if err := ew.writeHeader(); err != nil {
		return fmt.Errorf("error writing header: %w", err)
	}

	return nil
}

// WriteRecord writes a single data record, one slice of physical values per signal.
func (ew *Writer) WriteRecord(signals [][]float32) error {
	if len(signals) != ew.hdr.SignalCount {
		return fmt.Errorf("expected %d signals, got %d", ew.hdr.SignalCount, len(signals))
	}

	var totalSamples int
	for i, signal := range signals {
		if len(signal) != ew.hdr.Signals[i].SamplesPerRecord {
			return fmt.Errorf("signal %d: expected %d samples, got %d", i, ew.hdr.Signals[i].SamplesPerRecord, len(signal))
		}
		totalSamples += len(signal)
	}

	if totalSamples*2 > maxRecordBytes {
		return fmt.Errorf("data record too large: %d bytes, max is %d bytes", totalSamples*2, maxRecordBytes)
	}

	if _, err := ew.w.Seek(0, io.SeekEnd); err != nil {
		return err
	}
	writer := bufio.NewWriter(ew.w)

	buf := make([]byte, 2)
	for i, signal := range signals {
		sig := &ew.hdr.Signals[i]
		for _, sample := range signal {
			binary.LittleEndian.PutUint16(buf, uint16(physicalToDigital(float64(sample), sig)))
			if _, err := writer.Write(buf); err != nil {
				return err
			}
		}
	}

	if err := writer.Flush(); err != nil {
		return err
	}

	ew.dataRecords++
	return nil
}

// writeHeader rewrites the fixed-width header at the start of the file.
func (ew *Writer) writeHeader() error {
	if _, err := ew.w.Seek(0, io.SeekStart); err != nil {
		return err
	}

	writer := bufio.NewWriter(ew.w)
	field := func(width int, v string) {
		if len(v) > width {
			v = v[:width]
		}
		_, _ = fmt.Fprintf(writer, "%-*s", width, v)
	}

	hdr := ew.hdr
	hdr.HeaderBytes = 256 + (hdr.SignalCount * 256)

	field(8, string(hdr.Version))
	field(80, hdr.PatientID)
	field(80, hdr.RecordingID)
	field(8, hdr.StartTime.Format("02.01.06"))
	field(8, hdr.StartTime.Format("15.04.05"))
	field(8, strconv.Itoa(hdr.HeaderBytes))
	field(44, "")
	field(8, strconv.Itoa(hdr.DataRecords))
	field(8, strconv.FormatFloat(hdr.DataRecordDuration.Seconds(), 'f', -1, 64))
	field(4, strconv.Itoa(hdr.SignalCount))

	for _, f := range []func(s *Signal) (int, string){
		func(s *Signal) (int, string) { return 16, s.Label },
		func(s *Signal) (int, string) { return 80, s.TransducerType },
		func(s *Signal) (int, string) { return 8, s.PhysicalDimension },
		func(s *Signal) (int, string) { return 8, formatPhysicalValue(s.PhysicalMin) },
		func(s *Signal) (int, string) { return 8, formatPhysicalValue(s.PhysicalMax) },
		func(s *Signal) (int, string) { return 8, strconv.Itoa(s.DigitalMin) },
		func(s *Signal) (int, string) { return 8, strconv.Itoa(s.DigitalMax) },
		func(s *Signal) (int, string) { return 80, s.Prefiltering },
		func(s *Signal) (int, string) { return 8, strconv.Itoa(s.SamplesPerRecord) },
		func(s *Signal) (int, string) { return 32, "" },
	} {
		for i := range hdr.Signals {
			field(f(&hdr.Signals[i]))
		}
	}

	return writer.Flush()
}

// physicalToDigital quantizes a physical value to the signal's digital range.
func physicalToDigital(physical float64, s *Signal) int16 {
	gain := s.gain()
	if gain == 0 {
		return 0
	}
	digital := math.Round((physical-s.PhysicalMin)/gain) + float64(s.DigitalMin)
	digital = math.Max(float64(s.DigitalMin), math.Min(float64(s.DigitalMax), digital))
	return int16(digital)
}

// formatPhysicalValue renders val in at most 8 characters, keeping as many
// significant digits as fit.
func formatPhysicalValue(val float64) string {
	if s := strconv.FormatFloat(val, 'f', -1, 64); len(s) <= 8 {
		return s
	}
	for prec := 7; prec >= 0; prec-- {
		s := strconv.FormatFloat(val, 'f', prec, 64)
		if len(s) <= 8 && (val == 0 || strings.Trim(s, "-0.") != "") {
			return s
		}
	}
	// Too small or too large for fixed point.
	if s := strconv.FormatFloat(val, 'g', -1, 64); len(s) <= 8 {
		return s
	}
	for prec := 4; prec >= 0; prec-- {
		if s := strconv.FormatFloat(val, 'g', prec, 64); len(s) <= 8 {
			return s
		}
	}
	return strconv.FormatFloat(val, 'g', 0, 64)
}
