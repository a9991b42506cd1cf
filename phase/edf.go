// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package phase

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/OpenPSG/mea/edf"
)

// DefaultDigitalPrefix marks EDF signals holding stimulus triggers.
const DefaultDigitalPrefix = "Digital"

const annotationsLabel = "EDF Annotations"

// LoadOption configures FromEDF.
type LoadOption func(*loadConfig)

type loadConfig struct {
	digitalPrefix string
	channels      []string
}

// WithDigitalPrefix sets the label prefix identifying digital channels.
func WithDigitalPrefix(prefix string) LoadOption {
	return func(c *loadConfig) {
		c.digitalPrefix = prefix
	}
}

// WithChannels restricts loading to the given electrode labels.
func WithChannels(labels ...string) LoadOption {
	return func(c *loadConfig) {
		c.channels = labels
	}
}

// FromEDF loads a phase from an EDF/EDF+ recording. Electrode channels are
// converted to volts from their physical dimension; digital channels are
// kept as stored. All loaded channels must share one sampling frequency and
// length.
func FromEDF(r io.ReadSeeker, opts ...LoadOption) (*Phase, error) {
	cfg := loadConfig{digitalPrefix: DefaultDigitalPrefix}
	for _, opt := range opts {
		opt(&cfg)
	}

	er, err := edf.Open(r)
	if err != nil {
		return nil, fmt.Errorf("error opening recording: %w", err)
	}
	hdr := er.Header()

	var p *Phase
	for i, sig := range hdr.Signals {
		digital := cfg.digitalPrefix != "" && strings.HasPrefix(sig.Label, cfg.digitalPrefix)
		switch {
		case sig.Label == annotationsLabel:
			continue
		case !digital && len(cfg.channels) > 0 && !slices.Contains(cfg.channels, sig.Label):
			continue
		}

		fs := hdr.SamplingFrequency(i)
		if p == nil {
			p = New(fs, hdr.Samples(i))
		} else if fs != p.samplingFrequency {
			return nil, fmt.Errorf("signal %s sampled at %g Hz, want %g Hz", sig.Label, fs, p.samplingFrequency)
		}

		data, err := er.ReadAll(i)
		if err != nil {
			return nil, fmt.Errorf("error reading signal %s: %w", sig.Label, err)
		}

		if digital {
			err = p.AddDigital(data)
		} else {
			scale, ok := voltScale(sig.PhysicalDimension)
			if !ok {
				return nil, fmt.Errorf("signal %s: unsupported physical dimension %q", sig.Label, sig.PhysicalDimension)
			}
			for j := range data {
				data[j] *= scale
			}
			err = p.AddChannel(sig.Label, data)
		}
		if err != nil {
			return nil, err
		}
	}

	if p == nil {
		return nil, fmt.Errorf("recording has no signals")
	}
	return p, nil
}

func voltScale(dimension string) (float32, bool) {
	switch dimension {
	case "V", "":
		return 1, true
	case "mV":
		return 1e-3, true
	case "uV", "µV":
		return 1e-6, true
	case "nV":
		return 1e-9, true
	}
	return 0, false
}
