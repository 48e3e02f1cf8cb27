/* Copyright 2018-2019 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package chunks

import "math"

// Params are the tunables of the activation model.
type Params struct {
	// HalfLife is the time in seconds for the strength of a chunk
	// with unit usage to decay by half.
	HalfLife float64 `json:"halfLife" yaml:"halfLife"`

	// Tau is the spacing-effect time constant in seconds.  It
	// also caps the noise applied to stale chunks.
	Tau float64 `json:"tau" yaml:"tau"`

	// Fraction scales the boost at each hop of spreading
	// activation.
	Fraction float64 `json:"fraction" yaml:"fraction"`

	// Cutoff stops spreading activation once the boost falls to
	// this level.
	Cutoff float64 `json:"cutoff" yaml:"cutoff"`

	// MinStrength is the recall threshold for noisy strength.
	MinStrength float64 `json:"minStrength" yaml:"minStrength"`

	// NoiseStdev is the standard deviation of the log-normal
	// noise for a chunk last accessed Tau seconds ago (or
	// earlier).
	NoiseStdev float64 `json:"noiseStdev" yaml:"noiseStdev"`

	// NoiseGrace is the number of seconds after an access during
	// which a chunk scores exactly 1.0.  Zero disables the grace.
	NoiseGrace float64 `json:"noiseGrace" yaml:"noiseGrace"`

	// MaxPrimeDepth limits the hops of spreading activation.
	MaxPrimeDepth int `json:"maxPrimeDepth" yaml:"maxPrimeDepth"`
}

// DefaultParams returns the standard tuning.
func DefaultParams() *Params {
	return &Params{
		HalfLife:      3 * 24 * 60 * 60,
		Tau:           24 * 60 * 60,
		Fraction:      0.5,
		Cutoff:        0.01,
		MinStrength:   0.02,
		NoiseStdev:    0.1,
		NoiseGrace:    10,
		MaxPrimeDepth: 64,
	}
}

// Decay is the decay rate per second for unit usage.
func (p *Params) Decay() float64 {
	if p.HalfLife <= 0 {
		return 0
	}
	return math.Ln2 / p.HalfLife
}

// WithDefaults returns a copy with zero values replaced by defaults.
func (p *Params) WithDefaults() *Params {
	d := DefaultParams()
	if p == nil {
		return d
	}
	acc := *p
	if acc.HalfLife == 0 {
		acc.HalfLife = d.HalfLife
	}
	if acc.Tau == 0 {
		acc.Tau = d.Tau
	}
	if acc.Fraction == 0 {
		acc.Fraction = d.Fraction
	}
	if acc.Cutoff == 0 {
		acc.Cutoff = d.Cutoff
	}
	if acc.MinStrength == 0 {
		acc.MinStrength = d.MinStrength
	}
	if acc.MaxPrimeDepth == 0 {
		acc.MaxPrimeDepth = d.MaxPrimeDepth
	}
	return &acc
}
