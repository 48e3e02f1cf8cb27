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

package engine

import (
	"io/ioutil"

	"github.com/Comcast/chunks/chunks"

	"gopkg.in/yaml.v2"
)

// Conf provides some basic Engine parameters.
type Conf struct {
	// Activation tunes the activation model of every module's
	// Graph.
	Activation chunks.Params `json:"activation" yaml:"activation"`

	// SingleStep, when true, stops the Engine from scheduling
	// cycles on its own.  Use Next to step.
	SingleStep bool `json:"singleStep" yaml:"singleStep"`

	// Seed for the random choice among matching rules and for
	// recall noise.  Zero means a time-based seed.
	Seed int64 `json:"seed" yaml:"seed"`

	// MaxCycles limits RunUntilQuiet.
	MaxCycles int `json:"maxCycles" yaml:"maxCycles"`
}

// DefaultMaxCycles is the default for Conf.MaxCycles.
var DefaultMaxCycles = 10000

// DefaultConf returns the standard Conf.
func DefaultConf() *Conf {
	return &Conf{
		Activation: *chunks.DefaultParams(),
		MaxCycles:  DefaultMaxCycles,
	}
}

// ParseConf reads YAML (or JSON) on top of the DefaultConf.
func ParseConf(bs []byte) (*Conf, error) {
	conf := DefaultConf()
	if err := yaml.Unmarshal(bs, conf); err != nil {
		return nil, err
	}
	if conf.MaxCycles <= 0 {
		conf.MaxCycles = DefaultMaxCycles
	}
	return conf, nil
}

// ReadConf reads a YAML file with ParseConf.
func ReadConf(filename string) (*Conf, error) {
	bs, err := ioutil.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	return ParseConf(bs)
}
