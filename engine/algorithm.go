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
	"github.com/Comcast/chunks/chunks"
	"github.com/Comcast/chunks/match"
)

// Algorithm is a native implementation of a custom action
// operation.  An action "foo {@do op; ...}" runs the Algorithm
// registered as "op" in the target module.
type Algorithm interface {
	// Exec performs the operation.
	//
	// The values are the action's properties with variables
	// substituted.  A returned error sets the module's status to
	// failed.
	Exec(m *Module, action *chunks.Chunk, values *chunks.Props, bs match.Bindings) error
}

// AlgorithmFunc makes an Algorithm from a function.
type AlgorithmFunc func(m *Module, action *chunks.Chunk, values *chunks.Props, bs match.Bindings) error

func (f AlgorithmFunc) Exec(m *Module, action *chunks.Chunk, values *chunks.Props, bs match.Bindings) error {
	return f(m, action, values, bs)
}

// Algorithms maps operation names to Algorithms.
type Algorithms map[string]Algorithm

func NewAlgorithms() Algorithms {
	return make(Algorithms, 8)
}

// Merge adds (or replaces) the given Algorithms.
func (as Algorithms) Merge(more Algorithms) Algorithms {
	for name, a := range more {
		as[name] = a
	}
	return as
}
