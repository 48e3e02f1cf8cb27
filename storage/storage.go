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

// Package storage persists the modules of an engine as chunk
// syntax.
package storage

import (
	"context"
	"sort"

	"github.com/Comcast/chunks/chunks"
	"github.com/Comcast/chunks/engine"
)

// ModuleState is a presentation of a module as stored in a Storage
// system.
type ModuleState struct {
	// Module is the name of the module.
	Module string `json:"module,omitempty"`

	// Graph is the module's graph in chunk syntax, including the
	// sub-symbolic properties.
	Graph string `json:"graph"`

	// Buffer is the module's buffer in chunk syntax (or empty).
	Buffer string `json:"buffer,omitempty"`

	ReadOnly bool `json:"readOnly,omitempty"`

	// Deleted indicates that this module has been deleted.
	Deleted bool `json:"-" yaml:"-"`
}

// Storage is a persistence interface for the modules of named
// hosts.
type Storage interface {
	Open(ctx context.Context) error

	Close(ctx context.Context) error

	MakeHost(ctx context.Context, name string) error

	RemHost(ctx context.Context, name string) error

	GetHost(ctx context.Context, name string) ([]*ModuleState, error)

	WriteState(ctx context.Context, name string, mss []*ModuleState) error
}

var snapshotOpts = &chunks.FormatOpts{
	SubSymbolic: true,
}

// Snapshot captures every module of the engine in module name
// order.
//
// Call Snapshot on the engine's goroutine (see engine.Engine.Do)
// or when the engine is idle.
func Snapshot(e *engine.Engine) []*ModuleState {
	names := make([]string, 0, len(e.Modules))
	for name := range e.Modules {
		names = append(names, name)
	}
	sort.Strings(names)

	acc := make([]*ModuleState, 0, len(names))
	for _, name := range names {
		m := e.Modules[name]
		ms := &ModuleState{
			Module:   name,
			Graph:    m.Graph.Format(snapshotOpts),
			ReadOnly: m.ReadOnly,
		}
		if buf := m.Buffer(); buf != nil {
			ms.Buffer = buf.String()
		}
		acc = append(acc, ms)
	}
	return acc
}

// Restore adds (or replaces) modules from their stored states.  The
// given function, if not nil, provides each module's algorithms.
func Restore(e *engine.Engine, mss []*ModuleState, algorithms func(module string) engine.Algorithms) error {
	for _, ms := range mss {
		if ms.Deleted {
			delete(e.Modules, ms.Module)
			continue
		}
		g, err := chunks.ParseGraph(ms.Graph)
		if err != nil {
			return err
		}
		var as engine.Algorithms
		if algorithms != nil {
			as = algorithms(ms.Module)
		}
		m := e.AddModule(ms.Module, g, as)
		m.ReadOnly = ms.ReadOnly
		m.Status = engine.Okay
		if ms.Buffer != "" {
			c, err := chunks.ParseChunk(ms.Buffer)
			if err != nil {
				return err
			}
			m.WriteBuffer(c)
		}
	}
	return nil
}
