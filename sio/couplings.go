/* Copyright 2019 Comcast Cable Communications Management, LLC
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

// Package sio couples an engine to the outside world.
//
// A Host owns an engine and a Couplings, which provides channels for
// in-bound Inputs and out-bound Outputs.  Couplings here talk to
// stdin/stdout, WebSocket clients, and an MQTT broker.
package sio

import (
	"context"
)

// Input is a request to change a module.
type Input struct {
	// Module names the target module.  Empty means the goal
	// module.
	Module string `json:"module,omitempty"`

	// Chunk, in chunk syntax, goes to the module's buffer (or to
	// its queue when the buffer is full).
	Chunk string `json:"chunk,omitempty"`

	// Graph, in chunk syntax, is added to the module's graph.
	// The module is created if necessary.
	Graph string `json:"graph,omitempty"`
}

// Output is something a Host reports.
type Output struct {
	// Log is a line from the engine's log sink.
	Log string `json:"log,omitempty"`

	// Module and Buffer report a buffer change.  Buffer is in
	// chunk syntax.  Cleared is true when the buffer was
	// emptied.
	Module  string `json:"module,omitempty"`
	Buffer  string `json:"buffer,omitempty"`
	Cleared bool   `json:"cleared,omitempty"`

	// Err reports a problem processing an Input.
	Err string `json:"error,omitempty"`
}

// Couplings provide channels for input and output.
type Couplings interface {
	// Start initializes the Couplings.
	Start(context.Context) error

	// IO returns the input and output channels along with a
	// channel that's closed when input is exhausted (or nil).
	IO(context.Context) (chan *Input, chan *Output, chan bool, error)

	// Stop shuts down the Couplings.
	Stop(context.Context) error
}
