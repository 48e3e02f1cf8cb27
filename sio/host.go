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

package sio

import (
	"context"
	"sync"

	"github.com/Comcast/chunks/chunks"
	"github.com/Comcast/chunks/engine"
	"github.com/Comcast/chunks/timers"

	"go.uber.org/zap"
)

// DefaultMaxTimers is the default for HostConf.MaxTimers.
var DefaultMaxTimers = 256

// HostConf provides some basic Host parameters.
type HostConf struct {
	// HaltOnInputEOF stops the Loop, after the engine is quiet,
	// when the Couplings report the end of input.
	HaltOnInputEOF bool `json:"haltOnInputEOF" yaml:"haltOnInputEOF"`

	// Watch lists the modules whose buffer changes are output.
	// Empty means every module.
	Watch []string `json:"watch,omitempty" yaml:"watch,omitempty"`

	// MaxTimers limits the pending timers.
	MaxTimers int `json:"maxTimers,omitempty" yaml:"maxTimers,omitempty"`
}

// Host runs an engine with its input and output coupled via two
// channels.
type Host struct {
	Engine *engine.Engine

	Conf *HostConf

	Logger *zap.Logger

	// Timers implements the timers module.
	Timers *timers.Timers

	// Algorithms, if not nil, provides the algorithms for a
	// module that an Input creates.
	Algorithms func(module string) engine.Algorithms

	ctx   context.Context
	in    chan *Input
	out   chan *Output
	done  chan bool
	watch map[string]bool
}

// NewHost makes a host for the engine with the given configuration
// and couplings.
//
// The coupling's IO() method is called to obtain the host's in/out
// channels.  The engine's Log and OnBuffer are redirected to the
// output, and the engine gets a timers module.
func NewHost(ctx context.Context, e *engine.Engine, conf *HostConf, couplings Couplings, logger *zap.Logger) (*Host, error) {
	in, out, done, err := couplings.IO(ctx)
	if err != nil {
		return nil, err
	}
	if conf == nil {
		conf = &HostConf{}
	}
	if conf.MaxTimers <= 0 {
		conf.MaxTimers = DefaultMaxTimers
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	h := &Host{
		Engine: e,
		Conf:   conf,
		Logger: logger,
		Timers: timers.NewTimers(conf.MaxTimers, logger.Named("timers")),
		ctx:    ctx,
		in:     in,
		out:    out,
		done:   done,
	}

	if 0 < len(conf.Watch) {
		h.watch = make(map[string]bool, len(conf.Watch))
		for _, name := range conf.Watch {
			h.watch[name] = true
		}
	}

	if m, have := e.Modules[TimersModule]; have {
		m.Algorithms = m.Algorithms.Merge(h.TimerAlgorithms())
	} else {
		e.AddModule(TimersModule, nil, h.TimerAlgorithms())
	}

	sink := e.Log
	e.Log = func(msg string) {
		if sink != nil {
			sink(msg)
		}
		h.emit(&Output{Log: msg})
	}
	e.OnBuffer = h.buffered

	return h, nil
}

func (h *Host) emit(o *Output) {
	select {
	case <-h.ctx.Done():
	case h.out <- o:
	}
}

func (h *Host) buffered(module string, c *chunks.Chunk) {
	if h.watch != nil && !h.watch[module] {
		return
	}
	if c == nil {
		h.emit(&Output{Module: module, Cleared: true})
		return
	}
	h.emit(&Output{Module: module, Buffer: c.String()})
}

func (h *Host) algorithms(module string) engine.Algorithms {
	if h.Algorithms == nil {
		return nil
	}
	return h.Algorithms(module)
}

// Process applies the Input to the engine and then runs a cycle if
// the engine has rules.
//
// Call Process on the engine's goroutine.
func (h *Host) Process(in *Input) error {
	e := h.Engine

	name := in.Module
	if name == "" {
		name = engine.GoalModule
	}

	if in.Graph != "" {
		m, have := e.Modules[name]
		if !have {
			m = e.AddModule(name, nil, h.algorithms(name))
		}
		if err := m.Graph.Parse(in.Graph); err != nil {
			return err
		}
	}

	if in.Chunk != "" {
		_, have := e.Modules[name]
		if !have && name == engine.GoalModule {
			if err := e.SetGoal(in.Chunk); err != nil {
				return err
			}
		} else if err := e.PushBuffer(name, in.Chunk); err != nil {
			return err
		}
	}

	if _, have := e.Modules[engine.RulesModule]; have && !e.Conf.SingleStep {
		e.Run()
	}

	return nil
}

// Loop processes Inputs until the context is done.  The engine's
// Scheduler and the Timers run while the Loop runs.
//
// With HaltOnInputEOF, the Loop returns when the Couplings report
// the end of input and the engine is quiet.
func (h *Host) Loop(ctx context.Context) error {
	h.Logger.Info("Host.Loop starting")

	var (
		serveCtx, stopServing = context.WithCancel(ctx)
		timersCtx, stopTimers = context.WithCancel(ctx)
		serving, timing       sync.WaitGroup
		halt                  bool
	)

	serving.Add(1)
	go func() {
		defer serving.Done()
		h.Engine.Scheduler.Serve(serveCtx)
	}()

	timing.Add(1)
	go func() {
		defer timing.Done()
		h.Timers.Run(timersCtx)
	}()

	done := h.done
LOOP:
	for {
		select {
		case <-done:
			done = nil
			if h.Conf.HaltOnInputEOF {
				h.Logger.Info("Host.Loop shutting down (input done)")
				halt = true
				break LOOP
			}
		case <-ctx.Done():
			h.Logger.Info("Host.Loop shutting down (ctx.Done)")
			break LOOP
		case in := <-h.in:
			if in == nil {
				break LOOP
			}
			h.Engine.Do(func(e *engine.Engine) {
				if err := h.Process(in); err != nil {
					h.Logger.Warn("input", zap.Error(err))
					h.emit(&Output{Err: err.Error()})
				}
			})
		}
	}

	stopServing()
	serving.Wait()

	var err error
	if halt {
		_, err = h.Engine.RunUntilQuiet(ctx)
	}

	stopTimers()
	timing.Wait()

	select {
	case <-ctx.Done():
	case h.out <- nil:
	}

	h.Logger.Info("Host.Loop done")
	return err
}
