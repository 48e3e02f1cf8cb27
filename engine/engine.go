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

// Package engine is a forward-chaining rule engine over modules of
// chunks.
//
// Each cycle finds the rules (in the "rules" module) whose
// conditions match the modules' buffers, picks one at random, and
// applies its actions.  Cycles run one at a time on the Engine's
// Scheduler.
package engine

import (
	"context"
	"fmt"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/Comcast/chunks/chunks"
	"github.com/Comcast/chunks/match"

	"go.uber.org/zap"
)

// Standard module names.
var (
	GoalModule  = "goal"
	RulesModule = "rules"
)

// LogFunc receives soft failures and other notes that a rule author
// might want to see.
type LogFunc func(msg string)

// ZapLog makes a LogFunc that writes to the logger at Info.
func ZapLog(logger *zap.Logger) LogFunc {
	return func(msg string) {
		logger.Info(msg)
	}
}

// Engine owns the modules and runs cycles.
type Engine struct {
	Modules map[string]*Module

	Conf *Conf

	// Log receives soft failures.
	Log LogFunc

	// OnBuffer, if not nil, is called after a module's buffer
	// changes.  The chunk is nil when the buffer was cleared.
	OnBuffer func(module string, c *chunks.Chunk)

	Logger *zap.Logger

	Scheduler *Scheduler

	rand    *rand.Rand
	matcher *match.Matcher

	// matched is the set of modules whose buffers the conditions
	// of the current rule read.
	matched map[string]bool

	// changed records whether the current rule's actions changed
	// any matched buffer.
	changed bool

	scheduled int32
	cycles    int
}

// NewEngine makes an Engine without any modules.  The conf and
// logger can be nil.
func NewEngine(conf *Conf, logger *zap.Logger) *Engine {
	if conf == nil {
		conf = DefaultConf()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	seed := conf.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	e := &Engine{
		Modules:   make(map[string]*Module, 4),
		Conf:      conf,
		Log:       ZapLog(logger),
		Logger:    logger,
		Scheduler: NewScheduler(),
		rand:      rand.New(rand.NewSource(seed)),
	}
	e.matcher = &match.Matcher{State: e}
	return e
}

// Logf formats a line for the Log sink.
func (e *Engine) Logf(format string, args ...interface{}) {
	if e.Log == nil {
		return
	}
	e.Log(fmt.Sprintf(format, args...))
}

// AddModule adds (or replaces) a module.  A nil Graph gets an empty
// one.  The Graph's activation parameters come from the Conf.
func (e *Engine) AddModule(name string, g *chunks.Graph, algorithms Algorithms) *Module {
	if g == nil {
		g = chunks.NewGraph()
	}
	g.Params = e.Conf.Activation.WithDefaults()
	g.Rand = e.rand
	g.Logger = e.Logger.With(zap.String("module", name))
	if algorithms == nil {
		algorithms = NewAlgorithms()
	}
	m := &Module{
		Name:       name,
		Graph:      g,
		Algorithms: algorithms,
		Status:     Pending,
		engine:     e,
	}
	e.Modules[name] = m
	return m
}

// Module returns the named module.
func (e *Engine) Module(name string) (*Module, error) {
	if m, have := e.Modules[name]; have {
		return m, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrNoModule, name)
}

// PushBuffer parses the chunk source and pushes the chunk to the
// module's buffer.
func (e *Engine) PushBuffer(module string, src string) error {
	m, err := e.Module(module)
	if err != nil {
		return err
	}
	c, err := chunks.ParseChunk(src)
	if err != nil {
		return err
	}
	m.PushBuffer(c)
	return nil
}

// SetGoal replaces the goal buffer and schedules a cycle (unless
// single-stepping).  The goal is chunk source or a *chunks.Chunk.
//
// The goal module is created if necessary.
func (e *Engine) SetGoal(goal interface{}) error {
	var c *chunks.Chunk
	switch vv := goal.(type) {
	case string:
		var err error
		if c, err = chunks.ParseChunk(vv); err != nil {
			return err
		}
	case *chunks.Chunk:
		c = vv
	default:
		return ErrBadGoal
	}

	m, have := e.Modules[GoalModule]
	if !have {
		m = e.AddModule(GoalModule, nil, nil)
	}
	m.WriteBuffer(c)
	m.Status = Okay
	e.reschedule()
	return nil
}

// Run schedules a cycle.  Repeated calls while a cycle is scheduled
// are no-ops.
func (e *Engine) Run() {
	if !atomic.CompareAndSwapInt32(&e.scheduled, 0, 1) {
		return
	}
	e.Scheduler.Post(func() {
		atomic.StoreInt32(&e.scheduled, 0)
		if err := e.cycle(); err != nil {
			e.Logger.Error("cycle", zap.Error(err))
			e.Logf("error: %v", err)
		}
	})
}

// Scheduled reports whether a cycle is scheduled.
func (e *Engine) Scheduled() bool {
	return atomic.LoadInt32(&e.scheduled) == 1
}

func (e *Engine) reschedule() {
	if !e.Conf.SingleStep {
		e.Run()
	}
}

// Next runs one cycle now, bypassing the Scheduler.
func (e *Engine) Next() error {
	return e.cycle()
}

// Do runs the function on the Scheduler.  Use Do to reach the
// modules from other goroutines.
func (e *Engine) Do(f func(*Engine)) {
	e.Scheduler.Post(func() {
		f(e)
	})
}

// RunUntilQuiet runs scheduled tasks on the current goroutine until
// none remain.  Returns the number of cycles run.
//
// Returns ErrTooManyCycles after Conf.MaxCycles cycles.
func (e *Engine) RunUntilQuiet(ctx context.Context) (int, error) {
	start := e.cycles
	limit := e.Conf.MaxCycles
	if limit <= 0 {
		limit = DefaultMaxCycles
	}
	for {
		if err := ctx.Err(); err != nil {
			return e.cycles - start, err
		}
		if limit <= e.cycles-start {
			return e.cycles - start, ErrTooManyCycles
		}
		if !e.Scheduler.RunOne() {
			return e.cycles - start, nil
		}
	}
}

// Cycles returns the number of cycles run so far.
func (e *Engine) Cycles() int {
	return e.cycles
}

// cycle matches the rules and applies the actions of one of the
// matches.
func (e *Engine) cycle() error {
	e.cycles++

	rules, have := e.Modules[RulesModule]
	if !have {
		return fmt.Errorf("%w: %q", ErrNoModule, RulesModule)
	}

	matches, err := e.matcher.Rules(rules.Graph)
	if err != nil {
		return err
	}

	if len(matches) == 0 {
		e.Logf("no matching rules")
		if goal, have := e.Modules[GoalModule]; have && goal.PopBuffer() != nil {
			e.reschedule()
		}
		return nil
	}

	chosen := matches[e.rand.Intn(len(matches))]
	if ce := e.Logger.Check(zap.DebugLevel, "firing"); ce != nil {
		s, _ := rules.Graph.RuleString(chosen.Rule, nil)
		ce.Write(zap.Int("matches", len(matches)),
			zap.String("rule", s),
			zap.String("bindings", chosen.Bindings.String()))
	}

	e.matched = make(map[string]bool, len(chosen.Modules))
	for _, name := range chosen.Modules {
		e.matched[name] = true
	}
	e.changed = false

	for _, a := range chosen.Actions {
		e.apply(a, chosen.Bindings)
	}

	if !e.changed {
		if goal, have := e.Modules[GoalModule]; have && goal.buffer != nil {
			goal.buffer = nil
			e.notify(goal)
		}
	}
	e.matched = nil

	e.reschedule()
	return nil
}

// notify calls OnBuffer.
func (e *Engine) notify(m *Module) {
	if e.OnBuffer != nil {
		e.OnBuffer(m.Name, m.buffer)
	}
}

// touched notes a buffer change.
func (e *Engine) touched(module string) {
	if e.matched[module] {
		e.changed = true
	}
}

// Buffer implements match.State.
func (e *Engine) Buffer(module string) *chunks.Chunk {
	if m, have := e.Modules[module]; have {
		return m.buffer
	}
	return nil
}

// Status implements match.State.
func (e *Engine) Status(module string) string {
	if m, have := e.Modules[module]; have {
		return string(m.Status)
	}
	return ""
}

// Count implements match.State.
func (e *Engine) Count(module string) int {
	if m, have := e.Modules[module]; have {
		return m.count
	}
	return 0
}

// Tasks implements match.State.
func (e *Engine) Tasks(module string) []string {
	if m, have := e.Modules[module]; have {
		return m.Tasks()
	}
	return nil
}

// Matches returns the rules that match now without firing any.
func (e *Engine) Matches() ([]*match.Match, error) {
	rules, err := e.Module(RulesModule)
	if err != nil {
		return nil, err
	}
	return e.matcher.Rules(rules.Graph)
}
