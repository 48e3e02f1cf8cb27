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
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Comcast/chunks/chunks"
	"github.com/Comcast/chunks/engine"
	"github.com/Comcast/chunks/match"
	"github.com/Comcast/chunks/util/testutil"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"
)

// chanCouplings are Couplings for tests.
type chanCouplings struct {
	in   chan *Input
	out  chan *Output
	done chan bool
}

func newChanCouplings(outBuf int) *chanCouplings {
	return &chanCouplings{
		in:   make(chan *Input),
		out:  make(chan *Output, outBuf),
		done: make(chan bool),
	}
}

func (c *chanCouplings) Start(context.Context) error { return nil }

func (c *chanCouplings) IO(context.Context) (chan *Input, chan *Output, chan bool, error) {
	return c.in, c.out, c.done, nil
}

func (c *chanCouplings) Stop(context.Context) error { return nil }

func console() engine.Algorithms {
	as := engine.NewAlgorithms()
	as["log"] = engine.AlgorithmFunc(func(m *engine.Module, action *chunks.Chunk, values *chunks.Props, bs match.Bindings) error {
		v, _ := values.Get("value")
		m.Engine().Logf("%s", v)
		return nil
	})
	return as
}

func testEngine(t *testing.T, rules string) *engine.Engine {
	t.Helper()
	conf := engine.DefaultConf()
	conf.Seed = 1
	e := engine.NewEngine(conf, nil)
	e.Log = nil
	e.AddModule(engine.RulesModule, testutil.MustParse(t, rules), nil)
	e.AddModule("console", nil, console())
	return e
}

// collect gathers Outputs until the nil sentinel or the context is
// done.
func collect(ctx context.Context, out chan *Output) (func() []*Output, chan struct{}) {
	var (
		lock sync.Mutex
		acc  []*Output
		done = make(chan struct{})
	)
	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case o := <-out:
				if o == nil {
					return
				}
				lock.Lock()
				acc = append(acc, o)
				lock.Unlock()
			}
		}
	}()
	return func() []*Output {
		lock.Lock()
		defer lock.Unlock()
		return append([]*Output(nil), acc...)
	}, done
}

func logs(outputs []*Output) []string {
	var acc []string
	for _, o := range outputs {
		if o.Log != "" {
			acc = append(acc, o.Log)
		}
	}
	return acc
}

func TestHostProcess(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	e := engine.NewEngine(nil, nil)
	c := newChanCouplings(16)
	h, err := NewHost(ctx, e, nil, c, nil)
	if err != nil {
		t.Fatal(err)
	}

	t.Run("graph", func(t *testing.T) {
		if err := h.Process(&Input{Module: "facts", Graph: "color {name red}\ncolor {name blue}"}); err != nil {
			t.Fatal(err)
		}
		m, have := e.Modules["facts"]
		if !have {
			t.Fatal("no facts module")
		}
		if n := len(m.Graph.Chunks); n != 2 {
			t.Fatal(n)
		}
	})

	t.Run("goal", func(t *testing.T) {
		if err := h.Process(&Input{Chunk: "count {n 1}"}); err != nil {
			t.Fatal(err)
		}
		goal := e.Buffer(engine.GoalModule)
		if goal == nil || goal.Type != "count" {
			t.Fatal(goal)
		}
		o := <-c.out
		if o.Module != engine.GoalModule || o.Buffer == "" {
			t.Fatal(o)
		}
	})

	t.Run("buffer", func(t *testing.T) {
		if err := h.Process(&Input{Module: "facts", Chunk: "color {name green}"}); err != nil {
			t.Fatal(err)
		}
		if buf := e.Buffer("facts"); buf == nil || buf.Type != "color" {
			t.Fatal(buf)
		}
		if o := <-c.out; o.Module != "facts" {
			t.Fatal(o)
		}
	})

	t.Run("nomodule", func(t *testing.T) {
		err := h.Process(&Input{Module: "nope", Chunk: "x {}"})
		if !errors.Is(err, engine.ErrNoModule) {
			t.Fatal(err)
		}
	})

	t.Run("syntax", func(t *testing.T) {
		if err := h.Process(&Input{Module: "facts", Graph: "color {name"}); err == nil {
			t.Fatal("should have complained")
		}
	})

	t.Run("timers", func(t *testing.T) {
		m, have := e.Modules[TimersModule]
		if !have {
			t.Fatal("no timers module")
		}
		for _, op := range []string{"add", "cron", "cancel"} {
			if _, have := m.Algorithms[op]; !have {
				t.Fatal(op)
			}
		}
	})
}

func TestHostWatch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	e := engine.NewEngine(nil, nil)
	e.AddModule("a", nil, nil)
	e.AddModule("b", nil, nil)
	c := newChanCouplings(16)
	if _, err := NewHost(ctx, e, &HostConf{Watch: []string{"b"}}, c, nil); err != nil {
		t.Fatal(err)
	}

	e.Modules["a"].WriteBuffer(chunks.NewChunk("x", ""))
	e.Modules["b"].WriteBuffer(chunks.NewChunk("y", ""))
	e.Modules["b"].ClearBuffer()

	var got []Output
	for len(c.out) > 0 {
		got = append(got, *<-c.out)
	}
	want := []Output{
		{Module: "b", Buffer: "y {}"},
		{Module: "b", Cleared: true},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatal(diff)
	}
}

func TestHostHaltOnInputEOF(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	conf := engine.DefaultConf()
	conf.Seed = 1
	e := engine.NewEngine(conf, nil)
	e.Log = nil
	e.AddModule("facts", testutil.MustRead(t, "../testdata/counting/facts.chk"), nil)
	e.AddModule(engine.RulesModule, testutil.MustRead(t, "../testdata/counting/rules.chk"), nil)
	e.AddModule("console", nil, console())

	c := newChanCouplings(0)
	h, err := NewHost(ctx, e, &HostConf{
		HaltOnInputEOF: true,
		Watch:          []string{"nothing"},
	}, c, nil)
	if err != nil {
		t.Fatal(err)
	}

	outputs, collected := collect(ctx, c.out)

	looped := make(chan error)
	go func() {
		looped <- h.Loop(ctx)
	}()

	c.in <- &Input{Chunk: "count {state start; start 3; end 8}"}
	close(c.done)

	select {
	case err := <-looped:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("loop didn't halt")
	}
	<-collected

	want := []string{"3", "4", "5", "6", "7", "8", "no matching rules"}
	if diff := cmp.Diff(want, logs(outputs())); diff != "" {
		t.Fatal(diff)
	}
}

func TestHostTimers(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithCancel(context.Background())

	e := testEngine(t, `
go {}
  => timer {@module timers; @do add; id t1; in 0.05; to goal; chunk "ping {}"},
     timer {@module timers; @do add; id t2; in 10; chunk "never {}"},
     timer {@module timers; @do cancel; id t2}

ping {}
  => console {@module console; @do log; value pong}
`)

	c := newChanCouplings(0)
	h, err := NewHost(ctx, e, &HostConf{Watch: []string{"nothing"}}, c, nil)
	if err != nil {
		t.Fatal(err)
	}

	outputs, collected := collect(ctx, c.out)

	looped := make(chan error)
	go func() {
		looped <- h.Loop(ctx)
	}()

	if !h.Timers.Wait(time.Second) {
		t.Fatal("timers not running")
	}

	c.in <- &Input{Chunk: "go {}"}

	deadline := time.Now().Add(5 * time.Second)
	for {
		heard := false
		for _, s := range logs(outputs()) {
			if s == "pong" {
				heard = true
			}
		}
		if heard {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal(outputs())
		}
		time.Sleep(10 * time.Millisecond)
	}

	if n := len(h.Timers.Pending()); n != 0 {
		t.Fatalf("%d pending timers", n)
	}

	cancel()
	if err := <-looped; err != nil {
		t.Fatal(err)
	}
	<-collected
}

func TestTimerAlgorithmErrors(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	e := testEngine(t, `go {}`)
	h, err := NewHost(ctx, e, nil, newChanCouplings(16), nil)
	if err != nil {
		t.Fatal(err)
	}
	m := e.Modules[TimersModule]
	as := h.TimerAlgorithms()

	exec := func(op string, src string) error {
		action := testutil.MustChunk(t, src)
		return as[op].Exec(m, action, &action.Props, match.Bindings{})
	}

	if err := exec("add", `timer {in 1; chunk "x {}"}`); err != ErrNoTimerId {
		t.Fatal(err)
	}
	if err := exec("add", `timer {id t1; chunk "x {}"}`); err == nil {
		t.Fatal("should have wanted a time")
	}
	if err := exec("add", `timer {id t1; in 1; chunk "x {"}`); err == nil {
		t.Fatal("should have rejected the chunk")
	}
	if err := exec("cron", `timer {id c1; schedule "bogus"; chunk "x {}"}`); err == nil {
		t.Fatal("should have rejected the schedule")
	}
	if err := exec("cancel", `timer {}`); err != ErrNoTimerId {
		t.Fatal(err)
	}
}
