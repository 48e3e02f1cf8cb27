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

// Package timers manages a set of timers with a single time.Timer.
//
// Pending timers are kept in a list ordered by ascending trigger
// time.  When the head of that list changes, the internal timer is
// replaced with one that waits for the new head.  A Timers instance
// is designed to manage a few hundred timers (not many thousands).
//
// When a timer fires, its work is performed in a new goroutine, so
// it's kinda okay for that work to block.
package timers

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

var (
	NotFound       = errors.New("not found")
	TooMany        = errors.New("too many")
	IdExists       = errors.New("id exists")
	NotRunning     = errors.New("not running")
	AlreadyRunning = errors.New("already running")
)

const (
	notRunning = int32(iota)
	running
)

// Timer represents some work to be done in the future.
type Timer struct {
	// Id is unique across all timers managed by a given Timers
	// instance.
	Id string `json:"id"`

	// F is the work to be performed.
	F func(context.Context, *Timer) `json:"-"`

	// At is the desired time to execute F.
	At time.Time `json:"at"`

	// Executed is written when F is executed.
	Executed time.Time `json:"executed,omitempty"`
}

// Timers is a managed set of Timer instances.
//
// You need to Run the Timers before calling Add.
type Timers struct {
	Max    int         `json:"max"`
	Logger *zap.Logger `json:"-"`

	sync.Mutex
	up      chan struct{}
	backlog []*Timer
	running int32
	ready   chan struct{}
	once    sync.Once
	wg      sync.WaitGroup
}

// NewTimers makes a new instance with the given maximum number of
// pending timers.
func NewTimers(max int, logger *zap.Logger) *Timers {
	initial := max / 4
	if initial < 8 {
		initial = 8
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Timers{
		Max:     max,
		Logger:  logger,
		up:      make(chan struct{}, 1),
		backlog: make([]*Timer, 0, initial),
		ready:   make(chan struct{}),
	}
}

// Run processes timers in the current goroutine until the context
// is done.  Run waits for the work of fired timers to finish before
// returning.
func (ts *Timers) Run(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&ts.running, notRunning, running) {
		return AlreadyRunning
	}
	ts.once.Do(func() {
		close(ts.ready)
	})

	timer := time.NewTimer(time.Hour)
	timer.Stop()

LOOP:
	for {
		select {
		case <-ctx.Done():
			break LOOP
		case <-ts.up:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			if next, have := ts.head(); have {
				d := time.Until(next)
				ts.Logger.Debug("timers reset", zap.Duration("in", d))
				timer.Reset(d)
			}
		case <-timer.C:
			for _, t := range ts.due(time.Now()) {
				ts.Logger.Debug("timer firing", zap.String("id", t.Id))
				t.Executed = time.Now().UTC()
				ts.wg.Add(1)
				go func(t *Timer) {
					defer ts.wg.Done()
					t.F(ctx, t)
				}(t)
			}
			ts.reset()
		}
	}

	timer.Stop()
	atomic.StoreInt32(&ts.running, notRunning)
	ts.wg.Wait()

	return ctx.Err()
}

// IsRunning reports whether the Run method is currently executing.
func (ts *Timers) IsRunning() bool {
	return atomic.LoadInt32(&ts.running) == running
}

// Wait waits for Run to start.
func (ts *Timers) Wait(timeout time.Duration) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-timer.C:
		return false
	case <-ts.ready:
		return true
	}
}

// Add adds the given timer.
func (ts *Timers) Add(t *Timer) error {
	if !ts.IsRunning() {
		return NotRunning
	}

	ts.Lock()
	defer ts.Unlock()

	if len(ts.backlog) == ts.Max {
		return TooMany
	}
	for _, x := range ts.backlog {
		if x.Id == t.Id {
			return IdExists
		}
	}

	i := sort.Search(len(ts.backlog), func(i int) bool {
		return ts.backlog[i].At.After(t.At)
	})
	ts.backlog = append(ts.backlog, nil)
	copy(ts.backlog[i+1:], ts.backlog[i:])
	ts.backlog[i] = t

	ts.Logger.Debug("timer added",
		zap.String("id", t.Id),
		zap.Int("position", i),
		zap.Int("pending", len(ts.backlog)))

	if i == 0 {
		ts.reset()
	}

	return nil
}

// Rem removes the timer with the given id.
func (ts *Timers) Rem(id string) error {
	if !ts.IsRunning() {
		return NotRunning
	}

	ts.Lock()
	defer ts.Unlock()

	for i, t := range ts.backlog {
		if t.Id == id {
			copy(ts.backlog[i:], ts.backlog[i+1:])
			ts.backlog[len(ts.backlog)-1] = nil
			ts.backlog = ts.backlog[:len(ts.backlog)-1]
			ts.Logger.Debug("timer removed", zap.String("id", id))
			if i == 0 {
				ts.reset()
			}
			return nil
		}
	}

	return NotFound
}

// Pending returns the ids of the pending timers, soonest first.
func (ts *Timers) Pending() []string {
	ts.Lock()
	defer ts.Unlock()
	acc := make([]string, len(ts.backlog))
	for i, t := range ts.backlog {
		acc[i] = t.Id
	}
	return acc
}

// reset nudges Run to replace its internal timer.
func (ts *Timers) reset() {
	select {
	case ts.up <- struct{}{}:
	default:
	}
}

func (ts *Timers) head() (time.Time, bool) {
	ts.Lock()
	defer ts.Unlock()
	if len(ts.backlog) == 0 {
		return time.Time{}, false
	}
	return ts.backlog[0].At, true
}

// due removes and returns the timers that should fire by now.
func (ts *Timers) due(now time.Time) []*Timer {
	ts.Lock()
	defer ts.Unlock()
	n := 0
	for n < len(ts.backlog) && !ts.backlog[n].At.After(now) {
		n++
	}
	acc := make([]*Timer, n)
	copy(acc, ts.backlog[:n])
	for i := 0; i < n; i++ {
		ts.backlog[i] = nil
	}
	ts.backlog = ts.backlog[n:]
	return acc
}
