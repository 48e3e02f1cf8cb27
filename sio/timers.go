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
	"fmt"
	"time"

	"github.com/Comcast/chunks/chunks"
	"github.com/Comcast/chunks/engine"
	"github.com/Comcast/chunks/match"
	"github.com/Comcast/chunks/timers"

	"github.com/gorhill/cronexpr"
	"go.uber.org/zap"
)

var (
	// TimersModule is the name of the module whose algorithms
	// manage timers.
	TimersModule = "timers"

	// ErrNoTimerId is returned when a timer action has no id.
	ErrNoTimerId = errors.New("timer needs an id")
)

// TimerAlgorithms are the timers module's operations:
//
//	add: push a chunk into a module later.
//	  timer {@module timers; @do add; id t1; in 2s; to goal; chunk "ping {}"}
//	cron: push a chunk into a module on a cron schedule.
//	  timer {@module timers; @do cron; id c1; schedule "*/5 * * * * * *"; chunk "tick {}"}
//	cancel: cancel a pending timer.
//	  timer {@module timers; @do cancel; id t1}
//
// The "in" delay is a number of seconds or a Go duration, and "at"
// is an RFC3339 time.  The target module ("to") defaults to the
// goal module.
func (h *Host) TimerAlgorithms() engine.Algorithms {
	as := engine.NewAlgorithms()
	as["add"] = engine.AlgorithmFunc(h.addTimer)
	as["cron"] = engine.AlgorithmFunc(h.addCron)
	as["cancel"] = engine.AlgorithmFunc(h.cancelTimer)
	return as
}

func text(values *chunks.Props, name string) string {
	v, have := values.Get(name)
	if !have {
		return ""
	}
	switch vv := v.(type) {
	case chunks.String:
		return string(vv)
	case chunks.Name:
		return string(vv)
	default:
		return v.String()
	}
}

// timed is what a timer does when it fires.
type timed struct {
	id    string
	to    string
	chunk string
}

func timedOf(values *chunks.Props) (*timed, error) {
	t := &timed{
		id:    text(values, "id"),
		to:    text(values, "to"),
		chunk: text(values, "chunk"),
	}
	if t.id == "" {
		return nil, ErrNoTimerId
	}
	if t.chunk == "" {
		return nil, fmt.Errorf("timer %s needs a chunk", t.id)
	}
	if _, err := chunks.ParseChunk(t.chunk); err != nil {
		return nil, err
	}
	return t, nil
}

// fire sends the timer's chunk to its module on the engine's
// goroutine.
func (h *Host) fire(t *timed) {
	h.Logger.Debug("timer fired", zap.String("id", t.id), zap.String("to", t.to))
	h.Engine.Do(func(e *engine.Engine) {
		if err := h.Process(&Input{Module: t.to, Chunk: t.chunk}); err != nil {
			e.Logf("timer %s: %v", t.id, err)
		}
	})
}

func delay(values *chunks.Props, now time.Time) (time.Time, error) {
	if v, have := values.Get("in"); have {
		switch vv := v.(type) {
		case chunks.Number:
			return now.Add(time.Duration(float64(vv) * float64(time.Second))), nil
		default:
			d, err := time.ParseDuration(text(values, "in"))
			if err != nil {
				return now, err
			}
			return now.Add(d), nil
		}
	}
	if _, have := values.Get("at"); have {
		return time.Parse(time.RFC3339, text(values, "at"))
	}
	return now, errors.New(`timer needs "in" or "at"`)
}

func (h *Host) addTimer(m *engine.Module, action *chunks.Chunk, values *chunks.Props, bs match.Bindings) error {
	t, err := timedOf(values)
	if err != nil {
		return err
	}
	at, err := delay(values, time.Now())
	if err != nil {
		return err
	}
	return h.Timers.Add(&timers.Timer{
		Id: t.id,
		At: at,
		F: func(context.Context, *timers.Timer) {
			h.fire(t)
		},
	})
}

func (h *Host) addCron(m *engine.Module, action *chunks.Chunk, values *chunks.Props, bs match.Bindings) error {
	t, err := timedOf(values)
	if err != nil {
		return err
	}
	expr, err := cronexpr.Parse(text(values, "schedule"))
	if err != nil {
		return err
	}
	next := expr.Next(time.Now())
	if next.IsZero() {
		return fmt.Errorf("timer %s: schedule has no next time", t.id)
	}

	var f func(context.Context, *timers.Timer)
	f = func(ctx context.Context, _ *timers.Timer) {
		h.fire(t)
		next := expr.Next(time.Now())
		if next.IsZero() {
			return
		}
		err := h.Timers.Add(&timers.Timer{
			Id: t.id,
			At: next,
			F:  f,
		})
		if err != nil {
			h.Logger.Warn("cron", zap.String("id", t.id), zap.Error(err))
		}
	}

	return h.Timers.Add(&timers.Timer{
		Id: t.id,
		At: next,
		F:  f,
	})
}

func (h *Host) cancelTimer(m *engine.Module, action *chunks.Chunk, values *chunks.Props, bs match.Bindings) error {
	id := text(values, "id")
	if id == "" {
		return ErrNoTimerId
	}
	return h.Timers.Rem(id)
}
