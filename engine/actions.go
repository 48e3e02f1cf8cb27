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
	"fmt"

	"github.com/Comcast/chunks/chunks"
	"github.com/Comcast/chunks/match"

	"go.uber.org/zap"
)

// Action properties with fixed meanings.
const (
	ForProp     = "@for"
	ToProp      = "@to"
	PushProp    = "@push"
	PopProp     = "@pop"
	ShiftProp   = "@shift"
	UnshiftProp = "@unshift"
	EnterProp   = "@enter"
	LeaveProp   = "@leave"
)

// DefaultTo is the property that @pop and @shift write when the
// action has no @to.
var DefaultTo = "value"

// control properties direct an action and are never written.
var control = map[string]bool{
	match.ModuleProp:   true,
	match.DoProp:       true,
	match.PriorityProp: true,
	match.AllProp:      true,
	chunks.IDProp:      true,
	ForProp:            true,
	ToProp:             true,
	PushProp:           true,
	PopProp:            true,
	ShiftProp:          true,
	UnshiftProp:        true,
	EnterProp:          true,
	LeaveProp:          true,
}

// data returns the values that an action writes.
func data(values *chunks.Props) *chunks.Props {
	acc := &chunks.Props{}
	values.Each(func(name string, v chunks.Value) bool {
		if !control[name] {
			acc.Set(name, v)
		}
		return true
	})
	return acc
}

func nameOf(v chunks.Value) string {
	switch vv := v.(type) {
	case chunks.Name:
		return string(vv)
	case chunks.String:
		return string(vv)
	}
	return ""
}

func asList(v chunks.Value) chunks.List {
	switch vv := v.(type) {
	case nil:
		return nil
	case chunks.List:
		return vv
	}
	return chunks.List{v}
}

// apply performs one action of the rule that's firing.
func (e *Engine) apply(action *chunks.Chunk, bs match.Bindings) {
	name := match.ModuleOf(action)
	m, have := e.Modules[name]
	if !have {
		e.Logf("%s: no module %q", action, name)
		return
	}

	do := "update"
	if v, have := action.Value(match.DoProp); have {
		do = nameOf(bs.Subst(v))
	}

	values := &chunks.Props{}
	action.Props.Each(func(name string, v chunks.Value) bool {
		values.Set(name, bs.Subst(v))
		return true
	})

	e.Logger.Debug("action",
		zap.String("module", name),
		zap.String("do", do),
		zap.Stringer("action", action))

	switch do {
	case "get", "next", "delete":
	default:
		var unbound []string
		values.Each(func(_ string, v chunks.Value) bool {
			unbound = append(unbound, bs.Vars(v)...)
			return true
		})
		if len(unbound) > 0 {
			e.Logf("%s: unbound variable ?%s", action, unbound[0])
			m.Status = Failed
			return
		}
	}

	if values.Has(ForProp) && (do == "update" || do == "queue") {
		if e.permitted(m, action) {
			e.fanOut(m, action, values)
		}
		return
	}

	switch do {
	case "update":
		e.update(m, action, values)
	case "clear":
		m.ClearBuffer()
		m.Status = Okay
	case "get":
		e.get(m, action, bs)
	case "next":
		e.next(m, action, bs)
	case "properties":
		e.properties(m, action, values)
	case "put":
		if e.permitted(m, action) {
			e.put(m, action, values)
		}
	case "delete":
		if e.permitted(m, action) {
			e.delete(m, action, bs)
		}
	case "queue":
		if e.permitted(m, action) {
			c := chunks.NewChunk(action.Type, idOf(values))
			c.Props.Merge(data(values))
			m.push(c, priorityOf(action))
			m.Status = Okay
		}
	default:
		alg, have := m.Algorithms[do]
		if !have {
			e.Logf("%s: unknown operation %q", action, do)
			m.Status = Failed
			return
		}
		m.Status = Okay
		if err := alg.Exec(m, action, values, bs); err != nil {
			e.Logf("%s: %v", action, err)
			m.Status = Failed
		}
	}
}

func idOf(values *chunks.Props) string {
	if v, have := values.Get(chunks.IDProp); have {
		return nameOf(v)
	}
	return ""
}

// permitted checks that the module isn't read-only.
func (e *Engine) permitted(m *Module, action *chunks.Chunk) bool {
	if m.ReadOnly {
		e.Logf("%s: module %q is read-only", action, m.Name)
		m.Status = Forbidden
		return false
	}
	return true
}

// update writes the values to a fresh copy of the buffer.
func (e *Engine) update(m *Module, action *chunks.Chunk, values *chunks.Props) {
	var c *chunks.Chunk
	if buf := m.buffer; buf != nil && (buf.Type == action.Type || action.Type == string(chunks.Wildcard)) {
		c = buf.Copy()
	} else if action.Type == string(chunks.Wildcard) {
		e.Logf("%s: no buffer to update", action)
		m.Status = Failed
		return
	} else {
		c = chunks.NewChunk(action.Type, "")
	}
	if id := idOf(values); id != "" {
		c.ID = id
	}

	data(values).Each(func(name string, v chunks.Value) bool {
		if n, is := v.(chunks.Negate); is && n.X == nil {
			c.Props.Delete(name)
		} else {
			c.Props.Set(name, v)
		}
		return true
	})

	if v, have := values.Get(EnterProp); have {
		for _, t := range asList(v) {
			m.Enter(nameOf(t))
		}
	}
	if v, have := values.Get(LeaveProp); have {
		for _, t := range asList(v) {
			m.Leave(nameOf(t))
		}
	}

	if err := lists(c, values); err != nil {
		e.Logf("%s: %v", action, err)
		m.Status = Failed
		return
	}

	m.WriteBuffer(c)
	m.Status = Okay
}

// lists does @push, @unshift, @pop, and @shift.
func lists(c *chunks.Chunk, values *chunks.Props) error {
	to := DefaultTo
	hasTo := false
	if v, have := values.Get(ToProp); have {
		to, hasTo = nameOf(v), true
	}

	for _, op := range []string{PushProp, UnshiftProp} {
		x, have := values.Get(op)
		if !have {
			continue
		}
		if !hasTo {
			return fmt.Errorf("%s needs %s", op, ToProp)
		}
		v, _ := c.Props.Get(to)
		l := append(chunks.List(nil), asList(v)...)
		if op == PushProp {
			l = append(l, x)
		} else {
			l = append(chunks.List{x}, l...)
		}
		c.Props.Set(to, l)
	}

	for _, op := range []string{PopProp, ShiftProp} {
		x, have := values.Get(op)
		if !have {
			continue
		}
		from := nameOf(x)
		v, _ := c.Props.Get(from)
		l := asList(v)
		if len(l) == 0 {
			return fmt.Errorf("%s: %q is empty", op, from)
		}
		var y chunks.Value
		if op == PopProp {
			y, l = l[len(l)-1], l[:len(l)-1]
		} else {
			y, l = l[0], l[1:]
		}
		c.Props.Set(from, append(chunks.List(nil), l...))
		c.Props.Set(to, y)
	}
	return nil
}

// get recalls one chunk into the buffer.
func (e *Engine) get(m *Module, action *chunks.Chunk, bs match.Bindings) {
	q := match.Query(action, bs)
	m.count = len(m.Graph.Find(q))
	c := m.Graph.Get(q)
	if c == nil {
		e.Logf("%s: no match", action)
		m.Status = NoMatch
		return
	}
	m.WriteBuffer(c.Copy())
	m.Status = Okay
}

// next continues the module's iteration, which is derived again
// (with bulk recall) when it's new or exhausted.
func (e *Engine) next(m *Module, action *chunks.Chunk, bs match.Bindings) {
	key := action.ID + "|" + bs.String()
	it := m.iter
	if it == nil || it.key != key || len(it.items) <= it.index {
		it = &iteration{
			key:   key,
			items: m.Graph.GetAll(match.Query(action, bs)),
		}
		m.iter = it
	}
	m.count = len(it.items)
	if len(it.items) == 0 {
		e.Logf("%s: no match", action)
		m.Status = NoMatch
		return
	}

	c := it.items[it.index].Copy()
	it.index++
	c.Props.Set(match.IndexProp, chunks.Number(it.index-1))
	c.Props.Set(match.MoreProp, chunks.Bool(it.index < len(it.items)))
	m.WriteBuffer(c)
	m.Status = Okay
}

// properties queues one chunk per property of the buffer.
func (e *Engine) properties(m *Module, action *chunks.Chunk, values *chunks.Props) {
	buf := m.buffer
	if buf == nil {
		e.Logf("%s: empty buffer", action)
		m.Status = NoMatch
		return
	}
	names := buf.Props.Names()
	priority := priorityOf(action)
	for i, name := range names {
		v, _ := buf.Props.Get(name)
		c := chunks.NewChunk(action.Type, "")
		c.Props.Merge(data(values))
		c.Props.Set("name", chunks.ValueOf(name))
		c.Props.Set("value", v)
		c.Props.Set(match.IndexProp, chunks.Number(i))
		c.Props.Set(match.MoreProp, chunks.Bool(i < len(names)-1))
		m.Enqueue(c, priority)
	}
	m.Status = Okay
}

// fanOut queues one chunk per element of the @for list.
func (e *Engine) fanOut(m *Module, action *chunks.Chunk, values *chunks.Props) {
	v, _ := values.Get(ForProp)
	l := asList(v)
	priority := priorityOf(action)
	for i, x := range l {
		c := chunks.NewChunk(action.Type, "")
		c.Props.Merge(data(values))
		c.Props.Set("value", x)
		c.Props.Set(match.IndexProp, chunks.Number(i))
		c.Props.Set(match.MoreProp, chunks.Bool(i < len(l)-1))
		m.push(c, priority)
	}
	m.Status = Okay
}

func (e *Engine) put(m *Module, action *chunks.Chunk, values *chunks.Props) {
	if _, err := m.Graph.Put(action.Type, data(values), idOf(values)); err != nil {
		e.Logf("%s: %v", action, err)
		m.Status = Failed
		return
	}
	m.Status = Okay
}

func (e *Engine) delete(m *Module, action *chunks.Chunk, bs match.Bindings) {
	n, err := m.Graph.Delete(match.Query(action, bs))
	if err != nil {
		e.Logf("%s: %v", action, err)
		m.Status = Failed
		return
	}
	if n == 0 {
		m.Status = NoMatch
		return
	}
	m.Status = Okay
}
