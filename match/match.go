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

// Package match implements the condition matcher.
//
// A condition is a chunk that describes a module's buffer chunk.
// Matching is two-phase: Bind binds the condition's variables from
// the buffer, and Test then checks every constraint.
package match

import (
	"strings"
	"time"

	"github.com/Comcast/chunks/chunks"
)

// Condition properties with fixed meanings.
const (
	ModuleProp   = "@module"
	DoProp       = "@do"
	AllProp      = "@all"
	PriorityProp = "@priority"
	StatusProp   = "@status"
	CountProp    = "@count"
	MoreProp     = "@more"
	IndexProp    = "@index"
	TaskProp     = "@task"
	TypeProp     = "@type"
)

// DefaultModule is the module that a condition without @module
// describes.
var DefaultModule = "goal"

// State gives the matcher the current state of the modules.
type State interface {
	// Buffer returns the module's buffer chunk, which is nil if
	// the buffer is empty or the module doesn't exist.
	Buffer(module string) *chunks.Chunk

	// Status returns the module's status.
	Status(module string) string

	// Count returns the number of chunks found by the module's
	// last get or next.
	Count(module string) int

	// Tasks returns the module's current tasks.
	Tasks(module string) []string
}

// UnknownConstraint occurs when a condition uses an "@" property
// that has no meaning.
type UnknownConstraint struct {
	Name string
}

func (e *UnknownConstraint) Error() string {
	return `unknown constraint "` + e.Name + `"`
}

// Matcher matches conditions against the State.
type Matcher struct {
	State State
}

// ModuleOf returns the module named by the chunk's @module.
func ModuleOf(c *chunks.Chunk) string {
	if v, have := c.Props.Get(ModuleProp); have {
		switch vv := v.(type) {
		case chunks.Name:
			return string(vv)
		case chunks.String:
			return string(vv)
		}
	}
	return DefaultModule
}

// field returns the buffer's value for a condition property.
func (m *Matcher) field(module string, buf *chunks.Chunk, name string) (chunks.Value, bool) {
	switch name {
	case chunks.IDProp:
		return chunks.Name(buf.ID), true
	case TypeProp:
		return chunks.Name(buf.Type), true
	case StatusProp:
		return chunks.Name(m.State.Status(module)), true
	case CountProp:
		return chunks.Number(m.State.Count(module)), true
	}
	return buf.Props.Get(name)
}

// bindable reports whether Bind considers the property.
func bindable(name string) bool {
	switch name {
	case ModuleProp, DoProp, AllProp, PriorityProp:
		return false
	}
	return true
}

// Bind binds the condition's unbound variables to the corresponding
// values of the module's buffer.  Equality isn't checked here.
//
// For a negated condition, only @status can bind.
//
// Returns false if the buffer is empty or has the wrong type.
func (m *Matcher) Bind(cond *chunks.Chunk, bs Bindings, negated bool) bool {
	module := ModuleOf(cond)
	if negated {
		if v, have := cond.Props.Get(StatusProp); have && bs.Unbound(v) {
			bs.Extend(string(v.(chunks.Var)), chunks.Name(m.State.Status(module)))
		}
		return true
	}

	buf := m.State.Buffer(module)
	if buf == nil {
		return false
	}
	if cond.Type != string(chunks.Wildcard) && cond.Type != buf.Type {
		return false
	}

	cond.Props.Each(func(name string, v chunks.Value) bool {
		if !bindable(name) {
			return true
		}
		got, have := m.field(module, buf, name)
		if !have {
			return true
		}
		bind(bs, v, got)
		return true
	})
	return true
}

func bind(bs Bindings, want, got chunks.Value) {
	switch w := want.(type) {
	case chunks.Var:
		if bs.Unbound(w) {
			bs.Extend(string(w), got)
		}
	case chunks.List:
		l, is := got.(chunks.List)
		if !is || len(l) != len(w) {
			return
		}
		for i := range w {
			bind(bs, w[i], l[i])
		}
	}
}

// Test checks every constraint of the condition against the module's
// buffer.  An unknown "@" constraint is an error.
func (m *Matcher) Test(cond *chunks.Chunk, bs Bindings) (bool, error) {
	module := ModuleOf(cond)
	buf := m.State.Buffer(module)
	if buf == nil {
		return false, nil
	}
	if cond.Type != string(chunks.Wildcard) && cond.Type != buf.Type {
		return false, nil
	}
	if buf.Props.Has(chunks.ContextProp) && !cond.Props.Has(chunks.ContextProp) {
		return false, nil
	}

	var (
		ok  = true
		err error
	)
	cond.Props.Each(func(name string, v chunks.Value) bool {
		ok, err = m.constraint(module, buf, name, bs.Subst(v))
		return ok && err == nil
	})
	if err != nil {
		return false, err
	}
	return ok, nil
}

func (m *Matcher) constraint(module string, buf *chunks.Chunk, name string, want chunks.Value) (bool, error) {
	if !strings.HasPrefix(name, "@") {
		got, have := buf.Props.Get(name)
		return chunks.MatchValue(want, got, have), nil
	}

	switch name {
	case ModuleProp, DoProp, AllProp, PriorityProp:
		return true, nil

	case chunks.IDProp, TypeProp, StatusProp, CountProp:
		got, _ := m.field(module, buf, name)
		return member(want, got), nil

	case MoreProp, chunks.SubjectProp, chunks.ObjectProp, chunks.ContextProp:
		got, have := buf.Props.Get(name)
		return chunks.MatchValue(want, got, have), nil

	case TaskProp:
		if tasks := m.State.Tasks(module); len(tasks) > 0 {
			for _, t := range tasks {
				if member(want, chunks.Name(t)) {
					return true, nil
				}
			}
			return false, nil
		}
		got, have := buf.Props.Get(name)
		return chunks.MatchValue(want, got, have), nil

	case "@gt", "@lt", "@gteq", "@lteq":
		return compare(name, want), nil

	case "@name", "@number", "@boolean", "@string", "@date":
		return guard(name, want), nil
	}

	return false, &UnknownConstraint{Name: name}
}

// member reports whether the value is the wanted value or, if a list
// is wanted, one of its elements.
func member(want, got chunks.Value) bool {
	if l, is := want.(chunks.List); is {
		for _, x := range l {
			if chunks.MatchValue(x, got, true) {
				return true
			}
		}
		return false
	}
	return chunks.MatchValue(want, got, true)
}

// compare checks "a, b" numerically.
func compare(op string, x chunks.Value) bool {
	l, is := x.(chunks.List)
	if !is || len(l) != 2 {
		return false
	}
	a, is := l[0].(chunks.Number)
	if !is {
		return false
	}
	b, is := l[1].(chunks.Number)
	if !is {
		return false
	}
	switch op {
	case "@gt":
		return a > b
	case "@lt":
		return a < b
	case "@gteq":
		return a >= b
	case "@lteq":
		return a <= b
	}
	return false
}

// DateLayouts are the accepted formats for @date.
var DateLayouts = []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02"}

// guard checks the kind of every (bound) value.
func guard(op string, x chunks.Value) bool {
	if l, is := x.(chunks.List); is {
		for _, y := range l {
			if !guard(op, y) {
				return false
			}
		}
		return len(l) > 0
	}
	switch op {
	case "@name":
		n, is := x.(chunks.Name)
		return is && n != chunks.Wildcard
	case "@number":
		_, is := x.(chunks.Number)
		return is
	case "@boolean":
		_, is := x.(chunks.Bool)
		return is
	case "@string":
		_, is := x.(chunks.String)
		return is
	case "@date":
		var s string
		switch vv := x.(type) {
		case chunks.String:
			s = string(vv)
		case chunks.Name:
			s = string(vv)
		default:
			return false
		}
		for _, layout := range DateLayouts {
			if _, err := time.Parse(layout, s); err == nil {
				return true
			}
		}
	}
	return false
}

// Condition matches one condition with both phases.
//
// A negated condition passes if the module's buffer is empty or if
// the condition doesn't match.
func (m *Matcher) Condition(cond *chunks.Chunk, bs Bindings, negated bool) (bool, error) {
	if m.State.Buffer(ModuleOf(cond)) == nil {
		return negated, nil
	}
	if !m.Bind(cond, bs, negated) {
		return false, nil
	}
	ok, err := m.Test(cond, bs)
	if err != nil {
		return false, err
	}
	return ok != negated, nil
}

// Match is a rule whose conditions all pass.
type Match struct {
	Rule       *chunks.Chunk
	Conditions []*chunks.Chunk
	Actions    []*chunks.Chunk
	Bindings   Bindings

	// Modules are the modules whose buffers the non-negated
	// conditions read.
	Modules []string
}

// Rule matches all of the rule's conditions.  Every condition binds
// before any is tested, so a variable can be used in a condition
// before the one that binds it.
func (m *Matcher) Rule(g *chunks.Graph, rule *chunks.Chunk) (*Match, error) {
	conds, negated, actions, err := g.RuleParts(rule)
	if err != nil {
		return nil, err
	}

	bs := NewBindings()
	for i, c := range conds {
		if !negated[i] && m.State.Buffer(ModuleOf(c)) == nil {
			return nil, nil
		}
		if !m.Bind(c, bs, negated[i]) {
			return nil, nil
		}
	}

	var modules []string
	seen := make(map[string]bool)
	for i, c := range conds {
		module := ModuleOf(c)
		var ok bool
		if m.State.Buffer(module) == nil {
			ok = negated[i]
		} else if ok, err = m.Test(c, bs); err != nil {
			return nil, err
		} else {
			ok = ok != negated[i]
		}
		if !ok {
			return nil, nil
		}
		if !negated[i] && !seen[module] {
			seen[module] = true
			modules = append(modules, module)
		}
	}

	return &Match{
		Rule:       rule,
		Conditions: conds,
		Actions:    actions,
		Bindings:   bs,
		Modules:    modules,
	}, nil
}

// Rules returns the matches for every rule in the Graph.
func (m *Matcher) Rules(g *chunks.Graph) ([]*Match, error) {
	var acc []*Match
	for _, r := range g.Rules() {
		match, err := m.Rule(g, r)
		if err != nil {
			return nil, err
		}
		if match != nil {
			acc = append(acc, match)
		}
	}
	return acc, nil
}

// Query makes a Graph query from a pattern chunk such as the action
// of a get.
//
// The pattern's type (unless "*"), its @id, and its plain
// properties (after substitution) become the query.  A chunk with a
// @context is found only by a pattern with a @context.
func Query(pattern *chunks.Chunk, bs Bindings) chunks.Query {
	q := chunks.Query{
		Type:   pattern.Type,
		Values: &chunks.Props{},
	}
	if v, have := pattern.Props.Get(chunks.IDProp); have {
		if n, is := bs.Subst(v).(chunks.Name); is {
			q.ID = string(n)
		}
	}
	pattern.Props.Each(func(name string, v chunks.Value) bool {
		switch name {
		case chunks.SubjectProp, chunks.ObjectProp, chunks.ContextProp:
		default:
			if strings.HasPrefix(name, "@") {
				return true
			}
		}
		q.Values.Set(name, bs.Subst(v))
		return true
	})
	if !pattern.Props.Has(chunks.ContextProp) {
		q.Filter = func(c *chunks.Chunk) bool {
			return !c.Props.Has(chunks.ContextProp)
		}
	}
	return q
}

// Search finds every chunk in the Graph that the pattern describes.
func Search(g *chunks.Graph, pattern *chunks.Chunk, bs Bindings) []*chunks.Chunk {
	return g.Find(Query(pattern, bs))
}
