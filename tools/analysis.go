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

// Package tools renders and checks rule graphs.
package tools

import (
	"fmt"
	"sort"

	"github.com/Comcast/chunks/chunks"
	"github.com/Comcast/chunks/match"
)

// Analysis summarizes a graph's rules and notes some problems.
type Analysis struct {
	Errors []string

	Rules      int
	Conditions int
	Negated    int
	Actions    int

	// Modules are the modules that conditions or actions name.
	Modules []string

	// Operations are the @do operations that actions use.
	Operations []string

	// Unbound lists "rule: ?var" for action variables that no
	// positive condition binds.
	Unbound []string

	// Unfed lists the rules with a goal condition that no
	// rule's action can produce.  Such a rule can only fire
	// from outside input.
	Unfed []string
}

// Edge says an action of rule From can write a chunk that a
// condition of rule To matches.
type Edge struct {
	From   string
	To     string
	Module string
	Type   string
}

// Label returns "module.type".
func (e *Edge) Label() string {
	return e.Module + "." + e.Type
}

type part struct {
	module string
	typ    string
}

func partOf(c *chunks.Chunk) part {
	return part{
		module: match.ModuleOf(c),
		typ:    c.Type,
	}
}

func (p part) feeds(q part) bool {
	if p.module != q.module {
		return false
	}
	w := string(chunks.Wildcard)
	return p.typ == q.typ || p.typ == w || q.typ == w
}

// Flow computes the edges between the graph's rules in rule order.
// Actions that only read (get, next) still feed the module's buffer
// and so make edges.
func Flow(g *chunks.Graph) ([]*Edge, error) {
	rules := g.Rules()
	writes := make([][]part, len(rules))
	reads := make([][]part, len(rules))
	for i, r := range rules {
		conds, negated, actions, err := g.RuleParts(r)
		if err != nil {
			return nil, err
		}
		for j, c := range conds {
			if !negated[j] {
				reads[i] = append(reads[i], partOf(c))
			}
		}
		for _, a := range actions {
			writes[i] = append(writes[i], partOf(a))
		}
	}

	var acc []*Edge
	seen := make(map[Edge]bool)
	for i, from := range rules {
		for j, to := range rules {
			for _, w := range writes[i] {
				for _, r := range reads[j] {
					if !w.feeds(r) {
						continue
					}
					e := Edge{
						From:   from.ID,
						To:     to.ID,
						Module: r.module,
						Type:   r.typ,
					}
					if seen[e] {
						continue
					}
					seen[e] = true
					acc = append(acc, &e)
				}
			}
		}
	}
	return acc, nil
}

func vars(v chunks.Value, acc map[string]bool) {
	switch vv := v.(type) {
	case chunks.Var:
		acc[string(vv)] = true
	case chunks.List:
		for _, x := range vv {
			vars(x, acc)
		}
	}
}

func keys(m map[string]bool) []string {
	acc := make([]string, 0, len(m))
	for k := range m {
		acc = append(acc, k)
	}
	sort.Strings(acc)
	return acc
}

// Analyze examines the graph's rules.
func Analyze(g *chunks.Graph) (*Analysis, error) {
	a := &Analysis{
		Errors: make([]string, 0, 8),
	}

	modules := make(map[string]bool)
	ops := make(map[string]bool)
	produced := make(map[part]bool)

	type goal struct {
		rule string
		p    part
	}
	var goals []goal

	for _, r := range g.Rules() {
		a.Rules++
		conds, negated, actions, err := g.RuleParts(r)
		if err != nil {
			a.Errors = append(a.Errors, err.Error())
			continue
		}

		bound := make(map[string]bool)
		for i, c := range conds {
			a.Conditions++
			modules[match.ModuleOf(c)] = true
			if negated[i] {
				a.Negated++
				continue
			}
			c.Props.Each(func(_ string, v chunks.Value) bool {
				vars(v, bound)
				return true
			})
			if match.ModuleOf(c) == match.DefaultModule {
				goals = append(goals, goal{rule: r.ID, p: partOf(c)})
			}
		}

		for _, act := range actions {
			a.Actions++
			modules[match.ModuleOf(act)] = true
			produced[partOf(act)] = true

			do := "update"
			if v, have := act.Props.Get(match.DoProp); have {
				do = v.String()
			}
			ops[do] = true

			switch do {
			case "get", "next", "delete":
				// These can bind.
				continue
			}
			used := make(map[string]bool)
			act.Props.Each(func(_ string, v chunks.Value) bool {
				vars(v, used)
				return true
			})
			for _, name := range keys(used) {
				if !bound[name] {
					a.Unbound = append(a.Unbound, fmt.Sprintf("%s: ?%s", r.ID, name))
				}
			}
		}
	}

	unfed := make(map[string]bool)
	for _, gl := range goals {
		fed := false
		for p := range produced {
			if p.feeds(gl.p) {
				fed = true
				break
			}
		}
		if !fed {
			unfed[gl.rule] = true
		}
	}

	a.Modules = keys(modules)
	a.Operations = keys(ops)
	a.Unfed = keys(unfed)

	return a, nil
}
