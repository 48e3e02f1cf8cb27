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

package chunks

import (
	"encoding/json"
	"strings"
)

// FormatOpts controls rendering in chunk syntax.
type FormatOpts struct {
	// Concise puts a chunk on one line.
	Concise bool

	// SubSymbolic adds @strength, @ago, and @usage for chunks in
	// a Graph.
	SubSymbolic bool
}

// Format renders the chunk in chunk syntax.
func (c *Chunk) Format(opts *FormatOpts) string {
	if opts == nil {
		opts = &FormatOpts{}
	}
	if !opts.SubSymbolic && c.IsLink() && (c.ID == "" || IsGensym(c.ID)) {
		return c.Subject() + " " + c.Type + " " + c.Object()
	}
	return c.format(opts, c.ID, &c.Props)
}

func (c *Chunk) format(opts *FormatOpts, id string, props *Props) string {
	var b strings.Builder
	b.WriteString(c.Type)
	if id != "" {
		b.WriteString(" ")
		b.WriteString(id)
	}
	b.WriteString(" {")

	var lines []string
	props.Each(func(name string, v Value) bool {
		lines = append(lines, name+" "+v.String())
		return true
	})
	if opts.SubSymbolic && c.graph != nil {
		now := c.graph.Now()
		lines = append(lines,
			StrengthProp+" "+Number(c.StrengthAt(now)).String(),
			AgoProp+" "+Number(now-c.LastAccessed).String(),
			UsageProp+" "+Number(c.Usage).String())
	}

	switch {
	case len(lines) == 0:
	case opts.Concise:
		b.WriteString(strings.Join(lines, "; "))
	default:
		for _, line := range lines {
			b.WriteString("\n  ")
			b.WriteString(line)
		}
		b.WriteString("\n")
	}
	b.WriteString("}")
	return b.String()
}

// formatPart renders a rule's condition or action.  An @id property
// goes back in the id position.
func (c *Chunk) formatPart(opts *FormatOpts) string {
	id := ""
	props := &c.Props
	if v, have := c.Props.Get(IDProp); have {
		id = v.String()
		props = c.Props.Copy()
		props.Delete(IDProp)
	}
	return c.format(&FormatOpts{Concise: opts.Concise}, id, props)
}

// RuleString renders the rule in rule syntax.
func (g *Graph) RuleString(r *Chunk, opts *FormatOpts) (string, error) {
	if opts == nil {
		opts = &FormatOpts{Concise: true}
	}
	conds, negated, actions, err := g.RuleParts(r)
	if err != nil {
		return "", err
	}
	sep, arrow := ", ", " => "
	if !opts.Concise {
		sep, arrow = ",\n", "\n=> "
	}
	cs := make([]string, len(conds))
	for i, c := range conds {
		cs[i] = c.formatPart(opts)
		if negated[i] {
			cs[i] = "!" + cs[i]
		}
	}
	as := make([]string, len(actions))
	for i, a := range actions {
		as[i] = a.formatPart(opts)
	}
	return strings.Join(cs, sep) + arrow + strings.Join(as, sep), nil
}

// RulesString renders every rule, one per line in concise form.
func (g *Graph) RulesString(opts *FormatOpts) string {
	if opts == nil {
		opts = &FormatOpts{Concise: true}
	}
	var acc []string
	for _, r := range g.Rules() {
		s, err := g.RuleString(r, opts)
		if err != nil {
			s = r.Format(opts)
		}
		acc = append(acc, s)
	}
	return joinStatements(acc, opts)
}

func joinStatements(ss []string, opts *FormatOpts) string {
	if len(ss) == 0 {
		return ""
	}
	sep := "\n"
	if !opts.Concise {
		sep = "\n\n"
	}
	return strings.Join(ss, sep) + "\n"
}

// ruleParts returns the ids of the chunks that rules use as
// conditions or actions.
func (g *Graph) ruleParts() map[string]bool {
	acc := make(map[string]bool)
	for _, r := range g.Rules() {
		for _, prop := range []string{ConditionProp, ActionProp} {
			v, _ := r.Props.Get(prop)
			for _, x := range asList(v) {
				if n, is := x.(Negate); is {
					x = n.X
				}
				if name, is := x.(Name); is {
					acc[string(name)] = true
				}
			}
		}
	}
	return acc
}

// Format renders the Graph in chunk syntax, which Parse can read.
// Rules are rendered in rule syntax.
func (g *Graph) Format(opts *FormatOpts) string {
	if opts == nil {
		opts = &FormatOpts{}
	}
	parts := g.ruleParts()
	var acc []string
	for _, c := range g.All() {
		if parts[c.ID] {
			continue
		}
		if c.Type == RuleType {
			if s, err := g.RuleString(c, opts); err == nil {
				acc = append(acc, s)
				continue
			}
		}
		acc = append(acc, c.Format(opts))
	}
	return joinStatements(acc, opts)
}

// String renders the Graph concisely.
func (g *Graph) String() string {
	return g.Format(&FormatOpts{Concise: true})
}

type jsonChunk struct {
	Type  string                 `json:"type"`
	ID    string                 `json:"id,omitempty"`
	Props map[string]interface{} `json:"props"`

	Strength float64 `json:"strength,omitempty"`
	Usage    float64 `json:"usage,omitempty"`
}

func marshalChunk(c *Chunk) ([]byte, error) {
	jc := jsonChunk{
		Type:  c.Type,
		ID:    c.ID,
		Props: c.Props.Map(),
	}
	if c.graph != nil {
		jc.Strength = c.StrengthAt(c.graph.Now())
		jc.Usage = c.Usage
	}
	return json.Marshal(&jc)
}
