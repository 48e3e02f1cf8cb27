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

// IDProp in a rule's condition or action constrains or names the
// buffer chunk's id.  The parser moves an id written in a condition
// or action into this property.
const IDProp = "@id"

type rule struct {
	conds   []*Chunk
	negated []bool
	actions []*Chunk
	line    int
}

// statement is a chunk, a link, or a rule.
type statement struct {
	chunk *Chunk
	rule  *rule
}

type parser struct {
	toks []token
	pos  int
}

func (p *parser) peek() token {
	return p.toks[p.pos]
}

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tEOF {
		p.pos++
	}
	return t
}

func (p *parser) skipNewlines() {
	for p.peek().kind == tNewline {
		p.pos++
	}
}

func (p *parser) errorf(t token, msg string) error {
	return &SyntaxError{Line: t.line, Column: t.col, Msg: msg}
}

func (p *parser) expected(what string, t token) error {
	return p.errorf(t, "expected "+what+", got "+t.describe())
}

// Parse adds every chunk, link, and rule in the source to the
// Graph.  Nothing is added if the source has an error.
func (g *Graph) Parse(src string) error {
	stmts, err := parse(src)
	if err != nil {
		return err
	}
	g.reserved = make(map[string]bool)
	defer func() { g.reserved = nil }()
	for _, s := range stmts {
		if s.chunk != nil && s.chunk.ID != "" {
			g.reserved[s.chunk.ID] = true
		}
	}
	for _, s := range stmts {
		if s.chunk != nil {
			if _, err := g.Add(s.chunk); err != nil {
				return err
			}
			continue
		}
		if _, err := g.addRule(s.rule); err != nil {
			return err
		}
	}
	return nil
}

// ParseChunk parses exactly one chunk, which is not added to the
// Graph.
func (g *Graph) ParseChunk(src string) (*Chunk, error) {
	return ParseChunk(src)
}

// ParseChunk parses exactly one chunk.
func ParseChunk(src string) (*Chunk, error) {
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	p.skipNewlines()
	c, err := p.chunk()
	if err != nil {
		return nil, err
	}
	p.skipNewlines()
	if t := p.peek(); t.kind != tEOF {
		return nil, p.expected("end of input", t)
	}
	return c, nil
}

func parse(src string) ([]statement, error) {
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	var acc []statement
	for {
		p.skipNewlines()
		t := p.peek()
		if t.kind == tEOF {
			return acc, nil
		}
		s, err := p.statement()
		if err != nil {
			return nil, err
		}
		acc = append(acc, s)
	}
}

func (p *parser) statement() (statement, error) {
	t := p.peek()
	if t.is("!") {
		r, err := p.rule(nil, t.line)
		return statement{rule: r}, err
	}
	if t.kind != tWord {
		return statement{}, p.expected("a chunk, link, or rule", t)
	}

	// Link: subject predicate object.
	if p.pos+2 < len(p.toks) && p.toks[p.pos+1].kind == tWord && p.toks[p.pos+2].kind == tWord {
		s, pred, o := p.next(), p.next(), p.next()
		if err := p.lineBreak("link"); err != nil {
			return statement{}, err
		}
		return statement{chunk: NewLink(s.text, pred.text, o.text)}, nil
	}

	c, err := p.chunk()
	if err != nil {
		return statement{}, err
	}

	mark := p.pos
	p.skipNewlines()
	if u := p.peek(); u.is(",") || u.is("=>") {
		p.pos = mark
		r, err := p.rule(c, t.line)
		return statement{rule: r}, err
	}
	p.pos = mark
	if err := p.lineBreak("chunk"); err != nil {
		return statement{}, err
	}
	return statement{chunk: c}, nil
}

// lineBreak requires the end of a line (or of the input) after a
// statement.
func (p *parser) lineBreak(what string) error {
	if t := p.peek(); t.kind != tNewline && t.kind != tEOF {
		return p.expected("line break after "+what, t)
	}
	return nil
}

// rule parses the rest of a rule.  The first condition is given if
// it's already been parsed.
func (p *parser) rule(first *Chunk, line int) (*rule, error) {
	r := &rule{line: line}
	if first != nil {
		r.conds = append(r.conds, first)
		r.negated = append(r.negated, false)
	} else if err := p.condition(r); err != nil {
		return nil, err
	}

	for {
		p.skipNewlines()
		t := p.next()
		if t.is("=>") {
			break
		}
		if !t.is(",") {
			return nil, p.expected(`"," or "=>"`, t)
		}
		p.skipNewlines()
		if err := p.condition(r); err != nil {
			return nil, err
		}
	}

	if p.peek().kind != tWord {
		return nil, &MissingAction{Line: r.line}
	}
	for {
		c, err := p.chunk()
		if err != nil {
			return nil, err
		}
		r.actions = append(r.actions, c)

		mark := p.pos
		p.skipNewlines()
		if !p.peek().is(",") {
			p.pos = mark
			if err := p.lineBreak("rule"); err != nil {
				return nil, err
			}
			return r, nil
		}
		p.next()
		p.skipNewlines()
	}
}

func (p *parser) condition(r *rule) error {
	negated := false
	if p.peek().is("!") {
		p.next()
		negated = true
	}
	c, err := p.chunk()
	if err != nil {
		return err
	}
	r.conds = append(r.conds, c)
	r.negated = append(r.negated, negated)
	return nil
}

// chunk parses "type [id] { ... }".
func (p *parser) chunk() (*Chunk, error) {
	t := p.next()
	if t.kind != tWord {
		return nil, p.expected("a chunk type", t)
	}
	c := NewChunk(t.text, "")
	switch u := p.peek(); u.kind {
	case tWord:
		c.ID = p.next().text
	case tVar:
		p.next()
		c.ID = "?" + u.text
	}
	if u := p.next(); !u.is("{") {
		return nil, p.expected(`"{"`, u)
	}
	if err := p.body(c); err != nil {
		return nil, err
	}
	return c, nil
}

func (p *parser) body(c *Chunk) error {
	for {
		t := p.next()
		switch {
		case t.kind == tNewline || t.is(";"):
			continue
		case t.is("}"):
			return p.seed(c)
		case t.kind == tEOF:
			return p.errorf(t, `missing "}"`)
		case t.kind != tWord:
			return p.expected("a property name", t)
		}

		v, err := p.values()
		if err != nil {
			return err
		}
		if u := p.peek(); u.kind != tNewline && !u.is(";") && !u.is("}") {
			return p.expected(`";", "}", or a line break after a value`, u)
		}
		c.Props.Set(t.text, v)
	}
}

// values parses "value[, value]*".
func (p *parser) values() (Value, error) {
	v, err := p.value()
	if err != nil {
		return nil, err
	}
	if !p.peek().is(",") {
		return v, nil
	}
	l := List{v}
	for p.peek().is(",") {
		p.next()
		p.skipNewlines()
		if v, err = p.value(); err != nil {
			return nil, err
		}
		l = append(l, v)
	}
	return l, nil
}

func (p *parser) value() (Value, error) {
	t := p.next()
	switch t.kind {
	case tWord:
		return word(t.text), nil
	case tString:
		return String(t.text), nil
	case tVar:
		return Var(t.text), nil
	}
	if t.is("!") {
		switch u := p.peek(); {
		case u.kind == tNewline, u.kind == tEOF, u.is(";"), u.is("}"), u.is(","):
			return Negate{}, nil
		}
		x, err := p.value()
		if err != nil {
			return nil, err
		}
		if _, is := x.(Negate); is {
			return nil, p.errorf(t, "double negation")
		}
		return Negate{X: x}, nil
	}
	return nil, p.expected("a value", t)
}

// seed moves @strength, @ago, and @usage into the chunk's seed.
func (p *parser) seed(c *Chunk) error {
	var s seed
	for _, name := range []string{StrengthProp, AgoProp, UsageProp} {
		v, have := c.Props.Get(name)
		if !have {
			continue
		}
		n, is := v.(Number)
		if !is {
			t := p.toks[p.pos-1]
			return p.errorf(t, name+" needs a number")
		}
		switch name {
		case StrengthProp:
			s.strength, s.hasStrength = float64(n), true
		case AgoProp:
			s.ago, s.hasAgo = float64(n), true
		case UsageProp:
			s.usage, s.hasUsage = float64(n), true
		}
		c.Props.Delete(name)
	}
	if s.hasStrength || s.hasAgo || s.hasUsage {
		c.seed = &s
	}
	return nil
}

// addRule adds the rule's condition and action chunks and then a
// rule chunk that refers to them.
func (g *Graph) addRule(r *rule) (*Chunk, error) {
	if len(r.actions) == 0 {
		return nil, &MissingAction{Line: r.line}
	}
	part := func(c *Chunk) (Name, error) {
		if id := c.ID; id != "" {
			if id[0] == '?' {
				c.Props.Set(IDProp, Var(id[1:]))
			} else {
				c.Props.Set(IDProp, word(id))
			}
			c.ID = ""
		}
		if _, err := g.Add(c); err != nil {
			return "", err
		}
		return Name(c.ID), nil
	}

	conds := make(List, len(r.conds))
	for i, c := range r.conds {
		id, err := part(c)
		if err != nil {
			return nil, err
		}
		conds[i] = id
		if r.negated[i] {
			conds[i] = Negate{X: id}
		}
	}
	actions := make(List, len(r.actions))
	for i, c := range r.actions {
		id, err := part(c)
		if err != nil {
			return nil, err
		}
		actions[i] = id
	}

	rc := NewChunk(RuleType, "")
	rc.Props.Set(ConditionProp, single(conds))
	rc.Props.Set(ActionProp, single(actions))
	return g.Add(rc)
}

func single(l List) Value {
	if len(l) == 1 {
		return l[0]
	}
	return l
}

// AddRule parses a rule and adds it to the Graph.
func (g *Graph) AddRule(src string) (*Chunk, error) {
	stmts, err := parse(src)
	if err != nil {
		return nil, err
	}
	if len(stmts) != 1 || stmts[0].rule == nil {
		return nil, &SyntaxError{Line: 1, Column: 1, Msg: "expected exactly one rule"}
	}
	return g.addRule(stmts[0].rule)
}
