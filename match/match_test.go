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

package match

import (
	"errors"
	"testing"

	"github.com/Comcast/chunks/chunks"
	"github.com/google/go-cmp/cmp"
)

type testState struct {
	buffers map[string]*chunks.Chunk
	status  map[string]string
	count   map[string]int
	tasks   map[string][]string
}

func newTestState(t *testing.T, buffers map[string]string) *testState {
	s := &testState{
		buffers: make(map[string]*chunks.Chunk),
		status:  make(map[string]string),
		count:   make(map[string]int),
		tasks:   make(map[string][]string),
	}
	for module, src := range buffers {
		s.buffers[module] = mustChunk(t, src)
		s.status[module] = "okay"
	}
	return s
}

func (s *testState) Buffer(module string) *chunks.Chunk { return s.buffers[module] }
func (s *testState) Status(module string) string        { return s.status[module] }
func (s *testState) Count(module string) int            { return s.count[module] }
func (s *testState) Tasks(module string) []string       { return s.tasks[module] }

func mustChunk(t *testing.T, src string) *chunks.Chunk {
	t.Helper()
	c, err := chunks.ParseChunk(src)
	if err != nil {
		t.Fatalf("%s: %v", src, err)
	}
	return c
}

func TestLiterals(t *testing.T) {
	s := newTestState(t, map[string]string{
		"goal": `count {state start; start 3; flag true; note "hi"; tags a, b}`,
	})
	m := &Matcher{State: s}

	tests := []struct {
		cond string
		want bool
	}{
		{`count {state start}`, true},
		{`count {state stop}`, false},
		{`count {state start; start 3; flag true; note "hi"}`, true},
		{`count {state start; start 4}`, false},
		{`count {flag false}`, false},
		{`count {note hi}`, false},
		{`count {tags a, b}`, true},
		{`count {tags a, *}`, true},
		{`count {tags a, !b}`, false},
		{`count {tags a}`, false},
		{`count {missing !}`, true},
		{`count {state !}`, false},
		{`count {state !stop}`, true},
		{`count {state !start}`, false},
		{`count {missing !start}`, true},
		{`count {missing *}`, false},
		{`* {state start}`, true},
		{`other {state start}`, false},
	}
	for _, tc := range tests {
		t.Run(tc.cond, func(t *testing.T) {
			ok, err := m.Condition(mustChunk(t, tc.cond), NewBindings(), false)
			if err != nil {
				t.Fatal(err)
			}
			if ok != tc.want {
				t.Fatalf("got %v", ok)
			}
			negated, err := m.Condition(mustChunk(t, tc.cond), NewBindings(), true)
			if err != nil {
				t.Fatal(err)
			}
			if negated == ok {
				t.Fatalf("negated %v", negated)
			}
		})
	}
}

func TestBind(t *testing.T) {
	s := newTestState(t, map[string]string{
		"goal": `count c1 {state start; start 3; end 8; pair x, y}`,
	})
	m := &Matcher{State: s}

	bs := NewBindings()
	cond := mustChunk(t, `count {@id ?id; @status ?st; state ?s; start ?n; pair ?p, ?q; end !?n}`)
	if !m.Bind(cond, bs, false) {
		t.Fatal("didn't bind")
	}
	want := map[string]interface{}{
		"?id": "c1",
		"?st": "okay",
		"?s":  "start",
		"?n":  3.0,
		"?p":  "x",
		"?q":  "y",
	}
	if diff := cmp.Diff(want, bs.Native()); diff != "" {
		t.Fatal(diff)
	}
	ok, err := m.Test(cond, bs)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("didn't match")
	}

	// A negated variable compares with its binding.
	cond = mustChunk(t, `count {start ?n; end !?n}`)
	bs = NewBindings()
	m.Bind(cond, bs, false)
	if ok, _ = m.Test(cond, bs); !ok {
		t.Fatal("3 != 8")
	}
	cond = mustChunk(t, `count {end !?n}`)
	bs = NewBindings().Extend("n", chunks.Number(8))
	m.Bind(cond, bs, false)
	if ok, _ = m.Test(cond, bs); ok {
		t.Fatal("8 == 8")
	}
}

func TestConstraints(t *testing.T) {
	s := newTestState(t, map[string]string{
		"goal":  `count c1 {state start; start 3; end 8; when "2019-04-01"; name "Homer"; @more true}`,
		"facts": `increment {number 3; successor 4}`,
	})
	s.status["facts"] = "nomatch"
	s.count["facts"] = 2
	m := &Matcher{State: s}

	tests := []struct {
		cond string
		want bool
	}{
		{`count {@id c1}`, true},
		{`count {@id c1, c2}`, true},
		{`count {@id c2}`, false},
		{`* {@type count}`, true},
		{`* {@type other, count}`, true},
		{`* {@type other}`, false},
		{`increment {@module facts; @status nomatch}`, true},
		{`increment {@module facts; @status okay}`, false},
		{`increment {@module facts; @count 2}`, true},
		{`count {@more true}`, true},
		{`count {start ?a; end ?b; @lt ?a, ?b}`, true},
		{`count {start ?a; end ?b; @gt ?a, ?b}`, false},
		{`count {start ?a; @gteq ?a, 3}`, true},
		{`count {start ?a; @lteq ?a, 2}`, false},
		{`count {state ?x; @gt ?x, 2}`, false},
		{`count {start ?a; @number ?a}`, true},
		{`count {state ?a; @number ?a}`, false},
		{`count {state ?a; @name ?a}`, true},
		{`count {name ?a; @string ?a}`, true},
		{`count {name ?a; @name ?a}`, false},
		{`count {when ?d; @date ?d}`, true},
		{`count {name ?d; @date ?d}`, false},
		{`count {@task counting}`, false},
	}
	for _, tc := range tests {
		t.Run(tc.cond, func(t *testing.T) {
			ok, err := m.Condition(mustChunk(t, tc.cond), NewBindings(), false)
			if err != nil {
				t.Fatal(err)
			}
			if ok != tc.want {
				t.Fatalf("got %v", ok)
			}
		})
	}

	s.tasks["goal"] = []string{"counting"}
	if ok, _ := m.Condition(mustChunk(t, `count {@task counting}`), NewBindings(), false); !ok {
		t.Fatal("task")
	}

	_, err := m.Condition(mustChunk(t, `count {@bogus 1}`), NewBindings(), false)
	var uc *UnknownConstraint
	if !errors.As(err, &uc) || uc.Name != "@bogus" {
		t.Fatal(err)
	}
}

func TestContext(t *testing.T) {
	s := newTestState(t, map[string]string{
		"goal": `scene {name kitchen; @context house}`,
	})
	m := &Matcher{State: s}
	if ok, _ := m.Condition(mustChunk(t, `scene {name kitchen}`), NewBindings(), false); ok {
		t.Fatal("context isn't opt-in")
	}
	if ok, _ := m.Condition(mustChunk(t, `scene {name kitchen; @context house}`), NewBindings(), false); !ok {
		t.Fatal("context")
	}
}

func TestNegatedAbsent(t *testing.T) {
	s := newTestState(t, map[string]string{
		"goal": `count {state start}`,
	})
	m := &Matcher{State: s}
	ok, err := m.Condition(mustChunk(t, `anything {@module nowhere}`), NewBindings(), true)
	if err != nil || !ok {
		t.Fatal(ok, err)
	}
	if ok, _ = m.Condition(mustChunk(t, `anything {@module nowhere}`), NewBindings(), false); ok {
		t.Fatal("no buffer")
	}
}

func TestRules(t *testing.T) {
	g, err := chunks.ParseGraph(`
count {start ?num; end !?num}, increment {@module facts; number ?num; successor ?next}
  => count {start ?next}
count {start ?num; end ?num} => count {state stop}
count {state ?s}, !stop {@module halt} => halt {@module halt}
`)
	if err != nil {
		t.Fatal(err)
	}
	s := newTestState(t, map[string]string{
		"goal":  `count {state counting; start 3; end 8}`,
		"facts": `increment {number 3; successor 4}`,
	})
	m := &Matcher{State: s}

	matches, err := m.Rules(g)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 2 {
		t.Fatal(len(matches))
	}
	first := matches[0]
	if diff := cmp.Diff(map[string]interface{}{"?num": 3.0, "?next": 4.0}, first.Bindings.Native()); diff != "" {
		t.Fatal(diff)
	}
	if diff := cmp.Diff([]string{"goal", "facts"}, first.Modules); diff != "" {
		t.Fatal(diff)
	}
	if len(first.Actions) != 1 {
		t.Fatal(first.Actions)
	}

	s.buffers["halt"] = mustChunk(t, `stop {}`)
	if matches, _ = m.Rules(g); len(matches) != 1 {
		t.Fatal(len(matches))
	}
}

func TestQuery(t *testing.T) {
	g, err := chunks.ParseGraph(`
increment {number 3; successor 4}
increment {number 4; successor 5}
increment {number 5; successor 6; @context other}
`)
	if err != nil {
		t.Fatal(err)
	}
	bs := NewBindings().Extend("n", chunks.Number(4))
	found := Search(g, mustChunk(t, `increment {@do get; number ?n; successor ?next}`), bs)
	if len(found) != 1 {
		t.Fatal(found)
	}
	if v, _ := found[0].Value("successor"); v != chunks.Number(5) {
		t.Fatal(v)
	}
	if found = Search(g, mustChunk(t, `increment {}`), bs); len(found) != 2 {
		t.Fatal(found)
	}
	if found = Search(g, mustChunk(t, `increment {@context other}`), bs); len(found) != 1 {
		t.Fatal(found)
	}
}
