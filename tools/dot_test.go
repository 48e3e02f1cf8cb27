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

package tools

import (
	"bytes"
	"strings"
	"testing"

	"github.com/Comcast/chunks/util/testutil"
)

func TestDot(t *testing.T) {
	g := counting(t)
	rules := g.Rules()

	var out bytes.Buffer
	if err := Dot(g, &out, rules[1].ID); err != nil {
		t.Fatal(err)
	}
	s := out.String()

	if !strings.HasPrefix(s, "digraph G {\n") || !strings.HasSuffix(s, "}\n") {
		t.Fatal(s)
	}
	if n := strings.Count(s, " -> "); n != 11 {
		t.Fatalf("%d edges", n)
	}
	if !strings.Contains(s, `fillcolor="#f98b8b"`) {
		t.Fatal("no highlight")
	}
	if !strings.Contains(s, "=&gt;") {
		t.Fatal("rule text should be escaped")
	}
}

func TestMermaid(t *testing.T) {
	g := counting(t)

	var out bytes.Buffer
	if err := Mermaid(g, &out, nil); err != nil {
		t.Fatal(err)
	}
	s := out.String()
	if !strings.HasPrefix(s, "graph TB\n") {
		t.Fatal(s)
	}
	if !strings.Contains(s, `n2 -- "facts.increment" --> n2`) {
		t.Fatal(s)
	}

	out.Reset()
	if err := Mermaid(g, &out, &MermaidOpts{}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), `n1["`+g.Rules()[0].ID+`"]`) {
		t.Fatal(out.String())
	}
}

func TestMermaidUnfed(t *testing.T) {
	g := testutil.MustParse(t, `ping {} => console {@module console; @do log; value pong}`)

	var out bytes.Buffer
	if err := Mermaid(g, &out, nil); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "style n1 fill:#bcf2db") {
		t.Fatal(out.String())
	}
}
