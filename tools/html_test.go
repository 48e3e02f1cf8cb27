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

func TestRenderHTML(t *testing.T) {
	g := testutil.MustParse(t, `
color red {@doc "The color of *stop*."; rgb "#f00"}
color blue {rgb "#00f"}
color {} => console {@module console; @do log; value ok}
`)

	var out bytes.Buffer
	if err := RenderHTML(g, &out); err != nil {
		t.Fatal(err)
	}
	s := out.String()

	for _, want := range []string{
		`<div class="rules">`,
		`<em>stop</em>`,
		`<span id="red" class="chunkName">red</span>`,
		`<h2 class="chunkType">color</h2>`,
	} {
		if !strings.Contains(s, want) {
			t.Fatalf("missing %s in %s", want, s)
		}
	}
	if strings.Contains(s, "@doc") {
		t.Fatal("@doc should be rendered, not shown")
	}
	if strings.Contains(s, `class="chunkType">console<`) {
		t.Fatal("rule parts aren't chunks")
	}
}

func TestReadAndRenderPage(t *testing.T) {
	t.Run("page", func(t *testing.T) {
		var out bytes.Buffer
		if err := ReadAndRenderPage("../testdata/counting/rules.chk", []string{"chunks.css"}, &out); err != nil {
			t.Fatal(err)
		}
		s := out.String()
		if !strings.Contains(s, `<link href="chunks.css" rel="stylesheet">`) {
			t.Fatal(s)
		}
		if !strings.HasSuffix(s, "</html>\n") {
			t.Fatal(s)
		}
	})

	t.Run("missing", func(t *testing.T) {
		var out bytes.Buffer
		if err := ReadAndRenderPage("../testdata/nope.chk", nil, &out); err == nil {
			t.Fatal("should have complained")
		}
	})
}
