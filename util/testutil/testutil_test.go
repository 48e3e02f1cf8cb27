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

package testutil

import (
	"testing"
)

func TestMustParse(t *testing.T) {
	g := MustParse(t, "color red {rgb \"#f00\"}\nred isa color")
	if _, have := g.Chunks["red"]; !have {
		t.Fatal("no red")
	}
	c := MustChunk(t, `count {n 1}`)
	if c.Type != "count" {
		t.Fatal(c.Type)
	}
}

func TestClock(t *testing.T) {
	clock := NewClock(1000)
	g := clock.Use(MustParse(t, "foo f {}"))
	if g.Now() != 1000 {
		t.Fatal(g.Now())
	}
	clock.Advance(60)
	if g.Now() != 1060 {
		t.Fatal(g.Now())
	}

	g = clock.MustParse(t, "foo f {@ago 60}")
	if f := g.Chunks["f"]; f.LastAccessed != 1000 {
		t.Fatal(f.LastAccessed)
	}
}
