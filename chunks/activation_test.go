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
	"math"
	"math/rand"
	"testing"
)

type testClock struct {
	now float64
}

func (c *testClock) Now() float64 {
	return c.now
}

func newTestGraph(t *testing.T, src string) (*Graph, *testClock) {
	t.Helper()
	clock := &testClock{now: 1000}
	g := NewGraph()
	g.Clock = clock.Now
	g.Rand = rand.New(rand.NewSource(42))
	if err := g.Parse(src); err != nil {
		t.Fatal(err)
	}
	return g, clock
}

func near(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestStrengthDecays(t *testing.T) {
	g, clock := newTestGraph(t, "foo f {}")
	f := g.Chunks["f"]

	last := f.StrengthAt(clock.now)
	for i := 0; i < 20; i++ {
		clock.now += 3600 * float64(i)
		s := f.StrengthAt(clock.now)
		if s > last {
			t.Fatalf("%d: %f > %f", i, s, last)
		}
		last = s
	}

	// One half-life with unit usage.
	clock.now = 1000 + g.Params.HalfLife
	if s := f.StrengthAt(clock.now); !near(s, 0.5) {
		t.Fatal(s)
	}
}

func TestActivateCycle(t *testing.T) {
	g, _ := newTestGraph(t, `
node a {peer b}
node b {peer a}
`)
	a, b := g.Chunks["a"], g.Chunks["b"]
	g.Activate(a)

	if !near(a.Strength, 2.328125) {
		t.Fatal(a.Strength)
	}
	if !near(b.Strength, 1.65625) {
		t.Fatal(b.Strength)
	}
	if a.Usage != 2 {
		t.Fatal(a.Usage)
	}
}

func TestPrimeDepthLimit(t *testing.T) {
	g, _ := newTestGraph(t, `
node a {peer b}
node b {peer a}
`)
	p := *g.Params
	p.Fraction = 1
	p.Cutoff = 0
	p.MaxPrimeDepth = 5
	g.Params = &p

	a, b := g.Chunks["a"], g.Chunks["b"]
	g.Activate(a)
	if a.Strength != 4 || b.Strength != 4 {
		t.Fatal(a.Strength, b.Strength)
	}
}

func TestPrimeIdleNeighbor(t *testing.T) {
	g, clock := newTestGraph(t, `
person alice {name "Alice"; @ago 3e8}
friend f1 {of alice}
`)
	alice := g.Chunks["alice"]
	last := alice.LastAccessed
	before := alice.StrengthAt(clock.now)

	g.Activate(g.Chunks["f1"])

	after := alice.StrengthAt(clock.now)
	if math.IsNaN(after) || math.IsInf(alice.Strength, 0) {
		t.Fatal(alice.Strength, after)
	}
	// 0.5 + 0.125 + 0.03125 on the way back and forth.
	if !near(after, before+0.65625) {
		t.Fatal(before, after)
	}
	if alice.LastAccessed != last {
		t.Fatal(alice.LastAccessed)
	}

	// Still decays, and never by more than the boost.
	clock.now += 1e9
	if s := alice.StrengthAt(clock.now); math.IsNaN(s) || s > after {
		t.Fatal(s)
	}
	if s := g.Noise(alice); math.IsNaN(s) {
		t.Fatal(s)
	}
}

func TestImportedStrength(t *testing.T) {
	g, clock := newTestGraph(t, "foo f {@strength 0.5; @ago 7200}")
	f := g.Chunks["f"]
	if s := f.StrengthAt(clock.now); s != 0.5 {
		t.Fatal(s)
	}
}

func TestSpacing(t *testing.T) {
	g, clock := newTestGraph(t, "foo f {}")
	f := g.Chunks["f"]

	// An access a spacing period later is worth half.
	clock.now += g.Params.Tau
	g.Activate(f)
	if !near(f.Usage, 1.5) {
		t.Fatal(f.Usage)
	}

	// An immediate access is worth almost nothing.
	clock.now += 0.001
	g.Activate(f)
	if f.Usage > 1.5001 {
		t.Fatal(f.Usage)
	}
}

func TestNoise(t *testing.T) {
	g, clock := newTestGraph(t, "foo f {@strength 0.5}")
	f := g.Chunks["f"]

	if s := g.Noise(f); s != 1 {
		t.Fatal(s)
	}

	clock.now += 3600
	var min, max float64 = math.Inf(1), math.Inf(-1)
	for i := 0; i < 100; i++ {
		s := g.Noise(f)
		min = math.Min(min, s)
		max = math.Max(max, s)
	}
	if min == max {
		t.Fatal("no noise")
	}
	if expected := f.StrengthAt(clock.now); min > expected || expected > max {
		t.Fatal(min, expected, max)
	}

	g.Params.NoiseStdev = 0
	if s := g.Noise(f); s != f.StrengthAt(clock.now) {
		t.Fatal(s)
	}
}

func TestRecall(t *testing.T) {
	g, clock := newTestGraph(t, `
fact f1 {color red; @strength 0.5}
fact f2 {color red; @strength 0.9}
fact f3 {color red; @strength 0.01}
fact f4 {color blue}
`)
	g.Params.NoiseStdev = 0
	g.Params.NoiseGrace = 0
	clock.now += 1

	c := g.Get(Query{Type: "fact", Values: NewProps("color", "red")})
	if c == nil || c.ID != "f2" {
		t.Fatal(c)
	}
	if c.LastAccessed != clock.now {
		t.Fatal(c.LastAccessed)
	}

	all := g.GetAll(Query{Type: "fact", Values: NewProps("color", "red")})
	if len(all) != 2 || all[0].ID != "f1" || all[1].ID != "f2" {
		t.Fatal(all)
	}

	if c = g.Get(Query{ID: "f3"}); c != nil {
		t.Fatal(c)
	}
	if c = g.Get(Query{ID: "f4", Type: "other"}); c != nil {
		t.Fatal(c)
	}
}

func TestGetAllLifts(t *testing.T) {
	g, clock := newTestGraph(t, `
fact f1 {@strength 0.02}
fact f2 {@strength 0.02}
fact f3 {@strength 0.02}
`)
	clock.now += g.Params.Tau
	g.Params.NoiseStdev = 1

	// Near the threshold, some chunks clear it on each pass.
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		for _, c := range g.GetAll(Query{Type: "fact"}) {
			seen[c.ID] = true
		}
	}
	if len(seen) != 3 {
		t.Fatal(seen)
	}
}
