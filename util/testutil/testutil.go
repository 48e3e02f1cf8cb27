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

// Package testutil has some helpers for tests that use graphs.
package testutil

import (
	"io/ioutil"
	"testing"

	"github.com/Comcast/chunks/chunks"
)

// MustParse parses the source into a new Graph.
func MustParse(t testing.TB, src string) *chunks.Graph {
	t.Helper()
	g, err := chunks.ParseGraph(src)
	if err != nil {
		t.Fatal(err)
	}
	return g
}

// MustChunk parses one chunk.
func MustChunk(t testing.TB, src string) *chunks.Chunk {
	t.Helper()
	c, err := chunks.ParseChunk(src)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

// MustRead parses the files into one new Graph.
func MustRead(t testing.TB, filenames ...string) *chunks.Graph {
	t.Helper()
	g := chunks.NewGraph()
	for _, filename := range filenames {
		src, err := ioutil.ReadFile(filename)
		if err != nil {
			t.Fatal(err)
		}
		if err = g.Parse(string(src)); err != nil {
			t.Fatalf("%s: %v", filename, err)
		}
	}
	return g
}

// Clock is a settable clock for a Graph.
type Clock struct {
	T float64
}

// NewClock makes a Clock at the given time (in seconds).
func NewClock(t float64) *Clock {
	return &Clock{T: t}
}

// Now can be a Graph's Clock.
func (c *Clock) Now() float64 {
	return c.T
}

// Advance moves the clock forward by the given seconds.
func (c *Clock) Advance(secs float64) {
	c.T += secs
}

// Use sets the Graph's Clock to this clock.
func (c *Clock) Use(g *chunks.Graph) *chunks.Graph {
	g.Clock = c.Now
	return g
}

// MustParse parses the source into a new Graph that uses this clock,
// so the chunks are added at the clock's time.
func (c *Clock) MustParse(t testing.TB, src string) *chunks.Graph {
	t.Helper()
	g := c.Use(chunks.NewGraph())
	if err := g.Parse(src); err != nil {
		t.Fatal(err)
	}
	return g
}
