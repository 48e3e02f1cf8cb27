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

// Query describes the chunks to find.  Every field is optional.
type Query struct {
	// Type is the required type.  Empty or "*" matches any type.
	Type string

	// ID looks up one chunk directly.
	ID string

	// Values are required property values.  A Negate requires the
	// property to be absent or different; the Wildcard requires
	// the property to be present.
	Values *Props

	// Filter, if not nil, must accept a chunk for it to match.
	Filter func(*Chunk) bool
}

func (q *Query) anyType() bool {
	return q.Type == "" || q.Type == string(Wildcard)
}

// Candidates returns the chunks that could satisfy the query, in
// insertion order.  The result is narrowed with the type index and
// the smallest citation list implied by the query's reference
// values, but the values aren't checked.
func (g *Graph) Candidates(q Query) []*Chunk {
	if q.ID != "" {
		c, have := g.Chunks[q.ID]
		if !have || (!q.anyType() && c.Type != q.Type) {
			return nil
		}
		return []*Chunk{c}
	}

	var (
		ids    []string
		narrow bool
	)
	if !q.anyType() {
		ids = g.types[q.Type]
		narrow = true
	}
	q.Values.Each(func(_ string, v Value) bool {
		for _, r := range Refs(v) {
			cs := g.cited[r]
			if !narrow || len(cs) < len(ids) {
				ids, narrow = cs, true
			}
		}
		return true
	})

	var acc []*Chunk
	if !narrow {
		acc = g.All()
	} else {
		acc = make([]*Chunk, 0, len(ids))
		for _, id := range ids {
			if c, have := g.Chunks[id]; have {
				acc = append(acc, c)
			}
		}
		g.sortBySeq(acc)
	}

	if !q.anyType() {
		kept := acc[:0]
		for _, c := range acc {
			if c.Type == q.Type {
				kept = append(kept, c)
			}
		}
		acc = kept
	}
	return acc
}

// Matches reports whether the chunk has the given values.
func Matches(c *Chunk, values *Props) bool {
	ok := true
	values.Each(func(name string, want Value) bool {
		got, have := c.Props.Get(name)
		ok = MatchValue(want, got, have)
		return ok
	})
	return ok
}

// MatchValue reports whether a property value satisfies the wanted
// value.  have says whether the property is present at all.
//
// A Negate matches an absent or different value, the Wildcard or an
// unbound Var matches any present value, and Lists match element by
// element.
func MatchValue(want, got Value, have bool) bool {
	switch w := want.(type) {
	case Negate:
		if !have || w.X == nil {
			return !have
		}
		return !MatchValue(w.X, got, true)
	case Var:
		return have
	case Name:
		if w == Wildcard {
			return have
		}
		return have && Equal(w, got)
	case List:
		l, is := got.(List)
		if !have || !is || len(l) != len(w) {
			return false
		}
		for i := range w {
			if !MatchValue(w[i], l[i], true) {
				return false
			}
		}
		return true
	default:
		return have && Equal(want, got)
	}
}

// Find returns the chunks that satisfy the query, in insertion
// order, without any activation or noise.
func (g *Graph) Find(q Query) []*Chunk {
	var acc []*Chunk
	for _, c := range g.Candidates(q) {
		if q.Filter != nil && !q.Filter(c) {
			continue
		}
		if Matches(c, q.Values) {
			acc = append(acc, c)
		}
	}
	return acc
}

// Get recalls the eligible chunk with the highest noisy strength and
// activates it.  Returns nil if nothing is eligible.
func (g *Graph) Get(q Query) *Chunk {
	var (
		best  *Chunk
		score float64
	)
	for _, c := range g.Find(q) {
		s := g.Noise(c)
		if !g.Eligible(s) {
			continue
		}
		if best == nil || s > score {
			best, score = c, s
		}
	}
	if best != nil {
		g.Activate(best)
	}
	return best
}

// GetAll recalls every eligible chunk.
//
// A forward pass collects the chunks whose noisy strength clears the
// threshold.  A backward pass then re-scores the rejected chunks
// with fresh noise, last first, and appends the ones that clear the
// threshold this time.  Nothing is activated.
func (g *Graph) GetAll(q Query) []*Chunk {
	var acc, rejected []*Chunk
	for _, c := range g.Find(q) {
		if g.Eligible(g.Noise(c)) {
			acc = append(acc, c)
		} else {
			rejected = append(rejected, c)
		}
	}
	for i := len(rejected) - 1; 0 <= i; i-- {
		if c := rejected[i]; g.Eligible(g.Noise(c)) {
			acc = append(acc, c)
		}
	}
	return acc
}

// Put writes a chunk and activates it.
//
// With an id, the values are merged into the chunk with that id,
// which is created if necessary.  Without an id, Put finds a chunk
// with the given type and values or else creates one.
func (g *Graph) Put(typ string, values *Props, id string) (*Chunk, error) {
	if id != "" {
		if c, have := g.Chunks[id]; have && c.Type == typ {
			values.Each(func(name string, v Value) bool {
				if n, is := v.(Negate); is && n.X == nil {
					c.DeleteValue(name)
				} else {
					c.SetValue(name, v)
				}
				return true
			})
			g.Activate(c)
			return c, nil
		}
	} else if literal(values) {
		if found := g.Find(Query{Type: typ, Values: values}); len(found) > 0 {
			c := found[0]
			g.Activate(c)
			return c, nil
		}
	}

	c := NewChunk(typ, id)
	values.Each(func(name string, v Value) bool {
		if _, is := v.(Negate); !is {
			c.Props.Set(name, v)
		}
		return true
	})
	return g.Add(c)
}

// literal reports whether the values are plain literals that can be
// written as well as matched.
func literal(values *Props) bool {
	ok := true
	values.Each(func(_ string, v Value) bool {
		switch vv := v.(type) {
		case Negate, Var:
			ok = false
		case Name:
			ok = vv != Wildcard
		}
		return ok
	})
	return ok
}

// Delete removes the chunks that satisfy the query and returns how
// many were removed.
func (g *Graph) Delete(q Query) (int, error) {
	n := 0
	for _, c := range g.Find(q) {
		if err := g.Remove(c); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}
