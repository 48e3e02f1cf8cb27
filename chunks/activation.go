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
)

// StrengthAt returns the chunk's decayed strength at time t.
//
// A chunk outside a Graph has no strength.
func (c *Chunk) StrengthAt(t float64) float64 {
	g := c.graph
	if g == nil {
		return 0
	}
	usage := c.Usage
	if usage <= 0 {
		usage = 1
	}
	from := c.LastAccessed
	if c.since > from {
		from = c.since
	}
	elapsed := t - from
	if elapsed < 0 {
		elapsed = 0
	}
	return c.Strength * math.Exp(-g.params().Decay()*elapsed/usage)
}

func logistic(x float64) float64 {
	return (1 + math.Tanh(x/2)) / 2
}

// Activate records an access to the chunk and spreads activation to
// the chunks it's linked with.
//
// The boost reflects the spacing effect: accesses close together
// are worth less than accesses spread out over Params.Tau.
func (g *Graph) Activate(c *Chunk) {
	if c == nil || c.graph != g {
		return
	}
	p := g.params()
	now := g.Now()

	boost := 1.0
	if now > c.LastAccessed {
		boost = logistic(math.Log((now - c.LastAccessed) / p.Tau))
	}

	c.Strength = c.StrengthAt(now)
	c.Usage += boost
	c.LastAccessed = now
	c.since = now

	g.prime(c, boost, now, 0)
}

// prime adds the boost to the chunk's strength and passes a fraction
// of it on to the chunk's neighbors.
func (g *Graph) prime(c *Chunk, boost, now float64, depth int) {
	p := g.params()

	// LastAccessed stays put; the strength is rebased to now.
	c.Strength = c.StrengthAt(now) + boost
	if now > c.since {
		c.since = now
	}

	if depth >= p.MaxPrimeDepth {
		return
	}

	neighbors := g.neighbors(c)
	if len(neighbors) == 0 {
		return
	}
	share := boost * p.Fraction / float64(len(neighbors))
	if share <= p.Cutoff {
		return
	}
	for _, n := range neighbors {
		g.prime(n, share, now, depth+1)
	}
}

// neighbors returns the chunks whose ids are the chunk's type, the
// chunk's references, or the ids of the chunks that cite it.
func (g *Graph) neighbors(c *Chunk) []*Chunk {
	seen := map[string]bool{c.ID: true}
	var acc []*Chunk
	add := func(id string) {
		if seen[id] {
			return
		}
		seen[id] = true
		if n, have := g.Chunks[id]; have {
			acc = append(acc, n)
		}
	}
	for _, r := range c.refs() {
		add(r)
	}
	for _, id := range g.cited[c.ID] {
		add(id)
	}
	return acc
}

// gaussian returns a normal deviate with mean zero.
func (g *Graph) gaussian(stdev float64) float64 {
	if stdev == 0 || g.Rand == nil {
		return 0
	}
	u1 := g.Rand.Float64()
	for u1 == 0 {
		u1 = g.Rand.Float64()
	}
	u2 := g.Rand.Float64()
	return stdev * math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)
}

// Noise returns the chunk's strength now perturbed by log-normal
// noise.  The noise grows with the time since the last access, up to
// Params.Tau.
//
// A chunk accessed within Params.NoiseGrace seconds scores exactly
// 1.0.
func (g *Graph) Noise(c *Chunk) float64 {
	p := g.params()
	now := g.Now()
	elapsed := now - c.LastAccessed
	if elapsed < p.NoiseGrace {
		return 1.0
	}
	if elapsed > p.Tau {
		elapsed = p.Tau
	}
	sd := p.NoiseStdev * elapsed / p.Tau
	return c.StrengthAt(now) * math.Exp(g.gaussian(sd))
}

// Eligible reports whether the score clears Params.MinStrength.
func (g *Graph) Eligible(score float64) bool {
	return score >= g.params().MinStrength
}
