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
	"math/rand"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// GensymPrefix starts every generated chunk id.
var GensymPrefix = "_"

// Graph is a store of chunks indexed by id, by type, and by
// citation.
//
// A Graph is not safe for concurrent use.
type Graph struct {
	// Chunks maps ids to chunks.  Treat as read-only.
	Chunks map[string]*Chunk

	// Params tune the activation model.
	Params *Params

	// Clock returns the current time in seconds.  Tests can
	// replace it.
	Clock func() float64

	// Rand is the source for recall noise.
	Rand *rand.Rand

	Logger *zap.Logger

	types    map[string][]string
	cited    map[string][]string
	contexts map[string]map[string]bool

	// seq records insertion order.
	seq     map[string]uint64
	counter uint64
	gensym  int
	count   int

	// reserved ids are not generated while parsing.
	reserved map[string]bool
}

// NewGraph makes an empty Graph with default Params.
func NewGraph() *Graph {
	return &Graph{
		Chunks:   make(map[string]*Chunk, 64),
		Params:   DefaultParams(),
		Clock:    WallClock,
		Rand:     rand.New(rand.NewSource(time.Now().UnixNano())),
		Logger:   zap.NewNop(),
		types:    make(map[string][]string, 16),
		cited:    make(map[string][]string, 64),
		contexts: make(map[string]map[string]bool, 4),
		seq:      make(map[string]uint64, 64),
	}
}

// ParseGraph makes a Graph and adds everything in the source.
func ParseGraph(src string) (*Graph, error) {
	g := NewGraph()
	if err := g.Parse(src); err != nil {
		return nil, err
	}
	return g, nil
}

// WallClock returns the current UNIX time in seconds.
func WallClock() float64 {
	return float64(time.Now().UnixNano()) / 1e9
}

// Now returns the Graph's current time in seconds.
func (g *Graph) Now() float64 {
	if g.Clock == nil {
		return WallClock()
	}
	return g.Clock()
}

func (g *Graph) params() *Params {
	if g.Params == nil {
		g.Params = DefaultParams()
	}
	return g.Params
}

func (g *Graph) logger() *zap.Logger {
	if g.Logger == nil {
		g.Logger = zap.NewNop()
	}
	return g.Logger
}

// Gensym returns an unused chunk id.
func (g *Graph) Gensym() string {
	for {
		g.gensym++
		id := GensymPrefix + strconv.Itoa(g.gensym)
		if _, have := g.Chunks[id]; !have && !g.reserved[id] {
			return id
		}
	}
}

// IsGensym reports whether the id looks generated.
func IsGensym(id string) bool {
	if !strings.HasPrefix(id, GensymPrefix) || len(id) == len(GensymPrefix) {
		return false
	}
	_, err := strconv.Atoi(id[len(GensymPrefix):])
	return err == nil
}

// Add admits the chunk to this Graph.
//
// A chunk owned by another Graph is removed from that Graph first.
// A chunk without an id gets a generated one.  Any existing chunk
// with the same id is removed.  Adding a chunk that this Graph
// already holds activates it.
func (g *Graph) Add(c *Chunk) (*Chunk, error) {
	if c == nil {
		return nil, &UndefinedChunk{Op: "add"}
	}
	if c.graph == g && g.Chunks[c.ID] == c {
		g.Activate(c)
		return c, nil
	}
	if c.graph != nil {
		if err := c.graph.Remove(c); err != nil {
			return nil, err
		}
	}
	if c.ID == "" {
		c.ID = g.Gensym()
	}
	if old, have := g.Chunks[c.ID]; have {
		if err := g.Remove(old); err != nil {
			return nil, err
		}
	}

	g.Chunks[c.ID] = c
	c.graph = g
	g.counter++
	g.seq[c.ID] = g.counter
	g.types[c.Type] = append(g.types[c.Type], c.ID)
	g.cite(c)

	now := g.Now()
	c.Strength = 1
	c.Usage = 1
	c.LastAccessed = now
	c.since = now
	if s := c.seed; s != nil {
		if s.hasStrength {
			c.Strength = s.strength
		}
		if s.hasUsage {
			c.Usage = s.usage
		}
		if s.hasAgo {
			c.LastAccessed = now - s.ago
		}
		// An imported @strength is the strength now.  Otherwise the
		// chunk has decayed since its last access.
		if !s.hasStrength {
			c.since = c.LastAccessed
		}
		c.seed = nil
	}
	g.count++

	return c, nil
}

// Remove takes the chunk out of this Graph and clears its
// sub-symbolic fields.
func (g *Graph) Remove(c *Chunk) error {
	if c == nil {
		return &UndefinedChunk{Op: "remove"}
	}
	if c.graph != g || g.Chunks[c.ID] != c {
		return &UndefinedChunk{Op: "remove", ID: c.ID}
	}

	g.types[c.Type] = without(g.types[c.Type], c.ID)
	if len(g.types[c.Type]) == 0 {
		delete(g.types, c.Type)
	}
	g.uncite(c)
	delete(g.Chunks, c.ID)
	delete(g.seq, c.ID)

	c.graph = nil
	c.Strength = 0
	c.LastAccessed = 0
	c.Usage = 0
	c.since = 0
	g.count--

	return nil
}

func without(ids []string, id string) []string {
	for i, x := range ids {
		if x == id {
			return append(ids[:i:i], ids[i+1:]...)
		}
	}
	return ids
}

// cite indexes the references made by the chunk and its context
// membership.
func (g *Graph) cite(c *Chunk) {
	if name := c.Context(); name != "" {
		g.joinContext(name, c.ID)
	}
	for _, r := range c.refs() {
		ids := g.cited[r]
		found := false
		for _, id := range ids {
			if id == c.ID {
				found = true
				break
			}
		}
		if !found {
			g.cited[r] = append(ids, c.ID)
		}
	}
}

// uncite removes the chunk from the citation and context indexes.
func (g *Graph) uncite(c *Chunk) {
	if name := c.Context(); name != "" {
		g.leaveContext(name, c.ID)
	}
	for _, r := range c.refs() {
		ids := without(g.cited[r], c.ID)
		if len(ids) == 0 {
			delete(g.cited, r)
		} else {
			g.cited[r] = ids
		}
	}
}

// Cited returns the ids of the chunks that refer to the given name
// by type or by property value.
func (g *Graph) Cited(name string) []string {
	return append([]string(nil), g.cited[name]...)
}

// Types returns the ids of the chunks with the given type in
// insertion order.
func (g *Graph) Types(typ string) []string {
	return append([]string(nil), g.types[typ]...)
}

// ChunkCount returns the number of chunks in the Graph.
func (g *Graph) ChunkCount() int {
	return g.count
}

// TypeCount returns the number of chunks with the given type.
func (g *Graph) TypeCount(typ string) int {
	return len(g.types[typ])
}

// All returns every chunk in insertion order.
func (g *Graph) All() []*Chunk {
	acc := make([]*Chunk, 0, len(g.Chunks))
	for _, c := range g.Chunks {
		acc = append(acc, c)
	}
	g.sortBySeq(acc)
	return acc
}

func (g *Graph) sortBySeq(cs []*Chunk) {
	sort.SliceStable(cs, func(i, j int) bool {
		return g.seq[cs[i].ID] < g.seq[cs[j].ID]
	})
}

func (g *Graph) joinContext(name, id string) {
	members, have := g.contexts[name]
	if !have {
		members = make(map[string]bool, 8)
		g.contexts[name] = members
	}
	members[id] = true
}

func (g *Graph) leaveContext(name, id string) {
	members, have := g.contexts[name]
	if !have {
		return
	}
	delete(members, id)
	if len(members) == 0 {
		delete(g.contexts, name)
	}
}

// AddToContext makes the chunk a member of the named context.  The
// chunk gets a @context property, and it's added to the Graph if
// necessary.
func (g *Graph) AddToContext(name string, c *Chunk) error {
	if c.graph != g {
		c.Props.Set(ContextProp, Name(name))
		_, err := g.Add(c)
		return err
	}
	c.SetValue(ContextProp, Name(name))
	return nil
}

// RemoveContext removes every chunk in the named context and
// returns how many chunks were removed.
func (g *Graph) RemoveContext(name string) int {
	members := g.contexts[name]
	ids := make([]string, 0, len(members))
	for id := range members {
		ids = append(ids, id)
	}
	n := 0
	for _, id := range ids {
		if c, have := g.Chunks[id]; have {
			if err := g.Remove(c); err == nil {
				n++
			}
		}
	}
	delete(g.contexts, name)
	g.logger().Debug("removed context", zap.String("context", name), zap.Int("chunks", n))
	return n
}

// Contexts returns the names of the current contexts.
func (g *Graph) Contexts() []string {
	acc := make([]string, 0, len(g.contexts))
	for name := range g.contexts {
		acc = append(acc, name)
	}
	sort.Strings(acc)
	return acc
}

// ForAll calls visit for every chunk whose type is the given kind or
// is transitively a "kindof" that kind.  Iteration stops when visit
// returns false.
func (g *Graph) ForAll(kind string, visit func(*Chunk) bool) {
	kinds := []string{kind}
	seen := map[string]bool{kind: true}
	for i := 0; i < len(kinds); i++ {
		k := kinds[i]
		for _, id := range g.Types(k) {
			if c, have := g.Chunks[id]; have {
				if !visit(c) {
					return
				}
			}
		}
		for _, id := range g.cited[k] {
			link := g.Chunks[id]
			if link == nil || link.Type != KindOf || link.Object() != k {
				continue
			}
			sub := link.Subject()
			if sub != "" && !seen[sub] {
				seen[sub] = true
				kinds = append(kinds, sub)
			}
		}
	}
}

// Rules returns the Graph's rule chunks in insertion order.
func (g *Graph) Rules() []*Chunk {
	acc := make([]*Chunk, 0, len(g.types[RuleType]))
	for _, id := range g.types[RuleType] {
		acc = append(acc, g.Chunks[id])
	}
	return acc
}

// RuleParts returns the condition chunks (with negation flags) and
// the action chunks of the given rule.
func (g *Graph) RuleParts(rule *Chunk) (conds []*Chunk, negated []bool, actions []*Chunk, err error) {
	cv, have := rule.Props.Get(ConditionProp)
	if !have {
		return nil, nil, nil, &BadRule{ID: rule.ID, Msg: "no @condition"}
	}
	for _, v := range asList(cv) {
		neg := false
		if n, is := v.(Negate); is {
			neg = true
			v = n.X
		}
		c, err := g.deref(rule, v)
		if err != nil {
			return nil, nil, nil, err
		}
		conds = append(conds, c)
		negated = append(negated, neg)
	}
	av, have := rule.Props.Get(ActionProp)
	if !have {
		return nil, nil, nil, &BadRule{ID: rule.ID, Msg: "no @action"}
	}
	for _, v := range asList(av) {
		c, err := g.deref(rule, v)
		if err != nil {
			return nil, nil, nil, err
		}
		actions = append(actions, c)
	}
	return conds, negated, actions, nil
}

func (g *Graph) deref(rule *Chunk, v Value) (*Chunk, error) {
	n, is := v.(Name)
	if !is {
		return nil, &BadRule{ID: rule.ID, Msg: "bad reference " + valueString(v)}
	}
	c, have := g.Chunks[string(n)]
	if !have {
		return nil, &BadRule{ID: rule.ID, Msg: `no chunk "` + string(n) + `"`}
	}
	return c, nil
}

func valueString(v Value) string {
	if v == nil {
		return "<nil>"
	}
	return v.String()
}

func asList(v Value) []Value {
	if l, is := v.(List); is {
		return l
	}
	return []Value{v}
}
