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

// Properties with fixed meanings.
const (
	SubjectProp = "@subject"
	ObjectProp  = "@object"
	ContextProp = "@context"

	StrengthProp = "@strength"
	AgoProp      = "@ago"
	UsageProp    = "@usage"

	ConditionProp = "@condition"
	ActionProp    = "@action"

	// RuleType is the type of the chunks that the parser makes
	// from rules.
	RuleType = "rule"

	// KindOf is the link type that ForAll follows.
	KindOf = "kindof"
)

// Chunk is a typed, optionally identified bag of named properties.
//
// The sub-symbolic fields (Strength, LastAccessed, Usage) are
// maintained only while the chunk belongs to a Graph.
type Chunk struct {
	Type  string `json:"type"`
	ID    string `json:"id,omitempty"`
	Props Props  `json:"-"`

	Strength     float64 `json:"strength,omitempty"`
	LastAccessed float64 `json:"lastAccessed,omitempty"`
	Usage        float64 `json:"usage,omitempty"`

	graph *Graph
	seed  *seed

	// since is the time Strength is stored as of.  It's never
	// earlier than LastAccessed once set.
	since float64
}

// seed holds imported sub-symbolic values (@strength, @ago, @usage)
// until the chunk is added to a Graph.
type seed struct {
	strength, ago, usage float64
	hasStrength, hasAgo  bool
	hasUsage             bool
}

// NewChunk makes an unowned chunk.  The id can be empty.
func NewChunk(typ, id string) *Chunk {
	return &Chunk{
		Type: typ,
		ID:   id,
	}
}

// NewLink makes a chunk representing "subject predicate object".
func NewLink(subject, predicate, object string) *Chunk {
	c := NewChunk(predicate, "")
	c.Props.Set(SubjectProp, Name(subject))
	c.Props.Set(ObjectProp, Name(object))
	return c
}

// SetValue sets a property and returns the chunk.
//
// A string value is converted with ValueOf.  If the chunk belongs to
// a Graph, the citation index is updated.
func (c *Chunk) SetValue(name string, x interface{}) *Chunk {
	v := ValueOf(x)
	if g := c.graph; g != nil {
		g.uncite(c)
		defer g.cite(c)
	}
	c.Props.Set(name, v)
	return c
}

// Value returns the property's value.
func (c *Chunk) Value(name string) (Value, bool) {
	return c.Props.Get(name)
}

// DeleteValue removes a property.
func (c *Chunk) DeleteValue(name string) *Chunk {
	if !c.Props.Has(name) {
		return c
	}
	if g := c.graph; g != nil {
		g.uncite(c)
		defer g.cite(c)
	}
	c.Props.Delete(name)
	return c
}

// Graph returns the Graph that owns this chunk (if any).
func (c *Chunk) Graph() *Graph {
	return c.graph
}

// IsLink reports whether the chunk has only @subject and @object
// properties (with Name values).
func (c *Chunk) IsLink() bool {
	if c.Props.Len() != 2 {
		return false
	}
	s, have := c.Props.Get(SubjectProp)
	if !have {
		return false
	}
	o, have := c.Props.Get(ObjectProp)
	if !have {
		return false
	}
	_, sn := s.(Name)
	_, on := o.(Name)
	return sn && on
}

// Subject returns the @subject of a link.
func (c *Chunk) Subject() string {
	if v, have := c.Props.Get(SubjectProp); have {
		return nameOf(v)
	}
	return ""
}

// Object returns the @object of a link.
func (c *Chunk) Object() string {
	if v, have := c.Props.Get(ObjectProp); have {
		return nameOf(v)
	}
	return ""
}

func nameOf(v Value) string {
	switch vv := v.(type) {
	case Name:
		return string(vv)
	case String:
		return string(vv)
	}
	return ""
}

// Copy makes an unowned copy with the same type, id, and
// properties.  Sub-symbolic fields are not copied.
func (c *Chunk) Copy() *Chunk {
	return &Chunk{
		Type:  c.Type,
		ID:    c.ID,
		Props: *c.Props.Copy(),
	}
}

// refs returns the distinct references made by the chunk's type and
// property values.
func (c *Chunk) refs() []string {
	seen := make(map[string]bool, 4)
	acc := make([]string, 0, 4)
	add := func(r string) {
		if r == "" || seen[r] {
			return
		}
		seen[r] = true
		acc = append(acc, r)
	}
	if IsRef(Name(c.Type)) {
		add(c.Type)
	}
	c.Props.Each(func(_ string, v Value) bool {
		for _, r := range Refs(v) {
			add(r)
		}
		return true
	})
	return acc
}

// Context returns the chunk's @context (if any).
func (c *Chunk) Context() string {
	if v, have := c.Props.Get(ContextProp); have {
		return nameOf(v)
	}
	return ""
}

// String renders the chunk concisely.
func (c *Chunk) String() string {
	return c.Format(&FormatOpts{Concise: true})
}

// MarshalJSON represents the chunk as {type, id, props}.
func (c *Chunk) MarshalJSON() ([]byte, error) {
	return marshalChunk(c)
}
