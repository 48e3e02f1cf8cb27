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

// Props is an insertion-ordered map from property names to values.
//
// The zero value is ready to use.
type Props struct {
	names []string
	vals  map[string]Value
}

// NewProps makes Props from alternating names and values.
func NewProps(pairs ...interface{}) *Props {
	ps := &Props{}
	for i := 0; i+1 < len(pairs); i += 2 {
		name, is := pairs[i].(string)
		if !is {
			continue
		}
		ps.Set(name, ValueOf(pairs[i+1]))
	}
	return ps
}

// Get returns the value for the name.
func (ps *Props) Get(name string) (Value, bool) {
	if ps == nil || ps.vals == nil {
		return nil, false
	}
	v, have := ps.vals[name]
	return v, have
}

// Has reports whether the name has a value.
func (ps *Props) Has(name string) bool {
	_, have := ps.Get(name)
	return have
}

// Set writes the value.  A new name goes to the end.
func (ps *Props) Set(name string, v Value) {
	if ps.vals == nil {
		ps.vals = make(map[string]Value, 4)
	}
	if _, have := ps.vals[name]; !have {
		ps.names = append(ps.names, name)
	}
	ps.vals[name] = v
}

// Delete removes the name (if present).
func (ps *Props) Delete(name string) {
	if _, have := ps.vals[name]; !have {
		return
	}
	delete(ps.vals, name)
	for i, n := range ps.names {
		if n == name {
			ps.names = append(ps.names[:i:i], ps.names[i+1:]...)
			break
		}
	}
}

// Len returns the number of properties.
func (ps *Props) Len() int {
	if ps == nil {
		return 0
	}
	return len(ps.names)
}

// Names returns the property names in order.
func (ps *Props) Names() []string {
	if ps == nil {
		return nil
	}
	acc := make([]string, len(ps.names))
	copy(acc, ps.names)
	return acc
}

// Each calls f for every property in order until f returns false.
func (ps *Props) Each(f func(name string, v Value) bool) {
	if ps == nil {
		return
	}
	for _, n := range ps.Names() {
		v, have := ps.vals[n]
		if !have {
			continue
		}
		if !f(n, v) {
			return
		}
	}
}

// Copy makes a shallow copy.  Values are immutable, except for
// Lists, which are copied.
func (ps *Props) Copy() *Props {
	acc := &Props{}
	ps.Each(func(n string, v Value) bool {
		if l, is := v.(List); is {
			v = append(List(nil), l...)
		}
		acc.Set(n, v)
		return true
	})
	return acc
}

// Merge sets every property in more.
func (ps *Props) Merge(more *Props) {
	more.Each(func(n string, v Value) bool {
		ps.Set(n, v)
		return true
	})
}

// Map returns the properties as native Go data.
func (ps *Props) Map() map[string]interface{} {
	acc := make(map[string]interface{}, ps.Len())
	ps.Each(func(n string, v Value) bool {
		acc[n] = Native(v)
		return true
	})
	return acc
}
