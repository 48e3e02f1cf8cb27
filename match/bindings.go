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

package match

import (
	"sort"
	"strings"

	"github.com/Comcast/chunks/chunks"
)

// Bindings is a map from variables (without the leading '?') to
// their values.
type Bindings map[string]chunks.Value

func NewBindings() Bindings {
	return make(Bindings, 8)
}

// Extend adds the binding; modifies and returns the Bindings.
func (bs Bindings) Extend(v string, x chunks.Value) Bindings {
	bs[v] = x
	return bs
}

// Remove removes the given variables.
//
// The Bindings are modified.
func (bs Bindings) Remove(vs ...string) Bindings {
	for _, v := range vs {
		delete(bs, v)
	}
	return bs
}

// Copy makes a shallow copy of the Bindings.
func (bs Bindings) Copy() Bindings {
	acc := make(Bindings, len(bs))
	for k, v := range bs {
		acc[k] = v
	}
	return acc
}

// String renders the Bindings as "?a 1, ?b x" in variable order.
func (bs Bindings) String() string {
	vs := make([]string, 0, len(bs))
	for v := range bs {
		vs = append(vs, v)
	}
	sort.Strings(vs)
	for i, v := range vs {
		vs[i] = "?" + v + " " + bs[v].String()
	}
	return strings.Join(vs, ", ")
}

// Native returns the Bindings as plain Go data keyed by "?name".
func (bs Bindings) Native() map[string]interface{} {
	acc := make(map[string]interface{}, len(bs))
	for v, x := range bs {
		acc["?"+v] = chunks.Native(x)
	}
	return acc
}

// Bound reports whether the value is a variable with a binding.
func (bs Bindings) Bound(x chunks.Value) bool {
	v, is := x.(chunks.Var)
	if !is {
		return false
	}
	_, have := bs[string(v)]
	return have
}

// Unbound reports whether the value is a variable without a binding.
func (bs Bindings) Unbound(x chunks.Value) bool {
	v, is := x.(chunks.Var)
	if !is {
		return false
	}
	_, have := bs[string(v)]
	return !have
}

// Subst replaces bound variables (including inside lists and
// negations) with their values.  Unbound variables remain.
func (bs Bindings) Subst(x chunks.Value) chunks.Value {
	switch vv := x.(type) {
	case chunks.Var:
		if y, have := bs[string(vv)]; have {
			return y
		}
	case chunks.List:
		acc := make(chunks.List, len(vv))
		for i, y := range vv {
			acc[i] = bs.Subst(y)
		}
		return acc
	case chunks.Negate:
		if vv.X != nil {
			return chunks.Negate{X: bs.Subst(vv.X)}
		}
	}
	return x
}

// Vars returns the unbound variables in the value.
func (bs Bindings) Vars(x chunks.Value) []string {
	switch vv := x.(type) {
	case chunks.Var:
		if _, have := bs[string(vv)]; !have {
			return []string{string(vv)}
		}
	case chunks.List:
		var acc []string
		for _, y := range vv {
			acc = append(acc, bs.Vars(y)...)
		}
		return acc
	case chunks.Negate:
		if vv.X != nil {
			return bs.Vars(vv.X)
		}
	}
	return nil
}
