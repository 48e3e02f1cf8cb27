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
	"bytes"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

// Value is a property value.
//
// The concrete types are Name, String, Number, Bool, List, Negate,
// and Var.  String() renders a value in chunk syntax.
type Value interface {
	String() string
	isValue()
}

// Name is a bare symbol.  A Name usually refers to another chunk (by
// id or type), and Names are what the citation index tracks.
type Name string

// String is a quoted string literal.  Unlike a Name, a String never
// refers to a chunk.
type String string

// Number is a numeric literal.
type Number float64

// Bool is a boolean literal.
type Bool bool

// List is a comma-separated sequence of values.
type List []Value

// Negate is "!X".  A nil X is the unbound negation "!", which only
// matches an absent property.
type Negate struct {
	X Value
}

// Var is a variable "?name" as used in rule conditions and actions.
// The Var does not include the leading '?'.
type Var string

// Wildcard is the Name that matches any value.
const Wildcard = Name("*")

func (Name) isValue()   {}
func (String) isValue() {}
func (Number) isValue() {}
func (Bool) isValue()   {}
func (List) isValue()   {}
func (Negate) isValue() {}
func (Var) isValue()    {}

func (n Name) String() string { return string(n) }

func (s String) String() string { return quote(string(s)) }

func (n Number) String() string {
	return strconv.FormatFloat(float64(n), 'g', -1, 64)
}

func (b Bool) String() string {
	if b {
		return "true"
	}
	return "false"
}

func (l List) String() string {
	ss := make([]string, len(l))
	for i, v := range l {
		ss[i] = v.String()
	}
	return strings.Join(ss, ", ")
}

func (n Negate) String() string {
	if n.X == nil {
		return "!"
	}
	return "!" + n.X.String()
}

func (v Var) String() string { return "?" + string(v) }

// quote renders a string as a JSON string without HTML escaping.
func quote(s string) string {
	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return strconv.Quote(s)
	}
	return strings.TrimRight(buf.String(), "\n")
}

// IsRef reports whether the value is a Name that could refer to
// another chunk.  The wildcard isn't a reference.
func IsRef(v Value) bool {
	n, is := v.(Name)
	return is && n != Wildcard && n != ""
}

// Refs returns the references in the value, looking inside lists.
func Refs(v Value) []string {
	switch vv := v.(type) {
	case Name:
		if IsRef(vv) {
			return []string{string(vv)}
		}
	case List:
		var acc []string
		for _, x := range vv {
			acc = append(acc, Refs(x)...)
		}
		return acc
	}
	return nil
}

// Equal reports whether two values are the same kind with the same
// value.
func Equal(a, b Value) bool {
	switch x := a.(type) {
	case nil:
		return b == nil
	case List:
		y, is := b.(List)
		if !is || len(x) != len(y) {
			return false
		}
		for i := range x {
			if !Equal(x[i], y[i]) {
				return false
			}
		}
		return true
	case Negate:
		y, is := b.(Negate)
		return is && Equal(x.X, y.X)
	default:
		return a == b
	}
}

var (
	nameRx   = regexp.MustCompile(`^[\w.\-/:@*]+$`)
	numberRx = regexp.MustCompile(`^-?(0|[1-9][0-9]*)(\.[0-9]+)?([eE][+-]?[0-9]+)?$`)
)

// word classifies a bare word as a Number, Bool, or Name.
func word(s string) Value {
	if numberRx.MatchString(s) {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return Number(f)
		}
	}
	switch s {
	case "true":
		return Bool(true)
	case "false":
		return Bool(false)
	}
	return Name(s)
}

// ValueOf converts a native Go value into a Value.
//
// A string that would read back as a bare word becomes a Name;
// other strings become Strings.  Values pass through.
func ValueOf(x interface{}) Value {
	switch vv := x.(type) {
	case nil:
		return nil
	case Value:
		return vv
	case string:
		if nameRx.MatchString(vv) {
			if w, is := word(vv).(Name); is {
				return w
			}
		}
		return String(vv)
	case bool:
		return Bool(vv)
	case int:
		return Number(vv)
	case int64:
		return Number(vv)
	case float64:
		return Number(vv)
	case float32:
		return Number(vv)
	case []interface{}:
		l := make(List, 0, len(vv))
		for _, y := range vv {
			if v := ValueOf(y); v != nil {
				l = append(l, v)
			}
		}
		return l
	case []string:
		l := make(List, len(vv))
		for i, s := range vv {
			l[i] = ValueOf(s)
		}
		return l
	default:
		return String(toString(vv))
	}
}

func toString(x interface{}) string {
	js, err := json.Marshal(x)
	if err != nil {
		return ""
	}
	return string(js)
}

// Native converts a Value into plain Go data (string, float64, bool,
// []interface{}).  Variables and negations become their chunk syntax.
func Native(v Value) interface{} {
	switch vv := v.(type) {
	case nil:
		return nil
	case Name:
		return string(vv)
	case String:
		return string(vv)
	case Number:
		return float64(vv)
	case Bool:
		return bool(vv)
	case List:
		acc := make([]interface{}, len(vv))
		for i, x := range vv {
			acc[i] = Native(x)
		}
		return acc
	default:
		return v.String()
	}
}
