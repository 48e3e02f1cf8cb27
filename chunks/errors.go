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

// These errors are structural: they report authoring or programming
// mistakes.  Conditions that a rule might react to are never errors.

import (
	"strconv"
)

// SyntaxError reports malformed chunk source.
type SyntaxError struct {
	// Line and Column are 1-based.
	Line, Column int
	Msg          string
}

func (e *SyntaxError) Error() string {
	return "syntax error at line " + strconv.Itoa(e.Line) +
		", column " + strconv.Itoa(e.Column) + ": " + e.Msg
}

// MissingAction occurs when a rule has no actions.
type MissingAction struct {
	Line int
}

func (e *MissingAction) Error() string {
	return "rule at line " + strconv.Itoa(e.Line) + " has no @action"
}

// UndefinedChunk occurs when adding a nil chunk or removing a chunk
// that the Graph doesn't hold.
type UndefinedChunk struct {
	Op string
	ID string
}

func (e *UndefinedChunk) Error() string {
	if e.ID == "" {
		return e.Op + ": undefined chunk"
	}
	return e.Op + `: undefined chunk "` + e.ID + `"`
}

// BadRule occurs when a rule chunk's @condition or @action doesn't
// refer to chunks in the rule's Graph.
type BadRule struct {
	ID  string
	Msg string
}

func (e *BadRule) Error() string {
	return `rule "` + e.ID + `": ` + e.Msg
}
