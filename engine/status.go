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

package engine

import (
	"errors"
)

// Status is a module's report on its last operation.
//
// Rule conditions can test a module's status with @status, so
// anything a rule might react to is a Status and not an error.
type Status string

const (
	Pending   Status = "pending"
	Okay      Status = "okay"
	NoMatch   Status = "nomatch"
	Failed    Status = "failed"
	Forbidden Status = "forbidden"
)

var (
	// ErrNoModule occurs when an operation names a module that
	// the Engine doesn't have.
	ErrNoModule = errors.New("no such module")

	// ErrTooManyCycles occurs when RunUntilQuiet hits
	// Conf.MaxCycles.
	ErrTooManyCycles = errors.New("too many cycles")

	// ErrBadGoal occurs when SetGoal gets something other than
	// chunk source or a chunk.
	ErrBadGoal = errors.New("goal must be chunk source or a *chunks.Chunk")
)
