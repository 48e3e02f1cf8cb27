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
	"github.com/Comcast/chunks/chunks"
)

const (
	MinPriority     = 1
	MaxPriority     = 10
	DefaultPriority = 5
)

// ClampPriority forces the priority into [MinPriority, MaxPriority].
func ClampPriority(p int) int {
	switch {
	case p < MinPriority:
		return MinPriority
	case MaxPriority < p:
		return MaxPriority
	}
	return p
}

type entry struct {
	chunk    *chunks.Chunk
	priority int
}

// queue is a module's pending chunks.  Lower priority numbers come
// first, and entries with equal priority are FIFO.
type queue struct {
	entries []entry
}

func (q *queue) push(c *chunks.Chunk, priority int) {
	e := entry{chunk: c, priority: ClampPriority(priority)}
	i := len(q.entries)
	for j, x := range q.entries {
		if e.priority < x.priority {
			i = j
			break
		}
	}
	q.entries = append(q.entries, entry{})
	copy(q.entries[i+1:], q.entries[i:])
	q.entries[i] = e
}

func (q *queue) pop() (*chunks.Chunk, int, bool) {
	if len(q.entries) == 0 {
		return nil, 0, false
	}
	e := q.entries[0]
	q.entries[0] = entry{}
	q.entries = q.entries[1:]
	return e.chunk, e.priority, true
}

func (q *queue) len() int {
	return len(q.entries)
}

func (q *queue) clear() {
	q.entries = nil
}
