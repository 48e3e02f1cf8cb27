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
	"sort"

	"github.com/Comcast/chunks/chunks"
	"github.com/Comcast/chunks/match"

	"go.uber.org/zap"
)

// Module is a named Graph with one buffer chunk, a queue of pending
// chunks, a status, and a set of current tasks.
//
// Like the Engine, a Module isn't safe for concurrent use.  Use
// Engine.Do from other goroutines.
type Module struct {
	Name  string
	Graph *chunks.Graph

	// Algorithms are the module's custom operations.
	Algorithms Algorithms

	// ReadOnly modules refuse put, delete, and queue.
	ReadOnly bool

	Status Status

	engine *Engine
	buffer *chunks.Chunk
	queue  queue
	tasks  map[string]bool

	// count is the number of chunks found by the last get or
	// next.
	count int

	iter *iteration
}

// iteration remembers the chunks found by next.
type iteration struct {
	key   string
	items []*chunks.Chunk
	index int
}

// Engine returns the module's Engine.
func (m *Module) Engine() *Engine {
	return m.engine
}

// Buffer returns the buffer chunk (or nil) without copying.
func (m *Module) Buffer() *chunks.Chunk {
	return m.buffer
}

// ReadBuffer returns a copy of the buffer chunk (or nil).
func (m *Module) ReadBuffer() *chunks.Chunk {
	if m.buffer == nil {
		return nil
	}
	return m.buffer.Copy()
}

// WriteBuffer replaces the buffer chunk.
func (m *Module) WriteBuffer(c *chunks.Chunk) {
	m.buffer = c
	m.engine.touched(m.Name)
	m.engine.notify(m)
}

// ClearBuffer empties the buffer.  The queue isn't changed.
func (m *Module) ClearBuffer() {
	if m.buffer == nil {
		return
	}
	m.buffer = nil
	m.engine.touched(m.Name)
	m.engine.notify(m)
}

// PushBuffer puts the chunk in the buffer if the buffer is empty
// and then schedules a cycle (unless single-stepping).  Otherwise
// the chunk goes in the queue.
//
// The chunk's @priority (if any) is the queue priority.
func (m *Module) PushBuffer(c *chunks.Chunk) {
	m.push(c, priorityOf(c))
}

func (m *Module) push(c *chunks.Chunk, priority int) {
	if m.buffer != nil {
		m.Enqueue(c, priority)
		return
	}
	m.WriteBuffer(c)
	m.Status = Okay
	m.engine.reschedule()
}

// Enqueue adds the chunk to the queue.
func (m *Module) Enqueue(c *chunks.Chunk, priority int) {
	c.DeleteValue(match.PriorityProp)
	m.queue.push(c, priority)
	m.engine.Logger.Debug("queued",
		zap.String("module", m.Name),
		zap.Int("priority", ClampPriority(priority)),
		zap.Int("length", m.queue.len()))
}

// PopBuffer moves the front of the queue into the buffer.  Returns
// the chunk, which is nil if the queue was empty (and then the
// buffer is unchanged).
func (m *Module) PopBuffer() *chunks.Chunk {
	c, _, ok := m.queue.pop()
	if !ok {
		return nil
	}
	m.WriteBuffer(c)
	m.Status = Okay
	return c
}

// QueueLen returns the number of queued chunks.
func (m *Module) QueueLen() int {
	return m.queue.len()
}

// ClearQueue drops every queued chunk.
func (m *Module) ClearQueue() {
	m.queue.clear()
}

// Tasks returns the module's current tasks in order.
func (m *Module) Tasks() []string {
	acc := make([]string, 0, len(m.tasks))
	for t := range m.tasks {
		acc = append(acc, t)
	}
	sort.Strings(acc)
	return acc
}

// Enter adds a task.
func (m *Module) Enter(task string) {
	if m.tasks == nil {
		m.tasks = make(map[string]bool, 4)
	}
	m.tasks[task] = true
}

// Leave removes a task.
func (m *Module) Leave(task string) {
	delete(m.tasks, task)
}

// Count returns the number of chunks found by the last get or next.
func (m *Module) Count() int {
	return m.count
}

func priorityOf(c *chunks.Chunk) int {
	if v, have := c.Value(match.PriorityProp); have {
		if n, is := v.(chunks.Number); is {
			return int(n)
		}
	}
	return DefaultPriority
}
