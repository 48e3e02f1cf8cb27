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
	"context"
	"sync"
)

// Scheduler is a single-consumer task queue.
//
// Any goroutine can Post a task.  Tasks run one at a time, in the
// order posted, on the goroutine that calls RunOne, RunPending, or
// Serve.  A posted task can't be cancelled.
type Scheduler struct {
	sync.Mutex

	tasks []func()
	wake  chan struct{}
}

func NewScheduler() *Scheduler {
	return &Scheduler{
		tasks: make([]func(), 0, 8),
		wake:  make(chan struct{}, 1),
	}
}

// Post adds a task.
func (s *Scheduler) Post(f func()) {
	s.Lock()
	s.tasks = append(s.tasks, f)
	s.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Pending returns the number of tasks waiting to run.
func (s *Scheduler) Pending() int {
	s.Lock()
	defer s.Unlock()
	return len(s.tasks)
}

// RunOne runs the next task, if any, and reports whether it ran one.
func (s *Scheduler) RunOne() bool {
	s.Lock()
	if len(s.tasks) == 0 {
		s.Unlock()
		return false
	}
	f := s.tasks[0]
	s.tasks[0] = nil
	s.tasks = s.tasks[1:]
	s.Unlock()

	f()
	return true
}

// RunPending runs tasks until none are left, including tasks that
// those tasks post.  Returns the number of tasks run.
func (s *Scheduler) RunPending() int {
	n := 0
	for s.RunOne() {
		n++
	}
	return n
}

// Serve runs tasks as they arrive until the context is done.
func (s *Scheduler) Serve(ctx context.Context) error {
	for {
		s.RunPending()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.wake:
		}
	}
}
