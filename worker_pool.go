// Copyright 2026 Christoph Steiner
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package checker

import (
	"context"
	"sync"
)

// WorkerPool runs visit jobs on a fixed number of goroutines. It bounds
// the crawl's concurrency: one browser session is checked out per running
// job, so the pool size caps the number of open tabs.
type WorkerPool struct {
	workQueue chan func()
	wg        sync.WaitGroup
	ctx       context.Context
}

// NewWorkerPool starts workers goroutines consuming from a queue of the
// given size. Submit blocks when the queue is full, providing backpressure
// against the frontier.
func NewWorkerPool(ctx context.Context, workers, queueSize int) *WorkerPool {
	if workers < 1 {
		workers = 1
	}
	wp := &WorkerPool{
		workQueue: make(chan func(), queueSize),
		ctx:       ctx,
	}
	for i := 0; i < workers; i++ {
		wp.wg.Add(1)
		go wp.worker()
	}
	return wp
}

func (wp *WorkerPool) worker() {
	defer wp.wg.Done()
	for {
		select {
		case job, ok := <-wp.workQueue:
			if !ok {
				return
			}
			job()
		case <-wp.ctx.Done():
			return
		}
	}
}

// Submit enqueues a job, blocking while the queue is full. It returns the
// context's error if the pool's context is cancelled first.
func (wp *WorkerPool) Submit(job func()) error {
	select {
	case wp.workQueue <- job:
		return nil
	case <-wp.ctx.Done():
		return wp.ctx.Err()
	}
}

// Close stops accepting jobs and waits for the workers to drain the queue.
func (wp *WorkerPool) Close() {
	close(wp.workQueue)
	wp.wg.Wait()
}
