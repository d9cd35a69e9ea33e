// Package pool provides the two bounded task runners the server draws
// from: a small fixed pool for cheap request/response verbs and a
// semaphore-bounded parallel pool for verbs that scan the whole
// collection or perform bulk deletes. Keeping them independent stops
// long scans from starving cheap replies and vice versa.
//
// Neither pool orders tasks: two commands from one connection may
// complete in either order. Submitted tasks run to completion; there is
// no cancellation of an in-flight task beyond the context it captured.
package pool

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/exemee/Laba8-server/internal/logger"
)

// ErrClosed is returned by Submit after Close has been called.
var ErrClosed = errors.New("pool: closed")

// Task is one unit of work. Panics inside a task are recovered and
// logged so a single bad command cannot take a worker down.
type Task func()

// Fixed is a fixed-size worker pool over a buffered task channel.
type Fixed struct {
	tasks chan Task
	wg    sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// NewFixed starts workers goroutines servicing a queue of queueLen
// pending tasks.
func NewFixed(workers, queueLen int) *Fixed {
	if workers <= 0 {
		workers = 1
	}
	p := &Fixed{tasks: make(chan Task, queueLen)}

	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker()
	}
	return p
}

func (p *Fixed) worker() {
	defer p.wg.Done()
	for task := range p.tasks {
		run(task)
	}
}

// Submit queues a task, blocking while the queue is full. Returns
// ErrClosed after Close.
func (p *Fixed) Submit(task Task) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	// Enqueue under the lock so Close cannot close the channel between
	// the check and the send.
	p.tasks <- task
	p.mu.Unlock()
	return nil
}

// Close stops accepting tasks and waits for queued and in-flight tasks
// to drain.
func (p *Fixed) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.tasks)
	p.mu.Unlock()

	p.wg.Wait()
}

// Scan bounds parallel scan tasks with a weighted semaphore. Each task
// gets its own goroutine once it holds a slot, so a handful of long
// bulk deletes can run side by side without unbounded goroutine growth.
type Scan struct {
	sem *semaphore.Weighted
	wg  sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// NewScan creates a pool allowing parallel concurrent tasks.
func NewScan(parallel int) *Scan {
	if parallel <= 0 {
		parallel = 1
	}
	return &Scan{sem: semaphore.NewWeighted(int64(parallel))}
}

// Submit acquires a slot (blocking while the pool is saturated) and
// runs the task on its own goroutine. Returns ErrClosed after Close.
func (p *Scan) Submit(task Task) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	p.wg.Add(1)
	p.mu.Unlock()

	if err := p.sem.Acquire(context.Background(), 1); err != nil {
		p.wg.Done()
		return err
	}

	go func() {
		defer p.wg.Done()
		defer p.sem.Release(1)
		run(task)
	}()
	return nil
}

// Close stops accepting tasks and waits for in-flight tasks to finish.
func (p *Scan) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	p.wg.Wait()
}

func run(task Task) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Panic in pool task: %v", r)
		}
	}()
	task()
}
