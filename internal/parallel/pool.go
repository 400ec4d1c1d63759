package parallel

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// Command is a unit of queued drawing work.
//
// A submitted command is executed once by every worker of the pool, each
// time under that worker's Partition, and always runs to completion.
type Command interface {
	Execute(part Partition)
}

// CommandFunc adapts a function to the Command interface.
type CommandFunc func(part Partition)

// Execute calls f(part).
func (f CommandFunc) Execute(part Partition) { f(part) }

// Pool is a fixed set of drawer goroutines.
//
// Unlike a work-stealing pool every worker sees every command, in
// submission order; the row partition decides which pixels it may write.
// Submit, Wait and Close must be called from a single producer goroutine.
type Pool struct {
	// workers is the number of worker goroutines.
	workers int

	// queues holds one command queue per worker.
	queues []chan Command

	// pending counts (command, worker) executions not yet finished.
	pending sync.WaitGroup

	// wg waits for all workers to exit.
	wg sync.WaitGroup

	// running indicates whether the pool is accepting work.
	running atomic.Bool
}

// NewPool creates a pool with the given number of workers.
// If workers is 0 or negative, GOMAXPROCS is used.
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	queueSize := max(workers*4, 64)

	p := &Pool{
		workers: workers,
		queues:  make([]chan Command, workers),
	}
	for i := range workers {
		p.queues[i] = make(chan Command, queueSize)
	}

	p.running.Store(true)

	p.wg.Add(workers)
	for i := range workers {
		go p.worker(Partition{Core: i, NumCores: workers})
	}

	return p
}

func (p *Pool) worker(part Partition) {
	defer p.wg.Done()

	for cmd := range p.queues[part.Core] {
		cmd.Execute(part)
		p.pending.Done()
	}
}

// Workers returns the number of workers.
func (p *Pool) Workers() int {
	return p.workers
}

// Submit hands cmd to every worker. It blocks while a worker queue is full.
// Returns false if the pool has been closed.
func (p *Pool) Submit(cmd Command) bool {
	if cmd == nil || !p.running.Load() {
		return false
	}
	p.pending.Add(p.workers)
	for _, q := range p.queues {
		q <- cmd
	}
	return true
}

// Wait blocks until every submitted command has been executed by every
// worker. It is the frame barrier.
func (p *Pool) Wait() {
	p.pending.Wait()
}

// Close drains outstanding work and stops the workers.
// Close is idempotent.
func (p *Pool) Close() {
	if !p.running.Swap(false) {
		return
	}
	for _, q := range p.queues {
		close(q)
	}
	p.wg.Wait()
}
