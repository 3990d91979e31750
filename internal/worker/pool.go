// Package worker runs unattended lookups concurrently
package worker

import (
	"context"
	"sync"

	"github.com/ppiankov/scientia/internal/model"
)

// Looker resolves one name to a record
type Looker interface {
	Lookup(ctx context.Context, name string) (*model.BiographicalRecord, error)
}

// Result is the outcome of one lookup; Index is the submission order
type Result struct {
	Index  int
	Name   string
	Record *model.BiographicalRecord
	Err    error
}

type job struct {
	index int
	name  string
}

// Pool feeds names to a fixed number of workers
type Pool struct {
	workers   int
	jobs      chan job
	results   chan Result
	wg        sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// NewPool creates a pool bound to parent; non-positive workers means one
func NewPool(parent context.Context, workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(parent)

	return &Pool{
		workers: workers,
		jobs:    make(chan job, workers*2),
		results: make(chan Result, workers*2),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start launches the workers
func (p *Pool) Start(looker Looker) {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.work(looker)
	}
}

func (p *Pool) work(looker Looker) {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case j, ok := <-p.jobs:
			if !ok {
				return
			}
			rec, err := looker.Lookup(p.ctx, j.name)
			select {
			case p.results <- Result{Index: j.index, Name: j.name, Record: rec, Err: err}:
			case <-p.ctx.Done():
				return
			}
		}
	}
}

// Submit queues a name. It reports false once the pool is shut down.
func (p *Pool) Submit(index int, name string) bool {
	select {
	case <-p.ctx.Done():
		return false
	case p.jobs <- job{index: index, name: name}:
		return true
	}
}

// Shutdown stops the workers without waiting for queued names
func (p *Pool) Shutdown() {
	p.cancel()
	p.wg.Wait()
	p.closeResults()
}

func (p *Pool) closeResults() {
	p.closeOnce.Do(func() {
		close(p.results)
	})
}
