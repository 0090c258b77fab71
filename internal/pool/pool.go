// Package pool runs bounded fan-out work on an ants goroutine pool.
package pool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/custodia-labs/librarian/internal/logger"
)

// ErrPoolClosed is returned when submitting to a released pool.
var ErrPoolClosed = errors.New("pool is closed")

// DefaultExpiry is how long an idle worker goroutine is kept.
const DefaultExpiry = 10 * time.Second

// Stats is a snapshot of pool counters.
type Stats struct {
	Submitted int64
	Completed int64
	Panicked  int64
}

// Pool is a named, fixed-capacity worker pool.
type Pool struct {
	name   string
	pool   *ants.Pool
	closed atomic.Bool

	submitted atomic.Int64
	completed atomic.Int64
	panicked  atomic.Int64
}

// New creates a pool running at most size tasks at once.
// A size below one is treated as one.
func New(name string, size int) (*Pool, error) {
	if size < 1 {
		size = 1
	}
	p := &Pool{name: name}

	ap, err := ants.NewPool(size,
		ants.WithExpiryDuration(DefaultExpiry),
		ants.WithPanicHandler(func(r any) {
			p.panicked.Add(1)
			logger.Error("worker panic recovered in pool %s: %v", name, r)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("create pool %s: %w", name, err)
	}
	p.pool = ap

	logger.Debug("Worker pool %s created (capacity %d)", name, size)
	return p, nil
}

// Name returns the pool name.
func (p *Pool) Name() string {
	return p.name
}

// Cap returns the pool capacity.
func (p *Pool) Cap() int {
	return p.pool.Cap()
}

// Submit queues task, blocking while the pool is full.
// A task whose context is already cancelled when it starts is skipped.
func (p *Pool) Submit(ctx context.Context, task func()) error {
	if p.closed.Load() {
		return ErrPoolClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	return p.submit(func() {
		if ctx.Err() != nil {
			return
		}
		task()
	})
}

func (p *Pool) submit(task func()) error {
	if p.closed.Load() {
		return ErrPoolClosed
	}
	p.submitted.Add(1)
	return p.pool.Submit(func() {
		task()
		p.completed.Add(1)
	})
}

// Each runs fn(ctx, i) for every i in [0, n) and waits for all of them.
// fn reports its own failures; Each only returns the context error when
// the run was cancelled, or a submission error.
func (p *Pool) Each(ctx context.Context, n int, fn func(ctx context.Context, i int)) error {
	var wg sync.WaitGroup
	var submitErr error

	for i := 0; i < n && ctx.Err() == nil; i++ {
		i := i
		wg.Add(1)
		err := p.submit(func() {
			defer wg.Done()
			if ctx.Err() == nil {
				fn(ctx, i)
			}
		})
		if err != nil {
			wg.Done()
			submitErr = err
			break
		}
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return err
	}
	return submitErr
}

// Stats returns a snapshot of the pool counters.
func (p *Pool) Stats() Stats {
	return Stats{
		Submitted: p.submitted.Load(),
		Completed: p.completed.Load(),
		Panicked:  p.panicked.Load(),
	}
}

// Release stops the pool. It is safe to call more than once.
func (p *Pool) Release() {
	if p.closed.Swap(true) {
		return
	}
	p.pool.Release()
	logger.Debug("Worker pool %s released", p.name)
}
