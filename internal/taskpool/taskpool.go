// Package taskpool implements the long-lived bounded worker pool backing
// the async array facade (spec.md §5 "cooperative single-or-multi-threaded
// tasks"): a fixed set of goroutines draining a shared task channel,
// reused across calls rather than spawned fresh per call the way the sync
// facade's errgroup fan-out does.
package taskpool

import (
	"context"
	"sync"
)

// Pool is a fixed-size cooperative worker pool. Submitted tasks are
// unordered; completion order is never exposed (spec.md §5).
type Pool struct {
	tasks chan func()
	done  chan struct{}
	wg    sync.WaitGroup
}

// New starts a Pool with size worker goroutines. size must be >= 1.
func New(size int) *Pool {
	if size < 1 {
		size = 1
	}
	p := &Pool{
		tasks: make(chan func()),
		done:  make(chan struct{}),
	}
	p.wg.Add(size)
	for i := 0; i < size; i++ {
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for {
		select {
		case fn, ok := <-p.tasks:
			if !ok {
				return
			}
			fn()
		case <-p.done:
			return
		}
	}
}

// Close stops all workers once their current task completes. No worker
// remains afterwards, so a Run on a closed pool blocks until its ctx is
// cancelled.
func (p *Pool) Close() {
	close(p.done)
	p.wg.Wait()
}

// Run submits each of fns to the pool and blocks until all complete or
// ctx is cancelled or one returns an error, whichever happens first
// (first-error-wins, spec.md §5 cancellation). In-flight tasks that were
// already dispatched may still run to completion; their results are
// discarded per the cancellation contract.
func Run(ctx context.Context, p *Pool, fns []func(ctx context.Context) error) error {
	if len(fns) == 0 {
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, len(fns))
	var wg sync.WaitGroup
	wg.Add(len(fns))

	for _, fn := range fns {
		fn := fn
		task := func() {
			defer wg.Done()
			if err := runCtx.Err(); err != nil {
				return
			}
			if err := fn(runCtx); err != nil {
				select {
				case errCh <- err:
				default:
				}
				cancel()
			}
		}
		go func() {
			select {
			case p.tasks <- task:
			case <-runCtx.Done():
				wg.Done()
			}
		}()
	}

	waitDone := make(chan struct{})
	go func() {
		wg.Wait()
		close(waitDone)
	}()

	select {
	case <-waitDone:
	case <-runCtx.Done():
		<-waitDone
	}

	select {
	case err := <-errCh:
		return err
	default:
		return nil
	}
}
