// Package queue runs work in ordered lanes with bounded concurrency.
//
// Each lane is identified by a key, typically a channel name. Work in one lane
// runs strictly in the order it was enqueued, so replies to commands in one
// channel are never reordered. Distinct lanes may run concurrently, up to a
// fixed number of workers.
package queue

import (
	"context"
	"iter"
	"sync"

	"github.com/szeged/jerrybot/deque"
	"github.com/szeged/jerrybot/syncmap"
)

// Work is a unit of work. It receives the context given to Enqueue.
type Work func(ctx context.Context)

// Lanes is a set of ordered work lanes.
type Lanes struct {
	lanes *syncmap.Map[string, *lane]
	sem   chan struct{}
	wg    sync.WaitGroup
}

type lane struct {
	mu      sync.Mutex
	pending deque.Deque[item]
	running bool
}

// item is a work with the context it was enqueued with.
type item struct {
	ctx  context.Context
	work Work
}

// New creates a set of lanes which runs at most workers works at once.
// If workers is not positive, one is used.
func New(workers int) *Lanes {
	return &Lanes{
		lanes: syncmap.New[string, *lane](),
		sem:   make(chan struct{}, max(workers, 1)),
	}
}

// Enqueue adds work to the end of the lane for key. It does not block.
//
// Work runs with ctx. If ctx is canceled before the work starts, the work is
// dropped; later works in the lane still run.
func (l *Lanes) Enqueue(ctx context.Context, key string, work Work) {
	ln, _ := l.lanes.LoadOrNew(key, func() *lane { return new(lane) })
	ln.mu.Lock()
	ln.pending = ln.pending.Append(item{ctx: ctx, work: work})
	start := !ln.running
	ln.running = true
	ln.mu.Unlock()
	if start {
		l.wg.Add(1)
		go l.drain(ln)
	}
}

// drain runs a lane's works until it is empty.
func (l *Lanes) drain(ln *lane) {
	defer l.wg.Done()
	for {
		ln.mu.Lock()
		it, p, ok := ln.pending.PopFront()
		ln.pending = p
		if !ok {
			ln.running = false
			ln.mu.Unlock()
			return
		}
		ln.mu.Unlock()
		if it.ctx.Err() != nil {
			continue
		}
		select {
		case <-it.ctx.Done():
			continue
		case l.sem <- struct{}{}:
		}
		it.work(it.ctx)
		<-l.sem
	}
}

// Wait blocks until every lane is idle.
func (l *Lanes) Wait() {
	l.wg.Wait()
}

// Pending iterates over lanes and the number of works waiting in each,
// not counting a work that is currently running.
func (l *Lanes) Pending() iter.Seq2[string, int] {
	return func(yield func(string, int) bool) {
		for k, ln := range l.lanes.All() {
			ln.mu.Lock()
			n := ln.pending.Len()
			ln.mu.Unlock()
			if !yield(k, n) {
				return
			}
		}
	}
}
