package renderer

import (
	"image"
	"runtime"
	"sync"
	"sync/atomic"
)

// Dispatcher shards a pixel list across a fixed pool of worker
// goroutines using a fetch-and-increment cursor.
//
// Workers are created once in NewDispatcher and reused for every
// subsequent Run call, rather than spawned fresh per batch, so the pool
// pays goroutine startup cost only once per render.
type Dispatcher struct {
	numWorkers int
	batches    chan *dispatchBatch
	closeOnce  sync.Once
	done       chan struct{}
}

type dispatchBatch struct {
	list   []image.Point
	fn     func(image.Point)
	stopFn func() bool
	cursor int64
	wg     *sync.WaitGroup
}

// NewDispatcher creates a dispatcher with numWorkers goroutines. A
// non-positive numWorkers uses runtime.NumCPU().
func NewDispatcher(numWorkers int) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}

	d := &Dispatcher{
		numWorkers: numWorkers,
		batches:    make(chan *dispatchBatch),
		done:       make(chan struct{}),
	}
	for i := 0; i < numWorkers; i++ {
		go d.run()
	}
	return d
}

// NumWorkers returns the size of the pool.
func (d *Dispatcher) NumWorkers() int { return d.numWorkers }

func (d *Dispatcher) run() {
	for {
		select {
		case b, ok := <-d.batches:
			if !ok {
				return
			}
			d.drain(b)
			b.wg.Done()
		case <-d.done:
			return
		}
	}
}

// drain repeatedly fetches-and-increments the shared cursor until the
// list is exhausted or the stop predicate fires: each pixel is visited
// at most once per Run, and workers re-check the stop condition
// between fetches.
func (d *Dispatcher) drain(b *dispatchBatch) {
	for {
		if b.stopFn != nil && b.stopFn() {
			return
		}
		idx := atomic.AddInt64(&b.cursor, 1) - 1
		if idx >= int64(len(b.list)) {
			return
		}
		b.fn(b.list[idx])
	}
}

// Run dispatches fn over every point in list across the worker pool and
// blocks until all workers have finished this batch, forming a
// happens-before barrier before the caller reads the results. stopFn,
// if non-nil, is polled by each worker between pixels for cooperative
// cancellation.
func (d *Dispatcher) Run(list []image.Point, fn func(image.Point), stopFn func() bool) {
	if len(list) == 0 {
		return
	}

	var wg sync.WaitGroup
	wg.Add(d.numWorkers)
	batch := &dispatchBatch{list: list, fn: fn, stopFn: stopFn, wg: &wg}
	for i := 0; i < d.numWorkers; i++ {
		d.batches <- batch
	}
	wg.Wait()
}

// Close shuts down the worker pool. It is idempotent and safe to call
// more than once.
func (d *Dispatcher) Close() {
	d.closeOnce.Do(func() {
		close(d.done)
	})
}
