package collection

import (
	"context"
	"sync"
)

// worker is the single background goroutine a collection runs its flush
// and compaction work through when Options.Async is set (§4.7
// "offloaded to a single background worker per collection"). The calling
// goroutine still holds the collection's mu for the duration of the hop — this
// collection's write path is already serialized, so Async buys isolation
// of the flush/compact code path onto its own goroutine rather than true
// overlap with the next write, matching §4.7's requirement that "a write
// that sees the memtable at threshold waits for the previous flush to
// complete before starting a new one".
type worker struct {
	c    *Collection
	jobs chan job
	wg   sync.WaitGroup

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

type job struct {
	run    func(context.Context) error
	result chan error
}

func startWorker(c *Collection) *worker {
	w := &worker{
		c:      c,
		jobs:   make(chan job),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
	go w.run()
	return w
}

func (w *worker) run() {
	defer close(w.doneCh)
	for {
		select {
		case j := <-w.jobs:
			j.result <- j.run(context.Background())
		case <-w.stopCh:
			return
		}
	}
}

// enqueueFlush runs c.flushLocked on the background goroutine and blocks
// until it completes, returning its error.
func (w *worker) enqueueFlush(ctx context.Context) error {
	w.wg.Add(1)
	defer w.wg.Done()

	result := make(chan error, 1)
	w.jobs <- job{run: func(ctx context.Context) error { return w.c.flushLocked(ctx) }, result: result}
	return <-result
}

// wait blocks until every job submitted so far has completed.
func (w *worker) wait() {
	w.wg.Wait()
}

// stop waits for outstanding work, then terminates the background
// goroutine.
func (w *worker) stop() {
	w.wg.Wait()
	w.stopOnce.Do(func() { close(w.stopCh) })
	<-w.doneCh
}
