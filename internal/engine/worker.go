package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/time/rate"

	"github.com/0x6d61/pshelper/internal/session"
)

// job is one session handled by one pass.
type job struct {
	index int
	sess  *session.Session
}

// outcome is what a pass did to a session.
type outcome struct {
	index     int
	converted bool
	resynced  bool
	pending   bool
	ignored   bool
	err       error
}

// passFunc handles a single session.
type passFunc func(ctx context.Context, s *session.Session) outcome

// workerPool runs a pass over many sessions concurrently.
type workerPool struct {
	workers int
	limiter *rate.Limiter
	logger  *slog.Logger
	jobs    chan job
	results chan outcome
	wg      sync.WaitGroup
}

// newWorkerPool creates a pool with the given number of workers.
// The jobs channel is buffered at workers*2 to allow some pipelining.
func newWorkerPool(workers int, limiter *rate.Limiter, logger *slog.Logger) *workerPool {
	if workers <= 0 {
		workers = 1
	}
	return &workerPool{
		workers: workers,
		limiter: limiter,
		logger:  logger,
		jobs:    make(chan job, workers*2),
		results: make(chan outcome, workers*2),
	}
}

// start launches all worker goroutines.
func (p *workerPool) start(ctx context.Context, fn passFunc) {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx, fn)
	}
}

// worker is the main loop for a single worker goroutine.
func (p *workerPool) worker(ctx context.Context, fn passFunc) {
	defer p.wg.Done()

	for j := range p.jobs {
		out := outcome{index: j.index}
		// Recover from panics so one bad session does not crash the pool.
		func() {
			defer func() {
				if r := recover(); r != nil {
					p.logger.Error("worker recovered from panic",
						"session", j.sess.Root(),
						"panic", fmt.Sprintf("%v", r),
					)
					out.err = fmt.Errorf("engine: %s: panic: %v", j.sess.Root(), r)
				}
			}()

			// A session already picked up is finished; the rest are skipped.
			if ctx.Err() != nil {
				out.err = ctx.Err()
				return
			}
			if p.limiter != nil {
				if err := p.limiter.Wait(ctx); err != nil {
					out.err = err
					return
				}
			}
			out = fn(ctx, j.sess)
			out.index = j.index
		}()
		p.results <- out
	}
}

// run submits every session to the pool and collects the outcomes, indexed
// like sessions.
func (p *workerPool) run(ctx context.Context, sessions []*session.Session, fn passFunc) []outcome {
	outcomes := make([]outcome, len(sessions))
	done := make(chan struct{})
	go func() {
		defer close(done)
		for out := range p.results {
			outcomes[out.index] = out
		}
	}()

	p.start(ctx, fn)
	for i, s := range sessions {
		p.jobs <- job{index: i, sess: s}
	}
	close(p.jobs)
	p.wg.Wait()
	close(p.results)
	<-done
	return outcomes
}
