// Package batch drives per-row enrichment over a tabular dataset: a
// generic resumable driver (skip predicate, bounded worker pool, retries,
// ordered incremental sink) plus the deals-specific enricher built on it.
package batch

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/sells-group/parcel-cli/internal/resilience"
)

// Stats summarizes one driver run.
type Stats struct {
	Total     int
	Skipped   int
	Processed int
	Failed    int
}

// Driver is a generic resumable batch driver. Every input item is written
// to the sink exactly once, in input order, regardless of skips and
// failures; that invariant is what makes crash-resume by re-reading the
// output correct.
type Driver[T any] struct {
	// Skip passes an item through to the sink untouched (no Process call).
	Skip func(item T) bool

	// Process transforms one item. Transient errors are retried per Retry;
	// the final error goes to Fail.
	Process func(ctx context.Context, item T) (T, error)

	// Fail marks an item whose processing failed after retries. The marked
	// item is still written. Nil keeps the item unchanged.
	Fail func(item T, err error) T

	// Write persists one item. Called from a single goroutine in input
	// order. A write error aborts the whole run.
	Write func(ctx context.Context, item T) error

	// OnResult observes each item after its durable write (progress,
	// status counting). Called from the writer goroutine.
	OnResult func(item T)

	// Concurrency bounds the worker pool. Values below 1 mean sequential.
	Concurrency int

	// Retry controls per-item retry of transient Process errors.
	Retry resilience.RetryConfig
}

type result[T any] struct {
	idx     int
	item    T
	skipped bool
	failed  bool
}

// Run processes items and returns aggregate stats. Item-level failures are
// recorded, not propagated; only sink failures and context cancellation
// abort the run.
func (d *Driver[T]) Run(ctx context.Context, items []T) (Stats, error) {
	stats := Stats{Total: len(items)}
	if len(items) == 0 {
		return stats, nil
	}

	conc := d.Concurrency
	if conc < 1 {
		conc = 1
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var skipped, processed, failed atomic.Int64

	results := make(chan result[T], conc)
	writerDone := make(chan error, 1)

	// Single writer: reorders worker output back into input order and
	// flushes incrementally.
	go func() {
		pending := make(map[int]result[T], conc)
		next := 0
		for r := range results {
			pending[r.idx] = r
			for {
				cur, ok := pending[next]
				if !ok {
					break
				}
				delete(pending, next)
				if err := d.Write(ctx, cur.item); err != nil {
					cancel()
					for range results { //nolint:revive // drain so workers can exit
					}
					writerDone <- err
					return
				}
				if d.OnResult != nil {
					d.OnResult(cur.item)
				}
				next++
			}
		}
		writerDone <- nil
	}()

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(conc)

	for i := range items {
		i := i
		g.Go(func() error {
			r := result[T]{idx: i, item: items[i]}

			if d.Skip != nil && d.Skip(items[i]) {
				r.skipped = true
				skipped.Add(1)
			} else {
				processedItem, err := resilience.DoVal(gCtx, d.Retry, func(ctx context.Context) (T, error) {
					return d.Process(ctx, items[i])
				})
				if err != nil {
					r.failed = true
					failed.Add(1)
					if d.Fail != nil {
						r.item = d.Fail(items[i], err)
					}
				} else {
					r.item = processedItem
					processed.Add(1)
				}
			}

			select {
			case results <- r:
				return nil
			case <-gCtx.Done():
				return gCtx.Err()
			}
		})
	}

	runErr := g.Wait()
	close(results)
	writeErr := <-writerDone

	stats.Skipped = int(skipped.Load())
	stats.Processed = int(processed.Load())
	stats.Failed = int(failed.Load())

	if writeErr != nil {
		return stats, writeErr
	}
	return stats, runErr
}
