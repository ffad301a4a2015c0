// Package batch writes many operations through BatchWriteItem.
//
// Operations are split into chunks of 25. A chunk whose response leaves
// unprocessed items is resent after a full-jitter exponential backoff, up to
// the configured retry count. Whatever is still unprocessed at the end is
// reported, grouped by table, in an errors.PartialBatchFailure.
package batch

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/theory-cloud/tablerow/pkg/core"
	tablerowErrors "github.com/theory-cloud/tablerow/pkg/errors"
)

const defaultParallelism = 4

// Result describes a finished batch write.
type Result struct {
	BatchID uuid.UUID
	// Chunks is the number of chunks dispatched.
	Chunks int
	// Attempts is the number of BatchWriteItem calls made.
	Attempts int
}

// Option configures a Writer.
type Option func(*Writer)

// WithMaxRetry sets how many times a chunk's unprocessed items are resent.
func WithMaxRetry(n int) Option {
	return func(w *Writer) {
		if n >= 0 {
			w.policy.MaxRetries = n
		}
	}
}

// WithParallelism bounds the number of chunks WriteParallel has in flight.
func WithParallelism(n int) Option {
	return func(w *Writer) {
		if n > 0 {
			w.parallelism = n
		}
	}
}

// WithBackoff sets the backoff ceiling before the first resend.
func WithBackoff(floor time.Duration) Option {
	return func(w *Writer) {
		if floor > 0 {
			w.policy.InitialDelay = floor
		}
	}
}

// WithRetryPolicy replaces the retry policy wholesale.
func WithRetryPolicy(policy *core.RetryPolicy) Option {
	return func(w *Writer) {
		if policy != nil {
			w.policy = policy.Clone()
		}
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(w *Writer) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithSleep replaces the backoff wait.
func WithSleep(sleep func(context.Context, time.Duration) error) Option {
	return func(w *Writer) {
		if sleep != nil {
			w.sleep = sleep
		}
	}
}

// WithRand sets the jitter source.
func WithRand(rng *rand.Rand) Option {
	return func(w *Writer) {
		w.rng = rng
	}
}

// WithMetrics records chunk, retry and leftover counts in m.
func WithMetrics(m *Metrics) Option {
	return func(w *Writer) {
		w.metrics = m
	}
}

// Writer dispatches batch writes.
type Writer struct {
	client      core.Client
	policy      *core.RetryPolicy
	logger      *zap.Logger
	sleep       func(context.Context, time.Duration) error
	rng         *rand.Rand
	metrics     *Metrics
	parallelism int
	rngMu       sync.Mutex
}

// NewWriter creates a Writer over client.
func NewWriter(client core.Client, opts ...Option) *Writer {
	w := &Writer{
		client:      client,
		policy:      core.DefaultRetryPolicy(),
		logger:      zap.NewNop(),
		sleep:       sleepContext,
		parallelism: defaultParallelism,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write dispatches ops chunk by chunk. A store error stops dispatching and is
// returned at once, carrying any leftovers gathered so far.
func (w *Writer) Write(ctx context.Context, ops []Operation) (Result, error) {
	result := Result{BatchID: uuid.New()}
	leftovers := make(map[string][]types.WriteRequest)

	for _, requests := range chunk(ops, core.MaxBatchWriteItems) {
		result.Chunks++
		outcome := w.writeChunk(ctx, result.BatchID, requests)
		result.Attempts += outcome.attempts
		merge(leftovers, outcome.unprocessed)
		if outcome.err != nil {
			return result, w.abort(result, outcome.err, leftovers)
		}
	}
	return result, w.finish(result, leftovers)
}

// WriteParallel dispatches ops with at most the configured number of chunks
// in flight. After a store error no new chunk starts. Chunks already running
// are joined and their leftovers merged before returning.
func (w *Writer) WriteParallel(ctx context.Context, ops []Operation) (Result, error) {
	batchID := uuid.New()
	result := Result{BatchID: batchID}
	chunks := chunk(ops, core.MaxBatchWriteItems)
	outcomes := make([]chunkOutcome, len(chunks))

	var (
		wg      sync.WaitGroup
		aborted atomic.Bool
	)
	semaphore := make(chan struct{}, w.parallelism)

	for i, requests := range chunks {
		semaphore <- struct{}{}
		if aborted.Load() {
			<-semaphore
			break
		}
		result.Chunks++
		wg.Add(1)
		go func(i int, requests map[string][]types.WriteRequest) {
			defer wg.Done()
			defer func() { <-semaphore }()

			outcomes[i] = w.writeChunk(ctx, batchID, requests)
			if outcomes[i].err != nil {
				aborted.Store(true)
			}
		}(i, requests)
	}
	wg.Wait()

	leftovers := make(map[string][]types.WriteRequest)
	var firstErr error
	for _, outcome := range outcomes[:result.Chunks] {
		result.Attempts += outcome.attempts
		merge(leftovers, outcome.unprocessed)
		if firstErr == nil && outcome.err != nil {
			firstErr = outcome.err
		}
	}
	if firstErr != nil {
		return result, w.abort(result, firstErr, leftovers)
	}
	return result, w.finish(result, leftovers)
}

type chunkOutcome struct {
	err         error
	unprocessed map[string][]types.WriteRequest
	attempts    int
}

// writeChunk sends one chunk and resends its unprocessed items until none
// remain or the retries run out.
func (w *Writer) writeChunk(ctx context.Context, batchID uuid.UUID, requests map[string][]types.WriteRequest) chunkOutcome {
	w.metrics.chunk()
	pending := requests
	var outcome chunkOutcome

	for retry := 0; ; retry++ {
		out, err := w.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{RequestItems: pending})
		outcome.attempts++
		if err != nil {
			if retry > 0 {
				outcome.unprocessed = pending
			}
			outcome.err = tablerowErrors.NewStoreError("batch write item", err)
			return outcome
		}
		if count(out.UnprocessedItems) == 0 {
			return outcome
		}

		pending = out.UnprocessedItems
		if retry >= w.policy.MaxRetries {
			outcome.unprocessed = pending
			return outcome
		}

		delay := w.delay(retry)
		w.metrics.retry()
		w.logger.Warn("resending unprocessed items",
			zap.String("batch_id", batchID.String()),
			zap.Int("unprocessed", count(pending)),
			zap.Int("retry", retry+1),
			zap.Duration("backoff", delay),
		)
		if err := w.sleep(ctx, delay); err != nil {
			outcome.unprocessed = pending
			outcome.err = tablerowErrors.NewStoreError("batch write item", err)
			return outcome
		}
	}
}

func (w *Writer) delay(retry int) time.Duration {
	if w.rng == nil {
		return w.policy.Delay(retry, nil)
	}
	w.rngMu.Lock()
	defer w.rngMu.Unlock()
	return w.policy.Delay(retry, w.rng)
}

func (w *Writer) finish(result Result, leftovers map[string][]types.WriteRequest) error {
	if len(leftovers) == 0 {
		w.logger.Debug("batch write complete",
			zap.String("batch_id", result.BatchID.String()),
			zap.Int("chunks", result.Chunks),
			zap.Int("attempts", result.Attempts),
		)
		return nil
	}
	w.metrics.unprocessed(leftovers)
	failure := &tablerowErrors.PartialBatchFailure{Unprocessed: leftovers}
	w.logger.Warn("batch write abandoned unprocessed items",
		zap.String("batch_id", result.BatchID.String()),
		zap.Int("unprocessed", failure.Count()),
		zap.Strings("tables", failure.Tables()),
	)
	return failure
}

func (w *Writer) abort(result Result, cause error, leftovers map[string][]types.WriteRequest) error {
	w.logger.Warn("batch write aborted",
		zap.String("batch_id", result.BatchID.String()),
		zap.Int("chunks", result.Chunks),
		zap.Error(cause),
	)
	if len(leftovers) == 0 {
		return cause
	}
	w.metrics.unprocessed(leftovers)
	partial := &tablerowErrors.PartialBatchFailure{Unprocessed: leftovers}
	return tablerowErrors.NewStoreError("batch write", errors.Join(cause, partial))
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
