// Package eventlog appends chat events to the event store off the routing path.
package eventlog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/heartmarshall/chatbot-backend/internal/domain"
	"github.com/heartmarshall/chatbot-backend/internal/metrics"
)

type appender interface {
	AppendBatch(ctx context.Context, events []domain.ChatEvent) error
}

type appendMetrics interface {
	EventsAppended(result string, n int)
	QueueDepth(delta float64)
}

// Options tunes a Writer.
type Options struct {
	Shards         int
	QueueSize      int
	BatchSize      int
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	// FlushTimeout bounds draining the queues on shutdown.
	FlushTimeout time.Duration
}

func (o *Options) setDefaults() {
	if o.Shards <= 0 {
		o.Shards = 1
	}
	if o.QueueSize <= 0 {
		o.QueueSize = 1024
	}
	if o.BatchSize <= 0 {
		o.BatchSize = 64
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 1
	}
	if o.InitialBackoff <= 0 {
		o.InitialBackoff = 100 * time.Millisecond
	}
	if o.MaxBackoff < o.InitialBackoff {
		o.MaxBackoff = o.InitialBackoff
	}
	if o.FlushTimeout <= 0 {
		o.FlushTimeout = 10 * time.Second
	}
}

// Writer appends events asynchronously. Events of one channel always go to the
// same shard, so they are appended in the order they were enqueued.
type Writer struct {
	store   appender
	metrics appendMetrics
	log     *slog.Logger
	opts    Options
	queues  []chan domain.ChatEvent
}

// NewWriter creates a writer. Call Run to start appending.
func NewWriter(log *slog.Logger, store appender, m appendMetrics, opts Options) *Writer {
	opts.setDefaults()
	w := &Writer{
		store:   store,
		metrics: m,
		log:     log.With("service", "eventlog"),
		opts:    opts,
		queues:  make([]chan domain.ChatEvent, opts.Shards),
	}
	for i := range w.queues {
		w.queues[i] = make(chan domain.ChatEvent, opts.QueueSize)
	}
	return w
}

// Enqueue hands ev to its shard without blocking. A full queue drops the event
// and returns false.
func (w *Writer) Enqueue(ev domain.ChatEvent) bool {
	q := w.queues[shardOf(ev.PartitionChannel(), len(w.queues))]
	select {
	case q <- ev:
		w.observeDepth(1)
		return true
	default:
		w.observe(metrics.AppendDropped, 1)
		w.log.Warn("event queue full, dropping event",
			slog.String("event_id", ev.ID.String()),
			slog.Int("channel_id", int(ev.PartitionChannel())),
		)
		return false
	}
}

func shardOf(channelID int32, n int) int {
	return int(uint32(channelID) % uint32(n))
}

// Run appends queued events until ctx is done, then flushes what is left.
func (w *Writer) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for i, q := range w.queues {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.runShard(ctx, i, q)
		}()
	}
	wg.Wait()
	return nil
}

func (w *Writer) runShard(ctx context.Context, shard int, q chan domain.ChatEvent) {
	batch := make([]domain.ChatEvent, 0, w.opts.BatchSize)
	for {
		select {
		case <-ctx.Done():
			w.flush(shard, q, batch[:0])
			return
		case ev := <-q:
			batch = append(batch[:0], ev)
			batch = w.fill(q, batch)
			// An in-flight batch finishes its retries even when shutdown starts.
			w.write(context.WithoutCancel(ctx), shard, batch)
		}
	}
}

// fill drains queued events into batch without blocking.
func (w *Writer) fill(q chan domain.ChatEvent, batch []domain.ChatEvent) []domain.ChatEvent {
	for len(batch) < w.opts.BatchSize {
		select {
		case ev := <-q:
			batch = append(batch, ev)
		default:
			return batch
		}
	}
	return batch
}

func (w *Writer) flush(shard int, q chan domain.ChatEvent, batch []domain.ChatEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), w.opts.FlushTimeout)
	defer cancel()

	for {
		batch = w.fill(q, batch[:0])
		if len(batch) == 0 {
			return
		}
		w.write(ctx, shard, batch)
		if ctx.Err() != nil {
			return
		}
	}
}

func (w *Writer) write(ctx context.Context, shard int, batch []domain.ChatEvent) {
	defer w.observeDepth(-float64(len(batch)))

	attempts := 0
	op := func() error {
		attempts++
		err := w.store.AppendBatch(ctx, batch)
		if err != nil && errors.Is(err, domain.ErrValidation) {
			return backoff.Permanent(err)
		}
		return err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = w.opts.InitialBackoff
	b.MaxInterval = w.opts.MaxBackoff
	b.MaxElapsedTime = 0

	err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(b, uint64(w.opts.MaxAttempts-1)), ctx))
	if err == nil {
		if attempts > 1 {
			w.observe(metrics.AppendRetried, len(batch))
		}
		w.observe(metrics.AppendOK, len(batch))
		return
	}

	w.observe(metrics.AppendFailed, len(batch))
	w.log.Error("event append failed, dropping batch",
		slog.Int("shard", shard),
		slog.Int("events", len(batch)),
		slog.Int("attempts", attempts),
		slog.String("error", fmt.Errorf("%w: %w", domain.ErrStoreAppendFailed, err).Error()),
	)
}

// Depth returns the number of queued events.
func (w *Writer) Depth() int {
	n := 0
	for _, q := range w.queues {
		n += len(q)
	}
	return n
}

func (w *Writer) observe(result string, n int) {
	if w.metrics != nil {
		w.metrics.EventsAppended(result, n)
	}
}

func (w *Writer) observeDepth(delta float64) {
	if w.metrics != nil {
		w.metrics.QueueDepth(delta)
	}
}
