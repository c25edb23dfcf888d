// Package ingest resolves raw source events, hands them to the event log and
// routes them, preserving per-channel order.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/heartmarshall/chatbot-backend/internal/domain"
	"github.com/heartmarshall/chatbot-backend/internal/eventsource"
	"github.com/heartmarshall/chatbot-backend/internal/service/router"
	"github.com/heartmarshall/chatbot-backend/pkg/ctxutil"
)

type directory interface {
	Channel(ctx context.Context, name string) (*domain.Channel, error)
	RoomState(ctx context.Context, name, roomID string) (*domain.Channel, error)
	User(ctx context.Context, id domain.UserIdentity) (*domain.User, error)
}

type eventLog interface {
	Enqueue(ev domain.ChatEvent) bool
}

type eventRouter interface {
	Route(ctx context.Context, in router.Input) router.Outcome
}

// Options tunes a Pipeline.
type Options struct {
	Workers      int
	QueueSize    int
	MaxReconnect time.Duration
	// LookupAttempts bounds channel lookups per event. An event whose channel
	// cannot be resolved is dropped rather than stored as channel-less.
	LookupAttempts int
}

func (o *Options) setDefaults() {
	if o.Workers <= 0 {
		o.Workers = 8
	}
	if o.QueueSize <= 0 {
		o.QueueSize = 256
	}
	if o.MaxReconnect <= 0 {
		o.MaxReconnect = time.Minute
	}
	if o.LookupAttempts <= 0 {
		o.LookupAttempts = 5
	}
}

// Pipeline consumes a Source. Events of one channel always go to the same
// worker, so they are persisted and routed in receipt order.
type Pipeline struct {
	dir    directory
	events eventLog
	router eventRouter
	log    *slog.Logger
	opts   Options

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func NewPipeline(log *slog.Logger, dir directory, events eventLog, r eventRouter, opts Options) *Pipeline {
	opts.setDefaults()
	return &Pipeline{
		dir:    dir,
		events: events,
		router: r,
		log:    log.With("service", "ingest"),
		opts:   opts,
		now:    time.Now,
		sleep:  sleepCtx,
	}
}

// Run reads src until ctx is done or the source is exhausted, reconnecting
// with exponential backoff when it fails. Events already queued are processed
// before Run returns.
func (p *Pipeline) Run(ctx context.Context, src eventsource.Source) error {
	queues := make([]chan eventsource.Event, p.opts.Workers)
	var wg sync.WaitGroup
	for i := range queues {
		queues[i] = make(chan eventsource.Event, p.opts.QueueSize)
		wg.Add(1)
		go func(q <-chan eventsource.Event) {
			defer wg.Done()
			// Queued events are finished even during shutdown.
			wctx := context.WithoutCancel(ctx)
			for ev := range q {
				p.handle(wctx, ev)
			}
		}(queues[i])
	}

	in := make(chan eventsource.Event)
	fanout := make(chan struct{})
	go func() {
		defer close(fanout)
		for ev := range in {
			queues[p.shard(ev)] <- ev
		}
	}()

	err := p.consume(ctx, src, in)

	close(in)
	<-fanout
	for _, q := range queues {
		close(q)
	}
	wg.Wait()

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (p *Pipeline) consume(ctx context.Context, src eventsource.Source, in chan<- eventsource.Event) error {
	b := backoff.NewExponentialBackOff()
	b.MaxInterval = p.opts.MaxReconnect
	b.MaxElapsedTime = 0
	b.Reset()

	for {
		started := p.now()
		err := src.Run(ctx, in)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err == nil {
			p.log.Info("event source exhausted")
			return nil
		}

		// A connection that stayed up for a while starts the backoff over.
		if p.now().Sub(started) > p.opts.MaxReconnect {
			b.Reset()
		}
		wait := b.NextBackOff()
		p.log.Warn("event source failed, reconnecting",
			slog.String("error", err.Error()),
			slog.Duration("retry_in", wait),
		)
		if err := p.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// shard sends channel-less events (whispers, connects) to worker 0.
func (p *Pipeline) shard(ev eventsource.Event) int {
	if ev.Channel == "" {
		return 0
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(ev.Channel))
	return int(h.Sum32() % uint32(p.opts.Workers))
}

func (p *Pipeline) handle(ctx context.Context, raw eventsource.Event) {
	ev, in, err := p.resolve(ctx, raw)
	if err != nil {
		level := slog.LevelError
		if errors.Is(err, domain.ErrValidation) {
			level = slog.LevelWarn
		}
		p.log.Log(ctx, level, "dropping event",
			slog.String("type", string(raw.Type)),
			slog.String("channel", raw.Channel),
			slog.String("error", err.Error()),
		)
		return
	}

	ctx = ctxutil.WithEventID(ctx, ev.ID)
	if in.Channel != nil {
		ctx = ctxutil.WithChannel(ctx, in.Channel.Name)
	}

	// Persistence does not depend on the routing outcome.
	p.events.Enqueue(ev)
	p.router.Route(ctx, in)
}

func (p *Pipeline) resolve(ctx context.Context, raw eventsource.Event) (domain.ChatEvent, router.Input, error) {
	if !raw.Type.IsValid() {
		return domain.ChatEvent{}, router.Input{}, domain.NewValidationError("type", fmt.Sprintf("unknown event type %q", raw.Type))
	}

	ev := domain.ChatEvent{
		ID:                raw.ID,
		Type:              raw.Type,
		ProtocolMessageID: raw.ProtocolMessageID,
		Text:              raw.Text,
		Tags:              raw.Tags,
		ReceivedAt:        raw.ReceivedAt,
	}
	if ev.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return domain.ChatEvent{}, router.Input{}, fmt.Errorf("assign event id: %w", err)
		}
		ev.ID = id
	}
	if ev.ReceivedAt.IsZero() {
		ev.ReceivedAt = p.now()
	}
	// The store keeps microseconds; routing sees the same instant that is stored.
	ev.ReceivedAt = ev.ReceivedAt.UTC().Truncate(time.Microsecond)
	if ev.Tags == nil {
		ev.Tags = map[string]string{}
	}

	in := router.Input{}
	if raw.Channel != "" {
		ch, err := p.lookupChannel(ctx, raw)
		if err != nil {
			return domain.ChatEvent{}, router.Input{}, err
		}
		if ch != nil {
			in.Channel = ch
			id := ch.ID
			ev.ChannelID = &id
		}
	}

	if raw.Sender != nil && raw.Sender.ID != "" {
		u, err := p.dir.User(ctx, raw.Sender.Identity())
		if err != nil {
			p.log.Warn("sender lookup failed", slog.String("sender", raw.Sender.ID), slog.String("error", err.Error()))
		}
		if u != nil {
			in.Sender = u
			id := u.ID
			ev.SenderUserID = &id
		}
	}

	in.Event = ev
	return ev, in, nil
}

// lookupChannel retries transient directory failures. Giving up is an error:
// the event must not land in the channel-less partition.
func (p *Pipeline) lookupChannel(ctx context.Context, raw eventsource.Event) (*domain.Channel, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxElapsedTime = 0
	b.Reset()

	for attempt := 1; ; attempt++ {
		var (
			ch  *domain.Channel
			err error
		)
		if raw.Type == domain.EventTypeRoomState && raw.RoomID != "" {
			ch, err = p.dir.RoomState(ctx, raw.Channel, raw.RoomID)
		} else {
			ch, err = p.dir.Channel(ctx, raw.Channel)
		}
		if err == nil {
			return ch, nil
		}
		if attempt >= p.opts.LookupAttempts {
			return nil, fmt.Errorf("resolve channel %q after %d attempts: %w", raw.Channel, attempt, err)
		}

		wait := b.NextBackOff()
		p.log.Warn("channel lookup failed, retrying",
			slog.String("channel", raw.Channel),
			slog.Int("attempt", attempt),
			slog.Duration("retry_in", wait),
			slog.String("error", err.Error()),
		)
		if err := p.sleep(ctx, wait); err != nil {
			return nil, err
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
