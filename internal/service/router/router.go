// Package router turns chat events into authorized, rate-limited command
// handler invocations.
package router

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/heartmarshall/chatbot-backend/internal/domain"
	"github.com/heartmarshall/chatbot-backend/internal/service/cooldown"
	"github.com/heartmarshall/chatbot-backend/internal/service/permission"
	"github.com/heartmarshall/chatbot-backend/internal/service/snapshot"
	"github.com/heartmarshall/chatbot-backend/pkg/ctxutil"
)

type snapshotSource interface {
	Current(ctx context.Context) (*snapshot.Snapshot, error)
}

type cooldownTracker interface {
	CheckAndRecord(ctx context.Context, key cooldown.Key, window time.Duration, now time.Time) (cooldown.Result, error)
}

type handlerRegistry interface {
	Lookup(name string) (Handler, bool)
}

type replier interface {
	Reply(ctx context.Context, inv Invocation, text string) error
}

type routeMetrics interface {
	RoutedEvent(status, reason string)
	HandlerInvoked(handler, result string, took time.Duration)
}

// Options tunes a Router.
type Options struct {
	DefaultPrefix  string
	HandlerTimeout time.Duration
}

// Router runs the routing state machine for each event.
type Router struct {
	snapshots snapshotSource
	cooldowns cooldownTracker
	handlers  handlerRegistry
	replies   replier
	metrics   routeMetrics
	log       *slog.Logger
	opts      Options

	inflight sync.WaitGroup
	now      func() time.Time
}

// New creates a router. replies may be nil, in which case handler replies are only logged.
func New(
	log *slog.Logger,
	snapshots snapshotSource,
	cooldowns cooldownTracker,
	handlers handlerRegistry,
	replies replier,
	metrics routeMetrics,
	opts Options,
) *Router {
	if opts.DefaultPrefix == "" {
		opts.DefaultPrefix = "!"
	}
	return &Router{
		snapshots: snapshots,
		cooldowns: cooldowns,
		handlers:  handlers,
		replies:   replies,
		metrics:   metrics,
		log:       log.With("service", "router"),
		opts:      opts,
		now:       time.Now,
	}
}

// Input is an event with its channel and sender already resolved.
type Input struct {
	Event domain.ChatEvent
	// Channel is nil for whispers and channel-less events.
	Channel *domain.Channel
	Sender  *domain.User
}

// Route decides what to do with one event and, if authorized, starts its
// handler in the background. It never blocks on the handler.
func (r *Router) Route(ctx context.Context, in Input) Outcome {
	out := r.route(ctx, in)
	r.record(ctx, in, out)
	return out
}

func (r *Router) route(ctx context.Context, in Input) Outcome {
	ev := in.Event
	if !ev.Type.IsCommandCandidate() || ev.Text == nil {
		return ignored(StageReceived, ReasonNotCandidate)
	}

	whisper := ev.Type == domain.EventTypeWhisper
	scope := domain.NoChannel
	prefix := r.opts.DefaultPrefix
	if !whisper {
		if in.Channel == nil {
			return ignored(StageReceived, ReasonNotCandidate)
		}
		if in.Channel.Silent {
			return ignored(StageReceived, ReasonSilentChannel)
		}
		scope = in.Channel.ID
		prefix = in.Channel.Prefix(r.opts.DefaultPrefix)
	}

	p, ok := parse(*ev.Text, prefix)
	if !ok {
		return ignored(StageReceived, ReasonNoPrefix)
	}

	snap, err := r.snapshots.Current(ctx)
	if err != nil {
		return rejected(StageParsed, ReasonConfigUnavailable, 0, err)
	}

	cmd, ok := snap.CommandByAlias(p.alias)
	if !ok {
		return ignored(StageParsed, ReasonUnknownAlias)
	}
	if whisper && !cmd.WhisperEnabled {
		return ignored(StageParsed, ReasonWhisperDisabled)
	}
	if !snap.EffectiveActive(scope, cmd) {
		return ignored(StageParsed, ReasonInactive)
	}

	h, ok := r.handlers.Lookup(cmd.HandlerName)
	if !ok {
		return rejected(StageResolved, ReasonUnknownHandler, cmd.ID,
			fmt.Errorf("handler %q: %w", cmd.HandlerName, domain.ErrUnknownHandler))
	}

	var userID int32
	if in.Sender != nil {
		userID = in.Sender.ID
	}

	graph := snap.Permissions()
	if d := permission.Resolve(graph, userID, cmd.RequiredPermissions); !d.Allowed {
		out := rejected(StageResolved, ReasonPermissionDenied, cmd.ID, domain.ErrPermissionDenied)
		out.DeniedPermission = d.DeniedPermission
		return out
	}

	if window := snap.EffectiveCooldown(scope, cmd); window != nil && *window > 0 {
		at := ev.ReceivedAt
		if at.IsZero() {
			at = r.now()
		}
		res, err := r.cooldowns.CheckAndRecord(ctx, cooldown.KeyFor(scope, cmd, userID), *window, at)
		if err != nil {
			return rejected(StageAuthorized, ReasonCooldownUnavailable, cmd.ID, err)
		}
		if !res.Ready && !graph.Has(userID, domain.PermissionBypassCooldown) {
			out := rejected(StageAuthorized, ReasonCooldown, cmd.ID, domain.ErrThrottled)
			out.Remaining = res.Remaining
			return out
		}
	}

	inv := Invocation{
		Command: cmd,
		Alias:   p.alias,
		Args:    p.args,
		Sender:  in.Sender,
		Event:   ev,
	}
	if !whisper {
		inv.Channel = in.Channel
	}
	r.dispatch(ctx, h, inv)

	return Outcome{Stage: StageDispatched, Status: StatusDispatched, CommandID: cmd.ID}
}

// Wait blocks until every handler started so far has finished.
func (r *Router) Wait() {
	r.inflight.Wait()
}

func (r *Router) record(ctx context.Context, in Input, out Outcome) {
	if r.metrics != nil {
		r.metrics.RoutedEvent(string(out.Status), string(out.Reason))
	}

	// Plain chat traffic is the common case.
	if out.Reason == ReasonNotCandidate || out.Reason == ReasonNoPrefix {
		return
	}

	attrs := []any{
		slog.String("event_id", in.Event.ID.String()),
		slog.String("channel", ctxutil.ChannelFromCtx(ctx)),
		slog.String("status", string(out.Status)),
		slog.String("reason", string(out.Reason)),
		slog.String("stage", string(out.Stage)),
	}
	if out.CommandID != 0 {
		attrs = append(attrs, slog.Int("command_id", int(out.CommandID)))
	}

	switch out.Reason {
	case ReasonConfigUnavailable, ReasonCooldownUnavailable:
		r.log.WarnContext(ctx, "event not routed", append(attrs, slog.String("error", out.Err.Error()))...)
	case ReasonUnknownHandler:
		r.log.ErrorContext(ctx, "command references unregistered handler", append(attrs, slog.String("error", out.Err.Error()))...)
	case ReasonPermissionDenied:
		r.log.DebugContext(ctx, "event routed", append(attrs, slog.Int("denied_permission", int(out.DeniedPermission)))...)
	case ReasonCooldown:
		r.log.DebugContext(ctx, "event routed", append(attrs, slog.Duration("remaining", out.Remaining))...)
	default:
		r.log.DebugContext(ctx, "event routed", attrs...)
	}
}
