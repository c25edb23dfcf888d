package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/heartmarshall/chatbot-backend/internal/domain"
	"github.com/heartmarshall/chatbot-backend/internal/metrics"
	"github.com/heartmarshall/chatbot-backend/pkg/ctxutil"
)

type handlerReturn struct {
	res      Result
	err      error
	panicked bool
}

// dispatch runs h in the background, bounded by the handler timeout.
// The cooldown slot is already consumed; failures are reported, never retried.
func (r *Router) dispatch(ctx context.Context, h Handler, inv Invocation) {
	base := ctxutil.WithEventID(context.WithoutCancel(ctx), inv.Event.ID)

	r.inflight.Add(1)
	go func() {
		defer r.inflight.Done()

		var (
			hctx   context.Context
			cancel context.CancelFunc
		)
		if r.opts.HandlerTimeout > 0 {
			hctx, cancel = context.WithTimeout(base, r.opts.HandlerTimeout)
		} else {
			hctx, cancel = context.WithCancel(base)
		}
		defer cancel()

		start := r.now()
		ret := r.invoke(hctx, h, inv)
		took := r.now().Sub(start)

		result := metrics.HandlerOK
		switch {
		case ret.panicked:
			result = metrics.HandlerPanic
		case errors.Is(ret.err, context.DeadlineExceeded):
			result = metrics.HandlerTimeout
		case ret.err != nil:
			result = metrics.HandlerError
		}
		if r.metrics != nil {
			r.metrics.HandlerInvoked(inv.Command.HandlerName, result, took)
		}

		attrs := []any{
			slog.String("event_id", inv.Event.ID.String()),
			slog.String("handler", inv.Command.HandlerName),
			slog.String("alias", inv.Alias),
			slog.Duration("took", took),
		}
		if ret.err != nil {
			r.log.WarnContext(hctx, "handler failed", append(attrs,
				slog.String("result", result),
				slog.String("error", ret.err.Error()),
			)...)
		} else {
			r.log.InfoContext(hctx, "handler completed", attrs...)
		}

		if ret.res.Reply == "" || r.replies == nil {
			return
		}
		if err := r.replies.Reply(hctx, inv, ret.res.Reply); err != nil {
			r.log.WarnContext(hctx, "reply failed", append(attrs, slog.String("error", err.Error()))...)
		}
	}()
}

// invoke abandons the handler when ctx expires; a late return is discarded.
func (r *Router) invoke(ctx context.Context, h Handler, inv Invocation) handlerReturn {
	done := make(chan handlerReturn, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				eventID, _ := ctxutil.EventIDFromCtx(ctx)
				r.log.Error("handler panic",
					slog.String("event_id", eventID.String()),
					slog.String("handler", inv.Command.HandlerName),
					slog.Any("panic", p),
					slog.String("stack", string(debug.Stack())),
				)
				done <- handlerReturn{
					err:      fmt.Errorf("%w: panic: %v", domain.ErrHandlerFailed, p),
					panicked: true,
				}
			}
		}()
		res, err := h.Handle(ctx, inv)
		if err != nil {
			err = fmt.Errorf("%w: %w", domain.ErrHandlerFailed, err)
		}
		done <- handlerReturn{res: res, err: err}
	}()

	select {
	case ret := <-done:
		return ret
	case <-ctx.Done():
		return handlerReturn{err: fmt.Errorf("%w: %w", domain.ErrHandlerFailed, ctx.Err())}
	}
}
