package ctxutil

import (
	"context"

	"github.com/google/uuid"
)

type ctxKey string

const (
	eventIDKey   ctxKey = "event_id"
	channelKey   ctxKey = "channel"
	requestIDKey ctxKey = "request_id"
)

// WithEventID stores the id of the chat event being processed.
func WithEventID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, eventIDKey, id)
}

// EventIDFromCtx extracts the chat event id from the context.
// Returns uuid.Nil and false if the value is missing, nil UUID, or wrong type.
func EventIDFromCtx(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(eventIDKey).(uuid.UUID)
	if !ok || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}

// WithChannel stores the name of the channel the event arrived in.
func WithChannel(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, channelKey, name)
}

// ChannelFromCtx extracts the channel name. Returns an empty string if absent.
func ChannelFromCtx(ctx context.Context) string {
	name, _ := ctx.Value(channelKey).(string)
	return name
}

// WithRequestID stores the request ID in the context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromCtx extracts the request ID from the context.
// Returns an empty string if absent.
func RequestIDFromCtx(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}
