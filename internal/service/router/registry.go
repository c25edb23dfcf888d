package router

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/heartmarshall/chatbot-backend/internal/domain"
)

// Invocation is what a handler receives for an authorized command call.
type Invocation struct {
	Command domain.Command
	Alias   string
	Args    []string
	// Channel is nil for whispers.
	Channel *domain.Channel
	// Sender is nil when the event source did not identify the sender.
	Sender *domain.User
	Event  domain.ChatEvent
}

// Result is what a handler returns. A non-empty Reply is sent back to the chat.
type Result struct {
	Reply string
}

// Handler implements one command.
type Handler interface {
	Handle(ctx context.Context, inv Invocation) (Result, error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, inv Invocation) (Result, error)

func (f HandlerFunc) Handle(ctx context.Context, inv Invocation) (Result, error) {
	return f(ctx, inv)
}

// Registry maps handler names to implementations.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register adds h under name. Names are unique.
func (r *Registry) Register(name string, h Handler) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if name == "" || h == nil {
		return domain.NewValidationError("handler", "name and handler are required")
	}
	if _, ok := r.handlers[name]; ok {
		return fmt.Errorf("handler %q: %w", name, domain.ErrAlreadyExists)
	}
	r.handlers[name] = h
	return nil
}

// Lookup returns the handler registered under name.
func (r *Registry) Lookup(name string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[name]
	return h, ok
}

// Dispatch invokes the handler registered under name.
func (r *Registry) Dispatch(ctx context.Context, name string, inv Invocation) (Result, error) {
	h, ok := r.Lookup(name)
	if !ok {
		return Result{}, fmt.Errorf("handler %q: %w", name, domain.ErrUnknownHandler)
	}
	return h.Handle(ctx, inv)
}

// Names returns the registered handler names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.handlers))
	for n := range r.handlers {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}
