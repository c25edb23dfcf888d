// Package directory resolves the channel names and sender identities carried
// by chat events to stored channels and users.
package directory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/heartmarshall/chatbot-backend/internal/domain"
)

type channelRepo interface {
	GetByName(ctx context.Context, name string) (*domain.Channel, error)
	UpsertRoomState(ctx context.Context, name, roomID string) (*domain.Channel, error)
}

type userRepo interface {
	Upsert(ctx context.Context, id domain.UserIdentity) (*domain.User, error)
}

// Service caches channel and user lookups with a bounded, expiring LRU.
type Service struct {
	channels channelRepo
	users    userRepo
	log      *slog.Logger

	// A cached nil channel means the bot does not know the channel.
	channelCache *expirable.LRU[string, *domain.Channel]
	userCache    *expirable.LRU[string, *domain.User]
}

// NewService creates a directory keeping at most size entries per cache for ttl.
func NewService(log *slog.Logger, channels channelRepo, users userRepo, size int, ttl time.Duration) *Service {
	return &Service{
		channels:     channels,
		users:        users,
		log:          log.With("service", "directory"),
		channelCache: expirable.NewLRU[string, *domain.Channel](size, nil, ttl),
		userCache:    expirable.NewLRU[string, *domain.User](size, nil, ttl),
	}
}

// Channel returns the channel named name, or nil if the bot does not know it.
func (s *Service) Channel(ctx context.Context, name string) (*domain.Channel, error) {
	if name == "" {
		return nil, nil
	}
	if ch, ok := s.channelCache.Get(name); ok {
		return ch, nil
	}

	ch, err := s.channels.GetByName(ctx, name)
	if errors.Is(err, domain.ErrNotFound) {
		s.log.DebugContext(ctx, "event from unknown channel", slog.String("channel", name))
		s.channelCache.Add(name, nil)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get channel: %w", err)
	}

	s.channelCache.Add(name, ch)
	return ch, nil
}

// RoomState records the external room id a room-state event reported.
func (s *Service) RoomState(ctx context.Context, name, roomID string) (*domain.Channel, error) {
	if cached, ok := s.channelCache.Get(name); ok && cached != nil &&
		cached.ExternalRoomID != nil && *cached.ExternalRoomID == roomID {
		return cached, nil
	}

	ch, err := s.channels.UpsertRoomState(ctx, name, roomID)
	if err != nil {
		return nil, fmt.Errorf("upsert room state: %w", err)
	}
	s.channelCache.Add(name, ch)
	return ch, nil
}

// User returns the stored user for id, creating it on first sighting and
// recording name history when the identity changed.
func (s *Service) User(ctx context.Context, id domain.UserIdentity) (*domain.User, error) {
	if id.ExternalUserID == "" {
		return nil, domain.NewValidationError("external_user_id", "required")
	}
	if u, ok := s.userCache.Get(id.ExternalUserID); ok && !u.Differs(id) {
		return u, nil
	}

	u, err := s.users.Upsert(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("upsert user: %w", err)
	}
	s.userCache.Add(id.ExternalUserID, u)
	return u, nil
}

// Purge drops every cached entry.
func (s *Service) Purge() {
	s.channelCache.Purge()
	s.userCache.Purge()
}
