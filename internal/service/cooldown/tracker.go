// Package cooldown decides whether a command invocation is throttled and
// records invocations that are not.
package cooldown

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/heartmarshall/chatbot-backend/internal/domain"
)

// Key identifies one cooldown ledger entry. UserID is 0 unless the command is user scoped.
type Key struct {
	ChannelID int32
	CommandID int32
	UserID    int32
}

// KeyFor returns the ledger key of cmd invoked by userID in channelID.
func KeyFor(channelID int32, cmd domain.Command, userID int32) Key {
	k := Key{ChannelID: channelID, CommandID: cmd.ID}
	if cmd.UserScoped {
		k.UserID = userID
	}
	return k
}

func (k Key) String() string {
	return strconv.FormatInt(int64(k.ChannelID), 10) + ":" +
		strconv.FormatInt(int64(k.CommandID), 10) + ":" +
		strconv.FormatInt(int64(k.UserID), 10)
}

// Result is the outcome of a cooldown check.
type Result struct {
	Ready bool
	// Remaining is the wait until the key is ready again, in [0, window]. Zero when Ready.
	Remaining time.Duration
}

// Store is a cooldown ledger with atomic check-and-set semantics.
type Store interface {
	// Acquire records now as the last invocation of key if the window since the
	// previous invocation has elapsed. Otherwise it returns the remaining wait.
	Acquire(ctx context.Context, key Key, window time.Duration, now time.Time) (acquired bool, remaining time.Duration, err error)
}

// Tracker applies cooldown windows on top of a Store.
type Tracker struct {
	store Store
	max   time.Duration
}

// NewTracker creates a tracker. Windows longer than maxCooldown are clamped.
func NewTracker(store Store, maxCooldown time.Duration) *Tracker {
	return &Tracker{store: store, max: maxCooldown}
}

// CheckAndRecord reports whether key is ready at now and, if so, records now.
// A non-positive window means no cooldown: always ready, nothing recorded.
func (t *Tracker) CheckAndRecord(ctx context.Context, key Key, window time.Duration, now time.Time) (Result, error) {
	if window <= 0 {
		return Result{Ready: true}, nil
	}
	if t.max > 0 && window > t.max {
		window = t.max
	}

	acquired, remaining, err := t.store.Acquire(ctx, key, window, now)
	if err != nil {
		return Result{}, fmt.Errorf("cooldown %s: %w", key, err)
	}
	if acquired {
		return Result{Ready: true}, nil
	}
	return Result{Remaining: clamp(remaining, window)}, nil
}

func clamp(d, window time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	if d > window {
		return window
	}
	return d
}
