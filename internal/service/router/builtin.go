package router

import (
	"context"
	"fmt"

	"github.com/heartmarshall/chatbot-backend/internal/service/snapshot"
)

// Builtin handler names. The seed migration creates commands bound to them.
const (
	HandlerReload = "reload"
	HandlerPing   = "ping"
)

type snapshotReloader interface {
	Reload(ctx context.Context) (*snapshot.Snapshot, error)
}

type directoryPurger interface {
	Purge()
}

// RegisterBuiltins registers the handlers every deployment has.
func RegisterBuiltins(reg *Registry, snapshots snapshotReloader, directory directoryPurger) error {
	if err := reg.Register(HandlerPing, HandlerFunc(ping)); err != nil {
		return err
	}
	return reg.Register(HandlerReload, reloadHandler(snapshots, directory))
}

func ping(_ context.Context, inv Invocation) (Result, error) {
	if inv.Sender != nil {
		return Result{Reply: "@" + inv.Sender.Name + " pong"}, nil
	}
	return Result{Reply: "pong"}, nil
}

func reloadHandler(snapshots snapshotReloader, directory directoryPurger) HandlerFunc {
	return func(ctx context.Context, _ Invocation) (Result, error) {
		if directory != nil {
			directory.Purge()
		}
		snap, err := snapshots.Reload(ctx)
		if err != nil {
			return Result{Reply: "reload failed, still using the previous configuration"}, err
		}
		st := snap.Stats()
		return Result{Reply: fmt.Sprintf("reloaded: %d commands, %d aliases, %d permissions",
			st.Commands, st.Aliases, st.Permissions)}, nil
	}
}
