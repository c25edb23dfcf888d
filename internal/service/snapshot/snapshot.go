// Package snapshot holds the immutable routing configuration and the cache that
// reloads it.
package snapshot

import (
	"fmt"
	"strings"
	"time"

	"github.com/heartmarshall/chatbot-backend/internal/domain"
	"github.com/heartmarshall/chatbot-backend/internal/service/permission"
)

type channelCommand struct {
	channelID int32
	commandID int32
}

// Snapshot is a point-in-time view of all routing configuration.
// It is never mutated after Build returns.
type Snapshot struct {
	Generation uint64
	LoadedAt   time.Time

	commands       map[int32]domain.Command
	aliases        map[string]int32
	channelConfigs map[channelCommand]domain.ChannelCommandConfig
	permissions    *permission.Graph
}

// Build indexes cfg into a snapshot. Aliases must reference existing commands
// and the implication graph must be acyclic.
func Build(cfg domain.BotConfig, generation uint64) (*Snapshot, error) {
	perms, err := permission.BuildGraph(cfg.Permissions, cfg.Implications, cfg.UserOverrides)
	if err != nil {
		return nil, fmt.Errorf("build permission graph: %w", err)
	}

	s := &Snapshot{
		Generation:     generation,
		LoadedAt:       time.Now(),
		commands:       make(map[int32]domain.Command, len(cfg.Commands)),
		aliases:        make(map[string]int32, len(cfg.Aliases)),
		channelConfigs: make(map[channelCommand]domain.ChannelCommandConfig, len(cfg.ChannelConfigs)),
		permissions:    perms,
	}

	for _, c := range cfg.Commands {
		s.commands[c.ID] = c
	}

	var errs []domain.FieldError
	for _, a := range cfg.Aliases {
		if _, ok := s.commands[a.CommandID]; !ok {
			errs = append(errs, domain.FieldError{
				Field:   "alias." + a.Name,
				Message: fmt.Sprintf("references missing command %d", a.CommandID),
			})
			continue
		}
		s.aliases[strings.ToLower(a.Name)] = a.CommandID
	}
	if len(errs) > 0 {
		return nil, domain.NewValidationErrors(errs)
	}

	for _, cc := range cfg.ChannelConfigs {
		s.channelConfigs[channelCommand{cc.ChannelID, cc.CommandID}] = cc
	}

	return s, nil
}

// Command returns the command with the given id.
func (s *Snapshot) Command(id int32) (domain.Command, bool) {
	c, ok := s.commands[id]
	return c, ok
}

// CommandByAlias looks up an alias case-insensitively.
func (s *Snapshot) CommandByAlias(alias string) (domain.Command, bool) {
	id, ok := s.aliases[strings.ToLower(alias)]
	if !ok {
		return domain.Command{}, false
	}
	return s.Command(id)
}

// ChannelConfig returns the channel override of a command, if any.
func (s *Snapshot) ChannelConfig(channelID, commandID int32) (domain.ChannelCommandConfig, bool) {
	cc, ok := s.channelConfigs[channelCommand{channelID, commandID}]
	return cc, ok
}

// EffectiveActive reports whether cmd may run in the channel: the command must be
// enabled, and the channel override's active flag replaces the command default.
func (s *Snapshot) EffectiveActive(channelID int32, cmd domain.Command) bool {
	if !cmd.Enabled {
		return false
	}
	if cc, ok := s.ChannelConfig(channelID, cmd.ID); ok {
		return cc.Active
	}
	return cmd.DefaultActive
}

// EffectiveCooldown returns the cooldown of cmd in the channel, or nil for none.
// A channel override replaces the command default even when its cooldown is unset.
func (s *Snapshot) EffectiveCooldown(channelID int32, cmd domain.Command) *time.Duration {
	if cc, ok := s.ChannelConfig(channelID, cmd.ID); ok {
		return cc.Cooldown
	}
	return cmd.DefaultCooldown
}

// Permissions returns the snapshot's permission graph.
func (s *Snapshot) Permissions() *permission.Graph {
	return s.permissions
}

// Stats summarizes the snapshot for logs and replies.
type Stats struct {
	Commands       int
	Aliases        int
	ChannelConfigs int
	Permissions    int
}

func (s *Snapshot) Stats() Stats {
	return Stats{
		Commands:       len(s.commands),
		Aliases:        len(s.aliases),
		ChannelConfigs: len(s.channelConfigs),
		Permissions:    s.permissions.Len(),
	}
}
