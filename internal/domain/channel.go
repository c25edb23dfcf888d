package domain

import "time"

// Channel is a chat room the bot is attached to.
type Channel struct {
	ID             int32
	ExternalRoomID *string
	Name           string
	CommandPrefix  *string
	JoinOnStart    bool
	Silent         bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Prefix returns the channel's command prefix, or fallback when none is configured.
func (c *Channel) Prefix(fallback string) string {
	if c == nil || c.CommandPrefix == nil || *c.CommandPrefix == "" {
		return fallback
	}
	return *c.CommandPrefix
}
