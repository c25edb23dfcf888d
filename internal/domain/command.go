package domain

import "time"

// Command is a command definition bound to a registered handler.
type Command struct {
	ID                  int32
	HandlerName         string
	Description         *string
	Enabled             bool
	DefaultActive       bool
	DefaultCooldown     *time.Duration
	WhisperEnabled      bool
	UserScoped          bool
	RequiredPermissions []int32
}

// CommandAlias maps an invocation token to a command.
type CommandAlias struct {
	Name      string
	CommandID int32
}

// ChannelCommandConfig overrides a command's active flag and cooldown in one channel.
// A nil Cooldown disables the cooldown in that channel.
type ChannelCommandConfig struct {
	ChannelID int32
	CommandID int32
	Active    bool
	Cooldown  *time.Duration
}

// CommandPermission is one required permission of a command.
type CommandPermission struct {
	CommandID    int32
	PermissionID int32
}

// CommandSummary is the admin listing view of a command.
type CommandSummary struct {
	ID             int32    `json:"id"`
	HandlerName    string   `json:"handlerName"`
	Description    *string  `json:"description,omitempty"`
	Enabled        bool     `json:"enabled"`
	DefaultActive  bool     `json:"defaultActive"`
	CooldownMillis *int64   `json:"cooldownMs,omitempty"`
	WhisperEnabled bool     `json:"whisperEnabled"`
	Aliases        []string `json:"aliases"`
}

// Page is one page of a paginated listing.
type Page[T any] struct {
	Items      []T `json:"items"`
	Page       int `json:"page"`
	PageCount  int `json:"pageCount"`
	TotalCount int `json:"totalCount"`
}

// NewPage computes the page count for total items split into pages of perPage.
func NewPage[T any](items []T, page, perPage, total int) Page[T] {
	if items == nil {
		items = []T{}
	}
	pageCount := 0
	if perPage > 0 {
		pageCount = (total + perPage - 1) / perPage
	}
	return Page[T]{Items: items, Page: page, PageCount: pageCount, TotalCount: total}
}
