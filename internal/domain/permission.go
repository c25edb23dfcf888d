package domain

// Well-known permission names.
const (
	PermissionRoot           = "root"
	PermissionBypassCooldown = "cmd:bypass_cooldowns"
)

// Permission is a named capability with a default state.
type Permission struct {
	ID           int32
	Name         string
	Description  *string
	DefaultState PermissionState
}

// PermissionImplication means holding ImpliedByID grants PermissionID.
type PermissionImplication struct {
	PermissionID int32
	ImpliedByID  int32
}

// UserPermissionOverride sets a permission's state for one user.
type UserPermissionOverride struct {
	UserID       int32
	PermissionID int32
	State        PermissionState
}

// BotConfig is the full set of configuration rows a snapshot is built from.
type BotConfig struct {
	Commands           []Command
	Aliases            []CommandAlias
	ChannelConfigs     []ChannelCommandConfig
	CommandPermissions []CommandPermission
	Permissions        []Permission
	Implications       []PermissionImplication
	UserOverrides      []UserPermissionOverride
}
