package domain

// EventType is the kind of chat event delivered by the event source.
type EventType string

const (
	EventTypeMessage      EventType = "message"
	EventTypeWhisper      EventType = "whisper"
	EventTypeNotice       EventType = "notice"
	EventTypeUserNotice   EventType = "user-notice"
	EventTypeHost         EventType = "host"
	EventTypeClearChat    EventType = "clear-chat"
	EventTypeClearMessage EventType = "clear-message"
	EventTypeRoomState    EventType = "room-state"
	EventTypeConnect      EventType = "connect"
)

func (t EventType) String() string { return string(t) }

func (t EventType) IsValid() bool {
	switch t {
	case EventTypeMessage, EventTypeWhisper, EventTypeNotice, EventTypeUserNotice, EventTypeHost,
		EventTypeClearChat, EventTypeClearMessage, EventTypeRoomState, EventTypeConnect:
		return true
	}
	return false
}

// IsCommandCandidate reports whether events of this type may carry a command invocation.
func (t EventType) IsCommandCandidate() bool {
	return t == EventTypeMessage || t == EventTypeWhisper
}

// PermissionState is the allow/deny state of a permission.
type PermissionState string

const (
	PermissionAllow PermissionState = "allow"
	PermissionDeny  PermissionState = "deny"
)

func (s PermissionState) String() string { return string(s) }

func (s PermissionState) IsValid() bool {
	switch s {
	case PermissionAllow, PermissionDeny:
		return true
	}
	return false
}

// PartitionGranularity is the width of a time sub-partition of the event log.
type PartitionGranularity string

const (
	GranularityDay   PartitionGranularity = "day"
	GranularityWeek  PartitionGranularity = "week"
	GranularityMonth PartitionGranularity = "month"
)

func (g PartitionGranularity) String() string { return string(g) }

func (g PartitionGranularity) IsValid() bool {
	switch g {
	case GranularityDay, GranularityWeek, GranularityMonth:
		return true
	}
	return false
}
