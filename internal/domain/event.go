package domain

import (
	"time"

	"github.com/google/uuid"
)

// NoChannel is the partition key stored for events that carry no channel.
const NoChannel int32 = 0

// ChatEvent is an immutable record of one inbound chat event.
type ChatEvent struct {
	ID                uuid.UUID
	Type              EventType
	ProtocolMessageID *uuid.UUID
	Text              *string
	ChannelID         *int32
	SenderUserID      *int32
	Tags              map[string]string
	ReceivedAt        time.Time
}

// PartitionChannel returns the channel key the event is partitioned under.
func (e ChatEvent) PartitionChannel() int32 {
	if e.ChannelID == nil {
		return NoChannel
	}
	return *e.ChannelID
}
