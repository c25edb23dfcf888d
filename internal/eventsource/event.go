// Package eventsource adapts external chat connections into a stream of Events.
package eventsource

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/heartmarshall/chatbot-backend/internal/domain"
)

// Sender identifies the author of an event as the chat network knows them.
type Sender struct {
	ID          string  `json:"id"`
	Login       string  `json:"login"`
	DisplayName *string `json:"display_name,omitempty"`
}

// Identity converts the sender to a domain identity.
func (s Sender) Identity() domain.UserIdentity {
	return domain.UserIdentity{ExternalUserID: s.ID, Name: s.Login, DisplayName: s.DisplayName}
}

// Event is one inbound chat event before channel and sender are resolved.
type Event struct {
	ID                uuid.UUID         `json:"id"`
	Type              domain.EventType  `json:"type"`
	ProtocolMessageID *uuid.UUID        `json:"protocol_message_id,omitempty"`
	Text              *string           `json:"text,omitempty"`
	Channel           string            `json:"channel,omitempty"`
	RoomID            string            `json:"room_id,omitempty"`
	Sender            *Sender           `json:"sender,omitempty"`
	Tags              map[string]string `json:"tags,omitempty"`
	ReceivedAt        time.Time         `json:"received_at"`
}

// Source delivers events into out until ctx is done, the connection drops,
// or the input ends. A nil return means the input is exhausted and there is
// nothing to reconnect to.
type Source interface {
	Run(ctx context.Context, out chan<- Event) error
}

// Reply is an outbound chat message.
type Reply struct {
	Type    string     `json:"type"`
	Channel string     `json:"channel,omitempty"`
	To      string     `json:"to,omitempty"`
	ReplyTo *uuid.UUID `json:"reply_to,omitempty"`
	Text    string     `json:"text"`
}

// Reply frame types.
const (
	FrameJoin    = "join"
	FrameMessage = "message"
	FrameWhisper = "whisper"
)
