package ingest

import (
	"context"

	"github.com/heartmarshall/chatbot-backend/internal/eventsource"
	"github.com/heartmarshall/chatbot-backend/internal/service/router"
)

type sender interface {
	Send(ctx context.Context, r eventsource.Reply) error
}

// Replier turns handler replies into outbound frames: a channel message
// threaded to the invoking message, or a whisper back to the sender.
type Replier struct {
	out sender
}

func NewReplier(out sender) *Replier {
	return &Replier{out: out}
}

func (r *Replier) Reply(ctx context.Context, inv router.Invocation, text string) error {
	frame := eventsource.Reply{
		Type:    eventsource.FrameMessage,
		ReplyTo: inv.Event.ProtocolMessageID,
		Text:    text,
	}
	if inv.Channel != nil {
		frame.Channel = inv.Channel.Name
	} else {
		frame.Type = eventsource.FrameWhisper
		frame.ReplyTo = nil
		if inv.Sender != nil {
			frame.To = inv.Sender.Name
		}
	}
	return r.out.Send(ctx, frame)
}
