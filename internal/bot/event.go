// Package bot routes decoded chat events to commands and sends exactly one
// reply per handled event.
package bot

import "context"

// EventType is the kind of inbound chat event.
type EventType string

const (
	EventMessage EventType = "message"
	EventFollow  EventType = "follow"
	EventOther   EventType = "other"
)

// MessageTypeText is the only message type the router classifies.
const MessageTypeText = "text"

// Event is one decoded inbound action. The transport fills it in after the
// delivery signature has been verified.
type Event struct {
	Type        EventType
	MessageType string // set for EventMessage
	UserID      string
	ReplyToken  string
	Text        string
}

// Replier sends one text reply addressed by a reply token.
type Replier interface {
	Reply(ctx context.Context, replyToken, text string) error
}

// ReplierFunc adapts a function to Replier.
type ReplierFunc func(ctx context.Context, replyToken, text string) error

// Reply implements Replier.
func (f ReplierFunc) Reply(ctx context.Context, replyToken, text string) error {
	return f(ctx, replyToken, text)
}
