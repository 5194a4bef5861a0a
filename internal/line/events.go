// Package line adapts the LINE Messaging API to the bot: it verifies and
// decodes webhook deliveries and sends replies.
package line

import (
	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"

	"todobot/internal/bot"
)

// ToEvents converts decoded webhook events to bot events, keeping order.
func ToEvents(events []webhook.EventInterface) []bot.Event {
	out := make([]bot.Event, 0, len(events))
	for _, e := range events {
		out = append(out, toEvent(e))
	}
	return out
}

func toEvent(e webhook.EventInterface) bot.Event {
	switch ev := e.(type) {
	case webhook.MessageEvent:
		out := bot.Event{
			Type:       bot.EventMessage,
			UserID:     userID(ev.Source),
			ReplyToken: ev.ReplyToken,
		}
		switch msg := ev.Message.(type) {
		case webhook.TextMessageContent:
			out.MessageType = bot.MessageTypeText
			out.Text = msg.Text
		case nil:
		default:
			out.MessageType = msg.GetType()
		}
		return out

	case webhook.FollowEvent:
		return bot.Event{
			Type:       bot.EventFollow,
			UserID:     userID(ev.Source),
			ReplyToken: ev.ReplyToken,
		}

	default:
		return bot.Event{Type: bot.EventOther}
	}
}

// userID extracts the sender from any source kind. Group and room sources
// carry the user id only when the user has consented to share it.
func userID(src webhook.SourceInterface) string {
	switch s := src.(type) {
	case webhook.UserSource:
		return s.UserId
	case webhook.GroupSource:
		return s.UserId
	case webhook.RoomSource:
		return s.UserId
	default:
		return ""
	}
}
