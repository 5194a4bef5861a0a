package line

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
)

// Replier sends text replies through the Messaging API.
type Replier struct {
	token string
	opts  []messaging_api.MessagingApiAPIOption
}

// NewReplier creates a replier. endpoint overrides the API base URL when
// non-empty; httpClient may be nil.
func NewReplier(channelAccessToken, endpoint string, httpClient *http.Client) (*Replier, error) {
	if channelAccessToken == "" {
		return nil, errors.New("line: channel access token is required")
	}
	var opts []messaging_api.MessagingApiAPIOption
	if endpoint != "" {
		opts = append(opts, messaging_api.WithEndpoint(endpoint))
	}
	if httpClient != nil {
		opts = append(opts, messaging_api.WithHTTPClient(httpClient))
	}

	// Fail fast on bad options instead of on the first reply.
	if _, err := messaging_api.NewMessagingApiAPI(channelAccessToken, opts...); err != nil {
		return nil, fmt.Errorf("line: create messaging client: %w", err)
	}
	return &Replier{token: channelAccessToken, opts: opts}, nil
}

// Reply sends one text message for replyToken.
func (r *Replier) Reply(ctx context.Context, replyToken, text string) error {
	if replyToken == "" {
		return errors.New("line: empty reply token")
	}

	// The client stores its context, so each call gets its own client.
	api, err := messaging_api.NewMessagingApiAPI(r.token, r.opts...)
	if err != nil {
		return fmt.Errorf("line: create messaging client: %w", err)
	}

	_, err = api.WithContext(ctx).ReplyMessage(&messaging_api.ReplyMessageRequest{
		ReplyToken: replyToken,
		Messages: []messaging_api.MessageInterface{
			messaging_api.TextMessage{Text: text},
		},
	})
	if err != nil {
		return fmt.Errorf("line: reply: %w", err)
	}
	return nil
}
