package line

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"todobot/internal/bot"
	"todobot/internal/logging"
)

const testSecret = "channel-secret"

type recordingDelivery struct {
	mu         sync.Mutex
	deliveries [][]bot.Event
}

func (d *recordingDelivery) HandleDelivery(ctx context.Context, events []bot.Event) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.deliveries = append(d.deliveries, events)
}

func sign(secret, body string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(body))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

const deliveryBody = `{
  "destination": "Ubot",
  "events": [
    {
      "type": "message",
      "mode": "active",
      "timestamp": 1717574400000,
      "webhookEventId": "01E1",
      "deliveryContext": {"isRedelivery": false},
      "source": {"type": "user", "userId": "U1"},
      "replyToken": "rt-1",
      "message": {"type": "text", "id": "1", "quoteToken": "q1", "text": "Submit report 2025-06-02"}
    },
    {
      "type": "follow",
      "mode": "active",
      "timestamp": 1717574400001,
      "webhookEventId": "01E2",
      "deliveryContext": {"isRedelivery": false},
      "source": {"type": "user", "userId": "U2"},
      "replyToken": "rt-2",
      "follow": {"isUnblocked": false}
    },
    {
      "type": "message",
      "mode": "active",
      "timestamp": 1717574400002,
      "webhookEventId": "01E3",
      "deliveryContext": {"isRedelivery": false},
      "source": {"type": "group", "groupId": "G1", "userId": "U3"},
      "replyToken": "rt-3",
      "message": {"type": "sticker", "id": "2", "quoteToken": "q2", "packageId": "1", "stickerId": "1", "stickerResourceType": "STATIC"}
    },
    {
      "type": "unfollow",
      "mode": "active",
      "timestamp": 1717574400003,
      "webhookEventId": "01E4",
      "deliveryContext": {"isRedelivery": false},
      "source": {"type": "user", "userId": "U4"}
    }
  ]
}`

func TestHandler_VerifiedDelivery(t *testing.T) {
	d := &recordingDelivery{}
	h := NewHandler(testSecret, d, logging.Discard())

	req := httptest.NewRequest(http.MethodPost, "/callback", strings.NewReader(deliveryBody))
	req.Header.Set("X-Line-Signature", sign(testSecret, deliveryBody))
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, d.deliveries, 1)
	assert.Equal(t, []bot.Event{
		{Type: bot.EventMessage, MessageType: bot.MessageTypeText, UserID: "U1", ReplyToken: "rt-1", Text: "Submit report 2025-06-02"},
		{Type: bot.EventFollow, UserID: "U2", ReplyToken: "rt-2"},
		{Type: bot.EventMessage, MessageType: "sticker", UserID: "U3", ReplyToken: "rt-3"},
		{Type: bot.EventOther},
	}, d.deliveries[0])
}

func TestHandler_InvalidSignature(t *testing.T) {
	d := &recordingDelivery{}
	h := NewHandler(testSecret, d, logging.Discard())

	req := httptest.NewRequest(http.MethodPost, "/callback", strings.NewReader(deliveryBody))
	req.Header.Set("X-Line-Signature", sign("wrong-secret", deliveryBody))
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, d.deliveries)
}

func TestHandler_MethodNotAllowed(t *testing.T) {
	h := NewHandler(testSecret, &recordingDelivery{}, logging.Discard())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandler_EmptyDelivery(t *testing.T) {
	// The console's "Verify" button sends a delivery with no events.
	d := &recordingDelivery{}
	h := NewHandler(testSecret, d, logging.Discard())

	body := `{"destination":"Ubot","events":[]}`
	req := httptest.NewRequest(http.MethodPost, "/callback", strings.NewReader(body))
	req.Header.Set("X-Line-Signature", sign(testSecret, body))
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, d.deliveries, 1)
	assert.Empty(t, d.deliveries[0])
}

func TestReplier_Reply(t *testing.T) {
	var (
		gotPath string
		gotAuth string
		gotBody struct {
			ReplyToken string `json:"replyToken"`
			Messages   []struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"messages"`
		}
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"sentMessages":[{"id":"1","quoteToken":"q"}]}`))
	}))
	defer srv.Close()

	r, err := NewReplier("access-token", srv.URL, srv.Client())
	require.NoError(t, err)

	require.NoError(t, r.Reply(context.Background(), "rt-1", "Added task"))

	assert.Equal(t, "/v2/bot/message/reply", gotPath)
	assert.Equal(t, "Bearer access-token", gotAuth)
	assert.Equal(t, "rt-1", gotBody.ReplyToken)
	require.Len(t, gotBody.Messages, 1)
	assert.Equal(t, "text", gotBody.Messages[0].Type)
	assert.Equal(t, "Added task", gotBody.Messages[0].Text)
}

func TestReplier_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"Invalid reply token"}`))
	}))
	defer srv.Close()

	r, err := NewReplier("access-token", srv.URL, srv.Client())
	require.NoError(t, err)

	assert.Error(t, r.Reply(context.Background(), "rt-1", "x"))
}

func TestReplier_Validation(t *testing.T) {
	_, err := NewReplier("", "", nil)
	assert.Error(t, err)

	r, err := NewReplier("token", "", nil)
	require.NoError(t, err)
	assert.Error(t, r.Reply(context.Background(), "", "x"))
}
