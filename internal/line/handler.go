package line

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"

	"todobot/internal/bot"
	"todobot/internal/logging"
)

// DeliveryHandler processes the events of one verified delivery.
// *bot.Router satisfies it.
type DeliveryHandler interface {
	HandleDelivery(ctx context.Context, events []bot.Event)
}

// Handler is the webhook endpoint. It answers 400 for deliveries whose
// signature does not verify and 200 for every verified delivery, whatever
// happens to the individual events.
type Handler struct {
	secret   string
	delivery DeliveryHandler
	logger   *slog.Logger
}

// NewHandler creates a webhook handler for the given channel secret.
func NewHandler(channelSecret string, delivery DeliveryHandler, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		secret:   channelSecret,
		delivery: delivery,
		logger:   logging.WithOperation(logger, "webhook"),
	}
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	cb, err := webhook.ParseRequest(h.secret, r)
	if err != nil {
		if errors.Is(err, webhook.ErrInvalidSignature) {
			h.logger.Warn("rejected delivery with invalid signature")
		} else {
			h.logger.Warn("rejected unreadable delivery", logging.Err(err))
		}
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	deliveryID := uuid.NewString()
	logger := logging.WithDelivery(h.logger, deliveryID)
	logger.Debug("delivery received", slog.Int("events", len(cb.Events)))

	// Processing continues even if the platform closes the connection,
	// so a half-done completion is never abandoned.
	ctx := context.WithoutCancel(r.Context())
	h.delivery.HandleDelivery(ctx, ToEvents(cb.Events))

	logger.Debug("delivery done")
	w.WriteHeader(http.StatusOK)
}
