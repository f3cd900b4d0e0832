package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/joao-fontenele/storefront/internal/domain"
	"github.com/joao-fontenele/storefront/internal/messaging"
)

// HeaderIdempotencyKey carries the queue message id to the email service so a
// redelivered notification is sent once.
const HeaderIdempotencyKey = "Idempotency-Key"

type NotificationHandler struct {
	emailServiceURL string
	httpClient      *http.Client
	logger          *slog.Logger
}

func NewNotificationHandler(emailServiceURL string, client *http.Client, logger *slog.Logger) *NotificationHandler {
	return &NotificationHandler{
		emailServiceURL: emailServiceURL,
		httpClient:      client,
		logger:          logger,
	}
}

type sendEmailRequest struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

func (h *NotificationHandler) Handle(ctx context.Context, d messaging.Delivery) error {
	var n domain.Notification
	if err := json.Unmarshal(d.Payload, &n); err != nil {
		return fmt.Errorf("unmarshal notification: %w", err)
	}
	if n.Recipient == "" {
		return fmt.Errorf("notification %s has no recipient", d.MessageID)
	}

	h.logger.Info("delivering notification",
		"message_id", d.MessageID,
		"order_id", n.OrderID,
		"attempt", d.Attempt,
	)

	if err := h.sendEmail(ctx, d.MessageID, sendEmailRequest{
		To:      n.Recipient,
		Subject: n.Subject,
		Body:    n.Body,
	}); err != nil {
		h.logger.Error("failed to send notification email", "error", err, "message_id", d.MessageID, "order_id", n.OrderID)
		return fmt.Errorf("send notification email: %w", err)
	}

	h.logger.Info("notification delivered", "message_id", d.MessageID, "order_id", n.OrderID)
	return nil
}

func (h *NotificationHandler) sendEmail(ctx context.Context, messageID string, body sendEmailRequest) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.emailServiceURL+"/send", bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if messageID != "" {
		req.Header.Set(HeaderIdempotencyKey, messageID)
	}

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("email service returned status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}

	return nil
}
