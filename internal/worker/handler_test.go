package worker

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joao-fontenele/storefront/internal/domain"
	"github.com/joao-fontenele/storefront/internal/messaging"
)

func delivery(t *testing.T, n domain.Notification) messaging.Delivery {
	t.Helper()
	payload, err := json.Marshal(n)
	require.NoError(t, err)
	return messaging.Delivery{MessageID: n.ID.String(), Key: n.OrderID.String(), Payload: payload, Attempt: 1}
}

func TestNotificationHandler_Handle(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	n := domain.Notification{
		ID:        uuid.New(),
		OrderID:   uuid.New(),
		Recipient: "dave@example.com",
		Subject:   "The Order has been fulfilled.",
		Body:      "Dear Dave",
	}

	t.Run("forwards the notification to the email service", func(t *testing.T) {
		var got sendEmailRequest
		var idempotencyKey string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/send", r.URL.Path)
			idempotencyKey = r.Header.Get(HeaderIdempotencyKey)
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		h := NewNotificationHandler(srv.URL, srv.Client(), logger)
		require.NoError(t, h.Handle(context.Background(), delivery(t, n)))

		assert.Equal(t, n.ID.String(), idempotencyKey)
		assert.Equal(t, sendEmailRequest{To: n.Recipient, Subject: n.Subject, Body: n.Body}, got)
	})

	t.Run("fails on a non-2xx response", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "smtp unavailable", http.StatusBadGateway)
		}))
		defer srv.Close()

		h := NewNotificationHandler(srv.URL, srv.Client(), logger)
		err := h.Handle(context.Background(), delivery(t, n))
		require.ErrorContains(t, err, "status 502")
		assert.ErrorContains(t, err, "smtp unavailable")
	})

	t.Run("rejects a malformed payload", func(t *testing.T) {
		h := NewNotificationHandler("http://unused", http.DefaultClient, logger)
		err := h.Handle(context.Background(), messaging.Delivery{Payload: []byte("{")})
		require.ErrorContains(t, err, "unmarshal notification")
	})

	t.Run("rejects a notification without recipient", func(t *testing.T) {
		h := NewNotificationHandler("http://unused", http.DefaultClient, logger)
		blank := n
		blank.Recipient = ""
		err := h.Handle(context.Background(), delivery(t, blank))
		require.ErrorContains(t, err, "no recipient")
	})
}
