package email

import (
	"errors"
	"log/slog"
	"net/http"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/joao-fontenele/storefront/internal/httpapi"
)

const (
	headerIdempotencyKey = "Idempotency-Key"
	idempotencyWindow    = 24 * time.Hour
)

type Handler struct {
	sender Sender
	logger *slog.Logger

	mu   sync.Mutex
	keys map[string]keyState
	now  func() time.Time
}

// keyState tracks an idempotency key from the moment a send is attempted.
// A key whose send is still running is pending.
type keyState struct {
	at   time.Time
	sent bool
}

type reservation int

const (
	reserved reservation = iota
	inFlight
	alreadySent
)

func NewHandler(sender Sender, logger *slog.Logger) *Handler {
	return &Handler{
		sender: sender,
		logger: logger,
		keys:   make(map[string]keyState),
		now:    time.Now,
	}
}

type sendRequest struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

type sendResponse struct {
	Status string `json:"status"`
}

func (h *Handler) HandleSend(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if err := httpapi.DecodeJSON(r, &req, false); err != nil {
		httpapi.WriteError(w, h.logger, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.validate(); err != nil {
		httpapi.WriteError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}

	key := r.Header.Get(headerIdempotencyKey)
	if key != "" {
		switch h.reserve(key) {
		case alreadySent:
			h.logger.Info("duplicate email suppressed", "idempotency_key", key, "to", req.To)
			httpapi.WriteJSON(w, h.logger, http.StatusOK, sendResponse{Status: "duplicate"})
			return
		case inFlight:
			httpapi.WriteError(w, h.logger, http.StatusConflict, "a send with this idempotency key is in progress")
			return
		}
	}

	if err := h.sender.Send(r.Context(), Message(req)); err != nil {
		if key != "" {
			h.release(key)
		}
		h.logger.Error("failed to send email", "error", err, "to", req.To)
		httpapi.WriteError(w, h.logger, http.StatusBadGateway, "email delivery failed")
		return
	}
	if key != "" {
		h.markSent(key)
	}

	h.logger.Info("email sent", "to", req.To, "subject", req.Subject)
	httpapi.WriteJSON(w, h.logger, http.StatusOK, sendResponse{Status: "sent"})
}

func (req sendRequest) validate() error {
	if _, err := mail.ParseAddress(req.To); err != nil {
		return errors.New("invalid recipient address")
	}
	if strings.TrimSpace(req.Subject) == "" {
		return errors.New("subject is required")
	}
	if strings.ContainsAny(req.Subject, "\r\n") {
		return errors.New("subject must be a single line")
	}
	return nil
}

// reserve claims key for a send unless another request holds it or a send
// with it completed inside the idempotency window.
func (h *Handler) reserve(key string) reservation {
	h.mu.Lock()
	defer h.mu.Unlock()
	now := h.now()
	for k, st := range h.keys {
		if st.sent && now.Sub(st.at) >= idempotencyWindow {
			delete(h.keys, k)
		}
	}
	if st, ok := h.keys[key]; ok {
		if st.sent {
			return alreadySent
		}
		return inFlight
	}
	h.keys[key] = keyState{at: now}
	return reserved
}

func (h *Handler) release(key string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.keys, key)
}

func (h *Handler) markSent(key string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.keys[key] = keyState{at: h.now(), sent: true}
}
