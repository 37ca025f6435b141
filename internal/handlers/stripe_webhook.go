package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"
	"github.com/tutorlane/bookingd/internal/booking"
	"github.com/tutorlane/bookingd/internal/payments"
)

type StripeWebhookHandler struct {
	svc       *booking.Service
	logger    *slog.Logger
	secret    string
	tolerance time.Duration
}

func NewStripeWebhookHandler(svc *booking.Service, logger *slog.Logger, secret string, tolerance time.Duration) *StripeWebhookHandler {
	if tolerance <= 0 {
		tolerance = 5 * time.Minute
	}
	return &StripeWebhookHandler{svc: svc, logger: logger, secret: strings.TrimSpace(secret), tolerance: tolerance}
}

// Handle processes Stripe webhooks (no session auth; signature verification
// is the auth). Stripe retries on non-2xx, so every outcome that retrying
// cannot fix is acknowledged with 200.
func (h *StripeWebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.secret == "" {
		http.Error(w, "stripe webhook not configured", http.StatusServiceUnavailable)
		return
	}

	sigHeader := r.Header.Get("Stripe-Signature")
	if strings.TrimSpace(sigHeader) == "" {
		http.Error(w, "missing Stripe-Signature header", http.StatusBadRequest)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20)) // 1 MiB hard cap
	if err != nil {
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}

	evt, err := webhook.ConstructEventWithTolerance(body, sigHeader, h.secret, h.tolerance)
	if err != nil {
		http.Error(w, "invalid signature", http.StatusBadRequest)
		return
	}

	evtType := string(evt.Type)
	h.logger.Info("payment provider event received",
		"provider", "stripe",
		"provider_event_id", evt.ID,
		"event_type", evtType,
	)

	if evtType != "checkout.session.completed" {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	var sess stripe.CheckoutSession
	if err := json.Unmarshal(evt.Data.Raw, &sess); err != nil {
		h.logger.Error("stripe: invalid checkout session payload", "err", err)
		http.Error(w, "invalid checkout session payload", http.StatusBadRequest)
		return
	}

	intent, err := payments.IntentFromMetadata(sess.Metadata)
	if err != nil {
		// Malformed metadata never fixes itself on retry; ack and alert.
		h.logger.Error("stripe: unusable checkout metadata", "session_id", sess.ID, "err", err)
		writeJSON(w, http.StatusOK, map[string]string{"status": "unusable_metadata"})
		return
	}

	b, created, err := h.svc.ConfirmPayment(r.Context(), booking.PaymentConfirmation{
		SessionRef: sess.ID,
		Intent:     intent,
	})
	switch {
	case errors.Is(err, booking.ErrWindowUnavailable):
		// Paid but unallocatable; already logged for support follow-up.
		writeJSON(w, http.StatusOK, map[string]string{"status": "unallocated"})
	case err != nil:
		// Transient failure (db down, etc). Let Stripe retry.
		http.Error(w, "failed to process payment confirmation", http.StatusInternalServerError)
	case created:
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "booking_id": b.ID})
	default:
		writeJSON(w, http.StatusOK, map[string]string{"status": "duplicate", "booking_id": b.ID})
	}
}
