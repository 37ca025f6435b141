// Package payments integrates hosted Stripe Checkout for the pay-now
// booking path. The full booking intent rides on the checkout session as
// metadata, so confirming a payment needs nothing persisted locally.
package payments

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/stripe/stripe-go/v79"
	checkoutsession "github.com/stripe/stripe-go/v79/checkout/session"
	"github.com/tutorlane/bookingd/internal/booking"
	"github.com/tutorlane/bookingd/internal/session"
	"github.com/tutorlane/bookingd/internal/timeutil"
)

type StripeCheckout struct {
	secretKey  string
	successURL string
	cancelURL  string
	logger     *slog.Logger
}

type StripeConfig struct {
	SecretKey  string
	SuccessURL string
	CancelURL  string
}

func NewStripeCheckout(logger *slog.Logger, cfg StripeConfig) *StripeCheckout {
	return &StripeCheckout{
		secretKey:  strings.TrimSpace(cfg.SecretKey),
		successURL: strings.TrimSpace(cfg.SuccessURL),
		cancelURL:  strings.TrimSpace(cfg.CancelURL),
		logger:     logger,
	}
}

var _ booking.CheckoutProvider = (*StripeCheckout)(nil)

// CreateSession opens a one-time-payment checkout session carrying the
// booking intent as metadata.
func (c *StripeCheckout) CreateSession(ctx context.Context, intent booking.CheckoutIntent) (booking.CheckoutSession, error) {
	if c.secretKey == "" {
		return booking.CheckoutSession{}, fmt.Errorf("stripe secret key not configured")
	}

	// Stripe uses a global API key. Keep usage limited to this call.
	stripe.Key = c.secretKey

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(c.successURL),
		CancelURL:         stripe.String(c.cancelURL),
		ClientReferenceID: stripe.String(intent.StudentID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Quantity: stripe.Int64(1),
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(string(stripe.CurrencyAUD)),
					UnitAmount: stripe.Int64(intent.AmountCents),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name:        stripe.String("Tutoring session"),
						Description: stripe.String(sessionDescription(intent)),
					},
				},
			},
		},
		Metadata: MetadataFromIntent(intent),
	}
	params.Context = ctx
	params.AddExpand("url")
	if intent.StudentEmail != "" {
		params.CustomerEmail = stripe.String(intent.StudentEmail)
	}

	sess, err := checkoutsession.New(params)
	if err != nil {
		c.logger.Error("stripe checkout session create failed",
			"window_id", intent.WindowID, "student_id", intent.StudentID, "err", err)
		return booking.CheckoutSession{}, fmt.Errorf("create stripe checkout session: %w", err)
	}
	return booking.CheckoutSession{ID: sess.ID, URL: sess.URL}, nil
}

// sessionDescription is the line shown on the Stripe checkout page.
func sessionDescription(intent booking.CheckoutIntent) string {
	parts := []string{
		displayDate(intent.Date),
		fmt.Sprintf("%s - %s", timeutil.Format12Hour(intent.StartTime), timeutil.Format12Hour(intent.EndTime)),
		modeLabel(intent.Mode),
	}
	if intent.Mode == session.ModeInPerson && intent.Location != "" {
		parts = append(parts, intent.Location)
	}
	return strings.Join(parts, " | ")
}

func displayDate(date string) string {
	day, err := timeutil.ParseDate(date)
	if err != nil {
		return date
	}
	return day.Format("Monday, January 2, 2006")
}

func modeLabel(m session.Mode) string {
	if m == session.ModeInPerson {
		return "In-Person"
	}
	return "Online"
}

// MetadataFromIntent flattens the booking intent into session metadata.
// IntentFromMetadata is its inverse.
func MetadataFromIntent(intent booking.CheckoutIntent) map[string]string {
	return map[string]string{
		"student_id":    intent.StudentID,
		"student_name":  intent.StudentName,
		"student_email": intent.StudentEmail,
		"window_id":     intent.WindowID,
		"date":          intent.Date,
		"mode":          string(intent.Mode),
		"location":      intent.Location,
		"start_time":    intent.StartTime,
		"end_time":      intent.EndTime,
		"duration":      strconv.Itoa(intent.DurationMinutes),
		"notes":         intent.Notes,
		"amount_cents":  strconv.FormatInt(intent.AmountCents, 10),
	}
}

// IntentFromMetadata rebuilds the booking intent from checkout session
// metadata. Only identity and scheduling fields are required; price and
// duration are recomputed downstream anyway.
func IntentFromMetadata(md map[string]string) (booking.CheckoutIntent, error) {
	get := func(key string) string { return strings.TrimSpace(md[key]) }

	for _, key := range []string{"student_id", "window_id", "date", "start_time", "end_time"} {
		if get(key) == "" {
			return booking.CheckoutIntent{}, fmt.Errorf("checkout metadata missing %s", key)
		}
	}

	mode, err := session.ParseMode(get("mode"))
	if err != nil {
		return booking.CheckoutIntent{}, fmt.Errorf("checkout metadata: %w", err)
	}

	duration, _ := strconv.Atoi(get("duration"))
	amount, _ := strconv.ParseInt(get("amount_cents"), 10, 64)

	return booking.CheckoutIntent{
		StudentID:       get("student_id"),
		StudentName:     get("student_name"),
		StudentEmail:    get("student_email"),
		WindowID:        get("window_id"),
		Date:            get("date"),
		Mode:            mode,
		Location:        get("location"),
		StartTime:       get("start_time"),
		EndTime:         get("end_time"),
		DurationMinutes: duration,
		Notes:           get("notes"),
		AmountCents:     amount,
	}, nil
}
