package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tutorlane/bookingd/internal/booking"
	"github.com/tutorlane/bookingd/internal/pricing"
	"github.com/tutorlane/bookingd/internal/storage"
)

type BookingHandler struct {
	svc      *booking.Service
	store    *storage.Store
	bookings *storage.BookingRepository
	logger   *slog.Logger
}

func NewBookingHandler(svc *booking.Service, store *storage.Store, bookings *storage.BookingRepository, logger *slog.Logger) *BookingHandler {
	return &BookingHandler{svc: svc, store: store, bookings: bookings, logger: logger}
}

type createBookingRequest struct {
	WindowID  string `json:"window_id"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Notes     string `json:"notes"`
	FreeTrial bool   `json:"free_trial"`
}

type bookingItem struct {
	BookingID       string `json:"booking_id"`
	StartAt         string `json:"start_at"`
	EndAt           string `json:"end_at"`
	DurationMinutes int    `json:"duration_minutes"`
	Mode            string `json:"mode"`
	Status          string `json:"status"`
	PaymentStatus   string `json:"payment_status"`
	Price           string `json:"price"`
	PriceCents      int64  `json:"price_cents"`
	Location        string `json:"location,omitempty"`
	Notes           string `json:"notes,omitempty"`
	CreatedAt       string `json:"created_at"`
}

func toBookingItem(b booking.Booking) bookingItem {
	return bookingItem{
		BookingID:       b.ID,
		StartAt:         b.StartAt.UTC().Format(time.RFC3339),
		EndAt:           b.EndAt.UTC().Format(time.RFC3339),
		DurationMinutes: b.DurationMinutes,
		Mode:            b.Mode.String(),
		Status:          string(b.Status),
		PaymentStatus:   string(b.PaymentStatus),
		Price:           pricing.FormatCents(b.PriceCents),
		PriceCents:      b.PriceCents,
		Location:        b.Location,
		Notes:           b.Notes,
		CreatedAt:       b.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// Create handles the pay-later path: the booking is persisted immediately as
// pending/unpaid.
func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	stu := studentFromHeaders(r)
	if stu.ID == "" {
		http.Error(w, "missing X-Student-Id", http.StatusUnauthorized)
		return
	}

	req, ok := h.decodeCreate(w, r)
	if !ok {
		return
	}

	conf, err := h.svc.Book(r.Context(), booking.Request{
		StudentID:    stu.ID,
		StudentName:  stu.Name,
		StudentEmail: stu.Email,
		WindowID:     req.WindowID,
		StartTime:    req.StartTime,
		EndTime:      req.EndTime,
		Notes:        req.Notes,
		FreeTrial:    req.FreeTrial,
	})
	if err != nil {
		writeBookingError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toBookingItem(conf.Booking))
}

// Checkout handles the front half of the pay-now path: it returns a hosted
// checkout URL and persists nothing.
func (h *BookingHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	stu := studentFromHeaders(r)
	if stu.ID == "" {
		http.Error(w, "missing X-Student-Id", http.StatusUnauthorized)
		return
	}

	req, ok := h.decodeCreate(w, r)
	if !ok {
		return
	}

	sess, err := h.svc.BeginCheckout(r.Context(), booking.Request{
		StudentID:    stu.ID,
		StudentName:  stu.Name,
		StudentEmail: stu.Email,
		WindowID:     req.WindowID,
		StartTime:    req.StartTime,
		EndTime:      req.EndTime,
		Notes:        req.Notes,
	})
	if err != nil {
		writeBookingError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"session_id":   sess.ID,
		"checkout_url": sess.URL,
	})
}

func (h *BookingHandler) decodeCreate(w http.ResponseWriter, r *http.Request) (createBookingRequest, bool) {
	var req createBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return req, false
	}
	req.WindowID = strings.TrimSpace(req.WindowID)
	req.StartTime = strings.TrimSpace(req.StartTime)
	req.EndTime = strings.TrimSpace(req.EndTime)
	if req.WindowID == "" {
		http.Error(w, "window_id is required", http.StatusBadRequest)
		return req, false
	}
	if _, err := uuid.Parse(req.WindowID); err != nil {
		http.Error(w, "invalid window_id", http.StatusBadRequest)
		return req, false
	}
	return req, true
}

func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	stu := studentFromHeaders(r)
	if stu.ID == "" {
		http.Error(w, "missing X-Student-Id", http.StatusUnauthorized)
		return
	}

	bookings, err := h.bookings.ListByStudent(r.Context(), stu.ID, 100)
	if err != nil {
		h.logger.Error("list bookings failed", "student_id", stu.ID, "err", err)
		http.Error(w, "failed to list bookings", http.StatusInternalServerError)
		return
	}
	items := make([]bookingItem, 0, len(bookings))
	for _, b := range bookings {
		items = append(items, toBookingItem(b))
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookings": items})
}

type bookingIDRequest struct {
	BookingID string `json:"booking_id"`
}

// Cancel lets a student cancel their own pending booking; an admin can
// cancel any pending booking.
func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	stu := studentFromHeaders(r)
	if stu.ID == "" && !isAdmin(r) {
		http.Error(w, "missing X-Student-Id", http.StatusUnauthorized)
		return
	}

	id, ok := h.decodeBookingID(w, r)
	if !ok {
		return
	}

	owner := stu.ID
	if isAdmin(r) {
		owner = ""
	}
	b, err := h.store.Cancel(r.Context(), id, owner)
	if err != nil {
		writeBookingError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingItem(b))
}

// Confirm is the admin acceptance of a pay-later booking.
func (h *BookingHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !isAdmin(r) {
		http.Error(w, "admin only", http.StatusForbidden)
		return
	}

	id, ok := h.decodeBookingID(w, r)
	if !ok {
		return
	}
	b, err := h.store.Confirm(r.Context(), id)
	if err != nil {
		writeBookingError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingItem(b))
}

// Complete marks a confirmed booking as delivered once the lesson has ended.
func (h *BookingHandler) Complete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !isAdmin(r) {
		http.Error(w, "admin only", http.StatusForbidden)
		return
	}

	id, ok := h.decodeBookingID(w, r)
	if !ok {
		return
	}
	b, err := h.store.Complete(r.Context(), id, time.Now())
	if err != nil {
		writeBookingError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingItem(b))
}

func (h *BookingHandler) decodeBookingID(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req bookingIDRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return "", false
	}
	id := strings.TrimSpace(req.BookingID)
	if _, err := uuid.Parse(id); err != nil {
		http.Error(w, "invalid booking_id", http.StatusBadRequest)
		return "", false
	}
	return id, true
}
