package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tutorlane/bookingd/internal/availability"
	"github.com/tutorlane/bookingd/internal/booking"
	"github.com/tutorlane/bookingd/internal/session"
	"github.com/tutorlane/bookingd/internal/storage"
	"github.com/tutorlane/bookingd/internal/timeutil"
)

type AvailabilityHandler struct {
	windows *storage.AvailabilityRepository
	loc     *time.Location
	logger  *slog.Logger
}

func NewAvailabilityHandler(windows *storage.AvailabilityRepository, loc *time.Location, logger *slog.Logger) *AvailabilityHandler {
	return &AvailabilityHandler{windows: windows, loc: loc, logger: logger}
}

type windowItem struct {
	ID        string `json:"id"`
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Mode      string `json:"mode"`
	Location  string `json:"location,omitempty"`
}

func toWindowItem(w availability.Window) windowItem {
	return windowItem{
		ID:        w.ID,
		Date:      w.Date,
		StartTime: w.StartTime,
		EndTime:   w.EndTime,
		Mode:      w.Mode.String(),
		Location:  w.Location,
	}
}

// List returns open windows from the given date forward. The default is
// today in the business timezone, so past windows drop out of the public
// listing without any cleanup job.
func (h *AvailabilityHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	fromDate := strings.TrimSpace(r.URL.Query().Get("from"))
	if fromDate == "" {
		fromDate = timeutil.Today(h.loc)
	} else if _, err := timeutil.ParseDate(fromDate); err != nil {
		http.Error(w, "invalid from date, expected YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	windows, err := h.windows.ListOpen(r.Context(), fromDate)
	if err != nil {
		h.logger.Error("list windows failed", "err", err)
		http.Error(w, "failed to list availability", http.StatusInternalServerError)
		return
	}
	items := make([]windowItem, 0, len(windows))
	for _, win := range windows {
		items = append(items, toWindowItem(win))
	}
	writeJSON(w, http.StatusOK, map[string]any{"windows": items})
}

// Times returns the time-of-day grid the booking form offers, rendered
// 12-hour. step is in minutes; the default is 30.
func (h *AvailabilityHandler) Times(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	step := 30
	if raw := strings.TrimSpace(r.URL.Query().Get("step")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 240 {
			http.Error(w, "invalid step", http.StatusBadRequest)
			return
		}
		step = n
	}

	var times []string
	for t := range timeutil.TimeGrid(step) {
		times = append(times, timeutil.Format12Hour(t))
	}
	writeJSON(w, http.StatusOK, map[string]any{"times": times})
}

type windowRequest struct {
	ID        string `json:"id"`
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Mode      string `json:"mode"`
	Location  string `json:"location"`
}

func (h *AvailabilityHandler) Create(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !isAdmin(r) {
		http.Error(w, "admin only", http.StatusForbidden)
		return
	}

	win, ok := h.decodeWindow(w, r, false)
	if !ok {
		return
	}
	created, err := h.windows.Create(r.Context(), win)
	if err != nil {
		h.writeWindowError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toWindowItem(created))
}

func (h *AvailabilityHandler) Update(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !isAdmin(r) {
		http.Error(w, "admin only", http.StatusForbidden)
		return
	}

	win, ok := h.decodeWindow(w, r, true)
	if !ok {
		return
	}
	if err := h.windows.Update(r.Context(), win); err != nil {
		h.writeWindowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toWindowItem(win))
}

func (h *AvailabilityHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !isAdmin(r) {
		http.Error(w, "admin only", http.StatusForbidden)
		return
	}

	var req windowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	id := strings.TrimSpace(req.ID)
	if _, err := uuid.Parse(id); err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	if err := h.windows.Delete(r.Context(), id); err != nil {
		h.writeWindowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *AvailabilityHandler) decodeWindow(w http.ResponseWriter, r *http.Request, requireID bool) (availability.Window, bool) {
	var req windowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return availability.Window{}, false
	}

	req.ID = strings.TrimSpace(req.ID)
	req.Date = strings.TrimSpace(req.Date)
	req.StartTime = strings.TrimSpace(req.StartTime)
	req.EndTime = strings.TrimSpace(req.EndTime)
	req.Location = strings.TrimSpace(req.Location)

	if requireID {
		if _, err := uuid.Parse(req.ID); err != nil {
			http.Error(w, "invalid id", http.StatusBadRequest)
			return availability.Window{}, false
		}
	}
	if _, err := timeutil.ParseDate(req.Date); err != nil {
		http.Error(w, "invalid date, expected YYYY-MM-DD", http.StatusBadRequest)
		return availability.Window{}, false
	}
	mode, err := session.ParseMode(req.Mode)
	if err != nil {
		http.Error(w, "invalid mode", http.StatusBadRequest)
		return availability.Window{}, false
	}
	if req.StartTime == "" || req.EndTime == "" ||
		timeutil.Duration(req.StartTime, req.EndTime) <= 0 {
		http.Error(w, "end_time must be after start_time", http.StatusBadRequest)
		return availability.Window{}, false
	}

	return availability.Window{
		ID:        req.ID,
		Date:      req.Date,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Mode:      mode,
		Location:  req.Location,
	}, true
}

func (h *AvailabilityHandler) writeWindowError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrWindowOverlap):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, booking.ErrWindowNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	default:
		h.logger.Error("availability write failed", "err", err)
		http.Error(w, "failed to update availability", http.StatusInternalServerError)
	}
}
