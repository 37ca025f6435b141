// Package reconcile repairs availability that drifted out of sync with
// bookings: a window created or rescheduled by an operator over already-sold
// time would otherwise be bookable twice.
package reconcile

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/tutorlane/bookingd/internal/availability"
	"github.com/tutorlane/bookingd/internal/booking"
	"github.com/tutorlane/bookingd/internal/storage"
	"github.com/tutorlane/bookingd/internal/timeutil"
	"github.com/tutorlane/bookingd/libs/db"
)

type Worker struct {
	pool        *db.Pool
	windows     *storage.AvailabilityRepository
	store       *storage.Store
	logger      *slog.Logger
	tz          string
	batchSize   int
	advisoryKey int64
}

type Config struct {
	Timezone        string
	Interval        time.Duration
	BatchSize       int
	AdvisoryLockKey int64
}

func NewWorker(pool *db.Pool, windows *storage.AvailabilityRepository, store *storage.Store, logger *slog.Logger, cfg Config) *Worker {
	bs := cfg.BatchSize
	if bs <= 0 {
		bs = 50
	}
	lockKey := cfg.AdvisoryLockKey
	if lockKey == 0 {
		// Stable-ish default; override via env if you run multiple instances.
		lockKey = 7371002
	}
	tz := cfg.Timezone
	if tz == "" {
		tz = "UTC"
	}
	return &Worker{
		pool:        pool,
		windows:     windows,
		store:       store,
		logger:      logger,
		tz:          tz,
		batchSize:   bs,
		advisoryKey: lockKey,
	}
}

func (w *Worker) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	// Best-effort leader election for multi-instance deployments.
	// Only the instance holding the advisory lock will reconcile.
	for {
		if ctx.Err() != nil {
			return
		}
		var locked bool
		if err := w.pool.QueryRow(ctx, `SELECT pg_try_advisory_lock($1)`, w.advisoryKey).Scan(&locked); err != nil {
			w.logger.Error("availability reconcile: failed to acquire advisory lock", "err", err)
			time.Sleep(5 * time.Second)
			continue
		}
		if !locked {
			w.logger.Info("availability reconcile: advisory lock held by another instance", "lock_key", w.advisoryKey)
			time.Sleep(30 * time.Second)
			continue
		}
		w.logger.Info("availability reconcile: advisory lock acquired", "lock_key", w.advisoryKey)
		defer func() {
			_, _ = w.pool.Exec(context.Background(), `SELECT pg_advisory_unlock($1)`, w.advisoryKey)
		}()
		break
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Run immediately on startup to self-heal faster after downtime.
	w.reconcileOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.reconcileOnce(ctx)
		}
	}
}

func (w *Worker) reconcileOnce(ctx context.Context) {
	conflicts, err := w.windows.ListConflicting(ctx, w.tz, w.batchSize)
	if err != nil {
		w.logger.Error("availability reconcile: failed to list conflicts", "err", err)
		return
	}

	for _, c := range conflicts {
		if ctx.Err() != nil {
			return
		}
		busyStart, busyEnd := clampToWindow(c.Window, c.BusyStart, c.BusyEnd)
		remainders := availability.Remainders(c.Window, busyStart, busyEnd)

		err := w.store.TrimWindow(ctx, c.Window.ID, remainders)
		switch {
		case errors.Is(err, booking.ErrWindowUnavailable):
			// Already repaired or consumed since the listing.
		case err != nil:
			w.logger.Error("availability reconcile: repair failed",
				"window_id", c.Window.ID, "err", err)
		default:
			w.logger.Warn("availability reconcile: trimmed window overlapping a booking",
				"window_id", c.Window.ID,
				"date", c.Window.Date,
				"busy_start", busyStart,
				"busy_end", busyEnd,
				"remainders", len(remainders),
			)
		}
	}
}

// clampToWindow bounds the busy interval by the window so remainders never
// extend past the window's own edges.
func clampToWindow(win availability.Window, busyStart, busyEnd string) (string, string) {
	start := timeutil.TimeToMinutes(busyStart)
	end := timeutil.TimeToMinutes(busyEnd)
	if min := timeutil.TimeToMinutes(win.StartTime); start < min {
		start = min
	}
	if max := timeutil.TimeToMinutes(win.EndTime); end > max {
		end = max
	}
	return timeutil.MinutesToTime(start), timeutil.MinutesToTime(end)
}
