// Package availability computes the bookable slot grid for a day and
// annotates each candidate with why it can or cannot be taken.
package availability

import (
	"context"
	"time"

	"github.com/clinivo/booking-api/internal/booking"
	"github.com/clinivo/booking-api/internal/catalog"
	"github.com/clinivo/booking-api/internal/observability/metrics"
	"github.com/clinivo/booking-api/internal/timeutil"
	"github.com/clinivo/booking-api/pkg/logging"
)

// Unavailability reasons. Past overrides the others so the UI can grey out
// elapsed slots uniformly.
const (
	ReasonBooked   = "booked"
	ReasonInReview = "in_review"
	ReasonPast     = "past"
)

// AnyDoctor asks for slots where at least one doctor at the unit is free.
const AnyDoctor = "any"

// Grid describes the fixed daily candidate layout.
type Grid struct {
	OpenHour        int
	CloseHour       int
	LunchStartHour  int
	LunchEndHour    int
	StepMinutes     int
	MaxDurationMins int
}

// DefaultGrid matches the reference deployment: 09:00-18:00, 15-minute
// steps, lunch 12:00-13:00.
func DefaultGrid() Grid {
	return Grid{
		OpenHour:        9,
		CloseHour:       18,
		LunchStartHour:  12,
		LunchEndHour:    13,
		StepMinutes:     15,
		MaxDurationMins: 180,
	}
}

// Candidates returns the start minutes-of-day a booking of the given
// duration may occupy. Pure function of the duration: candidates that would
// run past closing or intersect the lunch window are excluded.
func (g Grid) Candidates(durationMinutes int) []int {
	if durationMinutes <= 0 || durationMinutes > g.MaxDurationMins {
		return nil
	}
	open := g.OpenHour * 60
	close := g.CloseHour * 60
	lunchStart := g.LunchStartHour * 60
	lunchEnd := g.LunchEndHour * 60

	var out []int
	for start := open; start+durationMinutes <= close; start += g.StepMinutes {
		end := start + durationMinutes
		if start < lunchEnd && end > lunchStart {
			continue
		}
		out = append(out, start)
	}
	return out
}

// Slot is one candidate in a day query response. Unavailable slots are
// included with their reason so the UI can explain why they are blocked.
type Slot struct {
	Time      string `json:"time"`
	StartAtMs int64  `json:"startAtMs"`
	EndAtMs   int64  `json:"endAtMs"`
	Available bool   `json:"available"`
	Reason    string `json:"reason,omitempty"`
}

// Query selects the day grid to compute. When DurationMinutes is zero the
// service's default duration from the catalog applies.
type Query struct {
	UnitSlug        string
	DoctorSlug      string // a doctor slug, or AnyDoctor
	ServiceID       string
	DurationMinutes int
	Date            string // YYYY-MM-DD
}

// Engine classifies the day's candidate grid against current bookings.
type Engine struct {
	repo    booking.Repository
	catalog catalog.Provider
	grid    Grid
	metrics *metrics.BookingMetrics
	logger  *logging.Logger
	now     func() time.Time
}

// NewEngine constructs an availability engine. metrics may be nil.
func NewEngine(repo booking.Repository, cat catalog.Provider, grid Grid, m *metrics.BookingMetrics, logger *logging.Logger) *Engine {
	if repo == nil {
		panic("availability: repository required")
	}
	if cat == nil {
		panic("availability: catalog provider required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Engine{
		repo:    repo,
		catalog: cat,
		grid:    grid,
		metrics: m,
		logger:  logger,
		now:     time.Now,
	}
}

// DaySlots computes the annotated candidate list for a query.
func (e *Engine) DaySlots(ctx context.Context, q Query) ([]Slot, error) {
	started := e.now()
	defer func() {
		e.metrics.ObserveSlotQuery(q.UnitSlug, time.Since(started).Seconds())
	}()

	dayStartMs, ok := timeutil.ToEpochMs(q.Date, "00:00")
	if !ok {
		return nil, booking.Reject(booking.ReasonInvalidDatetime)
	}
	dayEndMs := timeutil.AddMinutes(dayStartMs, 24*60)

	cat, err := e.catalog.Get(ctx)
	if err != nil {
		e.logger.Error("catalog lookup failed", "error", err)
		return nil, booking.Reject(booking.ReasonDBError)
	}
	unit := cat.Unit(q.UnitSlug)
	if unit == nil {
		return nil, booking.Reject(booking.ReasonInvalidUnit)
	}

	anyDoctor := q.DoctorSlug == "" || q.DoctorSlug == AnyDoctor
	if !anyDoctor && !cat.DoctorAtUnit(q.UnitSlug, q.DoctorSlug) {
		return nil, booking.Reject(booking.ReasonInvalidUnit)
	}

	duration := q.DurationMinutes
	if duration == 0 && q.ServiceID != "" {
		if svc := cat.Service(q.ServiceID); svc != nil {
			duration = svc.DefaultDurationMinutes
		}
	}
	if duration <= 0 {
		return nil, booking.Reject(booking.ReasonMissingDuration)
	}

	// One load for the whole day; a specific-doctor query narrows it.
	doctorFilter := q.DoctorSlug
	if anyDoctor {
		doctorFilter = ""
	}
	rows, err := e.repo.FindOverlapping(ctx, q.UnitSlug, doctorFilter, dayStartMs, dayEndMs)
	if err != nil {
		e.logger.Error("day load failed", "error", err, "unit", q.UnitSlug)
		return nil, booking.Reject(booking.ReasonDBError)
	}

	nowMs := e.now().UnixMilli()
	active := rows[:0]
	for _, row := range rows {
		if row.ExpireIfDue(nowMs) {
			if err := e.repo.Update(ctx, row); err != nil {
				e.logger.Error("expiry update failed", "error", err, "booking_id", row.ID)
			}
			continue
		}
		if row.Active(nowMs) {
			active = append(active, row)
		}
	}

	candidates := e.grid.Candidates(duration)
	slots := make([]Slot, 0, len(candidates))
	for _, startMin := range candidates {
		startMs := timeutil.AddMinutes(dayStartMs, startMin)
		endMs := timeutil.AddMinutes(startMs, duration)
		slot := Slot{
			Time:      timeutil.FormatClock(startMin),
			StartAtMs: startMs,
			EndAtMs:   endMs,
			Available: true,
		}

		if anyDoctor {
			slot.Available, slot.Reason = classifyAnyDoctor(unit.Doctors, active, startMs, endMs)
		} else {
			slot.Available, slot.Reason = classifyDoctor(q.DoctorSlug, active, startMs, endMs)
		}

		// A slot already in the past is unavailable regardless of bookings.
		if startMs < nowMs {
			slot.Available = false
			slot.Reason = ReasonPast
		}

		slots = append(slots, slot)
	}
	return slots, nil
}

func classifyDoctor(doctorSlug string, active []*booking.BookingRequest, startMs, endMs int64) (bool, string) {
	reason := ""
	for _, row := range active {
		if row.DoctorSlug != doctorSlug || !row.Overlaps(startMs, endMs) {
			continue
		}
		if row.Status == booking.StatusConfirmed {
			return false, ReasonBooked
		}
		reason = ReasonInReview
	}
	if reason != "" {
		return false, reason
	}
	return true, ""
}

func classifyAnyDoctor(doctors []catalog.Doctor, active []*booking.BookingRequest, startMs, endMs int64) (bool, string) {
	sawNonConfirmed := false
	sawOverlap := false
	for _, d := range doctors {
		free := true
		for _, row := range active {
			if row.DoctorSlug != d.Slug || !row.Overlaps(startMs, endMs) {
				continue
			}
			free = false
			sawOverlap = true
			if row.Status != booking.StatusConfirmed {
				sawNonConfirmed = true
			}
		}
		if free {
			return true, ""
		}
	}
	if !sawOverlap {
		// No doctors serve the unit at all; nothing to book.
		return false, ReasonBooked
	}
	if sawNonConfirmed {
		return false, ReasonInReview
	}
	return false, ReasonBooked
}
