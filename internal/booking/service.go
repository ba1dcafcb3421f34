package booking

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/clinivo/booking-api/internal/catalog"
	"github.com/clinivo/booking-api/internal/decision"
	"github.com/clinivo/booking-api/internal/observability/metrics"
	"github.com/clinivo/booking-api/internal/timeutil"
	"github.com/clinivo/booking-api/pkg/logging"
)

var bookingTracer = otel.Tracer("clinivo.internal.booking")

const (
	maxDurationMinutes = 180
	durationStep       = 15

	maxNameLen  = 120
	maxPhoneLen = 32
	maxNotesLen = 500
)

// Notifier receives best-effort booking events. Implementations must not
// block the calling request.
type Notifier interface {
	BookingCreated(b *BookingRequest, links *decision.Links)
	BookingDecided(b *BookingRequest)
}

// Service orchestrates the booking request lifecycle.
type Service struct {
	repo       Repository
	catalog    catalog.Provider
	signer     *decision.Signer
	notifier   Notifier
	metrics    *metrics.BookingMetrics
	logger     *logging.Logger
	baseURL    string
	confirmSLA time.Duration
	now        func() time.Time
}

// NewService constructs a booking service. notifier and metrics may be nil.
func NewService(repo Repository, cat catalog.Provider, signer *decision.Signer, notifier Notifier, m *metrics.BookingMetrics, logger *logging.Logger, baseURL string, confirmSLA time.Duration) *Service {
	if repo == nil {
		panic("booking: repository required")
	}
	if cat == nil {
		panic("booking: catalog provider required")
	}
	if signer == nil {
		signer = decision.NewSigner("")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if confirmSLA <= 0 {
		confirmSLA = time.Hour
	}
	return &Service{
		repo:       repo,
		catalog:    cat,
		signer:     signer,
		notifier:   notifier,
		metrics:    m,
		logger:     logger,
		baseURL:    baseURL,
		confirmSLA: confirmSLA,
		now:        time.Now,
	}
}

// SubmitInput is the create-booking request payload.
type SubmitInput struct {
	UnitSlug        string `json:"unitSlug"`
	DoctorSlug      string `json:"doctorSlug"`
	DoctorName      string `json:"doctorName,omitempty"`
	ServiceID       string `json:"serviceId"`
	DurationMinutes int    `json:"durationMinutes"`
	Date            string `json:"date"`
	Time            string `json:"time"`
	PatientName     string `json:"patientName"`
	WhatsApp        string `json:"whatsapp"`
	Notes           string `json:"notes,omitempty"`
}

// SubmitResult reports an accepted booking request.
type SubmitResult struct {
	ID            string          `json:"id"`
	Status        Status          `json:"status"`
	ConfirmByMs   int64           `json:"confirmByMs"`
	DecisionLinks *decision.Links `json:"decisionLinks,omitempty"`
}

// Submit validates and persists a new booking request, per the creation
// rules: undecided overlaps block outright, confirmed overlaps demote the
// new request to needs_approval.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (*SubmitResult, error) {
	ctx, span := bookingTracer.Start(ctx, "booking.submit")
	defer span.End()
	span.SetAttributes(
		attribute.String("booking.unit", in.UnitSlug),
		attribute.String("booking.doctor", in.DoctorSlug),
	)

	patientName := timeutil.CleanText(in.PatientName, maxNameLen)
	whatsapp := timeutil.NormalizePhone(in.WhatsApp)
	if in.UnitSlug == "" || in.DoctorSlug == "" || in.ServiceID == "" ||
		in.Date == "" || in.Time == "" || patientName == "" || whatsapp == "" {
		return nil, s.rejectSubmit(ReasonMissingFields)
	}
	if len(whatsapp) > maxPhoneLen {
		return nil, s.rejectSubmit(ReasonMissingFields)
	}

	if in.DurationMinutes == 0 {
		return nil, s.rejectSubmit(ReasonMissingDuration)
	}
	if in.DurationMinutes < durationStep || in.DurationMinutes > maxDurationMinutes ||
		in.DurationMinutes%durationStep != 0 {
		return nil, s.rejectSubmit(ReasonInvalidDuration)
	}

	cat, err := s.catalog.Get(ctx)
	if err != nil {
		s.logger.Error("catalog lookup failed", "error", err)
		return nil, Reject(ReasonDBError)
	}
	if !cat.DoctorAtUnit(in.UnitSlug, in.DoctorSlug) {
		return nil, s.rejectSubmit(ReasonInvalidUnit)
	}
	if cat.Service(in.ServiceID) == nil {
		return nil, s.rejectSubmit(ReasonInvalidService)
	}

	startMs, ok := timeutil.ToEpochMs(in.Date, in.Time)
	if !ok {
		return nil, s.rejectSubmit(ReasonInvalidDatetime)
	}
	nowMs := s.now().UnixMilli()
	if startMs < nowMs {
		return nil, s.rejectSubmit(ReasonInvalidDatetime)
	}
	endMs := timeutil.AddMinutes(startMs, in.DurationMinutes)

	overlapping, err := s.repo.FindOverlapping(ctx, in.UnitSlug, in.DoctorSlug, startMs, endMs)
	if err != nil {
		s.logger.Error("overlap query failed", "error", err, "unit", in.UnitSlug, "doctor", in.DoctorSlug)
		return nil, Reject(ReasonDBError)
	}

	status := StatusPending
	for _, row := range overlapping {
		s.expireAndPersist(ctx, row, nowMs)
		if !row.Active(nowMs) {
			continue
		}
		switch row.Status {
		case StatusPending, StatusNeedsApproval:
			// First come, first served on the review queue.
			return nil, s.rejectSubmit(ReasonSlotInReview)
		case StatusConfirmed:
			status = StatusNeedsApproval
		}
	}

	b := &BookingRequest{
		ID:          uuid.NewString(),
		UnitSlug:    in.UnitSlug,
		DoctorSlug:  in.DoctorSlug,
		DoctorName:  timeutil.CleanText(in.DoctorName, maxNameLen),
		ServiceID:   in.ServiceID,
		StartAtMs:   startMs,
		EndAtMs:     endMs,
		Status:      status,
		PatientName: patientName,
		WhatsApp:    whatsapp,
		Notes:       timeutil.CleanText(in.Notes, maxNotesLen),
		CreatedAtMs: nowMs,
		ConfirmByMs: nowMs + s.confirmSLA.Milliseconds(),
	}

	if err := s.repo.Create(ctx, b); err != nil {
		span.RecordError(err)
		s.logger.Error("booking insert failed", "error", err, "unit", b.UnitSlug)
		return nil, Reject(ReasonDBError)
	}

	var links *decision.Links
	if s.signer.Enabled() {
		links, err = s.signer.BuildLinks(s.baseURL, b.ID, b.ConfirmByMs)
		if err != nil {
			// Links are operator convenience; the booking stands.
			s.logger.Error("decision link issue failed", "error", err, "booking_id", b.ID)
			links = nil
		}
	}

	if s.notifier != nil {
		s.notifier.BookingCreated(b, links)
	}
	s.metrics.ObserveCreated(string(b.Status), b.UnitSlug)
	s.logger.Info("booking request created",
		"booking_id", b.ID,
		"unit", b.UnitSlug,
		"doctor", b.DoctorSlug,
		"status", b.Status,
	)

	return &SubmitResult{
		ID:            b.ID,
		Status:        b.Status,
		ConfirmByMs:   b.ConfirmByMs,
		DecisionLinks: links,
	}, nil
}

func (s *Service) rejectSubmit(code Reason) error {
	s.metrics.ObserveRejected(string(code))
	return Reject(code)
}

// DecisionInput applies an authorized confirm/decline to a booking.
// Authorization (signature or shared secret) is the transport layer's job;
// the service enforces business state only.
type DecisionInput struct {
	ID        string
	Action    string
	Override  bool
	DecidedBy string
	Note      string
}

// Decide applies a confirm or decline decision.
func (s *Service) Decide(ctx context.Context, in DecisionInput) (*BookingRequest, error) {
	ctx, span := bookingTracer.Start(ctx, "booking.decide")
	defer span.End()
	span.SetAttributes(
		attribute.String("booking.id", in.ID),
		attribute.String("booking.action", in.Action),
		attribute.Bool("booking.override", in.Override),
	)

	if in.Action != decision.ActionConfirm && in.Action != decision.ActionDecline {
		return nil, s.rejectDecision(in.Action, ReasonUnauthorized)
	}

	b, err := s.repo.GetByID(ctx, in.ID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, s.rejectDecision(in.Action, ReasonNotFound)
		}
		s.logger.Error("booking load failed", "error", err, "booking_id", in.ID)
		return nil, Reject(ReasonDBError)
	}

	nowMs := s.now().UnixMilli()
	if b.Status.Terminal() {
		return nil, s.rejectDecision(in.Action, ReasonAlreadyDecided)
	}
	if b.ExpireIfDue(nowMs) {
		s.persistExpiry(ctx, b)
		return nil, s.rejectDecision(in.Action, ReasonExpired)
	}

	if in.Action == decision.ActionDecline {
		// Declines never conflict.
		b.Status = StatusDeclined
		s.recordDecision(b, nowMs, in)
		if err := s.repo.Update(ctx, b); err != nil {
			s.logger.Error("decline update failed", "error", err, "booking_id", b.ID)
			return nil, Reject(ReasonDBError)
		}
		s.finishDecision(b, in.Action)
		return b, nil
	}

	// Confirm: re-derive conflict state at decision time. Races with other
	// decisions are resolved by this re-check plus the override path, not
	// by locking.
	overlapping, err := s.repo.FindOverlapping(ctx, b.UnitSlug, b.DoctorSlug, b.StartAtMs, b.EndAtMs)
	if err != nil {
		s.logger.Error("conflict re-check failed", "error", err, "booking_id", b.ID)
		return nil, Reject(ReasonDBError)
	}
	conflicted := false
	for _, other := range overlapping {
		if other.ID != b.ID && other.Status == StatusConfirmed {
			conflicted = true
			break
		}
	}

	if conflicted && !in.Override {
		if b.Status == StatusPending {
			b.Status = StatusNeedsApproval
			if err := s.repo.Update(ctx, b); err != nil {
				s.logger.Error("demote update failed", "error", err, "booking_id", b.ID)
				return nil, Reject(ReasonDBError)
			}
		}
		return nil, s.rejectDecision(in.Action, ReasonConflict)
	}

	b.Status = StatusConfirmed
	b.OverrideConflict = conflicted && in.Override
	s.recordDecision(b, nowMs, in)
	if err := s.repo.Update(ctx, b); err != nil {
		s.logger.Error("confirm update failed", "error", err, "booking_id", b.ID)
		return nil, Reject(ReasonDBError)
	}
	s.finishDecision(b, in.Action)
	return b, nil
}

func (s *Service) recordDecision(b *BookingRequest, nowMs int64, in DecisionInput) {
	b.DecidedAtMs = nowMs
	b.DecidedBy = timeutil.CleanText(in.DecidedBy, maxNameLen)
	b.DecisionNote = timeutil.CleanText(in.Note, maxNotesLen)
}

func (s *Service) finishDecision(b *BookingRequest, action string) {
	if s.notifier != nil {
		s.notifier.BookingDecided(b)
	}
	s.metrics.ObserveDecision(action, string(b.Status))
	s.logger.Info("booking decided",
		"booking_id", b.ID,
		"status", b.Status,
		"override", b.OverrideConflict,
	)
}

func (s *Service) rejectDecision(action string, code Reason) error {
	s.metrics.ObserveDecision(action, string(code))
	return Reject(code)
}

// StatusView is the status-poll response: the row plus derived fields.
type StatusView struct {
	BookingRequest
	DurationMinutes int    `json:"durationMinutes"`
	ServiceName     string `json:"serviceName"`
}

// Status returns the current row, applying lazy expiry first.
func (s *Service) Status(ctx context.Context, id string) (*StatusView, error) {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, Reject(ReasonNotFound)
		}
		s.logger.Error("booking load failed", "error", err, "booking_id", id)
		return nil, Reject(ReasonDBError)
	}

	s.expireAndPersist(ctx, b, s.now().UnixMilli())

	serviceName := b.ServiceID
	if cat, err := s.catalog.Get(ctx); err == nil {
		serviceName = cat.ServiceName(b.ServiceID)
	}

	return &StatusView{
		BookingRequest:  *b,
		DurationMinutes: b.DurationMinutes(),
		ServiceName:     serviceName,
	}, nil
}

// Undecided returns the operator review queue, expiring stale entries on
// the way out.
func (s *Service) Undecided(ctx context.Context, limit int) ([]*BookingRequest, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := s.repo.ListUndecided(ctx, limit)
	if err != nil {
		s.logger.Error("review queue query failed", "error", err)
		return nil, Reject(ReasonDBError)
	}
	nowMs := s.now().UnixMilli()
	out := rows[:0]
	for _, row := range rows {
		if s.expireAndPersist(ctx, row, nowMs) {
			continue
		}
		out = append(out, row)
	}
	return out, nil
}

// CountByStatus exposes store counts for the ops summary.
func (s *Service) CountByStatus(ctx context.Context) (map[Status]int64, error) {
	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		s.logger.Error("status count query failed", "error", err)
		return nil, Reject(ReasonDBError)
	}
	return counts, nil
}

// ExpireStale sweeps undecided rows past their deadline. The sweep is
// cleanliness only; every read path applies the same lazy check.
func (s *Service) ExpireStale(ctx context.Context) (int, error) {
	nowMs := s.now().UnixMilli()
	rows, err := s.repo.ListExpirable(ctx, nowMs, 200)
	if err != nil {
		return 0, err
	}
	expired := 0
	for _, row := range rows {
		if row.ExpireIfDue(nowMs) {
			if err := s.repo.Update(ctx, row); err != nil {
				s.logger.Error("expiry update failed", "error", err, "booking_id", row.ID)
				continue
			}
			expired++
		}
	}
	s.metrics.ObserveExpired(expired)
	return expired, nil
}

// expireAndPersist applies lazy expiry to a loaded row, persisting the
// transition best-effort. Returns true if the row expired.
func (s *Service) expireAndPersist(ctx context.Context, b *BookingRequest, nowMs int64) bool {
	if !b.ExpireIfDue(nowMs) {
		return false
	}
	s.persistExpiry(ctx, b)
	return true
}

func (s *Service) persistExpiry(ctx context.Context, b *BookingRequest) {
	if err := s.repo.Update(ctx, b); err != nil {
		s.logger.Error("expiry update failed", "error", err, "booking_id", b.ID)
		return
	}
	s.metrics.ObserveExpired(1)
}
