// Package handlers wires the booking core to its HTTP surface.
package handlers

import (
	"crypto/hmac"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/clinivo/booking-api/internal/availability"
	"github.com/clinivo/booking-api/internal/booking"
	"github.com/clinivo/booking-api/internal/decision"
	"github.com/clinivo/booking-api/pkg/logging"
)

// BookingsHandler serves the patient-facing booking endpoints plus the
// operator decision entry points.
type BookingsHandler struct {
	svc           *booking.Service
	engine        *availability.Engine
	signer        *decision.Signer
	webhookSecret string
	logger        *logging.Logger
	now           func() time.Time
}

// NewBookingsHandler creates the handler. webhookSecret guards the decision
// webhook; empty disables that route.
func NewBookingsHandler(svc *booking.Service, engine *availability.Engine, signer *decision.Signer, webhookSecret string, logger *logging.Logger) *BookingsHandler {
	if svc == nil {
		panic("handlers: booking service required")
	}
	if engine == nil {
		panic("handlers: availability engine required")
	}
	if signer == nil {
		signer = decision.NewSigner("")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &BookingsHandler{
		svc:           svc,
		engine:        engine,
		signer:        signer,
		webhookSecret: webhookSecret,
		logger:        logger,
		now:           time.Now,
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

type okEnvelope struct {
	OK     bool `json:"ok"`
	Result any  `json:"result"`
}

type errEnvelope struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

func writeOK(w http.ResponseWriter, status int, result any) {
	writeJSON(w, status, okEnvelope{OK: true, Result: result})
}

func writeReason(w http.ResponseWriter, code booking.Reason) {
	writeJSON(w, statusForReason(code), errEnvelope{OK: false, Error: string(code)})
}

// statusForReason maps business rejections onto HTTP statuses: validation
// problems are 400, state conflicts 409.
func statusForReason(code booking.Reason) int {
	switch code {
	case booking.ReasonMissingFields,
		booking.ReasonInvalidUnit,
		booking.ReasonInvalidService,
		booking.ReasonInvalidDatetime,
		booking.ReasonMissingDuration,
		booking.ReasonInvalidDuration:
		return http.StatusBadRequest
	case booking.ReasonUnauthorized:
		return http.StatusUnauthorized
	case booking.ReasonNotFound:
		return http.StatusNotFound
	case booking.ReasonSlotInReview,
		booking.ReasonConflict,
		booking.ReasonAlreadyDecided,
		booking.ReasonExpired:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (h *BookingsHandler) writeError(w http.ResponseWriter, err error) {
	if code, ok := booking.ReasonOf(err); ok {
		writeReason(w, code)
		return
	}
	h.logger.Error("unhandled booking error", "error", err)
	writeReason(w, booking.ReasonDBError)
}

// Create accepts a new booking request.
// POST /api/bookings
func (h *BookingsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in booking.SubmitInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeReason(w, booking.ReasonMissingFields)
		return
	}

	res, err := h.svc.Submit(r.Context(), in)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeOK(w, http.StatusCreated, res)
}

// Slots returns the day's availability grid. Omitting duration falls back
// to the service's default length.
// GET /api/bookings/slots?unit=centro&doctor=any&service=eval&duration=30&date=2025-06-01
func (h *BookingsHandler) Slots(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	duration, _ := strconv.Atoi(q.Get("duration"))

	slots, err := h.engine.DaySlots(r.Context(), availability.Query{
		UnitSlug:        q.Get("unit"),
		DoctorSlug:      q.Get("doctor"),
		ServiceID:       q.Get("service"),
		DurationMinutes: duration,
		Date:            q.Get("date"),
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeOK(w, http.StatusOK, slots)
}

// Status is the patient-facing poll endpoint.
// GET /api/bookings/{id}
func (h *BookingsHandler) Status(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		writeReason(w, booking.ReasonNotFound)
		return
	}

	view, err := h.svc.Status(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeOK(w, http.StatusOK, view)
}

// DecisionLink handles the signed confirm/decline URLs sent to operators.
// GET /api/bookings/decision?id=...&action=confirm&exp=...&override=0&sig=...
func (h *BookingsHandler) DecisionLink(w http.ResponseWriter, r *http.Request) {
	if !h.signer.Enabled() {
		// No secret configured: the links were never issued.
		http.NotFound(w, r)
		return
	}

	q := r.URL.Query()
	id := q.Get("id")
	action := q.Get("action")
	override := q.Get("override") == "1"
	expMs, err := strconv.ParseInt(q.Get("exp"), 10, 64)
	if err != nil {
		writeReason(w, booking.ReasonUnauthorized)
		return
	}

	if !h.signer.Verify(q.Get("sig"), id, action, expMs, override) {
		writeReason(w, booking.ReasonUnauthorized)
		return
	}
	// A valid signature still expires with the link.
	if h.now().UnixMilli() > expMs {
		writeReason(w, booking.ReasonExpired)
		return
	}

	decidedBy := q.Get("by")
	if decidedBy == "" {
		decidedBy = "decision_link"
	}
	b, err := h.svc.Decide(r.Context(), booking.DecisionInput{
		ID:        id,
		Action:    action,
		Override:  override,
		DecidedBy: decidedBy,
		Note:      q.Get("note"),
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeOK(w, http.StatusOK, b)
}

// decisionWebhookBody is the operator-channel decision callback payload.
type decisionWebhookBody struct {
	ID        string `json:"id"`
	Action    string `json:"action"`
	Override  bool   `json:"override"`
	DecidedBy string `json:"decidedBy"`
	Note      string `json:"note"`
}

// DecisionWebhook accepts decisions from the operator channel integration.
// POST /webhooks/decision with the shared secret in X-Decision-Secret.
func (h *BookingsHandler) DecisionWebhook(w http.ResponseWriter, r *http.Request) {
	if h.webhookSecret == "" {
		http.NotFound(w, r)
		return
	}
	provided := r.Header.Get("X-Decision-Secret")
	if !hmac.Equal([]byte(provided), []byte(h.webhookSecret)) {
		writeReason(w, booking.ReasonUnauthorized)
		return
	}

	var body decisionWebhookBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeReason(w, booking.ReasonMissingFields)
		return
	}
	if body.DecidedBy == "" {
		body.DecidedBy = "operator_webhook"
	}

	b, err := h.svc.Decide(r.Context(), booking.DecisionInput{
		ID:        body.ID,
		Action:    body.Action,
		Override:  body.Override,
		DecidedBy: body.DecidedBy,
		Note:      body.Note,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeOK(w, http.StatusOK, b)
}

// Pending returns the operator review queue.
// GET /admin/bookings/pending?limit=50
func (h *BookingsHandler) Pending(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	rows, err := h.svc.Undecided(r.Context(), limit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if rows == nil {
		rows = []*booking.BookingRequest{}
	}
	writeOK(w, http.StatusOK, rows)
}
