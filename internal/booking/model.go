// Package booking implements the appointment request lifecycle: creation,
// conflict detection, operator decisions and expiry.
package booking

import "errors"

// Status is the lifecycle state of a booking request.
type Status string

const (
	// StatusPending awaits an operator decision within the confirm SLA.
	StatusPending Status = "pending"
	// StatusNeedsApproval marks a request that overlaps a confirmed
	// booking; confirming it requires an explicit override.
	StatusNeedsApproval Status = "needs_approval"
	StatusConfirmed     Status = "confirmed"
	StatusDeclined      Status = "declined"
	StatusExpired       Status = "expired"
)

// Terminal reports whether no further transition may leave the state.
func (s Status) Terminal() bool {
	switch s {
	case StatusConfirmed, StatusDeclined, StatusExpired:
		return true
	}
	return false
}

// autoExpireNote is recorded when a request lapses past its deadline.
const autoExpireNote = "auto_expired"

// BookingRequest is the persisted appointment request. Rows are never
// deleted; they remain as the historical record for polling and audit.
type BookingRequest struct {
	ID          string `json:"id"`
	UnitSlug    string `json:"unitSlug"`
	DoctorSlug  string `json:"doctorSlug"`
	DoctorName  string `json:"doctorName,omitempty"`
	ServiceID   string `json:"serviceId"`
	StartAtMs   int64  `json:"startAtMs"`
	EndAtMs     int64  `json:"endAtMs"`
	Status      Status `json:"status"`
	PatientName string `json:"patientName"`
	WhatsApp    string `json:"whatsapp"`
	Notes       string `json:"notes,omitempty"`
	CreatedAtMs int64  `json:"createdAtMs"`
	// ConfirmByMs is fixed at creation and never extended.
	ConfirmByMs      int64  `json:"confirmByMs"`
	DecidedAtMs      int64  `json:"decidedAtMs,omitempty"`
	DecidedBy        string `json:"decidedBy,omitempty"`
	DecisionNote     string `json:"decisionNote,omitempty"`
	OverrideConflict bool   `json:"overrideConflict"`
}

// DurationMinutes derives the appointment length from the interval.
func (b *BookingRequest) DurationMinutes() int {
	return int((b.EndAtMs - b.StartAtMs) / 60_000)
}

// Overlaps reports whether [startMs, endMs) intersects the row's interval.
func (b *BookingRequest) Overlaps(startMs, endMs int64) bool {
	return b.StartAtMs < endMs && b.EndAtMs > startMs
}

// Active reports whether the row blocks a slot at nowMs: confirmed rows
// always do, undecided rows only until their confirm deadline.
func (b *BookingRequest) Active(nowMs int64) bool {
	switch b.Status {
	case StatusConfirmed:
		return true
	case StatusPending, StatusNeedsApproval:
		return nowMs <= b.ConfirmByMs
	}
	return false
}

// ExpireIfDue transitions an undecided row past its deadline to expired.
// Idempotent: decision fields are only written if not already set. Returns
// true when the row was mutated and needs persisting.
func (b *BookingRequest) ExpireIfDue(nowMs int64) bool {
	if b.Status.Terminal() {
		return false
	}
	if nowMs <= b.ConfirmByMs {
		return false
	}
	b.Status = StatusExpired
	if b.DecidedAtMs == 0 {
		b.DecidedAtMs = nowMs
		b.DecisionNote = autoExpireNote
	}
	return true
}

// Reason identifies a business rejection. The set is closed so client
// behavior stays deterministic; reasons are ordinary result values, never
// panics.
type Reason string

const (
	ReasonMissingFields   Reason = "missing_fields"
	ReasonInvalidUnit     Reason = "invalid_unit"
	ReasonInvalidService  Reason = "invalid_service"
	ReasonInvalidDatetime Reason = "invalid_datetime"
	ReasonMissingDuration Reason = "missing_duration"
	ReasonInvalidDuration Reason = "invalid_duration"
	ReasonSlotInReview    Reason = "slot_in_review"
	ReasonConflict        Reason = "conflict_requires_override"
	ReasonExpired         Reason = "expired"
	ReasonAlreadyDecided  Reason = "already_decided"
	ReasonNotFound        Reason = "not_found"
	ReasonUnauthorized    Reason = "unauthorized"
	ReasonDBError         Reason = "db_error"
)

// RejectionError carries a Reason through the error return.
type RejectionError struct {
	Code Reason
}

func (e *RejectionError) Error() string {
	return string(e.Code)
}

// Reject wraps a Reason as an error result.
func Reject(code Reason) error {
	return &RejectionError{Code: code}
}

// ReasonOf extracts the rejection reason from err, if any.
func ReasonOf(err error) (Reason, bool) {
	var re *RejectionError
	if errors.As(err, &re) {
		return re.Code, true
	}
	return "", false
}
