// Package decision signs and verifies the confirm/decline authorization
// tokens embedded in operator decision links. A token authorizes exactly one
// action on one booking until an absolute expiry; it carries no session.
package decision

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// Actions a token can authorize.
const (
	ActionConfirm = "confirm"
	ActionDecline = "decline"
)

// tokenVersion tags the canonical string so the scheme can rotate.
const tokenVersion = "v1"

// maxLinkTTL caps how far in the future an issued token may expire. The
// confirm SLA is one hour; anything beyond a day is a misconfigured caller.
const maxLinkTTL = 24 * time.Hour

var (
	// ErrDisabled is returned when no signing secret is configured. The
	// feature must shut off entirely rather than sign with an empty key.
	ErrDisabled = errors.New("decision: signing disabled, no secret configured")

	// ErrInvalidAction is returned for actions outside confirm/decline.
	ErrInvalidAction = errors.New("decision: invalid action")

	// ErrExpiryTooFar is returned when a caller asks for an implausibly
	// long-lived link.
	ErrExpiryTooFar = errors.New("decision: expiry too far in the future")
)

// Signer issues and checks decision tokens with an operator-shared secret.
type Signer struct {
	secret []byte
	now    func() time.Time
}

// NewSigner creates a signer. An empty secret yields a disabled signer:
// Sign fails and Verify rejects everything.
func NewSigner(secret string) *Signer {
	s := &Signer{now: time.Now}
	if secret != "" {
		s.secret = []byte(secret)
	}
	return s
}

// Enabled reports whether a secret is configured.
func (s *Signer) Enabled() bool {
	return len(s.secret) > 0
}

func canonical(id, action string, expMs int64, override bool) string {
	o := "0"
	if override {
		o = "1"
	}
	return tokenVersion + "|" + id + "|" + action + "|" + strconv.FormatInt(expMs, 10) + "|" + o
}

// Sign produces the token authorizing action on booking id until expMs.
func (s *Signer) Sign(id, action string, expMs int64, override bool) (string, error) {
	if !s.Enabled() {
		return "", ErrDisabled
	}
	if action != ActionConfirm && action != ActionDecline {
		return "", ErrInvalidAction
	}
	if id == "" {
		return "", errors.New("decision: booking id required")
	}
	if expMs > s.now().Add(maxLinkTTL).UnixMilli() {
		return "", ErrExpiryTooFar
	}

	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(canonical(id, action, expMs, override)))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil)), nil
}

// Verify recomputes the expected token and compares in constant time.
// Signature validity does NOT imply non-expiry: the caller must check expMs
// against the current time separately before trusting the result.
func (s *Signer) Verify(token, id, action string, expMs int64, override bool) bool {
	if !s.Enabled() || token == "" || id == "" {
		return false
	}
	if action != ActionConfirm && action != ActionDecline {
		return false
	}

	provided, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(canonical(id, action, expMs, override)))
	return hmac.Equal(mac.Sum(nil), provided)
}

// Links are the three decision URLs issued alongside a new booking request.
type Links struct {
	Confirm         string `json:"confirm"`
	ConfirmOverride string `json:"confirmOverride"`
	Decline         string `json:"decline"`
}

// BuildLinks issues the confirm, confirm-with-override and decline URLs for
// a booking, all expiring at expMs. baseURL is the public origin of the API.
func (s *Signer) BuildLinks(baseURL, id string, expMs int64) (*Links, error) {
	if !s.Enabled() {
		return nil, ErrDisabled
	}

	build := func(action string, override bool) (string, error) {
		sig, err := s.Sign(id, action, expMs, override)
		if err != nil {
			return "", err
		}
		q := url.Values{}
		q.Set("id", id)
		q.Set("action", action)
		q.Set("exp", strconv.FormatInt(expMs, 10))
		o := "0"
		if override {
			o = "1"
		}
		q.Set("override", o)
		q.Set("sig", sig)
		return fmt.Sprintf("%s/api/bookings/decision?%s", baseURL, q.Encode()), nil
	}

	confirm, err := build(ActionConfirm, false)
	if err != nil {
		return nil, err
	}
	confirmOverride, err := build(ActionConfirm, true)
	if err != nil {
		return nil, err
	}
	decline, err := build(ActionDecline, false)
	if err != nil {
		return nil, err
	}

	return &Links{
		Confirm:         confirm,
		ConfirmOverride: confirmOverride,
		Decline:         decline,
	}, nil
}
