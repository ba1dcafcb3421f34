// Package timeutil holds the pure date/time and input-normalization helpers
// shared by the booking core. All appointment instants are interpreted in a
// single fixed UTC-3 offset; the target region observes no DST, so no
// location database lookup is ever needed.
package timeutil

import (
	"strings"
	"time"
	"unicode"
)

// ClinicOffset is the fixed UTC offset appointments are interpreted in.
const ClinicOffset = "-03:00"

// clinicLocation is a fixed-offset location, never a named zone.
var clinicLocation = time.FixedZone("UTC-3", -3*60*60)

// ValidDate reports whether s is a calendar-valid YYYY-MM-DD date.
func ValidDate(s string) bool {
	if len(s) != 10 {
		return false
	}
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}

// ValidClock reports whether s is a valid HH:MM 24-hour time.
func ValidClock(s string) bool {
	if len(s) != 5 {
		return false
	}
	_, err := time.Parse("15:04", s)
	return err == nil
}

// ToEpochMs builds the epoch-millisecond instant for date ("YYYY-MM-DD") and
// clock ("HH:MM") in the fixed clinic offset. Returns 0 and false on invalid
// input; it never panics.
func ToEpochMs(date, clock string) (int64, bool) {
	if !ValidDate(date) || !ValidClock(clock) {
		return 0, false
	}
	t, err := time.ParseInLocation("2006-01-02 15:04", date+" "+clock, clinicLocation)
	if err != nil {
		return 0, false
	}
	return t.UnixMilli(), true
}

// AddMinutes returns ms shifted by n minutes.
func AddMinutes(ms int64, n int) int64 {
	return ms + int64(n)*60_000
}

// MinuteOfDay returns the minute-of-day of an epoch-ms instant in the clinic
// offset, e.g. 10:30 -> 630.
func MinuteOfDay(ms int64) int {
	t := time.UnixMilli(ms).In(clinicLocation)
	return t.Hour()*60 + t.Minute()
}

// FormatClock renders a minute-of-day as HH:MM.
func FormatClock(minuteOfDay int) string {
	h := minuteOfDay / 60
	m := minuteOfDay % 60
	return string([]byte{
		byte('0' + h/10), byte('0' + h%10),
		':',
		byte('0' + m/10), byte('0' + m%10),
	})
}

// CleanText trims whitespace and clamps s to max runes, bounding what ends
// up in storage. max <= 0 returns the trimmed string unchanged.
func CleanText(s string, max int) string {
	s = strings.TrimSpace(s)
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return strings.TrimSpace(string(runes[:max]))
}

// NormalizePhone reduces a free-form phone number to digits, prefixing the
// country code 55 when the digit count matches a local 10/11-digit number
// (area code + line). Anything else is returned as digits unchanged; an
// input with no digits normalizes to "".
func NormalizePhone(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) == 10 || len(digits) == 11 {
		return "55" + digits
	}
	return digits
}
