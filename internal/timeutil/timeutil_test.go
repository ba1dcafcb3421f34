package timeutil

import "testing"

func TestValidDate(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"2025-06-01", true},
		{"2024-02-29", true},
		{"2025-02-29", false},
		{"2025-13-01", false},
		{"2025-6-1", false},
		{"01-06-2025", false},
		{"", false},
		{"2025-06-01T10:00", false},
	}
	for _, tc := range cases {
		if got := ValidDate(tc.in); got != tc.want {
			t.Errorf("ValidDate(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestValidClock(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"09:00", true},
		{"23:59", true},
		{"00:00", true},
		{"24:00", false},
		{"9:00", false},
		{"09:60", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := ValidClock(tc.in); got != tc.want {
			t.Errorf("ValidClock(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestToEpochMsFixedOffset(t *testing.T) {
	// 2025-06-01T10:00-03:00 == 2025-06-01T13:00Z == 1748782800000
	ms, ok := ToEpochMs("2025-06-01", "10:00")
	if !ok {
		t.Fatal("expected valid instant")
	}
	const want = int64(1748782800000)
	if ms != want {
		t.Errorf("ToEpochMs = %d, want %d", ms, want)
	}

	if _, ok := ToEpochMs("2025-06-01", "25:00"); ok {
		t.Error("expected invalid clock to be rejected")
	}
	if _, ok := ToEpochMs("bad", "10:00"); ok {
		t.Error("expected invalid date to be rejected")
	}
}

func TestAddMinutes(t *testing.T) {
	if got := AddMinutes(1000, 30); got != 1000+30*60_000 {
		t.Errorf("AddMinutes = %d", got)
	}
	if got := AddMinutes(1000, -15); got != 1000-15*60_000 {
		t.Errorf("AddMinutes negative = %d", got)
	}
}

func TestMinuteOfDayRoundTrip(t *testing.T) {
	ms, _ := ToEpochMs("2025-06-01", "14:45")
	if got := MinuteOfDay(ms); got != 14*60+45 {
		t.Errorf("MinuteOfDay = %d, want %d", got, 14*60+45)
	}
	if got := FormatClock(14*60 + 45); got != "14:45" {
		t.Errorf("FormatClock = %q", got)
	}
	if got := FormatClock(9 * 60); got != "09:00" {
		t.Errorf("FormatClock = %q", got)
	}
}

func TestCleanText(t *testing.T) {
	if got := CleanText("  hello  ", 10); got != "hello" {
		t.Errorf("CleanText trim = %q", got)
	}
	if got := CleanText("abcdefghij", 4); got != "abcd" {
		t.Errorf("CleanText clamp = %q", got)
	}
	if got := CleanText("abc def", 4); got != "abc" {
		t.Errorf("CleanText clamp should re-trim, got %q", got)
	}
	if got := CleanText("  keep all  ", 0); got != "keep all" {
		t.Errorf("CleanText max=0 = %q", got)
	}
}

func TestNormalizePhone(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"(11) 98765-4321", "5511987654321"},
		{"1187654321", "551187654321"},
		{"+55 11 98765-4321", "5511987654321"},
		{"555-0199", "5550199"},
		{"abc", ""},
		{"", ""},
	}
	for _, tc := range cases {
		if got := NormalizePhone(tc.in); got != tc.want {
			t.Errorf("NormalizePhone(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
