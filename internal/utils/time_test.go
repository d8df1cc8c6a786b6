package utils

import (
	"testing"
	"time"
)

func TestLocalDate(t *testing.T) {
	at := time.Date(2026, 2, 10, 23, 45, 0, 0, time.Local)
	if got := LocalDate(at); got != "2026-02-10" {
		t.Errorf("LocalDate() = %q, want 2026-02-10", got)
	}
}

func TestDaysBetween(t *testing.T) {
	tests := []struct {
		name string
		from string
		to   string
		want int
	}{
		{name: "same day", from: "2026-02-10", to: "2026-02-10", want: 0},
		{name: "one day", from: "2026-02-09", to: "2026-02-10", want: 1},
		{name: "week", from: "2026-02-03", to: "2026-02-10", want: 7},
		{name: "month boundary", from: "2026-01-31", to: "2026-02-02", want: 2},
		{name: "reversed clamps to zero", from: "2026-02-10", to: "2026-02-09", want: 0},
		{name: "garbage", from: "not-a-date", to: "2026-02-10", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DaysBetween(tt.from, tt.to); got != tt.want {
				t.Errorf("DaysBetween(%q, %q) = %d, want %d", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestDaysBetweenAcrossDSTTransition(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("timezone database unavailable: %v", err)
	}
	saved := time.Local
	time.Local = loc
	defer func() { time.Local = saved }()

	// 2026-03-08 springs forward in this zone, so the local week is only
	// 167 wall-clock hours; it is still seven calendar days.
	if got := DaysBetween("2026-03-07", "2026-03-14"); got != 7 {
		t.Errorf("DaysBetween() across spring-forward = %d, want 7", got)
	}
	// 2026-11-01 falls back: 169 hours, still seven days.
	if got := DaysBetween("2026-10-31", "2026-11-07"); got != 7 {
		t.Errorf("DaysBetween() across fall-back = %d, want 7", got)
	}
}

func TestPreviousDay(t *testing.T) {
	tests := []struct {
		date string
		want string
	}{
		{date: "2026-02-10", want: "2026-02-09"},
		{date: "2026-03-01", want: "2026-02-28"},
		{date: "2026-01-01", want: "2025-12-31"},
		{date: "bogus", want: ""},
	}

	for _, tt := range tests {
		if got := PreviousDay(tt.date); got != tt.want {
			t.Errorf("PreviousDay(%q) = %q, want %q", tt.date, got, tt.want)
		}
	}
}

func TestValidDate(t *testing.T) {
	if !ValidDate("2026-02-10") {
		t.Error("ValidDate(2026-02-10) = false, want true")
	}
	if ValidDate("02/10/2026") {
		t.Error("ValidDate(02/10/2026) = true, want false")
	}
}
