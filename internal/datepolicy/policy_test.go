package datepolicy

import (
	"errors"
	"testing"
	"time"
)

func fixedClock(y int, m time.Month, d int) func() time.Time {
	return func() time.Time { return time.Date(y, m, d, 15, 30, 0, 0, time.UTC) }
}

func TestEasterSunday(t *testing.T) {
	known := map[int]string{
		1961: "1961-04-02",
		2000: "2000-04-23",
		2019: "2019-04-21",
		2024: "2024-03-31",
		2025: "2025-04-20",
		2026: "2026-04-05",
		2038: "2038-04-25",
	}
	for year, want := range known {
		got := EasterSunday(year, time.UTC).Format("2006-01-02")
		if got != want {
			t.Errorf("EasterSunday(%d) = %s, want %s", year, got, want)
		}
	}
}

func TestHolyWeekShape(t *testing.T) {
	for year := 1900; year <= 2200; year++ {
		days := HolyWeek(year, time.UTC)
		if len(days) != 4 {
			t.Fatalf("year %d: got %d dates, want 4", year, len(days))
		}
		for i := 1; i < len(days); i++ {
			if !days[i].Date.After(days[i-1].Date) {
				t.Fatalf("year %d: dates not strictly increasing at %d", year, i)
			}
		}
		if wd := days[3].Date.Weekday(); wd != time.Sunday {
			t.Fatalf("year %d: last date is %s, want Sunday", year, wd)
		}
	}
}

func TestHolidaysCalendar(t *testing.T) {
	hs := Holidays(2024, time.UTC)
	want := map[string]string{
		"2024-01-01": "New Year's Day",
		"2024-02-10": "Chinese New Year",
		"2024-03-28": "Maundy Thursday",
		"2024-03-29": "Good Friday",
		"2024-08-26": "National Heroes Day",
		"2024-12-30": "Rizal Day",
	}
	byDate := make(map[string]string, len(hs))
	for i, h := range hs {
		byDate[h.Date.Format("2006-01-02")] = h.Name
		if i > 0 && hs[i].Date.Before(hs[i-1].Date) {
			t.Errorf("calendar not sorted at %d", i)
		}
	}
	for date, name := range want {
		if byDate[date] != name {
			t.Errorf("%s: got %q, want %q", date, byDate[date], name)
		}
	}

	for _, h := range Holidays(2040, time.UTC) {
		if h.Kind == "lunar" {
			t.Errorf("2040 is outside the lunar table but got %s", h.Date)
		}
	}
}

func TestNewYearIsHoliday(t *testing.T) {
	p := New(time.UTC, fixedClock(2023, time.December, 1))
	v := p.IsSelectable("2024-01-01", 0)
	if v.OK || v.Reason != ReasonHoliday {
		t.Fatalf("2024-01-01: got %+v, want holiday", v)
	}
	if v.Holiday != "New Year's Day" {
		t.Errorf("holiday name = %q", v.Holiday)
	}
}

func TestPastDates(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Manila")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	// 2025-03-10 01:00 in Manila is still 2025-03-09 in UTC.
	now := func() time.Time { return time.Date(2025, 3, 9, 17, 0, 0, 0, time.UTC) }
	p := New(loc, now)

	if v := p.IsSelectable("2025-03-07", 0); v.Reason != ReasonPast {
		t.Errorf("2025-03-07: got %+v, want past", v)
	}
	if v := p.IsSelectable("2025-03-10", 0); !v.OK {
		t.Errorf("today (Monday) must be selectable, got %+v", v)
	}
}

func TestWeekendsRejectedAndWeekdaysAvailable(t *testing.T) {
	p := New(time.UTC, fixedClock(2025, time.January, 1))
	start := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)

	okPerWeek := map[int]bool{}
	for d := start; d.Month() == time.March; d = d.AddDate(0, 0, 1) {
		v := p.Check(d, 0)
		switch d.Weekday() {
		case time.Saturday, time.Sunday:
			if v.OK || v.Reason != ReasonWeekend {
				t.Errorf("%s: got %+v, want weekend", d.Format("2006-01-02"), v)
			}
		default:
			_, week := d.ISOWeek()
			okPerWeek[week] = okPerWeek[week] || v.OK
		}
	}
	for week, ok := range okPerWeek {
		if !ok {
			t.Errorf("ISO week %d has no selectable weekday", week)
		}
	}
}

func TestReferenceYear(t *testing.T) {
	p := New(time.UTC, fixedClock(2024, time.January, 2))
	// Good Friday 2025 falls on 2025-04-18.
	if v := p.IsSelectable("2025-04-18", 0); v.Reason != ReasonHoliday {
		t.Errorf("own-year calendar: got %+v", v)
	}
	// 2024's Easter fell on March 31, so April 18 is an ordinary day there.
	if v := p.IsSelectable("2025-04-18", 2024); !v.OK {
		t.Errorf("2024 calendar should not contain April 18, got %+v", v)
	}
	// Maundy Thursday 2024 was March 28; 2025-03-28 is a Friday.
	if v := p.IsSelectable("2025-03-28", 2024); v.Reason != ReasonHoliday || v.Holiday == "" {
		t.Errorf("2024 Maundy Thursday applied to 2025: got %+v", v)
	}
	if v := p.IsSelectable("2025-03-28", 0); !v.OK {
		t.Errorf("own-year calendar: 2025-03-28 got %+v", v)
	}
	// Fixed dates keep matching across years.
	if v := p.IsSelectable("2025-12-25", 2024); v.Reason != ReasonHoliday {
		t.Errorf("Christmas with 2024 calendar: got %+v", v)
	}
}

func TestEvaluateInvalidDate(t *testing.T) {
	p := New(time.UTC, nil)
	_, err := p.Evaluate("next tuesday", 0)
	if !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("got %v, want ErrInvalidDate", err)
	}
	if v := p.IsSelectable("13/45/2024", 0); v.OK {
		t.Error("garbage must not be selectable")
	}
}

func TestNextSelectable(t *testing.T) {
	p := New(time.UTC, fixedClock(2024, time.December, 20))
	// Dec 21-22 weekend, Dec 24/25 holidays, Dec 23 is a Monday.
	got, ok := p.NextSelectable(time.Date(2024, 12, 21, 9, 0, 0, 0, time.UTC))
	if !ok || got.Format("2006-01-02") != "2024-12-23" {
		t.Fatalf("NextSelectable = %s, %v", got.Format("2006-01-02"), ok)
	}
}
