// Package datepolicy decides whether a calendar date can be booked as a
// document pickup appointment.
package datepolicy

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidDate is returned for date strings that are not YYYY-MM-DD or RFC 3339.
var ErrInvalidDate = errors.New("invalid date")

// Reason explains why a date is not selectable.
type Reason string

const (
	ReasonNone    Reason = ""
	ReasonPast    Reason = "past"
	ReasonWeekend Reason = "weekend"
	ReasonHoliday Reason = "holiday"
)

// Verdict is the outcome of a selectability check.
type Verdict struct {
	OK      bool   `json:"ok"`
	Reason  Reason `json:"reason,omitempty"`
	Holiday string `json:"holiday,omitempty"`
}

// Message is the inline text shown next to the date picker.
func (v Verdict) Message() string {
	switch v.Reason {
	case ReasonPast:
		return "Please choose a date that is not in the past."
	case ReasonWeekend:
		return "The registrar's office is closed on weekends."
	case ReasonHoliday:
		if v.Holiday != "" {
			return fmt.Sprintf("The office is closed on %s.", v.Holiday)
		}
		return "The office is closed on holidays."
	}
	return ""
}

// Policy evaluates pickup dates in a fixed location.
type Policy struct {
	loc *time.Location
	now func() time.Time
}

// New creates a policy for loc. A nil now uses time.Now.
func New(loc *time.Location, now func() time.Time) *Policy {
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return &Policy{loc: loc, now: now}
}

// Location returns the policy time zone.
func (p *Policy) Location() *time.Location { return p.loc }

// Today is midnight of the current day in the policy location.
func (p *Policy) Today() time.Time { return midnight(p.now().In(p.loc)) }

// ParseISO parses YYYY-MM-DD or an RFC 3339 timestamp into a midnight date in the policy location.
func (p *Policy) ParseISO(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.ParseInLocation("2006-01-02", s, p.loc); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return midnight(t.In(p.loc)), nil
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}

// IsSelectable checks an ISO date. Unparseable input is reported as not selectable
// with no reason; use Evaluate to get the parse error.
func (p *Policy) IsSelectable(dateISO string, referenceYear int) Verdict {
	v, err := p.Evaluate(dateISO, referenceYear)
	if err != nil {
		return Verdict{}
	}
	return v
}

// Evaluate is IsSelectable with the parse error surfaced.
func (p *Policy) Evaluate(dateISO string, referenceYear int) (Verdict, error) {
	d, err := p.ParseISO(dateISO)
	if err != nil {
		return Verdict{}, err
	}
	return p.Check(d, referenceYear), nil
}

// Check evaluates d. When referenceYear is positive, d's month and day are
// looked up in that year's holiday calendar; otherwise d's own year is used.
func (p *Policy) Check(d time.Time, referenceYear int) Verdict {
	day := midnight(d.In(p.loc))
	today := midnight(p.now().In(p.loc))

	if day.Before(today) {
		return Verdict{Reason: ReasonPast}
	}
	if wd := day.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return Verdict{Reason: ReasonWeekend}
	}
	year := day.Year()
	if referenceYear > 0 {
		year = referenceYear
	}
	for _, h := range Holidays(year, p.loc) {
		if sameMonthDay(h.Date, day) {
			return Verdict{Reason: ReasonHoliday, Holiday: h.Name}
		}
	}
	return Verdict{OK: true}
}

// NextSelectable returns the first selectable date on or after from, looking at most 60 days ahead.
func (p *Policy) NextSelectable(from time.Time) (time.Time, bool) {
	d := midnight(from.In(p.loc))
	for i := 0; i < 60; i++ {
		if p.Check(d, 0).OK {
			return d, true
		}
		d = d.AddDate(0, 0, 1)
	}
	return time.Time{}, false
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func sameMonthDay(a, b time.Time) bool {
	_, am, ad := a.Date()
	_, bm, bd := b.Date()
	return am == bm && ad == bd
}
