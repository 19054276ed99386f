package datepolicy

import (
	"sort"
	"time"
)

// Holiday is a named non-working day.
type Holiday struct {
	Date time.Time `json:"date"`
	Name string    `json:"name"`
	Kind string    `json:"kind"` // fixed, lunar, easter, computed
}

type fixedHoliday struct {
	month time.Month
	day   int
	name  string
}

var fixedHolidays = []fixedHoliday{
	{time.January, 1, "New Year's Day"},
	{time.February, 25, "EDSA People Power Revolution Anniversary"},
	{time.April, 9, "Araw ng Kagitingan"},
	{time.May, 1, "Labor Day"},
	{time.June, 12, "Independence Day"},
	{time.August, 21, "Ninoy Aquino Day"},
	{time.November, 1, "All Saints' Day"},
	{time.November, 2, "All Souls' Day"},
	{time.November, 30, "Bonifacio Day"},
	{time.December, 8, "Feast of the Immaculate Conception"},
	{time.December, 24, "Christmas Eve"},
	{time.December, 25, "Christmas Day"},
	{time.December, 30, "Rizal Day"},
	{time.December, 31, "Last Day of the Year"},
}

// chineseNewYear has no closed form; the table covers 2024-2033.
var chineseNewYear = map[int]struct {
	month time.Month
	day   int
}{
	2024: {time.February, 10},
	2025: {time.January, 29},
	2026: {time.February, 17},
	2027: {time.February, 6},
	2028: {time.January, 26},
	2029: {time.February, 13},
	2030: {time.February, 3},
	2031: {time.January, 23},
	2032: {time.February, 11},
	2033: {time.January, 31},
}

// EasterSunday returns Easter Sunday of the Gregorian year using the
// Meeus/Jones/Butcher algorithm.
func EasterSunday(year int, loc *time.Location) time.Time {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	day := ((h + l - 7*m + 114) % 31) + 1
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc)
}

// HolyWeek returns Maundy Thursday, Good Friday, Black Saturday and Easter Sunday.
func HolyWeek(year int, loc *time.Location) []Holiday {
	easter := EasterSunday(year, loc)
	return []Holiday{
		{Date: easter.AddDate(0, 0, -3), Name: "Maundy Thursday", Kind: "easter"},
		{Date: easter.AddDate(0, 0, -2), Name: "Good Friday", Kind: "easter"},
		{Date: easter.AddDate(0, 0, -1), Name: "Black Saturday", Kind: "easter"},
		{Date: easter, Name: "Easter Sunday", Kind: "easter"},
	}
}

// lastMondayOf returns the last Monday of the given month.
func lastMondayOf(year int, month time.Month, loc *time.Location) time.Time {
	last := time.Date(year, month+1, 0, 0, 0, 0, 0, loc)
	offset := (int(last.Weekday()) - int(time.Monday) + 7) % 7
	return last.AddDate(0, 0, -offset)
}

// Holidays returns the holiday calendar of a year, sorted by date.
func Holidays(year int, loc *time.Location) []Holiday {
	if loc == nil {
		loc = time.UTC
	}
	out := make([]Holiday, 0, len(fixedHolidays)+6)
	for _, fh := range fixedHolidays {
		out = append(out, Holiday{
			Date: time.Date(year, fh.month, fh.day, 0, 0, 0, 0, loc),
			Name: fh.name,
			Kind: "fixed",
		})
	}
	out = append(out, Holiday{
		Date: lastMondayOf(year, time.August, loc),
		Name: "National Heroes Day",
		Kind: "computed",
	})
	if cny, ok := chineseNewYear[year]; ok {
		out = append(out, Holiday{
			Date: time.Date(year, cny.month, cny.day, 0, 0, 0, 0, loc),
			Name: "Chinese New Year",
			Kind: "lunar",
		})
	}
	out = append(out, HolyWeek(year, loc)...)

	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}
