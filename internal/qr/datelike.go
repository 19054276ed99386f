package qr

import (
	"encoding/json"
	"math"
	"strings"
	"time"
)

// DateLike is one of the date shapes found in stored requests and QR payloads.
// The variants are ISO, Epoch, SecondsEpoch and Native.
type DateLike interface {
	dateLike()
}

// ISO is a textual date such as "2024-05-06" or an RFC 3339 timestamp.
type ISO string

// Epoch is milliseconds since the Unix epoch.
type Epoch float64

// SecondsEpoch is the {_seconds, _nanoseconds} shape of a serialized Firestore timestamp.
type SecondsEpoch struct {
	Seconds int64
	Nanos   int64
}

// Bounds of a representable date: ±8.64e15 ms around the Unix epoch.
const (
	maxEpochMillis  = 8.64e15
	maxEpochSeconds = 8.64e12
)

// Native is an already-typed time value.
type Native time.Time

func (ISO) dateLike()          {}
func (Epoch) dateLike()        {}
func (SecondsEpoch) dateLike() {}
func (Native) dateLike()       {}

// Timer is implemented by values that can convert themselves to a time.
type Timer interface {
	AsTime() time.Time
}

var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"January 2, 2006",
	"Jan 2, 2006",
}

// ToTime converts any DateLike into a time. Layouts without a zone are read in loc.
func ToTime(d DateLike, loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.UTC
	}
	switch v := d.(type) {
	case ISO:
		s := strings.TrimSpace(string(v))
		if s == "" {
			return time.Time{}, false
		}
		for _, layout := range isoLayouts {
			if t, err := time.ParseInLocation(layout, s, loc); err == nil {
				return t, true
			}
		}
		return time.Time{}, false
	case Epoch:
		ms := float64(v)
		if ms <= 0 || ms > maxEpochMillis || math.IsNaN(ms) || math.IsInf(ms, 0) {
			return time.Time{}, false
		}
		return time.UnixMilli(int64(ms)).In(loc), true
	case SecondsEpoch:
		if v.Seconds <= 0 || v.Seconds > maxEpochSeconds {
			return time.Time{}, false
		}
		return time.Unix(v.Seconds, v.Nanos).In(loc), true
	case Native:
		t := time.Time(v)
		if t.IsZero() {
			return time.Time{}, false
		}
		return t, true
	}
	return time.Time{}, false
}

// DetectDate classifies a raw decoded value.
func DetectDate(v any) (DateLike, bool) {
	switch x := v.(type) {
	case nil:
		return nil, false
	case string:
		return ISO(x), true
	case float64:
		return Epoch(x), true
	case int64:
		return Epoch(float64(x)), true
	case int:
		return Epoch(float64(x)), true
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return nil, false
		}
		return Epoch(f), true
	case time.Time:
		return Native(x), true
	case *time.Time:
		if x == nil {
			return nil, false
		}
		return Native(*x), true
	case Timer:
		return Native(x.AsTime()), true
	case map[string]any:
		for _, key := range []string{"_seconds", "seconds"} {
			if s, ok := asInt64(x[key]); ok {
				nanos, _ := asInt64(x["_nanoseconds"])
				if n, ok := asInt64(x["nanoseconds"]); ok {
					nanos = n
				}
				return SecondsEpoch{Seconds: s, Nanos: nanos}, true
			}
		}
	}
	return nil, false
}

// ResolveDate returns the first raw value that converts to a valid time.
func ResolveDate(loc *time.Location, candidates ...any) (time.Time, bool) {
	for _, c := range candidates {
		d, ok := DetectDate(c)
		if !ok {
			continue
		}
		if t, ok := ToTime(d, loc); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

func asInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case float64:
		if math.IsNaN(x) || x >= math.MaxInt64 || x <= math.MinInt64 {
			return 0, false
		}
		return int64(x), true
	case int64:
		return x, true
	case int:
		return int64(x), true
	case json.Number:
		n, err := x.Int64()
		return n, err == nil
	}
	return 0, false
}
