// Package qr turns document QR codes into verification records and back.
package qr

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidPayload is the only error Normalize returns.
var ErrInvalidPayload = errors.New("not a recognized document QR code")

// NotAvailable fills text fields that no payload shape provided.
const NotAvailable = "N/A"

// VerifiedRecord is the shape-independent result of reading a document QR code.
type VerifiedRecord struct {
	FirstName     string `json:"firstName"`
	LastName      string `json:"lastName"`
	MiddleName    string `json:"middleName"`
	DocumentType  string `json:"documentType"`
	Purpose       string `json:"purpose"`
	LRN           string `json:"lrn"`
	GradeYear     string `json:"gradeYear"`
	Copies        int    `json:"copies"`
	ScheduledDate string `json:"scheduledDate"`
}

// FullName renders "Last, First Middle".
func (r VerifiedRecord) FullName() string {
	given := strings.TrimSpace(r.FirstName + " " + r.MiddleName)
	switch {
	case r.LastName == "":
		return given
	case given == "":
		return r.LastName
	}
	return r.LastName + ", " + given
}

// Lookup reads stored requests to backfill fields the payload lacks. Both
// methods return nil with no error when nothing matches.
type Lookup interface {
	ByRequestID(ctx context.Context, requestID string) (map[string]any, error)
	ScanByItemRequestID(ctx context.Context, requestID string) (map[string]any, error)
}

// Field precedence lists. Nested locations come before flat ones.
var (
	firstNamePaths  = []string{"student.firstName", "firstName"}
	lastNamePaths   = []string{"student.lastName", "lastName"}
	middleNamePaths = []string{"student.middleName", "middleName"}
	fullNamePaths   = []string{"student.name", "student.fullName", "name", "fullName"}
	lrnPaths        = []string{"student.lrn", "student.LRN", "lrn", "LRN", "parsedData.lrn", "idNumber", "student.idNumber", "student.studentId"}
	typePaths       = []string{"document.type", "document.documentType", "documentType", "type"}
	purposePaths    = []string{"document.purpose", "purpose"}
	copiesPaths     = []string{"document.copies", "copies"}
	gradeYearPaths  = []string{"document.gradeYear", "student.gradeYear", "student.gradeLevel", "gradeYear", "yearLevel"}
	schedulePaths   = []string{
		"request.preferredDate", "preferredDate", "document.preferredDate",
		"request.scheduleDate", "scheduleDate", "scheduledDate",
		"request.createdAt", "createdAt", "request.requestedAt", "requestedAt", "timestamp",
	}
	requestIDPaths = []string{"requestId", "request.requestId", "request.id", "document.requestId"}

	storedLRNPaths      = []string{"lrn", "LRN", "student.lrn", "studentLrn", "idNumber"}
	storedSchedulePaths = []string{"preferredDate", "scheduleDate", "scheduledDate", "request.preferredDate", "createdAt", "requestedAt"}
)

// Normalizer reconciles heterogeneous QR payloads into VerifiedRecords.
type Normalizer struct {
	lookup Lookup
	loc    *time.Location
}

// NewNormalizer creates a normalizer. lookup may be nil.
func NewNormalizer(lookup Lookup, loc *time.Location) *Normalizer {
	if loc == nil {
		loc = time.UTC
	}
	return &Normalizer{lookup: lookup, loc: loc}
}

// Normalize parses raw QR text. Only unparseable input fails; every missing
// field degrades to its default.
func (n *Normalizer) Normalize(ctx context.Context, raw string) (VerifiedRecord, error) {
	var decoded any
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &decoded); err != nil {
		return VerifiedRecord{}, ErrInvalidPayload
	}
	p, ok := decoded.(map[string]any)
	if !ok {
		return VerifiedRecord{}, ErrInvalidPayload
	}

	rec := VerifiedRecord{
		FirstName:    firstString(p, firstNamePaths...),
		LastName:     firstString(p, lastNamePaths...),
		MiddleName:   firstString(p, middleNamePaths...),
		LRN:          firstString(p, lrnPaths...),
		DocumentType: firstString(p, typePaths...),
		Purpose:      firstString(p, purposePaths...),
		GradeYear:    firstString(p, gradeYearPaths...),
		Copies:       firstPositiveInt(p, copiesPaths...),
	}
	if rec.FirstName == "" && rec.LastName == "" {
		if full := firstString(p, fullNamePaths...); full != "" {
			rec.FirstName, rec.MiddleName, rec.LastName = SplitName(full)
		}
	}
	scheduled, haveDate := ResolveDate(n.loc, values(p, schedulePaths...)...)

	if requestID := firstString(p, requestIDPaths...); requestID != "" && n.lookup != nil {
		n.backfill(ctx, requestID, &rec, &scheduled, &haveDate)
	}

	if haveDate {
		rec.ScheduledDate = scheduled.In(n.loc).Format("2006-01-02")
	}
	applyDefaults(&rec)
	return rec, nil
}

// backfill consults the exact match first and only scans when fields are still missing.
func (n *Normalizer) backfill(ctx context.Context, requestID string, rec *VerifiedRecord, scheduled *time.Time, haveDate *bool) {
	missing := func() bool { return rec.LRN == "" || !*haveDate }
	if !missing() {
		return
	}
	logCtx := slog.With("requestId", requestID)

	apply := func(stored map[string]any) {
		if stored == nil {
			return
		}
		if rec.LRN == "" {
			rec.LRN = firstString(stored, storedLRNPaths...)
		}
		if !*haveDate {
			*scheduled, *haveDate = ResolveDate(n.loc, values(stored, storedSchedulePaths...)...)
		}
	}

	stored, err := n.lookup.ByRequestID(ctx, requestID)
	if err != nil {
		logCtx.Warn("QR lookup by request id failed", "error", err)
	}
	apply(stored)
	if !missing() {
		return
	}

	stored, err = n.lookup.ScanByItemRequestID(ctx, requestID)
	if err != nil {
		logCtx.Warn("QR lookup scan failed", "error", err)
	}
	apply(stored)
}

func applyDefaults(rec *VerifiedRecord) {
	for _, f := range []*string{&rec.DocumentType, &rec.Purpose, &rec.LRN, &rec.GradeYear, &rec.ScheduledDate} {
		if *f == "" {
			*f = NotAvailable
		}
	}
	if rec.Copies <= 0 {
		rec.Copies = 1
	}
}

// SplitName splits a single-string name. "Last, First Middle" puts everything
// left of the comma in the last name; otherwise the first token is the first
// name, the last token the last name and the rest the middle name.
func SplitName(full string) (first, middle, last string) {
	if left, right, ok := strings.Cut(full, ","); ok {
		last = strings.Join(strings.Fields(left), " ")
		rest := strings.Fields(right)
		if len(rest) > 0 {
			first = rest[0]
			middle = strings.Join(rest[1:], " ")
		}
		return first, middle, last
	}
	parts := strings.Fields(full)
	switch len(parts) {
	case 0:
	case 1:
		first = parts[0]
	default:
		first = parts[0]
		last = parts[len(parts)-1]
		middle = strings.Join(parts[1:len(parts)-1], " ")
	}
	return first, middle, last
}

func lookupPath(d map[string]any, path string) (any, bool) {
	var cur any = d
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		if cur, ok = m[part]; !ok {
			return nil, false
		}
	}
	return cur, true
}

func values(d map[string]any, paths ...string) []any {
	out := make([]any, 0, len(paths))
	for _, p := range paths {
		if v, ok := lookupPath(d, p); ok {
			out = append(out, v)
		}
	}
	return out
}

// firstString returns the first non-empty scalar among paths. "N/A" counts as empty.
func firstString(d map[string]any, paths ...string) string {
	for _, p := range paths {
		v, ok := lookupPath(d, p)
		if !ok {
			continue
		}
		if s := scalarString(v); s != "" && s != NotAvailable {
			return s
		}
	}
	return ""
}

func scalarString(v any) string {
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case json.Number:
		return x.String()
	}
	return ""
}

func firstPositiveInt(d map[string]any, paths ...string) int {
	for _, p := range paths {
		v, ok := lookupPath(d, p)
		if !ok {
			continue
		}
		var n int
		switch x := v.(type) {
		case float64:
			n = int(x)
		case int:
			n = x
		case int64:
			n = int(x)
		case string:
			n, _ = strconv.Atoi(strings.TrimSpace(x))
		}
		if n > 0 {
			return n
		}
	}
	return 0
}
