// Package docstore is the document database the portal runs on: JSON documents
// keyed by id inside named collections, with equality and range queries.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Collection names.
const (
	Requests      = "requests"
	Users         = "users"
	ActivityLogs  = "activity_logs"
	Notifications = "notifications"
	Announcements = "announcements"
	QRTokens      = "qr_tokens"
)

var (
	ErrNotFound      = errors.New("document not found")
	ErrAlreadyExists = errors.New("document already exists")
	ErrInvalidField  = errors.New("invalid field path")
)

// Doc is a schema-less document body.
type Doc = map[string]any

// Op is a query comparison operator.
type Op string

const (
	Eq            Op = "=="
	Lt            Op = "<"
	Lte           Op = "<="
	Gt            Op = ">"
	Gte           Op = ">="
	ArrayContains Op = "array-contains"
)

// Filter restricts a query on a dotted field path.
type Filter struct {
	Field string
	Op    Op
	Value any
}

// Query describes a filtered, ordered, limited read of a collection.
type Query struct {
	Filters []Filter
	OrderBy string
	Desc    bool
	Limit   int
}

// Where appends a filter and returns the query for chaining.
func (q Query) Where(field string, op Op, value any) Query {
	q.Filters = append(append([]Filter(nil), q.Filters...), Filter{Field: field, Op: op, Value: value})
	return q
}

// Snapshot is a document read together with its id.
type Snapshot struct {
	ID   string
	Data Doc
}

// DataTo decodes the snapshot into v through v's JSON tags.
func (s Snapshot) DataTo(v any) error {
	return Decode(s.Data, v)
}

// Store is implemented by every backend.
type Store interface {
	Get(ctx context.Context, collection, id string) (Doc, error)
	// Create inserts a new document. An empty id is generated.
	Create(ctx context.Context, collection, id string, data Doc) (string, error)
	Set(ctx context.Context, collection, id string, data Doc) error
	// Update merges fields keyed by dotted paths into an existing document.
	Update(ctx context.Context, collection, id string, fields map[string]any) error
	Delete(ctx context.Context, collection, id string) error
	Query(ctx context.Context, collection string, q Query) ([]Snapshot, error)
	// All reads the whole collection.
	All(ctx context.Context, collection string) ([]Snapshot, error)
}

// Encode converts a model into a Doc using its JSON tags.
func Encode(v any) (Doc, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("docstore: encode: %w", err)
	}
	var d Doc
	if err := json.Unmarshal(b, &d); err != nil {
		return nil, fmt.Errorf("docstore: encode: %w", err)
	}
	return d, nil
}

// Decode fills v from a Doc using v's JSON tags.
func Decode(d Doc, v any) error {
	b, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("docstore: decode: %w", err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("docstore: decode: %w", err)
	}
	return nil
}

// Now is the timestamp used for document writes. Second precision keeps the
// RFC 3339 text form sortable.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}

var fieldPathRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*$`)

// ValidField reports whether path is a dotted identifier path.
func ValidField(path string) bool {
	return fieldPathRe.MatchString(path)
}

// GetPath reads a dotted path from a document.
func GetPath(d Doc, path string) (any, bool) {
	var cur any = d
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// SetPath writes a dotted path, creating intermediate maps.
func SetPath(d Doc, path string, value any) {
	parts := strings.Split(path, ".")
	cur := d
	for _, part := range parts[:len(parts)-1] {
		next, ok := cur[part].(map[string]any)
		if !ok {
			next = map[string]any{}
			cur[part] = next
		}
		cur = next
	}
	cur[parts[len(parts)-1]] = value
}

// normalizeValue maps Go values to their stored JSON shape so filters compare
// like with like across backends.
func normalizeValue(v any) any {
	switch x := v.(type) {
	case time.Time:
		return x.UTC().Truncate(time.Second).Format(time.RFC3339)
	case *time.Time:
		if x == nil {
			return nil
		}
		return x.UTC().Truncate(time.Second).Format(time.RFC3339)
	case int:
		return float64(x)
	case int32:
		return float64(x)
	case int64:
		return float64(x)
	case float32:
		return float64(x)
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return x.String()
		}
		return f
	}
	return v
}

func normalizeDoc(d Doc) (Doc, error) {
	if d == nil {
		return Doc{}, nil
	}
	return Encode(d)
}

// compareValues orders two stored values. ok is false when they are not comparable.
func compareValues(a, b any) (int, bool) {
	a, b = normalizeValue(a), normalizeValue(b)
	switch x := a.(type) {
	case float64:
		y, ok := b.(float64)
		if !ok {
			return 0, false
		}
		switch {
		case x < y:
			return -1, true
		case x > y:
			return 1, true
		}
		return 0, true
	case string:
		y, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(x, y), true
	case bool:
		y, ok := b.(bool)
		if !ok {
			return 0, false
		}
		if x == y {
			return 0, true
		}
		if !x {
			return -1, true
		}
		return 1, true
	}
	return 0, false
}

func validateQuery(q Query) error {
	for _, f := range q.Filters {
		if !ValidField(f.Field) {
			return fmt.Errorf("%w: %q", ErrInvalidField, f.Field)
		}
		switch f.Op {
		case Eq, Lt, Lte, Gt, Gte, ArrayContains:
		default:
			return fmt.Errorf("docstore: unsupported operator %q", f.Op)
		}
	}
	if q.OrderBy != "" && !ValidField(q.OrderBy) {
		return fmt.Errorf("%w: %q", ErrInvalidField, q.OrderBy)
	}
	return nil
}
