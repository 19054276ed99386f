package activity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/malandaymnhs/MALANDAYEDUTRACK-sub000/internal/docstore"
)

const (
	defaultListLimit = 100
	maxListLimit     = 1000
)

// Filter selects entries for the admin log view. Zero fields do not filter.
type Filter struct {
	Type     Type
	Category Category
	Severity Severity
	UserID   string
	Since    time.Time
	Until    time.Time
	Limit    int
}

// List returns matching entries, newest first.
func (l *Logger) List(ctx context.Context, f Filter) ([]Entry, error) {
	q := docstore.Query{OrderBy: "timestamp", Desc: true, Limit: f.Limit}
	if q.Limit <= 0 {
		q.Limit = defaultListLimit
	}
	if q.Limit > maxListLimit {
		q.Limit = maxListLimit
	}
	if f.Type != "" {
		q = q.Where("type", docstore.Eq, string(f.Type))
	}
	if f.Category != "" {
		q = q.Where("category", docstore.Eq, string(f.Category))
	}
	if f.Severity != "" {
		q = q.Where("severity", docstore.Eq, string(f.Severity))
	}
	if f.UserID != "" {
		q = q.Where("userId", docstore.Eq, f.UserID)
	}
	if !f.Since.IsZero() {
		q = q.Where("timestamp", docstore.Gte, f.Since)
	}
	if !f.Until.IsZero() {
		q = q.Where("timestamp", docstore.Lt, f.Until)
	}
	snaps, err := l.store.Query(ctx, docstore.ActivityLogs, q)
	if err != nil {
		return nil, fmt.Errorf("activity: list: %w", err)
	}
	return decodeEntries(snaps)
}

// PurgeResult summarizes a bulk purge.
type PurgeResult struct {
	Deleted  int    `json:"deleted"`
	Archive  string `json:"archive,omitempty"`
	Archived bool   `json:"archived"`
}

// Purge deletes every entry older than before. When an archive is configured
// the entries are written there first and nothing is deleted if that fails.
func (l *Logger) Purge(ctx context.Context, before time.Time) (PurgeResult, error) {
	if before.IsZero() {
		return PurgeResult{}, errors.New("activity: purge cutoff required")
	}
	snaps, err := l.store.Query(ctx, docstore.ActivityLogs, docstore.Query{OrderBy: "timestamp"}.
		Where("timestamp", docstore.Lt, before))
	if err != nil {
		return PurgeResult{}, fmt.Errorf("activity: purge query: %w", err)
	}
	var res PurgeResult
	if len(snaps) == 0 {
		return res, nil
	}

	if l.archive != nil {
		entries, err := decodeEntries(snaps)
		if err != nil {
			return res, err
		}
		body, err := json.Marshal(map[string]any{
			"before":  before.UTC().Format(time.RFC3339),
			"count":   len(entries),
			"entries": entries,
		})
		if err != nil {
			return res, fmt.Errorf("activity: encode archive: %w", err)
		}
		res.Archive = fmt.Sprintf("activity_logs/%s-%s.json",
			before.UTC().Format("20060102T150405Z"), l.now().UTC().Format("20060102T150405Z"))
		if err := l.archive.Put(ctx, res.Archive, body); err != nil {
			return res, fmt.Errorf("activity: archive: %w", err)
		}
		res.Archived = true
	}

	for _, s := range snaps {
		if err := l.store.Delete(ctx, docstore.ActivityLogs, s.ID); err != nil && !errors.Is(err, docstore.ErrNotFound) {
			return res, fmt.Errorf("activity: purge delete %s: %w", s.ID, err)
		}
		res.Deleted++
	}
	slog.Info("activity logs purged", "before", before, "deleted", res.Deleted, "archive", res.Archive)

	l.Log(ctx, Entry{
		Type:        TypeLogsPurged,
		Description: fmt.Sprintf("Purged %d activity log entries older than %s", res.Deleted, before.UTC().Format(time.RFC3339)),
		Metadata:    map[string]any{"deleted": res.Deleted, "archive": res.Archive},
	})
	return res, nil
}

func decodeEntries(snaps []docstore.Snapshot) ([]Entry, error) {
	out := make([]Entry, 0, len(snaps))
	for _, s := range snaps {
		var e Entry
		if err := s.DataTo(&e); err != nil {
			return nil, err
		}
		e.ID = s.ID
		out = append(out, e)
	}
	return out, nil
}
