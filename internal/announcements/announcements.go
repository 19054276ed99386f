// Package announcements stores registrar notices shown on every dashboard.
package announcements

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/malandaymnhs/MALANDAYEDUTRACK-sub000/internal/activity"
	"github.com/malandaymnhs/MALANDAYEDUTRACK-sub000/internal/docstore"
	"github.com/malandaymnhs/MALANDAYEDUTRACK-sub000/internal/realtime"
)

var (
	ErrEmpty    = errors.New("announcement title and body are required")
	ErrAudience = errors.New("unknown announcement audience")
)

// Announcement is one notice.
type Announcement struct {
	ID        string    `json:"id,omitempty"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Audience  string    `json:"audience"`
	AuthorID  string    `json:"authorId"`
	CreatedAt time.Time `json:"createdAt"`
}

// ActivityLogger is the audit sink. *activity.Logger implements it.
type ActivityLogger interface {
	Log(ctx context.Context, e activity.Entry)
}

type Service struct {
	store docstore.Store
	log   ActivityLogger
	hub   realtime.Publisher
}

func New(store docstore.Store, log ActivityLogger, hub realtime.Publisher) *Service {
	if hub == nil {
		hub = realtime.Discard{}
	}
	return &Service{store: store, log: log, hub: hub}
}

// Create publishes an announcement. Audience defaults to "all".
func (s *Service) Create(ctx context.Context, authorID string, a Announcement) (Announcement, error) {
	a.Title, a.Body = strings.TrimSpace(a.Title), strings.TrimSpace(a.Body)
	if a.Title == "" || a.Body == "" {
		return Announcement{}, ErrEmpty
	}
	switch a.Audience {
	case "", "all":
		a.Audience = "all"
	case "student", "alumni", "admin":
	default:
		return Announcement{}, fmt.Errorf("%w %q", ErrAudience, a.Audience)
	}
	a.ID = ""
	a.AuthorID = authorID
	a.CreatedAt = docstore.Now()
	doc, err := docstore.Encode(a)
	if err != nil {
		return Announcement{}, err
	}
	id, err := s.store.Create(ctx, docstore.Announcements, "", doc)
	if err != nil {
		return Announcement{}, fmt.Errorf("create announcement: %w", err)
	}
	a.ID = id
	if s.log != nil {
		s.log.Log(ctx, activity.Entry{
			Type:        activity.TypeAnnouncementCreated,
			Description: "Announcement posted: " + a.Title,
			Metadata:    map[string]any{"announcementId": id, "audience": a.Audience},
		})
	}
	s.hub.Publish(realtime.Event{Type: "announcement_created", Collection: docstore.Announcements, ID: id, Data: a})
	return a, nil
}

// List returns announcements visible to role, newest first.
func (s *Service) List(ctx context.Context, role string, limit int) ([]Announcement, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	snaps, err := s.store.Query(ctx, docstore.Announcements, docstore.Query{OrderBy: "createdAt", Desc: true, Limit: limit * 2})
	if err != nil {
		return nil, fmt.Errorf("list announcements: %w", err)
	}
	out := make([]Announcement, 0, limit)
	for _, snap := range snaps {
		var a Announcement
		if err := snap.DataTo(&a); err != nil {
			return nil, err
		}
		if a.Audience != "all" && a.Audience != role && role != "admin" {
			continue
		}
		a.ID = snap.ID
		out = append(out, a)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}
