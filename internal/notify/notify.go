// Package notify delivers in-app notifications to users.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/malandaymnhs/MALANDAYEDUTRACK-sub000/internal/docstore"
	"github.com/malandaymnhs/MALANDAYEDUTRACK-sub000/internal/realtime"
)

// ErrForbidden is returned when a user touches another user's notification.
var ErrForbidden = errors.New("notification belongs to another user")

const fanOutLimit = 8

// Notification is one message in a user's inbox.
type Notification struct {
	ID        string    `json:"id,omitempty"`
	UserID    string    `json:"userId"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	RequestID string    `json:"requestId,omitempty"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"createdAt"`
}

// Service writes and reads the notifications collection.
type Service struct {
	store docstore.Store
	hub   realtime.Publisher
}

// New creates a notification service. hub may be nil.
func New(store docstore.Store, hub realtime.Publisher) *Service {
	if hub == nil {
		hub = realtime.Discard{}
	}
	return &Service{store: store, hub: hub}
}

// Notify writes one notification per recipient concurrently. It returns the
// first write error after all writes finished.
func (s *Service) Notify(ctx context.Context, userIDs []string, n Notification) error {
	n.CreatedAt = docstore.Now()
	n.Read = false
	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(fanOutLimit)

	seen := make(map[string]bool, len(userIDs))
	for _, uid := range userIDs {
		if uid == "" || seen[uid] {
			continue
		}
		seen[uid] = true
		userID := uid
		eg.Go(func() error {
			msg := n
			msg.UserID = userID
			msg.ID = ""
			doc, err := docstore.Encode(msg)
			if err != nil {
				return err
			}
			id, err := s.store.Create(gctx, docstore.Notifications, "", doc)
			if err != nil {
				return fmt.Errorf("notify %s: %w", userID, err)
			}
			msg.ID = id
			s.hub.Publish(realtime.Event{Type: "notification", Collection: docstore.Notifications, ID: id, Data: msg})
			return nil
		})
	}
	return eg.Wait()
}

// NotifyAdmins sends n to every user with the admin role.
func (s *Service) NotifyAdmins(ctx context.Context, n Notification) error {
	snaps, err := s.store.Query(ctx, docstore.Users, docstore.Query{}.Where("role", docstore.Eq, "admin"))
	if err != nil {
		return fmt.Errorf("notify: list admins: %w", err)
	}
	ids := make([]string, 0, len(snaps))
	for _, snap := range snaps {
		ids = append(ids, snap.ID)
	}
	return s.Notify(ctx, ids, n)
}

// Best runs a notification call and only logs its failure. Notifications
// are a side effect of the caller's primary action.
func Best(ctx context.Context, what string, fn func(context.Context) error) {
	if err := fn(ctx); err != nil {
		slog.Warn("notification failed", "what", what, "error", err)
	}
}

// List returns the user's notifications, newest first.
func (s *Service) List(ctx context.Context, userID string, limit int) ([]Notification, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	snaps, err := s.store.Query(ctx, docstore.Notifications, docstore.Query{OrderBy: "createdAt", Desc: true, Limit: limit}.
		Where("userId", docstore.Eq, userID))
	if err != nil {
		return nil, fmt.Errorf("notify: list: %w", err)
	}
	out := make([]Notification, 0, len(snaps))
	for _, snap := range snaps {
		var n Notification
		if err := snap.DataTo(&n); err != nil {
			return nil, err
		}
		n.ID = snap.ID
		out = append(out, n)
	}
	return out, nil
}

// MarkRead flags one of the user's notifications as read.
func (s *Service) MarkRead(ctx context.Context, userID, id string) error {
	doc, err := s.store.Get(ctx, docstore.Notifications, id)
	if err != nil {
		return err
	}
	if owner, _ := doc["userId"].(string); owner != userID {
		return ErrForbidden
	}
	return s.store.Update(ctx, docstore.Notifications, id, map[string]any{"read": true})
}
