package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/malandaymnhs/MALANDAYEDUTRACK-sub000/internal/docstore"
)

func TestNotifyAdminsFanOut(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemory()
	for id, role := range map[string]string{"a1": "admin", "a2": "admin", "s1": "student"} {
		if err := store.Set(ctx, docstore.Users, id, docstore.Doc{"role": role}); err != nil {
			t.Fatal(err)
		}
	}
	svc := New(store, nil)
	if err := svc.NotifyAdmins(ctx, Notification{Type: "request_created", Title: "New request", Message: "Form 137"}); err != nil {
		t.Fatalf("NotifyAdmins: %v", err)
	}
	for _, uid := range []string{"a1", "a2"} {
		got, err := svc.List(ctx, uid, 0)
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 1 || got[0].Title != "New request" || got[0].Read {
			t.Errorf("%s inbox = %+v", uid, got)
		}
	}
	if got, _ := svc.List(ctx, "s1", 0); len(got) != 0 {
		t.Errorf("student received admin notification: %+v", got)
	}
}

func TestNotifyDeduplicatesRecipients(t *testing.T) {
	ctx := context.Background()
	svc := New(docstore.NewMemory(), nil)
	if err := svc.Notify(ctx, []string{"u", "u", ""}, Notification{Title: "x"}); err != nil {
		t.Fatal(err)
	}
	if got, _ := svc.List(ctx, "u", 0); len(got) != 1 {
		t.Errorf("got %d notifications", len(got))
	}
}

func TestMarkRead(t *testing.T) {
	ctx := context.Background()
	svc := New(docstore.NewMemory(), nil)
	_ = svc.Notify(ctx, []string{"u"}, Notification{Title: "x"})
	list, _ := svc.List(ctx, "u", 0)
	id := list[0].ID

	if err := svc.MarkRead(ctx, "other", id); !errors.Is(err, ErrForbidden) {
		t.Errorf("foreign mark read: %v", err)
	}
	if err := svc.MarkRead(ctx, "u", id); err != nil {
		t.Fatal(err)
	}
	list, _ = svc.List(ctx, "u", 0)
	if !list[0].Read {
		t.Error("notification not marked read")
	}
	if err := svc.MarkRead(ctx, "u", "missing"); !errors.Is(err, docstore.ErrNotFound) {
		t.Errorf("missing: %v", err)
	}
}
