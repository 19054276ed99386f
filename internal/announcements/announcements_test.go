package announcements

import (
	"context"
	"errors"
	"testing"

	"github.com/malandaymnhs/MALANDAYEDUTRACK-sub000/internal/docstore"
)

func TestCreateAndList(t *testing.T) {
	ctx := context.Background()
	svc := New(docstore.NewMemory(), nil, nil)

	if _, err := svc.Create(ctx, "adm", Announcement{Title: " ", Body: "x"}); !errors.Is(err, ErrEmpty) {
		t.Errorf("empty title: %v", err)
	}
	if _, err := svc.Create(ctx, "adm", Announcement{Title: "t", Body: "b", Audience: "parents"}); err == nil {
		t.Error("unknown audience accepted")
	}
	if _, err := svc.Create(ctx, "adm", Announcement{Title: "Closed Friday", Body: "Office closed"}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Create(ctx, "adm", Announcement{Title: "Alumni claims", Body: "Bring ID", Audience: "alumni"}); err != nil {
		t.Fatal(err)
	}

	cases := map[string]int{"student": 1, "alumni": 2, "admin": 2}
	for role, want := range cases {
		got, err := svc.List(ctx, role, 0)
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != want {
			t.Errorf("%s sees %d announcements, want %d", role, len(got), want)
		}
	}
}
