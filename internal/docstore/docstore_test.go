package docstore

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

type sample struct {
	Name      string    `json:"name"`
	Copies    int       `json:"copies"`
	Tags      []string  `json:"tags"`
	CreatedAt time.Time `json:"createdAt"`
}

func TestEncodeDecode(t *testing.T) {
	in := sample{Name: "Form 137", Copies: 2, Tags: []string{"a"}, CreatedAt: time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)}
	d, err := Encode(in)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if d["createdAt"] != "2024-05-01T08:00:00Z" {
		t.Errorf("createdAt stored as %v", d["createdAt"])
	}
	var out sample
	if err := Decode(d, &out); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if out.Name != in.Name || out.Copies != in.Copies || !out.CreatedAt.Equal(in.CreatedAt) {
		t.Errorf("got %+v, want %+v", out, in)
	}
}

func TestPathHelpers(t *testing.T) {
	d := Doc{}
	SetPath(d, "student.name.last", "Dela Cruz")
	v, ok := GetPath(d, "student.name.last")
	if !ok || v != "Dela Cruz" {
		t.Fatalf("GetPath = %v, %v", v, ok)
	}
	if _, ok := GetPath(d, "student.lrn"); ok {
		t.Error("missing path reported present")
	}
	for path, want := range map[string]bool{"a": true, "a.b_c": true, "a..b": false, "a;drop": false, "1a": false, "": false} {
		if ValidField(path) != want {
			t.Errorf("ValidField(%q) = %v", path, !want)
		}
	}
}

func TestMemoryCRUD(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	id, err := m.Create(ctx, Requests, "", Doc{"status": "pending", "student": Doc{"lrn": "123"}})
	if err != nil || id == "" {
		t.Fatalf("Create: %q, %v", id, err)
	}
	if _, err := m.Create(ctx, Requests, id, Doc{}); !errors.Is(err, ErrAlreadyExists) {
		t.Errorf("duplicate create: %v", err)
	}

	if err := m.Update(ctx, Requests, id, map[string]any{"status": "approved", "student.grade": 10}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	d, err := m.Get(ctx, Requests, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if d["status"] != "approved" {
		t.Errorf("status = %v", d["status"])
	}
	if g, _ := GetPath(d, "student.grade"); g != float64(10) {
		t.Errorf("student.grade = %#v", g)
	}
	if l, _ := GetPath(d, "student.lrn"); l != "123" {
		t.Errorf("update clobbered sibling field: %v", l)
	}

	// Returned docs are copies.
	d["status"] = "mutated"
	again, _ := m.Get(ctx, Requests, id)
	if again["status"] != "approved" {
		t.Error("Get leaked internal state")
	}

	if err := m.Update(ctx, Requests, "missing", map[string]any{"a": 1}); !errors.Is(err, ErrNotFound) {
		t.Errorf("update missing: %v", err)
	}
	if err := m.Delete(ctx, Requests, id); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := m.Get(ctx, Requests, id); !errors.Is(err, ErrNotFound) {
		t.Errorf("get after delete: %v", err)
	}
}

func TestMemoryQuery(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	seed := []Doc{
		{"role": "admin", "n": 1, "at": "2024-01-01T00:00:00Z", "ids": []string{"x"}},
		{"role": "student", "n": 2, "at": "2024-02-01T00:00:00Z", "ids": []string{"y", "z"}},
		{"role": "student", "n": 3, "at": "2024-03-01T00:00:00Z", "ids": []string{}},
	}
	for i, d := range seed {
		if err := m.Set(ctx, Users, string(rune('a'+i)), d); err != nil {
			t.Fatal(err)
		}
	}

	cases := []struct {
		name string
		q    Query
		want []string
	}{
		{"eq", Query{}.Where("role", Eq, "student"), []string{"b", "c"}},
		{"range numeric", Query{}.Where("n", Gte, 2), []string{"b", "c"}},
		{"range time", Query{}.Where("at", Lt, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)), []string{"a"}},
		{"array contains", Query{}.Where("ids", ArrayContains, "z"), []string{"b"}},
		{"order desc limit", Query{OrderBy: "at", Desc: true, Limit: 2}, []string{"c", "b"}},
		{"missing field", Query{}.Where("nope", Eq, 1), nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			snaps, err := m.Query(ctx, Users, tc.q)
			if err != nil {
				t.Fatal(err)
			}
			var got []string
			for _, s := range snaps {
				got = append(got, s.ID)
			}
			if strings.Join(got, ",") != strings.Join(tc.want, ",") {
				t.Errorf("got %v, want %v", got, tc.want)
			}
		})
	}

	if _, err := m.Query(ctx, Users, Query{}.Where("role; drop", Eq, 1)); !errors.Is(err, ErrInvalidField) {
		t.Errorf("invalid field: %v", err)
	}
}

func TestBuildSQL(t *testing.T) {
	q := Query{OrderBy: "createdAt", Desc: true, Limit: 5}.
		Where("documents.requestId", Eq, "r-1").
		Where("itemRequestIds", ArrayContains, "r-2").
		Where("copies", Gt, 1).
		Where("createdAt", Gte, "2024-01-01T00:00:00Z")

	sql, args, err := buildSQL(Requests, q)
	if err != nil {
		t.Fatal(err)
	}
	for _, frag := range []string{
		"collection = $1",
		"data @> $2::jsonb",
		"data @> $3::jsonb",
		"(data #>> '{copies}')::numeric > $4",
		`(data #>> '{createdAt}') COLLATE "C" >= $5`,
		`ORDER BY (data #>> '{createdAt}') COLLATE "C" DESC, id`,
		"LIMIT $6",
	} {
		if !strings.Contains(sql, frag) {
			t.Errorf("sql missing %q:\n%s", frag, sql)
		}
	}
	if args[1] != `{"documents":{"requestId":"r-1"}}` {
		t.Errorf("eq containment = %v", args[1])
	}
	if args[2] != `{"itemRequestIds":["r-2"]}` {
		t.Errorf("array containment = %v", args[2])
	}
	if len(args) != 6 {
		t.Errorf("args = %v", args)
	}
}
