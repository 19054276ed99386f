package cloudinary

import (
	"context"
	"crypto/sha1"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestSign(t *testing.T) {
	c := New("demo", "key", "secret", "")
	got := c.sign(map[string]string{"timestamp": "1700000000", "folder": "a", "api_key": "key"})
	want := fmt.Sprintf("%x", sha1.Sum([]byte("folder=a&timestamp=1700000000secret")))
	if got != want {
		t.Errorf("sign = %s, want %s", got, want)
	}
}

func TestUploadBytes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/demo/image/upload" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Error(err)
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		if r.FormValue("signature") == "" || r.FormValue("folder") != "edutrack" {
			t.Errorf("form = %v", r.MultipartForm.Value)
		}
		if _, _, err := r.FormFile("file"); err != nil {
			t.Errorf("file missing: %v", err)
		}
		fmt.Fprint(w, `{"public_id":"edutrack/x","secure_url":"https://res.example/x.png"}`)
	}))
	defer srv.Close()

	c := New("demo", "key", "secret", "edutrack")
	c.BaseURL = srv.URL
	c.now = func() time.Time { return time.Unix(1700000000, 0) }
	res, err := c.UploadBytes(context.Background(), []byte("png"), "x.png")
	if err != nil {
		t.Fatal(err)
	}
	if res.SecureURL != "https://res.example/x.png" {
		t.Errorf("result %+v", res)
	}
}

func TestUploadError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"Invalid Signature"}}`, http.StatusUnauthorized)
	}))
	defer srv.Close()
	c := New("demo", "key", "secret", "")
	c.BaseURL = srv.URL
	if _, err := c.UploadDataURL(context.Background(), "data:image/png;base64,AA=="); err == nil {
		t.Fatal("expected error")
	}
}
