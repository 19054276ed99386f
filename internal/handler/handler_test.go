package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/malandaymnhs/MALANDAYEDUTRACK-sub000/internal/accounts"
	"github.com/malandaymnhs/MALANDAYEDUTRACK-sub000/internal/activity"
	"github.com/malandaymnhs/MALANDAYEDUTRACK-sub000/internal/announcements"
	"github.com/malandaymnhs/MALANDAYEDUTRACK-sub000/internal/datepolicy"
	"github.com/malandaymnhs/MALANDAYEDUTRACK-sub000/internal/docstore"
	"github.com/malandaymnhs/MALANDAYEDUTRACK-sub000/internal/notify"
	"github.com/malandaymnhs/MALANDAYEDUTRACK-sub000/internal/qr"
	"github.com/malandaymnhs/MALANDAYEDUTRACK-sub000/internal/queue"
	"github.com/malandaymnhs/MALANDAYEDUTRACK-sub000/internal/requests"
)

// Monday 2025-03-03, 09:00 Manila.
var clock = time.Date(2025, 3, 3, 1, 0, 0, 0, time.UTC)

type testServer struct {
	router *gin.Engine
	store  docstore.Store
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	loc, err := time.LoadLocation("Asia/Manila")
	if err != nil {
		loc = time.FixedZone("PHT", 8*3600)
	}
	store := docstore.NewMemory()
	logger := activity.New(store, queue.NewInMemory(256), activity.Options{})
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = logger.Run(ctx) }()

	policy := datepolicy.New(loc, func() time.Time { return clock })
	notifier := notify.New(store, nil)
	h := &Handler{
		Accounts:      accounts.New(store, logger),
		Requests:      requests.NewService(requests.Deps{Store: store, Policy: policy, Activity: logger, Notifier: notifier, AlumniDisableAfter: 48 * time.Hour, Now: func() time.Time { return clock }}),
		Normalizer:    qr.NewNormalizer(requests.NewLookup(store, false), loc),
		Activity:      logger,
		Notify:        notifier,
		Announcements: announcements.New(store, logger, nil),
		Policy:        policy,
		JWTIssuer:     "test",
		JWTSigningKey: "test-signing-key",
		AccessTTL:     time.Hour,
		PublicURL:     "https://portal.example.com",
	}
	r := gin.New()
	h.Register(r)

	for _, u := range []struct{ email, role string }{{"admin@example.com", "admin"}, {"juan@example.com", requests.RoleStudent}} {
		if _, err := h.Accounts.Register(context.Background(), u.email, "password123", u.role, "Test", "User"); err != nil {
			t.Fatalf("register %s: %v", u.email, err)
		}
	}
	return &testServer{router: r, store: store}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) login(t *testing.T, email string) string {
	t.Helper()
	w := s.do(t, http.MethodPost, "/v1/auth/login", "", map[string]string{"email": email, "password": "password123"})
	if w.Code != http.StatusOK {
		t.Fatalf("login %s: %d %s", email, w.Code, w.Body)
	}
	var resp struct {
		AccessToken string `json:"access_token"`
	}
	decode(t, w, &resp)
	return resp.AccessToken
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %s: %v", w.Body, err)
	}
}

func requestForm() requests.Form {
	return requests.Form{
		FirstName:     "Juan",
		MiddleName:    "Santos",
		LastName:      "Dela Cruz",
		LRN:           "123456789012",
		Email:         "juan@example.com",
		Role:          requests.RoleStudent,
		GradeYear:     "Grade 10",
		Documents:     []requests.ItemForm{{DocumentType: "Form 137 (SF10)", Purpose: "Transfer", Copies: 1}},
		PreferredDate: "2025-03-12",
		PreferredTime: "08:00-10:00",
	}
}

func TestRequestLifecycleOverHTTP(t *testing.T) {
	s := newTestServer(t)
	adminTok := s.login(t, "admin@example.com")
	studentTok := s.login(t, "juan@example.com")

	w := s.do(t, http.MethodPost, "/v1/requests", studentTok, requestForm())
	if w.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", w.Code, w.Body)
	}
	var created requests.DocumentRequest
	decode(t, w, &created)

	w = s.do(t, http.MethodPatch, "/v1/admin/requests/"+created.ID+"/status", studentTok, gin.H{"status": "approved"})
	if w.Code != http.StatusForbidden {
		t.Fatalf("student approve: %d", w.Code)
	}

	w = s.do(t, http.MethodPatch, "/v1/admin/requests/"+created.ID+"/status", adminTok, gin.H{"status": "approved"})
	if w.Code != http.StatusOK {
		t.Fatalf("approve: %d %s", w.Code, w.Body)
	}
	var approved requests.DocumentRequest
	decode(t, w, &approved)
	if approved.Status != requests.StatusApproved || !strings.HasPrefix(approved.Documents[0].QRCode, "data:image/png;base64,") {
		t.Fatalf("approved request: %+v", approved)
	}

	w = s.do(t, http.MethodPatch, "/v1/admin/requests/"+created.ID+"/status", adminTok, gin.H{"status": "pending"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("back to pending: %d", w.Code)
	}

	w = s.do(t, http.MethodGet, "/v1/admin/requests/"+created.ID+"/tokens", adminTok, nil)
	var tokens struct {
		Tokens []requests.TokenRecord `json:"tokens"`
	}
	decode(t, w, &tokens)
	if len(tokens.Tokens) != 1 {
		t.Fatalf("tokens: %s", w.Body)
	}
	tok := tokens.Tokens[0]

	w = s.do(t, http.MethodGet, "/v1/verify?token="+tok.Token, "", nil)
	var verified struct {
		Record qr.VerifiedRecord `json:"record"`
	}
	decode(t, w, &verified)
	if w.Code != http.StatusOK || verified.Record.LRN != "123456789012" || verified.Record.ScheduledDate != "2025-03-12" {
		t.Errorf("verify token: %d %+v", w.Code, verified.Record)
	}

	w = s.do(t, http.MethodPost, "/v1/verify", "", gin.H{"raw": tok.Payload})
	decode(t, w, &verified)
	if w.Code != http.StatusOK || verified.Record.FullName() != "Dela Cruz, Juan Santos" {
		t.Errorf("verify raw: %d %+v", w.Code, verified.Record)
	}

	w = s.do(t, http.MethodGet, "/v1/verify/certificate?token="+tok.Token, "", nil)
	if w.Code != http.StatusOK || !bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF-")) {
		t.Errorf("certificate: %d %q", w.Code, w.Header().Get("Content-Type"))
	}

	w = s.do(t, http.MethodPut, "/v1/requests/"+created.ID, studentTok, requestForm())
	if w.Code != http.StatusConflict {
		t.Errorf("edit approved request: %d", w.Code)
	}
}

func TestVerifyRejectsGarbage(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodPost, "/v1/verify", "", gin.H{"raw": "https://not-a-document.example"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("code = %d", w.Code)
	}
	w = s.do(t, http.MethodGet, "/v1/verify?token=missing", "", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown token code = %d", w.Code)
	}
}

func TestCreateRequestRejectsHoliday(t *testing.T) {
	s := newTestServer(t)
	tok := s.login(t, "juan@example.com")
	form := requestForm()
	form.PreferredDate = "2025-06-12"
	w := s.do(t, http.MethodPost, "/v1/requests", tok, form)
	if w.Code != http.StatusBadRequest || !strings.Contains(w.Body.String(), "holiday") {
		t.Errorf("holiday: %d %s", w.Code, w.Body)
	}
}

func TestAuthRequired(t *testing.T) {
	s := newTestServer(t)
	if w := s.do(t, http.MethodGet, "/v1/requests", "", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("no token: %d", w.Code)
	}
	if w := s.do(t, http.MethodPost, "/v1/auth/login", "", gin.H{"email": "juan@example.com", "password": "wrong-password"}); w.Code != http.StatusUnauthorized {
		t.Errorf("bad password: %d", w.Code)
	}
}

func TestCalendarEndpoints(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodGet, "/v1/calendar/check?date=2025-03-08", "", nil)
	var verdict struct {
		OK     bool   `json:"ok"`
		Reason string `json:"reason"`
		Next   string `json:"next"`
	}
	decode(t, w, &verdict)
	if verdict.OK || verdict.Reason != "weekend" || verdict.Next != "2025-03-10" {
		t.Errorf("saturday: %+v", verdict)
	}

	// Past dates suggest the next open day from today.
	w = s.do(t, http.MethodGet, "/v1/calendar/check?date=2025-02-28", "", nil)
	verdict.Next = ""
	decode(t, w, &verdict)
	if verdict.Reason != "past" || verdict.Next != "2025-03-03" {
		t.Errorf("past: %+v", verdict)
	}

	w = s.do(t, http.MethodGet, "/v1/calendar/check?date=2025-03-12", "", nil)
	verdict.Next = ""
	decode(t, w, &verdict)
	if !verdict.OK || verdict.Next != "" {
		t.Errorf("open day: %+v", verdict)
	}

	w = s.do(t, http.MethodGet, "/v1/calendar/holidays?year=2025", "", nil)
	var cal struct {
		Year      int              `json:"year"`
		Holidays  []map[string]any `json:"holidays"`
		TimeSlots []string         `json:"timeSlots"`
	}
	decode(t, w, &cal)
	if cal.Year != 2025 || len(cal.Holidays) == 0 || len(cal.TimeSlots) != len(requests.TimeSlots) {
		t.Errorf("holidays: %+v", cal)
	}
	if w := s.do(t, http.MethodGet, "/v1/calendar/holidays?year=abc", "", nil); w.Code != http.StatusBadRequest {
		t.Errorf("bad year: %d", w.Code)
	}
}

func TestAnnouncementsByAudience(t *testing.T) {
	s := newTestServer(t)
	adminTok := s.login(t, "admin@example.com")
	studentTok := s.login(t, "juan@example.com")

	for _, a := range []gin.H{{"title": "Enrollment", "body": "Opens Monday", "audience": "student"}, {"title": "Homecoming", "body": "Saturday", "audience": "alumni"}} {
		if w := s.do(t, http.MethodPost, "/v1/admin/announcements", adminTok, a); w.Code != http.StatusCreated {
			t.Fatalf("create announcement: %d %s", w.Code, w.Body)
		}
	}
	w := s.do(t, http.MethodGet, "/v1/announcements", studentTok, nil)
	var list struct {
		Announcements []announcements.Announcement `json:"announcements"`
	}
	decode(t, w, &list)
	if len(list.Announcements) != 1 || list.Announcements[0].Title != "Enrollment" {
		t.Errorf("student sees %+v", list.Announcements)
	}
}
