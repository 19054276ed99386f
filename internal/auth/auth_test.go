package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestIssueParse(t *testing.T) {
	tok, err := Issue("u1", "admin", "a@example.com", "edutrack", "secret", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	claims, err := Parse(tok.AccessToken, "secret", "edutrack")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if claims.Subject != "u1" || !claims.IsAdmin() || claims.Email != "a@example.com" {
		t.Errorf("claims %+v", claims)
	}
	if _, err := Parse(tok.AccessToken, "other", "edutrack"); err == nil {
		t.Error("wrong key accepted")
	}
	if _, err := Parse(tok.AccessToken, "secret", "someone-else"); err == nil {
		t.Error("wrong issuer accepted")
	}
	expired, _ := Issue("u1", "admin", "", "edutrack", "secret", -time.Minute)
	if _, err := Parse(expired.AccessToken, "secret", "edutrack"); err == nil {
		t.Error("expired token accepted")
	}
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/admin", Bearer("secret", "edutrack"), RequireRole("admin"), func(c *gin.Context) {
		claims, _ := ClaimsFrom(c)
		c.String(http.StatusOK, claims.Subject)
	})

	student, _ := Issue("s1", "student", "", "edutrack", "secret", time.Hour)
	admin, _ := Issue("a1", "admin", "", "edutrack", "secret", time.Hour)
	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"no header", "", http.StatusUnauthorized},
		{"garbage", "Bearer nope", http.StatusUnauthorized},
		{"student", "Bearer " + student.AccessToken, http.StatusForbidden},
		{"admin", "bearer " + admin.AccessToken, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tc.want {
				t.Errorf("status = %d, want %d", w.Code, tc.want)
			}
		})
	}
}
