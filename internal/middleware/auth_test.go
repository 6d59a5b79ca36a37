package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/quickbite-kitchen/quickbite-orders-service/internal/config"
)

func authTestRouter(cfg config.AuthConfig) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	staff := r.Group("/staff")
	staff.Use(StaffAuth(cfg))
	staff.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"role": Role(c)})
	})

	admin := r.Group("/admin")
	admin.Use(AdminAuth(cfg))
	admin.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"role": Role(c)})
	})

	return r
}

func doAuthRequest(r *gin.Engine, path, authHeader string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestStaffAuth(t *testing.T) {
	cfg := config.AuthConfig{StaffToken: "staff-secret", AdminToken: "admin-secret"}
	r := authTestRouter(cfg)

	tests := []struct {
		name     string
		header   string
		wantCode int
	}{
		{"no header", "", http.StatusUnauthorized},
		{"not bearer", "Basic c3RhZmY=", http.StatusUnauthorized},
		{"wrong token", "Bearer nope", http.StatusUnauthorized},
		{"staff token", "Bearer staff-secret", http.StatusOK},
		{"admin token", "Bearer admin-secret", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doAuthRequest(r, "/staff/ping", tt.header)
			if w.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", w.Code, tt.wantCode)
			}
		})
	}
}

func TestAdminAuth_RejectsStaffToken(t *testing.T) {
	cfg := config.AuthConfig{StaffToken: "staff-secret", AdminToken: "admin-secret"}
	r := authTestRouter(cfg)

	if w := doAuthRequest(r, "/admin/ping", "Bearer staff-secret"); w.Code != http.StatusUnauthorized {
		t.Errorf("staff token on admin route: status = %d, want 401", w.Code)
	}
	if w := doAuthRequest(r, "/admin/ping", "Bearer admin-secret"); w.Code != http.StatusOK {
		t.Errorf("admin token on admin route: status = %d, want 200", w.Code)
	}
}

func TestAuth_EmptyConfiguredTokenNeverMatches(t *testing.T) {
	r := authTestRouter(config.AuthConfig{})

	if w := doAuthRequest(r, "/staff/ping", "Bearer "); w.Code != http.StatusUnauthorized {
		t.Errorf("empty token: status = %d, want 401", w.Code)
	}
	if w := doAuthRequest(r, "/staff/ping", "Bearer anything"); w.Code != http.StatusUnauthorized {
		t.Errorf("any token against empty config: status = %d, want 401", w.Code)
	}
}

func TestRoleReportsAdminOnStaffRoute(t *testing.T) {
	cfg := config.AuthConfig{StaffToken: "staff-secret", AdminToken: "admin-secret"}
	r := authTestRouter(cfg)

	w := doAuthRequest(r, "/staff/ping", "Bearer admin-secret")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if body := w.Body.String(); body != `{"role":"admin"}` {
		t.Errorf("body = %s, want admin role", body)
	}
}
