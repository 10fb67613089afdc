package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestRequestAPIKey(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{"none", nil, ""},
		{"x-api-key", map[string]string{"X-API-Key": " k1 "}, "k1"},
		{"bearer", map[string]string{"Authorization": "Bearer k2"}, "k2"},
		{"bearer lower case", map[string]string{"Authorization": "bearer k3"}, "k3"},
		{"basic ignored", map[string]string{"Authorization": "Basic dXNlcg=="}, ""},
		{"x-api-key wins", map[string]string{"X-API-Key": "a", "Authorization": "Bearer b"}, "a"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if got := requestAPIKey(r); got != tt.want {
				t.Errorf("requestAPIKey = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAuth_CallerIdentity(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	var caller string
	r.GET("/", Auth([]string{"secret-one", "secret-two"}), func(c *gin.Context) {
		caller = c.GetString(callerContextKey)
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-API-Key", "secret-two")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.HasPrefix(caller, "key:") || strings.Contains(caller, "secret") {
		t.Errorf("caller = %q, want a digest-based identity", caller)
	}
}

func TestAuth_NoKeysAdmitsAll(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/", Auth([]string{""}), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d", w.Code)
	}
}
