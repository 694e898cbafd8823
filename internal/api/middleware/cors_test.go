package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/nexuslabs/nexus-gateway/internal/config"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func corsEngine(origins []string, env config.Environment) *gin.Engine {
	r := gin.New()
	r.Use(CORS(origins, env))
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	return r
}

func TestCORSAllowsConfiguredOrigin(t *testing.T) {
	r := corsEngine([]string{"https://nexusapp.io"}, config.EnvProduction)

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "https://nexusapp.io")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://nexusapp.io" {
		t.Errorf("allow origin = %q", got)
	}
}

func TestCORSRejectsUnknownOrigin(t *testing.T) {
	r := corsEngine([]string{"https://nexusapp.io"}, config.EnvProduction)

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "https://evil.example")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("allow origin = %q, want empty", got)
	}
}

func TestCORSPreflight(t *testing.T) {
	r := corsEngine([]string{"https://nexusapp.io"}, config.EnvProduction)

	req := httptest.NewRequest(http.MethodOptions, "/ping", nil)
	req.Header.Set("Origin", "https://nexusapp.io")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want 204", w.Code)
	}
}

func TestCORSPanicsOnOpenPolicyInProduction(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for empty origins in production")
		}
	}()
	CORS(nil, config.EnvProduction)
}
