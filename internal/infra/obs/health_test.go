package obs

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestReadyzReportsFailingChecks(t *testing.T) {
	gin.SetMode(gin.TestMode)
	healthy := HealthHandlers{Checks: map[string]Check{"mongo": func(context.Context) error { return nil }}}
	broken := HealthHandlers{Checks: map[string]Check{"redis": func(context.Context) error { return errors.New("dial refused") }}}

	r := gin.New()
	r.GET("/ok", healthy.Readyz)
	r.GET("/broken", broken.Readyz)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("healthy status = %d", w.Code)
	}
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/broken", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("broken status = %d", w.Code)
	}
}
