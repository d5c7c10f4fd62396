package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMiddleware_LabelsByRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Get("/api/v1/groups/{groupID}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest("GET", "/api/v1/groups/0b6c9a4e-5a1f-4f7e-9c1d-2e3f4a5b6c7d", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	pattern := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/api/v1/groups/{groupID}", "200"))
	if pattern != 1 {
		t.Errorf("expected 1 request counted under the route pattern, got %v", pattern)
	}
	raw := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", req.URL.Path, "200"))
	if raw != 0 {
		t.Errorf("raw path must not be used as a label, got %v", raw)
	}
}
