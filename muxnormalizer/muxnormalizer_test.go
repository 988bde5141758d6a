package muxnormalizer

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
)

func newRouter() *mux.Router {
	r := mux.NewRouter()
	ok := func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte(r.URL.Path)) }
	r.HandleFunc("/health", ok)
	r.HandleFunc("/api/login", ok)
	r.HandleFunc("/api/admin/data_migration/export", ok)
	r.HandleFunc("/api/users/{name}/favorites", ok)
	return r
}

func TestNormalize(t *testing.T) {
	n, err := New(newRouter())
	if err != nil {
		t.Fatalf("New error = %v", err)
	}
	tests := []struct {
		in   string
		want string
	}{
		{"/health", "/health"},
		{"/HEALTH/", "/health"},
		{"//api//Login", "/api/login"},
		{"/Api/Admin/Data_Migration/Export", "/api/admin/data_migration/export"},
		{"/API/users/Alice/Favorites", "/api/users/Alice/favorites"},
		{"/api/unknown", "/api/unknown"},
		{"/", "/"},
	}
	for _, tt := range tests {
		if got := n.Normalize(tt.in); got != tt.want {
			t.Fatalf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMiddleware(t *testing.T) {
	r := newRouter()
	n, err := New(r)
	if err != nil {
		t.Fatalf("New error = %v", err)
	}
	rec := httptest.NewRecorder()
	n.Middleware(r).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/Api/Login/", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "/api/login" {
		t.Fatalf("status %d body %q", rec.Code, rec.Body.String())
	}
}
