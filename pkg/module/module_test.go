package module_test

import (
	"net/http"
	"net/http/httptest"
	"slices"
	"testing"

	"github.com/JaimeStill/labrecon/pkg/module"
)

func TestNewInvalidPrefixPanics(t *testing.T) {
	tests := []struct {
		name   string
		prefix string
	}{
		{"empty", ""},
		{"no leading slash", "api"},
		{"nested path", "/api/v1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				if r := recover(); r == nil {
					t.Error("expected panic for invalid prefix")
				}
			}()
			module.New(tt.prefix, http.NewServeMux())
		})
	}
}

func TestServePrefixStripping(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		wantPath string
	}{
		{"sub path", "/api/reconciliations", "/reconciliations"},
		{"root", "/api", "/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var received string
			m := module.New("/api", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				received = r.URL.Path
			}))

			m.Serve(httptest.NewRecorder(), httptest.NewRequest("GET", tt.path, nil))

			if received != tt.wantPath {
				t.Errorf("inner path: got %s, want %s", received, tt.wantPath)
			}
		})
	}
}

func TestModuleMiddlewareAppliedOnce(t *testing.T) {
	m := module.New("/api", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	var wraps, calls int
	m.Use(func(next http.Handler) http.Handler {
		wraps++
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			next.ServeHTTP(w, r)
		})
	})

	for range 3 {
		m.Serve(httptest.NewRecorder(), httptest.NewRequest("GET", "/api", nil))
	}

	if wraps != 1 {
		t.Errorf("middleware wrapped %d times, want 1", wraps)
	}
	if calls != 3 {
		t.Errorf("middleware called %d times, want 3", calls)
	}
}

func TestRouter(t *testing.T) {
	apiMux := http.NewServeMux()
	apiMux.HandleFunc("GET /reconciliations", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("api"))
	})

	router := module.NewRouter()
	router.Mount(module.New("/api", apiMux))
	router.HandleNative("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantBody   string
	}{
		{"module", "/api/reconciliations", http.StatusOK, "api"},
		{"trailing slash", "/api/reconciliations/", http.StatusOK, "api"},
		{"native fallback", "/healthz", http.StatusOK, "ok"},
		{"unknown", "/missing", http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest("GET", tt.path, nil))

			if rec.Code != tt.wantStatus {
				t.Errorf("status: got %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantBody != "" && rec.Body.String() != tt.wantBody {
				t.Errorf("body: got %s, want %s", rec.Body.String(), tt.wantBody)
			}
		})
	}

	if got := router.Prefixes(); !slices.Equal(got, []string{"/api"}) {
		t.Errorf("Prefixes() = %v", got)
	}
}
