package middleware

import (
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"

	"github.com/freeeve/iron-alliance/api/internal/logger"
)

func TestCORSHeaders(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	rec := httptest.NewRecorder()
	CORS("https://example.com")(inner).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/test", nil))

	tests := []struct {
		header string
		want   string
	}{
		{"Access-Control-Allow-Origin", "https://example.com"},
		{"Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS"},
		{"Access-Control-Allow-Headers", "Content-Type, Authorization"},
		{"Access-Control-Expose-Headers", "X-Request-Id"},
		{"Access-Control-Max-Age", "86400"},
	}
	for _, tt := range tests {
		if got := rec.Header().Get(tt.header); got != tt.want {
			t.Errorf("%s: expected %q, got %q", tt.header, tt.want, got)
		}
	}
}

func TestCORSPreflight(t *testing.T) {
	called := false
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})
	rec := httptest.NewRecorder()
	CORS("*")(inner).ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/test", nil))

	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204 for OPTIONS, got %d", rec.Code)
	}
	if called {
		t.Error("inner handler should not be called for preflight")
	}
}

func TestJSONContentType(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	rec := httptest.NewRecorder()
	JSON(inner).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/test", nil))

	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected Content-Type=application/json, got %s", ct)
	}
}

func TestLoggerPassesThrough(t *testing.T) {
	var gotID, gotBody string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID = logger.RequestIDFromContext(r.Context())
		b := new(strings.Builder)
		buf := make([]byte, 64)
		n, _ := r.Body.Read(buf)
		b.Write(buf[:n])
		gotBody = b.String()
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(strings.Repeat("y", maxCapturedBody+10)))
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(`{"notation":"roll"}`))
	Logger(inner).ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
	if gotID == "" || rec.Header().Get("X-Request-Id") != gotID {
		t.Errorf("request id %q, header %q", gotID, rec.Header().Get("X-Request-Id"))
	}
	if gotBody != `{"notation":"roll"}` {
		t.Errorf("handler read body %q", gotBody)
	}
	if rec.Body.Len() != maxCapturedBody+10 {
		t.Errorf("client got %d bytes", rec.Body.Len())
	}
}

func TestLoggerRejectsLargeBody(t *testing.T) {
	called := false
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	rec := httptest.NewRecorder()
	body := strings.NewReader(strings.Repeat("x", MaxRequestBody+1))
	Logger(inner).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/games/g1/actions", body))

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413, got %d", rec.Code)
	}
	if called {
		t.Error("inner handler should not run for an oversized body")
	}
}

func TestGameIDFromPath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/api/v1/games/abc/actions", "abc"},
		{"/api/v1/games/abc", "abc"},
		{"/api/v1/games", ""},
		{"/api/v1/games/", ""},
		{"/api/v1/saves/s1/load", ""},
		{"/healthz", ""},
	}
	for _, tt := range tests {
		if got := gameIDFromPath(tt.path); got != tt.want {
			t.Errorf("gameIDFromPath(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestChainOrder(t *testing.T) {
	var order []string
	mark := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name+"-before")
				next.ServeHTTP(w, r)
				order = append(order, name+"-after")
			})
		}
	}
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "handler")
	})

	Chain(inner, mark("mw1"), mark("mw2")).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	expected := []string{"mw1-before", "mw2-before", "handler", "mw2-after", "mw1-after"}
	if !slices.Equal(order, expected) {
		t.Errorf("order = %v, want %v", order, expected)
	}
}
