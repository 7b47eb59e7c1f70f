package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"mercator-hq/bulwark/pkg/proxy"
	"mercator-hq/bulwark/pkg/telemetry/logging"
)

func TestRequestIDMiddleware(t *testing.T) {
	tests := []struct {
		name     string
		header   string
		wantSame bool
	}{
		{"generated when absent", "", false},
		{"client ID kept", "edge-7f3a", true},
		{"oversized client ID replaced", strings.Repeat("x", maxRequestIDLength+1), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen string
			h := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = GetRequestID(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/v1/chat", nil)
			if tt.header != "" {
				req.Header.Set(proxy.RequestIDHeader, tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			echoed := rec.Header().Get(proxy.RequestIDHeader)
			if echoed == "" || echoed != seen {
				t.Fatalf("header %q, context %q: want equal and non-empty", echoed, seen)
			}
			if (echoed == tt.header) != tt.wantSame {
				t.Errorf("request ID = %q, client sent %q", echoed, tt.header)
			}
			if len(echoed) > maxRequestIDLength {
				t.Errorf("request ID length = %d, exceeds cap", len(echoed))
			}
		})
	}
}

func TestRequestIDMiddleware_Unique(t *testing.T) {
	h := RequestIDMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	seen := make(map[string]bool)
	for range 50 {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		id := rec.Header().Get(proxy.RequestIDHeader)
		if seen[id] {
			t.Fatalf("duplicate request ID %q", id)
		}
		seen[id] = true
	}
}

func TestRequestIDMiddleware_ClientIP(t *testing.T) {
	tests := []struct {
		name string
		edge string
		want string
	}{
		{"edge header", "203.0.113.9", "203.0.113.9"},
		{"no identity", "", proxy.UnknownClient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			h := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = logging.GetClientIP(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.edge != "" {
				req.Header.Set(proxy.EdgeIPHeader, tt.edge)
			}
			h.ServeHTTP(httptest.NewRecorder(), req)

			if got != tt.want {
				t.Errorf("client_ip = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGetRequestID_Empty(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if id := GetRequestID(req.Context()); id != "" {
		t.Errorf("GetRequestID() = %q, want empty", id)
	}
}
