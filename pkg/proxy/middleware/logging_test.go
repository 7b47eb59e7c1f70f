package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type requestRecord struct {
	route  string
	status int
}

type fakeRequestObserver struct{ records []requestRecord }

func (f *fakeRequestObserver) RecordRequest(route string, status int, _ time.Duration) {
	f.records = append(f.records, requestRecord{route, status})
}

func TestLoggingMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	observer := &fakeRequestObserver{}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /admin/quota/{user}", func(w http.ResponseWriter, r *http.Request) {
		if GetStartTime(r.Context()).IsZero() {
			t.Error("start time missing from context")
		}
		w.WriteHeader(http.StatusNotFound)
	})
	h := LoggingMiddleware(logger, observer)(mux)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/admin/quota/u-1", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	if len(observer.records) != 2 {
		t.Fatalf("records = %v", observer.records)
	}
	if got := observer.records[0]; got.route != "GET /admin/quota/{user}" || got.status != http.StatusNotFound {
		t.Errorf("first record = %+v", got)
	}
	if got := observer.records[1]; got.route != unmatchedRoute {
		t.Errorf("second record route = %q, want %q", got.route, unmatchedRoute)
	}

	var entry map[string]any
	line, _, _ := bytes.Cut(buf.Bytes(), []byte("\n"))
	if err := json.Unmarshal(line, &entry); err != nil {
		t.Fatalf("unmarshal log line: %v", err)
	}
	if entry["level"] != "WARN" || entry["route"] != "GET /admin/quota/{user}" {
		t.Errorf("log entry = %v", entry)
	}
}
