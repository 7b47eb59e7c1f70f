package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestCheckReadiness_Aggregation(t *testing.T) {
	tests := []struct {
		name       string
		checks     map[string]error
		wantStatus string
		wantCode   int
	}{
		{"no checks", nil, StatusReady, http.StatusOK},
		{"all ok", map[string]error{"a": nil, "b": nil}, StatusReady, http.StatusOK},
		{"one degraded", map[string]error{"a": nil, "store": Degraded("redis down")}, StatusDegraded, http.StatusOK},
		{"one unhealthy", map[string]error{"store": Degraded("redis down"), "db": errors.New("locked")}, StatusUnhealthy, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := New(time.Second)
			for name, err := range tt.checks {
				err := err
				checker.RegisterCheck(name, func(ctx context.Context) error { return err })
			}

			status := checker.CheckReadiness(context.Background())
			if status.Status != tt.wantStatus {
				t.Errorf("Status = %q, want %q", status.Status, tt.wantStatus)
			}
			if len(status.Checks) != len(tt.checks) {
				t.Errorf("Checks len = %d, want %d", len(status.Checks), len(tt.checks))
			}

			rec := httptest.NewRecorder()
			checker.ReadinessHandler()(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
			if rec.Code != tt.wantCode {
				t.Errorf("HTTP status = %d, want %d", rec.Code, tt.wantCode)
			}
		})
	}
}

func TestCheckReadiness_Timeout(t *testing.T) {
	checker := New(20 * time.Millisecond)
	checker.RegisterCheck("slow", func(ctx context.Context) error {
		<-ctx.Done()
		time.Sleep(50 * time.Millisecond)
		return nil
	})

	status := checker.CheckReadiness(context.Background())
	result := status.Checks["slow"]
	if result.Status != StatusUnhealthy || result.Message != ErrCheckTimeout.Error() {
		t.Errorf("slow check = %+v", result)
	}
}

func TestReadinessHandler_Info(t *testing.T) {
	checker := New(time.Second)
	checker.RegisterInfo("store_mode", func() any { return "shared" })
	checker.RegisterCheck("db", func(ctx context.Context) error { return nil })

	rec := httptest.NewRecorder()
	checker.ReadinessHandler()(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	var body HealthStatus
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode error = %v", err)
	}
	if body.Info["store_mode"] != "shared" {
		t.Errorf("info = %v", body.Info)
	}
	if body.Checks["db"].Status != StatusOK {
		t.Errorf("db check = %+v", body.Checks["db"])
	}
	if got := rec.Header().Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type = %q", got)
	}
}

func TestLivenessAndVersion(t *testing.T) {
	checker := New(0)
	if checker.checkTimeout != 5*time.Second {
		t.Errorf("default timeout = %v", checker.checkTimeout)
	}

	rec := httptest.NewRecorder()
	checker.LivenessHandler()(rec, httptest.NewRequest(http.MethodHead, "/livez", nil))
	if rec.Code != http.StatusOK || rec.Body.Len() != 0 {
		t.Errorf("HEAD liveness: code=%d body=%q", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	VersionHandler("1.2.3", "abc", "today")(rec, httptest.NewRequest(http.MethodGet, "/version", nil))
	var info VersionInfo
	if err := json.NewDecoder(rec.Body).Decode(&info); err != nil {
		t.Fatalf("decode error = %v", err)
	}
	if info.Version != "1.2.3" || info.GoVersion == "" {
		t.Errorf("version info = %+v", info)
	}
}

func TestListChecks(t *testing.T) {
	checker := New(time.Second)
	checker.RegisterCheck("b", func(ctx context.Context) error { return nil })
	checker.RegisterCheck("a", func(ctx context.Context) error { return nil })

	names := checker.ListChecks()
	if len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Errorf("ListChecks() = %v", names)
	}
}
