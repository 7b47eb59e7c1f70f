package providers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc, timeout time.Duration) *HTTPProvider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewHTTPProvider(ProviderConfig{
		Name:    "test",
		Type:    TypeGeneric,
		BaseURL: server.URL,
		Timeout: timeout,
	})
}

func TestDoRequest_StatusClassification(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		header     map[string]string
		wantStatus int
		check      func(t *testing.T, err error)
	}{
		{
			name:       "unauthorized",
			status:     http.StatusUnauthorized,
			wantStatus: http.StatusUnauthorized,
			check: func(t *testing.T, err error) {
				var authErr *AuthError
				if !errors.As(err, &authErr) {
					t.Fatalf("expected *AuthError, got %T", err)
				}
			},
		},
		{
			name:       "forbidden",
			status:     http.StatusForbidden,
			wantStatus: http.StatusForbidden,
			check: func(t *testing.T, err error) {
				var authErr *AuthError
				if !errors.As(err, &authErr) {
					t.Fatalf("expected *AuthError, got %T", err)
				}
			},
		},
		{
			name:       "rate limited",
			status:     http.StatusTooManyRequests,
			header:     map[string]string{"Retry-After": "7"},
			wantStatus: http.StatusTooManyRequests,
			check: func(t *testing.T, err error) {
				var rlErr *RateLimitError
				if !errors.As(err, &rlErr) {
					t.Fatalf("expected *RateLimitError, got %T", err)
				}
				if rlErr.RetryAfter != 7*time.Second {
					t.Errorf("RetryAfter = %v, want 7s", rlErr.RetryAfter)
				}
				if !rlErr.RateLimited() {
					t.Error("RateLimited() = false")
				}
			},
		},
		{
			name:       "server error",
			status:     http.StatusServiceUnavailable,
			wantStatus: http.StatusServiceUnavailable,
			check: func(t *testing.T, err error) {
				var provErr *ProviderError
				if !errors.As(err, &provErr) {
					t.Fatalf("expected *ProviderError, got %T", err)
				}
			},
		},
		{
			name:       "bad request",
			status:     http.StatusBadRequest,
			wantStatus: http.StatusBadRequest,
			check: func(t *testing.T, err error) {
				var provErr *ProviderError
				if !errors.As(err, &provErr) {
					t.Fatalf("expected *ProviderError, got %T", err)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
				for k, v := range tt.header {
					w.Header().Set(k, v)
				}
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"error":"boom"}`))
			}, 5*time.Second)

			_, err := p.DoRequest(context.Background(), http.MethodPost, p.GetConfig().BaseURL+"/x", []byte(`{}`), nil)
			if err == nil {
				t.Fatal("expected error")
			}
			tt.check(t, err)

			var sc interface{ HTTPStatus() int }
			if !errors.As(err, &sc) {
				t.Fatalf("error %T has no HTTPStatus", err)
			}
			if sc.HTTPStatus() != tt.wantStatus {
				t.Errorf("HTTPStatus() = %d, want %d", sc.HTTPStatus(), tt.wantStatus)
			}
		})
	}
}

func TestDoRequest_Timeout(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}, 50*time.Millisecond)

	_, err := p.DoRequest(context.Background(), http.MethodGet, p.GetConfig().BaseURL, nil, nil)

	var timeoutErr *TimeoutError
	if !errors.As(err, &timeoutErr) {
		t.Fatalf("expected *TimeoutError, got %T: %v", err, err)
	}
	if !timeoutErr.Timeout() {
		t.Error("Timeout() = false")
	}
	if timeoutErr.After != 50*time.Millisecond {
		t.Errorf("After = %v, want 50ms", timeoutErr.After)
	}
}

func TestDoRequest_Canceled(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}, 5*time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := p.DoRequest(ctx, http.MethodGet, p.GetConfig().BaseURL, nil, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestDoJSONRequest_ParseError(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}, 5*time.Second)

	var out map[string]any
	err := p.DoJSONRequest(context.Background(), http.MethodPost, p.GetConfig().BaseURL, map[string]string{"a": "b"}, &out, nil)

	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected *ParseError, got %T", err)
	}
	if parseErr.RawResponse != "not json" {
		t.Errorf("RawResponse = %q", parseErr.RawResponse)
	}
	if parseErr.HTTPStatus() != http.StatusBadGateway {
		t.Errorf("HTTPStatus() = %d, want 502", parseErr.HTTPStatus())
	}
}

func TestDoRequest_SetsHeaders(t *testing.T) {
	var gotAuth, gotType string
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotType = r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusOK)
	}, 5*time.Second)

	resp, err := p.DoRequest(context.Background(), http.MethodPost, p.GetConfig().BaseURL, []byte(`{}`),
		map[string]string{"Authorization": "Bearer k"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp.Body.Close()

	if gotAuth != "Bearer k" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotType != "application/json" {
		t.Errorf("Content-Type = %q", gotType)
	}
}

func TestParseRetryAfter(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   time.Duration
	}{
		{"empty", "", 0},
		{"seconds", "30", 30 * time.Second},
		{"garbage", "soon", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseRetryAfter(tt.header); got != tt.want {
				t.Errorf("parseRetryAfter(%q) = %v, want %v", tt.header, got, tt.want)
			}
		})
	}

	future := time.Now().Add(time.Minute).UTC().Format(http.TimeFormat)
	if got := parseRetryAfter(future); got <= 0 || got > time.Minute {
		t.Errorf("parseRetryAfter(date) = %v", got)
	}
}
