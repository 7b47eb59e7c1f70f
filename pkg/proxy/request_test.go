package proxy

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"mercator-hq/bulwark/pkg/proxy/types"
)

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{
			name: "edge header wins",
			headers: map[string]string{
				EdgeIPHeader:       "1.1.1.1",
				RealIPHeader:       "2.2.2.2",
				ForwardedForHeader: "3.3.3.3",
			},
			want: "1.1.1.1",
		},
		{
			name:    "real ip before forwarded for",
			headers: map[string]string{RealIPHeader: "2.2.2.2", ForwardedForHeader: "3.3.3.3"},
			want:    "2.2.2.2",
		},
		{
			name:    "first forwarded for entry",
			headers: map[string]string{ForwardedForHeader: " 3.3.3.3 , 10.0.0.1, 10.0.0.2"},
			want:    "3.3.3.3",
		},
		{
			name:    "blank headers fall through",
			headers: map[string]string{EdgeIPHeader: "  ", ForwardedForHeader: ", 10.0.0.1"},
			want:    UnknownClient,
		},
		{
			name: "no headers",
			want: UnknownClient,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if got := ClientIP(r); got != tt.want {
				t.Errorf("ClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"Bearer secret", "secret"},
		{"bearer  secret ", "secret"},
		{"Basic secret", ""},
		{"Bearer", ""},
		{"", ""},
	}

	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		if tt.header != "" {
			r.Header.Set(AuthorizationHeader, tt.header)
		}
		if got := ExtractBearerToken(r); got != tt.want {
			t.Errorf("ExtractBearerToken(%q) = %q, want %q", tt.header, got, tt.want)
		}
	}
}

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		maxBytes int64
		wantCode string
	}{
		{"valid", `{"messages":[{"role":"user","content":"hi"}]}`, 0, ""},
		{"invalid json", `{"messages":`, 0, types.CodeInvalidRequest},
		{"unknown field", `{"messages":[{"role":"user","content":"hi"}],"stream":true}`, 0, types.CodeInvalidRequest},
		{"validation failure", `{"messages":[]}`, 0, types.CodeInvalidRequest},
		{"bad role", `{"messages":[{"role":"robot","content":"hi"}]}`, 0, types.CodeInvalidRequest},
		{"too large", `{"messages":[{"role":"user","content":"` + strings.Repeat("a", 200) + `"}]}`, 64, types.CodeRequestTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodPost, "/v1/chat", strings.NewReader(tt.body))

			var req types.ChatRequest
			err := DecodeJSON(w, r, tt.maxBytes, &req)
			if tt.wantCode == "" {
				if err != nil {
					t.Fatalf("DecodeJSON() error = %v", err)
				}
				return
			}

			reqErr, ok := err.(*RequestError)
			if !ok {
				t.Fatalf("DecodeJSON() error = %T %v, want *RequestError", err, err)
			}
			if reqErr.Code != tt.wantCode {
				t.Errorf("Code = %q, want %q", reqErr.Code, tt.wantCode)
			}
		})
	}
}
