package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/JonMunkholm/sheetedit/internal/config"
	"github.com/JonMunkholm/sheetedit/internal/logging"
	"github.com/stretchr/testify/assert"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte(r.RemoteAddr))
})

func TestAPIKeyAuth(t *testing.T) {
	cfg := &config.SecurityConfig{RequireAPIKey: true, APIKeys: []string{"k1", "k2"}}

	tests := []struct {
		name   string
		cfg    *config.SecurityConfig
		header map[string]string
		want   int
	}{
		{name: "disabled", cfg: &config.SecurityConfig{}, want: http.StatusOK},
		{name: "missing key", cfg: cfg, want: http.StatusUnauthorized},
		{name: "wrong key", cfg: cfg, header: map[string]string{"X-API-Key": "nope"}, want: http.StatusForbidden},
		{name: "header key", cfg: cfg, header: map[string]string{"X-API-Key": "k2"}, want: http.StatusOK},
		{name: "bearer key", cfg: cfg, header: map[string]string{"Authorization": "Bearer k1"}, want: http.StatusOK},
		{name: "no keys configured", cfg: &config.SecurityConfig{RequireAPIKey: true}, header: map[string]string{"X-API-Key": "k1"}, want: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/columns", nil)
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()
			APIKeyAuth(tt.cfg)(okHandler).ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Code)
			if tt.want != http.StatusOK {
				assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
				assert.Contains(t, rec.Body.String(), `"code":"AUTH_`)
			}
		})
	}
}

func TestTrustedRealIP(t *testing.T) {
	h := TrustedRealIP([]string{"10.0.0.0/8", "192.168.1.5", "bogus"})(okHandler)

	tests := []struct {
		name   string
		remote string
		header map[string]string
		want   string
	}{
		{name: "untrusted peer", remote: "203.0.113.9:5000", header: map[string]string{"X-Real-IP": "1.2.3.4"}, want: "203.0.113.9:5000"},
		{name: "trusted real ip", remote: "10.1.2.3:5000", header: map[string]string{"X-Real-IP": "1.2.3.4"}, want: "1.2.3.4"},
		{name: "trusted single address", remote: "192.168.1.5:80", header: map[string]string{"X-Forwarded-For": "5.6.7.8, 10.0.0.1"}, want: "5.6.7.8"},
		{name: "invalid header ignored", remote: "10.1.2.3:5000", header: map[string]string{"X-Real-IP": "not-an-ip"}, want: "10.1.2.3:5000"},
		{name: "no header", remote: "10.1.2.3:5000", want: "10.1.2.3:5000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Body.String())
		})
	}
}

func TestTrustedRealIP_NoProxies(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.1.2.3:5000"
	req.Header.Set("X-Real-IP", "1.2.3.4")
	rec := httptest.NewRecorder()

	TrustedRealIP(nil)(okHandler).ServeHTTP(rec, req)
	assert.Equal(t, "10.1.2.3:5000", rec.Body.String())
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(logging.New(&buf, "debug", "text"))
	defer slog.SetDefault(prev)

	h := Logger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("missing"))
	}))
	req := httptest.NewRequest(http.MethodGet, "/records/A1", nil)
	h.ServeHTTP(httptest.NewRecorder(), req)

	out := buf.String()
	for _, want := range []string{"level=WARN", "status=404", "bytes=7", "path=/records/A1"} {
		if !strings.Contains(out, want) {
			t.Errorf("log %q missing %q", out, want)
		}
	}
}
