package security

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHeaders(t *testing.T) {
	h := Headers(DefaultHeadersConfig())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/theme", nil))
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rr.Header().Get("X-Frame-Options"))
	assert.Equal(t, "no-store", rr.Header().Get("Cache-Control"))
	assert.Empty(t, rr.Header().Get("Strict-Transport-Security"))

	req := httptest.NewRequest(http.MethodGet, "/api/theme", nil)
	req.TLS = &tls.ConnectionState{}
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, "max-age=31536000; includeSubDomains", rr.Header().Get("Strict-Transport-Security"))
}

func TestDetectorInspect(t *testing.T) {
	d := NewDetector()
	tests := []struct {
		name   string
		method string
		target string
		header map[string]string
		want   string
	}{
		{name: "plain api call", method: http.MethodGet, target: "/api/sessions/2024-03", want: ""},
		{name: "vietnamese query", method: http.MethodGet, target: "/api/export?month=2024-03", want: ""},
		{name: "path traversal", method: http.MethodGet, target: "/api/../.env", want: ReasonPath},
		{name: "sql in query", method: http.MethodGet, target: "/api/events?id=1%20union%20select", want: ReasonQuery},
		{name: "scanner agent", method: http.MethodGet, target: "/", header: map[string]string{"User-Agent": "sqlmap/1.7"}, want: ReasonUserAgent},
		{name: "curl is fine", method: http.MethodGet, target: "/", header: map[string]string{"User-Agent": "curl/8.5"}, want: ""},
		{name: "trace method", method: "TRACE", target: "/", want: ReasonMethod},
		{name: "long url", method: http.MethodGet, target: "/api/events?q=" + strings.Repeat("a", 2100), want: ReasonLongURL},
		{name: "proxy chain", method: http.MethodGet, target: "/", header: map[string]string{"X-Forwarded-For": "1.1.1.1,2.2.2.2,3.3.3.3,4.4.4.4,5.5.5.5,6.6.6.6,7.7.7.7"}, want: ReasonProxyHops},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.target, nil)
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, d.Inspect(req))
		})
	}
}
