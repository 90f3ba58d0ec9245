package security

import (
	"net/http"
	"net/url"
	"strings"

	"chitieu/internal/metrics"
)

// Reasons reported by Detector.Inspect.
const (
	ReasonPath      = "path"
	ReasonQuery     = "query"
	ReasonUserAgent = "user_agent"
	ReasonMethod    = "method"
	ReasonLongURL   = "long_url"
	ReasonProxyHops = "proxy_hops"
)

const maxURLLength = 2048

var (
	suspiciousPatterns = []string{
		"../", "..\\", ".env", "wp-admin", "phpmyadmin",
		"admin.php", "config.php", ".git", ".ssh",
		"eval(", "javascript:", "<script", "union select",
		"etc/passwd", "cmd.exe",
	}
	scannerAgents = []string{
		"sqlmap", "nmap", "nikto", "gobuster", "dirb", "masscan", "zgrab",
	}
	unusualMethods = []string{"TRACE", "TRACK", "DEBUG", "CONNECT"}
)

// Detector flags requests that look like scans. It never blocks: callers
// decide what to do with a flagged request.
type Detector struct {
	maxProxyHops int
}

func NewDetector() *Detector {
	return &Detector{maxProxyHops: 5}
}

// Inspect returns the first reason r looks suspicious, or "" when it does
// not. Flagged requests are counted by reason.
func (d *Detector) Inspect(r *http.Request) string {
	reason := d.inspect(r)
	if reason != "" {
		metrics.SuspiciousRequests.WithLabelValues(reason).Inc()
	}
	return reason
}

func (d *Detector) inspect(r *http.Request) string {
	if containsAny(strings.ToLower(r.URL.Path), suspiciousPatterns) {
		return ReasonPath
	}
	query, err := url.QueryUnescape(r.URL.RawQuery)
	if err != nil {
		query = r.URL.RawQuery
	}
	if containsAny(strings.ToLower(query), suspiciousPatterns) {
		return ReasonQuery
	}
	if containsAny(strings.ToLower(r.Header.Get("User-Agent")), scannerAgents) {
		return ReasonUserAgent
	}
	for _, m := range unusualMethods {
		if r.Method == m {
			return ReasonMethod
		}
	}
	if len(r.URL.String()) > maxURLLength {
		return ReasonLongURL
	}
	if xff := r.Header.Get("X-Forwarded-For"); strings.Count(xff, ",") > d.maxProxyHops {
		return ReasonProxyHops
	}
	return ""
}

func containsAny(s string, patterns []string) bool {
	if s == "" {
		return false
	}
	for _, p := range patterns {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}
