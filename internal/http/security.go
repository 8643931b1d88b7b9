package http

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
)

// securityMetrics counts throttled and scanner-looking requests.
type securityMetrics struct {
	rateLimitHits int64
	suspiciousHits     int64
}

// trustedProxies are the networks allowed to set forwarding headers. The
// app is expected to sit behind a reverse proxy on a private network.
var trustedProxies = []*net.IPNet{
	mustCIDR("127.0.0.0/8"),
	mustCIDR("10.0.0.0/8"),
	mustCIDR("172.16.0.0/12"),
	mustCIDR("192.168.0.0/16"),
}

func mustCIDR(cidr string) *net.IPNet {
	_, network, err := net.ParseCIDR(cidr)
	if err != nil {
		panic(fmt.Sprintf("bad trusted proxy CIDR %s: %v", cidr, err))
	}
	return network
}

func fromTrustedProxy(ip net.IP) bool {
	for _, network := range trustedProxies {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// extractClientIP resolves the client IP for rate limiting and logging.
// Forwarding headers are honored only when the direct peer is a trusted
// proxy, so a client cannot spoof its way past the upload budget.
func extractClientIP(r *http.Request) string {
	directIP, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		directIP = r.RemoteAddr
	}

	peer := net.ParseIP(directIP)
	if peer == nil || !fromTrustedProxy(peer) {
		return directIP
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first := strings.TrimSpace(strings.Split(xff, ",")[0])
		if net.ParseIP(first) != nil {
			return first
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		if net.ParseIP(xri) != nil {
			return xri
		}
	}
	return directIP
}

// scannerSignatures are scanner patterns worth flagging even on a small app:
// path traversal, dotfile grabs, and injection attempts aimed at the
// search parameters.
var scannerSignatures = []string{
	"../", "..\\", "/.env", "/.git",
	"<script", "javascript:", "union select",
}

// looksSuspicious flags requests that match a known scanner signature or
// carry an absurdly long URL. Flagged requests are logged, not blocked;
// every route only serves this client's own pages anyway.
func looksSuspicious(r *http.Request, metrics *securityMetrics) bool {
	query := r.URL.RawQuery
	if q, err := url.QueryUnescape(query); err == nil {
		query = q
	}
	target := strings.ToLower(r.URL.Path) + "?" + strings.ToLower(query)

	suspect := len(r.URL.String()) > 2048
	if !suspect {
		for _, sig := range scannerSignatures {
			if strings.Contains(target, sig) {
				suspect = true
				break
			}
		}
	}

	if suspect && metrics != nil {
		atomic.AddInt64(&metrics.suspiciousHits, 1)
	}
	return suspect
}
