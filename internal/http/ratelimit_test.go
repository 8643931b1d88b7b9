package http

import (
	"net/http/httptest"
	"testing"
	"time"
)

func TestRateLimiterUploadBudget(t *testing.T) {
	rl := newRateLimiter()
	defer rl.stop()
	m := &securityMetrics{}

	for i := 0; i < uploadBudget; i++ {
		if !rl.allow("192.0.2.1", "/upload/scan", m) {
			t.Fatalf("upload %d denied under budget", i+1)
		}
	}
	if rl.allow("192.0.2.1", "/upload/scan", m) {
		t.Fatalf("upload over budget allowed")
	}
	if m.rateLimitHits == 0 {
		t.Fatalf("expected a recorded rate limit hit")
	}

	// Cheap mutations from the same client keep their own budget, and
	// other clients are unaffected.
	if !rl.allow("192.0.2.1", "/receipts/1/delete", m) {
		t.Fatalf("delete denied after upload budget exhausted")
	}
	if !rl.allow("192.0.2.2", "/upload/scan", m) {
		t.Fatalf("second client denied")
	}
}

func TestRateLimiterMutationBudget(t *testing.T) {
	rl := newRateLimiter()
	defer rl.stop()

	for i := 0; i < mutationBudget; i++ {
		if !rl.allow("192.0.2.3", "/receipts/1/expand", nil) {
			t.Fatalf("mutation %d denied under budget", i+1)
		}
	}
	if rl.allow("192.0.2.3", "/receipts/1/expand", nil) {
		t.Fatalf("mutation over budget allowed")
	}
}

func TestRateLimiterWindowReset(t *testing.T) {
	rl := newRateLimiter()
	defer rl.stop()

	ip := "192.0.2.4"
	for i := 0; i < uploadBudget; i++ {
		rl.allow(ip, "/upload/email", nil)
	}
	if rl.allow(ip, "/upload/email", nil) {
		t.Fatalf("expected denial before window reset")
	}

	rl.mu.Lock()
	rl.clients[ip].start = time.Now().Add(-2 * windowLength)
	rl.mu.Unlock()

	if !rl.allow(ip, "/upload/email", nil) {
		t.Fatalf("expected fresh window after expiry")
	}
}

func TestLooksSuspicious(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want bool
	}{
		{"normal search", "/ui/receipts?term=eggs", false},
		{"path traversal", "/static/../../etc/passwd", true},
		{"dotfile grab", "/.env", true},
		{"script in query", "/ui/receipts?term=%3Cscript%3E", true},
		{"sql in query", "/ui/receipts?term=union+select+1", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &securityMetrics{}
			r := httptest.NewRequest("GET", tt.url, nil)
			if got := looksSuspicious(r, m); got != tt.want {
				t.Fatalf("looksSuspicious(%s) = %v, want %v", tt.url, got, tt.want)
			}
			if tt.want && m.suspiciousHits != 1 {
				t.Fatalf("suspicious hit not counted")
			}
		})
	}
}
