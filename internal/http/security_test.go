package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_Window(t *testing.T) {
	rl := newRateLimiter(3)
	defer rl.stop()

	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	var m securityMetrics

	for i := 0; i < 3; i++ {
		assert.True(t, rl.allow("1.2.3.4", &m))
	}
	assert.False(t, rl.allow("1.2.3.4", &m))
	assert.True(t, rl.allow("5.6.7.8", &m))
	assert.EqualValues(t, 1, m.rateLimitHits)

	now = now.Add(time.Minute)
	assert.True(t, rl.allow("1.2.3.4", &m))
}

func TestRateLimiter_Cleanup(t *testing.T) {
	rl := newRateLimiter(1)
	defer rl.stop()

	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	rl.allow("1.2.3.4", nil)

	now = now.Add(3 * time.Minute)
	rl.allow("5.6.7.8", nil)
	rl.cleanup()

	rl.mu.Lock()
	defer rl.mu.Unlock()
	assert.NotContains(t, rl.clients, "1.2.3.4")
	assert.Contains(t, rl.clients, "5.6.7.8")
}

func TestExtractClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{"direct", "203.0.113.7:5555", nil, "203.0.113.7"},
		{"untrusted forwarder", "203.0.113.7:5555", map[string]string{"X-Forwarded-For": "198.51.100.1"}, "203.0.113.7"},
		{"trusted forwarder", "10.0.0.2:5555", map[string]string{"X-Forwarded-For": "198.51.100.1, 10.0.0.3"}, "198.51.100.1"},
		{"trusted real ip", "127.0.0.1:5555", map[string]string{"X-Real-IP": "198.51.100.2"}, "198.51.100.2"},
		{"trusted garbage", "192.168.1.1:5555", map[string]string{"X-Forwarded-For": "not-an-ip"}, "192.168.1.1"},
		{"no port", "203.0.113.7", nil, "203.0.113.7"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, extractClientIP(r))
		})
	}
}

func TestDetectSuspiciousRequest(t *testing.T) {
	var m securityMetrics

	ok := httptest.NewRequest(http.MethodGet, "/api/transactions?range=month", nil)
	ok.Header.Set("User-Agent", "curl/8.4.0")
	assert.False(t, detectSuspiciousRequest(ok, &m))

	probe := httptest.NewRequest(http.MethodGet, "/.env", nil)
	assert.True(t, detectSuspiciousRequest(probe, &m))

	scanner := httptest.NewRequest(http.MethodGet, "/health", nil)
	scanner.Header.Set("User-Agent", "sqlmap/1.7")
	assert.True(t, detectSuspiciousRequest(scanner, &m))

	assert.EqualValues(t, 2, m.suspiciousRequests)
}

func TestSanitizeInput(t *testing.T) {
	assert.Equal(t, "café\tcom leite", sanitizeInput("  café\tcom\x00 leite\x07 "))
}
