package api

import (
	"net/http/httptest"
	"testing"
	"time"
)

func TestRateLimiterWindow(t *testing.T) {
	now := time.Unix(1000, 0)
	rl := NewRateLimiter(3, time.Minute)
	rl.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		if !rl.Allow("a") {
			t.Fatalf("request %d rejected", i)
		}
	}
	if rl.Allow("a") {
		t.Fatalf("fourth request allowed")
	}
	if !rl.Allow("b") {
		t.Fatalf("other clients must have their own budget")
	}
	if got := rl.RetryAfter("a"); got != 61 {
		t.Fatalf("RetryAfter = %d, want 61", got)
	}

	now = now.Add(time.Minute)
	if !rl.Allow("a") {
		t.Fatalf("budget not restored after the window")
	}
}

func TestRateLimiterDisabled(t *testing.T) {
	rl := NewRateLimiter(0, time.Minute)
	for i := 0; i < 100; i++ {
		if !rl.Allow("a") {
			t.Fatalf("disabled limiter rejected a request")
		}
	}
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "10.0.0.7:5555"
	if got := clientIP(r); got != "10.0.0.7" {
		t.Fatalf("clientIP = %q", got)
	}
	r.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	if got := clientIP(r); got != "203.0.113.9" {
		t.Fatalf("clientIP behind proxy = %q", got)
	}
}

func TestHubDropsForLaggingSubscriber(t *testing.T) {
	h := NewHub()
	id, ch := h.Subscribe()

	for i := 0; i < streamQueueSize+10; i++ {
		h.Broadcast(StreamMessage{Type: "refresh", Tick: uint64(i)})
	}
	if len(ch) != streamQueueSize {
		t.Fatalf("queued %d messages, want %d", len(ch), streamQueueSize)
	}

	h.Unsubscribe(id)
	h.Unsubscribe(id)
	if h.Len() != 0 {
		t.Fatalf("subscriber not removed")
	}
	for range ch {
	}
}
