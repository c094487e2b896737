package v1

import (
	"testing"
	"time"
)

func TestIPLimiterEvictsStaleBuckets(t *testing.T) {
	l := newIPLimiter(10, 5)

	if !l.allow("198.51.100.1") {
		t.Fatal("first request should pass")
	}
	if !l.allow("198.51.100.2") {
		t.Fatal("first request should pass")
	}

	l.mu.Lock()
	l.limiters["198.51.100.1"].lastSeen = time.Now().Add(-time.Hour)
	l.mu.Unlock()

	l.evictBefore(time.Now().Add(-10 * time.Minute))

	l.mu.Lock()
	_, stale := l.limiters["198.51.100.1"]
	_, fresh := l.limiters["198.51.100.2"]
	l.mu.Unlock()

	if stale {
		t.Error("stale bucket survived the sweep")
	}
	if !fresh {
		t.Error("fresh bucket was evicted")
	}
}

func TestIPLimiterIsolatesClients(t *testing.T) {
	l := newIPLimiter(0.001, 1)

	if !l.allow("203.0.113.1") {
		t.Fatal("burst token should be available")
	}
	if l.allow("203.0.113.1") {
		t.Error("second request should exceed the bucket")
	}
	if !l.allow("203.0.113.2") {
		t.Error("a different client must have its own bucket")
	}
}
