package ratelimit

import (
	"testing"
	"time"
)

func TestAllowConsumesBurst(t *testing.T) {
	// Effectively no refill during the test.
	l := NewLimiter(0.001, 3)

	for i := 0; i < 3; i++ {
		if !l.Allow() {
			t.Fatalf("request %d should be allowed within burst", i)
		}
	}
	if l.Allow() {
		t.Error("request beyond burst should be denied")
	}
}

func TestAllowRefills(t *testing.T) {
	l := NewLimiter(100, 1)

	if !l.Allow() {
		t.Fatal("first request should be allowed")
	}
	if l.Allow() {
		t.Fatal("bucket should be empty")
	}

	time.Sleep(50 * time.Millisecond)
	if !l.Allow() {
		t.Error("bucket should have refilled")
	}
}

func TestRefillCapsAtBurst(t *testing.T) {
	l := NewLimiter(1000, 2)
	time.Sleep(20 * time.Millisecond)

	allowed := 0
	for i := 0; i < 10; i++ {
		if l.Allow() {
			allowed++
		}
	}
	if allowed > 3 {
		t.Errorf("expected at most burst+refill allowances, got %d", allowed)
	}
}
