// Copyright (c) 2025 BVK Chaitanya

package abuse

import (
	"fmt"
	"testing"
	"time"

	"github.com/bvk/salesd/fault"
)

func TestHoneypot(t *testing.T) {
	g := NewGate()
	now := time.Now()
	if err := g.Allow(now, "1.2.3.4", "a@example.com", "filled-by-a-bot"); !fault.IsKind(err, fault.Validation) {
		t.Fatalf("wanted validation error, got %v", err)
	}
	if err := g.Allow(now, "1.2.3.4", "a@example.com", ""); err != nil {
		t.Fatal(err)
	}
}

func TestIPWindow(t *testing.T) {
	g := NewGate()
	now := time.Now()

	// Distinct emails keep the per-email gates out of the way.
	for i := 0; i < 20; i++ {
		email := fmt.Sprintf("u%d@example.com", i)
		if err := g.Allow(now, "1.2.3.4", email, ""); err != nil {
			t.Fatalf("attempt %d: %v", i, err)
		}
	}
	if err := g.Allow(now, "1.2.3.4", "u20@example.com", ""); !fault.IsKind(err, fault.RateLimited) {
		t.Fatalf("wanted rate-limited, got %v", err)
	}

	// Other addresses are unaffected.
	if err := g.Allow(now, "5.6.7.8", "u21@example.com", ""); err != nil {
		t.Fatal(err)
	}

	// Once the window passes the address is admitted again.
	later := now.Add(6 * time.Minute)
	if err := g.Allow(later, "1.2.3.4", "u22@example.com", ""); err != nil {
		t.Fatal(err)
	}
}

func TestEmailWindow(t *testing.T) {
	g := NewGate()
	now := time.Now()

	// Spaced beyond the minimum interval, from rotating addresses, the
	// per-email window still caps the attempts.
	for i := 0; i < 6; i++ {
		at := now.Add(time.Duration(i) * 30 * time.Second)
		ip := fmt.Sprintf("10.0.0.%d", i)
		if err := g.Allow(at, ip, "buyer@example.com", ""); err != nil {
			t.Fatalf("attempt %d: %v", i, err)
		}
	}
	at := now.Add(6 * 30 * time.Second)
	if err := g.Allow(at, "10.0.0.6", "buyer@example.com", ""); !fault.IsKind(err, fault.RateLimited) {
		t.Fatalf("wanted rate-limited, got %v", err)
	}

	// Email matching is case-insensitive.
	if err := g.Allow(at, "10.0.0.7", "BUYER@example.com", ""); !fault.IsKind(err, fault.RateLimited) {
		t.Fatalf("wanted rate-limited for the upper-cased email, got %v", err)
	}
}

func TestEmailMinInterval(t *testing.T) {
	g := NewGate()
	now := time.Now()

	if err := g.Allow(now, "1.2.3.4", "buyer@example.com", ""); err != nil {
		t.Fatal(err)
	}
	if err := g.Allow(now.Add(10*time.Second), "1.2.3.4", "buyer@example.com", ""); !fault.IsKind(err, fault.RateLimited) {
		t.Fatalf("wanted rate-limited, got %v", err)
	}
	// A rejection leaves no trace; the clock keeps running from the last
	// accepted attempt, so 25s after it the email is admitted again.
	if err := g.Allow(now.Add(25*time.Second), "1.2.3.4", "buyer@example.com", ""); err != nil {
		t.Fatal(err)
	}
}

func TestRejectionsLeaveNoTrace(t *testing.T) {
	g := NewGate()
	now := time.Now()

	// Fill the ip window, then hammer it; the rejections must not renew it.
	for i := 0; i < 20; i++ {
		email := fmt.Sprintf("u%d@example.com", i)
		if err := g.Allow(now, "1.2.3.4", email, ""); err != nil {
			t.Fatalf("attempt %d: %v", i, err)
		}
	}
	for i := 0; i < 5; i++ {
		at := now.Add(4*time.Minute + time.Duration(i)*time.Second)
		if err := g.Allow(at, "1.2.3.4", "late@example.com", ""); !fault.IsKind(err, fault.RateLimited) {
			t.Fatalf("wanted rate-limited, got %v", err)
		}
	}
	if err := g.Allow(now.Add(5*time.Minute+time.Second), "1.2.3.4", "late@example.com", ""); err != nil {
		t.Fatal(err)
	}
}
