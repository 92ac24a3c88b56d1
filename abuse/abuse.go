// Copyright (c) 2025 BVK Chaitanya

// Package abuse gates guest checkout with a honeypot field check and
// in-memory sliding-window rate limits per client ip and per email.
package abuse

import (
	"strings"
	"sync"
	"time"

	"github.com/bvk/salesd/fault"
)

const (
	ipWindow   = 5 * time.Minute
	ipLimit    = 20
	idWindow   = 10 * time.Minute
	idLimit    = 6
	minBackoff = 20 * time.Second
)

type Gate struct {
	mu sync.Mutex

	ipHits map[string][]time.Time
	idHits map[string][]time.Time
}

func NewGate() *Gate {
	return &Gate{
		ipHits: make(map[string][]time.Time),
		idHits: make(map[string][]time.Time),
	}
}

// Allow validates one guest checkout attempt. The honeypot value must be
// empty; bots that fill it get an unspecific validation error. Only
// accepted attempts are recorded, so a rejection never extends the windows
// or the per-email backoff clock.
func (g *Gate) Allow(now time.Time, clientIP, email, honeypot string) error {
	if len(strings.TrimSpace(honeypot)) != 0 {
		return fault.Validationf("invalid request")
	}

	ip := strings.TrimSpace(clientIP)
	id := strings.ToLower(strings.TrimSpace(email))

	g.mu.Lock()
	defer g.mu.Unlock()

	ips := prune(g.ipHits[ip], now, ipWindow)
	ids := prune(g.idHits[id], now, idWindow)
	g.ipHits[ip] = ips
	g.idHits[id] = ids

	if len(ips) >= ipLimit {
		return fault.RateLimitedf("too many checkout attempts from this ip")
	}
	if len(ids) >= idLimit {
		return fault.RateLimitedf("too many checkout attempts for this email")
	}
	if n := len(ids); n > 0 && now.Sub(ids[n-1]) < minBackoff {
		return fault.RateLimitedf("please wait before retrying checkout")
	}

	g.ipHits[ip] = append(ips, now)
	g.idHits[id] = append(ids, now)
	return nil
}

func prune(hits []time.Time, now time.Time, window time.Duration) []time.Time {
	cutoff := now.Add(-window)
	i := 0
	for i < len(hits) && !hits[i].After(cutoff) {
		i++
	}
	return hits[i:]
}
