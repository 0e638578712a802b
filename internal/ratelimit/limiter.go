// Package ratelimit implements a per-domain token bucket.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/JakeFAU/seo-auditor/internal/metrics"
)

// bucket holds the refill state for one domain.
type bucket struct {
	mu         sync.Mutex
	tokens     float64
	maxTokens  float64
	refillRate float64 // tokens per second
	lastRefill time.Time
}

// Limiter hands out fetch permission per domain. Each domain gets an
// independent bucket created on first use; tokens refill continuously
// at the configured rate and never exceed the burst capacity.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket

	rate  float64
	burst float64

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// New builds a Limiter with the given refill rate (requests per second)
// and burst capacity.
func New(rate, burst float64) *Limiter {
	return &Limiter{
		buckets: make(map[string]*bucket),
		rate:    rate,
		burst:   burst,
		now:     time.Now,
		sleep:   sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (l *Limiter) bucketFor(domain string) *bucket {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.buckets[domain]
	if !ok {
		b = &bucket{
			tokens:     l.burst,
			maxTokens:  l.burst,
			refillRate: l.rate,
			lastRefill: l.now(),
		}
		l.buckets[domain] = b
	}
	return b
}

// Acquire blocks until a token is available for the domain, or the
// context is canceled. The wait never exceeds the time needed for one
// full token to accrue.
func (l *Limiter) Acquire(ctx context.Context, domain string) error {
	b := l.bucketFor(domain)

	b.mu.Lock()
	now := l.now()
	elapsed := now.Sub(b.lastRefill).Seconds()
	b.tokens += elapsed * b.refillRate
	if b.tokens > b.maxTokens {
		b.tokens = b.maxTokens
	}
	b.lastRefill = now

	if b.tokens >= 1 {
		b.tokens--
		b.mu.Unlock()
		return nil
	}

	// Not enough accumulated. Wait out the deficit for one full token,
	// then consume everything that accrued during the wait.
	wait := time.Duration((1 - b.tokens) / b.refillRate * float64(time.Second))
	b.mu.Unlock()

	metrics.ObserveRateLimitDelay(domain, wait)
	if err := l.sleep(ctx, wait); err != nil {
		return err
	}

	b.mu.Lock()
	b.tokens = 0
	b.lastRefill = l.now()
	b.mu.Unlock()
	return nil
}

// Restrict lowers a domain's refill rate, typically to honor a
// robots.txt Crawl-delay. The rate only ever tightens; a value at or
// above the current rate is a no-op, as is a non-positive one.
func (l *Limiter) Restrict(domain string, rate float64) {
	if rate <= 0 {
		return
	}
	b := l.bucketFor(domain)
	b.mu.Lock()
	defer b.mu.Unlock()
	if rate < b.refillRate {
		b.refillRate = rate
	}
}

// Tokens reports the current token count for a domain without
// consuming anything. Domains never seen report full burst.
func (l *Limiter) Tokens(domain string) float64 {
	b := l.bucketFor(domain)
	b.mu.Lock()
	defer b.mu.Unlock()
	tokens := b.tokens + l.now().Sub(b.lastRefill).Seconds()*b.refillRate
	if tokens > b.maxTokens {
		tokens = b.maxTokens
	}
	if tokens < 0 {
		tokens = 0
	}
	return tokens
}
