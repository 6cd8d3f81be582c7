package server

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateConfig is the per-client token bucket applied to write requests.
type RateConfig struct {
	RPS   float64
	Burst int
}

type limiterEntry struct {
	l        *rate.Limiter
	lastSeen time.Time
}

// limiterPool keeps one limiter per client key. Entries idle longer than
// ttl are dropped on the next lookup sweep.
type limiterPool struct {
	mu        sync.Mutex
	m         map[string]*limiterEntry
	cfg       RateConfig
	ttl       time.Duration
	lastSweep time.Time
	now       func() time.Time
}

func newLimiterPool(cfg RateConfig) *limiterPool {
	if cfg.RPS <= 0 {
		cfg.RPS = 2
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 5
	}
	return &limiterPool{
		m:   make(map[string]*limiterEntry),
		cfg: cfg,
		ttl: 10 * time.Minute,
		now: time.Now,
	}
}

// get returns the limiter for key, creating it on first use.
func (p *limiterPool) get(key string) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	if now.Sub(p.lastSweep) > p.ttl {
		cutoff := now.Add(-p.ttl)
		for k, e := range p.m {
			if e.lastSeen.Before(cutoff) {
				delete(p.m, k)
			}
		}
		p.lastSweep = now
	}

	if e, ok := p.m[key]; ok {
		e.lastSeen = now
		return e.l
	}
	l := rate.NewLimiter(rate.Limit(p.cfg.RPS), p.cfg.Burst)
	p.m[key] = &limiterEntry{l: l, lastSeen: now}
	return l
}

// Allow reports whether a request from key may proceed now.
func (p *limiterPool) Allow(key string) bool {
	return p.get(key).Allow()
}

func (p *limiterPool) size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.m)
}
