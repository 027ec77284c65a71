// Package ratelimit provides per-client request throttling with
// per-endpoint budgets. Buckets are keyed by client, path tier and method.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Info describes the outcome of a rate limit check.
type Info struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

type bucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// Limiter throttles clients using token buckets, one per
// client+endpoint+method combination.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	config  *Config

	cleanupTicker *time.Ticker
	cleanupStop   chan struct{}
}

// NewLimiter builds a limiter from the given configuration. A nil config
// gets the defaults from LoadConfig.
func NewLimiter(config *Config) *Limiter {
	if config == nil {
		config = LoadConfig()
	}

	l := &Limiter{
		buckets: make(map[string]*bucket),
		config:  config,
	}

	if config.Enabled && config.CleanupInterval > 0 {
		l.cleanupTicker = time.NewTicker(config.CleanupInterval)
		l.cleanupStop = make(chan struct{})
		go l.cleanupLoop()
	}

	return l
}

// Allow checks whether a request from clientID against path+method fits the
// client's budget, consuming a token when it does.
func (l *Limiter) Allow(clientID, path, method string) (bool, Info) {
	if !l.config.Enabled {
		return true, Info{Allowed: true}
	}

	ep := l.config.match(path, method)
	if ep == nil {
		ep = &EndpointConfig{
			Path:   "*",
			Limit:  l.config.DefaultLimit,
			Window: l.config.DefaultWindow,
		}
	}
	// Limit <= 0 means unthrottled (health checks).
	if ep.Limit <= 0 {
		return true, Info{Allowed: true}
	}

	lim := l.bucketFor(clientID+":"+ep.Path+":"+method, ep)

	res := lim.Reserve()
	delay := res.Delay()
	if delay > 0 {
		// Over budget: give the token back and tell the client when to retry.
		res.Cancel()
		return false, Info{
			Allowed:    false,
			Limit:      ep.Limit,
			RetryAfter: delay,
		}
	}

	return true, Info{
		Allowed:   true,
		Limit:     ep.Limit,
		Remaining: int(lim.Tokens()),
	}
}

func (l *Limiter) bucketFor(key string, ep *EndpointConfig) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok {
		burst := ep.Burst
		if burst <= 0 {
			burst = ep.Limit
		}
		window := ep.Window
		if window <= 0 {
			window = time.Minute
		}
		refill := rate.Limit(float64(ep.Limit) / window.Seconds())
		b = &bucket{lim: rate.NewLimiter(refill, burst)}
		l.buckets[key] = b
	}
	b.lastSeen = time.Now()
	return b.lim
}

func (l *Limiter) cleanupLoop() {
	for {
		select {
		case <-l.cleanupTicker.C:
			l.evictIdle()
		case <-l.cleanupStop:
			return
		}
	}
}

// evictIdle drops buckets nobody has touched for an hour so one-off clients
// do not accumulate forever.
func (l *Limiter) evictIdle() {
	cutoff := time.Now().Add(-time.Hour)
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, b := range l.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(l.buckets, key)
		}
	}
}

// Stop terminates the cleanup goroutine.
func (l *Limiter) Stop() {
	if l.cleanupTicker != nil {
		l.cleanupTicker.Stop()
	}
	if l.cleanupStop != nil {
		close(l.cleanupStop)
	}
}
