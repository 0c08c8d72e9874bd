// Package ratelimit implements the per-session, per-device-class token
// bucket gate described by the portal spec: constant-time, non-blocking,
// never suspends the caller.
package ratelimit

import (
	"sync"

	"github.com/juju/ratelimit"

	"github.com/bnema/waymon/internal/devicemodel"
)

// Decision is the outcome of a Check call.
type Decision int

const (
	Allow Decision = iota
	Drop
)

// BucketConfig configures a single token bucket.
type BucketConfig struct {
	// Rate is the steady-state refill rate, in events per second.
	Rate float64
	// Burst is the bucket capacity; values below 1 are treated as 1.
	Burst int64
}

// Config configures one bucket per device class. Classes not present
// fall back to DefaultConfig's corresponding entry.
type Config struct {
	Keyboard    BucketConfig
	Pointer     BucketConfig
	Touchscreen BucketConfig
}

// DefaultConfig matches spec.md §6.3's defaults.
var DefaultConfig = Config{
	Keyboard:    BucketConfig{Rate: 1000, Burst: 100},
	Pointer:     BucketConfig{Rate: 1000, Burst: 100},
	Touchscreen: BucketConfig{Rate: 500, Burst: 50},
}

func (c Config) forClass(class devicemodel.DeviceType) BucketConfig {
	var bc, def BucketConfig
	switch class {
	case devicemodel.Keyboard:
		bc, def = c.Keyboard, DefaultConfig.Keyboard
	case devicemodel.Pointer:
		bc, def = c.Pointer, DefaultConfig.Pointer
	case devicemodel.Touchscreen:
		bc, def = c.Touchscreen, DefaultConfig.Touchscreen
	default:
		return BucketConfig{Rate: 1000, Burst: 100}
	}
	if bc == (BucketConfig{}) {
		return def
	}
	return bc
}

type sessionKey struct {
	session string
	class   devicemodel.DeviceType
}

// Limiter owns one token bucket per (session, device class) pair,
// created lazily and dropped on Forget.
type Limiter struct {
	cfg Config

	mu      sync.Mutex
	buckets map[sessionKey]*ratelimit.Bucket
}

// New creates a Limiter using cfg for newly created buckets.
func New(cfg Config) *Limiter {
	return &Limiter{
		cfg:     cfg,
		buckets: make(map[sessionKey]*ratelimit.Bucket),
	}
}

// Register creates the per-class buckets for session, one per device
// class the portal ever checks. Callers (the session manager) must
// Register a session before its first Check — matching spec.md §4.2's
// failure mode, an unregistered session is treated as absent, not as a
// fresh full bucket. Registering is idempotent: existing buckets for
// session are left untouched.
func (l *Limiter) Register(session string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, class := range []devicemodel.DeviceType{devicemodel.Keyboard, devicemodel.Pointer, devicemodel.Touchscreen} {
		key := sessionKey{session: session, class: class}
		if _, ok := l.buckets[key]; ok {
			continue
		}
		bc := l.cfg.forClass(class)
		burst := bc.Burst
		if burst < 1 {
			burst = 1
		}
		l.buckets[key] = ratelimit.NewBucketWithRate(bc.Rate, burst)
	}
}

// Check consults the bucket for (session, class) and returns Allow if a
// token was available, Drop otherwise. It never blocks. Per spec.md
// §4.2's failure mode, an unregistered (session, class) pair — one that
// never went through Register — returns Drop rather than being granted
// a fresh bucket on the spot.
func (l *Limiter) Check(session string, class devicemodel.DeviceType) Decision {
	key := sessionKey{session: session, class: class}

	l.mu.Lock()
	bucket, ok := l.buckets[key]
	l.mu.Unlock()

	if !ok {
		return Drop
	}
	if bucket.TakeAvailable(1) == 1 {
		return Allow
	}
	return Drop
}

// Forget releases all buckets belonging to session, e.g. on session
// close, so rate-limiter memory does not grow unbounded across the
// process lifetime.
func (l *Limiter) Forget(session string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for key := range l.buckets {
		if key.session == session {
			delete(l.buckets, key)
		}
	}
}
