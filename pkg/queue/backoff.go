package queue

import (
	"math/rand"
	"time"
)

// Backoff computes retry delays: exponential doubling from Base, full
// jitter, bounded by Cap.
type Backoff struct {
	Base time.Duration
	Cap  time.Duration

	// rng allows deterministic jitter in tests. Nil uses the global source.
	rng *rand.Rand
}

// Delay returns the delay before the given retry attempt (1-based).
func (b Backoff) Delay(attempt int) time.Duration {
	if b.Base <= 0 {
		b.Base = 500 * time.Millisecond
	}
	if b.Cap <= 0 {
		b.Cap = 30 * time.Second
	}
	if attempt < 1 {
		attempt = 1
	}

	d := b.Base
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= b.Cap {
			d = b.Cap
			break
		}
	}

	// Full jitter: uniform in [d/2, d]. Keeps a floor so retries are
	// never immediate under contention.
	half := d / 2
	var j int64
	if b.rng != nil {
		j = b.rng.Int63n(int64(half) + 1)
	} else {
		j = rand.Int63n(int64(half) + 1)
	}
	return half + time.Duration(j)
}
