package backoff

import (
	"math/rand"
	"time"
)

// Delay computes the wait before retry number attempt (1-based):
// base * 2^attempt, capped at max, with equal jitter so the result lands in
// [d/2, d]. For attempt 1 that guarantees a delay of at least base.
func Delay(base, max time.Duration, attempt int) time.Duration {
	if base <= 0 {
		base = time.Millisecond
	}
	if max < base {
		max = base
	}
	if attempt < 0 {
		attempt = 0
	}

	d := base
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= max {
			d = max
			break
		}
	}

	half := d / 2
	return half + time.Duration(rand.Int63n(int64(half)+1))
}
