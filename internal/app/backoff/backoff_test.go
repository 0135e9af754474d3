package backoff

import (
	"testing"
	"time"
)

func TestDelayGrowsAndStaysInJitterWindow(t *testing.T) {
	base := 100 * time.Millisecond
	max := 10 * time.Second

	for attempt := 1; attempt <= 5; attempt++ {
		full := base
		for i := 0; i < attempt; i++ {
			full *= 2
		}
		for i := 0; i < 50; i++ {
			d := Delay(base, max, attempt)
			if d < full/2 || d > full {
				t.Fatalf("attempt %d: delay %s outside [%s, %s]", attempt, d, full/2, full)
			}
		}
	}
}

func TestDelayFirstRetryAtLeastBase(t *testing.T) {
	base := 50 * time.Millisecond
	for i := 0; i < 100; i++ {
		if d := Delay(base, time.Minute, 1); d < base {
			t.Fatalf("first retry delay %s below base %s", d, base)
		}
	}
}

func TestDelayCapped(t *testing.T) {
	base := 100 * time.Millisecond
	max := 300 * time.Millisecond

	for i := 0; i < 50; i++ {
		if d := Delay(base, max, 10); d > max {
			t.Fatalf("delay %s exceeds cap %s", d, max)
		}
	}
}

func TestDelayDegenerateInputs(t *testing.T) {
	if d := Delay(0, 0, 0); d <= 0 {
		t.Fatalf("expected positive delay, got %s", d)
	}
	if d := Delay(time.Second, time.Millisecond, 3); d > time.Second {
		t.Fatalf("max below base should clamp to base, got %s", d)
	}
}
