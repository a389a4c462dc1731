package clock

import (
	"math/rand"
	"testing"
)

func TestLamport_AdvanceAndObserve(t *testing.T) {
	c := New(5)
	if got := c.Next(); got != 6 {
		t.Fatalf("Next() = %d, want 6", got)
	}
	if got := c.Now(); got != 5 {
		t.Fatalf("Next advanced the clock: Now() = %d", got)
	}
	if got := c.AdvanceLocal(); got != 6 {
		t.Fatalf("AdvanceLocal() = %d, want 6", got)
	}
	if got := c.Observe(3); got != 6 {
		t.Fatalf("Observe(3) = %d, want 6", got)
	}
	if got := c.Observe(10); got != 10 {
		t.Fatalf("Observe(10) = %d, want 10", got)
	}
	if got := c.AdvanceLocal(); got != 11 {
		t.Fatalf("AdvanceLocal after observe = %d, want 11", got)
	}
}

func TestLamport_Monotonic(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	c := New(0)
	prev := c.Now()
	for i := 0; i < 1000; i++ {
		if rng.Intn(2) == 0 {
			c.AdvanceLocal()
		} else {
			c.Observe(uint64(rng.Intn(2000)))
		}
		if c.Now() < prev {
			t.Fatalf("clock decreased from %d to %d at step %d", prev, c.Now(), i)
		}
		prev = c.Now()
	}
}
