package timewheel

import (
	"testing"
	"time"
)

func TestTicksForRoundsUp(t *testing.T) {
	tick := time.Millisecond
	if got := TicksFor(0, tick); got != 0 {
		t.Fatalf("zero duration should be 0 ticks, got %d", got)
	}
	if got := TicksFor(time.Millisecond, tick); got != 1 {
		t.Fatalf("exact tick should be 1 tick, got %d", got)
	}
	if got := TicksFor(time.Millisecond+time.Microsecond, tick); got != 2 {
		t.Fatalf("over one tick should round up to 2, got %d", got)
	}
}

func TestAddRemoveRoundTrip(t *testing.T) {
	w := New[int](8, time.Millisecond)
	s := w.Add(3, 42)
	w.Remove(s)

	// advancing past where it would have fired should yield nothing.
	if got := w.AdvanceBy(5); len(got) != 0 {
		t.Fatalf("expected no expirations after removal, got %v", got)
	}
}

func TestExpiryWithinWindow(t *testing.T) {
	w := New[string](DefaultSlots, DefaultTick)
	w.Add(20, "timer-a")

	got := w.AdvanceBy(19)
	if len(got) != 0 {
		t.Fatalf("timer fired early: %v", got)
	}

	got = w.AdvanceBy(1)
	if len(got) != 1 || got[0] != "timer-a" {
		t.Fatalf("expected timer-a to expire at tick 20, got %v", got)
	}
}

func TestMultiLapWraparound(t *testing.T) {
	w := New[int](4, time.Millisecond)
	// 10 ticks on a 4-slot wheel wraps twice (round=2) before landing on
	// slot (0+10)%4 = 2.
	w.Add(10, 99)

	got := w.AdvanceBy(9)
	if len(got) != 0 {
		t.Fatalf("expected nothing before final lap, got %v", got)
	}
	got = w.AdvanceBy(1)
	if len(got) != 1 || got[0] != 99 {
		t.Fatalf("expected wraparound expiry, got %v", got)
	}
}

func TestAdvanceDoesNotRefireExpiredEntries(t *testing.T) {
	w := New[int](8, time.Millisecond)
	w.Add(2, 7)
	first := w.AdvanceBy(2)
	if len(first) != 1 {
		t.Fatalf("expected one expiry, got %d", len(first))
	}
	// looping all the way back around must not re-yield the same entry.
	second := w.AdvanceBy(8)
	if len(second) != 0 {
		t.Fatalf("expected no re-fire, got %v", second)
	}
}
