package clock

import (
	"testing"
	"time"
)

func TestMockSleepAdvancesTime(t *testing.T) {
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	c := NewMock(start)

	c.Sleep(300 * time.Millisecond)
	c.Sleep(6 * time.Second)

	if got, want := c.Now(), start.Add(6300*time.Millisecond); !got.Equal(want) {
		t.Errorf("Now: got %v, want %v", got, want)
	}

	slept := c.Slept()
	if len(slept) != 2 {
		t.Fatalf("expected 2 sleeps, got %d", len(slept))
	}
	if slept[0] != 300*time.Millisecond || slept[1] != 6*time.Second {
		t.Errorf("unexpected sleeps: %v", slept)
	}
}

func TestMockAdvanceAndSet(t *testing.T) {
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	c := NewMock(start)

	c.Advance(time.Minute)
	if !c.Now().Equal(start.Add(time.Minute)) {
		t.Errorf("after Advance: got %v", c.Now())
	}

	later := start.Add(time.Hour)
	c.Set(later)
	if !c.Now().Equal(later) {
		t.Errorf("after Set: got %v", c.Now())
	}
	if len(c.Slept()) != 0 {
		t.Error("Advance/Set should not record sleeps")
	}
}
