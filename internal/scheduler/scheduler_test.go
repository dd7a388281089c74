package scheduler

import (
	"testing"
	"time"
)

func TestEnqueue_FIFOOrder(t *testing.T) {
	s := New()
	s.Enqueue(Event{Kind: KindIngress, Name: "a"})
	s.Enqueue(Event{Kind: KindIngress, Name: "b"})

	var order []string
	s.Drain(func(ev Event) {
		order = append(order, ev.Name)
	})

	if len(order) != 2 || order[0] != "a" || order[1] != "b" {
		t.Errorf("processing order = %v, want [a b]", order)
	}
}

func TestDrain_EmissionQueuedBehindPending(t *testing.T) {
	s := New()
	s.Enqueue(Event{Kind: KindIngress, Name: "first"})
	s.Enqueue(Event{Kind: KindIngress, Name: "second"})

	var order []string
	s.Drain(func(ev Event) {
		order = append(order, ev.Name)
		if ev.Name == "first" {
			// An emission produced while processing "first" should land
			// behind "second" (already queued).
			s.Enqueue(Event{Kind: KindEmission, Name: "derived"})
		}
	})

	want := []string{"first", "second", "derived"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order[%d] = %q, want %q", i, order[i], want[i])
		}
	}
}

func TestArmTimer_FiresInOrder(t *testing.T) {
	s := New()
	var fired []string
	s.ArmTimer(0, func() { fired = append(fired, "t1") })
	s.ArmTimer(0, func() { fired = append(fired, "t2") })

	time.Sleep(time.Millisecond)
	s.Drain(func(Event) {})

	if len(fired) != 2 || fired[0] != "t1" || fired[1] != "t2" {
		t.Errorf("fired = %v, want [t1 t2] (arming order tie-break)", fired)
	}
}

func TestCancelTimer_SuppressesFire(t *testing.T) {
	s := New()
	fired := false
	id := s.ArmTimer(0, func() { fired = true })
	s.CancelTimer(id)

	time.Sleep(time.Millisecond)
	s.Drain(func(Event) {})

	if fired {
		t.Error("cancelled timer fired")
	}
}

func TestIdle_TrueWhenEmpty(t *testing.T) {
	s := New()
	if !s.Idle() {
		t.Error("fresh scheduler should be idle")
	}
	s.ArmTimer(time.Hour, func() {})
	if s.Idle() {
		t.Error("scheduler with a future timer should not be idle")
	}
}

func TestNextTimerDeadline_SkipsTombstoned(t *testing.T) {
	s := New()
	id := s.ArmTimer(time.Hour, func() {})
	s.CancelTimer(id)
	s.ArmTimer(2*time.Hour, func() {})

	d, ok := s.NextTimerDeadline()
	if !ok {
		t.Fatal("expected a pending timer deadline")
	}
	if d < 2*time.Hour {
		t.Errorf("deadline = %v, want >= 2h (cancelled 1h timer skipped)", d)
	}
}
