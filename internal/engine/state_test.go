package engine

import "testing"

func TestState_OpenGoesFromClosedToIdle(t *testing.T) {
	got, err := Closed.next("open")
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if got != Idle {
		t.Fatalf("want a transition to Idle, got %v", got)
	}
}

func TestState_InvalidTransitionReturnsStateErrorAndLeavesStateUnchanged(t *testing.T) {
	_, err := Closed.next("pause")
	if err == nil {
		t.Fatal("want an invalid transition to return an error")
	}
	se, ok := err.(*StateError)
	if !ok {
		t.Fatalf("want *StateError, got %T", err)
	}
	if se.From != Closed {
		t.Fatalf("want From to be Closed, got %v", se.From)
	}
}

func TestState_PlayToWaitToHaltEdges(t *testing.T) {
	cases := []struct {
		from State
		op   string
		to   State
	}{
		{Play, "buffer_empty", Wait},
		{Play, "stream_changed", Reopen},
		{Play, "pause", Pause},
		{Play, "underrun", Halt},
		{Pause, "resume", Play},
		{Halt, "refilled", Play},
		{Reopen, "reopened", Play},
		{Stop, "close", Closed},
	}
	for _, c := range cases {
		got, err := c.from.next(c.op)
		if err != nil {
			t.Fatalf("%v --%s--> want success: %v", c.from, c.op, err)
		}
		if got != c.to {
			t.Fatalf("%v --%s--> want %v, got %v", c.from, c.op, c.to, got)
		}
	}
}

func TestAlign_RoundsDownToWordWidth(t *testing.T) {
	if got := align(13, 4); got != 12 {
		t.Fatalf("want 12, got %d", got)
	}
	if got := align(16, 4); got != 16 {
		t.Fatalf("want 16, got %d", got)
	}
	if got := align(5, 0); got != 5 {
		t.Fatalf("want unchanged when word=0, got %d", got)
	}
}
