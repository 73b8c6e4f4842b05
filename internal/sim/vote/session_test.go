package vote

import (
	"errors"
	"testing"
	"time"
)

func TestCoordinator_Lifecycle(t *testing.T) {
	now := time.Unix(1000, 0)
	var c Coordinator
	if out := c.Step(now, nil); out.State != Idle {
		t.Fatalf("expected idle, got %s", out.State)
	}

	s := Session{Description: "restart", Command: "restart", CloseAt: now.Add(25 * time.Second), Creator: 0, KickTarget: -1}
	if err := c.Start(s); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := c.Start(s); !errors.Is(err, ErrVoteActive) {
		t.Fatalf("expected ErrVoteActive, got %v", err)
	}
	if got := c.Remaining(now.Add(1500 * time.Millisecond)); got != 23*time.Second {
		t.Fatalf("remaining=%v", got)
	}

	ballots := []Ballot{
		{Slot: 0, Addr: "a", Value: 1, Pos: 1},
		{Slot: 1, Addr: "b"},
		{Slot: 2, Addr: "c"},
	}
	out := c.Step(now, func() []Ballot { return ballots })
	if out.State != Active || !out.StatusChanged || out.Tally != (Tally{Total: 3, Yes: 1}) {
		t.Fatalf("unexpected outcome %+v", out)
	}
	calls := 0
	out = c.Step(now, func() []Ballot { calls++; return ballots })
	if out.StatusChanged || calls != 0 {
		t.Fatalf("unchanged tally should not recount: %+v calls=%d", out, calls)
	}

	ballots[1].Value, ballots[1].Pos = 1, c.NextPos()
	if ballots[1].Pos != 2 {
		t.Fatalf("pos=%d", ballots[1].Pos)
	}
	out = c.Step(now, func() []Ballot { return ballots })
	if out.State != Passed || out.Session.Command != "restart" {
		t.Fatalf("expected pass, got %+v", out)
	}
	if c.Active() {
		t.Fatalf("session should be closed")
	}
}

func TestCoordinator_Timeout(t *testing.T) {
	now := time.Unix(0, 0)
	var c Coordinator
	_ = c.Start(Session{CloseAt: now.Add(time.Second), KickTarget: -1})
	ballots := func() []Ballot {
		return []Ballot{{Slot: 0, Addr: "a", Value: 1, Pos: 1}, {Slot: 1, Addr: "b"}, {Slot: 2, Addr: "c"}}
	}
	if out := c.Step(now, ballots); out.State != Active {
		t.Fatalf("expected active, got %s", out.State)
	}
	if out := c.Step(now.Add(time.Second), ballots); out.State != Active {
		t.Fatalf("deadline is exclusive, got %s", out.State)
	}
	if out := c.Step(now.Add(time.Second+time.Nanosecond), ballots); out.State != Failed {
		t.Fatalf("expected failed, got %s", out.State)
	}
}

func TestCoordinator_AbortAndForce(t *testing.T) {
	now := time.Unix(0, 0)
	var c Coordinator
	_ = c.Start(Session{CloseAt: now.Add(time.Minute), KickTarget: 3})
	if c.AbortForTarget(2) {
		t.Fatalf("slot 2 is not the target")
	}
	if !c.AbortForTarget(3) {
		t.Fatalf("slot 3 is the target")
	}
	if out := c.Step(now, nil); out.State != Aborted || out.Session.KickTarget != 3 {
		t.Fatalf("expected aborted, got %+v", out)
	}

	_ = c.Start(Session{CloseAt: now.Add(time.Minute), KickTarget: -1})
	c.Force(EnforceNo)
	none := func() []Ballot { return []Ballot{{Slot: 0, Addr: "a", Value: 1, Pos: 1}} }
	// A recount that reaches a majority overrides an earlier forced result.
	if out := c.Step(now, none); out.State != Passed {
		t.Fatalf("expected pass from recount, got %s", out.State)
	}

	_ = c.Start(Session{CloseAt: now.Add(time.Minute), KickTarget: -1})
	_ = c.Step(now, func() []Ballot { return []Ballot{{Slot: 0, Addr: "a"}, {Slot: 1, Addr: "b"}, {Slot: 2, Addr: "c"}} })
	c.Force(EnforceNo)
	if out := c.Step(now, nil); out.State != Failed {
		t.Fatalf("expected forced fail, got %s", out.State)
	}
}
