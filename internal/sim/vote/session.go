package vote

import (
	"errors"
	"time"
)

var ErrVoteActive = errors.New("vote already in progress")

type State int

const (
	Idle State = iota
	Active
	Passed
	Failed
	Aborted
)

func (s State) String() string {
	switch s {
	case Active:
		return "active"
	case Passed:
		return "passed"
	case Failed:
		return "failed"
	case Aborted:
		return "aborted"
	default:
		return "idle"
	}
}

// Session is the single running vote.
type Session struct {
	Description string
	Command     string
	CloseAt     time.Time
	Creator     int
	// KickTarget is the slot a kick or ban vote is about, -1 otherwise.
	KickTarget int
}

// Outcome is what one Step observed.
type Outcome struct {
	State   State
	Session Session
	Tally   Tally
	// StatusChanged is set when an unresolved tally was recomputed.
	StatusChanged bool
}

// Coordinator tracks at most one Session. Ballots themselves live on the
// player slots; the coordinator only hands out sequence numbers and is told
// when they change.
type Coordinator struct {
	session *Session
	enforce Enforce
	aborted bool
	dirty   bool
	seq     int
}

func (c *Coordinator) Active() bool { return c.session != nil }

// Current returns the running session, if any.
func (c *Coordinator) Current() (Session, bool) {
	if c.session == nil {
		return Session{}, false
	}
	return *c.session, true
}

// Start opens a session. The creator's ballot position is 1.
func (c *Coordinator) Start(s Session) error {
	if c.session != nil {
		return ErrVoteActive
	}
	cp := s
	c.session = &cp
	c.enforce = EnforceUnknown
	c.aborted = false
	c.dirty = true
	c.seq = 1
	return nil
}

// NextPos hands out the next ballot sequence number.
func (c *Coordinator) NextPos() int {
	c.seq++
	c.dirty = true
	return c.seq
}

// MarkDirty requests a recount on the next Step.
func (c *Coordinator) MarkDirty() { c.dirty = true }

// Force overrides the ballots; it takes effect on the next Step.
func (c *Coordinator) Force(e Enforce) { c.enforce = e }

// Abort flags the running session; it is closed on the next Step.
func (c *Coordinator) Abort() {
	if c.session != nil {
		c.aborted = true
	}
}

// AbortForTarget aborts a kick or ban vote whose target is slot.
func (c *Coordinator) AbortForTarget(slot int) bool {
	if c.session == nil || c.session.KickTarget < 0 || c.session.KickTarget != slot {
		return false
	}
	c.aborted = true
	return true
}

// Remaining is the time left before the deadline, rounded down to seconds.
func (c *Coordinator) Remaining(now time.Time) time.Duration {
	if c.session == nil {
		return 0
	}
	d := c.session.CloseAt.Sub(now)
	if d < 0 {
		return 0
	}
	return d.Truncate(time.Second)
}

// Step advances the state machine once. ballots is only called when a
// recount is due. Terminal states close the session before returning.
func (c *Coordinator) Step(now time.Time, ballots func() []Ballot) Outcome {
	if c.session == nil {
		return Outcome{State: Idle}
	}
	s := *c.session
	if c.aborted {
		c.end()
		return Outcome{State: Aborted, Session: s}
	}

	var t Tally
	recount := c.dirty
	if recount {
		t = Count(ballots())
		switch Decide(t) {
		case EnforceYes:
			c.enforce = EnforceYes
		case EnforceNo:
			c.enforce = EnforceNo
		}
	}

	switch {
	case c.enforce == EnforceYes:
		c.end()
		return Outcome{State: Passed, Session: s, Tally: t}
	case c.enforce == EnforceNo || now.After(s.CloseAt):
		c.end()
		return Outcome{State: Failed, Session: s, Tally: t}
	case recount:
		c.dirty = false
		return Outcome{State: Active, Session: s, Tally: t, StatusChanged: true}
	}
	return Outcome{State: Active, Session: s}
}

func (c *Coordinator) end() {
	c.session = nil
	c.enforce = EnforceUnknown
	c.aborted = false
	c.dirty = false
}
