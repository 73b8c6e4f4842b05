package vote

import "testing"

func TestDecide_Thresholds(t *testing.T) {
	for total := 0; total <= 64; total++ {
		yesNeed := total/2 + 1
		noNeed := (total + 1) / 2
		for yes := 0; yes <= total; yes++ {
			for no := 0; yes+no <= total; no++ {
				got := Decide(Tally{Total: total, Yes: yes, No: no})
				want := EnforceUnknown
				if yes >= yesNeed {
					want = EnforceYes
				} else if no >= noNeed {
					want = EnforceNo
				}
				if got != want {
					t.Fatalf("total=%d yes=%d no=%d: got %s want %s", total, yes, no, got, want)
				}
			}
		}
	}
	if Decide(Tally{}) != EnforceNo {
		t.Fatalf("zero voters must never pass")
	}
}

func TestCount_ThreeVoters(t *testing.T) {
	tl := Count([]Ballot{
		{Slot: 0, Addr: "1.1.1.1", Value: 1, Pos: 1},
		{Slot: 1, Addr: "2.2.2.2", Value: 1, Pos: 2},
		{Slot: 2, Addr: "3.3.3.3", Value: -1, Pos: 3},
	})
	if tl != (Tally{Total: 3, Yes: 2, No: 1}) {
		t.Fatalf("tally=%+v", tl)
	}
	if Decide(tl) != EnforceYes {
		t.Fatalf("expected forced yes")
	}
}

func TestCount_SharedAddressUsesEarliestBallot(t *testing.T) {
	tl := Count([]Ballot{
		{Slot: 0, Addr: "9.9.9.9", Value: 1, Pos: 1},
		{Slot: 1, Addr: "5.5.5.5", Value: 1, Pos: 4},
		{Slot: 2, Addr: "5.5.5.5", Value: -1, Pos: 2},
		{Slot: 3, Addr: "5.5.5.5", Value: 0},
	})
	if tl != (Tally{Total: 2, Yes: 1, No: 1}) {
		t.Fatalf("tally=%+v", tl)
	}

	// The lower slot has not voted yet; the paired slot's ballot stands in.
	tl = Count([]Ballot{
		{Slot: 0, Addr: "5.5.5.5", Value: 0},
		{Slot: 1, Addr: "5.5.5.5", Value: 1, Pos: 3},
	})
	if tl != (Tally{Total: 1, Yes: 1}) {
		t.Fatalf("tally=%+v", tl)
	}
}

func TestCount_SpectatorsExcluded(t *testing.T) {
	tl := Count([]Ballot{
		{Slot: 0, Addr: "a", Value: 1, Pos: 1},
		{Slot: 1, Addr: "b", Spectator: true, Value: -1, Pos: 2},
		{Slot: 2, Addr: "a", Spectator: true, Value: -1, Pos: 0},
	})
	if tl != (Tally{Total: 1, Yes: 1}) {
		t.Fatalf("tally=%+v", tl)
	}
	if tl.Pass() != 0 {
		t.Fatalf("pass=%d", tl.Pass())
	}
}
