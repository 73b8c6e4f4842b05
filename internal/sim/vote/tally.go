package vote

// Ballot is one occupied slot's view at tally time.
type Ballot struct {
	Slot      int
	Addr      string
	Spectator bool
	Value     int // >0 yes, <0 no, 0 not cast
	Pos       int // ballot sequence number, 0 if not cast
}

type Tally struct {
	Total int
	Yes   int
	No    int
}

// Pass is the number of eligible voters who have not voted.
func (t Tally) Pass() int { return t.Total - (t.Yes + t.No) }

// Count tallies ballots given in slot order. Spectators are not eligible.
// Slots sharing a network address form one voter whose ballot is the
// earliest one cast among them.
func Count(ballots []Ballot) Tally {
	var t Tally
	checked := make([]bool, len(ballots))
	for i, b := range ballots {
		if b.Spectator || checked[i] {
			continue
		}
		val, pos := b.Value, b.Pos
		for j := i + 1; j < len(ballots); j++ {
			o := ballots[j]
			if o.Spectator || checked[j] || o.Addr != b.Addr {
				continue
			}
			checked[j] = true
			if o.Value != 0 && (val == 0 || pos > o.Pos) {
				val, pos = o.Value, o.Pos
			}
		}

		t.Total++
		if val > 0 {
			t.Yes++
		} else if val < 0 {
			t.No++
		}
	}
	return t
}

type Enforce int

const (
	EnforceUnknown Enforce = iota
	EnforceYes
	EnforceNo
)

func (e Enforce) String() string {
	switch e {
	case EnforceYes:
		return "yes"
	case EnforceNo:
		return "no"
	default:
		return "unknown"
	}
}

// Decide applies the majority rule. Yes needs a strict majority of the
// eligible voters; No wins once it holds at least half, so a tally with
// no eligible voters resolves to No.
func Decide(t Tally) Enforce {
	if t.Yes >= t.Total/2+1 {
		return EnforceYes
	}
	if t.No >= (t.Total+1)/2 {
		return EnforceNo
	}
	return EnforceUnknown
}
