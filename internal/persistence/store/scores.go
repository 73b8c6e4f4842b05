package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"racecore/internal/sim/game"
)

var _ game.Scores = (*Store)(nil)

func (s *Store) valid(slot int) bool { return slot >= 0 && slot < len(s.players) }

func (s *Store) ResetPlayer(slot int) {
	if !s.valid(slot) {
		return
	}
	s.players[slot] = entry{}
}

// LoadScore binds slot to name and fetches the stored best time. The result
// arrives as a Load reply and takes effect in Apply.
func (s *Store) LoadScore(slot int, name string) {
	if !s.valid(slot) {
		return
	}
	s.players[slot].name = name
	s.enqueue(req{kind: reqLoad, slot: slot, name: name})
}

func (s *Store) PlayerData(slot int) game.PlayerData {
	if !s.valid(slot) {
		return game.PlayerData{}
	}
	e := s.players[slot]
	return game.PlayerData{BestTime: e.best, CurTime: e.cur}
}

func (s *Store) Record() time.Duration { return s.record }

func (s *Store) ShowTop5(slot int, start int) {
	if start < 1 {
		start = 1
	}
	s.enqueue(req{kind: reqTop5, slot: slot, start: start})
}

func (s *Store) ShowRank(slot int, name string, search bool) {
	s.enqueue(req{kind: reqRank, slot: slot, name: name, search: search})
}

// Apply folds a Load reply into the slot cache. Replies for a slot that was
// reused by another name in the meantime are ignored.
func (s *Store) Apply(r Reply) {
	if !r.Load || !s.valid(r.Slot) {
		return
	}
	e := &s.players[r.Slot]
	if e.name != r.Name {
		return
	}
	if r.Best > 0 && (e.best == 0 || r.Best < e.best) {
		e.best = r.Best
	}
}

// Finish records a completed run for slot. It reports whether the run beat
// the player's best and whether it set a new server record.
func (s *Store) Finish(slot int, t time.Duration) (personal, record bool) {
	if !s.valid(slot) || t <= 0 {
		return false, false
	}
	e := &s.players[slot]
	e.cur = t
	if e.best == 0 || t < e.best {
		e.best = t
		personal = true
	}
	if s.record == 0 || t < s.record {
		s.record = t
		record = true
	}
	if e.name != "" {
		s.enqueue(req{kind: reqFinish, name: e.name, ms: t.Milliseconds()})
	}
	return personal, record
}

func (s *Store) loadScore(slot int, name string) (Reply, error) {
	out := Reply{Slot: slot, Load: true, Name: name}
	var ms int64
	err := s.db.QueryRow(`SELECT best_ms FROM scores WHERE name=?`, name).Scan(&ms)
	if errors.Is(err, sql.ErrNoRows) {
		return out, nil
	}
	if err != nil {
		return out, err
	}
	out.Best = time.Duration(ms) * time.Millisecond
	return out, nil
}

func (s *Store) top5(slot, start int) (Reply, error) {
	rows, err := s.db.Query(`SELECT name, best_ms FROM scores ORDER BY best_ms ASC, name ASC LIMIT 5 OFFSET ?`, start-1)
	if err != nil {
		return Reply{}, err
	}
	defer rows.Close()

	out := Reply{Slot: slot, Lines: []string{"----------- Top 5 -----------"}}
	pos := start
	for rows.Next() {
		var (
			name string
			ms   int64
		)
		if err := rows.Scan(&name, &ms); err != nil {
			return Reply{}, err
		}
		out.Lines = append(out.Lines, rankLine(pos, name, ms))
		pos++
	}
	if err := rows.Err(); err != nil {
		return Reply{}, err
	}
	out.Lines = append(out.Lines, "------------------------------")
	return out, nil
}

func (s *Store) rank(slot int, name string, search bool) (Reply, error) {
	out := Reply{Slot: slot}

	found := name
	var ms int64
	err := s.db.QueryRow(`SELECT best_ms FROM scores WHERE name=?`, name).Scan(&ms)
	if errors.Is(err, sql.ErrNoRows) && search {
		err = s.db.QueryRow(`SELECT name, best_ms FROM scores WHERE name LIKE ? ORDER BY best_ms ASC, name ASC LIMIT 1`,
			"%"+name+"%").Scan(&found, &ms)
	}
	if errors.Is(err, sql.ErrNoRows) {
		if search {
			out.Lines = []string{fmt.Sprintf("%s is not ranked", name)}
		} else {
			out.Lines = []string{"You are not ranked"}
		}
		return out, nil
	}
	if err != nil {
		return out, err
	}

	var ahead int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM scores WHERE best_ms < ?`, ms).Scan(&ahead); err != nil {
		return out, err
	}
	out.Lines = []string{rankLine(ahead+1, found, ms)}
	return out, nil
}

func rankLine(pos int, name string, ms int64) string {
	return fmt.Sprintf("%d. %s Time: %d minute(s) %.2f second(s)", pos, name, ms/60000, float64(ms%60000)/1000)
}
