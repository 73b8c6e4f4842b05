package store

import (
	"errors"
	"sort"
	"strings"
	"time"
)

var ErrNotBanned = errors.New("address is not banned")

type Ban struct {
	Addr   string
	Reason string
	// Expires is zero for a permanent ban.
	Expires time.Time
}

func (b Ban) expired(now time.Time) bool {
	return !b.Expires.IsZero() && !now.Before(b.Expires)
}

// Ban bans addr for d, or permanently when d is zero.
func (s *Store) Ban(addr string, d time.Duration, reason string) error {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return errors.New("empty address")
	}
	b := Ban{Addr: addr, Reason: reason}
	if d > 0 {
		b.Expires = s.now().Add(d)
	}
	s.banMu.Lock()
	s.bans[addr] = b
	s.banMu.Unlock()
	s.enqueue(req{kind: reqBan, ban: b})
	return nil
}

func (s *Store) Unban(addr string) error {
	s.banMu.Lock()
	_, ok := s.bans[addr]
	delete(s.bans, addr)
	s.banMu.Unlock()
	if !ok {
		return ErrNotBanned
	}
	s.enqueue(req{kind: reqUnban, ban: Ban{Addr: addr}})
	return nil
}

// Banned reports the live ban on addr. Safe for concurrent use by transports.
func (s *Store) Banned(addr string) (Ban, bool) {
	if s == nil {
		return Ban{}, false
	}
	s.banMu.RLock()
	b, ok := s.bans[addr]
	s.banMu.RUnlock()
	if !ok || b.expired(s.now()) {
		return Ban{}, false
	}
	return b, true
}

// Bans lists live bans ordered by address.
func (s *Store) Bans() []Ban {
	now := s.now()
	s.banMu.RLock()
	out := make([]Ban, 0, len(s.bans))
	for _, b := range s.bans {
		if !b.expired(now) {
			out = append(out, b)
		}
	}
	s.banMu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Addr < out[j].Addr })
	return out
}
