package demo

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"racecore/internal/protocol"
)

func TestRecorder_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	r := NewRecorder(dir, "demo")
	at := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	r.now = func() time.Time { return at }

	if err := r.Record(10, protocol.ChatMsg{ClientID: -1, Message: "hello"}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := r.Record(11, protocol.VoteClearOptionsMsg{}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	entries, err := ReadFile(filepath.Join(dir, "demo-2026-03-04-05.jsonl.zst"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d", len(entries))
	}
	if entries[0].Tick != 10 || entries[0].Type != protocol.KindChat {
		t.Fatalf("first entry: %+v", entries[0])
	}
	var chat protocol.ChatMsg
	if err := json.Unmarshal(entries[0].Data, &chat); err != nil {
		t.Fatalf("decode chat: %v", err)
	}
	if chat.Message != "hello" || chat.ClientID != -1 {
		t.Fatalf("chat = %+v", chat)
	}
	if entries[1].Type != protocol.KindVoteClearOptions {
		t.Fatalf("second entry: %+v", entries[1])
	}
}

func TestRecorder_RotatesHourly(t *testing.T) {
	dir := t.TempDir()
	r := NewRecorder(dir, "demo")
	at := time.Date(2026, 3, 4, 5, 59, 0, 0, time.UTC)
	r.now = func() time.Time { return at }

	if err := r.Record(1, protocol.BroadcastMsg{Message: "a"}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	at = at.Add(2 * time.Minute)
	if err := r.Record(2, protocol.BroadcastMsg{Message: "b"}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	for hour, tick := range map[string]int64{"05": 1, "06": 2} {
		entries, err := ReadFile(filepath.Join(dir, "demo-2026-03-04-"+hour+".jsonl.zst"))
		if err != nil {
			t.Fatalf("ReadFile %s: %v", hour, err)
		}
		if len(entries) != 1 || entries[0].Tick != tick {
			t.Fatalf("hour %s entries: %+v", hour, entries)
		}
	}
}
