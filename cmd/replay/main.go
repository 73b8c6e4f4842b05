package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"racecore/internal/persistence/demo"
	"racecore/internal/protocol"
)

// replay walks recorded demo files in order, checks that ticks never go
// backwards, and prints the chat transcript with a per-type summary.
func main() {
	var (
		demoDir  = flag.String("demos", "./data/demos", "directory containing demo-*.jsonl.zst")
		fromTick = flag.Int64("from_tick", 0, "start at tick (inclusive, optional)")
		toTick   = flag.Int64("to_tick", 0, "stop at tick (inclusive, optional)")
		quiet    = flag.Bool("quiet", false, "only print the summary")
	)
	flag.Parse()

	files, err := listDemoFiles(*demoDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "list demos:", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "no demo files found in", *demoDir)
		os.Exit(1)
	}

	st := &stats{counts: map[protocol.Kind]int{}}
	for _, path := range files {
		if err := replayFile(path, *fromTick, *toTick, *quiet, st); err != nil {
			fmt.Fprintln(os.Stderr, "replay:", err)
			os.Exit(1)
		}
	}

	kinds := make([]string, 0, len(st.counts))
	for k := range st.counts {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)
	fmt.Printf("replay ok: files=%d entries=%d ticks=%d..%d\n", len(files), st.entries, st.first, st.last)
	for _, k := range kinds {
		fmt.Printf("  %-22s %d\n", k, st.counts[protocol.Kind(k)])
	}
}

type stats struct {
	entries     int
	first, last int64
	counts      map[protocol.Kind]int
}

func listDemoFiles(dir string) ([]string, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(ents))
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, "demo-") && strings.HasSuffix(name, ".jsonl.zst") {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	out := make([]string, 0, len(names))
	for _, name := range names {
		out = append(out, filepath.Join(dir, name))
	}
	return out, nil
}

func replayFile(path string, fromTick, toTick int64, quiet bool, st *stats) error {
	entries, err := demo.ReadFile(path)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.Tick < fromTick {
			continue
		}
		if toTick != 0 && e.Tick > toTick {
			return nil
		}
		if e.Tick < st.last {
			return fmt.Errorf("tick went backwards: %d after %d (file=%s)", e.Tick, st.last, filepath.Base(path))
		}
		if st.entries == 0 {
			st.first = e.Tick
		}
		st.entries++
		st.last = e.Tick
		st.counts[e.Type]++

		if quiet {
			continue
		}
		switch e.Type {
		case protocol.KindChat:
			var c protocol.ChatMsg
			if err := json.Unmarshal(e.Data, &c); err != nil {
				return fmt.Errorf("%s: tick %d: %w", filepath.Base(path), e.Tick, err)
			}
			fmt.Printf("%8d chat [%d] %s\n", e.Tick, c.ClientID, c.Message)
		case protocol.KindBroadcast, protocol.KindMotd:
			fmt.Printf("%8d %s %s\n", e.Tick, e.Type, e.Data)
		}
	}
	return nil
}
