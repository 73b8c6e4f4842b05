package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"racecore/internal/persistence/demo"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "exec":
			execCmd(os.Args[2:])
			return
		case "db":
			dbCmd(os.Args[2:])
			return
		case "demo":
			demoCmd(os.Args[2:])
			return
		}
	}
	listCmd(os.Args[1:])
}

// listCmd prints the recorded demo files, oldest first.
func listCmd(args []string) {
	fs := flag.NewFlagSet("admin", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	_ = fs.Parse(args)

	entries, err := os.ReadDir(filepath.Join(*dataDir, "demos"))
	if err != nil {
		fmt.Fprintln(os.Stderr, "read:", err)
		os.Exit(1)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".jsonl.zst") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	for _, n := range names {
		fmt.Println(n)
	}
}

func demoCmd(args []string) {
	fs := flag.NewFlagSet("demo", flag.ExitOnError)
	typ := fs.String("type", "", "only print messages of this type, e.g. SV_CHAT")
	fromTick := fs.Int64("from_tick", 0, "skip entries before this tick")
	_ = fs.Parse(args)

	if fs.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: admin demo [-type T] [-from_tick N] FILE...")
		os.Exit(2)
	}
	for _, path := range fs.Args() {
		entries, err := demo.ReadFile(path)
		if err != nil {
			fmt.Fprintln(os.Stderr, "read demo:", err)
			os.Exit(1)
		}
		for _, e := range entries {
			if e.Tick < *fromTick {
				continue
			}
			if *typ != "" && string(e.Type) != *typ {
				continue
			}
			printJSON(e)
		}
	}
}
