package main

import (
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// dbCmd queries the score store directly. The server may keep running; the
// store uses WAL so reads do not block it.
func dbCmd(args []string) {
	fs := flag.NewFlagSet("db", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	dbPath := fs.String("db", "", "sqlite db path (optional)")
	limit := fs.Int("limit", 20, "result limit")
	name := fs.String("name", "", "name filter (substring, scores only)")
	_ = fs.Parse(args)

	q := "scores"
	if fs.NArg() > 0 {
		q = strings.TrimSpace(fs.Arg(0))
	}

	path := strings.TrimSpace(*dbPath)
	if path == "" {
		path = filepath.Join(*dataDir, "race.db")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	defer db.Close()

	if *limit <= 0 {
		*limit = 20
	}

	switch q {
	case "scores":
		rows, err := db.Query(`SELECT name,best_ms,finishes,updated_at FROM scores WHERE name LIKE ? ORDER BY best_ms ASC, name ASC LIMIT ?`, "%"+*name+"%", *limit)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		defer rows.Close()
		rank := 0
		for rows.Next() {
			var r struct {
				Rank      int     `json:"rank"`
				Name      string  `json:"name"`
				BestMS    int64   `json:"best_ms"`
				Seconds   float64 `json:"seconds"`
				Finishes  int     `json:"finishes"`
				UpdatedAt string  `json:"updated_at"`
			}
			if err := rows.Scan(&r.Name, &r.BestMS, &r.Finishes, &r.UpdatedAt); err != nil {
				fmt.Fprintln(os.Stderr, "scan:", err)
				os.Exit(1)
			}
			rank++
			r.Rank = rank
			r.Seconds = float64(r.BestMS) / 1000
			printJSON(r)
		}
		if err := rows.Err(); err != nil {
			fmt.Fprintln(os.Stderr, "rows:", err)
			os.Exit(1)
		}

	case "bans":
		rows, err := db.Query(`SELECT addr,expires_at,reason,created_at FROM bans ORDER BY created_at DESC LIMIT ?`, *limit)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		defer rows.Close()
		now := time.Now()
		for rows.Next() {
			var (
				r struct {
					Addr      string `json:"addr"`
					Reason    string `json:"reason"`
					Expires   string `json:"expires,omitempty"`
					Expired   bool   `json:"expired,omitempty"`
					CreatedAt string `json:"created_at"`
				}
				exp int64
			)
			if err := rows.Scan(&r.Addr, &exp, &r.Reason, &r.CreatedAt); err != nil {
				fmt.Fprintln(os.Stderr, "scan:", err)
				os.Exit(1)
			}
			if exp > 0 {
				t := time.Unix(exp, 0)
				r.Expires = t.UTC().Format(time.RFC3339)
				r.Expired = !t.After(now)
			}
			printJSON(r)
		}
		if err := rows.Err(); err != nil {
			fmt.Fprintln(os.Stderr, "rows:", err)
			os.Exit(1)
		}

	default:
		fmt.Fprintln(os.Stderr, "unknown query:", q, "(want scores or bans)")
		os.Exit(2)
	}
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}
