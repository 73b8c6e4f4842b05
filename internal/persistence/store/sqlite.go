// Package store keeps race scores and address bans in SQLite.
//
// All database access happens on one writer goroutine. Callers on the tick
// goroutine enqueue requests and never wait; lookups come back on Replies.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"racecore/internal/config"
)

type Store struct {
	db  *sql.DB
	log *log.Logger
	now func() time.Time

	ch      chan req
	replies chan Reply
	wg      sync.WaitGroup
	once    sync.Once

	closed atomic.Bool

	// Owned by the host goroutine.
	players [config.MaxClients]entry
	record  time.Duration

	banMu sync.RWMutex
	bans  map[string]Ban
}

type entry struct {
	name string
	best time.Duration
	cur  time.Duration
}

type reqKind int

const (
	reqFinish reqKind = iota + 1
	reqBan
	reqUnban
	reqLoad
	reqTop5
	reqRank
)

type req struct {
	kind reqKind

	slot   int
	name   string
	ms     int64
	start  int
	search bool
	ban    Ban
}

// Reply carries the result of an asynchronous lookup for one slot.
type Reply struct {
	Slot  int
	Lines []string

	// Load replies carry the stored best time of Name.
	Load bool
	Name string
	Best time.Duration
}

// Open opens (or creates) the database at path and starts the writer.
// A nil logger means a "[store] " logger on stderr.
func Open(path string, logger *log.Logger) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if logger == nil {
		logger = log.New(os.Stderr, "[store] ", log.LstdFlags)
	}

	s := &Store{
		db:      db,
		log:     logger,
		now:     time.Now,
		ch:      make(chan req, 4096),
		replies: make(chan Reply, 256),
		bans:    map[string]Ban{},
	}
	if err := s.preload(); err != nil {
		_ = db.Close()
		return nil, err
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS scores (
			name TEXT PRIMARY KEY,
			best_ms INTEGER NOT NULL,
			finishes INTEGER NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_scores_best ON scores(best_ms, name);`,
		`CREATE TABLE IF NOT EXISTS bans (
			addr TEXT PRIMARY KEY,
			expires_at INTEGER NOT NULL,
			reason TEXT NOT NULL,
			created_at TEXT NOT NULL
		);`,
		`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1');`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// preload reads the record time and the live bans before the writer starts.
func (s *Store) preload() error {
	var best sql.NullInt64
	if err := s.db.QueryRow(`SELECT MIN(best_ms) FROM scores`).Scan(&best); err != nil {
		return fmt.Errorf("load record: %w", err)
	}
	if best.Valid {
		s.record = time.Duration(best.Int64) * time.Millisecond
	}

	rows, err := s.db.Query(`SELECT addr, expires_at, reason FROM bans`)
	if err != nil {
		return fmt.Errorf("load bans: %w", err)
	}
	defer rows.Close()
	now := s.now()
	for rows.Next() {
		var (
			b       Ban
			expires int64
		)
		if err := rows.Scan(&b.Addr, &expires, &b.Reason); err != nil {
			return fmt.Errorf("load bans: %w", err)
		}
		if expires > 0 {
			b.Expires = time.Unix(expires, 0)
		}
		if b.expired(now) {
			continue
		}
		s.bans[b.Addr] = b
	}
	return rows.Err()
}

func (s *Store) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

// Replies delivers lookup results. The host drains it and calls Apply.
func (s *Store) Replies() <-chan Reply {
	if s == nil {
		return nil
	}
	return s.replies
}

func (s *Store) enqueue(r req) bool {
	if s == nil || s.closed.Load() {
		return false
	}
	select {
	case s.ch <- r:
		return true
	default:
		s.log.Printf("queue full, dropping request kind=%d slot=%d", r.kind, r.slot)
		return false
	}
}

func (s *Store) reply(r Reply) {
	select {
	case s.replies <- r:
	default:
		s.log.Printf("reply queue full, dropping reply for slot %d", r.Slot)
	}
}

func (s *Store) loop() {
	ctx := context.Background()

	upsertScore, _ := s.db.Prepare(`INSERT INTO scores(name,best_ms,finishes,updated_at) VALUES(?,?,1,?)
		ON CONFLICT(name) DO UPDATE SET best_ms=MIN(best_ms,excluded.best_ms), finishes=finishes+1, updated_at=excluded.updated_at`)
	upsertBan, _ := s.db.Prepare(`INSERT OR REPLACE INTO bans(addr,expires_at,reason,created_at) VALUES(?,?,?,?)`)
	deleteBan, _ := s.db.Prepare(`DELETE FROM bans WHERE addr=?`)
	defer func() {
		if upsertScore != nil {
			_ = upsertScore.Close()
		}
		if upsertBan != nil {
			_ = upsertBan.Close()
		}
		if deleteBan != nil {
			_ = deleteBan.Close()
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 256
		commitMaxWait = 2 * time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			s.log.Printf("begin: %v", err)
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		if err := tx.Commit(); err != nil {
			s.log.Printf("commit: %v", err)
		}
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	exec := func(stmt *sql.Stmt, args ...any) {
		if stmt == nil {
			return
		}
		begin()
		if tx == nil {
			return
		}
		if _, err := tx.Stmt(stmt).Exec(args...); err != nil {
			s.log.Printf("write: %v", err)
			rollback()
			return
		}
		opCount++
	}

	for r := range s.ch {
		switch r.kind {
		case reqFinish:
			exec(upsertScore, r.name, r.ms, s.now().UTC().Format(time.RFC3339Nano))
		case reqBan:
			var expires int64
			if !r.ban.Expires.IsZero() {
				expires = r.ban.Expires.Unix()
			}
			exec(upsertBan, r.ban.Addr, expires, r.ban.Reason, s.now().UTC().Format(time.RFC3339Nano))
		case reqUnban:
			exec(deleteBan, r.ban.Addr)
		case reqLoad, reqTop5, reqRank:
			// Reads share the single connection, so pending writes go first.
			commit()
			s.read(r)
		}

		if len(s.ch) == 0 || opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
			commit()
		}
	}
	commit()
}

func (s *Store) read(r req) {
	var (
		out Reply
		err error
	)
	switch r.kind {
	case reqLoad:
		out, err = s.loadScore(r.slot, r.name)
	case reqTop5:
		out, err = s.top5(r.slot, r.start)
	case reqRank:
		out, err = s.rank(r.slot, r.name, r.search)
	}
	if err != nil {
		s.log.Printf("read kind=%d slot=%d: %v", r.kind, r.slot, err)
		return
	}
	s.reply(out)
}
