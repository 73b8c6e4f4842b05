package main

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"flag"
	"io"
	"log"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"racecore/internal/admin"
	"racecore/internal/config"
	"racecore/internal/persistence/demo"
	"racecore/internal/persistence/store"
	"racecore/internal/server"
	"racecore/internal/sim/race"
	"racecore/internal/sim/tuning"
	"racecore/internal/transport/ws"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		configPath = flag.String("config", "./configs/server.yaml", "server config path (empty for defaults)")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		mapName    = flag.String("map", "sprint", "builtin map name")
		mapFile    = flag.String("map_file", "", "path to a map yaml (overrides -map)")
		dataDir    = flag.String("data", "", "runtime data directory (overrides data_dir)")
		disableDB  = flag.Bool("disable_db", false, "disable the score and ban store")
		noDemo     = flag.Bool("no_demo", false, "disable demo recording")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	cfg, err := config.Load(*configPath)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatalf("load config: %v", err)
		}
		logger.Printf("config not found (%s); using defaults", *configPath)
		cfg, _ = config.Load("")
	}
	if d := strings.TrimSpace(*dataDir); d != "" {
		cfg.DataDir = d
	}
	_ = os.MkdirAll(cfg.DataDir, 0o755)

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(filepath.Dir(*configPath), "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatalf("load tuning: %v", err)
		}
		logger.Printf("tuning not found (%s); using defaults", tp)
	}

	var m *race.Map
	if f := strings.TrimSpace(*mapFile); f != "" {
		m, err = race.LoadMap(f)
	} else {
		m, err = race.BuiltinMap(*mapName)
	}
	if err != nil {
		logger.Fatalf("load map: %v", err)
	}

	var st *store.Store
	if !*disableDB {
		st, err = store.Open(filepath.Join(cfg.DataDir, "race.db"), log.New(os.Stdout, "[store] ", log.LstdFlags|log.Lmicroseconds))
		if err != nil {
			logger.Fatalf("open store: %v", err)
		}
		defer st.Close()
	}

	var rec *demo.Recorder
	if !*noDemo {
		rec = demo.NewRecorder(filepath.Join(cfg.DataDir, "demos"), "demo")
		defer rec.Close()
	}

	gameLogger := log.New(os.Stdout, "[game] ", log.LstdFlags|log.Lmicroseconds)
	w := race.NewWorld(m)
	opts := server.Options{
		Config:     cfg,
		World:      w,
		Map:        m,
		Logger:     logger,
		GameLogger: gameLogger,
	}
	// Typed nils must not reach the interface fields.
	var scores race.Scores
	if st != nil {
		scores = st
		opts.Scores = st
		opts.Bans = st
	}
	if rec != nil {
		opts.Recorder = rec
	}
	ctrl := race.NewController(cfg, w, m, scores, gameLogger)
	opts.Controller = ctrl

	loop, err := server.New(opts)
	if err != nil {
		logger.Fatalf("server: %v", err)
	}
	g := loop.Game()
	ctrl.Bind(g, loop)
	g.SetTuning(tune.Params)

	con := admin.New(log.New(os.Stdout, "[admin] ", log.LstdFlags|log.Lmicroseconds))
	admin.RegisterGame(con, g, loop)
	admin.RegisterRace(con, ctrl)
	g.SetActions(con)
	loop.SetConsole(con)

	// Startup commands run before the loop starts, so on this goroutine.
	for _, line := range cfg.StartupCommands {
		if err := con.Execute(line); err != nil {
			logger.Printf("startup command %q: %v", line, err)
		}
	}

	ctx, cancel := signalContext()
	defer cancel()

	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		if err := loop.Run(ctx); err != nil && err != context.Canceled {
			logger.Printf("loop stopped: %v", err)
		}
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/v1/admin", adminHandler(loop, cfg.AdminToken))
	if envBool("RC_ENABLE_PPROF_HTTP", false) {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	} else {
		logger.Printf("pprof endpoints disabled (RC_ENABLE_PPROF_HTTP=false)")
	}
	var bans ws.BanList = noBans{}
	if st != nil {
		bans = st
	}
	wsLogger := log.New(os.Stdout, "[ws] ", log.LstdFlags|log.Lmicroseconds)
	mux.HandleFunc("/v1/ws", ws.NewServer(loop, bans, cfg.AdminToken, wsLogger).Handler())

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("%q listening on %s (game_type=%s map=%s tick_speed=%d max_clients=%d)", cfg.Name, *addr, ctrl.GameType(), m.Name, cfg.TickSpeed, cfg.MaxClients)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
	cancel()
	<-loopDone
}

type adminRequest struct {
	Command string `json:"command"`
}

type adminResponse struct {
	OK     bool     `json:"ok"`
	Output []string `json:"output,omitempty"`
	Error  string   `json:"error,omitempty"`
}

// adminHandler runs one console line per request. An empty token disables
// the endpoint.
func adminHandler(loop *server.Loop, token string) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if token == "" {
			http.Error(rw, "admin disabled", http.StatusForbidden)
			return
		}
		got := strings.TrimSpace(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))
		if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			http.Error(rw, "unauthorized", http.StatusUnauthorized)
			return
		}
		var req adminRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, 64*1024)).Decode(&req); err != nil || strings.TrimSpace(req.Command) == "" {
			http.Error(rw, "bad request", http.StatusBadRequest)
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		out, err := loop.Exec(ctx, req.Command)

		rw.Header().Set("Content-Type", "application/json")
		resp := adminResponse{OK: err == nil, Output: out}
		if err != nil {
			resp.Error = err.Error()
			if ctx.Err() != nil {
				rw.WriteHeader(http.StatusServiceUnavailable)
			} else {
				rw.WriteHeader(http.StatusBadRequest)
			}
		}
		_ = json.NewEncoder(rw).Encode(resp)
	}
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

type noBans struct{}

func (noBans) Banned(string) (store.Ban, bool) { return store.Ban{}, false }

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}
