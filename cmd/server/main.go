package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"missiongrid.ai/internal/persistence/archive"
	"missiongrid.ai/internal/persistence/indexdb"
	persistlog "missiongrid.ai/internal/persistence/log"
	"missiongrid.ai/internal/sim/levelgen"
	"missiongrid.ai/internal/transport/ws"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		levelsPath = flag.String("levels", "./configs/levels.yaml", "level registry overrides (optional)")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		disableDB  = flag.Bool("disable_db", false, "disable the sqlite mission/episode index")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	reg := levelgen.NewRegistry()
	if p := strings.TrimSpace(*levelsPath); p != "" {
		if _, err := os.Stat(p); err == nil {
			if err := reg.LoadInto(p); err != nil {
				logger.Fatalf("load levels: %v", err)
			}
			logger.Printf("levels loaded from %s", p)
		}
	}

	_ = os.MkdirAll(*dataDir, 0o755)

	missionLog := persistlog.NewMissionLogger(*dataDir)
	episodeLog := persistlog.NewEpisodeLogger(*dataDir)
	defer missionLog.Close()
	defer episodeLog.Close()

	var idx *indexdb.SQLiteIndex
	if !*disableDB {
		var err error
		idx, err = indexdb.OpenSQLite(filepath.Join(*dataDir, "index.db"))
		if err != nil {
			logger.Fatalf("open index: %v", err)
		}
		defer idx.Close()
	}

	ctx, cancel := signalContext()
	defer cancel()

	sinks := ws.Sinks{Missions: missionLog, Episodes: episodeLog, Index: idx}

	go runArchiver(ctx, *dataDir, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/v1/levels", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(map[string]any{"levels": reg.Names()})
	})
	mux.HandleFunc("/v1/ws", ws.NewServer(reg, sinks, logger).Handler())

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

	logger.Printf("listening on %s", *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
}

// runArchiver sweeps finished day logs into the monthly archive once at
// startup and then every hour until the server shuts down.
func runArchiver(ctx context.Context, dataDir string, logger *log.Logger) {
	sweep := func() {
		res, err := archive.Sweep(dataDir, time.Now())
		if err != nil {
			logger.Printf("archive sweep: %v", err)
			return
		}
		if len(res.Moved) > 0 {
			logger.Printf("archived %d log file(s)", len(res.Moved))
		}
	}
	sweep()

	tick := time.NewTicker(time.Hour)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			sweep()
		}
	}
}

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
