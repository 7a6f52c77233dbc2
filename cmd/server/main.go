package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"rabbitwine.gg/mpserver/internal/config"
	"rabbitwine.gg/mpserver/internal/logging"
	"rabbitwine.gg/mpserver/internal/persistence/sqlite"
	"rabbitwine.gg/mpserver/internal/server"
	"rabbitwine.gg/mpserver/internal/transport/ws"
)

func main() {
	var (
		addr       = flag.String("addr", "", "listen address (overrides config)")
		configPath = flag.String("config", "", "path to server.yaml (optional)")
		certFile   = flag.String("cert", "", "TLS certificate file, PEM (overrides config)")
		keyFile    = flag.String("key", "", "TLS private key file, PEM (overrides config)")
		dataDir    = flag.String("data", "", "runtime data directory (overrides config)")
		logFile    = flag.String("log", "", "log file path (overrides config)")
		disableDB  = flag.Bool("disable_db", false, "run memory-only, without the sqlite store")
		debug      = flag.Bool("debug", false, "debug logging")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(err)
	}
	if *addr != "" {
		cfg.Addr = *addr
	}
	if *certFile != "" {
		cfg.CertFile = *certFile
	}
	if *keyFile != "" {
		cfg.KeyFile = *keyFile
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}
	if *logFile != "" {
		cfg.LogFile = *logFile
	}
	if *disableDB {
		cfg.DisableDB = true
	}

	log, flush := logging.New(cfg.LogFile, *debug)
	defer flush()

	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	var store server.Store = server.NopStore{}
	if !cfg.DisableDB {
		db, err := sqlite.Open(filepath.Join(cfg.DataDir, "world.db"), log)
		if err != nil {
			log.Fatalf("open store: %v", err)
		}
		defer db.Close()
		store = db
	}

	core, err := server.New(log, server.NewWallClock(), store)
	if err != nil {
		log.Fatalf("init server: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go core.Run(ctx)

	transport := ws.NewServer(core, log)
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", transport.Handler())
	mux.HandleFunc("/admin/v1/levels", core.HandleAdminLevels)
	mux.HandleFunc("/admin/v1/reset", core.HandleAdminReset)
	mux.HandleFunc("/admin/v1/export", core.HandleAdminExport)
	mux.HandleFunc("/admin/v1/import", core.HandleAdminImport)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{Addr: cfg.Addr, Handler: mux}
	go func() {
		var err error
		if cfg.TLS() {
			log.Infof("serving wss on %s", cfg.Addr)
			err = srv.ListenAndServeTLS(cfg.CertFile, cfg.KeyFile)
		} else {
			log.Infof("serving ws on %s", cfg.Addr)
			err = srv.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
}
