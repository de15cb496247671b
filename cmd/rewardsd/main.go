package main

import (
	"context"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/freespacenet/fsn-rewards/internal/config"
	"github.com/freespacenet/fsn-rewards/internal/engine"
	"github.com/freespacenet/fsn-rewards/internal/httpserver"
	"github.com/freespacenet/fsn-rewards/internal/ledger"
	ledgerasync "github.com/freespacenet/fsn-rewards/internal/ledger/async"
	ledgermem "github.com/freespacenet/fsn-rewards/internal/ledger/memory"
	ledgerpg "github.com/freespacenet/fsn-rewards/internal/ledger/postgres"
	ledgersql "github.com/freespacenet/fsn-rewards/internal/ledger/sqlite"
	"github.com/freespacenet/fsn-rewards/internal/logging"
	"github.com/freespacenet/fsn-rewards/internal/metrics"
	"github.com/freespacenet/fsn-rewards/internal/rules"
	userstoresqlite "github.com/freespacenet/fsn-rewards/internal/userstore/sqlite"
	"github.com/freespacenet/fsn-rewards/internal/version"
)

func main() {
	cfg, err := config.Load(".")
	if err != nil {
		log.Fatalf("load config failed: %v", err)
	}

	// Initialize rotating file logging (default enabled when log_file provided)
	const maxLogBytes = int64(300 * 1024 * 1024) // 300MB
	logTarget := strings.TrimSpace(cfg.LogFile)
	if logTarget != "" {
		rot, err := logging.NewRotatingWriter(logTarget, maxLogBytes)
		if err != nil {
			log.Fatalf("init rotating log: %v", err)
		}
		// Mirror to stdout as well for foreground runs
		log.SetOutput(io.MultiWriter(os.Stdout, rot))
		log.SetFlags(log.LstdFlags | log.Lmicroseconds)
		log.SetPrefix("[rewardsd] ")
		defer rot.Close()
	}

	log.Printf("FreeSpace rewards daemon %s env=%s", version.Info(), cfg.Environment)

	table := rules.Defaults()
	if strings.TrimSpace(cfg.RulesPath) != "" {
		table, err = rules.LoadFile(cfg.RulesPath)
		if err != nil {
			log.Fatalf("load rules: %v", err)
		}
		log.Printf("rule table loaded from %s (%d actions)", cfg.RulesPath, len(table.Actions()))
	}

	var ledgerStore ledger.Store
	switch cfg.LedgerDriver {
	case "postgres":
		ledgerStore, err = ledgerpg.New(cfg.PostgresDSN, cfg.PGMaxOpenConns, cfg.PGMaxIdleConns, cfg.PGConnLifetimeMins, cfg.PGConnIdleTimeMins)
	case "memory":
		ledgerStore = ledgermem.New()
	default:
		ledgerStore, err = ledgersql.New(cfg.LedgerPath)
	}
	if err != nil {
		log.Fatalf("open ledger store (%s): %v", cfg.LedgerDriver, err)
	}
	if cfg.AsyncEvents {
		ledgerStore = ledgerasync.New(ledgerStore, ledgerasync.Config{
			Logger: log.New(log.Writer(), "", log.LstdFlags|log.Lmicroseconds),
		})
	}
	defer ledgerStore.Close()

	identityStore, err := userstoresqlite.New(cfg.IdentityPath)
	if err != nil {
		log.Fatalf("open identity store: %v", err)
	}
	defer identityStore.Close()

	collector := metrics.NewCollector()
	eng := engine.New(table, ledgerStore,
		engine.WithIdentity(identityStore),
		engine.WithLogger(log.New(log.Writer(), "[engine] ", log.LstdFlags|log.Lmicroseconds)),
		engine.WithRetentionDays(cfg.DailyCountRetentionDays),
		engine.WithMetrics(collector),
	)

	httpSrv := httpserver.New(eng, ledgerStore, identityStore)
	httpSrv.SetMetrics(collector)
	httpSrv.SetLogger(cfg.LogLevel, log.New(log.Writer(), "[rewardsd/http] ", log.LstdFlags|log.Lmicroseconds))

	srv := &http.Server{
		Addr:         cfg.HTTPAddress,
		Handler:      httpSrv.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("rewards server listening on %s (ledger=%s)", cfg.HTTPAddress, cfg.LedgerDriver)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server error: %v", err)
		}
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGTERM, syscall.SIGINT)
	<-sigs

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}
}
