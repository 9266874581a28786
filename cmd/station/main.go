package main

import (
	"log"
	"net/http"
	"os"
	"os/signal"
	stdsync "sync"
	"syscall"
	"time"

	"github.com/dapurpintar/dpmbggo/internal/config"
	"github.com/dapurpintar/dpmbggo/internal/database"
	"github.com/dapurpintar/dpmbggo/internal/handlers"
	"github.com/dapurpintar/dpmbggo/internal/scan"
	deliveryService "github.com/dapurpintar/dpmbggo/internal/services/delivery"
	"github.com/dapurpintar/dpmbggo/internal/store"
	"github.com/dapurpintar/dpmbggo/internal/syncer"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	stage, ok := scan.StageFromName(cfg.Station.Stage)
	if !ok {
		log.Fatalf("Unknown station stage %q (want Processing, Packing or Delivery)", cfg.Station.Stage)
	}

	// 2. Local durable store: embedded PostgreSQL under the data path. The
	// station owns this data; it survives restarts and network loss.
	localDB, err := database.Connect(config.DatabaseConfig{DataPath: cfg.Database.DataPath})
	if err != nil {
		log.Fatalf("Failed to start local store: %v", err)
	}
	defer localDB.Close()

	local := store.New(localDB)
	if err := local.Migrate(); err != nil {
		log.Printf("⚠️ Migration warning: %v\n", err)
	}

	// 3. Background syncer toward the authoritative store. The remote may be
	// down at boot; scanning must not wait for it, so the connection is
	// retried in the background and the syncer starts once it holds.
	var (
		syncMu stdsync.Mutex
		bgSync *syncer.Syncer
	)
	if cfg.Sync.RemoteURL == "" {
		log.Println("⚠️ REMOTE_DATABASE_URL not set; running offline, queue will only grow")
	} else {
		go func() {
			for {
				remoteDB, err := database.Connect(config.DatabaseConfig{URL: cfg.Sync.RemoteURL})
				if err != nil {
					log.Printf("⚠️ Remote store unavailable, retrying in %v: %v", cfg.Sync.Interval, err)
					time.Sleep(cfg.Sync.Interval)
					continue
				}
				remote := store.New(remoteDB)
				if err := remote.Migrate(); err != nil {
					log.Printf("⚠️ Remote migration warning: %v", err)
				}
				s := syncer.New(local, remote, cfg.Sync.Interval)
				if err := s.Start(); err != nil {
					log.Printf("⚠️ Syncer start failed: %v", err)
					return
				}
				syncMu.Lock()
				bgSync = s
				syncMu.Unlock()
				return
			}
		}()
	}

	// 4. Delivery stations allocate the batch and queue the summary sticker
	// against the local store, and expose the print dispatch endpoints so the
	// poller on this LAN can drain the sticker queue.
	var onAccept func(code string, at time.Time)
	if stage == scan.StageDelivery {
		delSvc := deliveryService.NewService(local, cfg.SchoolsFile, cfg.CountdownBaseURL)
		onAccept = func(code string, at time.Time) {
			if err := delSvc.OnTrayDelivered(code, at); err != nil {
				log.Printf("⚠️ Delivery follow-up for %s: %v", code, err)
			}
		}

		printSrv := &http.Server{
			Addr:    ":" + cfg.Port,
			Handler: handlers.NewPrintRouter(local, cfg.PrintKey),
		}
		go func() {
			log.Printf("🖨️ Print dispatch listening on port %s", cfg.Port)
			if err := printSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("⚠️ Print dispatch server: %v", err)
			}
		}()
		defer printSrv.Close()
	}

	terminal := scan.NewTerminal(scan.TerminalConfig{
		Stage:    stage,
		State:    local,
		Sink:     local.Sink(),
		Debounce: scan.NewDebouncer(cfg.Station.DebounceWindow),
		Out:      os.Stdout,
		OnAccept: onAccept,
	})

	// 5. Consume the scanner's line stream until EOF or a signal.
	log.Printf("🚀 Scan station ready (stage: %s)", stage)

	done := make(chan error, 1)
	go func() {
		done <- terminal.Run(os.Stdin)
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	select {
	case err := <-done:
		if err != nil {
			log.Printf("⚠️ Input stream error: %v", err)
		}
	case sig := <-shutdown:
		log.Printf("\n⚠️  Received signal: %v. Shutting down gracefully...\n", sig)
	}

	syncMu.Lock()
	if bgSync != nil {
		bgSync.Stop()
	}
	syncMu.Unlock()
	log.Println("✅ Shutdown complete")
}
