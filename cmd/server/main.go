package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dapurpintar/dpmbggo/internal/config"
	"github.com/dapurpintar/dpmbggo/internal/database"
	"github.com/dapurpintar/dpmbggo/internal/handlers"
	deliveryService "github.com/dapurpintar/dpmbggo/internal/services/delivery"
	"github.com/dapurpintar/dpmbggo/internal/store"
	"github.com/dapurpintar/dpmbggo/internal/syncer"
	"github.com/dapurpintar/dpmbggo/internal/websocket"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// 2. Initialize database (detects Embedded vs External automatically)
	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	// Note: db.Close() is called manually in shutdown handler below

	// 3. Auto-migrate schema
	log.Println("🚀 Synchronizing database schema...")
	st := store.New(db)
	if err := st.Migrate(); err != nil {
		log.Printf("⚠️ Migration warning: %v\n", err)
	} else {
		log.Println("✅ Schema synchronized successfully")
	}

	// 4. Kitchen-local deployment: replicate the durable queue upstream. The
	// remote may be down at boot; the API must not wait for it.
	var (
		syncMu sync.Mutex
		bgSync *syncer.Syncer
	)
	if cfg.Sync.RemoteURL != "" {
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
				s := syncer.New(st, remote, cfg.Sync.Interval)
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

	// 5. Live dashboard hub
	hub := websocket.NewHub()
	go hub.Run()

	// 6. Delivery allocation + summary sticker service
	delSvc := deliveryService.NewService(st, cfg.SchoolsFile, cfg.CountdownBaseURL)

	// 7. Set up HTTP router
	router := handlers.NewRouter(st, hub, delSvc, cfg)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Channel to listen for shutdown signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	// Start server in goroutine
	go func() {
		log.Printf("🚀 Server starting on port %s\n", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for shutdown signal
	sig := <-shutdown
	log.Printf("\n⚠️  Received signal: %v. Shutting down gracefully...\n", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	syncMu.Lock()
	if bgSync != nil {
		bgSync.Stop()
	}
	syncMu.Unlock()

	// Close database (this also stops embedded PostgreSQL)
	log.Println("🛑 Closing database connection...")
	if err := db.Close(); err != nil {
		log.Printf("Database close error: %v", err)
	}

	log.Println("✅ Shutdown complete")
}
