package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dapurpintar/dpmbggo/internal/config"
	"github.com/dapurpintar/dpmbggo/internal/poller"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	p := poller.New(poller.Config{
		BaseURL:     cfg.Poller.BaseURL,
		PrintKey:    cfg.PrintKey,
		PrinterAddr: cfg.Poller.PrinterAddr,
		Interval:    cfg.Poller.Interval,
	})
	if err := p.Start(); err != nil {
		log.Fatalf("Failed to start poller: %v", err)
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	sig := <-shutdown
	log.Printf("\n⚠️  Received signal: %v. Shutting down gracefully...\n", sig)

	p.Stop()
	log.Println("✅ Shutdown complete")
}
