// Package syncer drains the local durable queue into the authoritative
// remote store. It is the only component that deletes queue rows, and it
// deletes a row only after the remote transaction holding it committed.
package syncer

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/dapurpintar/dpmbggo/internal/models"
)

// LocalQueue is the station-side queue the syncer drains.
type LocalQueue interface {
	UnsyncedScans() ([]models.ScanQueueRow, error)
	DeleteScans(ids []uint) error
	UnsyncedErrors() ([]models.ScanError, error)
	DeleteErrors(ids []uint) error
}

// RemoteStore is the authoritative store the syncer replicates into. Both
// operations must be idempotent: the syncer retries whole batches.
type RemoteStore interface {
	ApplyScans(rows []models.ScanQueueRow) error
	AppendErrors(errs []models.ScanError) error
}

// Syncer is a supervised periodic worker with an explicit shutdown signal.
type Syncer struct {
	mu sync.Mutex

	local    LocalQueue
	remote   RemoteStore
	interval time.Duration

	isRunning bool
	lastSync  time.Time
	stopChan  chan struct{}
}

// New creates a syncer draining local into remote every interval.
func New(local LocalQueue, remote RemoteStore, interval time.Duration) *Syncer {
	if interval <= 0 {
		interval = 60 * time.Second
	}
	return &Syncer{
		local:    local,
		remote:   remote,
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

// Start starts the background sync loop.
func (s *Syncer) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("syncer already running")
	}
	s.isRunning = true

	go s.loop()
	log.Printf("🔄 Syncer started (every %v)", s.interval)
	return nil
}

// Stop signals the loop to exit. Safe to call once.
func (s *Syncer) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}
	s.isRunning = false
	close(s.stopChan)
	log.Println("🛑 Syncer stopped")
}

func (s *Syncer) loop() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.RunCycle(); err != nil {
				// Local data is untouched; the next tick retries.
				log.Printf("⚠️ Sync failed, will retry in %v: %v", s.interval, err)
			}
		case <-s.stopChan:
			return
		}
	}
}

// RunCycle performs one push-then-delete pass for scans, then for errors.
// Any remote failure aborts the pass with nothing deleted locally.
func (s *Syncer) RunCycle() error {
	if err := s.syncScans(); err != nil {
		return err
	}
	return s.syncErrors()
}

func (s *Syncer) syncScans() error {
	rows, err := s.local.UnsyncedScans()
	if err != nil {
		return fmt.Errorf("read local queue: %w", err)
	}
	if len(rows) == 0 {
		return nil
	}

	if err := s.remote.ApplyScans(rows); err != nil {
		return fmt.Errorf("apply scans remotely: %w", err)
	}

	// Delete exactly the ids read above; rows appended while the remote
	// call ran stay queued for the next cycle.
	ids := make([]uint, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
	}
	if err := s.local.DeleteScans(ids); err != nil {
		return fmt.Errorf("delete synced rows: %w", err)
	}

	s.mu.Lock()
	s.lastSync = time.Now()
	s.mu.Unlock()

	log.Printf("[SYNC] Done. %d scan(s) synced to remote store.", len(ids))
	return nil
}

func (s *Syncer) syncErrors() error {
	rows, err := s.local.UnsyncedErrors()
	if err != nil {
		return fmt.Errorf("read local error log: %w", err)
	}
	if len(rows) == 0 {
		return nil
	}

	if err := s.remote.AppendErrors(rows); err != nil {
		return fmt.Errorf("push errors remotely: %w", err)
	}

	ids := make([]uint, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
	}
	if err := s.local.DeleteErrors(ids); err != nil {
		return fmt.Errorf("delete synced errors: %w", err)
	}

	log.Printf("[SYNC] Done. %d error(s) synced to remote store.", len(ids))
	return nil
}

// LastSync reports when a scan batch last committed remotely.
func (s *Syncer) LastSync() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSync
}
