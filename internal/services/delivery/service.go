// Package delivery turns an accepted delivery scan into school assignments
// and a printed summary sticker.
package delivery

import (
	"fmt"
	"log"
	"time"

	"github.com/dapurpintar/dpmbggo/internal/allocation"
	"github.com/dapurpintar/dpmbggo/internal/printing"
	"github.com/dapurpintar/dpmbggo/internal/store"
)

// Service allocates delivery batches to schools and enqueues the summary
// sticker for the kitchen printer.
type Service struct {
	store            *store.Store
	schoolsFile      string
	countdownBaseURL string
}

// NewService creates a delivery service over the authoritative store.
func NewService(st *store.Store, schoolsFile, countdownBaseURL string) *Service {
	return &Service{
		store:            st,
		schoolsFile:      schoolsFile,
		countdownBaseURL: countdownBaseURL,
	}
}

// OnTrayDelivered runs after a delivery scan commits: it spreads the batch
// over schools closest-first, records the assignments, and queues one summary
// sticker. Errors here never roll back the scan; the tray left the kitchen
// whether or not the sticker prints.
func (s *Service) OnTrayDelivered(trayCode string, at time.Time) error {
	schools, err := allocation.LoadSchools(s.schoolsFile)
	if err != nil {
		return fmt.Errorf("load schools: %w", err)
	}

	allocations, err := allocation.Allocate(schools, s.store, allocation.BatchSize)
	if err != nil {
		return fmt.Errorf("allocate batch for %s: %w", trayCode, err)
	}

	for _, alloc := range allocations {
		if err := s.store.AddDeliveries(trayCode, alloc.School, alloc.Trays); err != nil {
			return fmt.Errorf("record deliveries for %s: %w", alloc.School, err)
		}
	}

	printAllocs := make([]printing.Allocation, len(allocations))
	for i, alloc := range allocations {
		printAllocs[i] = printing.Allocation{School: alloc.School, Trays: alloc.Trays}
	}

	tspl := printing.DeliverySummaryTSPL(trayCode, s.countdownBaseURL, printAllocs)
	jobID, err := s.store.EnqueuePrint(tspl)
	if err != nil {
		return fmt.Errorf("enqueue summary sticker: %w", err)
	}

	log.Printf("🚚 Delivery batch %s: %d school(s), sticker job #%d", trayCode, len(allocations), jobID)
	return nil
}
