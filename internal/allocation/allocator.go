// Package allocation distributes a delivery batch of trays across schools,
// closest first, spilling over to the next school when a quota fills up.
package allocation

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// BatchSize is how many trays one delivery scan represents.
const BatchSize = 10

// School is one delivery destination with a daily tray quota.
type School struct {
	Name       string  `json:"name"`
	DistanceKM float64 `json:"distance_km"`
	TrayQuota  int     `json:"tray_quota"`
}

// Allocation is one school's share of a batch.
type Allocation struct {
	School string `json:"school"`
	Trays  int    `json:"n_trays"`
}

// Ledger answers how many trays a school has already been assigned.
type Ledger interface {
	AssignedCount(school string) (int, error)
}

// LoadSchools reads the school list from a JSON file and returns it sorted
// closest first.
func LoadSchools(path string) ([]School, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schools file: %w", err)
	}
	var schools []School
	if err := json.Unmarshal(data, &schools); err != nil {
		return nil, fmt.Errorf("parse schools file: %w", err)
	}
	sort.Slice(schools, func(i, j int) bool {
		return schools[i].DistanceKM < schools[j].DistanceKM
	})
	return schools, nil
}

// Allocate distributes batch trays greedily over schools (assumed sorted
// closest first), honoring remaining quota per school. It errors when the
// combined remaining quota cannot absorb the whole batch; partial
// assignments are returned alongside the error so the caller can decide.
func Allocate(schools []School, ledger Ledger, batch int) ([]Allocation, error) {
	if batch <= 0 {
		batch = BatchSize
	}

	var allocations []Allocation
	remaining := batch

	for _, school := range schools {
		assigned, err := ledger.AssignedCount(school.Name)
		if err != nil {
			return nil, fmt.Errorf("count assignments for %s: %w", school.Name, err)
		}

		available := school.TrayQuota - assigned
		if available <= 0 {
			continue
		}

		take := available
		if take > remaining {
			take = remaining
		}
		allocations = append(allocations, Allocation{School: school.Name, Trays: take})
		remaining -= take

		if remaining == 0 {
			break
		}
	}

	if remaining > 0 {
		return allocations, fmt.Errorf("not enough remaining tray quota across schools (%d unplaced)", remaining)
	}
	return allocations, nil
}
