// Package scan implements the station-side scan pipeline: code debouncing,
// the stage state machine, and the line-oriented terminal loop.
package scan

import (
	"fmt"
	"time"

	"github.com/dapurpintar/dpmbggo/internal/codes"
	"github.com/dapurpintar/dpmbggo/internal/models"
)

// Stage is one checked step of the physical pipeline. The set is closed:
// adding a stage means extending every switch below, which the tests pin.
type Stage int

const (
	StageProcessing Stage = iota
	StagePacking
	StageDelivery
)

// Stages lists all pipeline stages in order.
var Stages = []Stage{StageProcessing, StagePacking, StageDelivery}

// Rejection reasons. These exact strings end up in the scan error log and on
// the operator's GAGAL output, so they are part of the external contract.
const (
	ReasonEmptyScan             = "EMPTY_SCAN"
	ReasonNotAnIngredientCode   = "NOT_AN_INGREDIENT_CODE"
	ReasonIngredientNotFound    = "INGREDIENT_NOT_FOUND"
	ReasonNotReceived           = "NOT_RECEIVED"
	ReasonAlreadyProcessed      = "ALREADY_PROCESSED"
	ReasonInvalidTrayIDFormat   = "INVALID_TRAY_ID_FORMAT"
	ReasonInvalidTrayIDLength   = "INVALID_TRAY_ID_LENGTH"
	ReasonTrayNotRegistered     = "TRAY_NOT_REGISTERED"
	ReasonAlreadyPacked         = "ALREADY_PACKED"
	ReasonAlreadyPackedToday    = "ALREADY_PACKED_TODAY"
	ReasonNotPacked             = "NOT_PACKED"
	ReasonAlreadyDelivered      = "ALREADY_DELIVERED"
	ReasonAlreadyDeliveredToday = "ALREADY_DELIVERED_TODAY"
	ReasonUnreachable           = "UNREACHABLE"
)

// Reject is a validation failure with a stable reason string.
type Reject struct {
	Reason string
}

func (r *Reject) Error() string {
	return r.Reason
}

// IsReject extracts the rejection reason from a validator error, if any.
func IsReject(err error) (string, bool) {
	if rej, ok := err.(*Reject); ok {
		return rej.Reason, true
	}
	return "", false
}

// TrayState is the current pipeline state of a tray as read from a store.
type TrayState struct {
	Label       string
	PackedAt    *time.Time
	DeliveredAt *time.Time
}

// EntityState is the read-side a validator needs. Whichever store handle the
// process entry point injects (local mirror on a station, authoritative store
// on the server) satisfies it; the validator itself has no other side.
type EntityState interface {
	// ItemLabel returns the current pipeline label of an ingredient.
	ItemLabel(code string) (label string, found bool, err error)
	// TrayState returns the current pipeline state of a tray.
	TrayState(code string) (state TrayState, found bool, err error)
}

// StageFromName resolves a stage by its wire name.
func StageFromName(name string) (Stage, bool) {
	switch name {
	case "Processing":
		return StageProcessing, true
	case "Packing":
		return StagePacking, true
	case "Delivery":
		return StageDelivery, true
	}
	return 0, false
}

func (s Stage) String() string {
	switch s {
	case StageProcessing:
		return "Processing"
	case StagePacking:
		return "Packing"
	case StageDelivery:
		return "Delivery"
	}
	return fmt.Sprintf("Stage(%d)", int(s))
}

// TargetLabel is the pipeline label written by a successful scan at this stage.
func (s Stage) TargetLabel() string {
	switch s {
	case StageProcessing:
		return models.LabelProcessed
	case StagePacking:
		return models.LabelPacked
	case StageDelivery:
		return models.LabelDelivered
	}
	return ""
}

// Validate checks the stage precondition for code against current entity
// state. It is a pure predicate: the only side effect is the store read.
// Format failures reject before any store access. A store that cannot be
// reached fails closed with ReasonUnreachable, never silently validates.
func (s Stage) Validate(store EntityState, code string, now time.Time) error {
	if code == "" {
		return &Reject{Reason: ReasonEmptyScan}
	}

	switch s {
	case StageProcessing:
		return validateProcessing(store, code)
	case StagePacking:
		return validatePacking(store, code, now)
	case StageDelivery:
		return validateDelivery(store, code, now)
	}
	return fmt.Errorf("unknown stage %d", int(s))
}

func validateProcessing(store EntityState, code string) error {
	if !codes.IsItemCode(code) {
		return &Reject{Reason: ReasonNotAnIngredientCode}
	}

	label, found, err := store.ItemLabel(code)
	if err != nil {
		return &Reject{Reason: ReasonUnreachable}
	}
	if !found {
		return &Reject{Reason: ReasonIngredientNotFound}
	}

	switch label {
	case models.LabelReceived:
		return nil
	case models.LabelProcessed:
		return &Reject{Reason: ReasonAlreadyProcessed}
	default:
		return &Reject{Reason: ReasonNotReceived}
	}
}

// checkTrayCode covers the shared format gate of the tray stages: prefix
// first, then the exact fixed length.
func checkTrayCode(code string) error {
	if !codes.IsTrayCode(code) {
		return &Reject{Reason: ReasonInvalidTrayIDFormat}
	}
	if !codes.WellFormedTrayCode(code) {
		return &Reject{Reason: ReasonInvalidTrayIDLength}
	}
	return nil
}

func validatePacking(store EntityState, code string, now time.Time) error {
	if err := checkTrayCode(code); err != nil {
		return err
	}

	state, found, err := store.TrayState(code)
	if err != nil {
		return &Reject{Reason: ReasonUnreachable}
	}
	if !found {
		return &Reject{Reason: ReasonTrayNotRegistered}
	}

	// Same-day guard: a tray already packed today (even if since delivered)
	// cannot be packed again. An earlier-day packing is a past campaign and
	// the tray may run again.
	if state.PackedAt != nil && sameLocalDay(*state.PackedAt, now) {
		return &Reject{Reason: ReasonAlreadyPackedToday}
	}
	if state.Label == models.LabelPacked && state.PackedAt == nil {
		// Label says packed but the timestamp never arrived; fail safe.
		return &Reject{Reason: ReasonAlreadyPacked}
	}
	return nil
}

func validateDelivery(store EntityState, code string, now time.Time) error {
	if err := checkTrayCode(code); err != nil {
		return err
	}

	state, found, err := store.TrayState(code)
	if err != nil {
		return &Reject{Reason: ReasonUnreachable}
	}
	if !found {
		return &Reject{Reason: ReasonTrayNotRegistered}
	}

	if state.DeliveredAt != nil && sameLocalDay(*state.DeliveredAt, now) {
		return &Reject{Reason: ReasonAlreadyDeliveredToday}
	}
	if state.Label == models.LabelDelivered && state.DeliveredAt == nil {
		return &Reject{Reason: ReasonAlreadyDelivered}
	}
	if state.Label != models.LabelPacked {
		return &Reject{Reason: ReasonNotPacked}
	}
	return nil
}

func sameLocalDay(a, b time.Time) bool {
	a = a.In(b.Location())
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}
