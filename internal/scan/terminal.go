package scan

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/dapurpintar/dpmbggo/internal/codes"
	"github.com/dapurpintar/dpmbggo/internal/models"
	"github.com/dapurpintar/dpmbggo/internal/retry"
)

// Sink is the durable write-side of a scan station. CommitScan must be
// synchronous: once it returns nil the scan survives a crash.
type Sink interface {
	CommitScan(code string, stage Stage, at time.Time) error
	RecordError(code string, stage Stage, reason string, at time.Time) error
}

// TerminalConfig wires a Terminal. Stage, State and Sink are required.
type TerminalConfig struct {
	Stage    Stage
	State    EntityState
	Sink     Sink
	Debounce *Debouncer
	Out      io.Writer
	Now      func() time.Time
	Retry    retry.Policy

	// OnAccept runs after a successful commit, outside the durability
	// path: delivery allocation, print enqueue. Best-effort by contract.
	OnAccept func(code string, at time.Time)
}

// Terminal handles one scan station's line-oriented input stream. Every
// input line produces at most one status block on the output stream; a
// debounced duplicate produces none.
type Terminal struct {
	stage    Stage
	state    EntityState
	sink     Sink
	debounce *Debouncer
	out      io.Writer
	now      func() time.Time
	retry    retry.Policy
	onAccept func(code string, at time.Time)
}

// NewTerminal creates a Terminal with defaults applied.
func NewTerminal(cfg TerminalConfig) *Terminal {
	t := &Terminal{
		stage:    cfg.Stage,
		state:    cfg.State,
		sink:     cfg.Sink,
		debounce: cfg.Debounce,
		out:      cfg.Out,
		now:      cfg.Now,
		retry:    cfg.Retry,
		onAccept: cfg.OnAccept,
	}
	if t.debounce == nil {
		t.debounce = NewDebouncer(0)
	}
	if t.out == nil {
		t.out = os.Stdout
	}
	if t.now == nil {
		t.now = time.Now
	}
	if t.retry.MaxAttempts == 0 {
		t.retry = retry.LocalStorage()
	}
	return t
}

// Run consumes raw scan lines from r until EOF.
func (t *Terminal) Run(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		t.HandleLine(scanner.Text())
	}
	return scanner.Err()
}

// HandleLine runs one raw scan through the full pipeline:
// normalize -> debounce -> validate -> durable commit -> status block.
// A single bad scan never crashes the station process.
func (t *Terminal) HandleLine(raw string) {
	at := t.now()
	code := codes.Normalize(raw)

	defer func() {
		if r := recover(); r != nil {
			reason := fmt.Sprintf("INTERNAL: %v", r)
			t.logError(code, reason, at)
			t.printFailure(at, reason)
		}
	}()

	// Duplicate hardware event: drop without a trace.
	if code != "" && t.debounce.ShouldDrop(code, at) {
		return
	}

	if err := t.stage.Validate(t.state, code, at); err != nil {
		reason, ok := IsReject(err)
		if !ok {
			reason = fmt.Sprintf("INTERNAL: %v", err)
		}
		t.logError(code, reason, at)
		t.printFailure(at, reason)
		return
	}

	commit := func() error {
		return t.sink.CommitScan(code, t.stage, at)
	}
	if err := t.retry.Do(context.Background(), commit); err != nil {
		// Local storage kept failing past the retry budget. The scan was
		// accepted logically but not recorded, so the operator must see a
		// failure and rescan.
		log.Printf("⚠️ Scan commit failed after retries: %v", err)
		t.logError(code, ReasonUnreachable, at)
		t.printFailure(at, ReasonUnreachable)
		return
	}

	t.printSuccess(at)

	if t.onAccept != nil {
		t.onAccept(code, at)
	}
}

// logError writes the audit row. Failure to log must not mask the scan
// outcome, so it only lands in the process log.
func (t *Terminal) logError(code, reason string, at time.Time) {
	err := t.retry.Do(context.Background(), func() error {
		return t.sink.RecordError(code, t.stage, reason, at)
	})
	if err != nil {
		log.Printf("⚠️ Could not record scan error (%s %s): %v", code, reason, err)
	}
}

func (t *Terminal) printSuccess(at time.Time) {
	fmt.Fprintf(t.out, "SUKSES\n%s\n\n\n", models.LocalISO(at))
}

func (t *Terminal) printFailure(at time.Time, reason string) {
	fmt.Fprintf(t.out, "GAGAL\n%s\n%s\n\n", models.LocalISO(at), reason)
}
