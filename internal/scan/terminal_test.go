package scan

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dapurpintar/dpmbggo/internal/models"
	"github.com/dapurpintar/dpmbggo/internal/retry"
)

// fakeSink records commits and errors, and can fail a number of times to
// exercise the retry path.
type fakeSink struct {
	commits     []string
	errs        []string
	failCommits int
	failWith    error
}

func (f *fakeSink) CommitScan(code string, stage Stage, at time.Time) error {
	if f.failCommits > 0 {
		f.failCommits--
		return f.failWith
	}
	f.commits = append(f.commits, code)
	return nil
}

func (f *fakeSink) RecordError(code string, stage Stage, reason string, at time.Time) error {
	f.errs = append(f.errs, reason)
	return nil
}

func newTestTerminal(stage Stage, state EntityState, sink Sink, out *bytes.Buffer) *Terminal {
	return NewTerminal(TerminalConfig{
		Stage:    stage,
		State:    state,
		Sink:     sink,
		Debounce: NewDebouncer(700 * time.Millisecond),
		Out:      out,
		Retry:    retry.Policy{MaxAttempts: 3, Backoff: time.Millisecond},
	})
}

func TestHandleLineAcceptAndRecord(t *testing.T) {
	state := &fakeState{items: map[string]string{"BHN-AAAAAAAA": models.LabelReceived}}
	sink := &fakeSink{}
	var out bytes.Buffer

	term := newTestTerminal(StageProcessing, state, sink, &out)
	term.HandleLine("BHN-AAAAAAAA")

	if len(sink.commits) != 1 || sink.commits[0] != "BHN-AAAAAAAA" {
		t.Fatalf("expected one committed scan, got %v", sink.commits)
	}
	if !strings.HasPrefix(out.String(), "SUKSES\n") {
		t.Errorf("expected SUKSES block, got %q", out.String())
	}
	if !strings.HasSuffix(out.String(), "\n\n\n") {
		t.Errorf("success block must end with two blank lines, got %q", out.String())
	}
}

func TestHandleLineRejectProducesGagalBlock(t *testing.T) {
	state := &fakeState{items: map[string]string{}}
	sink := &fakeSink{}
	var out bytes.Buffer

	term := newTestTerminal(StageProcessing, state, sink, &out)
	term.HandleLine("BHN-AAAAAAAA")

	lines := strings.Split(out.String(), "\n")
	if lines[0] != "GAGAL" {
		t.Fatalf("expected GAGAL block, got %q", out.String())
	}
	if lines[2] != ReasonIngredientNotFound {
		t.Errorf("expected reason on third line, got %q", lines[2])
	}
	if len(sink.errs) != 1 || sink.errs[0] != ReasonIngredientNotFound {
		t.Errorf("rejection must produce exactly one scan error row, got %v", sink.errs)
	}
	if len(sink.commits) != 0 {
		t.Error("rejected scan must not be committed")
	}
}

func TestHandleLineDebouncesDuplicates(t *testing.T) {
	state := &fakeState{items: map[string]string{"BHN-AAAAAAAA": models.LabelReceived}}
	sink := &fakeSink{}
	var out bytes.Buffer

	now := time.Now()
	term := NewTerminal(TerminalConfig{
		Stage:    StageProcessing,
		State:    state,
		Sink:     sink,
		Debounce: NewDebouncer(700 * time.Millisecond),
		Out:      &out,
		Now:      func() time.Time { return now },
		Retry:    retry.Policy{MaxAttempts: 1},
	})

	term.HandleLine("BHN-AAAAAAAA")
	term.HandleLine("BHN-AAAAAAAA") // same instant: hardware double-fire

	if got := strings.Count(out.String(), "SUKSES"); got != 1 {
		t.Errorf("expected exactly one outcome, got %d", got)
	}
	if len(sink.commits) != 1 {
		t.Errorf("duplicate must not be committed, got %d commits", len(sink.commits))
	}
	if len(sink.errs) != 0 {
		t.Errorf("debounced scan must not be logged as an error, got %v", sink.errs)
	}
}

func TestHandleLineRetriesTransientCommitFailure(t *testing.T) {
	state := &fakeState{items: map[string]string{"BHN-AAAAAAAA": models.LabelReceived}}
	sink := &fakeSink{failCommits: 2, failWith: errors.New("database is locked")}
	var out bytes.Buffer

	term := newTestTerminal(StageProcessing, state, sink, &out)
	term.HandleLine("BHN-AAAAAAAA")

	if len(sink.commits) != 1 {
		t.Fatalf("commit should succeed on third attempt, got %v", sink.commits)
	}
	if !strings.HasPrefix(out.String(), "SUKSES\n") {
		t.Errorf("expected SUKSES after retries, got %q", out.String())
	}
}

func TestHandleLineFailsVisiblyWhenRetriesExhausted(t *testing.T) {
	state := &fakeState{items: map[string]string{"BHN-AAAAAAAA": models.LabelReceived}}
	sink := &fakeSink{failCommits: 99, failWith: errors.New("database is locked")}
	var out bytes.Buffer

	term := newTestTerminal(StageProcessing, state, sink, &out)
	term.HandleLine("BHN-AAAAAAAA")

	if !strings.HasPrefix(out.String(), "GAGAL\n") {
		t.Fatalf("exhausted retries must surface as a failure, got %q", out.String())
	}
	if !strings.Contains(out.String(), ReasonUnreachable) {
		t.Errorf("expected %s reason, got %q", ReasonUnreachable, out.String())
	}
}

func TestHandleLineEmptyInput(t *testing.T) {
	sink := &fakeSink{}
	var out bytes.Buffer

	term := newTestTerminal(StageProcessing, &fakeState{}, sink, &out)
	term.HandleLine("   ")

	if !strings.Contains(out.String(), ReasonEmptyScan) {
		t.Errorf("expected EMPTY_SCAN rejection, got %q", out.String())
	}
}

func TestHandleLineOnAcceptHookRuns(t *testing.T) {
	state := &fakeState{trays: map[string]TrayState{"TRY-BBBBBBBB": {}}}
	sink := &fakeSink{}
	var out bytes.Buffer
	var hooked []string

	term := NewTerminal(TerminalConfig{
		Stage: StagePacking,
		State: state,
		Sink:  sink,
		Out:   &out,
		Retry: retry.Policy{MaxAttempts: 1},
		OnAccept: func(code string, at time.Time) {
			hooked = append(hooked, code)
		},
	})
	term.HandleLine("TRY-BBBBBBBB")

	if len(hooked) != 1 || hooked[0] != "TRY-BBBBBBBB" {
		t.Errorf("accept hook did not run, got %v", hooked)
	}
}

func TestRunConsumesStream(t *testing.T) {
	state := &fakeState{items: map[string]string{"BHN-AAAAAAAA": models.LabelReceived}}
	sink := &fakeSink{}
	var out bytes.Buffer

	term := newTestTerminal(StageProcessing, state, sink, &out)
	input := "BHN-AAAAAAAA\nBHN-MISSING1\n"
	if err := term.Run(strings.NewReader(input)); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if !strings.Contains(out.String(), "SUKSES") || !strings.Contains(out.String(), "GAGAL") {
		t.Errorf("expected one success and one failure block, got %q", out.String())
	}
}
