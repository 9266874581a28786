package scan

import (
	"testing"
	"time"
)

func TestDebouncerDropsImmediateRepeat(t *testing.T) {
	d := NewDebouncer(700 * time.Millisecond)
	now := time.Now()

	if d.ShouldDrop("TRY-BBBBBBBB", now) {
		t.Fatal("first scan must pass")
	}
	if !d.ShouldDrop("TRY-BBBBBBBB", now.Add(100*time.Millisecond)) {
		t.Error("repeat within window must be dropped")
	}
}

func TestDebouncerPassesAfterWindow(t *testing.T) {
	d := NewDebouncer(700 * time.Millisecond)
	now := time.Now()

	d.ShouldDrop("TRY-BBBBBBBB", now)
	if d.ShouldDrop("TRY-BBBBBBBB", now.Add(800*time.Millisecond)) {
		t.Error("same code after the window must pass")
	}
}

func TestDebouncerPassesDifferentCode(t *testing.T) {
	d := NewDebouncer(700 * time.Millisecond)
	now := time.Now()

	d.ShouldDrop("TRY-BBBBBBBB", now)
	if d.ShouldDrop("TRY-CCCCCCCC", now.Add(50*time.Millisecond)) {
		t.Error("different code must always pass")
	}
	// The different code replaces the remembered scan.
	if !d.ShouldDrop("TRY-CCCCCCCC", now.Add(100*time.Millisecond)) {
		t.Error("repeat of the new code must be dropped")
	}
}
