package codes

import (
	"strings"
	"testing"
)

func TestNormalizeBareCode(t *testing.T) {
	testCases := []struct {
		in   string
		want string
	}{
		{"BHN-1A2B3C4D", "BHN-1A2B3C4D"},
		{"  TRY-BBBBBBBB  ", "TRY-BBBBBBBB"},
		{"bhn-1a2b3c4d", "BHN-1A2B3C4D"},
		{"", ""},
		{"   ", ""},
		{"no prefix here", "no prefix here"},
	}

	for _, tc := range testCases {
		got := Normalize(tc.in)
		if got != tc.want {
			t.Errorf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeURLParams(t *testing.T) {
	testCases := []struct {
		in   string
		want string
	}{
		{"https://example.com/?tray_id=TRY-BBBBBBBB", "TRY-BBBBBBBB"},
		{"https://example.com/scan?id=BHN-1A2B3C4D&x=1", "BHN-1A2B3C4D"},
		{"https://example.com/?code=try-cccccccc#frag", "TRY-CCCCCCCC"},
		{"https://example.com/?barcode=BHN-99999999", "BHN-99999999"},
		// "tray_id=" must not be mistaken for a bare "id=" hit.
		{"https://x.io/?tray_id=TRY-AAAAAAAA&id=BHN-BBBBBBBB", "BHN-BBBBBBBB"},
	}

	for _, tc := range testCases {
		got := Normalize(tc.in)
		if got != tc.want {
			t.Errorf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeEmbeddedNoise(t *testing.T) {
	testCases := []struct {
		in   string
		want string
	}{
		{"junkBHN-1A2B3C4D&tail", "BHN-1A2B3C4D"},
		{"(TRY-BBBBBBBB)", "TRY-BBBBBBBB"},
		{"label: TRY-BBBBBBBB;rest", "TRY-BBBBBBBB"},
		{"BHN-1A2B3C4D/extra/path", "BHN-1A2B3C4D"},
		{"TRY-BBBBBBBB extra noise", "TRY-BBBBBBBB"},
		{"scanned BHN-1A2B3C4D ok", "BHN-1A2B3C4D"},
		{"TRY-BBBBBBBB\tthen a tab", "TRY-BBBBBBBB"},
	}

	for _, tc := range testCases {
		got := Normalize(tc.in)
		if got != tc.want {
			t.Errorf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestWellFormedCodes(t *testing.T) {
	if !WellFormedItemCode("BHN-1A2B3C4D") {
		t.Error("expected valid item code")
	}
	if WellFormedItemCode("BHN-1A2B3C") {
		t.Error("short suffix must be rejected")
	}
	if WellFormedItemCode("TRY-1A2B3C4D") {
		t.Error("tray prefix is not an item code")
	}
	if !WellFormedTrayCode("TRY-BBBBBBBB") {
		t.Error("expected valid tray code")
	}
	if WellFormedTrayCode("TRY-BBBBBBBBB") {
		t.Error("overlong suffix must be rejected")
	}
	if WellFormedTrayCode("TRY-bbbbbbbb") {
		t.Error("lowercase suffix must be rejected")
	}
}

func TestNewCodes(t *testing.T) {
	item := NewItemCode()
	if !WellFormedItemCode(item) {
		t.Errorf("NewItemCode produced malformed code %q", item)
	}
	tray := NewTrayCode()
	if !WellFormedTrayCode(tray) {
		t.Errorf("NewTrayCode produced malformed code %q", tray)
	}
	if len(tray) != CodeLength {
		t.Errorf("tray code length = %d, want %d", len(tray), CodeLength)
	}
	if strings.EqualFold(item, NewItemCode()) {
		t.Error("two generated codes should not collide")
	}
}
