// Package codes extracts and validates the entity codes carried by scanner
// input. Everything here is pure string work: no store access, no clock.
package codes

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/google/uuid"
)

const (
	// ItemPrefix marks an ingredient code (BHN-xxxxxxxx).
	ItemPrefix = "BHN-"
	// TrayPrefix marks a tray code (TRY-xxxxxxxx).
	TrayPrefix = "TRY-"

	// SuffixLength is the fixed alphanumeric suffix width.
	SuffixLength = 8
	// CodeLength is the full code width, prefix included.
	CodeLength = len(TrayPrefix) + SuffixLength
)

// Delimiters terminate a code token embedded in noisy scanner input.
const Delimiters = "&?#/\"',;)(][}{"

// Query-parameter keys recognized in URL-shaped scans, checked in order.
var paramKeys = []string{"id", "code", "tray_id", "barcode"}

var (
	itemCodeRe = regexp.MustCompile(`^BHN-[0-9A-Z]{8}$`)
	trayCodeRe = regexp.MustCompile(`^TRY-[0-9A-Z]{8}$`)
)

// Normalize extracts the canonical entity code from raw scanner input.
// Input may be a bare code, a URL carrying the code in a query parameter,
// or a code embedded in noise. Returns the trimmed original string when no
// recognized parameter or prefix is found, and "" for empty/whitespace input.
// Never fails.
func Normalize(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}

	if v := paramValue(s); v != "" {
		return strings.ToUpper(v)
	}

	if tok := prefixToken(s); tok != "" {
		return tok
	}

	return s
}

// paramValue scans for the first recognized query-parameter key and returns
// its value, truncated at the next delimiter.
func paramValue(s string) string {
	for _, key := range paramKeys {
		needle := key + "="
		from := 0
		for {
			idx := strings.Index(s[from:], needle)
			if idx < 0 {
				break
			}
			idx += from
			// The key must start a parameter, not end a longer one
			// (e.g. "tray_id=" also contains "id=").
			if idx > 0 {
				prev := s[idx-1]
				if prev != '?' && prev != '&' && prev != '#' {
					from = idx + len(needle)
					continue
				}
			}
			val := s[idx+len(needle):]
			if cut := strings.IndexAny(val, Delimiters); cut >= 0 {
				val = val[:cut]
			}
			val = strings.TrimSpace(val)
			if val != "" {
				return val
			}
			from = idx + len(needle)
		}
	}
	return ""
}

// prefixToken finds a known prefix and takes the contiguous token starting
// there, truncated at the first whitespace, then at the first delimiter.
func prefixToken(s string) string {
	upper := strings.ToUpper(s)
	idx := strings.Index(upper, ItemPrefix)
	if j := strings.Index(upper, TrayPrefix); j >= 0 && (idx < 0 || j < idx) {
		idx = j
	}
	if idx < 0 {
		return ""
	}
	tok := upper[idx:]
	if cut := strings.IndexFunc(tok, unicode.IsSpace); cut >= 0 {
		tok = tok[:cut]
	}
	if cut := strings.IndexAny(tok, Delimiters); cut >= 0 {
		tok = tok[:cut]
	}
	return tok
}

// IsItemCode reports whether s carries the ingredient prefix.
func IsItemCode(s string) bool {
	return strings.HasPrefix(strings.ToUpper(s), ItemPrefix)
}

// IsTrayCode reports whether s carries the tray prefix.
func IsTrayCode(s string) bool {
	return strings.HasPrefix(strings.ToUpper(s), TrayPrefix)
}

// WellFormedItemCode checks the exact BHN code shape.
func WellFormedItemCode(s string) bool {
	return itemCodeRe.MatchString(s)
}

// WellFormedTrayCode checks the exact TRY code shape. Length is checked
// exactly, not best-effort.
func WellFormedTrayCode(s string) bool {
	return trayCodeRe.MatchString(s)
}

// NewItemCode mints a fresh ingredient code for the receiving step.
func NewItemCode() string {
	return ItemPrefix + randomSuffix()
}

// NewTrayCode mints a fresh tray code for registration sheets.
func NewTrayCode() string {
	return TrayPrefix + randomSuffix()
}

func randomSuffix() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:SuffixLength])
}
