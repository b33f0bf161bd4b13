package ingest

import "strings"

// CanonicalLineID normalizes the many representations a line number takes
// across source files ("4", " 4 ", "4.0", "04.00") to one join key.
// Surrounding whitespace is stripped and a decimal point with an all-zero
// fractional part is truncated; anything else is preserved verbatim.
// The function is idempotent.
func CanonicalLineID(raw string) string {
	s := strings.TrimSpace(raw)
	if dot := strings.IndexByte(s, '.'); dot >= 0 {
		frac := s[dot+1:]
		if allZeros(frac) {
			s = s[:dot]
		}
	}
	// Leading zeros denote the same line ("04" == "4"), except for a
	// bare "0" or an empty string.
	if len(s) > 1 && isDigits(s) {
		s = strings.TrimLeft(s, "0")
		if s == "" {
			s = "0"
		}
	}
	return s
}

// SplitLineID splits a raw line identifier into its canonical
// (main, sub) components. A "56-1" style suffix denotes a sub-line with
// its own stop sequence and must stay a separate key component; a plain
// "56" gets sub-number "0".
func SplitLineID(raw string) (main, sub string) {
	s := strings.TrimSpace(raw)
	if dash := strings.IndexByte(s, '-'); dash >= 0 {
		return CanonicalLineID(s[:dash]), CanonicalLineID(s[dash+1:])
	}
	return CanonicalLineID(s), "0"
}

func allZeros(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] != '0' {
			return false
		}
	}
	return true
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
