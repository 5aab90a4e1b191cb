package engine

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold reduces a label to its matching form: diacritics stripped, uppercased,
// everything outside [A-Z0-9 ] removed, whitespace collapsed and trimmed.
// Fold is idempotent.
func Fold(raw string) string {
	if raw == "" {
		return ""
	}

	// transform chains hold state, so one is built per call.
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)))
	decomposed, _, err := transform.String(t, raw)
	if err != nil {
		decomposed = raw
	}

	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		switch {
		case r >= 'a' && r <= 'z':
			b.WriteRune(r - 'a' + 'A')
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteByte(' ')
		}
	}

	return strings.Join(strings.Fields(b.String()), " ")
}

// CanonicalizePatient returns the matching key for a patient label.
func CanonicalizePatient(raw string) string {
	return Fold(raw)
}

// CanonicalizeProcedure folds a procedure label and resolves it through the
// alias table in a single lookup. Unknown labels are their own key.
func CanonicalizeProcedure(raw string, aliases AliasTable) string {
	key := Fold(raw)
	if key == "" || aliases == nil {
		return key
	}
	if canonical, ok := aliases.Lookup(key); ok {
		return Fold(canonical)
	}
	return key
}
