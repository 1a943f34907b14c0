package schema

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// SanitizeRule names a normalization applied to string form input.
type SanitizeRule string

const (
	SanitizeNone          SanitizeRule = ""
	SanitizeTrim          SanitizeRule = "trim"
	SanitizeTrimSlash     SanitizeRule = "trim_slash"
	SanitizeLowercase     SanitizeRule = "lowercase"
	SanitizeNormalizeName SanitizeRule = "normalize_name"
)

// ParseSanitizeRule parses a rule name. The empty string is SanitizeNone.
func ParseSanitizeRule(s string) (SanitizeRule, error) {
	switch r := SanitizeRule(strings.ToLower(strings.TrimSpace(s))); r {
	case SanitizeNone, SanitizeTrim, SanitizeTrimSlash, SanitizeLowercase, SanitizeNormalizeName:
		return r, nil
	default:
		return "", fmt.Errorf("unknown sanitize rule %q", s)
	}
}

// Apply returns the sanitized form of v. Output is NFC normalized for every
// rule except SanitizeNone, which returns v unchanged.
func (r SanitizeRule) Apply(v string) string {
	switch r {
	case SanitizeTrim:
		v = strings.TrimSpace(v)
	case SanitizeTrimSlash:
		v = strings.TrimSpace(strings.TrimRight(strings.TrimSpace(v), "/"))
	case SanitizeLowercase:
		v = strings.ToLower(strings.TrimSpace(v))
	case SanitizeNormalizeName:
		v = normalizeName(v)
	default:
		return v
	}
	return norm.NFC.String(v)
}

// nameTokens fixes up tokens after title casing.
var nameTokens = map[string]string{
	"Jr.": "Jr", "Sr.": "Sr",
	"I": "I", "Ii": "II", "Iii": "III", "Iv": "IV", "V": "V",
	"Vi": "VI", "Vii": "VII", "Viii": "VIII", "Ix": "IX", "X": "X",
	"Xi": "XI", "Xii": "XII", "Xiii": "XIII", "Xiv": "XIV", "Xv": "XV",
	"Xvi": "XVI", "Xvii": "XVII", "Xviii": "XVIII", "Xix": "XIX", "Xx": "XX",
}

// normalizeName title-cases each word of a personal name, upper-cases roman
// numeral suffixes, strips the dot from Jr./Sr. and drops lone dots.
func normalizeName(v string) string {
	// cases.Caser is stateful; one per call.
	title := cases.Title(language.Und)

	words := strings.Fields(v)
	out := make([]string, 0, len(words))
	for _, w := range words {
		if w == "." {
			continue
		}
		w = title.String(w)
		if fixed, ok := nameTokens[w]; ok {
			w = fixed
		}
		out = append(out, w)
	}
	return strings.Join(out, " ")
}
