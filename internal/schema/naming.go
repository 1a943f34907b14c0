package schema

import (
	"strings"
	"unicode"
)

// SnakeCase converts an identifier to snake_case.
//
//	UserProfile -> user_profile
//	HTTPServer  -> http_server
//	userID      -> user_id
//	full_name   -> full_name
func SnakeCase(s string) string {
	runes := []rune(strings.TrimSpace(s))
	var b strings.Builder
	b.Grow(len(runes) + 4)

	var last rune
	write := func(r rune) {
		b.WriteRune(r)
		last = r
	}

	for i, r := range runes {
		switch {
		case r == '-' || r == ' ' || r == '_':
			if b.Len() > 0 && last != '_' {
				write('_')
			}
		case unicode.IsUpper(r):
			if b.Len() > 0 && last != '_' {
				prev := runes[i-1]
				nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
					write('_')
				}
			}
			write(unicode.ToLower(r))
		default:
			write(r)
		}
	}

	return strings.TrimSuffix(b.String(), "_")
}

// CamelCase converts a snake_case identifier to lower camelCase.
func CamelCase(s string) string {
	parts := strings.Split(SnakeCase(s), "_")
	var b strings.Builder
	for _, p := range parts {
		if p == "" {
			continue
		}
		if b.Len() == 0 {
			b.WriteString(p)
			continue
		}
		r := []rune(p)
		r[0] = unicode.ToUpper(r[0])
		b.WriteString(string(r))
	}
	return b.String()
}
