// Package namecase generates naming-convention variants of an identifier
// so cross-language trace queries can match "getUserName" against
// "get_user_name" or "GetUserName" without a semantic fallback.
//
// No dependency in the teacher or the retrieved pack covers case
// conversion; this is plain string manipulation with no natural library
// home, so it stays on the standard library (see DESIGN.md).
package namecase

import "strings"

// Variants returns the set of naming-convention renderings of name:
// snake_case, camelCase, PascalCase, kebab-case, and SCREAMING_SNAKE_CASE.
// The input itself is always included. Duplicates are collapsed.
func Variants(name string) []string {
	words := splitWords(name)
	if len(words) == 0 {
		return []string{name}
	}

	seen := make(map[string]struct{})
	var out []string
	add := func(s string) {
		if s == "" {
			return
		}
		if _, ok := seen[s]; ok {
			return
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}

	add(name)
	add(toSnake(words))
	add(toCamel(words))
	add(toPascal(words))
	add(toKebab(words))
	add(toScreaming(words))
	return out
}

// splitWords breaks an identifier into lowercase words, handling
// snake_case, kebab-case, and camelCase/PascalCase boundaries.
func splitWords(name string) []string {
	var words []string
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			words = append(words, strings.ToLower(current.String()))
			current.Reset()
		}
	}

	runes := []rune(name)
	for i, r := range runes {
		switch {
		case r == '_' || r == '-' || r == ' ':
			flush()
		case r >= 'A' && r <= 'Z':
			if i > 0 {
				prev := runes[i-1]
				startsNewWord := prev >= 'a' && prev <= 'z'
				if !startsNewWord && i+1 < len(runes) {
					next := runes[i+1]
					startsNewWord = next >= 'a' && next <= 'z'
				}
				if startsNewWord {
					flush()
				}
			}
			current.WriteRune(r)
		default:
			current.WriteRune(r)
		}
	}
	flush()
	return words
}

func toSnake(words []string) string {
	return strings.Join(words, "_")
}

func toKebab(words []string) string {
	return strings.Join(words, "-")
}

func toScreaming(words []string) string {
	upper := make([]string, len(words))
	for i, w := range words {
		upper[i] = strings.ToUpper(w)
	}
	return strings.Join(upper, "_")
}

func toPascal(words []string) string {
	var b strings.Builder
	for _, w := range words {
		b.WriteString(capitalize(w))
	}
	return b.String()
}

func toCamel(words []string) string {
	if len(words) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(words[0])
	for _, w := range words[1:] {
		b.WriteString(capitalize(w))
	}
	return b.String()
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	if r[0] >= 'a' && r[0] <= 'z' {
		r[0] -= 'a' - 'A'
	}
	return string(r)
}
