package impact

import (
	"strings"
)

// walk visits text from position from, skipping string literals and comments.
// depth is the bracket depth relative to from; closing brackets are reported
// after the decrement, so leaving the enclosing group shows up as depth -1.
// fn returns false to stop.
func walk(text string, from int, fn func(i, depth int) bool) {
	depth := 0
	for i := from; i < len(text); i++ {
		switch ch := text[i]; ch {
		case '\'', '"', '`':
			i = skipQuoted(text, i)
			continue
		case '/':
			if i+1 < len(text) && text[i+1] == '/' {
				if nl := strings.IndexByte(text[i:], '\n'); nl >= 0 {
					i += nl - 1
				} else {
					i = len(text)
				}
				continue
			}
			if i+1 < len(text) && text[i+1] == '*' {
				if end := strings.Index(text[i+2:], "*/"); end >= 0 {
					i += end + 3
				} else {
					i = len(text)
				}
				continue
			}
		case '(', '[', '{':
			if !fn(i, depth) {
				return
			}
			depth++
			continue
		case ')', ']', '}':
			depth--
		}
		if !fn(i, depth) {
			return
		}
	}
}

// skipQuoted returns the index of the quote closing the literal opened at i.
// Single and double quoted literals stop at a newline so that a stray
// apostrophe in markup does not swallow the rest of the file.
func skipQuoted(text string, i int) int {
	q := text[i]
	for j := i + 1; j < len(text); j++ {
		switch text[j] {
		case '\\':
			j++
		case q:
			return j
		case '\n':
			if q != '`' {
				return j - 1
			}
		}
	}
	return len(text) - 1
}

// isTernaryQ tells a conditional ? apart from ?. and ??.
func isTernaryQ(text string, i int) bool {
	if text[i] != '?' {
		return false
	}
	if i+1 < len(text) && (text[i+1] == '.' || text[i+1] == '?') {
		return false
	}
	return i == 0 || text[i-1] != '?'
}

// continues reports whether the expression around the newline at i goes on
// to the next line.
func continues(text string, i int) bool {
	prev := strings.TrimRight(text[:i], " \t\r")
	next := strings.TrimLeft(text[i+1:], " \t\r\n")
	if prev != "" && strings.ContainsRune("&|(?:=,+-<>!", rune(prev[len(prev)-1])) {
		return true
	}
	return next != "" && strings.ContainsRune("&|?:.)+-", rune(next[0]))
}

// ternary holds the positions of one cond ? a : b expression. The true branch
// is (q, colon), the false branch (colon, end).
type ternary struct {
	q, colon, end int
}

// findTernary looks for the ternary whose condition contains position from.
// The scan may leave enclosing parentheses, as in (isV3() && x) ? a : b.
func findTernary(text string, from int) (ternary, bool) {
	q, floor := -1, 0
	walk(text, from, func(i, depth int) bool {
		ch := text[i]
		if depth < floor {
			if ch != ')' {
				return false
			}
			floor = depth
			return true
		}
		if depth > floor {
			return true
		}
		switch ch {
		case ';', ',', '{':
			return false
		case '\n':
			return continues(text, i)
		case '?':
			if isTernaryQ(text, i) {
				q = i
				return false
			}
		}
		return true
	})
	if q < 0 {
		return ternary{}, false
	}

	colon, nested := -1, 0
	walk(text, q+1, func(i, depth int) bool {
		if depth < 0 {
			return false
		}
		if depth > 0 {
			return true
		}
		switch text[i] {
		case ';':
			return false
		case '?':
			if isTernaryQ(text, i) {
				nested++
			}
		case ':':
			if nested == 0 {
				colon = i
				return false
			}
			nested--
		}
		return true
	})
	if colon < 0 {
		return ternary{}, false
	}

	end := len(text)
	nested = 0
	walk(text, colon+1, func(i, depth int) bool {
		if depth < 0 {
			end = i
			return false
		}
		if depth > 0 {
			return true
		}
		switch text[i] {
		case ',', ';':
			end = i
			return false
		case '?':
			if isTernaryQ(text, i) {
				nested++
			}
		case ':':
			if nested == 0 {
				end = i
				return false
			}
			nested--
		case '\n':
			if strings.TrimSpace(text[colon+1:i]) != "" && !continues(text, i) {
				end = i
				return false
			}
		}
		return true
	})

	return ternary{q: q, colon: colon, end: end}, true
}

// splitTopLevel splits s at commas outside brackets, strings and comments.
func splitTopLevel(s string, sep byte) []string {
	var parts []string
	last := 0
	walk(s, 0, func(i, depth int) bool {
		if depth == 0 && s[i] == sep {
			parts = append(parts, s[last:i])
			last = i + 1
		}
		return true
	})
	return append(parts, s[last:])
}

// indexTopLevel returns the first index of sub in s outside brackets,
// strings and comments, or -1.
func indexTopLevel(s, sub string) int {
	found := -1
	walk(s, 0, func(i, depth int) bool {
		if depth == 0 && strings.HasPrefix(s[i:], sub) {
			found = i
			return false
		}
		return true
	})
	return found
}

// closingParen returns the index of the parenthesis closing the one at open.
func closingParen(text string, open int) (int, bool) {
	end := -1
	walk(text, open+1, func(i, depth int) bool {
		if depth < 0 {
			end = i
			return false
		}
		return true
	})
	return end, end >= 0
}
