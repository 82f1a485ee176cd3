package delivery

import (
	"net/url"
	"strings"
	"unicode/utf8"

	jsoniter "github.com/json-iterator/go"
)

// Scheme prefixes every command sent through the transport.
const Scheme = "javascript: "

// Encode percent-encodes payload for the transport.
// Spaces become %20, never '+', so a decoder that leaves '+' alone (or one
// that turns it into a space) cannot corrupt code containing '+'.
func Encode(payload string) string {
	return strings.ReplaceAll(url.QueryEscape(payload), "+", "%20")
}

// Command wraps payload as a single transport command.
func Command(payload string) string {
	return Scheme + Encode(payload)
}

// TemplateEscape escapes s for use inside a JavaScript template literal.
func TemplateEscape(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "`", "\\`")
	return strings.ReplaceAll(s, "${", "\\${")
}

// JSString returns s as a double-quoted JavaScript string literal.
func JSString(s string) string {
	b, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(s)
	if err != nil {
		// Unreachable for string input.
		return `""`
	}
	return string(b)
}

// ConsoleLog returns a statement logging msg as a template literal.
func ConsoleLog(msg string) string {
	return "console.log(`" + TemplateEscape(msg) + "`)"
}

// ConsoleError returns a statement logging msg as an error.
func ConsoleError(msg string) string {
	return "console.error(" + JSString(msg) + ")"
}

// Alert returns a statement showing msg in an alert dialog.
func Alert(msg string) string {
	return "alert('" + strings.ReplaceAll(msg, "'", `\'`) + "')"
}

// maxRuneCost is the largest encoded size of one escaped rune: a 4-byte
// UTF-8 sequence, percent-encoded.
const maxRuneCost = 12

// encodedLen returns len(Encode(s)) without building the result.
func encodedLen(s string) int {
	n := 0
	for i := 0; i < len(s); i++ {
		if unreserved(s[i]) {
			n++
		} else {
			n += 3
		}
	}
	return n
}

// unreserved reports whether Encode leaves c as is.
func unreserved(c byte) bool {
	return 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' || '0' <= c && c <= '9' ||
		c == '-' || c == '_' || c == '.' || c == '~'
}

// runeCost is the encoded size of the rune at s[i:i+size] once template
// escaped. A '$' before '{' is counted as escaped even when a chunk boundary
// falls between them.
func runeCost(s string, i, size int) int {
	switch s[i] {
	case '\\', '`':
		return 6
	case '$':
		if strings.HasPrefix(s[i+size:], "{") {
			return 6
		}
	}
	return encodedLen(s[i : i+size])
}

// splitChunks splits s into slices of at most maxRunes runes whose template
// escaped, percent-encoded form is at most budget characters. Order is kept.
func splitChunks(s string, maxRunes, budget int) []string {
	if s == "" {
		return []string{s}
	}
	var chunks []string
	start, count, cost := 0, 0, 0
	for i := 0; i < len(s); {
		_, size := utf8.DecodeRuneInString(s[i:])
		c := runeCost(s, i, size)
		if count > 0 && ((maxRunes > 0 && count == maxRunes) || cost+c > budget) {
			chunks = append(chunks, s[start:i])
			start, count, cost = i, 0, 0
		}
		count++
		cost += c
		i += size
	}
	return append(chunks, s[start:])
}
