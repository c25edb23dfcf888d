package router

import (
	"strings"
	"unicode"
)

// parsed is a message recognized as a command call.
type parsed struct {
	alias string
	args  []string
}

// parse splits text into an alias and arguments if it starts with prefix
// immediately followed by an alias token.
func parse(text, prefix string) (parsed, bool) {
	if prefix == "" || !strings.HasPrefix(text, prefix) {
		return parsed{}, false
	}
	rest := stripControl(text[len(prefix):])
	if rest == "" || unicode.IsSpace(rune(rest[0])) {
		return parsed{}, false
	}

	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return parsed{}, false
	}
	return parsed{alias: fields[0], args: fields[1:]}, true
}

// stripControl drops control characters other than whitespace.
func stripControl(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && !unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
