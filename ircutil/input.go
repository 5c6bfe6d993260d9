package ircutil

import "strings"

// ParseArgAndText parses a text like "#Channel stuff and things" into "#Channel"
// and "stuff and things". Input commands use it for their first argument.
func ParseArgAndText(s string) (arg, text string) {
	arg, text, _ = strings.Cut(strings.TrimLeft(s, " "), " ")
	return arg, strings.TrimLeft(text, " ")
}
