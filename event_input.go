package irc

import (
	"strings"
)

// ParseInput parses a line typed by the user into an event. A line starting
// with a slash becomes `input.<command>` with the rest in Text, and anything
// else becomes `input.text`. A double slash escapes the command, so "//help"
// is sent as the text "/help". Args holds the words of Text.
func ParseInput(line string) Event {
	line = strings.TrimRight(line, "\r\n")

	verb, text := "text", strings.TrimPrefix(line, "/")
	if strings.HasPrefix(line, "/") && !strings.HasPrefix(line, "//") {
		verb, text, _ = strings.Cut(line[1:], " ")
		verb = strings.ToLower(verb)
	}

	event := NewEvent("input", verb)
	event.Text = text
	event.Args = strings.Fields(text)

	return event
}
