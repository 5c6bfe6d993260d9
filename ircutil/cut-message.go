package ircutil

import (
	"strings"
	"unicode/utf8"
)

// MaxLineLength is the longest line a server will relay, without the CRLF.
const MaxLineLength = 510

// MessageOverhead calculates the overhead in a `PRIVMSG` sent by a client
// with the given nick, user, host and target name, as it's relayed to others.
// A `NOTICE` is shorter, so it is safe to use the same function for it.
func MessageOverhead(nick, user, host, target string, action bool) int {
	// ":nick!user@host PRIVMSG target :"
	overhead := len(nick) + len(user) + len(host) + len(target) + len(":!@ PRIVMSG  :")
	if action {
		overhead += len("\x01ACTION \x01")
	}

	return overhead
}

// CutMessage splits the text between words so that every cut fits in a line
// with the given overhead. Joining the cuts with single spaces gives back the
// text. If a word is too long to fit on its own, the whole text is cut with
// CutMessageNoSpace instead.
func CutMessage(text string, overhead int) []string {
	limit := MaxLineLength - overhead
	if len(text) <= limit {
		return []string{text}
	}

	words := strings.Split(text, " ")
	for _, word := range words {
		if len(word) >= limit {
			return CutMessageNoSpace(text, overhead)
		}
	}

	cuts := make([]string, 0, len(text)/limit+1)
	current := strings.Builder{}
	started := false
	for _, word := range words {
		if started && current.Len()+1+len(word) > limit {
			cuts = append(cuts, current.String())
			current.Reset()
			started = false
		}

		if started {
			current.WriteByte(' ')
		}
		current.WriteString(word)
		started = true
	}

	return append(cuts, current.String())
}

// CutMessageNoSpace cuts the text between runes, so joining the cuts without
// anything in between gives back the text.
func CutMessageNoSpace(text string, overhead int) []string {
	limit := MaxLineLength - overhead
	cuts := make([]string, 0, len(text)/limit+1)

	start := 0
	for i := 0; i < len(text); {
		_, size := utf8.DecodeRuneInString(text[i:])
		if i+size-start > limit {
			cuts = append(cuts, text[start:i])
			start = i
		}

		i += size
	}

	return append(cuts, text[start:])
}
