// Package ctcp encodes and decodes Client-To-Client Protocol messages, which are carried inside the
// text of PRIVMSG (queries) and NOTICE (replies) between two delimiter characters. A single text may
// hold several of them mixed with plain text.
package ctcp

import (
	"strings"
)

// Delimiter marks the start and end of a CTCP message.
const Delimiter = '\x01'

const (
	lowQuote  = '\x10'
	highQuote = '\\'
)

// A Message is one CTCP message. Query is true for a PRIVMSG and false for a NOTICE, the latter
// being a reply.
type Message struct {
	Command string `json:"command"`
	Content string `json:"content,omitempty"`
	Query   bool   `json:"query"`
}

// String encodes the message with its delimiters.
func (message Message) String() string {
	return Encode(message.Command, message.Content)
}

var lowQuoter = strings.NewReplacer(
	"\x10", "\x10\x10",
	"\x00", "\x100",
	"\n", "\x10n",
	"\r", "\x10r",
)

var highQuoter = strings.NewReplacer(
	"\\", "\\\\",
	"\x01", "\\a",
)

// LowLevelQuote escapes NUL, CR and LF, which can't be sent in an IRC line.
func LowLevelQuote(s string) string {
	return lowQuoter.Replace(s)
}

// LowLevelDequote reverses LowLevelQuote. An unknown escape drops the quote character.
func LowLevelDequote(s string) string {
	return dequote(s, lowQuote, func(ch byte) (byte, bool) {
		switch ch {
		case '0':
			return 0, true
		case 'n':
			return '\n', true
		case 'r':
			return '\r', true
		case lowQuote:
			return lowQuote, true
		}

		return ch, false
	})
}

// Quote escapes the delimiter and the backslash inside a CTCP message.
func Quote(s string) string {
	return highQuoter.Replace(s)
}

// Dequote reverses Quote. An unknown escape like "\x" becomes "x".
func Dequote(s string) string {
	return dequote(s, highQuote, func(ch byte) (byte, bool) {
		switch ch {
		case 'a':
			return Delimiter, true
		case highQuote:
			return highQuote, true
		}

		return ch, false
	})
}

func dequote(s string, quote byte, unescape func(ch byte) (byte, bool)) string {
	if strings.IndexByte(s, quote) == -1 {
		return s
	}

	sb := strings.Builder{}
	sb.Grow(len(s))

	for i := 0; i < len(s); i++ {
		if s[i] != quote {
			sb.WriteByte(s[i])
			continue
		}

		// A trailing quote character has nothing to escape.
		if i+1 == len(s) {
			break
		}

		i++
		ch, _ := unescape(s[i])
		sb.WriteByte(ch)
	}

	return sb.String()
}

// Encode creates a delimited CTCP message with the command and content, quoted and ready to
// be used as the text of a PRIVMSG or NOTICE.
func Encode(command, content string) string {
	payload := strings.ToUpper(command)
	if content != "" {
		payload += " " + content
	}

	return string(Delimiter) + LowLevelQuote(Quote(payload)) + string(Delimiter)
}

// Decode decodes one CTCP payload, with or without its delimiters, into its upper-cased command and
// its content.
func Decode(payload string) (command, content string) {
	payload = strings.TrimPrefix(payload, string(Delimiter))
	payload = strings.TrimSuffix(payload, string(Delimiter))
	payload = Dequote(LowLevelDequote(payload))

	split := strings.SplitN(payload, " ", 2)
	command = strings.ToUpper(split[0])
	if len(split) == 2 {
		content = split[1]
	}

	return command, content
}

// IsCTCP returns true if the text contains at least one CTCP message.
func IsCTCP(text string) bool {
	return strings.IndexByte(text, Delimiter) != -1
}

// Split separates a text into the plain IRC texts and the CTCP messages in it. Plain texts are the
// non-empty parts outside the delimiters, and every part inside them is one CTCP message. A message
// missing its closing delimiter at the end of the text is still a CTCP message, since clients
// are known to leave it out.
func Split(text string, query bool) (texts []string, messages []Message) {
	if !IsCTCP(text) {
		if text == "" {
			return nil, nil
		}

		return []string{text}, nil
	}

	parts := strings.Split(text, string(Delimiter))
	for i, part := range parts {
		if i%2 == 0 {
			if part != "" {
				texts = append(texts, part)
			}

			continue
		}

		command, content := Decode(part)
		if command == "" {
			continue
		}

		messages = append(messages, Message{Command: command, Content: content, Query: query})
	}

	return texts, messages
}
