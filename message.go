package irc

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gissleh/ircengine/ircutil"
)

// ErrMalformedSender is returned when a sender has a `!` or an `@`, but not both.
var ErrMalformedSender = errors.New("irc: malformed sender")

// ErrNoCommand is returned when a line has no command.
var ErrNoCommand = errors.New("irc: no command")

// A ParseError is returned by ParseMessage.
type ParseError struct {
	Line string
	Err  error
}

func (err *ParseError) Error() string {
	return fmt.Sprintf("irc: could not parse %q: %s", err.Line, err.Err)
}

func (err *ParseError) Unwrap() error {
	return err.Err
}

// A SenderResolver turns a sender's full name into a user. The client's
// Registry is one.
type SenderResolver interface {
	ResolveFullName(fullName string) (*User, error)
	Server() *User
}

// A Message is a parsed line from the server. It's only valid until the line
// has been dispatched.
type Message struct {
	Time       time.Time
	Sender     *User
	SenderName string
	Command    string
	Args       []string
	Content    string

	// Valid is cleared by compatibility handlers to prevent further handling.
	Valid bool

	hasContent bool
}

// ParseMessage parses a line. If the line has no sender, the resolver's
// server pseudo-user is used. The resolver may be nil, in which case Sender
// will be nil too.
func ParseMessage(line string, resolver SenderResolver, stripFormatting bool) (*Message, error) {
	line = strings.TrimRight(line, "\r\n")
	message := &Message{Time: time.Now(), Valid: true}
	rest := line

	// Sender
	if strings.HasPrefix(line, ":") {
		split := strings.SplitN(line[1:], " ", 2)
		message.SenderName = split[0]

		if _, _, _, err := SplitFullName(message.SenderName); err != nil {
			return nil, &ParseError{Line: line, Err: err}
		}
		if len(split) < 2 {
			return nil, &ParseError{Line: line, Err: ErrNoCommand}
		}

		rest = split[1]
	}

	// Command, args and content
	body := rest
	if strings.HasPrefix(rest, ":") {
		body = ""
		message.Content = rest[1:]
		message.hasContent = true
	} else if index := strings.Index(rest, " :"); index != -1 {
		body = rest[:index]
		message.Content = rest[index+2:]
		message.hasContent = true
	}

	tokens := strings.Fields(body)
	if len(tokens) == 0 {
		return nil, &ParseError{Line: line, Err: ErrNoCommand}
	}

	message.Command = normalizeCommand(tokens[0])
	message.Args = tokens[1:]

	if resolver != nil {
		if message.SenderName != "" {
			sender, err := resolver.ResolveFullName(message.SenderName)
			if err != nil {
				return nil, &ParseError{Line: line, Err: err}
			}

			message.Sender = sender
		} else {
			message.Sender = resolver.Server()
		}
	}

	if stripFormatting && message.hasContent {
		message.Content = ircutil.StripFormatting(message.Content)
	}

	return message, nil
}

// normalizeCommand lower-cases the command and strips every leading zero, so
// that "001" becomes "1". A command of only zeros becomes "0".
func normalizeCommand(command string) string {
	command = strings.TrimLeft(strings.ToLower(command), "0")
	if command == "" {
		return "0"
	}

	return command
}

// SplitFullName splits "nick!user@host" into its parts. A name with neither
// separator is just a nick or server name.
func SplitFullName(fullName string) (nick, user, host string, err error) {
	exclamation := strings.IndexByte(fullName, '!')
	at := strings.IndexByte(fullName, '@')

	switch {
	case exclamation == -1 && at == -1:
		return fullName, "", "", nil
	case exclamation == -1 || at == -1 || at < exclamation:
		return "", "", "", ErrMalformedSender
	}

	return fullName[:exclamation], fullName[exclamation+1 : at], fullName[at+1:], nil
}

// Arg gets the argument by index, or an empty string if it's out of range.
func (message *Message) Arg(index int) string {
	if index < 0 || index >= len(message.Args) {
		return ""
	}

	return message.Args[index]
}

// HasContent returns true if the line had a content part, even an empty one.
func (message *Message) HasContent() bool {
	return message.hasContent
}

// IsNumeric returns true if the command is a numeric reply.
func (message *Message) IsNumeric() bool {
	for _, ch := range message.Command {
		if ch < '0' || ch > '9' {
			return false
		}
	}

	return message.Command != ""
}

// SetContent sets the content.
func (message *Message) SetContent(content string) {
	message.Content = content
	message.hasContent = true
}

// ClearContent removes the content.
func (message *Message) ClearContent() {
	message.Content = ""
	message.hasContent = false
}

// Parts gets the parts EncodeLine needs to make a line out of this message,
// minus the sender.
func (message *Message) Parts() []string {
	parts := make([]string, 0, len(message.Args)+3)
	parts = append(parts, strings.ToUpper(message.Command))
	parts = append(parts, message.Args...)
	if message.hasContent {
		parts = append(parts, ":", message.Content)
	}

	return parts
}

// Text reassembles the arguments after the first (which is usually the
// client's nick) and the content into a readable line.
func (message *Message) Text() string {
	parts := make([]string, 0, len(message.Args))
	if len(message.Args) > 1 {
		parts = append(parts, message.Args[1:]...)
	}
	if message.Content != "" {
		parts = append(parts, message.Content)
	}

	return strings.Join(parts, " ")
}

// String encodes the message as a line, with the sender if one was parsed.
func (message *Message) String() string {
	line := EncodeLine(message.Parts()...)
	if message.SenderName != "" {
		return ":" + message.SenderName + " " + line
	}

	return line
}

var lineBreakRemover = strings.NewReplacer("\r", "", "\n", "")

// EncodeLine joins the parts with single spaces. A part that is exactly ":"
// marks the start of the content, and the space after it is dropped, so
// EncodeLine("PRIVMSG", "#Test", ":", "Hello!") gives "PRIVMSG #Test :Hello!".
// Line breaks are removed and trailing whitespace is trimmed.
func EncodeLine(parts ...string) string {
	sb := strings.Builder{}

	for i, part := range parts {
		if i > 0 {
			sb.WriteByte(' ')
		}

		if part == ":" {
			sb.WriteByte(':')
			sb.WriteString(strings.Join(parts[i+1:], " "))
			break
		}

		sb.WriteString(part)
	}

	return strings.TrimRight(lineBreakRemover.Replace(sb.String()), " \t")
}
