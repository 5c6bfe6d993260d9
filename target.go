package irc

import (
	"fmt"

	"github.com/gissleh/ircengine/ctcp"
)

// A LineSender is anything that can send an encoded line to the server. The
// client is one, and it's given to every user and channel it tracks.
type LineSender interface {
	SendLine(parts ...string) error
}

// A Target is something that can be messaged, which is either a *User or a *Channel.
type Target interface {
	Kind() string
	Name() string
	AddHandler(handler Handler)
	Say(text string) error
	Notice(text string) error
	Describe(text string) error
}

type messageTarget struct {
	sender LineSender
}

func (target messageTarget) say(name, text string) error {
	return target.sender.SendLine("PRIVMSG", name, ":", text)
}

func (target messageTarget) notice(name, text string) error {
	return target.sender.SendLine("NOTICE", name, ":", text)
}

func (target messageTarget) describe(name, text string) error {
	return target.sender.SendLine("PRIVMSG", name, ":", ctcp.Encode("ACTION", text))
}

func (target messageTarget) sayf(name, format string, a ...interface{}) error {
	return target.say(name, fmt.Sprintf(format, a...))
}
