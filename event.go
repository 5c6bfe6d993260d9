package irc

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gissleh/ircengine/ctcp"
	"github.com/gissleh/ircengine/isupport"
)

// An Event is any thing that passes through the irc client's event loop. It's not thread safe, because it's processed
// in sequence and should not be used off the goroutine that processed it.
type Event struct {
	kind string
	verb string
	name string

	Time time.Time
	Args []string
	Text string
	Tags map[string]string

	// Message is the parsed line behind the event, if there is one.
	Message *Message
	// Sender is the user or server that caused the event.
	Sender *User
	// User is the user the event is about, like the one joining or being kicked.
	User *User
	// Channel is the channel the event is about.
	Channel *Channel
	// Channels is set on events concerning several channels, like client.list.
	Channels []*Channel
	// Modes is the split mode changes of channel.mode.
	Modes []isupport.ModeChange
	// CTCP is the message behind ctcp and ctcp-reply events.
	CTCP *ctcp.Message
	// Target is where replies should go, or where input came from.
	Target Target

	ctx    context.Context
	cancel context.CancelFunc
	killed bool
	hidden bool

	// Used by hook events.
	err   error
	conn  *connection
	token uint64
}

// NewEvent makes a new event with Kind, Verb, Time set and Args and Tags initialized.
func NewEvent(kind, verb string) Event {
	return Event{
		kind: kind,
		verb: verb,
		name: kind + "." + verb,

		Time: time.Now(),
		Args: make([]string, 0, 4),
		Tags: make(map[string]string),
	}
}

// Kind gets the event's kind
func (event *Event) Kind() string {
	return event.kind
}

// Verb gets the event's verb
func (event *Event) Verb() string {
	return event.verb
}

// Name gets the event name, which is Kind and Verb separated by a dot.
func (event *Event) Name() string {
	return event.name
}

// IsEither returns true if the event has the kind and one of the verbs.
func (event *Event) IsEither(kind string, verbs ...string) bool {
	if event.kind != kind {
		return false
	}

	for i := range verbs {
		if event.verb == verbs[i] {
			return true
		}
	}

	return false
}

// Arg gets the argument by index, or an empty string if it's out of range.
func (event *Event) Arg(index int) string {
	if index < 0 || index >= len(event.Args) {
		return ""
	}

	return event.Args[index]
}

// Context gets the event's context if it's part of the loop, or `context.Background` otherwise. client.Emit
// will set this context on its copy and return it.
func (event *Event) Context() context.Context {
	if event.ctx == nil {
		return context.Background()
	}

	return event.ctx
}

// Kill stops propagation of the event. The context will be killed once
// the current event handler returns.
func (event *Event) Kill() {
	event.killed = true
}

// Killed returns true if Kill has been called.
func (event *Event) Killed() bool {
	return event.killed
}

// Hide will not stop propagation, but it will allow output handlers to know not to
// render it.
func (event *Event) Hide() {
	event.hidden = true
}

// Hidden returns true if Hide has been called.
func (event *Event) Hidden() bool {
	return event.hidden
}

// MarshalJSON makes a JSON object from the event. Users and channels are
// represented by their names.
func (event *Event) MarshalJSON() ([]byte, error) {
	data := map[string]interface{}{
		"kind":   event.kind,
		"verb":   event.verb,
		"time":   event.Time,
		"text":   event.Text,
		"args":   event.Args,
		"tags":   event.Tags,
		"killed": event.killed,
		"hidden": event.hidden,
	}

	if event.Sender != nil {
		data["sender"] = event.Sender.Nick()
	}
	if event.User != nil {
		data["user"] = event.User.Nick()
	}
	if event.Channel != nil {
		data["channel"] = event.Channel.Name()
	}
	if len(event.Channels) > 0 {
		names := make([]string, 0, len(event.Channels))
		for _, channel := range event.Channels {
			names = append(names, channel.Name())
		}

		data["channels"] = names
	}
	if len(event.Modes) > 0 {
		modes := make([]string, 0, len(event.Modes))
		for _, change := range event.Modes {
			modes = append(modes, change.String())
		}

		data["modes"] = modes
	}
	if event.CTCP != nil {
		data["ctcp"] = event.CTCP
	}
	if event.Target != nil {
		data["target"] = event.Target.Kind() + ":" + event.Target.Name()
	}

	return json.Marshal(data)
}
