package irc

import (
	"strings"

	"github.com/gissleh/ircengine/ctcp"
)

func handleNick(client *Client, message *Message) {
	user := message.Sender
	if user == nil || user.IsServer() {
		return
	}

	oldNick := user.Nick()
	newNick := message.Args[0]

	client.registry.rename(user, newNick)
	if client.registry.IsMe(user) {
		client.registry.setPreviousNick(oldNick)
	}

	event := NewEvent("user", "nick")
	event.Args = append(event.Args, oldNick, newNick)
	event.Text = newNick
	event.Message = message
	event.Sender = user
	client.raiseUser(user, &event)
}

func handleQuit(client *Client, message *Message) {
	user := message.Sender
	if user == nil || user.IsServer() {
		return
	}

	for _, channel := range user.Channels() {
		client.registry.leave(channel, user)

		event := NewEvent("channel", "quit")
		event.Text = message.Content
		event.Message = message
		event.Sender = user
		event.User = user
		client.raiseChannel(channel, &event)
	}

	event := NewEvent("user", "quit")
	event.Text = message.Content
	event.Message = message
	event.Sender = user
	client.raiseUser(user, &event)

	client.registry.quit(user)
}

func handlePrivmsg(client *Client, message *Message) {
	handleText(client, message, "message", true)
}

func handleNotice(client *Client, message *Message) {
	handleText(client, message, "notice", false)
}

// handleText splits the CTCP messages out of a PRIVMSG or NOTICE, and raises
// the text and every CTCP message as their own events. Messages to a channel
// go to the channel, and private messages go to the sender.
func handleText(client *Client, message *Message, verb string, query bool) {
	sender := message.Sender
	if sender == nil || len(message.Args) == 0 {
		return
	}

	var channel *Channel
	var target Target = sender
	if client.isupport.IsChannel(message.Args[0]) {
		channel = client.registry.GetOrCreateChannel(message.Args[0])
		target = channel
	}

	texts, ctcpMessages := ctcp.Split(message.Content, query)

	for _, text := range texts {
		if channel != nil {
			event := NewEvent("channel", verb)
			event.Text = text
			event.Message = message
			event.Sender = sender
			event.User = sender
			event.Target = target
			client.raiseChannel(channel, &event)
		} else {
			event := NewEvent("user", verb)
			event.Text = text
			event.Message = message
			event.Sender = sender
			event.Target = target
			client.raiseUser(sender, &event)
		}
	}

	kind := "ctcp"
	if !query {
		kind = "ctcp-reply"
	}

	for i := range ctcpMessages {
		ctcpMessage := ctcpMessages[i]

		event := NewEvent(kind, strings.ToLower(ctcpMessage.Command))
		event.Text = ctcpMessage.Content
		event.CTCP = &ctcpMessage
		event.Message = message
		event.Sender = sender
		event.User = sender
		event.Target = target

		if channel != nil {
			client.raiseChannel(channel, &event)
		} else {
			client.raiseUser(sender, &event)
		}
	}
}
