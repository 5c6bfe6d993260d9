package handlers

import (
	"strings"

	"github.com/gissleh/ircengine"
	"github.com/gissleh/ircengine/ircutil"
)

// Input handles the default input commands. Commands that act on "the current
// channel" use the event's target, which is where the input was written.
func Input(event *irc.Event, client *irc.Client) {
	if event.Kind() != "input" {
		return
	}

	switch event.Verb() {

	// /msg sends a message to a target specified before the message.
	case "msg":
		{
			event.Kill()

			targetName, text := ircutil.ParseArgAndText(event.Text)
			if targetName == "" || text == "" {
				inputError(event, client, "Usage: /msg <target> <text...>")
				break
			}

			_ = client.Say(targetName, text)
		}

	// /text (or text without a command) sends a message to the target.
	case "text":
		{
			event.Kill()

			if event.Text == "" {
				inputError(event, client, "Usage: /text <text...>")
				break
			}
			if event.Target == nil {
				inputError(event, client, "Target is not a channel or query")
				break
			}

			name := event.Target.Name()
			for _, cut := range ircutil.CutMessage(event.Text, client.PrivmsgOverhead(name, false)) {
				client.SendQueued(irc.EncodeLine("PRIVMSG", name, ":", cut))
			}
		}

	// /me and /action sends a CTCP ACTION.
	case "me", "action":
		{
			event.Kill()

			if event.Text == "" {
				inputError(event, client, "Usage: /me <text...>")
				break
			}
			if event.Target == nil {
				inputError(event, client, "Target is not a channel or query")
				break
			}

			_ = client.Describe(event.Target.Name(), event.Text)
		}

	// /describe sends an action to a target specified before the message, like /msg.
	case "describe":
		{
			event.Kill()

			targetName, text := ircutil.ParseArgAndText(event.Text)
			if targetName == "" || text == "" {
				inputError(event, client, "Usage: /describe <target> <text...>")
				break
			}

			_ = client.Describe(targetName, text)
		}

	// /m is a shorthand for /mode that targets the current channel
	case "m":
		{
			event.Kill()

			channel, ok := event.Target.(*irc.Channel)
			if !ok {
				inputError(event, client, "Target is not a channel")
				break
			}
			if event.Text == "" {
				inputError(event, client, "Usage: /m <modes> [args...]")
				break
			}

			fields := strings.Fields(event.Text)
			_ = client.SetMode(channel.Name(), fields[0], fields[1:]...)
		}

	case "join":
		{
			event.Kill()

			channels, key := ircutil.ParseArgAndText(event.Text)
			if channels == "" {
				inputError(event, client, "Usage: /join <channels> [key]")
				break
			}

			if key != "" {
				_ = client.JoinWithKey(channels, key)
			} else {
				_ = client.Join(channels)
			}
		}

	// /part leaves the named channel, or the current one.
	case "part":
		{
			event.Kill()

			channelName, reason := ircutil.ParseArgAndText(event.Text)
			if !client.ISupport().IsChannel(channelName) {
				channel, ok := event.Target.(*irc.Channel)
				if !ok {
					inputError(event, client, "Usage: /part [channel] [reason...]")
					break
				}

				channelName, reason = channel.Name(), event.Text
			}

			_ = client.Part(channelName, reason)
		}

	case "topic":
		{
			event.Kill()

			channel, ok := event.Target.(*irc.Channel)
			if !ok {
				inputError(event, client, "Target is not a channel")
				break
			}

			_ = client.SetTopic(channel.Name(), event.Text)
		}

	case "kick":
		{
			event.Kill()

			channel, ok := event.Target.(*irc.Channel)
			if !ok {
				inputError(event, client, "Target is not a channel")
				break
			}

			nick, reason := ircutil.ParseArgAndText(event.Text)
			if nick == "" {
				inputError(event, client, "Usage: /kick <nick> [reason...]")
				break
			}

			_ = client.Kick(channel.Name(), nick, reason)
		}

	case "invite":
		{
			event.Kill()

			nick, channelName := ircutil.ParseArgAndText(event.Text)
			if channelName == "" {
				if channel, ok := event.Target.(*irc.Channel); ok {
					channelName = channel.Name()
				}
			}
			if nick == "" || channelName == "" {
				inputError(event, client, "Usage: /invite <nick> [channel]")
				break
			}

			_ = client.Invite(nick, channelName)
		}

	case "nick":
		{
			event.Kill()

			nick := strings.TrimSpace(event.Text)
			if nick == "" {
				inputError(event, client, "Usage: /nick <nick>")
				break
			}

			_ = client.SetNick(nick)
		}

	case "whois":
		{
			event.Kill()

			nick := strings.TrimSpace(event.Text)
			if nick == "" {
				if user, ok := event.Target.(*irc.User); ok {
					nick = user.Nick()
				}
			}
			if nick == "" {
				inputError(event, client, "Usage: /whois <nick>")
				break
			}

			_ = client.Whois(nick)
		}

	case "names":
		{
			event.Kill()

			channelName := strings.TrimSpace(event.Text)
			if channelName == "" {
				if channel, ok := event.Target.(*irc.Channel); ok {
					channelName = channel.Name()
				}
			}
			if channelName == "" {
				inputError(event, client, "Usage: /names <channel>")
				break
			}

			_ = client.Names(channelName)
		}

	case "list":
		{
			event.Kill()
			_ = client.List()
		}

	case "quit":
		{
			event.Kill()
			_ = client.Quit(event.Text)
		}

	// /quote sends the text as a raw line.
	case "quote", "raw":
		{
			event.Kill()

			if event.Text == "" {
				inputError(event, client, "Usage: /quote <line...>")
				break
			}

			_ = client.Send(event.Text)
		}
	}
}

func inputError(event *irc.Event, client *irc.Client, text string) {
	client.EmitNonBlocking(irc.NewErrorEventTarget(event.Target, "input", text, nil))
}
