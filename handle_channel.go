package irc

import (
	"strconv"
	"strings"
	"time"

	"github.com/gissleh/ircengine/list"
)

func handleJoin(client *Client, message *Message) {
	channel := client.registry.GetOrCreateChannel(message.Args[0])
	user := message.Sender
	if user == nil || user.IsServer() {
		return
	}

	if client.registry.IsMe(user) {
		// Anything known from before the client left is stale.
		channel.resetState()
		client.registry.setUsers(channel, nil)

		_ = client.SendLine("MODE", channel.Name())
	}

	client.registry.join(channel, user, 0)

	event := NewEvent("channel", "join")
	event.Message = message
	event.Sender = user
	event.User = user
	client.raiseChannel(channel, &event)
}

func handlePart(client *Client, message *Message) {
	channel := client.registry.GetOrCreateChannel(message.Args[0])
	user := message.Sender
	if user == nil || user.IsServer() {
		return
	}

	if client.registry.IsMe(user) {
		client.registry.setUsers(channel, nil)
	} else {
		client.registry.leave(channel, user)
	}

	event := NewEvent("channel", "part")
	event.Text = message.Content
	event.Message = message
	event.Sender = user
	event.User = user
	client.raiseChannel(channel, &event)

	if client.registry.IsMe(user) {
		raiseEnded(client, channel, "part", message)
	}
}

func handleKick(client *Client, message *Message) {
	channel := client.registry.GetOrCreateChannel(message.Args[0])
	user := client.registry.GetOrCreateUser(message.Args[1])

	if client.registry.IsMe(user) {
		client.registry.setUsers(channel, nil)
	} else {
		client.registry.leave(channel, user)
	}

	event := NewEvent("channel", "kick")
	event.Text = message.Content
	event.Message = message
	event.Sender = message.Sender
	event.User = user
	client.raiseChannel(channel, &event)

	if client.registry.IsMe(user) {
		raiseEnded(client, channel, "kick", message)
	}
}

// raiseEnded tells handlers that the client is no longer in the channel.
func raiseEnded(client *Client, channel *Channel, reason string, message *Message) {
	event := NewEvent("channel", "ended")
	event.Text = reason
	event.Message = message
	client.raiseChannel(channel, &event)
}

func handleTopic(client *Client, message *Message) {
	channel := client.registry.GetOrCreateChannel(message.Args[0])
	channel.setTopic(Topic{
		Text:   message.Content,
		Setter: message.Sender,
		Date:   message.Time,
	})

	event := NewEvent("channel", "topic")
	event.Text = message.Content
	event.Message = message
	event.Sender = message.Sender
	client.raiseChannel(channel, &event)
}

func handleMode(client *Client, message *Message) {
	targetName := message.Args[0]
	modeString := strings.Join(message.Args[1:], " ")

	if !client.isupport.IsChannel(targetName) {
		user := client.registry.GetOrCreateUser(targetName)
		user.applyModes(modeString)

		event := NewEvent("user", "mode")
		event.Text = modeString
		event.Message = message
		event.Sender = message.Sender
		client.raiseUser(user, &event)

		return
	}

	applyChannelModes(client, client.registry.GetOrCreateChannel(targetName), modeString, message)
}

// handleChannelModeIs handles 324, the reply to asking for a channel's modes.
func handleChannelModeIs(client *Client, message *Message) {
	if len(message.Args) < 3 {
		return
	}

	channel := client.registry.GetOrCreateChannel(message.Args[1])
	applyChannelModes(client, channel, strings.Join(message.Args[2:], " "), message)
}

// applyChannelModes splits the mode string and applies it. A mode string that
// can't be split with certainty is dropped rather than guessed at.
func applyChannelModes(client *Client, channel *Channel, modeString string, message *Message) {
	changes, ok := client.isupport.SplitModes(modeString)
	if !ok {
		client.logger.Println("irc: ignoring ambiguous mode change in", channel.Name()+":", modeString)
		client.metrics.ModeRejected()
		return
	}

	for _, change := range changes {
		channel.applyMode(change)
	}

	event := NewEvent("channel", "mode")
	event.Text = modeString
	event.Modes = changes
	event.Message = message
	event.Sender = message.Sender
	if message.IsNumeric() {
		event.Tags["numeric"] = message.Command
	}
	client.raiseChannel(channel, &event)
}

func handleInvite(client *Client, message *Message) {
	user := client.registry.GetOrCreateUser(message.Args[0])
	channel := client.registry.GetOrCreateChannel(message.Args[1])

	event := NewEvent("channel", "invite")
	event.Message = message
	event.Sender = message.Sender
	event.User = user
	client.raiseChannel(channel, &event)

	if client.config.AutoJoinInvites && client.registry.IsMe(user) && !event.Killed() {
		_ = client.Join(channel.Name())
	}
}

func handleCreationTime(client *Client, message *Message) {
	if len(message.Args) < 3 {
		return
	}

	unix, err := strconv.ParseInt(message.Args[2], 10, 64)
	if err != nil {
		return
	}

	client.registry.GetOrCreateChannel(message.Args[1]).setCreated(time.Unix(unix, 0))
}

func handleNoTopic(client *Client, message *Message) {
	if len(message.Args) < 2 {
		return
	}

	channel := client.registry.GetOrCreateChannel(message.Args[1])
	channel.setTopic(Topic{})

	event := NewEvent("channel", "topic")
	event.Message = message
	event.Tags["numeric"] = message.Command
	client.raiseChannel(channel, &event)
}

func handleTopicIs(client *Client, message *Message) {
	if len(message.Args) < 2 {
		return
	}

	channel := client.registry.GetOrCreateChannel(message.Args[1])
	channel.setTopicText(message.Content)

	event := NewEvent("channel", "topic")
	event.Text = message.Content
	event.Message = message
	event.Tags["numeric"] = message.Command
	client.raiseChannel(channel, &event)
}

func handleTopicWhoTime(client *Client, message *Message) {
	if len(message.Args) < 4 {
		return
	}

	channel := client.registry.GetOrCreateChannel(message.Args[1])

	setter, _ := client.registry.ResolveFullName(message.Args[2])

	date := time.Time{}
	if unix, err := strconv.ParseInt(message.Args[3], 10, 64); err == nil {
		date = time.Unix(unix, 0)
	}

	channel.setTopicSetter(setter, date)
}

// handleMaskList handles the entries of the ban (367), ban exception (348)
// and invite exception (346) lists.
func handleMaskList(client *Client, message *Message) {
	if len(message.Args) < 3 {
		return
	}

	kind := maskBan
	switch message.Command {
	case "346":
		kind = maskInviteException
	case "348":
		kind = maskBanException
	}

	channel := client.registry.GetOrCreateChannel(message.Args[1])
	channel.addMask(kind, message.Args[2])
}

// handleNames handles one line of a NAMES reply. The names are held until
// the end of the reply, so the user list changes only once. A reply for a
// channel the client isn't in only lists the nicks in the channel.names
// event, since nothing would keep that membership up to date.
func handleNames(client *Client, message *Message) {
	channel := client.registry.GetOrCreateChannel(message.Args[2])

	switch message.Args[1] {
	case "@":
		channel.setVisibility(VisibilitySecret)
	case "*":
		channel.setVisibility(VisibilityPrivate)
	default:
		channel.setVisibility(VisibilityNormal)
	}

	joined := client.isJoined(channel)

	for _, token := range strings.Fields(message.Content) {
		name, privileges, _ := client.isupport.ParsePrefixedNick(token)
		if !joined {
			nick, _, _, err := SplitFullName(name)
			if err == nil {
				channel.pendingNicks = append(channel.pendingNicks, nick)
			}

			continue
		}

		user, err := client.registry.ResolveFullName(name)
		if err != nil || user.IsServer() {
			continue
		}

		channel.pendingNames = append(channel.pendingNames, list.Seed{
			Member:     user,
			Privileges: privileges,
		})
		channel.pendingNicks = append(channel.pendingNicks, user.Nick())
	}

	client.cancelNames(channel.Name())
}

func handleNamesEnd(client *Client, message *Message) {
	if len(message.Args) < 2 {
		return
	}

	channel := client.registry.GetOrCreateChannel(message.Args[1])
	if client.isJoined(channel) {
		client.registry.setUsers(channel, channel.pendingNames)
	}
	nicks := channel.pendingNicks
	channel.pendingNames = nil
	channel.pendingNicks = nil

	client.cancelNames(channel.Name())

	event := NewEvent("channel", "names")
	event.Args = append(event.Args, nicks...)
	event.Message = message
	client.raiseChannel(channel, &event)
}
