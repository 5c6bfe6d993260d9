package irc

import (
	"fmt"
	mathRand "math/rand"
	"strconv"
	"strings"
	"time"
)

func handlePing(client *Client, message *Message) {
	parts := append([]string{"PONG"}, message.Args...)
	if message.HasContent() {
		parts = append(parts, ":", message.Content)
	}

	_ = client.SendLine(parts...)
}

func handlePong(client *Client, message *Message) {
	payload := message.Content
	if !message.HasContent() && len(message.Args) > 0 {
		payload = message.Args[len(message.Args)-1]
	}

	client.acknowledgePing(payload)
}

func handleError(client *Client, message *Message) {
	event := NewEvent("error", "server")
	event.Text = message.Content
	event.Message = message
	event.Sender = message.Sender
	client.raise(&event)
}

// handleWelcome handles 001, which completes the registration.
func handleWelcome(client *Client, message *Message) {
	me := client.registry.setMe(message.Arg(0))
	client.setRegistered()

	event := NewEvent("client", "ready")
	event.Text = message.Content
	event.Message = message
	event.User = me
	client.raise(&event)

	// Find out the client's user and host.
	_ = client.SendLine("WHO", me.Nick())
}

func handleISupport(client *Client, message *Message) {
	if len(message.Args) < 2 {
		return
	}

	caseMapping := client.isupport.CaseMapping().Name()
	client.isupport.Apply(message.Args[1:]...)
	if client.isupport.CaseMapping().Name() != caseMapping {
		client.registry.refold()
	}
}

func handleNickCollision(client *Client, message *Message) {
	nick := message.Arg(1)

	event := NewEvent("client", "nickcollision")
	event.Args = append(event.Args, nick)
	event.Text = message.Content
	event.Message = message
	client.raise(&event)

	if client.Registered() {
		return
	}

	// "AltN" -> "AltN+1", ...
	prev := client.config.Nick
	for _, alt := range client.config.Alternatives {
		if client.isupport.Equal(nick, prev) {
			_ = client.SendLine("NICK", alt)
			return
		}

		prev = alt
	}

	// "LastAlt" -> "Nick23962"
	_ = client.SendLine("NICK", fmt.Sprintf("%s%05d", client.config.Nick, mathRand.Int31n(99999)))
}

func handleUserModeIs(client *Client, message *Message) {
	me := client.registry.Me()
	if me == nil || len(message.Args) < 2 {
		return
	}

	modes := strings.Join(message.Args[1:], "")
	me.applyModes(modes)

	event := NewEvent("user", "mode")
	event.Text = modes
	event.Message = message
	event.Sender = message.Sender
	client.raiseUser(me, &event)
}

func handleAway(client *Client, message *Message) {
	if len(message.Args) < 2 {
		return
	}

	user := client.registry.GetOrCreateUser(message.Args[1])
	user.setAway(message.Content)

	event := NewEvent("user", "away")
	event.Text = message.Content
	event.Message = message
	event.Sender = message.Sender
	client.raiseUser(user, &event)
}

func handleWhoisUser(client *Client, message *Message) {
	if len(message.Args) < 4 {
		return
	}

	user := client.registry.GetOrCreateUser(message.Args[1])
	user.backfill(message.Args[2], message.Args[3])
	user.setInfo(message.Content, "")

	raiseUserInfo(client, user, message)
}

func handleWhoisServer(client *Client, message *Message) {
	if len(message.Args) < 3 {
		return
	}

	user := client.registry.GetOrCreateUser(message.Args[1])
	user.setInfo("", message.Args[2])

	raiseUserInfo(client, user, message)
}

func handleWhoisIdle(client *Client, message *Message) {
	if len(message.Args) < 3 {
		return
	}

	user := client.registry.GetOrCreateUser(message.Args[1])

	idle, err := strconv.Atoi(message.Args[2])
	if err == nil {
		signOn := time.Time{}
		if unix, err := strconv.ParseInt(message.Arg(3), 10, 64); err == nil {
			signOn = time.Unix(unix, 0)
		}

		user.setIdle(time.Duration(idle)*time.Second, signOn)
	}

	raiseUserInfo(client, user, message)
}

func handleWhoisChannels(client *Client, message *Message) {
	if len(message.Args) < 2 {
		return
	}

	raiseUserInfo(client, client.registry.GetOrCreateUser(message.Args[1]), message)
}

func handleWhoisEnd(client *Client, message *Message) {
	if len(message.Args) < 2 {
		return
	}

	raiseUserInfo(client, client.registry.GetOrCreateUser(message.Args[1]), message)
}

// handleWho handles a WHO reply line.
//
// Example args: test #Test ~irce 127.0.0.1 localhost.localnetwork Gissleh H :0 ...
func handleWho(client *Client, message *Message) {
	if len(message.Args) < 7 {
		return
	}

	user := client.registry.GetOrCreateUser(message.Args[5])
	user.backfill(message.Args[2], message.Args[3])

	realName := message.Content
	if index := strings.IndexByte(realName, ' '); index != -1 {
		realName = realName[index+1:]
	}
	user.setInfo(realName, message.Args[4])

	flags := message.Args[6]
	if strings.HasPrefix(flags, "H") {
		user.setAway("")
	} else if strings.HasPrefix(flags, "G") && user.Away() == "" {
		user.setAway("away")
	}

	raiseUserInfo(client, user, message)
}

func raiseUserInfo(client *Client, user *User, message *Message) {
	event := NewEvent("user", "info")
	event.Text = message.Text()
	event.Tags["numeric"] = message.Command
	event.Message = message
	event.Sender = message.Sender
	client.raiseUser(user, &event)
}

func handleList(client *Client, message *Message) {
	if len(message.Args) < 3 {
		return
	}

	users, _ := strconv.Atoi(message.Args[2])

	channel := client.registry.GetOrCreateChannel(message.Args[1])
	channel.setListInfo(users, message.Content)

	client.listBuffer = append(client.listBuffer, channel)
}

func handleListEnd(client *Client, message *Message) {
	event := NewEvent("client", "list")
	event.Channels = client.listBuffer
	event.Message = message
	client.listBuffer = nil

	client.raise(&event)
}
