package irc

import (
	"strconv"
)

// A messageHandler applies a message to the client's state, and raises the
// events for it.
type messageHandler func(client *Client, message *Message)

// compatHandlers run before messageHandlers. They move arguments around for
// servers that put them in odd places, and invalidate messages that can't be
// repaired.
var compatHandlers map[string]messageHandler

// messageHandlers are keyed by the lower-cased command, with numerics
// stripped of leading zeros.
var messageHandlers map[string]messageHandler

func init() {
	compatHandlers = map[string]messageHandler{
		"join":   compatTargetInContent(1),
		"part":   compatTargetInContent(1),
		"nick":   compatTargetInContent(1),
		"topic":  compatTargetInContent(1),
		"invite": compatTargetInContent(2),
		"kick":   compatRequireArgs(2),
		"mode":   compatMode,
		"353":    compatNames,
	}

	messageHandlers = map[string]messageHandler{
		"ping":  handlePing,
		"pong":  handlePong,
		"error": handleError,

		"nick":    handleNick,
		"quit":    handleQuit,
		"privmsg": handlePrivmsg,
		"notice":  handleNotice,

		"join":   handleJoin,
		"part":   handlePart,
		"kick":   handleKick,
		"topic":  handleTopic,
		"mode":   handleMode,
		"invite": handleInvite,

		"1":   handleWelcome,
		"5":   handleISupport,
		"221": handleUserModeIs,
		"301": handleAway,
		"311": handleWhoisUser,
		"312": handleWhoisServer,
		"317": handleWhoisIdle,
		"318": handleWhoisEnd,
		"319": handleWhoisChannels,
		"322": handleList,
		"323": handleListEnd,
		"324": handleChannelModeIs,
		"329": handleCreationTime,
		"331": handleNoTopic,
		"332": handleTopicIs,
		"333": handleTopicWhoTime,
		"346": handleMaskList,
		"348": handleMaskList,
		"352": handleWho,
		"353": handleNames,
		"366": handleNamesEnd,
		"367": handleMaskList,
		"432": handleNickCollision,
		"433": handleNickCollision,
	}
}

// dispatch runs the message through its compatibility handler, and then its
// handler. Messages nobody handles are offered to the unhandled handlers, and
// then raised as info or error events. Every valid message is raised as a
// packet event in the end.
func (client *Client) dispatch(message *Message) {
	if compat, ok := compatHandlers[message.Command]; ok {
		compat(client, message)
	}
	if !message.Valid {
		return
	}

	if handler, ok := messageHandlers[message.Command]; ok {
		handler(client, message)
	} else if !client.handleUnhandled(message) {
		kind := "info"
		if code, err := strconv.Atoi(message.Command); err == nil && code >= 400 {
			kind = "error"
		}

		event := NewEvent(kind, message.Command)
		event.Text = message.Text()
		event.Message = message
		event.Sender = message.Sender
		client.raise(&event)
	}

	event := NewEvent("packet", message.Command)
	event.Time = message.Time
	event.Args = message.Args
	event.Text = message.Content
	event.Message = message
	event.Sender = message.Sender
	client.raise(&event)
}

func (client *Client) handleUnhandled(message *Message) bool {
	client.handlerMutex.RLock()
	handlers := append([]UnhandledHandler(nil), client.unhandledHandlers...)
	client.handlerMutex.RUnlock()

	for _, handler := range handlers {
		if handler(message, client) {
			return true
		}
	}

	return false
}
