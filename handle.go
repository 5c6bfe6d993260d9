package irc

// A Handler is a function that is part of the irc event loop. When added to a
// client, it will receive all events. When added to a user or channel, it will
// only receive the events concerning it.
type Handler func(event *Event, client *Client)

// An UnhandledHandler gets messages no handler in the client knows. It should
// return true if it has handled the message, which stops the client from
// raising it as an info or error event.
type UnhandledHandler func(message *Message, client *Client) bool
