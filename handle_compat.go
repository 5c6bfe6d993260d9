package irc

import "strings"

// compatTargetInContent moves the content into the arguments if there are too
// few of them, like in ":Nick!user@host JOIN :#Channel".
func compatTargetInContent(required int) messageHandler {
	return func(client *Client, message *Message) {
		if len(message.Args) < required && message.HasContent() {
			message.Args = append(message.Args, message.Content)
			message.ClearContent()
		}

		if len(message.Args) < required {
			message.Valid = false
		}
	}
}

func compatRequireArgs(required int) messageHandler {
	return func(client *Client, message *Message) {
		if len(message.Args) < required {
			message.Valid = false
		}
	}
}

// compatMode moves a trailing mode string into the arguments, like in
// ":Nick MODE Nick :+iw".
func compatMode(client *Client, message *Message) {
	if message.HasContent() {
		message.Args = append(message.Args, strings.Fields(message.Content)...)
		message.ClearContent()
	}

	if len(message.Args) < 2 {
		message.Valid = false
	}
}

// compatNames adds the visibility symbol some servers leave out.
func compatNames(client *Client, message *Message) {
	if len(message.Args) == 2 {
		message.Args = []string{message.Args[0], "=", message.Args[1]}
	}

	if len(message.Args) < 3 {
		message.Valid = false
	}
}
