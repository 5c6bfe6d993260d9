package irc

// NewErrorEvent makes an event of kind `error` and verb `code` with the text.
// It's absolutely trivial, but it's good to have standarized.
func NewErrorEvent(code, text string, raw error) Event {
	return NewErrorEventTarget(nil, code, text, raw)
}

// NewErrorEventTarget is NewErrorEvent for an error concerning a target, like
// a failed input command in a channel.
func NewErrorEventTarget(target Target, code, text string, raw error) Event {
	event := NewEvent("error", code)
	event.Text = text
	event.Target = target
	event.err = raw

	if raw != nil {
		event.Tags["raw"] = raw.Error()
	}

	return event
}

// Err gets the error behind an error event, if there is one.
func (event *Event) Err() error {
	return event.err
}
