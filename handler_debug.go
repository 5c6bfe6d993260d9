package irc

import (
	"encoding/json"
	"log"
)

// DebugLogger is for diagnostics from the client, and for EnableDebug's output.
// *log.Logger satisfies it.
type DebugLogger interface {
	Println(v ...interface{})
}

type defaultDebugLogger struct{}

func (logger *defaultDebugLogger) Println(v ...interface{}) {
	log.Println(v...)
}

// EnableDebug adds a handler that logs every event reaching it as its name followed by the
// event as JSON. Events killed or hidden by an earlier handler are left out, and handlers added
// after this one will not have their effects shown. The logger may be nil to use the client's
// configured logger.
func (client *Client) EnableDebug(logger DebugLogger, indented bool) {
	if logger == nil {
		logger = client.logger
	}

	client.AddHandler(func(event *Event, client *Client) {
		if event.Killed() || event.Hidden() {
			return
		}

		var data []byte
		var err error
		if indented {
			data, err = json.MarshalIndent(event, "", "  ")
		} else {
			data, err = json.Marshal(event)
		}
		if err != nil {
			logger.Println(event.Name(), "could not be encoded:", err)
			return
		}

		logger.Println(event.Name(), string(data))
	})
}
