package irctest

import (
	"sync"

	"github.com/gissleh/ircengine"
)

// An EventLog records the events passed to its Handler. It's safe to read
// from the test while the client is running.
type EventLog struct {
	mutex  sync.Mutex
	events []*irc.Event
}

func (l *EventLog) First(kind, verb string) *irc.Event {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	for _, e := range l.events {
		if e.Verb() == verb && e.Kind() == kind {
			return e
		}
	}

	return nil
}

func (l *EventLog) Last(kind, verb string) *irc.Event {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	for i := len(l.events) - 1; i >= 0; i-- {
		e := l.events[i]
		if e.Verb() == verb && e.Kind() == kind {
			return e
		}
	}

	return nil
}

// Count counts the events with the name.
func (l *EventLog) Count(name string) int {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	count := 0
	for _, e := range l.events {
		if e.Name() == name {
			count++
		}
	}

	return count
}

// Names gets the names of all events, in order.
func (l *EventLog) Names() []string {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	names := make([]string, 0, len(l.events))
	for _, e := range l.events {
		names = append(names, e.Name())
	}

	return names
}

func (l *EventLog) Handler(event *irc.Event, _ *irc.Client) {
	l.mutex.Lock()
	l.events = append(l.events, event)
	l.mutex.Unlock()
}

// Events gets a copy of the recorded events.
func (l *EventLog) Events() []*irc.Event {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	return append([]*irc.Event(nil), l.events...)
}
