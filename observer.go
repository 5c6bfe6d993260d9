package irc

import "sync"

// observable is embedded in users and channels so handlers can subscribe to
// the events of just that entity.
type observable struct {
	observerMutex sync.Mutex
	active        bool
	handlers      []Handler
}

// AddHandler adds a handler for events concerning only this entity. Handlers
// added while an event is being raised will still receive it.
func (o *observable) AddHandler(handler Handler) {
	o.observerMutex.Lock()
	o.handlers = append(o.handlers, handler)
	o.observerMutex.Unlock()
}

// Active returns true if an event has been raised on the entity, which also
// means discovery has happened.
func (o *observable) Active() bool {
	o.observerMutex.Lock()
	defer o.observerMutex.Unlock()

	return o.active
}

func (o *observable) activate() (first bool) {
	o.observerMutex.Lock()
	defer o.observerMutex.Unlock()

	if o.active {
		return false
	}

	o.active = true
	return true
}

func (o *observable) handler(index int) (Handler, bool) {
	o.observerMutex.Lock()
	defer o.observerMutex.Unlock()

	if index >= len(o.handlers) {
		return nil, false
	}

	return o.handlers[index], true
}

// raise runs discover first if the entity is inert, and then the handlers. The
// handler list is read as it goes, so subscriptions added by discover or by
// earlier handlers are included.
func (o *observable) raise(event *Event, client *Client, discover func()) {
	if o.activate() && discover != nil {
		discover()
	}

	for i := 0; !event.killed; i++ {
		handler, ok := o.handler(i)
		if !ok {
			break
		}

		handler(event, client)
	}
}

// reset makes the entity inert again, and drops its handlers.
func (o *observable) reset() {
	o.observerMutex.Lock()
	o.active = false
	o.handlers = nil
	o.observerMutex.Unlock()
}
