package irc

import (
	"sort"
	"strings"
	"sync"

	"github.com/gissleh/ircengine/isupport"
	"github.com/gissleh/ircengine/list"
)

// The Registry owns every user and channel known on a connection, keyed by
// their names folded with the server's case mapping. Membership is kept
// symmetric: a user is in a channel's list if and only if the channel is in
// the user's channel set.
//
// Lookups are safe from any goroutine, but changes are only made by the
// client's event loop.
type Registry struct {
	sender   LineSender
	isupport *isupport.ISupport

	mutex        sync.RWMutex
	users        map[string]*User
	channels     map[string]*Channel
	me           *User
	previousNick string
	server       *User
}

// NewRegistry creates a registry. The sender is given to every user and
// channel it creates.
func NewRegistry(sender LineSender, isupport *isupport.ISupport) *Registry {
	server := newUser(sender, "")
	server.isServer = true

	return &Registry{
		sender:   sender,
		isupport: isupport,
		users:    make(map[string]*User, 64),
		channels: make(map[string]*Channel, 8),
		server:   server,
	}
}

// Server gets the pseudo-user that is the sender of lines without one, and of
// lines sent by a server. Its nick is the last server name seen.
func (registry *Registry) Server() *User {
	return registry.server
}

// Me gets the client's own user. It's nil until the server has welcomed the
// client.
func (registry *Registry) Me() *User {
	registry.mutex.RLock()
	defer registry.mutex.RUnlock()

	return registry.me
}

// IsMe returns true if the user is the client's own user.
func (registry *Registry) IsMe(user *User) bool {
	return user != nil && user == registry.Me()
}

// User looks up a user by nick.
func (registry *Registry) User(nick string) (*User, bool) {
	registry.mutex.RLock()
	defer registry.mutex.RUnlock()

	user, ok := registry.users[registry.isupport.Fold(nick)]
	return user, ok
}

// Channel looks up a channel by name.
func (registry *Registry) Channel(name string) (*Channel, bool) {
	registry.mutex.RLock()
	defer registry.mutex.RUnlock()

	channel, ok := registry.channels[registry.isupport.Fold(name)]
	return channel, ok
}

// GetOrCreateUser looks up a user by nick, and creates it if it's not found.
func (registry *Registry) GetOrCreateUser(nick string) *User {
	key := registry.isupport.Fold(nick)

	registry.mutex.Lock()
	defer registry.mutex.Unlock()

	if user, ok := registry.users[key]; ok {
		return user
	}

	user := newUser(registry.sender, nick)
	registry.users[key] = user

	return user
}

// GetOrCreateChannel looks up a channel by name, and creates it if it's not found.
func (registry *Registry) GetOrCreateChannel(name string) *Channel {
	key := registry.isupport.Fold(name)

	registry.mutex.Lock()
	defer registry.mutex.Unlock()

	if channel, ok := registry.channels[key]; ok {
		return channel
	}

	channel := newChannel(registry.sender, registry.isupport, name)
	registry.channels[key] = channel

	return channel
}

// Users gets all users, sorted by nick.
func (registry *Registry) Users() []*User {
	registry.mutex.RLock()
	users := make([]*User, 0, len(registry.users))
	for _, user := range registry.users {
		users = append(users, user)
	}
	registry.mutex.RUnlock()

	caseMapping := registry.isupport.CaseMapping()
	sort.Slice(users, func(i, j int) bool {
		return caseMapping.Compare(users[i].Nick(), users[j].Nick()) < 0
	})

	return users
}

// Channels gets all channels, sorted by name.
func (registry *Registry) Channels() []*Channel {
	registry.mutex.RLock()
	channels := make([]*Channel, 0, len(registry.channels))
	for _, channel := range registry.channels {
		channels = append(channels, channel)
	}
	registry.mutex.RUnlock()

	caseMapping := registry.isupport.CaseMapping()
	sort.Slice(channels, func(i, j int) bool {
		return caseMapping.Compare(channels[i].Name(), channels[j].Name()) < 0
	})

	return channels
}

// ResolveFullName finds the user behind a sender. A sender with no `!` or `@`
// is a nick, or a server name if it has a dot. A full "nick!user@host" is
// looked up by username and host first, preferring the user that also has
// the nick. Failing that, a sender still using the client's previous nick is
// taken to be the client, but only until the client is heard from under its
// new nick, and only if the client's own username and host don't tell them
// apart. Otherwise, the user is looked up or created by nick, and its
// username and host is updated.
func (registry *Registry) ResolveFullName(fullName string) (*User, error) {
	nick, username, host, err := SplitFullName(fullName)
	if err != nil {
		return nil, err
	}

	if username == "" {
		if strings.ContainsRune(nick, '.') {
			registry.server.setNick(nick)
			return registry.server, nil
		}

		return registry.GetOrCreateUser(nick), nil
	}

	if user, ok := registry.User(nick); ok && user.Username() == username && user.Host() == host {
		registry.settleRename(user, nick)
		return user, nil
	}

	if user := registry.userByHost(username, host); user != nil {
		return user, nil
	}

	if me := registry.renamingMe(nick, username, host); me != nil {
		return me, nil
	}

	user := registry.GetOrCreateUser(nick)
	user.backfill(username, host)
	registry.settleRename(user, nick)

	return user, nil
}

// userByHost finds a user with the username and host. If several match, the
// one first by folded nick is picked so the result doesn't depend on map order.
func (registry *Registry) userByHost(username, host string) *User {
	registry.mutex.RLock()
	defer registry.mutex.RUnlock()

	var found *User
	foundKey := ""
	for key, user := range registry.users {
		if user.Username() != username || user.Host() != host {
			continue
		}
		if found == nil || key < foundKey {
			found, foundKey = user, key
		}
	}

	return found
}

// renamingMe returns the client's user if nick is the one it just changed
// away from, and the username and host doesn't rule it out.
func (registry *Registry) renamingMe(nick, username, host string) *User {
	registry.mutex.RLock()
	me, previousNick := registry.me, registry.previousNick
	registry.mutex.RUnlock()

	if me == nil || previousNick == "" || !registry.isupport.Equal(nick, previousNick) {
		return nil
	}

	meUsername, meHost := me.Username(), me.Host()
	if meUsername != "" && meHost != "" && (meUsername != username || meHost != host) {
		return nil
	}

	return me
}

// settleRename forgets the client's previous nick once a line is seen from
// the client under its current nick.
func (registry *Registry) settleRename(user *User, nick string) {
	if !registry.IsMe(user) || !registry.isupport.Equal(nick, user.Nick()) {
		return
	}

	registry.setPreviousNick("")
}

// setMe sets the client's own user, renaming it if it already exists.
func (registry *Registry) setMe(nick string) *User {
	registry.mutex.RLock()
	me := registry.me
	registry.mutex.RUnlock()

	if me != nil {
		if me.Nick() != nick {
			registry.rename(me, nick)
		}

		return me
	}

	me = registry.GetOrCreateUser(nick)

	registry.mutex.Lock()
	registry.me = me
	registry.mutex.Unlock()

	return me
}

func (registry *Registry) setPreviousNick(nick string) {
	registry.mutex.Lock()
	registry.previousNick = nick
	registry.mutex.Unlock()
}

// rename changes the user's nick in the index and in every channel it's in.
// A stale user holding the new nick is dropped from its channels first.
func (registry *Registry) rename(user *User, nick string) {
	oldNick := user.Nick()
	oldKey := registry.isupport.Fold(oldNick)
	newKey := registry.isupport.Fold(nick)

	registry.mutex.Lock()
	stale, hasStale := registry.users[newKey]
	registry.mutex.Unlock()
	if hasStale && stale != user {
		registry.quit(stale)
	}

	registry.mutex.Lock()
	if registry.users[oldKey] == user {
		delete(registry.users, oldKey)
	}
	registry.users[newKey] = user
	registry.mutex.Unlock()

	user.setNick(nick)

	for _, channel := range user.Channels() {
		channel.members.Rename(oldNick, nick)
	}
}

// join adds the user to the channel.
func (registry *Registry) join(channel *Channel, user *User, privileges isupport.Privilege) {
	channel.members.Insert(user, privileges)
	user.addChannel(channel)
}

// leave removes the user from the channel.
func (registry *Registry) leave(channel *Channel, user *User) {
	channel.members.Remove(user.Nick())
	user.removeChannel(channel)
}

// quit removes the user from every channel, and then from the registry. The
// client's own user is never removed from the registry.
func (registry *Registry) quit(user *User) {
	for _, channel := range user.Channels() {
		registry.leave(channel, user)
	}

	key := registry.isupport.Fold(user.Nick())

	registry.mutex.Lock()
	if registry.users[key] == user && user != registry.me {
		delete(registry.users, key)
	}
	registry.mutex.Unlock()
}

// setUsers replaces the channel's members with the seeds in one go. Members
// that remain keep their entries.
func (registry *Registry) setUsers(channel *Channel, seeds []list.Seed) {
	listed := make(map[*User]bool, len(seeds))
	for _, seed := range seeds {
		if user, ok := seed.Member.(*User); ok {
			listed[user] = true
		}
	}

	for _, entry := range channel.members.Entries() {
		if user, ok := entry.Member().(*User); ok && !listed[user] {
			user.removeChannel(channel)
		}
	}

	channel.members.Reset(seeds)

	for user := range listed {
		user.addChannel(channel)
	}
}

// refold rebuilds every index after the case mapping has changed.
func (registry *Registry) refold() {
	registry.mutex.Lock()

	users := make(map[string]*User, len(registry.users))
	for _, user := range registry.users {
		users[registry.isupport.Fold(user.Nick())] = user
	}
	registry.users = users

	channels := make(map[string]*Channel, len(registry.channels))
	for _, channel := range registry.channels {
		channels[registry.isupport.Fold(channel.Name())] = channel
	}
	registry.channels = channels

	registry.mutex.Unlock()

	for _, channel := range channels {
		channel.members.Reindex()
	}
}

// reset forgets everything. It's done before registering on a new
// connection.
func (registry *Registry) reset() {
	registry.mutex.Lock()
	registry.users = make(map[string]*User, 64)
	registry.channels = make(map[string]*Channel, 8)
	registry.me = nil
	registry.previousNick = ""
	registry.mutex.Unlock()

	registry.server.setNick("")
}
