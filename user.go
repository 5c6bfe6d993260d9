package irc

import (
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/gissleh/ircengine/ctcp"
)

// A User is someone on the network, as far as the client knows. It's created
// with only a nick, and filled in as more is learned about them. The same
// *User is used for as long as the user is tracked, also across nick changes.
type User struct {
	observable
	messageTarget

	mutex    sync.RWMutex
	nick     string
	username string
	host     string
	realName string
	server   string
	modes    string
	away     string
	idle     time.Duration
	signOn   time.Time
	isServer bool
	channels map[*Channel]struct{}
}

func newUser(sender LineSender, nick string) *User {
	return &User{
		messageTarget: messageTarget{sender: sender},
		nick:          nick,
		channels:      make(map[*Channel]struct{}, 4),
	}
}

// Kind returns "user", or "server" for the server pseudo-user.
func (user *User) Kind() string {
	if user.IsServer() {
		return "server"
	}

	return "user"
}

// Name gets the nick.
func (user *User) Name() string {
	return user.Nick()
}

// Nick gets the nick.
func (user *User) Nick() string {
	user.mutex.RLock()
	defer user.mutex.RUnlock()

	return user.nick
}

// Username gets the user/ident, which is what's before the @ in a full name.
func (user *User) Username() string {
	user.mutex.RLock()
	defer user.mutex.RUnlock()

	return user.username
}

// Host gets the host, if it's known.
func (user *User) Host() string {
	user.mutex.RLock()
	defer user.mutex.RUnlock()

	return user.host
}

// FullName gets the "nick!user@host" of the user, or just the nick if the
// rest isn't known.
func (user *User) FullName() string {
	user.mutex.RLock()
	defer user.mutex.RUnlock()

	if user.username == "" || user.host == "" {
		return user.nick
	}

	return user.nick + "!" + user.username + "@" + user.host
}

// RealName gets the real name from WHO or WHOIS.
func (user *User) RealName() string {
	user.mutex.RLock()
	defer user.mutex.RUnlock()

	return user.realName
}

// ServerName gets the name of the server the user is on, from WHO or WHOIS.
func (user *User) ServerName() string {
	user.mutex.RLock()
	defer user.mutex.RUnlock()

	return user.server
}

// Modes gets the user's global mode letters. These are only known for the
// client's own user.
func (user *User) Modes() string {
	user.mutex.RLock()
	defer user.mutex.RUnlock()

	return user.modes
}

// HasMode returns true if the user has the mode.
func (user *User) HasMode(mode rune) bool {
	return strings.ContainsRune(user.Modes(), mode)
}

// Away gets the away message. It's empty if the user isn't known to be away.
func (user *User) Away() string {
	user.mutex.RLock()
	defer user.mutex.RUnlock()

	return user.away
}

// Idle gets the idle time and sign-on time from the last WHOIS.
func (user *User) Idle() (idle time.Duration, signOn time.Time) {
	user.mutex.RLock()
	defer user.mutex.RUnlock()

	return user.idle, user.signOn
}

// IsServer returns true if this is the server pseudo-user, which is the sender
// of lines without a sender.
func (user *User) IsServer() bool {
	user.mutex.RLock()
	defer user.mutex.RUnlock()

	return user.isServer
}

// Channels gets the channels the user is known to be in, sorted by name.
func (user *User) Channels() []*Channel {
	user.mutex.RLock()
	channels := make([]*Channel, 0, len(user.channels))
	for channel := range user.channels {
		channels = append(channels, channel)
	}
	user.mutex.RUnlock()

	sort.Slice(channels, func(i, j int) bool {
		return channels[i].Name() < channels[j].Name()
	})

	return channels
}

// InChannel returns true if the user is in the channel.
func (user *User) InChannel(channel *Channel) bool {
	user.mutex.RLock()
	defer user.mutex.RUnlock()

	_, ok := user.channels[channel]
	return ok
}

// Say sends a PRIVMSG to the user.
func (user *User) Say(text string) error {
	return user.say(user.Nick(), text)
}

// Sayf is Say with a fmt.Sprintf.
func (user *User) Sayf(format string, a ...interface{}) error {
	return user.sayf(user.Nick(), format, a...)
}

// Notice sends a NOTICE to the user.
func (user *User) Notice(text string) error {
	return user.notice(user.Nick(), text)
}

// Describe sends a CTCP ACTION to the user.
func (user *User) Describe(text string) error {
	return user.describe(user.Nick(), text)
}

// SendCTCP sends a CTCP query, or a reply if reply is true.
func (user *User) SendCTCP(command, text string, reply bool) error {
	if reply {
		return user.sender.SendLine("NOTICE", user.Nick(), ":", ctcp.Encode(command, text))
	}

	return user.sender.SendLine("PRIVMSG", user.Nick(), ":", ctcp.Encode(command, text))
}

// Whois requests a WHOIS, whose replies will update the user.
func (user *User) Whois() error {
	return user.sender.SendLine("WHOIS", user.Nick())
}

// MarshalJSON makes a JSON object from the user.
func (user *User) MarshalJSON() ([]byte, error) {
	channels := user.Channels()
	channelNames := make([]string, 0, len(channels))
	for _, channel := range channels {
		channelNames = append(channelNames, channel.Name())
	}

	user.mutex.RLock()
	defer user.mutex.RUnlock()

	return json.Marshal(map[string]interface{}{
		"nick":     user.nick,
		"user":     user.username,
		"host":     user.host,
		"realName": user.realName,
		"modes":    user.modes,
		"away":     user.away,
		"server":   user.isServer,
		"channels": channelNames,
	})
}

func (user *User) setNick(nick string) {
	user.mutex.Lock()
	user.nick = nick
	user.mutex.Unlock()
}

// backfill sets the username and host if they're given.
func (user *User) backfill(username, host string) {
	if username == "" || host == "" {
		return
	}

	user.mutex.Lock()
	user.username = username
	user.host = host
	user.mutex.Unlock()
}

func (user *User) setInfo(realName, server string) {
	user.mutex.Lock()
	if realName != "" {
		user.realName = realName
	}
	if server != "" {
		user.server = server
	}
	user.mutex.Unlock()
}

func (user *User) setAway(away string) {
	user.mutex.Lock()
	user.away = away
	user.mutex.Unlock()
}

func (user *User) setIdle(idle time.Duration, signOn time.Time) {
	user.mutex.Lock()
	user.idle = idle
	user.signOn = signOn
	user.mutex.Unlock()
}

// applyModes applies a user mode string like "+iw-x". Anything that isn't a
// letter or a sign, like the spaces between several mode arguments, is skipped.
func (user *User) applyModes(modeString string) {
	user.mutex.Lock()
	defer user.mutex.Unlock()

	plus := true
	for _, ch := range modeString {
		switch {
		case ch == '+':
			plus = true
		case ch == '-':
			plus = false
		case !unicode.IsLetter(ch):
		case plus && !strings.ContainsRune(user.modes, ch):
			user.modes += string(ch)
		case !plus:
			user.modes = strings.Replace(user.modes, string(ch), "", 1)
		}
	}
}

func (user *User) addChannel(channel *Channel) {
	user.mutex.Lock()
	user.channels[channel] = struct{}{}
	user.mutex.Unlock()
}

func (user *User) removeChannel(channel *Channel) {
	user.mutex.Lock()
	delete(user.channels, channel)
	user.mutex.Unlock()
}
