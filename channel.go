package irc

import (
	"encoding/json"
	"errors"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gissleh/ircengine/ctcp"
	"github.com/gissleh/ircengine/isupport"
	"github.com/gissleh/ircengine/list"
)

// ErrNotMember is returned when looking up the privileges of a user that is
// not in the channel.
var ErrNotMember = errors.New("irc: user is not a member of the channel")

// ErrPrivilegeNotSupported is returned when setting a privilege the server
// has no PREFIX mode for.
var ErrPrivilegeNotSupported = errors.New("irc: privilege is not supported by the server")

// Visibility is whether a channel is public, private (+p) or secret (+s).
type Visibility int

// The channel visibilities.
const (
	VisibilityNormal Visibility = iota
	VisibilityPrivate
	VisibilitySecret
)

func (visibility Visibility) String() string {
	switch visibility {
	case VisibilityPrivate:
		return "private"
	case VisibilitySecret:
		return "secret"
	default:
		return "normal"
	}
}

// A Topic is a channel's topic. Setter and Date are unset if they're not
// known.
type Topic struct {
	Text   string    `json:"text"`
	Setter *User     `json:"-"`
	Date   time.Time `json:"date"`
}

// A Channel is a channel on the network along with its state and its user
// list. The same *Channel is used for the whole connection, also after
// leaving it.
type Channel struct {
	observable
	messageTarget

	isupport *isupport.ISupport
	members  *list.List

	mutex            sync.RWMutex
	name             string
	topic            Topic
	key              string
	limit            int
	created          time.Time
	visibility       Visibility
	modes            string
	bans             []string
	banExceptions    []string
	inviteExceptions []string
	listedUsers      int

	// Only touched by the event loop.
	pendingNames []list.Seed
	pendingNicks []string
}

func newChannel(sender LineSender, isupport *isupport.ISupport, name string) *Channel {
	return &Channel{
		messageTarget: messageTarget{sender: sender},
		isupport:      isupport,
		members:       list.New(isupport),
		name:          name,
	}
}

// Kind returns "channel"
func (channel *Channel) Kind() string {
	return "channel"
}

// Name gets the channel name, including its prefix.
func (channel *Channel) Name() string {
	channel.mutex.RLock()
	defer channel.mutex.RUnlock()

	return channel.name
}

// ChannelKind gets the channel's kind by its prefix.
func (channel *Channel) ChannelKind() isupport.ChannelKind {
	return channel.isupport.ChannelKind(channel.Name())
}

// Topic gets the topic.
func (channel *Channel) Topic() Topic {
	channel.mutex.RLock()
	defer channel.mutex.RUnlock()

	return channel.topic
}

// Key gets the channel key (+k), or an empty string.
func (channel *Channel) Key() string {
	channel.mutex.RLock()
	defer channel.mutex.RUnlock()

	return channel.key
}

// Limit gets the user limit (+l), or 0 if there is none.
func (channel *Channel) Limit() int {
	channel.mutex.RLock()
	defer channel.mutex.RUnlock()

	return channel.limit
}

// Created gets the creation date, if the server has told it.
func (channel *Channel) Created() time.Time {
	channel.mutex.RLock()
	defer channel.mutex.RUnlock()

	return channel.created
}

// Visibility gets the visibility.
func (channel *Channel) Visibility() Visibility {
	channel.mutex.RLock()
	defer channel.mutex.RUnlock()

	return channel.visibility
}

// Modes gets the mode letters set on the channel that aren't tracked by
// anything more specific, like "nt".
func (channel *Channel) Modes() string {
	channel.mutex.RLock()
	defer channel.mutex.RUnlock()

	return channel.modes
}

// HasMode returns true if the channel has the mode letter.
func (channel *Channel) HasMode(mode rune) bool {
	return strings.ContainsRune(channel.Modes(), mode)
}

// Bans gets a copy of the ban masks.
func (channel *Channel) Bans() []string {
	channel.mutex.RLock()
	defer channel.mutex.RUnlock()

	return append([]string(nil), channel.bans...)
}

// BanExceptions gets a copy of the ban exception masks.
func (channel *Channel) BanExceptions() []string {
	channel.mutex.RLock()
	defer channel.mutex.RUnlock()

	return append([]string(nil), channel.banExceptions...)
}

// InviteExceptions gets a copy of the invite exception masks.
func (channel *Channel) InviteExceptions() []string {
	channel.mutex.RLock()
	defer channel.mutex.RUnlock()

	return append([]string(nil), channel.inviteExceptions...)
}

// ListedUsers gets the user count from the last channel list.
func (channel *Channel) ListedUsers() int {
	channel.mutex.RLock()
	defer channel.mutex.RUnlock()

	return channel.listedUsers
}

// Members gets the channel's user list.
func (channel *Channel) Members() list.Immutable {
	return channel.members.Immutable()
}

// OnMembersChange sets a function to call whenever the user list changes.
func (channel *Channel) OnMembersChange(fn func(change list.Change)) {
	channel.members.OnChange(fn)
}

// Entry gets the user's membership entry.
func (channel *Channel) Entry(user *User) (*list.Entry, bool) {
	return channel.members.Entry(user.Nick())
}

// HasMember returns true if the user is in the channel.
func (channel *Channel) HasMember(user *User) bool {
	return channel.members.Has(user.Nick())
}

// Privileges gets a member's privileges. It returns ErrNotMember if the user
// isn't in the channel.
func (channel *Channel) Privileges(user *User) (isupport.Privilege, error) {
	entry, ok := channel.members.Entry(user.Nick())
	if !ok {
		return isupport.PrivilegeNormal, ErrNotMember
	}

	return entry.Privileges(), nil
}

// SetPrivilege asks the server to give the member a privilege. It returns
// ErrPrivilegeNotSupported if the server has no mode for it.
func (channel *Channel) SetPrivilege(user *User, privilege isupport.Privilege) error {
	return channel.changePrivilege(user, privilege, "+")
}

// RemovePrivilege asks the server to take a privilege from the member.
func (channel *Channel) RemovePrivilege(user *User, privilege isupport.Privilege) error {
	return channel.changePrivilege(user, privilege, "-")
}

func (channel *Channel) changePrivilege(user *User, privilege isupport.Privilege, sign string) error {
	mode, ok := channel.isupport.ModeForPrivilege(privilege)
	if !ok {
		return ErrPrivilegeNotSupported
	}
	if !channel.HasMember(user) {
		return ErrNotMember
	}

	return channel.sender.SendLine("MODE", channel.Name(), sign+string(mode), user.Nick())
}

// Say sends a PRIVMSG to the channel.
func (channel *Channel) Say(text string) error {
	return channel.say(channel.Name(), text)
}

// Sayf is Say with a fmt.Sprintf.
func (channel *Channel) Sayf(format string, a ...interface{}) error {
	return channel.sayf(channel.Name(), format, a...)
}

// Notice sends a NOTICE to the channel.
func (channel *Channel) Notice(text string) error {
	return channel.notice(channel.Name(), text)
}

// Describe sends a CTCP ACTION to the channel.
func (channel *Channel) Describe(text string) error {
	return channel.describe(channel.Name(), text)
}

// SendCTCP sends a CTCP query to the channel.
func (channel *Channel) SendCTCP(command, text string) error {
	return channel.sender.SendLine("PRIVMSG", channel.Name(), ":", ctcp.Encode(command, text))
}

// Join joins the channel, with the key if it's not empty.
func (channel *Channel) Join(key string) error {
	if key != "" {
		return channel.sender.SendLine("JOIN", channel.Name(), key)
	}

	return channel.sender.SendLine("JOIN", channel.Name())
}

// Part leaves the channel.
func (channel *Channel) Part(reason string) error {
	if reason != "" {
		return channel.sender.SendLine("PART", channel.Name(), ":", reason)
	}

	return channel.sender.SendLine("PART", channel.Name())
}

// SetTopic changes the topic.
func (channel *Channel) SetTopic(topic string) error {
	return channel.sender.SendLine("TOPIC", channel.Name(), ":", topic)
}

// Kick kicks the user from the channel.
func (channel *Channel) Kick(user *User, reason string) error {
	if reason != "" {
		return channel.sender.SendLine("KICK", channel.Name(), user.Nick(), ":", reason)
	}

	return channel.sender.SendLine("KICK", channel.Name(), user.Nick())
}

// Invite invites the user to the channel.
func (channel *Channel) Invite(user *User) error {
	return channel.sender.SendLine("INVITE", user.Nick(), channel.Name())
}

// SetMode changes the channel's modes, e.g. SetMode("+l", "32").
func (channel *Channel) SetMode(modes string, args ...string) error {
	parts := append([]string{"MODE", channel.Name(), modes}, args...)
	return channel.sender.SendLine(parts...)
}

// Names requests the user list.
func (channel *Channel) Names() error {
	return channel.sender.SendLine("NAMES", channel.Name())
}

// MarshalJSON makes a JSON object from the channel.
func (channel *Channel) MarshalJSON() ([]byte, error) {
	entries := channel.members.Entries()
	members := make([]string, 0, len(entries))
	for _, entry := range entries {
		members = append(members, entry.PrefixedNick())
	}

	channel.mutex.RLock()
	defer channel.mutex.RUnlock()

	topicSetter := ""
	if channel.topic.Setter != nil {
		topicSetter = channel.topic.Setter.Nick()
	}

	return json.Marshal(map[string]interface{}{
		"name":        channel.name,
		"topic":       channel.topic.Text,
		"topicSetter": topicSetter,
		"topicDate":   channel.topic.Date,
		"key":         channel.key,
		"limit":       channel.limit,
		"created":     channel.created,
		"visibility":  channel.visibility.String(),
		"modes":       channel.modes,
		"members":     members,
	})
}

func (channel *Channel) setTopic(topic Topic) {
	channel.mutex.Lock()
	channel.topic = topic
	channel.mutex.Unlock()
}

func (channel *Channel) setTopicText(text string) {
	channel.mutex.Lock()
	channel.topic.Text = text
	channel.mutex.Unlock()
}

func (channel *Channel) setTopicSetter(setter *User, date time.Time) {
	channel.mutex.Lock()
	channel.topic.Setter = setter
	channel.topic.Date = date
	channel.mutex.Unlock()
}

func (channel *Channel) setCreated(created time.Time) {
	channel.mutex.Lock()
	channel.created = created
	channel.mutex.Unlock()
}

func (channel *Channel) setVisibility(visibility Visibility) {
	channel.mutex.Lock()
	channel.visibility = visibility
	channel.mutex.Unlock()
}

func (channel *Channel) setListInfo(users int, topic string) {
	channel.mutex.Lock()
	channel.listedUsers = users
	channel.topic.Text = topic
	channel.mutex.Unlock()
}

func (channel *Channel) rename(name string) {
	channel.mutex.Lock()
	channel.name = name
	channel.mutex.Unlock()
}

// resetState clears what is learned from being in the channel. It's done when
// the client joins it.
func (channel *Channel) resetState() {
	channel.mutex.Lock()
	channel.topic = Topic{}
	channel.key = ""
	channel.limit = 0
	channel.visibility = VisibilityNormal
	channel.modes = ""
	channel.bans = nil
	channel.banExceptions = nil
	channel.inviteExceptions = nil
	channel.mutex.Unlock()

	channel.pendingNames = nil
	channel.pendingNicks = nil
}

// The three mask lists of a channel.
type maskKind int

const (
	maskBan maskKind = iota
	maskBanException
	maskInviteException
)

// addMask adds a mask to one of the three lists.
func (channel *Channel) addMask(kind maskKind, mask string) {
	channel.mutex.Lock()
	defer channel.mutex.Unlock()

	masks := channel.maskList(kind)
	for _, existing := range *masks {
		if existing == mask {
			return
		}
	}

	*masks = append(*masks, mask)
}

func (channel *Channel) removeMask(kind maskKind, mask string) {
	channel.mutex.Lock()
	defer channel.mutex.Unlock()

	masks := channel.maskList(kind)
	for i, existing := range *masks {
		if existing == mask {
			*masks = append((*masks)[:i], (*masks)[i+1:]...)
			return
		}
	}
}

// maskList must be called with the lock held.
func (channel *Channel) maskList(kind maskKind) *[]string {
	switch kind {
	case maskBanException:
		return &channel.banExceptions
	case maskInviteException:
		return &channel.inviteExceptions
	default:
		return &channel.bans
	}
}

// maskKindForMode finds the list a list mode letter is for.
func (channel *Channel) maskKindForMode(mode rune) (maskKind, bool) {
	if mode == 'b' {
		return maskBan, true
	}
	if exceptMode, ok := channel.isupport.BanExceptionMode(); ok && mode == exceptMode {
		return maskBanException, true
	}
	if invexMode, ok := channel.isupport.InviteExceptionMode(); ok && mode == invexMode {
		return maskInviteException, true
	}

	return maskBan, false
}

// applyMode applies one mode change to the channel. Privilege changes go to
// the user list, and unknown privilege letters are ignored.
func (channel *Channel) applyMode(change isupport.ModeChange) {
	if privilege, ok := channel.isupport.PrivilegeForMode(change.Mode); ok {
		if !change.HasArgument {
			return
		}

		if change.Added {
			channel.members.AddPrivilege(change.Argument, privilege)
		} else {
			channel.members.RemovePrivilege(change.Argument, privilege)
		}

		return
	}

	switch change.Mode {
	case 'p', 's':
		channel.mutex.Lock()
		visibility := VisibilityPrivate
		if change.Mode == 's' {
			visibility = VisibilitySecret
		}
		if change.Added {
			channel.visibility = visibility
		} else if channel.visibility == visibility {
			channel.visibility = VisibilityNormal
		}
		channel.mutex.Unlock()
	case 'k':
		channel.mutex.Lock()
		if change.Added {
			channel.key = change.Argument
		} else {
			channel.key = ""
		}
		channel.mutex.Unlock()
	case 'l':
		channel.mutex.Lock()
		if change.Added {
			channel.limit, _ = strconv.Atoi(change.Argument)
		} else {
			channel.limit = 0
		}
		channel.mutex.Unlock()
	default:
		if kind, ok := channel.maskKindForMode(change.Mode); ok {
			// A list mode without an argument is a request for the list.
			if !change.HasArgument {
				return
			}

			if change.Added {
				channel.addMask(kind, change.Argument)
			} else {
				channel.removeMask(kind, change.Argument)
			}

			return
		}
		if channel.isupport.ModeClass(change.Mode) == isupport.ModeList {
			return
		}

		channel.mutex.Lock()
		if change.Added && !strings.ContainsRune(channel.modes, change.Mode) {
			modes := []rune(channel.modes + string(change.Mode))
			sort.Slice(modes, func(i, j int) bool { return modes[i] < modes[j] })
			channel.modes = string(modes)
		} else if !change.Added {
			channel.modes = strings.Replace(channel.modes, string(change.Mode), "", 1)
		}
		channel.mutex.Unlock()
	}
}
