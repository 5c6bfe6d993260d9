package isupport

import (
	"math"
	"strconv"
	"strings"
	"sync"
)

// ISupport is a data structure containing server instructions about
// supported modes, case mapping, lengths, prefixes, and so on. It is built
// from the 005 numeric's data, and has helper methods that makes sense
// of it. It's thread-safe through a reader/writer lock, so the locks will
// only block in the short duration post-registration when the 005s come in.
//
// The zero value is ready to use and holds the pre-005 defaults.
type ISupport struct {
	once        sync.Once
	lock        sync.RWMutex
	state       State
	caseMapping CaseMapping
}

// New creates an ISupport with the default values.
func New() *ISupport {
	isupport := &ISupport{}
	isupport.init()

	return isupport
}

func (isupport *ISupport) init() {
	isupport.once.Do(func() {
		isupport.lock.Lock()
		isupport.reset()
		isupport.lock.Unlock()
	})
}

func (isupport *ISupport) rlock() {
	isupport.init()
	isupport.lock.RLock()
}

// Get gets an isupport key. This is unprocessed data, and a helper should
// be used if available.
func (isupport *ISupport) Get(key string) (value string, ok bool) {
	isupport.rlock()
	value, ok = isupport.state.Raw[strings.ToUpper(key)]
	isupport.lock.RUnlock()
	return
}

// Number gets a key and converts it to a number.
func (isupport *ISupport) Number(key string) (value int, ok bool) {
	strValue, ok := isupport.Get(key)
	if !ok {
		return 0, ok
	}

	value, err := strconv.Atoi(strValue)
	if err != nil {
		return value, false
	}

	return value, ok
}

// CaseMapping gets the current case mapping.
func (isupport *ISupport) CaseMapping() CaseMapping {
	isupport.rlock()
	defer isupport.lock.RUnlock()

	return isupport.caseMapping
}

// Fold folds the name with the current case mapping.
func (isupport *ISupport) Fold(name string) string {
	return isupport.CaseMapping().ToLower(name)
}

// Equal compares two names with the current case mapping.
func (isupport *ISupport) Equal(a, b string) bool {
	return isupport.CaseMapping().Equal(a, b)
}

// NetworkName gets the NETWORK value, or an empty string.
func (isupport *ISupport) NetworkName() string {
	isupport.rlock()
	defer isupport.lock.RUnlock()

	return isupport.state.NetworkName
}

// MaxNickLength gets NICKLEN.
func (isupport *ISupport) MaxNickLength() int {
	isupport.rlock()
	defer isupport.lock.RUnlock()

	return isupport.state.MaxNickLength
}

// MaxChannelLength gets CHANNELLEN.
func (isupport *ISupport) MaxChannelLength() int {
	isupport.rlock()
	defer isupport.lock.RUnlock()

	return isupport.state.MaxChannelLength
}

// MaxTopicLength gets TOPICLEN.
func (isupport *ISupport) MaxTopicLength() int {
	isupport.rlock()
	defer isupport.lock.RUnlock()

	return isupport.state.MaxTopicLength
}

// MaxKickLength gets KICKLEN.
func (isupport *ISupport) MaxKickLength() int {
	isupport.rlock()
	defer isupport.lock.RUnlock()

	return isupport.state.MaxKickLength
}

// MaxModes gets the amount of parameterized modes allowed in one MODE command.
func (isupport *ISupport) MaxModes() int {
	isupport.rlock()
	defer isupport.lock.RUnlock()

	return isupport.state.MaxModes
}

// ChannelLimit gets the amount of channels of the kind the client may join.
func (isupport *ISupport) ChannelLimit(kind ChannelKind) int {
	isupport.rlock()
	defer isupport.lock.RUnlock()

	if limit, ok := isupport.state.ChannelLimits[kind]; ok {
		return limit
	}

	return math.MaxInt
}

// ParsePrefixedNick parses a full nick into its components.
// Example: "@+HammerTime62" -> `"HammerTime62", PrivilegeOp|PrivilegeVoice, "@+"`
func (isupport *ISupport) ParsePrefixedNick(fullnick string) (nick string, privileges Privilege, prefixes string) {
	isupport.rlock()
	defer isupport.lock.RUnlock()

	for i, ch := range fullnick {
		mode, ok := isupport.state.Prefixes[ch]
		if !ok {
			return fullnick[i:], privileges, prefixes
		}

		prefixes += string(ch)
		privileges |= isupport.state.Privileges[mode]
	}

	return "", privileges, prefixes
}

// PrivilegeForMode gets the privilege a PREFIX mode letter grants.
func (isupport *ISupport) PrivilegeForMode(mode rune) (Privilege, bool) {
	isupport.rlock()
	defer isupport.lock.RUnlock()

	privilege, ok := isupport.state.Privileges[mode]
	return privilege, ok
}

// PrivilegeForPrefix gets the privilege by prefix character, e.g. '@'.
func (isupport *ISupport) PrivilegeForPrefix(prefix rune) (Privilege, bool) {
	isupport.rlock()
	defer isupport.lock.RUnlock()

	mode, ok := isupport.state.Prefixes[prefix]
	if !ok {
		return PrivilegeNormal, false
	}

	return isupport.state.Privileges[mode], true
}

// ModeForPrivilege gets the mode letter of a single privilege. The first
// letter in PREFIX order wins if several map to it.
func (isupport *ISupport) ModeForPrivilege(privilege Privilege) (rune, bool) {
	isupport.rlock()
	defer isupport.lock.RUnlock()

	for _, mode := range isupport.state.ModeOrder {
		if isupport.state.Privileges[mode] == privilege {
			return mode, true
		}
	}

	return 0, false
}

// PrefixForPrivilege gets the prefix character of the highest privilege in
// the set, or 0 if it has none.
func (isupport *ISupport) PrefixForPrivilege(privilege Privilege) rune {
	mode, ok := isupport.ModeForPrivilege(privilege.Highest())
	if !ok {
		return 0
	}

	isupport.rlock()
	defer isupport.lock.RUnlock()

	for prefix, mappedMode := range isupport.state.Prefixes {
		if mappedMode == mode {
			return prefix
		}
	}

	return 0
}

// Prefixes gets the prefix characters for every privilege in the set, in
// PREFIX order.
func (isupport *ISupport) Prefixes(privileges Privilege) string {
	isupport.rlock()
	defer isupport.lock.RUnlock()

	result := ""
	for i, mode := range isupport.state.ModeOrder {
		if privileges&isupport.state.Privileges[mode] != 0 && i < len(isupport.state.PrefixOrder) {
			result += string(isupport.state.PrefixOrder[i])
		}
	}

	return result
}

// IsChannel returns whether the target name is a channel.
func (isupport *ISupport) IsChannel(targetName string) bool {
	if targetName == "" {
		return false
	}

	isupport.rlock()
	defer isupport.lock.RUnlock()

	_, ok := isupport.state.ChannelKinds[rune(targetName[0])]
	return ok
}

// ChannelKind gets the kind of the channel by its prefix.
func (isupport *ISupport) ChannelKind(channelName string) ChannelKind {
	if channelName == "" {
		return ChannelStandard
	}

	isupport.rlock()
	defer isupport.lock.RUnlock()

	return isupport.state.ChannelKinds[rune(channelName[0])]
}

// IsPermissionMode returns whether the flag is a PREFIX mode.
func (isupport *ISupport) IsPermissionMode(flag rune) bool {
	_, ok := isupport.PrivilegeForMode(flag)
	return ok
}

// BanExceptionMode gets the EXCEPTS mode letter, if the server has them.
func (isupport *ISupport) BanExceptionMode() (rune, bool) {
	isupport.rlock()
	defer isupport.lock.RUnlock()

	return isupport.state.BanExceptionMode, isupport.state.HasBanExceptions
}

// InviteExceptionMode gets the INVEX mode letter, if the server has them.
func (isupport *ISupport) InviteExceptionMode() (rune, bool) {
	isupport.rlock()
	defer isupport.lock.RUnlock()

	return isupport.state.InviteExceptionMode, isupport.state.HasInviteExceptions
}

// Set sets an isupport key, and related structs. This should only be used
// if a 005 packet contains the Key-Value pair or if it can be "polyfilled"
// in some other way. Use an empty value for tokens without one.
func (isupport *ISupport) Set(key, value string) {
	if value == "" {
		isupport.apply(key, "", false)
	} else {
		isupport.apply(key, value, true)
	}
}

// Apply applies 005 tokens in order. A token is either `NAME` or
// `NAME=VALUE`. Unknown tokens are kept raw, but otherwise ignored.
func (isupport *ISupport) Apply(tokens ...string) {
	for _, token := range tokens {
		if token == "" {
			continue
		}

		kv := strings.SplitN(token, "=", 2)
		if len(kv) == 2 {
			isupport.apply(kv[0], kv[1], true)
		} else {
			isupport.apply(kv[0], "", false)
		}
	}
}

func (isupport *ISupport) apply(key, value string, hasValue bool) {
	key = strings.ToUpper(key)
	if key == "" || strings.HasPrefix(key, "-") {
		return
	}

	isupport.init()
	isupport.lock.Lock()
	defer isupport.lock.Unlock()

	isupport.state.Raw[key] = value

	handler, ok := tokenHandlers[key]
	if !ok {
		return
	}

	switch handler.rule {
	case valueRequired:
		if !hasValue {
			return
		}
	case valueNone:
		if hasValue {
			return
		}
	case valueOptional:
		if !hasValue {
			value = handler.fallback
		}
	}

	handler.apply(isupport, value)
}

// State gets a copy of the isupport state.
func (isupport *ISupport) State() *State {
	isupport.rlock()
	defer isupport.lock.RUnlock()

	return isupport.state.Copy()
}

// Reset restores the defaults. It's used when connecting to a server again.
func (isupport *ISupport) Reset() {
	isupport.init()
	isupport.lock.Lock()
	isupport.reset()
	isupport.lock.Unlock()
}

func (isupport *ISupport) reset() {
	isupport.caseMapping = ASCII
	isupport.state = State{
		Raw:          make(map[string]string, 32),
		CaseMapping:  ASCII.Name(),
		ChannelKinds: make(map[rune]ChannelKind, 4),
		ChannelModes: [4]string{"b", "k", "l", "imnpst"},

		MaxNickLength:    math.MaxInt,
		MaxChannelLength: math.MaxInt,
		MaxTopicLength:   math.MaxInt,
		MaxKickLength:    math.MaxInt,
		MaxAwayLength:    math.MaxInt,
		MaxModes:         math.MaxInt,

		ChannelLimits: make(map[ChannelKind]int, 4),
	}

	applyChannelTypes(isupport, "#&")
	applyPrefix(isupport, "(ov)@+")
}
