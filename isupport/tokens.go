package isupport

import (
	"math"
	"strconv"
	"strings"
)

type valueRule int

const (
	valueRequired valueRule = iota
	valueOptional
	valueNone
)

// A tokenHandler applies one 005 token. It's called with the lock held.
type tokenHandler struct {
	rule     valueRule
	fallback string
	apply    func(isupport *ISupport, value string)
}

var tokenHandlers = map[string]tokenHandler{
	"AWAYLEN":     {rule: valueRequired, apply: numberSetter(func(s *State) *int { return &s.MaxAwayLength })},
	"CASEMAPPING": {rule: valueRequired, apply: applyCaseMapping},
	"CHANLIMIT":   {rule: valueRequired, apply: applyChannelLimit},
	"CHANMODES":   {rule: valueRequired, apply: applyChannelModes},
	"CHANNELLEN":  {rule: valueRequired, apply: numberSetter(func(s *State) *int { return &s.MaxChannelLength })},
	"CHANTYPES":   {rule: valueRequired, apply: applyChannelTypes},
	"EXCEPTS":     {rule: valueOptional, fallback: "e", apply: applyExcepts},
	"INVEX":       {rule: valueOptional, fallback: "I", apply: applyInvex},
	"KICKLEN":     {rule: valueRequired, apply: numberSetter(func(s *State) *int { return &s.MaxKickLength })},
	"MAXCHANNELS": {rule: valueRequired, apply: applyMaxChannels},
	"MODES":       {rule: valueOptional, fallback: "", apply: applyModes},
	"NETWORK":     {rule: valueRequired, apply: applyNetwork},
	"NICKLEN":     {rule: valueRequired, apply: numberSetter(func(s *State) *int { return &s.MaxNickLength })},
	"PREFIX":      {rule: valueRequired, apply: applyPrefix},
	"TOPICLEN":    {rule: valueRequired, apply: numberSetter(func(s *State) *int { return &s.MaxTopicLength })},
}

func numberSetter(field func(s *State) *int) func(isupport *ISupport, value string) {
	return func(isupport *ISupport, value string) {
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return
		}

		*field(&isupport.state) = n
	}
}

// CASEMAPPING=rfc1459
func applyCaseMapping(isupport *ISupport, value string) {
	caseMapping, ok := CaseMappingByName(value)
	if !ok {
		return
	}

	isupport.caseMapping = caseMapping
	isupport.state.CaseMapping = caseMapping.Name()
}

// CHANLIMIT=#&:15,!:5
func applyChannelLimit(isupport *ISupport, value string) {
	for _, group := range strings.Split(value, ",") {
		split := strings.SplitN(group, ":", 2)
		if len(split) != 2 {
			continue
		}

		limit, err := strconv.Atoi(split[1])
		if err != nil {
			continue
		}

		for _, prefix := range split[0] {
			kind, ok := isupport.state.ChannelKinds[prefix]
			if !ok {
				continue
			}

			isupport.state.ChannelLimits[kind] = limit
			isupport.state.channelLimitSet = true
		}
	}
}

// MAXCHANNELS=20 is the legacy form of CHANLIMIT, and never overrides it.
func applyMaxChannels(isupport *ISupport, value string) {
	if isupport.state.channelLimitSet {
		return
	}

	limit, err := strconv.Atoi(value)
	if err != nil {
		return
	}

	for _, kind := range isupport.state.ChannelKinds {
		isupport.state.ChannelLimits[kind] = limit
	}
}

// CHANMODES=eIbq,k,flj,CFLNPQcgimnprstz
func applyChannelModes(isupport *ISupport, value string) {
	split := strings.Split(value, ",")
	if len(split) != 4 {
		return
	}

	copy(isupport.state.ChannelModes[:], split)
}

// CHANTYPES=#&
func applyChannelTypes(isupport *ISupport, value string) {
	isupport.state.ChannelTypes = value
	isupport.state.ChannelKinds = make(map[rune]ChannelKind, len(value))
	for _, ch := range value {
		// Unknown prefixes are standard channels.
		isupport.state.ChannelKinds[ch] = channelKindByPrefix[ch]
	}
}

// EXCEPTS or EXCEPTS=e
func applyExcepts(isupport *ISupport, value string) {
	if len(value) != 1 {
		return
	}

	isupport.state.BanExceptionMode = rune(value[0])
	isupport.state.HasBanExceptions = true
}

// INVEX or INVEX=I
func applyInvex(isupport *ISupport, value string) {
	if len(value) != 1 {
		return
	}

	isupport.state.InviteExceptionMode = rune(value[0])
	isupport.state.HasInviteExceptions = true
}

// MODES or MODES=4. Without a value, there's no limit.
func applyModes(isupport *ISupport, value string) {
	if value == "" {
		isupport.state.MaxModes = math.MaxInt
		return
	}

	numberSetter(func(s *State) *int { return &s.MaxModes })(isupport, value)
}

// NETWORK=Libera.Chat
func applyNetwork(isupport *ISupport, value string) {
	isupport.state.NetworkName = value
}

// PREFIX=(qaohv)~&@%+
func applyPrefix(isupport *ISupport, value string) {
	if !strings.HasPrefix(value, "(") {
		return
	}

	split := strings.SplitN(value[1:], ")", 2)
	if len(split) != 2 || len(split[0]) != len(split[1]) {
		return
	}

	modes, prefixes := split[0], split[1]

	isupport.state.ModeOrder = modes
	isupport.state.PrefixOrder = prefixes
	isupport.state.Prefixes = make(map[rune]rune, len(modes))
	isupport.state.Privileges = make(map[rune]Privilege, len(modes))
	for i, mode := range modes {
		isupport.state.Prefixes[rune(prefixes[i])] = mode

		if privilege, ok := knownPrivilegeModes[mode]; ok {
			isupport.state.Privileges[mode] = privilege
		} else {
			isupport.state.Privileges[mode] = PrivilegeUnknown
		}
	}
}
