package isupport

// A ChannelKind is derived from the first character of a channel name.
type ChannelKind int

// The channel kinds. Unknown CHANTYPES characters are treated as standard.
const (
	ChannelStandard ChannelKind = iota
	ChannelLocal
	ChannelModeless
	ChannelSafe
)

var channelKindByPrefix = map[rune]ChannelKind{
	'#': ChannelStandard,
	'&': ChannelLocal,
	'+': ChannelModeless,
	'!': ChannelSafe,
}

func (kind ChannelKind) String() string {
	switch kind {
	case ChannelLocal:
		return "local"
	case ChannelModeless:
		return "modeless"
	case ChannelSafe:
		return "safe"
	default:
		return "standard"
	}
}

// State is the parsed server support data. Numeric limits are math.MaxInt
// until the server states otherwise.
type State struct {
	Raw          map[string]string `json:"raw"`
	CaseMapping  string            `json:"caseMapping"`
	NetworkName  string            `json:"networkName,omitempty"`
	ChannelTypes string            `json:"channelTypes"`
	ChannelModes [4]string         `json:"channelModes"`
	ModeOrder    string            `json:"modeOrder"`
	PrefixOrder  string            `json:"prefixOrder"`

	BanExceptionMode    rune `json:"banExceptionMode,omitempty"`
	InviteExceptionMode rune `json:"inviteExceptionMode,omitempty"`
	HasBanExceptions    bool `json:"hasBanExceptions"`
	HasInviteExceptions bool `json:"hasInviteExceptions"`

	MaxNickLength    int `json:"maxNickLength"`
	MaxChannelLength int `json:"maxChannelLength"`
	MaxTopicLength   int `json:"maxTopicLength"`
	MaxKickLength    int `json:"maxKickLength"`
	MaxAwayLength    int `json:"maxAwayLength"`
	MaxModes         int `json:"maxModes"`

	ChannelKinds  map[rune]ChannelKind `json:"-"`
	ChannelLimits map[ChannelKind]int  `json:"channelLimits"`
	Prefixes      map[rune]rune        `json:"-"`
	Privileges    map[rune]Privilege   `json:"-"`

	channelLimitSet bool
}

// Copy makes a deep copy of the state.
func (state *State) Copy() *State {
	stateCopy := *state

	stateCopy.Raw = make(map[string]string, len(state.Raw))
	for key, value := range state.Raw {
		stateCopy.Raw[key] = value
	}
	stateCopy.ChannelKinds = make(map[rune]ChannelKind, len(state.ChannelKinds))
	for key, value := range state.ChannelKinds {
		stateCopy.ChannelKinds[key] = value
	}
	stateCopy.ChannelLimits = make(map[ChannelKind]int, len(state.ChannelLimits))
	for key, value := range state.ChannelLimits {
		stateCopy.ChannelLimits[key] = value
	}
	stateCopy.Prefixes = make(map[rune]rune, len(state.Prefixes))
	for key, value := range state.Prefixes {
		stateCopy.Prefixes[key] = value
	}
	stateCopy.Privileges = make(map[rune]Privilege, len(state.Privileges))
	for key, value := range state.Privileges {
		stateCopy.Privileges[key] = value
	}

	return &stateCopy
}
