package isupport

import (
	"strings"
)

// A ModeClass says when a channel mode takes an argument.
type ModeClass int

// The mode classes. The first four are CHANMODES' A through D.
const (
	// ModeList takes an argument when removed, and optionally when added.
	ModeList ModeClass = iota
	// ModeParam always takes an argument.
	ModeParam
	// ModeParamOnSet only takes an argument when added.
	ModeParamOnSet
	// ModeFlag never takes an argument. Unknown modes are treated as flags.
	ModeFlag
	// ModePrivilege is a PREFIX mode, and always takes a nick as argument.
	ModePrivilege
)

// A ModeChange is a single mode being added or removed, along with its argument
// if it has one.
type ModeChange struct {
	Added       bool   `json:"added"`
	Mode        rune   `json:"mode"`
	Argument    string `json:"argument,omitempty"`
	HasArgument bool   `json:"hasArgument"`
}

// String formats it like "+l 32" or "-m".
func (change ModeChange) String() string {
	sign := "-"
	if change.Added {
		sign = "+"
	}

	if change.HasArgument {
		return sign + string(change.Mode) + " " + change.Argument
	}

	return sign + string(change.Mode)
}

// ModeClass gets the class of the channel mode.
func (isupport *ISupport) ModeClass(mode rune) ModeClass {
	isupport.rlock()
	defer isupport.lock.RUnlock()

	return isupport.modeClass(mode)
}

func (isupport *ISupport) modeClass(mode rune) ModeClass {
	// User permission modes function exactly like the first block
	// when it comes to add/remove, except that they are never optional.
	if _, ok := isupport.state.Privileges[mode]; ok {
		return ModePrivilege
	}

	for i, block := range isupport.state.ChannelModes {
		if strings.ContainsRune(block, mode) {
			return ModeClass(i)
		}
	}

	if isupport.state.HasBanExceptions && mode == isupport.state.BanExceptionMode {
		return ModeList
	}
	if isupport.state.HasInviteExceptions && mode == isupport.state.InviteExceptionMode {
		return ModeList
	}

	return ModeFlag
}

// ModeTakesArgument returns true if the mode requires an argument. List modes
// return false when added, since the argument is optional then.
func (isupport *ISupport) ModeTakesArgument(flag rune, plus bool) bool {
	return argumentRule(isupport.ModeClass(flag), plus) == argumentRequired
}

type argumentKind int

const (
	argumentNever argumentKind = iota
	argumentRequired
	argumentOptional
)

func argumentRule(class ModeClass, plus bool) argumentKind {
	switch class {
	case ModePrivilege, ModeParam:
		return argumentRequired
	case ModeParamOnSet:
		if plus {
			return argumentRequired
		}
	case ModeList:
		if plus {
			return argumentOptional
		}
		return argumentRequired
	}

	return argumentNever
}

type modeGroup struct {
	changes []ModeChange
	rules   []argumentKind
	args    []string
}

// SplitModes splits a MODE argument string like "+ov-b nick nick mask" into
// single mode changes.
//
// Adding a list mode may or may not come with an argument, which makes some
// mode strings ambiguous. For each run of modes and the arguments following it,
// the arguments are first given to the modes requiring one only. If that
// doesn't add up, every mode that can take an argument gets one. If that
// doesn't add up either, the whole string is rejected and ok is false.
func (isupport *ISupport) SplitModes(modeString string) (changes []ModeChange, ok bool) {
	isupport.rlock()
	defer isupport.lock.RUnlock()

	groups := make([]*modeGroup, 0, 2)
	var current *modeGroup

	for _, token := range strings.Fields(modeString) {
		if token[0] == '+' || token[0] == '-' {
			if current == nil || len(current.args) > 0 {
				current = &modeGroup{}
				groups = append(groups, current)
			}

			plus := true
			for _, ch := range token {
				switch ch {
				case '+':
					plus = true
				case '-':
					plus = false
				default:
					current.changes = append(current.changes, ModeChange{Added: plus, Mode: ch})
					current.rules = append(current.rules, argumentRule(isupport.modeClass(ch), plus))
				}
			}

			continue
		}

		// Arguments never precede their modes.
		if current == nil {
			return nil, false
		}

		current.args = append(current.args, token)
	}

	changes = make([]ModeChange, 0, 8)
	for _, group := range groups {
		required := 0
		optional := 0
		for _, rule := range group.rules {
			switch rule {
			case argumentRequired:
				required++
			case argumentOptional:
				optional++
			}
		}

		var includeOptional bool
		switch len(group.args) {
		case required:
			includeOptional = false
		case required + optional:
			includeOptional = true
		default:
			return nil, false
		}

		argIndex := 0
		for i, change := range group.changes {
			rule := group.rules[i]
			if rule == argumentRequired || (rule == argumentOptional && includeOptional) {
				change.Argument = group.args[argIndex]
				change.HasArgument = true
				argIndex++
			}

			changes = append(changes, change)
		}
	}

	return changes, true
}
