package isupport

import "strings"

// A Privilege is a set of channel privileges held by a member. The zero value
// is a normal member.
type Privilege uint8

// PrivilegeNormal is a member without any privilege.
const PrivilegeNormal Privilege = 0

// The known privileges. PrivilegeUnknown is given to PREFIX modes outside of
// this vocabulary, so they're tracked rather than dropped.
const (
	PrivilegeVoice Privilege = 1 << iota
	PrivilegeHalfOp
	PrivilegeOp
	PrivilegeAdmin
	PrivilegeOwner
	PrivilegeCreator
	PrivilegeUnknown
)

// privilegeRanks is highest first.
var privilegeRanks = []Privilege{
	PrivilegeCreator,
	PrivilegeOwner,
	PrivilegeAdmin,
	PrivilegeOp,
	PrivilegeHalfOp,
	PrivilegeVoice,
	PrivilegeUnknown,
}

var privilegeNames = map[Privilege]string{
	PrivilegeVoice:   "voice",
	PrivilegeHalfOp:  "halfop",
	PrivilegeOp:      "op",
	PrivilegeAdmin:   "admin",
	PrivilegeOwner:   "owner",
	PrivilegeCreator: "creator",
	PrivilegeUnknown: "unknown",
}

// knownPrivilegeModes is the vocabulary PREFIX letters are matched against.
var knownPrivilegeModes = map[rune]Privilege{
	'v': PrivilegeVoice,
	'h': PrivilegeHalfOp,
	'o': PrivilegeOp,
	'a': PrivilegeAdmin,
	'q': PrivilegeOwner,
	'O': PrivilegeCreator,
}

// Has returns true if all privileges in other are set.
func (privilege Privilege) Has(other Privilege) bool {
	return privilege&other == other
}

// Highest returns the highest single privilege in the set, or PrivilegeNormal.
func (privilege Privilege) Highest() Privilege {
	for _, rank := range privilegeRanks {
		if privilege&rank != 0 {
			return rank
		}
	}

	return PrivilegeNormal
}

// Rank returns a number that is higher the higher the highest privilege is.
func (privilege Privilege) Rank() int {
	highest := privilege.Highest()
	for i, rank := range privilegeRanks {
		if rank == highest {
			return len(privilegeRanks) - i
		}
	}

	return 0
}

// String lists the privileges, highest first, separated by a comma.
func (privilege Privilege) String() string {
	if privilege == PrivilegeNormal {
		return "normal"
	}

	names := make([]string, 0, 2)
	for _, rank := range privilegeRanks {
		if privilege&rank != 0 {
			names = append(names, privilegeNames[rank])
		}
	}

	return strings.Join(names, ",")
}
