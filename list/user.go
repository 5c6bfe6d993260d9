package list

import "github.com/gissleh/ircengine/isupport"

// A Member is anything with a nick that can be in a list. In the client, this
// is the network-wide user record.
type Member interface {
	Nick() string
}

// A Seed is a member with its privileges, as listed in a NAMES reply.
type Seed struct {
	Member     Member
	Privileges isupport.Privilege
}

// An Entry is a member's place in one list. The same *Entry is kept for as
// long as the member is in the list, so a reference to it stays current.
type Entry struct {
	list       *List
	member     Member
	privileges isupport.Privilege
}

// Member gets the member this entry is for.
func (entry *Entry) Member() Member {
	entry.list.mutex.RLock()
	defer entry.list.mutex.RUnlock()

	return entry.member
}

// Nick gets the member's nick.
func (entry *Entry) Nick() string {
	return entry.Member().Nick()
}

// Privileges gets the current privileges.
func (entry *Entry) Privileges() isupport.Privilege {
	entry.list.mutex.RLock()
	defer entry.list.mutex.RUnlock()

	return entry.privileges
}

// Prefixes gets the prefix characters for every privilege, e.g. "@+".
func (entry *Entry) Prefixes() string {
	return entry.list.isupport.Prefixes(entry.Privileges())
}

// PrefixedNick gets the nick with the highest privilege's prefix, e.g. "@Gisle".
func (entry *Entry) PrefixedNick() string {
	prefix := entry.list.isupport.PrefixForPrivilege(entry.Privileges())
	if prefix == 0 {
		return entry.Nick()
	}

	return string(prefix) + entry.Nick()
}
