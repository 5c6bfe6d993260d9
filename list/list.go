package list

import (
	"sort"
	"sync"

	"github.com/gissleh/ircengine/isupport"
)

// A ChangeKind says what happened to a list.
type ChangeKind int

// The kinds of change a list reports to its OnChange handler.
const (
	ChangeInsert ChangeKind = iota
	ChangeRemove
	ChangePrivilege
	ChangeRename
	// ChangeReset is sent once after the whole list has been replaced, and
	// Entry is nil for it.
	ChangeReset
)

func (kind ChangeKind) String() string {
	switch kind {
	case ChangeInsert:
		return "insert"
	case ChangeRemove:
		return "remove"
	case ChangePrivilege:
		return "privilege"
	case ChangeRename:
		return "rename"
	case ChangeReset:
		return "reset"
	default:
		return "unknown"
	}
}

// A Change is passed to the list's OnChange handler.
type Change struct {
	Kind  ChangeKind
	Entry *Entry
}

// The List of users in a channel. It has all operations one would perform on
// users, like adding/removing privileges and changing nicks. Nicks are
// indexed with the ISupport's current case mapping.
type List struct {
	mutex    sync.RWMutex
	isupport *isupport.ISupport
	entries  []*Entry
	index    map[string]*Entry
	autosort bool
	onChange func(change Change)
}

// New creates a new list with the ISupport. The list can be reused between connections since the
// ISupport is simply cleared and repopulated, but it should be cleared.
func New(isupport *isupport.ISupport) *List {
	return &List{
		isupport: isupport,
		entries:  make([]*Entry, 0, 64),
		index:    make(map[string]*Entry, 64),
		autosort: true,
	}
}

// OnChange sets the function to call after the list has changed. It's called
// without the list's lock held, so it may read the list.
func (list *List) OnChange(fn func(change Change)) {
	list.mutex.Lock()
	list.onChange = fn
	list.mutex.Unlock()
}

// Insert adds a member. If there already is an entry with that nick, it's
// returned with ok being false.
func (list *List) Insert(member Member, privileges isupport.Privilege) (entry *Entry, ok bool) {
	key := list.isupport.Fold(member.Nick())

	list.mutex.Lock()
	if existing := list.index[key]; existing != nil {
		list.mutex.Unlock()
		return existing, false
	}

	entry = &Entry{list: list, member: member, privileges: privileges}
	list.entries = append(list.entries, entry)
	list.index[key] = entry
	if list.autosort {
		list.sort()
	}
	list.mutex.Unlock()

	list.notify(Change{Kind: ChangeInsert, Entry: entry})

	return entry, true
}

// Remove a member from the list.
func (list *List) Remove(nick string) (ok bool) {
	key := list.isupport.Fold(nick)

	list.mutex.Lock()
	entry := list.index[key]
	if entry == nil {
		list.mutex.Unlock()
		return false
	}

	for i := range list.entries {
		if list.entries[i] == entry {
			list.entries = append(list.entries[:i], list.entries[i+1:]...)
			break
		}
	}
	delete(list.index, key)
	list.mutex.Unlock()

	list.notify(Change{Kind: ChangeRemove, Entry: entry})

	return true
}

// Entry gets the entry by nick.
func (list *List) Entry(nick string) (entry *Entry, ok bool) {
	key := list.isupport.Fold(nick)

	list.mutex.RLock()
	defer list.mutex.RUnlock()

	entry = list.index[key]
	return entry, entry != nil
}

// Has returns true if the nick is in the list.
func (list *List) Has(nick string) bool {
	_, ok := list.Entry(nick)
	return ok
}

// AddPrivilege adds a privilege to a member. Redundant privileges will be ignored. It returns true if
// the member can be found, even if the privilege was redundant.
func (list *List) AddPrivilege(nick string, privilege isupport.Privilege) (ok bool) {
	return list.updatePrivileges(nick, func(current isupport.Privilege) isupport.Privilege {
		return current | privilege
	})
}

// RemovePrivilege removes a privilege from a member. It returns true if
// the member can be found, even if the privilege was not there.
func (list *List) RemovePrivilege(nick string, privilege isupport.Privilege) (ok bool) {
	return list.updatePrivileges(nick, func(current isupport.Privilege) isupport.Privilege {
		return current &^ privilege
	})
}

// SetPrivileges replaces a member's privileges.
func (list *List) SetPrivileges(nick string, privileges isupport.Privilege) (ok bool) {
	return list.updatePrivileges(nick, func(isupport.Privilege) isupport.Privilege {
		return privileges
	})
}

func (list *List) updatePrivileges(nick string, update func(current isupport.Privilege) isupport.Privilege) bool {
	key := list.isupport.Fold(nick)

	list.mutex.Lock()
	entry := list.index[key]
	if entry == nil {
		list.mutex.Unlock()
		return false
	}

	next := update(entry.privileges)
	if next == entry.privileges {
		list.mutex.Unlock()
		return true
	}

	prevHighest := entry.privileges.Highest()
	entry.privileges = next

	// Only sort if the change affected the highest privilege.
	if list.autosort && prevHighest != next.Highest() {
		list.sort()
	}
	list.mutex.Unlock()

	list.notify(Change{Kind: ChangePrivilege, Entry: entry})

	return true
}

// Rename moves the entry from one nick to the other. The member's Nick() should return the
// new nick by the time this is called. It will return false if `from` does not exist or
// if `to` belongs to someone else.
func (list *List) Rename(from, to string) (ok bool) {
	fromKey := list.isupport.Fold(from)
	toKey := list.isupport.Fold(to)

	list.mutex.Lock()

	// Sanity check
	entry := list.index[fromKey]
	if entry == nil {
		list.mutex.Unlock()
		return false
	}
	if existing := list.index[toKey]; existing != nil && existing != entry {
		list.mutex.Unlock()
		return false
	}

	delete(list.index, fromKey)
	list.index[toKey] = entry

	if list.autosort {
		list.sort()
	}
	list.mutex.Unlock()

	list.notify(Change{Kind: ChangeRename, Entry: entry})

	return true
}

// Reset replaces the list's members with the seeds. Entries of members that remain keep their
// identity and get their privileges updated in place, new members get new entries, and the rest
// are dropped. One ChangeReset is sent for the whole operation.
func (list *List) Reset(seeds []Seed) {
	list.mutex.Lock()

	entries := make([]*Entry, 0, len(seeds))
	index := make(map[string]*Entry, len(seeds))
	for _, seed := range seeds {
		key := list.isupport.Fold(seed.Member.Nick())
		if index[key] != nil {
			continue
		}

		entry := list.index[key]
		if entry != nil {
			entry.member = seed.Member
			entry.privileges = seed.Privileges
		} else {
			entry = &Entry{list: list, member: seed.Member, privileges: seed.Privileges}
		}

		entries = append(entries, entry)
		index[key] = entry
	}

	list.entries = entries
	list.index = index
	list.sort()
	list.mutex.Unlock()

	list.notify(Change{Kind: ChangeReset})
}

// Reindex rebuilds the nick index. It's needed after the case mapping has changed.
func (list *List) Reindex() {
	list.mutex.Lock()
	defer list.mutex.Unlock()

	list.index = make(map[string]*Entry, len(list.entries))
	for _, entry := range list.entries {
		list.index[list.isupport.Fold(entry.member.Nick())] = entry
	}

	list.sort()
}

// Entries gets the entries in the list's current order.
func (list *List) Entries() []*Entry {
	list.mutex.RLock()
	defer list.mutex.RUnlock()

	result := make([]*Entry, len(list.entries))
	copy(result, list.entries)

	return result
}

// Len gets the amount of members.
func (list *List) Len() int {
	list.mutex.RLock()
	defer list.mutex.RUnlock()

	return len(list.entries)
}

// SetAutoSort enables or disables automatic sorting, which by default is enabled.
// Dislabing it makes sense when doing a massive operation. Enabling it will trigger
// a sort.
func (list *List) SetAutoSort(autosort bool) {
	list.mutex.Lock()
	list.autosort = autosort
	list.sort()
	list.mutex.Unlock()
}

// Clear removes all members in a list. It's reported as a reset.
func (list *List) Clear() {
	list.mutex.Lock()
	list.entries = list.entries[:0]
	for key := range list.index {
		delete(list.index, key)
	}
	list.mutex.Unlock()

	list.notify(Change{Kind: ChangeReset})
}

// Immutable gets an immutable version of the list.
func (list *List) Immutable() Immutable {
	return Immutable{list: list}
}

func (list *List) notify(change Change) {
	list.mutex.RLock()
	onChange := list.onChange
	list.mutex.RUnlock()

	if onChange != nil {
		onChange(change)
	}
}

func (list *List) sort() {
	caseMapping := list.isupport.CaseMapping()

	sort.SliceStable(list.entries, func(i, j int) bool {
		a := list.entries[i]
		b := list.entries[j]

		aRank := a.privileges.Rank()
		bRank := b.privileges.Rank()
		if aRank != bRank {
			return aRank > bRank
		}

		return caseMapping.Compare(a.member.Nick(), b.member.Nick()) < 0
	})
}
