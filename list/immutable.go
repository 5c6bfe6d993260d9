package list

// An Immutable is a wrapper around a userlist reference that provides a limited
// set of methods for reading a userlist's content
type Immutable struct {
	list *List
}

// Entry gets an entry by nick
func (il Immutable) Entry(nick string) (entry *Entry, ok bool) {
	return il.list.Entry(nick)
}

// Entries gets all the entries in the list, in order
func (il Immutable) Entries() []*Entry {
	return il.list.Entries()
}

// Len gets the amount of members
func (il Immutable) Len() int {
	return il.list.Len()
}
