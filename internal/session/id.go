package session

import "sync"

// ID is an interned, ref-counted handle to a session identifier. Two IDs
// created from the same string compare equal by value (Go struct
// equality over the interned pointer) without repeated string
// comparison on the hot path. Created by the portal on CreateSession,
// released on Close; ids are never reused once released.
type ID struct {
	h *handle
}

type handle struct {
	value string
}

var intern = struct {
	mu    sync.Mutex
	table map[string]*refCounted
}{table: make(map[string]*refCounted)}

type refCounted struct {
	h   *handle
	refs int
}

// NewID interns value and returns a ref-counted handle to it.
func NewID(value string) ID {
	intern.mu.Lock()
	defer intern.mu.Unlock()

	entry, ok := intern.table[value]
	if !ok {
		entry = &refCounted{h: &handle{value: value}}
		intern.table[value] = entry
	}
	entry.refs++
	return ID{h: entry.h}
}

// Release decrements the intern table's refcount for id, removing the
// entry once it reaches zero. Call this exactly once per NewID call
// that produced (a copy descending from) this id, typically from
// Session.Close.
func (id ID) Release() {
	if id.h == nil {
		return
	}
	intern.mu.Lock()
	defer intern.mu.Unlock()

	entry, ok := intern.table[id.h.value]
	if !ok || entry.h != id.h {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(intern.table, id.h.value)
	}
}

// String returns the underlying session id string.
func (id ID) String() string {
	if id.h == nil {
		return ""
	}
	return id.h.value
}

// Valid reports whether id was produced by NewID (as opposed to the
// zero value).
func (id ID) Valid() bool { return id.h != nil }
