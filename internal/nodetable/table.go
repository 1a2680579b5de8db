// Package nodetable contains the registration table backing a slot registry.
//
// The table assigns each linked entry a stable token, preserves link order,
// and indexes entries by key. It performs no locking of its own: the owning
// registry serializes every call under its mutex.
package nodetable

// Entry is the minimal view of a linked slot.
type Entry interface {
	// Key returns the backing-store key the entry is bound to.
	Key() string
}

// Token identifies one linked entry for the duration of its link.
// Tokens are never reused within the lifetime of a table.
type Token uint64

// Table is an ordered, key-indexed registration table.
// The zero value is not usable; call New.
type Table struct {
	next    Token
	order   []Token
	entries map[Token]Entry
	byKey   map[string]Token
}

// New creates an empty table.
func New() *Table {
	return &Table{
		entries: make(map[Token]Entry),
		byKey:   make(map[string]Token),
	}
}

// Link adds an entry at the end of the link order and returns its token.
// Returns ok=false if another entry with the same key is already linked.
func (t *Table) Link(e Entry) (Token, bool) {
	key := e.Key()
	if _, exists := t.byKey[key]; exists {
		return 0, false
	}
	t.next++
	tok := t.next
	t.entries[tok] = e
	t.byKey[key] = tok
	t.order = append(t.order, tok)
	return tok, true
}

// Unlink removes the entry identified by tok.
// Returns false if the token is not linked.
func (t *Table) Unlink(tok Token) bool {
	e, ok := t.entries[tok]
	if !ok {
		return false
	}
	delete(t.entries, tok)
	delete(t.byKey, e.Key())
	for i, o := range t.order {
		if o == tok {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
	return true
}

// Lookup returns the token linked under key, if any.
func (t *Table) Lookup(key string) (Token, bool) {
	tok, ok := t.byKey[key]
	return tok, ok
}

// Get returns the entry identified by tok, if linked.
func (t *Table) Get(tok Token) (Entry, bool) {
	e, ok := t.entries[tok]
	return e, ok
}

// Range calls fn for every linked entry in link order.
// fn returning false stops the iteration. Entries must not be linked or
// unlinked from within fn.
func (t *Table) Range(fn func(Token, Entry) bool) {
	for _, tok := range t.order {
		if e, ok := t.entries[tok]; ok {
			if !fn(tok, e) {
				return
			}
		}
	}
}

// Len returns the number of linked entries.
func (t *Table) Len() int {
	return len(t.order)
}

// Keys returns the linked keys in link order.
func (t *Table) Keys() []string {
	keys := make([]string, 0, len(t.order))
	for _, tok := range t.order {
		if e, ok := t.entries[tok]; ok {
			keys = append(keys, e.Key())
		}
	}
	return keys
}
