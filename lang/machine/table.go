package machine

// entry is one slot of a table: an empty slot has a nil key and nil value;
// a tombstone (a deleted slot whose probe sequence must still be walked
// through) has a nil key and a non-nil Bool value (spec.md §4.3).
type entry struct {
	key   *ObjString
	value Value
}

// table is the hand-rolled open-addressed hash table with linear probing
// used for both the VM's global variables and its string-intern set. It is
// not a generic map: spec.md §8 treats its probe-termination and tombstone
// behavior as a testable property, so a stdlib map cannot stand in for it.
type table struct {
	count   int // live entries plus tombstones
	entries []entry
}

// tombstone is the sentinel value written into a deleted slot's Value so
// that findEntry can distinguish it from a never-used empty slot.
var tombstone Value = Bool(true)

func (t *table) grow() {
	newCap := 8
	if len(t.entries) > 0 {
		newCap = len(t.entries) * 2
	}
	old := t.entries
	t.entries = make([]entry, newCap)
	t.count = 0
	for _, e := range old {
		if e.key == nil {
			continue
		}
		idx := findEntry(t.entries, e.key)
		t.entries[idx] = e
		t.count++
	}
}

// findEntry returns the slot key should occupy: either the slot already
// holding it, or the first empty slot (preferring an earlier tombstone so
// repeated insert/delete cycles don't leak slots) found by linear probing.
// It returns on the first true-empty slot, never a tombstone, so that
// earlier deletions cannot prematurely terminate a probe sequence that
// still needs to find key further along (spec.md §4.3).
func findEntry(entries []entry, key *ObjString) int {
	capacity := len(entries)
	idx := int(key.hash) % capacity
	tombstoneIdx := -1
	for {
		e := &entries[idx]
		switch {
		case e.key == nil && e.value == nil:
			if tombstoneIdx != -1 {
				return tombstoneIdx
			}
			return idx
		case e.key == nil:
			if tombstoneIdx == -1 {
				tombstoneIdx = idx
			}
		case e.key == key:
			return idx
		}
		idx = (idx + 1) % capacity
	}
}

// set stores value under key, growing the table first if the insert could
// otherwise leave no empty slot (count+1 >= capacity), so that every probe
// in findEntry and findString still ends on an empty slot (spec.md §4.3).
// It reports whether key was not already present.
func (t *table) set(key *ObjString, value Value) bool {
	if t.count+1 >= len(t.entries) {
		t.grow()
	}
	idx := findEntry(t.entries, key)
	e := &t.entries[idx]
	isNew := e.key == nil
	if isNew && e.value == nil {
		t.count++
	}
	e.key = key
	e.value = value
	return isNew
}

func (t *table) get(key *ObjString) (Value, bool) {
	if len(t.entries) == 0 {
		return nil, false
	}
	idx := findEntry(t.entries, key)
	e := &t.entries[idx]
	if e.key == nil {
		return nil, false
	}
	return e.value, true
}

// delete removes key, leaving a tombstone in its slot so later probes for
// other keys that hashed to the same bucket still terminate correctly.
func (t *table) delete(key *ObjString) bool {
	if len(t.entries) == 0 {
		return false
	}
	idx := findEntry(t.entries, key)
	e := &t.entries[idx]
	if e.key == nil {
		return false
	}
	e.key = nil
	e.value = tombstone
	return true
}

// findString looks up a string by its content rather than by handle,
// comparing hash, then length, then bytes. It is the entry point the
// interner uses to decide whether bytes have already been seen.
func (t *table) findString(s string, hash uint32) *ObjString {
	if len(t.entries) == 0 {
		return nil
	}
	capacity := len(t.entries)
	idx := int(hash) % capacity
	for {
		e := &t.entries[idx]
		switch {
		case e.key == nil && e.value == nil:
			return nil
		case e.key != nil && e.key.hash == hash && e.key.chars == s:
			return e.key
		}
		idx = (idx + 1) % capacity
	}
}
