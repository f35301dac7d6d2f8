// Package mapping holds the persisted trigger→asset-path table.
package mapping

// Table is an insertion-ordered trigger→path map.
//
// Overwriting an existing key keeps its original position; new keys are appended.
type Table struct {
	keys   []string
	values map[string]string
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{values: make(map[string]string)}
}

// Set inserts or overwrites one entry.
func (t *Table) Set(trigger, path string) {
	if _, ok := t.values[trigger]; !ok {
		t.keys = append(t.keys, trigger)
	}
	t.values[trigger] = path
}

// Get returns the path stored for trigger.
func (t *Table) Get(trigger string) (string, bool) {
	path, ok := t.values[trigger]
	return path, ok
}

// Len returns the number of entries.
func (t *Table) Len() int {
	return len(t.keys)
}

// Keys returns the triggers in insertion order.
func (t *Table) Keys() []string {
	return append([]string(nil), t.keys...)
}

// Each visits entries in insertion order.
func (t *Table) Each(fn func(trigger, path string)) {
	for _, key := range t.keys {
		fn(key, t.values[key])
	}
}

// Merge copies every entry of other into t; other wins on key collisions.
func (t *Table) Merge(other *Table) {
	if other == nil {
		return
	}
	other.Each(t.Set)
}
