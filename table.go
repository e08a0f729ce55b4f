package kuroko

import (
	"github.com/dolthub/swiss"
)

// Table is Kuroko's open-addressed, value-keyed hash table (§2 "Hash
// table", §3 string interning, instance field tables, dict/set
// backing). dolthub/swiss only keys on comparable Go types, and Value
// is not comparable in the way we need (two interned strings with the
// same bytes must compare equal even though a Go `Value` containing an
// Obj pointer is only `==` to itself) — so Table buckets by Value.Hash()
// into a swiss.Map[uint32, []entry], with a short linear scan inside
// each bucket to resolve collisions via Value.Equals. This is the same
// "hash cache plus bucket" shape mna-nenuphar gets from the identical
// swiss table vendored as github.com/mna/swiss.
type Table struct {
	buckets *swiss.Map[uint32, []entry]
	count   int
}

type entry struct {
	key   Value
	value Value
}

// NewTable creates an empty table sized for capacity entries up front
// (0 is a valid, lazily-grown default).
func NewTable(capacity int) *Table {
	if capacity < 8 {
		capacity = 8
	}
	return &Table{buckets: swiss.NewMap[uint32, []entry](uint32(capacity))}
}

func (t *Table) Len() int { return t.count }

func (t *Table) Get(key Value) (Value, bool) {
	h := key.Hash()
	bucket, ok := t.buckets.Get(h)
	if !ok {
		return Value{}, false
	}
	for _, e := range bucket {
		if e.key.Equals(key) {
			return e.value, true
		}
	}
	return Value{}, false
}

// Set stores key=value, returning true if this created a new entry
// (as opposed to overwriting one).
func (t *Table) Set(key, value Value) bool {
	h := key.Hash()
	bucket, _ := t.buckets.Get(h)
	for i, e := range bucket {
		if e.key.Equals(key) {
			bucket[i].value = value
			t.buckets.Put(h, bucket)
			return false
		}
	}
	bucket = append(bucket, entry{key: key, value: value})
	t.buckets.Put(h, bucket)
	t.count++
	return true
}

func (t *Table) Delete(key Value) bool {
	h := key.Hash()
	bucket, ok := t.buckets.Get(h)
	if !ok {
		return false
	}
	for i, e := range bucket {
		if e.key.Equals(key) {
			bucket = append(bucket[:i], bucket[i+1:]...)
			if len(bucket) == 0 {
				t.buckets.Delete(h)
			} else {
				t.buckets.Put(h, bucket)
			}
			t.count--
			return true
		}
	}
	return false
}

func (t *Table) Has(key Value) bool {
	_, ok := t.Get(key)
	return ok
}

// Each calls fn for every entry. Iteration order is unspecified (§8
// scenario 6: "set order unspecified but elements equal"), matching
// swiss.Map's own iteration order guarantee.
func (t *Table) Each(fn func(key, value Value) bool) {
	cont := true
	t.buckets.Iter(func(_ uint32, bucket []entry) bool {
		for _, e := range bucket {
			if !fn(e.key, e.value) {
				cont = false
				return true
			}
		}
		return false
	})
	_ = cont
}

// Keys collects all keys; used by dict/set iteration protocol
// (list/tuple/dict view construction) where a stable snapshot is
// needed before the caller begins mutating.
func (t *Table) Keys() []Value {
	keys := make([]Value, 0, t.count)
	t.Each(func(k, _ Value) bool {
		keys = append(keys, k)
		return true
	})
	return keys
}

// stringTable is the VM-wide intern table (§3 "Strings are interned in
// the VM's string table; equal strings are the same object"). It is
// keyed directly by Go string content rather than through Table,
// because interning must compare raw bytes, not Kuroko equality.
type stringTable struct {
	entries map[string]*KrkString
}

func newStringTable() *stringTable {
	return &stringTable{entries: make(map[string]*KrkString, 256)}
}

func (st *stringTable) find(data string) (*KrkString, bool) {
	s, ok := st.entries[data]
	return s, ok
}

func (st *stringTable) add(s *KrkString) {
	st.entries[string(s.data)] = s
}

func (st *stringTable) remove(s *KrkString) {
	delete(st.entries, string(s.data))
}
