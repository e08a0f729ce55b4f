package kuroko

// TupleObj is Kuroko's immutable ordered sequence (§3). Its hash
// combines the element hashes so that tuples can be used as dict/set
// keys, matching the spec's "hash combines element hashes" note.
type TupleObj struct {
	ObjHeader
	Items []Value
}

func newTupleObj(vm *VM, items []Value) *TupleObj {
	t := &TupleObj{ObjHeader: newHeader(ObjKindTuple, vm.classes.Tuple), Items: items}
	h := uint32(0x9e3779b9)
	for _, it := range items {
		h ^= it.Hash() + 0x9e3779b9 + (h << 6) + (h >> 2)
	}
	t.hashCache = h
	t.hashValid = true
	vm.registerObject(t)
	return t
}

func (t *TupleObj) Len() int { return len(t.Items) }
