package kuroko

// SetObj is Kuroko's native-backed set, a hash-set layered over the
// same Table used for dict/instance storage (§3 "hash-set-over-table").
type SetObj struct {
	ObjHeader
	table *Table
}

func newSetObj(vm *VM) *SetObj {
	s := &SetObj{ObjHeader: newHeader(ObjKindSet, vm.classes.Set), table: NewTable(8)}
	vm.registerObject(s)
	return s
}

func (s *SetObj) Add(v Value) bool    { return s.table.Set(v, Bool(true)) }
func (s *SetObj) Contains(v Value) bool { return s.table.Has(v) }
func (s *SetObj) Remove(v Value) bool { return s.table.Delete(v) }
func (s *SetObj) Len() int            { return s.table.Len() }
func (s *SetObj) Items() []Value      { return s.table.Keys() }

// Intersection implements `&` (§8 scenario 6).
func (s *SetObj) Intersection(vm *VM, other *SetObj) *SetObj {
	out := newSetObj(vm)
	for _, v := range s.Items() {
		if other.Contains(v) {
			out.Add(v)
		}
	}
	return out
}

// Union implements `|`.
func (s *SetObj) Union(vm *VM, other *SetObj) *SetObj {
	out := newSetObj(vm)
	for _, v := range s.Items() {
		out.Add(v)
	}
	for _, v := range other.Items() {
		out.Add(v)
	}
	return out
}

// Difference implements `-`.
func (s *SetObj) Difference(vm *VM, other *SetObj) *SetObj {
	out := newSetObj(vm)
	for _, v := range s.Items() {
		if !other.Contains(v) {
			out.Add(v)
		}
	}
	return out
}
