package kuroko

// ListObj is Kuroko's resizable, native-backed list (§3). No pack
// library models a growable typed array any better than a Go slice
// (DESIGN.md: "no pack library models a growable array better than a
// slice"), so this is a thin wrapper adding class/header plumbing.
type ListObj struct {
	ObjHeader
	Items []Value
}

func newListObj(vm *VM, items []Value) *ListObj {
	l := &ListObj{ObjHeader: newHeader(ObjKindList, vm.classes.List), Items: items}
	vm.registerObject(l)
	return l
}

func (l *ListObj) Len() int { return len(l.Items) }

func (l *ListObj) Append(v Value) { l.Items = append(l.Items, v) }

// normalizeIndex resolves Python-style negative indices; ok is false
// if the resulting index is out of [0, len).
func normalizeIndex(i, length int) (int, bool) {
	if i < 0 {
		i += length
	}
	if i < 0 || i >= length {
		return 0, false
	}
	return i, true
}
