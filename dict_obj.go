package kuroko

// DictObj is Kuroko's native-backed mapping (§3), storing entries in
// the same swiss-table-backed Table used for instance field tables
// (table.go); string interning uses a separate plain Go map.
type DictObj struct {
	ObjHeader
	table *Table
	// insertOrder preserves the order keys were first inserted, for a
	// predictable (if unspecified by spec) iteration order matching
	// what users of a dynamically typed language generally expect.
	insertOrder []Value
}

func newDictObj(vm *VM) *DictObj {
	d := &DictObj{ObjHeader: newHeader(ObjKindDict, vm.classes.Dict), table: NewTable(8)}
	vm.registerObject(d)
	return d
}

func (d *DictObj) Get(key Value) (Value, bool) { return d.table.Get(key) }

func (d *DictObj) Set(key, value Value) {
	if d.table.Set(key, value) {
		d.insertOrder = append(d.insertOrder, key)
	}
}

func (d *DictObj) Delete(key Value) bool {
	if !d.table.Delete(key) {
		return false
	}
	for i, k := range d.insertOrder {
		if k.Equals(key) {
			d.insertOrder = append(d.insertOrder[:i], d.insertOrder[i+1:]...)
			break
		}
	}
	return true
}

func (d *DictObj) Len() int { return d.table.Len() }

// Keys returns keys in insertion order.
func (d *DictObj) Keys() []Value {
	out := make([]Value, 0, len(d.insertOrder))
	for _, k := range d.insertOrder {
		if d.table.Has(k) {
			out = append(out, k)
		}
	}
	return out
}
