package kuroko

// BytesObj is Kuroko's immutable byte-buffer object (§3), produced by
// `b"..."` literals and the `bytes()` constructor.
type BytesObj struct {
	ObjHeader
	Data []byte
}

func newBytesObj(vm *VM, data []byte) *BytesObj {
	b := &BytesObj{ObjHeader: newHeader(ObjKindBytes, vm.classes.Bytes), Data: data}
	b.hashCache = fnv1a(data)
	b.hashValid = true
	vm.registerObject(b)
	return b
}

func (b *BytesObj) Len() int { return len(b.Data) }
