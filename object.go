package kuroko

// ObjKind tags the concrete heap object kind stored behind the Obj
// interface, so the VM and GC can switch on it without a type
// assertion chain everywhere (§3 "Heap objects share a common header:
// kind tag...").
type ObjKind uint8

const (
	ObjKindString ObjKind = iota
	ObjKindBytes
	ObjKindTuple
	ObjKindFunction
	ObjKindClosure
	ObjKindUpvalue
	ObjKindNative
	ObjKindClass
	ObjKindInstance
	ObjKindBoundMethod
	ObjKindProperty
	ObjKindModule
	ObjKindGenerator
	ObjKindList
	ObjKindDict
	ObjKindSet
)

// Obj is implemented by every heap-allocated Kuroko object. Header
// returns the common object header embedded in every concrete type, so
// GC and generic dispatch code (repr, hash, equality) can work through
// a single interface without knowing the concrete kind.
type Obj interface {
	Header() *ObjHeader
}

// ObjHeader is the common header shared by every heap object (§3): kind
// tag, mark bit for the tracing GC, an "in-repr" re-entrancy flag so
// repr() can detect self-referential containers, generation bits
// (reserved — §4.5 permits a single-generation collector initially),
// an immortal bit for objects that must never be swept (the base and
// exception classes), a 32-bit hash cache, and the
// next-in-allocation-list link the GC walks during sweep.
type ObjHeader struct {
	Kind      ObjKind
	Class     *Class
	marked    bool
	inRepr    bool
	immortal  bool
	generation uint8
	hashCache  uint32
	hashValid  bool
	next      Obj // intrusive allocation-list link, owned by the GC
}

func (h *ObjHeader) Header() *ObjHeader { return h }

// hashValue computes (and caches) a stable identity hash derived from a
// monotonically assigned id; a class's __hash__ protocol slot is not
// consulted here.
// Strings/Tuples/Bytes override this by pre-populating hashCache at
// construction time (see strings_obj.go, tuple_obj.go, bytes_obj.go).
func (h *ObjHeader) hashValue(self Obj) uint32 {
	if h.hashValid {
		return h.hashCache
	}
	// Identity hash: derived once and cached, stable for the object's
	// lifetime even though Go may move the backing memory, because we
	// hash a monotonically assigned id rather than a pointer bit
	// pattern.
	h.hashCache = nextIdentityHash()
	h.hashValid = true
	return h.hashCache
}

var identityHashCounter uint32

func nextIdentityHash() uint32 {
	identityHashCounter += 2654435761
	return identityHashCounter
}

// reprString renders the default repr for an object by consulting the
// class's cached __repr__ slot through the VM; objects without a
// running VM context (used only in tests) fall back to "<ClassName
// object>".
func (h *ObjHeader) reprString(self Obj) string {
	if h.inRepr {
		return "..."
	}
	if h.Class != nil && h.Class.Slots.Repr.IsCallable() {
		h.inRepr = true
		defer func() { h.inRepr = false }()
		if vm := currentVM(); vm != nil {
			if s, err := vm.callReprSlot(self, h.Class); err == nil {
				return s
			}
		}
	}
	name := "object"
	if h.Class != nil {
		name = h.Class.Name
	}
	return "<" + name + " object>"
}

func newHeader(kind ObjKind, class *Class) ObjHeader {
	return ObjHeader{Kind: kind, Class: class}
}
