package kuroko

// ProtocolSlots caches direct Value handles to a class's special
// methods, regenerated by finalizeClass (§3, §9 design note: "model the
// cache as an inlined small table keyed by an enumeration of protocol
// operations, regenerated by finalize_class").
type ProtocolSlots struct {
	Init       Value
	Repr       Value
	Str        Value
	Call       Value
	Eq         Value
	Ne         Value
	Lt         Value
	Le         Value
	Gt         Value
	Ge         Value
	Hash       Value
	Len        Value
	Iter       Value
	Next       Value
	GetItem    Value
	SetItem    Value
	DelItem    Value
	GetSlice   Value
	SetSlice   Value
	DelSlice   Value
	Enter      Value
	Exit       Value
	GetAttr    Value
	Dir        Value
	Contains   Value
	Add        Value
	Sub        Value
	Mul        Value
	Div        Value
	FloorDiv   Value
	Mod        Value
	Pow        Value
	BitAnd     Value
	BitOr      Value
	BitXor     Value
	Shl        Value
	Shr        Value
	Neg        Value
	Invert     Value
}

func (s *ProtocolSlots) clear() { *s = ProtocolSlots{} }

// IsCallable reports whether a protocol slot value is present (i.e.
// was found and cached, as opposed to the zero Value meaning "no such
// method").
func (v Value) IsCallable() bool { return v.kind == ValObject }

// Class is a Kuroko class object (§3): name, base, method table, class
// statics, finalized protocol-slot cache, and the instance allocation
// size (always "one field table" for pure-Kuroko classes — native-
// backed builtins use NativeAlloc instead).
type Class struct {
	ObjHeader
	Name        string
	Base        *Class
	Methods     *Table // Value(string) -> Value(callable)
	Fields      *Table // class statics
	Slots       ProtocolSlots
	finalized   bool
	NativeAlloc func(vm *VM, class *Class) Obj // only set for built-in types
}

func newClassObj(vm *VM, name string, base *Class) *Class {
	c := &Class{
		ObjHeader: newHeader(ObjKindClass, vm.classes.Type),
		Name:      name,
		Base:      base,
		Methods:   NewTable(8),
		Fields:    NewTable(4),
	}
	vm.registerObject(c)
	return c
}

// lookupMethod walks the base chain looking for name in each class's
// method table (§4.4 GET_PROPERTY semantics).
func (c *Class) lookupMethod(vm *VM, name *KrkString) (Value, bool) {
	for cls := c; cls != nil; cls = cls.Base {
		if v, ok := cls.Methods.Get(ObjectValue(name)); ok {
			return v, true
		}
	}
	return Value{}, false
}

// finalizeClass populates the protocol-slot cache by walking the base
// chain for each well-known special-method name (§3 "Lifecycle:
// ...finalization populates the cached protocol-slot pointers").
// Open Question #3 (SPEC_FULL.md §13): assigning to a class slot after
// finalizeClass is allowed and silent; only the cache below is not
// recomputed automatically as a result.
func finalizeClass(vm *VM, c *Class) {
	slot := func(name string) Value {
		v, _ := c.lookupMethod(vm, vm.internStr(name))
		return v
	}
	c.Slots = ProtocolSlots{
		Init: slot("__init__"), Repr: slot("__repr__"), Str: slot("__str__"),
		Call: slot("__call__"), Eq: slot("__eq__"), Ne: slot("__ne__"),
		Lt: slot("__lt__"), Le: slot("__le__"), Gt: slot("__gt__"), Ge: slot("__ge__"),
		Hash: slot("__hash__"), Len: slot("__len__"), Iter: slot("__iter__"), Next: slot("__next__"),
		GetItem: slot("__getitem__"), SetItem: slot("__setitem__"), DelItem: slot("__delitem__"),
		GetSlice: slot("__getslice__"), SetSlice: slot("__setslice__"), DelSlice: slot("__delslice__"),
		Enter: slot("__enter__"), Exit: slot("__exit__"),
		GetAttr: slot("__getattr__"), Dir: slot("__dir__"), Contains: slot("__contains__"),
		Add: slot("__add__"), Sub: slot("__sub__"), Mul: slot("__mul__"), Div: slot("__div__"),
		FloorDiv: slot("__floordiv__"), Mod: slot("__mod__"), Pow: slot("__pow__"),
		BitAnd: slot("__and__"), BitOr: slot("__or__"), BitXor: slot("__xor__"),
		Shl: slot("__lshift__"), Shr: slot("__rshift__"), Neg: slot("__neg__"), Invert: slot("__invert__"),
	}
	c.finalized = true
}

// Instance is a class instance: class pointer + field table (§3).
type Instance struct {
	ObjHeader
	Fields *Table
}

func newInstanceObj(vm *VM, class *Class) *Instance {
	inst := &Instance{ObjHeader: newHeader(ObjKindInstance, class), Fields: NewTable(4)}
	vm.registerObject(inst)
	return inst
}

// BoundMethod pairs a receiver with a method object so that `obj.m`
// yields a callable closing over `obj` as its first argument (§3).
type BoundMethod struct {
	ObjHeader
	Receiver Value
	Method   Value
}

func newBoundMethodObj(vm *VM, receiver, method Value) *BoundMethod {
	bm := &BoundMethod{ObjHeader: newHeader(ObjKindBoundMethod, vm.classes.Method), Receiver: receiver, Method: method}
	vm.registerObject(bm)
	return bm
}

// Property wraps a getter callable; a setter is attached as an
// ordinary field on the class the first time `@prop.setter`-style
// assignment occurs (§3: "setter attached as field on class when
// assignment occurs").
type Property struct {
	ObjHeader
	Getter Value
	Setter Value
	Doc    string
}

func newPropertyObj(vm *VM, getter Value) *Property {
	p := &Property{ObjHeader: newHeader(ObjKindProperty, vm.classes.Property), Getter: getter}
	vm.registerObject(p)
	return p
}

// Module is an instance whose class is the builtin `module` class; its
// field table is the namespace searched by GET_GLOBAL (§3, §4.4).
type Module struct {
	ObjHeader
	Name    string
	Path    string
	Fields  *Table
	Loaded  bool
}

func newModuleObj(vm *VM, name, path string) *Module {
	m := &Module{ObjHeader: newHeader(ObjKindModule, vm.classes.Module), Name: name, Path: path, Fields: NewTable(16)}
	vm.registerObject(m)
	return m
}
