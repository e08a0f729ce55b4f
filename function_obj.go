package kuroko

// KwArg describes one keyword argument in a Function's signature: its
// name, and whether a default value was supplied (§3, §4.2).
type KwArg struct {
	Name       *KrkString
	HasDefault bool
}

// LocalDebugEntry maps a local slot to (name, birth-offset,
// death-offset) for debuggers and the disassembler (§3).
type LocalDebugEntry struct {
	Name   string
	Slot   int
	Birth  int
	Death  int
}

// UpvalueDesc describes one upvalue captured by a Closure at the point
// a nested function is compiled: whether it refers to a local slot in
// the immediately enclosing function or to one of that function's own
// upvalues (§4.2).
type UpvalueDesc struct {
	IsLocal bool
	Index   int
}

// Function is a compiled function (§3): its chunk, its calling
// convention (required + keyword argument names, *args/**kwargs
// collector flags), its upvalue descriptors, and debug metadata.
type Function struct {
	ObjHeader
	Name          string
	Chunk         *Chunk
	Arity         int // count of named positional parameters, defaulted or not
	KwArgs        []KwArg
	HasVarArgs    bool
	HasVarKwargs  bool
	UpvalueCount  int
	Upvalues      []UpvalueDesc
	Doc           string
	Locals        []LocalDebugEntry
	Module        *Module
	IsGenerator   bool
	IsMethod      bool
	IsInitializer bool
}

func newFunctionObj(vm *VM, name string) *Function {
	f := &Function{
		ObjHeader: newHeader(ObjKindFunction, vm.classes.Function),
		Name:      name,
		Chunk:     NewChunk(name),
	}
	vm.registerObject(f)
	return f
}

func (f *Function) TotalNamedArgs() int { return f.Arity + len(f.KwArgs) }

// Upvalue is a handle to a captured local variable (§3). While open, it
// points at a live stack slot (`slot`) in the owning thread's value
// stack; once `closed` is set, the slot's value has been copied into
// `closedV` and `slot` is no longer read.
type Upvalue struct {
	ObjHeader
	thread   *Thread
	slot     int
	closed   bool
	closedV  Value
	nextOpen *Upvalue // intrusive link in the thread's sorted open list
}

func newUpvalueObj(vm *VM, thread *Thread, slot int) *Upvalue {
	uv := &Upvalue{ObjHeader: newHeader(ObjKindUpvalue, nil), thread: thread, slot: slot}
	vm.registerObject(uv)
	return uv
}

func (u *Upvalue) Get() Value {
	if u.closed {
		return u.closedV
	}
	return u.thread.stack[u.slot]
}

func (u *Upvalue) Set(v Value) {
	if u.closed {
		u.closedV = v
		return
	}
	u.thread.stack[u.slot] = v
}

// Close detaches the upvalue from the stack, copying its current value
// in. It does not unlink the upvalue from the thread's open list;
// closeUpvaluesFrom (vm.go) does that.
func (u *Upvalue) Close() {
	if u.closed {
		return
	}
	u.closedV = u.thread.stack[u.slot]
	u.closed = true
}

// Closure pairs a compiled Function with its materialized upvalue
// array (§3).
type Closure struct {
	ObjHeader
	Fn       *Function
	Upvalues []*Upvalue
}

func newClosureObj(vm *VM, fn *Function) *Closure {
	c := &Closure{
		ObjHeader: newHeader(ObjKindClosure, vm.classes.Function),
		Fn:        fn,
		Upvalues:  make([]*Upvalue, fn.UpvalueCount),
	}
	vm.registerObject(c)
	return c
}

// NativeFn is the Go-side implementation of a built-in callable.
type NativeFn func(vm *VM, args []Value, kwargs map[string]Value) (Value, error)

// Native wraps a Go function as a callable Kuroko object (§3).
type Native struct {
	ObjHeader
	Name     string
	Doc      string
	IsMethod bool
	Fn       NativeFn
}

func newNativeObj(vm *VM, name string, fn NativeFn) *Native {
	n := &Native{ObjHeader: newHeader(ObjKindNative, vm.classes.Function), Name: name, Fn: fn}
	vm.registerObject(n)
	return n
}
