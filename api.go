package kuroko

import "fmt"

// Init boots a process-wide VM from cfg (nil means NewConfig()'s
// defaults) and returns it (§6 "Lifecycle: init(flags)/shutdown()").
// Grounded on the teacher's api.go top-level convenience wrappers
// around its Config-driven grammar pipeline, generalized from a single
// one-shot grammar-compile entry point to a long-lived VM an embedder
// holds onto across many Interpret/CallValue calls.
func Init(cfg *Config) *VM {
	if cfg == nil {
		cfg = NewConfig()
	}
	return NewVM(cfg)
}

// Shutdown releases a VM's resources. Kuroko leans on Go's GC for the
// host process's memory, so there is no native handle to free; this
// exists for symmetry with Init and so embedders have a place to hook
// teardown logic (closing trace files, flushing Stdout) without a
// breaking API change later.
func (vm *VM) Shutdown() {
	if vm.Stdout != nil {
		if f, ok := vm.Stdout.(flusher); ok {
			_ = f.Flush()
		}
	}
}

type flusher interface{ Flush() error }

// CompileSource compiles source without running it (§6 "compile(source,
// filename) -> Function | error").
func (vm *VM) CompileSource(source, filename string) (*Function, error) {
	return Compile(vm, source, filename)
}

// Push, Pop, Peek, and StackTop give an embedder direct access to the
// main thread's value stack (§6 "Stack manipulation"), the same
// primitives natives in builtins.go use internally.
func (vm *VM) Push(v Value) { vm.mainThread.push(v) }
func (vm *VM) Pop() Value    { return vm.mainThread.pop() }
func (vm *VM) Peek(n int) Value {
	return vm.mainThread.peek(n)
}
func (vm *VM) StackTop() Value { return vm.mainThread.peek(0) }

// NewInstance allocates a bare instance of class with no fields set
// (§6 "newInstance(class)"). Native constructors call this before
// filling in fields by hand, the same two-step newInstanceObj already
// follows for exceptions (vm_call.go's newException).
func (vm *VM) NewInstance(class *Class) *Instance { return newInstanceObj(vm, class) }

// CopyString interns a defensive copy of data (§6 "copyString(bytes,
// len)"): the caller's slice may be reused or mutated afterward.
func (vm *VM) CopyString(data []byte) Value {
	cp := make([]byte, len(data))
	copy(cp, data)
	return ObjectValue(vm.internString(cp))
}

// TakeString interns data without copying (§6 "takeString(owned,
// len)"): the caller must not touch data again.
func (vm *VM) TakeString(data []byte) Value { return ObjectValue(vm.internString(data)) }

// NewTuple allocates a tuple of n None values for a native to fill in
// by index before returning it (§6 "newTuple(n)").
func (vm *VM) NewTuple(n int) *TupleObj {
	items := make([]Value, n)
	for i := range items {
		items[i] = None()
	}
	return newTupleObj(vm, items)
}

// NewBytes copies data into a fresh Bytes object (§6 "newBytes(bytes,
// len)").
func (vm *VM) NewBytes(data []byte) *BytesObj {
	cp := make([]byte, len(data))
	copy(cp, data)
	return newBytesObj(vm, cp)
}

// MakeClass creates and registers a class named name, based on base
// (§6 "makeClass(module, &out, name, base)"), installing it into
// mod's namespace (or the builtin namespace if mod is nil).
func (vm *VM) MakeClass(mod *Module, name string, base *Class) *Class {
	c := newClassObj(vm, name, base)
	if mod != nil {
		mod.Fields.Set(vm.stringValue(name), ObjectValue(c))
	} else {
		registerGlobal(vm, name, ObjectValue(c))
	}
	return c
}

// DefineNative installs a Go-implemented method named name on cls's
// method table (§6 "defineNative(methodTable, name, fn)").
func (vm *VM) DefineNative(cls *Class, name string, fn NativeFn) {
	cls.Methods.Set(vm.stringValue(name), ObjectValue(newNativeObj(vm, name, fn)))
}

// FinalizeClass populates cls's protocol-slot cache (§6
// "finalizeClass(cls)"); must run once after a class's full method
// table (inherited and its own) is in place.
func (vm *VM) FinalizeClass(cls *Class) { finalizeClass(vm, cls) }

// BindMethod looks up name on cls without binding it to any particular
// instance, for introspection/docstring tooling (§6 "bindMethod(cls,
// name) -> handle for docstring").
func (vm *VM) BindMethod(cls *Class, name string) (Value, bool) {
	return cls.lookupMethod(vm, vm.internString([]byte(name)))
}

// RuntimeError constructs and returns a pending exception of the given
// class (§6 "runtimeError(exceptionClass, fmt, ...)"); natives return
// this as their error so the dispatch loop starts unwinding.
func (vm *VM) RuntimeError(class *Class, format string, args ...interface{}) error {
	return vm.newException(class, fmt.Sprintf(format, args...))
}

// DoRecursiveModuleLoad resolves and runs a dotted module name (§6
// "doRecursiveModuleLoad(\"a.b\")"), thin sugar over ImportModule for
// embedders that don't otherwise touch module.go.
func (vm *VM) DoRecursiveModuleLoad(dotted string) (*Module, error) {
	return vm.ImportModule(dotted)
}

// ModulePaths returns the search order used by ImportModule (§6). It is
// a Go method only: scripts have no kuroko.module_paths built-in.
func (vm *VM) ModulePaths() []string { return vm.modulePaths() }

// ClassNamed looks up a top-level class by name in the builtin
// namespace (global exception/container types), for introspection
// tooling that only has a name string to start from (cmd/kurokodis's
// `-class` flag). Classes a script defines at module scope live in that
// module's globals and are not found here.
func (vm *VM) ClassNamed(name string) *Class {
	v, ok := vm.builtins.Get(vm.stringValue(name))
	if !ok {
		return nil
	}
	cls, _ := v.AsObject().(*Class)
	return cls
}
