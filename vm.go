package kuroko

import "fmt"

// BuiltinClasses holds the VM's pre-allocated base-type classes (§3
// "every value's type is itself a Class object; the base types are
// created once at VM startup and never collected"). Grounded on the
// teacher's single global VM instance (newVirtualMachine in vm.go),
// generalized from a PEG-matcher's fixed state to a full object-model
// VM's class table.
type BuiltinClasses struct {
	Object    *Class
	Type      *Class
	Int       *Class
	Float     *Class
	Bool      *Class
	NoneType  *Class
	Str       *Class
	Bytes     *Class
	Tuple     *Class
	List      *Class
	Dict      *Class
	Set       *Class
	Function  *Class
	Method    *Class
	Property  *Class
	Module    *Class
	Generator *Class

	BaseException      *Class
	Exception          *Class
	TypeError          *Class
	ValueError         *Class
	NameError          *Class
	AttributeError     *Class
	IndexError         *Class
	KeyError           *Class
	ArgumentError      *Class
	ImportError        *Class
	NotImplementedErr  *Class
	ZeroDivisionError  *Class
	OverflowError      *Class
	StopIteration      *Class
	SyntaxErrorClass   *Class
}

// VM owns every piece of process-wide interpreter state: the intern
// table, the base classes, the loaded-module registry, and the
// intrusive allocation list the GC sweeps (§3, §4.5). Grounded on the
// teacher's single global *virtualMachine created by newVirtualMachine,
// widened from one-shot grammar matching to a long-lived, multi-call
// embeddable interpreter (§10 embedding API).
type VM struct {
	classes    BuiltinClasses
	strings    *stringTable
	modules    map[string]*Module
	builtins   *Table
	objects    Obj // head of the intrusive GC allocation list
	allocBytes int
	nextGC     int
	config     *Config
	Stdout     writer
	Stderr     writer

	mainThread *Thread
}

// writer is the narrow interface builtins.go's print() and
// traceback.go's printer need; satisfied by *os.File/bytes.Buffer/etc.
// without pulling io into every file that only writes strings.
type writer interface {
	WriteString(s string) (int, error)
}

// Thread is one logical call stack (§3 "a Thread is a value stack plus
// a call-frame stack plus an open-upvalue list"). Kuroko itself is
// single-threaded per interpreter instance; Thread is still its own
// type (rather than folded into VM) because generators each keep a
// private, suspended stack slice of their own (generator_obj.go).
type Thread struct {
	vm          *VM
	stack       []Value
	frames      frameStack
	handlers    handlerStack
	openUpvalue *Upvalue // sorted by slot, highest first
}

// activeVM backs currentVM(); Kuroko embeds one interpreter per
// process (§10), so a package-level pointer set by NewVM avoids
// threading *VM through object.go's repr/hash callbacks that predate
// any particular call frame.
var activeVM *VM

func currentVM() *VM { return activeVM }

// NewVM boots a fresh interpreter: allocates the base classes, the
// string intern table, and the main thread, then installs builtins
// (builtins.go) and the exception hierarchy (exceptions.go).
func NewVM(cfg *Config) *VM {
	vm := &VM{
		strings:  newStringTable(),
		modules:  make(map[string]*Module),
		builtins: NewTable(64),
		config:   cfg,
		nextGC:   1 << 20,
	}
	activeVM = vm
	vm.bootstrapClasses()
	vm.mainThread = vm.NewThread()
	registerBuiltins(vm)
	registerContainerMethods(vm)
	registerGeneratorMethods(vm)
	registerExceptionHierarchy(vm)
	return vm
}

// bootstrapClasses creates every base-type Class with a nil Base/Type
// link initially (Type itself has no class until patched below,
// mirroring Python's bootstrap order: `type` is an instance of
// itself).
func (vm *VM) bootstrapClasses() {
	mk := func(name string) *Class {
		c := &Class{ObjHeader: newHeader(ObjKindClass, nil), Name: name, Methods: NewTable(8), Fields: NewTable(4)}
		c.immortal = true
		vm.registerObject(c)
		return c
	}
	c := &vm.classes
	c.Object = mk("object")
	c.Type = mk("type")
	c.Int = mk("int")
	c.Float = mk("float")
	c.Bool = mk("bool")
	c.NoneType = mk("NoneType")
	c.Str = mk("str")
	c.Bytes = mk("bytes")
	c.Tuple = mk("tuple")
	c.List = mk("list")
	c.Dict = mk("dict")
	c.Set = mk("set")
	c.Function = mk("function")
	c.Method = mk("method")
	c.Property = mk("property")
	c.Module = mk("module")
	c.Generator = mk("generator")

	all := []*Class{
		c.Object, c.Type, c.Int, c.Float, c.Bool, c.NoneType, c.Str, c.Bytes,
		c.Tuple, c.List, c.Dict, c.Set, c.Function, c.Method, c.Property,
		c.Module, c.Generator,
	}
	for _, cls := range all {
		cls.Class = c.Type
		if cls != c.Object {
			cls.Base = c.Object
		}
	}
}

// NewThread creates a fresh call stack sharing this VM's heap and
// classes, used for the top-level program and (conceptually) for each
// generator's private stack slice.
func (vm *VM) NewThread() *Thread {
	return &Thread{vm: vm, stack: make([]Value, 0, 256)}
}

// registerObject links a freshly allocated heap object into the GC's
// allocation list and accounts its size toward the next collection
// threshold (memory.go performs the actual collection).
func (vm *VM) registerObject(o Obj) {
	h := o.Header()
	h.next = vm.objects
	vm.objects = o
	vm.allocBytes += 32 // coarse flat per-object accounting; memory.go's sweep uses the same size
	stress := vm.config != nil && vm.config.GCDebugStress()
	if stress || vm.allocBytes > vm.nextGC {
		vm.collectGarbage()
	}
}

// callReprSlot invokes a class's cached __repr__ protocol slot against
// self and returns the resulting string (object.go's reprString hook).
func (vm *VM) callReprSlot(self Obj, class *Class) (string, error) {
	result, err := vm.CallValue(class.Slots.Repr, []Value{ObjectValue(self)}, nil)
	if err != nil {
		return "", err
	}
	if s, ok := result.AsObject().(*KrkString); ok && result.IsObject() {
		return s.String(), nil
	}
	return result.String(), nil
}

// Interpret compiles and runs source text as a new module's top-level
// code on the main thread (§10 embedding API operation "Interpret").
// It returns the value of the module's last statement when that is a
// bare expression, and None otherwise.
func (vm *VM) Interpret(source, moduleName string) (Value, error) {
	fn, err := Compile(vm, source, moduleName)
	if err != nil {
		return None(), err
	}
	fn.Module.Loaded = true
	closure := newClosureObj(vm, fn)
	return vm.CallValue(ObjectValue(closure), nil, nil)
}

// CallValue invokes any callable Value (Closure, Native, BoundMethod,
// or a Class acting as a constructor) with positional args and keyword
// args, running to completion on the VM's main thread (§4.4 CALL
// semantics, §10 "CallValue").
func (vm *VM) CallValue(callee Value, args []Value, kwargs map[string]Value) (Value, error) {
	return vm.callOnThread(vm.mainThread, callee, args, kwargs)
}

func (vm *VM) callOnThread(th *Thread, callee Value, args []Value, kwargs map[string]Value) (Value, error) {
	baseFrames := th.frames.len()
	if err := vm.pushCall(th, callee, args, kwargs); err != nil {
		return None(), err
	}
	if th.frames.len() == baseFrames {
		// No frame was pushed (a native, a constructor, or a new
		// generator): the result is already on the stack.
		return th.pop(), nil
	}
	return vm.run(th, baseFrames)
}

// run is the bytecode dispatch loop (§4.4). It executes frames on th
// until the frame stack unwinds back to floor, returning the value
// left on top of the value stack.
func (vm *VM) run(th *Thread, floor int) (Value, error) {
	for {
		frame := th.frames.top()
		chunk := frame.Closure.Fn.Chunk
		if frame.IP >= chunk.Len() {
			// Ran off the end without an explicit RETURN: implicit `return None`.
			return vm.doReturn(th, floor, None())
		}
		op := OpCode(chunk.Code[frame.IP])
		frame.IP++

		switch op {
		case OpReturn:
			retVal := th.pop()
			done, result, err := vm.returnFromFrame(th, floor, retVal)
			if err != nil {
				if handled, herr := vm.handleException(th, err); handled {
					continue
				} else if herr != nil {
					return None(), herr
				}
				return None(), err
			}
			if done {
				return result, nil
			}
		case OpConstant:
			idx := int(vm.readByte(chunk, frame))
			th.push(chunk.Constants[idx])
		case OpConstantLong:
			idx := vm.readLong(chunk, frame)
			th.push(chunk.Constants[idx])
		case OpNone:
			th.push(None())
		case OpTrue:
			th.push(Bool(true))
		case OpFalse:
			th.push(Bool(false))
		case OpPop:
			th.pop()
		case OpDup:
			th.push(th.peek(0))
		case OpDup0:
			th.push(th.peek(0))
		case OpSwap:
			a, b := th.pop(), th.pop()
			th.push(a)
			th.push(b)
		case OpGetLocal:
			slot := int(vm.readByte(chunk, frame))
			th.push(th.stack[frame.SlotBase+slot])
		case OpGetLocalLong:
			slot := vm.readLong(chunk, frame)
			th.push(th.stack[frame.SlotBase+slot])
		case OpSetLocal:
			slot := int(vm.readByte(chunk, frame))
			th.stack[frame.SlotBase+slot] = th.peek(0)
		case OpSetLocalLong:
			slot := vm.readLong(chunk, frame)
			th.stack[frame.SlotBase+slot] = th.peek(0)
		case OpGetUpvalue:
			idx := int(vm.readByte(chunk, frame))
			th.push(frame.Closure.Upvalues[idx].Get())
		case OpGetUpvalueLong:
			idx := vm.readLong(chunk, frame)
			th.push(frame.Closure.Upvalues[idx].Get())
		case OpSetUpvalue:
			idx := int(vm.readByte(chunk, frame))
			frame.Closure.Upvalues[idx].Set(th.peek(0))
		case OpSetUpvalueLong:
			idx := vm.readLong(chunk, frame)
			frame.Closure.Upvalues[idx].Set(th.peek(0))
		case OpCloseUpvalue:
			th.closeUpvaluesFrom(len(th.stack) - 1)
			th.pop()
		case OpGetGlobal:
			idx := int(vm.readByte(chunk, frame))
			if err := vm.getGlobal(th, frame, chunk.Constants[idx]); err != nil {
				if handled, herr := vm.handleException(th, err); handled {
					continue
				} else if herr != nil {
					return None(), herr
				}
			}
		case OpGetGlobalLong:
			idx := vm.readLong(chunk, frame)
			if err := vm.getGlobal(th, frame, chunk.Constants[idx]); err != nil {
				if handled, herr := vm.handleException(th, err); handled {
					continue
				} else if herr != nil {
					return None(), herr
				}
			}
		case OpDefineGlobal:
			idx := int(vm.readByte(chunk, frame))
			frame.Module.Fields.Set(chunk.Constants[idx], th.pop())
		case OpDefineGlobalLong:
			idx := vm.readLong(chunk, frame)
			frame.Module.Fields.Set(chunk.Constants[idx], th.pop())
		case OpSetGlobal:
			idx := int(vm.readByte(chunk, frame))
			frame.Module.Fields.Set(chunk.Constants[idx], th.peek(0))
		case OpSetGlobalLong:
			idx := vm.readLong(chunk, frame)
			frame.Module.Fields.Set(chunk.Constants[idx], th.peek(0))
		case OpDelGlobal:
			idx := int(vm.readByte(chunk, frame))
			frame.Module.Fields.Delete(chunk.Constants[idx])
		case OpDelGlobalLong:
			idx := vm.readLong(chunk, frame)
			frame.Module.Fields.Delete(chunk.Constants[idx])
		case OpGetProperty, OpGetPropertyLong:
			var idx int
			if op == OpGetProperty {
				idx = int(vm.readByte(chunk, frame))
			} else {
				idx = vm.readLong(chunk, frame)
			}
			name := chunk.Constants[idx]
			recv := th.pop()
			v, err := vm.getProperty(recv, name)
			if err != nil {
				if handled, herr := vm.handleException(th, err); handled {
					continue
				} else if herr != nil {
					return None(), herr
				}
			} else {
				th.push(v)
			}
		case OpSetProperty, OpSetPropertyLong:
			var idx int
			if op == OpSetProperty {
				idx = int(vm.readByte(chunk, frame))
			} else {
				idx = vm.readLong(chunk, frame)
			}
			name := chunk.Constants[idx]
			val := th.pop()
			recv := th.pop()
			if err := vm.setProperty(recv, name, val); err != nil {
				if handled, herr := vm.handleException(th, err); handled {
					continue
				} else if herr != nil {
					return None(), herr
				}
			}
			th.push(val)
		case OpAdd, OpSub, OpMul, OpDiv, OpFloorDiv, OpMod, OpPow,
			OpBitAnd, OpBitOr, OpBitXor, OpShl, OpShr:
			b, a := th.pop(), th.pop()
			result, err := vm.binaryOp(op, a, b)
			if err != nil {
				if handled, herr := vm.handleException(th, err); handled {
					continue
				} else if herr != nil {
					return None(), herr
				}
			} else {
				th.push(result)
			}
		case OpEq:
			b, a := th.pop(), th.pop()
			th.push(Bool(vm.valuesEqual(a, b)))
		case OpNe:
			b, a := th.pop(), th.pop()
			th.push(Bool(!vm.valuesEqual(a, b)))
		case OpLt, OpLe, OpGt, OpGe:
			b, a := th.pop(), th.pop()
			result, err := vm.compareOp(op, a, b)
			if err != nil {
				if handled, herr := vm.handleException(th, err); handled {
					continue
				} else if herr != nil {
					return None(), herr
				}
			} else {
				th.push(result)
			}
		case OpIs:
			b, a := th.pop(), th.pop()
			th.push(Bool(a.Is(b)))
		case OpIsNot:
			b, a := th.pop(), th.pop()
			th.push(Bool(!a.Is(b)))
		case OpNot:
			th.push(Bool(th.pop().Falsey()))
		case OpNegate:
			v, err := vm.unaryNegate(th.pop())
			if err != nil {
				if handled, herr := vm.handleException(th, err); handled {
					continue
				} else if herr != nil {
					return None(), herr
				}
			} else {
				th.push(v)
			}
		case OpInvert:
			v := th.pop()
			th.push(Int(^v.AsInt()))
		case OpJump:
			offset := vm.readJump(chunk, frame)
			frame.IP += offset
		case OpJumpIfFalse:
			offset := vm.readJump(chunk, frame)
			if th.pop().Falsey() {
				frame.IP += offset
			}
		case OpJumpIfTrue:
			offset := vm.readJump(chunk, frame)
			if !th.pop().Falsey() {
				frame.IP += offset
			}
		case OpJumpIfFalseNoPop:
			offset := vm.readJump(chunk, frame)
			if th.peek(0).Falsey() {
				frame.IP += offset
			}
		case OpJumpIfTrueNoPop:
			offset := vm.readJump(chunk, frame)
			if !th.peek(0).Falsey() {
				frame.IP += offset
			}
		case OpLoop:
			offset := vm.readJump(chunk, frame)
			frame.IP -= offset
		case OpCall:
			argc := int(vm.readByte(chunk, frame))
			if err := vm.execCall(th, argc); err != nil {
				if handled, herr := vm.handleException(th, err); handled {
					continue
				} else if herr != nil {
					return None(), herr
				}
			}
		case OpClosure, OpClosureLong:
			var idx int
			if op == OpClosure {
				idx = int(vm.readByte(chunk, frame))
			} else {
				idx = vm.readLong(chunk, frame)
			}
			vm.execClosure(th, frame, chunk.Constants[idx])
		case OpClass, OpClassLong:
			var idx int
			if op == OpClass {
				idx = int(vm.readByte(chunk, frame))
			} else {
				idx = vm.readLong(chunk, frame)
			}
			name := chunk.Constants[idx]
			th.push(ObjectValue(newClassObj(vm, name.String(), vm.classes.Object)))
		case OpInherit:
			base := th.pop()
			sub := th.peek(0).AsObject().(*Class)
			if bc, ok := base.AsObject().(*Class); ok {
				sub.Base = bc
			}
		case OpFinalize:
			cls := th.peek(0).AsObject().(*Class)
			finalizeClass(vm, cls)
		case OpMethod, OpMethodLong:
			var idx int
			if op == OpMethod {
				idx = int(vm.readByte(chunk, frame))
			} else {
				idx = vm.readLong(chunk, frame)
			}
			name := chunk.Constants[idx]
			method := th.pop()
			cls := th.peek(0).AsObject().(*Class)
			cls.Methods.Set(name, method)
		case OpTuple:
			n := int(vm.readByte(chunk, frame))
			items := make([]Value, n)
			copy(items, th.stack[len(th.stack)-n:])
			th.stack = th.stack[:len(th.stack)-n]
			th.push(ObjectValue(newTupleObj(vm, items)))
		case OpList, OpListLong:
			var n int
			if op == OpList {
				n = int(vm.readByte(chunk, frame))
			} else {
				n = vm.readLong(chunk, frame)
			}
			items := make([]Value, n)
			copy(items, th.stack[len(th.stack)-n:])
			th.stack = th.stack[:len(th.stack)-n]
			th.push(ObjectValue(newListObj(vm, items)))
		case OpGetSubscript:
			idx := th.pop()
			recv := th.pop()
			v, err := vm.getSubscript(recv, idx)
			if err != nil {
				if handled, herr := vm.handleException(th, err); handled {
					continue
				} else if herr != nil {
					return None(), herr
				}
			} else {
				th.push(v)
			}
		case OpSetSubscript:
			val := th.pop()
			idx := th.pop()
			recv := th.pop()
			if err := vm.setSubscript(recv, idx, val); err != nil {
				if handled, herr := vm.handleException(th, err); handled {
					continue
				} else if herr != nil {
					return None(), herr
				}
			}
			th.push(val)
		case OpGetIter:
			v, err := vm.getIter(th.pop())
			if err != nil {
				if handled, herr := vm.handleException(th, err); handled {
					continue
				} else if herr != nil {
					return None(), herr
				}
			} else {
				th.push(v)
			}
		case OpInvokeIter:
			v, stop, err := vm.iterNext(th.peek(0))
			if err != nil {
				if handled, herr := vm.handleException(th, err); handled {
					continue
				} else if herr != nil {
					return None(), herr
				}
			} else {
				th.push(v)
				th.push(Bool(stop))
			}
		case OpYield:
			return vm.doYield(th, floor)
		case OpRaise:
			exc := th.pop()
			err := &kurokoException{value: exc}
			if handled, herr := vm.handleException(th, err); handled {
				continue
			} else if herr != nil {
				return None(), herr
			}
			return None(), err
		case OpPushTry:
			target := vm.readJump(chunk, frame)
			th.handlers.push(Handler{Kind: HandlerTry, Target: frame.IP + target, StackDepth: len(th.stack), SlotBase: th.frames.len()})
		case OpPushWith:
			target := vm.readJump(chunk, frame)
			th.handlers.push(Handler{Kind: HandlerWith, Target: frame.IP + target, StackDepth: len(th.stack), SlotBase: th.frames.len()})
		case OpCleanupWith:
			if th.handlers.len() > 0 {
				th.handlers.pop()
			}
		case OpDocstring:
			doc := th.pop()
			fn := th.peek(0).AsObject()
			if f, ok := fn.(*Function); ok {
				f.Doc = doc.String()
			}
		case OpKwargs:
			n := int(vm.readByte(chunk, frame))
			th.push(KwargsSentinel(n))
		case OpDelProperty, OpDelPropertyLong:
			var idx int
			if op == OpDelProperty {
				idx = int(vm.readByte(chunk, frame))
			} else {
				idx = vm.readLong(chunk, frame)
			}
			name := chunk.Constants[idx]
			recv := th.pop()
			if err := vm.delProperty(recv, name); err != nil {
				if handled, herr := vm.handleException(th, err); handled {
					continue
				} else if herr != nil {
					return None(), herr
				}
			}
		case OpDelSubscript:
			idx := th.pop()
			recv := th.pop()
			if err := vm.delSubscript(recv, idx); err != nil {
				if handled, herr := vm.handleException(th, err); handled {
					continue
				} else if herr != nil {
					return None(), herr
				}
			}
		case OpImport, OpImportLong:
			var idx int
			if op == OpImport {
				idx = int(vm.readByte(chunk, frame))
			} else {
				idx = vm.readLong(chunk, frame)
			}
			name := chunk.Constants[idx]
			mod, err := vm.ImportModule(name.String())
			if err != nil {
				if handled, herr := vm.handleException(th, err); handled {
					continue
				} else if herr != nil {
					return None(), herr
				}
			} else {
				th.push(ObjectValue(mod))
				frame.Module.Fields.Set(name, ObjectValue(mod))
			}
		case OpImportFrom, OpImportFromLong:
			var idx int
			if op == OpImportFrom {
				idx = int(vm.readByte(chunk, frame))
			} else {
				idx = vm.readLong(chunk, frame)
			}
			name := chunk.Constants[idx]
			modVal := th.peek(0)
			mod, ok := modVal.AsObject().(*Module)
			if !ok {
				if handled, herr := vm.handleException(th, vm.typeError("expected a module")); handled {
					continue
				} else if herr != nil {
					return None(), herr
				}
				break
			}
			v, ok := mod.Fields.Get(name)
			if !ok {
				if handled, herr := vm.handleException(th, vm.nameError("cannot import name '%s'", name.String())); handled {
					continue
				} else if herr != nil {
					return None(), herr
				}
				break
			}
			th.push(v)
		default:
			return None(), fmt.Errorf("kuroko: unimplemented opcode %d", op)
		}
	}
}

func (vm *VM) readByte(chunk *Chunk, frame *CallFrame) byte {
	b := chunk.Code[frame.IP]
	frame.IP++
	return b
}

func (vm *VM) readLong(chunk *Chunk, frame *CallFrame) int {
	hi := int(chunk.Code[frame.IP])
	mid := int(chunk.Code[frame.IP+1])
	lo := int(chunk.Code[frame.IP+2])
	frame.IP += 3
	return hi<<16 | mid<<8 | lo
}

func (vm *VM) readJump(chunk *Chunk, frame *CallFrame) int {
	hi := int(chunk.Code[frame.IP])
	lo := int(chunk.Code[frame.IP+1])
	frame.IP += 2
	return hi<<8 | lo
}

func (th *Thread) push(v Value) { th.stack = append(th.stack, v) }

func (th *Thread) pop() Value {
	v := th.stack[len(th.stack)-1]
	th.stack = th.stack[:len(th.stack)-1]
	return v
}

func (th *Thread) peek(distance int) Value {
	return th.stack[len(th.stack)-1-distance]
}

// closeUpvaluesFrom closes every open upvalue at or above stack index
// from, removing it from the thread's open list (§3 upvalue closing
// invariant).
func (th *Thread) closeUpvaluesFrom(from int) {
	for th.openUpvalue != nil && th.openUpvalue.slot >= from {
		uv := th.openUpvalue
		uv.Close()
		th.openUpvalue = uv.nextOpen
	}
}

// kurokoException wraps a raised Kuroko Value so it can flow through
// Go's error-return plumbing up to the embedding API (§7, §10).
type kurokoException struct {
	value     Value
	traceback []TracebackEntry
}

func (e *kurokoException) Error() string {
	return "kuroko exception: " + e.value.String()
}

// errExceptionValue unwraps a *kurokoException back to its carried
// Value, or None for any other Go error (used where callers need to
// inspect the exception's class, e.g. distinguishing StopIteration
// from a genuine error while driving an iterator to exhaustion).
func errExceptionValue(err error) Value {
	if exc, ok := err.(*kurokoException); ok {
		return exc.value
	}
	return None()
}
