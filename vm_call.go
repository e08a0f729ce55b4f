package kuroko

import "fmt"

// pushCall assembles a new CallFrame for callee (§4.4 CALL semantics)
// and pushes it onto th.frames without running it; run() drives
// execution. Natives, and a class's __init__ during construction, run
// to completion inside pushCall and push no frame. Grounded on the teacher's vm_stack.go frame-push
// discipline, generalized to Kuroko's three callable kinds (Closure,
// Native, BoundMethod) plus Class-as-constructor.
func (vm *VM) pushCall(th *Thread, callee Value, args []Value, kwargs map[string]Value) error {
	if !callee.IsObject() {
		return vm.typeError("'%s' object is not callable", callee.TypeName())
	}
	switch obj := callee.AsObject().(type) {
	case *Closure:
		return vm.pushClosureFrame(th, obj, args, kwargs)
	case *Native:
		result, err := obj.Fn(vm, args, kwargs)
		if err != nil {
			return err
		}
		th.push(result)
		return vm.doReturnImmediate(th)
	case *BoundMethod:
		full := append([]Value{obj.Receiver}, args...)
		return vm.pushCall(th, obj.Method, full, kwargs)
	case *Class:
		inst := newInstanceObj(vm, obj)
		if obj.Slots.Init.IsCallable() {
			full := append([]Value{ObjectValue(inst)}, args...)
			if _, err := vm.callOnThread(th, obj.Slots.Init, full, kwargs); err != nil {
				return err
			}
			// __init__'s return value is discarded; the call's result is the instance.
			th.push(ObjectValue(inst))
			return nil
		}
		th.push(ObjectValue(inst))
		return nil
	default:
		return vm.typeError("'%s' object is not callable", callee.TypeName())
	}
}

// doReturnImmediate is used by natives, which already pushed their
// result and never get their own CallFrame; it is a no-op placeholder
// so pushCall's call sites look uniform whether or not a frame was
// pushed.
func (vm *VM) doReturnImmediate(th *Thread) error { return nil }

func (vm *VM) pushClosureFrame(th *Thread, closure *Closure, args []Value, kwargs map[string]Value) error {
	fn := closure.Fn
	slotBase := len(th.stack)

	if vm.config != nil && th.frames.len() >= vm.config.RecursionLimit() {
		return vm.newException(vm.classes.OverflowError, "maximum recursion depth exceeded")
	}

	if len(args) < fn.Arity && !fn.HasVarArgs {
		return vm.typeError("%s() missing required positional argument", fn.Name)
	}

	for i := 0; i < fn.Arity; i++ {
		if i < len(args) {
			th.push(args[i])
		} else {
			th.push(None())
		}
	}
	extra := args[min(len(args), fn.Arity):]
	for _, kw := range fn.KwArgs {
		if v, ok := kwargs[kw.Name.String()]; ok {
			th.push(v)
			delete(kwargs, kw.Name.String())
		} else {
			th.push(None())
		}
	}
	if fn.HasVarArgs {
		th.push(ObjectValue(newTupleObj(vm, extra)))
	}
	if fn.HasVarKwargs {
		d := newDictObj(vm)
		for k, v := range kwargs {
			d.Set(vm.stringValue(k), v)
		}
		th.push(ObjectValue(d))
	}

	if fn.IsGenerator {
		gen := newGeneratorObj(vm, closure, args)
		th.push(ObjectValue(gen))
		th.stack = th.stack[:slotBase]
		th.push(ObjectValue(gen))
		return nil
	}

	th.frames.push(CallFrame{Closure: closure, IP: 0, SlotBase: slotBase, Module: fn.Module})
	return nil
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// returnFromFrame pops the current frame, restores the caller's stack
// to just past the call, and pushes retVal. done reports whether that
// was the floor frame (the call this run() invocation was driving),
// in which case result should be handed back to the caller of run().
func (vm *VM) returnFromFrame(th *Thread, floor int, retVal Value) (done bool, result Value, err error) {
	frame := th.frames.pop()
	th.closeUpvaluesFrom(frame.SlotBase)
	th.stack = th.stack[:frame.SlotBase]
	th.handlers.popAbove(th.frames.len() + 1)
	if frame.Generator != nil {
		frame.Generator.finished = true
		frame.Generator.result = retVal
	}
	if th.frames.len() == floor {
		return true, retVal, nil
	}
	th.push(retVal)
	return false, Value{}, nil
}

func (vm *VM) doReturn(th *Thread, floor int, retVal Value) (Value, error) {
	done, result, err := vm.returnFromFrame(th, floor, retVal)
	if err != nil {
		return None(), err
	}
	if done {
		return result, nil
	}
	return vm.run(th, floor)
}

// execCall pops argc stack values (honoring a possible trailing Kwargs
// sentinel counting the name/value pairs below it, see compiler.go's
// call-site emission) and the callee below them, then starts the call.
func (vm *VM) execCall(th *Thread, argc int) error {
	var kwargs map[string]Value
	if argc > 0 && th.peek(0).IsKwargs() {
		marker := th.pop()
		argc--
		n := marker.AsKwargsCount()
		argc -= 2 * n
		kwargs = make(map[string]Value, n)
		for i := 0; i < n; i++ {
			v := th.pop()
			k := th.pop()
			kwargs[k.String()] = v
		}
	}
	args := make([]Value, argc)
	copy(args, th.stack[len(th.stack)-argc:])
	th.stack = th.stack[:len(th.stack)-argc]
	callee := th.pop()
	return vm.pushCall(th, callee, args, kwargs)
}

// execClosure materializes a Closure from its Function constant,
// capturing upvalues per the compiler-emitted UpvalueDesc list (§4.2).
// Each descriptor is immediately followed in the bytecode stream by
// (isLocal, index) bytes in the teacher's design; here the descriptors
// live on the Function object itself (set by compiler.go), so no extra
// bytes are read from the chunk.
func (vm *VM) execClosure(th *Thread, frame *CallFrame, fnValue Value) {
	fn := fnValue.AsObject().(*Function)
	closure := newClosureObj(vm, fn)
	for i, desc := range fn.Upvalues {
		if desc.IsLocal {
			closure.Upvalues[i] = vm.captureUpvalue(th, frame.SlotBase+desc.Index)
		} else {
			closure.Upvalues[i] = frame.Closure.Upvalues[desc.Index]
		}
	}
	th.push(ObjectValue(closure))
}

// captureUpvalue returns the existing open upvalue for slot if one is
// already on the thread's sorted open list, or creates and links a new
// one (§3 "open upvalues form a sorted linked list so that two closures
// over the same local share one Upvalue object").
func (vm *VM) captureUpvalue(th *Thread, slot int) *Upvalue {
	var prev *Upvalue
	cur := th.openUpvalue
	for cur != nil && cur.slot > slot {
		prev = cur
		cur = cur.nextOpen
	}
	if cur != nil && cur.slot == slot {
		return cur
	}
	uv := newUpvalueObj(vm, th, slot)
	uv.nextOpen = cur
	if prev == nil {
		th.openUpvalue = uv
	} else {
		prev.nextOpen = uv
	}
	return uv
}

func (vm *VM) getGlobal(th *Thread, frame *CallFrame, name Value) error {
	if v, ok := frame.Module.Fields.Get(name); ok {
		th.push(v)
		return nil
	}
	if v, ok := vm.builtins.Get(name); ok {
		th.push(v)
		return nil
	}
	return vm.nameError("name '%s' is not defined", name.String())
}

// typeError, nameError, etc. build and return a *kurokoException
// wrapping a freshly instantiated exception instance (§7). Defined
// here rather than exceptions.go because the dispatch loop is this
// file's primary caller; exceptions.go owns the class hierarchy these
// construct against.
func (vm *VM) typeError(format string, args ...interface{}) error {
	return vm.newException(vm.classes.TypeError, fmt.Sprintf(format, args...))
}

func (vm *VM) nameError(format string, args ...interface{}) error {
	return vm.newException(vm.classes.NameError, fmt.Sprintf(format, args...))
}

func (vm *VM) valueError(format string, args ...interface{}) error {
	return vm.newException(vm.classes.ValueError, fmt.Sprintf(format, args...))
}

func (vm *VM) attributeError(format string, args ...interface{}) error {
	return vm.newException(vm.classes.AttributeError, fmt.Sprintf(format, args...))
}

func (vm *VM) indexError(format string, args ...interface{}) error {
	return vm.newException(vm.classes.IndexError, fmt.Sprintf(format, args...))
}

func (vm *VM) keyError(format string, args ...interface{}) error {
	return vm.newException(vm.classes.KeyError, fmt.Sprintf(format, args...))
}

func (vm *VM) newException(class *Class, message string) error {
	inst := newInstanceObj(vm, class)
	inst.Fields.Set(vm.stringValue("message"), vm.stringValue(message))
	return &kurokoException{value: ObjectValue(inst)}
}

// newStopIteration builds a StopIteration carrying a generator's return
// value (§7 "StopIteration carries return value for generator end"),
// readable back as `e.value` the same way a plain raised exception's
// `message` is readable. A plain `return` with no explicit value (or
// exhausting a non-generator iterator) passes None, which renders as an
// empty message exactly like the teacher's original no-argument form.
func (vm *VM) newStopIteration(value Value) error {
	inst := newInstanceObj(vm, vm.classes.StopIteration)
	inst.Fields.Set(vm.stringValue("value"), value)
	msg := ""
	if !value.IsNone() {
		msg = value.String()
	}
	inst.Fields.Set(vm.stringValue("message"), vm.stringValue(msg))
	return &kurokoException{value: ObjectValue(inst)}
}

// handleException walks th.handlers looking for the innermost handler
// whose frame is still live, unwinding the value/frame stacks to it and
// jumping to its Target (§7 "propagation: walk outward through frames,
// unwinding to each try/with handler's saved depth"). handled is false
// (with err re-returned) when no handler catches it, so run()'s callers
// propagate it to the embedding API.
func (vm *VM) handleException(th *Thread, err error) (handled bool, passthrough error) {
	exc, ok := err.(*kurokoException)
	if !ok {
		return false, err
	}
	for th.handlers.len() > 0 {
		h := th.handlers.pop()
		for th.frames.len() > h.SlotBase {
			frame := th.frames.pop()
			th.closeUpvaluesFrom(frame.SlotBase)
		}
		if len(th.stack) > h.StackDepth {
			th.stack = th.stack[:h.StackDepth]
		}
		top := th.frames.top()
		top.IP = h.Target
		th.push(exc.value)
		return true, nil
	}
	if exc.traceback == nil {
		exc.traceback = captureTraceback(th)
	}
	return false, err
}
