package kuroko

// doYield suspends the currently executing generator frame (§4.4
// YIELD, §3 "generators suspend by snapshotting their frame's stack
// slice and restoring it on the next resume"). It is reached only when
// frame.Generator is non-nil — the compiler only emits OP_YIELD inside
// a function whose IsGenerator flag it has already set.
func (vm *VM) doYield(th *Thread, floor int) (Value, error) {
	value := th.pop()
	frame := th.frames.pop()
	gen := frame.Generator
	saved := make([]Value, len(th.stack)-frame.SlotBase)
	copy(saved, th.stack[frame.SlotBase:])
	gen.savedStack = saved
	gen.ip = frame.IP
	th.stack = th.stack[:frame.SlotBase]
	return value, nil
}

// resumeGenerator runs gen until its next yield, its return, or a
// raised exception (§3 Generator lifecycle). done reports whether the
// generator function returned (as opposed to yielding again).
func (vm *VM) resumeGenerator(th *Thread, gen *Generator, sent Value) (value Value, done bool, err error) {
	if gen.finished {
		return None(), true, vm.newStopIteration(None())
	}
	floor := th.frames.len()
	slotBase := len(th.stack)

	if !gen.started {
		gen.started = true
		if pcErr := vm.pushGeneratorFrame(th, gen, slotBase); pcErr != nil {
			return None(), true, pcErr
		}
	} else {
		th.stack = append(th.stack, gen.savedStack...)
		th.push(sent) // result of the suspended yield expression
		th.frames.push(CallFrame{Closure: gen.closure, IP: gen.ip, SlotBase: slotBase, Module: gen.closure.Fn.Module, Generator: gen})
	}

	result, runErr := vm.run(th, floor)
	if runErr != nil {
		gen.finished = true
		return None(), true, runErr
	}
	if gen.finished {
		return result, true, nil
	}
	return result, false, nil
}

// pushGeneratorFrame binds gen's saved call arguments to fresh locals
// exactly like pushClosureFrame, but tags the frame with Generator so
// OpReturn/doYield know to route through generator bookkeeping instead
// of an ordinary call return.
func (vm *VM) pushGeneratorFrame(th *Thread, gen *Generator, slotBase int) error {
	fn := gen.closure.Fn
	for i := 0; i < fn.Arity; i++ {
		if i < len(gen.args) {
			th.push(gen.args[i])
		} else {
			th.push(None())
		}
	}
	th.frames.push(CallFrame{Closure: gen.closure, IP: 0, SlotBase: slotBase, Module: fn.Module, Generator: gen})
	return nil
}
