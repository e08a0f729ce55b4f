package kuroko

// registerGeneratorMethods wires the native `send` method onto
// vm.classes.Generator (SPEC_FULL.md §12 "Generators with .send"),
// resolved the same way container_methods.go's list/dict/set methods
// are: GET_PROPERTY's default case looks it up via class.lookupMethod
// and wraps it in a BoundMethod.
func registerGeneratorMethods(vm *VM) {
	vm.classes.Generator.Methods.Set(vm.stringValue("send"), ObjectValue(newNativeObj(vm, "send", generatorSend)))
}

// generatorSend implements `g.send(x)` (§4.4, §8 boundary: "a
// generator's first send(x) where x is not None raises TypeError" — a
// generator that hasn't reached its first yield yet has no suspended
// `yield` expression to hand x to). Once started, send resumes the
// generator exactly like next() but substitutes x for the suspended
// yield's result; exhaustion raises StopIteration carrying the
// generator's return value via resumeGenerator/newStopIteration, same
// as next().
func generatorSend(vm *VM, args []Value, kwargs map[string]Value) (Value, error) {
	if len(args) != 2 {
		return None(), vm.typeError("send() takes exactly one argument")
	}
	gen, ok := args[0].AsObject().(*Generator)
	if !ok {
		return None(), vm.typeError("send() requires a generator receiver")
	}
	sent := args[1]
	if !gen.started && !sent.IsNone() {
		return None(), vm.typeError("can't send non-None value to a just-started generator")
	}
	v, done, err := vm.resumeGenerator(vm.mainThread, gen, sent)
	if err != nil {
		return None(), err
	}
	if done {
		return None(), vm.newStopIteration(v)
	}
	return v, nil
}
