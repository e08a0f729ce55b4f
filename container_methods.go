package kuroko

// registerContainerMethods wires the handful of native methods the
// built-in list/dict/set types expose to Kuroko code (§3 "Built-in
// types & protocols"); free functions in builtins.go cover the
// constructor/len/iter surface, this file covers receiver-style calls
// dispatched through GET_PROPERTY's default case (vm_subscript.go's
// getProperty falling through to class.lookupMethod for a native-
// backed receiver whose header Class is vm.classes.List/Dict/Set).
func registerContainerMethods(vm *VM) {
	method := func(cls *Class, name string, fn NativeFn) {
		cls.Methods.Set(vm.stringValue(name), ObjectValue(newNativeObj(vm, name, fn)))
	}

	method(vm.classes.List, "append", func(vm *VM, args []Value, kwargs map[string]Value) (Value, error) {
		if len(args) != 2 {
			return None(), vm.typeError("append() takes exactly one argument")
		}
		l, ok := args[0].AsObject().(*ListObj)
		if !ok {
			return None(), vm.typeError("append() requires a list receiver")
		}
		l.Append(args[1])
		return None(), nil
	})
	method(vm.classes.List, "pop", func(vm *VM, args []Value, kwargs map[string]Value) (Value, error) {
		l, ok := args[0].AsObject().(*ListObj)
		if !ok {
			return None(), vm.typeError("pop() requires a list receiver")
		}
		if len(l.Items) == 0 {
			return None(), vm.indexError("pop from empty list")
		}
		idx := len(l.Items) - 1
		if len(args) == 2 {
			i, ok := normalizeIndex(int(args[1].AsInt()), len(l.Items))
			if !ok {
				return None(), vm.indexError("pop index out of range")
			}
			idx = i
		}
		v := l.Items[idx]
		l.Items = append(l.Items[:idx], l.Items[idx+1:]...)
		return v, nil
	})

	method(vm.classes.Dict, "get", func(vm *VM, args []Value, kwargs map[string]Value) (Value, error) {
		d, ok := args[0].AsObject().(*DictObj)
		if !ok {
			return None(), vm.typeError("get() requires a dict receiver")
		}
		if v, ok := d.Get(args[1]); ok {
			return v, nil
		}
		return argAt(args, 2, None()), nil
	})
	method(vm.classes.Dict, "keys", func(vm *VM, args []Value, kwargs map[string]Value) (Value, error) {
		d, ok := args[0].AsObject().(*DictObj)
		if !ok {
			return None(), vm.typeError("keys() requires a dict receiver")
		}
		return ObjectValue(newListObj(vm, append([]Value(nil), d.Keys()...))), nil
	})
	method(vm.classes.Dict, "values", func(vm *VM, args []Value, kwargs map[string]Value) (Value, error) {
		d, ok := args[0].AsObject().(*DictObj)
		if !ok {
			return None(), vm.typeError("values() requires a dict receiver")
		}
		values := make([]Value, 0, len(d.Keys()))
		for _, k := range d.Keys() {
			v, _ := d.Get(k)
			values = append(values, v)
		}
		return ObjectValue(newListObj(vm, values)), nil
	})

	method(vm.classes.Set, "add", func(vm *VM, args []Value, kwargs map[string]Value) (Value, error) {
		s, ok := args[0].AsObject().(*SetObj)
		if !ok {
			return None(), vm.typeError("add() requires a set receiver")
		}
		s.Add(args[1])
		return None(), nil
	})
	method(vm.classes.Set, "remove", func(vm *VM, args []Value, kwargs map[string]Value) (Value, error) {
		s, ok := args[0].AsObject().(*SetObj)
		if !ok {
			return None(), vm.typeError("remove() requires a set receiver")
		}
		if !s.Remove(args[1]) {
			return None(), vm.keyError("%s", args[1].String())
		}
		return None(), nil
	})
}
