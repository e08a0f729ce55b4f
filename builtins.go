package kuroko

// registerGlobal installs a value into the builtin namespace searched
// by GET_GLOBAL once a module's own globals miss (§3 "names resolve
// against the current module's globals, then the builtin namespace").
func registerGlobal(vm *VM, name string, v Value) {
	vm.builtins.Set(vm.stringValue(name), v)
}

func registerNative(vm *VM, name string, fn NativeFn) {
	registerGlobal(vm, name, ObjectValue(newNativeObj(vm, name, fn)))
}

// registerBuiltins installs the native free functions available in
// every module's global namespace (§3, §7 end-to-end scenarios use
// print/len/str/repr/type/isinstance). Grounded on the teacher's
// approach of exposing a handful of hardcoded helper functions
// (e.g. its grammar built-ins in grammar_builtin_handler.go), widened
// here from grammar-only helpers to a general free-function library.
func registerBuiltins(vm *VM) {
	registerNative(vm, "print", builtinPrint)
	registerNative(vm, "len", builtinLen)
	registerNative(vm, "str", builtinStr)
	registerNative(vm, "repr", builtinRepr)
	registerNative(vm, "type", builtinType)
	registerNative(vm, "isinstance", builtinIsInstance)
	registerNative(vm, "int", builtinInt)
	registerNative(vm, "float", builtinFloat)
	registerNative(vm, "bool", builtinBool)
	registerNative(vm, "list", builtinListCtor)
	registerNative(vm, "tuple", builtinTupleCtor)
	registerNative(vm, "dict", builtinDictCtor)
	registerNative(vm, "set", builtinSetCtor)
	registerNative(vm, "iter", builtinIter)
	registerNative(vm, "next", builtinNext)
	registerNative(vm, "hash", builtinHash)
	registerNative(vm, "abs", builtinAbs)
	registerNative(vm, "__list_append", func(vm *VM, args []Value, _ map[string]Value) (Value, error) {
		args[0].AsObject().(*ListObj).Append(args[1])
		return None(), nil
	})
	registerNative(vm, "__make_dict_from_pairs", func(vm *VM, args []Value, _ map[string]Value) (Value, error) {
		items := args[0].AsObject().(*ListObj).Items
		d := newDictObj(vm)
		for i := 0; i+1 < len(items); i += 2 {
			d.Set(items[i], items[i+1])
		}
		return ObjectValue(d), nil
	})
}

func builtinPrint(vm *VM, args []Value, kwargs map[string]Value) (Value, error) {
	if vm.Stdout == nil {
		return None(), nil
	}
	sep := " "
	if s, ok := kwargs["sep"]; ok {
		sep = s.String()
	}
	end := "\n"
	if e, ok := kwargs["end"]; ok {
		end = e.String()
	}
	for i, a := range args {
		if i > 0 {
			vm.Stdout.WriteString(sep)
		}
		vm.Stdout.WriteString(a.String())
	}
	vm.Stdout.WriteString(end)
	return None(), nil
}

func builtinLen(vm *VM, args []Value, kwargs map[string]Value) (Value, error) {
	if len(args) != 1 {
		return None(), vm.typeError("len() takes exactly one argument")
	}
	v := args[0]
	if v.IsObject() {
		switch o := v.AsObject().(type) {
		case *KrkString:
			return Int(int64(o.CodepointCount())), nil
		case *ListObj:
			return Int(int64(o.Len())), nil
		case *TupleObj:
			return Int(int64(o.Len())), nil
		case *DictObj:
			return Int(int64(o.Len())), nil
		case *SetObj:
			return Int(int64(o.Len())), nil
		case *BytesObj:
			return Int(int64(o.Len())), nil
		}
		class := v.AsObject().Header().Class
		if class != nil && class.Slots.Len.IsCallable() {
			return vm.CallValue(class.Slots.Len, []Value{v}, nil)
		}
	}
	return None(), vm.typeError("object of type '%s' has no len()", v.TypeName())
}

func builtinStr(vm *VM, args []Value, kwargs map[string]Value) (Value, error) {
	if len(args) == 0 {
		return vm.stringValue(""), nil
	}
	v := args[0]
	if v.IsObject() {
		class := v.AsObject().Header().Class
		if class != nil && class.Slots.Str.IsCallable() {
			return vm.CallValue(class.Slots.Str, []Value{v}, nil)
		}
	}
	return vm.stringValue(v.String()), nil
}

func builtinRepr(vm *VM, args []Value, kwargs map[string]Value) (Value, error) {
	if len(args) == 0 {
		return vm.stringValue(""), nil
	}
	return vm.stringValue(args[0].String()), nil
}

func builtinType(vm *VM, args []Value, kwargs map[string]Value) (Value, error) {
	if len(args) != 1 {
		return None(), vm.typeError("type() takes exactly one argument")
	}
	v := args[0]
	switch {
	case v.IsObject():
		return ObjectValue(v.AsObject().Header().Class), nil
	case v.IsNone():
		return ObjectValue(vm.classes.NoneType), nil
	case v.IsBool():
		return ObjectValue(vm.classes.Bool), nil
	case v.IsInt():
		return ObjectValue(vm.classes.Int), nil
	case v.IsFloat():
		return ObjectValue(vm.classes.Float), nil
	}
	return None(), vm.typeError("type() unsupported for this value")
}

func builtinIsInstance(vm *VM, args []Value, kwargs map[string]Value) (Value, error) {
	if len(args) != 2 {
		return None(), vm.typeError("isinstance() takes exactly two arguments")
	}
	cls, ok := args[1].AsObject().(*Class)
	if !args[1].IsObject() || !ok {
		return None(), vm.typeError("isinstance() arg 2 must be a class")
	}
	return Bool(isInstanceOfException(args[0], cls) || valueClass(vm, args[0]) == cls), nil
}

func valueClass(vm *VM, v Value) *Class {
	switch {
	case v.IsObject():
		return v.AsObject().Header().Class
	case v.IsNone():
		return vm.classes.NoneType
	case v.IsBool():
		return vm.classes.Bool
	case v.IsInt():
		return vm.classes.Int
	case v.IsFloat():
		return vm.classes.Float
	}
	return nil
}

func builtinInt(vm *VM, args []Value, kwargs map[string]Value) (Value, error) {
	if len(args) == 0 {
		return Int(0), nil
	}
	v := args[0]
	switch {
	case v.IsInt():
		return v, nil
	case v.IsFloat():
		return Int(int64(v.AsFloat())), nil
	case v.IsBool():
		if v.AsBool() {
			return Int(1), nil
		}
		return Int(0), nil
	}
	return None(), vm.valueError("invalid literal for int()")
}

func builtinFloat(vm *VM, args []Value, kwargs map[string]Value) (Value, error) {
	if len(args) == 0 {
		return Float(0), nil
	}
	return Float(args[0].AsFloatValue()), nil
}

func builtinBool(vm *VM, args []Value, kwargs map[string]Value) (Value, error) {
	if len(args) == 0 {
		return Bool(false), nil
	}
	return Bool(!args[0].Falsey()), nil
}

func builtinListCtor(vm *VM, args []Value, kwargs map[string]Value) (Value, error) {
	items, err := collectIterable(vm, args)
	if err != nil {
		return None(), err
	}
	return ObjectValue(newListObj(vm, items)), nil
}

func builtinTupleCtor(vm *VM, args []Value, kwargs map[string]Value) (Value, error) {
	items, err := collectIterable(vm, args)
	if err != nil {
		return None(), err
	}
	return ObjectValue(newTupleObj(vm, items)), nil
}

func builtinDictCtor(vm *VM, args []Value, kwargs map[string]Value) (Value, error) {
	d := newDictObj(vm)
	for k, v := range kwargs {
		d.Set(vm.stringValue(k), v)
	}
	return ObjectValue(d), nil
}

func builtinSetCtor(vm *VM, args []Value, kwargs map[string]Value) (Value, error) {
	items, err := collectIterable(vm, args)
	if err != nil {
		return None(), err
	}
	s := newSetObj(vm)
	for _, v := range items {
		s.Add(v)
	}
	return ObjectValue(s), nil
}

func collectIterable(vm *VM, args []Value) ([]Value, error) {
	if len(args) == 0 {
		return nil, nil
	}
	cursor, err := vm.getIter(args[0])
	if err != nil {
		return nil, err
	}
	var out []Value
	for {
		v, stop, err := vm.iterNext(cursor)
		if err != nil {
			return nil, err
		}
		if stop {
			break
		}
		out = append(out, v)
	}
	return out, nil
}

func builtinIter(vm *VM, args []Value, kwargs map[string]Value) (Value, error) {
	if len(args) != 1 {
		return None(), vm.typeError("iter() takes exactly one argument")
	}
	return vm.getIter(args[0])
}

func builtinNext(vm *VM, args []Value, kwargs map[string]Value) (Value, error) {
	if len(args) != 1 {
		return None(), vm.typeError("next() takes exactly one argument")
	}
	v, stop, err := vm.iterNext(args[0])
	if err != nil {
		return None(), err
	}
	if stop {
		return None(), vm.newStopIteration(v)
	}
	return v, nil
}

func builtinHash(vm *VM, args []Value, kwargs map[string]Value) (Value, error) {
	if len(args) != 1 {
		return None(), vm.typeError("hash() takes exactly one argument")
	}
	return Int(int64(args[0].Hash())), nil
}

func builtinAbs(vm *VM, args []Value, kwargs map[string]Value) (Value, error) {
	if len(args) != 1 {
		return None(), vm.typeError("abs() takes exactly one argument")
	}
	v := args[0]
	if v.IsInt() {
		n := v.AsInt()
		if n < 0 {
			n = -n
		}
		return Int(n), nil
	}
	f := v.AsFloatValue()
	if f < 0 {
		f = -f
	}
	return Float(f), nil
}
