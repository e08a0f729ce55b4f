package kuroko

// getProperty implements GET_PROPERTY (§4.4): instance field lookup,
// falling back to a bound method from the class hierarchy, then to the
// class's __getattr__ protocol slot, then AttributeError.
func (vm *VM) getProperty(recv Value, name Value) (Value, error) {
	if recv.IsObject() {
		switch obj := recv.AsObject().(type) {
		case *Instance:
			if v, ok := obj.Fields.Get(name); ok {
				return v, nil
			}
			if m, ok := obj.Header().Class.lookupMethod(vm, name.AsObject().(*KrkString)); ok {
				if prop, ok := m.AsObject().(*Property); ok && m.IsObject() {
					return vm.CallValue(prop.Getter, []Value{recv}, nil)
				}
				return ObjectValue(newBoundMethodObj(vm, recv, m)), nil
			}
			if obj.Header().Class.Slots.GetAttr.IsCallable() {
				return vm.CallValue(obj.Header().Class.Slots.GetAttr, []Value{recv, name}, nil)
			}
		case *Module:
			if v, ok := obj.Fields.Get(name); ok {
				return v, nil
			}
		case *Class:
			if v, ok := obj.Fields.Get(name); ok {
				return v, nil
			}
			if m, ok := obj.lookupMethod(vm, name.AsObject().(*KrkString)); ok {
				return m, nil
			}
		default:
			class := recv.AsObject().Header().Class
			if class != nil {
				if m, ok := class.lookupMethod(vm, name.AsObject().(*KrkString)); ok {
					return ObjectValue(newBoundMethodObj(vm, recv, m)), nil
				}
			}
		}
	}
	return None(), vm.attributeError("'%s' object has no attribute '%s'", recv.TypeName(), name.String())
}

func (vm *VM) setProperty(recv Value, name Value, val Value) error {
	if recv.IsObject() {
		switch obj := recv.AsObject().(type) {
		case *Instance:
			if m, ok := obj.Header().Class.lookupMethod(vm, name.AsObject().(*KrkString)); ok {
				if prop, ok := m.AsObject().(*Property); ok && m.IsObject() && prop.Setter.IsCallable() {
					_, err := vm.CallValue(prop.Setter, []Value{recv, val}, nil)
					return err
				}
			}
			obj.Fields.Set(name, val)
			return nil
		case *Module:
			obj.Fields.Set(name, val)
			return nil
		case *Class:
			obj.Fields.Set(name, val)
			return nil
		}
	}
	return vm.attributeError("'%s' object has no attribute '%s'", recv.TypeName(), name.String())
}

// delProperty implements DEL_PROPERTY (§4.4): removes an instance
// field or class static, mirroring setProperty's receiver switch.
func (vm *VM) delProperty(recv Value, name Value) error {
	if recv.IsObject() {
		switch obj := recv.AsObject().(type) {
		case *Instance:
			obj.Fields.Delete(name)
			return nil
		case *Module:
			obj.Fields.Delete(name)
			return nil
		case *Class:
			obj.Fields.Delete(name)
			return nil
		}
	}
	return vm.attributeError("'%s' object has no attribute '%s'", recv.TypeName(), name.String())
}

// delSubscript implements DEL_SUBSCRIPT for the native container types,
// falling back to the __delitem__ protocol slot.
func (vm *VM) delSubscript(recv, idx Value) error {
	if recv.IsObject() {
		switch obj := recv.AsObject().(type) {
		case *ListObj:
			if idx.IsInt() {
				i, ok := normalizeIndex(int(idx.AsInt()), len(obj.Items))
				if !ok {
					return vm.indexError("list assignment index out of range")
				}
				obj.Items = append(obj.Items[:i], obj.Items[i+1:]...)
				return nil
			}
		case *DictObj:
			obj.Delete(idx)
			return nil
		case *SetObj:
			obj.Remove(idx)
			return nil
		}
		class := recv.AsObject().Header().Class
		if class != nil && class.Slots.DelItem.IsCallable() {
			_, err := vm.CallValue(class.Slots.DelItem, []Value{recv, idx}, nil)
			return err
		}
	}
	return vm.typeError("'%s' object does not support item deletion", recv.TypeName())
}

// getSubscript implements GET_SUBSCRIPT (§4.4): list/tuple/dict/string
// native indexing, falling back to the __getitem__ protocol slot.
func (vm *VM) getSubscript(recv, idx Value) (Value, error) {
	if recv.IsObject() {
		switch obj := recv.AsObject().(type) {
		case *ListObj:
			if idx.IsInt() {
				i, ok := normalizeIndex(int(idx.AsInt()), len(obj.Items))
				if !ok {
					return None(), vm.indexError("list index out of range")
				}
				return obj.Items[i], nil
			}
		case *TupleObj:
			if idx.IsInt() {
				i, ok := normalizeIndex(int(idx.AsInt()), len(obj.Items))
				if !ok {
					return None(), vm.indexError("tuple index out of range")
				}
				return obj.Items[i], nil
			}
		case *KrkString:
			if idx.IsInt() {
				n := obj.CodepointCount()
				i, ok := normalizeIndex(int(idx.AsInt()), n)
				if !ok {
					return None(), vm.indexError("string index out of range")
				}
				return vm.stringValue(string(obj.RuneAt(i))), nil
			}
		case *DictObj:
			if v, ok := obj.Get(idx); ok {
				return v, nil
			}
			return None(), vm.keyError("%s", idx.String())
		}
		class := recv.AsObject().Header().Class
		if class != nil && class.Slots.GetItem.IsCallable() {
			return vm.CallValue(class.Slots.GetItem, []Value{recv, idx}, nil)
		}
	}
	return None(), vm.typeError("'%s' object is not subscriptable", recv.TypeName())
}

func (vm *VM) setSubscript(recv, idx, val Value) error {
	if recv.IsObject() {
		switch obj := recv.AsObject().(type) {
		case *ListObj:
			if idx.IsInt() {
				i, ok := normalizeIndex(int(idx.AsInt()), len(obj.Items))
				if !ok {
					return vm.indexError("list assignment index out of range")
				}
				obj.Items[i] = val
				return nil
			}
		case *DictObj:
			obj.Set(idx, val)
			return nil
		}
		class := recv.AsObject().Header().Class
		if class != nil && class.Slots.SetItem.IsCallable() {
			_, err := vm.CallValue(class.Slots.SetItem, []Value{recv, idx, val}, nil)
			return err
		}
	}
	return vm.typeError("'%s' object does not support item assignment", recv.TypeName())
}

// iterState is the native iteration cursor stashed on the stack above
// the iterable for GET_ITER/INVOKE_ITER (§4.4 for-loop lowering), used
// only for the built-in sequence types (ListObj/TupleObj/DictObj/
// SetObj/KrkString). A user-defined __iter__/__next__ object never gets
// wrapped in one of these: getIter returns whatever __iter__ itself
// returned, and iterNext drives it by calling its class's __next__ slot
// directly (see iterNextGeneric), exactly the same "call
// repeatedly until StopIteration" protocol Generator already follows.
type iterState struct {
	ObjHeader
	source Value
	index  int
}

func newIterState(vm *VM, source Value) *iterState {
	it := &iterState{ObjHeader: newHeader(ObjKindNative, nil), source: source}
	vm.registerObject(it)
	return it
}

// getIter implements GET_ITER: produces a cursor object for the
// built-in sequence types, or calls the class's __iter__ slot.
func (vm *VM) getIter(v Value) (Value, error) {
	if v.IsObject() {
		switch v.AsObject().(type) {
		case *ListObj, *TupleObj, *KrkString, *DictObj, *SetObj:
			return ObjectValue(newIterState(vm, v)), nil
		case *Generator:
			return v, nil
		}
		class := v.AsObject().Header().Class
		if class != nil && class.Slots.Iter.IsCallable() {
			return vm.CallValue(class.Slots.Iter, []Value{v}, nil)
		}
	}
	return None(), vm.typeError("'%s' object is not iterable", v.TypeName())
}

// iterNext implements INVOKE_ITER: advances a cursor produced by
// getIter, returning (value, stop). For a user-defined iterator (one
// without a recognized native cursor), Done is signaled by the
// StopIteration exception class rather than a boolean (§3 "generators
// and iterator protocol objects raise StopIteration on exhaustion").
func (vm *VM) iterNext(cursor Value) (Value, bool, error) {
	if gen, ok := cursor.AsObject().(*Generator); ok {
		v, done, err := vm.resumeGenerator(vm.mainThread, gen, None())
		if err != nil {
			if isInstanceOfException(errExceptionValue(err), vm.classes.StopIteration) {
				return None(), true, nil
			}
			return None(), false, err
		}
		return v, done, nil
	}
	it, ok := cursor.AsObject().(*iterState)
	if !ok {
		return vm.iterNextGeneric(cursor)
	}
	switch src := it.source.AsObject().(type) {
	case *ListObj:
		if it.index >= len(src.Items) {
			return None(), true, nil
		}
		v := src.Items[it.index]
		it.index++
		return v, false, nil
	case *TupleObj:
		if it.index >= len(src.Items) {
			return None(), true, nil
		}
		v := src.Items[it.index]
		it.index++
		return v, false, nil
	case *KrkString:
		if it.index >= src.CodepointCount() {
			return None(), true, nil
		}
		r := src.RuneAt(it.index)
		it.index++
		return vm.stringValue(string(r)), false, nil
	case *DictObj:
		keys := src.Keys()
		if it.index >= len(keys) {
			return None(), true, nil
		}
		v := keys[it.index]
		it.index++
		return v, false, nil
	case *SetObj:
		items := src.Items()
		if it.index >= len(items) {
			return None(), true, nil
		}
		v := items[it.index]
		it.index++
		return v, false, nil
	}
	return None(), true, nil
}

// iterNextGeneric drives the user-defined iterator protocol (§4.2/§4.4):
// `__iter__` may return any object at all, not just a native cursor — a
// class implementing its own `__next__` is expected to call it
// repeatedly, catching StopIteration to signal exhaustion, same as a
// Generator. cursor's class is looked up fresh on every call (rather
// than cached alongside iterState) since the cursor here already *is*
// the user's object, with no wrapper to stash anything extra in.
func (vm *VM) iterNextGeneric(cursor Value) (Value, bool, error) {
	if !cursor.IsObject() {
		return None(), false, vm.typeError("'%s' object is not an iterator", cursor.TypeName())
	}
	class := cursor.AsObject().Header().Class
	if class == nil || !class.Slots.Next.IsCallable() {
		return None(), false, vm.typeError("'%s' object is not an iterator", cursor.TypeName())
	}
	v, err := vm.CallValue(class.Slots.Next, []Value{cursor}, nil)
	if err != nil {
		if isInstanceOfException(errExceptionValue(err), vm.classes.StopIteration) {
			return None(), true, nil
		}
		return None(), false, err
	}
	return v, false, nil
}
