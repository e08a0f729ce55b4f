package kuroko

// registerExceptionHierarchy creates the built-in exception classes
// (§3, §7) as ordinary Class objects rooted at BaseException, each
// carrying a `message` field set by newException (vm_call.go) and
// readable through the usual GET_PROPERTY path. Grounded on the
// teacher's layered error types (ParsingError wrapping a
// backtrackingError) generalized from two hardcoded Go error structs
// to a full, subclassable-from-Kuroko class tree.
func registerExceptionHierarchy(vm *VM) {
	mk := func(name string, base *Class) *Class {
		c := newClassObj(vm, name, base)
		c.immortal = true
		return c
	}
	c := &vm.classes
	c.BaseException = mk("BaseException", c.Object)
	c.BaseException.Methods.Set(vm.stringValue("__init__"), ObjectValue(newNativeObj(vm, "__init__", exceptionInit)))
	c.Exception = mk("Exception", c.BaseException)
	c.TypeError = mk("TypeError", c.Exception)
	c.ValueError = mk("ValueError", c.Exception)
	c.NameError = mk("NameError", c.Exception)
	c.AttributeError = mk("AttributeError", c.Exception)
	c.IndexError = mk("IndexError", c.Exception)
	c.KeyError = mk("KeyError", c.Exception)
	c.ArgumentError = mk("ArgumentError", c.TypeError)
	c.ImportError = mk("ImportError", c.Exception)
	c.NotImplementedErr = mk("NotImplementedError", c.Exception)
	c.ZeroDivisionError = mk("ZeroDivisionError", c.Exception)
	c.OverflowError = mk("OverflowError", c.Exception)
	c.StopIteration = mk("StopIteration", c.Exception)
	c.SyntaxErrorClass = mk("SyntaxError", c.Exception)

	for _, cls := range vm.allClasses() {
		if cls != nil {
			finalizeClass(vm, cls)
		}
	}

	for _, cls := range []*Class{
		c.BaseException, c.Exception, c.TypeError, c.ValueError, c.NameError,
		c.AttributeError, c.IndexError, c.KeyError, c.ArgumentError, c.ImportError,
		c.NotImplementedErr, c.ZeroDivisionError, c.OverflowError, c.StopIteration,
		c.SyntaxErrorClass,
	} {
		registerGlobal(vm, cls.Name, ObjectValue(cls))
	}
}

// exceptionInit is BaseException's native __init__: `raise
// ValueError("bad input")` from Kuroko source stores the first
// constructor argument as the `message` field the same way
// vm.newException (vm_call.go) does for internally-raised exceptions,
// so both paths read back identically through exceptionSummary
// (traceback.go) and a user's own `except E as e: e.message`.
func exceptionInit(vm *VM, args []Value, kwargs map[string]Value) (Value, error) {
	if len(args) < 1 {
		return None(), vm.typeError("__init__() missing receiver")
	}
	self := args[0]
	msg := ""
	if len(args) >= 2 {
		msg = args[1].String()
	}
	if inst, ok := self.AsObject().(*Instance); ok {
		inst.Fields.Set(vm.stringValue("message"), vm.stringValue(msg))
	}
	return None(), nil
}

// isInstanceOfException reports whether exc's class is c or a subclass
// of c, walking the Base chain (§7 "except SomeError catches SomeError
// and any subclass").
func isInstanceOfException(exc Value, c *Class) bool {
	if !exc.IsObject() {
		return false
	}
	for cls := exc.AsObject().Header().Class; cls != nil; cls = cls.Base {
		if cls == c {
			return true
		}
	}
	return false
}
