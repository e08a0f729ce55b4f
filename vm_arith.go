package kuroko

import "math"

// binaryOp implements the arithmetic/bitwise opcodes (§4.4, §7
// "TypeError on an operator applied to incompatible operand types").
// Numeric operands are handled directly; object operands first try the
// relevant protocol slot (§3 operator-protocol dispatch) before falling
// back to a TypeError.
func (vm *VM) binaryOp(op OpCode, a, b Value) (Value, error) {
	if a.IsNumber() && b.IsNumber() {
		return vm.numericBinaryOp(op, a, b)
	}
	if a.IsObject() {
		if slot, ok := vm.arithSlot(a.AsObject().Header().Class, op); ok && slot.IsCallable() {
			return vm.CallValue(slot, []Value{a, b}, nil)
		}
	}
	if op == OpAdd {
		if sa, ok := a.AsObject().(*KrkString); a.IsObject() && ok {
			if sb, ok := b.AsObject().(*KrkString); b.IsObject() && ok {
				return vm.stringValue(sa.String() + sb.String()), nil
			}
		}
	}
	if sa, ok := a.AsObject().(*SetObj); a.IsObject() && ok {
		if sb, ok := b.AsObject().(*SetObj); b.IsObject() && ok {
			switch op {
			case OpBitAnd:
				return ObjectValue(sa.Intersection(vm, sb)), nil
			case OpBitOr:
				return ObjectValue(sa.Union(vm, sb)), nil
			case OpSub:
				return ObjectValue(sa.Difference(vm, sb)), nil
			}
		}
	}
	return None(), vm.typeError("unsupported operand type(s) for operator: '%s' and '%s'", a.TypeName(), b.TypeName())
}

func (vm *VM) arithSlot(c *Class, op OpCode) (Value, bool) {
	switch op {
	case OpAdd:
		return c.Slots.Add, true
	case OpSub:
		return c.Slots.Sub, true
	case OpMul:
		return c.Slots.Mul, true
	case OpDiv:
		return c.Slots.Div, true
	case OpFloorDiv:
		return c.Slots.FloorDiv, true
	case OpMod:
		return c.Slots.Mod, true
	case OpPow:
		return c.Slots.Pow, true
	case OpBitAnd:
		return c.Slots.BitAnd, true
	case OpBitOr:
		return c.Slots.BitOr, true
	case OpBitXor:
		return c.Slots.BitXor, true
	case OpShl:
		return c.Slots.Shl, true
	case OpShr:
		return c.Slots.Shr, true
	}
	return Value{}, false
}

func (vm *VM) numericBinaryOp(op OpCode, a, b Value) (Value, error) {
	bothInt := a.IsInt() && b.IsInt()
	switch op {
	case OpAdd:
		if bothInt {
			return Int(a.AsInt() + b.AsInt()), nil
		}
		return Float(a.AsFloatValue() + b.AsFloatValue()), nil
	case OpSub:
		if bothInt {
			return Int(a.AsInt() - b.AsInt()), nil
		}
		return Float(a.AsFloatValue() - b.AsFloatValue()), nil
	case OpMul:
		if bothInt {
			return Int(a.AsInt() * b.AsInt()), nil
		}
		return Float(a.AsFloatValue() * b.AsFloatValue()), nil
	case OpDiv:
		if b.AsFloatValue() == 0 {
			return None(), vm.newException(vm.classes.ZeroDivisionError, "division by zero")
		}
		return Float(a.AsFloatValue() / b.AsFloatValue()), nil
	case OpFloorDiv:
		if bothInt {
			if b.AsInt() == 0 {
				return None(), vm.newException(vm.classes.ZeroDivisionError, "division by zero")
			}
			return Int(floorDivInt(a.AsInt(), b.AsInt())), nil
		}
		if b.AsFloatValue() == 0 {
			return None(), vm.newException(vm.classes.ZeroDivisionError, "division by zero")
		}
		return Float(math.Floor(a.AsFloatValue() / b.AsFloatValue())), nil
	case OpMod:
		if bothInt {
			if b.AsInt() == 0 {
				return None(), vm.newException(vm.classes.ZeroDivisionError, "division by zero")
			}
			return Int(floorModInt(a.AsInt(), b.AsInt())), nil
		}
		return Float(math.Mod(a.AsFloatValue(), b.AsFloatValue())), nil
	case OpPow:
		if bothInt && b.AsInt() >= 0 {
			return Int(intPow(a.AsInt(), b.AsInt())), nil
		}
		return Float(math.Pow(a.AsFloatValue(), b.AsFloatValue())), nil
	case OpBitAnd:
		return Int(a.AsInt() & b.AsInt()), nil
	case OpBitOr:
		return Int(a.AsInt() | b.AsInt()), nil
	case OpBitXor:
		return Int(a.AsInt() ^ b.AsInt()), nil
	case OpShl:
		return Int(a.AsInt() << uint(b.AsInt())), nil
	case OpShr:
		return Int(a.AsInt() >> uint(b.AsInt())), nil
	}
	return None(), vm.typeError("unsupported numeric operator")
}

func floorDivInt(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func floorModInt(a, b int64) int64 {
	m := a % b
	if m != 0 && ((a < 0) != (b < 0)) {
		m += b
	}
	return m
}

func intPow(base, exp int64) int64 {
	result := int64(1)
	for exp > 0 {
		if exp&1 == 1 {
			result *= base
		}
		base *= base
		exp >>= 1
	}
	return result
}

// compareOp implements the ordering operators (§4.4), numeric
// comparison directly and object comparison via __lt__/__le__/__gt__/
// __ge__.
func (vm *VM) compareOp(op OpCode, a, b Value) (Value, error) {
	if a.IsNumber() && b.IsNumber() {
		av, bv := a.AsFloatValue(), b.AsFloatValue()
		switch op {
		case OpLt:
			return Bool(av < bv), nil
		case OpLe:
			return Bool(av <= bv), nil
		case OpGt:
			return Bool(av > bv), nil
		case OpGe:
			return Bool(av >= bv), nil
		}
	}
	if a.IsObject() {
		class := a.AsObject().Header().Class
		var slot Value
		switch op {
		case OpLt:
			slot = class.Slots.Lt
		case OpLe:
			slot = class.Slots.Le
		case OpGt:
			slot = class.Slots.Gt
		case OpGe:
			slot = class.Slots.Ge
		}
		if slot.IsCallable() {
			return vm.CallValue(slot, []Value{a, b}, nil)
		}
		if sa, ok := a.AsObject().(*KrkString); ok {
			if sb, ok := b.AsObject().(*KrkString); ok {
				return Bool(stringCompare(op, sa.String(), sb.String())), nil
			}
		}
	}
	return None(), vm.typeError("'%s' not supported between instances of '%s' and '%s'", opCompareName(op), a.TypeName(), b.TypeName())
}

func stringCompare(op OpCode, a, b string) bool {
	switch op {
	case OpLt:
		return a < b
	case OpLe:
		return a <= b
	case OpGt:
		return a > b
	case OpGe:
		return a >= b
	}
	return false
}

func opCompareName(op OpCode) string {
	switch op {
	case OpLt:
		return "<"
	case OpLe:
		return "<="
	case OpGt:
		return ">"
	case OpGe:
		return ">="
	}
	return "?"
}

// valuesEqual implements == including the __eq__ protocol slot for
// objects whose class defines one (§3, §4.4); falls back to Value.Equals.
func (vm *VM) valuesEqual(a, b Value) bool {
	if a.IsObject() {
		class := a.AsObject().Header().Class
		if class != nil && class.Slots.Eq.IsCallable() {
			result, err := vm.CallValue(class.Slots.Eq, []Value{a, b}, nil)
			if err == nil {
				return !result.Falsey()
			}
		}
	}
	return a.Equals(b)
}

func (vm *VM) unaryNegate(v Value) (Value, error) {
	switch {
	case v.IsInt():
		return Int(-v.AsInt()), nil
	case v.IsFloat():
		return Float(-v.AsFloat()), nil
	case v.IsObject():
		class := v.AsObject().Header().Class
		if class != nil && class.Slots.Neg.IsCallable() {
			return vm.CallValue(class.Slots.Neg, []Value{v}, nil)
		}
	}
	return None(), vm.typeError("bad operand type for unary -: '%s'", v.TypeName())
}
