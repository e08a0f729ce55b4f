package kuroko

import (
	"fmt"
	"math"
	"strings"
)

// ValueKind discriminates the variants of Value.
type ValueKind uint8

const (
	ValNone ValueKind = iota
	ValBool
	ValInt
	ValFloat
	// ValHandler is an internal variant that can carry a try/with
	// handler record; the VM keeps its handler records on
	// Thread.handlers rather than on the value stack, and it never
	// appears in user-visible data.
	ValHandler
	// ValKwargs is the internal sentinel that ends a call's keyword
	// arguments on the stack and counts their name/value pairs (see
	// execCall in vm_call.go). Unset parameters are filled with None,
	// not with this sentinel, and iterable/mapping splats are not
	// marked with it.
	ValKwargs
	ValObject
)

// HandlerKind distinguishes the two uses of a Handler value: a `try`
// block and a `with` block. Both are unwound the same way (§4.4).
type HandlerKind uint8

const (
	HandlerTry HandlerKind = iota
	HandlerWith
)

// Value is Kuroko's tagged scalar + heap-object representation (§3). It
// is a plain Go struct rather than an interface so that None/Bool/Int/
// Float never allocate; Object is the only variant that carries a heap
// reference.
type Value struct {
	kind ValueKind
	num  uint64 // Boolean/Integer/Floating bit pattern, or Kwargs count
	obj  Obj
	hnd  Handler
}

// Handler is the internal VM record pushed for PUSH_TRY/PUSH_WITH (§4.4,
// §7). Target is the byte offset to jump to on unwind; StackDepth is the
// value-stack height to restore to before resuming.
type Handler struct {
	Kind       HandlerKind
	Target     int
	StackDepth int
	SlotBase   int
}

func None() Value                  { return Value{kind: ValNone} }
func Bool(b bool) Value            { return Value{kind: ValBool, num: boolBits(b)} }
func Int(i int64) Value            { return Value{kind: ValInt, num: uint64(i)} }
func Float(f float64) Value        { return Value{kind: ValFloat, num: math.Float64bits(f)} }
func ObjectValue(o Obj) Value      { return Value{kind: ValObject, obj: o} }
func KwargsSentinel(n int) Value   { return Value{kind: ValKwargs, num: uint64(int64(n))} }
func HandlerValue(h Handler) Value { return Value{kind: ValHandler, hnd: h} }

func boolBits(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

func (v Value) Kind() ValueKind { return v.kind }
func (v Value) IsNone() bool    { return v.kind == ValNone }
func (v Value) IsBool() bool    { return v.kind == ValBool }
func (v Value) IsInt() bool     { return v.kind == ValInt }
func (v Value) IsFloat() bool   { return v.kind == ValFloat }
func (v Value) IsNumber() bool  { return v.kind == ValInt || v.kind == ValFloat }
func (v Value) IsObject() bool  { return v.kind == ValObject }
func (v Value) IsKwargs() bool  { return v.kind == ValKwargs }
func (v Value) IsHandler() bool { return v.kind == ValHandler }

func (v Value) AsBool() bool       { return v.num != 0 }
func (v Value) AsInt() int64       { return int64(v.num) }
func (v Value) AsFloat() float64   { return math.Float64frombits(v.num) }
func (v Value) AsObject() Obj      { return v.obj }
func (v Value) AsKwargsCount() int { return int(int64(v.num)) }
func (v Value) AsHandler() Handler { return v.hnd }

// AsFloatValue cross-promotes an Integer to float64 for arithmetic that
// mixes widths; callers must first check IsNumber.
func (v Value) AsFloatValue() float64 {
	if v.kind == ValInt {
		return float64(v.AsInt())
	}
	return v.AsFloat()
}

// Falsey implements Kuroko's truthiness rule: None, False, 0, 0.0 and
// empty containers are false; everything else is true.
func (v Value) Falsey() bool {
	switch v.kind {
	case ValNone:
		return true
	case ValBool:
		return !v.AsBool()
	case ValInt:
		return v.AsInt() == 0
	case ValFloat:
		return v.AsFloat() == 0
	case ValObject:
		switch o := v.obj.(type) {
		case *KrkString:
			return len(o.data) == 0
		case *ListObj:
			return len(o.Items) == 0
		case *TupleObj:
			return len(o.Items) == 0
		case *DictObj:
			return o.table.Len() == 0
		case *SetObj:
			return o.table.Len() == 0
		}
		return false
	default:
		return false
	}
}

// Equals implements == with cross-numeric promotion (§3): Integer and
// Floating compare by value regardless of variant; None/Handler/Kwargs
// equal only themselves by kind; objects of the same heap identity are
// trivially equal, interned strings compare by identity. Richer object
// equality (the __eq__ protocol) is layered on top of this in
// vm_arith.go.
func (v Value) Equals(o Value) bool {
	if v.kind == ValInt && o.kind == ValFloat {
		return float64(v.AsInt()) == o.AsFloat()
	}
	if v.kind == ValFloat && o.kind == ValInt {
		return v.AsFloat() == float64(o.AsInt())
	}
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case ValNone, ValHandler, ValKwargs:
		return true
	case ValBool:
		return v.AsBool() == o.AsBool()
	case ValInt:
		return v.AsInt() == o.AsInt()
	case ValFloat:
		return v.AsFloat() == o.AsFloat()
	case ValObject:
		if v.obj == o.obj {
			return true
		}
		if s1, ok := v.obj.(*KrkString); ok {
			if s2, ok := o.obj.(*KrkString); ok {
				return s1 == s2 // interned: identity implies equality
			}
		}
		return false
	default:
		return false
	}
}

// Is implements the `is` operator. Open Question #1 (SPEC_FULL.md §13):
// identity only, always. For non-heap kinds that means comparing the Go
// value directly, since there is no separate boxed identity to diverge
// from equality.
func (v Value) Is(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case ValNone:
		return true
	case ValBool:
		return v.AsBool() == o.AsBool()
	case ValInt:
		return v.AsInt() == o.AsInt()
	case ValFloat:
		return v.AsFloat() == o.AsFloat()
	case ValKwargs:
		return v.AsKwargsCount() == o.AsKwargsCount()
	case ValObject:
		return v.obj == o.obj
	default:
		return false
	}
}

// Hash returns the 32-bit hash used by table.go. Numeric values hash by
// bit pattern cross-promoted through float64 so that Equals-equal
// values hash equal (§8: "if a == b for hashable a,b, then hash(a) ==
// hash(b)").
func (v Value) Hash() uint32 {
	switch v.kind {
	case ValNone:
		return 0x4e6f6e65 // "None"
	case ValBool:
		if v.AsBool() {
			return 1
		}
		return 0
	case ValInt:
		return hashFloat64(float64(v.AsInt()))
	case ValFloat:
		return hashFloat64(v.AsFloat())
	case ValObject:
		return v.obj.Header().hashValue(v.obj)
	default:
		return 0
	}
}

func hashFloat64(f float64) uint32 {
	bits := math.Float64bits(f)
	h := uint32(bits) ^ uint32(bits>>32)
	h ^= h >> 15
	h *= 2246822519
	h ^= h >> 13
	h *= 3266489917
	h ^= h >> 16
	return h
}

// TypeName returns the Python-like type name used by repr/TypeError
// messages (§4.4, §7).
func (v Value) TypeName() string {
	switch v.kind {
	case ValNone:
		return "NoneType"
	case ValBool:
		return "bool"
	case ValInt:
		return "int"
	case ValFloat:
		return "float"
	case ValHandler, ValKwargs:
		return "<internal>"
	case ValObject:
		return v.obj.Header().Class.Name
	default:
		return "?"
	}
}

func (v Value) String() string {
	switch v.kind {
	case ValNone:
		return "None"
	case ValBool:
		if v.AsBool() {
			return "True"
		}
		return "False"
	case ValInt:
		return fmt.Sprintf("%d", v.AsInt())
	case ValFloat:
		return formatFloat(v.AsFloat())
	case ValObject:
		return nativeRepr(v.obj)
	default:
		return "<internal>"
	}
}

// nativeRepr formats the built-in heap-object kinds directly (plain
// text for a string, Python-bracket notation for the containers),
// falling back to the class's __repr__ protocol slot (or the generic
// "<ClassName object>") for anything else — string/list/tuple/dict/set
// are native-backed and never carry a user-defined __repr__ of their
// own (§3, §8 "eval(repr(x)) == x" round-trip property).
func nativeRepr(o Obj) string {
	switch obj := o.(type) {
	case *KrkString:
		return obj.String()
	case *ListObj:
		return "[" + joinRepr(obj.Items) + "]"
	case *TupleObj:
		if len(obj.Items) == 1 {
			return "(" + reprOf(obj.Items[0]) + ",)"
		}
		return "(" + joinRepr(obj.Items) + ")"
	case *DictObj:
		parts := make([]string, 0, len(obj.Keys()))
		for _, k := range obj.Keys() {
			val, _ := obj.Get(k)
			parts = append(parts, reprOf(k)+": "+reprOf(val))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case *SetObj:
		items := obj.Items()
		if len(items) == 0 {
			return "set()"
		}
		return "{" + joinRepr(items) + "}"
	}
	return o.Header().reprString(o)
}

// reprOf renders a value the way it would appear nested inside a
// container literal: a string gets quote marks, everything else
// matches its plain String() form.
func reprOf(v Value) string {
	if v.IsObject() {
		if s, ok := v.AsObject().(*KrkString); ok {
			return "'" + s.String() + "'"
		}
	}
	return v.String()
}

func joinRepr(items []Value) string {
	parts := make([]string, len(items))
	for i, v := range items {
		parts[i] = reprOf(v)
	}
	return strings.Join(parts, ", ")
}

func formatFloat(f float64) string {
	if math.IsInf(f, 1) {
		return "inf"
	}
	if math.IsInf(f, -1) {
		return "-inf"
	}
	if math.IsNaN(f) {
		return "nan"
	}
	if f == math.Trunc(f) && math.Abs(f) < 1e16 {
		return fmt.Sprintf("%.1f", f)
	}
	return fmt.Sprintf("%g", f)
}
