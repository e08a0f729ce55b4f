package kuroko

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_DefaultConfig(t *testing.T) {
	vm := Init(nil)
	require.NotNil(t, vm)
	assert.False(t, vm.config.LogGC())
}

func TestVM_Interpret_SimpleExpression(t *testing.T) {
	vm := Init(nil)
	v, err := vm.Interpret("let x = 1 + 2\nx\n", "<test>")
	require.NoError(t, err)
	assert.Equal(t, int64(3), v.AsInt())
}

func TestVM_StackManipulation(t *testing.T) {
	vm := Init(nil)
	vm.Push(Int(41))
	vm.Push(Int(1))
	assert.Equal(t, int64(1), vm.StackTop().AsInt())
	assert.Equal(t, int64(1), vm.Peek(0).AsInt())
	assert.Equal(t, int64(41), vm.Peek(1).AsInt())
	assert.Equal(t, int64(1), vm.Pop().AsInt())
	assert.Equal(t, int64(41), vm.Pop().AsInt())
}

func TestVM_CopyString_InternsIndependently(t *testing.T) {
	vm := Init(nil)
	buf := []byte("hello")
	v := vm.CopyString(buf)
	buf[0] = 'H' // mutating the caller's slice must not affect the interned string
	assert.Equal(t, "hello", v.String())
}

func TestVM_NewTuple(t *testing.T) {
	vm := Init(nil)
	tup := vm.NewTuple(3)
	require.Len(t, tup.Items, 3)
	for _, item := range tup.Items {
		assert.True(t, item.IsNone())
	}
}

func TestVM_MakeClass_DefineNative_FinalizeClass(t *testing.T) {
	vm := Init(nil)
	cls := vm.MakeClass(nil, "Greeter", vm.classes.Object)
	vm.DefineNative(cls, "greet", func(vm *VM, args []Value, kwargs map[string]Value) (Value, error) {
		return vm.stringValue("hi"), nil
	})
	vm.FinalizeClass(cls)

	inst := vm.NewInstance(cls)
	m, ok := vm.BindMethod(cls, "greet")
	require.True(t, ok)
	result, err := vm.CallValue(m, []Value{ObjectValue(inst)}, nil)
	require.NoError(t, err)
	assert.Equal(t, "hi", result.String())
}

func TestVM_RuntimeError_CarriesClassAndMessage(t *testing.T) {
	vm := Init(nil)
	err := vm.RuntimeError(vm.classes.ValueError, "bad value: %d", 7)
	exc, ok := err.(*kurokoException)
	require.True(t, ok)
	assert.True(t, isInstanceOfException(exc.value, vm.classes.ValueError))
	msg, ok := exc.value.AsObject().(*Instance).Fields.Get(vm.stringValue("message"))
	require.True(t, ok)
	assert.Equal(t, "bad value: 7", msg.String())
}

func TestVM_Interpret_UncaughtException_CapturesTraceback(t *testing.T) {
	vm := Init(nil)
	_, err := vm.Interpret("def boom():\n    raise ValueError(\"nope\")\nboom()\n", "<test>")
	require.Error(t, err)
	exc, ok := err.(*kurokoException)
	require.True(t, ok)
	assert.NotEmpty(t, exc.traceback)
	assert.Contains(t, FormatTraceback(err), "ValueError")
}
