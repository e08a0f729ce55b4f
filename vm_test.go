package kuroko

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runCaptured interprets source with a fresh VM and returns whatever
// print() wrote to stdout, trimmed of nothing (callers match exact
// output including the trailing newline print() always emits).
func runCaptured(t *testing.T, source string) (string, error) {
	t.Helper()
	vm := Init(nil)
	var out bytes.Buffer
	vm.Stdout = &out
	_, err := vm.Interpret(source, "<test>")
	return out.String(), err
}

// §8 end-to-end scenario 1: default parameter values evaluate once per
// call that omits the argument, left to right, and a later positional
// argument overrides the default.
func TestEndToEnd_DefaultParameter(t *testing.T) {
	out, err := runCaptured(t, "def f(x=10):\n    return x\nprint(f(), f(3))\n")
	require.NoError(t, err)
	assert.Equal(t, "10 3\n", out)
}

// §8 scenario 2: __init__ and __repr__ special methods.
func TestEndToEnd_ClassInitAndRepr(t *testing.T) {
	src := "class A:\n" +
		"    def __init__(self, n):\n" +
		"        self.n = n\n" +
		"    def __repr__(self):\n" +
		"        return \"A(\" + str(self.n) + \")\"\n" +
		"print(A(5))\n"
	out, err := runCaptured(t, src)
	require.NoError(t, err)
	assert.Equal(t, "A(5)\n", out)
}

// §8 scenario 4: a generator suspends and resumes across yield points,
// and exhaustion raises StopIteration.
func TestEndToEnd_GeneratorYieldAndExhaustion(t *testing.T) {
	src := "def gen():\n" +
		"    yield 1\n" +
		"    yield 2\n" +
		"it = gen()\n" +
		"print(next(it), next(it))\n"
	out, err := runCaptured(t, src)
	require.NoError(t, err)
	assert.Equal(t, "1 2\n", out)

	src2 := "def gen():\n" +
		"    yield 1\n" +
		"it = gen()\n" +
		"next(it)\n" +
		"next(it)\n"
	_, err = runCaptured(t, src2)
	require.Error(t, err)
	exc, ok := err.(*kurokoException)
	require.True(t, ok)
	assert.True(t, isInstanceOfException(exc.value, currentVM().classes.StopIteration))
}

// §8 scenario 5: a `with` block's __exit__ suppresses the exception
// raised inside it when it returns a truthy value.
func TestEndToEnd_WithSuppressesException(t *testing.T) {
	src := "class C:\n" +
		"    def __enter__(self):\n" +
		"        return 1\n" +
		"    def __exit__(self, t, e, tb):\n" +
		"        print(\"x\")\n" +
		"        return True\n" +
		"with C() as v:\n" +
		"    raise ValueError(\"boom\")\n" +
		"print(\"ok\")\n"
	out, err := runCaptured(t, src)
	require.NoError(t, err)
	assert.Equal(t, "x\nok\n", out)
}

// §8 scenario: `try`/`except` catches by type and binds `as`.
func TestEndToEnd_TryExceptCatchesByType(t *testing.T) {
	src := "try:\n" +
		"    raise ValueError(\"oops\")\n" +
		"except TypeError as e:\n" +
		"    print(\"wrong\")\n" +
		"except ValueError as e:\n" +
		"    print(\"caught\", e.message)\n" +
		"print(\"after\")\n"
	out, err := runCaptured(t, src)
	require.NoError(t, err)
	assert.Equal(t, "caught oops\nafter\n", out)
}

// An uncaught exception propagates all the way out of Interpret as a
// Go error wrapping the raised value.
func TestEndToEnd_UncaughtExceptionPropagates(t *testing.T) {
	_, err := runCaptured(t, "raise ValueError(\"nope\")\n")
	require.Error(t, err)
	exc, ok := err.(*kurokoException)
	require.True(t, ok)
	assert.True(t, isInstanceOfException(exc.value, currentVM().classes.ValueError))
}

// §8 scenario: closures capture enclosing locals by reference, not by
// value snapshot at closure-creation time.
func TestEndToEnd_ClosureCapturesByReference(t *testing.T) {
	src := "def counter():\n" +
		"    let n = 0\n" +
		"    def inc():\n" +
		"        n = n + 1\n" +
		"        return n\n" +
		"    return inc\n" +
		"f = counter()\n" +
		"print(f(), f(), f())\n"
	out, err := runCaptured(t, src)
	require.NoError(t, err)
	assert.Equal(t, "1 2 3\n", out)
}

// §8 scenario: for-loops drive the iterator protocol over a list.
func TestEndToEnd_ForLoopOverList(t *testing.T) {
	src := "total = 0\n" +
		"for x in [1, 2, 3]:\n" +
		"    total = total + x\n" +
		"print(total)\n"
	out, err := runCaptured(t, src)
	require.NoError(t, err)
	assert.Equal(t, "6\n", out)
}

// break/continue pop depth: break must escape a for-loop entirely
// (discarding the hidden iterator cursor), continue must not.
func TestEndToEnd_BreakAndContinuePopDepth(t *testing.T) {
	src := "out = []\n" +
		"for x in [1, 2, 3, 4, 5]:\n" +
		"    if x == 2:\n" +
		"        continue\n" +
		"    if x == 4:\n" +
		"        break\n" +
		"    out.append(x)\n" +
		"print(out)\n"
	out, err := runCaptured(t, src)
	require.NoError(t, err)
	assert.Equal(t, "[1, 3]\n", out)
}
