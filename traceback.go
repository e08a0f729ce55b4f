package kuroko

import "fmt"

// TracebackEntry names one call-frame level at the moment an exception
// escaped it (§7). Entries, and FormatTraceback's output, run outermost
// frame first, most recent call last, naming the module, line, and
// function. Grounded on
// the teacher's pos.go Position (file+line) paired with vm_stack.go's
// frame walk, generalized from a single parse position to a full call
// chain.
type TracebackEntry struct {
	Module   string
	Line     int
	Function string
}

func (e TracebackEntry) String() string {
	if e.Function == "<module>" {
		return fmt.Sprintf("  File \"%s\", line %d, in <module>", e.Module, e.Line)
	}
	return fmt.Sprintf("  File \"%s\", line %d, in %s", e.Module, e.Line, e.Function)
}

// captureTraceback walks th.frames outermost-to-innermost, recording
// one entry per live call frame. Only called once, by handleException,
// at the moment an exception is about to escape with no handler left
// to catch it — frames are still intact at that point since run()'s
// dispatch loop pops a CallFrame only on an explicit RETURN, never on
// an unhandled error.
func captureTraceback(th *Thread) []TracebackEntry {
	entries := make([]TracebackEntry, 0, th.frames.len())
	for i := 0; i < th.frames.len(); i++ {
		frame := &th.frames[i]
		fn := frame.Closure.Fn
		line := fn.Chunk.LineAt(frame.IP - 1)
		modName := fn.Name
		if fn.Module != nil {
			modName = fn.Module.Name
		}
		entries = append(entries, TracebackEntry{Module: modName, Line: line, Function: fn.Name})
	}
	return entries
}

// FormatTraceback renders a captured traceback plus the exception's
// class name and message, matching the shape of a Python traceback
// (§7, §10 embedding API: the CLI and any embedder print this on an
// uncaught exception).
func FormatTraceback(err error) string {
	exc, ok := err.(*kurokoException)
	if !ok {
		return err.Error()
	}
	var b []byte
	b = append(b, "Traceback (most recent call last):\n"...)
	for _, e := range exc.traceback {
		b = append(b, e.String()...)
		b = append(b, '\n')
	}
	b = append(b, exceptionSummary(exc.value)...)
	return string(b)
}

// exceptionSummary renders "ClassName: message", the final line of a
// traceback, reading the `message` field the same way newException
// (vm_call.go) sets it.
func exceptionSummary(v Value) string {
	if !v.IsObject() {
		return v.String()
	}
	inst, ok := v.AsObject().(*Instance)
	if !ok {
		return v.String()
	}
	name := inst.Header().Class.Name
	msg := ""
	if m, ok := inst.Fields.Get(currentVM().stringValue("message")); ok {
		msg = m.String()
	}
	if msg == "" {
		return name
	}
	return fmt.Sprintf("%s: %s", name, msg)
}
