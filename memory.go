package kuroko

import "github.com/dustin/go-humanize"

// collectGarbage runs one mark-sweep cycle (§4.5): mark every object
// reachable from the roots (module globals, thread value stacks, open
// upvalues, the string intern table's own entries are weak and are
// swept instead), then walk the intrusive allocation list freeing
// anything left unmarked, then grow nextGC proportionally to the
// surviving set so collection frequency settles rather than thrashing.
//
// Grounded on the teacher's Bytecode/vm structures holding no cyclic
// object graph at all (a PEG matcher never needed a collector); this
// is new code for a domain the teacher doesn't have, designed the way
// the rest of this package is: explicit, single-threaded, no
// generational bookkeeping beyond the reserved field on ObjHeader.
func (vm *VM) collectGarbage() {
	vm.markRoots()
	survivors, survivorBytes := vm.sweep()
	vm.allocBytes = survivorBytes
	growFactor := 2
	if vm.config != nil {
		growFactor = vm.config.GCGrowFactor()
	}
	vm.nextGC = vm.allocBytes*growFactor + (1 << 16)
	if vm.config != nil && vm.config.LogGC() {
		vm.logGC(survivors, survivorBytes)
	}
}

func (vm *VM) logGC(survivors int, bytes int) {
	if vm.Stdout == nil {
		return
	}
	vm.Stdout.WriteString("gc: " + humanize.Comma(int64(survivors)) + " objects, " + humanize.Bytes(uint64(bytes)) + " live\n")
}

func (vm *VM) markRoots() {
	for _, cls := range vm.allClasses() {
		markObject(cls)
	}
	for _, mod := range vm.modules {
		markObject(mod)
	}
	if vm.mainThread != nil {
		vm.markThread(vm.mainThread)
	}
}

func (vm *VM) allClasses() []*Class {
	c := &vm.classes
	return []*Class{
		c.Object, c.Type, c.Int, c.Float, c.Bool, c.NoneType, c.Str, c.Bytes,
		c.Tuple, c.List, c.Dict, c.Set, c.Function, c.Method, c.Property,
		c.Module, c.Generator, c.BaseException, c.Exception, c.TypeError,
		c.ValueError, c.NameError, c.AttributeError, c.IndexError, c.KeyError,
		c.ArgumentError, c.ImportError, c.NotImplementedErr, c.ZeroDivisionError,
		c.OverflowError, c.StopIteration, c.SyntaxErrorClass,
	}
}

func (vm *VM) markThread(th *Thread) {
	for _, v := range th.stack {
		markValue(v)
	}
	for i := 0; i < th.frames.len(); i++ {
		f := th.frames[i]
		markObject(f.Closure)
		if f.Module != nil {
			markObject(f.Module)
		}
	}
	for uv := th.openUpvalue; uv != nil; uv = uv.nextOpen {
		markObject(uv)
	}
}

func markValue(v Value) {
	if v.IsObject() && v.AsObject() != nil {
		markObject(v.AsObject())
	}
}

// markObject marks self and recursively marks whatever it directly
// references. Objects are only ever reachable through a small, fixed
// set of container kinds, so this is a plain type switch rather than a
// generic visitor.
func markObject(self Obj) {
	if self == nil {
		return
	}
	h := self.Header()
	if h.marked {
		return
	}
	h.marked = true
	if h.Class != nil {
		markObject(h.Class)
	}
	switch o := self.(type) {
	case *Class:
		if o.Base != nil {
			markObject(o.Base)
		}
		o.Methods.Each(func(k, v Value) bool { markValue(k); markValue(v); return true })
		o.Fields.Each(func(k, v Value) bool { markValue(k); markValue(v); return true })
		markValue(o.Slots.Init)
		markValue(o.Slots.Repr)
		markValue(o.Slots.Call)
	case *Instance:
		o.Fields.Each(func(k, v Value) bool { markValue(k); markValue(v); return true })
	case *Closure:
		markObject(o.Fn)
		for _, uv := range o.Upvalues {
			if uv != nil {
				markObject(uv)
			}
		}
	case *Function:
		for _, c := range o.Chunk.Constants {
			markValue(c)
		}
		if o.Module != nil {
			markObject(o.Module)
		}
	case *Upvalue:
		if o.closed {
			markValue(o.closedV)
		}
	case *BoundMethod:
		markValue(o.Receiver)
		markValue(o.Method)
	case *Property:
		markValue(o.Getter)
		markValue(o.Setter)
	case *Module:
		o.Fields.Each(func(k, v Value) bool { markValue(k); markValue(v); return true })
	case *ListObj:
		for _, v := range o.Items {
			markValue(v)
		}
	case *TupleObj:
		for _, v := range o.Items {
			markValue(v)
		}
	case *DictObj:
		o.table.Each(func(k, v Value) bool { markValue(k); markValue(v); return true })
	case *SetObj:
		o.table.Each(func(k, v Value) bool { markValue(k); markValue(v); return true })
	case *Generator:
		markObject(o.closure)
		for _, v := range o.args {
			markValue(v)
		}
		for _, v := range o.savedStack {
			markValue(v)
		}
		markValue(o.result)
	case *iterState:
		markValue(o.source)
	}
}

// sweep walks the intrusive allocation list, keeping only marked
// objects (and clearing their mark for next cycle), unlinking and
// discarding the rest so Go's own GC can reclaim them. Immortal
// objects (base classes) are always kept regardless of mark state.
func (vm *VM) sweep() (survivors int, bytes int) {
	var head Obj
	var tail Obj
	cur := vm.objects
	for cur != nil {
		next := cur.Header().next
		h := cur.Header()
		if h.marked || h.immortal {
			h.marked = false
			h.next = nil
			if tail == nil {
				head = cur
			} else {
				tail.Header().next = cur
			}
			tail = cur
			survivors++
			bytes += 32
		} else if s, ok := cur.(*KrkString); ok {
			vm.strings.remove(s)
		}
		cur = next
	}
	vm.objects = head
	return survivors, bytes
}
