package tern

import (
	"github.com/oxhq/tern/internal/arena"
	"github.com/oxhq/tern/internal/lvlhsh"
	"github.com/oxhq/tern/syntax"
)

func djb(s string) uint32 { return lvlhsh.DJB(s) }

// RejectionMode selects what happens to promise rejections nothing
// handled.
type RejectionMode int

const (
	// RejectIgnore drops unhandled rejections.
	RejectIgnore RejectionMode = iota
	// RejectThrow surfaces the first unhandled rejection at the end of
	// the outer call.
	RejectThrow
)

// Options configure a VM.
type Options struct {
	// File names parse errors of every Compile; there is no per-call name.
	File string
	// Quiet suppresses file names in error values.
	Quiet bool
	// Trailer stops parsing at the first unmatched closing brace, for
	// sources embedded in a larger document.
	Trailer bool
	// UnhandledRejection selects rejection reporting.
	UnhandledRejection RejectionMode
}

// VM is one engine instance: an arena, a global object, the shared
// prototype tables, the promise event queue, and the error singletons.
// VMs are independent; a VM must not be shared between goroutines.
type VM struct {
	arena *arena.Arena
	opts  Options

	retval Value
	global Value
	prev   *syntax.Tree

	symbolSeq uint32
	callDepth int

	microtasks []func() error
	rejected   []Value

	memoryError Value

	protoObject   *Object
	protoArray    *Object
	protoFunction *Object
	protoString   *Object
	protoNumber   *Object
	protoBoolean  *Object
	protoDate     *Object
	protoError    *Object

	// Prototype tables, frozen at init. Instance hashes hold only the
	// per-instance handlers (length); methods live on the prototypes.
	sharedObjectProps *lvlhsh.Hash
	sharedArrayProps  *lvlhsh.Hash
	sharedStringProps *lvlhsh.Hash
	sharedDateProps   *lvlhsh.Hash
}

// New creates a VM and populates its shared property tables. The tables
// are frozen after this point: every later mutation lands in per-object
// own hashes.
func New(opts Options) *VM {
	vm := &VM{
		arena: arena.New(),
		opts:  opts,
	}

	vm.protoObject = &Object{kind: KindObject, isShared: true}
	vm.protoFunction = &Object{kind: KindObject, isShared: true, proto: vm.protoObject}
	vm.protoArray = &Object{kind: KindObject, isShared: true, proto: vm.protoObject}
	vm.protoString = &Object{kind: KindObject, isShared: true, proto: vm.protoObject}
	vm.protoNumber = &Object{kind: KindObject, isShared: true, proto: vm.protoObject}
	vm.protoBoolean = &Object{kind: KindObject, isShared: true, proto: vm.protoObject}
	vm.protoDate = &Object{kind: KindObject, isShared: true, proto: vm.protoObject}
	vm.protoError = &Object{kind: KindObject, isShared: true, proto: vm.protoObject}

	vm.sharedObjectProps = vm.buildObjectShared()
	vm.sharedArrayProps = vm.buildArrayInstanceShared()
	vm.sharedStringProps = vm.buildStringInstanceShared()
	vm.sharedDateProps = vm.buildDateShared()

	vm.protoObject.shared = vm.sharedObjectProps
	vm.protoArray.shared = vm.buildArrayProtoShared()
	vm.protoDate.shared = vm.sharedDateProps

	vm.memoryError = vm.NewError(ErrMemory, "out of memory")
	vm.global = vm.NewObject()
	vm.installGlobals()

	return vm
}

// Release fires the arena cleanups and ends the VM's lifetime.
func (vm *VM) Release() {
	vm.arena.Release()
}

// Arena exposes the VM's allocator for embedders registering cleanup of
// external handles.
func (vm *VM) Arena() *arena.Arena { return vm.arena }

// Global returns the global object.
func (vm *VM) Global() Value { return vm.global }

// Retval returns the value of the last completed operation or the error
// value of the last failed one.
func (vm *VM) Retval() Value { return vm.retval }

// SetRetval stores a value as the VM retval.
func (vm *VM) SetRetval(v Value) { vm.retval = v }

// ErrorString renders the current retval as an error message.
func (vm *VM) ErrorString() string {
	return vm.retval.ToPrimitiveString()
}

// Compile parses src, accumulating onto earlier compiles: global variables
// declared by previous chunks stay visible and keep their slots. On
// failure the retval holds a SyntaxError value and the VM stays usable.
func (vm *VM) Compile(src string) (*syntax.Tree, error) {
	tree, err := syntax.Parse(src, syntax.Options{
		File:    vm.opts.File,
		Trailer: vm.opts.Trailer,
	}, vm.prev)
	if err != nil {
		if serr, ok := err.(*syntax.Error); ok {
			return nil, vm.Throw(vm.syntaxErrorValue(serr))
		}
		return nil, vm.InternalError("%s", err.Error())
	}
	vm.prev = tree
	return tree, nil
}

// Call invokes a function value. Only native functions are executable in
// the front-end; lambdas require the external bytecode executor. When the
// outermost call returns, queued promise reactions drain FIFO.
func (vm *VM) Call(fn Value, this Value, args ...Value) (Value, error) {
	f := fn.AsFunction()
	if f == nil {
		return Undefined, vm.TypeError("%s is not a function", fn.ToPrimitiveString())
	}
	if f.Native == nil {
		return Undefined, vm.InternalError("function %q requires a bytecode executor", f.name)
	}

	vm.callDepth++
	v, err := f.Native(vm, this, args)
	vm.callDepth--

	if err == nil {
		vm.retval = v
	}

	if vm.callDepth == 0 {
		if derr := vm.drainMicrotasks(); derr != nil && err == nil {
			return v, derr
		}
	}
	return v, err
}

// enqueue appends a microtask to the FIFO queue.
func (vm *VM) enqueue(task func() error) {
	vm.microtasks = append(vm.microtasks, task)
}

// drainMicrotasks runs queued reactions in order after the current
// synchronous step, then reports the first unhandled rejection if the VM
// was configured to surface them.
func (vm *VM) drainMicrotasks() error {
	for len(vm.microtasks) > 0 {
		task := vm.microtasks[0]
		vm.microtasks = vm.microtasks[1:]
		if err := task(); err != nil {
			return err
		}
	}

	if vm.opts.UnhandledRejection == RejectThrow && len(vm.rejected) > 0 {
		v := vm.rejected[0]
		vm.rejected = nil
		return vm.Throw(v)
	}
	vm.rejected = nil
	return nil
}

func sharedProp(h *lvlhsh.Hash, name string, p *Property) {
	p.Name = String(name)
	h.Insert(name, djb(name), p, true)
}

func sharedMethod(h *lvlhsh.Hash, name string, nargs int, fn NativeFunc, protoFunction *Object) {
	f := &Function{
		Object: Object{kind: KindFunction, proto: protoFunction, isShared: true},
		Native: fn,
		name:   name,
		nargs:  nargs,
	}
	sharedProp(h, name, &Property{
		Kind:         PropData,
		Value:        objectRef(KindFunction, f),
		Writable:     true,
		Configurable: true,
	})
}

// buildObjectShared assembles Object.prototype's property table: the
// __proto__ handler and the base object methods, reached by every object
// through its prototype link.
func (vm *VM) buildObjectShared() *lvlhsh.Hash {
	h := &lvlhsh.Hash{}

	sharedProp(h, "__proto__", &Property{
		Kind: PropHandler,
		Handler: func(vm *VM, self Value, setval *Value) (Value, error) {
			o := self.object()
			if setval != nil {
				if o.isShared {
					return Undefined, vm.TypeError("cannot mutate a shared object")
				}
				if p := setval.object(); p != nil {
					o.proto = p
				} else if setval.IsNull() {
					o.proto = nil
				}
				return Undefined, nil
			}
			return vm.Prototype(self), nil
		},
	})

	sharedMethod(h, "hasOwnProperty", 1, func(vm *VM, this Value, args []Value) (Value, error) {
		if len(args) == 0 {
			return False, nil
		}
		for _, k := range vm.OwnKeys(this, EnumAll) {
			if k.StrictEquals(args[0]) {
				return True, nil
			}
		}
		return False, nil
	}, vm.protoFunction)

	sharedMethod(h, "toString", 0, func(vm *VM, this Value, args []Value) (Value, error) {
		return String(this.ToPrimitiveString()), nil
	}, vm.protoFunction)

	return h
}

// buildArrayInstanceShared assembles the template every array instance
// references directly: length is a handler property over the dense store,
// and an own property of the array.
func (vm *VM) buildArrayInstanceShared() *lvlhsh.Hash {
	h := &lvlhsh.Hash{}

	sharedProp(h, "length", &Property{
		Kind: PropHandler,
		Handler: func(vm *VM, self Value, setval *Value) (Value, error) {
			a := self.AsArray()
			if a == nil {
				return Undefined, vm.TypeError("not an array")
			}
			if setval == nil {
				return Number(float64(a.Length())), nil
			}

			n := setval.ToNumber()
			if n < 0 || n != float64(int(n)) {
				return Undefined, vm.RangeError("Invalid array length")
			}
			want := int(n)
			for len(a.items) > want {
				a.items = a.items[:len(a.items)-1]
			}
			for len(a.items) < want {
				a.items = append(a.items, Invalid)
			}
			return Undefined, nil
		},
	})

	return h
}

// buildStringInstanceShared serves boxed strings: length reads through to
// the wrapped primitive.
func (vm *VM) buildStringInstanceShared() *lvlhsh.Hash {
	h := &lvlhsh.Hash{}

	sharedProp(h, "length", &Property{
		Kind: PropHandler,
		Handler: func(vm *VM, self Value, setval *Value) (Value, error) {
			if setval != nil {
				return Undefined, nil
			}
			if ov, ok := self.ref.(*ObjectValue); ok {
				return Number(float64(ov.Value.StrLength())), nil
			}
			return Undefined, nil
		},
	})

	return h
}

// buildArrayProtoShared assembles Array.prototype's methods.
func (vm *VM) buildArrayProtoShared() *lvlhsh.Hash {
	h := &lvlhsh.Hash{}

	sharedMethod(h, "push", 1, func(vm *VM, this Value, args []Value) (Value, error) {
		a := this.AsArray()
		if a == nil {
			return Undefined, vm.TypeError("not an array")
		}
		a.items = append(a.items, args...)
		return Number(float64(a.Length())), nil
	}, vm.protoFunction)

	sharedMethod(h, "join", 1, func(vm *VM, this Value, args []Value) (Value, error) {
		a := this.AsArray()
		if a == nil {
			return Undefined, vm.TypeError("not an array")
		}
		sep := ","
		if len(args) > 0 && !args[0].IsUndefined() {
			sep = args[0].ToPrimitiveString()
		}
		out := ""
		for i, el := range a.items {
			if i > 0 {
				out += sep
			}
			if el.IsValid() && !el.IsUndefined() && !el.IsNull() {
				out += el.ToPrimitiveString()
			}
		}
		return String(out), nil
	}, vm.protoFunction)

	return h
}

// installGlobals populates the global object: the JSON namespace and the
// Date constructor surface.
func (vm *VM) installGlobals() {
	jsonObj := vm.NewObject()
	parse := vm.NewNativeFunction("parse", 2, func(vm *VM, this Value, args []Value) (Value, error) {
		text := Undefined
		reviver := Undefined
		if len(args) > 0 {
			text = args[0]
		}
		if len(args) > 1 {
			reviver = args[1]
		}
		return vm.JSONParse(text, reviver)
	})
	stringify := vm.NewNativeFunction("stringify", 3, func(vm *VM, this Value, args []Value) (Value, error) {
		value, replacer, space := Undefined, Undefined, Undefined
		if len(args) > 0 {
			value = args[0]
		}
		if len(args) > 1 {
			replacer = args[1]
		}
		if len(args) > 2 {
			space = args[2]
		}
		return vm.JSONStringify(value, replacer, space)
	})
	_ = vm.PropertySet(jsonObj, String("parse"), parse)
	_ = vm.PropertySet(jsonObj, String("stringify"), stringify)
	_ = vm.PropertySet(vm.global, String("JSON"), jsonObj)

	vm.installDateGlobal()
}
