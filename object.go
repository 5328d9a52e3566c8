package tern

import (
	"strconv"

	"github.com/oxhq/tern/internal/lvlhsh"
	"github.com/oxhq/tern/syntax"
)

// Object is the header every heap kind embeds. Property lookup walks the
// own hash, then the shared hash (the read-only template installed at VM
// init), then the prototype chain. Mutations never touch a shared hash: a
// delete of a shared key plants a whiteout in the own hash, a write
// inserts an own data property over it.
type Object struct {
	hash   lvlhsh.Hash
	shared *lvlhsh.Hash
	proto  *Object
	kind   Kind

	isShared   bool
	extensible bool

	// external, when set, routes misses through host callbacks.
	external *External
	hostData any
}

// Array carries a dense value sequence. Holes are Invalid values.
type Array struct {
	Object
	items []Value
}

// Length returns the array length.
func (a *Array) Length() int { return len(a.items) }

// At returns the element at i, Invalid for holes, Undefined out of range.
func (a *Array) At(i int) Value {
	if i < 0 || i >= len(a.items) {
		return Undefined
	}
	return a.items[i]
}

// SetAt stores v at index i, growing with holes as needed.
func (a *Array) SetAt(i int, v Value) {
	for len(a.items) <= i {
		a.items = append(a.items, Invalid)
	}
	a.items[i] = v
}

// Push appends a value.
func (a *Array) Push(v Value) { a.items = append(a.items, v) }

// NativeFunc is the invokable payload of a built-in function.
type NativeFunc func(vm *VM, this Value, args []Value) (Value, error)

// Function is an invokable: either a native function with its coercion
// arity, or a lambda descriptor produced by the parser and awaiting the
// code generator.
type Function struct {
	Object
	Native NativeFunc
	Lambda *syntax.Lambda
	name   string
	nargs  int
}

// Name returns the function name.
func (f *Function) Name() string { return f.name }

// ObjectValue is a boxed primitive: Boolean, Number or String object.
type ObjectValue struct {
	Object
	Value Value
}

// NewObject creates an ordinary object linked to Object.prototype.
func (vm *VM) NewObject() Value {
	o := &Object{kind: KindObject, proto: vm.protoObject, extensible: true}
	return objectRef(KindObject, o)
}

// NewArray creates an array of the given length filled with holes.
func (vm *VM) NewArray(length int) Value {
	a := &Array{Object: Object{kind: KindArray, proto: vm.protoArray, extensible: true, shared: vm.sharedArrayProps}}
	for range length {
		a.items = append(a.items, Invalid)
	}
	return objectRef(KindArray, a)
}

// NewArrayOf creates an array holding the given values.
func (vm *VM) NewArrayOf(values ...Value) Value {
	a := &Array{Object: Object{kind: KindArray, proto: vm.protoArray, extensible: true, shared: vm.sharedArrayProps}}
	a.items = append(a.items, values...)
	return objectRef(KindArray, a)
}

// NewNativeFunction wraps a Go function as a callable value.
func (vm *VM) NewNativeFunction(name string, nargs int, fn NativeFunc) Value {
	f := &Function{
		Object: Object{kind: KindFunction, proto: vm.protoFunction, extensible: true},
		Native: fn,
		name:   name,
		nargs:  nargs,
	}
	return objectRef(KindFunction, f)
}

// NewLambdaFunction wraps a parsed lambda descriptor. It becomes invokable
// once a bytecode executor is attached; the front-end only carries it.
func (vm *VM) NewLambdaFunction(lambda *syntax.Lambda) Value {
	f := &Function{
		Object: Object{kind: KindFunction, proto: vm.protoFunction, extensible: true},
		Lambda: lambda,
		name:   lambda.Name,
		nargs:  lambda.NArgs,
	}
	return objectRef(KindFunction, f)
}

// NewSymbol mints a fresh symbol with the given description.
func (vm *VM) NewSymbol(desc string) Value {
	vm.symbolSeq++
	return symbolValue(vm.symbolSeq, desc)
}

// boxPrimitive wraps a string, number or boolean in an object_value so the
// property protocol can run against it.
func (vm *VM) boxPrimitive(v Value) (*ObjectValue, bool) {
	var proto *Object
	var shared *lvlhsh.Hash
	switch v.kind {
	case KindString:
		proto = vm.protoString
		shared = vm.sharedStringProps
	case KindNumber:
		proto = vm.protoNumber
	case KindBoolean:
		proto = vm.protoBoolean
	default:
		return nil, false
	}
	return &ObjectValue{
		Object: Object{kind: KindObjectValue, proto: proto, extensible: true, shared: shared},
		Value:  v,
	}, true
}

// Clone returns a private copy of a shared object: the own hash is forked
// copy-on-write, the shared hash and prototype are carried over.
func (vm *VM) Clone(v Value) Value {
	o := v.object()
	if o == nil {
		return v
	}
	d := &Object{
		hash:       *o.hash.Fork(),
		shared:     o.shared,
		proto:      o.proto,
		kind:       KindObject,
		extensible: true,
	}
	return objectRef(KindObject, d)
}

// Prototype returns the prototype object value, or Null.
func (vm *VM) Prototype(v Value) Value {
	o := v.object()
	if o == nil || o.proto == nil {
		return Null
	}
	return objectRef(o.proto.kind, o.proto)
}

// propKey normalizes a property key to (hash key, hash, array index).
// Symbols map to a reserved key space so they never collide with strings.
func propKey(key Value) (string, uint32, int, bool) {
	switch key.kind {
	case KindSymbol:
		id := key.SymbolID()
		return "\x00sym:" + strconv.FormatUint(uint64(id), 10), id, 0, false
	case KindNumber:
		s := numberToString(key.num)
		if idx, ok := arrayIndex(s); ok {
			return s, lvlhsh.DJB(s), idx, true
		}
		return s, lvlhsh.DJB(s), 0, false
	default:
		s := key.str
		if idx, ok := arrayIndex(s); ok {
			return s, lvlhsh.DJB(s), idx, true
		}
		return s, lvlhsh.DJB(s), 0, false
	}
}

// arrayIndex reports whether s is a canonical array index.
func arrayIndex(s string) (int, bool) {
	if s == "" || len(s) > 10 {
		return 0, false
	}
	if s == "0" {
		return 0, true
	}
	if s[0] == '0' {
		return 0, false
	}
	n := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	if n >= 4294967295 {
		return 0, false
	}
	return n, true
}
