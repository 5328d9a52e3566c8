package tern

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oxhq/tern/internal/lvlhsh"
)

func mustGet(t *testing.T, vm *VM, o Value, key string) Value {
	t.Helper()
	v, err := vm.Property(o, String(key))
	require.NoError(t, err)
	return v
}

func mustSet(t *testing.T, vm *VM, o Value, key string, v Value) {
	t.Helper()
	require.NoError(t, vm.PropertySet(o, String(key), v))
}

func keyStrings(keys []Value) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = k.ToPrimitiveString()
	}
	return out
}

func TestPropertyRoundTrip(t *testing.T) {
	vm := New(Options{})
	o := vm.NewObject()

	mustSet(t, vm, o, "a", Number(1))
	assert.Equal(t, float64(1), mustGet(t, vm, o, "a").Number())

	mustSet(t, vm, o, "a", Number(2))
	assert.Equal(t, float64(2), mustGet(t, vm, o, "a").Number())

	assert.True(t, mustGet(t, vm, o, "missing").IsUndefined())
}

func TestInsertDeleteDeclined(t *testing.T) {
	vm := New(Options{})
	o := vm.NewObject()

	mustSet(t, vm, o, "k", String("v"))
	require.NoError(t, vm.PropertyDelete(o, String("k")))

	_, found, err := vm.propertyGet(o, String("k"))
	require.NoError(t, err)
	assert.False(t, found, "deleted key must report declined")

	assert.NotContains(t, keyStrings(vm.OwnKeys(o, EnumAll)), "k")
}

func TestEnumerationOrder(t *testing.T) {
	vm := New(Options{})
	o := vm.NewObject()

	for _, k := range []string{"zeta", "alpha", "mid"} {
		mustSet(t, vm, o, k, Number(1))
	}
	require.NoError(t, vm.PropertyDelete(o, String("alpha")))
	mustSet(t, vm, o, "alpha", Number(2))

	assert.Equal(t, []string{"zeta", "mid", "alpha"}, keyStrings(vm.OwnKeys(o, EnumEnumerable)))
}

func TestPrototypeChainLookup(t *testing.T) {
	vm := New(Options{})
	proto := vm.NewObject()
	mustSet(t, vm, proto, "inherited", String("yes"))

	o := vm.NewObject()
	require.NoError(t, vm.PropertySet(o, String("__proto__"), proto))

	assert.Equal(t, "yes", mustGet(t, vm, o, "inherited").Str())

	// Writing shadows instead of mutating the prototype.
	mustSet(t, vm, o, "inherited", String("own"))
	assert.Equal(t, "own", mustGet(t, vm, o, "inherited").Str())
	assert.Equal(t, "yes", mustGet(t, vm, proto, "inherited").Str())

	// The inherited key does not enumerate as own.
	assert.NotContains(t, keyStrings(vm.OwnKeys(vm.NewObject(), EnumEnumerable)), "inherited")
}

func TestProtoHandler(t *testing.T) {
	vm := New(Options{})
	o := vm.NewObject()

	p := mustGet(t, vm, o, "__proto__")
	assert.True(t, p.IsObjectLike())

	// Detaching the prototype also detaches the handler itself: the next
	// read walks an empty chain.
	require.NoError(t, vm.PropertySet(o, String("__proto__"), Null))
	assert.True(t, vm.Prototype(o).IsNull())
	assert.True(t, mustGet(t, vm, o, "__proto__").IsUndefined())
}

func TestArrayDenseStore(t *testing.T) {
	vm := New(Options{})
	a := vm.NewArrayOf(Number(10), Number(20))

	v, err := vm.Property(a, Number(1))
	require.NoError(t, err)
	assert.Equal(t, float64(20), v.Number())

	require.NoError(t, vm.PropertySet(a, Number(5), Number(60)))
	assert.Equal(t, 6, a.AsArray().Length())
	assert.False(t, a.AsArray().At(3).IsValid(), "grown gap is a hole")

	// length reads through the handler property.
	assert.Equal(t, float64(6), mustGet(t, vm, a, "length").Number())

	// and writes truncate.
	mustSet(t, vm, a, "length", Number(1))
	assert.Equal(t, 1, a.AsArray().Length())
	assert.Equal(t, float64(10), a.AsArray().At(0).Number())
}

func TestArrayHolesEnumeration(t *testing.T) {
	vm := New(Options{})
	a := vm.NewArray(3) // [,,,]

	assert.Equal(t, 3, a.AsArray().Length())
	assert.Empty(t, vm.OwnKeys(a, EnumEnumerable), "holes do not enumerate")

	require.NoError(t, vm.PropertySet(a, Number(1), String("x")))
	assert.Equal(t, []string{"1"}, keyStrings(vm.OwnKeys(a, EnumEnumerable)))
}

func TestSharedTemplateCopyOnWrite(t *testing.T) {
	vm := New(Options{})
	o := vm.NewObject()

	// toString comes from Object.prototype's shared table.
	ts := mustGet(t, vm, o, "toString")
	require.True(t, ts.IsFunction())

	// Overwriting lands in the own hash; other objects are untouched.
	mustSet(t, vm, o, "toString", Number(7))
	assert.Equal(t, float64(7), mustGet(t, vm, o, "toString").Number())

	other := vm.NewObject()
	assert.True(t, mustGet(t, vm, other, "toString").IsFunction())
}

// sharedTemplateObject builds an object over a host-provided shared hash,
// the way prototypes and instance templates are assembled at VM init.
func sharedTemplateObject(shared *lvlhsh.Hash) Value {
	o := &Object{kind: KindObject, extensible: true, shared: shared}
	return objectRef(KindObject, o)
}

func TestWhiteoutShadowsShared(t *testing.T) {
	vm := New(Options{})

	template := &lvlhsh.Hash{}
	prop := &Property{Name: String("greeting"), Kind: PropData, Value: String("hi"),
		Writable: true, Enumerable: true, Configurable: true}
	template.Insert("greeting", djb("greeting"), prop, true)

	a := sharedTemplateObject(template)
	b := sharedTemplateObject(template)
	require.Equal(t, "hi", mustGet(t, vm, a, "greeting").Str())

	// Deleting plants a whiteout in a's own hash; the template and every
	// other object over it are untouched.
	require.NoError(t, vm.PropertyDelete(a, String("greeting")))
	assert.True(t, mustGet(t, vm, a, "greeting").IsUndefined())
	assert.NotContains(t, keyStrings(vm.OwnKeys(a, EnumAll)), "greeting")
	assert.Equal(t, "hi", mustGet(t, vm, b, "greeting").Str())

	// Writing over a shared entry is copy-on-write into the own hash.
	mustSet(t, vm, b, "greeting", String("mine"))
	assert.Equal(t, "mine", mustGet(t, vm, b, "greeting").Str())
	assert.Equal(t, "hi", template.Find("greeting", djb("greeting")).Value.(*Property).Value.Str())

	// Re-inserting after a whiteout revives the key on a only.
	mustSet(t, vm, a, "greeting", String("back"))
	assert.Equal(t, "back", mustGet(t, vm, a, "greeting").Str())
}

func TestArrayLengthIsOwn(t *testing.T) {
	vm := New(Options{})
	a := vm.NewArrayOf(Number(1))

	// length lives in the array's instance template, so it is an own
	// property; prototype methods are not.
	hasOwn := mustGet(t, vm, a, "hasOwnProperty")
	require.True(t, hasOwn.IsFunction())

	v, err := vm.Call(hasOwn, a, String("length"))
	require.NoError(t, err)
	assert.True(t, v.IsTruthy())

	v, err = vm.Call(hasOwn, a, String("push"))
	require.NoError(t, err)
	assert.False(t, v.IsTruthy())
}

func TestSharedObjectImmutable(t *testing.T) {
	vm := New(Options{})
	proto := vm.Prototype(vm.NewObject())
	err := vm.PropertySet(proto, String("boom"), Number(1))
	require.Error(t, err)
	assert.Equal(t, ErrType, vm.Retval().AsError().ErrKind())

	// A clone is privately mutable.
	clone := vm.Clone(proto)
	require.NoError(t, vm.PropertySet(clone, String("boom"), Number(1)))
}

func TestNonExtensible(t *testing.T) {
	vm := New(Options{})
	o := vm.NewObject()
	mustSet(t, vm, o, "a", Number(1))
	o.object().extensible = false

	err := vm.PropertySet(o, String("b"), Number(2))
	require.Error(t, err)

	// Existing keys still write.
	mustSet(t, vm, o, "a", Number(3))
}

func TestAccessorProperty(t *testing.T) {
	vm := New(Options{})
	o := vm.NewObject()

	backing := Number(1)
	getter := vm.NewNativeFunction("get", 0, func(vm *VM, this Value, args []Value) (Value, error) {
		return backing, nil
	})
	setter := vm.NewNativeFunction("set", 1, func(vm *VM, this Value, args []Value) (Value, error) {
		backing = args[0]
		return Undefined, nil
	})

	tr := true
	require.NoError(t, vm.DefineOwnProperty(o, String("x"), &Descriptor{
		Getter: &getter, Setter: &setter, Enumerable: &tr, Configurable: &tr,
	}))

	assert.Equal(t, float64(1), mustGet(t, vm, o, "x").Number())
	mustSet(t, vm, o, "x", Number(9))
	assert.Equal(t, float64(9), mustGet(t, vm, o, "x").Number())
}

func TestDefinePropertyRejections(t *testing.T) {
	vm := New(Options{})
	o := vm.NewObject()

	val := Number(1)
	f := false
	require.NoError(t, vm.DefineOwnProperty(o, String("fixed"), &Descriptor{
		Value: &val, Writable: &f, Configurable: &f,
	}))

	// Non-configurable data -> accessor rejects.
	g := vm.NewNativeFunction("g", 0, nil)
	err := vm.DefineOwnProperty(o, String("fixed"), &Descriptor{Getter: &g})
	require.Error(t, err)
	assert.Equal(t, ErrType, vm.Retval().AsError().ErrKind())

	// Widening writable rejects.
	tr := true
	err = vm.DefineOwnProperty(o, String("fixed"), &Descriptor{Writable: &tr})
	require.Error(t, err)

	// Changing the value of a frozen property rejects...
	two := Number(2)
	err = vm.DefineOwnProperty(o, String("fixed"), &Descriptor{Value: &two})
	require.Error(t, err)

	// ...but re-stating the same value is fine.
	same := Number(1)
	require.NoError(t, vm.DefineOwnProperty(o, String("fixed"), &Descriptor{Value: &same}))
}

func TestDefinePropertyDescriptorObject(t *testing.T) {
	vm := New(Options{})
	o := vm.NewObject()

	descObj := vm.NewObject()
	mustSet(t, vm, descObj, "value", Number(5))
	mustSet(t, vm, descObj, "enumerable", True)

	desc, err := vm.ToDescriptor(descObj)
	require.NoError(t, err)
	require.NoError(t, vm.DefineOwnProperty(o, String("d"), desc))

	assert.Equal(t, float64(5), mustGet(t, vm, o, "d").Number())
	assert.Equal(t, []string{"d"}, keyStrings(vm.OwnKeys(o, EnumEnumerable)))

	// Non-writable by default: writes fail silently.
	mustSet(t, vm, o, "d", Number(6))
	assert.Equal(t, float64(5), mustGet(t, vm, o, "d").Number())

	// A descriptor mixing data and accessor flavors rejects.
	bad := vm.NewObject()
	mustSet(t, vm, bad, "value", Number(1))
	mustSet(t, vm, bad, "get", vm.NewNativeFunction("g", 0, nil))
	_, err = vm.ToDescriptor(bad)
	require.Error(t, err)
}

func TestSymbolKeys(t *testing.T) {
	vm := New(Options{})
	o := vm.NewObject()

	sym := vm.NewSymbol("mine")
	require.NoError(t, vm.PropertySet(o, sym, Number(1)))

	v, err := vm.Property(o, sym)
	require.NoError(t, err)
	assert.Equal(t, float64(1), v.Number())

	// A different symbol with the same description misses.
	other := vm.NewSymbol("mine")
	v, err = vm.Property(o, other)
	require.NoError(t, err)
	assert.True(t, v.IsUndefined())
}

func TestHasProperty(t *testing.T) {
	vm := New(Options{})
	proto := vm.NewObject()
	mustSet(t, vm, proto, "up", Number(1))

	o := vm.NewObject()
	require.NoError(t, vm.PropertySet(o, String("__proto__"), proto))
	mustSet(t, vm, o, "own", Number(2))

	for key, want := range map[string]bool{"own": true, "up": true, "nope": false} {
		has, err := vm.HasProperty(o, String(key))
		require.NoError(t, err)
		assert.Equal(t, want, has, key)
	}
}

func TestBoxedPrimitiveAccess(t *testing.T) {
	vm := New(Options{})

	v, err := vm.Property(String("héllo"), String("length"))
	require.NoError(t, err)
	assert.Equal(t, float64(5), v.Number())

	v, err = vm.Property(String("abc"), Number(1))
	require.NoError(t, err)
	assert.Equal(t, "b", v.Str())

	_, err = vm.Property(Undefined, String("x"))
	require.Error(t, err)
	_, err = vm.Property(Null, String("x"))
	require.Error(t, err)
}

func TestExternalObject(t *testing.T) {
	vm := New(Options{})

	store := map[string]float64{"cpu": 4, "mem": 8}
	ext := &External{
		Get: func(vm *VM, self Value, key Value) (Value, error) {
			if n, ok := store[key.ToPrimitiveString()]; ok {
				return Number(n), nil
			}
			return Undefined, nil
		},
		Keys: func(vm *VM, self Value) []Value {
			return []Value{String("cpu"), String("mem")}
		},
	}

	o := vm.NewExternalObject(ext, store)
	assert.Equal(t, float64(4), mustGet(t, vm, o, "cpu").Number())
	assert.Equal(t, store, ExternalData(o).(map[string]float64))
	assert.ElementsMatch(t, []string{"cpu", "mem"}, keyStrings(vm.OwnKeys(o, EnumEnumerable)))

	err := vm.PropertySet(o, String("cpu"), Number(1))
	require.Error(t, err, "external without Set is read-only")
}
