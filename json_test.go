package tern

import (
	"math"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jsonParse(t *testing.T, vm *VM, src string) Value {
	t.Helper()
	v, err := vm.JSONParse(String(src), Undefined)
	require.NoError(t, err, src)
	return v
}

func jsonStringify(t *testing.T, vm *VM, v Value) string {
	t.Helper()
	out, err := vm.JSONStringify(v, Undefined, Undefined)
	require.NoError(t, err)
	require.True(t, out.IsString())
	return out.Str()
}

func TestParseScalars(t *testing.T) {
	vm := New(Options{})

	assert.Equal(t, float64(1), jsonParse(t, vm, "1").Number())
	assert.Equal(t, float64(-2.5e3), jsonParse(t, vm, "-2.5e3").Number())
	assert.Equal(t, "hi", jsonParse(t, vm, `"hi"`).Str())
	assert.True(t, jsonParse(t, vm, "true").IsTruthy())
	assert.False(t, jsonParse(t, vm, "false").IsTruthy())
	assert.True(t, jsonParse(t, vm, "null").IsNull())
	assert.Equal(t, float64(3), jsonParse(t, vm, " \t\r\n3 ").Number())
}

// Scenario: {"a":1,"b":[2,3]} keeps key order and nests.
func TestParseObject(t *testing.T) {
	vm := New(Options{})
	v := jsonParse(t, vm, `{"a":1,"b":[2,3]}`)

	assert.Equal(t, []string{"a", "b"}, keyStrings(vm.OwnKeys(v, EnumEnumerable)))
	assert.Equal(t, float64(1), mustGet(t, vm, v, "a").Number())

	b := mustGet(t, vm, v, "b")
	require.NotNil(t, b.AsArray())
	assert.Equal(t, 2, b.AsArray().Length())
	assert.Equal(t, float64(2), b.AsArray().At(0).Number())
	assert.Equal(t, float64(3), b.AsArray().At(1).Number())
}

func TestParseErrors(t *testing.T) {
	vm := New(Options{})

	tests := []struct {
		src string
		msg string
	}{
		{"", "Unexpected end of input at position 0"},
		{"{", "Unexpected end of input at position 1"},
		{`{"a"}`, "Unexpected token at position 4"},
		{`[1,]`, "Trailing comma at position 2"},
		{`{"a":1,}`, "Trailing comma at position 6"},
		{"tru", "Unexpected token at position 0"},
		{`"\q"`, "Unknown escape char at position 2"},
		{`"\u12G"`, "Invalid Unicode escape sequence at position 1"},
		{"01", "Unexpected token at position 1"},
		{"-", "Unexpected number at position 1"},
		{"1.", "Unexpected number at position 2"},
		{"[1] []", "Unexpected token at position 4"},
		{"\"a\x01b\"", "Forbidden source char at position 2"},
	}
	for _, tt := range tests {
		_, err := vm.JSONParse(String(tt.src), Undefined)
		require.Error(t, err, tt.src)
		e := vm.Retval().AsError()
		require.NotNil(t, e)
		assert.Equal(t, ErrSyntax, e.ErrKind(), tt.src)
		assert.Equal(t, tt.msg, e.Message(), tt.src)
	}
}

// Positions count characters, not bytes.
func TestParseErrorPositionUTF8(t *testing.T) {
	vm := New(Options{})
	_, err := vm.JSONParse(String(`["é", ]`), Undefined)
	require.Error(t, err)
	assert.Equal(t, "Trailing comma at position 5", vm.Retval().AsError().Message())
}

func TestParseDepthLimit(t *testing.T) {
	vm := New(Options{})

	deep := strings.Repeat("[", 32) + strings.Repeat("]", 32)
	jsonParse(t, vm, deep)

	tooDeep := strings.Repeat("[", 33) + strings.Repeat("]", 33)
	_, err := vm.JSONParse(String(tooDeep), Undefined)
	require.Error(t, err)
	assert.Contains(t, vm.Retval().AsError().Message(), "Nested too deep")
}

// Scenario: surrogate pairs fold; lone halves become U+FFFD.
func TestParseSurrogates(t *testing.T) {
	vm := New(Options{})

	v := jsonParse(t, vm, "\"\\uD83D\\uDE00\"")
	assert.Equal(t, "\U0001F600", v.Str())
	assert.Equal(t, 2, v.StrLength())

	assert.Equal(t, "�", jsonParse(t, vm, `"\uD83D"`).Str())
	assert.Equal(t, "�x", jsonParse(t, vm, `"\uD83Dx"`).Str())
	assert.Equal(t, "�", jsonParse(t, vm, `"\uDE00"`).Str())
	assert.Equal(t, "��", jsonParse(t, vm, `"\uD83D\uD83D"`).Str())
}

func TestReviver(t *testing.T) {
	vm := New(Options{})

	doubler := vm.NewNativeFunction("reviver", 2, func(vm *VM, this Value, args []Value) (Value, error) {
		key, value := args[0], args[1]
		if key.Str() == "drop" {
			return Undefined, nil
		}
		if value.IsNumber() {
			return Number(value.Number() * 2), nil
		}
		return value, nil
	})

	v, err := vm.JSONParse(String(`{"a":1,"drop":true,"nest":{"b":3},"arr":[4,5]}`), doubler)
	require.NoError(t, err)

	assert.Equal(t, float64(2), mustGet(t, vm, v, "a").Number())
	assert.Equal(t, []string{"a", "nest", "arr"}, keyStrings(vm.OwnKeys(v, EnumEnumerable)))
	assert.Equal(t, float64(6), mustGet(t, vm, mustGet(t, vm, v, "nest"), "b").Number())
	arr := mustGet(t, vm, v, "arr").AsArray()
	assert.Equal(t, float64(8), arr.At(0).Number())
	assert.Equal(t, float64(10), arr.At(1).Number())
}

func TestReviverRootReplacement(t *testing.T) {
	vm := New(Options{})

	reviver := vm.NewNativeFunction("reviver", 2, func(vm *VM, this Value, args []Value) (Value, error) {
		if args[0].Str() == "" {
			return String("root"), nil
		}
		return args[1], nil
	})
	v, err := vm.JSONParse(String(`{"x":1}`), reviver)
	require.NoError(t, err)
	assert.Equal(t, "root", v.Str())
}

// Scenario: undefined and functions vanish from objects.
func TestStringifySkips(t *testing.T) {
	vm := New(Options{})
	o := vm.NewObject()
	mustSet(t, vm, o, "a", Number(1))
	mustSet(t, vm, o, "b", Undefined)
	mustSet(t, vm, o, "c", vm.NewNativeFunction("c", 0, nil))

	assert.Equal(t, `{"a":1}`, jsonStringify(t, vm, o))
}

// Scenario: in arrays they hold their position as null.
func TestStringifyArrayNulls(t *testing.T) {
	vm := New(Options{})
	a := vm.NewArrayOf(Number(1), Undefined, Number(3))
	assert.Equal(t, `[1,null,3]`, jsonStringify(t, vm, a))

	holes := vm.NewArray(3)
	assert.Equal(t, `[null,null,null]`, jsonStringify(t, vm, holes))
}

func TestStringifyScalars(t *testing.T) {
	vm := New(Options{})

	assert.Equal(t, "null", jsonStringify(t, vm, Null))
	assert.Equal(t, "true", jsonStringify(t, vm, True))
	assert.Equal(t, "1.5", jsonStringify(t, vm, Number(1.5)))
	assert.Equal(t, "null", jsonStringify(t, vm, Number(math.NaN())))
	assert.Equal(t, "null", jsonStringify(t, vm, Number(math.Inf(1))))
	assert.Equal(t, `"hi"`, jsonStringify(t, vm, String("hi")))

	// Roots that reduce to nothing yield undefined, not a string.
	out, err := vm.JSONStringify(Undefined, Undefined, Undefined)
	require.NoError(t, err)
	assert.True(t, out.IsUndefined())
	out, err = vm.JSONStringify(vm.NewNativeFunction("f", 0, nil), Undefined, Undefined)
	require.NoError(t, err)
	assert.True(t, out.IsUndefined())
}

func TestStringifyEscapes(t *testing.T) {
	vm := New(Options{})
	assert.Equal(t, `"a\"b\\c\nd\te\u0001"`, jsonStringify(t, vm, String("a\"b\\c\nd\te\x01")))
}

func TestStringifyCycleDepth(t *testing.T) {
	vm := New(Options{})

	// A cycle blows the 32-frame stack.
	o := vm.NewObject()
	mustSet(t, vm, o, "self", o)
	_, err := vm.JSONStringify(o, Undefined, Undefined)
	require.Error(t, err)
	e := vm.Retval().AsError()
	assert.Equal(t, ErrType, e.ErrKind())
	assert.Equal(t, "Nested too deep or a cyclic structure", e.Message())

	// Exactly 32 levels fit.
	root := vm.NewObject()
	cur := root
	for range 31 {
		next := vm.NewObject()
		mustSet(t, vm, cur, "n", next)
		cur = next
	}
	mustSet(t, vm, cur, "leaf", Number(1))
	jsonStringify(t, vm, root)
}

func TestStringifyReplacerFunction(t *testing.T) {
	vm := New(Options{})
	o := vm.NewObject()
	mustSet(t, vm, o, "keep", Number(1))
	mustSet(t, vm, o, "secret", Number(2))

	replacer := vm.NewNativeFunction("replacer", 2, func(vm *VM, this Value, args []Value) (Value, error) {
		if args[0].Str() == "secret" {
			return Undefined, nil
		}
		return args[1], nil
	})

	out, err := vm.JSONStringify(o, replacer, Undefined)
	require.NoError(t, err)
	assert.Equal(t, `{"keep":1}`, out.Str())
}

func TestStringifyReplacerArray(t *testing.T) {
	vm := New(Options{})
	o := vm.NewObject()
	mustSet(t, vm, o, "a", Number(1))
	mustSet(t, vm, o, "b", Number(2))
	mustSet(t, vm, o, "c", Number(3))
	mustSet(t, vm, o, "2", Number(4))

	// Keys emit in replacer order, numbers coerce, duplicates drop.
	replacer := vm.NewArrayOf(String("c"), String("a"), Number(2), String("c"))
	out, err := vm.JSONStringify(o, replacer, Undefined)
	require.NoError(t, err)
	assert.Equal(t, `{"c":3,"a":1,"2":4}`, out.Str())
}

func TestStringifySpace(t *testing.T) {
	vm := New(Options{})
	o := vm.NewObject()
	mustSet(t, vm, o, "a", Number(1))
	mustSet(t, vm, o, "b", vm.NewArrayOf(Number(2)))

	out, err := vm.JSONStringify(o, Undefined, Number(2))
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"a\": 1,\n  \"b\": [\n    2\n  ]\n}", out.Str())

	// Strings indent verbatim, truncated to ten characters.
	out, err = vm.JSONStringify(o, Undefined, String("--------------"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out.Str(), "{\n----------\"a\""))

	// Non-positive and non-finite counts mean no indentation.
	for _, space := range []Value{Number(0), Number(-3), Number(math.NaN()), Number(math.Inf(1))} {
		out, err = vm.JSONStringify(o, Undefined, space)
		require.NoError(t, err)
		assert.Equal(t, `{"a":1,"b":[2]}`, out.Str())
	}

	// Counts clamp at ten.
	out, err = vm.JSONStringify(o, Undefined, Number(99))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out.Str(), "{\n          \"a\""))
}

func TestStringifyToJSON(t *testing.T) {
	vm := New(Options{})
	o := vm.NewObject()
	mustSet(t, vm, o, "toJSON", vm.NewNativeFunction("toJSON", 1, func(vm *VM, this Value, args []Value) (Value, error) {
		return String("replaced"), nil
	}))

	out, err := vm.JSONStringify(o, Undefined, Undefined)
	require.NoError(t, err)
	assert.Equal(t, `"replaced"`, out.Str())
}

func TestStringifyDate(t *testing.T) {
	vm := New(Options{})
	d := vm.NewDate(Number(0))
	out, err := vm.JSONStringify(d, Undefined, Undefined)
	require.NoError(t, err)
	assert.Equal(t, `"1970-01-01T00:00:00.000Z"`, out.Str())
}

func TestCanonicalizeRoundTrip(t *testing.T) {
	vm := New(Options{})

	tests := []struct{ in, want string }{
		{`{ "a" : 1 , "b" : [ 2, 3 ] }`, `{"a":1,"b":[2,3]}`},
		{`[1.0, 2.50, 1e2]`, `[1,2.5,100]`},
		{`"A"`, `"A"`},
		{`{"nested":{"deep":{"x":null}}}`, `{"nested":{"deep":{"x":null}}}`},
	}
	for _, tt := range tests {
		v := jsonParse(t, vm, tt.in)
		assert.Equal(t, tt.want, jsonStringify(t, vm, v))
	}
}

// parse(stringify(v)) is structurally v, for generated JSON-safe values.
func TestRoundTripProperty(t *testing.T) {
	vm := New(Options{})

	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 200
	properties := gopter.NewProperties(params)

	jsonScalar := gen.OneGenOf(
		gen.Float64Range(-1e9, 1e9).Map(func(f float64) Value { return Number(f) }),
		gen.AlphaString().Map(func(s string) Value { return String(s) }),
		gen.Bool().Map(Bool),
		gen.Const(Null),
	)

	properties.Property("scalar round trip", prop.ForAll(
		func(v Value) bool {
			s, err := vm.JSONStringify(v, Undefined, Undefined)
			if err != nil {
				return false
			}
			back, err := vm.JSONParse(s, Undefined)
			if err != nil {
				return false
			}
			return back.SameValueZero(v)
		},
		jsonScalar,
	))

	properties.Property("array round trip", prop.ForAll(
		func(nums []float64) bool {
			a := vm.NewArray(0)
			for _, n := range nums {
				a.AsArray().Push(Number(n))
			}
			s, err := vm.JSONStringify(a, Undefined, Undefined)
			if err != nil {
				return false
			}
			back, err := vm.JSONParse(s, Undefined)
			if err != nil || back.AsArray() == nil || back.AsArray().Length() != len(nums) {
				return false
			}
			for i, n := range nums {
				if back.AsArray().At(i).Number() != n {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.Float64Range(-1e6, 1e6)),
	))

	properties.TestingRun(t)
}
