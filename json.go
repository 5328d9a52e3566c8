package tern

import (
	"math"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/oxhq/tern/internal/arena"
)

// JSON depth cap, both directions.
const jsonMaxDepth = 32

// --- Parse ---------------------------------------------------------------

type jsonParser struct {
	vm    *VM
	s     string
	pos   int
	depth int
}

// JSONParse implements JSON.parse: text to value, with an optional reviver
// walked over the result.
func (vm *VM) JSONParse(text Value, reviver Value) (Value, error) {
	p := &jsonParser{vm: vm, s: text.ToPrimitiveString()}

	p.skipWhitespace()
	if p.pos >= len(p.s) {
		return Undefined, p.exception("Unexpected end of input", p.pos)
	}
	v, err := p.value()
	if err != nil {
		return Undefined, err
	}
	p.skipWhitespace()
	if p.pos < len(p.s) {
		return Undefined, p.exception("Unexpected token", p.pos)
	}

	if reviver.IsFunction() {
		holder := vm.NewObject()
		if err := vm.PropertySet(holder, String(""), v); err != nil {
			return Undefined, err
		}
		w := &jsonWalker{vm: vm, reviver: reviver}
		return w.internalize(holder, String(""))
	}
	return v, nil
}

// exception throws a SyntaxError whose position is the character offset of
// the failing byte, counted in code points.
func (p *jsonParser) exception(msg string, at int) error {
	if at > len(p.s) {
		at = len(p.s)
	}
	return p.vm.SyntaxError("%s at position %d", msg, utf8.RuneCountInString(p.s[:at]))
}

func (p *jsonParser) skipWhitespace() {
	for p.pos < len(p.s) {
		switch p.s[p.pos] {
		case ' ', '\t', '\r', '\n':
			p.pos++
		default:
			return
		}
	}
}

func (p *jsonParser) value() (Value, error) {
	if p.pos >= len(p.s) {
		return Undefined, p.exception("Unexpected end of input", p.pos)
	}

	switch c := p.s[p.pos]; {
	case c == '{':
		return p.object()
	case c == '[':
		return p.array()
	case c == '"':
		return p.string()
	case c == '-' || (c >= '0' && c <= '9'):
		return p.number()
	case c == 't':
		return p.literal("true", True)
	case c == 'f':
		return p.literal("false", False)
	case c == 'n':
		return p.literal("null", Null)
	}
	return Undefined, p.exception("Unexpected token", p.pos)
}

func (p *jsonParser) literal(text string, v Value) (Value, error) {
	if !strings.HasPrefix(p.s[p.pos:], text) {
		return Undefined, p.exception("Unexpected token", p.pos)
	}
	p.pos += len(text)
	return v, nil
}

func (p *jsonParser) object() (Value, error) {
	p.depth++
	defer func() { p.depth-- }()
	if p.depth > jsonMaxDepth {
		return Undefined, p.exception("Nested too deep", p.pos)
	}

	obj := p.vm.NewObject()
	p.pos++ // '{'
	p.skipWhitespace()

	if p.pos < len(p.s) && p.s[p.pos] == '}' {
		p.pos++
		return obj, nil
	}

	for {
		p.skipWhitespace()
		if p.pos >= len(p.s) {
			return Undefined, p.exception("Unexpected end of input", p.pos)
		}
		if p.s[p.pos] == '}' {
			return Undefined, p.exception("Trailing comma", p.pos-1)
		}
		if p.s[p.pos] != '"' {
			return Undefined, p.exception("Unexpected token", p.pos)
		}

		key, err := p.string()
		if err != nil {
			return Undefined, err
		}

		p.skipWhitespace()
		if p.pos >= len(p.s) {
			return Undefined, p.exception("Unexpected end of input", p.pos)
		}
		if p.s[p.pos] != ':' {
			return Undefined, p.exception("Unexpected token", p.pos)
		}
		p.pos++
		p.skipWhitespace()

		v, err := p.value()
		if err != nil {
			return Undefined, err
		}
		if err := p.vm.PropertySet(obj, key, v); err != nil {
			return Undefined, err
		}

		p.skipWhitespace()
		if p.pos >= len(p.s) {
			return Undefined, p.exception("Unexpected end of input", p.pos)
		}
		switch p.s[p.pos] {
		case ',':
			p.pos++
		case '}':
			p.pos++
			return obj, nil
		default:
			return Undefined, p.exception("Unexpected token", p.pos)
		}
	}
}

func (p *jsonParser) array() (Value, error) {
	p.depth++
	defer func() { p.depth-- }()
	if p.depth > jsonMaxDepth {
		return Undefined, p.exception("Nested too deep", p.pos)
	}

	arr := p.vm.NewArray(0)
	a := arr.AsArray()
	p.pos++ // '['
	p.skipWhitespace()

	if p.pos < len(p.s) && p.s[p.pos] == ']' {
		p.pos++
		return arr, nil
	}

	for {
		p.skipWhitespace()
		if p.pos >= len(p.s) {
			return Undefined, p.exception("Unexpected end of input", p.pos)
		}
		if p.s[p.pos] == ']' {
			return Undefined, p.exception("Trailing comma", p.pos-1)
		}

		v, err := p.value()
		if err != nil {
			return Undefined, err
		}
		a.Push(v)

		p.skipWhitespace()
		if p.pos >= len(p.s) {
			return Undefined, p.exception("Unexpected end of input", p.pos)
		}
		switch p.s[p.pos] {
		case ',':
			p.pos++
		case ']':
			p.pos++
			return arr, nil
		default:
			return Undefined, p.exception("Unexpected token", p.pos)
		}
	}
}

func (p *jsonParser) string() (Value, error) {
	p.pos++ // '"'
	var b strings.Builder

	for {
		if p.pos >= len(p.s) {
			return Undefined, p.exception("Unexpected end of input", p.pos)
		}
		c := p.s[p.pos]

		switch {
		case c == '"':
			p.pos++
			return String(b.String()), nil
		case c < 0x20:
			return Undefined, p.exception("Forbidden source char", p.pos)
		case c == '\\':
			if err := p.escape(&b); err != nil {
				return Undefined, err
			}
		default:
			b.WriteByte(c)
			p.pos++
		}
	}
}

func (p *jsonParser) escape(b *strings.Builder) error {
	p.pos++
	if p.pos >= len(p.s) {
		return p.exception("Unexpected end of input", p.pos)
	}

	c := p.s[p.pos]
	p.pos++

	switch c {
	case '"':
		b.WriteByte('"')
	case '\\':
		b.WriteByte('\\')
	case '/':
		b.WriteByte('/')
	case 'b':
		b.WriteByte('\b')
	case 'f':
		b.WriteByte('\f')
	case 'n':
		b.WriteByte('\n')
	case 'r':
		b.WriteByte('\r')
	case 't':
		b.WriteByte('\t')
	case 'u':
		return p.unicodeEscape(b, p.pos-2)
	default:
		return p.exception("Unknown escape char", p.pos-1)
	}
	return nil
}

// unicodeEscape decodes \uXXXX with surrogate-pair folding: a matched pair
// combines into one code point, an unmatched half becomes U+FFFD.
func (p *jsonParser) unicodeEscape(b *strings.Builder, at int) error {
	lead, ok := p.hex4()
	if !ok {
		return p.exception("Invalid Unicode escape sequence", at)
	}

	if !utf16.IsSurrogate(rune(lead)) {
		b.WriteRune(rune(lead))
		return nil
	}

	if lead >= 0xd800 && lead <= 0xdbff &&
		p.pos+1 < len(p.s) && p.s[p.pos] == '\\' && p.s[p.pos+1] == 'u' {
		mark := p.pos
		p.pos += 2
		trail, ok := p.hex4()
		if !ok {
			return p.exception("Invalid Unicode escape sequence", at)
		}
		if trail >= 0xdc00 && trail <= 0xdfff {
			b.WriteRune(utf16.DecodeRune(rune(lead), rune(trail)))
			return nil
		}
		p.pos = mark
	}

	b.WriteRune(utf8.RuneError)
	return nil
}

func (p *jsonParser) hex4() (int, bool) {
	if p.pos+4 > len(p.s) {
		return 0, false
	}
	v := 0
	for i := range 4 {
		c := p.s[p.pos+i]
		var d int
		switch {
		case c >= '0' && c <= '9':
			d = int(c - '0')
		case c >= 'a' && c <= 'f':
			d = int(c-'a') + 10
		case c >= 'A' && c <= 'F':
			d = int(c-'A') + 10
		default:
			return 0, false
		}
		v = v<<4 | d
	}
	p.pos += 4
	return v, true
}

func (p *jsonParser) number() (Value, error) {
	start := p.pos

	if p.s[p.pos] == '-' {
		p.pos++
		if p.pos >= len(p.s) || p.s[p.pos] < '0' || p.s[p.pos] > '9' {
			return Undefined, p.exception("Unexpected number", p.pos)
		}
	}

	if p.s[p.pos] == '0' {
		p.pos++
	} else {
		for p.pos < len(p.s) && p.s[p.pos] >= '0' && p.s[p.pos] <= '9' {
			p.pos++
		}
	}

	if p.pos < len(p.s) && p.s[p.pos] == '.' {
		p.pos++
		if p.pos >= len(p.s) || p.s[p.pos] < '0' || p.s[p.pos] > '9' {
			return Undefined, p.exception("Unexpected number", p.pos)
		}
		for p.pos < len(p.s) && p.s[p.pos] >= '0' && p.s[p.pos] <= '9' {
			p.pos++
		}
	}

	if p.pos < len(p.s) && (p.s[p.pos] == 'e' || p.s[p.pos] == 'E') {
		p.pos++
		if p.pos < len(p.s) && (p.s[p.pos] == '+' || p.s[p.pos] == '-') {
			p.pos++
		}
		if p.pos >= len(p.s) || p.s[p.pos] < '0' || p.s[p.pos] > '9' {
			return Undefined, p.exception("Unexpected number", p.pos)
		}
		for p.pos < len(p.s) && p.s[p.pos] >= '0' && p.s[p.pos] <= '9' {
			p.pos++
		}
	}

	return Number(stringToNumber(p.s[start:p.pos])), nil
}

// --- Reviver -------------------------------------------------------------

type jsonWalker struct {
	vm      *VM
	reviver Value
	depth   int
}

// internalize applies the reviver bottom-up: children first, then the
// reviver on (holder, key, value). An undefined return deletes the
// property; any other return replaces it.
func (w *jsonWalker) internalize(holder Value, key Value) (Value, error) {
	w.depth++
	defer func() { w.depth-- }()
	if w.depth > jsonMaxDepth {
		return Undefined, w.vm.TypeError("Nested too deep or a cyclic structure")
	}

	value, err := w.vm.Property(holder, key)
	if err != nil {
		return Undefined, err
	}

	if a := value.AsArray(); a != nil {
		for i := 0; i < a.Length(); i++ {
			k := Number(float64(i))
			nv, err := w.internalize(value, k)
			if err != nil {
				return Undefined, err
			}
			if nv.IsUndefined() {
				if err := w.vm.PropertyDelete(value, k); err != nil {
					return Undefined, err
				}
			} else if err := w.vm.PropertySet(value, k, nv); err != nil {
				return Undefined, err
			}
		}
	} else if value.IsObjectLike() && !value.IsFunction() {
		for _, k := range w.vm.OwnKeys(value, EnumEnumerable) {
			nv, err := w.internalize(value, k)
			if err != nil {
				return Undefined, err
			}
			if nv.IsUndefined() {
				if err := w.vm.PropertyDelete(value, k); err != nil {
					return Undefined, err
				}
			} else if err := w.vm.PropertySet(value, k, nv); err != nil {
				return Undefined, err
			}
		}
	}

	keyArg := key
	if key.IsNumber() {
		keyArg = String(numberToString(key.Number()))
	}
	return w.vm.Call(w.reviver, holder, keyArg, value)
}

// --- Stringify -----------------------------------------------------------

// chain is the chunked output buffer: arena-backed chunks accumulate, the
// final pull-up sizes the result once and concatenates.
type chain struct {
	ar     *arena.Arena
	chunks [][]byte
	size   int
}

func (c *chain) add(s string) {
	b := c.ar.Bytes(len(s))
	copy(b, s)
	c.chunks = append(c.chunks, b)
	c.size += len(s)
}

func (c *chain) join() string {
	out := make([]byte, 0, c.size)
	for _, ch := range c.chunks {
		out = append(out, ch...)
	}
	return string(out)
}

type jsonFrame struct {
	value   Value
	keys    []Value
	idx     int
	isArray bool
	written bool
}

type stringifier struct {
	vm       *VM
	replacer Value   // function replacer, or Undefined
	keyList  []Value // array replacer, or nil
	gap      string

	out   chain
	stack []jsonFrame
}

// JSONStringify implements JSON.stringify with function/array replacers
// and a space argument. A root that reduces to undefined, a function or a
// symbol yields undefined rather than a string.
func (vm *VM) JSONStringify(value Value, replacer Value, space Value) (Value, error) {
	s := &stringifier{vm: vm, replacer: Undefined}
	s.out.ar = vm.arena

	switch {
	case replacer.IsFunction():
		s.replacer = replacer
	case replacer.AsArray() != nil:
		s.keyList = replacerKeys(replacer.AsArray())
	}

	if space.kind == KindObjectValue {
		space = space.ref.(*ObjectValue).Value
	}
	switch space.kind {
	case KindNumber:
		n := space.ToNumber()
		// Non-finite or non-positive count means no indentation.
		if !math.IsNaN(n) && !math.IsInf(n, 0) && n > 0 {
			count := int(math.Floor(n))
			if count > 10 {
				count = 10
			}
			s.gap = strings.Repeat(" ", count)
		}
	case KindString:
		gap := space.Str()
		if len(gap) > 10 {
			gap = gap[:10]
		}
		s.gap = gap
	}

	holder := vm.NewObject()
	if err := vm.PropertySet(holder, String(""), value); err != nil {
		return Undefined, err
	}

	root, ok, err := s.prepare(holder, String(""))
	if err != nil {
		return Undefined, err
	}
	if !ok {
		return Undefined, nil
	}

	if err := s.write(root); err != nil {
		return Undefined, err
	}
	return String(s.out.join()), nil
}

// replacerKeys coerces an array replacer to a deduplicated string key
// list, in array order.
func replacerKeys(a *Array) []Value {
	keys := make([]Value, 0, a.Length())
	seen := map[string]bool{}
	for i := 0; i < a.Length(); i++ {
		el := a.At(i)
		var k string
		switch el.kind {
		case KindString:
			k = el.Str()
		case KindNumber:
			k = numberToString(el.Number())
		case KindObjectValue:
			inner := el.ref.(*ObjectValue).Value
			if !inner.IsString() && !inner.IsNumber() {
				continue
			}
			k = inner.ToPrimitiveString()
		default:
			continue
		}
		if !seen[k] {
			seen[k] = true
			keys = append(keys, String(k))
		}
	}
	return keys
}

// prepare retrieves holder[key] through the property protocol, applies
// toJSON and the function replacer, and unboxes wrapped primitives. ok is
// false for values stringify skips entirely.
func (s *stringifier) prepare(holder Value, key Value) (Value, bool, error) {
	value, err := s.vm.Property(holder, key)
	if err != nil {
		return Undefined, false, err
	}

	// Callbacks always see string keys, even for array indices.
	keyArg := key
	if key.IsNumber() {
		keyArg = String(numberToString(key.Number()))
	}

	if value.IsObjectLike() {
		toJSON, err := s.vm.Property(value, String("toJSON"))
		if err != nil {
			return Undefined, false, err
		}
		if toJSON.IsFunction() {
			value, err = s.vm.Call(toJSON, value, keyArg)
			if err != nil {
				return Undefined, false, err
			}
		}
	}

	if s.replacer.IsFunction() {
		value, err = s.vm.Call(s.replacer, holder, keyArg, value)
		if err != nil {
			return Undefined, false, err
		}
	}

	if value.kind == KindObjectValue {
		value = value.ref.(*ObjectValue).Value
	}

	switch value.kind {
	case KindUndefined, KindInvalid, KindSymbol, KindFunction:
		return Undefined, false, nil
	}
	return value, true, nil
}

// write runs the iterative depth-first serialization with an explicit
// frame stack capped at the nesting limit.
func (s *stringifier) write(root Value) error {
	if !root.IsObjectLike() {
		s.writeScalar(root)
		return nil
	}
	if err := s.push(root); err != nil {
		return err
	}

	for len(s.stack) > 0 {
		f := &s.stack[len(s.stack)-1]

		if f.idx >= len(f.keys) {
			s.writeClose(f)
			s.stack = s.stack[:len(s.stack)-1]
			continue
		}

		key := f.keys[f.idx]
		f.idx++

		value, ok, err := s.prepare(f.value, key)
		if err != nil {
			return err
		}
		if !ok {
			if f.isArray {
				// Holes and unserializable values keep their position.
				s.writeSeparator(f, key)
				s.out.add("null")
			}
			continue
		}

		s.writeSeparator(f, key)

		if value.IsObjectLike() {
			if err := s.push(value); err != nil {
				return err
			}
			continue
		}
		s.writeScalar(value)
	}
	return nil
}

func (s *stringifier) push(value Value) error {
	if len(s.stack) >= jsonMaxDepth {
		return s.vm.TypeError("Nested too deep or a cyclic structure")
	}

	f := jsonFrame{value: value}
	if a := value.AsArray(); a != nil {
		f.isArray = true
		f.keys = make([]Value, a.Length())
		for i := range f.keys {
			f.keys[i] = Number(float64(i))
		}
		s.out.add("[")
	} else {
		if s.keyList != nil {
			f.keys = s.keyList
		} else {
			f.keys = s.vm.OwnKeys(value, EnumEnumerable)
		}
		s.out.add("{")
	}
	s.stack = append(s.stack, f)
	return nil
}

// writeSeparator emits the comma, newline/indent, and the member key.
func (s *stringifier) writeSeparator(f *jsonFrame, key Value) {
	if f.written {
		s.out.add(",")
	}
	f.written = true

	if s.gap != "" {
		s.out.add("\n")
		s.out.add(strings.Repeat(s.gap, len(s.stack)))
	}
	if !f.isArray {
		s.writeString(key.ToPrimitiveString())
		if s.gap != "" {
			s.out.add(": ")
		} else {
			s.out.add(":")
		}
	}
}

func (s *stringifier) writeClose(f *jsonFrame) {
	if f.written && s.gap != "" {
		s.out.add("\n")
		s.out.add(strings.Repeat(s.gap, len(s.stack)-1))
	}
	if f.isArray {
		s.out.add("]")
	} else {
		s.out.add("}")
	}
}

func (s *stringifier) writeScalar(v Value) {
	switch v.kind {
	case KindNull:
		s.out.add("null")
	case KindBoolean:
		if v.truth {
			s.out.add("true")
		} else {
			s.out.add("false")
		}
	case KindNumber:
		n := v.Number()
		if math.IsNaN(n) || math.IsInf(n, 0) {
			s.out.add("null")
		} else {
			s.out.add(numberToString(n))
		}
	case KindString:
		s.writeString(v.Str())
	default:
		// Remaining heap kinds (regexp, error, ...) serialize as plain
		// objects and never reach here.
		s.out.add("null")
	}
}

const hexDigits = "0123456789abcdef"

func (s *stringifier) writeString(str string) {
	var b strings.Builder
	b.WriteByte('"')
	for i := 0; i < len(str); i++ {
		c := str[i]
		switch c {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case '\b':
			b.WriteString(`\b`)
		case '\f':
			b.WriteString(`\f`)
		default:
			if c < 0x20 {
				b.WriteString(`\u00`)
				b.WriteByte(hexDigits[c>>4])
				b.WriteByte(hexDigits[c&0xf])
			} else {
				b.WriteByte(c)
			}
		}
	}
	b.WriteByte('"')
	s.out.add(b.String())
}
