package tern

import "unicode/utf8"

// Two string encodings coexist: a byte string, one byte per code point,
// whose byte length equals its character length; and a UTF-8 string, whose
// character length differs. Character positions and lengths count UTF-16
// code units, so an astral code point occupies two positions. Long UTF-8
// strings share one heap record and build a position offset table lazily
// once indexed access would otherwise rescan a long prefix.

// offsetTableMin is the character length past which indexed access builds
// the offset table instead of scanning.
const offsetTableMin = 32

// longString backs a long UTF-8 string value. The offset table stores the
// byte offset of every character position, shifted left one bit; the low
// bit marks the trailing half of an astral code point.
type longString struct {
	data string
	offs []int32
}

func (ls *longString) offsets() []int32 {
	if ls.offs == nil {
		offs := make([]int32, 0, len(ls.data))
		for i, r := range ls.data {
			offs = append(offs, int32(i)<<1)
			if r > 0xFFFF {
				offs = append(offs, int32(i)<<1|1)
			}
		}
		ls.offs = offs
	}
	return ls.offs
}

// charAtPosition returns the character at a position, or "" out of range.
// Either half of an astral code point yields the replacement character: a
// lone surrogate has no UTF-8 spelling.
func (ls *longString) charAtPosition(idx int) string {
	offs := ls.offsets()
	if idx < 0 || idx >= len(offs) {
		return ""
	}
	off := offs[idx]
	if off&1 != 0 {
		return string(utf8.RuneError)
	}
	r, _ := utf8.DecodeRuneInString(ls.data[off>>1:])
	if r > 0xFFFF {
		return string(utf8.RuneError)
	}
	return string(r)
}

// utf16Length counts UTF-16 code units.
func utf16Length(s string) int {
	n := 0
	for _, r := range s {
		n++
		if r > 0xFFFF {
			n++
		}
	}
	return n
}

// newString builds a string value, attaching a shared longString record to
// UTF-8 payloads large enough to warrant the offset table.
func newString(s string) Value {
	length := utf16Length(s)
	v := Value{
		kind:   KindString,
		str:    s,
		strLen: uint32(length),
		truth:  len(s) > 0,
	}
	if length != len(s) && length > offsetTableMin {
		v.ref = &longString{data: s}
	}
	return v
}

// charAt returns the character at position idx as a string value.
func charAt(s Value, idx int) Value {
	if idx < 0 || idx >= s.StrLength() {
		return Undefined
	}
	if s.IsByteString() {
		return String(s.str[idx : idx+1])
	}
	if ls, ok := s.ref.(*longString); ok {
		return String(ls.charAtPosition(idx))
	}

	pos := 0
	for _, r := range s.str {
		width := 1
		if r > 0xFFFF {
			width = 2
		}
		if idx < pos+width {
			if width == 2 {
				return String(string(utf8.RuneError))
			}
			return String(string(r))
		}
		pos += width
	}
	return Undefined
}
