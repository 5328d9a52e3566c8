package tern

import (
	"fmt"

	"github.com/oxhq/tern/syntax"
)

// ErrorKind selects the JavaScript error class of an error value.
type ErrorKind uint8

const (
	ErrError ErrorKind = iota
	ErrEval
	ErrInternal
	ErrRange
	ErrReference
	ErrSyntax
	ErrType
	ErrURI
	ErrMemory
	ErrAggregate
)

var errorNames = [...]string{
	ErrError:     "Error",
	ErrEval:      "EvalError",
	ErrInternal:  "InternalError",
	ErrRange:     "RangeError",
	ErrReference: "ReferenceError",
	ErrSyntax:    "SyntaxError",
	ErrType:      "TypeError",
	ErrURI:       "URIError",
	ErrMemory:    "MemoryError",
	ErrAggregate: "AggregateError",
}

// Name returns the class name of the kind.
func (k ErrorKind) Name() string { return errorNames[k] }

// Error is a JavaScript error value: a name/message pair over an ordinary
// object, plus the source position for syntax errors.
type Error struct {
	Object
	kind    ErrorKind
	name    string
	message string

	// Syntax errors carry their origin.
	fileName   string
	lineNumber int

	// hasData distinguishes a constructed error from a plain object with
	// an Error prototype.
	hasData bool
}

// ErrKind returns the error class.
func (e *Error) ErrKind() ErrorKind { return e.kind }

// Message returns the message.
func (e *Error) Message() string { return e.message }

// FileName returns the source file of a syntax error, if known.
func (e *Error) FileName() string { return e.fileName }

// LineNumber returns the source line of a syntax error, or 0.
func (e *Error) LineNumber() int { return e.lineNumber }

// Exception carries a thrown value through Go error returns. Every core
// function reports failure by returning one; the value is also stored as
// the VM retval.
type Exception struct {
	Value Value
}

func (e *Exception) Error() string {
	return e.Value.ToPrimitiveString()
}

// NewError constructs an error value of the given kind.
func (vm *VM) NewError(kind ErrorKind, message string) Value {
	e := &Error{
		Object:  Object{kind: KindError, proto: vm.protoError, extensible: true},
		kind:    kind,
		name:    kind.Name(),
		message: message,
		hasData: true,
	}
	v := objectRef(KindError, e)
	nameProp := &Property{Name: String("name"), Kind: PropData, Value: String(e.name), Writable: true, Configurable: true}
	msgProp := &Property{Name: String("message"), Kind: PropData, Value: String(message), Writable: true, Configurable: true}
	e.hash.Insert("name", djb("name"), nameProp, true)
	e.hash.Insert("message", djb("message"), msgProp, true)
	return v
}

// Throw stores v as the VM retval and returns it wrapped as a Go error.
func (vm *VM) Throw(v Value) error {
	vm.retval = v
	return &Exception{Value: v}
}

func (vm *VM) throwKind(kind ErrorKind, format string, args ...any) error {
	return vm.Throw(vm.NewError(kind, fmt.Sprintf(format, args...)))
}

// TypeError throws a TypeError.
func (vm *VM) TypeError(format string, args ...any) error {
	return vm.throwKind(ErrType, format, args...)
}

// RangeError throws a RangeError.
func (vm *VM) RangeError(format string, args ...any) error {
	return vm.throwKind(ErrRange, format, args...)
}

// SyntaxError throws a SyntaxError.
func (vm *VM) SyntaxError(format string, args ...any) error {
	return vm.throwKind(ErrSyntax, format, args...)
}

// InternalError throws an InternalError.
func (vm *VM) InternalError(format string, args ...any) error {
	return vm.throwKind(ErrInternal, format, args...)
}

// ReferenceError throws a ReferenceError.
func (vm *VM) ReferenceError(format string, args ...any) error {
	return vm.throwKind(ErrReference, format, args...)
}

// MemoryError throws the pre-constructed MemoryError singleton, so that
// reporting exhaustion allocates nothing.
func (vm *VM) MemoryError() error {
	return vm.Throw(vm.memoryError)
}

// syntaxErrorValue converts a parser error into an error value carrying
// fileName and lineNumber.
func (vm *VM) syntaxErrorValue(err *syntax.Error) Value {
	v := vm.NewError(ErrSyntax, err.Message)
	e := v.AsError()
	if !vm.opts.Quiet {
		e.fileName = err.FileName
	}
	e.lineNumber = err.LineNumber
	return v
}
