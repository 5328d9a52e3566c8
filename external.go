package tern

// External binds host-owned data behind the property protocol. The host
// registers a per-key handler pair and a key enumerator; the object then
// behaves like an ordinary object to scripts, while every access lands in
// host callbacks. Cleanup of the underlying handle belongs on the VM
// arena.
type External struct {
	// Get serves reads of keys the own hash does not satisfy.
	Get func(vm *VM, self Value, key Value) (Value, error)
	// Set serves writes; nil makes the external read-only.
	Set func(vm *VM, self Value, key Value, value Value) error
	// Keys enumerates the host-side key set.
	Keys func(vm *VM, self Value) []Value
}

// NewExternalObject wraps host data as an object. data is retrievable with
// ExternalData.
func (vm *VM) NewExternalObject(ext *External, data any) Value {
	o := &Object{
		kind:       KindObject,
		proto:      vm.protoObject,
		extensible: true,
		external:   ext,
		hostData:   data,
	}
	return objectRef(KindObject, o)
}

// NewData wraps an opaque host pointer as a data value.
func (vm *VM) NewData(ptr any) Value {
	return Value{kind: KindData, ref: ptr, truth: true}
}

// Data returns the payload of a data value.
func (v Value) Data() any {
	if v.kind != KindData {
		return nil
	}
	return v.ref
}

// ExternalData returns the host data of an external object, or nil.
func ExternalData(v Value) any {
	o := v.object()
	if o == nil {
		return nil
	}
	return o.hostData
}
