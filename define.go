package tern

// Descriptor is a parsed property descriptor. Nil pointer fields were
// absent from the source object, which matters for the merge rules.
type Descriptor struct {
	Value        *Value
	Getter       *Value
	Setter       *Value
	Writable     *bool
	Enumerable   *bool
	Configurable *bool
}

func (d *Descriptor) isData() bool     { return d.Value != nil || d.Writable != nil }
func (d *Descriptor) isAccessor() bool { return d.Getter != nil || d.Setter != nil }

// ToDescriptor reads a JS descriptor object ({value, writable, get, set,
// enumerable, configurable}) into a Descriptor. A descriptor that is both
// data and accessor flavored is a TypeError.
func (vm *VM) ToDescriptor(obj Value) (*Descriptor, error) {
	if !obj.IsObjectLike() {
		return nil, vm.TypeError("property descriptor must be an object")
	}

	d := &Descriptor{}
	read := func(name string) (*Value, bool, error) {
		key := String(name)
		has, err := vm.HasProperty(obj, key)
		if err != nil || !has {
			return nil, false, err
		}
		v, err := vm.Property(obj, key)
		if err != nil {
			return nil, false, err
		}
		return &v, true, nil
	}

	if v, ok, err := read("value"); err != nil {
		return nil, err
	} else if ok {
		d.Value = v
	}
	if v, ok, err := read("get"); err != nil {
		return nil, err
	} else if ok {
		if !v.IsFunction() && !v.IsUndefined() {
			return nil, vm.TypeError("Getter must be a function")
		}
		d.Getter = v
	}
	if v, ok, err := read("set"); err != nil {
		return nil, err
	} else if ok {
		if !v.IsFunction() && !v.IsUndefined() {
			return nil, vm.TypeError("Setter must be a function")
		}
		d.Setter = v
	}
	for _, f := range []struct {
		name string
		dst  **bool
	}{
		{"writable", &d.Writable},
		{"enumerable", &d.Enumerable},
		{"configurable", &d.Configurable},
	} {
		if v, ok, err := read(f.name); err != nil {
			return nil, err
		} else if ok {
			b := v.IsTruthy()
			*f.dst = &b
		}
	}

	if d.isData() && d.isAccessor() {
		return nil, vm.TypeError("property descriptors must not specify a value or be writable when a getter or setter has been specified")
	}
	return d, nil
}

// DefineOwnProperty implements the descriptor merge rules: classify the
// descriptor, validate against any existing property, then install or
// update atomically.
func (vm *VM) DefineOwnProperty(target Value, key Value, desc *Descriptor) error {
	o := target.object()
	if o == nil {
		return vm.TypeError("Object.defineProperty is called on non-object")
	}
	if o.isShared {
		return vm.TypeError("cannot mutate a shared object")
	}

	keyStr, hash, idx, isIndex := propKey(key)

	// Dense array elements surface as data properties.
	if isIndex && target.kind == KindArray {
		if desc.isAccessor() {
			return vm.TypeError("cannot define an accessor element on an array")
		}
		if desc.Value != nil {
			target.AsArray().SetAt(idx, *desc.Value)
		}
		return nil
	}

	name := key
	if key.kind != KindSymbol {
		name = String(keyStr)
	}

	var existing *Property
	res, found := lookup(o, keyStr, hash)
	if found && res.self {
		existing = res.prop
	}

	if existing == nil || existing.Kind == PropWhiteout {
		if !o.extensible {
			return vm.TypeError("cannot add property %q, object is not extensible", keyStr)
		}
		p := &Property{Name: name}
		applyDescriptor(p, desc)
		o.hash.Insert(keyStr, hash, p, true)
		return nil
	}

	// A shared-hash hit behaves like an own property for validation but
	// updates land in the own hash.
	fresh := res.sharedHit

	if !existing.Configurable {
		if desc.Configurable != nil && *desc.Configurable {
			return vm.TypeError("cannot redefine property %q", keyStr)
		}
		if desc.Enumerable != nil && *desc.Enumerable != existing.Enumerable {
			return vm.TypeError("cannot redefine property %q", keyStr)
		}

		wasAccessor := existing.Kind == PropAccessor
		if desc.isAccessor() != wasAccessor && (desc.isAccessor() || desc.isData()) {
			// data <-> accessor flips require configurable.
			return vm.TypeError("cannot redefine property %q", keyStr)
		}

		if wasAccessor {
			if desc.Getter != nil && !desc.Getter.StrictEquals(existing.Getter) {
				return vm.TypeError("cannot redefine property %q", keyStr)
			}
			if desc.Setter != nil && !desc.Setter.StrictEquals(existing.Setter) {
				return vm.TypeError("cannot redefine property %q", keyStr)
			}
		} else {
			if !existing.Writable {
				if desc.Writable != nil && *desc.Writable {
					return vm.TypeError("cannot redefine property %q", keyStr)
				}
				if desc.Value != nil && !desc.Value.SameValueZero(existing.Value) {
					return vm.TypeError("cannot redefine property %q", keyStr)
				}
			}
		}
	}

	p := existing
	if fresh {
		// Copy-on-write: never touch the shared template.
		dup := *existing
		p = &dup
	}
	applyDescriptor(p, desc)
	if fresh {
		o.hash.Insert(keyStr, hash, p, true)
	}
	return nil
}

// applyDescriptor merges present descriptor fields into p. Converting
// between data and accessor resets the other side's payload.
func applyDescriptor(p *Property, desc *Descriptor) {
	switch {
	case desc.isAccessor():
		p.Kind = PropAccessor
		p.Value = Undefined
		p.Writable = false
		if desc.Getter != nil {
			p.Getter = *desc.Getter
		}
		if desc.Setter != nil {
			p.Setter = *desc.Setter
		}
	case desc.isData() || p.Kind == PropWhiteout:
		if p.Kind != PropData {
			p.Kind = PropData
			p.Getter = Undefined
			p.Setter = Undefined
			p.Value = Undefined
			p.Writable = false
			p.Enumerable = false
			p.Configurable = false
		}
		if desc.Value != nil {
			p.Value = *desc.Value
		}
		if desc.Writable != nil {
			p.Writable = *desc.Writable
		}
	}

	if desc.Enumerable != nil {
		p.Enumerable = *desc.Enumerable
	}
	if desc.Configurable != nil {
		p.Configurable = *desc.Configurable
	}
}
