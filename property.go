package tern

// PropertyKind discriminates the payload of a property record.
type PropertyKind uint8

const (
	// PropData stores a value slot.
	PropData PropertyKind = iota
	// PropAccessor stores a getter/setter pair.
	PropAccessor
	// PropHandler delegates reads and writes to a native callback; it is
	// how length, __proto__ and external bridges are realized.
	PropHandler
	// PropWhiteout shadows a shared-hash entry, marking the key absent
	// from this object.
	PropWhiteout
)

// Handler is the callback of a handler property. A nil setval is a read;
// non-nil is a write of that value.
type Handler func(vm *VM, self Value, setval *Value) (Value, error)

// Property is one entry of a property hash.
type Property struct {
	Name    Value
	Kind    PropertyKind
	Value   Value
	Getter  Value
	Setter  Value
	Handler Handler

	Writable     bool
	Enumerable   bool
	Configurable bool
}

func dataProperty(name Value, v Value) *Property {
	return &Property{Name: name, Kind: PropData, Value: v, Writable: true, Enumerable: true, Configurable: true}
}

// queryResult is the outcome of the chain walk.
type queryResult struct {
	prop      *Property
	owner     *Object
	self      bool // found on the queried object, not an ancestor
	sharedHit bool // found in a shared hash (read-only template)
}

// lookup walks own hash -> shared hash -> prototype chain, stopping at the
// first match. Whiteouts in an own hash hide the same key in the shared
// hash and end the walk as a miss for that object... but not for its
// prototypes, which matches deletion semantics: a whiteout marks "absent
// here", so the walk continues up the chain.
func lookup(o *Object, key string, hash uint32) (queryResult, bool) {
	self := true
	for ; o != nil; o = o.proto {
		whiteout := false
		if e := o.hash.Find(key, hash); e != nil {
			p := e.Value.(*Property)
			if p.Kind != PropWhiteout {
				return queryResult{prop: p, owner: o, self: self}, true
			}
			whiteout = true
		}
		if !whiteout && o.shared != nil {
			if e := o.shared.Find(key, hash); e != nil {
				p := e.Value.(*Property)
				if p.Kind != PropWhiteout {
					return queryResult{prop: p, owner: o, self: self, sharedHit: true}, true
				}
			}
		}
		self = false
	}
	return queryResult{}, false
}

// Property performs a get. A missing key yields Undefined without error.
func (vm *VM) Property(target Value, key Value) (Value, error) {
	v, _, err := vm.propertyGet(target, key)
	return v, err
}

// propertyGet additionally reports whether the key was found, for callers
// that treat a miss (declined) differently from an undefined value.
func (vm *VM) propertyGet(target Value, key Value) (Value, bool, error) {
	keyStr, hash, idx, isIndex := propKey(key)

	// Primitive fast paths before boxing.
	switch target.kind {
	case KindUndefined, KindNull:
		return Undefined, false, vm.TypeError("cannot read property %q of %s", keyStr, target.TypeOf())
	case KindString:
		if keyStr == "length" {
			return Number(float64(target.StrLength())), true, nil
		}
		if isIndex {
			return charAt(target, idx), true, nil
		}
	}

	o, err := vm.objectOf(target, keyStr)
	if err != nil {
		return Undefined, false, err
	}

	// Integer indices on arrays short-circuit to the dense store.
	if isIndex && target.kind == KindArray {
		a := target.AsArray()
		if idx < len(a.items) {
			if el := a.items[idx]; el.IsValid() {
				return el, true, nil
			}
			return Undefined, false, nil
		}
		// Fall through: the index may live on the prototype.
	}

	res, found := lookup(o, keyStr, hash)
	if !found {
		if o.external != nil && o.external.Get != nil {
			v, err := o.external.Get(vm, target, key)
			return v, !v.IsUndefined(), err
		}
		return Undefined, false, nil
	}

	switch res.prop.Kind {
	case PropHandler:
		v, err := res.prop.Handler(vm, target, nil)
		return v, true, err
	case PropAccessor:
		if !res.prop.Getter.IsFunction() {
			return Undefined, true, nil
		}
		v, err := vm.Call(res.prop.Getter, target)
		return v, true, err
	default:
		return res.prop.Value, true, nil
	}
}

// PropertySet performs a set with non-strict semantics: writes rejected by
// a read-only or shared inherited property fail silently.
func (vm *VM) PropertySet(target Value, key Value, value Value) error {
	keyStr, hash, idx, isIndex := propKey(key)

	switch target.kind {
	case KindUndefined, KindNull:
		return vm.TypeError("cannot set property %q of %s", keyStr, target.TypeOf())
	case KindString, KindNumber, KindBoolean, KindSymbol:
		// Writes to boxed temporaries vanish.
		return nil
	}

	o := target.object()
	if o == nil {
		return vm.TypeError("cannot set property %q of external value", keyStr)
	}
	if o.isShared {
		return vm.TypeError("cannot mutate a shared object")
	}

	if isIndex && target.kind == KindArray {
		target.AsArray().SetAt(idx, value)
		return nil
	}

	res, found := lookup(o, keyStr, hash)
	if found {
		switch res.prop.Kind {
		case PropHandler:
			_, err := res.prop.Handler(vm, target, &value)
			return err
		case PropAccessor:
			if !res.prop.Setter.IsFunction() {
				return nil // no setter: silent in non-strict code
			}
			_, err := vm.Call(res.prop.Setter, target, value)
			return err
		}

		if !res.prop.Writable {
			return nil // read-only, inherited or own: silent
		}
		if res.self && !res.sharedHit {
			res.prop.Value = value
			return nil
		}
		// Found on an ancestor or in the shared template: install a fresh
		// own data property (copy-on-write over shared prototypes).
	}

	if !found && o.external != nil {
		if o.external.Set == nil {
			return vm.TypeError("cannot set property %q of a read-only external object", keyStr)
		}
		return o.external.Set(vm, target, key, value)
	}
	if !found && !o.extensible {
		return vm.TypeError("cannot add property %q, object is not extensible", keyStr)
	}

	name := key
	if key.kind != KindSymbol {
		name = String(keyStr)
	}
	if e := o.hash.Find(keyStr, hash); e != nil && e.Value.(*Property).Kind == PropWhiteout {
		// A key revived after deletion enumerates as a fresh insertion.
		o.hash.Delete(keyStr, hash)
	}
	o.hash.Insert(keyStr, hash, dataProperty(name, value), true)
	return nil
}

// PropertyDelete removes an own property by planting a whiteout, which
// also shadows any shared-hash entry of the same key.
func (vm *VM) PropertyDelete(target Value, key Value) error {
	keyStr, hash, idx, isIndex := propKey(key)

	o := target.object()
	if o == nil {
		return nil
	}
	if o.isShared {
		return vm.TypeError("cannot mutate a shared object")
	}

	if isIndex && target.kind == KindArray {
		a := target.AsArray()
		if idx < len(a.items) {
			a.items[idx] = Invalid
		}
		return nil
	}

	res, found := lookup(o, keyStr, hash)
	if !found || !res.self {
		return nil
	}
	if res.prop.Kind != PropWhiteout && !res.prop.Configurable {
		return vm.TypeError("cannot delete property %q", keyStr)
	}

	name := key
	if key.kind != KindSymbol {
		name = String(keyStr)
	}
	whiteout := &Property{Name: name, Kind: PropWhiteout}
	o.hash.Insert(keyStr, hash, whiteout, true)
	return nil
}

// HasProperty walks the chain like `in`.
func (vm *VM) HasProperty(target Value, key Value) (bool, error) {
	keyStr, hash, idx, isIndex := propKey(key)

	if isIndex && target.kind == KindArray {
		a := target.AsArray()
		if idx < len(a.items) && a.items[idx].IsValid() {
			return true, nil
		}
	}

	o, err := vm.objectOf(target, keyStr)
	if err != nil {
		return false, err
	}
	_, found := lookup(o, keyStr, hash)
	return found, nil
}

// objectOf returns the object header of target, boxing primitives.
func (vm *VM) objectOf(target Value, keyStr string) (*Object, error) {
	if o := target.object(); o != nil {
		return o, nil
	}
	if boxed, ok := vm.boxPrimitive(target); ok {
		return &boxed.Object, nil
	}
	return nil, vm.TypeError("cannot read property %q of %s", keyStr, target.TypeOf())
}

// EnumOption filters enumeration.
type EnumOption int

const (
	// EnumEnumerable lists only enumerable properties.
	EnumEnumerable EnumOption = iota
	// EnumAll lists every own key.
	EnumAll
)

// OwnKeys returns the own keys of target: array indices in ascending
// order, then own-hash entries in insertion order, then unshadowed
// shared-hash entries. Whiteouts and their shared counterparts are
// filtered.
func (vm *VM) OwnKeys(target Value, opt EnumOption) []Value {
	var keys []Value

	if a := target.AsArray(); a != nil {
		for i, el := range a.items {
			if el.IsValid() {
				keys = append(keys, String(numberToString(float64(i))))
			}
		}
	}

	o := target.object()
	if o == nil {
		return keys
	}

	seen := map[string]bool{}
	for c := o.hash.Each(); ; {
		e := c.Next()
		if e == nil {
			break
		}
		p := e.Value.(*Property)
		seen[e.Key] = true
		if p.Kind == PropWhiteout {
			continue
		}
		if opt == EnumEnumerable && !p.Enumerable {
			continue
		}
		keys = append(keys, p.Name)
	}

	if o.shared != nil {
		for c := o.shared.Each(); ; {
			e := c.Next()
			if e == nil {
				break
			}
			if seen[e.Key] {
				continue
			}
			p := e.Value.(*Property)
			if p.Kind == PropWhiteout {
				continue
			}
			if opt == EnumEnumerable && !p.Enumerable {
				continue
			}
			keys = append(keys, p.Name)
		}
	}

	if o.external != nil && o.external.Keys != nil {
		for _, k := range o.external.Keys(vm, target) {
			s, _, _, _ := propKey(k)
			if !seen[s] {
				keys = append(keys, k)
			}
		}
	}
	return keys
}

// AllKeys returns the enumerable keys of target and its prototype chain in
// for-in order: own keys first, then each prototype's, skipping shadowed
// names.
func (vm *VM) AllKeys(target Value) []Value {
	var keys []Value
	seen := map[string]bool{}

	for cur := target; ; {
		for _, k := range vm.OwnKeys(cur, EnumEnumerable) {
			s, _, _, _ := propKey(k)
			if !seen[s] {
				seen[s] = true
				keys = append(keys, k)
			}
		}
		o := cur.object()
		if o == nil || o.proto == nil {
			return keys
		}
		cur = objectRef(o.proto.kind, o.proto)
	}
}

// OwnEntries returns [key, value] pairs for own enumerable properties,
// reading values through the full protocol so handlers and getters fire.
func (vm *VM) OwnEntries(target Value) ([][2]Value, error) {
	keys := vm.OwnKeys(target, EnumEnumerable)
	entries := make([][2]Value, 0, len(keys))
	for _, k := range keys {
		v, err := vm.Property(target, k)
		if err != nil {
			return nil, err
		}
		entries = append(entries, [2]Value{k, v})
	}
	return entries, nil
}
