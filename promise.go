package tern

// PromiseState is the settlement state.
type PromiseState int

const (
	PromisePending PromiseState = iota
	PromiseFulfilled
	PromiseRejected
)

type promiseReaction struct {
	onFulfilled Value
	onRejected  Value
	derived     *Promise
}

// Promise is the value-side state machine. Settlement is synchronous;
// reactions are appended to the VM's FIFO queue and run after the current
// synchronous step completes. The executor integration (awaiting, job
// scheduling across host events) lives with the embedder.
type Promise struct {
	Object
	state     PromiseState
	result    Value
	handled   bool
	reactions []promiseReaction
}

// State returns the settlement state.
func (p *Promise) State() PromiseState { return p.state }

// Result returns the settlement value; only meaningful once settled.
func (p *Promise) Result() Value { return p.result }

// NewPromise creates a pending promise.
func (vm *VM) NewPromise() Value {
	p := &Promise{
		Object: Object{kind: KindPromise, proto: vm.protoObject, extensible: true},
	}
	return objectRef(KindPromise, p)
}

// Resolve settles the promise as fulfilled. Resolving with another promise
// adopts its eventual state. Settling twice is a no-op.
func (vm *VM) Resolve(promise Value, v Value) {
	p := promise.AsPromise()
	if p == nil || p.state != PromisePending {
		return
	}

	if inner := v.AsPromise(); inner != nil {
		// Adopt: settle when the inner promise does.
		vm.addReaction(inner, promiseReaction{derived: p})
		return
	}

	p.state = PromiseFulfilled
	p.result = v
	vm.scheduleReactions(p)
}

// Reject settles the promise as rejected.
func (vm *VM) Reject(promise Value, v Value) {
	p := promise.AsPromise()
	if p == nil || p.state != PromisePending {
		return
	}
	p.state = PromiseRejected
	p.result = v
	if len(p.reactions) == 0 && !p.handled {
		vm.rejected = append(vm.rejected, v)
	}
	vm.scheduleReactions(p)
}

// Then derives a new promise, registering the handlers to run when the
// receiver settles. Already-settled promises still dispatch through the
// queue, never inline.
func (vm *VM) Then(promise Value, onFulfilled, onRejected Value) (Value, error) {
	p := promise.AsPromise()
	if p == nil {
		return Undefined, vm.TypeError("not a promise")
	}

	derivedValue := vm.NewPromise()
	derived := derivedValue.AsPromise()
	p.handled = true

	vm.addReaction(p, promiseReaction{
		onFulfilled: onFulfilled,
		onRejected:  onRejected,
		derived:     derived,
	})
	return derivedValue, nil
}

func (vm *VM) addReaction(p *Promise, r promiseReaction) {
	if p.state == PromisePending {
		p.reactions = append(p.reactions, r)
		return
	}
	vm.enqueueReaction(p, r)
}

func (vm *VM) scheduleReactions(p *Promise) {
	for _, r := range p.reactions {
		vm.enqueueReaction(p, r)
	}
	p.reactions = nil
}

func (vm *VM) enqueueReaction(p *Promise, r promiseReaction) {
	vm.enqueue(func() error {
		return vm.runReaction(p, r)
	})
}

func (vm *VM) runReaction(p *Promise, r promiseReaction) error {
	handler := r.onFulfilled
	if p.state == PromiseRejected {
		handler = r.onRejected
	}

	derived := Undefined
	if r.derived != nil {
		derived = objectRef(KindPromise, r.derived)
	}

	if !handler.IsFunction() {
		// Pass-through: adoption or a one-sided then.
		if r.derived == nil {
			return nil
		}
		if p.state == PromiseRejected {
			vm.Reject(derived, p.result)
		} else {
			vm.Resolve(derived, p.result)
		}
		return nil
	}

	v, err := vm.Call(handler, Undefined, p.result)
	if r.derived == nil {
		return err
	}
	if err != nil {
		vm.Reject(derived, vm.retval)
		return nil
	}
	vm.Resolve(derived, v)
	return nil
}
