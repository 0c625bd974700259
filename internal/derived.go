package internal

// Derived is a reactive holder whose value is produced by a getter over
// other reactive reads, lazily re-evaluated. Spec §3/§4.5.
type Derived struct {
	Header

	getter func() any
	setter func(any)

	cached      any
	initialized bool
}

// NewDerived creates a Derived marked Mutable|Dirty so the first read
// always recomputes.
func NewDerived(getter func() any, setter func(any)) *Derived {
	return &Derived{
		Header: Header{Flags: Mutable | Dirty},
		getter: getter,
		setter: setter,
	}
}

// cascadeOnEmptySubs implements the unlink-time cascade from spec §4.1:
// once a Derived has no subscribers left, its own dependency edges are
// torn down and it is marked Dirty so a future read recomputes from
// scratch rather than trusting a cache nobody is watching to invalidate.
func (d *Derived) cascadeOnEmptySubs() {
	for l := d.depHead; l != nil; {
		l = unlink(l)
	}
	d.depHead, d.depTail = nil, nil
	d.Header.Flags.set(Dirty)
}

// Read links to the current subscriber, recomputes if stale, and returns
// the cached value. Spec §4.5.
func (d *Derived) Read(t *Tracker) any {
	t.Link(d)
	d.update(t)

	if cb := d.OnTrack; cb != nil {
		cb(DebugEvent{Target: d, Type: EventGet})
	}
	return d.cached
}

// Peek recomputes if stale but does not link to the current subscriber.
func (d *Derived) Peek(t *Tracker) any {
	d.update(t)
	return d.cached
}

// Set invokes the user-supplied setter if one was provided; otherwise it is
// a no-op (with a debug-mode warning), per spec §4.5/§7 "readonly-derived
// write".
func (d *Derived) Set(v any) {
	if d.setter != nil {
		d.setter(v)
		return
	}
	warnf("reactor: write to a Derived without a setter is a no-op")
}

// update recomputes d if it is Dirty, or if it is Pending and checkDirty
// confirms a dependency actually changed. Clean reads are free.
func (d *Derived) update(t *Tracker) {
	h := &d.Header
	switch {
	case h.Flags.has(Dirty):
	case h.Flags.has(Pending):
		if !checkDirty(d.depHead, d) {
			return
		}
	default:
		return
	}
	d.recompute(t)
}

// recompute runs the getter under tracking, sweeping stale deps via
// EndTracking, and shallow-propagates to subscribers only if the value
// genuinely changed. A panicking getter still clears Dirty|Pending before
// re-raising, so the next read retries cleanly; the cache is left
// untouched. Spec §4.5 "If the getter throws...".
func (d *Derived) recompute(t *Tracker) {
	h := &d.Header
	prev := t.StartTracking(d)

	var newVal any
	var panicked bool
	var panicVal any
	func() {
		defer func() {
			if r := recover(); r != nil {
				panicked = true
				panicVal = r
			}
		}()
		newVal = d.getter()
	}()

	t.EndTracking(d, prev)
	h.Flags.clear(Dirty | Pending)

	if panicked {
		panic(panicVal)
	}

	changed := !d.initialized || !valuesEqual(d.cached, newVal)
	d.initialized = true
	d.cached = newVal

	if changed {
		if cb := h.OnTrigger; cb != nil {
			cb(DebugEvent{Target: d, Type: EventSet, NewValue: newVal})
		}
		if d.subHead != nil {
			shallowPropagate(d.subHead)
		}
	}
}
