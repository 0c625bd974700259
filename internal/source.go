package internal

// Source is a reactive holder of a value that accepts writes without any
// user-defined recomputation. Spec §3/§4.4.
type Source struct {
	Header

	value    any
	oldValue any
	hasOld   bool
	shallow  bool
}

// NewSource creates a Source with Mutable set. shallow is carried for
// collaborators that want to skip deep reactivity on container values (the
// core itself treats shallow and deep sources identically — see spec §1's
// non-goal: the container-proxy layer, not this core, decides what "deep"
// means).
func NewSource(initial any, shallow bool) *Source {
	return &Source{
		Header:  Header{Flags: Mutable},
		value:   initial,
		shallow: shallow,
	}
}

func (s *Source) IsShallow() bool { return s.shallow }

// Read links to the current subscriber (if any) and returns the current
// value. If Dirty and the value genuinely changed since the last
// confirmed read, it shallow-propagates to direct subscribers before
// settling. Spec §4.4.
func (s *Source) Read(t *Tracker) any {
	t.Link(s)

	if s.Header.Flags.has(Dirty) {
		if s.hasOld && !valuesEqual(s.value, s.oldValue) && s.subHead != nil {
			shallowPropagate(s.subHead)
		}
		s.oldValue = s.value
		s.hasOld = true
		s.Header.Flags.clear(Dirty)
	}

	if cb := s.OnTrack; cb != nil {
		cb(DebugEvent{Target: s, Type: EventGet})
	}

	return s.value
}

// Peek returns the value without linking to the current subscriber.
func (s *Source) Peek() any { return s.value }

// Write stores v and propagates to subscribers if v differs from the
// current raw value under NaN-aware equality. A no-op write never
// schedules anything. Spec §4.4.
func (s *Source) Write(v any) {
	if valuesEqual(s.value, v) {
		return
	}

	s.hasOld = true
	s.oldValue = s.value
	s.Header.Flags.set(Dirty)
	s.value = v

	if cb := s.OnTrigger; cb != nil {
		cb(DebugEvent{Target: s, Type: EventSet, NewValue: v})
	}

	if s.subHead != nil {
		propagate(s.subHead)
	}
}

// valuesEqual implements the spec's NaN-aware equality: values are
// "unchanged" iff each is equal to itself and to the other, so NaN→NaN is
// unchanged and NaN→1 is changed. Dynamic types that are not comparable
// (slices, maps, funcs boxed in the interface) are treated as always
// changed — the container-proxy layer, not this core, owns structural
// diffing of those (spec §9 "Equality semantics").
func valuesEqual(a, b any) (eq bool) {
	switch av := a.(type) {
	case float64:
		if bv, ok := b.(float64); ok {
			if av != av && bv != bv {
				return true
			}
			return av == bv
		}
	case float32:
		if bv, ok := b.(float32); ok {
			if av != av && bv != bv {
				return true
			}
			return av == bv
		}
	}

	defer func() {
		if recover() != nil {
			eq = false
		}
	}()
	return a == b
}
