package internal

// Tracker holds the state that, per spec §2/§5, is "process-wide (or
// task-local in multi-threaded variants)": the currently evaluating
// subscriber and the untracked gate. In reactor each goroutine owns its own
// Tracker (see Runtime), so unlike the teacher's internal/tracker.go there
// is no cross-goroutine race to guard against with a mutex or a goroutine-id
// recheck — the per-goroutine Runtime lookup already makes that structurally
// impossible.
type Tracker struct {
	currentSubscriber Node
	generation        int
	untracked         bool
}

func NewTracker() *Tracker {
	return &Tracker{}
}

// Current returns the subscriber currently being evaluated, or nil.
func (t *Tracker) Current() Node { return t.currentSubscriber }

// StartTracking begins a new generation for sub: bumps the generation
// counter, clears sub's dep tail (so link() starts reusing edges from the
// head again), clears Recursed/Dirty/Pending, sets RecursedCheck, installs
// sub as current and returns the previously-current subscriber so the
// caller can restore it in EndTracking. Spec §4.1.
func (t *Tracker) StartTracking(sub Node) Node {
	t.generation++

	h := sub.head()
	h.depTail = nil
	h.Flags.clear(Recursed | Dirty | Pending)
	h.Flags.set(RecursedCheck)

	prev := t.currentSubscriber
	t.currentSubscriber = sub
	return prev
}

// EndTracking restores the previous subscriber, sweeps every dep edge left
// over from the previous execution (anything after sub.depTail that wasn't
// re-reached this generation), and clears RecursedCheck. Spec §4.1.
func (t *Tracker) EndTracking(sub Node, prev Node) {
	t.currentSubscriber = prev

	h := sub.head()
	var stale *Link
	if h.depTail != nil {
		stale = h.depTail.nextDep
	} else {
		stale = h.depHead
	}
	for stale != nil {
		stale = unlink(stale)
	}

	h.Flags.clear(RecursedCheck)
}

// Untracked runs fn with the untracked gate set, so any Link call made
// inside it is a no-op. Spec §4.8 untrack.
func (t *Tracker) Untracked(fn func()) {
	prev := t.untracked
	t.untracked = true
	defer func() { t.untracked = prev }()
	fn()
}

// Link establishes or reuses an edge from dep to the currently tracked
// subscriber, in the priority order from spec §4.1:
//
//  1. untracked gate set, or no current subscriber: no-op.
//  2. sub's dep tail already points at dep: same dependency just accessed.
//  3. the link right after sub's dep tail matches dep: bump its version and
//     advance the tail (the common re-read-in-order case).
//  4. dep's sub tail is already a same-generation link to sub: adopt it.
//  5. otherwise, create a new Link and splice it into both chains.
func (t *Tracker) Link(dep Node) *Link {
	if t.untracked || t.currentSubscriber == nil {
		return nil
	}

	sub := t.currentSubscriber
	subHead := sub.head()
	depHead := dep.head()

	if subHead.depTail != nil && subHead.depTail.dep == dep {
		return subHead.depTail
	}

	var nextDep *Link
	if subHead.depTail != nil {
		nextDep = subHead.depTail.nextDep
	} else {
		nextDep = subHead.depHead
	}
	if nextDep != nil && nextDep.dep == dep {
		nextDep.version = t.generation
		subHead.depTail = nextDep
		fireOnTrack(sub, dep)
		return nextDep
	}

	if depHead.subTail != nil && depHead.subTail.version == t.generation && depHead.subTail.sub == sub {
		l := depHead.subTail
		if subHead.depTail != l {
			// adopted out of its natural chain position: splice it to the
			// tail of sub's dep chain so dep-chain order still matches
			// read order for this generation.
			spliceDepToTail(subHead, l)
		}
		return l
	}

	l := &Link{version: t.generation, dep: dep, sub: sub}

	l.prevDep = subHead.depTail
	l.nextDep = nextDep
	if nextDep != nil {
		nextDep.prevDep = l
	}
	if subHead.depTail != nil {
		subHead.depTail.nextDep = l
	} else {
		subHead.depHead = l
	}
	subHead.depTail = l

	l.prevSub = depHead.subTail
	if depHead.subTail != nil {
		depHead.subTail.nextSub = l
	} else {
		depHead.subHead = l
	}
	depHead.subTail = l

	fireOnTrack(sub, dep)
	return l
}

// spliceDepToTail moves l (already linked into dep's subscriber chain) to
// the tail of subHead's dependency chain without touching the subscriber
// chain, used when step 4 of Link adopts a link created by a different
// read order within the same generation.
func spliceDepToTail(subHead *Header, l *Link) {
	if l.prevDep != nil {
		l.prevDep.nextDep = l.nextDep
	} else if subHead.depHead == l {
		subHead.depHead = l.nextDep
	}
	if l.nextDep != nil {
		l.nextDep.prevDep = l.prevDep
	}

	var rest *Link
	if subHead.depTail != nil {
		rest = subHead.depTail.nextDep
	} else {
		rest = subHead.depHead
	}
	l.prevDep = subHead.depTail
	l.nextDep = rest
	if rest != nil {
		rest.prevDep = l
	}
	if subHead.depTail != nil {
		subHead.depTail.nextDep = l
	} else {
		subHead.depHead = l
	}
	subHead.depTail = l
}

func fireOnTrack(sub, dep Node) {
	if cb := sub.head().OnTrack; cb != nil {
		cb(DebugEvent{Target: dep, Type: EventGet})
	}
}

// isValidLink walks sub's dep chain backwards from its tail looking for l, confirming
// it hasn't been replaced in the current tracking generation. Spec §4.3
// "Edge validity".
func isValidLink(l *Link, sub Node) bool {
	h := sub.head()
	for c := h.depTail; c != nil; c = c.prevDep {
		if c == l {
			return true
		}
	}
	return false
}
