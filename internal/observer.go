package internal

// Observer is a Watching, Mutable-free node that re-runs a side-effecting
// function whenever something it read last run becomes dirty. Spec
// §3/§4.6.
type Observer struct {
	Header

	fn      func()
	sched   *Scheduler
	tracker *Tracker
	owner   *Owner

	flush  FlushTiming
	custom func(*Observer)
	onStop func()
	forget func(Node)
}

// NewObserver creates an Observer marked Watching and performs its initial
// synchronous run. owner, if non-nil, is disposed and re-entered on every
// run — the effect's own disposal scope, so OnCleanup registered during a
// run fires right before the next run (or on Stop), and nested Observers
// created during a run become children of it. A panic during the initial
// run that reaches NewObserver (no OnError catcher up the owner chain took
// it) stops the observer (so it is never left half-linked) and re-raises;
// a panic taken by a catcher leaves the observer active and Dirty.
// Spec §4.6.
func NewObserver(t *Tracker, s *Scheduler, kt *KeyedTracker, owner *Owner, fn func(), custom func(*Observer), flush FlushTiming, onStop func()) *Observer {
	o := &Observer{
		Header:  Header{Flags: Watching},
		fn:      fn,
		sched:   s,
		tracker: t,
		owner:   owner,
		flush:   flush,
		custom:  custom,
		onStop:  onStop,
	}
	if kt != nil {
		o.forget = kt.Forget
	}

	defer func() {
		if r := recover(); r != nil {
			o.Stop()
			panic(r)
		}
	}()
	o.run()

	return o
}

// ForceRun runs the observer unconditionally, ignoring Dirty/Pending
// state, for a consumer-requested manual re-run.
func (o *Observer) ForceRun() {
	if o.Header.Flags.has(Stopped) {
		return
	}
	o.Header.Flags.set(Dirty)
	o.run()
}

// IsActive reports whether the observer has not been stopped.
func (o *Observer) IsActive() bool { return !o.Header.Flags.has(Stopped) }

// IsPaused reports whether the observer is currently paused.
func (o *Observer) IsPaused() bool { return o.Header.Flags.has(Paused) }

// Notify is the entry point used by collaborators outside the propagate
// path (spec §4.8's KeyedTracker.trigger) to dirty an observer directly.
// Stopped, already-paused, or already-dirty observers ignore the call;
// otherwise it sets Dirty, fires onTrigger, and dispatches. Spec §4.6.
func (o *Observer) Notify() {
	h := &o.Header
	if h.Flags.has(Stopped) || h.Flags.has(Paused) || h.Flags.has(Dirty) {
		return
	}
	h.Flags.set(Dirty)
	if cb := h.OnTrigger; cb != nil {
		cb(DebugEvent{Target: o, Type: EventSet})
	}
	o.dedupAndDispatch()
}

// scheduleSelf implements the scheduled interface. The caller (propagate's
// maybeEnqueue) has already set Queued before calling this, so it goes
// straight to dispatch.
func (o *Observer) scheduleSelf() {
	o.dispatch()
}

// dedupAndDispatch is Notify's path into dispatch: it owns the Queued
// dedup that maybeEnqueue owns on the propagate path, since Notify
// bypasses propagate entirely.
func (o *Observer) dedupAndDispatch() {
	h := &o.Header
	if h.Flags.has(Queued) {
		return
	}
	h.Flags.set(Queued)
	o.dispatch()
}

// dispatch routes to a custom scheduler if one was supplied, otherwise to
// the flush timing requested at construction. Only FlushSync runs inline,
// accepting the glitch risk of re-running mid-traversal in exchange for
// true synchronous-immediate semantics; every other timing — including
// FlushDefault — enqueues onto the scheduler and lets the top-level caller
// that triggered this dispatch (a Source write, Trigger, or batch end)
// flush once the whole graph has finished updating, so a diamond dependency
// never observes a half-propagated value. Paused observers still
// accumulate Dirty/Pending via propagate/Notify but are not scheduled here;
// Resume re-dispatches them. Spec §4.6/§4.7.
func (o *Observer) dispatch() {
	h := &o.Header
	if h.Flags.has(Paused) {
		return
	}

	switch {
	case o.custom != nil:
		o.custom(o)
	case o.flush == FlushSync:
		o.runIfNeeded()
	case o.flush == FlushPre:
		o.sched.QueuePreFlushCallback(o, o.runIfNeeded)
	default:
		o.sched.QueueJob(o, o.runIfNeeded)
	}
}

// runIfNeeded is the job body handed to the scheduler (or invoked
// directly for FlushSync dispatch). It clears Queued first — the job
// is considered "executing" from this point whether or not it actually
// recomputes — then runs if Dirty, or checks the dependency chain if only
// Pending, settling Pending either way.
func (o *Observer) runIfNeeded() {
	h := &o.Header
	h.Flags.clear(Queued)
	if h.Flags.has(Stopped) {
		return
	}

	if h.Flags.has(Dirty) {
		o.run()
		return
	}
	if h.Flags.has(Pending) {
		if checkDirty(h.depHead, o) {
			o.run()
		} else {
			h.Flags.clear(Pending)
		}
	}
}

// run executes fn under tracking. A stopped observer just calls fn with no
// tracking at all (it has no deps to track into). If this observer owns a
// disposal scope, it is torn down (running the previous run's OnCleanup
// chain and disposing any nested Observers/Owners created last run) before
// fn runs again under a fresh entry into the same scope. A panic inside fn
// restores Dirty, so the next notification retries the run, then is
// delivered to the nearest OnError catcher up the owner chain — there is
// no Go call stack connecting a later write back to whatever Owner.Run
// created this observer, so ownership has to be walked explicitly rather
// than relying on panic/recover nesting. With no catcher anywhere in the
// chain it re-raises, same as before. Spec §4.6.
func (o *Observer) run() {
	h := &o.Header
	if h.Flags.has(Stopped) {
		o.fn()
		return
	}

	h.Flags.clear(Dirty | Pending)
	if o.owner != nil {
		o.owner.Dispose()
	}
	prev := o.tracker.StartTracking(o)

	var panicked bool
	var panicVal any
	runBody := func() {
		defer func() {
			if r := recover(); r != nil {
				panicked = true
				panicVal = r
			}
		}()
		o.fn()
	}
	if o.owner != nil {
		GetRuntime().RunWithOwner(o.owner, runBody)
	} else {
		runBody()
	}

	o.tracker.EndTracking(o, prev)

	if panicked {
		h.Flags.set(Dirty)
		if o.owner != nil {
			deliverPanic(o.owner, panicVal)
			return
		}
		panic(panicVal)
	}
}

// Pause suspends scheduling: the observer keeps its subscriptions and
// keeps accumulating Dirty/Pending, but dispatch no-ops until Resume.
func (o *Observer) Pause() { o.Header.Flags.set(Paused) }

// Resume clears Paused and, if Dirty or Pending accumulated while paused,
// dispatches directly rather than through Notify — Notify's own
// already-Dirty guard would otherwise swallow the very state Resume needs
// to act on.
func (o *Observer) Resume() {
	h := &o.Header
	h.Flags.clear(Paused)
	if h.Flags.has(Dirty) || h.Flags.has(Pending) {
		o.dispatch()
	}
}

// Stop idempotently tears down every dependency edge, marks Stopped, and
// invokes onStop. A second call is a no-op past a debug-mode warning.
// Spec §4.6/§7.
func (o *Observer) Stop() {
	h := &o.Header
	if h.Flags.has(Stopped) {
		warnf("reactor: Observer.Stop called on an already-stopped observer")
		return
	}
	h.Flags.set(Stopped)

	for l := h.depHead; l != nil; {
		l = unlink(l)
	}
	h.depHead, h.depTail = nil, nil
	h.subHead, h.subTail = nil, nil

	if o.owner != nil {
		o.owner.Dispose()
	}
	if o.forget != nil {
		o.forget(o)
	}
	if o.onStop != nil {
		o.onStop()
	}
}
