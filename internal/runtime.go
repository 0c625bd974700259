package internal

// Runtime bundles everything that, per spec §2/§5, is "process-wide (or
// task-local in multi-threaded variants)": a Tracker, a Scheduler, a
// KeyedTracker, and the current-owner stack. Each goroutine gets its own
// Runtime via GetRuntime (see runtime_default.go/runtime_wasm.go), so none
// of this state needs locking.
type Runtime struct {
	tracker      *Tracker
	scheduler    *Scheduler
	keyed        *KeyedTracker
	currentOwner *Owner
}

func NewRuntime() *Runtime {
	tr := NewTracker()
	return &Runtime{
		tracker:   tr,
		scheduler: NewScheduler(),
		keyed:     NewKeyedTracker(tr),
	}
}

func (r *Runtime) Tracker() *Tracker           { return r.tracker }
func (r *Runtime) Scheduler() *Scheduler       { return r.scheduler }
func (r *Runtime) Keyed() *KeyedTracker        { return r.keyed }
func (r *Runtime) CurrentOwner() *Owner        { return r.currentOwner }
func (r *Runtime) CurrentSubscriber() Node     { return r.tracker.Current() }

func (r *Runtime) NewSource(initial any, shallow bool) *Source {
	return NewSource(initial, shallow)
}

func (r *Runtime) NewDerived(getter func() any, setter func(any)) *Derived {
	return NewDerived(getter, setter)
}

// NewObserver creates the Observer's own disposal scope as a child of
// whatever owner is current (if any) and passes it through so every run
// gets a clean slate for OnCleanup/nested Observers, per spec's Owner
// supplement. If an owner was current at construction, disposing it stops
// this Observer too — Owner.Dispose()'s own child-teardown only reaches
// the run-scope owner's cleanups, not the Observer struct itself, so the
// stop is wired in separately via OnDispose.
func (r *Runtime) NewObserver(fn func(), custom func(*Observer), flush FlushTiming, onStop func()) *Observer {
	parent := r.currentOwner
	runOwner := r.NewOwner()
	o := NewObserver(r.tracker, r.scheduler, r.keyed, runOwner, fn, custom, flush, onStop)
	if parent != nil {
		parent.OnDispose(func() { o.Stop() })
	}
	return o
}

func (r *Runtime) Untrack(fn func()) { r.tracker.Untracked(fn) }

func (r *Runtime) NewContext(initial any) *Context { return NewContext(initial) }

// NewOwner creates an owner; if one is already current (this call happened
// inside another owner's Run), the new owner is registered as its child so
// disposing the outer owner disposes this one too.
func (r *Runtime) NewOwner() *Owner {
	o := &Owner{context: make(map[any]any)}
	if r.currentOwner != nil {
		r.currentOwner.AddChild(o)
	}
	return o
}

// RunWithOwner installs o as the current owner for the duration of fn,
// restoring whatever owner was current before. Child owners created while
// fn runs should AddChild themselves onto o; this method only manages the
// ambient "which owner is current" pointer, mirroring what StartTracking/
// EndTracking do for dependency tracking's current subscriber.
func (r *Runtime) RunWithOwner(o *Owner, fn func()) {
	prev := r.currentOwner
	r.currentOwner = o
	defer func() { r.currentOwner = prev }()
	fn()
}

func (r *Runtime) OnCleanup(fn func()) {
	if o := r.currentOwner; o != nil {
		o.OnCleanup(fn)
	}
}

func (r *Runtime) Batch(fn func()) { r.scheduler.Batch(fn) }
