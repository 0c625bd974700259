// Package reactor is a fine-grained reactive runtime: Source, Derived, and
// Observer nodes connected by a versioned dependency graph, with lazy
// recomputation, depth-first change propagation, and a batching scheduler.
// Each goroutine gets its own runtime, lazily created on first use, so
// graphs built on different goroutines never interact.
package reactor

import (
	"reflect"

	"github.com/go-reactor/reactor/internal"
)

func as[T any](v any) T {
	if v == nil {
		var zero T
		return zero
	}
	return v.(T)
}

func currentTracker() *internal.Tracker { return internal.GetRuntime().Tracker() }

// EventType enumerates the debug hook event kinds delivered to
// onTrack/onTrigger callbacks.
type EventType = internal.EventType

const (
	EventGet     = internal.EventGet
	EventSet     = internal.EventSet
	EventAdd     = internal.EventAdd
	EventDelete  = internal.EventDelete
	EventClear   = internal.EventClear
	EventIterate = internal.EventIterate
)

// DebugEvent is the payload handed to a node's onTrack/onTrigger hook.
type DebugEvent struct {
	Target   any
	Type     EventType
	Key      any
	NewValue any
}

func wrapHook(fn func(DebugEvent)) func(internal.DebugEvent) {
	if fn == nil {
		return nil
	}
	return func(e internal.DebugEvent) {
		fn(DebugEvent{Target: e.Target, Type: e.Type, Key: e.Key, NewValue: e.NewValue})
	}
}

// DebugMode gates warnings for misuse that's cheap to ignore in production
// (write to a setter-less Derived, EndBatch called with depth zero, a
// second Stop on an already-stopped Observer) — silent by default. Spec
// §7. Go has no cross-package variable aliasing, so this forwards to the
// internal package's flag rather than being read directly by it.
var DebugMode bool

// SyncDebugMode pushes the current value of DebugMode down to the
// internal package. Call it after changing DebugMode; NewSource/
// NewDerived/NewObserver and friends do not read it automatically since
// there is no notification hook on a plain bool assignment.
func SyncDebugMode() { internal.DebugMode = DebugMode }

// Source is a reactive holder of a value that accepts writes without any
// user-defined recomputation. Spec §3/§4.4.
type Source[T any] struct {
	node *internal.Source
}

type sourceConfig struct {
	onTrack   func(DebugEvent)
	onTrigger func(DebugEvent)
}

// SourceOption configures a Source at construction time.
type SourceOption[T any] func(*sourceConfig)

func WithSourceOnTrack[T any](fn func(DebugEvent)) SourceOption[T] {
	return func(c *sourceConfig) { c.onTrack = fn }
}

func WithSourceOnTrigger[T any](fn func(DebugEvent)) SourceOption[T] {
	return func(c *sourceConfig) { c.onTrigger = fn }
}

// NewSource creates a read/write reactive value.
func NewSource[T any](initial T, opts ...SourceOption[T]) *Source[T] {
	return newSource[T](initial, false, opts...)
}

// NewShallowSource creates a Source whose value is treated as opaque by
// the container-proxy collaborator (spec §4.4) — the core itself makes no
// distinction in how it reads/writes/propagates.
func NewShallowSource[T any](initial T, opts ...SourceOption[T]) *Source[T] {
	return newSource[T](initial, true, opts...)
}

func newSource[T any](initial T, shallow bool, opts ...SourceOption[T]) *Source[T] {
	cfg := &sourceConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	n := internal.NewSource(initial, shallow)
	n.OnTrack = wrapHook(cfg.onTrack)
	n.OnTrigger = wrapHook(cfg.onTrigger)
	return &Source[T]{node: n}
}

// Value reads the current value, tracking the dependency if called from
// within an Observer or Derived evaluation.
func (s *Source[T]) Value() T { return as[T](s.node.Read(currentTracker())) }

// Peek reads the current value without tracking it as a dependency.
func (s *Source[T]) Peek() T { return as[T](s.node.Peek()) }

// Set writes a new value, propagating to subscribers if it differs from
// the current one under NaN-aware equality. Propagation only marks the
// graph; any observers it dirties run once this call's own flush runs,
// never mid-write, so a diamond dependency never sees a half-updated value.
func (s *Source[T]) Set(v T) {
	s.node.Write(v)
	internal.GetRuntime().Scheduler().FlushIfNeeded()
}

// Update reads the current value (untracked) and writes back fn's result.
func (s *Source[T]) Update(fn func(T) T) {
	s.node.Write(fn(as[T](s.node.Peek())))
	internal.GetRuntime().Scheduler().FlushIfNeeded()
}

func (s *Source[T]) IsShallow() bool { return s.node.IsShallow() }

type isSourceMarker interface{ isSource() }

func (s *Source[T]) isSource() {}

func (s *Source[T]) internalNode() internal.Node { return s.node }

// IsSource reports whether x is a *Source[T] for some T.
func IsSource(x any) bool {
	_, ok := x.(isSourceMarker)
	return ok
}

// Derived is a reactive holder whose value is produced by a getter over
// other reactive reads, lazily re-evaluated. Spec §3/§4.5.
type Derived[T any] struct {
	node *internal.Derived
}

type derivedConfig struct {
	onTrack   func(DebugEvent)
	onTrigger func(DebugEvent)
	setter    func(any)
}

// DerivedOption configures a Derived at construction time.
type DerivedOption[T any] func(*derivedConfig)

func WithDerivedOnTrack[T any](fn func(DebugEvent)) DerivedOption[T] {
	return func(c *derivedConfig) { c.onTrack = fn }
}

func WithDerivedOnTrigger[T any](fn func(DebugEvent)) DerivedOption[T] {
	return func(c *derivedConfig) { c.onTrigger = fn }
}

// WithSetter makes the Derived writable: Set(v) calls set(v) instead of
// being a no-op. Spec §4.5.
func WithSetter[T any](set func(T)) DerivedOption[T] {
	return func(c *derivedConfig) {
		c.setter = func(v any) { set(as[T](v)) }
	}
}

// NewDerived creates a lazily-evaluated, memoized computed value.
func NewDerived[T any](get func() T, opts ...DerivedOption[T]) *Derived[T] {
	cfg := &derivedConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	n := internal.NewDerived(func() any { return get() }, cfg.setter)
	n.OnTrack = wrapHook(cfg.onTrack)
	n.OnTrigger = wrapHook(cfg.onTrigger)
	return &Derived[T]{node: n}
}

// Value reads the (possibly recomputed) value, tracking the dependency.
func (d *Derived[T]) Value() T { return as[T](d.node.Read(currentTracker())) }

// Peek reads the (possibly recomputed) value without tracking it.
func (d *Derived[T]) Peek() T { return as[T](d.node.Peek(currentTracker())) }

// Set calls the setter supplied via WithSetter, or is a no-op (with a
// debug-mode warning) if none was supplied.
func (d *Derived[T]) Set(v T) { d.node.Set(v) }

type isDerivedMarker interface{ isDerived() }

func (d *Derived[T]) isDerived() {}

func (d *Derived[T]) internalNode() internal.Node { return d.node }

// IsDerived reports whether x is a *Derived[T] for some T.
func IsDerived(x any) bool {
	_, ok := x.(isDerivedMarker)
	return ok
}

// FlushTiming selects when an Observer re-runs relative to the write that
// dirtied it.
type FlushTiming = internal.FlushTiming

const (
	FlushDefault = internal.FlushDefault
	FlushSync    = internal.FlushSync
	FlushPre     = internal.FlushPre
	FlushPost    = internal.FlushPost
)

// Runner is the handle returned by NewObserver: the running side-effect,
// with manual re-run, lifecycle, and pause/resume controls. Spec §4.6.
type Runner struct {
	node *internal.Observer
}

type observerConfig struct {
	onTrack   func(DebugEvent)
	onTrigger func(DebugEvent)
	flush     FlushTiming
	custom    func(*Runner)
	onStop    func()
}

// ObserverOption configures an Observer at construction time.
type ObserverOption func(*observerConfig)

func WithObserverOnTrack(fn func(DebugEvent)) ObserverOption {
	return func(c *observerConfig) { c.onTrack = fn }
}

func WithObserverOnTrigger(fn func(DebugEvent)) ObserverOption {
	return func(c *observerConfig) { c.onTrigger = fn }
}

// WithFlush selects sync/pre/post flush timing instead of the default
// (synchronous outside a batch, coalesced at batch end inside one).
func WithFlush(timing FlushTiming) ObserverOption {
	return func(c *observerConfig) { c.flush = timing }
}

// WithScheduler installs a custom dispatcher, called instead of the
// built-in flush-timing logic whenever the observer is dirtied; it is
// responsible for eventually calling r.Run() or doing nothing at all.
func WithScheduler(fn func(r *Runner)) ObserverOption {
	return func(c *observerConfig) { c.custom = fn }
}

// WithOnStop registers a function called once, when the observer stops.
func WithOnStop(fn func()) ObserverOption {
	return func(c *observerConfig) { c.onStop = fn }
}

// NewObserver creates and immediately, synchronously runs a side effect
// that re-runs whenever a reactive value it read last time changes.
func NewObserver(fn func(), opts ...ObserverOption) *Runner {
	cfg := &observerConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	r := &Runner{}
	var custom func(*internal.Observer)
	if cfg.custom != nil {
		custom = func(*internal.Observer) { cfg.custom(r) }
	}

	rt := internal.GetRuntime()
	n := rt.NewObserver(fn, custom, cfg.flush, cfg.onStop)
	n.OnTrack = wrapHook(cfg.onTrack)
	n.OnTrigger = wrapHook(cfg.onTrigger)
	r.node = n
	return r
}

// Run forces a fresh evaluation regardless of dirty/pending state.
func (r *Runner) Run() { r.node.ForceRun() }

// Stop releases all of the observer's dependency edges and marks it
// terminal; it never schedules or evaluates again.
func (r *Runner) Stop() { r.node.Stop() }

func (r *Runner) IsActive() bool { return r.node.IsActive() }
func (r *Runner) IsPaused() bool { return r.node.IsPaused() }

// Pause suspends scheduling without releasing dependency edges.
func (r *Runner) Pause() { r.node.Pause() }

// Resume re-enables scheduling, immediately re-running if dirty/pending
// state accumulated while paused.
func (r *Runner) Resume() {
	r.node.Resume()
	internal.GetRuntime().Scheduler().FlushIfNeeded()
}

type isObserverMarker interface{ isObserver() }

func (r *Runner) isObserver() {}

func (r *Runner) internalNode() internal.Node { return r.node }

// IsObserver reports whether x is a *Runner.
func IsObserver(x any) bool {
	_, ok := x.(isObserverMarker)
	return ok
}

// Op enumerates the mutation kinds a container-proxy collaborator reports
// through Trigger. Spec §4.8.
type Op = internal.Op

const (
	OpSet    = internal.OpSet
	OpAdd    = internal.OpAdd
	OpDelete = internal.OpDelete
	OpClear  = internal.OpClear
)

// Track records that the currently evaluating Observer/Derived (if any)
// read (target, key) — the keyed-tracking contract for a container-proxy
// collaborator that models per-property reactivity over plain values
// (objects, slices, maps) without making every property its own Source.
// Spec §4.8.
func Track(target, key any) {
	internal.GetRuntime().Keyed().Track(target, key)
}

// Trigger notifies every subscriber recorded against (target, key) (and,
// for Add/Delete/Clear, the reserved iteration keys too) that it changed.
func Trigger(target any, op Op, key any, newValue any) {
	internal.GetRuntime().Keyed().Trigger(target, op, key, newValue)
	internal.GetRuntime().Scheduler().FlushIfNeeded()
}

// Untrack runs fn with dependency tracking suppressed: reads of Source/
// Derived values, or calls to Track, made inside fn add no edges.
func Untrack[T any](fn func() T) T {
	var result T
	internal.GetRuntime().Untrack(func() { result = fn() })
	return result
}

// Batch runs fn with writes coalesced: Observers dirtied during fn run
// once, after fn returns, instead of after each individual write.
func Batch(fn func()) { internal.GetRuntime().Scheduler().Batch(fn) }

// StartBatch/EndBatch are the unpaired form of Batch, for callers that
// can't structure the batched region as a single function literal.
func StartBatch() { internal.GetRuntime().Scheduler().StartBatch() }
func EndBatch()   { internal.GetRuntime().Scheduler().EndBatch() }

func IsBatching() bool { return internal.GetRuntime().Scheduler().IsBatching() }
func BatchDepth() int  { return internal.GetRuntime().Scheduler().BatchDepth() }

// funcKey returns a best-effort identity for fn, since Go function values
// are not comparable: two QueueJob calls whose fn shares the same
// underlying code pointer collapse into one queued job, matching spec
// §4.7's identity-based deduplication. Two distinct closures over the same
// function literal (e.g. created in a loop) share a code pointer and so
// also collapse — see DESIGN.md.
func funcKey(fn func()) uintptr {
	return reflect.ValueOf(fn).Pointer()
}

// QueueJob adds fn to the scheduler's job set, deduplicated by function
// identity; it runs at the next flush (immediately, if nothing outer is
// already batching or flushing).
func QueueJob(fn func()) {
	s := internal.GetRuntime().Scheduler()
	s.QueueJob(funcKey(fn), fn)
	s.FlushIfNeeded()
}

// QueuePreFlushCallback is QueueJob's counterpart for the pre-flush set,
// drained before the main job set on every flush.
func QueuePreFlushCallback(fn func()) {
	s := internal.GetRuntime().Scheduler()
	s.QueuePreFlushCallback(funcKey(fn), fn)
	s.FlushIfNeeded()
}

// NextTick runs fn (if non-nil) and returns a channel that is already
// closed by the time NextTick returns — there is no true microtask queue
// in this runtime, so "next tick" is synchronous. A panicking fn
// propagates out of NextTick directly.
func NextTick(fn func()) <-chan struct{} {
	return internal.GetRuntime().Scheduler().NextTick(fn)
}

// Owner is a disposal scope: reactive nodes and child owners created while
// Run is executing are torn down together when Dispose is called. Spec's
// §4.6 "onStop" presupposes some lifecycle container; this is it.
type Owner struct {
	node *internal.Owner
}

// NewOwner creates a disposal scope. If called from within another
// owner's Run, the new owner becomes that owner's child.
func NewOwner() *Owner {
	return &Owner{node: internal.GetRuntime().NewOwner()}
}

// Run executes fn with o as the current owner.
func (o *Owner) Run(fn func()) { o.node.Run(fn) }

// Dispose tears down every child owner and runs the cleanup/dispose
// chains registered on o.
func (o *Owner) Dispose() { o.node.Dispose() }

// OnCleanup registers fn to run once, the next time o is disposed.
func (o *Owner) OnCleanup(fn func()) { o.node.OnCleanup(fn) }

// OnDispose registers fn to run every time o is disposed.
func (o *Owner) OnDispose(fn func()) { o.node.OnDispose(fn) }

// OnError registers a panic handler for panics raised inside o.Run.
func (o *Owner) OnError(fn func(any)) { o.node.OnError(fn) }

// OnCleanup registers fn on the currently running owner, if any. A no-op
// outside of any Owner.Run.
func OnCleanup(fn func()) { internal.GetRuntime().OnCleanup(fn) }

// Context is a provide/read slot inherited through the owner tree.
type Context[T any] struct {
	ctx *internal.Context
}

// NewContext creates a context with a default value, used when no owner
// in the current chain has called Set.
func NewContext[T any](initial T) *Context[T] {
	return &Context[T]{ctx: internal.NewContext(initial)}
}

// Value reads the value bound on the nearest ancestor owner (including
// the current one) that called Set, or the default.
func (c *Context[T]) Value() T { return as[T](c.ctx.Value()) }

// Set binds value on the current owner. A no-op outside any Owner.Run.
func (c *Context[T]) Set(value T) { c.ctx.Set(value) }

// DumpGraph renders the dependency chain reachable from root as a tree,
// for debug logging. root must be a *Source[T], *Derived[T], or *Runner.
func DumpGraph(root any) string {
	n := unwrapNode(root)
	if n == nil {
		return ""
	}
	return internal.DumpGraph(n, nil)
}

func unwrapNode(x any) internal.Node {
	switch v := x.(type) {
	case interface{ internalNode() internal.Node }:
		return v.internalNode()
	}
	return nil
}
