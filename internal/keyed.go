package internal

// Reserved iteration keys a container-proxy collaborator uses for
// operations that affect shape rather than a single property. Spec §3
// KeyedTracker table / §4.8.
const (
	KeyIterate      = "@@iterate"
	KeyArrayIterate = "@@arrayIterate"
	KeyCollection   = "@@collection"
)

// Op enumerates the mutation kinds a container-proxy collaborator reports
// through trigger. Spec §4.8.
type Op int

const (
	OpSet Op = iota
	OpAdd
	OpDelete
	OpClear
)

type keyedEntry struct {
	subs map[Node]struct{}
}

// KeyedTracker is the auxiliary target → key → subscriber-set table used
// by a container-proxy collaborator to track per-property reads and fire
// per-property writes without those properties being Sources themselves.
// Spec §3/§4.8.
type KeyedTracker struct {
	tracker *Tracker
	table   map[any]map[any]*keyedEntry
}

func NewKeyedTracker(t *Tracker) *KeyedTracker {
	return &KeyedTracker{tracker: t, table: make(map[any]map[any]*keyedEntry)}
}

// Track records that the current subscriber (if any, and if tracking
// isn't suppressed) read (target, key), creating the target/key entry on
// first use. A no-op outside of tracking. Spec §4.8.
func (kt *KeyedTracker) Track(target, key any) {
	sub := kt.tracker.currentSubscriber
	if kt.tracker.untracked || sub == nil {
		return
	}

	byKey, ok := kt.table[target]
	if !ok {
		byKey = make(map[any]*keyedEntry)
		kt.table[target] = byKey
	}
	entry, ok := byKey[key]
	if !ok {
		entry = &keyedEntry{subs: make(map[Node]struct{})}
		byKey[key] = entry
	}
	entry.subs[sub] = struct{}{}

	if cb := sub.head().OnTrack; cb != nil {
		cb(DebugEvent{Target: target, Type: EventGet, Key: key})
	}
}

// Untrack runs fn with the tracking gate suppressed and no current
// subscriber, restoring both afterward. Spec §4.1/§4.8.
func (kt *KeyedTracker) Untrack(fn func()) {
	t := kt.tracker
	prevSub := t.currentSubscriber
	prevUntracked := t.untracked
	t.currentSubscriber = nil
	t.untracked = true
	defer func() {
		t.currentSubscriber = prevSub
		t.untracked = prevUntracked
	}()
	fn()
}

// Trigger delivers a notification to every subscriber recorded against
// (target, key), equivalent in effect to propagate from a Source write:
// a Watching subscriber is notified directly, a Mutable one is marked
// Dirty and propagated from its subscriber chain. Add/Delete/Clear also
// reach subscribers registered against the reserved iteration keys, since
// those operations change shape rather than a single property. A key that
// is a slice (array index writes) notifies each of its elements; the
// reserved iteration keys are added only for Add/Delete/Clear. Spec §4.8.
func (kt *KeyedTracker) Trigger(target any, op Op, key any, newValue any) {
	seen := make(map[Node]struct{})

	for _, k := range kt.triggerKeys(op, key) {
		entry := kt.entryFor(target, k)
		if entry == nil {
			continue
		}
		for sub := range entry.subs {
			if _, done := seen[sub]; done {
				continue
			}
			seen[sub] = struct{}{}
			kt.notify(sub, newValue)
		}
	}
}

func (kt *KeyedTracker) triggerKeys(op Op, key any) []any {
	var keys []any
	if ks, ok := key.([]any); ok {
		keys = append(keys, ks...)
	} else if key != nil {
		keys = append(keys, key)
	}

	switch op {
	case OpAdd, OpDelete, OpClear:
		keys = append(keys, KeyIterate, KeyArrayIterate, KeyCollection)
	}
	return keys
}

func (kt *KeyedTracker) entryFor(target, key any) *keyedEntry {
	byKey, ok := kt.table[target]
	if !ok {
		return nil
	}
	return byKey[key]
}

func (kt *KeyedTracker) notify(sub Node, newValue any) {
	h := sub.head()
	if s, ok := sub.(*Observer); ok {
		s.Notify()
		return
	}
	h.Flags.set(Dirty)
	if cb := h.OnTrigger; cb != nil {
		cb(DebugEvent{Target: sub, Type: EventSet, NewValue: newValue})
	}
	if h.subHead != nil {
		propagate(h.subHead)
	}
}

// Forget drops a subscriber from every (target, key) entry it appears in,
// called when an Observer stops so the table never pins a dead node.
// Spec §8 "After stop(observer) ... the observer is absent from every
// KeyedTracker set."
func (kt *KeyedTracker) Forget(sub Node) {
	for target, byKey := range kt.table {
		for key, entry := range byKey {
			delete(entry.subs, sub)
			if len(entry.subs) == 0 {
				delete(byKey, key)
			}
		}
		if len(byKey) == 0 {
			delete(kt.table, target)
		}
	}
}
