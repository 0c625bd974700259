package internal

// Link is a versioned edge connecting a dependency node to a subscriber
// node. It is a member of two doubly-linked lists at once: the dep's
// subscriber chain (prevSub/nextSub) and the sub's dependency chain
// (prevDep/nextDep). See spec §3.
type Link struct {
	version int

	dep Node
	sub Node

	prevSub, nextSub *Link
	prevDep, nextDep *Link
}

// unlink removes l from both doubly-linked lists it belongs to, fixing up
// the four neighbor pointers and both nodes' head/tail pointers. If this
// was the dep's last subscriber and the dep is itself a Derived, the dep
// cascades: its own dependency edges are unlinked recursively and it is
// marked Dirty so a future read recomputes it. Returns l.nextDep, so
// callers can use unlink in a cleanup loop (endTracking, stop, dispose).
func unlink(l *Link) *Link {
	depNode := l.dep
	sub := l.sub.head()
	dep := depNode.head()

	next := l.nextDep

	// unsplice from sub's dependency chain
	if l.prevDep != nil {
		l.prevDep.nextDep = l.nextDep
	} else {
		sub.depHead = l.nextDep
	}
	if l.nextDep != nil {
		l.nextDep.prevDep = l.prevDep
	} else {
		sub.depTail = l.prevDep
	}

	// unsplice from dep's subscriber chain
	if l.prevSub != nil {
		l.prevSub.nextSub = l.nextSub
	} else {
		dep.subHead = l.nextSub
	}
	if l.nextSub != nil {
		l.nextSub.prevSub = l.prevSub
	} else {
		dep.subTail = l.prevSub
	}

	l.dep, l.sub = nil, nil
	l.prevDep, l.nextDep, l.prevSub, l.nextSub = nil, nil, nil, nil

	if dep.subHead == nil {
		if c, ok := depNode.(cascader); ok {
			c.cascadeOnEmptySubs()
		}
	}

	return next
}

// cascader is implemented by node kinds whose dependency edges must be
// torn down once their last subscriber goes away — in this graph, only
// Derived (spec §4.1: "If removing this Link makes the dep's subscriber
// chain empty, then the dep, when it is a Derived, cascades").
type cascader interface {
	cascadeOnEmptySubs()
}
