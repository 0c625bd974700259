package internal

// propagate walks the subscriber subgraph reachable from link depth-first,
// using an explicit stack of "resume at this sibling" frames instead of the
// call stack, so depth is unbounded. Spec §4.3.
func propagate(link *Link) {
	var stack []*Link

	next := link
	for next != nil {
		l := next
		sub := l.sub
		h := sub.head()
		flags := h.Flags

		descend := false

		switch {
		case flags&(Dirty|Pending|Recursed|RecursedCheck) == 0:
			h.Flags.set(Pending)
			maybeEnqueue(sub, h)
			descend = flags.has(Mutable)

		case flags&(Dirty|Pending) != 0 && flags&(Recursed|RecursedCheck) == 0:
			// already propagated along this path; skip downward.

		case flags.has(Recursed) && !flags.has(RecursedCheck):
			h.Flags.clear(Recursed)
			h.Flags.set(Pending)

		case flags.has(RecursedCheck) &&
			flags&(Dirty|Pending|Recursed) == 0 &&
			isValidLink(l, sub):
			h.Flags.set(Recursed | Pending)
			maybeEnqueue(sub, h)
			descend = flags.has(Mutable)

		default:
			// stop: neither dirty, nor eligible to re-enter.
		}

		if descend && h.subHead != nil {
			stack = append(stack, l.nextSub)
			next = h.subHead
			continue
		}

		next = l.nextSub
		for next == nil && len(stack) > 0 {
			next = stack[len(stack)-1]
			stack = stack[:len(stack)-1]
		}
	}
}

// shallowPropagate is the one-level variant fired after a Derived's value
// genuinely changes: every direct subscriber whose flags are exactly
// Pending (not yet Dirty) becomes Dirty, and is enqueued if Watching and
// not currently evaluating. It never re-descends into Mutable subs — a
// later propagate or checkDirty traversal handles those. Spec §4.3.
func shallowPropagate(link *Link) {
	for l := link; l != nil; l = l.nextSub {
		h := l.sub.head()
		if h.Flags&(Dirty|Pending) != Pending {
			continue
		}
		h.Flags.clear(Pending)
		h.Flags.set(Dirty)
		if h.Flags.has(Watching) && !h.Flags.has(RecursedCheck) {
			maybeEnqueue(l.sub, h)
		}
	}
}

// maybeEnqueue hands a Watching node to the scheduler, deduplicated via the
// Queued flag (spec §3: "Queued ... cleared exactly when the job begins
// executing").
func maybeEnqueue(sub Node, h *Header) {
	if !h.Flags.has(Watching) || h.Flags.has(Queued) {
		return
	}
	if s, ok := sub.(scheduled); ok {
		h.Flags.set(Queued)
		s.scheduleSelf()
	}
}

// checkDirty determines whether sub must recompute by walking sub's
// dependency chain, descending into Mutable|Pending deps with an explicit
// stack (never the call stack). Spec §4.2.
func checkDirty(startLink *Link, sub Node) bool {
	var stack []*Link
	var pendingNodes []Node
	var dirtyDep Node

	link := startLink
	dirty := false

outer:
	for {
		for link != nil {
			dep := link.dep
			dh := dep.head()

			switch {
			case dh.Flags.has(Mutable) && dh.Flags.has(Dirty):
				dirty = true
				dirtyDep = dep
				break outer

			case dh.Flags.has(Mutable) && dh.Flags.has(Pending) && dh.depHead != nil:
				stack = append(stack, link.nextDep)
				pendingNodes = append(pendingNodes, dep)
				link = dh.depHead
				continue

			case dh.Flags.has(Pending):
				dh.Flags.clear(Pending)
			}

			link = link.nextDep
		}

		if len(stack) == 0 {
			break
		}
		link = stack[len(stack)-1]
		stack = stack[:len(stack)-1]
	}

	if dirty {
		for _, n := range pendingNodes {
			nh := n.head()
			nh.Flags.clear(Pending)
			nh.Flags.set(Dirty)
		}
		if sh := dirtyDep.head(); sh.subHead != nil {
			shallowPropagate(sh.subHead)
		}
		return true
	}

	for _, n := range pendingNodes {
		n.head().Flags.clear(Pending)
	}
	sub.head().Flags.clear(Pending)
	return false
}
