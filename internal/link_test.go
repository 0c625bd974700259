package internal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func countLinks(head *Link, next func(*Link) *Link) int {
	n := 0
	for l := head; l != nil; l = next(l) {
		n++
	}
	return n
}

func TestLinkListConsistency(t *testing.T) {
	t.Run("three deps read in order form a matching dep/sub chain", func(t *testing.T) {
		tr := NewTracker()
		a := NewSource(1, false)
		b := NewSource(2, false)
		c := NewSource(3, false)

		var sum int
		obs := &fakeObserver{}
		prev := tr.StartTracking(obs)
		sum = a.Read(tr).(int) + b.Read(tr).(int) + c.Read(tr).(int)
		tr.EndTracking(obs, prev)

		assert.Equal(t, 6, sum)
		assert.Equal(t, 3, countLinks(obs.Header.depHead, func(l *Link) *Link { return l.nextDep }))
		assert.Equal(t, a.depTailLink(), (*Link)(nil)) // sources have no deps of their own

		// each source should have exactly one subscriber: obs
		assert.Equal(t, 1, countLinks(a.subHead, func(l *Link) *Link { return l.nextSub }))
		assert.Equal(t, 1, countLinks(b.subHead, func(l *Link) *Link { return l.nextSub }))
		assert.Equal(t, 1, countLinks(c.subHead, func(l *Link) *Link { return l.nextSub }))

		// walking the dep chain from head should visit a, b, c in read order
		var seen []*Source
		for l := obs.Header.depHead; l != nil; l = l.nextDep {
			seen = append(seen, l.dep.(*Source))
		}
		assert.Equal(t, []*Source{a, b, c}, seen)
	})

	t.Run("unlink fixes up neighbor pointers and head/tail", func(t *testing.T) {
		tr := NewTracker()
		a := NewSource(1, false)
		b := NewSource(2, false)

		obs := &fakeObserver{}
		prev := tr.StartTracking(obs)
		a.Read(tr)
		b.Read(tr)
		tr.EndTracking(obs, prev)

		// drop the dependency on a by unlinking it directly
		l := obs.Header.depHead
		assert.Equal(t, Node(a), l.dep)
		unlink(l)

		assert.Equal(t, 1, countLinks(obs.Header.depHead, func(l *Link) *Link { return l.nextDep }))
		assert.Equal(t, Node(b), obs.Header.depHead.dep)
		assert.Nil(t, a.subHead)
		assert.Nil(t, a.subTail)
	})

	t.Run("stale edges from a prior generation are swept on re-tracking", func(t *testing.T) {
		tr := NewTracker()
		a := NewSource(1, false)
		b := NewSource(2, false)

		obs := &fakeObserver{}
		prev := tr.StartTracking(obs)
		a.Read(tr)
		b.Read(tr)
		tr.EndTracking(obs, prev)
		assert.Equal(t, 2, countLinks(obs.Header.depHead, func(l *Link) *Link { return l.nextDep }))

		// second generation only reads a: b's edge must be swept
		prev = tr.StartTracking(obs)
		a.Read(tr)
		tr.EndTracking(obs, prev)

		assert.Equal(t, 1, countLinks(obs.Header.depHead, func(l *Link) *Link { return l.nextDep }))
		assert.Equal(t, Node(a), obs.Header.depHead.dep)
		assert.Nil(t, b.subHead, "b's subscriber edge should have been unlinked along with the stale dep edge")
	})

	t.Run("re-reading the same dep in the same generation reuses the link", func(t *testing.T) {
		tr := NewTracker()
		a := NewSource(1, false)

		obs := &fakeObserver{}
		prev := tr.StartTracking(obs)
		a.Read(tr)
		l2 := tr.Link(a)
		tr.EndTracking(obs, prev)

		assert.Equal(t, 1, countLinks(obs.Header.depHead, func(l *Link) *Link { return l.nextDep }))
		assert.Same(t, obs.Header.depHead, l2, "re-reading a already-linked dep in the same generation returns the existing link")
	})
}

// fakeObserver is a minimal Watching node for exercising Tracker/link
// behavior without pulling in the Observer/Scheduler machinery.
type fakeObserver struct {
	Header
}

func (o *fakeObserver) scheduleSelf() {}

func (s *Source) depTailLink() *Link { return s.Header.depTail }
