package reactor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// These mirror the six end-to-end scenarios used to validate the runtime
// as a whole, one subtest each, rather than any single component.

func TestScenarios(t *testing.T) {
	t.Run("Counter", func(t *testing.T) {
		var log []int
		a := NewSource(0)

		runner := NewObserver(func() { log = append(log, a.Value()) })
		defer runner.Stop()
		assert.Equal(t, []int{0}, log)

		a.Set(1)
		assert.Equal(t, []int{0, 1}, log)

		a.Set(1) // unchanged: no additional log
		assert.Equal(t, []int{0, 1}, log)
	})

	t.Run("Derived memoization", func(t *testing.T) {
		calls := 0
		a := NewSource(2)
		d := NewDerived(func() int {
			calls++
			return a.Value() * 10
		})

		assert.Equal(t, 20, d.Value())
		assert.Equal(t, 20, d.Value())
		assert.Equal(t, 1, calls, "two reads with nothing dirtying a in between call the getter once")

		a.Set(2) // same value: no-op write
		assert.Equal(t, 20, d.Value())
		assert.Equal(t, 1, calls, "a same-value write never dirties d")

		a.Set(3)
		assert.Equal(t, 30, d.Value())
		assert.Equal(t, 2, calls)
	})

	t.Run("Diamond", func(t *testing.T) {
		var log []int
		s := NewSource(1)
		c1 := NewDerived(func() int { return s.Value() + 1 })
		c2 := NewDerived(func() int { return s.Value() + 2 })
		c3 := NewDerived(func() int { return c1.Value() + c2.Value() })

		runner := NewObserver(func() { log = append(log, c3.Value()) })
		defer runner.Stop()
		assert.Equal(t, []int{5}, log)

		Batch(func() { s.Set(2) })
		assert.Equal(t, []int{5, 7}, log, "the observer fires exactly once for the batched write")
	})

	t.Run("Branch switching", func(t *testing.T) {
		var log []int
		cond := NewSource(true)
		a := NewSource(0)
		b := NewSource(0)

		runner := NewObserver(func() {
			if cond.Value() {
				log = append(log, a.Value())
			} else {
				log = append(log, b.Value())
			}
		})
		defer runner.Stop()
		assert.Equal(t, []int{0}, log)

		a.Set(1)
		assert.Equal(t, []int{0, 1}, log)

		b.Set(1) // not a dependency yet: no log
		assert.Equal(t, []int{0, 1}, log)

		cond.Set(false)
		assert.Equal(t, []int{0, 1, 1}, log)

		a.Set(2) // no longer a dependency: no log
		assert.Equal(t, []int{0, 1, 1}, log)

		b.Set(2)
		assert.Equal(t, []int{0, 1, 1, 2}, log)
	})

	t.Run("Batch of many writes", func(t *testing.T) {
		calls := 0
		var last int
		x := NewSource(0)

		runner := NewObserver(func() {
			calls++
			last = x.Value()
		})
		defer runner.Stop()
		assert.Equal(t, 1, calls)

		Batch(func() {
			for i := 1; i < 100; i++ {
				x.Set(i)
			}
		})

		assert.Equal(t, 2, calls, "ninety-nine writes in one batch settle into a single extra run")
		assert.Equal(t, 99, last, "the observer sees only the last value written before the batch flushed")
	})

	t.Run("Cycle through effects", func(t *testing.T) {
		a := NewSource(0)
		b := NewSource(0)
		aRuns, bRuns := 0, 0

		runA := NewObserver(func() {
			aRuns++
			if a.Value() < 3 {
				b.Set(a.Value() + 1)
			}
		})
		defer runA.Stop()

		runB := NewObserver(func() {
			bRuns++
			if b.Value() < 3 {
				a.Set(b.Value() + 1)
			}
		})
		defer runB.Stop()

		a.Set(1)

		assert.Less(t, aRuns, 10, "the a<3/b<3 bound keeps the mutual trigger finite")
		assert.Less(t, bRuns, 10)
	})
}
