package reactor

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBatch(t *testing.T) {
	t.Run("batches multiple writes into one run", func(t *testing.T) {
		var log []string
		count := NewSource(0)

		runner := NewObserver(func() {
			log = append(log, fmt.Sprintf("changed %d", count.Value()))
			OnCleanup(func() { log = append(log, "cleanup") })
		})
		defer runner.Stop()

		Batch(func() {
			count.Set(10)
			count.Set(20)
			log = append(log, "updated")
		})

		assert.Equal(t, []string{
			"changed 0",
			"updated",
			"cleanup",
			"changed 20",
		}, log)
	})

	t.Run("batches writes to multiple sources", func(t *testing.T) {
		var log []string
		count := NewSource(0)
		double := NewSource(0)

		r1 := NewObserver(func() {
			log = append(log, fmt.Sprintf("count %d", count.Value()))
			OnCleanup(func() { log = append(log, "count cleanup") })
		})
		defer r1.Stop()

		r2 := NewObserver(func() {
			log = append(log, fmt.Sprintf("double %d", double.Value()))
			OnCleanup(func() { log = append(log, "double cleanup") })
		})
		defer r2.Stop()

		Batch(func() {
			count.Set(10)
			double.Set(count.Value() * 2)
			log = append(log, "updated")
		})

		assert.Equal(t, []string{
			"count 0",
			"double 0",
			"updated",
			"count cleanup",
			"count 10",
			"double cleanup",
			"double 20",
		}, log)
	})

	t.Run("nested batches flush once at the outermost end", func(t *testing.T) {
		var log []string
		count := NewSource(0)

		runner := NewObserver(func() {
			log = append(log, fmt.Sprintf("changed %d", count.Value()))
			OnCleanup(func() { log = append(log, "cleanup") })
		})
		defer runner.Stop()

		Batch(func() {
			count.Set(10)
			Batch(func() {
				count.Set(20)
			})
			log = append(log, "updated")
		})

		assert.Equal(t, []string{
			"changed 0",
			"updated",
			"cleanup",
			"changed 20",
		}, log)
	})

	t.Run("StartBatch/EndBatch pair without a closure", func(t *testing.T) {
		var ran int
		count := NewSource(0)
		runner := NewObserver(func() { ran++; count.Value() })
		defer runner.Stop()
		assert.Equal(t, 1, ran)

		StartBatch()
		assert.True(t, IsBatching())
		assert.Equal(t, 1, BatchDepth())
		count.Set(1)
		count.Set(2)
		assert.Equal(t, 1, ran, "writes inside the batch don't run the observer yet")
		EndBatch()

		assert.False(t, IsBatching())
		assert.Equal(t, 2, ran)
	})
}
