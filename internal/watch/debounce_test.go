package watch

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDebouncerCollapsesBurst(t *testing.T) {
	t.Parallel()

	var runs atomic.Int32
	d := NewDebouncer(30 * time.Millisecond)
	for i := 0; i < 5; i++ {
		d.Trigger(func() { runs.Add(1) })
		time.Sleep(5 * time.Millisecond)
	}

	assert.Eventually(t, func() bool { return runs.Load() == 1 }, time.Second, 10*time.Millisecond)
	// No second firing after the quiet period.
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(1), runs.Load())
}

func TestDebouncerCancel(t *testing.T) {
	t.Parallel()

	var runs atomic.Int32
	d := NewDebouncer(20 * time.Millisecond)
	d.Trigger(func() { runs.Add(1) })
	d.Cancel()

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(0), runs.Load())
}

func TestDebouncerFlushRunsImmediately(t *testing.T) {
	t.Parallel()

	var runs atomic.Int32
	d := NewDebouncer(time.Hour)
	d.Trigger(func() { runs.Add(1) })
	d.Flush()

	assert.Equal(t, int32(1), runs.Load())

	// Flush with nothing pending is a no-op.
	d.Flush()
	assert.Equal(t, int32(1), runs.Load())
}
