package core

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDelayedTaskRunner_RunsScheduledTask(t *testing.T) {
	// Setup
	runner := NewDelayedTaskRunner()
	defer runner.StopAll()
	done := make(chan struct{})

	// Act
	runner.Schedule("task-1", 10*time.Millisecond, func() { close(done) })

	// Assert
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduled task never ran")
	}
	assert.Eventually(t, func() bool { return runner.PendingCount() == 0 },
		time.Second, 10*time.Millisecond)
}

func TestDelayedTaskRunner_CancelPreventsRun(t *testing.T) {
	// Setup
	runner := NewDelayedTaskRunner()
	defer runner.StopAll()
	var ran atomic.Bool

	// Act
	runner.Schedule("task-1", 50*time.Millisecond, func() { ran.Store(true) })
	cancelled := runner.Cancel("task-1")
	time.Sleep(100 * time.Millisecond)

	// Assert
	assert.True(t, cancelled)
	assert.False(t, ran.Load())
	assert.Equal(t, 0, runner.PendingCount())
}

func TestDelayedTaskRunner_ReschedulingSameIDReplaces(t *testing.T) {
	// Setup
	runner := NewDelayedTaskRunner()
	defer runner.StopAll()
	var first, second atomic.Bool

	// Act
	runner.Schedule("task-1", 50*time.Millisecond, func() { first.Store(true) })
	runner.Schedule("task-1", 20*time.Millisecond, func() { second.Store(true) })
	time.Sleep(150 * time.Millisecond)

	// Assert
	assert.False(t, first.Load())
	assert.True(t, second.Load())
}

func TestDelayedTaskRunner_StopAllCancelsEverything(t *testing.T) {
	// Setup
	runner := NewDelayedTaskRunner()
	var ran atomic.Int32
	runner.Schedule("task-1", 50*time.Millisecond, func() { ran.Add(1) })
	runner.Schedule("task-2", 50*time.Millisecond, func() { ran.Add(1) })

	// Act
	runner.StopAll()
	time.Sleep(100 * time.Millisecond)

	// Assert
	assert.Equal(t, int32(0), ran.Load())
	assert.Equal(t, 0, runner.PendingCount())

	// Scheduling after stop is a no-op
	runner.Schedule("task-3", time.Millisecond, func() { ran.Add(1) })
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(0), ran.Load())
}

func TestCancelUnknownIDReturnsFalse(t *testing.T) {
	runner := NewDelayedTaskRunner()
	defer runner.StopAll()

	assert.False(t, runner.Cancel("nothing-here"))
}
