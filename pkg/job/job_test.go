package job

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestStickyTerminalState implements I1: once a job reaches a terminal
// state, no subsequent transition attempt is observed to succeed.
func TestStickyTerminalState(t *testing.T) {
	j := New(KindForeground, "true")
	require.NoError(t, j.transition(Queued))
	require.NoError(t, j.transition(Starting))
	require.NoError(t, j.transition(Running))
	require.NoError(t, j.transition(Completed))

	assert.True(t, j.Status().Terminal())

	for _, to := range []Status{Running, Failed, Cancelled, TimedOut, ResourceExceeded, Queued} {
		err := j.transition(to)
		assert.ErrorIs(t, err, ErrInvalidStateTransition)
		assert.Equal(t, Completed, j.Status())
	}
}

func TestIllegalTransitionsRejected(t *testing.T) {
	j := New(KindForeground, "true")
	assert.ErrorIs(t, j.transition(Running), ErrInvalidStateTransition)
	assert.ErrorIs(t, j.transition(Completed), ErrInvalidStateTransition)
	assert.Equal(t, Pending, j.Status())
}

func TestCancelFromPendingAndQueued(t *testing.T) {
	j := New(KindForeground, "true")
	require.NoError(t, j.transition(Cancelled))
	assert.Equal(t, Cancelled, j.Status())

	j2 := New(KindForeground, "true")
	require.NoError(t, j2.transition(Queued))
	require.NoError(t, j2.transition(Cancelled))
	assert.Equal(t, Cancelled, j2.Status())
}

func TestRunningStoppedResume(t *testing.T) {
	j := New(KindBackground, "true")
	require.NoError(t, j.transition(Queued))
	require.NoError(t, j.transition(Starting))
	require.NoError(t, j.transition(Running))
	require.NoError(t, j.transition(Stopped))
	assert.False(t, j.Status().Terminal())
	require.NoError(t, j.transition(Running))
	require.NoError(t, j.transition(Completed))
}

func TestExecutionCountIncrementsOnEachRunningEntry(t *testing.T) {
	j := New(KindBackground, "true")
	require.NoError(t, j.transition(Queued))
	require.NoError(t, j.transition(Starting))
	require.NoError(t, j.transition(Running))
	assert.EqualValues(t, 1, j.ExecutionCount())

	require.NoError(t, j.transition(Stopped))
	require.NoError(t, j.transition(Running))
	assert.EqualValues(t, 2, j.ExecutionCount())
}

func TestOutputCaptureRespectsLimit(t *testing.T) {
	j := New(KindForeground, "echo hi", WithOutputLimit(8))
	dropped := j.appendStdout([]byte("0123456789"))
	assert.True(t, dropped)
	assert.Equal(t, 8, len(j.Stdout()))

	dropped = j.appendStdout([]byte("more"))
	assert.True(t, dropped)
	assert.Equal(t, 8, len(j.Stdout()))
}

func TestOutputDiscardedWhenSaveOutputFalse(t *testing.T) {
	j := New(KindForeground, "echo hi", WithSaveOutput(false))
	dropped := j.appendStdout([]byte("hello"))
	assert.False(t, dropped)
	assert.Empty(t, j.Stdout())
}

// TestSupervisorRunsToCompletion exercises the full Queued->Starting->
// Running->Completed path against a real short-lived process.
func TestSupervisorRunsToCompletion(t *testing.T) {
	j := New(KindForeground, "true")
	sup := NewSupervisor(j, DefaultSupervisorConfig())
	require.NoError(t, sup.Start(context.Background()))

	select {
	case <-j.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("job did not reach a terminal state in time")
	}

	assert.Equal(t, Completed, j.Status())
	require.NotNil(t, j.ExitCode())
	assert.Equal(t, 0, *j.ExitCode())
	require.NotNil(t, j.PID())
}

func TestSupervisorCapturesFailureExitCode(t *testing.T) {
	j := New(KindForeground, "false")
	sup := NewSupervisor(j, DefaultSupervisorConfig())
	require.NoError(t, sup.Start(context.Background()))

	<-j.Done()
	assert.Equal(t, Failed, j.Status())
	require.NotNil(t, j.ExitCode())
	assert.NotEqual(t, 0, *j.ExitCode())
}

func TestSupervisorCancel(t *testing.T) {
	j := New(KindBackground, "sleep 5")
	sup := NewSupervisor(j, DefaultSupervisorConfig())
	require.NoError(t, sup.Start(context.Background()))

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, sup.Cancel())

	select {
	case <-j.Done():
	case <-time.After(6 * time.Second):
		t.Fatal("cancelled job did not terminate")
	}
	assert.Equal(t, Cancelled, j.Status())
}

func TestSupervisorEnforcesMaxExecutionTime(t *testing.T) {
	limits := DefaultResourceLimits()
	limits.MaxExecutionTime = 200 * time.Millisecond
	j := New(KindBackground, "sleep 5", WithLimits(limits))
	sup := NewSupervisor(j, SupervisorConfig{PollInterval: 50 * time.Millisecond, KillGrace: time.Second})
	require.NoError(t, sup.Start(context.Background()))

	select {
	case <-j.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("job was not terminated by max execution time")
	}
	assert.Equal(t, TimedOut, j.Status())
}

func TestInvalidStateTransitionErrorIncludesStates(t *testing.T) {
	j := New(KindForeground, "true")
	require.NoError(t, j.transition(Queued))
	require.NoError(t, j.transition(Starting))
	require.NoError(t, j.transition(Running))
	require.NoError(t, j.transition(Completed))

	err := j.transition(Running)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "completed")
}
