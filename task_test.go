package ioruntime

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOperationContinueChainReachesEnd(t *testing.T) {
	var steps []int
	step3 := func(t *Task) StepResult {
		steps = append(steps, 3)
		return End(Success(42))
	}
	step2 := func(t *Task) StepResult {
		steps = append(steps, 2)
		return Continue(step3)
	}
	step1 := func(t *Task) StepResult {
		steps = append(steps, 1)
		return Continue(step2)
	}

	task := NewTask(step1)
	w := &Worker{}
	task.poll(w)

	require.Equal(t, []int{1, 2, 3}, steps, "Continue must drive the whole chain in one poll call")
	require.Equal(t, TaskCompleted, task.State())
	res, err := (&JoinHandle{task: task}).Await(context.Background())
	require.NoError(t, err)
	require.Equal(t, 42, res.Value)
	require.NoError(t, res.Err)
}

func TestTaskEndWithFailure(t *testing.T) {
	sentinel := errors.New("boom")
	task := NewTask(func(t *Task) StepResult {
		return End(Failure(sentinel))
	})
	task.poll(&Worker{})

	require.Equal(t, TaskCompleted, task.State())
	res, err := (&JoinHandle{task: task}).Await(context.Background())
	require.NoError(t, err)
	require.ErrorIs(t, res.Err, sentinel)
}

func TestTaskCancellationObservedBeforeRun(t *testing.T) {
	ran := false
	task := NewTask(func(t *Task) StepResult {
		ran = true
		return End(Success(nil))
	})
	task.cancelRequested.Store(true)

	task.poll(&Worker{})

	require.False(t, ran, "a task cancelled before it ever runs must not execute its operation")
	require.Equal(t, TaskCancelled, task.State())
	res, err := (&JoinHandle{task: task}).Await(context.Background())
	require.NoError(t, err)
	require.ErrorIs(t, res.Err, ErrCancelled)
}

func TestTaskPanicIsolatedToPanicError(t *testing.T) {
	task := NewTask(func(t *Task) StepResult {
		panic("computation blew up")
	})
	task.poll(&Worker{})

	require.Equal(t, TaskCompleted, task.State())
	var panicErr *PanicError
	require.ErrorAs(t, task.result.Err, &panicErr)
	require.Equal(t, "computation blew up", panicErr.Value)
}

func TestTaskPanicWithErrorValueUnwraps(t *testing.T) {
	cause := errors.New("root cause")
	task := NewTask(func(t *Task) StepResult {
		panic(cause)
	})
	task.poll(&Worker{})

	require.ErrorIs(t, task.result.Err, cause)
}

func TestTaskCompleteIsIdempotent(t *testing.T) {
	task := NewTask(nil)
	task.complete(Success(1), TaskCompleted)
	task.complete(Success(2), TaskCancelled)

	require.Equal(t, TaskCompleted, task.State(), "the first complete() call wins")
	require.Equal(t, 1, task.result.Value)
}

func TestJoinHandleAwaitRespectsContextCancellation(t *testing.T) {
	task := NewTask(nil) // never completed
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := (&JoinHandle{task: task}).Await(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.Zero(t, res)
}

func TestJoinHandleStateAndDone(t *testing.T) {
	task := NewTask(func(t *Task) StepResult {
		return End(Success("done"))
	})
	handle := &JoinHandle{task: task}
	require.Equal(t, TaskIdle, handle.State())

	task.poll(&Worker{})

	require.Equal(t, TaskCompleted, handle.State())
	select {
	case <-handle.Done():
	default:
		t.Fatal("Done() channel must be closed once the task is terminal")
	}
}

func TestJoinHandleCancelSetsFlag(t *testing.T) {
	task := NewTask(nil)
	handle := &JoinHandle{task: task}
	require.False(t, task.CancelRequested())
	handle.Cancel()
	require.True(t, task.CancelRequested())
}
