package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/taskgrid/internal/protocol"
	"github.com/vk/taskgrid/internal/taskid"
)

func compute(id taskid.TaskID, user, sched taskid.PriorityValue) *protocol.ComputeTask {
	return &protocol.ComputeTask{ID: id, Spec: []byte("x"), UserPriority: user, SchedulerPriority: sched}
}

func mustNext(t *testing.T, w *Worker) *protocol.ComputeTask {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	task, err := w.Next(ctx)
	require.NoError(t, err)
	return task
}

func TestQueueOrder(t *testing.T) {
	ctx := context.Background()
	w := New()

	w.Handle(ctx, compute(1, 0, 0))
	w.Handle(ctx, compute(2, 5, 0))
	w.Handle(ctx, compute(3, 5, 9))
	w.Handle(ctx, compute(4, -1, 100))
	w.Handle(ctx, compute(5, 0, 0))

	assert.Equal(t, []taskid.TaskID{3, 2, 1, 5, 4}, w.Queued())
	for _, want := range []taskid.TaskID{3, 2, 1, 5, 4} {
		assert.Equal(t, want, mustNext(t, w).ID)
	}
	assert.Equal(t, []taskid.TaskID{1, 2, 3, 4, 5}, w.Running())
	assert.Empty(t, w.Queued())
}

func TestDuplicateComputeTaskIsIgnored(t *testing.T) {
	ctx := context.Background()
	w := New()

	w.Handle(ctx, compute(1, 0, 0))
	w.Handle(ctx, compute(1, 9, 9))
	assert.Equal(t, []taskid.TaskID{1}, w.Queued())

	mustNext(t, w)
	w.Handle(ctx, compute(1, 0, 0))
	assert.Empty(t, w.Queued(), "a running task is not queued again")
}

func TestStealAnswers(t *testing.T) {
	ctx := context.Background()
	w := New()

	w.Handle(ctx, compute(5, 9, 0))
	w.Handle(ctx, compute(6, 0, 0))
	require.Equal(t, taskid.TaskID(5), mustNext(t, w).ID)

	replies := w.Handle(ctx, &protocol.StealTasks{IDs: []taskid.TaskID{5, 6, 7}})
	require.Len(t, replies, 1)
	assert.Equal(t, &protocol.StealResponse{Responses: []protocol.StealResponseEntry{
		protocol.NewStealResponseEntry(5, protocol.StealRunning),
		protocol.NewStealResponseEntry(6, protocol.StealOk),
		protocol.NewStealResponseEntry(7, protocol.StealNotHere),
	}}, replies[0])

	assert.Empty(t, w.Queued())
	assert.Equal(t, []taskid.TaskID{5}, w.Running())

	// A stolen task can never produce a result here.
	_, ok := w.Complete(6, 1)
	assert.False(t, ok)
	_, ok = w.Fail(6, nil)
	assert.False(t, ok)

	again := w.Handle(ctx, &protocol.StealTasks{IDs: []taskid.TaskID{6}})
	assert.Equal(t, protocol.StealNotHere, again[0].(*protocol.StealResponse).Responses[0].Outcome)
}

func TestStealRacesNext(t *testing.T) {
	ctx := context.Background()

	for i := 0; i < 50; i++ {
		w := New()
		w.Handle(ctx, compute(1, 0, 0))

		var (
			wg      sync.WaitGroup
			started bool
			outcome protocol.StealOutcome
		)
		wg.Add(2)
		go func() {
			defer wg.Done()
			nctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
			defer cancel()
			_, err := w.Next(nctx)
			started = err == nil
		}()
		go func() {
			defer wg.Done()
			reply := w.Handle(ctx, &protocol.StealTasks{IDs: []taskid.TaskID{1}})
			outcome = reply[0].(*protocol.StealResponse).Responses[0].Outcome
		}()
		wg.Wait()

		if started {
			assert.Equal(t, protocol.StealRunning, outcome)
			_, ok := w.Complete(1, 0)
			assert.True(t, ok)
		} else {
			assert.Equal(t, protocol.StealOk, outcome)
			_, ok := w.Complete(1, 0)
			assert.False(t, ok)
		}
	}
}

func TestCompleteAndFail(t *testing.T) {
	ctx := context.Background()
	w := New()
	w.Handle(ctx, compute(1, 0, 0))
	w.Handle(ctx, compute(2, 0, 0))

	_, ok := w.Complete(1, 10)
	assert.False(t, ok, "queued tasks cannot complete")

	mustNext(t, w)
	mustNext(t, w)

	finished, ok := w.Complete(1, 10)
	require.True(t, ok)
	assert.Equal(t, &protocol.TaskFinished{ID: 1, Size: 10}, finished)
	_, ok = w.Complete(1, 10)
	assert.False(t, ok, "a task reports once")

	failed, ok := w.Fail(2, protocol.TaskFailInfo("exit 1"))
	require.True(t, ok)
	assert.Equal(t, &protocol.TaskFailed{ID: 2, Info: protocol.TaskFailInfo("exit 1")}, failed)

	assert.Equal(t, []taskid.TaskID{1}, w.Held())
	assert.Empty(t, w.Running())
}

func TestDeleteDataIsIdempotent(t *testing.T) {
	ctx := context.Background()
	w := New()
	w.Downloaded(1, 5)
	w.Downloaded(2, 5)

	w.Handle(ctx, &protocol.DeleteData{ID: 1})
	once := w.Held()
	w.Handle(ctx, &protocol.DeleteData{ID: 1})
	w.Handle(ctx, &protocol.DeleteData{ID: 99})

	assert.Equal(t, once, w.Held())
	assert.Equal(t, []taskid.TaskID{2}, w.Held())
}

func TestSourcesFromDependencyInfo(t *testing.T) {
	ctx := context.Background()
	w := New()
	w.Register(&protocol.WorkerRegistrationResponse{
		WorkerID:        1,
		WorkerAddresses: map[taskid.WorkerID]string{2: "10.0.0.2:7000"},
	})
	w.Handle(ctx, &protocol.NewWorker{WorkerID: 3, Address: "10.0.0.3:7000"})

	w.Handle(ctx, &protocol.ComputeTask{
		ID:      1,
		DepInfo: []protocol.DepInfo{protocol.NewDepInfo(0, 1024, 2)},
	})
	task := mustNext(t, w)
	require.Len(t, task.DepInfo, 1)

	dep := task.DepInfo[0]
	assert.Equal(t, uint64(1024), dep.Size)
	assert.Equal(t, []Peer{{ID: 2, Address: "10.0.0.2:7000"}}, w.Sources(dep))

	assert.Equal(t, []Peer{{ID: 3, Address: "10.0.0.3:7000"}}, w.Sources(protocol.NewDepInfo(0, 1, 1, 3, 8)),
		"self and unknown holders are skipped")
	assert.Empty(t, w.Sources(protocol.NewDepInfo(0, 1)), "no holders means no peer source")

	msg := w.Downloaded(0, dep.Size)
	assert.Equal(t, &protocol.DataDownloaded{ID: 0}, msg)
	assert.True(t, w.Holds(0))
}

func TestRegisterAndSubworkers(t *testing.T) {
	ctx := context.Background()
	w := New()
	w.Register(&protocol.WorkerRegistrationResponse{
		WorkerID:             4,
		SubworkerDefinitions: []protocol.SubworkerDefinition{protocol.SubworkerDefinition("a")},
	})
	w.Handle(ctx, &protocol.RegisterSubworker{Definition: protocol.SubworkerDefinition("b")})

	assert.Equal(t, taskid.WorkerID(4), w.ID())
	assert.Equal(t, []protocol.SubworkerDefinition{
		protocol.SubworkerDefinition("a"),
		protocol.SubworkerDefinition("b"),
	}, w.Subworkers())
	assert.Empty(t, w.Peers())
}

func TestNextHonoursCancellation(t *testing.T) {
	w := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := w.Next(ctx)
	require.ErrorIs(t, err, context.Canceled)
}
