// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package app

import (
	"context"
	"errors"
	"iter"

	"github.com/vk/taskgrid/internal/ctxlog"
	"github.com/vk/taskgrid/internal/scheduler"
	"github.com/vk/taskgrid/internal/taskid"
)

// dispatcher is the placement policy driving a scheduler.Core: it keeps up
// to depth tasks on every worker, redispatches stolen and lost tasks,
// releases settled outputs and asks busy workers to give work to idle ones
// once nothing new is left. It is not safe for concurrent use; the scheduler
// loop calls step from a single goroutine.
type dispatcher struct {
	core  *scheduler.Core
	depth int

	next      func() (scheduler.Task, error, bool)
	stop      func()
	head      *scheduler.Task
	exhausted bool

	outstanding map[taskid.TaskID]struct{}
	asked       map[taskid.TaskID]struct{} // steal already requested once
	finished    uint64
	failed      uint64
}

func newDispatcher(core *scheduler.Core, source iter.Seq2[scheduler.Task, error], depth int) *dispatcher {
	next, stop := iter.Pull2(source)
	if depth < 1 {
		depth = 1
	}
	return &dispatcher{
		core:        core,
		depth:       depth,
		next:        next,
		stop:        stop,
		outstanding: make(map[taskid.TaskID]struct{}),
		asked:       make(map[taskid.TaskID]struct{}),
	}
}

// step runs one placement pass and reports whether every task has settled.
func (d *dispatcher) step(ctx context.Context) (bool, error) {
	d.settle(ctx)

	workers := d.core.WorkerIDs()
	if len(workers) == 0 {
		return d.done(), nil
	}
	load := make(map[taskid.WorkerID]int, len(workers))
	for _, w := range workers {
		load[w] = len(d.core.Assigned(w))
	}

	d.redispatch(ctx, workers, load)
	if err := d.fill(ctx, workers, load); err != nil {
		return false, err
	}
	d.rebalance(ctx, workers, load)

	return d.done(), nil
}

func (d *dispatcher) done() bool {
	return d.exhausted && d.head == nil && len(d.outstanding) == 0
}

// settle counts tasks that reached a final state and releases them. Array
// tasks have no dependents, so their outputs are never needed again.
func (d *dispatcher) settle(ctx context.Context) {
	logger := ctxlog.FromContext(ctx)
	for id := range d.outstanding {
		info, ok := d.core.Task(id)
		if !ok {
			delete(d.outstanding, id)
			continue
		}
		switch info.State {
		case scheduler.StateFinished:
			d.finished++
		case scheduler.StateFailed:
			d.failed++
			logger.Warn("Task failed.", "task", id, "worker", info.Worker, "info", info.FailInfo)
		default:
			continue
		}
		delete(d.outstanding, id)
		delete(d.asked, id)
		if err := d.core.Release(ctx, id); err != nil {
			logger.Warn("Failed to release task.", "task", id, "error", err)
		}
	}
}

func (d *dispatcher) redispatch(ctx context.Context, workers []taskid.WorkerID, load map[taskid.WorkerID]int) {
	logger := ctxlog.FromContext(ctx)
	for _, id := range d.core.Returned() {
		w, ok := d.leastLoaded(workers, load)
		if !ok {
			return
		}
		if err := d.core.Redispatch(ctx, id, w); err != nil {
			// The task is still returned; the next step tries again.
			logger.Warn("Redispatch failed.", "task", id, "worker", w, "error", err)
			return
		}
		load[w]++
	}
}

func (d *dispatcher) fill(ctx context.Context, workers []taskid.WorkerID, load map[taskid.WorkerID]int) error {
	logger := ctxlog.FromContext(ctx)
	for {
		task, ok, err := d.peek()
		if err != nil || !ok {
			return err
		}
		w, ok := d.leastLoaded(workers, load)
		if !ok {
			return nil
		}

		err = d.core.Dispatch(ctx, task, w)
		if errors.Is(err, scheduler.ErrUnknownWorker) {
			// The worker left since WorkerIDs; the next step sees the new set.
			return nil
		}
		if errors.Is(err, scheduler.ErrAlreadyAssigned) || errors.Is(err, scheduler.ErrTerminal) {
			logger.Error("Task id collision, skipping.", "task", task.ID, "error", err)
			d.head = nil
			continue
		}
		if err != nil {
			// The dispatch was undone; head is kept for the next step.
			logger.Warn("Dispatch did not reach the worker.", "task", task.ID, "worker", w, "error", err)
			return nil
		}
		d.head = nil
		d.outstanding[task.ID] = struct{}{}
		load[w]++
	}
}

// rebalance asks the busiest worker to hand back half of its tasks when
// another worker sits idle and no new work is left.
func (d *dispatcher) rebalance(ctx context.Context, workers []taskid.WorkerID, load map[taskid.WorkerID]int) {
	if !d.exhausted || d.head != nil {
		return
	}
	idle := false
	var busiest taskid.WorkerID
	for _, w := range workers {
		if load[w] == 0 {
			idle = true
		}
		if load[w] > 1 && (busiest == 0 || load[w] > load[busiest]) {
			busiest = w
		}
	}
	if !idle || busiest == 0 {
		return
	}

	assigned := d.core.Assigned(busiest)
	var victims []taskid.TaskID
	for _, id := range assigned[len(assigned)/2:] {
		if _, ok := d.asked[id]; !ok {
			victims = append(victims, id)
		}
	}
	if len(victims) == 0 {
		return
	}
	requested, err := d.core.RequestSteal(ctx, busiest, victims)
	if err != nil {
		ctxlog.FromContext(ctx).Warn("Steal request failed.", "worker", busiest, "error", err)
		return
	}
	for _, id := range requested {
		d.asked[id] = struct{}{}
	}
	if len(requested) > 0 {
		ctxlog.FromContext(ctx).Debug("Requested steal.", "worker", busiest, "tasks", requested)
	}
}

// leastLoaded picks the worker with the fewest assigned tasks, lowest id
// first, among those below depth.
func (d *dispatcher) leastLoaded(workers []taskid.WorkerID, load map[taskid.WorkerID]int) (taskid.WorkerID, bool) {
	var best taskid.WorkerID
	found := false
	for _, w := range workers {
		if load[w] >= d.depth {
			continue
		}
		if !found || load[w] < load[best] {
			best, found = w, true
		}
	}
	return best, found
}

func (d *dispatcher) peek() (scheduler.Task, bool, error) {
	if d.head != nil {
		return *d.head, true, nil
	}
	if d.exhausted {
		return scheduler.Task{}, false, nil
	}
	task, err, ok := d.next()
	if !ok {
		d.exhausted = true
		return scheduler.Task{}, false, nil
	}
	if err != nil {
		d.exhausted = true
		return scheduler.Task{}, false, err
	}
	d.head = &task
	return task, true, nil
}

// close releases the underlying task source.
func (d *dispatcher) close() {
	d.stop()
}
