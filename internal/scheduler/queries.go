// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package scheduler

import (
	"slices"

	"github.com/vk/taskgrid/internal/protocol"
	"github.com/vk/taskgrid/internal/taskid"
)

// TaskInfo is a snapshot of one task record.
type TaskInfo struct {
	ID           taskid.TaskID
	State        State
	Worker       taskid.WorkerID
	Size         uint64
	FailInfo     protocol.TaskFailInfo
	Dispatches   int
	StealPending bool
}

// Task returns a snapshot of the record for id.
func (c *Core) Task(id taskid.TaskID) (TaskInfo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rec, ok := c.tasks[id]
	if !ok {
		return TaskInfo{}, false
	}
	_, pending := c.pendingSteals[id]
	return TaskInfo{
		ID:           id,
		State:        rec.state,
		Worker:       rec.worker,
		Size:         rec.size,
		FailInfo:     rec.failInfo,
		Dispatches:   rec.dispatches,
		StealPending: pending,
	}, true
}

// Definition returns the task as it was last dispatched.
func (c *Core) Definition(id taskid.TaskID) (Task, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rec, ok := c.tasks[id]
	if !ok {
		return Task{}, false
	}
	return rec.task, true
}

// Assigned lists the active tasks of worker in ascending order.
func (c *Core) Assigned(worker taskid.WorkerID) []taskid.TaskID {
	c.mu.Lock()
	defer c.mu.Unlock()

	var ids []taskid.TaskID
	for id, rec := range c.tasks {
		if rec.worker == worker && rec.state.Active() {
			ids = append(ids, id)
		}
	}
	sortIDs(ids)
	return ids
}

// Returned lists Stolen and Lost tasks waiting for a new dispatch.
func (c *Core) Returned() []taskid.TaskID {
	c.mu.Lock()
	defer c.mu.Unlock()

	var ids []taskid.TaskID
	for id, rec := range c.tasks {
		if rec.state.Returned() {
			ids = append(ids, id)
		}
	}
	sortIDs(ids)
	return ids
}

// Workers returns the connected workers and their data addresses.
func (c *Core) Workers() map[taskid.WorkerID]string {
	c.mu.Lock()
	defer c.mu.Unlock()

	workers := make(map[taskid.WorkerID]string, len(c.workers))
	for id, addr := range c.workers {
		workers[id] = addr
	}
	return workers
}

// WorkerIDs returns the connected workers in ascending order.
func (c *Core) WorkerIDs() []taskid.WorkerID {
	c.mu.Lock()
	defer c.mu.Unlock()

	ids := make([]taskid.WorkerID, 0, len(c.workers))
	for id := range c.workers {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// PendingSteals lists the tasks whose steal answer has not arrived yet.
func (c *Core) PendingSteals() []taskid.TaskID {
	c.mu.Lock()
	defer c.mu.Unlock()

	ids := make([]taskid.TaskID, 0, len(c.pendingSteals))
	for id := range c.pendingSteals {
		ids = append(ids, id)
	}
	sortIDs(ids)
	return ids
}

// Counts returns the number of tasks per state.
func (c *Core) Counts() map[State]int {
	c.mu.Lock()
	defer c.mu.Unlock()

	counts := make(map[State]int)
	for _, rec := range c.tasks {
		counts[rec.state]++
	}
	return counts
}

func sortIDs(ids []taskid.TaskID) {
	slices.Sort(ids)
}
