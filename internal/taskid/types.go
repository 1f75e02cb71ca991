// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package taskid

import "strconv"

// TaskID uniquely identifies a task for as long as the scheduler keeps a record of it.
type TaskID uint64

// WorkerID identifies a connected worker process. It is stable for the
// lifetime of the worker's connection.
type WorkerID uint64

// TaskTypeID identifies the handler category a task needs. Workers use it to
// pick a subworker able to run the task.
type TaskTypeID uint32

// JobTaskID is the per-array identifier produced by range expressions such as "1-100".
type JobTaskID uint32

// PriorityValue orders tasks locally on a worker. Higher values run first.
type PriorityValue int32

// String implements fmt.Stringer.
func (id TaskID) String() string { return strconv.FormatUint(uint64(id), 10) }

// String implements fmt.Stringer.
func (id WorkerID) String() string { return strconv.FormatUint(uint64(id), 10) }

// String implements fmt.Stringer.
func (id TaskTypeID) String() string { return strconv.FormatUint(uint64(id), 10) }

// String implements fmt.Stringer.
func (id JobTaskID) String() string { return strconv.FormatUint(uint64(id), 10) }

// Priorities bundles the two independent priority values that travel with
// every dispatch: the one set by the user and the one set by the scheduler.
type Priorities struct {
	User      PriorityValue
	Scheduler PriorityValue
}

// Before reports whether p should run before other. User priority dominates;
// scheduler priority breaks ties.
func (p Priorities) Before(other Priorities) bool {
	if p.User != other.User {
		return p.User > other.User
	}
	return p.Scheduler > other.Scheduler
}
