// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package arraydef

import (
	"fmt"
	"iter"
	"math"

	"github.com/vk/taskgrid/internal/taskid"
)

// TaskIDRange is the closed interval [start, start+length-1]. The zero value
// is not a valid range; use NewTaskIDRange.
type TaskIDRange struct {
	start  uint32
	length uint32
}

// NewTaskIDRange creates a range of length consecutive identifiers starting at start.
func NewTaskIDRange(start, length uint32) (TaskIDRange, error) {
	if length == 0 {
		return TaskIDRange{}, fmt.Errorf("range length must be at least 1")
	}
	if uint64(start)+uint64(length)-1 > math.MaxUint32 {
		return TaskIDRange{}, fmt.Errorf("range %d+%d exceeds the 32-bit id space", start, length)
	}
	return TaskIDRange{start: start, length: length}, nil
}

// Start returns the first identifier of the range.
func (r TaskIDRange) Start() taskid.JobTaskID { return taskid.JobTaskID(r.start) }

// End returns the last identifier of the range (inclusive).
func (r TaskIDRange) End() taskid.JobTaskID { return taskid.JobTaskID(r.start + r.length - 1) }

// Len returns the number of identifiers in the range.
func (r TaskIDRange) Len() int { return int(r.length) }

// Contains reports whether id lies inside the range.
func (r TaskIDRange) Contains(id taskid.JobTaskID) bool {
	return r.length > 0 && id >= r.Start() && id <= r.End()
}

// All yields the identifiers of the range in ascending order. The sequence
// can be iterated any number of times.
func (r TaskIDRange) All() iter.Seq[taskid.JobTaskID] {
	return func(yield func(taskid.JobTaskID) bool) {
		for i := uint32(0); i < r.length; i++ {
			if !yield(taskid.JobTaskID(r.start + i)) {
				return
			}
		}
	}
}

// String renders the range in the syntax accepted by Parse.
func (r TaskIDRange) String() string {
	if r.length == 1 {
		return fmt.Sprintf("%d", r.start)
	}
	return fmt.Sprintf("%d-%d", r.start, r.start+r.length-1)
}

// ArrayDef describes the task identifiers of one array job.
type ArrayDef struct {
	r TaskIDRange
}

// New wraps a range into an ArrayDef.
func New(r TaskIDRange) ArrayDef {
	return ArrayDef{r: r}
}

// Range returns the underlying identifier range.
func (a ArrayDef) Range() TaskIDRange { return a.r }

// All yields every identifier of the array in ascending order.
func (a ArrayDef) All() iter.Seq[taskid.JobTaskID] { return a.r.All() }

// Len returns the number of tasks in the array.
func (a ArrayDef) Len() int { return a.r.Len() }

// Contains reports whether id belongs to the array.
func (a ArrayDef) Contains(id taskid.JobTaskID) bool { return a.r.Contains(id) }

// String implements fmt.Stringer.
func (a ArrayDef) String() string { return a.r.String() }
