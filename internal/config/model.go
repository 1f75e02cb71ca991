// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package config

import (
	"fmt"

	"github.com/vk/taskgrid/internal/arraydef"
	"github.com/vk/taskgrid/internal/taskid"
)

// Model is the unified representation of every loaded configuration file.
type Model struct {
	Scheduler *Scheduler
	Worker    *Worker
	Arrays    []*ArrayJob
}

// Scheduler is the format-agnostic representation of a `scheduler` block.
// Zero values mean "not set".
type Scheduler struct {
	Listen          string
	HealthcheckPort int
	ExitWhenDone    bool
}

// Worker is the format-agnostic representation of a `worker` block.
type Worker struct {
	Server      string
	Address     string
	Concurrency int
	Shell       string
}

// ArrayJob is a family of tasks declared by an `array` block. Every id of
// Range becomes one task whose payload is produced by Spec.
type ArrayJob struct {
	Name         string
	Range        arraydef.ArrayDef
	TypeID       taskid.TaskTypeID
	UserPriority taskid.PriorityValue
	Spec         SpecRenderer
}

// Render produces the payload of the task with the given id.
func (a *ArrayJob) Render(id taskid.JobTaskID) ([]byte, error) {
	if !a.Range.Contains(id) {
		return nil, fmt.Errorf("array %q: task %s is outside %s", a.Name, id, a.Range)
	}
	return a.Spec.Render(a.Name, id)
}

// TaskCount returns the number of tasks declared by all arrays.
func (m *Model) TaskCount() uint64 {
	var n uint64
	for _, a := range m.Arrays {
		n += uint64(a.Range.Len())
	}
	return n
}
