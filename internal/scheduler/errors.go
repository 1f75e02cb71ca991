// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package scheduler

import (
	"errors"
	"fmt"

	"github.com/vk/taskgrid/internal/taskid"
)

var (
	// ErrUnknownWorker is returned when an operation names a worker that is not registered.
	ErrUnknownWorker = errors.New("unknown worker")
	// ErrAlreadyAssigned is returned when dispatching a task that is still assigned.
	ErrAlreadyAssigned = errors.New("task is already assigned")
	// ErrTerminal is returned when dispatching a task that already has a final outcome.
	ErrTerminal = errors.New("task already finished or failed")
	// ErrDependencyNotReady is returned when a dependency has no finished output.
	ErrDependencyNotReady = errors.New("dependency is not finished")
	// ErrTaskActive is returned when releasing a task that is still assigned.
	ErrTaskActive = errors.New("task is still assigned")
	// ErrUnknownTask is returned when an operation names a task the scheduler has no record of.
	ErrUnknownTask = errors.New("unknown task")
	// ErrIllegalTransition is returned when a state change is not in the transition table.
	ErrIllegalTransition = errors.New("illegal state transition")
)

// ViolationKind classifies an anomaly absorbed by the scheduler.
type ViolationKind uint8

const (
	// ProtocolViolation is a message that contradicts the scheduler's record,
	// such as a result for a task that was stolen from the sender.
	ProtocolViolation ViolationKind = iota + 1
	// UnknownTask is a message about a task the scheduler has no record of.
	UnknownTask
)

// String implements fmt.Stringer.
func (k ViolationKind) String() string {
	switch k {
	case ProtocolViolation:
		return "ProtocolViolation"
	case UnknownTask:
		return "UnknownTask"
	default:
		return fmt.Sprintf("ViolationKind(%d)", uint8(k))
	}
}

// Violation describes a discarded message. It never stops the scheduler.
type Violation struct {
	Kind   ViolationKind
	Task   taskid.TaskID
	Worker taskid.WorkerID
	Op     string
	Reason string
}

// Error implements the error interface.
func (v Violation) Error() string {
	return fmt.Sprintf("%s: %s for task %s from worker %s: %s", v.Kind, v.Op, v.Task, v.Worker, v.Reason)
}
