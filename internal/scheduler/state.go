// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package scheduler

import "fmt"

// State is the scheduler's view of a task.
type State uint8

const (
	StateDispatched State = iota + 1
	StateRunning
	StateFinished
	StateFailed
	StateStolen
	StateLost
)

var stateNames = map[State]string{
	StateDispatched: "Dispatched",
	StateRunning:    "Running",
	StateFinished:   "Finished",
	StateFailed:     "Failed",
	StateStolen:     "Stolen",
	StateLost:       "Lost",
}

// String implements fmt.Stringer.
func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("State(%d)", uint8(s))
}

// Active reports whether the task is assigned to a worker and may still
// produce a result.
func (s State) Active() bool {
	return s == StateDispatched || s == StateRunning
}

// Terminal reports whether the task has a final outcome.
func (s State) Terminal() bool {
	return s == StateFinished || s == StateFailed
}

// Returned reports whether the task is back in the scheduler's hands and
// waiting to be dispatched again.
func (s State) Returned() bool {
	return s == StateStolen || s == StateLost
}

var stateTransitions = map[State][]State{
	StateDispatched: {StateRunning, StateFinished, StateFailed, StateStolen, StateLost},
	StateRunning:    {StateFinished, StateFailed, StateStolen, StateLost},
	StateStolen:     {StateDispatched},
	StateLost:       {StateDispatched},
	StateFinished:   {},
	StateFailed:     {},
}

// CanTransition reports whether a task may move from one state to another.
// A new task enters the table through the zero state, which may only move to
// StateDispatched.
func CanTransition(from, to State) bool {
	if from == 0 {
		return to == StateDispatched
	}
	for _, next := range stateTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
