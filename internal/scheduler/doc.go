// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package scheduler holds the authoritative task lifecycle on the scheduler side.
//
// # Responsibilities
//
// Core owns the task table and the dependency location map. It is the only
// place where task state changes, and every change is driven either by the
// caller (dispatch, steal, release, worker loss) or by a message arriving
// from a worker.
//
// # Lifecycle
//
//	Dispatched -> Running -> Finished | Failed
//	Dispatched | Running -> Stolen | Lost -> Dispatched
//
// A task is Dispatched the moment its ComputeTask is handed to the transport
// and Running once the transport accepted it. Stolen and Lost tasks are back
// in the scheduler's hands and may be dispatched again.
//
// # Steal Race
//
// A steal request and a task completion may cross on the wire. The worker's
// answer decides: Ok withdraws the task, Running leaves it assigned and
// NotHere defers to the scheduler's own record. A terminal message that
// arrives for a task the worker no longer owns is a protocol violation. It is
// logged, published on Violations and dropped, so at most one of "stolen" and
// "finished" is ever accepted.
//
// # Concurrency Model
//
// All transitions are serialized by one mutex, which gives per-task ordering
// in receipt order. Outbound messages are collected while the lock is held and
// handed to the Sender after it is released, so a Sender may call back into
// Core.
package scheduler
