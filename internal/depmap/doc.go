// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package depmap records which workers hold the output of finished tasks.
//
// # Purpose
//
// When the scheduler dispatches a task, every dependency is described to the
// worker together with its byte size and the workers currently holding a copy.
// The worker can then fetch the data directly from a peer instead of having
// the scheduler broker every byte.
//
// # Holders Are Hints
//
// A holder list is a weak reference. By the time a worker acts on it, a holder
// may already have deleted the data, and a task's output may be held by
// several workers or by none. Callers must treat an empty list as "no peer
// source known" and never as an error.
//
// # Concurrency Model
//
// Map guards its state with a sync.RWMutex. Holder sets are small and the map
// is read on every dispatch, so readers share the lock while the scheduler's
// writes (finish, download, delete, worker loss) take it exclusively.
package depmap
