// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package worker keeps the local state of the tasks assigned to one worker
// process and runs them.
//
// Worker holds a priority queue of tasks that have not started, the set of
// running tasks and the outputs held for peers. Every decision that the
// scheduler relies on, in particular the answer to a steal request, is taken
// under a single lock, so a task is either withdrawn or started but never both.
package worker
