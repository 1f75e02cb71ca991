// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package worker

import (
	"github.com/vk/taskgrid/internal/protocol"
	"github.com/vk/taskgrid/internal/taskid"
)

type localTask struct {
	msg     *protocol.ComputeTask
	arrival uint64
	index   int
	running bool
}

func (t *localTask) priorities() taskid.Priorities {
	return taskid.Priorities{User: t.msg.UserPriority, Scheduler: t.msg.SchedulerPriority}
}

// taskQueue implements heap.Interface. Higher user priority runs first,
// then higher scheduler priority, then earlier arrival.
type taskQueue []*localTask

func (q taskQueue) Len() int { return len(q) }

func (q taskQueue) Less(i, j int) bool { return runsBefore(q[i], q[j]) }

func runsBefore(a, b *localTask) bool {
	pa, pb := a.priorities(), b.priorities()
	if pa != pb {
		return pa.Before(pb)
	}
	return a.arrival < b.arrival
}

func (q taskQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *taskQueue) Push(x any) {
	t := x.(*localTask)
	t.index = len(*q)
	*q = append(*q, t)
}

func (q *taskQueue) Pop() any {
	old := *q
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*q = old[:n-1]
	return t
}
