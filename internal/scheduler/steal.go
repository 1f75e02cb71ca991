// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package scheduler

import (
	"context"
	"fmt"

	"github.com/vk/taskgrid/internal/ctxlog"
	"github.com/vk/taskgrid/internal/protocol"
	"github.com/vk/taskgrid/internal/taskid"
)

// RequestSteal asks worker to give back ids. Only ids that are assigned to
// worker and have no steal in flight are requested; they are returned. The
// tasks stay assigned until the worker answers for each of them. When the
// request cannot be sent nothing is left pending.
func (c *Core) RequestSteal(ctx context.Context, worker taskid.WorkerID, ids []taskid.TaskID) ([]taskid.TaskID, error) {
	c.mu.Lock()
	if _, ok := c.workers[worker]; !ok {
		c.mu.Unlock()
		return nil, fmt.Errorf("steal from worker %s: %w", worker, ErrUnknownWorker)
	}

	var requested []taskid.TaskID
	for _, id := range ids {
		rec, ok := c.tasks[id]
		if !ok || rec.worker != worker || !rec.state.Active() {
			continue
		}
		if _, pending := c.pendingSteals[id]; pending {
			continue
		}
		c.pendingSteals[id] = worker
		requested = append(requested, id)
	}
	c.mu.Unlock()

	if len(requested) == 0 {
		return nil, nil
	}
	ctxlog.FromContext(ctx).Debug("Requesting steal.", "worker", worker, "tasks", len(requested))
	if err := c.flush(ctx, []outbound{{worker, &protocol.StealTasks{IDs: requested}}}); err != nil {
		c.mu.Lock()
		for _, id := range requested {
			if owner, pending := c.pendingSteals[id]; pending && owner == worker {
				delete(c.pendingSteals, id)
			}
		}
		c.mu.Unlock()
		return nil, err
	}
	return requested, nil
}

func (c *Core) handleStealResponse(ctx context.Context, worker taskid.WorkerID, m *protocol.StealResponse) {
	logger := ctxlog.FromContext(ctx)

	for _, entry := range m.Responses {
		id := entry.ID
		if owner, pending := c.pendingSteals[id]; !pending || owner != worker {
			c.report(ctx, Violation{Kind: ProtocolViolation, Task: id, Worker: worker, Op: m.Op(),
				Reason: "answer to a steal that was not requested"})
			continue
		}
		delete(c.pendingSteals, id)

		rec, ok := c.tasks[id]
		if !ok {
			c.report(ctx, Violation{Kind: UnknownTask, Task: id, Worker: worker, Op: m.Op(), Reason: "no record of task"})
			continue
		}

		switch entry.Outcome {
		case protocol.StealOk:
			switch {
			case rec.state.Active() && rec.worker == worker:
				if c.transition(ctx, rec, StateStolen, worker, m.Op()) {
					logger.Debug("Task stolen.", "task", id, "worker", worker)
				}
			case rec.state.Terminal():
				// The worker promised not to report a result it already reported.
				c.report(ctx, Violation{Kind: ProtocolViolation, Task: id, Worker: worker, Op: m.Op(),
					Reason: fmt.Sprintf("steal accepted for a task that is already %s", rec.state)})
			}
		case protocol.StealRunning:
			if rec.state == StateDispatched && rec.worker == worker {
				c.transition(ctx, rec, StateRunning, worker, m.Op())
			}
			logger.Debug("Steal refused, task is running.", "task", id, "worker", worker, "state", rec.state)
		case protocol.StealNotHere:
			if rec.state.Active() && rec.worker == worker {
				logger.Warn("Worker does not know an assigned task, keeping assignment.", "task", id, "worker", worker)
			}
		default:
			c.report(ctx, Violation{Kind: ProtocolViolation, Task: id, Worker: worker, Op: m.Op(),
				Reason: fmt.Sprintf("invalid outcome %s", entry.Outcome)})
		}
	}
}
