// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package worker

import (
	"container/heap"
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/vk/taskgrid/internal/ctxlog"
	"github.com/vk/taskgrid/internal/protocol"
	"github.com/vk/taskgrid/internal/taskid"
)

// Peer is another worker that can serve data.
type Peer struct {
	ID      taskid.WorkerID
	Address string
}

// Worker is the local task state of one worker process.
type Worker struct {
	mu sync.Mutex

	id         taskid.WorkerID
	queue      taskQueue
	tasks      map[taskid.TaskID]*localTask
	held       map[taskid.TaskID]uint64
	peers      map[taskid.WorkerID]string
	subworkers []protocol.SubworkerDefinition
	arrivals   uint64
	wake       chan struct{}
}

// New creates a worker with no identity; call Register once the scheduler
// has answered the handshake.
func New() *Worker {
	return &Worker{
		tasks: make(map[taskid.TaskID]*localTask),
		held:  make(map[taskid.TaskID]uint64),
		peers: make(map[taskid.WorkerID]string),
		wake:  make(chan struct{}, 1),
	}
}

// Register applies the scheduler's handshake answer.
func (w *Worker) Register(resp *protocol.WorkerRegistrationResponse) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.id = resp.WorkerID
	for id, addr := range resp.WorkerAddresses {
		w.peers[id] = addr
	}
	w.subworkers = append(w.subworkers, resp.SubworkerDefinitions...)
}

// ID returns the identity assigned by the scheduler.
func (w *Worker) ID() taskid.WorkerID {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.id
}

// Handle applies a message from the scheduler and returns the replies it
// requires. Only StealTasks produces a reply.
func (w *Worker) Handle(ctx context.Context, msg protocol.ToWorkerMessage) []protocol.FromWorkerMessage {
	logger := ctxlog.FromContext(ctx)

	w.mu.Lock()
	defer w.mu.Unlock()

	switch m := msg.(type) {
	case *protocol.ComputeTask:
		if _, dup := w.tasks[m.ID]; dup {
			logger.Warn("Ignoring duplicate task.", "task", m.ID)
			return nil
		}
		w.arrivals++
		t := &localTask{msg: m, arrival: w.arrivals}
		w.tasks[m.ID] = t
		heap.Push(&w.queue, t)
		w.notify()
		logger.Debug("Task queued.", "task", m.ID, "queued", w.queue.Len())
	case *protocol.StealTasks:
		return []protocol.FromWorkerMessage{w.stealLocked(m.IDs)}
	case *protocol.DeleteData:
		delete(w.held, m.ID)
	case *protocol.NewWorker:
		w.peers[m.WorkerID] = m.Address
		logger.Debug("Peer announced.", "worker", m.WorkerID, "address", m.Address)
	case *protocol.RegisterSubworker:
		w.subworkers = append(w.subworkers, m.Definition)
	default:
		logger.Warn("Ignoring unsupported message.", "type", fmt.Sprintf("%T", msg))
	}
	return nil
}

// stealLocked answers for every id: queued tasks are withdrawn, running
// tasks stay, anything else is unknown here.
func (w *Worker) stealLocked(ids []taskid.TaskID) *protocol.StealResponse {
	resp := &protocol.StealResponse{Responses: make([]protocol.StealResponseEntry, 0, len(ids))}
	for _, id := range ids {
		outcome := protocol.StealNotHere
		if t, ok := w.tasks[id]; ok {
			if t.running {
				outcome = protocol.StealRunning
			} else {
				heap.Remove(&w.queue, t.index)
				delete(w.tasks, id)
				outcome = protocol.StealOk
			}
		}
		resp.Responses = append(resp.Responses, protocol.NewStealResponseEntry(id, outcome))
	}
	return resp
}

// Next blocks until a task is queued, marks the best one as running and
// returns it.
func (w *Worker) Next(ctx context.Context) (*protocol.ComputeTask, error) {
	for {
		w.mu.Lock()
		if w.queue.Len() > 0 {
			t := heap.Pop(&w.queue).(*localTask)
			t.running = true
			if w.queue.Len() > 0 {
				w.notify()
			}
			w.mu.Unlock()
			return t.msg, nil
		}
		w.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-w.wake:
		}
	}
}

func (w *Worker) notify() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// Complete turns a running task into a TaskFinished. The worker now holds
// size bytes of its output. It reports false for tasks that are not running.
func (w *Worker) Complete(id taskid.TaskID, size uint64) (*protocol.TaskFinished, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.finishLocked(id) {
		return nil, false
	}
	w.held[id] = size
	return &protocol.TaskFinished{ID: id, Size: size}, true
}

// Fail turns a running task into a TaskFailed.
func (w *Worker) Fail(id taskid.TaskID, info protocol.TaskFailInfo) (*protocol.TaskFailed, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.finishLocked(id) {
		return nil, false
	}
	return &protocol.TaskFailed{ID: id, Info: info}, true
}

func (w *Worker) finishLocked(id taskid.TaskID) bool {
	t, ok := w.tasks[id]
	if !ok || !t.running {
		return false
	}
	delete(w.tasks, id)
	return true
}

// Sources returns the peers from which dep can be fetched, in holder order.
// Holders without a known address and the worker itself are skipped. An
// empty result means no peer source is available.
func (w *Worker) Sources(dep protocol.DepInfo) []Peer {
	w.mu.Lock()
	defer w.mu.Unlock()

	var peers []Peer
	for _, holder := range dep.Holders {
		if holder == w.id {
			continue
		}
		if addr, ok := w.peers[holder]; ok {
			peers = append(peers, Peer{ID: holder, Address: addr})
		}
	}
	return peers
}

// Downloaded records data fetched from a peer and returns the confirmation
// for the scheduler.
func (w *Worker) Downloaded(id taskid.TaskID, size uint64) *protocol.DataDownloaded {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.held[id] = size
	return &protocol.DataDownloaded{ID: id}
}

// Holds reports whether the output of id is held locally.
func (w *Worker) Holds(id taskid.TaskID) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	_, ok := w.held[id]
	return ok
}

// Held lists the locally held outputs in ascending order.
func (w *Worker) Held() []taskid.TaskID {
	w.mu.Lock()
	defer w.mu.Unlock()

	ids := make([]taskid.TaskID, 0, len(w.held))
	for id := range w.held {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Queued lists the tasks that have not started, best first.
func (w *Worker) Queued() []taskid.TaskID {
	w.mu.Lock()
	defer w.mu.Unlock()

	order := slices.Clone(w.queue)
	slices.SortFunc(order, func(a, b *localTask) int {
		switch {
		case runsBefore(a, b):
			return -1
		case runsBefore(b, a):
			return 1
		}
		return 0
	})
	ids := make([]taskid.TaskID, len(order))
	for i, t := range order {
		ids[i] = t.msg.ID
	}
	return ids
}

// Running lists the started tasks in ascending order.
func (w *Worker) Running() []taskid.TaskID {
	w.mu.Lock()
	defer w.mu.Unlock()

	var ids []taskid.TaskID
	for id, t := range w.tasks {
		if t.running {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids
}

// Peers returns the known peers and their addresses.
func (w *Worker) Peers() map[taskid.WorkerID]string {
	w.mu.Lock()
	defer w.mu.Unlock()

	peers := make(map[taskid.WorkerID]string, len(w.peers))
	for id, addr := range w.peers {
		peers[id] = addr
	}
	return peers
}

// Subworkers returns the registered subworker definitions.
func (w *Worker) Subworkers() []protocol.SubworkerDefinition {
	w.mu.Lock()
	defer w.mu.Unlock()
	return slices.Clone(w.subworkers)
}
