// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/vk/taskgrid/internal/ctxlog"
	"github.com/vk/taskgrid/internal/depmap"
	"github.com/vk/taskgrid/internal/protocol"
	"github.com/vk/taskgrid/internal/taskid"
)

const defaultViolationBuffer = 128

// opWorkerLost names the disconnect event in violations.
const opWorkerLost = "WorkerLost"

// Sender delivers a message to one worker. Send must not block on the
// worker's reply.
type Sender interface {
	Send(ctx context.Context, worker taskid.WorkerID, msg protocol.ToWorkerMessage) error
}

// SenderFunc adapts a function to the Sender interface.
type SenderFunc func(ctx context.Context, worker taskid.WorkerID, msg protocol.ToWorkerMessage) error

// Send implements Sender.
func (f SenderFunc) Send(ctx context.Context, worker taskid.WorkerID, msg protocol.ToWorkerMessage) error {
	return f(ctx, worker, msg)
}

// Task is everything the scheduler needs to dispatch a task. Deps lists the
// tasks whose outputs it consumes.
type Task struct {
	ID                taskid.TaskID
	TypeID            taskid.TaskTypeID
	Deps              []taskid.TaskID
	Spec              []byte
	UserPriority      taskid.PriorityValue
	SchedulerPriority taskid.PriorityValue
}

type record struct {
	task       Task
	state      State
	worker     taskid.WorkerID
	size       uint64
	failInfo   protocol.TaskFailInfo
	dispatches int
}

type outbound struct {
	worker taskid.WorkerID
	msg    protocol.ToWorkerMessage
}

// Option configures a Core.
type Option func(*Core)

// WithViolationBuffer sets the capacity of the Violations channel.
func WithViolationBuffer(n int) Option {
	return func(c *Core) {
		c.violations = make(chan Violation, n)
	}
}

// Core is the scheduler's task table. The zero value is not usable; create
// one with New.
type Core struct {
	mu sync.Mutex

	sender     Sender
	deps       *depmap.Map
	violations chan Violation

	tasks         map[taskid.TaskID]*record
	workers       map[taskid.WorkerID]string
	lastWorker    taskid.WorkerID
	subworkers    []protocol.SubworkerDefinition
	pendingSteals map[taskid.TaskID]taskid.WorkerID
}

// New creates a Core that sends its messages through sender.
func New(sender Sender, opts ...Option) *Core {
	c := &Core{
		sender:        sender,
		deps:          depmap.New(),
		violations:    make(chan Violation, defaultViolationBuffer),
		tasks:         make(map[taskid.TaskID]*record),
		workers:       make(map[taskid.WorkerID]string),
		pendingSteals: make(map[taskid.TaskID]taskid.WorkerID),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Violations publishes every absorbed anomaly. Reports are dropped, but still
// logged, when nobody drains the channel.
func (c *Core) Violations() <-chan Violation {
	return c.violations
}

// Deps exposes the dependency location map.
func (c *Core) Deps() *depmap.Map {
	return c.deps
}

// RegisterWorker admits a new worker. Every already connected worker is told
// about it, and the response carries the current peers and subworkers.
func (c *Core) RegisterWorker(ctx context.Context, address string) (*protocol.WorkerRegistrationResponse, error) {
	return c.RegisterWorkerWith(ctx, address, nil)
}

// RegisterWorkerWith is RegisterWorker with a hook run with the new id before
// the worker can be dispatched to. The transport uses it to make the
// connection reachable first. attach must not call back into c.
func (c *Core) RegisterWorkerWith(ctx context.Context, address string, attach func(taskid.WorkerID)) (*protocol.WorkerRegistrationResponse, error) {
	c.mu.Lock()
	c.lastWorker++
	id := c.lastWorker
	if attach != nil {
		attach(id)
	}

	resp := &protocol.WorkerRegistrationResponse{
		WorkerID:             id,
		WorkerAddresses:      make(map[taskid.WorkerID]string, len(c.workers)),
		SubworkerDefinitions: append([]protocol.SubworkerDefinition(nil), c.subworkers...),
	}
	var out []outbound
	for peer, addr := range c.workers {
		resp.WorkerAddresses[peer] = addr
		out = append(out, outbound{peer, &protocol.NewWorker{WorkerID: id, Address: address}})
	}
	c.workers[id] = address
	c.mu.Unlock()

	ctxlog.FromContext(ctx).Info("Worker registered.", "worker", id, "address", address, "peers", len(resp.WorkerAddresses))
	return resp, c.flush(ctx, out)
}

// RegisterSubworker remembers def for future workers and forwards it to the
// connected ones.
func (c *Core) RegisterSubworker(ctx context.Context, def protocol.SubworkerDefinition) error {
	c.mu.Lock()
	c.subworkers = append(c.subworkers, def)
	out := make([]outbound, 0, len(c.workers))
	for w := range c.workers {
		out = append(out, outbound{w, &protocol.RegisterSubworker{Definition: def}})
	}
	c.mu.Unlock()

	return c.flush(ctx, out)
}

// Dispatch assigns task to worker and sends the ComputeTask. A task may be
// dispatched when it is new, Stolen or Lost. Every dependency must be Finished.
// When the send fails the assignment is undone: a new task is forgotten and
// a Stolen or Lost one is returned to that state.
func (c *Core) Dispatch(ctx context.Context, task Task, worker taskid.WorkerID) error {
	c.mu.Lock()
	msg, undo, err := c.dispatchLocked(ctx, task, worker)
	c.mu.Unlock()
	if err != nil {
		return err
	}

	ctxlog.FromContext(ctx).Debug("Dispatching task.", "task", task.ID, "worker", worker, "deps", len(msg.DepInfo))
	if err := c.flush(ctx, []outbound{{worker, msg}}); err != nil {
		c.rollback(ctx, undo, worker)
		return err
	}
	c.markAccepted(ctx, task.ID, worker, undo.dispatches+1)
	return nil
}

// Redispatch sends a Stolen or Lost task to worker using the definition it
// was last dispatched with.
func (c *Core) Redispatch(ctx context.Context, id taskid.TaskID, worker taskid.WorkerID) error {
	c.mu.Lock()
	rec, ok := c.tasks[id]
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("redispatch %s: %w", id, ErrUnknownTask)
	}
	task := rec.task
	c.mu.Unlock()

	return c.Dispatch(ctx, task, worker)
}

// dispatchUndo is what a record looked like before a dispatch.
type dispatchUndo struct {
	existed    bool
	task       Task
	state      State
	worker     taskid.WorkerID
	dispatches int
}

func (c *Core) dispatchLocked(ctx context.Context, task Task, worker taskid.WorkerID) (*protocol.ComputeTask, dispatchUndo, error) {
	if _, ok := c.workers[worker]; !ok {
		return nil, dispatchUndo{}, fmt.Errorf("dispatch %s to worker %s: %w", task.ID, worker, ErrUnknownWorker)
	}

	rec, exists := c.tasks[task.ID]
	if exists {
		switch {
		case rec.state.Active():
			return nil, dispatchUndo{}, fmt.Errorf("dispatch %s: %w (worker %s, %s)", task.ID, ErrAlreadyAssigned, rec.worker, rec.state)
		case rec.state.Terminal():
			return nil, dispatchUndo{}, fmt.Errorf("dispatch %s: %w (%s)", task.ID, ErrTerminal, rec.state)
		}
	}

	for _, dep := range task.Deps {
		depRec, ok := c.tasks[dep]
		if !ok || depRec.state != StateFinished {
			return nil, dispatchUndo{}, fmt.Errorf("dispatch %s: dependency %s: %w", task.ID, dep, ErrDependencyNotReady)
		}
	}
	depInfo, err := c.deps.Info(task.Deps...)
	if err != nil {
		return nil, dispatchUndo{}, fmt.Errorf("dispatch %s: %w", task.ID, errors.Join(ErrDependencyNotReady, err))
	}

	undo := dispatchUndo{existed: exists, task: task}
	if exists {
		undo.task, undo.state, undo.worker, undo.dispatches = rec.task, rec.state, rec.worker, rec.dispatches
	} else {
		rec = &record{task: task}
	}
	if err := rec.setState(StateDispatched); err != nil {
		return nil, dispatchUndo{}, fmt.Errorf("dispatch: %w", err)
	}
	c.tasks[task.ID] = rec
	rec.task = task
	rec.worker = worker
	rec.dispatches++

	return &protocol.ComputeTask{
		ID:                task.ID,
		TypeID:            task.TypeID,
		DepInfo:           depInfo,
		Spec:              task.Spec,
		UserPriority:      task.UserPriority,
		SchedulerPriority: task.SchedulerPriority,
	}, undo, nil
}

// rollback undoes a dispatch whose ComputeTask never left, unless something
// already happened to the task in between.
func (c *Core) rollback(ctx context.Context, undo dispatchUndo, worker taskid.WorkerID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := undo.task.ID
	rec, ok := c.tasks[id]
	if !ok || rec.state != StateDispatched || rec.worker != worker || rec.dispatches != undo.dispatches+1 {
		return
	}
	if !undo.existed {
		delete(c.tasks, id)
		return
	}
	if c.transition(ctx, rec, undo.state, worker, protocol.OpComputeTask) {
		rec.task = undo.task
		rec.worker = undo.worker
		rec.dispatches = undo.dispatches
	}
}

// markAccepted moves a task to Running once the transport took its
// ComputeTask, unless something already happened to it in between.
func (c *Core) markAccepted(ctx context.Context, id taskid.TaskID, worker taskid.WorkerID, seq int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rec, ok := c.tasks[id]
	if ok && rec.state == StateDispatched && rec.worker == worker && rec.dispatches == seq {
		c.transition(ctx, rec, StateRunning, worker, protocol.OpComputeTask)
	}
}

// setState moves rec to next if the transition table allows it.
func (rec *record) setState(next State) error {
	if !CanTransition(rec.state, next) {
		return fmt.Errorf("task %s: %w %s -> %s", rec.task.ID, ErrIllegalTransition, rec.state, next)
	}
	rec.state = next
	return nil
}

// transition applies setState on behalf of an event from worker. A move the
// table refuses is reported as a violation and leaves rec unchanged.
func (c *Core) transition(ctx context.Context, rec *record, next State, worker taskid.WorkerID, op string) bool {
	if err := rec.setState(next); err != nil {
		c.report(ctx, Violation{Kind: ProtocolViolation, Task: rec.task.ID, Worker: worker, Op: op, Reason: err.Error()})
		return false
	}
	return true
}

// HandleMessage applies a message received from worker. Anomalies are
// reported as violations and never returned; the error is reserved for
// message types Core does not understand.
func (c *Core) HandleMessage(ctx context.Context, worker taskid.WorkerID, msg protocol.FromWorkerMessage) error {
	logger := ctxlog.FromContext(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()

	switch m := msg.(type) {
	case *protocol.TaskFinished:
		if rec := c.resultTarget(ctx, worker, m.ID, m.Op()); rec != nil && c.transition(ctx, rec, StateFinished, worker, m.Op()) {
			rec.size = m.Size
			c.deps.Add(m.ID, m.Size, worker)
			logger.Debug("Task finished.", "task", m.ID, "worker", worker, "size", m.Size)
		}
	case *protocol.TaskFailed:
		if rec := c.resultTarget(ctx, worker, m.ID, m.Op()); rec != nil && c.transition(ctx, rec, StateFailed, worker, m.Op()) {
			rec.failInfo = m.Info
			logger.Info("Task failed.", "task", m.ID, "worker", worker, "info_bytes", len(m.Info))
		}
	case *protocol.DataDownloaded:
		c.handleDownloaded(ctx, worker, m)
	case *protocol.StealResponse:
		c.handleStealResponse(ctx, worker, m)
	default:
		return fmt.Errorf("unsupported message %T from worker %s", msg, worker)
	}
	return nil
}

// resultTarget returns the record a TaskFinished or TaskFailed from worker
// may complete, or nil after reporting why the message is discarded.
func (c *Core) resultTarget(ctx context.Context, worker taskid.WorkerID, id taskid.TaskID, op string) *record {
	rec, ok := c.tasks[id]
	if !ok {
		c.report(ctx, Violation{Kind: UnknownTask, Task: id, Worker: worker, Op: op, Reason: "no record of task"})
		return nil
	}
	switch {
	case rec.state.Terminal():
		c.report(ctx, Violation{Kind: ProtocolViolation, Task: id, Worker: worker, Op: op,
			Reason: fmt.Sprintf("task is already %s", rec.state)})
		return nil
	case rec.worker != worker:
		c.report(ctx, Violation{Kind: ProtocolViolation, Task: id, Worker: worker, Op: op,
			Reason: fmt.Sprintf("task is assigned to worker %s", rec.worker)})
		return nil
	case rec.state == StateStolen:
		c.report(ctx, Violation{Kind: ProtocolViolation, Task: id, Worker: worker, Op: op,
			Reason: "result after the task was stolen"})
		return nil
	case rec.state == StateLost:
		c.report(ctx, Violation{Kind: ProtocolViolation, Task: id, Worker: worker, Op: op,
			Reason: "result from a worker that was declared lost"})
		return nil
	}
	// A pending steal of this task is settled when its answer arrives.
	return rec
}

func (c *Core) handleDownloaded(ctx context.Context, worker taskid.WorkerID, m *protocol.DataDownloaded) {
	if _, ok := c.workers[worker]; !ok {
		c.report(ctx, Violation{Kind: ProtocolViolation, Task: m.ID, Worker: worker, Op: m.Op(), Reason: "worker is not registered"})
		return
	}
	if !c.deps.AddHolder(m.ID, worker) {
		c.report(ctx, Violation{Kind: UnknownTask, Task: m.ID, Worker: worker, Op: m.Op(), Reason: "no output recorded for task"})
		return
	}
	ctxlog.FromContext(ctx).Debug("Worker downloaded data.", "task", m.ID, "worker", worker)
}

// Release drops a task the caller no longer needs. For a Finished task every
// holder is sent DeleteData. Releasing an unknown task is a no-op, so
// Release may be called any number of times.
func (c *Core) Release(ctx context.Context, id taskid.TaskID) error {
	c.mu.Lock()
	rec, ok := c.tasks[id]
	if !ok {
		c.mu.Unlock()
		return nil
	}
	if rec.state.Active() {
		c.mu.Unlock()
		return fmt.Errorf("release %s: %w (worker %s)", id, ErrTaskActive, rec.worker)
	}

	var out []outbound
	for _, holder := range c.deps.Forget(id) {
		if _, connected := c.workers[holder]; connected {
			out = append(out, outbound{holder, &protocol.DeleteData{ID: id}})
		}
	}
	delete(c.tasks, id)
	c.mu.Unlock()

	ctxlog.FromContext(ctx).Debug("Task released.", "task", id, "holders", len(out))
	return c.flush(ctx, out)
}

// WorkerLost handles a disconnected worker. Its assigned tasks become Lost
// and are returned, its pending steals are dropped and it stops being a
// holder of any output.
func (c *Core) WorkerLost(ctx context.Context, worker taskid.WorkerID) []taskid.TaskID {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.workers[worker]; !ok {
		return nil
	}
	delete(c.workers, worker)

	var lost []taskid.TaskID
	for id, rec := range c.tasks {
		if rec.worker == worker && rec.state.Active() && c.transition(ctx, rec, StateLost, worker, opWorkerLost) {
			lost = append(lost, id)
		}
	}
	for id, w := range c.pendingSteals {
		if w == worker {
			delete(c.pendingSteals, id)
		}
	}
	dropped := c.deps.DropWorker(worker)
	sortIDs(lost)

	ctxlog.FromContext(ctx).Warn("Worker lost.", "worker", worker, "lost_tasks", len(lost), "dropped_outputs", len(dropped))
	return lost
}

func (c *Core) report(ctx context.Context, v Violation) {
	ctxlog.FromContext(ctx).Warn("Discarding message.",
		"kind", v.Kind, "op", v.Op, "task", v.Task, "worker", v.Worker, "reason", v.Reason)
	select {
	case c.violations <- v:
	default:
	}
}

func (c *Core) flush(ctx context.Context, out []outbound) error {
	var errs []error
	for _, o := range out {
		if err := c.sender.Send(ctx, o.worker, o.msg); err != nil {
			ctxlog.FromContext(ctx).Warn("Failed to send message.", "op", o.msg.Op(), "worker", o.worker, "error", err)
			errs = append(errs, fmt.Errorf("send %s to worker %s: %w", o.msg.Op(), o.worker, err))
		}
	}
	return errors.Join(errs...)
}
