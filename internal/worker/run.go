// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/vk/taskgrid/internal/ctxlog"
	"github.com/vk/taskgrid/internal/protocol"
	"golang.org/x/sync/errgroup"
)

// Executor runs one task and returns the size of the output it produced.
type Executor interface {
	Execute(ctx context.Context, task *protocol.ComputeTask) (uint64, error)
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(ctx context.Context, task *protocol.ComputeTask) (uint64, error)

// Execute implements Executor.
func (f ExecutorFunc) Execute(ctx context.Context, task *protocol.ComputeTask) (uint64, error) {
	return f(ctx, task)
}

// Fetcher downloads the output of a dependency from one of sources. It is
// called only for outputs the worker does not hold, and sources may be empty.
type Fetcher interface {
	Fetch(ctx context.Context, dep protocol.DepInfo, sources []Peer) error
}

// Sender delivers a message to the scheduler.
type Sender interface {
	Send(ctx context.Context, msg protocol.FromWorkerMessage) error
}

// SenderFunc adapts a function to the Sender interface.
type SenderFunc func(ctx context.Context, msg protocol.FromWorkerMessage) error

// Send implements Sender.
func (f SenderFunc) Send(ctx context.Context, msg protocol.FromWorkerMessage) error {
	return f(ctx, msg)
}

// RunOptions configures Run.
type RunOptions struct {
	// Concurrency is the number of tasks executed at the same time.
	Concurrency int
	Executor    Executor
	// Fetcher is optional. Without it dependencies are assumed to be reachable
	// by the executor on its own.
	Fetcher Fetcher
	Sender  Sender
}

// Run executes queued tasks until ctx is cancelled or a result cannot be
// delivered. Cancellation is not an error.
func (w *Worker) Run(ctx context.Context, opts RunOptions) error {
	if opts.Executor == nil || opts.Sender == nil {
		return errors.New("worker: executor and sender are required")
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	for slot := 0; slot < opts.Concurrency; slot++ {
		g.Go(func() error {
			slotCtx := ctxlog.With(gctx, "slot", slot)
			for {
				task, err := w.Next(slotCtx)
				if err != nil {
					return nil
				}
				if err := w.runTask(slotCtx, task, opts); err != nil {
					return err
				}
			}
		})
	}
	return g.Wait()
}

func (w *Worker) runTask(ctx context.Context, task *protocol.ComputeTask, opts RunOptions) error {
	logger := ctxlog.FromContext(ctx).With("task", task.ID)

	if err := w.fetchDependencies(ctx, task, opts); err != nil {
		logger.Warn("Failed to fetch dependencies.", "error", err)
		return w.report(ctx, opts.Sender, w.fail(task, err))
	}

	logger.Debug("Executing task.", "type_id", task.TypeID)
	size, err := opts.Executor.Execute(ctx, task)
	if err != nil {
		logger.Info("Task failed.", "error", err)
		return w.report(ctx, opts.Sender, w.fail(task, err))
	}

	finished, ok := w.Complete(task.ID, size)
	if !ok {
		return nil
	}
	logger.Debug("Task finished.", "size", size)
	return w.report(ctx, opts.Sender, finished)
}

func (w *Worker) fetchDependencies(ctx context.Context, task *protocol.ComputeTask, opts RunOptions) error {
	if opts.Fetcher == nil {
		return nil
	}
	for _, dep := range task.DepInfo {
		if w.Holds(dep.ID) {
			continue
		}
		if err := opts.Fetcher.Fetch(ctx, dep, w.Sources(dep)); err != nil {
			return fmt.Errorf("dependency %s: %w", dep.ID, err)
		}
		if err := w.report(ctx, opts.Sender, w.Downloaded(dep.ID, dep.Size)); err != nil {
			return err
		}
	}
	return nil
}

func (w *Worker) fail(task *protocol.ComputeTask, cause error) protocol.FromWorkerMessage {
	failed, ok := w.Fail(task.ID, protocol.TaskFailInfo(cause.Error()))
	if !ok {
		return nil
	}
	return failed
}

func (w *Worker) report(ctx context.Context, sender Sender, msg protocol.FromWorkerMessage) error {
	if msg == nil {
		return nil
	}
	if err := sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("send %s: %w", msg.Op(), err)
	}
	return nil
}
