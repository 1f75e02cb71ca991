// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package app

import (
	"context"

	"github.com/vk/taskgrid/internal/ctxlog"
	"github.com/vk/taskgrid/internal/transport"
	"github.com/vk/taskgrid/internal/worker"
)

// runWorker connects to the scheduler and executes the tasks it sends until
// the connection drops or ctx is cancelled.
func (a *App) runWorker(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	w := worker.New()

	client, resp, err := transport.Dial(ctx, transport.ClientOptions{
		URL:                a.config.ServerURL,
		Address:            a.config.Address,
		InsecureSkipVerify: a.config.InsecureSkipVerify,
	}, w.Handle)
	if err != nil {
		return err
	}
	defer client.Close()
	w.Register(resp)

	a.healthCheckServer()
	defer a.closeHealthCheckServer()

	ctx, cancel := context.WithCancel(ctxlog.With(ctx, "worker", w.ID()))
	defer cancel()
	go func() {
		select {
		case <-client.Done():
			cancel()
		case <-ctx.Done():
		}
	}()

	logger.Info("🚀 Worker running.", "worker", w.ID(), "concurrency", a.config.Concurrency, "shell", a.config.Shell)
	err = w.Run(ctx, worker.RunOptions{
		Concurrency: a.config.Concurrency,
		Executor:    newShellExecutor(a.config.Shell),
		Sender:      client,
	})
	logger.Info("🏁 Worker stopped.", "worker", w.ID(), "queued", len(w.Queued()), "held", len(w.Held()))
	return err
}
