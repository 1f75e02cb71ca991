// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/vk/taskgrid/internal/ctxlog"
	"github.com/vk/taskgrid/internal/protocol"
	"github.com/vk/taskgrid/internal/scheduler"
	"github.com/vk/taskgrid/internal/taskid"
	"github.com/vk/taskgrid/internal/transport"
)

const rebalanceInterval = time.Second

// runScheduler serves workers and places every array task until all of them
// have settled. With ExitWhenDone it returns then; otherwise it keeps serving
// until ctx is cancelled.
func (a *App) runScheduler(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	if err := checkArrays(a.model); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	kick := make(chan struct{}, 1)
	wake := func() {
		select {
		case kick <- struct{}{}:
		default:
		}
	}
	srv := transport.NewServer(ctx, transport.ServerHooks{
		WorkerJoined: func(context.Context, taskid.WorkerID) { wake() },
		WorkerLeft: func(ctx context.Context, w taskid.WorkerID, lost []taskid.TaskID) {
			if len(lost) > 0 {
				ctxlog.FromContext(ctx).Warn("Worker left with unfinished tasks.", "worker", w, "lost", len(lost))
			}
			wake()
		},
		Message: func(context.Context, taskid.WorkerID, protocol.FromWorkerMessage) { wake() },
	})
	core := scheduler.New(srv)
	srv.Attach(core)
	defer srv.Close()
	go a.drainViolations(ctx, core)

	d := newDispatcher(core, taskSource(a.model), a.config.QueueDepth)
	defer d.close()

	listener, err := net.Listen("tcp", a.config.Listen)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", a.config.Listen, err)
	}
	if tcp, ok := listener.Addr().(*net.TCPAddr); ok {
		a.addr.Store(tcp)
	}

	mux := http.NewServeMux()
	mux.Handle("/socket.io/", srv.Handler())
	mux.HandleFunc("/health", a.healthHandler)
	httpSrv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := httpSrv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Scheduler server failed unexpectedly", "error", err)
			cancel()
		}
	}()
	defer func() {
		shutdownCtx, stop := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer stop()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Scheduler server shutdown failed", "error", err)
		}
	}()

	a.healthCheckServer()
	defer a.closeHealthCheckServer()

	logger.Info("🚀 Scheduler listening.", "address", listener.Addr().String(), "tasks", a.model.TaskCount())

	ticker := time.NewTicker(rebalanceInterval)
	defer ticker.Stop()

	announced := false
	for {
		done, err := d.step(ctx)
		if err != nil {
			return fmt.Errorf("placement failed: %w", err)
		}
		if done && !announced {
			announced = true
			logger.Info("🏁 All tasks settled.", "finished", d.finished, "failed", d.failed)
			if a.config.ExitWhenDone {
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return nil
		case <-kick:
		case <-ticker.C:
		}
	}
}

// drainViolations keeps the violation buffer empty. The core has already
// logged each one.
func (a *App) drainViolations(ctx context.Context, core *scheduler.Core) {
	var n int
	for {
		select {
		case <-ctx.Done():
			if n > 0 {
				ctxlog.FromContext(ctx).Warn("Protocol violations observed.", "count", n)
			}
			return
		case <-core.Violations():
			n++
		}
	}
}
