// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"

	"github.com/vk/taskgrid/internal/config"
	"github.com/vk/taskgrid/internal/ctxlog"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW       io.Writer
	logger     *slog.Logger
	ctx        context.Context
	config     *Config
	model      *config.Model
	httpServer *http.Server
	addr       atomic.Pointer[net.TCPAddr]
}

// NewApp is the constructor for the main application. It builds an isolated
// logger, loads every configuration file through loader and merges the
// result into cfg.
func NewApp(outW io.Writer, cfg *Config, loader config.Loader) (*App, error) {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, cfg.Mode, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	model := &config.Model{}
	if len(cfg.ConfigPaths) > 0 {
		loaded, err := loader.Load(ctx, cfg.ConfigPaths...)
		if err != nil {
			return nil, fmt.Errorf("failed to load configuration: %w", err)
		}
		model = loaded
		logger.Debug("Configuration loaded and translated into unified model.", "arrays", len(model.Arrays), "tasks", model.TaskCount())
	}

	merged := *cfg
	if err := merged.merge(model); err != nil {
		return nil, err
	}

	return &App{
		outW:   outW,
		logger: logger,
		ctx:    ctx,
		config: &merged,
		model:  model,
	}, nil
}

// Config returns the effective configuration after merging.
func (a *App) Config() *Config {
	return a.config
}

// Addr returns the address the scheduler listens on, or nil before it does.
func (a *App) Addr() net.Addr {
	if addr := a.addr.Load(); addr != nil {
		return addr
	}
	return nil
}

// Run executes the configured mode until it completes or ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.ctx = ctx
	a.logger.Debug("App.Run method started.", "mode", a.config.Mode)
	defer a.logger.Debug("App.Run method finished.")

	switch a.config.Mode {
	case ModeServer:
		return a.runScheduler(ctx)
	case ModeWorker:
		return a.runWorker(ctx)
	case ModeExpand:
		return a.runExpand(ctx)
	default:
		return fmt.Errorf("unknown mode %q", a.config.Mode)
	}
}
