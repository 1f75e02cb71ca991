// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// This file contains the logic for translating HCL schema structs into the
// format-agnostic configuration model defined in the config package.

package hcl_adapter

import (
	"context"
	"fmt"

	"github.com/vk/taskgrid/internal/arraydef"
	"github.com/vk/taskgrid/internal/config"
	"github.com/vk/taskgrid/internal/ctxlog"
	"github.com/vk/taskgrid/internal/taskid"
)

func (l *Loader) translateScheduler(s *Scheduler) *config.Scheduler {
	return &config.Scheduler{
		Listen:          s.Listen,
		HealthcheckPort: s.HealthcheckPort,
		ExitWhenDone:    s.ExitWhenDone,
	}
}

func (l *Loader) translateWorker(w *Worker) *config.Worker {
	return &config.Worker{
		Server:      w.Server,
		Address:     w.Address,
		Concurrency: w.Concurrency,
		Shell:       w.Shell,
	}
}

// translateArray validates the range of an array block. A malformed range
// fails the block, and with it the whole load.
func (l *Loader) translateArray(ctx context.Context, a *Array) (*config.ArrayJob, error) {
	logger := ctxlog.FromContext(ctx).With("array", a.Name)
	ctx = ctxlog.WithLogger(ctx, logger)

	def, err := arraydef.Parse(a.Range)
	if err != nil {
		return nil, fmt.Errorf("array %q: %w", a.Name, err)
	}

	job := &config.ArrayJob{
		Name:         a.Name,
		Range:        def,
		TypeID:       taskid.TaskTypeID(a.TypeID),
		UserPriority: taskid.PriorityValue(a.UserPriority),
	}
	if isExprDefined(ctx, a.Spec, "spec") {
		job.Spec = &exprRenderer{expr: a.Spec}
	} else {
		logger.Debug("No spec declared, tasks carry their id.")
		job.Spec = config.SpecRendererFunc(taskIDRenderer)
	}
	return job, nil
}
