// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package app

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/vk/taskgrid/internal/protocol"
)

// shellExecutor runs a task's spec as a shell script. The size of the
// task's output is the number of bytes the script wrote to stdout.
type shellExecutor struct {
	shell string
}

func newShellExecutor(shell string) *shellExecutor {
	return &shellExecutor{shell: shell}
}

// Execute implements worker.Executor.
func (e *shellExecutor) Execute(ctx context.Context, task *protocol.ComputeTask) (uint64, error) {
	cmd := exec.CommandContext(ctx, e.shell, "-c", string(task.Spec))
	cmd.Env = append(os.Environ(),
		"TASKGRID_TASK_ID="+task.ID.String(),
		"TASKGRID_TYPE_ID="+task.TypeID.String(),
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return 0, fmt.Errorf("%w: %s", err, msg)
		}
		return 0, err
	}
	return uint64(stdout.Len()), nil
}
