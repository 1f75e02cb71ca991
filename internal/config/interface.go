// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package config

import (
	"context"

	"github.com/vk/taskgrid/internal/taskid"
)

// Loader is the interface for a format-specific configuration loader.
type Loader interface {
	// Load reads configuration from the given paths and translates it into
	// the format-agnostic model. A single invalid array rejects the whole load.
	Load(ctx context.Context, paths ...string) (*Model, error)
}

// SpecRenderer turns a task of an array into its opaque execution payload.
// It is the bridge between the raw configuration expression and the bytes
// sent with ComputeTask.
type SpecRenderer interface {
	Render(array string, id taskid.JobTaskID) ([]byte, error)
}

// SpecRendererFunc adapts a function to the SpecRenderer interface.
type SpecRendererFunc func(array string, id taskid.JobTaskID) ([]byte, error)

// Render implements SpecRenderer.
func (f SpecRendererFunc) Render(array string, id taskid.JobTaskID) ([]byte, error) {
	return f(array, id)
}
