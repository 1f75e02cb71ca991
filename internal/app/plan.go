// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package app

import (
	"fmt"
	"iter"

	"github.com/vk/taskgrid/internal/config"
	"github.com/vk/taskgrid/internal/scheduler"
	"github.com/vk/taskgrid/internal/taskid"
)

// taskSource lazily turns the arrays of m into scheduler tasks. Task ids are
// numbered from 1 across all arrays in declaration order.
func taskSource(m *config.Model) iter.Seq2[scheduler.Task, error] {
	return func(yield func(scheduler.Task, error) bool) {
		var next taskid.TaskID
		for _, array := range m.Arrays {
			for id := range array.Range.All() {
				next++
				spec, err := array.Render(id)
				if err != nil {
					yield(scheduler.Task{}, err)
					return
				}
				task := scheduler.Task{
					ID:           next,
					TypeID:       array.TypeID,
					Spec:         spec,
					UserPriority: array.UserPriority,
				}
				if !yield(task, nil) {
					return
				}
			}
		}
	}
}

// checkArrays renders the first task of every array so that a broken spec
// expression is reported before the scheduler starts listening.
func checkArrays(m *config.Model) error {
	for _, array := range m.Arrays {
		if _, err := array.Render(array.Range.Range().Start()); err != nil {
			return fmt.Errorf("invalid array %q: %w", array.Name, err)
		}
	}
	return nil
}
