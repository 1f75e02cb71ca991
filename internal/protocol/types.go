// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package protocol

import "github.com/vk/taskgrid/internal/taskid"

// TaskFailInfo is the diagnostic payload attached to a failure report. It is
// an opaque blob produced by the execution layer.
type TaskFailInfo []byte

// SubworkerDefinition describes a local execution sandbox a worker may use.
// It is routed, never inspected.
type SubworkerDefinition []byte

// DepInfo tells a worker where the output of one dependency can be fetched
// from. Holders may be empty (nobody is known to hold the data) or list
// several workers (any of them may be used). The list is a hint: a holder may
// have dropped the data by the time the worker asks for it.
type DepInfo struct {
	_msgpack struct{} `msgpack:",as_array"`

	ID      taskid.TaskID
	Size    uint64
	Holders []taskid.WorkerID
}

// NewDepInfo creates a dependency entry.
func NewDepInfo(id taskid.TaskID, size uint64, holders ...taskid.WorkerID) DepInfo {
	return DepInfo{ID: id, Size: size, Holders: holders}
}

// HasHolders reports whether at least one worker is believed to hold the data.
func (d DepInfo) HasHolders() bool {
	return len(d.Holders) > 0
}
