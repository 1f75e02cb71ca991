// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package depmap

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/vk/taskgrid/internal/protocol"
	"github.com/vk/taskgrid/internal/taskid"
)

// ErrUnknownOutput is returned by Info for a task whose output was never recorded.
var ErrUnknownOutput = errors.New("no output recorded for task")

type entry struct {
	size    uint64
	holders map[taskid.WorkerID]struct{}
}

// Map is the scheduler's view of where finished task outputs live.
type Map struct {
	mu      sync.RWMutex
	outputs map[taskid.TaskID]*entry
}

// New creates an empty map.
func New() *Map {
	return &Map{outputs: make(map[taskid.TaskID]*entry)}
}

// Add records that worker holds size bytes of output for id. The size of the
// first report wins; later holders only join the holder set.
func (m *Map) Add(id taskid.TaskID, size uint64, worker taskid.WorkerID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.outputs[id]
	if !ok {
		e = &entry{size: size, holders: make(map[taskid.WorkerID]struct{})}
		m.outputs[id] = e
	}
	e.holders[worker] = struct{}{}
}

// AddHolder adds worker as a holder of an output that is already recorded.
// It reports false when nothing is known about id.
func (m *Map) AddHolder(id taskid.TaskID, worker taskid.WorkerID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.outputs[id]
	if !ok {
		return false
	}
	e.holders[worker] = struct{}{}
	return true
}

// Remove drops worker from the holders of id. The output record itself is
// kept, even with no holders left, until Forget is called.
func (m *Map) Remove(id taskid.TaskID, worker taskid.WorkerID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.outputs[id]; ok {
		delete(e.holders, worker)
	}
}

// DropWorker removes worker from every holder set and returns the ids it held.
func (m *Map) DropWorker(worker taskid.WorkerID) []taskid.TaskID {
	m.mu.Lock()
	defer m.mu.Unlock()

	var held []taskid.TaskID
	for id, e := range m.outputs {
		if _, ok := e.holders[worker]; ok {
			delete(e.holders, worker)
			held = append(held, id)
		}
	}
	slices.Sort(held)
	return held
}

// Forget removes every trace of id and returns the workers that held it.
func (m *Map) Forget(id taskid.TaskID) []taskid.WorkerID {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.outputs[id]
	if !ok {
		return nil
	}
	delete(m.outputs, id)
	return sortedHolders(e)
}

// Holders returns the workers believed to hold id, in ascending order.
func (m *Map) Holders(id taskid.TaskID) []taskid.WorkerID {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.outputs[id]
	if !ok {
		return nil
	}
	return sortedHolders(e)
}

// Size returns the recorded output size of id.
func (m *Map) Size(id taskid.TaskID) (uint64, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.outputs[id]
	if !ok {
		return 0, false
	}
	return e.size, true
}

// Has reports whether an output is recorded for id.
func (m *Map) Has(id taskid.TaskID) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.outputs[id]
	return ok
}

// Len returns the number of recorded outputs.
func (m *Map) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.outputs)
}

// Info builds the dependency tuples sent with a ComputeTask, in the order the
// ids are given. Every id must have a recorded output; an empty holder list is
// valid and means no peer source is currently known.
func (m *Map) Info(ids ...taskid.TaskID) ([]protocol.DepInfo, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	infos := make([]protocol.DepInfo, 0, len(ids))
	for _, id := range ids {
		e, ok := m.outputs[id]
		if !ok {
			return nil, fmt.Errorf("dependency %s: %w", id, ErrUnknownOutput)
		}
		infos = append(infos, protocol.NewDepInfo(id, e.size, sortedHolders(e)...))
	}
	return infos, nil
}

func sortedHolders(e *entry) []taskid.WorkerID {
	if len(e.holders) == 0 {
		return nil
	}
	holders := make([]taskid.WorkerID, 0, len(e.holders))
	for w := range e.holders {
		holders = append(holders, w)
	}
	slices.Sort(holders)
	return holders
}
