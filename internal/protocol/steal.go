// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package protocol

import (
	"fmt"

	"github.com/vk/taskgrid/internal/taskid"
	"github.com/vmihailenco/msgpack/v5"
)

// StealOutcome is a worker's answer for one id of a steal request.
type StealOutcome uint8

const (
	// StealOk means the task had not started and has been withdrawn. The
	// worker will not report a result for it.
	StealOk StealOutcome = iota + 1
	// StealNotHere means the worker has no record of the task.
	StealNotHere
	// StealRunning means execution already started; the task stays on the worker.
	StealRunning
)

var stealOutcomeNames = map[StealOutcome]string{
	StealOk:      "Ok",
	StealNotHere: "NotHere",
	StealRunning: "Running",
}

// String implements fmt.Stringer.
func (o StealOutcome) String() string {
	if name, ok := stealOutcomeNames[o]; ok {
		return name
	}
	return fmt.Sprintf("StealOutcome(%d)", uint8(o))
}

// ParseStealOutcome converts a wire name back into a StealOutcome.
func ParseStealOutcome(name string) (StealOutcome, error) {
	for o, n := range stealOutcomeNames {
		if n == name {
			return o, nil
		}
	}
	return 0, fmt.Errorf("unknown steal outcome %q", name)
}

// EncodeMsgpack writes the outcome as its name.
func (o StealOutcome) EncodeMsgpack(enc *msgpack.Encoder) error {
	name, ok := stealOutcomeNames[o]
	if !ok {
		return fmt.Errorf("cannot encode invalid steal outcome %d", uint8(o))
	}
	return enc.EncodeString(name)
}

// DecodeMsgpack reads an outcome written by EncodeMsgpack.
func (o *StealOutcome) DecodeMsgpack(dec *msgpack.Decoder) error {
	name, err := dec.DecodeString()
	if err != nil {
		return err
	}
	parsed, err := ParseStealOutcome(name)
	if err != nil {
		return err
	}
	*o = parsed
	return nil
}

// StealResponseEntry pairs a task with the worker's answer. It is encoded as
// a two element array.
type StealResponseEntry struct {
	_msgpack struct{} `msgpack:",as_array"`

	ID      taskid.TaskID
	Outcome StealOutcome
}

// NewStealResponseEntry creates an entry of a StealResponse.
func NewStealResponseEntry(id taskid.TaskID, outcome StealOutcome) StealResponseEntry {
	return StealResponseEntry{ID: id, Outcome: outcome}
}
