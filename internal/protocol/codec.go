// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package protocol

import (
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// UnknownOpError is returned when a frame carries an op that does not belong
// to the expected message family.
type UnknownOpError struct {
	Op        string
	Direction string
}

// Error implements the error interface.
func (e *UnknownOpError) Error() string {
	return fmt.Sprintf("unknown %s op %q", e.Direction, e.Op)
}

// errMissingOp is returned for frames without an "op" key.
var errMissingOp = errors.New(`message has no "op" field`)

var toWorkerOps = map[string]func() ToWorkerMessage{
	OpComputeTask:       func() ToWorkerMessage { return new(ComputeTask) },
	OpDeleteData:        func() ToWorkerMessage { return new(DeleteData) },
	OpStealTasks:        func() ToWorkerMessage { return new(StealTasks) },
	OpNewWorker:         func() ToWorkerMessage { return new(NewWorker) },
	OpRegisterSubworker: func() ToWorkerMessage { return new(RegisterSubworker) },
}

var fromWorkerOps = map[string]func() FromWorkerMessage{
	OpTaskFinished:   func() FromWorkerMessage { return new(TaskFinished) },
	OpTaskFailed:     func() FromWorkerMessage { return new(TaskFailed) },
	OpDataDownloaded: func() FromWorkerMessage { return new(DataDownloaded) },
	OpStealResponse:  func() FromWorkerMessage { return new(StealResponse) },
}

// EncodeToWorker encodes a scheduler -> worker message into one frame.
func EncodeToWorker(msg ToWorkerMessage) ([]byte, error) {
	if msg == nil {
		return nil, errors.New("cannot encode nil message")
	}
	data, err := msgpack.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", msg.Op(), err)
	}
	return data, nil
}

// DecodeToWorker decodes one frame produced by EncodeToWorker.
func DecodeToWorker(data []byte) (ToWorkerMessage, error) {
	op, err := peekOp(data)
	if err != nil {
		return nil, err
	}
	newMsg, ok := toWorkerOps[op]
	if !ok {
		return nil, &UnknownOpError{Op: op, Direction: "scheduler->worker"}
	}
	msg := newMsg()
	if err := msgpack.Unmarshal(data, msg); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", op, err)
	}
	return msg, nil
}

// EncodeFromWorker encodes a worker -> scheduler message into one frame.
func EncodeFromWorker(msg FromWorkerMessage) ([]byte, error) {
	if msg == nil {
		return nil, errors.New("cannot encode nil message")
	}
	data, err := msgpack.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", msg.Op(), err)
	}
	return data, nil
}

// DecodeFromWorker decodes one frame produced by EncodeFromWorker.
func DecodeFromWorker(data []byte) (FromWorkerMessage, error) {
	op, err := peekOp(data)
	if err != nil {
		return nil, err
	}
	newMsg, ok := fromWorkerOps[op]
	if !ok {
		return nil, &UnknownOpError{Op: op, Direction: "worker->scheduler"}
	}
	msg := newMsg()
	if err := msgpack.Unmarshal(data, msg); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", op, err)
	}
	return msg, nil
}

// peekOp reads only the discriminator; all other keys are skipped.
func peekOp(data []byte) (string, error) {
	var head struct {
		Op string `msgpack:"op"`
	}
	if err := msgpack.Unmarshal(data, &head); err != nil {
		return "", fmt.Errorf("failed to read message header: %w", err)
	}
	if head.Op == "" {
		return "", errMissingOp
	}
	return head.Op, nil
}
