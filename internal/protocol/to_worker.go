// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package protocol

import (
	"github.com/vk/taskgrid/internal/taskid"
	"github.com/vmihailenco/msgpack/v5"
)

// Op names of scheduler -> worker messages.
const (
	OpComputeTask       = "ComputeTask"
	OpDeleteData        = "DeleteData"
	OpStealTasks        = "StealTasks"
	OpNewWorker         = "NewWorker"
	OpRegisterSubworker = "RegisterSubworker"
)

// ToWorkerMessage is a message sent by the scheduler to a worker.
type ToWorkerMessage interface {
	Op() string
	toWorker()
}

// ComputeTask dispatches a task. DepInfo lists every dependency the task
// needs together with its size and current holders. An empty DepInfo is
// omitted from the frame, so nil and empty slices are the same on the wire
// and both decode as nil.
type ComputeTask struct {
	ID                taskid.TaskID        `msgpack:"id"`
	TypeID            taskid.TaskTypeID    `msgpack:"type_id"`
	DepInfo           []DepInfo            `msgpack:"dep_info,omitempty"`
	Spec              []byte               `msgpack:"spec"`
	UserPriority      taskid.PriorityValue `msgpack:"user_priority"`
	SchedulerPriority taskid.PriorityValue `msgpack:"scheduler_priority"`
}

// DeleteData asks a worker to release the output it holds for ID.
type DeleteData struct {
	ID taskid.TaskID `msgpack:"id"`
}

// StealTasks asks a worker to give back the listed tasks if it has not
// started them yet. The worker answers with exactly one entry per id.
type StealTasks struct {
	IDs []taskid.TaskID `msgpack:"ids"`
}

// NewWorker announces a peer worker and the address it serves data on.
type NewWorker struct {
	WorkerID taskid.WorkerID `msgpack:"worker_id"`
	Address  string          `msgpack:"address"`
}

// RegisterSubworker registers a local execution sandbox on the worker.
type RegisterSubworker struct {
	Definition SubworkerDefinition `msgpack:"definition"`
}

func (*ComputeTask) Op() string       { return OpComputeTask }
func (*DeleteData) Op() string        { return OpDeleteData }
func (*StealTasks) Op() string        { return OpStealTasks }
func (*NewWorker) Op() string         { return OpNewWorker }
func (*RegisterSubworker) Op() string { return OpRegisterSubworker }

func (*ComputeTask) toWorker()       {}
func (*DeleteData) toWorker()        {}
func (*StealTasks) toWorker()        {}
func (*NewWorker) toWorker()         {}
func (*RegisterSubworker) toWorker() {}

// The EncodeMsgpack methods flatten the message fields next to the "op" key.
// Each one converts to a method-less copy of the struct so the embedded value
// is encoded field by field instead of recursing.

func (m ComputeTask) EncodeMsgpack(enc *msgpack.Encoder) error {
	type Fields ComputeTask
	return enc.Encode(struct {
		Op string `msgpack:"op"`
		Fields
	}{OpComputeTask, Fields(m)})
}

func (m DeleteData) EncodeMsgpack(enc *msgpack.Encoder) error {
	type Fields DeleteData
	return enc.Encode(struct {
		Op string `msgpack:"op"`
		Fields
	}{OpDeleteData, Fields(m)})
}

func (m StealTasks) EncodeMsgpack(enc *msgpack.Encoder) error {
	type Fields StealTasks
	return enc.Encode(struct {
		Op string `msgpack:"op"`
		Fields
	}{OpStealTasks, Fields(m)})
}

func (m NewWorker) EncodeMsgpack(enc *msgpack.Encoder) error {
	type Fields NewWorker
	return enc.Encode(struct {
		Op string `msgpack:"op"`
		Fields
	}{OpNewWorker, Fields(m)})
}

func (m RegisterSubworker) EncodeMsgpack(enc *msgpack.Encoder) error {
	type Fields RegisterSubworker
	return enc.Encode(struct {
		Op string `msgpack:"op"`
		Fields
	}{OpRegisterSubworker, Fields(m)})
}
