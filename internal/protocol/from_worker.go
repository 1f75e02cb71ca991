// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package protocol

import (
	"github.com/vk/taskgrid/internal/taskid"
	"github.com/vmihailenco/msgpack/v5"
)

// Op names of worker -> scheduler messages.
const (
	OpTaskFinished   = "TaskFinished"
	OpTaskFailed     = "TaskFailed"
	OpDataDownloaded = "DataDownloaded"
	OpStealResponse  = "StealResponse"
)

// FromWorkerMessage is a message sent by a worker to the scheduler.
type FromWorkerMessage interface {
	Op() string
	fromWorker()
}

// TaskFinished reports a successful task. The worker now holds Size bytes of
// output and becomes a source for tasks depending on it.
type TaskFinished struct {
	ID   taskid.TaskID `msgpack:"id"`
	Size uint64        `msgpack:"size"`
}

// TaskFailed reports an abnormal termination. The task is terminal; whether
// it is ever resubmitted is decided outside the protocol.
type TaskFailed struct {
	ID   taskid.TaskID `msgpack:"id"`
	Info TaskFailInfo  `msgpack:"info"`
}

// DataDownloaded confirms that the worker fetched the output of ID from a
// peer while preparing some other task.
type DataDownloaded struct {
	ID taskid.TaskID `msgpack:"id"`
}

// StealResponse answers a StealTasks request, one entry per requested id.
type StealResponse struct {
	Responses []StealResponseEntry `msgpack:"responses"`
}

func (*TaskFinished) Op() string   { return OpTaskFinished }
func (*TaskFailed) Op() string     { return OpTaskFailed }
func (*DataDownloaded) Op() string { return OpDataDownloaded }
func (*StealResponse) Op() string  { return OpStealResponse }

func (*TaskFinished) fromWorker()   {}
func (*TaskFailed) fromWorker()     {}
func (*DataDownloaded) fromWorker() {}
func (*StealResponse) fromWorker()  {}

func (m TaskFinished) EncodeMsgpack(enc *msgpack.Encoder) error {
	type Fields TaskFinished
	return enc.Encode(struct {
		Op string `msgpack:"op"`
		Fields
	}{OpTaskFinished, Fields(m)})
}

func (m TaskFailed) EncodeMsgpack(enc *msgpack.Encoder) error {
	type Fields TaskFailed
	return enc.Encode(struct {
		Op string `msgpack:"op"`
		Fields
	}{OpTaskFailed, Fields(m)})
}

func (m DataDownloaded) EncodeMsgpack(enc *msgpack.Encoder) error {
	type Fields DataDownloaded
	return enc.Encode(struct {
		Op string `msgpack:"op"`
		Fields
	}{OpDataDownloaded, Fields(m)})
}

func (m StealResponse) EncodeMsgpack(enc *msgpack.Encoder) error {
	type Fields StealResponse
	return enc.Encode(struct {
		Op string `msgpack:"op"`
		Fields
	}{OpStealResponse, Fields(m)})
}
