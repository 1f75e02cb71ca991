// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package protocol defines the messages exchanged between the scheduler and
// its workers, and their msgpack wire encoding.
//
// # Message families
//
// There are two closed families, one per direction:
//
//   - ToWorkerMessage: ComputeTask, DeleteData, StealTasks, NewWorker, RegisterSubworker
//   - FromWorkerMessage: TaskFinished, TaskFailed, DataDownloaded, StealResponse
//
// Each family is a sealed interface: only the types in this package implement
// it. New variants may be added, but existing op names and field names must
// never change, as they are the wire contract.
//
// # Wire format
//
// Every message is one msgpack map. The "op" key carries the variant name
// ("ComputeTask", "TaskFinished", ...) and the remaining keys are the
// variant's fields in snake_case. Opaque payloads (a task's spec, failure
// info, subworker definitions) are msgpack bin values and are never
// interpreted here. Tuples such as a dependency entry are encoded as arrays.
//
// Registration (RegisterWorker and WorkerRegistrationResponse) happens once
// per connection and is not part of either family.
package protocol
