// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package protocol

import (
	"fmt"

	"github.com/vk/taskgrid/internal/taskid"
	"github.com/vmihailenco/msgpack/v5"
)

// RegisterWorker is the first thing a worker sends after connecting.
// Address is where peers can fetch data from it.
type RegisterWorker struct {
	Address string `msgpack:"address"`
}

// WorkerRegistrationResponse is the scheduler's answer to RegisterWorker. It
// carries the identity assigned to the worker and everything the worker
// would otherwise have missed: its current peers and the registered subworkers.
type WorkerRegistrationResponse struct {
	WorkerID             taskid.WorkerID            `msgpack:"worker_id"`
	WorkerAddresses      map[taskid.WorkerID]string `msgpack:"worker_addresses"`
	SubworkerDefinitions []SubworkerDefinition      `msgpack:"subworker_definitions"`
}

// EncodeRegistration encodes a RegisterWorker handshake.
func EncodeRegistration(r *RegisterWorker) ([]byte, error) {
	return msgpack.Marshal(r)
}

// DecodeRegistration decodes a RegisterWorker handshake.
func DecodeRegistration(data []byte) (*RegisterWorker, error) {
	var r RegisterWorker
	if err := msgpack.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to decode worker registration: %w", err)
	}
	return &r, nil
}

// EncodeRegistrationResponse encodes the scheduler's handshake answer.
func EncodeRegistrationResponse(r *WorkerRegistrationResponse) ([]byte, error) {
	return msgpack.Marshal(r)
}

// DecodeRegistrationResponse decodes the scheduler's handshake answer.
func DecodeRegistrationResponse(data []byte) (*WorkerRegistrationResponse, error) {
	var r WorkerRegistrationResponse
	if err := msgpack.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to decode registration response: %w", err)
	}
	return &r, nil
}
