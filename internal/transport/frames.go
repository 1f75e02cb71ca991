// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package transport

import (
	"errors"
	"fmt"
	"io"

	"github.com/zishang520/engine.io/v2/types"
)

// Event names used on the wire.
const (
	EventRegister   = "register"
	EventRegistered = "registered"
	EventMessage    = "message"
)

// ErrNotConnected is returned when sending to a worker without a live connection.
var ErrNotConnected = errors.New("worker is not connected")

// payloadBytes extracts the single binary argument of an event. socket.io
// hands received attachments over as buffers.
func payloadBytes(args []any) ([]byte, error) {
	if len(args) == 0 {
		return nil, errors.New("event has no payload")
	}
	switch v := args[0].(type) {
	case []byte:
		return v, nil
	case types.BufferInterface:
		return v.Bytes(), nil
	case io.Reader:
		return io.ReadAll(v)
	default:
		return nil, fmt.Errorf("unexpected payload type %T", args[0])
	}
}
