// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package transport carries protocol frames between the scheduler and its
// workers over socket.io.
//
// The scheduler mounts Server.Handler on its HTTP listener; workers connect
// with Dial. A worker first emits "register" with a msgpack RegisterWorker and
// waits for "registered". After that every protocol message travels as one
// binary "message" event holding exactly one msgpack frame. A dropped
// connection is reported to the scheduler core as a lost worker.
package transport
