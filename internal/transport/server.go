// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package transport

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/vk/taskgrid/internal/ctxlog"
	"github.com/vk/taskgrid/internal/protocol"
	"github.com/vk/taskgrid/internal/scheduler"
	"github.com/vk/taskgrid/internal/taskid"
	"github.com/zishang520/socket.io/v2/socket"
)

// ServerHooks are optional callbacks run after the core has applied an event.
type ServerHooks struct {
	WorkerJoined func(ctx context.Context, worker taskid.WorkerID)
	WorkerLeft   func(ctx context.Context, worker taskid.WorkerID, lost []taskid.TaskID)
	Message      func(ctx context.Context, worker taskid.WorkerID, msg protocol.FromWorkerMessage)
}

// Server accepts worker connections for a scheduler core. It is also the
// core's Sender.
type Server struct {
	ctx   context.Context
	io    *socket.Server
	core  *scheduler.Core
	hooks ServerHooks

	mu    sync.RWMutex
	conns map[taskid.WorkerID]*socket.Socket
}

// NewServer creates a server. ctx carries the logger and bounds the
// lifetime of connection handlers. Attach a core before serving.
func NewServer(ctx context.Context, hooks ServerHooks) *Server {
	s := &Server{
		ctx:   ctx,
		io:    socket.NewServer(nil, nil),
		hooks: hooks,
		conns: make(map[taskid.WorkerID]*socket.Socket),
	}
	s.io.On("connection", func(clients ...any) {
		client, ok := clients[0].(*socket.Socket)
		if !ok {
			return
		}
		s.accept(client)
	})
	return s
}

// Attach sets the core that receives worker events.
func (s *Server) Attach(core *scheduler.Core) {
	s.core = core
}

// Handler returns the socket.io endpoint, to be mounted at /socket.io/.
func (s *Server) Handler() http.Handler {
	return s.io.ServeHandler(nil)
}

// Close disconnects every worker.
func (s *Server) Close() {
	s.io.Close(nil)
}

// Connected returns the number of registered connections.
func (s *Server) Connected() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conns)
}

// Send implements scheduler.Sender.
func (s *Server) Send(ctx context.Context, worker taskid.WorkerID, msg protocol.ToWorkerMessage) error {
	s.mu.RLock()
	conn, ok := s.conns[worker]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("worker %s: %w", worker, ErrNotConnected)
	}

	frame, err := protocol.EncodeToWorker(msg)
	if err != nil {
		return err
	}
	return conn.Emit(EventMessage, frame)
}

func (s *Server) accept(client *socket.Socket) {
	logger := ctxlog.FromContext(s.ctx).With("sid", client.Id())
	logger.Debug("Connection accepted.")

	var worker atomic.Uint64

	client.On(EventRegister, func(args ...any) {
		if worker.Load() != 0 {
			logger.Warn("Ignoring repeated registration.")
			return
		}
		data, err := payloadBytes(args)
		if err != nil {
			logger.Warn("Malformed registration.", "error", err)
			client.Disconnect(true)
			return
		}
		reg, err := protocol.DecodeRegistration(data)
		if err != nil {
			logger.Warn("Malformed registration.", "error", err)
			client.Disconnect(true)
			return
		}

		// The connection is reachable before the core can dispatch to it.
		resp, err := s.core.RegisterWorkerWith(s.ctx, reg.Address, func(id taskid.WorkerID) {
			s.mu.Lock()
			s.conns[id] = client
			s.mu.Unlock()
			worker.Store(uint64(id))
		})
		if err != nil {
			logger.Warn("Failed to announce worker to all peers.", "error", err)
		}

		out, err := protocol.EncodeRegistrationResponse(resp)
		if err != nil {
			logger.Error("Failed to encode registration response.", "error", err)
			return
		}
		if err := client.Emit(EventRegistered, out); err != nil {
			logger.Warn("Failed to answer registration.", "error", err)
			return
		}
		if s.hooks.WorkerJoined != nil {
			s.hooks.WorkerJoined(s.ctx, resp.WorkerID)
		}
	})

	client.On(EventMessage, func(args ...any) {
		id := taskid.WorkerID(worker.Load())
		if id == 0 {
			logger.Warn("Message before registration, dropping.")
			return
		}
		data, err := payloadBytes(args)
		if err != nil {
			logger.Warn("Malformed message.", "worker", id, "error", err)
			return
		}
		msg, err := protocol.DecodeFromWorker(data)
		if err != nil {
			logger.Warn("Undecodable message.", "worker", id, "error", err)
			return
		}
		if err := s.core.HandleMessage(s.ctx, id, msg); err != nil {
			logger.Warn("Failed to handle message.", "worker", id, "op", msg.Op(), "error", err)
		}
		if s.hooks.Message != nil {
			s.hooks.Message(s.ctx, id, msg)
		}
	})

	client.On("disconnect", func(reason ...any) {
		id := taskid.WorkerID(worker.Load())
		if id == 0 {
			return
		}
		s.mu.Lock()
		delete(s.conns, id)
		s.mu.Unlock()

		logger.Info("Worker disconnected.", "worker", id, "reason", reason)
		lost := s.core.WorkerLost(s.ctx, id)
		if s.hooks.WorkerLeft != nil {
			s.hooks.WorkerLeft(s.ctx, id, lost)
		}
	})
}
