// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package transport

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/vk/taskgrid/internal/ctxlog"
	"github.com/vk/taskgrid/internal/protocol"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

const defaultConnectTimeout = 15 * time.Second

// ClientOptions configures Dial.
type ClientOptions struct {
	// URL of the scheduler's socket.io endpoint, e.g. http://host:7760/socket.io/.
	URL string
	// Address is announced to peers as the place to fetch data from.
	Address            string
	InsecureSkipVerify bool
	ConnectTimeout     time.Duration
}

// MessageHandler receives every message sent by the scheduler, in order. The
// returned replies are sent back immediately.
type MessageHandler func(ctx context.Context, msg protocol.ToWorkerMessage) []protocol.FromWorkerMessage

// Client is a worker's connection to the scheduler.
type Client struct {
	io       *socket.Socket
	done     chan struct{}
	doneOnce sync.Once
}

type registration struct {
	resp *protocol.WorkerRegistrationResponse
	err  error
}

// Dial connects to the scheduler, registers and returns the scheduler's
// answer. handle is called for every message that follows.
func Dial(ctx context.Context, opts ClientOptions, handle MessageHandler) (*Client, *protocol.WorkerRegistrationResponse, error) {
	logger := ctxlog.FromContext(ctx).With("url", opts.URL)

	parsedURL, err := url.Parse(opts.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	regFrame, err := protocol.EncodeRegistration(&protocol.RegisterWorker{Address: opts.Address})
	if err != nil {
		return nil, nil, err
	}

	ioOpts := socket.DefaultOptions()
	ioOpts.SetPath(parsedURL.Path)
	ioOpts.SetReconnection(false)
	if opts.InsecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification")
		ioOpts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	ioOpts.SetTransports(types.NewSet(transports.WebSocket))

	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	manager := socket.NewManager(baseURL, ioOpts)
	io := manager.Socket("/", ioOpts)

	c := &Client{io: io, done: make(chan struct{})}
	registered := make(chan registration, 1)
	deliver := func(r registration) {
		select {
		case registered <- r:
		default:
		}
	}

	io.Once(types.EventName("connect"), func(...any) {
		logger.Debug("Connected, registering.", "sid", io.Id())
		if err := io.Emit(EventRegister, regFrame); err != nil {
			deliver(registration{err: err})
		}
	})
	io.Once(types.EventName("connect_error"), func(errs ...any) {
		err, _ := errs[0].(error)
		if err == nil {
			err = fmt.Errorf("%v", errs[0])
		}
		deliver(registration{err: err})
	})
	io.Once(types.EventName(EventRegistered), func(args ...any) {
		data, err := payloadBytes(args)
		if err != nil {
			deliver(registration{err: err})
			return
		}
		resp, err := protocol.DecodeRegistrationResponse(data)
		deliver(registration{resp: resp, err: err})
	})
	io.On(types.EventName(EventMessage), func(args ...any) {
		data, err := payloadBytes(args)
		if err != nil {
			logger.Warn("Malformed message.", "error", err)
			return
		}
		msg, err := protocol.DecodeToWorker(data)
		if err != nil {
			logger.Warn("Undecodable message.", "error", err)
			return
		}
		for _, reply := range handle(ctx, msg) {
			if err := c.Send(ctx, reply); err != nil {
				logger.Warn("Failed to send reply.", "op", reply.Op(), "error", err)
			}
		}
	})
	io.On(types.EventName("disconnect"), func(reason ...any) {
		logger.Info("Disconnected from scheduler.", "reason", reason)
		c.markDone()
	})

	timeout := opts.ConnectTimeout
	if timeout <= 0 {
		timeout = defaultConnectTimeout
	}

	io.Connect()

	select {
	case reg := <-registered:
		if reg.err != nil {
			io.Disconnect()
			return nil, nil, fmt.Errorf("registration with scheduler failed: %w", reg.err)
		}
		logger.Info("Registered with scheduler.", "worker", reg.resp.WorkerID, "peers", len(reg.resp.WorkerAddresses))
		return c, reg.resp, nil
	case <-ctx.Done():
		io.Disconnect()
		return nil, nil, errors.New("context cancelled while waiting for registration")
	case <-time.After(timeout):
		io.Disconnect()
		return nil, nil, fmt.Errorf("timed out after %v waiting for registration", timeout)
	}
}

// Send delivers msg to the scheduler.
func (c *Client) Send(_ context.Context, msg protocol.FromWorkerMessage) error {
	if !c.io.Connected() {
		return ErrNotConnected
	}
	frame, err := protocol.EncodeFromWorker(msg)
	if err != nil {
		return err
	}
	return c.io.Emit(EventMessage, frame)
}

// Done is closed when the connection is gone.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Close disconnects from the scheduler.
func (c *Client) Close() {
	c.io.Disconnect()
	c.markDone()
}

func (c *Client) markDone() {
	c.doneOnce.Do(func() { close(c.done) })
}
