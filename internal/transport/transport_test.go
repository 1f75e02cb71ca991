package transport

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/taskgrid/internal/protocol"
	"github.com/vk/taskgrid/internal/scheduler"
	"github.com/vk/taskgrid/internal/taskid"
	"github.com/zishang520/engine.io/v2/types"
)

func TestPayloadBytes(t *testing.T) {
	got, err := payloadBytes([]any{[]byte{1, 2}})
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2}, got)

	got, err = payloadBytes([]any{types.NewBytesBuffer([]byte{3})})
	require.NoError(t, err)
	assert.Equal(t, []byte{3}, got)

	got, err = payloadBytes([]any{bytes.NewReader([]byte{4, 5})})
	require.NoError(t, err)
	assert.Equal(t, []byte{4, 5}, got)

	_, err = payloadBytes(nil)
	require.Error(t, err)
	_, err = payloadBytes([]any{"text"})
	require.Error(t, err)
}

func TestServerSend_NotConnected(t *testing.T) {
	srv := NewServer(context.Background(), ServerHooks{})
	defer srv.Close()

	err := srv.Send(context.Background(), 3, &protocol.DeleteData{ID: 1})
	require.ErrorIs(t, err, ErrNotConnected)
	assert.Zero(t, srv.Connected())
}

func TestEndToEnd(t *testing.T) {
	ctx := context.Background()
	joined := make(chan taskid.WorkerID, 1)
	left := make(chan []taskid.TaskID, 1)
	handled := make(chan protocol.FromWorkerMessage, 4)

	srv := NewServer(ctx, ServerHooks{
		WorkerJoined: func(_ context.Context, w taskid.WorkerID) { joined <- w },
		WorkerLeft:   func(_ context.Context, _ taskid.WorkerID, lost []taskid.TaskID) { left <- lost },
		Message:      func(_ context.Context, _ taskid.WorkerID, m protocol.FromWorkerMessage) { handled <- m },
	})
	core := scheduler.New(srv)
	srv.Attach(core)

	mux := http.NewServeMux()
	mux.Handle("/socket.io/", srv.Handler())
	hs := httptest.NewServer(mux)
	defer hs.Close()
	defer srv.Close()

	received := make(chan protocol.ToWorkerMessage, 4)
	client, resp, err := Dial(ctx, ClientOptions{
		URL:            hs.URL + "/socket.io/",
		Address:        "127.0.0.1:9100",
		ConnectTimeout: 10 * time.Second,
	}, func(_ context.Context, m protocol.ToWorkerMessage) []protocol.FromWorkerMessage {
		received <- m
		if steal, ok := m.(*protocol.StealTasks); ok {
			return []protocol.FromWorkerMessage{&protocol.StealResponse{Responses: []protocol.StealResponseEntry{
				protocol.NewStealResponseEntry(steal.IDs[0], protocol.StealRunning),
			}}}
		}
		return nil
	})
	require.NoError(t, err)
	defer client.Close()
	assert.Equal(t, taskid.WorkerID(1), resp.WorkerID)

	select {
	case w := <-joined:
		assert.Equal(t, taskid.WorkerID(1), w)
	case <-time.After(5 * time.Second):
		t.Fatal("worker never joined")
	}

	require.NoError(t, core.Dispatch(ctx, scheduler.Task{ID: 7, Spec: []byte{0x00, 0x01}}, 1))
	select {
	case m := <-received:
		assert.Equal(t, &protocol.ComputeTask{ID: 7, Spec: []byte{0x00, 0x01}}, m)
	case <-time.After(5 * time.Second):
		t.Fatal("ComputeTask never arrived")
	}

	requested, err := core.RequestSteal(ctx, 1, []taskid.TaskID{7})
	require.NoError(t, err)
	require.Equal(t, []taskid.TaskID{7}, requested)
	<-received
	select {
	case m := <-handled:
		assert.IsType(t, &protocol.StealResponse{}, m)
	case <-time.After(5 * time.Second):
		t.Fatal("StealResponse never arrived")
	}
	assert.Empty(t, core.PendingSteals())

	require.NoError(t, client.Send(ctx, &protocol.TaskFinished{ID: 7, Size: 2}))
	select {
	case m := <-handled:
		assert.Equal(t, &protocol.TaskFinished{ID: 7, Size: 2}, m)
	case <-time.After(5 * time.Second):
		t.Fatal("TaskFinished never arrived")
	}
	info, ok := core.Task(7)
	require.True(t, ok)
	assert.Equal(t, scheduler.StateFinished, info.State)

	client.Close()
	select {
	case lost := <-left:
		assert.Empty(t, lost)
	case <-time.After(5 * time.Second):
		t.Fatal("disconnect was not noticed")
	}
	assert.Empty(t, core.WorkerIDs())
	<-client.Done()
}
