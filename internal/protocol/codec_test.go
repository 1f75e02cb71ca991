package protocol

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/taskgrid/internal/taskid"
	"github.com/vmihailenco/msgpack/v5"
)

func TestToWorker_RoundTrip(t *testing.T) {
	testCases := []struct {
		name string
		msg  ToWorkerMessage
	}{
		{
			name: "compute task with dependencies",
			msg: &ComputeTask{
				ID:     11,
				TypeID: 3,
				DepInfo: []DepInfo{
					NewDepInfo(1, 1024, 2),
					NewDepInfo(2, 0, 2, 5, 9),
				},
				Spec:              []byte{0x00, 0xff, 'e', 'c', 'h', 'o'},
				UserPriority:      -4,
				SchedulerPriority: 17,
			},
		},
		{
			name: "compute task without dependencies",
			msg: &ComputeTask{
				ID:                ^taskid.TaskID(0),
				TypeID:            ^taskid.TaskTypeID(0),
				Spec:              []byte("payload"),
				UserPriority:      2147483647,
				SchedulerPriority: -2147483648,
			},
		},
		{name: "delete data", msg: &DeleteData{ID: 99}},
		{name: "steal tasks", msg: &StealTasks{IDs: []taskid.TaskID{5, 6, 7}}},
		{name: "new worker", msg: &NewWorker{WorkerID: 4, Address: "10.0.0.4:7761"}},
		{name: "register subworker", msg: &RegisterSubworker{Definition: SubworkerDefinition(`{"kind":"python"}`)}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			data, err := EncodeToWorker(tc.msg)
			require.NoError(t, err)

			decoded, err := DecodeToWorker(data)
			require.NoError(t, err)
			assert.Equal(t, tc.msg, decoded)
			assert.Equal(t, tc.msg.Op(), decoded.Op())
		})
	}
}

func TestFromWorker_RoundTrip(t *testing.T) {
	testCases := []struct {
		name string
		msg  FromWorkerMessage
	}{
		{name: "task finished", msg: &TaskFinished{ID: 12, Size: 1 << 40}},
		{name: "task failed", msg: &TaskFailed{ID: 13, Info: TaskFailInfo{0xde, 0xad, 0xbe, 0xef}}},
		{name: "data downloaded", msg: &DataDownloaded{ID: 14}},
		{
			name: "steal response",
			msg: &StealResponse{Responses: []StealResponseEntry{
				NewStealResponseEntry(1, StealOk),
				NewStealResponseEntry(2, StealNotHere),
				NewStealResponseEntry(3, StealRunning),
			}},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			data, err := EncodeFromWorker(tc.msg)
			require.NoError(t, err)

			decoded, err := DecodeFromWorker(data)
			require.NoError(t, err)
			assert.Equal(t, tc.msg, decoded)
		})
	}
}

func TestWireShape_ComputeTask(t *testing.T) {
	data, err := EncodeToWorker(&ComputeTask{
		ID:      1,
		TypeID:  2,
		DepInfo: []DepInfo{NewDepInfo(0, 1024, 2)},
		Spec:    []byte("x"),
	})
	require.NoError(t, err)

	var frame map[string]any
	require.NoError(t, msgpack.Unmarshal(data, &frame))

	assert.Equal(t, OpComputeTask, frame["op"])
	for _, key := range []string{"id", "type_id", "dep_info", "spec", "user_priority", "scheduler_priority"} {
		assert.Contains(t, frame, key)
	}
	assert.Equal(t, []byte("x"), frame["spec"], "spec travels as a binary blob")

	deps, ok := frame["dep_info"].([]any)
	require.True(t, ok, "dep_info must be an array, got %T", frame["dep_info"])
	require.Len(t, deps, 1)
	tuple, ok := deps[0].([]any)
	require.True(t, ok, "a dependency is a tuple, got %T", deps[0])
	assert.Len(t, tuple, 3)
}

func TestWireShape_EmptyDepInfoIsOmitted(t *testing.T) {
	data, err := EncodeToWorker(&ComputeTask{ID: 1, Spec: []byte("x")})
	require.NoError(t, err)

	var frame map[string]any
	require.NoError(t, msgpack.Unmarshal(data, &frame))
	assert.NotContains(t, frame, "dep_info")
}

func TestComputeTask_EmptyDepInfoDecodesAsNil(t *testing.T) {
	empty := &ComputeTask{ID: 3, DepInfo: []DepInfo{}, Spec: []byte("x")}
	withNil := &ComputeTask{ID: 3, Spec: []byte("x")}

	emptyFrame, err := EncodeToWorker(empty)
	require.NoError(t, err)
	nilFrame, err := EncodeToWorker(withNil)
	require.NoError(t, err)
	assert.Equal(t, nilFrame, emptyFrame, "empty and nil dep_info must produce the same frame")

	decoded, err := DecodeToWorker(emptyFrame)
	require.NoError(t, err)
	assert.Nil(t, decoded.(*ComputeTask).DepInfo)
	if diff := cmp.Diff(empty, decoded, cmpopts.EquateEmpty(), cmpopts.IgnoreUnexported(DepInfo{})); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestWireShape_StealOutcomeIsNamed(t *testing.T) {
	data, err := EncodeFromWorker(&StealResponse{Responses: []StealResponseEntry{NewStealResponseEntry(8, StealRunning)}})
	require.NoError(t, err)

	var frame map[string]any
	require.NoError(t, msgpack.Unmarshal(data, &frame))
	assert.Equal(t, OpStealResponse, frame["op"])

	entries := frame["responses"].([]any)
	entry := entries[0].([]any)
	assert.Equal(t, "Running", entry[1])
}

func TestDecode_Errors(t *testing.T) {
	toWorker, err := EncodeToWorker(&DeleteData{ID: 1})
	require.NoError(t, err)

	_, err = DecodeFromWorker(toWorker)
	var opErr *UnknownOpError
	require.True(t, errors.As(err, &opErr))
	assert.Equal(t, OpDeleteData, opErr.Op)

	noOp, err := msgpack.Marshal(map[string]any{"id": 1})
	require.NoError(t, err)
	_, err = DecodeToWorker(noOp)
	require.ErrorIs(t, err, errMissingOp)

	_, err = DecodeToWorker([]byte{0xc1})
	require.Error(t, err)

	badOutcome, err := msgpack.Marshal(map[string]any{
		"op":        OpStealResponse,
		"responses": []any{[]any{1, "Maybe"}},
	})
	require.NoError(t, err)
	_, err = DecodeFromWorker(badOutcome)
	require.Error(t, err)
}

func TestEncode_Nil(t *testing.T) {
	_, err := EncodeToWorker(nil)
	require.Error(t, err)
	_, err = EncodeFromWorker(nil)
	require.Error(t, err)
}

func TestStealOutcome_String(t *testing.T) {
	assert.Equal(t, "Ok", StealOk.String())
	assert.Equal(t, "NotHere", StealNotHere.String())
	assert.Equal(t, "Running", StealRunning.String())
	assert.Equal(t, "StealOutcome(0)", StealOutcome(0).String())

	_, err := EncodeFromWorker(&StealResponse{Responses: []StealResponseEntry{{ID: 1}}})
	require.Error(t, err, "zero outcome is not encodable")
}

func TestRegistration_RoundTrip(t *testing.T) {
	data, err := EncodeRegistration(&RegisterWorker{Address: "127.0.0.1:9000"})
	require.NoError(t, err)
	reg, err := DecodeRegistration(data)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", reg.Address)

	resp := &WorkerRegistrationResponse{
		WorkerID:             3,
		WorkerAddresses:      map[taskid.WorkerID]string{1: "a:1", 2: "b:2"},
		SubworkerDefinitions: []SubworkerDefinition{SubworkerDefinition("sw")},
	}
	data, err = EncodeRegistrationResponse(resp)
	require.NoError(t, err)
	decoded, err := DecodeRegistrationResponse(data)
	require.NoError(t, err)
	assert.Equal(t, resp, decoded)
}
