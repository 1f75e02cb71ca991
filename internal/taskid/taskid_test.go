package taskid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTaskID(t *testing.T) {
	testCases := []struct {
		name      string
		raw       string
		expected  TaskID
		expectErr bool
	}{
		{name: "zero", raw: "0", expected: 0},
		{name: "large", raw: "18446744073709551615", expected: TaskID(^uint64(0))},
		{name: "error - empty", raw: "", expectErr: true},
		{name: "error - sign", raw: "+1", expectErr: true},
		{name: "error - overflow", raw: "18446744073709551616", expectErr: true},
		{name: "error - trailing garbage", raw: "12x", expectErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			id, err := ParseTaskID(tc.raw)
			if tc.expectErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, id)
			assert.Equal(t, tc.raw, id.String())
		})
	}
}

func TestParseWorkerID(t *testing.T) {
	id, err := ParseWorkerID("42")
	require.NoError(t, err)
	assert.Equal(t, WorkerID(42), id)

	_, err = ParseWorkerID("-1")
	require.Error(t, err)
}

func TestPriorities_Before(t *testing.T) {
	high := Priorities{User: 5, Scheduler: 0}
	low := Priorities{User: 1, Scheduler: 100}
	tieHigh := Priorities{User: 1, Scheduler: 101}

	assert.True(t, high.Before(low), "user priority dominates")
	assert.False(t, low.Before(high))
	assert.True(t, tieHigh.Before(low), "scheduler priority breaks ties")
	assert.False(t, low.Before(low), "equal priorities are not ordered")
}
