package arraydef

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/taskgrid/internal/taskid"
)

func TestTaskIDRange_Iteration(t *testing.T) {
	r, err := NewTaskIDRange(34, 7)
	require.NoError(t, err)

	expected := []taskid.JobTaskID{34, 35, 36, 37, 38, 39, 40}
	assert.Equal(t, expected, slices.Collect(r.All()))
	// The sequence is restartable.
	assert.Equal(t, expected, slices.Collect(r.All()))
	assert.Equal(t, "34-40", r.String())
}

func TestTaskIDRange_EarlyStop(t *testing.T) {
	r, err := NewTaskIDRange(0, 4000000000)
	require.NoError(t, err)

	var seen []taskid.JobTaskID
	for id := range r.All() {
		if len(seen) == 3 {
			break
		}
		seen = append(seen, id)
	}
	assert.Equal(t, []taskid.JobTaskID{0, 1, 2}, seen)
}

func TestNewTaskIDRange_Invalid(t *testing.T) {
	_, err := NewTaskIDRange(5, 0)
	require.Error(t, err)

	_, err = NewTaskIDRange(^uint32(0), 2)
	require.Error(t, err)

	r, err := NewTaskIDRange(^uint32(0), 1)
	require.NoError(t, err)
	assert.Equal(t, taskid.JobTaskID(^uint32(0)), r.End())
}

func TestArrayDef_Contains(t *testing.T) {
	def, err := Parse("10-12")
	require.NoError(t, err)

	assert.False(t, def.Contains(9))
	assert.True(t, def.Contains(10))
	assert.True(t, def.Contains(12))
	assert.False(t, def.Contains(13))
	assert.False(t, ArrayDef{}.Contains(0), "zero value covers nothing")
	assert.Equal(t, "10-12", def.String())
}
