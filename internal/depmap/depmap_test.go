package depmap

import (
	"fmt"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/taskgrid/internal/protocol"
	"github.com/vk/taskgrid/internal/taskid"
)

func TestAddAndHolders(t *testing.T) {
	m := New()

	assert.Nil(t, m.Holders(1))
	_, ok := m.Size(1)
	assert.False(t, ok)

	m.Add(1, 1024, 7)
	m.Add(1, 999, 3)
	m.Add(1, 1024, 7)

	assert.Equal(t, []taskid.WorkerID{3, 7}, m.Holders(1))
	size, ok := m.Size(1)
	require.True(t, ok)
	assert.Equal(t, uint64(1024), size, "the first reported size wins")
	assert.Equal(t, 1, m.Len())
}

func TestAddHolder(t *testing.T) {
	m := New()
	assert.False(t, m.AddHolder(5, 1), "unknown outputs cannot gain holders")
	assert.False(t, m.Has(5))

	m.Add(5, 10, 1)
	assert.True(t, m.AddHolder(5, 2))
	assert.Equal(t, []taskid.WorkerID{1, 2}, m.Holders(5))
}

func TestRemoveKeepsRecord(t *testing.T) {
	m := New()
	m.Add(1, 64, 2)
	m.Remove(1, 2)
	m.Remove(1, 2)
	m.Remove(42, 2)

	assert.True(t, m.Has(1))
	assert.Empty(t, m.Holders(1))

	infos, err := m.Info(1)
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.False(t, infos[0].HasHolders(), "an output with no holder is still describable")
}

func TestDropWorker(t *testing.T) {
	m := New()
	m.Add(3, 1, 1)
	m.Add(1, 1, 1)
	m.Add(1, 1, 2)
	m.Add(2, 1, 2)

	assert.Equal(t, []taskid.TaskID{1, 3}, m.DropWorker(1))
	assert.Nil(t, m.DropWorker(1))
	assert.Equal(t, []taskid.WorkerID{2}, m.Holders(1))
	assert.Empty(t, m.Holders(3))
}

func TestForget(t *testing.T) {
	m := New()
	m.Add(9, 8, 4)
	m.Add(9, 8, 1)

	assert.Equal(t, []taskid.WorkerID{1, 4}, m.Forget(9))
	assert.Nil(t, m.Forget(9))
	assert.False(t, m.Has(9))
}

func TestInfo(t *testing.T) {
	m := New()
	m.Add(0, 1024, 2)
	m.Add(5, 3, 9)
	m.Add(5, 3, 1)

	infos, err := m.Info(5, 0)
	require.NoError(t, err)

	want := []struct {
		ID      taskid.TaskID
		Size    uint64
		Holders []taskid.WorkerID
	}{
		{5, 3, []taskid.WorkerID{1, 9}},
		{0, 1024, []taskid.WorkerID{2}},
	}
	got := make([]struct {
		ID      taskid.TaskID
		Size    uint64
		Holders []taskid.WorkerID
	}, len(infos))
	for i, info := range infos {
		got[i].ID, got[i].Size, got[i].Holders = info.ID, info.Size, info.Holders
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Info() mismatch (-want +got):\n%s", diff)
	}

	none, err := m.Info()
	require.NoError(t, err)
	assert.Nil(t, none)

	_, err = m.Info(0, 77)
	require.ErrorIs(t, err, ErrUnknownOutput)
}

func TestInfo_SingleDependencyScenario(t *testing.T) {
	m := New()
	m.Add(0, 1024, 2)

	infos, err := m.Info(0)
	require.NoError(t, err)
	assert.Equal(t, []protocol.DepInfo{protocol.NewDepInfo(0, 1024, 2)}, infos)
}

func TestConcurrentAccess(t *testing.T) {
	m := New()
	var wg sync.WaitGroup
	numGoroutines := 50

	wg.Add(numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func(i int) {
			defer wg.Done()
			id := taskid.TaskID(i % 5)
			worker := taskid.WorkerID(i)
			m.Add(id, uint64(i), worker)
			_ = m.Holders(id)
			_, _ = m.Info(id)
			if i%3 == 0 {
				m.Remove(id, worker)
			}
		}(i)
	}
	wg.Wait()

	total := 0
	for id := taskid.TaskID(0); id < 5; id++ {
		total += len(m.Holders(id))
	}
	removed := 0
	for i := 0; i < numGoroutines; i++ {
		if i%3 == 0 {
			removed++
		}
	}
	assert.Equal(t, numGoroutines-removed, total, fmt.Sprintf("holders after %d writers", numGoroutines))
}
