package task

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCreateRequiresPID(t *testing.T) {
	t.Parallel()

	m := NewManager()
	_, err := m.Create("echo hi", 0, 0)
	require.ErrorIs(t, err, ErrNoPID)
}

func TestCreateAndGet(t *testing.T) {
	t.Parallel()

	m := NewManager()
	id, err := m.Create("sleep 10", 1234, 1234)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	snap, ok := m.Get(id)
	require.True(t, ok)
	require.Equal(t, "sleep 10", snap.Command)
	require.Equal(t, 1234, snap.PID)
	require.Equal(t, StatusRunning, snap.Status)
	require.Nil(t, snap.ExitCode)
	require.Empty(t, snap.Output)

	_, ok = m.Get("nope")
	require.False(t, ok)
}

func TestAppendOutput(t *testing.T) {
	t.Parallel()

	m := NewManager()
	id, err := m.Create("cmd", 1, 0)
	require.NoError(t, err)

	m.AppendOutput(id, "one\n")
	m.AppendOutput(id, "two\n")
	m.AppendOutput("unknown", "ignored")

	snap, _ := m.Get(id)
	require.Equal(t, "one\ntwo\n", snap.Output)
}

func TestOutputStopsGrowingOnceTerminal(t *testing.T) {
	t.Parallel()

	m := NewManager()
	id, err := m.Create("cmd", 1, 0)
	require.NoError(t, err)

	m.AppendOutput(id, "before")
	code := 0
	require.True(t, m.UpdateStatus(id, StatusCompleted, &code))
	m.AppendOutput(id, "after")

	snap, _ := m.Get(id)
	require.Equal(t, "before", snap.Output)
}

func TestStatusTransitionsAreMonotonic(t *testing.T) {
	t.Parallel()

	m := NewManager()
	id, err := m.Create("cmd", 1, 0)
	require.NoError(t, err)

	code := 1
	require.True(t, m.UpdateStatus(id, StatusFailed, &code))
	// Second terminal transition is ignored.
	require.False(t, m.UpdateStatus(id, StatusCompleted, nil))

	snap, _ := m.Get(id)
	require.Equal(t, StatusFailed, snap.Status)
	require.NotNil(t, snap.ExitCode)
	require.Equal(t, 1, *snap.ExitCode)
}

func TestUpdateStatusRejectsNonTerminal(t *testing.T) {
	t.Parallel()

	m := NewManager()
	id, err := m.Create("cmd", 1, 0)
	require.NoError(t, err)
	require.False(t, m.UpdateStatus(id, StatusRunning, nil))
}

func TestKillUnknownAndTerminal(t *testing.T) {
	t.Parallel()

	m := NewManager()
	require.False(t, m.Kill("unknown"))

	id, err := m.Create("cmd", 1, 0)
	require.NoError(t, err)
	require.True(t, m.UpdateStatus(id, StatusCompleted, nil))
	require.False(t, m.Kill(id))

	snap, _ := m.Get(id)
	require.Equal(t, StatusCompleted, snap.Status)
}

func TestListNewestFirst(t *testing.T) {
	t.Parallel()

	m := NewManager()
	first, err := m.Create("one", 1, 0)
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)
	second, err := m.Create("two", 2, 0)
	require.NoError(t, err)

	list := m.List()
	require.Len(t, list, 2)
	require.Equal(t, second, list[0].ID)
	require.Equal(t, first, list[1].ID)
}
