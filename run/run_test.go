package run

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLifecycle(t *testing.T) {
	m := NewMachine()
	require.Equal(t, StatusIdle, m.Current().Status)
	require.False(t, m.Running())

	require.NoError(t, m.Start("t1", "r1"))
	require.True(t, m.Running())
	cur := m.Current()
	require.Equal(t, "t1", cur.ThreadID)
	require.Equal(t, "r1", cur.RunID)

	require.NoError(t, m.Finish("t1", "r1", map[string]any{"answer": 42}))
	cur = m.Current()
	require.Equal(t, StatusFinished, cur.Status)
	require.Equal(t, map[string]any{"answer": 42}, cur.Result)
	require.False(t, m.Running())
}

func TestErrorTermination(t *testing.T) {
	m := NewMachine()
	require.NoError(t, m.Start("t1", "r1"))
	require.NoError(t, m.Error("model exploded", "internal", "r1"))
	cur := m.Current()
	require.Equal(t, StatusErrored, cur.Status)
	require.Equal(t, "model exploded", cur.ErrorMessage)
	require.Equal(t, "internal", cur.ErrorCode)
}

func TestErrorWithoutRunID(t *testing.T) {
	m := NewMachine()
	require.NoError(t, m.Start("t1", "r1"))
	require.NoError(t, m.Error("boom", "", ""), "an empty run id addresses the current run")
	require.Equal(t, StatusErrored, m.Current().Status)
}

func TestTerminalIdempotence(t *testing.T) {
	m := NewMachine()
	require.NoError(t, m.Start("t1", "r1"))
	require.NoError(t, m.Finish("t1", "r1", nil))
	require.NoError(t, m.Finish("t1", "r1", nil), "replayed termination is a no-op")
	require.NoError(t, m.Error("late", "", "r1"), "error after finish for the same run is a no-op")
	require.Equal(t, StatusFinished, m.Current().Status)
}

func TestStartIdempotence(t *testing.T) {
	m := NewMachine()
	require.NoError(t, m.Start("t1", "r1"))
	require.NoError(t, m.Start("t1", "r1"), "restarting the current run is a no-op")
	require.Empty(t, m.History())
}

func TestNewRunArchivesPrevious(t *testing.T) {
	m := NewMachine()
	require.NoError(t, m.Start("t1", "r1"))
	require.NoError(t, m.Finish("t1", "r1", "first"))
	require.NoError(t, m.Start("t1", "r2"))

	hist := m.History()
	require.Len(t, hist, 1)
	require.Equal(t, "r1", hist[0].RunID)
	require.Equal(t, StatusFinished, hist[0].Status)
	require.Equal(t, "r2", m.Current().RunID)

	// A new run can also preempt one still in progress.
	require.NoError(t, m.Start("t1", "r3"))
	hist = m.History()
	require.Len(t, hist, 2)
	require.Equal(t, "r2", hist[1].RunID)
	require.Equal(t, StatusRunning, hist[1].Status)
}

func TestLifecycleViolations(t *testing.T) {
	m := NewMachine()
	var v *Violation
	require.ErrorAs(t, m.Finish("t1", "r1", nil), &v, "finish before start")
	require.ErrorAs(t, m.Error("boom", "", ""), &v, "error before start")

	require.NoError(t, m.Start("t1", "r1"))
	require.ErrorAs(t, m.Finish("t1", "other", nil), &v, "finish for a different run")
	require.ErrorAs(t, m.Error("boom", "", "other"), &v, "error for a different run")
	require.Equal(t, StatusRunning, m.Current().Status, "violations leave the machine unchanged")
}

func TestSteps(t *testing.T) {
	m := NewMachine()
	var v *Violation
	require.ErrorAs(t, m.StartStep("plan"), &v, "steps require a run")

	require.NoError(t, m.Start("t1", "r1"))
	require.NoError(t, m.StartStep("plan"))
	require.NoError(t, m.StartStep("search"))
	require.Equal(t, []string{"plan", "search"}, m.Current().OpenSteps)

	require.ErrorAs(t, m.StartStep("plan"), &v, "duplicate open step")
	require.ErrorAs(t, m.FinishStep("ghost"), &v, "finishing a step that is not open")

	require.NoError(t, m.FinishStep("plan"))
	require.Equal(t, []string{"search"}, m.Current().OpenSteps)

	require.NoError(t, m.Finish("t1", "r1", nil))
	require.Empty(t, m.Current().OpenSteps, "termination clears open steps")
}

func TestCurrentReturnsCopy(t *testing.T) {
	m := NewMachine()
	require.NoError(t, m.Start("t1", "r1"))
	require.NoError(t, m.StartStep("plan"))
	cur := m.Current()
	cur.OpenSteps[0] = "mutated"
	require.Equal(t, []string{"plan"}, m.Current().OpenSteps)
}
