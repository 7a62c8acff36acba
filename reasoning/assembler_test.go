package reasoning

import (
	"testing"

	"github.com/stretchr/testify/require"
	"goa.design/agui/events"
)

func TestPhaseBracket(t *testing.T) {
	a := New()
	require.False(t, a.PhaseOpen())
	require.NoError(t, a.StartPhase())
	require.True(t, a.PhaseOpen())

	var se *events.SequenceError
	require.ErrorAs(t, a.StartPhase(), &se, "double open")

	require.NoError(t, a.EndPhase())
	require.False(t, a.PhaseOpen())
	require.ErrorAs(t, a.EndPhase(), &se, "close without open")
}

func TestMessageTriple(t *testing.T) {
	a := New()
	require.NoError(t, a.StartPhase())
	require.NoError(t, a.StartMessage("r1"))
	require.NoError(t, a.AppendMessage("r1", "thinking "))
	require.NoError(t, a.AppendMessage("r1", "hard"))
	require.NoError(t, a.EndMessage("r1"))
	require.NoError(t, a.EndPhase())

	traces := a.Traces()
	require.Len(t, traces, 1)
	require.Equal(t, "r1", traces[0].MessageID)
	require.Equal(t, "thinking hard", traces[0].Content)
}

func TestMessageViolations(t *testing.T) {
	a := New()
	var se *events.SequenceError
	require.ErrorAs(t, a.AppendMessage("ghost", "x"), &se)
	require.ErrorAs(t, a.EndMessage("ghost"), &se)

	require.NoError(t, a.StartMessage("r1"))
	require.ErrorAs(t, a.StartMessage("r1"), &se)
	require.NoError(t, a.EndMessage("r1"))
	require.ErrorAs(t, a.AppendMessage("r1", "late"), &se)
}

func TestChunk(t *testing.T) {
	a := New()
	require.NoError(t, a.Chunk("r1", "one shot"))
	require.Len(t, a.Traces(), 1)

	// Chunk closes an open stream.
	require.NoError(t, a.StartMessage("r2"))
	require.NoError(t, a.AppendMessage("r2", "par"))
	require.NoError(t, a.Chunk("r2", "tial"))
	traces := a.Traces()
	require.Len(t, traces, 2)
	require.Equal(t, "partial", traces[1].Content)
	require.Zero(t, a.Open())

	var se *events.SequenceError
	require.ErrorAs(t, a.Chunk("r1", "again"), &se)
}

func TestEncryptedValueReplaces(t *testing.T) {
	a := New()
	a.EncryptedValue("r1", "aaa=")
	a.EncryptedValue("r1", "bbb=")

	traces := a.Traces()
	require.Len(t, traces, 1, "encrypted payloads replace, never append")
	require.Equal(t, "bbb=", traces[0].EncryptedValue)
	require.Empty(t, traces[0].Content)
}

func TestEncryptedValueAssignsID(t *testing.T) {
	a := New()
	a.EncryptedValue("", "aaa=")
	traces := a.Traces()
	require.Len(t, traces, 1)
	require.NotEmpty(t, traces[0].MessageID)
}

func TestDiscardOpen(t *testing.T) {
	a := New()
	require.NoError(t, a.StartMessage("r1"))
	require.NoError(t, a.AppendMessage("r1", "half a thought"))
	a.DiscardOpen()
	require.Zero(t, a.Open())
	require.Empty(t, a.Traces())
}
