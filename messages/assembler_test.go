package messages

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/require"
	"goa.design/agui/events"
)

func TestTripleFlow(t *testing.T) {
	a := New()
	require.NoError(t, a.Start("m1", ""))
	require.NoError(t, a.Append("m1", "Hello"))
	require.NoError(t, a.Append("m1", ", world"))
	require.Equal(t, 1, a.Open())
	require.Empty(t, a.Messages(), "open streams are not part of the transcript")

	require.NoError(t, a.End("m1"))
	msgs := a.Messages()
	require.Len(t, msgs, 1)
	require.Equal(t, "m1", msgs[0].ID)
	require.Equal(t, events.RoleAssistant, msgs[0].Role, "empty role defaults to assistant")
	require.Equal(t, "Hello, world", msgs[0].Content)
}

func TestInterleavedStreams(t *testing.T) {
	a := New()
	require.NoError(t, a.Start("m1", events.RoleAssistant))
	require.NoError(t, a.Start("m2", events.RoleAssistant))
	require.NoError(t, a.Append("m2", "second"))
	require.NoError(t, a.Append("m1", "first"))
	// m2 closes before m1 but m1 opened first.
	require.NoError(t, a.End("m2"))
	require.NoError(t, a.End("m1"))

	msgs := a.Messages()
	require.Len(t, msgs, 2)
	require.Equal(t, "m1", msgs[0].ID, "transcript order follows stream-open order")
	require.Equal(t, "m2", msgs[1].ID)
}

func TestSequenceViolations(t *testing.T) {
	a := New()
	require.NoError(t, a.Start("m1", ""))

	var se *events.SequenceError
	require.ErrorAs(t, a.Start("m1", ""), &se)
	require.ErrorAs(t, a.Append("ghost", "x"), &se)
	require.ErrorAs(t, a.End("ghost"), &se)

	require.NoError(t, a.End("m1"))
	require.ErrorAs(t, a.Append("m1", "late"), &se, "delta after end is rejected")
	require.ErrorAs(t, a.End("m1"), &se)
	require.ErrorAs(t, a.Start("m1", ""), &se, "ids are never reused")

	msgs := a.Messages()
	require.Len(t, msgs, 1)
	require.Equal(t, "", msgs[0].Content, "violations leave the transcript untouched")
}

func TestChunkCreatesAndFinalizes(t *testing.T) {
	a := New()
	require.NoError(t, a.Chunk("m1", events.RoleUser, "all at once"))
	msgs := a.Messages()
	require.Len(t, msgs, 1)
	require.Equal(t, "all at once", msgs[0].Content)
	require.Equal(t, events.RoleUser, msgs[0].Role)
	require.Zero(t, a.Open())
}

func TestChunkFinalizesOpenStream(t *testing.T) {
	a := New()
	require.NoError(t, a.Start("m1", ""))
	require.NoError(t, a.Append("m1", "partial"))
	require.NoError(t, a.Chunk("m1", "", " tail"))

	msgs := a.Messages()
	require.Len(t, msgs, 1)
	require.Equal(t, "partial tail", msgs[0].Content)
	require.Zero(t, a.Open())

	var se *events.SequenceError
	require.ErrorAs(t, a.Chunk("m1", "", "again"), &se)
}

func TestChunkAssignsID(t *testing.T) {
	a := New()
	require.NoError(t, a.Chunk("", "", "anonymous"))
	msgs := a.Messages()
	require.Len(t, msgs, 1)
	require.NotEmpty(t, msgs[0].ID)
}

func TestAttachToolCall(t *testing.T) {
	a := New()
	call := events.ToolCall{ID: "c1", Name: "search", Args: `{"q":"go"}`}

	// Attach while the parent is still streaming.
	require.NoError(t, a.Start("m1", ""))
	require.True(t, a.AttachToolCall("m1", call))
	require.NoError(t, a.End("m1"))
	msgs := a.Messages()
	require.Len(t, msgs[0].ToolCalls, 1)
	require.Equal(t, "c1", msgs[0].ToolCalls[0].ID)

	// Attach to a finalized parent.
	require.True(t, a.AttachToolCall("m1", events.ToolCall{ID: "c2", Name: "fetch"}))
	require.Len(t, a.Messages()[0].ToolCalls, 2)

	require.False(t, a.AttachToolCall("ghost", call))
}

func TestReplaceAll(t *testing.T) {
	a := New()
	require.NoError(t, a.Start("m1", ""))
	require.NoError(t, a.Chunk("m2", "", "old"))

	a.ReplaceAll([]events.Message{
		{ID: "s1", Role: events.RoleUser, Content: "hi"},
		{ID: "s2", Role: events.RoleAssistant, Content: "hello"},
	})
	msgs := a.Messages()
	require.Len(t, msgs, 2)
	require.Equal(t, "s1", msgs[0].ID)
	require.Zero(t, a.Open(), "a snapshot discards open streams")
}

func TestAddFinal(t *testing.T) {
	a := New()
	require.NoError(t, a.Chunk("m1", "", "question"))
	a.AddFinal(events.Message{ID: "t1", Role: events.RoleTool, Content: "42", ToolCallID: "c1"})

	msgs := a.Messages()
	require.Len(t, msgs, 2)
	require.Equal(t, events.RoleTool, msgs[1].Role)
	require.Equal(t, "c1", msgs[1].ToolCallID)
}

func TestMessagesReturnsCopies(t *testing.T) {
	a := New()
	require.NoError(t, a.Chunk("m1", "", "original"))
	msgs := a.Messages()
	msgs[0].Content = "mutated"
	require.Equal(t, "original", a.Messages()[0].Content)
}

// Finalized content equals the concatenation of deltas in arrival order.
func TestContentConcatenationProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("content is the ordered concatenation of deltas", prop.ForAll(
		func(deltas []string) bool {
			a := New()
			if err := a.Start("m1", ""); err != nil {
				return false
			}
			want := ""
			for _, d := range deltas {
				if err := a.Append("m1", d); err != nil {
					return false
				}
				want += d
			}
			if err := a.End("m1"); err != nil {
				return false
			}
			msgs := a.Messages()
			return len(msgs) == 1 && msgs[0].Content == want
		},
		gen.SliceOf(gen.AnyString()),
	))
	properties.TestingRun(t)
}
