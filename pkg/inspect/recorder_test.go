package inspect

import (
	"testing"

	"github.com/stretchr/testify/require"

	selfref "github.com/goliatone/go-selfref"
)

func recordScenario(t *testing.T) *Recorder {
	t.Helper()
	recorder := NewRecorder()
	container, err := selfref.NewRefContainer("hello",
		selfref.WithContainerID("c-1"),
		selfref.WithRecorder(recorder),
	)
	require.NoError(t, err)

	_, err = container.BorrowShared()
	require.NoError(t, err)
	_, err = container.BorrowExclusive()
	require.Error(t, err)
	container.Clear()
	return recorder
}

func TestRecorderCapturesContainerTransitions(t *testing.T) {
	recorder := recordScenario(t)

	trace := recorder.Trace()
	require.Len(t, trace, 3)

	require.Equal(t, "borrow_shared", trace[0].Op)
	require.Equal(t, "empty", trace[0].From)
	require.Equal(t, "holding-shared", trace[0].To)
	require.False(t, trace[0].Rejected)
	require.NotEmpty(t, trace[0].ID)
	require.Equal(t, "c-1", trace[0].ContainerID)

	require.Equal(t, "borrow_exclusive", trace[1].Op)
	require.True(t, trace[1].Rejected)
	require.NotEmpty(t, trace[1].Error)
	require.Equal(t, "holding-shared", trace[1].To)

	require.Equal(t, "clear", trace[2].Op)
	require.Equal(t, "empty", trace[2].To)
	require.False(t, trace[2].OccurredAt.IsZero())
}

func TestRecorderTraceIsACopy(t *testing.T) {
	recorder := recordScenario(t)
	trace := recorder.Trace()
	trace[0].Op = "mutated"
	require.Equal(t, "borrow_shared", recorder.Trace()[0].Op)
}

func TestRecorderResetAndLen(t *testing.T) {
	recorder := recordScenario(t)
	require.Equal(t, 3, recorder.Len())
	recorder.Reset()
	require.Zero(t, recorder.Len())
	require.Nil(t, recorder.Trace())
}

func TestRecorderJSONRoundTrip(t *testing.T) {
	recorder := recordScenario(t)
	payload, err := recorder.TraceJSON()
	require.NoError(t, err)

	trace, err := TraceFromJSON(payload)
	require.NoError(t, err)
	original := recorder.Trace()
	require.Len(t, trace, len(original))
	for i := range original {
		require.Equal(t, original[i].ID, trace[i].ID)
		require.Equal(t, original[i].Op, trace[i].Op)
		require.Equal(t, original[i].Rejected, trace[i].Rejected)
		require.True(t, original[i].OccurredAt.Equal(trace[i].OccurredAt))
	}

	_, err = TraceFromJSON([]byte("{broken"))
	require.Error(t, err)
}

func TestCheckContextEnvironment(t *testing.T) {
	recorder := recordScenario(t)
	env := recorder.Context().environment()

	require.Equal(t, []string{"borrow_shared", "borrow_exclusive", "clear"}, env["ops"])
	require.Equal(t, "empty", env["final_state"])
	require.Equal(t, 1, env["violations"])
	require.Equal(t, 1, env["borrows"])
	require.Equal(t, 1, env["clears"])

	transitions, ok := env["transitions"].([]map[string]any)
	require.True(t, ok)
	require.Len(t, transitions, 3)
	require.Equal(t, true, transitions[1]["rejected"])
}
