package remote

import (
	"context"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/convene/internal/agent"
)

func TestSSEWriter_WritesValidFrames(t *testing.T) {
	rec := httptest.NewRecorder()
	w := NewSSEWriter(rec)
	w.Init()

	working := &AnalysisRun{ID: "r1", Agent: "SecurityExpert", State: RunStateWorking}
	insight := agent.NewInsight(agent.SeverityError, "hardcoded credential")
	done := &AnalysisRun{ID: "r1", Agent: "SecurityExpert", State: RunStateCompleted}

	for _, ev := range []StreamEvent{{Run: working}, {Insight: &insight}, {Run: done}} {
		require.NoError(t, w.WriteEvent(ev))
	}

	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))
	assert.Equal(t, "keep-alive", rec.Header().Get("Connection"))

	frames := strings.Split(strings.TrimRight(rec.Body.String(), "\n"), "\n\n")
	require.Len(t, frames, 3)
	for _, frame := range frames {
		assert.True(t, strings.HasPrefix(frame, "data: {"), "each frame carries a JSON object, got: %s", frame)
	}
}

func TestSSEReader_ParsesEvents(t *testing.T) {
	pr, pw := io.Pipe()
	go func() {
		defer pw.Close()
		fmt.Fprint(pw, "data: {\"run\":{\"id\":\"r1\",\"agent\":\"SecurityExpert\",\"state\":\"working\"}}\n\n")
		fmt.Fprint(pw, "data: {\"insight\":{\"severity\":\"error\",\"title\":\"hardcoded credential\"}}\n\n")
	}()

	ch := ReadEvents(context.Background(), pr)

	ev1 := <-ch
	require.NoError(t, ev1.Err)
	require.NotNil(t, ev1.Run)
	assert.Nil(t, ev1.Insight)
	assert.Equal(t, "r1", ev1.Run.ID)
	assert.Equal(t, RunStateWorking, ev1.Run.State)

	ev2 := <-ch
	require.NoError(t, ev2.Err)
	require.NotNil(t, ev2.Insight)
	assert.Nil(t, ev2.Run)
	assert.Equal(t, agent.SeverityError, ev2.Insight.Severity)
	assert.Equal(t, "hardcoded credential", ev2.Insight.Title)

	_, open := <-ch
	assert.False(t, open, "channel should close once the body is exhausted")
}

func TestSSEReader_CommentsAndNoSpaceData(t *testing.T) {
	pr, pw := io.Pipe()
	go func() {
		defer pw.Close()
		fmt.Fprint(pw, ": heartbeat\n")
		fmt.Fprint(pw, "data:{\"run\":{\"id\":\"r-ns\",\"state\":\"completed\"}}\n\n")
	}()

	ch := ReadEvents(context.Background(), pr)
	ev := <-ch
	require.NoError(t, ev.Err)
	require.NotNil(t, ev.Run)
	assert.Equal(t, "r-ns", ev.Run.ID)
	assert.Equal(t, RunStateCompleted, ev.Run.State)
}

func TestSSEReader_MultilineData(t *testing.T) {
	// Two data lines in one event are joined with a newline before
	// unmarshaling; JSON tolerates the embedded newline.
	pr, pw := io.Pipe()
	go func() {
		defer pw.Close()
		fmt.Fprint(pw, "data: {\"run\":{\"id\":\"r-ml\",\n")
		fmt.Fprint(pw, "data: \"state\":\"working\"}}\n\n")
	}()

	ch := ReadEvents(context.Background(), pr)
	ev := <-ch
	require.NoError(t, ev.Err)
	require.NotNil(t, ev.Run)
	assert.Equal(t, "r-ml", ev.Run.ID)
}

func TestSSEReader_MalformedDataYieldsErrEvent(t *testing.T) {
	pr, pw := io.Pipe()
	go func() {
		defer pw.Close()
		fmt.Fprint(pw, "data: {not valid json!!!}\n\n")
		fmt.Fprint(pw, "data: {\"run\":{\"id\":\"r-ok\",\"state\":\"completed\"}}\n\n")
	}()

	ch := ReadEvents(context.Background(), pr)

	ev1 := <-ch
	require.Error(t, ev1.Err)
	assert.Contains(t, ev1.Err.Error(), "unmarshal")

	// The reader keeps going after a bad frame.
	ev2 := <-ch
	require.NoError(t, ev2.Err)
	require.NotNil(t, ev2.Run)
	assert.Equal(t, "r-ok", ev2.Run.ID)

	_, open := <-ch
	assert.False(t, open)
}

func TestSSEReader_ContextCancellation(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()

	ctx, cancel := context.WithCancel(context.Background())
	ch := ReadEvents(ctx, pr)
	cancel()

	select {
	case _, open := <-ch:
		assert.False(t, open, "channel should close after cancellation")
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for channel to close after cancellation")
	}
}

func TestSSE_RoundTrip(t *testing.T) {
	rec := httptest.NewRecorder()
	w := NewSSEWriter(rec)
	w.Init()

	insight := agent.NewInsight(agent.SeverityWarning, "call to panic").
		WithCategory("reliability").
		With("file", "main.go")
	sent := []StreamEvent{
		{Run: &AnalysisRun{ID: "rt-1", Agent: "CodeReviewer", State: RunStateWorking}},
		{Insight: &insight},
		{Run: &AnalysisRun{ID: "rt-1", Agent: "CodeReviewer", State: RunStateCompleted}},
	}
	for _, ev := range sent {
		require.NoError(t, w.WriteEvent(ev))
	}

	body := io.NopCloser(strings.NewReader(rec.Body.String()))
	var received []StreamEvent
	for ev := range ReadEvents(context.Background(), body) {
		require.NoError(t, ev.Err)
		received = append(received, ev)
	}

	require.Len(t, received, 3)
	require.NotNil(t, received[0].Run)
	assert.Equal(t, RunStateWorking, received[0].Run.State)
	require.NotNil(t, received[1].Insight)
	assert.Equal(t, "call to panic", received[1].Insight.Title)
	assert.Equal(t, "reliability", received[1].Insight.Category)
	assert.Equal(t, "main.go", received[1].Insight.Data["file"])
	require.NotNil(t, received[2].Run)
	assert.Equal(t, RunStateCompleted, received[2].Run.State)
}
