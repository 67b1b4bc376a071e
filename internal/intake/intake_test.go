package intake

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattjoyce/cmdq/internal/job"
	"github.com/mattjoyce/cmdq/internal/queue"
)

func runIntake(t *testing.T, q *queue.Queue, input string) *bytes.Buffer {
	t.Helper()

	var out bytes.Buffer
	in := New(q, strings.NewReader(input), &out)

	done := make(chan struct{})
	go func() {
		in.Run()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("intake did not finish")
	}
	return &out
}

func TestSubmitsJobsInOrder(t *testing.T) {
	t.Parallel()

	q := queue.New(10)
	runIntake(t, q, "echo a\necho b\nexit\n")

	j1, ok := q.Remove()
	require.True(t, ok)
	assert.Equal(t, job.FirstID, j1.ID)
	assert.Equal(t, "echo a", j1.Command)

	j2, ok := q.Remove()
	require.True(t, ok)
	assert.Equal(t, job.FirstID+1, j2.ID)
	assert.Equal(t, "echo b", j2.Command)

	_, ok = q.Remove()
	assert.False(t, ok, "queue must be shut down after exit")
}

func TestEmptyLinesIgnored(t *testing.T) {
	t.Parallel()

	q := queue.New(10)
	runIntake(t, q, "\n   \necho a\n\nexit\n")

	j, ok := q.Remove()
	require.True(t, ok)
	// Blank lines consume no identifiers.
	assert.Equal(t, job.FirstID, j.ID)

	_, ok = q.Remove()
	assert.False(t, ok)
}

func TestExitRequiresExactMatch(t *testing.T) {
	t.Parallel()

	q := queue.New(10)
	runIntake(t, q, "exit now\nexit\n")

	// "exit now" is an ordinary job, not a shutdown request.
	j, ok := q.Remove()
	require.True(t, ok)
	assert.Equal(t, []string{"exit", "now"}, j.Args)

	_, ok = q.Remove()
	assert.False(t, ok)
}

func TestEOFRequestsShutdown(t *testing.T) {
	t.Parallel()

	q := queue.New(10)
	runIntake(t, q, "echo a\n")

	_, ok := q.Remove()
	require.True(t, ok)
	_, ok = q.Remove()
	assert.False(t, ok)
	assert.False(t, q.Running())
}

func TestLongSubmissionTruncated(t *testing.T) {
	t.Parallel()

	q := queue.New(10)
	line := "a0 a1 a2 a3 a4 a5 a6 a7 a8 a9 a10 a11"
	runIntake(t, q, line+"\nexit\n")

	j, ok := q.Remove()
	require.True(t, ok)
	require.Len(t, j.Args, job.MaxArgs)
	assert.Equal(t, "a8", j.Args[len(j.Args)-1])
}

func TestOverlongLineDoesNotEndSession(t *testing.T) {
	t.Parallel()

	// A single line far beyond any buffered-reader internals must become
	// one truncated job; the session keeps reading afterwards.
	q := queue.New(10)
	runIntake(t, q, strings.Repeat("x", 70000)+"\necho after\nexit\n")

	j, ok := q.Remove()
	require.True(t, ok)
	assert.Equal(t, job.FirstID, j.ID)
	assert.Equal(t, strings.Repeat("x", job.MaxCommandLen), j.Command)

	j, ok = q.Remove()
	require.True(t, ok)
	assert.Equal(t, "echo after", j.Command)

	_, ok = q.Remove()
	assert.False(t, ok, "queue must be shut down after exit")
}

func TestBlocksOnFullQueue(t *testing.T) {
	t.Parallel()

	q := queue.New(2)
	var out bytes.Buffer
	in := New(q, strings.NewReader("echo a\necho b\necho c\nexit\n"), &out)

	done := make(chan struct{})
	go func() {
		in.Run()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("intake should be blocked on the third submission")
	case <-time.After(100 * time.Millisecond):
	}
	assert.Equal(t, 2, q.Depth())

	j, ok := q.Remove()
	require.True(t, ok)
	assert.Equal(t, "echo a", j.Command)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("intake did not resume after a removal")
	}
	assert.Contains(t, out.String(), "queue full")
}
