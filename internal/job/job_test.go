package job

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTokenizes(t *testing.T) {
	j := New(100, "echo hello world")
	require.NotNil(t, j)
	assert.Equal(t, 100, j.ID)
	assert.Equal(t, "echo hello world", j.Command)
	assert.Equal(t, []string{"echo", "hello", "world"}, j.Args)
	assert.Equal(t, "echo", j.Program())
	assert.False(t, j.SubmittedAt.IsZero())
}

func TestNewEmptyLine(t *testing.T) {
	assert.Nil(t, New(100, ""))
	assert.Nil(t, New(100, "   \t  "))
}

func TestNewDropsExcessArgs(t *testing.T) {
	// 12 tokens in, only the first 9 survive.
	j := New(101, "a0 a1 a2 a3 a4 a5 a6 a7 a8 a9 a10 a11")
	require.NotNil(t, j)
	require.Len(t, j.Args, MaxArgs)
	assert.Equal(t, []string{"a0", "a1", "a2", "a3", "a4", "a5", "a6", "a7", "a8"}, j.Args)
}

func TestNewTruncatesCommandText(t *testing.T) {
	long := "echo " + strings.Repeat("x", 200)
	j := New(102, long)
	require.NotNil(t, j)
	assert.Len(t, j.Command, MaxCommandLen)
	assert.Equal(t, long[:MaxCommandLen], j.Command)
	// The second token is whatever survived the byte cut.
	assert.Equal(t, "echo", j.Args[0])
	assert.Equal(t, strings.Repeat("x", MaxCommandLen-len("echo ")), j.Args[1])
}
