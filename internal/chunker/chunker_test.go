package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_InvalidSize(t *testing.T) {
	_, err := New(0, 0)
	assert.ErrorIs(t, err, ErrInvalidSize)

	_, err = New(-5, 0)
	assert.ErrorIs(t, err, ErrInvalidSize)
}

func TestNew_ClampsOverlap(t *testing.T) {
	c, err := New(10, 10)
	require.NoError(t, err)
	assert.Equal(t, 9, c.Overlap())

	c, err = New(10, 25)
	require.NoError(t, err)
	assert.Equal(t, 9, c.Overlap())

	c, err = New(10, -3)
	require.NoError(t, err)
	assert.Equal(t, 0, c.Overlap())
}

func TestSplit_ShortTextSingleChunk(t *testing.T) {
	c, err := New(1000, 200)
	require.NoError(t, err)

	text := "short document"
	chunks := c.Split(text)
	require.Len(t, chunks, 1)
	assert.Equal(t, text, chunks[0])
}

func TestSplit_GuideScenario(t *testing.T) {
	// 1500 characters with size 1000 and overlap 200 must yield two
	// chunks: [0,1000) and [800,1500).
	c, err := New(1000, 200)
	require.NoError(t, err)

	text := strings.Repeat("a", 1500)
	chunks := c.Split(text)
	require.Len(t, chunks, 2)
	assert.Len(t, chunks[0], 1000)
	assert.Len(t, chunks[1], 700)
}

func TestSplit_WindowsOverlapNeverGap(t *testing.T) {
	c, err := New(7, 3)
	require.NoError(t, err)

	text := "abcdefghijklmnopqrstuvwxyz0123456789"
	chunks := c.Split(text)
	require.NotEmpty(t, chunks)

	covered := make([]bool, len(text))
	step := c.Size() - c.Overlap()
	for i, chunk := range chunks {
		start := i * step
		for j := range chunk {
			covered[start+j] = true
		}
	}
	for i, ok := range covered {
		assert.True(t, ok, "offset %d not covered", i)
	}
}

func TestSplit_DropsWhitespaceWindows(t *testing.T) {
	c, err := New(4, 0)
	require.NoError(t, err)

	// Second window is all spaces and must be dropped.
	text := "abcd    efgh"
	chunks := c.Split(text)
	require.Len(t, chunks, 2)
	assert.Equal(t, "abcd", chunks[0])
	assert.Equal(t, "efgh", chunks[1])
}

func TestSplit_WhitespaceOnlyFallsBackToWholeInput(t *testing.T) {
	c, err := New(4, 0)
	require.NoError(t, err)

	text := "   \n\t  "
	chunks := c.Split(text)
	require.Len(t, chunks, 1)
	assert.Equal(t, text, chunks[0])
}

func TestSplit_ExactMultiple(t *testing.T) {
	c, err := New(5, 0)
	require.NoError(t, err)

	chunks := c.Split("aaaaabbbbb")
	require.Len(t, chunks, 2)
	assert.Equal(t, "aaaaa", chunks[0])
	assert.Equal(t, "bbbbb", chunks[1])
}

func TestSplit_MultibyteRunes(t *testing.T) {
	c, err := New(3, 1)
	require.NoError(t, err)

	chunks := c.Split("héllø wörld")
	for _, chunk := range chunks {
		assert.True(t, len([]rune(chunk)) <= 3)
	}
	joined := strings.Join(chunks, "")
	assert.Contains(t, joined, "é")
	assert.Contains(t, joined, "ø")
}
