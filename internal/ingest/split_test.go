package ingest

import (
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit_ChunkBoundaries(t *testing.T) {
	chunks := Split("h\n1\n2\n3\n4", 2)

	require.Len(t, chunks, 2)
	assert.Equal(t, Chunk{Index: 0, Content: "h\n1\n2", Lines: 3}, chunks[0])
	assert.Equal(t, Chunk{Index: 1, Content: "3\n4", Lines: 2}, chunks[1])
}

func TestSplit_FewerLinesThanWorkers(t *testing.T) {
	chunks := Split("h\n1\n2", 8)

	require.Len(t, chunks, 8)
	for i := 0; i < 3; i++ {
		assert.Equal(t, 1, chunks[i].Lines, "chunk %d", i)
	}
	for i := 3; i < 8; i++ {
		assert.Equal(t, Chunk{Index: i}, chunks[i], "chunk %d should be empty", i)
	}
	assert.Equal(t, "h", chunks[0].Content)
}

func TestSplit_NonPositiveWorkers(t *testing.T) {
	chunks := Split("a\nb", 0)
	require.Len(t, chunks, 1)
	assert.Equal(t, "a\nb", chunks[0].Content)
}

// TestSplit_RoundTrip checks that rejoining chunks reproduces the source line
// sequence for many texts and worker counts.
func TestSplit_RoundTrip(t *testing.T) {
	var big strings.Builder
	for i := 0; i < 1037; i++ {
		big.WriteString("12,4,-7,3.301\n")
	}

	texts := []string{
		"",
		"header",
		"header\n",
		"a,b\n1,2\n3,4",
		"a,b\r\n1,2\r\n",
		"\n\n\n",
		big.String(),
	}
	for _, text := range texts {
		want := strings.Split(text, "\n")
		for w := 1; w <= 17; w++ {
			chunks := Split(text, w)
			require.Len(t, chunks, w)
			for i, c := range chunks {
				require.Equal(t, i, c.Index)
			}
			assert.Equal(t, want, JoinLines(chunks), "w=%d text=%q", w, abbreviate(text))
		}
	}
}

func TestWorkers(t *testing.T) {
	n := runtime.NumCPU()
	assert.Equal(t, n, Workers(0))
	assert.Equal(t, n, Workers(-3))
	assert.Equal(t, 1, Workers(1))
	assert.Equal(t, n, Workers(n+100))
}

func abbreviate(s string) string {
	if len(s) > 40 {
		return s[:40] + "..."
	}
	return s
}
