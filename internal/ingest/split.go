package ingest

import (
	"runtime"
	"strings"
)

// lineSep separates lines in the source text and rejoins them inside a chunk.
const lineSep = "\n"

// Chunk is a line-aligned slice of the source text handed to one parse task.
// Only chunk 0 carries the header line.
type Chunk struct {
	Index   int
	Content string
	// Lines is the number of source lines in the chunk.
	Lines int
}

// Workers clamps a requested worker count to [1, runtime.NumCPU()]. A
// non-positive request means "use every CPU".
func Workers(requested int) int {
	n := runtime.NumCPU()
	if requested <= 0 || requested > n {
		return n
	}
	return requested
}

// Split partitions text into exactly w chunks of contiguous lines,
// ceil(lines/w) lines each. Trailing chunks are empty when there are fewer
// lines than chunks. Rejoining the chunks' lines in index order reproduces
// the original line sequence. w below 1 is treated as 1.
func Split(text string, w int) []Chunk {
	if w < 1 {
		w = 1
	}
	lines := strings.Split(text, lineSep)
	n := len(lines)
	size := (n + w - 1) / w

	chunks := make([]Chunk, w)
	for i := range chunks {
		start := min(i*size, n)
		end := min(start+size, n)
		chunks[i] = Chunk{
			Index:   i,
			Content: strings.Join(lines[start:end], lineSep),
			Lines:   end - start,
		}
	}
	return chunks
}

// JoinLines reassembles the source line sequence from chunks in index order.
// It is the inverse of Split.
func JoinLines(chunks []Chunk) []string {
	var out []string
	for _, c := range chunks {
		if c.Lines == 0 {
			continue
		}
		out = append(out, strings.Split(c.Content, lineSep)...)
	}
	return out
}
