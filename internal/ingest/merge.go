package ingest

import (
	"fmt"
	"sort"
)

// Dataset is the merged parse output of one ingestion run: the header row and
// every data row in source order.
type Dataset struct {
	Header []string
	Rows   [][]string
}

// Len returns the number of data rows.
func (d *Dataset) Len() int { return len(d.Rows) }

// Merge concatenates chunk results by ascending chunk index. The first row of
// chunk 0 becomes the header; the remaining rows of every chunk follow in
// order. The input order of results is irrelevant, but indices must cover
// 0..len(results)-1 exactly once.
func Merge(results []ChunkResult) (*Dataset, error) {
	ordered := make([]ChunkResult, len(results))
	copy(ordered, results)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Index < ordered[j].Index })

	total := 0
	for i, r := range ordered {
		if r.Index != i {
			return nil, fmt.Errorf("ingest: merge: expected chunk %d, got %d", i, r.Index)
		}
		total += len(r.Rows)
	}
	if len(ordered) == 0 || len(ordered[0].Rows) == 0 {
		return nil, ErrNoHeader
	}

	ds := &Dataset{
		Header: ordered[0].Rows[0],
		Rows:   make([][]string, 0, total-1),
	}
	ds.Rows = append(ds.Rows, ordered[0].Rows[1:]...)
	for _, r := range ordered[1:] {
		ds.Rows = append(ds.Rows, r.Rows...)
	}
	return ds, nil
}
