package kuroko

import "sort"

// lineMap records which source line produced each byte offset in a
// Chunk's code array, coalescing consecutive offsets that share a line
// into a single run so a long straight-line function costs O(lines)
// rather than O(bytes) (§6 "Line map"). Grounded on the teacher's
// pos.go LineIndex, which keeps a sorted run-length table of
// (offset, line) pairs for the same reason (mapping byte offsets in
// the source back to line numbers for diagnostics).
type lineMap struct {
	runs []lineRun
}

type lineRun struct {
	startOffset int
	line        int
}

// record appends a (offset, line) run, skipping the append when the
// new offset shares the same line as the last recorded run.
func (m *lineMap) record(offset, line int) {
	if n := len(m.runs); n > 0 && m.runs[n-1].line == line {
		return
	}
	m.runs = append(m.runs, lineRun{startOffset: offset, line: line})
}

// lookup returns the line for a byte offset by binary-searching the
// largest run whose startOffset is <= offset.
func (m *lineMap) lookup(offset int) int {
	if len(m.runs) == 0 {
		return 0
	}
	i := sort.Search(len(m.runs), func(i int) bool {
		return m.runs[i].startOffset > offset
	})
	if i == 0 {
		return m.runs[0].line
	}
	return m.runs[i-1].line
}
