package injector

import (
	"sort"
	"strings"
)

// Priorities order insertions that share a line index. Higher priorities
// end up first in the output.
const (
	PriorityBegin    = 0
	PriorityClassEnd = 1
	PriorityEnd      = 2
)

// Insertion is a pending single-line insertion before the 0-based line
// Index. Index may equal the number of lines to append at the end.
type Insertion struct {
	Index    int
	Priority int
	Text     string
	seq      int
}

// Plan collects insertions in the order they were derived.
type Plan struct {
	items []Insertion
}

// Add queues an insertion.
func (p *Plan) Add(index, priority int, text string) {
	p.items = append(p.items, Insertion{Index: index, Priority: priority, Text: text, seq: len(p.items)})
}

// Len returns the number of queued insertions.
func (p *Plan) Len() int { return len(p.items) }

// Sorted returns the insertions in output order: ascending index, then
// descending priority, then most recently added first.
func (p *Plan) Sorted() []Insertion {
	out := append([]Insertion(nil), p.items...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Index != b.Index {
			return a.Index < b.Index
		}
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		return a.seq > b.seq
	})
	return out
}

// Apply builds the output in a single forward pass. Marker text is
// terminated with eol; a line left without a terminator gets one before an
// insertion follows it.
func (p *Plan) Apply(lines []string, eol string) []string {
	ins := p.Sorted()
	out := make([]string, 0, len(lines)+len(ins))
	k := 0
	emit := func(i int) {
		for ; k < len(ins) && ins[k].Index <= i; k++ {
			if n := len(out); n > 0 && !strings.HasSuffix(out[n-1], "\n") {
				out[n-1] += eol
			}
			out = append(out, ins[k].Text+eol)
		}
	}
	for i, line := range lines {
		emit(i)
		out = append(out, line)
	}
	emit(len(lines))
	return out
}
