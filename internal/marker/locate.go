package marker

import (
	"fmt"
	"strings"

	"github.com/sokinpui/markpatch/model"
)

// Selector picks one of several candidate blocks. It receives one label per
// candidate and returns the chosen index, or false to reject the choice.
type Selector func(labels []string) (int, bool)

// lineContent strips the line terminator only.
func lineContent(line string) string {
	return strings.TrimRight(line, "\r\n")
}

// FindAll returns every start/end marker pair in file order. Each start is
// paired with the first unconsumed end at or after it; a start without an
// available end is dropped.
func FindAll(lines []string, markerStart, markerEnd string) []model.BlockRange {
	sm := strings.TrimSpace(markerStart)
	em := strings.TrimSpace(markerEnd)

	var starts, ends []int
	for i, line := range lines {
		content := lineContent(line)
		if content == sm {
			starts = append(starts, i)
		}
		if content == em {
			ends = append(ends, i)
		}
	}

	var ranges []model.BlockRange
	ei := 0
	for _, si := range starts {
		for ei < len(ends) && ends[ei] < si {
			ei++
		}
		if ei >= len(ends) {
			break
		}
		ranges = append(ranges, model.BlockRange{Start: si, End: ends[ei]})
		ei++
	}
	return ranges
}

// FindFirst returns the first marker pair, or model.NoRange.
func FindFirst(lines []string, markerStart, markerEnd string) model.BlockRange {
	ranges := FindAll(lines, markerStart, markerEnd)
	if len(ranges) == 0 {
		return model.NoRange
	}
	return ranges[0]
}

// Labels renders one human-readable label per range (1-based line numbers).
func Labels(lines []string, ranges []model.BlockRange) []string {
	labels := make([]string, len(ranges))
	for i, r := range ranges {
		labels[i] = fmt.Sprintf("Lines %d-%d: %s", r.Start+1, r.End+1, lineContent(lines[r.Start]))
	}
	return labels
}

// Resolution is the outcome of resolving a marker pair to a single block.
type Resolution struct {
	Range      model.BlockRange
	Candidates int
	// Rejected is set when several blocks matched and the selector declined.
	Rejected bool
}

// Found reports whether a single block was resolved.
func (r Resolution) Found() bool { return r.Range.Valid() }

// Ambiguous reports whether several blocks matched and none was chosen.
func (r Resolution) Ambiguous() bool { return r.Rejected }

// Resolve locates a single block, delegating to pick when several match. A
// nil pick rejects every ambiguous match.
func Resolve(lines []string, markerStart, markerEnd string, pick Selector) Resolution {
	ranges := FindAll(lines, markerStart, markerEnd)
	res := Resolution{Range: model.NoRange, Candidates: len(ranges)}
	switch len(ranges) {
	case 0:
		return res
	case 1:
		res.Range = ranges[0]
		return res
	}

	if pick == nil {
		res.Rejected = true
		return res
	}
	idx, ok := pick(Labels(lines, ranges))
	if !ok || idx < 0 || idx >= len(ranges) {
		res.Rejected = true
		return res
	}
	res.Range = ranges[idx]
	return res
}

// ExtractBlock returns the lines of text from the first start marker through
// the following end marker, inclusive. It returns nil when the pair is absent.
func ExtractBlock(lines []string, markerStart, markerEnd string) []string {
	r := FindFirst(lines, markerStart, markerEnd)
	if !r.Valid() {
		return nil
	}
	return lines[r.Start : r.End+1]
}
