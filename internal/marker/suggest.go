package marker

import (
	"fmt"
	"strings"
)

// normalizeLineForMatching trims a line and collapses internal whitespace to a
// single space.
func normalizeLineForMatching(line string) string {
	return strings.Join(strings.Fields(line), " ")
}

// matchLine finds the first line of source whose whitespace-normalized form
// equals the normalized target. Empty lines never match. It returns a 0-based
// index or -1.
func matchLine(source []string, target string) int {
	want := normalizeLineForMatching(target)
	if want == "" {
		return -1
	}
	for i, line := range source {
		if normalizeLineForMatching(line) == want {
			return i
		}
	}
	return -1
}

// NearMiss explains why a marker pair was not found when a marker exists with
// different whitespace. It returns an empty string when there is nothing
// useful to say.
func NearMiss(lines []string, markerStart, markerEnd string) string {
	var hints []string
	for _, m := range []struct {
		label, text string
	}{{"start", markerStart}, {"end", markerEnd}} {
		exact := false
		for _, line := range lines {
			if lineContent(line) == strings.TrimSpace(m.text) {
				exact = true
				break
			}
		}
		if exact {
			continue
		}
		if idx := matchLine(lines, m.text); idx >= 0 {
			hints = append(hints, fmt.Sprintf("%s marker differs only in whitespace from line %d", m.label, idx+1))
		} else {
			hints = append(hints, fmt.Sprintf("%s marker not present", m.label))
		}
	}
	return strings.Join(hints, "; ")
}
