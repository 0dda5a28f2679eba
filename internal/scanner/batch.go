package scanner

import (
	"regexp"
	"strings"

	"github.com/sokinpui/markpatch/model"
)

// "::" comments never match: the name must start with a word character.
var batchLabelRegex = regexp.MustCompile(`^\s*:([A-Za-z0-9_.][A-Za-z0-9_. -]*)\s*$`)

// scanBatch treats each label as a function running to the line before the
// next label, or to the end of the file. Trailing blank lines are excluded.
func scanBatch(lines []string) []model.Entity {
	type label struct {
		name string
		line int
	}
	var labels []label
	for i, l := range lines {
		if m := batchLabelRegex.FindStringSubmatch(strings.TrimRight(l, "\r\n")); m != nil {
			labels = append(labels, label{name: strings.TrimSpace(m[1]), line: i})
		}
	}

	entities := make([]model.Entity, 0, len(labels))
	for i, lb := range labels {
		next := len(lines)
		if i+1 < len(labels) {
			next = labels[i+1].line
		}
		end := trimTrailingBlank(lines, lb.line, next-1)
		entities = append(entities, model.Entity{
			Kind:      model.KindFunction,
			Name:      lb.name,
			StartLine: lb.line + 1,
			EndLine:   end + 1,
		})
	}
	return entities
}
