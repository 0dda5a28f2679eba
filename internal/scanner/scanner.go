// Package scanner discovers structural regions (imports, functions, classes,
// methods and the entry-point guard) in source files.
package scanner

import (
	"context"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/sokinpui/markpatch/internal/fs"
	"github.com/sokinpui/markpatch/model"
)

// Kind is the grammar used to scan a file.
type Kind string

const (
	KindPython     Kind = "python"
	KindPowerShell Kind = "powershell"
	KindShell      Kind = "shell"
	KindJavaScript Kind = "javascript"
	KindGo         Kind = "go"
	KindBatch      Kind = "batch"
	KindUnknown    Kind = "unknown"
)

var kindsByExt = map[string]Kind{
	".py":   KindPython,
	".pyw":  KindPython,
	".ps1":  KindPowerShell,
	".psm1": KindPowerShell,
	".sh":   KindShell,
	".bash": KindShell,
	".zsh":  KindShell,
	".js":   KindJavaScript,
	".mjs":  KindJavaScript,
	".cjs":  KindJavaScript,
	".jsx":  KindJavaScript,
	".ts":   KindJavaScript,
	".tsx":  KindJavaScript,
	".go":   KindGo,
	".bat":  KindBatch,
	".cmd":  KindBatch,
}

// KindFor returns the grammar for a file path.
func KindFor(path string) Kind {
	if k, ok := kindsByExt[strings.ToLower(filepath.Ext(path))]; ok {
		return k
	}
	return KindUnknown
}

// Scan returns the structural entities of source ordered by start line.
// Lines are 1-based and inclusive. A Python syntax error is reported as a
// *model.StructuralParseError without a path.
func Scan(ctx context.Context, source []byte, kind Kind) ([]model.Entity, error) {
	lines := fs.SplitLines(string(source))

	var (
		entities []model.Entity
		err      error
	)
	switch kind {
	case KindPython:
		entities, err = scanPython(ctx, source, lines)
	case KindBatch:
		entities = scanBatch(lines)
	case KindUnknown:
		if imp, ok := importRun(lines, genericImport); ok {
			entities = []model.Entity{imp}
		}
	default:
		g, ok := braceGrammars[kind]
		if !ok {
			return nil, nil
		}
		entities = scanBraces(lines, g)
	}
	if err != nil {
		return nil, err
	}

	sort.SliceStable(entities, func(i, j int) bool {
		return entities[i].StartLine < entities[j].StartLine
	})
	return entities, nil
}

var genericImport = regexp.MustCompile(`^\s*(?:import\b|#\s*include\b|(?:const|let|var)\s+[\w${}\s,]+=\s*require\()`)

// importRun finds the first contiguous run of import lines. Blank lines may
// appear inside the run but never at its end. An import that opens a
// bracket continues until the bracket closes.
func importRun(lines []string, isImport *regexp.Regexp) (model.Entity, bool) {
	start := -1
	for i, l := range lines {
		if isImport.MatchString(l) {
			start = i
			break
		}
	}
	if start < 0 {
		return model.Entity{}, false
	}

	end := start
	for i := start; i < len(lines); i++ {
		l := lines[i]
		if strings.TrimSpace(l) == "" {
			continue
		}
		if !isImport.MatchString(l) {
			break
		}
		i = continuation(lines, i)
		end = i
	}
	return model.Entity{Kind: model.KindImports, StartLine: start + 1, EndLine: end + 1}, true
}

// continuation returns the index of the line that balances any bracket
// opened on lines[i].
func continuation(lines []string, i int) int {
	depth := bracketDelta(lines[i])
	for depth > 0 && i+1 < len(lines) {
		i++
		depth += bracketDelta(lines[i])
	}
	return i
}

func bracketDelta(line string) int {
	return strings.Count(line, "(") + strings.Count(line, "{") -
		strings.Count(line, ")") - strings.Count(line, "}")
}

// trimTrailingBlank moves a 0-based inclusive end index up past blank lines,
// never above start.
func trimTrailingBlank(lines []string, start, end int) int {
	for end > start && strings.TrimSpace(lines[end]) == "" {
		end--
	}
	return end
}
