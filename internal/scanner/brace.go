package scanner

import (
	"regexp"
	"strings"

	"github.com/sokinpui/markpatch/model"
)

// braceGrammar describes a brace-delimited language. Definition patterns only
// match unindented lines and capture the entity name in their first
// non-empty group.
type braceGrammar struct {
	imports   *regexp.Regexp
	functions *regexp.Regexp
	classes   *regexp.Regexp
}

var braceGrammars = map[Kind]braceGrammar{
	KindPowerShell: {
		imports:   regexp.MustCompile(`(?i)^\s*(?:using\s+module\b|import-module\b|\.\s+\S)`),
		functions: regexp.MustCompile(`(?i)^(?:function|filter)\s+([\w-]+)`),
		classes:   regexp.MustCompile(`(?i)^class\s+(\w+)`),
	},
	KindShell: {
		imports:   regexp.MustCompile(`^\s*(?:source|\.)\s+\S`),
		functions: regexp.MustCompile(`^(?:function\s+([A-Za-z_][\w-]*)(?:\s*\(\s*\))?|([A-Za-z_][\w-]*)\s*\(\s*\))\s*(?:\{|$)`),
	},
	KindJavaScript: {
		imports:   regexp.MustCompile(`^\s*(?:import\b|(?:const|let|var)\s+[\w${}\s,]+=\s*require\()`),
		functions: regexp.MustCompile(`^(?:export\s+)?(?:default\s+)?(?:async\s+)?function\s*\*?\s*([A-Za-z_$][\w$]*)`),
		classes:   regexp.MustCompile(`^(?:export\s+)?(?:default\s+)?(?:abstract\s+)?class\s+([A-Za-z_$][\w$]*)`),
	},
	KindGo: {
		imports:   regexp.MustCompile(`^\s*import\b`),
		functions: regexp.MustCompile(`^func\s+(?:\([^)]*\)\s*)?([A-Za-z_]\w*)`),
		classes:   regexp.MustCompile(`^type\s+([A-Za-z_]\w*)(?:\[[^\]]*\])?\s+(?:struct|interface)\b`),
	},
}

func scanBraces(lines []string, g braceGrammar) []model.Entity {
	var entities []model.Entity
	if imp, ok := importRun(lines, g.imports); ok {
		entities = append(entities, imp)
	}

	for i := 0; i < len(lines); i++ {
		kind, name := matchDefinition(lines[i], g)
		if kind == "" {
			continue
		}
		end, ok := scanBlockBraces(lines, i)
		if !ok {
			continue
		}
		entities = append(entities, model.Entity{
			Kind:      kind,
			Name:      name,
			StartLine: i + 1,
			EndLine:   end + 1,
		})
		i = end
	}
	return entities
}

func matchDefinition(line string, g braceGrammar) (model.EntityKind, string) {
	line = strings.TrimRight(line, "\r\n")
	if g.classes != nil {
		if m := g.classes.FindStringSubmatch(line); m != nil {
			return model.KindClass, firstGroup(m)
		}
	}
	if m := g.functions.FindStringSubmatch(line); m != nil {
		return model.KindFunction, firstGroup(m)
	}
	return "", ""
}

func firstGroup(m []string) string {
	for _, g := range m[1:] {
		if g != "" {
			return g
		}
	}
	return ""
}

// scanBlockBraces returns the line on which the first brace opened at or
// after start is closed again. It reports false when no brace opens or the
// block never closes.
func scanBlockBraces(lines []string, start int) (int, bool) {
	depth := 0
	opened := false
	for i := start; i < len(lines); i++ {
		for _, r := range codeBraces(lines[i]) {
			if r == '{' {
				depth++
				opened = true
			} else {
				depth--
			}
		}
		if opened && depth <= 0 {
			return i, true
		}
	}
	return start, false
}

// codeBraces returns the braces of a line that sit outside quoted strings
// and trailing // or # comments.
func codeBraces(line string) []rune {
	var (
		braces []rune
		quote  rune
		prev   rune
	)
	for i, r := range line {
		switch {
		case quote != 0:
			if r == quote && prev != '\\' {
				quote = 0
			}
		case r == '"' || r == '\'' || r == '`':
			quote = r
		case r == '#' && (i == 0 || line[i-1] == ' ' || line[i-1] == '\t'):
			return braces
		case r == '/' && strings.HasPrefix(line[i:], "//"):
			return braces
		case r == '{' || r == '}':
			braces = append(braces, r)
		}
		prev = r
	}
	return braces
}
