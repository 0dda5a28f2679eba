package scanner

import (
	"context"
	"errors"
	"regexp"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"github.com/sokinpui/markpatch/model"
)

var mainGuardRegex = regexp.MustCompile(`^(?:__name__\s*==\s*(?:"__main__"|'__main__')|(?:"__main__"|'__main__')\s*==\s*__name__)$`)

var errSyntax = errors.New("invalid syntax")

func scanPython(ctx context.Context, source []byte, lines []string) ([]model.Entity, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(python.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, &model.StructuralParseError{Err: err}
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		line := 0
		if n := firstError(root); n != nil {
			line = int(n.StartPoint().Row) + 1
		}
		return nil, &model.StructuralParseError{Line: line, Err: errSyntax}
	}

	var (
		entities  []model.Entity
		guard     *model.Entity
		guardOpen bool
		inImports bool
		imports   model.Entity
		seenImp   bool
	)

	count := int(root.NamedChildCount())
	for i := 0; i < count; i++ {
		node := root.NamedChild(i)

		if isImport(node) {
			if !seenImp {
				seenImp, inImports = true, true
				imports = model.Entity{Kind: model.KindImports, StartLine: startLine(node)}
			}
			if inImports {
				imports.EndLine = endLine(node)
			}
			continue
		}
		inImports = false

		def, start := unwrapDecorated(node)
		switch def.Type() {
		case "function_definition":
			if guardOpen {
				closeGuard(guard, lines, start)
				guardOpen = false
			}
			entities = append(entities, model.Entity{
				Kind:      model.KindFunction,
				Name:      def.ChildByFieldName("name").Content(source),
				StartLine: start,
				EndLine:   endLine(node),
			})
		case "class_definition":
			if guardOpen {
				closeGuard(guard, lines, start)
				guardOpen = false
			}
			entities = append(entities, model.Entity{
				Kind:      model.KindClass,
				Name:      def.ChildByFieldName("name").Content(source),
				StartLine: start,
				EndLine:   endLine(node),
				Children:  methods(def, source),
			})
		case "if_statement":
			if guard != nil {
				continue
			}
			cond := def.ChildByFieldName("condition")
			if cond != nil && mainGuardRegex.MatchString(cond.Content(source)) {
				guard = &model.Entity{Kind: model.KindEntrypoint, StartLine: start}
				guardOpen = true
			}
		}
	}

	if guardOpen {
		closeGuard(guard, lines, len(lines)+1)
	}
	if seenImp {
		entities = append(entities, imports)
	}
	if guard != nil {
		entities = append(entities, *guard)
	}
	return entities, nil
}

// closeGuard ends the guard on the last non-blank line before nextStart.
func closeGuard(guard *model.Entity, lines []string, nextStart int) {
	end := trimTrailingBlank(lines, guard.StartLine-1, nextStart-2)
	guard.EndLine = end + 1
}

func methods(class *sitter.Node, source []byte) []model.Entity {
	body := class.ChildByFieldName("body")
	if body == nil {
		return nil
	}
	var out []model.Entity
	count := int(body.NamedChildCount())
	for i := 0; i < count; i++ {
		node := body.NamedChild(i)
		def, start := unwrapDecorated(node)
		if def.Type() != "function_definition" {
			continue
		}
		out = append(out, model.Entity{
			Kind:      model.KindMethod,
			Name:      def.ChildByFieldName("name").Content(source),
			StartLine: start,
			EndLine:   endLine(node),
		})
	}
	return out
}

// unwrapDecorated returns the definition inside a decorated_definition and
// the 1-based line of its first decorator.
func unwrapDecorated(node *sitter.Node) (*sitter.Node, int) {
	start := startLine(node)
	if node.Type() == "decorated_definition" {
		if def := node.ChildByFieldName("definition"); def != nil {
			return def, start
		}
	}
	return node, start
}

func isImport(node *sitter.Node) bool {
	switch node.Type() {
	case "import_statement", "import_from_statement", "future_import_statement":
		return true
	}
	return false
}

func startLine(n *sitter.Node) int {
	return int(n.StartPoint().Row) + 1
}

// endLine is the 1-based last line of a node. A node ending at column 0 ends
// on the previous line.
func endLine(n *sitter.Node) int {
	p := n.EndPoint()
	if p.Column == 0 && p.Row > n.StartPoint().Row {
		return int(p.Row)
	}
	return int(p.Row) + 1
}

func firstError(n *sitter.Node) *sitter.Node {
	if n.Type() == "ERROR" || n.IsMissing() {
		return n
	}
	count := int(n.ChildCount())
	for i := 0; i < count; i++ {
		c := n.Child(i)
		if c.HasError() || c.IsMissing() {
			if found := firstError(c); found != nil {
				return found
			}
		}
	}
	return nil
}
