package parser

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// ExtractRequests splits a markdown document into change-request texts.
// A request is a fenced code block whose preceding paragraph ends with the
// proposed-block header; the paragraph provides the header lines and the
// fence the proposed block. When the document holds no such block, the whole
// document is returned as a single request.
func ExtractRequests(source []byte) ([]string, error) {
	var requests []string
	root := goldmark.DefaultParser().Parse(text.NewReader(source))

	walker := func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		fenced, ok := node.(*ast.FencedCodeBlock)
		if !ok {
			return ast.WalkContinue, nil
		}

		header := headerLines(fenced, source)
		if len(header) == 0 || !proposedHeaderRgx.MatchString(header[len(header)-1]) {
			return ast.WalkSkipChildren, nil
		}

		var b strings.Builder
		for _, line := range header {
			b.WriteString(line)
			b.WriteString("\n")
		}
		lines := fenced.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			b.Write(seg.Value(source))
		}
		requests = append(requests, b.String())
		return ast.WalkSkipChildren, nil
	}

	if err := ast.Walk(root, walker); err != nil {
		return nil, err
	}
	if len(requests) == 0 {
		return []string{string(source)}, nil
	}
	return requests, nil
}

// headerLines collects the raw lines of the paragraphs directly preceding a
// fenced block, up to the previous non-paragraph node.
func headerLines(fenced *ast.FencedCodeBlock, source []byte) []string {
	var paragraphs []*ast.Paragraph
	for prev := fenced.PreviousSibling(); prev != nil; prev = prev.PreviousSibling() {
		p, ok := prev.(*ast.Paragraph)
		if !ok {
			break
		}
		paragraphs = append([]*ast.Paragraph{p}, paragraphs...)
	}

	var out []string
	for _, p := range paragraphs {
		lines := p.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			out = append(out, string(bytes.TrimRight(seg.Value(source), "\r\n")))
		}
	}
	return out
}
