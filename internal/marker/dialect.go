package marker

import (
	"fmt"
	"maps"
	"path/filepath"
	"strings"
)

// Style is a line-comment convention used to render markers.
type Style struct {
	Prefix string
	Suffix string
}

// Render wraps body in the comment prefix and suffix.
func (s Style) Render(body string) string {
	return s.Prefix + body + s.Suffix
}

// SectionBegin renders "[SECTION: title]".
func (s Style) SectionBegin(title string) string {
	return s.Render(fmt.Sprintf("[SECTION: %s]", title))
}

// FuncBegin renders "[FUNC: name]".
func (s Style) FuncBegin(name string) string {
	return s.Render(fmt.Sprintf("[FUNC: %s]", name))
}

// ClassBegin renders "[CLASS: name]".
func (s Style) ClassBegin(name string) string {
	return s.Render(fmt.Sprintf("[CLASS: %s]", name))
}

// End renders "[END: name]".
func (s Style) End(name string) string {
	return s.Render(fmt.Sprintf("[END: %s]", name))
}

// Built-in style names.
const (
	StyleHash    = "hash"
	StyleSlashes = "slashes"
	StyleRem     = "rem"
	StyleSemi    = "semi"
	StyleXML     = "xml"
)

// Table maps file extensions to comment styles. A Table is immutable: the
// With* methods return modified copies.
type Table struct {
	styles       map[string]Style
	extensions   map[string]string
	markup       map[string]bool
	defaultStyle string
}

var defaultStyles = map[string]Style{
	StyleHash:    {Prefix: "# "},
	StyleSlashes: {Prefix: "// "},
	StyleRem:     {Prefix: "REM "},
	StyleSemi:    {Prefix: "; "},
	StyleXML:     {Prefix: "<!-- ", Suffix: " -->"},
}

var defaultExtensions = map[string][]string{
	StyleHash: {".py", ".pyw", ".ps1", ".psm1", ".sh", ".bash", ".zsh", ".yml", ".yaml",
		".ini", ".cfg", ".toml", ".properties", ".conf"},
	StyleSlashes: {".js", ".mjs", ".cjs", ".ts", ".tsx", ".jsx", ".java", ".go", ".cs",
		".cpp", ".c", ".h", ".hpp", ".rs", ".swift", ".kt", ".php"},
	StyleRem: {".bat", ".cmd"},
	StyleXML: {".xml", ".ui", ".html", ".htm", ".xhtml"},
}

var defaultMarkup = []string{".xml", ".ui", ".html", ".htm", ".xhtml"}

// DefaultTable returns the built-in dialect table.
func DefaultTable() Table {
	t := Table{
		styles:       maps.Clone(defaultStyles),
		extensions:   make(map[string]string),
		markup:       make(map[string]bool),
		defaultStyle: StyleHash,
	}
	for style, exts := range defaultExtensions {
		for _, ext := range exts {
			t.extensions[ext] = style
		}
	}
	for _, ext := range defaultMarkup {
		t.markup[ext] = true
	}
	return t
}

func (t Table) clone() Table {
	return Table{
		styles:       maps.Clone(t.styles),
		extensions:   maps.Clone(t.extensions),
		markup:       maps.Clone(t.markup),
		defaultStyle: t.defaultStyle,
	}
}

// WithStyle returns a copy of t with a style added or replaced.
func (t Table) WithStyle(name string, s Style) Table {
	c := t.clone()
	c.styles[name] = s
	return c
}

// WithExtension returns a copy of t mapping ext to the named style.
func (t Table) WithExtension(ext, style string) (Table, error) {
	if _, ok := t.styles[style]; !ok {
		return t, fmt.Errorf("extension %s: unknown comment style %q", ext, style)
	}
	c := t.clone()
	c.extensions[NormalizeExt(ext)] = style
	return c, nil
}

// WithMarkup returns a copy of t where exts only receive whole-file wrapping.
func (t Table) WithMarkup(exts ...string) Table {
	c := t.clone()
	for _, ext := range exts {
		c.markup[NormalizeExt(ext)] = true
	}
	return c
}

// WithDefault returns a copy of t using the named style for unknown extensions.
func (t Table) WithDefault(style string) (Table, error) {
	if _, ok := t.styles[style]; !ok {
		return t, fmt.Errorf("unknown default comment style %q", style)
	}
	c := t.clone()
	c.defaultStyle = style
	return c, nil
}

// StyleFor returns the comment style for a file path.
func (t Table) StyleFor(path string) Style {
	if name, ok := t.extensions[NormalizeExt(filepath.Ext(path))]; ok {
		if s, ok := t.styles[name]; ok {
			return s
		}
	}
	return t.styles[t.defaultStyle]
}

// IsMarkup reports whether the file only gets whole-file wrapping.
func (t Table) IsMarkup(path string) bool {
	return t.markup[NormalizeExt(filepath.Ext(path))]
}

// Styles returns every registered style.
func (t Table) Styles() []Style {
	out := make([]Style, 0, len(t.styles))
	for _, s := range t.styles {
		out = append(out, s)
	}
	return out
}

// NormalizeExt lowercases ext and ensures a leading dot.
func NormalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
