package source

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/mattn/go-isatty"
)

// Origin names where request text came from.
type Origin string

const (
	OriginFile      Origin = "file"
	OriginStdin     Origin = "stdin"
	OriginClipboard Origin = "clipboard"
)

// SourceProvider determines and retrieves the request text.
type SourceProvider struct {
	stdin     *os.File
	clipboard func() (string, error)
}

// New creates a new SourceProvider reading the process stdin and the system
// clipboard.
func New() *SourceProvider {
	return &SourceProvider{stdin: os.Stdin, clipboard: clipboard.ReadAll}
}

// GetContent reads path when given, else stdin when it is piped, else the
// clipboard. Empty content is returned without error.
func (sp *SourceProvider) GetContent(path string) (string, Origin, error) {
	if path != "" && path != "-" {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", OriginFile, fmt.Errorf("failed to read request file: %w", err)
		}
		return string(data), OriginFile, nil
	}

	if path == "-" || sp.piped() {
		content, err := io.ReadAll(sp.stdin)
		if err != nil {
			return "", OriginStdin, fmt.Errorf("failed to read from stdin: %w", err)
		}
		return string(content), OriginStdin, nil
	}

	content, err := sp.clipboard()
	if err != nil {
		return "", OriginClipboard, fmt.Errorf("failed to read from clipboard: %w", err)
	}
	if strings.TrimSpace(content) == "" {
		return "", OriginClipboard, nil
	}
	return content, OriginClipboard, nil
}

func (sp *SourceProvider) piped() bool {
	if sp.stdin == nil {
		return false
	}
	fd := sp.stdin.Fd()
	if isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd) {
		return false
	}
	stat, err := sp.stdin.Stat()
	if err != nil {
		return false
	}
	return stat.Mode()&os.ModeCharDevice == 0
}
