package state

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/google/uuid"

	"github.com/sokinpui/markpatch/internal/fs"
)

const (
	stateDirName    = ".markpatch"
	journalFileName = "journal"
	// noHash stands in for a missing hash so blocks stay free of blank lines.
	noHash = "-"
)

// Operation is a single recorded file operation.
type Operation struct {
	Action      string
	Path        string
	ContentHash string // SHA256 of the file content after the operation
}

// Entry is one run of the tool.
type Entry struct {
	ID         string
	Timestamp  int64
	Operations []Operation
}

// Time returns the entry timestamp as a local time.
func (e Entry) Time() time.Time {
	return time.Unix(e.Timestamp, 0)
}

// Manager appends to and reads the journal.
type Manager struct {
	journalPath string
	StateDir    string
}

// FindRoot returns the root of the git repository containing dir, or dir
// itself when it is not inside a repository.
func FindRoot(dir string) string {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return dir
	}
	wt, err := repo.Worktree()
	if err != nil {
		return dir
	}
	return wt.Filesystem.Root()
}

// New creates a journal manager rooted at the repository containing dir.
func New(dir string) (*Manager, error) {
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("could not get current working directory: %w", err)
		}
		dir = wd
	}
	stateDir := filepath.Join(FindRoot(dir), stateDirName)
	return &Manager{
		journalPath: filepath.Join(stateDir, journalFileName),
		StateDir:    stateDir,
	}, nil
}

// Path returns the journal file path.
func (m *Manager) Path() string { return m.journalPath }

// NewOperation hashes path and returns an operation record for it.
func NewOperation(action, path string) Operation {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	hash, err := fs.GetFileSHA256(abs)
	if err != nil {
		hash = ""
	}
	return Operation{Action: action, Path: abs, ContentHash: hash}
}

// Record appends an entry for the given operations.
func (m *Manager) Record(ops []Operation) (Entry, error) {
	entry := Entry{
		ID:         uuid.NewString(),
		Timestamp:  time.Now().UTC().Unix(),
		Operations: ops,
	}
	if err := os.MkdirAll(m.StateDir, 0o755); err != nil {
		return entry, fmt.Errorf("could not create state directory: %w", err)
	}

	f, err := os.OpenFile(m.journalPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return entry, fmt.Errorf("could not open journal: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(formatEntry(entry)); err != nil {
		return entry, fmt.Errorf("could not write journal: %w", err)
	}
	return entry, nil
}

// formatEntry renders a block: id and timestamp, then one
// action/path/hash triple per operation, then a blank line.
func formatEntry(e Entry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %d\n", e.ID, e.Timestamp)
	for _, op := range e.Operations {
		b.WriteString(op.Action + "\n")
		b.WriteString(op.Path + "\n")
		hash := op.ContentHash
		if hash == "" {
			hash = noHash
		}
		b.WriteString(hash + "\n")
	}
	b.WriteString("\n")
	return b.String()
}

// Entries returns every journal entry, oldest first.
func (m *Manager) Entries() ([]Entry, error) {
	data, err := os.ReadFile(m.journalPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	content := strings.ReplaceAll(string(data), "\r\n", "\n")
	var entries []Entry
	for _, block := range strings.Split(content, "\n\n") {
		block = strings.Trim(block, "\n")
		if block == "" {
			continue
		}
		lines := strings.Split(block, "\n")

		id, tsText, ok := strings.Cut(lines[0], " ")
		if !ok {
			return nil, fmt.Errorf("invalid journal: malformed header %q", lines[0])
		}
		ts, err := strconv.ParseInt(tsText, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid journal: could not parse timestamp from %q: %w", tsText, err)
		}

		entry := Entry{ID: id, Timestamp: ts}
		opLines := lines[1:]
		if len(opLines)%3 != 0 {
			return nil, fmt.Errorf("invalid journal: incomplete operation record in entry %s", id)
		}
		for i := 0; i < len(opLines); i += 3 {
			hash := opLines[i+2]
			if hash == noHash {
				hash = ""
			}
			entry.Operations = append(entry.Operations, Operation{
				Action:      opLines[i],
				Path:        opLines[i+1],
				ContentHash: hash,
			})
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// LastHash returns the most recently recorded hash for path.
func (m *Manager) LastHash(path string) (string, bool, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	entries, err := m.Entries()
	if err != nil {
		return "", false, err
	}
	for i := len(entries) - 1; i >= 0; i-- {
		ops := entries[i].Operations
		for j := len(ops) - 1; j >= 0; j-- {
			if ops[j].Path == abs {
				return ops[j].ContentHash, true, nil
			}
		}
	}
	return "", false, nil
}
