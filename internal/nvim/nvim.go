package nvim

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/neovim/go-client/nvim"
)

// ErrNotRunning is returned when no Neovim instance advertises a socket.
var ErrNotRunning = errors.New("no running neovim instance")

// addressEnv lists the variables checked for a server address, in order.
var addressEnv = []string{"NVIM_LISTEN_ADDRESS", "NVIM"}

// Manager handles the connection to a running Neovim instance.
type Manager struct {
	nvim *nvim.Nvim
}

// Address returns the advertised server address, or "".
func Address() string {
	for _, key := range addressEnv {
		if addr := os.Getenv(key); addr != "" {
			return addr
		}
	}
	return ""
}

// New connects to the Neovim instance named by the environment. It never
// starts an instance of its own.
func New() (*Manager, error) {
	addr := Address()
	if addr == "" {
		return nil, ErrNotRunning
	}
	v, err := nvim.Dial(addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to neovim at %s: %w", addr, err)
	}
	return &Manager{nvim: v}, nil
}

// Close disconnects from Neovim.
func (m *Manager) Close() {
	if m.nvim != nil {
		m.nvim.Close()
	}
}

// processSequentially is a generic helper function to run a set of jobs sequentially.
func processSequentially[T any](
	items []T,
	processFn func(item T) (path string, success bool),
	progressCb func(int),
) (succeeded, failed []string) {
	for i, item := range items {
		path, success := processFn(item)
		if success {
			succeeded = append(succeeded, path)
		} else {
			failed = append(failed, path)
		}
		if progressCb != nil {
			progressCb(i + 1)
		}
	}
	return succeeded, failed
}

// Reload asks Neovim to re-read the given files if they are loaded in a
// buffer. Files that are not open are left alone.
func (m *Manager) Reload(paths []string, progressCb func(int)) (reloaded, failed []string) {
	return processSequentially(paths, func(p string) (string, bool) {
		return p, m.checktime(p)
	}, progressCb)
}

func (m *Manager) checktime(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	var bufnr int
	if err := m.nvim.Call("bufnr", &bufnr, abs); err != nil {
		return false
	}
	if bufnr < 0 {
		return true
	}
	b := m.nvim.NewBatch()
	b.Command(fmt.Sprintf("checktime %d", bufnr))
	return b.Execute() == nil
}

// ReloadFiles connects, reloads paths and disconnects. A missing instance is
// not an error.
func ReloadFiles(paths []string) ([]string, error) {
	m, err := New()
	if errors.Is(err, ErrNotRunning) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer m.Close()

	_, failed := m.Reload(paths, nil)
	if len(failed) > 0 {
		return failed, fmt.Errorf("neovim could not reload: %s", strings.Join(failed, ", "))
	}
	return nil, nil
}
