// Package vcs records saved files in the enclosing git repository.
package vcs

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// Sink accepts changed files and a commit message.
type Sink interface {
	Commit(ctx context.Context, paths []string, message string) (Result, error)
}

// Result describes a commit made by a Sink.
type Result struct {
	Hash   string
	Pushed bool
}

// Options configure a Git sink.
type Options struct {
	Push        bool
	Remote      string
	AuthorName  string
	AuthorEmail string
}

// Git commits through go-git.
type Git struct {
	repo *git.Repository
	root string
	opts Options
}

// ErrNoRepository is returned by Open outside a git work tree.
var ErrNoRepository = errors.New("not inside a git repository")

// ErrDetachedHead is returned by Branch when HEAD names no branch.
var ErrDetachedHead = errors.New("HEAD is detached")

// Open finds the repository containing dir.
func Open(dir string, opts Options) (*Git, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return nil, ErrNoRepository
	}
	if err != nil {
		return nil, fmt.Errorf("opening repository at %s: %w", dir, err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("opening worktree: %w", err)
	}
	if opts.Remote == "" {
		opts.Remote = git.DefaultRemoteName
	}
	return &Git{repo: repo, root: wt.Filesystem.Root(), opts: opts}, nil
}

// Root returns the work tree root.
func (g *Git) Root() string { return g.root }

// Branch returns the short name of the checked-out branch.
func (g *Git) Branch() (string, error) {
	head, err := g.repo.Head()
	if err != nil {
		return "", fmt.Errorf("reading HEAD: %w", err)
	}
	if !head.Name().IsBranch() {
		return "", fmt.Errorf("%w at %s", ErrDetachedHead, head.Hash())
	}
	return head.Name().Short(), nil
}

// Commit stages paths, commits them and pushes when configured. A push
// failure is returned together with the successful commit.
func (g *Git) Commit(ctx context.Context, paths []string, message string) (Result, error) {
	wt, err := g.repo.Worktree()
	if err != nil {
		return Result{}, fmt.Errorf("opening worktree: %w", err)
	}

	for _, p := range paths {
		rel, err := g.relative(p)
		if err != nil {
			return Result{}, err
		}
		if _, err := wt.Add(rel); err != nil {
			return Result{}, fmt.Errorf("git add %s: %w", rel, err)
		}
	}

	hash, err := wt.Commit(message, &git.CommitOptions{Author: g.author()})
	if err != nil {
		return Result{}, fmt.Errorf("git commit: %w", err)
	}
	res := Result{Hash: hash.String()}

	if !g.opts.Push {
		return res, nil
	}
	err = g.repo.PushContext(ctx, &git.PushOptions{RemoteName: g.opts.Remote})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return res, fmt.Errorf("git push %s: %w", g.opts.Remote, err)
	}
	res.Pushed = true
	return res, nil
}

func (g *Git) relative(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}
	root, err := filepath.EvalSymlinks(g.root)
	if err != nil {
		root = g.root
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}
	rel, err := filepath.Rel(root, abs)
	if err != nil {
		return "", fmt.Errorf("%s is outside the repository: %w", p, err)
	}
	return filepath.ToSlash(rel), nil
}

// author uses the configured identity, then the repository and global git
// config, then a fixed fallback.
func (g *Git) author() *object.Signature {
	sig := &object.Signature{
		Name:  g.opts.AuthorName,
		Email: g.opts.AuthorEmail,
		When:  time.Now(),
	}
	if sig.Name != "" && sig.Email != "" {
		return sig
	}
	if cfg, err := g.repo.ConfigScoped(config.GlobalScope); err == nil {
		if sig.Name == "" {
			sig.Name = cfg.User.Name
		}
		if sig.Email == "" {
			sig.Email = cfg.User.Email
		}
	}
	if sig.Name == "" {
		sig.Name = "markpatch"
	}
	if sig.Email == "" {
		sig.Email = "markpatch@localhost"
	}
	return sig
}

// Message formats the commit message for a saved request.
func Message(action, file, label, reason string) string {
	msg := fmt.Sprintf("markpatch: %s %s", action, filepath.Base(file))
	if label != "" {
		msg += " [" + label + "]"
	}
	if reason != "" {
		msg += " - " + reason
	}
	return msg
}
