// Package manifest reads and updates the project script registry, a JSON
// document with a "scripts" list and an optional "script_urls" map.
package manifest

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"

	mpfs "github.com/sokinpui/markpatch/internal/fs"
)

// DefaultExtensions are scanned when none are given.
var DefaultExtensions = []string{".py", ".ui"}

var skipDirs = map[string]bool{"backup": true, ".git": true, ".markpatch": true}

// Script is one registry entry. Plain string entries only carry a Path.
type Script struct {
	Name string
	Path string
	Type string
}

// Manifest is a loaded registry document.
type Manifest struct {
	path string
	data []byte
}

// Load reads the manifest at path.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("manifest %s is not valid JSON", path)
	}
	return &Manifest{path: path, data: data}, nil
}

// Path returns the manifest file path.
func (m *Manifest) Path() string { return m.path }

// Root returns the project root, the directory holding the manifest.
func (m *Manifest) Root() string { return filepath.Dir(m.path) }

// Get returns a top-level string value.
func (m *Manifest) Get(key string) string {
	return strings.TrimSpace(gjson.GetBytes(m.data, key).String())
}

// Scripts returns the registry entries in order.
func (m *Manifest) Scripts() []Script {
	var out []Script
	gjson.GetBytes(m.data, "scripts").ForEach(func(_, v gjson.Result) bool {
		switch {
		case v.Type == gjson.String:
			out = append(out, Script{Path: v.String()})
		case v.IsObject():
			if p := v.Get("path").String(); p != "" {
				out = append(out, Script{Name: v.Get("name").String(), Path: p, Type: v.Get("type").String()})
			}
		}
		return true
	})
	return out
}

// Files returns the absolute paths of all registered scripts outside backup/.
func (m *Manifest) Files() []string {
	var out []string
	for _, s := range m.Scripts() {
		if isBackup(s.Path) {
			continue
		}
		p := filepath.FromSlash(s.Path)
		if !filepath.IsAbs(p) {
			p = filepath.Join(m.Root(), p)
		}
		out = append(out, p)
	}
	return out
}

// Save writes the document atomically, indented.
func (m *Manifest) Save() error {
	out := pretty.PrettyOptions(m.data, &pretty.Options{Width: 80, Indent: "  "})
	if err := mpfs.WriteFileAtomic(m.path, out); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}
	m.data = out
	return nil
}

func isBackup(rel string) bool {
	return strings.HasPrefix(filepath.ToSlash(rel), "backup/")
}

// relPosix converts p to a slash-separated path relative to the project
// root. Paths outside the root keep only their base name.
func (m *Manifest) relPosix(p string) string {
	if !filepath.IsAbs(p) {
		p = filepath.Join(m.Root(), p)
	}
	rel, err := filepath.Rel(m.Root(), p)
	if err != nil || strings.HasPrefix(rel, "..") {
		return filepath.Base(p)
	}
	return filepath.ToSlash(rel)
}

// Register adds an object entry for file unless its path is already listed.
// It returns the new or existing entry and whether the manifest changed.
func (m *Manifest) Register(file, name string) (Script, bool, error) {
	rel := m.relPosix(file)
	for _, s := range m.Scripts() {
		if s.Path == rel {
			return s, false, nil
		}
	}
	if name == "" {
		name = strings.TrimSuffix(path.Base(rel), path.Ext(rel))
	}
	entry := Script{Name: name, Path: rel, Type: strings.TrimPrefix(path.Ext(rel), ".")}

	data := m.data
	var err error
	if !gjson.GetBytes(data, "scripts").IsArray() {
		if data, err = sjson.SetRawBytes(data, "scripts", []byte("[]")); err != nil {
			return entry, false, err
		}
	}
	data, err = sjson.SetBytes(data, "scripts.-1", map[string]string{
		"name": entry.Name,
		"path": entry.Path,
		"type": entry.Type,
	})
	if err != nil {
		return entry, false, fmt.Errorf("registering %s: %w", rel, err)
	}
	m.data = data
	return entry, true, nil
}

// SyncResult reports what Sync changed.
type SyncResult struct {
	Added    []string
	Dropped  []string
	Changed  bool
	// Branch is the branch script URLs were built for, empty when the
	// manifest has no github_repo.
	Branch   string
	Warnings []string
}

// Sync merges the scripts found under the project root into the registry.
// Existing entries keep their order and form; entries under backup/ are
// dropped; new paths are appended. When github_repo is set, script_urls is
// rebuilt for every listed path on branch (the manifest's own "branch" key
// wins).
func (m *Manifest) Sync(exts []string, branch string) (SyncResult, error) {
	var res SyncResult
	scanned, err := Scan(m.Root(), exts)
	if err != nil {
		return res, err
	}

	var (
		kept  []string
		paths []string
		seen  = map[string]bool{}
	)
	gjson.GetBytes(m.data, "scripts").ForEach(func(_, v gjson.Result) bool {
		p := v.String()
		if v.IsObject() {
			p = v.Get("path").String()
		}
		if isBackup(p) {
			res.Dropped = append(res.Dropped, p)
			return true
		}
		kept = append(kept, v.Raw)
		paths = append(paths, p)
		seen[p] = true
		return true
	})
	for _, p := range scanned {
		if seen[p] {
			continue
		}
		seen[p] = true
		res.Added = append(res.Added, p)
		kept = append(kept, fmt.Sprintf("%q", p))
		paths = append(paths, p)
	}

	res.Changed = len(res.Added) > 0 || len(res.Dropped) > 0
	if !res.Changed {
		return res, nil
	}

	data, err := sjson.SetRawBytes(m.data, "scripts", []byte("["+strings.Join(kept, ",")+"]"))
	if err != nil {
		return res, fmt.Errorf("updating scripts: %w", err)
	}
	m.data = data

	urls := map[string]string{}
	gjson.GetBytes(m.data, "script_urls").ForEach(func(k, v gjson.Result) bool {
		if !isBackup(k.String()) {
			urls[k.String()] = v.String()
		}
		return true
	})
	if base := strings.TrimRight(m.Get("github_repo"), "/"); base != "" {
		if b := m.Get("branch"); b != "" {
			branch = b
		}
		if branch == "" {
			branch = "main"
		}
		res.Branch = branch
		for _, p := range paths {
			urls[p] = fmt.Sprintf("%s/blob/%s/%s", base, branch, p)
		}
	}
	if len(urls) > 0 || gjson.GetBytes(m.data, "script_urls").Exists() {
		if m.data, err = sjson.SetBytes(m.data, "script_urls", urls); err != nil {
			return res, fmt.Errorf("updating script_urls: %w", err)
		}
	}
	return res, nil
}

// Scan lists files under root with one of exts as relative slash paths,
// skipping backup/, .git/ and .markpatch/. Files are ordered by the position
// of their extension in exts, then case-insensitively by path.
func Scan(root string, exts []string) ([]string, error) {
	if len(exts) == 0 {
		exts = DefaultExtensions
	}
	rank := make(map[string]int, len(exts))
	for i, e := range exts {
		e = strings.ToLower(e)
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		if _, ok := rank[e]; !ok {
			rank[e] = i
		}
	}

	var out []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != root && skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if _, ok := rank[strings.ToLower(filepath.Ext(p))]; !ok {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		out = append(out, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", root, err)
	}

	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := rank[strings.ToLower(path.Ext(out[i]))], rank[strings.ToLower(path.Ext(out[j]))]
		if ri != rj {
			return ri < rj
		}
		return strings.ToLower(out[i]) < strings.ToLower(out[j])
	})
	return out, nil
}
