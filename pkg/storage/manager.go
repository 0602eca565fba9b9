package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// ErrInvalidName is returned for names that would escape the output directory
var ErrInvalidName = errors.New("invalid file name")

// Manager owns the download folder. Files are written through a temporary
// file and only appear under their final name once complete.
type Manager struct {
	outputDir string
	overwrite bool
	mu        sync.Mutex
}

// NewManager creates the output directory if needed. When overwrite is false,
// commits never replace an existing file and pick "name (n).ext" instead.
func NewManager(outputDir string, overwrite bool) (*Manager, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	abs, err := filepath.Abs(outputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve output directory: %w", err)
	}

	return &Manager{outputDir: abs, overwrite: overwrite}, nil
}

// Dir returns the absolute output directory path
func (m *Manager) Dir() string {
	return m.outputDir
}

// Path returns where name would be stored, without touching the disk
func (m *Manager) Path(name string) string {
	return filepath.Join(m.outputDir, name)
}

// Pending is a file being written. Exactly one of Commit or Abort must be called.
type Pending struct {
	m       *Manager
	file    *os.File
	name    string
	written int64
	done    bool
}

// Create opens a temporary file in the output directory for name
func (m *Manager) Create(name string) (*Pending, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}

	file, err := os.CreateTemp(m.outputDir, ".ebookdl-*.part")
	if err != nil {
		return nil, fmt.Errorf("failed to create temporary file: %w", err)
	}

	return &Pending{m: m, file: file, name: name}, nil
}

// Write appends to the temporary file
func (p *Pending) Write(b []byte) (int, error) {
	n, err := p.file.Write(b)
	p.written += int64(n)
	return n, err
}

// Written returns the number of bytes written so far
func (p *Pending) Written() int64 {
	return p.written
}

// Name returns the requested final file name
func (p *Pending) Name() string {
	return p.name
}

// Commit closes the temporary file and moves it to its final name, returning
// the final path. On failure the temporary file is removed.
func (p *Pending) Commit() (string, error) {
	if p.done {
		return "", errors.New("pending file already finished")
	}
	p.done = true

	if err := p.file.Close(); err != nil {
		os.Remove(p.file.Name())
		return "", fmt.Errorf("failed to close file: %w", err)
	}

	p.m.mu.Lock()
	defer p.m.mu.Unlock()

	target := p.m.resolve(p.name)
	if err := os.Rename(p.file.Name(), target); err != nil {
		os.Remove(p.file.Name())
		return "", fmt.Errorf("failed to rename temporary file: %w", err)
	}
	return target, nil
}

// Abort closes and removes the temporary file. It is a no-op after Commit.
func (p *Pending) Abort() error {
	if p.done {
		return nil
	}
	p.done = true

	p.file.Close()
	if err := os.Remove(p.file.Name()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove temporary file: %w", err)
	}
	return nil
}

// RenameForInspection gives path an ".html" extension so a page saved under
// a PDF name can be opened in a browser. Returns the new path.
func (m *Manager) RenameForInspection(path string) (string, error) {
	ext := filepath.Ext(path)
	name := strings.TrimSuffix(filepath.Base(path), ext) + ".html"

	m.mu.Lock()
	defer m.mu.Unlock()

	target := filepath.Join(filepath.Dir(path), name)
	if !m.overwrite {
		target = uniquePath(target)
	}
	if err := os.Rename(path, target); err != nil {
		return "", fmt.Errorf("failed to rename %s: %w", filepath.Base(path), err)
	}
	return target, nil
}

// resolve returns the final path for name; callers hold m.mu
func (m *Manager) resolve(name string) string {
	target := filepath.Join(m.outputDir, name)
	if m.overwrite {
		return target
	}
	return uniquePath(target)
}

// uniquePath returns path, or "stem (n).ext" with the first free n
func uniquePath(path string) string {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return path
	}

	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s (%d)%s", stem, i, ext)
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate
		}
	}
}

func validateName(name string) error {
	if name == "" || name == "." || name == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	if strings.ContainsAny(name, `/\`) || filepath.Base(name) != name {
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidName, name)
	}
	return nil
}
