// File: internal/task/resource.go
package task

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
)

// TextResource is a lazily materialized piece of text, typically a SpotBugs
// filter file. Nothing touches the filesystem until AsFile is called.
type TextResource interface {
	// AsFile returns a path to a file holding the resource's content.
	AsFile() (string, error)
	// Describe returns a short human readable description used in errors.
	Describe() string
}

// FileResource is a resource backed by a file that already exists on disk.
type FileResource struct {
	Path string
}

// NewFileResource wraps an existing file path.
func NewFileResource(path string) *FileResource {
	return &FileResource{Path: path}
}

// AsFile checks that the file is present and readable and returns its path.
func (r *FileResource) AsFile() (string, error) {
	if r.Path == "" {
		return "", fmt.Errorf("file resource has an empty path")
	}
	info, err := os.Stat(r.Path)
	if err != nil {
		return "", fmt.Errorf("cannot access %s: %w", r.Path, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s is a directory, not a file", r.Path)
	}
	return r.Path, nil
}

func (r *FileResource) Describe() string { return "file " + r.Path }

// InlineResource is text held in memory. It is written to a content-addressed
// file under Dir, so identical content always yields the identical path.
type InlineResource struct {
	Name    string
	Content string
	Dir     string
}

// NewInlineResource creates an inline resource materialized under dir.
func NewInlineResource(name, content, dir string) *InlineResource {
	return &InlineResource{Name: name, Content: content, Dir: dir}
}

// AsFile writes the content (if not already there) and returns the path.
func (r *InlineResource) AsFile() (string, error) {
	dir := r.Dir
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "spotbugs-runner")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create resource directory %s: %w", dir, err)
	}

	sum := sha256.Sum256([]byte(r.Content))
	name := r.Name
	if name == "" {
		name = "resource"
	}
	path := filepath.Join(dir, fmt.Sprintf("%s-%s.xml", name, hex.EncodeToString(sum[:8])))

	if existing, err := os.ReadFile(path); err == nil && string(existing) == r.Content {
		return path, nil
	}

	// Write through a temp file so a concurrent reader never sees a partial filter.
	tmp, err := os.CreateTemp(dir, name+"-*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp file for %s: %w", name, err)
	}
	if _, err := tmp.WriteString(r.Content); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("close %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("materialize %s: %w", name, err)
	}
	return path, nil
}

func (r *InlineResource) Describe() string { return "inline resource " + r.Name }
