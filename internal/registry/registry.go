package registry

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// ErrBundleNotFound is returned for unknown bundle directories.
var ErrBundleNotFound = errors.New("bundle not found")

// StorageError reports a filesystem failure in the bundle store.
type StorageError struct {
	Op   string
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("bundle store %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Entry is one cataloged bundle.
type Entry struct {
	Directory string    `json:"directory"`
	Metadata  *Metadata `json:"metadata"`
	Expired   bool      `json:"expired"`
	Files     []string  `json:"files"`
}

// Registry catalogs bundle directories under a single root.
type Registry struct {
	certsDir string
	now      func() time.Time
}

// New creates a Registry over certsDir.
func New(certsDir string) *Registry {
	return &Registry{certsDir: certsDir, now: time.Now}
}

// List returns all bundles carrying a manifest, newest first. Directories
// without a readable manifest are skipped.
func (r *Registry) List() ([]Entry, error) {
	dirEntries, err := os.ReadDir(r.certsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read bundles directory: %w", err)
	}

	now := r.now()
	var out []Entry
	for _, de := range dirEntries {
		if !de.IsDir() {
			continue
		}
		path := filepath.Join(r.certsDir, de.Name())
		meta, err := LoadMetadata(path)
		if err != nil {
			continue
		}
		out = append(out, Entry{
			Directory: de.Name(),
			Metadata:  meta,
			Expired:   now.After(meta.ExpiresAt.Time),
			Files:     listBundleFiles(path),
		})
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Metadata.CreatedAt.After(out[j].Metadata.CreatedAt.Time)
	})
	return out, nil
}

// Get returns a single cataloged bundle.
func (r *Registry) Get(directory string) (*Entry, error) {
	path, err := r.bundlePath(directory)
	if err != nil {
		return nil, err
	}
	meta, err := LoadMetadata(path)
	if err != nil {
		return nil, ErrBundleNotFound
	}
	return &Entry{
		Directory: directory,
		Metadata:  meta,
		Expired:   r.now().After(meta.ExpiresAt.Time),
		Files:     listBundleFiles(path),
	}, nil
}

// Delete removes a bundle directory and everything in it.
func (r *Registry) Delete(directory string) error {
	path, err := r.bundlePath(directory)
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err != nil {
		return ErrBundleNotFound
	}
	if err := os.RemoveAll(path); err != nil {
		return &StorageError{Op: "remove", Path: path, Err: err}
	}
	return nil
}

// FilePath resolves one file inside a bundle for download. Both the
// directory and the file name are confined to single path components.
func (r *Registry) FilePath(directory, name string) (string, error) {
	dir, err := r.bundlePath(directory)
	if err != nil {
		return "", err
	}
	if !safeComponent(name) {
		return "", ErrBundleNotFound
	}
	path := filepath.Join(dir, name)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "", ErrBundleNotFound
	}
	return path, nil
}

// Package writes the bundle as a zip archive into a temporary file and
// returns its path. The caller removes the file after streaming it.
func (r *Registry) Package(directory string) (string, error) {
	dir, err := r.bundlePath(directory)
	if err != nil {
		return "", err
	}
	if _, err := LoadMetadata(dir); err != nil {
		return "", ErrBundleNotFound
	}

	tmp, err := os.CreateTemp("", "bundle_*.zip")
	if err != nil {
		return "", fmt.Errorf("failed to create archive: %w", err)
	}

	zw := zip.NewWriter(tmp)
	for _, name := range listBundleFiles(dir) {
		if err := addToArchive(zw, directory, filepath.Join(dir, name), name); err != nil {
			zw.Close()
			tmp.Close()
			os.Remove(tmp.Name())
			return "", err
		}
	}
	if err := zw.Close(); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to finalize archive: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to close archive: %w", err)
	}
	return tmp.Name(), nil
}

func addToArchive(zw *zip.Writer, topDir, path, name string) error {
	src, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", name, err)
	}
	defer src.Close()

	dst, err := zw.Create(topDir + "/" + name)
	if err != nil {
		return fmt.Errorf("failed to archive %s: %w", name, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("failed to archive %s: %w", name, err)
	}
	return nil
}

// bundlePath confines directory to a single path component under the
// bundles root, rejecting anything that could traverse out of it.
func (r *Registry) bundlePath(directory string) (string, error) {
	if !safeComponent(directory) {
		return "", ErrBundleNotFound
	}
	return filepath.Join(r.certsDir, directory), nil
}

// safeComponent accepts only a plain file or directory name: no
// separators, no parent references, no NUL bytes.
func safeComponent(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	if strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0) {
		return false
	}
	return true
}

func listBundleFiles(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names
}
