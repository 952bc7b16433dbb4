package tempstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LocalBackend stores temporary files in a directory on disk.
// The directory is not created: a missing directory is reported by Check
// so uploads fail with CodeNoTmpDir instead of silently writing elsewhere.
type LocalBackend struct {
	dir  string      // Absolute path - all files stored within this directory
	perm os.FileMode // Mode of created files
}

// LocalOption defines a function that configures LocalBackend.
type LocalOption func(*LocalBackend)

// WithFileMode sets the permission bits of created files (default 0600).
func WithFileMode(perm os.FileMode) LocalOption {
	return func(b *LocalBackend) {
		b.perm = perm.Perm()
	}
}

// NewLocalBackend creates a backend rooted at dir, resolved to an absolute path.
func NewLocalBackend(dir string, opts ...LocalOption) (*LocalBackend, error) {
	if dir == "" {
		return nil, fmt.Errorf("%w: directory is empty", ErrInvalidConfig)
	}

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to resolve directory: %v", ErrInvalidConfig, err)
	}

	b := &LocalBackend{
		dir:  absDir,
		perm: 0600,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Dir returns the absolute storage directory.
func (b *LocalBackend) Dir() string {
	return b.dir
}

// Check verifies the directory exists and its mode allows writing.
func (b *LocalBackend) Check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	info, err := os.Stat(b.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrNoTmpDir, b.dir)
		}
		return fmt.Errorf("%w: %v", ErrFailedToStatPath, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrNoTmpDir, b.dir)
	}
	if info.Mode().Perm()&0222 == 0 {
		return fmt.Errorf("%w: %s", ErrCantWrite, b.dir)
	}
	return nil
}

// Create writes content to a new file named name. The file is opened with
// O_EXCL so an existing file is never overwritten. Partial files are
// removed on write errors.
func (b *LocalBackend) Create(ctx context.Context, name string, content []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	path, err := b.resolvePath(name)
	if err != nil {
		return "", err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, b.perm)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return "", fmt.Errorf("%w: %s", ErrExists, path)
		}
		if errors.Is(err, os.ErrPermission) {
			return "", fmt.Errorf("%w: %v", ErrCantWrite, err)
		}
		return "", fmt.Errorf("%w: %v", ErrFailedToCreateFile, err)
	}

	if _, err := f.Write(content); err != nil {
		_ = f.Close()
		_ = os.Remove(path) // Clean up partial file
		return "", fmt.Errorf("%w: %v", ErrFailedToWriteFile, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("%w: %v", ErrFailedToWriteFile, err)
	}

	return path, nil
}

// Remove deletes a file inside the directory.
func (b *LocalBackend) Remove(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	abs, err := b.resolvePath(path)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil {
		return fmt.Errorf("%w: %v", ErrFailedToDeleteFile, err)
	}
	return nil
}

// resolvePath resolves name or an absolute path and ensures the result is
// a direct or nested child of the storage directory.
func (b *LocalBackend) resolvePath(path string) (string, error) {
	if !filepath.IsAbs(path) {
		path = filepath.Join(b.dir, path)
	}
	path = filepath.Clean(path)

	prefix := b.dir
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	if !strings.HasPrefix(path, prefix) {
		return "", fmt.Errorf("%w: %s", ErrInvalidPath, path)
	}
	return path, nil
}
