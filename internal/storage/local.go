package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Local is the local filesystem.
type Local struct{}

// Read implements Store.
func (Local) Read(ctx context.Context, path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %q: %w", path, err)
	}
	return data, nil
}

// Write implements Store. Data goes to a temporary file in the target
// directory which is then renamed over path.
func (l Local) Write(ctx context.Context, path string, data []byte) error {
	staged, err := l.Stage(ctx, path, data)
	if err != nil {
		return err
	}
	if err := staged.Commit(); err != nil {
		staged.Discard()
		return err
	}
	return nil
}

// Stage implements Stager. The data is written to a temporary file next to
// path; Commit renames it into place.
func (Local) Stage(ctx context.Context, path string, data []byte) (Staged, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create directory %q: %w", dir, err)
	}

	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return nil, fmt.Errorf("create temp file for %q: %w", path, err)
	}
	tmp := &localTemp{tmp: f.Name(), path: path}

	if _, err := f.Write(data); err != nil {
		f.Close()
		tmp.Discard()
		return nil, fmt.Errorf("write %q: %w", tmp.tmp, err)
	}
	if err := f.Close(); err != nil {
		tmp.Discard()
		return nil, fmt.Errorf("close %q: %w", tmp.tmp, err)
	}
	if err := os.Chmod(tmp.tmp, 0o644); err != nil {
		tmp.Discard()
		return nil, fmt.Errorf("chmod %q: %w", tmp.tmp, err)
	}
	return tmp, nil
}

type localTemp struct {
	tmp       string
	path      string
	committed bool
}

func (t *localTemp) Commit() error {
	if err := os.Rename(t.tmp, t.path); err != nil {
		return fmt.Errorf("rename %q to %q: %w", t.tmp, t.path, err)
	}
	t.committed = true
	return nil
}

func (t *localTemp) Discard() {
	if !t.committed {
		_ = os.Remove(t.tmp)
	}
}

// Exists implements Store.
func (Local) Exists(ctx context.Context, path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("stat %q: %w", path, err)
}
