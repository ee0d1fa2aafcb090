// Package storage reads and writes pipeline files on the local disk or in
// Google Cloud Storage, chosen by path.
package storage

import (
	"context"
	"fmt"
	"strings"
)

// Store provides whole-file access to one storage backend.
type Store interface {
	// Read returns the full contents of path.
	Read(ctx context.Context, path string) ([]byte, error)

	// Write replaces path with data. Readers never observe a partial file.
	Write(ctx context.Context, path string, data []byte) error

	// Exists reports whether path exists.
	Exists(ctx context.Context, path string) (bool, error)
}

// Artifact is one rendered output waiting to be committed.
type Artifact struct {
	Name string
	Path string
	Data []byte
}

// Staged is a file written aside that is not yet visible at its path.
type Staged interface {
	// Commit makes the file visible at its path.
	Commit() error

	// Discard drops the staged data. It is a no-op after Commit.
	Discard()
}

// Stager is implemented by stores that can write a file aside before
// publishing it.
type Stager interface {
	Stage(ctx context.Context, path string, data []byte) (Staged, error)
}

// Stage writes data aside through store. Stores that cannot stage get a
// deferred write that runs on Commit.
func Stage(ctx context.Context, store Store, path string, data []byte) (Staged, error) {
	if s, ok := store.(Stager); ok {
		return s.Stage(ctx, path, data)
	}
	return &deferredWrite{ctx: ctx, store: store, path: path, data: data}, nil
}

type deferredWrite struct {
	ctx   context.Context
	store Store
	path  string
	data  []byte
}

func (d *deferredWrite) Commit() error {
	return d.store.Write(d.ctx, d.path, d.data)
}

func (d *deferredWrite) Discard() {}

// WriteAll stages every artifact and then commits them in order, so a
// failure while staging leaves every target untouched. Artifacts with an
// empty path are skipped.
//
// Commits are not atomic as a group: a commit failing after earlier ones
// succeeded leaves those files replaced. Stores without staging, such as
// GCS, write on commit and are exposed to this for the whole write.
func WriteAll(ctx context.Context, store Store, artifacts []Artifact) error {
	var (
		staged []Staged
		names  []string
	)
	discard := func(from int) {
		for _, s := range staged[from:] {
			s.Discard()
		}
	}

	for _, a := range artifacts {
		if a.Path == "" {
			continue
		}
		s, err := Stage(ctx, store, a.Path, a.Data)
		if err != nil {
			discard(0)
			return fmt.Errorf("WriteAll: %s: %w", a.Name, err)
		}
		staged = append(staged, s)
		names = append(names, a.Name)
	}

	for i, s := range staged {
		if err := s.Commit(); err != nil {
			discard(i)
			return fmt.Errorf("WriteAll: %s: %w", names[i], err)
		}
	}
	return nil
}

// Router sends gs:// paths to Remote and everything else to Local.
type Router struct {
	Local  Store
	Remote Store
}

func (r *Router) pick(path string) (Store, error) {
	if IsGCSURI(path) {
		if r.Remote == nil {
			return nil, fmt.Errorf("no cloud storage configured for %s", path)
		}
		return r.Remote, nil
	}
	return r.Local, nil
}

// Read implements Store.
func (r *Router) Read(ctx context.Context, path string) ([]byte, error) {
	s, err := r.pick(path)
	if err != nil {
		return nil, err
	}
	return s.Read(ctx, path)
}

// Write implements Store.
func (r *Router) Write(ctx context.Context, path string, data []byte) error {
	s, err := r.pick(path)
	if err != nil {
		return err
	}
	return s.Write(ctx, path, data)
}

// Stage implements Stager by delegating to the backend of path.
func (r *Router) Stage(ctx context.Context, path string, data []byte) (Staged, error) {
	s, err := r.pick(path)
	if err != nil {
		return nil, err
	}
	return Stage(ctx, s, path, data)
}

// Exists implements Store.
func (r *Router) Exists(ctx context.Context, path string) (bool, error) {
	s, err := r.pick(path)
	if err != nil {
		return false, err
	}
	return s.Exists(ctx, path)
}

// IsGCSURI reports whether path is a gs://bucket/object URI.
func IsGCSURI(path string) bool {
	return strings.HasPrefix(path, "gs://")
}
