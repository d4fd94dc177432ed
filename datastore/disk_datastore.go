package datastore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

type (
	DiskDataStore struct {
		rootPath string
	}
)

func NewDiskDataStore(rootPath string) (*DiskDataStore, error) {
	if err := os.MkdirAll(rootPath, 0o755); err != nil {
		return nil, fmt.Errorf("error in os.MkdirAll: %w", err)
	}
	dds := &DiskDataStore{
		rootPath: rootPath,
	}

	return dds, nil
}

// cleanName rejects names escaping the store root
func cleanName(name string) (string, error) {
	clean := path.Clean("/" + name)[1:]
	if clean == "" || strings.HasPrefix(name, "/") || clean != strings.TrimSuffix(name, "/") {
		return "", fmt.Errorf("%w: %q", ErrBadName, name)
	}
	return clean, nil
}

func (dds *DiskDataStore) path(name string) (string, error) {
	clean, err := cleanName(name)
	if err != nil {
		return "", err
	}
	return filepath.Join(dds.rootPath, filepath.FromSlash(clean)), nil
}

func (dds *DiskDataStore) Create(_ context.Context, name string) (io.WriteCloser, error) {
	p, err := dds.path(name)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return nil, fmt.Errorf("error in os.MkdirAll: %w", err)
	}
	f, err := os.Create(p)
	if err != nil {
		return nil, fmt.Errorf("error in os.Create: %w", err)
	}
	return f, nil
}

func (dds *DiskDataStore) Open(_ context.Context, name string) (io.ReadCloser, error) {
	p, err := dds.path(name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("error in os.Open: %w", err)
	}
	return f, nil
}

func (dds *DiskDataStore) Shutdown(context.Context) error {
	return nil
}
