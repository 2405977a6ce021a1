// Package storage persists export artifacts on the local filesystem.
package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// LocalStore writes artifacts under a base directory. Every write goes to a
// temp file first and is renamed into place, so a crash mid-write never
// leaves a partial artifact at the final path.
type LocalStore struct {
	baseDir string
	tmpDir  string
}

func NewLocalStore(baseDir string) (*LocalStore, error) {
	tmpDir := filepath.Join(baseDir, ".tmp")
	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &LocalStore{baseDir: baseDir, tmpDir: tmpDir}, nil
}

func (s *LocalStore) Write(_ context.Context, filename string, data []byte) (string, error) {
	filename = filepath.Base(filename)
	tmp, err := os.CreateTemp(s.tmpDir, filename+".*")
	if err != nil {
		return "", fmt.Errorf("create temp artifact: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("write artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("close artifact: %w", err)
	}
	finalPath := filepath.Join(s.baseDir, filename)
	if err := os.Rename(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("publish artifact: %w", err)
	}
	return finalPath, nil
}

func (s *LocalStore) Read(_ context.Context, path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read artifact: %w", err)
	}
	return data, nil
}

func (s *LocalStore) Remove(_ context.Context, path string) error {
	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove artifact: %w", err)
	}
	return nil
}
