package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/SSTConexionSalud/sistema-turnos/internal/types"
	"github.com/natefinch/atomic"
)

// FileStore keeps the snapshot as a JSON document on local disk. Writes
// replace the file atomically so a crash never leaves a torn snapshot.
type FileStore struct {
	path string
}

// NewFileStore creates a store backed by the file at path
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) LoadSnapshot(_ context.Context) (types.Snapshot, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return types.Snapshot{}, ErrNoSnapshot
	}
	if err != nil {
		return types.Snapshot{}, fmt.Errorf("failed to read %s: %w", s.path, err)
	}

	var snapshot types.Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return types.Snapshot{}, fmt.Errorf("failed to decode %s: %w", s.path, err)
	}
	return snapshot, nil
}

func (s *FileStore) SaveSnapshot(_ context.Context, snapshot types.Snapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err := atomic.WriteFile(s.path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write %s: %w", s.path, err)
	}
	return nil
}

func (s *FileStore) Close() error { return nil }
