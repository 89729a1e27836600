// Package checkpoint persists install progress so an interrupted run can be
// resumed.
//
// A checkpoint is a small JSON document. Saves are atomic: the new content
// is written to a temporary file in the same directory, synced, and renamed
// over the old one, so a reader sees either the previous or the new
// checkpoint and never a torn write.
package checkpoint

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/imamik/archer/internal/config"
	"github.com/imamik/archer/internal/provisioning"
)

// ErrCorrupt is returned by Load when the checkpoint file cannot be decoded.
var ErrCorrupt = errors.New("checkpoint file is corrupt")

// FileStore keeps a checkpoint in a JSON file.
type FileStore struct {
	dir  string
	name string
}

// NewFileStore returns a store writing dir/checkpoint.json.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir, name: config.CheckpointFileName}
}

// Location returns the checkpoint file path.
func (s *FileStore) Location() string {
	return filepath.Join(s.dir, s.name)
}

// Load returns the saved checkpoint, or nil when none exists.
func (s *FileStore) Load() (*provisioning.Checkpoint, error) {
	data, err := os.ReadFile(s.Location())
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read checkpoint: %w", err)
	}

	var cp provisioning.Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCorrupt, s.Location(), err)
	}
	if cp.PlanDigest == "" {
		return nil, fmt.Errorf("%w: %s: missing plan digest", ErrCorrupt, s.Location())
	}
	return &cp, nil
}

// Save atomically replaces the stored checkpoint.
func (s *FileStore) Save(cp provisioning.Checkpoint) error {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}
	err := writeFileAtomically(s.dir, s.name, 0o600, func(f *os.File) error {
		enc := json.NewEncoder(f)
		enc.SetIndent("", "  ")
		return enc.Encode(cp)
	})
	if err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	return nil
}

// Clear removes the stored checkpoint. Clearing an empty store is not an error.
func (s *FileStore) Clear() error {
	if err := os.Remove(s.Location()); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove checkpoint: %w", err)
	}
	return nil
}

// NewRunID returns a fresh identifier for an install run.
func NewRunID() string {
	return uuid.NewString()
}

func writeFileAtomically(dir, name string, mode os.FileMode, write func(f *os.File) error) error {
	tmp, err := os.CreateTemp(dir, name+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		if tmpName != "" {
			_ = os.Remove(tmpName)
		}
	}()

	if err := tmp.Chmod(mode); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := write(tmp); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, filepath.Join(dir, name)); err != nil {
		return err
	}
	tmpName = ""

	// the rename is only durable once the directory entry is synced
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()
	return d.Sync()
}
