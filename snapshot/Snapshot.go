// Package snapshot saves and restores gob-encodable objects, such as
// the parameters of a network, to and from files.
package snapshot

import (
	"bufio"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
)

// Serializable is an object that can be saved/serialized
type Serializable interface {
	gob.GobEncoder
	gob.GobDecoder
}

// Save gob encodes s to the file at path. The file is first written
// to a temporary file in the same directory and then renamed, so that
// an existing snapshot is never left partially overwritten.
func Save(path string, s Serializable) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("save: could not create file: %w", err)
	}
	defer os.Remove(tmp.Name())

	// CreateTemp makes the file owner-only; snapshots get the usual mode
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fmt.Errorf("save: %w", err)
	}

	w := bufio.NewWriter(tmp)
	if err := gob.NewEncoder(w).Encode(s); err != nil {
		tmp.Close()
		return fmt.Errorf("save: could not encode: %w", err)
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("save: could not write %v: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("save: could not write %v: %w", path, err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("save: %w", err)
	}
	return nil
}

// Load decodes the gob encoded file at path into s
func Load(path string, s Serializable) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("load: %w", err)
	}
	defer f.Close()

	if err := gob.NewDecoder(bufio.NewReader(f)).Decode(s); err != nil {
		return fmt.Errorf("load: could not decode %v: %w", path, err)
	}
	return nil
}
