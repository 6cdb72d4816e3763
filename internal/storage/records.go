package storage

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/illarion/securestore/internal/crypto"
)

const (
	RecordExt = ".enc" // Record file suffix
	DirPerm   = 0700   // Directory: owner rwx only
	FilePerm  = 0600   // File: owner rw only

	tempPrefix = ".tmp-"
	tempExt    = ".partial"
)

// Dir is the directory holding one record file per storage key.
//
// Every file operation opens the directory through os.Root, so a key can
// never reach a path outside it, and a directory deleted from under a running
// process surfaces as an I/O error instead of a stale handle.
type Dir struct {
	path string
}

// RecordInfo describes a record file without reading it
type RecordInfo struct {
	Key     string
	Size    int64
	ModTime time.Time
}

// OpenDir opens the record directory at path, creating it if absent.
func OpenDir(path string) (*Dir, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	if err := os.MkdirAll(absPath, DirPerm); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	return &Dir{path: absPath}, nil
}

// Path returns the absolute directory path
func (d *Dir) Path() string {
	return d.path
}

// FileName maps a storage key to its record file name
func FileName(key string) string {
	return key + RecordExt
}

func (d *Dir) withRoot(fn func(root *os.Root) error) error {
	root, err := os.OpenRoot(d.path)
	if err != nil {
		return err
	}
	defer root.Close()
	return fn(root)
}

// Write replaces the record for key. Data goes to a temporary file first and
// is renamed over the old record, so readers never see a partial file.
func (d *Dir) Write(key string, data []byte) error {
	suffix, err := crypto.GenerateRandom(8)
	if err != nil {
		return err
	}
	// Never ends in RecordExt, so a half-written file is never listed
	tmpName := tempPrefix + hex.EncodeToString(suffix) + tempExt

	return d.withRoot(func(root *os.Root) error {
		f, err := root.OpenFile(tmpName, os.O_WRONLY|os.O_CREATE|os.O_EXCL, FilePerm)
		if err != nil {
			return err
		}
		// Best-effort cleanup if anything fails before rename.
		defer func() { _ = root.Remove(tmpName) }()

		if _, err := f.Write(data); err != nil {
			_ = f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}

		return root.Rename(tmpName, FileName(key))
	})
}

// Read returns the record file for key. A missing record is reported with
// found == false and no error.
func (d *Dir) Read(key string) (data []byte, found bool, err error) {
	err = d.withRoot(func(root *os.Root) error {
		data, err = root.ReadFile(FileName(key))
		return err
	})
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// Exists reports whether a record file for key is present
func (d *Dir) Exists(key string) (bool, error) {
	err := d.withRoot(func(root *os.Root) error {
		_, err := root.Stat(FileName(key))
		return err
	})
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Remove deletes the record for key and reports whether it existed
func (d *Dir) Remove(key string) (bool, error) {
	err := d.withRoot(func(root *os.Root) error {
		return root.Remove(FileName(key))
	})
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// List returns the sorted keys of all record files. Subdirectories,
// temporary files and files without the record suffix are skipped.
func (d *Dir) List() ([]string, error) {
	infos, err := d.Entries()
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(infos))
	for _, info := range infos {
		keys = append(keys, info.Key)
	}
	return keys, nil
}

// Entries returns size and modification time of every record file, sorted
// by key.
func (d *Dir) Entries() ([]RecordInfo, error) {
	entries, err := os.ReadDir(d.path)
	if err != nil {
		return nil, err
	}

	infos := make([]RecordInfo, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() {
			continue
		}
		key, ok := strings.CutSuffix(name, RecordExt)
		if !ok || key == "" {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			// Removed between ReadDir and Info
			continue
		}
		infos = append(infos, RecordInfo{
			Key:     key,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })
	return infos, nil
}

// Clear removes the directory with everything in it and recreates it empty
func (d *Dir) Clear() error {
	if err := os.RemoveAll(d.path); err != nil {
		return fmt.Errorf("failed to remove storage directory: %w", err)
	}
	if err := os.MkdirAll(d.path, DirPerm); err != nil {
		return fmt.Errorf("failed to recreate storage directory: %w", err)
	}
	return nil
}
