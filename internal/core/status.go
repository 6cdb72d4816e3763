package core

import (
	"context"
	"fmt"
	"time"

	"github.com/illarion/securestore/internal/crypto"
	"github.com/illarion/securestore/internal/git"
	"github.com/illarion/securestore/internal/storage"
)

// RecordStatus describes one record file
type RecordStatus struct {
	Key     string
	Size    int64
	ModTime time.Time
}

// StatusInfo contains status information
type StatusInfo struct {
	AppName       string
	StorageDir    string
	Records       []RecordStatus
	RecordCount   int
	TotalSize     int64
	LastModified  time.Time
	Algorithm     string
	RecordVersion int
	GitStatus     *git.GitStatus
}

// Stats reports what is on disk without decrypting anything
func (s *SecureStorage) Stats(ctx context.Context) (*StatusInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := s.dir.Entries()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	}

	status := &StatusInfo{
		AppName:       s.appName,
		StorageDir:    s.dir.Path(),
		Records:       make([]RecordStatus, 0, len(entries)),
		Algorithm:     "AES-256-GCM",
		RecordVersion: crypto.RecordVersion,
	}

	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		status.Records = append(status.Records, RecordStatus{
			Key:     entry.Key,
			Size:    entry.Size,
			ModTime: entry.ModTime,
		})
		status.TotalSize += entry.Size
		if entry.ModTime.After(status.LastModified) {
			status.LastModified = entry.ModTime
		}
		files = append(files, storage.FileName(entry.Key))
	}
	status.RecordCount = len(status.Records)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	gitStatus, err := git.CheckStorageDir(s.dir.Path(), files)
	if err == nil {
		status.GitStatus = gitStatus
	}

	return status, nil
}
