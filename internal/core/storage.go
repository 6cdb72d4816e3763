package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/illarion/securestore/internal/crypto"
	"github.com/illarion/securestore/internal/identity"
	"github.com/illarion/securestore/internal/security"
	"github.com/illarion/securestore/internal/storage"
	"github.com/sirupsen/logrus"
)

// StorageDirName is the record directory created under the data directory
const StorageDirName = "secure_storage"

var (
	ErrIO                 = errors.New("storage I/O failed")
	ErrNotInitialized     = errors.New("secure storage not initialized")
	ErrAlreadyInitialized = errors.New("secure storage already initialized")
	ErrNoDataDir          = errors.New("data directory required")
)

// Config configures a SecureStorage
type Config struct {
	AppName string
	DataDir string

	// Identity supplies the machine identity mixed into the master key.
	// Nil selects the platform provider.
	Identity identity.Provider

	// Logger receives operational logs. Nil discards them.
	Logger *logrus.Logger
}

// SecureStorage encrypts secrets under a machine-derived master key and keeps
// one record file per key. It holds no other state, so it is safe for
// concurrent use; concurrent writes to the same key resolve last write wins.
type SecureStorage struct {
	appName string
	dir     *storage.Dir
	enc     *crypto.Encryptor
	log     *logrus.Logger
}

// New creates the storage directory if needed and derives the master key
func New(cfg Config) (*SecureStorage, error) {
	if cfg.DataDir == "" {
		return nil, ErrNoDataDir
	}

	log := cfg.Logger
	if log == nil {
		log = logrus.New()
		log.SetOutput(io.Discard)
	}

	id := cfg.Identity
	if id == nil {
		id = identity.System()
	}

	dir, err := storage.OpenDir(filepath.Join(cfg.DataDir, StorageDirName))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	}

	enc, err := crypto.NewEncryptor(crypto.DeriveMasterKey(cfg.AppName, id))
	if err != nil {
		return nil, fmt.Errorf("failed to create encryptor: %w", err)
	}

	log.WithFields(logrus.Fields{
		"app":  cfg.AppName,
		"path": dir.Path(),
	}).Debug("secure storage ready")

	return &SecureStorage{
		appName: cfg.AppName,
		dir:     dir,
		enc:     enc,
		log:     log,
	}, nil
}

// Close wipes the master key. Cipher operations fail afterwards.
func (s *SecureStorage) Close() error {
	s.enc.Destroy()
	return nil
}

// Dir returns the absolute path of the record directory
func (s *SecureStorage) Dir() string {
	return s.dir.Path()
}

// Encrypt seals a value under the master key without storing it
func (s *SecureStorage) Encrypt(value string) (*crypto.EncryptedRecord, error) {
	return s.enc.EncryptString(value)
}

// Decrypt opens a record sealed under the master key
func (s *SecureStorage) Decrypt(rec *crypto.EncryptedRecord) (string, error) {
	return s.enc.DecryptString(rec)
}

// Store encrypts value and replaces the record for key
func (s *SecureStorage) Store(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := security.ValidateKey(key); err != nil {
		return err
	}
	if err := security.ValidateValue(value); err != nil {
		return err
	}
	return s.store(key, value)
}

func (s *SecureStorage) store(key, value string) error {
	rec, err := s.enc.EncryptString(value)
	if err != nil {
		return fmt.Errorf("failed to encrypt %q: %w", key, err)
	}

	data, err := storage.MarshalRecord(rec)
	if err != nil {
		return err
	}

	if err := s.dir.Write(key, data); err != nil {
		return fmt.Errorf("%w: failed to write %q: %w", ErrIO, key, err)
	}

	s.log.WithField("key", key).Debug("record stored")
	return nil
}

// Retrieve decrypts the record for key. A missing record yields found == false.
func (s *SecureStorage) Retrieve(ctx context.Context, key string) (value string, found bool, err error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	if err := security.ValidateKey(key); err != nil {
		return "", false, err
	}
	return s.retrieve(key)
}

func (s *SecureStorage) retrieve(key string) (string, bool, error) {
	data, found, err := s.dir.Read(key)
	if err != nil {
		return "", false, fmt.Errorf("%w: failed to read %q: %w", ErrIO, key, err)
	}
	if !found {
		return "", false, nil
	}

	rec, err := storage.ParseRecord(data)
	if err != nil {
		return "", false, fmt.Errorf("record %q: %w", key, err)
	}

	value, err := s.enc.DecryptString(rec)
	if err != nil {
		s.log.WithField("key", key).Warn("record failed to decrypt")
		return "", false, fmt.Errorf("record %q: %w", key, err)
	}

	return value, true, nil
}

// Remove deletes the record for key and reports whether it existed
func (s *SecureStorage) Remove(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if err := security.ValidateKey(key); err != nil {
		return false, err
	}

	removed, err := s.dir.Remove(key)
	if err != nil {
		return false, fmt.Errorf("%w: failed to remove %q: %w", ErrIO, key, err)
	}
	if removed {
		s.log.WithField("key", key).Debug("record removed")
	}
	return removed, nil
}

// Exists reports whether a record for key is present. Nothing is decrypted.
func (s *SecureStorage) Exists(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if err := security.ValidateKey(key); err != nil {
		return false, err
	}

	exists, err := s.dir.Exists(key)
	if err != nil {
		return false, fmt.Errorf("%w: failed to stat %q: %w", ErrIO, key, err)
	}
	return exists, nil
}

// ListKeys returns the sorted keys of all records. If the directory cannot
// be read, the error is logged and an empty list is returned.
func (s *SecureStorage) ListKeys(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	keys, err := s.dir.List()
	if err != nil {
		s.log.WithError(err).WithField("path", s.dir.Path()).Warn("cannot read storage directory")
		return []string{}, nil
	}
	return keys, nil
}

// ClearAll removes every record and leaves an empty storage directory
func (s *SecureStorage) ClearAll(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := s.dir.Clear(); err != nil {
		return fmt.Errorf("%w: %w", ErrIO, err)
	}

	s.log.WithField("path", s.dir.Path()).Info("storage cleared")
	return nil
}
