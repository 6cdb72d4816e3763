package core

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/illarion/securestore/internal/crypto"
	"github.com/illarion/securestore/internal/security"
	"github.com/illarion/securestore/internal/storage"
	"github.com/sirupsen/logrus"
)

const passphraseCheckString = "securestore-passphrase-check"

var (
	ErrWrongPassphrase    = errors.New("wrong passphrase")
	ErrPassphraseRequired = errors.New("passphrase required")
)

// ExportResult describes a written bundle
type ExportResult struct {
	Path     string
	BundleID string
	Keys     []string
}

// ImportResult contains the results of an import
type ImportResult struct {
	BundleID  string
	Imported  []string // Written to local storage
	Unchanged []string // Local value already equal
	Skipped   []string // Kept local value on conflict
	Errors    []string // Records that could not be read from the bundle
}

// Export writes every record to a new bundle at path, re-encrypted under a
// key derived from passphrase. The bundle is portable across machines.
func (s *SecureStorage) Export(ctx context.Context, path string, passphrase []byte) (*ExportResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(passphrase) == 0 {
		return nil, ErrPassphraseRequired
	}

	keys, err := s.dir.List()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	}

	kdf, err := crypto.NewKDF()
	if err != nil {
		return nil, fmt.Errorf("failed to create KDF: %w", err)
	}
	key := kdf.DeriveKey(passphrase)
	enc, err := crypto.NewEncryptor(key)
	if err != nil {
		return nil, err
	}
	defer enc.Destroy()

	// Phase 1: decrypt and re-encrypt everything in memory
	records := make(map[string][]byte, len(keys))
	for _, k := range keys {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		value, found, err := s.retrieve(k)
		if err != nil {
			return nil, fmt.Errorf("failed to export %q: %w", k, err)
		}
		if !found {
			// Removed since listing
			continue
		}

		rec, err := enc.EncryptString(value)
		if err != nil {
			return nil, fmt.Errorf("failed to encrypt %q: %w", k, err)
		}
		data, err := storage.MarshalRecord(rec)
		if err != nil {
			return nil, err
		}
		records[k] = data
	}

	check, err := passphraseCheck(enc)
	if err != nil {
		return nil, err
	}

	// Phase 2: write the bundle
	bundleID := uuid.NewString()
	if err := writeBundle(path, bundleID, kdf, check, records); err != nil {
		return nil, err
	}

	result := &ExportResult{Path: path, BundleID: bundleID, Keys: make([]string, 0, len(records))}
	for _, k := range keys {
		if _, ok := records[k]; ok {
			result.Keys = append(result.Keys, k)
		}
	}

	s.log.WithFields(logrus.Fields{"path": path, "count": len(result.Keys)}).Info("bundle exported")
	return result, nil
}

func writeBundle(path, bundleID string, kdf *crypto.KDF, check []byte, records map[string][]byte) (err error) {
	bundle, err := storage.CreateBundle(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := bundle.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("failed to close bundle: %w", cerr)
		}
		if err != nil {
			_ = os.Remove(path)
		}
	}()

	if err := bundle.Initialize(bundleID); err != nil {
		return fmt.Errorf("failed to initialize bundle: %w", err)
	}
	if err := bundle.SetKDF(kdf.Salt, uint32(kdf.Iterations)); err != nil {
		return fmt.Errorf("failed to store KDF parameters: %w", err)
	}
	if err := bundle.SetCheck(check); err != nil {
		return fmt.Errorf("failed to store passphrase check: %w", err)
	}
	if err := bundle.PutRecords(records); err != nil {
		return fmt.Errorf("failed to store records: %w", err)
	}
	return nil
}

func passphraseCheck(enc *crypto.Encryptor) ([]byte, error) {
	checksum := sha256.Sum256([]byte(passphraseCheckString))
	rec, err := enc.EncryptString(hex.EncodeToString(checksum[:]))
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt passphrase check: %w", err)
	}
	return storage.MarshalRecord(rec)
}

// openBundle opens the bundle at path and verifies passphrase against it
func openBundle(path string, passphrase []byte) (*storage.Bundle, *crypto.Encryptor, error) {
	if len(passphrase) == 0 {
		return nil, nil, ErrPassphraseRequired
	}

	bundle, err := storage.OpenBundle(path)
	if err != nil {
		return nil, nil, err
	}

	salt, iterations, err := bundle.GetKDF()
	if err != nil {
		bundle.Close()
		return nil, nil, fmt.Errorf("failed to read KDF parameters: %w", err)
	}

	kdf := &crypto.KDF{Salt: salt, Iterations: int(iterations)}
	enc, err := crypto.NewEncryptor(kdf.DeriveKey(passphrase))
	if err != nil {
		bundle.Close()
		return nil, nil, err
	}

	fail := func(err error) (*storage.Bundle, *crypto.Encryptor, error) {
		enc.Destroy()
		bundle.Close()
		return nil, nil, err
	}

	data, err := bundle.GetCheck()
	if err != nil {
		return fail(ErrWrongPassphrase)
	}
	rec, err := storage.ParseRecord(data)
	if err != nil {
		return fail(ErrWrongPassphrase)
	}
	check, err := enc.DecryptString(rec)
	if err != nil {
		return fail(ErrWrongPassphrase)
	}

	checksum := sha256.Sum256([]byte(passphraseCheckString))
	if !crypto.ConstantTimeCompare([]byte(check), []byte(hex.EncodeToString(checksum[:]))) {
		return fail(ErrWrongPassphrase)
	}

	return bundle, enc, nil
}

// BundleID returns the id of the bundle at path. No passphrase is needed.
func BundleID(path string) (string, error) {
	bundle, err := storage.OpenBundle(path)
	if err != nil {
		return "", err
	}
	defer bundle.Close()
	return bundle.ID()
}

// VerifyPassphrase checks passphrase against the bundle at path and returns
// the bundle id
func VerifyPassphrase(path string, passphrase []byte) (string, error) {
	bundle, enc, err := openBundle(path, passphrase)
	if err != nil {
		return "", err
	}
	defer bundle.Close()
	enc.Destroy()

	return bundle.ID()
}

// Import copies the records of the bundle at path into local storage,
// re-encrypted under the master key. Keys that exist locally with a different
// value are resolved by strategy; with StrategyAbort nothing is written when
// any conflict exists.
func (s *SecureStorage) Import(ctx context.Context, path string, passphrase []byte, strategy Strategy) (*ImportResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, ok := strategyNames[strategy]; !ok {
		return nil, fmt.Errorf("%w: %v", ErrUnknownStrategy, strategy)
	}

	bundle, enc, err := openBundle(path, passphrase)
	if err != nil {
		return nil, err
	}
	defer bundle.Close()
	defer enc.Destroy()

	bundleID, err := bundle.ID()
	if err != nil {
		return nil, fmt.Errorf("failed to read bundle id: %w", err)
	}

	result := &ImportResult{
		BundleID:  bundleID,
		Imported:  []string{},
		Unchanged: []string{},
		Skipped:   []string{},
		Errors:    []string{},
	}

	type pendingRecord struct {
		key   string
		value string
	}
	var pending []pendingRecord
	var conflicts []string

	// Phase 1: decrypt the bundle and classify every record
	err = bundle.ForEachRecord(func(key string, data []byte) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := security.ValidateKey(key); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", key, err))
			return nil
		}

		rec, err := storage.ParseRecord(data)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", key, err))
			return nil
		}
		value, err := enc.DecryptString(rec)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", key, err))
			return nil
		}
		if err := security.ValidateValue(value); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", key, err))
			return nil
		}

		local, found, err := s.retrieve(key)
		if err != nil && !errors.Is(err, crypto.ErrDecryptionFailed) && !errors.Is(err, storage.ErrInvalidFormat) {
			return err
		}

		switch {
		case err != nil:
			// Unreadable local record: the backup value replaces it
			pending = append(pending, pendingRecord{key, value})
		case !found:
			pending = append(pending, pendingRecord{key, value})
		case local == value:
			result.Unchanged = append(result.Unchanged, key)
		default:
			conflicts = append(conflicts, key)
			switch strategy {
			case StrategyUseBackup:
				pending = append(pending, pendingRecord{key, value})
			case StrategyKeepLocal:
				result.Skipped = append(result.Skipped, key)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if strategy == StrategyAbort && len(conflicts) > 0 {
		return nil, fmt.Errorf("%w: %v (aborting)", ErrConflict, conflicts)
	}

	// Phase 2: write
	for _, p := range pending {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if err := s.store(p.key, p.value); err != nil {
			return result, err
		}
		result.Imported = append(result.Imported, p.key)
	}

	s.log.WithFields(logrus.Fields{
		"path":      path,
		"imported":  len(result.Imported),
		"unchanged": len(result.Unchanged),
		"skipped":   len(result.Skipped),
	}).Info("bundle imported")
	return result, nil
}

// DiffKeys compares local keys with the keys in the bundle at path. Keys are
// stored unencrypted in the bundle, so no passphrase is needed.
func (s *SecureStorage) DiffKeys(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	local, err := s.dir.List()
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrIO, err)
	}

	bundle, err := storage.OpenBundle(path)
	if err != nil {
		return "", err
	}
	defer bundle.Close()

	backup, err := bundle.Keys()
	if err != nil {
		return "", fmt.Errorf("failed to read bundle keys: %w", err)
	}

	return diffKeyLists(local, backup), nil
}
