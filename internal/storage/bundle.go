package storage

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Bucket names
var (
	ConfigBucket  = []byte("config")  // KDF params (salt, iterations), timestamps, bundle id - unencrypted
	RecordsBucket = []byte("records") // Storage key -> JSON EncryptedRecord under the passphrase key
)

// Config keys
var (
	ConfigVersion  = []byte("version")
	ConfigCreated  = []byte("created")
	ConfigSalt     = []byte("salt")
	ConfigIters    = []byte("iterations")
	ConfigBundleID = []byte("bundle_id")
	ConfigCheck    = []byte("check")
)

var bundleVersion = []byte("1")

const bundleOpenTimeout = time.Second

var (
	ErrBundleExists   = errors.New("bundle already exists")
	ErrBundleNotFound = errors.New("bundle not found")
	ErrNotABundle     = errors.New("file is not a securestore bundle")
)

// Bundle is a portable backup file: a BBolt database holding records
// re-encrypted under a passphrase key.
type Bundle struct {
	db *bolt.DB
}

// CreateBundle creates a new, uninitialized bundle file. It refuses to
// overwrite an existing file.
func CreateBundle(path string) (*Bundle, error) {
	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrBundleExists, path)
	}

	db, err := bolt.Open(path, FilePerm, &bolt.Options{Timeout: bundleOpenTimeout})
	if err != nil {
		return nil, fmt.Errorf("failed to create bundle: %w", err)
	}

	return &Bundle{db: db}, nil
}

// OpenBundle opens an existing bundle read-only
func OpenBundle(path string) (*Bundle, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrBundleNotFound, path)
	}

	db, err := bolt.Open(path, FilePerm, &bolt.Options{ReadOnly: true, Timeout: bundleOpenTimeout})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotABundle, err)
	}

	b := &Bundle{db: db}
	initialized, err := b.IsInitialized()
	if err != nil || !initialized {
		db.Close()
		return nil, fmt.Errorf("%w: %s", ErrNotABundle, path)
	}

	return b, nil
}

// Close closes the database
func (b *Bundle) Close() error {
	return b.db.Close()
}

// Path returns the bundle file path
func (b *Bundle) Path() string {
	return b.db.Path()
}

// Initialize creates the bucket structure and stamps version, creation time
// and bundle id.
func (b *Bundle) Initialize(bundleID string) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{ConfigBucket, RecordsBucket} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}

		config := tx.Bucket(ConfigBucket)
		if err := config.Put(ConfigVersion, bundleVersion); err != nil {
			return err
		}

		created, _ := time.Now().MarshalBinary()
		if err := config.Put(ConfigCreated, created); err != nil {
			return err
		}

		return config.Put(ConfigBundleID, []byte(bundleID))
	})
}

// IsInitialized checks if the database carries a bundle version
func (b *Bundle) IsInitialized() (bool, error) {
	var initialized bool
	err := b.db.View(func(tx *bolt.Tx) error {
		config := tx.Bucket(ConfigBucket)
		if config != nil && config.Get(ConfigVersion) != nil && tx.Bucket(RecordsBucket) != nil {
			initialized = true
		}
		return nil
	})
	return initialized, err
}

// SetKDF stores the passphrase KDF salt and iterations
func (b *Bundle) SetKDF(salt []byte, iterations uint32) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		config := tx.Bucket(ConfigBucket)
		if err := config.Put(ConfigSalt, salt); err != nil {
			return err
		}
		iters := make([]byte, 4)
		binary.BigEndian.PutUint32(iters, iterations)
		return config.Put(ConfigIters, iters)
	})
}

// GetKDF retrieves the passphrase KDF salt and iterations
func (b *Bundle) GetKDF() ([]byte, uint32, error) {
	var salt []byte
	var iterations uint32
	err := b.db.View(func(tx *bolt.Tx) error {
		config := tx.Bucket(ConfigBucket)
		if config == nil {
			return fmt.Errorf("config bucket not found")
		}
		s := config.Get(ConfigSalt)
		if s == nil {
			return fmt.Errorf("salt not found")
		}
		iters := config.Get(ConfigIters)
		if len(iters) != 4 {
			return fmt.Errorf("iterations not found")
		}
		// Make a copy since the slice is only valid during the transaction
		salt = append([]byte(nil), s...)
		iterations = binary.BigEndian.Uint32(iters)
		return nil
	})
	return salt, iterations, err
}

// ID returns the bundle id
func (b *Bundle) ID() (string, error) {
	var id string
	err := b.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(ConfigBucket).Get(ConfigBundleID)
		if data == nil {
			return fmt.Errorf("bundle_id not found")
		}
		id = string(data)
		return nil
	})
	return id, err
}

// Created returns the bundle creation time
func (b *Bundle) Created() (time.Time, error) {
	var created time.Time
	err := b.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(ConfigBucket).Get(ConfigCreated)
		if data == nil {
			return fmt.Errorf("created time not found")
		}
		return created.UnmarshalBinary(data)
	})
	return created, err
}

// SetCheck stores the encrypted passphrase check value
func (b *Bundle) SetCheck(data []byte) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(ConfigBucket).Put(ConfigCheck, data)
	})
}

// GetCheck retrieves the encrypted passphrase check value
func (b *Bundle) GetCheck() ([]byte, error) {
	var data []byte
	err := b.db.View(func(tx *bolt.Tx) error {
		check := tx.Bucket(ConfigBucket).Get(ConfigCheck)
		if check == nil {
			return fmt.Errorf("passphrase check not found")
		}
		data = append([]byte(nil), check...)
		return nil
	})
	return data, err
}

// PutRecords writes all records in a single transaction
func (b *Bundle) PutRecords(records map[string][]byte) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(RecordsBucket)
		for key, data := range records {
			if err := bucket.Put([]byte(key), data); err != nil {
				return fmt.Errorf("failed to store %s: %w", key, err)
			}
		}
		return nil
	})
}

// GetRecord retrieves one serialized record
func (b *Bundle) GetRecord(key string) ([]byte, error) {
	var data []byte
	err := b.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(RecordsBucket).Get([]byte(key))
		if v == nil {
			return fmt.Errorf("record %s not found", key)
		}
		data = append([]byte(nil), v...)
		return nil
	})
	return data, err
}

// ForEachRecord visits records in key order. data is a copy and may be kept.
func (b *Bundle) ForEachRecord(fn func(key string, data []byte) error) error {
	return b.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(RecordsBucket).ForEach(func(k, v []byte) error {
			return fn(string(k), append([]byte(nil), v...))
		})
	})
}

// Keys returns all record keys, sorted. No passphrase is needed.
func (b *Bundle) Keys() ([]string, error) {
	var keys []string
	err := b.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(RecordsBucket).ForEach(func(k, v []byte) error {
			keys = append(keys, string(k))
			return nil
		})
	})
	sort.Strings(keys)
	return keys, err
}
