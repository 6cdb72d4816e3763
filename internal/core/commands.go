package core

import (
	"context"
	"fmt"
	"sync"

	"github.com/illarion/securestore/internal/security"
)

// Commands is the host-facing handle. It is initialized once with Init;
// every other method fails with ErrNotInitialized until then.
//
// The lock only guards the handle itself. Record files are not locked.
type Commands struct {
	mu      sync.RWMutex
	storage *SecureStorage
}

// NewCommands returns an uninitialized handle
func NewCommands() *Commands {
	return &Commands{}
}

// Init creates the storage manager. A second call fails with
// ErrAlreadyInitialized and keeps the first manager.
func (c *Commands) Init(ctx context.Context, cfg Config) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.storage != nil {
		return ErrAlreadyInitialized
	}

	s, err := New(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize secure storage: %w", err)
	}
	c.storage = s
	return nil
}

// Storage returns the manager created by Init
func (c *Commands) Storage() (*SecureStorage, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.storage == nil {
		return nil, ErrNotInitialized
	}
	return c.storage, nil
}

// Close wipes the master key and returns the handle to the uninitialized state
func (c *Commands) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.storage == nil {
		return nil
	}
	err := c.storage.Close()
	c.storage = nil
	return err
}

// Store validates and stores a secret
func (c *Commands) Store(ctx context.Context, key, value string) error {
	if err := security.ValidateKey(key); err != nil {
		return err
	}
	if err := security.ValidateValue(value); err != nil {
		return err
	}

	s, err := c.Storage()
	if err != nil {
		return err
	}
	return s.Store(ctx, key, value)
}

// Retrieve returns the secret for key, or nil if there is none
func (c *Commands) Retrieve(ctx context.Context, key string) (*string, error) {
	if err := security.ValidateKey(key); err != nil {
		return nil, err
	}

	s, err := c.Storage()
	if err != nil {
		return nil, err
	}

	value, found, err := s.Retrieve(ctx, key)
	if err != nil || !found {
		return nil, err
	}
	return &value, nil
}

// Remove deletes the secret for key and reports whether it existed
func (c *Commands) Remove(ctx context.Context, key string) (bool, error) {
	if err := security.ValidateKey(key); err != nil {
		return false, err
	}

	s, err := c.Storage()
	if err != nil {
		return false, err
	}
	return s.Remove(ctx, key)
}

// Exists reports whether a secret for key is stored
func (c *Commands) Exists(ctx context.Context, key string) (bool, error) {
	if err := security.ValidateKey(key); err != nil {
		return false, err
	}

	s, err := c.Storage()
	if err != nil {
		return false, err
	}
	return s.Exists(ctx, key)
}

// StoreBatch stores several secrets. See SecureStorage.StoreBatch.
func (c *Commands) StoreBatch(ctx context.Context, items []Item) error {
	if err := security.ValidateBatchSize(len(items)); err != nil {
		return err
	}

	s, err := c.Storage()
	if err != nil {
		return err
	}
	return s.StoreBatch(ctx, items)
}

// RetrieveBatch returns several secrets. See SecureStorage.RetrieveBatch.
func (c *Commands) RetrieveBatch(ctx context.Context, keys []string) (map[string]*string, error) {
	if err := security.ValidateBatchSize(len(keys)); err != nil {
		return nil, err
	}

	s, err := c.Storage()
	if err != nil {
		return nil, err
	}
	return s.RetrieveBatch(ctx, keys)
}

// ListKeys returns all stored keys in sorted order
func (c *Commands) ListKeys(ctx context.Context) ([]string, error) {
	s, err := c.Storage()
	if err != nil {
		return nil, err
	}
	return s.ListKeys(ctx)
}

// ClearAll deletes every stored secret
func (c *Commands) ClearAll(ctx context.Context) error {
	s, err := c.Storage()
	if err != nil {
		return err
	}
	return s.ClearAll(ctx)
}
