package core

import (
	"context"
	"fmt"

	"github.com/illarion/securestore/internal/security"
)

// Item is one key/value pair of a batch store
type Item struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// BatchError reports the item a batch stopped at. Items listed in Committed
// were written before the failure and stay in place.
type BatchError struct {
	Index     int
	Key       string
	Committed []string
	Err       error
}

func (e *BatchError) Error() string {
	if len(e.Committed) > 0 {
		return fmt.Sprintf("batch item %d (%q): %v (%d earlier item(s) committed)", e.Index, e.Key, e.Err, len(e.Committed))
	}
	return fmt.Sprintf("batch item %d (%q): %v", e.Index, e.Key, e.Err)
}

func (e *BatchError) Unwrap() error {
	return e.Err
}

// StoreBatch stores up to MaxBatchSize items in order.
//
// Every key and value is validated before anything is written, so invalid
// input leaves the store untouched. A failure while writing stops the batch
// and the returned *BatchError lists the keys already committed.
func (s *SecureStorage) StoreBatch(ctx context.Context, items []Item) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := security.ValidateBatchSize(len(items)); err != nil {
		return err
	}

	for i, item := range items {
		if err := security.ValidateKey(item.Key); err != nil {
			return &BatchError{Index: i, Key: item.Key, Err: err}
		}
		if err := security.ValidateValue(item.Value); err != nil {
			return &BatchError{Index: i, Key: item.Key, Err: err}
		}
	}

	committed := make([]string, 0, len(items))
	for i, item := range items {
		if err := ctx.Err(); err != nil {
			return &BatchError{Index: i, Key: item.Key, Committed: committed, Err: err}
		}
		if err := s.store(item.Key, item.Value); err != nil {
			return &BatchError{Index: i, Key: item.Key, Committed: committed, Err: err}
		}
		committed = append(committed, item.Key)
	}

	s.log.WithField("count", len(items)).Debug("batch stored")
	return nil
}

// RetrieveBatch decrypts up to MaxBatchSize records. Missing keys map to nil.
// The first failing key aborts the call and no partial result is returned.
func (s *SecureStorage) RetrieveBatch(ctx context.Context, keys []string) (map[string]*string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := security.ValidateBatchSize(len(keys)); err != nil {
		return nil, err
	}

	results := make(map[string]*string, len(keys))
	for i, key := range keys {
		if err := ctx.Err(); err != nil {
			return nil, &BatchError{Index: i, Key: key, Err: err}
		}
		if err := security.ValidateKey(key); err != nil {
			return nil, &BatchError{Index: i, Key: key, Err: err}
		}

		value, found, err := s.retrieve(key)
		if err != nil {
			return nil, &BatchError{Index: i, Key: key, Err: err}
		}
		if found {
			results[key] = &value
		} else {
			results[key] = nil
		}
	}

	return results, nil
}
