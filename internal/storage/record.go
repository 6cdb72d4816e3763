package storage

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/illarion/securestore/internal/crypto"
)

var ErrInvalidFormat = errors.New("invalid format")

// MarshalRecord serializes a record to its on-disk JSON form
func MarshalRecord(rec *crypto.EncryptedRecord) ([]byte, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal record: %w", err)
	}
	return data, nil
}

// ParseRecord parses an on-disk record. Malformed JSON and records missing
// any of the three fields fail with ErrInvalidFormat.
func ParseRecord(data []byte) (*crypto.EncryptedRecord, error) {
	var raw struct {
		Ciphertext *string `json:"ciphertext"`
		Nonce      *string `json:"nonce"`
		Version    *int    `json:"version"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}

	switch {
	case raw.Ciphertext == nil:
		return nil, fmt.Errorf("%w: missing field ciphertext", ErrInvalidFormat)
	case raw.Nonce == nil:
		return nil, fmt.Errorf("%w: missing field nonce", ErrInvalidFormat)
	case raw.Version == nil:
		return nil, fmt.Errorf("%w: missing field version", ErrInvalidFormat)
	}

	return &crypto.EncryptedRecord{
		Ciphertext: *raw.Ciphertext,
		Nonce:      *raw.Nonce,
		Version:    *raw.Version,
	}, nil
}
