package crypto

import (
	"encoding/base64"
	"fmt"
	"unicode/utf8"
)

// RecordVersion is the current EncryptedRecord format.
const RecordVersion = 1

// EncryptedRecord is the persisted form of one secret.
type EncryptedRecord struct {
	Ciphertext string `json:"ciphertext"` // base64 AES-GCM output, tag included
	Nonce      string `json:"nonce"`      // base64 12-byte nonce
	Version    int    `json:"version"`
}

// EncryptString encrypts a secret value into a new record.
func (e *Encryptor) EncryptString(plaintext string) (*EncryptedRecord, error) {
	nonce, ciphertext, err := e.Seal([]byte(plaintext))
	if err != nil {
		return nil, err
	}

	return &EncryptedRecord{
		Ciphertext: base64.StdEncoding.EncodeToString(ciphertext),
		Nonce:      base64.StdEncoding.EncodeToString(nonce),
		Version:    RecordVersion,
	}, nil
}

// DecryptString authenticates and decrypts a record. All errors match
// ErrDecryptionFailed; tampering and wrong keys both report ErrAuthFailed.
func (e *Encryptor) DecryptString(rec *EncryptedRecord) (string, error) {
	if rec.Version != RecordVersion {
		return "", fmt.Errorf("%w: %w %d", ErrDecryptionFailed, ErrUnsupportedVersion, rec.Version)
	}

	ciphertext, err := base64.StdEncoding.DecodeString(rec.Ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: %w in ciphertext: %v", ErrDecryptionFailed, ErrInvalidEncoding, err)
	}

	nonce, err := base64.StdEncoding.DecodeString(rec.Nonce)
	if err != nil {
		return "", fmt.Errorf("%w: %w in nonce: %v", ErrDecryptionFailed, ErrInvalidEncoding, err)
	}

	plaintext, err := e.Open(nonce, ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrDecryptionFailed, err)
	}
	defer ClearBytes(plaintext)

	if !utf8.Valid(plaintext) {
		return "", fmt.Errorf("%w: %w: decrypted data is not UTF-8", ErrDecryptionFailed, ErrInvalidEncoding)
	}

	return string(plaintext), nil
}
