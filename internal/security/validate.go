package security

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	MaxValueLength = 8192 // Secret size ceiling in bytes
	MaxKeyLength   = 255  // Storage key ceiling in bytes
	MaxBatchSize   = 100  // Items per batch call
)

var (
	ErrTooLong           = errors.New("exceeds maximum length")
	ErrInvalidCharacters = errors.New("contains invalid characters")
	ErrInvalidKey        = errors.New("invalid storage key")
	ErrEmptyKey          = errors.New("empty storage key not allowed")
	ErrInvalidKeyPath    = errors.New("storage key must be a single file name")
	ErrBatchTooLarge     = errors.New("batch too large")
)

// ValidateInput rejects input longer than maxLength bytes, containing null
// bytes, or not valid UTF-8. The field label is used in the error message only.
func ValidateInput(input, field string, maxLength int) error {
	if len(input) > maxLength {
		return fmt.Errorf("%s %w of %d bytes", field, ErrTooLong, maxLength)
	}

	if strings.IndexByte(input, 0) != -1 {
		return fmt.Errorf("%s %w (null byte)", field, ErrInvalidCharacters)
	}

	// Only UTF-8 decrypts back to a string
	if !utf8.ValidString(input) {
		return fmt.Errorf("%s %w (not valid UTF-8)", field, ErrInvalidCharacters)
	}

	return nil
}

// ValidateKey checks a storage key. Every error it returns matches
// ErrInvalidKey in addition to the specific cause.
//
// Keys are used as file names inside the storage directory, so besides the
// length and character rules they must be a single path element.
func ValidateKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: %w", ErrInvalidKey, ErrEmptyKey)
	}

	if err := ValidateInput(key, "storage key", MaxKeyLength); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidKey, err)
	}

	if key == "." || key == ".." || strings.ContainsAny(key, `/\`) {
		return fmt.Errorf("%w: %w: %q", ErrInvalidKey, ErrInvalidKeyPath, key)
	}

	return nil
}

// ValidateValue checks a secret value against MaxValueLength.
func ValidateValue(value string) error {
	return ValidateInput(value, "storage value", MaxValueLength)
}

// ValidateBatchSize rejects batches with more than MaxBatchSize items.
func ValidateBatchSize(n int) error {
	if n > MaxBatchSize {
		return fmt.Errorf("%w (max %d items, got %d)", ErrBatchTooLarge, MaxBatchSize, n)
	}
	return nil
}
