package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/awnumar/memguard"
	"golang.org/x/crypto/pbkdf2"
)

const (
	SaltSize     = 32     // Salt size in bytes
	KeySize      = 32     // AES-256 key size
	NonceSize    = 12     // GCM nonce size
	TagSize      = 16     // GCM authentication tag size
	DefaultIters = 210000 // Default PBKDF2 iterations (OWASP minimum)
)

var (
	ErrEncryptionFailed   = errors.New("encryption failed")
	ErrDecryptionFailed   = errors.New("decryption failed")
	ErrAuthFailed         = errors.New("authentication failed")
	ErrInvalidEncoding    = errors.New("invalid encoding")
	ErrUnsupportedVersion = errors.New("unsupported record version")
	ErrInvalidKeySize     = errors.New("invalid key size")
	ErrDestroyed          = errors.New("encryptor destroyed")
)

// KDF handles key derivation from passphrases
type KDF struct {
	Salt       []byte
	Iterations int
}

// NewKDF creates a new KDF with a random salt
func NewKDF() (*KDF, error) {
	salt, err := GenerateRandom(SaltSize)
	if err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	return &KDF{
		Salt:       salt,
		Iterations: DefaultIters,
	}, nil
}

// DeriveKey derives an encryption key from a passphrase
func (k *KDF) DeriveKey(passphrase []byte) []byte {
	return pbkdf2.Key(passphrase, k.Salt, k.Iterations, KeySize, sha256.New)
}

// Encryptor provides AES-256-GCM authenticated encryption. The key lives in
// a memguard enclave and is only unsealed for the duration of a cipher call.
// An Encryptor is safe for concurrent use.
type Encryptor struct {
	key atomic.Pointer[memguard.Enclave]
}

// NewEncryptor creates an encryptor for a 32-byte key. The key slice is
// wiped once it has been sealed.
func NewEncryptor(key []byte) (*Encryptor, error) {
	if len(key) != KeySize {
		ClearBytes(key)
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidKeySize, len(key), KeySize)
	}

	e := &Encryptor{}
	e.key.Store(memguard.NewEnclave(key))
	return e, nil
}

// Seal encrypts plaintext under a fresh random nonce. No associated data is
// used.
func (e *Encryptor) Seal(plaintext []byte) (nonce, ciphertext []byte, err error) {
	gcm, release, err := e.aead()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrEncryptionFailed, err)
	}
	defer release()

	nonce, err = GenerateRandom(NonceSize)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrEncryptionFailed, err)
	}

	return nonce, gcm.Seal(nil, nonce, plaintext, nil), nil
}

// Open verifies and decrypts ciphertext. Any mismatch of key, nonce or data
// yields ErrAuthFailed.
func (e *Encryptor) Open(nonce, ciphertext []byte) ([]byte, error) {
	if len(nonce) != NonceSize || len(ciphertext) < TagSize {
		return nil, ErrAuthFailed
	}

	gcm, release, err := e.aead()
	if err != nil {
		return nil, err
	}
	defer release()

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrAuthFailed
	}

	return plaintext, nil
}

// Destroy drops the sealed key. Later calls fail with ErrDestroyed.
func (e *Encryptor) Destroy() {
	e.key.Store(nil)
}

func (e *Encryptor) aead() (cipher.AEAD, func(), error) {
	enclave := e.key.Load()
	if enclave == nil {
		return nil, nil, ErrDestroyed
	}

	buf, err := enclave.Open()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open key enclave: %w", err)
	}

	block, err := aes.NewCipher(buf.Bytes())
	if err != nil {
		buf.Destroy()
		return nil, nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		buf.Destroy()
		return nil, nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return gcm, buf.Destroy, nil
}

// ClearBytes securely clears a byte slice
func ClearBytes(b []byte) {
	memguard.WipeBytes(b)
}

// ConstantTimeCompare performs a constant-time comparison of two byte slices
func ConstantTimeCompare(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}

// GenerateRandom generates n random bytes
func GenerateRandom(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return b, nil
}
