// Package crypto provides cryptographic operations for securestore.
//
// Records are encrypted with AES-256-GCM:
//   - 32-byte master key, SHA-256 of app name, machine identity and a fixed salt
//   - 12-byte random nonce per encryption operation
//   - no associated data; the 16-byte tag detects any tampering
//
// Backup bundles use a passphrase key from PBKDF2-HMAC-SHA256 with:
//   - 32-byte random salt (stored unencrypted in the bundle)
//   - 210,000 iterations (OWASP minimum recommendation)
//
// Memory safety:
//   - Encryptor keeps its key sealed in a memguard enclave
//   - Use ClearBytes() to zero sensitive data after use
//   - Call Encryptor.Destroy() when done with encryption operations
package crypto
