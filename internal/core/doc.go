// Package core provides the securestore operations.
//
// SecureStorage encrypts each secret with AES-256-GCM under a master key
// derived from the application name and the machine identity, and keeps one
// JSON record file per key:
//   - Store/Retrieve/Remove/Exists: single-key operations
//   - StoreBatch/RetrieveBatch: up to 100 keys per call
//   - ListKeys/ClearAll: enumeration and reset
//   - Stats: on-disk status, including the git hygiene check
//
// Commands wraps a SecureStorage for a host application: it is initialized
// once and validates every input before touching storage.
//
// Backups move records between machines, whose master keys differ:
//   - Export: re-encrypt all records under a passphrase into a bundle
//   - Import: merge a bundle back with a conflict strategy
//   - DiffKeys: compare local keys with a bundle's keys
package core
